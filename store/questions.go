// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/askany/auth"
	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/models"
	"github.com/google/uuid"
)

const (
	MaxContentLength  = 1000
	MaxNicknameLength = 50

	// RequestTTL is how long a toggle outcome is remembered for its Idempotency-Key.
	RequestTTL = 10 * time.Minute
)

const (
	fieldSessionID   = "sessionId"
	fieldContent     = "content"
	fieldAuthorID    = "authorId"
	fieldNickname    = "nickname"
	fieldIsAnonymous = "isAnonymous"
	fieldIsAnswered  = "isAnswered"
	fieldIsSpotlight = "isSpotlight"

	requestPending = "pending"
)

// QuestionStore owns question records and each session's question index.
type QuestionStore struct {
	kv       kvstore.Store
	sessions *SessionStore
	ledger   *UpvoteLedger
	now      func() time.Time
}

func NewQuestionStore(kv kvstore.Store, sessions *SessionStore, ledger *UpvoteLedger, opts ...Option) *QuestionStore {
	o := buildOptions(opts)
	return &QuestionStore{kv: kv, sessions: sessions, ledger: ledger, now: o.now}
}

// CreateQuestion adds a question to an existing session. Anonymous
// questions never keep a nickname.
func (s *QuestionStore) CreateQuestion(ctx context.Context, sessionSlug, content, authorID, nickname string, isAnonymous bool) (models.Question, error) {
	if err := auth.ValidateClientID(authorID); err != nil {
		return models.Question{}, validationf("%v", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Question{}, validationf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return models.Question{}, validationf("content must be at most %d characters", MaxContentLength)
	}
	nickname = strings.TrimSpace(nickname)
	if isAnonymous {
		nickname = ""
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return models.Question{}, validationf("nickname must be at most %d characters", MaxNicknameLength)
	}

	if _, err := s.sessions.Lookup(ctx, sessionSlug); err != nil {
		return models.Question{}, err
	}

	q := models.Question{
		ID:          uuid.NewString(),
		SessionID:   sessionSlug,
		Content:     content,
		AuthorID:    authorID,
		IsAnonymous: isAnonymous,
		CreatedAt:   s.now().UTC(),
		IsMine:      true,
	}
	if nickname != "" {
		q.AuthorNickname = &nickname
	}

	if err := s.kv.HSet(ctx, questionKey(q.ID), encodeQuestion(q)); err != nil {
		return models.Question{}, storeErr("create question", err)
	}
	if _, err := s.kv.SAdd(ctx, questionIndexKey(sessionSlug), q.ID); err != nil {
		if delErr := s.kv.Del(ctx, questionKey(q.ID)); delErr != nil {
			slog.Error("failed to remove unindexed question", "question_id", q.ID, "error", delErr)
		}
		return models.Question{}, storeErr("index question", err)
	}

	slog.Info("question created", "session", sessionSlug, "question_id", q.ID, "anonymous", isAnonymous)
	return q, nil
}

// GetQuestion loads a question with its current upvote count.
func (s *QuestionStore) GetQuestion(ctx context.Context, id string) (models.Question, error) {
	if !validKeyPart(id) {
		return models.Question{}, notFound("question", id)
	}
	fields, err := s.kv.HGetAll(ctx, questionKey(id))
	if err != nil {
		return models.Question{}, storeErr("load question", err)
	}
	q, ok := decodeQuestion(id, fields)
	if !ok {
		return models.Question{}, notFound("question", id)
	}
	if q.UpvoteCount, err = s.ledger.Count(ctx, id); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// View loads a question as clientID sees it.
func (s *QuestionStore) View(ctx context.Context, id, clientID string) (models.Question, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return models.Question{}, err
	}
	return s.personalize(ctx, q, clientID)
}

func (s *QuestionStore) personalize(ctx context.Context, q models.Question, clientID string) (models.Question, error) {
	upvoted, err := s.ledger.HasUpvoted(ctx, q.ID, clientID)
	if err != nil {
		return models.Question{}, err
	}
	q.HasUpvoted = upvoted
	q.IsMine = clientID != "" && q.AuthorID == clientID
	return q, nil
}

// IDs returns the ids in a session's question index, sorted.
func (s *QuestionStore) IDs(ctx context.Context, sessionSlug string) ([]string, error) {
	ids, err := s.kv.SMembers(ctx, questionIndexKey(sessionSlug))
	if err != nil {
		return nil, storeErr("list question ids", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// All loads every question of a session regardless of visibility. Index
// entries whose question is already gone are skipped.
func (s *QuestionStore) All(ctx context.Context, sessionSlug string) ([]models.Question, error) {
	ids, err := s.IDs(ctx, sessionSlug)
	if err != nil {
		return nil, err
	}
	questions := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		q, err := s.GetQuestion(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if q.SessionID != sessionSlug {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// ListQuestions returns the questions clientID may see, ranked.
func (s *QuestionStore) ListQuestions(ctx context.Context, sessionSlug, clientID string) ([]models.Question, error) {
	session, err := s.sessions.Lookup(ctx, sessionSlug)
	if err != nil {
		return nil, err
	}
	all, err := s.All(ctx, sessionSlug)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Question, 0, len(all))
	for _, q := range all {
		if !Visible(session, q, clientID) {
			continue
		}
		if q, err = s.personalize(ctx, q, clientID); err != nil {
			return nil, err
		}
		visible = append(visible, q)
	}
	SortQuestions(visible)
	return visible, nil
}

// MarkAnswered sets the answered flag. The flag never goes back to false.
func (s *QuestionStore) MarkAnswered(ctx context.Context, id string) (models.Question, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return models.Question{}, err
	}
	if q.IsAnswered {
		return q, nil
	}
	if err := s.kv.HSet(ctx, questionKey(id), map[string]string{fieldIsAnswered: "true"}); err != nil {
		return models.Question{}, storeErr("mark answered", err)
	}
	q.IsAnswered = true
	slog.Info("question answered", "session", q.SessionID, "question_id", id)
	return q, nil
}

// SetSpotlight includes or excludes a question from the curated set shown
// to the audience in spotlight mode.
func (s *QuestionStore) SetSpotlight(ctx context.Context, id string, spotlight bool) (models.Question, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return models.Question{}, err
	}
	if q.IsSpotlight == spotlight {
		return q, nil
	}
	if err := s.kv.HSet(ctx, questionKey(id), map[string]string{fieldIsSpotlight: strconv.FormatBool(spotlight)}); err != nil {
		return models.Question{}, storeErr("set spotlight", err)
	}
	q.IsSpotlight = spotlight
	return q, nil
}

// ToggleUpvote flips clientID's upvote on a question. When requestID is set,
// the outcome is recorded for RequestTTL and a retry with the same requestID
// replays it instead of flipping again. requestID is limited to the
// characters and length of a key part.
func (s *QuestionStore) ToggleUpvote(ctx context.Context, id, clientID, requestID string) (models.Question, bool, error) {
	if err := auth.ValidateClientID(clientID); err != nil {
		return models.Question{}, false, validationf("%v", err)
	}
	if requestID != "" && !validKeyPart(requestID) {
		return models.Question{}, false, validationf("idempotency key must be at most %d letters, digits, '-' or '_'", maxKeyPartLength)
	}
	if _, err := s.GetQuestion(ctx, id); err != nil {
		return models.Question{}, false, err
	}

	if requestID != "" {
		key := upvoteRequestKey(id, clientID, requestID)
		first, err := s.kv.SetNX(ctx, key, requestPending, RequestTTL)
		if err != nil {
			return models.Question{}, false, storeErr("record upvote request", err)
		}
		if !first {
			return s.replay(ctx, id, clientID, key)
		}
		upvoted, err := s.ledger.Toggle(ctx, id, clientID)
		if err != nil {
			if delErr := s.kv.Del(ctx, key); delErr != nil {
				slog.Error("failed to release upvote request", "question_id", id, "error", delErr)
			}
			return models.Question{}, false, err
		}
		if err := s.kv.Set(ctx, key, strconv.FormatBool(upvoted), RequestTTL); err != nil {
			slog.Error("failed to record upvote outcome", "question_id", id, "error", err)
		}
		return s.afterToggle(ctx, id, clientID, upvoted)
	}

	upvoted, err := s.ledger.Toggle(ctx, id, clientID)
	if err != nil {
		return models.Question{}, false, err
	}
	return s.afterToggle(ctx, id, clientID, upvoted)
}

// replay answers a duplicate request. While the first attempt is still in
// flight its outcome is unknown, so the current ledger state is reported.
func (s *QuestionStore) replay(ctx context.Context, id, clientID, key string) (models.Question, bool, error) {
	recorded, err := s.kv.Get(ctx, key)
	if err != nil && !errors.Is(err, kvstore.ErrNil) {
		return models.Question{}, false, storeErr("load upvote request", err)
	}
	q, err := s.View(ctx, id, clientID)
	if err != nil {
		return models.Question{}, false, err
	}
	if upvoted, perr := strconv.ParseBool(recorded); perr == nil {
		q.HasUpvoted = upvoted
	}
	slog.Debug("upvote request replayed", "question_id", id)
	return q, q.HasUpvoted, nil
}

func (s *QuestionStore) afterToggle(ctx context.Context, id, clientID string, upvoted bool) (models.Question, bool, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return models.Question{}, false, err
	}
	q.HasUpvoted = upvoted
	q.IsMine = q.AuthorID == clientID
	return q, upvoted, nil
}

// Delete removes a question leaf first: its upvotes, then the record. The
// session's question index is removed with the session.
func (s *QuestionStore) Delete(ctx context.Context, id string) error {
	if err := s.ledger.Clear(ctx, id); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, questionKey(id)); err != nil {
		return storeErr("delete question", err)
	}
	return nil
}

// Visible reports whether clientID may see q. The creator sees everything,
// authors see their own questions, and in spotlight mode everyone else
// sees only spotlighted ones.
func Visible(session models.Session, q models.Question, clientID string) bool {
	if auth.IsOwner(clientID, session.CreatorID) {
		return true
	}
	if clientID != "" && q.AuthorID == clientID {
		return true
	}
	if session.Mode != models.ModeSpotlight {
		return true
	}
	return q.IsSpotlight
}

// SortQuestions ranks by upvotes, most first, then newest first. The id
// breaks remaining ties so the order is total.
func SortQuestions(questions []models.Question) {
	sort.Slice(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if a.UpvoteCount != b.UpvoteCount {
			return a.UpvoteCount > b.UpvoteCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func encodeQuestion(q models.Question) map[string]string {
	fields := map[string]string{
		fieldSessionID:   q.SessionID,
		fieldContent:     q.Content,
		fieldAuthorID:    q.AuthorID,
		fieldIsAnonymous: strconv.FormatBool(q.IsAnonymous),
		fieldIsAnswered:  strconv.FormatBool(q.IsAnswered),
		fieldIsSpotlight: strconv.FormatBool(q.IsSpotlight),
		fieldCreatedAt:   q.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if q.AuthorNickname != nil {
		fields[fieldNickname] = *q.AuthorNickname
	}
	return fields
}

// decodeQuestion rejects partial records left by a flag write racing deletion.
func decodeQuestion(id string, fields map[string]string) (models.Question, bool) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil || fields[fieldSessionID] == "" {
		return models.Question{}, false
	}
	flag := func(name string) bool {
		v, _ := strconv.ParseBool(fields[name])
		return v
	}
	q := models.Question{
		ID:          id,
		SessionID:   fields[fieldSessionID],
		Content:     fields[fieldContent],
		AuthorID:    fields[fieldAuthorID],
		IsAnonymous: flag(fieldIsAnonymous),
		IsAnswered:  flag(fieldIsAnswered),
		IsSpotlight: flag(fieldIsSpotlight),
		CreatedAt:   createdAt,
	}
	if nickname, ok := fields[fieldNickname]; ok && !q.IsAnonymous {
		q.AuthorNickname = &nickname
	}
	return q, true
}
