// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/askany/models"
	"github.com/danielhkuo/askany/testutil"
)

const (
	hostID  = "host-client"
	guestID = "guest-client"
)

func TestCreateSession(t *testing.T) {
	svc := testutil.NewServices(t)
	handler := NewSessionHandler(svc.Sessions, svc.Questions)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, session models.Session)
	}{
		{
			name:           "valid session creation",
			requestBody:    models.CreateSessionRequest{Title: "Friday AMA", ClientID: hostID},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, session models.Session) {
				if session.Slug == "" {
					t.Error("Expected non-empty slug")
				}
				if session.Mode != models.ModeNormal {
					t.Errorf("Expected mode 'normal', got '%s'", session.Mode)
				}
				if session.ParticipantCount != 0 {
					t.Errorf("Expected 0 participants, got %d", session.ParticipantCount)
				}
			},
		},
		{
			name:           "empty title is allowed",
			requestBody:    models.CreateSessionRequest{ClientID: hostID},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing client ID",
			requestBody:    models.CreateSessionRequest{Title: "Friday AMA"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "title too long",
			requestBody:    models.CreateSessionRequest{Title: strings.Repeat("x", 201), ClientID: hostID},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, _ = json.Marshal(tt.requestBody)
			}

			req := httptest.NewRequest("POST", "/sessions", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.CreateSession(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.checkResponse != nil && w.Code == http.StatusCreated {
				var session models.Session
				testutil.AssertJSON(t, w, &session)
				tt.checkResponse(t, session)
			}
		})
	}
}

func TestCreateSession_HidesCreatorID(t *testing.T) {
	svc := testutil.NewServices(t)
	handler := NewSessionHandler(svc.Sessions, svc.Questions)

	req := testutil.MakeRequest("POST", "/sessions", models.CreateSessionRequest{Title: "AMA", ClientID: hostID}, nil)
	w := httptest.NewRecorder()
	handler.CreateSession(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)
	if strings.Contains(w.Body.String(), hostID) {
		t.Errorf("Creator ID leaked in response: %s", w.Body.String())
	}
}

func TestGetSession(t *testing.T) {
	svc := testutil.NewServices(t)
	handler := NewSessionHandler(svc.Sessions, svc.Questions)

	session := testutil.CreateTestSession(t, svc, hostID)
	testutil.CreateTestQuestion(t, svc, session.Slug, guestID, "What's next?")

	t.Run("host sees ownership", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sessions/"+session.Slug+"?clientId="+hostID, nil)
		req.SetPathValue("slug", session.Slug)
		w := httptest.NewRecorder()

		handler.GetSession(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.GetSessionResponse
		testutil.AssertJSON(t, w, &resp)
		if !resp.IsOwner {
			t.Error("Expected isOwner true for the creator")
		}
		if len(resp.Questions) != 1 {
			t.Errorf("Expected 1 question, got %d", len(resp.Questions))
		}
		if resp.Session.ParticipantCount != 1 {
			t.Errorf("Expected 1 participant, got %d", resp.Session.ParticipantCount)
		}
	})

	t.Run("guest joins once", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest("GET", "/sessions/"+session.Slug+"?clientId="+guestID, nil)
			req.SetPathValue("slug", session.Slug)
			w := httptest.NewRecorder()
			handler.GetSession(w, req)
			testutil.AssertStatus(t, w, http.StatusOK)

			var resp models.GetSessionResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.IsOwner {
				t.Error("Guest must not be reported as owner")
			}
			if resp.Session.ParticipantCount != 2 {
				t.Errorf("Visit %d: expected 2 participants, got %d", i+1, resp.Session.ParticipantCount)
			}
			if len(resp.Questions) != 1 || !resp.Questions[0].IsMine {
				t.Error("Expected the guest's own question marked isMine")
			}
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name           string
			slug           string
			query          string
			expectedStatus int
		}{
			{"missing client ID", session.Slug, "", http.StatusBadRequest},
			{"unknown session", "doesnotexist", "?clientId=" + guestID, http.StatusNotFound},
			{"malformed slug", "bad:slug", "?clientId=" + guestID, http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest("GET", "/sessions/x"+tt.query, nil)
				req.SetPathValue("slug", tt.slug)
				w := httptest.NewRecorder()
				handler.GetSession(w, req)
				testutil.AssertStatus(t, w, tt.expectedStatus)
			})
		}
	})
}

func TestSetMode(t *testing.T) {
	svc := testutil.NewServices(t)
	handler := NewSessionHandler(svc.Sessions, svc.Questions)
	session := testutil.CreateTestSession(t, svc, hostID)

	tests := []struct {
		name           string
		slug           string
		req            models.SetModeRequest
		expectedStatus int
	}{
		{"creator enables spotlight", session.Slug, models.SetModeRequest{Mode: models.ModeSpotlight, ClientID: hostID}, http.StatusOK},
		{"guest is forbidden", session.Slug, models.SetModeRequest{Mode: models.ModeNormal, ClientID: guestID}, http.StatusForbidden},
		{"missing client ID", session.Slug, models.SetModeRequest{Mode: models.ModeNormal}, http.StatusBadRequest},
		{"unknown mode", session.Slug, models.SetModeRequest{Mode: "party", ClientID: hostID}, http.StatusBadRequest},
		{"unknown session", "nope", models.SetModeRequest{Mode: models.ModeNormal, ClientID: hostID}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("PATCH", "/sessions/"+tt.slug+"/mode", tt.req, nil)
			req.SetPathValue("slug", tt.slug)
			w := httptest.NewRecorder()

			handler.SetMode(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	got, err := svc.Sessions.Lookup(context.Background(), session.Slug)
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != models.ModeSpotlight {
		t.Errorf("Forbidden request must not change the mode, got '%s'", got.Mode)
	}
}

func TestListQuestions_Spotlight(t *testing.T) {
	svc := testutil.NewServices(t)
	handler := NewSessionHandler(svc.Sessions, svc.Questions)
	ctx := context.Background()

	session := testutil.CreateTestSession(t, svc, hostID)
	featured := testutil.CreateTestQuestion(t, svc, session.Slug, "author-a", "Featured")
	testutil.CreateTestQuestion(t, svc, session.Slug, "author-b", "Hidden")

	if _, err := svc.Questions.SetSpotlight(ctx, featured.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Sessions.SetMode(ctx, session.Slug, models.ModeSpotlight); err != nil {
		t.Fatal(err)
	}

	list := func(clientID string) []models.Question {
		req := httptest.NewRequest("GET", "/sessions/"+session.Slug+"/questions?clientId="+clientID, nil)
		req.SetPathValue("slug", session.Slug)
		w := httptest.NewRecorder()
		handler.ListQuestions(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var qs []models.Question
		testutil.AssertJSON(t, w, &qs)
		return qs
	}

	if got := list(guestID); len(got) != 1 || got[0].ID != featured.ID {
		t.Errorf("Audience should only see the spotlighted question, got %d", len(got))
	}
	if got := list("author-b"); len(got) != 2 {
		t.Errorf("Authors should also see their own question, got %d", len(got))
	}
	if got := list(hostID); len(got) != 2 {
		t.Errorf("Creator should see everything, got %d", len(got))
	}
}
