// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package stars

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/askany/kvstore"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRepo    = "htuzel/ama-flalingo"
	DefaultTTL     = 6 * time.Hour
	DefaultBaseURL = "https://api.github.com"

	cacheKey = "github:stars"
	lastKey  = "github:stars:last"

	userAgent = "askany-app"
)

type Options struct {
	Repo    string
	TTL     time.Duration
	BaseURL string
	Client  *http.Client
}

// Cache is a read-through cache of a GitHub repository's star count.
// It never fails: when GitHub is unreachable it serves the last known
// count, or zero.
type Cache struct {
	kv      kvstore.Store
	repo    string
	ttl     time.Duration
	baseURL string
	client  *http.Client

	group singleflight.Group
	last  *atomic.Int64
}

func New(kv kvstore.Store, opts Options) *Cache {
	if opts.Repo == "" {
		opts.Repo = DefaultRepo
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Cache{
		kv:      kv,
		repo:    opts.Repo,
		ttl:     opts.TTL,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.Client,
		last:    atomic.NewInt64(0),
	}
}

// Stars returns the cached count, fetching it on a miss. Concurrent misses
// share one upstream request.
func (c *Cache) Stars(ctx context.Context) int64 {
	cached, err := c.kv.Get(ctx, cacheKey)
	if err == nil {
		if n, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
			c.last.Store(n)
			return n
		}
	} else if !errors.Is(err, kvstore.ErrNil) {
		slog.Warn("star cache unavailable", "error", err)
		return c.last.Load()
	}

	n, err := c.refresh(ctx)
	if err != nil {
		slog.Warn("failed to refresh star count, serving last known", "repo", c.repo, "error", err)
		return c.lastKnown(ctx)
	}
	return n
}

// Refresh fetches the count from GitHub and stores it, regardless of TTL.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

func (c *Cache) refresh(ctx context.Context) (int64, error) {
	v, err, _ := c.group.Do(c.repo, func() (any, error) {
		n, err := c.fetch(ctx)
		if err != nil {
			return int64(0), err
		}
		value := strconv.FormatInt(n, 10)
		if err := c.kv.Set(ctx, cacheKey, value, c.ttl); err != nil {
			slog.Warn("failed to cache star count", "error", err)
		}
		if err := c.kv.Set(ctx, lastKey, value, 0); err != nil {
			slog.Warn("failed to store last star count", "error", err)
		}
		c.last.Store(n)
		slog.Debug("star count refreshed", "repo", c.repo, "stars", n)
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// lastKnown prefers the persisted value so a fresh process can still serve
// the count during a GitHub outage.
func (c *Cache) lastKnown(ctx context.Context) int64 {
	v, err := c.kv.Get(ctx, lastKey)
	if err != nil {
		return c.last.Load()
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return c.last.Load()
	}
	return n
}

type repoResponse struct {
	StargazersCount int64 `json:"stargazers_count"`
}

func (c *Cache) fetch(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/repos/"+c.repo, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch repository: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("github returned %s", resp.Status)
	}
	var body repoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode repository: %w", err)
	}
	return body.StargazersCount, nil
}
