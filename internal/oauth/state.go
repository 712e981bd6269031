package oauth

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// stateEntry is what a CSRF token resolves to: the PKCE verifier generated
// alongside it, and the path the user should land on after login.
type stateEntry struct {
	PKCEVerifier string `json:"pkce_verifier"`
	RedirectPath string `json:"redirect_path,omitempty"`
}

const stateTTL = 10 * time.Minute

// StateStore maps an authorize-request's CSRF token to its PKCE verifier and
// optional post-login redirect path. Backed by Redis when REDIS_URL is
// configured; falls back to an in-process map otherwise (local dev, tests).
// Either persistence boundary is fine as long as entries carry a TTL and
// the CSRF/PKCE guarantees hold.
type StateStore struct {
	redis *redis.Client

	mu      sync.Mutex
	entries map[string]stateEntryWithExpiry
}

type stateEntryWithExpiry struct {
	stateEntry
	expiresAt time.Time
}

// NewStateStore builds a StateStore. redisURL may be empty, selecting the
// in-process fallback.
func NewStateStore(redisURL string) (*StateStore, error) {
	s := &StateStore{entries: map[string]stateEntryWithExpiry{}}
	if redisURL == "" {
		return s, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	s.redis = redis.NewClient(opt)
	return s, nil
}

// Put records csrf → (verifier, redirectPath) with a 10-minute TTL.
func (s *StateStore) Put(ctx context.Context, csrf, verifier, redirectPath string) error {
	entry := stateEntry{PKCEVerifier: verifier, RedirectPath: redirectPath}
	if s.redis != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return s.redis.Set(ctx, stateKey(csrf), data, stateTTL).Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[csrf] = stateEntryWithExpiry{stateEntry: entry, expiresAt: time.Now().Add(stateTTL)}
	return nil
}

// Take fetches and deletes csrf's entry in one step — state tokens are
// single-use, preventing replay of a captured callback URL. ok is false when
// csrf is unknown or expired.
func (s *StateStore) Take(ctx context.Context, csrf string) (verifier, redirectPath string, ok bool) {
	if s.redis != nil {
		data, err := s.redis.Get(ctx, stateKey(csrf)).Bytes()
		if err != nil {
			return "", "", false
		}
		_ = s.redis.Del(ctx, stateKey(csrf)).Err()
		var entry stateEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return "", "", false
		}
		return entry.PKCEVerifier, entry.RedirectPath, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, found := s.entries[csrf]
	if !found {
		return "", "", false
	}
	delete(s.entries, csrf)
	if time.Now().After(e.expiresAt) {
		return "", "", false
	}
	return e.PKCEVerifier, e.RedirectPath, true
}

func stateKey(csrf string) string {
	return "oauth:state:" + csrf
}
