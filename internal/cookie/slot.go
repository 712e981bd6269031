// Package cookie provides the per-request deferred cookie mechanism: a
// one-shot, lock-protected slot a handler schedules an action into, which
// the auth middleware flushes into Set-Cookie headers after the handler
// returns. This keeps handlers free of response-header writes.
package cookie

import (
	"sync"
	"time"
)

// ActionKind is the kind of deferred cookie action a handler can schedule.
type ActionKind int

const (
	// ActionNone means no cookie action was scheduled.
	ActionNone ActionKind = iota
	// ActionSet schedules setting the access/refresh cookies.
	ActionSet
	// ActionClear schedules clearing the access/refresh cookies.
	ActionClear
)

// Action is the deferred cookie mutation a handler schedules.
type Action struct {
	Kind         ActionKind
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken string
	RefreshTTL   time.Duration
}

// Slot is a one-shot optional value: at most one Action may be scheduled per
// request. Scheduling twice overwrites the prior action — later middleware
// logic always wins, mirroring "last write wins" for a single response.
type Slot struct {
	mu     sync.Mutex
	action Action
	isSet  bool
}

// New returns an empty Slot, installed into request extensions by the auth
// middleware before the handler runs.
func New() *Slot {
	return &Slot{}
}

// ScheduleSet schedules setting the access and refresh cookies.
func (s *Slot) ScheduleSet(accessToken string, accessTTL time.Duration, refreshToken string, refreshTTL time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.action = Action{
		Kind:         ActionSet,
		AccessToken:  accessToken,
		AccessTTL:    accessTTL,
		RefreshToken: refreshToken,
		RefreshTTL:   refreshTTL,
	}
	s.isSet = true
}

// ScheduleClear schedules clearing the access and refresh cookies.
func (s *Slot) ScheduleClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.action = Action{Kind: ActionClear}
	s.isSet = true
}

// Take returns the scheduled action, if any, and clears the slot so a
// double-flush is impossible.
func (s *Slot) Take() (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isSet {
		return Action{}, false
	}
	action := s.action
	s.action = Action{}
	s.isSet = false
	return action, true
}
