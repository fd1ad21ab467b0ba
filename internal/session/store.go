// Package session keeps per-visitor form state between requests.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"positionsizer/internal/logger"
	"positionsizer/internal/sizing"
)

var ErrNotFound = errors.New("session not found")

const DefaultTTL = 2 * time.Hour

// Form is what the user last submitted: free text for the two numeric
// fields, selections for the two choice fields.
type Form struct {
	BalanceText  string  `json:"balance"`
	StopLossText string  `json:"stop_loss"`
	RiskPercent  float64 `json:"risk_pct"`
	Commission   string  `json:"commission"`
}

type State struct {
	ID        string        `json:"id"`
	Form      Form          `json:"form"`
	Result    sizing.Result `json:"result"`
	HasResult bool          `json:"has_result"`
	ErrorText string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Runs      int           `json:"runs"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	SeenAt    time.Time     `json:"-"`
}

// Display returns the shown figures; a state without a result shows zeros.
func (s State) Display() sizing.Display {
	return s.Result.Display()
}

// Record stores the submitted form and the outcome. On error the previous
// result stays in place.
func (s *State) Record(form Form, res sizing.Result, err error, at time.Time) {
	s.Form = form
	s.Runs++
	s.UpdatedAt = at
	s.SeenAt = at
	if err != nil {
		s.ErrorText = err.Error()
		s.ErrorKind = sizing.Kind(err)
		return
	}
	s.Result = res
	s.HasResult = true
	s.ErrorText = ""
	s.ErrorKind = ""
}

type Store struct {
	mu   sync.RWMutex
	data map[string]*State
	ttl  time.Duration
	now  func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{data: make(map[string]*State), ttl: ttl, now: time.Now}
}

// Create opens a session preloaded with the given selections.
func (s *Store) Create(defaults Form) State {
	now := s.now()
	st := &State{
		ID:        uuid.NewString(),
		Form:      defaults,
		CreatedAt: now,
		UpdatedAt: now,
		SeenAt:    now,
	}
	s.mu.Lock()
	s.data[st.ID] = st
	s.mu.Unlock()
	return *st
}

// Get returns a copy of the session and marks it as seen.
func (s *Store) Get(id string) (State, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return State{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[id]
	if !ok || s.expired(st, s.now()) {
		return State{}, false
	}
	st.SeenAt = s.now()
	return *st, true
}

// Update applies fn to the stored session under the lock.
func (s *Store) Update(id string, fn func(*State)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[strings.TrimSpace(id)]
	if !ok || s.expired(st, s.now()) {
		return State{}, ErrNotFound
	}
	fn(st)
	st.SeenAt = s.now()
	return *st, nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, st := range s.data {
		if s.expired(st, now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// IDs lists live session ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for id := range s.data {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RunSweeper sweeps on every tick until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				logger.Debugf("[session] swept %d idle sessions, %d left", n, s.Len())
			}
		}
	}
}

func (s *Store) expired(st *State, now time.Time) bool {
	return now.Sub(st.SeenAt) > s.ttl
}
