package intent

import (
	"context"
	"errors"
	"sync"
	"time"

	"broker-backoffice/internal/models"

	"github.com/google/uuid"
)

// State is the phase of an analysis session.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateResult    State = "result"
)

var (
	ErrEmptyInput       = errors.New("nothing to analyze")
	ErrAnalysisInFlight = errors.New("analysis already in progress")
	ErrSessionClosed    = errors.New("session closed")
	ErrSessionNotFound  = errors.New("session not found")
)

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID         string             `json:"id"`
	State      State              `json:"state"`
	Input      string             `json:"input"`
	Suggestion *models.Suggestion `json:"suggestion,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// Session drives idle -> analyzing -> result for one visitor. The analyzing
// phase lasts a fixed delay; Reset and Close cancel it so a pending timer
// never writes to a session that moved on.
type Session struct {
	mu         sync.Mutex
	id         string
	classifier *Classifier
	delay      time.Duration

	state      State
	input      string
	suggestion *models.Suggestion
	updatedAt  time.Time

	timer   *time.Timer
	gen     uint64
	settled chan struct{}
	closed  bool
}

func NewSession(id string, classifier *Classifier, delay time.Duration) *Session {
	settled := make(chan struct{})
	close(settled)
	return &Session{
		id:         id,
		classifier: classifier,
		delay:      delay,
		state:      StateIdle,
		settled:    settled,
		updatedAt:  time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// Submit starts analyzing text. Blank input is refused and leaves the
// session untouched.
func (s *Session) Submit(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrSessionClosed
	case IsBlank(text):
		return ErrEmptyInput
	case s.state == StateAnalyzing:
		return ErrAnalysisInFlight
	}

	s.gen++
	gen := s.gen
	s.state = StateAnalyzing
	s.input = text
	s.suggestion = nil
	s.updatedAt = time.Now()
	s.settled = make(chan struct{})
	s.timer = time.AfterFunc(s.delay, func() { s.finish(gen) })
	return nil
}

func (s *Session) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen || s.state != StateAnalyzing {
		return
	}
	suggestion := s.classifier.Classify(s.input)
	s.suggestion = &suggestion
	s.state = StateResult
	s.updatedAt = time.Now()
	s.timer = nil
	close(s.settled)
}

// Reset returns to idle and clears input and result.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelLocked()
	s.state = StateIdle
	s.input = ""
	s.suggestion = nil
	s.updatedAt = time.Now()
}

// Close disposes the session. Pending analysis is cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelLocked()
	s.closed = true
}

func (s *Session) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	select {
	case <-s.settled:
	default:
		close(s.settled)
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{ID: s.id, State: s.state, Input: s.input, UpdatedAt: s.updatedAt}
	if s.suggestion != nil {
		cp := *s.suggestion
		snap.Suggestion = &cp
	}
	return snap
}

// Await blocks until the current analysis settles or ctx is done.
func (s *Session) Await(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	settled := s.settled
	s.mu.Unlock()

	select {
	case <-settled:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.updatedAt)
}

// Registry keeps sessions addressable by id.
type Registry struct {
	mu         sync.Mutex
	classifier *Classifier
	delay      time.Duration
	maxIdle    time.Duration
	sessions   map[string]*Session
}

func NewRegistry(classifier *Classifier, delay, maxIdle time.Duration) *Registry {
	return &Registry{
		classifier: classifier,
		delay:      delay,
		maxIdle:    maxIdle,
		sessions:   make(map[string]*Session),
	}
}

// Create opens a new idle session and evicts abandoned ones.
func (r *Registry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, s := range r.sessions {
		if r.maxIdle > 0 && s.idleSince(now) > r.maxIdle {
			s.Close()
			delete(r.sessions, id)
		}
	}

	s := NewSession(uuid.NewString(), r.classifier, r.delay)
	r.sessions[s.ID()] = s
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove closes and forgets the session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// Close disposes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
