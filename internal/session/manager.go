package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")
)

// EventKind tells subscribers what happened to an identity.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is delivered to identity subscribers.
type Event struct {
	Kind     EventKind
	Identity models.Identity
}

// DemoIdentity is used for dashboard access when no provider is configured.
func DemoIdentity() models.Identity {
	return models.Identity{
		Subject: "demo",
		Email:   "demo@consegseguro.com",
		Name:    "Corretor Demo",
		Role:    models.RoleBroker,
	}
}

type Manager struct {
	mu       sync.RWMutex
	provider Provider
	rule     RoleRule
	ttl      time.Duration
	now      func() time.Time
	logger   logger.Logger

	sessions    map[string]*models.Session
	subscribers map[int]func(Event)
	nextSub     int
}

func NewManager(provider Provider, rule RoleRule, ttl time.Duration, log logger.Logger) *Manager {
	if provider == nil {
		provider = OfflineProvider{}
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{
		provider:    provider,
		rule:        rule,
		ttl:         ttl,
		now:         time.Now,
		logger:      log.WithFields(map[string]interface{}{"component": "session"}),
		sessions:    make(map[string]*models.Session),
		subscribers: make(map[int]func(Event)),
	}
}

// Offline reports whether sign-in is impossible.
func (m *Manager) Offline() bool {
	_, ok := m.provider.(OfflineProvider)
	return ok
}

// SignIn authenticates and opens a session. Failures carry the auth error
// codes; use Message for the user-facing text.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	grant, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		m.logger.Warn("sign-in failed", map[string]interface{}{"email": email, "error": err.Error()})
		return nil, err
	}

	if grant.Email == "" {
		grant.Email = email
	}
	now := m.now()
	expires := now.Add(m.ttl)
	if grant.ExpiresIn > 0 && grant.ExpiresIn < m.ttl {
		expires = now.Add(grant.ExpiresIn)
	}

	s := &models.Session{
		ID: uuid.NewString(),
		Identity: models.Identity{
			Subject:    grant.Subject,
			Email:      grant.Email,
			Name:       grant.Name,
			Role:       m.rule.RoleFor(grant.Email),
			SignedInAt: now,
		},
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		CreatedAt:    now,
		ExpiresAt:    expires,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("signed in", map[string]interface{}{"email": s.Identity.Email, "role": s.Identity.Role})
	m.publish(Event{Kind: EventSignedIn, Identity: s.Identity})
	cp := *s
	return &cp, nil
}

// Get returns a live session. Expired sessions are dropped.
func (m *Manager) Get(id string) (*models.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if s.IsExpired(m.now()) {
		delete(m.sessions, id)
		m.mu.Unlock()
		m.publish(Event{Kind: EventSignedOut, Identity: s.Identity})
		return nil, ErrSessionExpired
	}
	cp := *s
	m.mu.Unlock()
	return &cp, nil
}

// SignOut closes the session locally. Provider logout failures are logged.
func (m *Manager) SignOut(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	if err := m.provider.SignOut(ctx, s.RefreshToken); err != nil {
		m.logger.Warn("provider logout failed", map[string]interface{}{"email": s.Identity.Email, "error": err.Error()})
	}
	m.publish(Event{Kind: EventSignedOut, Identity: s.Identity})
	return nil
}

// Subscribe registers fn for identity changes and returns the cancel func.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) publish(ev Event) {
	m.mu.RLock()
	subs := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Active counts open sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
