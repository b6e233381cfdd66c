// Package session holds the logged-in state explicitly instead of in a global.
package session

import (
	"context"
	"errors"
	"io"
	"sync"

	userdom "sneakhead/internal/domain/user"
)

// Manager owns at most one active session and the resources opened under it.
type Manager struct {
	mu      sync.Mutex
	current *userdom.Session
	tracked []io.Closer
}

func NewManager() *Manager { return &Manager{} }

var _ userdom.SessionManager = (*Manager)(nil)

// Begin replaces any active session. Resources tracked on the previous one are closed.
func (m *Manager) Begin(s userdom.Session) {
	m.mu.Lock()
	old := m.tracked
	m.tracked = nil
	m.current = &s
	m.mu.Unlock()
	_ = closeAll(old)
}

// End clears the session and closes every tracked resource.
func (m *Manager) End() error {
	m.mu.Lock()
	old := m.tracked
	m.tracked = nil
	m.current = nil
	m.mu.Unlock()
	return closeAll(old)
}

func (m *Manager) Current() (userdom.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return userdom.Session{}, false
	}
	return *m.current, true
}

// UserID returns the current user's id or "".
func (m *Manager) UserID() string {
	s, ok := m.Current()
	if !ok {
		return ""
	}
	return s.UserID
}

// Track ties c to the active session; it is closed on End or the next Begin.
// Without an active session c is closed immediately and ErrNoSession returned.
func (m *Manager) Track(c io.Closer) error {
	if c == nil {
		return nil
	}
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		_ = c.Close()
		return userdom.ErrNoSession
	}
	m.tracked = append(m.tracked, c)
	m.mu.Unlock()
	return nil
}

func closeAll(cs []io.Closer) error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type ctxKey struct{}

// WithSession stores s in ctx (request-scoped sessions on the HTTP surface).
func WithSession(ctx context.Context, s userdom.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (userdom.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(userdom.Session)
	return s, ok && s.UserID != ""
}
