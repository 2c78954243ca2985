package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core/user"
)

// ErrAuthenticationFailed is returned by SignIn for unknown emails and wrong passwords alike.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Authenticator checks credentials against the admin users.
type Authenticator interface {
	Authenticate(ctx context.Context, email, pwd string) (user.User, error)
	SetLastLogin(ctx context.Context, usr user.User) (user.User, error)
}

// Manager owns the lifecycle of all sessions.
type Manager struct {
	store   Store
	users   Authenticator
	ttl     time.Duration
	nowFunc func() time.Time // mockable

	writeMu sync.Mutex // serializes SignOut & Touch

	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

func NewManager(store Store, users Authenticator, ttl time.Duration) *Manager {
	return &Manager{
		store:   store,
		users:   users,
		ttl:     ttl,
		nowFunc: time.Now,
		subs:    make(map[int]func(Event)),
	}
}

// Subscribe registers fn to be called after every session change. Calling the returned func unsubscribes.
// fn runs on the goroutine that changed the session and must not block.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// SignIn checks the credentials and opens a new session.
func (m *Manager) SignIn(ctx context.Context, email, pwd string) (Session, error) {
	usr, err := m.users.Authenticate(ctx, email, pwd)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrNotFound:
			return Session{}, ErrAuthenticationFailed
		case user.ErrAccountDeactivated:
			return Session{}, user.ErrAccountDeactivated
		}
		return Session{}, errors.Wrap(err, "authenticating")
	}
	if _, err = m.users.SetLastLogin(ctx, usr); err != nil {
		return Session{}, errors.Wrap(err, "setting last login")
	}

	now := m.nowFunc().UTC()
	s := Session{
		ID:        uuid.NewString(),
		UserID:    usr.ID,
		Email:     usr.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err = m.store.CreateSession(ctx, s); err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}

	m.notify(Event{Type: SignedIn, Session: s})
	return s, nil
}

// SignOut closes the session. Subscribers are only notified once the session is gone.
func (m *Manager) SignOut(ctx context.Context, id string) error {
	m.writeMu.Lock()
	s, err := m.store.GetSession(ctx, id)
	if err != nil {
		switch errors.Cause(err) {
		case ErrNotFound:
			m.writeMu.Unlock()
			return nil
		case ErrExpired:
			s = Session{ID: id}
		default:
			m.writeMu.Unlock()
			return errors.Wrap(err, "getting session")
		}
	}
	err = m.store.DeleteSession(ctx, id)
	m.writeMu.Unlock()
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}

	m.notify(Event{Type: SignedOut, Session: s})
	return nil
}

// Current returns the live session with the given ID.
// Expired sessions are closed on the way, as if signed out.
func (m *Manager) Current(ctx context.Context, id string) (Session, error) {
	s, err := m.store.GetSession(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrExpired {
			if sErr := m.SignOut(ctx, id); sErr != nil {
				return Session{}, sErr
			}
			return Session{}, ErrExpired
		}
		return Session{}, err
	}
	if s.Expired(m.nowFunc()) {
		if err = m.SignOut(ctx, id); err != nil {
			return Session{}, err
		}
		return Session{}, ErrExpired
	}
	return s, nil
}

// Touch pushes the expiry of the live session with the given ID to a full TTL from now.
func (m *Manager) Touch(ctx context.Context, id string) (Session, error) {
	m.writeMu.Lock()
	s, err := m.store.GetSession(ctx, id)
	if err == nil && s.Expired(m.nowFunc()) {
		err = ErrExpired
	}
	if err == nil {
		s.ExpiresAt = m.nowFunc().UTC().Add(m.ttl)
		if err = m.store.CreateSession(ctx, s); err != nil {
			err = errors.Wrap(err, "extending session")
		}
	}
	m.writeMu.Unlock()

	if err != nil {
		if errors.Cause(err) == ErrExpired {
			if sErr := m.SignOut(ctx, id); sErr != nil {
				return Session{}, sErr
			}
			return Session{}, ErrExpired
		}
		return Session{}, err
	}
	return s, nil
}
