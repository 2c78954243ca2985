package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/roster/core/session"
)

type sessionStore struct {
	db *sessionTable
}

var _ session.Store = (*sessionStore)(nil)

func NewSessionStore(db *DB) session.Store {
	return &sessionStore{db: db.sessions}
}

func (store *sessionStore) CreateSession(_ context.Context, s session.Session) error {
	store.db.Lock()
	defer store.db.Unlock()
	store.db.table[s.ID] = s
	return nil
}

func (store *sessionStore) GetSession(_ context.Context, id string) (session.Session, error) {
	store.db.RLock()
	s, ok := store.db.table[id]
	store.db.RUnlock()

	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if s.Expired(time.Now()) {
		return session.Session{}, session.ErrExpired
	}
	return s, nil
}

func (store *sessionStore) DeleteSession(_ context.Context, id string) error {
	store.db.Lock()
	defer store.db.Unlock()
	delete(store.db.table, id)
	return nil
}
