package echoapi

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/session"
)

type rosterEntry struct {
	roster    *roster.Roster
	expiresAt time.Time
}

// rosterRegistry holds one Roster per live session. Rosters are closed when their session ends.
type rosterRegistry struct {
	svc      roster.Service
	validate *validator.Validate
	logger   core.Logger
	nowFunc  func() time.Time // mockable

	mu      sync.Mutex
	closed  bool
	rosters map[string]rosterEntry // {sessionID: entry}
}

func newRosterRegistry(svc roster.Service, validate *validator.Validate, logger core.Logger) *rosterRegistry {
	return &rosterRegistry{
		svc:      svc,
		validate: validate,
		logger:   logger,
		nowFunc:  time.Now,
		rosters:  make(map[string]rosterEntry),
	}
}

// get returns the Roster of the session, creating it on first use.
func (reg *rosterRegistry) get(sess session.Session) *roster.Roster {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if entry, ok := reg.rosters[sess.ID]; ok {
		if sess.ExpiresAt.After(entry.expiresAt) { // extended by a token refresh
			entry.expiresAt = sess.ExpiresAt
			reg.rosters[sess.ID] = entry
		}
		return entry.roster
	}

	r := roster.New(reg.svc, reg.validate, reg.logger)
	if reg.closed {
		r.Close()
		return r
	}
	reg.pruneLocked()
	reg.rosters[sess.ID] = rosterEntry{roster: r, expiresAt: sess.ExpiresAt}
	return r
}

// pruneLocked drops the rosters of sessions that expired without being signed out.
func (reg *rosterRegistry) pruneLocked() {
	now := reg.nowFunc()
	for id, entry := range reg.rosters {
		if !now.Before(entry.expiresAt) {
			entry.roster.Close()
			delete(reg.rosters, id)
		}
	}
}

func (reg *rosterRegistry) drop(sessionID string) {
	reg.mu.Lock()
	entry, ok := reg.rosters[sessionID]
	delete(reg.rosters, sessionID)
	reg.mu.Unlock()

	if ok {
		entry.roster.Close()
	}
}

func (reg *rosterRegistry) len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rosters)
}

// onSessionEvent is subscribed to the session manager.
func (reg *rosterRegistry) onSessionEvent(ev session.Event) {
	if ev.Type == session.SignedOut {
		reg.drop(ev.Session.ID)
	}
}

func (reg *rosterRegistry) closeAll() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.closed = true
	for id, entry := range reg.rosters {
		entry.roster.Close()
		delete(reg.rosters, id)
	}
}
