package roster

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrInFlight is returned when the same operation on the same student is still running.
	ErrInFlight = errors.New("operation already in progress")
	// ErrClosed is returned by a Roster that was closed.
	ErrClosed = errors.New("roster closed")
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type taskKey struct {
	op Op
	id string
}

// taskGroup runs at most one task per key and cancels all running tasks on close.
type taskGroup struct {
	mu      sync.Mutex
	closed  bool
	running map[taskKey]context.CancelFunc
}

func newTaskGroup() *taskGroup {
	return &taskGroup{running: make(map[taskKey]context.CancelFunc)}
}

func (g *taskGroup) run(ctx context.Context, key taskKey, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if _, busy := g.running[key]; busy {
		g.mu.Unlock()
		return ErrInFlight
	}
	ctx, cancel := context.WithCancel(ctx)
	g.running[key] = cancel
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.running, key)
		g.mu.Unlock()
		cancel()
	}()
	return fn(ctx)
}

func (g *taskGroup) inFlight(key taskKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[key]
	return busy
}

func (g *taskGroup) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for _, cancel := range g.running {
		cancel()
	}
}
