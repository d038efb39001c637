package store

import (
	"context"
	"sync"

	"github.com/carbonlog/carbonlog/internal/identity"
	"github.com/carbonlog/carbonlog/internal/record"
)

// Locked serialises writes per partition token around an inner Log.
// Reads go straight through.
type Locked struct {
	inner Log

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocked wraps inner.
func NewLocked(inner Log) *Locked {
	return &Locked{inner: inner, locks: make(map[string]*sync.Mutex)}
}

func (l *Locked) CreateLog(ctx context.Context, id string) error {
	unlock := l.lock(id)
	defer unlock()
	return l.inner.CreateLog(ctx, id)
}

func (l *Locked) Append(ctx context.Context, id string, raw []byte) error {
	unlock := l.lock(id)
	defer unlock()
	return l.inner.Append(ctx, id, raw)
}

func (l *Locked) ReadAll(ctx context.Context, id string) ([]record.Record, error) {
	return l.inner.ReadAll(ctx, id)
}

// lock keys on the token so identities sharing a partition share a mutex.
func (l *Locked) lock(id string) func() {
	token := identity.Token(id)

	l.mu.Lock()
	m, ok := l.locks[token]
	if !ok {
		m = &sync.Mutex{}
		l.locks[token] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
