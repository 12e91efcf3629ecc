package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/kv"
)

// Store loads, mutates and persists the application state. Writers are
// serialised by a mutex; every Update sees the state committed by the one
// before it. Reads through View do not take the lock.
type Store struct {
	kv     kv.Store
	prefix string
	log    *zap.Logger
	mu     sync.Mutex
}

// NewStore builds a Store over backend. Keys are namespaced by prefix.
func NewStore(backend kv.Store, prefix string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: backend, prefix: prefix, log: log}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

type txKey struct{}

type txState struct {
	snap  *Snapshot
	after []func()
}

// Update runs fn against a freshly loaded snapshot and writes back every
// collection fn changed, in one atomic backend call. If fn returns an
// error nothing is written.
//
// A call made with a context that is already inside an Update reuses the
// outer snapshot, so nested operations commit together with their caller.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, snap *Snapshot) error) error {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx, tx.snap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, before, err := s.load(ctx)
	if err != nil {
		return err
	}
	tx := &txState{snap: snap}
	if err := fn(context.WithValue(ctx, txKey{}, tx), snap); err != nil {
		return err
	}

	after, err := encode(snap)
	if err != nil {
		return err
	}
	changed := make(map[string][]byte)
	for name, b := range after {
		if !bytes.Equal(before[name], b) {
			changed[s.key(name)] = b
		}
	}
	if len(changed) > 0 {
		if err := s.kv.SetMany(ctx, changed); err != nil {
			return fmt.Errorf("persist state: %w", err)
		}
		s.log.Debug("state persisted", zap.Int("collections", len(changed)))
	}
	for i := 0; i < len(tx.after); i++ {
		tx.after[i]()
	}
	return nil
}

// AfterCommit defers f until the enclosing Update has been persisted. It
// is dropped if the Update fails. Outside an Update f runs immediately.
func (s *Store) AfterCommit(ctx context.Context, f func()) {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		tx.after = append(tx.after, f)
		return
	}
	f()
}

// View runs fn against the last committed state. Inside an Update it sees
// the pending snapshot instead. fn must not modify the snapshot.
func (s *Store) View(ctx context.Context, fn func(snap *Snapshot) error) error {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(tx.snap)
	}
	snap, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(snap)
}

func (s *Store) load(ctx context.Context) (*Snapshot, map[string][]byte, error) {
	snap := &Snapshot{}
	cols := snap.collections()
	keys := make([]string, 0, len(cols))
	for _, c := range cols {
		keys = append(keys, s.key(c.name))
	}
	raw, err := s.kv.MGet(ctx, keys...)
	if err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	for _, c := range cols {
		b, ok := raw[s.key(c.name)]
		if !ok || len(b) == 0 {
			continue
		}
		if err := json.Unmarshal(b, c.ptr); err != nil {
			return nil, nil, fmt.Errorf("%w %s: %v", ErrCorrupt, c.name, err)
		}
	}
	// Diff against a re-encoding so that formatting differences in stored
	// data do not cause spurious writes.
	before, err := encode(snap)
	if err != nil {
		return nil, nil, err
	}
	return snap, before, nil
}

func encode(snap *Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, 7)
	for _, c := range snap.collections() {
		b, err := json.Marshal(c.ptr)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		out[c.name] = b
	}
	return out, nil
}
