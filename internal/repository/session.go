package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campuswork/marketplace/internal/kv"
	"github.com/campuswork/marketplace/internal/model"
)

func (s *Store) sessionKey(id string) string { return s.key(keySessionPrefix + id) }

// GetSession loads the session stored under id.
func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	var sess model.Session
	b, err := s.kv.Get(ctx, s.sessionKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return sess, ErrNotFound
	}
	if err != nil {
		return sess, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal(b, &sess); err != nil {
		return sess, fmt.Errorf("%w session: %v", ErrCorrupt, err)
	}
	return sess, nil
}

// PutSession stores sess. A zero ttl keeps it until deleted.
func (s *Store) PutSession(ctx context.Context, sess model.Session, ttl time.Duration) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, s.sessionKey(sess.ID), b, ttl); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// DeleteSession removes the session. Deleting a missing session is not an
// error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, s.sessionKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
