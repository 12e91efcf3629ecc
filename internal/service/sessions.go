package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/repository"
)

// Sessions tracks signed-in users and the role lens each session views the
// marketplace through.
type Sessions struct {
	store SessionStore
	users UserDirectory
	clock clock.Clock
	ttl   time.Duration
	log   *zap.Logger
}

// NewSessions wires Sessions. Stored sessions expire after ttl; zero keeps
// them until logout.
func NewSessions(store SessionStore, users UserDirectory, clk clock.Clock, ttl time.Duration, log *zap.Logger) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{store: store, users: users, clock: clk, ttl: ttl, log: log}
}

// Start opens a session for u. BOTH users start on the client lens.
func (s *Sessions) Start(ctx context.Context, u model.User) (model.Session, error) {
	sess := model.Session{
		ID:         newID(),
		User:       u,
		ActiveRole: model.DefaultActiveRole(u.Role),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.PutSession(ctx, sess, s.ttl); err != nil {
		return model.Session{}, err
	}
	s.log.Info("session started", zap.String("user_id", u.ID), zap.String("sid", sess.ID))
	return sess, nil
}

// Get loads session id.
func (s *Sessions) Get(ctx context.Context, id string) (model.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, ErrNoSession
	}
	return sess, err
}

// Refresh re-reads the session's user so role, profile and balance
// changes show up. When the stored role changed the lens is reset.
func (s *Sessions) Refresh(ctx context.Context, id string) (model.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	u, err := s.users.Get(ctx, sess.User.ID)
	if errors.Is(err, ErrNotFound) {
		_ = s.store.DeleteSession(ctx, id)
		return model.Session{}, ErrNoSession
	}
	if err != nil {
		return model.Session{}, err
	}
	if u.Role != sess.User.Role {
		sess.ActiveRole = model.DefaultActiveRole(u.Role)
	}
	sess.User = u
	if err := s.store.PutSession(ctx, sess, s.remaining(sess)); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// SwitchRole flips a BOTH user's lens between CLIENT and FREELANCER.
func (s *Sessions) SwitchRole(ctx context.Context, id string) (model.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if sess.User.Role != model.RoleBoth {
		return model.Session{}, fmt.Errorf("role %s has a single lens: %w", sess.User.Role, ErrUnauthorized)
	}
	if sess.ActiveRole == model.RoleClient {
		sess.ActiveRole = model.RoleFreelancer
	} else {
		sess.ActiveRole = model.RoleClient
	}
	if err := s.store.PutSession(ctx, sess, s.remaining(sess)); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// End signs the session out.
func (s *Sessions) End(ctx context.Context, id string) error {
	return s.store.DeleteSession(ctx, id)
}

// remaining keeps a rewritten session on its original expiry.
func (s *Sessions) remaining(sess model.Session) time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	left := sess.CreatedAt.Add(s.ttl).Sub(s.clock.Now())
	if left < time.Second {
		left = time.Second
	}
	return left
}
