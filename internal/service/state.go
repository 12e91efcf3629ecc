// Package service holds the marketplace's business rules: the booking
// ledger, the user directory, the notification inbox, the wallet, chat,
// the service catalog and sessions. Every mutation runs inside a single
// State.Update so that a transition and all of its side effects commit
// together.
package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/queue"
	"github.com/campuswork/marketplace/internal/repository"
)

// State is the transactional view of the application state. It is
// implemented by *repository.Store.
type State interface {
	Update(ctx context.Context, fn func(ctx context.Context, snap *repository.Snapshot) error) error
	View(ctx context.Context, fn func(snap *repository.Snapshot) error) error
	AfterCommit(ctx context.Context, f func())
}

// SessionStore persists sessions. It is implemented by *repository.Store.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (model.Session, error)
	PutSession(ctx context.Context, sess model.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
}

// UserDirectory is what the ledger and the wallet need from the user
// store.
type UserDirectory interface {
	Get(ctx context.Context, id string) (model.User, error)
	AdjustBalance(ctx context.Context, id string, delta int64) (model.User, error)
}

// NotificationSink accepts fire-and-forget notices for a user.
type NotificationSink interface {
	Notify(ctx context.Context, userID, title, message string)
}

// publishAfterCommit sends ev once the surrounding update has been
// persisted.
func publishAfterCommit(ctx context.Context, state State, pub queue.Publisher, log *zap.Logger, key string, ev interface{}) {
	if pub == nil {
		return
	}
	state.AfterCommit(ctx, func() { publish(ctx, pub, log, key, ev) })
}

// publish sends ev right away. Broker failures are logged and never reach
// the caller.
func publish(ctx context.Context, pub queue.Publisher, log *zap.Logger, key string, ev interface{}) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := pub.Publish(pctx, key, ev); err != nil {
		log.Warn("publish event failed", zap.String("event", key), zap.Error(err))
	}
}

// timeLayout stamps event payloads.
const timeLayout = time.RFC3339

func newID() string { return uuid.NewString() }

// rupiah formats an amount the way the UI shows money, e.g. "Rp 50.000".
func rupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
