package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/repository"
)

// NotificationDateLayout is how a notification's display date is written.
const NotificationDateLayout = "02 Jan 2006 15:04"

// Inbox stores per-user notifications. Notify is the NotificationSink the
// ledger and wallet write to; the rest backs the notifications screen.
type Inbox struct {
	state State
	clock clock.Clock
	log   *zap.Logger
}

// NewInbox wires an Inbox to the application state.
func NewInbox(state State, clk clock.Clock, log *zap.Logger) *Inbox {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inbox{state: state, clock: clk, log: log}
}

// Notify appends a notice to the user's inbox. When called inside another
// update it commits with that update. Failures are logged and dropped.
func (n *Inbox) Notify(ctx context.Context, userID, title, message string) {
	err := n.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		snap.Notifications = append(snap.Notifications, model.Notification{
			ID:      newID(),
			UserID:  userID,
			Title:   title,
			Message: message,
			Date:    n.clock.Now().Format(NotificationDateLayout),
		})
		return nil
	})
	if err != nil {
		n.log.Warn("notify failed", zap.String("user_id", userID), zap.String("title", title), zap.Error(err))
	}
}

// List returns the user's notifications, newest first.
func (n *Inbox) List(ctx context.Context, userID string) ([]model.Notification, error) {
	out := []model.Notification{}
	err := n.state.View(ctx, func(snap *repository.Snapshot) error {
		for i := len(snap.Notifications) - 1; i >= 0; i-- {
			if snap.Notifications[i].UserID == userID {
				out = append(out, snap.Notifications[i])
			}
		}
		return nil
	})
	return out, err
}

// MarkRead flags one of the user's notifications as read. Another user's
// notification is reported as not found.
func (n *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	return n.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		for i := range snap.Notifications {
			if snap.Notifications[i].ID == id && snap.Notifications[i].UserID == userID {
				snap.Notifications[i].IsRead = true
				return nil
			}
		}
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	})
}

// MarkAllRead flags every notification of the user as read.
func (n *Inbox) MarkAllRead(ctx context.Context, userID string) error {
	return n.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		for i := range snap.Notifications {
			if snap.Notifications[i].UserID == userID {
				snap.Notifications[i].IsRead = true
			}
		}
		return nil
	})
}

// UnreadCount returns how many of the user's notifications are unread.
func (n *Inbox) UnreadCount(ctx context.Context, userID string) (int, error) {
	count := 0
	err := n.state.View(ctx, func(snap *repository.Snapshot) error {
		for _, nt := range snap.Notifications {
			if nt.UserID == userID && !nt.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}
