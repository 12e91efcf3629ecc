package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/queue"
	"github.com/campuswork/marketplace/internal/repository"
)

// RefundPolicy decides how much of an overdue booking's price goes back to
// the client.
type RefundPolicy func(b model.Booking, now time.Time) int64

// FullRefund returns the whole price, whatever state the work is in.
func FullRefund(b model.Booking, _ time.Time) int64 { return b.Price }

// party names the side of a booking an action belongs to.
type party int

const (
	partyClient party = iota
	partyFreelancer
)

func (p party) owns(b *model.Booking, actorID string) bool {
	if p == partyFreelancer {
		return b.FreelancerID == actorID
	}
	return b.ClientID == actorID
}

// transition is one edge of the booking state machine.
type transition struct {
	event string
	actor party
	from  []model.BookingStatus
	to    model.BookingStatus
}

func (t transition) allowedFrom(s model.BookingStatus) bool {
	for _, f := range t.from {
		if f == s {
			return true
		}
	}
	return false
}

var (
	confirmEdge  = transition{queue.RKBookingConfirmed, partyFreelancer, []model.BookingStatus{model.BookingPending}, model.BookingConfirmed}
	rejectEdge   = transition{queue.RKBookingRejected, partyFreelancer, []model.BookingStatus{model.BookingPending}, model.BookingCancelled}
	cancelEdge   = transition{queue.RKBookingCancelled, partyClient, []model.BookingStatus{model.BookingPending}, model.BookingCancelled}
	completeEdge = transition{queue.RKBookingCompleted, partyFreelancer, []model.BookingStatus{model.BookingConfirmed}, model.BookingCompleted}
	refundEdge   = transition{queue.RKBookingRefunded, partyClient, []model.BookingStatus{model.BookingPending, model.BookingConfirmed}, model.BookingCancelled}
)

// Ledger owns the bookings collection and enforces the booking state
// machine:
//
//	PENDING   -> CONFIRMED (confirm), CANCELLED (reject, cancel, refund)
//	CONFIRMED -> COMPLETED (complete), CANCELLED (refund)
//
// COMPLETED and CANCELLED are terminal. A refused action leaves the
// ledger untouched.
type Ledger struct {
	state  State
	users  UserDirectory
	notify NotificationSink
	clock  clock.Clock
	events queue.Publisher
	refund RefundPolicy
	log    *zap.Logger
}

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithRefundPolicy replaces FullRefund.
func WithRefundPolicy(p RefundPolicy) LedgerOption {
	return func(l *Ledger) { l.refund = p }
}

// NewLedger wires a Ledger. events may be nil.
func NewLedger(state State, users UserDirectory, notify NotificationSink, clk clock.Clock, events queue.Publisher, log *zap.Logger, opts ...LedgerOption) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{state: state, users: users, notify: notify, clock: clk, events: events, refund: FullRefund, log: log}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Now is the ledger's notion of the current time.
func (l *Ledger) Now() time.Time { return l.clock.Now() }

// Create books serviceID for clientID, due on deadline (YYYY-MM-DD). The
// service title and both names are copied onto the booking.
func (l *Ledger) Create(ctx context.Context, clientID, serviceID, deadline string) (model.Booking, error) {
	deadline = strings.TrimSpace(deadline)
	due, err := time.ParseInLocation(model.DateLayout, deadline, time.UTC)
	if err != nil {
		return model.Booking{}, invalid("deadline", "must be a date in YYYY-MM-DD format")
	}
	// The deadline is 00:00 UTC of its day, so today is already overdue.
	now := l.clock.Now()
	if !due.After(now) {
		return model.Booking{}, invalid("deadline", "must be tomorrow or later")
	}

	var b model.Booking
	err = l.state.Update(ctx, func(ctx context.Context, snap *repository.Snapshot) error {
		client := snap.User(clientID)
		if client == nil {
			return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
		}
		if !client.Role.CanHire() {
			return fmt.Errorf("role %s cannot book: %w", client.Role, ErrUnauthorized)
		}
		svc := snap.Service(serviceID)
		if svc == nil {
			return fmt.Errorf("service %s: %w", serviceID, ErrNotFound)
		}
		freelancer := snap.User(svc.FreelancerID)
		if freelancer == nil {
			return fmt.Errorf("freelancer %s: %w", svc.FreelancerID, ErrNotFound)
		}
		if freelancer.ID == client.ID {
			return invalid("serviceId", "cannot book your own service")
		}
		if svc.Price <= 0 {
			return invalid("serviceId", "service has no valid price")
		}

		b = model.Booking{
			ID:             newID(),
			ServiceID:      svc.ID,
			ServiceTitle:   svc.Title,
			ClientID:       client.ID,
			ClientName:     client.Name,
			FreelancerID:   freelancer.ID,
			FreelancerName: freelancer.Name,
			Date:           now.Format(model.DateLayout),
			Deadline:       due.Format(model.DateLayout),
			Price:          svc.Price,
			Status:         model.BookingPending,
		}
		snap.Bookings = append(snap.Bookings, b)

		l.notify.Notify(ctx, b.FreelancerID, "New Booking Request",
			fmt.Sprintf("%s booked %q, due %s.", b.ClientName, b.ServiceTitle, b.Deadline))
		l.emit(ctx, queue.RKBookingCreated, b, clientID, nil)
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	l.log.Info("booking created", zap.String("booking_id", b.ID), zap.String("client_id", clientID), zap.String("service_id", serviceID))
	return b, nil
}

// Confirm accepts a pending booking. Only its freelancer may confirm.
func (l *Ledger) Confirm(ctx context.Context, actorID, bookingID string) (model.Booking, error) {
	return l.apply(ctx, actorID, bookingID, confirmEdge, func(ctx context.Context, _ *repository.Snapshot, b *model.Booking) error {
		l.notify.Notify(ctx, b.ClientID, "Booking Confirmed",
			fmt.Sprintf("%s accepted your booking for %q.", b.FreelancerName, b.ServiceTitle))
		return nil
	})
}

// Reject declines a pending booking. Only its freelancer may reject.
func (l *Ledger) Reject(ctx context.Context, actorID, bookingID string) (model.Booking, error) {
	return l.apply(ctx, actorID, bookingID, rejectEdge, func(ctx context.Context, _ *repository.Snapshot, b *model.Booking) error {
		l.notify.Notify(ctx, b.ClientID, "Booking Rejected",
			fmt.Sprintf("%s declined your booking for %q.", b.FreelancerName, b.ServiceTitle))
		return nil
	})
}

// CancelByClient withdraws a pending booking. Only its client may cancel.
func (l *Ledger) CancelByClient(ctx context.Context, actorID, bookingID string) (model.Booking, error) {
	return l.apply(ctx, actorID, bookingID, cancelEdge, func(ctx context.Context, _ *repository.Snapshot, b *model.Booking) error {
		l.notify.Notify(ctx, b.FreelancerID, "Booking Cancelled",
			fmt.Sprintf("%s cancelled the booking for %q.", b.ClientName, b.ServiceTitle))
		return nil
	})
}

// Complete marks confirmed work as delivered. Only its freelancer may
// complete it. The client is invited to leave a review.
func (l *Ledger) Complete(ctx context.Context, actorID, bookingID string) (model.Booking, error) {
	return l.apply(ctx, actorID, bookingID, completeEdge, func(ctx context.Context, _ *repository.Snapshot, b *model.Booking) error {
		l.notify.Notify(ctx, b.ClientID, "Booking Completed",
			fmt.Sprintf("%q is done. Leave a review for %s.", b.ServiceTitle, b.FreelancerName))
		return nil
	})
}

// Refund cancels an overdue booking and credits the client. The booking
// must be pending or confirmed and its deadline must have passed.
func (l *Ledger) Refund(ctx context.Context, actorID, bookingID string) (model.Booking, error) {
	var amount int64
	b, err := l.apply(ctx, actorID, bookingID, refundEdge, func(ctx context.Context, snap *repository.Snapshot, b *model.Booking) error {
		now := l.clock.Now()
		if !b.Overdue(now) {
			return fmt.Errorf("booking %s is not past its deadline %s: %w", b.ID, b.Deadline, ErrNotEligible)
		}
		amount = l.refund(*b, now)
		if amount < 0 || amount > b.Price {
			return fmt.Errorf("refund policy returned %d for price %d", amount, b.Price)
		}
		if amount > 0 {
			if _, err := l.users.AdjustBalance(ctx, b.ClientID, amount); err != nil {
				return err
			}
			recordTransaction(snap, l.clock, b.ClientID, ActionRefund, b.ServiceTitle, amount)
		}
		l.notify.Notify(ctx, b.ClientID, "Refund Processed",
			fmt.Sprintf("%s for %q has been returned to your balance.", rupiah(amount), b.ServiceTitle))
		return nil
	}, func(ev *queue.BookingEvent) { ev.Refunded = amount })
	if err != nil {
		return model.Booking{}, err
	}
	l.log.Info("booking refunded", zap.String("booking_id", b.ID), zap.Int64("amount", amount))
	return b, nil
}

// apply runs one transition. Checks happen in a fixed order: a missing
// booking, then ownership, then the current status, then effect. effect
// sees the booking in its current status and may refuse the transition by
// returning an error, which discards the whole update.
func (l *Ledger) apply(ctx context.Context, actorID, bookingID string, t transition,
	effect func(ctx context.Context, snap *repository.Snapshot, b *model.Booking) error,
	decorate ...func(*queue.BookingEvent)) (model.Booking, error) {

	var out model.Booking
	err := l.state.Update(ctx, func(ctx context.Context, snap *repository.Snapshot) error {
		b := snap.Booking(bookingID)
		if b == nil {
			return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		if !t.actor.owns(b, actorID) {
			return fmt.Errorf("booking %s: %w", bookingID, ErrUnauthorized)
		}
		if !t.allowedFrom(b.Status) {
			return fmt.Errorf("booking %s is %s: %w", bookingID, b.Status, ErrInvalidTransition)
		}
		next := *b
		if effect != nil {
			if err := effect(ctx, snap, &next); err != nil {
				return err
			}
		}
		next.Status = t.to
		*b = next
		out = next
		var d func(*queue.BookingEvent)
		if len(decorate) > 0 {
			d = decorate[0]
		}
		l.emit(ctx, t.event, next, actorID, d)
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	l.log.Debug("booking transition", zap.String("booking_id", bookingID), zap.String("event", t.event), zap.String("status", string(out.Status)))
	return out, nil
}

// emit publishes a booking event once the update commits. decorate runs
// at publish time so it can see values settled later in the update.
func (l *Ledger) emit(ctx context.Context, key string, b model.Booking, actorID string, decorate func(*queue.BookingEvent)) {
	if l.events == nil {
		return
	}
	at := l.clock.Now().Format(timeLayout)
	l.state.AfterCommit(ctx, func() {
		ev := queue.BookingEvent{
			BookingID:    b.ID,
			ServiceID:    b.ServiceID,
			ServiceTitle: b.ServiceTitle,
			ClientID:     b.ClientID,
			FreelancerID: b.FreelancerID,
			ActorID:      actorID,
			Status:       string(b.Status),
			Price:        b.Price,
			OccurredAt:   at,
		}
		if decorate != nil {
			decorate(&ev)
		}
		publish(ctx, l.events, l.log, key, ev)
	})
}

// Get returns a booking to either of its parties.
func (l *Ledger) Get(ctx context.Context, actorID, bookingID string) (model.Booking, error) {
	var out model.Booking
	err := l.state.View(ctx, func(snap *repository.Snapshot) error {
		b := snap.Booking(bookingID)
		if b == nil {
			return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		if b.ClientID != actorID && b.FreelancerID != actorID {
			return fmt.Errorf("booking %s: %w", bookingID, ErrUnauthorized)
		}
		out = *b
		return nil
	})
	return out, err
}

// ListFor returns the user's bookings on tab, in insertion order. A
// FREELANCER lens lists bookings the user delivers; any other role lists
// bookings the user placed.
func (l *Ledger) ListFor(ctx context.Context, userID string, role model.Role, tab model.BookingTab) ([]model.Booking, error) {
	if !tab.Valid() {
		return nil, invalid("tab", "must be UPCOMING, COMPLETED or CANCELLED")
	}
	out := []model.Booking{}
	err := l.state.View(ctx, func(snap *repository.Snapshot) error {
		for _, b := range snap.Bookings {
			owner := b.ClientID
			if role == model.RoleFreelancer {
				owner = b.FreelancerID
			}
			if owner == userID && tab.Includes(b.Status) {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

// Reviewed reports whether a review exists for bookingID.
func (l *Ledger) Reviewed(ctx context.Context, bookingID string) (bool, error) {
	found := false
	err := l.state.View(ctx, func(snap *repository.Snapshot) error {
		found = snap.ReviewFor(bookingID) != nil
		return nil
	})
	return found, err
}

// Review lets the client rate a completed booking once. The service's
// average rating and review count are updated in the same commit.
func (l *Ledger) Review(ctx context.Context, actorID, bookingID string, rating int, comment string) (model.Review, error) {
	if rating < 1 || rating > 5 {
		return model.Review{}, invalid("rating", "must be between 1 and 5")
	}
	var r model.Review
	err := l.state.Update(ctx, func(ctx context.Context, snap *repository.Snapshot) error {
		b := snap.Booking(bookingID)
		if b == nil {
			return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		if b.ClientID != actorID {
			return fmt.Errorf("booking %s: %w", bookingID, ErrUnauthorized)
		}
		if b.Status != model.BookingCompleted {
			return fmt.Errorf("booking %s is %s: %w", bookingID, b.Status, ErrNotEligible)
		}
		if snap.ReviewFor(bookingID) != nil {
			return ErrAlreadyReviewed
		}
		r = model.Review{
			ID:        newID(),
			BookingID: b.ID,
			ServiceID: b.ServiceID,
			ClientID:  actorID,
			Rating:    rating,
			Comment:   strings.TrimSpace(comment),
			CreatedAt: l.clock.Now(),
		}
		snap.Reviews = append(snap.Reviews, r)
		if svc := snap.Service(b.ServiceID); svc != nil {
			total := svc.Rating*float64(svc.ReviewCount) + float64(rating)
			svc.ReviewCount++
			svc.Rating = total / float64(svc.ReviewCount)
		}
		l.notify.Notify(ctx, b.FreelancerID, "New Review",
			fmt.Sprintf("%s rated %q %d/5.", b.ClientName, b.ServiceTitle, rating))
		l.emit(ctx, queue.RKBookingReviewed, *b, actorID, func(ev *queue.BookingEvent) { ev.Rating = rating })
		return nil
	})
	if err != nil {
		return model.Review{}, err
	}
	return r, nil
}
