package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/queue"
	"github.com/campuswork/marketplace/internal/repository"
)

// Wallet history actions and statuses.
const (
	ActionWithdrawal = "Withdrawal"
	ActionRefund     = "Refund"
	StatusSuccess    = "SUCCESS"

	defaultDestination = "main account"
	historyDateLayout  = "02 Jan 2006"
)

// Wallet handles withdrawals and the transaction history.
type Wallet struct {
	state  State
	users  UserDirectory
	notify NotificationSink
	clock  clock.Clock
	events queue.Publisher
	log    *zap.Logger
}

// NewWallet wires a Wallet. events may be nil.
func NewWallet(state State, users UserDirectory, notify NotificationSink, clk clock.Clock, events queue.Publisher, log *zap.Logger) *Wallet {
	if log == nil {
		log = zap.NewNop()
	}
	return &Wallet{state: state, users: users, notify: notify, clock: clk, events: events, log: log}
}

// Withdraw takes amount out of the user's balance and records it. The
// balance change, the history line and the notification commit together.
func (w *Wallet) Withdraw(ctx context.Context, userID string, amount int64, destination string) (model.Transaction, model.User, error) {
	if amount <= 0 {
		return model.Transaction{}, model.User{}, invalid("amount", "must be greater than zero")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		destination = defaultDestination
	}

	var (
		trx  model.Transaction
		user model.User
	)
	err := w.state.Update(ctx, func(ctx context.Context, snap *repository.Snapshot) error {
		u, err := w.users.AdjustBalance(ctx, userID, -amount)
		if err != nil {
			return err
		}
		user = u
		trx = w.record(snap, userID, ActionWithdrawal, "To "+destination, -amount)
		w.notify.Notify(ctx, userID, "Withdrawal Successful",
			fmt.Sprintf("%s has been withdrawn from your balance.", rupiah(amount)))
		publishAfterCommit(ctx, w.state, w.events, w.log, queue.RKWalletWithdrawn, queue.WalletEvent{
			TransactionID: trx.ID,
			UserID:        userID,
			Amount:        amount,
			Balance:       u.Balance,
			Destination:   destination,
			OccurredAt:    w.clock.Now().Format(timeLayout),
		})
		return nil
	})
	if err != nil {
		return model.Transaction{}, model.User{}, err
	}
	w.log.Info("withdrawal", zap.String("user_id", userID), zap.Int64("amount", amount), zap.String("trx", trx.ID))
	return trx, user, nil
}

// History returns the user's wallet lines, newest first.
func (w *Wallet) History(ctx context.Context, userID string) ([]model.Transaction, error) {
	out := []model.Transaction{}
	err := w.state.View(ctx, func(snap *repository.Snapshot) error {
		for _, t := range snap.History {
			if t.UserID == userID {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

// record prepends a history line. History is kept newest first.
func (w *Wallet) record(snap *repository.Snapshot, userID, action, detail string, amount int64) model.Transaction {
	return recordTransaction(snap, w.clock, userID, action, detail, amount)
}

func recordTransaction(snap *repository.Snapshot, clk clock.Clock, userID, action, detail string, amount int64) model.Transaction {
	t := model.Transaction{
		ID:     newTransactionID(),
		UserID: userID,
		Action: action,
		Detail: detail,
		Amount: amount,
		Date:   clk.Now().Format(historyDateLayout),
		Status: StatusSuccess,
	}
	snap.History = append([]model.Transaction{t}, snap.History...)
	return t
}

// newTransactionID returns "TRX-" followed by six upper-case characters.
func newTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TRX-" + strings.ToUpper(raw[:6])
}
