package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/kv"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/repository"
)

type published struct {
	key   string
	event interface{}
}

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, key string, ev interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{key, ev})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type testEnv struct {
	store   *repository.Store
	clock   *clock.Manual
	events  *recordingPublisher
	users   *Directory
	inbox   *Inbox
	ledger  *Ledger
	wallet  *Wallet
	chat    *Chat
	catalog *Catalog
	session *Sessions
}

// now is 2025-03-10 09:00 UTC in every test.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewStore(kv.NewMemory(), "test", nil)
	clk := clock.NewManual(testNow)
	events := &recordingPublisher{}
	users := NewDirectory(store, 4, nil)
	inbox := NewInbox(store, clk, nil)
	return &testEnv{
		store:   store,
		clock:   clk,
		events:  events,
		users:   users,
		inbox:   inbox,
		ledger:  NewLedger(store, users, inbox, clk, events, nil),
		wallet:  NewWallet(store, users, inbox, clk, events, nil),
		chat:    NewChat(store, clk, nil),
		catalog: NewCatalog(store, nil),
		session: NewSessions(store, users, clk, time.Hour, nil),
	}
}

func (e *testEnv) seed(t *testing.T, fn func(snap *repository.Snapshot)) {
	t.Helper()
	err := e.store.Update(context.Background(), func(_ context.Context, snap *repository.Snapshot) error {
		fn(snap)
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (e *testEnv) snapshot(t *testing.T) *repository.Snapshot {
	t.Helper()
	var out *repository.Snapshot
	if err := e.store.View(context.Background(), func(snap *repository.Snapshot) error {
		out = snap
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	return out
}

func user(id, name string, role model.Role, balance int64) model.UserRecord {
	return model.UserRecord{User: model.User{
		ID: id, Name: name, Email: id + "@student.unsri.ac.id", Role: role, Balance: balance,
	}}
}

// seedMarket adds client c1, freelancer f1, a BOTH user b1 and service s1
// offered by f1.
func (e *testEnv) seedMarket(t *testing.T) {
	e.seed(t, func(snap *repository.Snapshot) {
		snap.Users = append(snap.Users,
			user("c1", "Andi", model.RoleClient, 0),
			user("f1", "Sarah J.", model.RoleFreelancer, 0),
			user("both1", "Dimas", model.RoleBoth, 0),
		)
		snap.Services = append(snap.Services, model.Service{
			ID: "s1", FreelancerID: "f1", FreelancerName: "Sarah J.", Title: "Les Privat Kalkulus",
			Description: "Belajar limit dan turunan", Category: "Academic", Price: 50000,
		})
	})
}

func booking(id, client, freelancer string, status model.BookingStatus, deadline string, price int64) model.Booking {
	return model.Booking{
		ID: id, ServiceID: "s1", ServiceTitle: "Les Privat Kalkulus",
		ClientID: client, ClientName: "Andi", FreelancerID: freelancer, FreelancerName: "Sarah J.",
		Date: "2025-03-01", Deadline: deadline, Price: price, Status: status,
	}
}
