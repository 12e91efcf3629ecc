package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/repository"
)

func TestChat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedMarket(t)
	env.seed(t, func(snap *repository.Snapshot) {
		snap.Users = append(snap.Users, user("f2", "Dimas Tech", model.RoleFreelancer, 0))
	})

	if _, err := env.chat.Open(ctx, "c1", "c1"); !isValidation(err) {
		t.Fatalf("expected ValidationError for self chat, got %v", err)
	}
	if _, err := env.chat.Open(ctx, "c1", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	withSarah, err := env.chat.Open(ctx, "c1", "f1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if withSarah.ParticipantDetails["f1"].Name != "Sarah J." {
		t.Fatalf("expected cached participant details, got %+v", withSarah.ParticipantDetails)
	}
	again, _ := env.chat.Open(ctx, "f1", "c1")
	if again.ID != withSarah.ID {
		t.Fatalf("expected the existing thread to be reused")
	}

	env.clock.Advance(time.Minute)
	withDimas, _ := env.chat.Open(ctx, "c1", "f2")

	if _, err := env.chat.Send(ctx, "c1", withSarah.ID, "   "); !isValidation(err) {
		t.Fatalf("expected ValidationError for blank text, got %v", err)
	}
	if _, err := env.chat.Send(ctx, "f2", withSarah.ID, "hi"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outsider, got %v", err)
	}
	env.clock.Advance(time.Minute)
	msg, err := env.chat.Send(ctx, "f1", withSarah.ID, "Halo, ada yang bisa dibantu?")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msg.IsRead || msg.Timestamp != env.clock.Now().UnixMilli() {
		t.Fatalf("unexpected message %+v", msg)
	}

	list, _ := env.chat.List(ctx, "c1", "")
	if len(list) != 2 || list[0].ID != withSarah.ID || list[1].ID != withDimas.ID {
		t.Fatalf("expected most recent first, got %+v", list)
	}
	if list[0].LastMessage != "Halo, ada yang bisa dibantu?" {
		t.Fatalf("expected last message updated, got %q", list[0].LastMessage)
	}
	found, _ := env.chat.List(ctx, "c1", "dimas")
	if len(found) != 1 || found[0].ID != withDimas.ID {
		t.Fatalf("expected search by other participant name, got %+v", found)
	}

	if n, _ := env.chat.UnreadCount(ctx, "c1"); n != 1 {
		t.Fatalf("expected 1 unread, got %d", n)
	}
	if n, _ := env.chat.UnreadCount(ctx, "f1"); n != 0 {
		t.Fatalf("expected own messages not counted, got %d", n)
	}
	if err := env.chat.MarkRead(ctx, "c1", withSarah.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n, _ := env.chat.UnreadCount(ctx, "c1"); n != 0 {
		t.Fatalf("expected 0 unread, got %d", n)
	}

	if _, err := env.chat.Get(ctx, "f2", withSarah.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.chat.Get(ctx, "c1", "chat_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
