package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/repository"
)

// Chat manages two-party message threads.
type Chat struct {
	state State
	clock clock.Clock
	log   *zap.Logger
}

// NewChat wires a Chat to the application state.
func NewChat(state State, clk clock.Clock, log *zap.Logger) *Chat {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chat{state: state, clock: clk, log: log}
}

// Open returns the thread between userID and otherID, creating it when the
// pair has never talked. Both participants' name and avatar are cached on
// the new thread.
func (c *Chat) Open(ctx context.Context, userID, otherID string) (model.ChatThread, error) {
	if userID == otherID {
		return model.ChatThread{}, invalid("userId", "cannot open a chat with yourself")
	}
	var out model.ChatThread
	err := c.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		for _, t := range snap.Chats {
			if t.Has(userID) && t.Has(otherID) {
				out = t
				return nil
			}
		}
		me := snap.User(userID)
		if me == nil {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		other := snap.User(otherID)
		if other == nil {
			return fmt.Errorf("user %s: %w", otherID, ErrNotFound)
		}
		out = model.ChatThread{
			ID:           "chat_" + newID(),
			Participants: []string{userID, otherID},
			ParticipantDetails: map[string]model.Participant{
				userID:  {Name: me.Name, Avatar: me.AvatarURL},
				otherID: {Name: other.Name, Avatar: other.AvatarURL},
			},
			Messages:      []model.Message{},
			LastTimestamp: c.clock.Now().UnixMilli(),
		}
		snap.Chats = append(snap.Chats, out)
		return nil
	})
	return out, err
}

// Send appends a message from userID to the thread.
func (c *Chat) Send(ctx context.Context, userID, threadID, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, invalid("text", "is required")
	}
	var msg model.Message
	err := c.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		t, err := participantThread(snap, userID, threadID)
		if err != nil {
			return err
		}
		msg = model.Message{
			ID:        newID(),
			Text:      text,
			SenderID:  userID,
			Timestamp: c.clock.Now().UnixMilli(),
		}
		t.Messages = append(t.Messages, msg)
		t.LastMessage = msg.Text
		t.LastTimestamp = msg.Timestamp
		return nil
	})
	return msg, err
}

// List returns the user's threads, most recent activity first. search, if
// set, keeps threads whose other participant's name contains it.
func (c *Chat) List(ctx context.Context, userID, search string) ([]model.ChatThread, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	out := []model.ChatThread{}
	err := c.state.View(ctx, func(snap *repository.Snapshot) error {
		for _, t := range snap.Chats {
			if !t.Has(userID) {
				continue
			}
			if search != "" {
				name := strings.ToLower(t.ParticipantDetails[t.Other(userID)].Name)
				if !strings.Contains(name, search) {
					continue
				}
			}
			out = append(out, t)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastTimestamp > out[j].LastTimestamp })
	return out, err
}

// Get returns one thread to a participant.
func (c *Chat) Get(ctx context.Context, userID, threadID string) (model.ChatThread, error) {
	var out model.ChatThread
	err := c.state.View(ctx, func(snap *repository.Snapshot) error {
		t, err := participantThread(snap, userID, threadID)
		if err != nil {
			return err
		}
		out = *t
		return nil
	})
	return out, err
}

// MarkRead flags every message the other participant sent as read.
func (c *Chat) MarkRead(ctx context.Context, userID, threadID string) error {
	return c.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		t, err := participantThread(snap, userID, threadID)
		if err != nil {
			return err
		}
		for i := range t.Messages {
			if t.Messages[i].SenderID != userID {
				t.Messages[i].IsRead = true
			}
		}
		return nil
	})
}

// UnreadCount returns how many messages other users sent to userID that
// are still unread.
func (c *Chat) UnreadCount(ctx context.Context, userID string) (int, error) {
	n := 0
	err := c.state.View(ctx, func(snap *repository.Snapshot) error {
		for _, t := range snap.Chats {
			if !t.Has(userID) {
				continue
			}
			for _, m := range t.Messages {
				if m.SenderID != userID && !m.IsRead {
					n++
				}
			}
		}
		return nil
	})
	return n, err
}

func participantThread(snap *repository.Snapshot, userID, threadID string) (*model.ChatThread, error) {
	t := snap.Chat(threadID)
	if t == nil {
		return nil, fmt.Errorf("chat %s: %w", threadID, ErrNotFound)
	}
	if !t.Has(userID) {
		return nil, fmt.Errorf("chat %s: %w", threadID, ErrUnauthorized)
	}
	return t, nil
}
