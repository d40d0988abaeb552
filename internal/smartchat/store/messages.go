package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message roles. The assistant role covers every AI provider; the concrete
// provider is kept alongside for display.
const (
	RoleCustomer  = "customer"
	RoleAdmin     = "admin"
	RoleAssistant = "assistant"
)

// Message is one persisted chat line.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	Role       string    `json:"role"`
	Body       string    `json:"body"`
	Image      string    `json:"image,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

// SaveMessage persists one chat line, assigning an ID when absent.
func (s *Store) SaveMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, room_id, sender_id, sender_name, role, body, image, provider, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RoomID, m.SenderID, m.SenderName, m.Role, m.Body, m.Image, m.Provider, m.SentAt)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages of a room, oldest first.
func (s *Store) RecentMessages(ctx context.Context, roomID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	// Newest N selected first, then flipped to chronological order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, sender_name, role, body, image, provider, sent_at
		FROM chat_messages
		WHERE room_id = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ?`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Role, &m.Body, &m.Image, &m.Provider, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
