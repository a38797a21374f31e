package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ChatMessageEntry is one message inside a session's ordered message list.
type ChatMessageEntry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession groups the exchanges of one (user, sessionID) pair. Messages are
// stored as a JSON column and appended on every exchange.
type ChatSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index:idx_user_session" json:"user_id"`
	SessionID string         `gorm:"size:128;not null;index:idx_user_session" json:"session_id"`
	Messages  datatypes.JSON `gorm:"type:json" json:"messages"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// HistoryAppend is the queue envelope for one exchange waiting to be folded
// into its ChatSession row.
type HistoryAppend struct {
	UserID      uint             `json:"user_id"`
	SessionID   string           `json:"session_id"`
	UserMessage ChatMessageEntry `json:"user_message"`
	BotMessage  ChatMessageEntry `json:"bot_message"`
}

// MessageList parses the messages column; empty on parse error.
func (s *ChatSession) MessageList() []ChatMessageEntry {
	if len(s.Messages) == 0 {
		return nil
	}
	var entries []ChatMessageEntry
	_ = json.Unmarshal(s.Messages, &entries)
	return entries
}

// SetMessageList stores the ordered message list as JSON.
func (s *ChatSession) SetMessageList(entries []ChatMessageEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	s.Messages = payload
	return nil
}
