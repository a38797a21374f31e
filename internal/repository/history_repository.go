package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"sopbot/internal/model"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AppendExchange upserts the (userID, sessionID) session: creates it on the
// first exchange, appends both messages afterwards.
func (r *HistoryRepository) AppendExchange(userID uint, sessionID string, userMsg, botMsg model.ChatMessageEntry) error {
	var session model.ChatSession
	err := r.db.Where("user_id = ? AND session_id = ?", userID, sessionID).First(&session).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("query chat session failed: %w", err)
		}
		session = model.ChatSession{
			UserID:    userID,
			SessionID: sessionID,
		}
		if err := session.SetMessageList([]model.ChatMessageEntry{userMsg, botMsg}); err != nil {
			return fmt.Errorf("encode chat messages failed: %w", err)
		}
		if err := r.db.Create(&session).Error; err != nil {
			return fmt.Errorf("create chat session failed: %w", err)
		}
		return nil
	}

	entries := session.MessageList()
	entries = append(entries, userMsg, botMsg)
	if err := session.SetMessageList(entries); err != nil {
		return fmt.Errorf("encode chat messages failed: %w", err)
	}
	if err := r.db.Model(&session).Updates(map[string]interface{}{"messages": session.Messages}).Error; err != nil {
		return fmt.Errorf("append chat messages failed: %w", err)
	}
	return nil
}

// ListByUser returns the user's sessions, most recent first. A non-empty
// sessionID narrows the result to that session.
func (r *HistoryRepository) ListByUser(userID uint, sessionID string, limit int) ([]model.ChatSession, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	query := r.db.Where("user_id = ?", userID)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}

	var sessions []model.ChatSession
	if err := query.Order("updated_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list chat sessions failed: %w", err)
	}
	return sessions, nil
}
