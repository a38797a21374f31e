package app

import (
	"sopbot/internal/model"
	"sopbot/internal/repository"
)

// HistoryService is the read path over persisted chat sessions. Appending
// happens asynchronously through the history queue worker.
type HistoryService struct {
	repo *repository.HistoryRepository
}

func NewHistoryService(repo *repository.HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) List(userID uint, sessionID string, limit int) ([]model.ChatSession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(userID, sessionID, limit)
}
