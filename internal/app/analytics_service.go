package app

import (
	"errors"

	"sopbot/internal/model"
	"sopbot/internal/repository"
)

var (
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrMissingQuestionID = errors.New("question id is required")
	ErrRatingNotFound    = errors.New("no question found for this id")
)

// AnalyticsService records one row per answered question and serves the
// dashboard aggregation.
type AnalyticsService struct {
	repo *repository.AnalyticsRepository
}

func NewAnalyticsService(repo *repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

func (s *AnalyticsService) Record(record *model.AnalyticsRecord) error {
	return s.repo.Create(record)
}

// Rate attaches a rating to the record behind questionID.
func (s *AnalyticsService) Rate(questionID string, rating int, feedback string) error {
	if questionID == "" {
		return ErrMissingQuestionID
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	found, err := s.repo.UpdateRating(questionID, rating, feedback)
	if err != nil {
		return err
	}
	if !found {
		return ErrRatingNotFound
	}
	return nil
}

func (s *AnalyticsService) Summary(topN int) (*repository.AnalyticsSummary, error) {
	return s.repo.Summarize(topN)
}
