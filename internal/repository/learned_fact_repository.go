package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"sopbot/internal/model"
)

type LearnedFactRepository struct {
	db *gorm.DB
}

func NewLearnedFactRepository(db *gorm.DB) *LearnedFactRepository {
	return &LearnedFactRepository{db: db}
}

func (r *LearnedFactRepository) Create(fact *model.LearnedFact) error {
	if err := r.db.Create(fact).Error; err != nil {
		return fmt.Errorf("create learned fact failed: %w", err)
	}
	return nil
}

// GetActiveByContent returns the active fact with exactly this content, if
// any. Used to keep repeated learn commands idempotent.
func (r *LearnedFactRepository) GetActiveByContent(content string) (*model.LearnedFact, error) {
	var fact model.LearnedFact
	if err := r.db.Where("content = ? AND is_active = ?", content, true).First(&fact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query learned fact by content failed: %w", err)
	}
	return &fact, nil
}

func (r *LearnedFactRepository) ListActive(limit int) ([]model.LearnedFact, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var facts []model.LearnedFact
	if err := r.db.Where("is_active = ?", true).Order("created_at DESC").Limit(limit).Find(&facts).Error; err != nil {
		return nil, fmt.Errorf("list learned facts failed: %w", err)
	}
	return facts, nil
}

// SearchActive matches term as a case-insensitive substring of active fact
// content, capped at limit.
func (r *LearnedFactRepository) SearchActive(term string, limit int) ([]model.LearnedFact, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	var facts []model.LearnedFact
	if err := r.db.Where("is_active = ? AND LOWER(content) LIKE ?", true, pattern).Limit(limit).Find(&facts).Error; err != nil {
		return nil, fmt.Errorf("search learned facts failed: %w", err)
	}
	return facts, nil
}

// DeactivateByIDs flips is_active off for all given facts in one update.
func (r *LearnedFactRepository) DeactivateByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Model(&model.LearnedFact{}).Where("id IN ?", ids).Update("is_active", false).Error; err != nil {
		return fmt.Errorf("deactivate learned facts failed: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
