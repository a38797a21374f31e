package repository

import (
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"sopbot/internal/model"
)

type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Create(record *model.AnalyticsRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create analytics record failed: %w", err)
	}
	return nil
}

// UpdateRating sets rating and feedback on the record with the given question
// ID. Returns false when no record matches.
func (r *AnalyticsRepository) UpdateRating(questionID string, rating int, feedback string) (bool, error) {
	result := r.db.Model(&model.AnalyticsRecord{}).
		Where("question_id = ?", questionID).
		Updates(map[string]interface{}{"rating": rating, "feedback": feedback})
	if result.Error != nil {
		return false, fmt.Errorf("update rating failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

type QuestionBucket struct {
	Question string `json:"question"`
	Count    int64  `json:"count"`
}

type RoleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type AnalyticsSummary struct {
	TotalQuestions    int64            `json:"totalQuestions"`
	AverageRating     float64          `json:"averageRating"`
	AverageResponseMs float64          `json:"averageResponseTime"`
	TopQuestions      []QuestionBucket `json:"topQuestions"`
	RoleCounts        []RoleCount      `json:"questionsByRole"`
	TopSources        []SourceCount    `json:"topSources"`
}

// Summarize aggregates the dashboard view. Questions are bucketed by their
// lowercased first 50 characters; source counts are folded in Go because each
// row stores a JSON list of source names.
func (r *AnalyticsRepository) Summarize(topN int) (*AnalyticsSummary, error) {
	if topN <= 0 {
		topN = 10
	}

	summary := &AnalyticsSummary{}

	if err := r.db.Model(&model.AnalyticsRecord{}).Count(&summary.TotalQuestions).Error; err != nil {
		return nil, fmt.Errorf("count analytics records failed: %w", err)
	}

	var avgRating *float64
	if err := r.db.Model(&model.AnalyticsRecord{}).
		Select("AVG(rating)").
		Where("rating IS NOT NULL").
		Scan(&avgRating).Error; err != nil {
		return nil, fmt.Errorf("average rating failed: %w", err)
	}
	if avgRating != nil {
		summary.AverageRating = *avgRating
	}

	var avgResponse *float64
	if err := r.db.Model(&model.AnalyticsRecord{}).
		Select("AVG(response_time_ms)").
		Scan(&avgResponse).Error; err != nil {
		return nil, fmt.Errorf("average response time failed: %w", err)
	}
	if avgResponse != nil {
		summary.AverageResponseMs = *avgResponse
	}

	if err := r.db.Model(&model.AnalyticsRecord{}).
		Select("LOWER(SUBSTRING(question, 1, 50)) AS question, COUNT(*) AS count").
		Group("LOWER(SUBSTRING(question, 1, 50))").
		Order("count DESC").
		Limit(topN).
		Scan(&summary.TopQuestions).Error; err != nil {
		return nil, fmt.Errorf("top questions failed: %w", err)
	}

	if err := r.db.Model(&model.AnalyticsRecord{}).
		Select("user_role AS role, COUNT(*) AS count").
		Group("user_role").
		Order("count DESC").
		Scan(&summary.RoleCounts).Error; err != nil {
		return nil, fmt.Errorf("role counts failed: %w", err)
	}

	topSources, err := r.topSources(topN)
	if err != nil {
		return nil, err
	}
	summary.TopSources = topSources

	return summary, nil
}

func (r *AnalyticsRepository) topSources(topN int) ([]SourceCount, error) {
	var rows []model.AnalyticsRecord
	if err := r.db.Select("sources").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load source lists failed: %w", err)
	}

	counts := make(map[string]int64)
	for _, row := range rows {
		if len(row.Sources) == 0 {
			continue
		}
		var sources []string
		if err := json.Unmarshal(row.Sources, &sources); err != nil {
			continue
		}
		for _, s := range sources {
			counts[s]++
		}
	}

	out := make([]SourceCount, 0, len(counts))
	for source, count := range counts {
		out = append(out, SourceCount{Source: source, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
