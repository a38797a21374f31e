package model

import (
	"time"

	"gorm.io/datatypes"
)

// AnalyticsRecord is append-only: one row per answered question, updated at
// most once by a rating submission keyed on QuestionID.
type AnalyticsRecord struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	QuestionID     string         `gorm:"size:64;not null;uniqueIndex" json:"question_id"`
	Question       string         `gorm:"type:text;not null" json:"question"`
	UserID         *uint          `gorm:"index" json:"user_id,omitempty"`
	UserRole       string         `gorm:"size:32;not null;default:'guest';index" json:"user_role"`
	Sources        datatypes.JSON `gorm:"type:json" json:"sources"`
	ResponseTimeMs int64          `gorm:"not null;default:0" json:"response_time_ms"`
	Rating         *int           `gorm:"index" json:"rating,omitempty"`
	Feedback       string         `gorm:"size:500" json:"feedback,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}
