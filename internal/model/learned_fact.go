package model

import "time"

// LearnedFactSource tags knowledge chunks created through the learn command.
const LearnedFactSource = "User Input"

// LearnedFact is the audit record of one taught fact. VectorID points at the
// knowledge chunk written for it, so unlearn can remove the chunk from
// retrieval instead of only hiding the audit record.
type LearnedFact struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	VectorID     string    `gorm:"size:128;not null;uniqueIndex" json:"vector_id"`
	TaughtBy     uint      `gorm:"not null;index" json:"taught_by"`
	TaughtByName string    `gorm:"size:128" json:"taught_by_name"`
	Source       string    `gorm:"size:128;not null;default:'User Input'" json:"source"`
	IsActive     bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
