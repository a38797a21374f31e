package model

import (
	"encoding/json"
	"time"
)

// KnowledgeChunk stores one retrievable text passage and its embedding.
// Embedding is stored as a JSON array of float32 for portability.
type KnowledgeChunk struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VectorID  string    `gorm:"size:128;not null;uniqueIndex" json:"vector_id"`
	Source    string    `gorm:"size:256;index" json:"source"`
	FileName  string    `gorm:"size:256" json:"file_name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Embedding string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *KnowledgeChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *KnowledgeChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
