package repository

import (
	"fmt"

	"gorm.io/gorm"

	"sopbot/internal/model"
)

type KnowledgeChunkRepository struct {
	db *gorm.DB
}

func NewKnowledgeChunkRepository(db *gorm.DB) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: db}
}

func (r *KnowledgeChunkRepository) Create(chunk *model.KnowledgeChunk) error {
	if err := r.db.Create(chunk).Error; err != nil {
		return fmt.Errorf("create knowledge chunk failed: %w", err)
	}
	return nil
}

func (r *KnowledgeChunkRepository) CreateBatch(chunks []model.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create knowledge chunks batch failed: %w", err)
	}
	return nil
}

func (r *KnowledgeChunkRepository) ListAll() ([]model.KnowledgeChunk, error) {
	var chunks []model.KnowledgeChunk
	if err := r.db.Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list knowledge chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *KnowledgeChunkRepository) DeleteByVectorIDs(vectorIDs []string) error {
	if len(vectorIDs) == 0 {
		return nil
	}
	if err := r.db.Where("vector_id IN ?", vectorIDs).Delete(&model.KnowledgeChunk{}).Error; err != nil {
		return fmt.Errorf("delete knowledge chunks failed: %w", err)
	}
	return nil
}
