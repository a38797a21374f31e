package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sopbot/internal/model"
)

const (
	learnAckMessage    = "Understood. I have learned this and will use it when answering future questions."
	unlearnMatchLimit  = 10
	unlearnPreviewRune = 80
)

var ErrForbidden = errors.New("administrator access required")

// LearnedFactStore is the slice of fact persistence the mutator needs.
type LearnedFactStore interface {
	Create(fact *model.LearnedFact) error
	GetActiveByContent(content string) (*model.LearnedFact, error)
	ListActive(limit int) ([]model.LearnedFact, error)
	SearchActive(term string, limit int) ([]model.LearnedFact, error)
	DeactivateByIDs(ids []uint) error
}

// VectorWriter is the slice of the vector store the mutator needs.
type VectorWriter interface {
	Upsert(ctx context.Context, content, source, fileName string) (string, error)
	Delete(ctx context.Context, vectorIDs []string) error
}

// CacheFlusher invalidates cached answers after a knowledge mutation.
type CacheFlusher interface {
	FlushAll(ctx context.Context) error
}

// MutationResult is the outcome of a learn or unlearn command. Message is a
// fixed acknowledgement, never generated text.
type MutationResult struct {
	Message  string
	Sources  []string
	NotFound bool
	Removed  int
}

// KnowledgeService applies learn/unlearn commands: it writes or retracts
// retrievable chunks and keeps the LearnedFact audit trail in step.
type KnowledgeService struct {
	factRepo LearnedFactStore
	vectors  VectorWriter
	cache    CacheFlusher
	logger   *zap.Logger
}

func NewKnowledgeService(
	factRepo LearnedFactStore,
	vectors VectorWriter,
	cache CacheFlusher,
	logger *zap.Logger,
) *KnowledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeService{
		factRepo: factRepo,
		vectors:  vectors,
		cache:    cache,
		logger:   logger,
	}
}

// Learn stores a taught fact. Teaching the same active fact twice is a no-op
// beyond the acknowledgement.
func (s *KnowledgeService) Learn(ctx context.Context, actor Identity, fact string) (*MutationResult, error) {
	if !actor.IsAdministrator() {
		return nil, ErrForbidden
	}

	existing, err := s.factRepo.GetActiveByContent(fact)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		vectorID, err := s.vectors.Upsert(ctx, fact, model.LearnedFactSource, "")
		if err != nil {
			return nil, fmt.Errorf("store learned fact failed: %w", err)
		}

		record := &model.LearnedFact{
			Content:      fact,
			VectorID:     vectorID,
			TaughtByName: actor.Name,
			Source:       model.LearnedFactSource,
			IsActive:     true,
		}
		if actor.UserID != nil {
			record.TaughtBy = *actor.UserID
		}
		if err := s.factRepo.Create(record); err != nil {
			return nil, err
		}

		// Only a real write invalidates cached answers; re-teaching an
		// already-active fact changes nothing retrievable.
		s.flushCache(ctx)
	}

	return &MutationResult{
		Message: learnAckMessage,
		Sources: []string{model.LearnedFactSource},
	}, nil
}

// Unlearn retracts every active fact whose content contains term
// (case-insensitive), capped at a fixed match limit. Zero matches is a soft
// "not found" result, not an error.
func (s *KnowledgeService) Unlearn(ctx context.Context, actor Identity, term string) (*MutationResult, error) {
	if !actor.IsAdministrator() {
		return nil, ErrForbidden
	}

	matches, err := s.factRepo.SearchActive(term, unlearnMatchLimit)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &MutationResult{
			Message:  fmt.Sprintf("No learned facts matching %q were found.", term),
			Sources:  []string{model.LearnedFactSource},
			NotFound: true,
		}, nil
	}

	ids := make([]uint, 0, len(matches))
	vectorIDs := make([]string, 0, len(matches))
	previews := make([]string, 0, len(matches))
	for _, fact := range matches {
		ids = append(ids, fact.ID)
		if fact.VectorID != "" {
			vectorIDs = append(vectorIDs, fact.VectorID)
		}
		previews = append(previews, truncateRunes(fact.Content, unlearnPreviewRune))
	}

	if err := s.factRepo.DeactivateByIDs(ids); err != nil {
		return nil, err
	}
	if err := s.vectors.Delete(ctx, vectorIDs); err != nil {
		// The audit records are already retracted; a failed vector delete
		// leaves stale chunks retrievable until a follow-up cleanup.
		s.logger.Warn("delete learned vectors failed", zap.Error(err))
	}

	s.flushCache(ctx)

	return &MutationResult{
		Message: fmt.Sprintf("Removed %d learned fact(s):\n- %s", len(matches), strings.Join(previews, "\n- ")),
		Sources: []string{model.LearnedFactSource},
		Removed: len(matches),
	}, nil
}

// ListActive returns active learned facts, most recent first.
func (s *KnowledgeService) ListActive(limit int) ([]model.LearnedFact, error) {
	return s.factRepo.ListActive(limit)
}

func (s *KnowledgeService) flushCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.FlushAll(ctx); err != nil {
		s.logger.Warn("flush answer cache after mutation failed", zap.Error(err))
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
