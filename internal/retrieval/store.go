package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"sopbot/internal/ai"
	"sopbot/internal/model"
	"sopbot/internal/repository"
)

const searchTimeout = 15 * time.Second

// Store is the vector retriever: it embeds queries and ranks knowledge chunks
// by cosine similarity. Chunks live in the persistent store with their
// embeddings serialized per row.
type Store struct {
	chunkRepo *repository.KnowledgeChunkRepository
	llmClient *ai.OpenAICompatibleClient
	embConfig ai.EmbeddingConfig
}

func NewStore(
	chunkRepo *repository.KnowledgeChunkRepository,
	llmClient *ai.OpenAICompatibleClient,
	embConfig ai.EmbeddingConfig,
) *Store {
	return &Store{
		chunkRepo: chunkRepo,
		llmClient: llmClient,
		embConfig: embConfig,
	}
}

// Search returns the k nearest chunks as passages, best match first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = 4
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	queryEmb, err := s.llmClient.Embed(searchCtx, s.embConfig, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	chunks, err := s.chunkRepo.ListAll()
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	type scoredChunk struct {
		chunk model.KnowledgeChunk
		score float32
	}
	scored := make([]scoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = scoredChunk{
			chunk: chunks[i],
			score: cosineSimilarity(queryEmb, chunks[i].EmbeddingVector()),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if k > len(scored) {
		k = len(scored)
	}

	passages := make([]Passage, 0, k)
	for _, sc := range scored[:k] {
		passages = append(passages, chunkToPassage(sc.chunk))
	}
	return passages, nil
}

// Upsert embeds the content and writes it as a retrievable chunk, returning
// the assigned vector ID.
func (s *Store) Upsert(ctx context.Context, content, source, fileName string) (string, error) {
	emb, err := s.llmClient.Embed(ctx, s.embConfig, content)
	if err != nil {
		return "", fmt.Errorf("embed content failed: %w", err)
	}

	chunk := model.KnowledgeChunk{
		VectorID: uuid.NewString(),
		Source:   source,
		FileName: fileName,
		Content:  content,
	}
	chunk.SetEmbedding(emb)

	if err := s.chunkRepo.Create(&chunk); err != nil {
		return "", err
	}
	return chunk.VectorID, nil
}

// UpsertBatch embeds and stores many contents that share source metadata,
// as the ingest path does per document.
func (s *Store) UpsertBatch(ctx context.Context, contents []string, source, fileName string) (int, error) {
	if len(contents) == 0 {
		return 0, nil
	}

	// Embedding APIs commonly cap batch size.
	const batchSize = 10
	var embeddings [][]float32
	for i := 0; i < len(contents); i += batchSize {
		end := i + batchSize
		if end > len(contents) {
			end = len(contents)
		}
		batch, err := s.llmClient.EmbedBatch(ctx, s.embConfig, contents[i:end])
		if err != nil {
			return 0, fmt.Errorf("embed batch failed: %w", err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(contents) {
		return 0, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(contents), len(embeddings))
	}

	chunks := make([]model.KnowledgeChunk, len(contents))
	for i := range contents {
		chunks[i] = model.KnowledgeChunk{
			VectorID: uuid.NewString(),
			Source:   source,
			FileName: fileName,
			Content:  contents[i],
		}
		chunks[i].SetEmbedding(embeddings[i])
	}
	if err := s.chunkRepo.CreateBatch(chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Delete removes the chunks behind the given vector IDs from retrieval.
func (s *Store) Delete(ctx context.Context, vectorIDs []string) error {
	_ = ctx
	return s.chunkRepo.DeleteByVectorIDs(vectorIDs)
}

func chunkToPassage(chunk model.KnowledgeChunk) Passage {
	metadata := make(map[string]string, 2)
	if chunk.Source != "" {
		metadata["source"] = chunk.Source
	}
	if chunk.FileName != "" {
		metadata["fileName"] = chunk.FileName
	}
	return Passage{
		Text:     chunk.Content,
		Metadata: metadata,
	}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
