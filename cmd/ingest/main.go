package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"sopbot/internal/ai"
	"sopbot/internal/config"
	"sopbot/internal/model"
	mysqlClient "sopbot/internal/platform/mysql"
	"sopbot/internal/pkg/pdfextract"
	"sopbot/internal/repository"
	"sopbot/internal/retrieval"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
	maxPDFSize   = 10 << 20 // 10 MB
)

func main() {
	dir := flag.String("dir", "", "directory of PDF documents to ingest")
	flag.Parse()
	if *dir == "" {
		log.Fatal("usage: ingest -dir <pdf-directory>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	ctx := context.Background()
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.Pool{
		MaxOpenConns: cfg.MySQL.MaxOpenConns,
		MaxIdleConns: cfg.MySQL.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("connect mysql failed: %v", err)
	}
	if err := db.AutoMigrate(&model.KnowledgeChunk{}); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}

	chunkRepo := repository.NewKnowledgeChunkRepository(db)
	llmClient := ai.NewOpenAICompatibleClient()
	store := retrieval.NewStore(chunkRepo, llmClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})

	var files, chunks int
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".pdf" {
			return nil
		}

		n, err := ingestPDF(ctx, store, path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		if n == 0 {
			log.Printf("skipped %s: no extractable text", path)
			return nil
		}

		files++
		chunks += n
		log.Printf("ingested %s (%d chunks)", path, n)
		return nil
	})
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	log.Printf("done: %d files, %d chunks", files, chunks)
}

func ingestPDF(ctx context.Context, store *retrieval.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f, maxPDFSize)
	if err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	fileName := filepath.Base(path)
	source := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return store.UpsertBatch(ctx, retrieval.ChunkText(text, chunkSize, chunkOverlap), source, fileName)
}
