// Command seed_knowledge loads .txt and .md files from a directory into the knowledge index.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"whatsapp-orderbot-be/internal/config"
	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/internal/repository/implementation"
	"whatsapp-orderbot-be/internal/service"
	"whatsapp-orderbot-be/pkg/database"
	"whatsapp-orderbot-be/pkg/embedding"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	dir := flag.String("dir", "./knowledge", "directory with .txt/.md files")
	source := flag.String("source", "seed", "source label stored on each document")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	embeddingProvider, err := embedding.NewProvider(cfg.Ai.EmbeddingProvider, cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel, cfg.Keys.GoogleGemini)
	if err != nil {
		color.Red("Failed to initialize embedding provider: %v", err)
		os.Exit(1)
	}

	documents := implementation.NewKnowledgeDocumentRepository(db)
	embeddings := implementation.NewKnowledgeEmbeddingRepository(db)
	indexer := service.NewConsumerService(nil, cfg.Keys.KnowledgeTopic, documents, embeddings, embeddingProvider, nil, logger.NewNopLogger())

	files, err := collectFiles(*dir)
	if err != nil {
		color.Red("Failed to read %s: %v", *dir, err)
		os.Exit(1)
	}
	if len(files) == 0 {
		color.Yellow("No .txt or .md files found in %s", *dir)
		return
	}

	color.Cyan("🚀 Seeding %d document(s) from %s\n", len(files), *dir)

	ctx := context.Background()
	var ok, failed int
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			color.Red("  ✗ %s: %v", path, err)
			failed++
			continue
		}
		if strings.TrimSpace(string(content)) == "" {
			color.Yellow("  - %s: empty, skipped", path)
			continue
		}

		doc := &entity.KnowledgeDocument{
			Id:        uuid.New(),
			Title:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Content:   string(content),
			Source:    *source,
			Metadata:  map[string]interface{}{"path": path},
			CreatedAt: time.Now(),
		}
		if err := documents.Create(ctx, doc); err != nil {
			color.Red("  ✗ %s: %v", path, err)
			failed++
			continue
		}

		chunks, err := indexer.IndexDocument(ctx, doc.Id)
		if err != nil {
			color.Red("  ✗ %s: stored but not indexed: %v", path, err)
			failed++
			continue
		}

		color.Green("  ✓ %s (%d chunks)", doc.Title, chunks)
		ok++
	}

	color.Cyan("\nDone: %d indexed, %d failed", ok, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
