package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"path/filepath"

	"protocol-navigator/internal/audit"
	"protocol-navigator/internal/config"
	"protocol-navigator/internal/http"
	"protocol-navigator/internal/llm"
	"protocol-navigator/internal/rag"
	"protocol-navigator/internal/security"
	"protocol-navigator/internal/storage"
	"protocol-navigator/internal/store"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about uploaded clinical protocol documents,
// either by sparse top-k retrieval or by assembling a budget-bounded
// long context, and returns paragraph-level citations with every answer.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Protocol Navigator API
//   description: |
//     Document question answering over uploaded protocol documents with
//     paragraph-level citations, a tamper-evident audit log and optional
//     role-based access control.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	registry := storage.NewDocumentRepo(db)

	// Build the in-memory document store
	storeOpts := store.DefaultOptions
	storeOpts.ChunkSize = cfg.ChunkSize
	storeOpts.RedactPII = cfg.EnablePIIRedaction
	docStore, err := store.New(cfg.UploadDir, storeOpts)
	if err != nil {
		log.Fatalf("Failed to create document store: %v", err)
	}

	ctx := context.Background()
	allowedExts := cfg.ExtensionSet()

	// Re-ingest documents recorded in the registry from previous runs. A
	// missing file is logged and skipped, not fatal.
	records, err := registry.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list registered documents: %v", err)
	}
	reloaded := 0
	for _, record := range records {
		if record.FilePath == "" {
			continue
		}
		if _, err := os.Stat(record.FilePath); err != nil {
			slog.Warn("Registered document file missing, skipping",
				"doc_id", record.DocID, "path", record.FilePath)
			continue
		}
		doc, err := docStore.IngestFile(record.FilePath, record.DocName)
		if err != nil {
			slog.Warn("Failed to re-ingest registered document",
				"doc_id", record.DocID, "path", record.FilePath, "error", err)
			continue
		}
		reloaded++
		slog.Debug("Document re-ingested", "doc_id", doc.DocID, "doc_name", doc.DocName)
	}
	slog.Info("Document store ready", "registered", len(records), "reloaded", reloaded)

	// Ingest the monitored folder once at startup when sync is enabled.
	if cfg.SyncEnabled && cfg.SyncDir != "" {
		synced := docStore.IngestFolder(cfg.SyncDir, allowedExts)
		for _, doc := range synced {
			err := registry.Upsert(ctx, &storage.DocumentRecord{
				DocID:    doc.DocID,
				DocName:  doc.DocName,
				FilePath: filepath.Join(cfg.SyncDir, doc.DocName),
				Pages:    doc.Pages,
				Chunks:   doc.Chunks,
			})
			if err != nil {
				slog.Warn("Failed to record synced document", "doc_id", doc.DocID, "error", err)
			}
		}
		slog.Info("Monitored folder ingested", "dir", cfg.SyncDir, "documents", len(synced))
	}

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	llmClient.Retry = llm.RetryPolicy{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
		MaxDelay:     cfg.RetryMaxDelay,
		Multiplier:   cfg.RetryMultiplier,
	}
	llmConfigured := cfg.LLMBaseURL != "" && cfg.LLMAPIKey != ""
	if !llmConfigured {
		slog.Warn("Answer model not configured, every question will use the extractive fallback")
	}

	// Create the question engine
	engine := rag.NewEngine(docStore, llmClient, rag.Options{
		TopK:             cfg.RAGTopK,
		MaxContextChars:  cfg.MaxContextChars,
		MaxContextTokens: cfg.MaxContextTokens,
	})
	slog.Info("Question engine initialized",
		"top_k", cfg.RAGTopK,
		"max_context_chars", cfg.MaxContextChars,
		"max_context_tokens", cfg.MaxContextTokens,
	)

	// Audit log and authorizer
	auditLog, err := audit.NewLogger(cfg.AuditLogPath, cfg.AuditHashSeed)
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}
	authorizer := security.NewAuthorizer(cfg.RBACEnabled, cfg.RBACDefaultRole)

	// Create router with dependencies
	deps := &http.Deps{
		Store:             docStore,
		Engine:            engine,
		Registry:          registry,
		Audit:             auditLog,
		AuditVerifier:     auditLog,
		Authorizer:        authorizer,
		RoleHeader:        cfg.RBACHeaderName,
		LLMConfigured:     llmConfigured,
		AllowedExtensions: allowedExts,
		SyncEnabled:       cfg.SyncEnabled,
		SyncDir:           cfg.SyncDir,
		SyncSecret:        cfg.SyncSharedSecret,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
