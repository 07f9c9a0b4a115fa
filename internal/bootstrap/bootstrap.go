package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dmmikh/adaptive-rag-agent/internal/config"
	"github.com/dmmikh/adaptive-rag-agent/internal/core/ports"
	"github.com/dmmikh/adaptive-rag-agent/internal/core/usecase"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/chunking"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/extractor"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/llm/ollama"
	natsqueue "github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/queue/nats"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/repository/memory"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/repository/postgres"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/resilience"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/search/tavily"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/storage/localfs"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	ChatUC    ports.ChatService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}

	var sessions ports.SessionStore
	if cfg.SessionStore == "postgres" {
		sessionRepo := postgres.NewSessionRepository(db)
		if err := sessionRepo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure sessions schema: %w", err)
		}
		sessions = sessionRepo
	} else {
		sessions = memory.NewSessionStore()
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: exec,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaSmallModel, cfg.OllamaEmbedModel, exec)
	embedder := ollama.NewEmbedder(ollamaClient)
	router := ollama.NewRouter(ollamaClient)
	expander := ollama.NewExpander(ollamaClient)
	relevance := ollama.NewRelevanceGrader(ollamaClient)
	grounding := ollama.NewGroundingGrader(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	searcher := tavily.New(cfg.TavilyBaseURL, cfg.TavilyAPIKey, cfg.TavilyMaxResults, exec)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.New(storage)

	retriever := usecase.NewRetrievalCoordinator(
		expander, embedder, vectorDB,
		cfg.RAGTopK, cfg.RAGFusionRRFK, cfg.RAGFusionTopN,
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, chunker, embedder, vectorDB)
	chatUC := usecase.NewChatWorkflowUseCase(
		router, retriever, relevance, grounding, generator, searcher, sessions,
		usecase.WorkflowLimits{
			MaxRetries:  cfg.WorkflowMaxRetries,
			StepTimeout: time.Duration(cfg.WorkflowStepTimeoutSeconds) * time.Second,
		},
	)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		ChatUC:    chatUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
