package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"turbott/internal/ai"
	"turbott/internal/app"
	"turbott/internal/cache"
	"turbott/internal/chunker"
	"turbott/internal/config"
	"turbott/internal/loader"
	mysqlClient "turbott/internal/platform/mysql"
	rabbitmqClient "turbott/internal/platform/rabbitmq"
	redisClient "turbott/internal/platform/redis"
	"turbott/internal/vectorstore"
	"turbott/internal/vectorstore/memory"
	"turbott/internal/vectorstore/mysqlstore"
	"turbott/internal/worker"
)

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Store        vectorstore.Store
	IndexService *app.IndexService
	ChatService  *app.ChatService
	IndexWorker  *worker.IndexWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{Config: cfg, StartedAt: time.Now()}

	store, err := a.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.Redis = redisCli

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	a.MQConn = mqConn

	llmClient := ai.NewOpenAICompatibleClient()
	embCache := cache.NewEmbeddingCache(redisCli, time.Duration(cfg.Redis.EmbeddingTTLSeconds)*time.Second)
	embedder := app.NewEmbedder(llmClient, embCache, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})

	retriever := app.NewRetriever(store, embedder)
	generator := app.NewGenerator(llmClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	a.ChatService = app.NewChatService(retriever, generator, cfg.RAG.TopK)

	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	a.IndexService = app.NewIndexService(
		loader.New(cfg.Docs.Extensions),
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, cfg.RAG.BoundaryTolerance),
		embedder,
		store,
		publisher,
		cfg.RAG.EmbedBatchSize,
	)

	a.IndexWorker = worker.NewIndexWorker(mqConn, a.IndexService, cfg.RabbitMQ.IngestQueue)
	if err := a.IndexWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start index worker failed: %w", err)
	}

	if cfg.Docs.IndexOnStartup {
		a.indexStartupDocs(ctx, cfg.Docs.Dir)
	}

	return a, nil
}

func (a *App) buildStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Store.Backend {
	case "mysql":
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if err := mysqlstore.Migrate(db); err != nil {
			return nil, err
		}
		a.MySQL = db
		return mysqlstore.New(db), nil
	case "", "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

func (a *App) indexStartupDocs(ctx context.Context, dir string) {
	if _, err := os.Stat(dir); err != nil {
		log.Printf("documents dir %s not available, skipping startup indexing: %v", dir, err)
		return
	}
	report, err := a.IndexService.IndexDirectory(ctx, dir)
	if err != nil {
		log.Printf("startup indexing failed: %v", err)
		return
	}
	log.Printf("startup indexing: %d documents indexed (%d chunks), %d failed",
		len(report.Indexed), report.TotalChunks, len(report.Failed))
	for _, f := range report.Failed {
		log.Printf("startup indexing skipped %s: %s", f.Path, f.Reason)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.IndexWorker != nil {
		a.IndexWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
