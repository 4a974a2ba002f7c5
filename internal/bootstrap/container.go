package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"exoplanet-classifier-be/internal/config"
	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/controller"
	"exoplanet-classifier-be/internal/handler"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/internal/repository/contract"
	"exoplanet-classifier-be/internal/repository/implementation"
	"exoplanet-classifier-be/internal/repository/memory"
	redisRepo "exoplanet-classifier-be/internal/repository/redis"
	"exoplanet-classifier-be/internal/service"
	"exoplanet-classifier-be/internal/websocket"
	"exoplanet-classifier-be/pkg/embedding"
	"exoplanet-classifier-be/pkg/embedding/jina"
	"exoplanet-classifier-be/pkg/llm/factory"
	pktNats "exoplanet-classifier-be/pkg/nats"
	"exoplanet-classifier-be/pkg/rag/classifier"
	"exoplanet-classifier-be/pkg/rag/retriever"
	"exoplanet-classifier-be/pkg/tabular"
	"exoplanet-classifier-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	ClassifyController   controller.IClassifyController
	DatasetController    controller.IDatasetController
	HeldOutController    controller.IHeldOutController
	PredictionController controller.IPredictionController
	TaskController       controller.ITaskController
	HealthController     controller.IHealthController
	AdminController      controller.IAdminController

	TaskStreamHandler *handler.TaskStreamHandler
	WebSocketHub      *websocket.Hub

	ConsumerService   service.IConsumerService
	BundleSyncService service.IBundleSyncService // nil without NATS
	DatasetWatcher    *service.DatasetWatcher    // nil unless DATASET_WATCH is set
	TaskService       service.ITaskService

	Stores   *vectorstore.Repository
	Builder  *vectorstore.Builder
	Datasets *service.DatasetStore
	Logger   logger.ILogger

	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI Providers
	embeddingProvider, err := NewEmbeddingProvider(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using Embedding Provider: %s", embeddingProvider.Name())

	embedder := embedding.NewClient(embeddingProvider, embedding.ClientOptions{
		BatchSize:         cfg.Ai.EmbeddingBatchSize,
		Timeout:           cfg.Ai.EmbeddingTimeout,
		RequestsPerSecond: cfg.Ai.EmbeddingRPS,
	})

	llmProvider, err := factory.NewLLMProvider(factory.Settings{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  llmBaseURL(cfg),
		APIKey:   llmAPIKey(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Vector Store
	blobs, err := NewBlobStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	compression, err := vectorstore.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, err
	}
	c.Stores = vectorstore.NewRepository(blobs, compression, sysLogger)
	c.Builder = vectorstore.NewBuilder(embedder, sysLogger)
	c.Datasets = service.NewDatasetStore(cfg.Data.DatasetPath, blobs)

	stores := c.Stores
	// eviction callbacks already run on their own goroutine
	sessionRepo := memory.NewSessionRepository(cfg.App.MaxSessions, cfg.App.SessionTTL, func(sessionID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := stores.DeleteSession(ctx, sessionID); err != nil {
			sysLogger.Warn(constant.LogModuleDataset, "Failed to delete evicted session store", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	})

	// 5. Infrastructure
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.Nats.URL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.Nats.URL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		} else {
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.Nats.URL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	var rdb *redis.Client
	var taskRepo contract.TaskRepository
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.Redis.URL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		taskRepo = redisRepo.NewTaskRepository(rdb, cfg.Worker.TaskTTL)
	} else {
		taskRepo = memory.NewTaskRepository(cfg.Worker.TaskTTL)
	}

	var predictionRepo contract.PredictionRepository
	if db != nil {
		predictionRepo = implementation.NewPredictionRepository(db)
	} else {
		predictionRepo = implementation.NewNoopPredictionRepository()
	}

	model, err := tabular.LoadModel(cfg.Data.ModelPath)
	if err != nil {
		model = nil
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load tabular model: %w", err)
		}
		log.Printf("[WARN] No tabular model at %s, tabular classification disabled", cfg.Data.ModelPath)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/task_stream.log")
	c.WebSocketHub = websocket.NewHub(rdb, cfg.App.InstanceID, wsLogger)
	go c.WebSocketHub.Run()

	// 6. Services
	rag := classifier.New(
		c.Stores,
		retriever.New(embedder, cfg.Rag.OverFetch),
		llmProvider,
		classifier.Options{
			DefaultK:          cfg.Rag.DefaultK,
			MaxTokens:         cfg.Ai.MaxTokens,
			Model:             cfg.Ai.LLMModel,
			CompletionTimeout: cfg.Ai.CompletionTimeout,
		},
		sysLogger,
	)

	publisherService := service.NewPublisherService(constant.BuildVectorStoreTopic, pubSub)
	tracker := service.NewTaskTracker(taskRepo, c.WebSocketHub, sysLogger)
	c.TaskService = service.NewTaskService(tracker, publisherService, sysLogger)

	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		tracker,
		c.Builder,
		c.Stores,
		c.Datasets,
		eventPublisher,
		service.ConsumerOptions{
			Topic:       constant.BuildVectorStoreTopic,
			Concurrency: cfg.Worker.Concurrency,
			InstanceID:  cfg.App.InstanceID,
		},
		sysLogger,
	)
	if natsSub != nil {
		c.BundleSyncService = service.NewBundleSyncService(natsSub, c.Stores, cfg.App.InstanceID, sysLogger)
	}
	if cfg.Data.Watch {
		c.DatasetWatcher = service.NewDatasetWatcher(cfg.Data.DatasetPath, c.TaskService, service.DefaultWatchDebounce, sysLogger)
	}

	classifierService := service.NewClassifierService(
		rag,
		model,
		sessionRepo,
		predictionRepo,
		service.ClassifierOptions{
			BatchLimit:   cfg.Rag.BatchLimit,
			BatchWorkers: cfg.Rag.BatchWorkers,
		},
		sysLogger,
	)
	datasetService := service.NewDatasetService(
		sessionRepo,
		c.Datasets,
		c.Stores,
		c.TaskService,
		rag,
		model,
		service.DatasetOptions{
			EvaluateLimit: cfg.Rag.EvaluateLimit,
			Workers:       cfg.Rag.BatchWorkers,
		},
		sysLogger,
	)
	heldOutService := service.NewHeldOutService(sessionRepo)
	healthService := service.NewHealthService(c.Stores, model, predictionRepo, embeddingProvider.Name())
	adminService := service.NewAdminService(sysLogger)

	// 7. Controllers
	c.ClassifyController = controller.NewClassifyController(classifierService)
	c.DatasetController = controller.NewDatasetController(datasetService)
	c.HeldOutController = controller.NewHeldOutController(heldOutService)
	c.PredictionController = controller.NewPredictionController(classifierService)
	c.TaskController = controller.NewTaskController(c.TaskService)
	c.HealthController = controller.NewHealthController(healthService)
	c.AdminController = controller.NewAdminController(adminService, cfg.App.AdminToken)
	c.TaskStreamHandler = handler.NewTaskStreamHandler(c.TaskService, c.WebSocketHub, wsLogger)

	return c, nil
}

// EnsureDefault installs the default bundle, building it from the base dataset when storage has none.
func (c *Container) EnsureDefault(ctx context.Context) (*vectorstore.Bundle, error) {
	return c.Stores.EnsureDefault(ctx, func(ctx context.Context) (*vectorstore.Bundle, error) {
		rows, err := c.Datasets.BaseRows()
		if err != nil {
			return nil, err
		}
		return c.Builder.Build(ctx, vectorstore.DefaultKey, rows, func(percent int) {
			if percent%25 == 0 {
				c.Logger.Info(constant.LogModuleTask, "Building default store", map[string]interface{}{"progress": percent})
			}
		})
	})
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// NewEmbeddingProvider selects the provider named by EMBEDDING_PROVIDER.
func NewEmbeddingProvider(cfg *config.Config) (embedding.EmbeddingProvider, error) {
	switch cfg.Ai.EmbeddingProvider {
	case "openai":
		if cfg.Keys.OpenAI == "" && cfg.Ai.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("openai embeddings need OPENAI_API_KEY or OPENAI_BASE_URL")
		}
		return embedding.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.OpenAIBaseURL, cfg.Ai.EmbeddingModel), nil
	case "ollama":
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel), nil
	case "gemini":
		if cfg.Keys.GoogleGemini == "" {
			return nil, fmt.Errorf("gemini embeddings need GOOGLE_GEMINI_API_KEY")
		}
		return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel), nil
	case "jina":
		if cfg.Keys.Jina == "" {
			return nil, fmt.Errorf("jina embeddings need JINA_API_KEY")
		}
		return jina.NewJinaProvider(cfg.Keys.Jina, cfg.Ai.EmbeddingModel), nil
	case "local", "":
		return embedding.NewLocalProvider(cfg.Ai.EmbeddingDimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
}

// NewBlobStore opens the backend named by STORE_BACKEND.
func NewBlobStore(ctx context.Context, cfg config.StoreConfig) (vectorstore.BlobStore, error) {
	switch cfg.Backend {
	case "local", "":
		return vectorstore.NewLocalStore(cfg.LocalRoot)
	case "minio":
		return vectorstore.NewMinioStore(ctx, vectorstore.MinioOptions{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		})
	case "s3":
		return vectorstore.NewS3Store(ctx, vectorstore.S3Options{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMBaseURL != "" {
		return cfg.Ai.LLMBaseURL
	}
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return ""
}

func llmAPIKey(cfg *config.Config) string {
	switch cfg.Ai.LLMProvider {
	case "openai":
		return cfg.Keys.OpenAI
	case "anthropic":
		return cfg.Keys.Anthropic
	default:
		return ""
	}
}
