package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"aven-support/internal/config"
	"aven-support/internal/db"
	"aven-support/internal/handlers"
	"aven-support/internal/repositories"
	"aven-support/internal/routes"
	"aven-support/internal/services"
	"aven-support/internal/workers"
)

// Server wires the application together and owns its lifecycle
type Server struct {
	httpServer *http.Server
	workerPool *workers.WorkerPool
	vectorRepo repositories.VectorRepository
	jobRepo    repositories.JobRepository
	logger     *log.Logger
}

// New builds the server from configuration. Chat remains available even
// when Redis is down; only ingestion submission degrades.
func New(cfg *config.Config) (*Server, error) {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	vectorRepo, err := initVectorRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	jobRepo := initJobRepository(cfg, logger)

	embedder := services.NewEmbeddingService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbedTimeout, logger)
	completer := services.NewCompletionService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.CompletionModel, cfg.CompleteTimeout, logger)
	ragService := services.NewRAGService(embedder, completer, vectorRepo, cfg, logger)
	ingestService := services.NewIngestService(services.NewChunker(), embedder, vectorRepo, jobRepo, logger)

	h := &routes.Handlers{
		Chat:        handlers.NewChatHandler(ragService, logger),
		Completions: handlers.NewCompletionsHandler(ragService, logger),
		Config:      handlers.NewConfigHandler(cfg, logger),
		Health:      handlers.NewHealthHandler(vectorRepo, jobRepo, embedder, completer, logger),
		Ingest:      handlers.NewIngestHandler(ingestService, logger),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("http://localhost"+cfg.ServerAddr+"/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	pool := workers.NewWorkerPool()
	if jobRepo != nil {
		pool.AddWorker(workers.NewIngestWorker(
			workers.DefaultWorkerConfig("ingest-worker"),
			jobRepo,
			ingestService,
			logger,
		))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.ServerAddr,
			Handler: corsMiddleware(cfg, router),
		},
		workerPool: pool,
		vectorRepo: vectorRepo,
		jobRepo:    jobRepo,
		logger:     logger,
	}, nil
}

// Start launches the background workers and serves HTTP until the listener
// fails or Shutdown is called
func (s *Server) Start() error {
	if s.workerPool.Count() > 0 {
		if err := s.workerPool.StartAll(context.Background()); err != nil {
			return err
		}
		s.logger.Printf("Started %d background worker(s)", s.workerPool.Count())
	}

	s.logger.Printf("Listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP listener and workers, then closes the stores
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down...")

	err := s.httpServer.Shutdown(ctx)

	if stopErr := s.workerPool.StopAll(ctx); stopErr != nil && err == nil {
		err = stopErr
	}

	s.vectorRepo.Close()
	if s.jobRepo != nil {
		s.jobRepo.Close()
	}

	return err
}

// corsMiddleware answers preflight requests and reflects allowed origins
func corsMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && cfg.OriginAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.AllowedOrigins) == 0 {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// initVectorRepository connects to ChromaDB and ensures the support
// collection exists. The server refuses to start without its knowledge
// store.
func initVectorRepository(cfg *config.Config, logger *log.Logger) (repositories.VectorRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Printf("Connecting to ChromaDB: %s:%d", cfg.ChromaHost, cfg.ChromaPort)

	client := db.NewChromaDBClient(db.ChromaDBConfig{
		Host:     cfg.ChromaHost,
		Port:     cfg.ChromaPort,
		Tenant:   cfg.ChromaTenant,
		Database: cfg.ChromaDatabase,
	})

	vectorRepo := repositories.NewChromaVectorRepository(client, cfg.ChromaCollection)
	if err := vectorRepo.Ping(ctx); err != nil {
		return nil, err
	}
	if err := vectorRepo.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	logger.Println("ChromaDB connected")
	return vectorRepo, nil
}

// initJobRepository connects to Redis. A failure is logged and tolerated;
// ingestion is disabled but chat keeps working.
func initJobRepository(cfg *config.Config, logger *log.Logger) repositories.JobRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Printf("Connecting to Redis: %s", cfg.RedisAddr())

	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Printf("Failed to create Redis client: %v", err)
		logger.Println("Ingestion disabled; chat endpoints unaffected")
		return nil
	}

	if err := redisClient.Ping(ctx); err != nil {
		logger.Printf("Redis connection failed: %v", err)
		logger.Println("Ingestion disabled; chat endpoints unaffected")
		logger.Println("Hint: ensure Redis is running (docker run -d -p 6379:6379 redis:7-alpine)")
		return nil
	}

	logger.Println("Redis connected")
	return repositories.NewRedisJobRepository(redisClient.GetClient())
}
