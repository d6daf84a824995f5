// @title           Assistant Core API
// @version         1.0
// @description     Multi-domain assistant backend: document ingestion, vector retrieval, web search, domain data APIs and sandboxed code execution.
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/data/redisstore"
	"github.com/laxjovial/assistant-core/internal/data/store"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/internal/export"
	"github.com/laxjovial/assistant-core/internal/handlers"
	"github.com/laxjovial/assistant-core/internal/job"
	"github.com/laxjovial/assistant-core/internal/mcpserver"
	"github.com/laxjovial/assistant-core/internal/middleware"
	"github.com/laxjovial/assistant-core/internal/rag"
	"github.com/laxjovial/assistant-core/internal/rag/embedding"
	"github.com/laxjovial/assistant-core/internal/rag/embedding/googleembed"
	"github.com/laxjovial/assistant-core/internal/rag/embedding/openaiembed"
	"github.com/laxjovial/assistant-core/internal/rag/llm/gemini"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb/localdb"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb/qdrantdb"
	"github.com/laxjovial/assistant-core/internal/rbac"
	"github.com/laxjovial/assistant-core/internal/server"
	"github.com/laxjovial/assistant-core/internal/tools/datafetch"
	"github.com/laxjovial/assistant-core/internal/tools/exec"
	"github.com/laxjovial/assistant-core/internal/tools/search"
	"github.com/laxjovial/assistant-core/internal/users"
	"github.com/laxjovial/assistant-core/internal/worker"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var (
	listenAddr        string
	dataDir           string
	mcpMode           bool
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	_ = godotenv.Load()

	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.StringVar(&dataDir, "data-dir", "data", "root directory for config, uploads, exports and the local vector store")
	flag.BoolVar(&mcpMode, "mcp", false, "serve the tool surface over MCP stdio instead of HTTP")
	flag.Parse()

	cfg, err := config.Load(dataDir)
	if err != nil {
		panic(err)
	}

	logger_i.Init(cfg.IsProd())
	var logger = logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
	}
	if redisJobStore := store.GetRedisJobStore(serviceContext); redisJobStore != nil {
		serviceConfig.JobStore = redisJobStore
	} else {
		logger.Error("Redis job store is offline, falling back to in-memory")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
	}
	logger.Info("Starting job service")
	jobService := job.InitJobService(serviceConfig)

	settings := cfg.RAG()

	var vectorDB vectordb.DataProcessor
	if cfg.GetString("rag.vector_store", "local") == "qdrant" {
		if holder := qdrantdb.GetQuadrantClient(serviceContext); holder != nil {
			vectorDB = holder
		}
	} else {
		vectorDB = localdb.NewStore(filepath.Join(dataDir, config.VectorRoot))
	}

	var embedder embedding.Embedder
	switch settings.EmbeddingMode {
	case "google":
		googleKey, _ := cfg.GetSecret("google_api_key")
		embedder = googleembed.GetGoogleEmbeddingClient(serviceContext, settings.EmbeddingModel, googleKey)
	default:
		openaiKey, _ := cfg.GetSecret("openai_api_key")
		embedder = openaiembed.GetOpenAIEmbeddingClient(settings.EmbeddingModel, openaiKey, config.EmbeddingOutputDimensionality)
	}

	geminiKey, _ := cfg.GetSecret("google_api_key")
	llmProvider := gemini.GetGeminiClient(serviceContext, cfg.GetString("llm.model", "gemini-2.0-flash"), geminiKey)

	if vectorDB == nil || embedder == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "EmbeddingService", embedder != nil, "LLMProvider", llmProvider != nil)
		return
	}

	exporter := export.NewWriter(dataDir)
	ragService := rag.NewService(vectorDB, llmProvider, embedder, exporter, settings, dataDir)

	//users and auth
	userRepo, err := users.NewRepository(dataDir)
	if err != nil {
		logger.Error("Could not open the user repository", "error", err)
		return
	}
	userService := users.NewService(userRepo,
		tokenStore(serviceContext, config.RedisSessionStore, logger),
		tokenStore(serviceContext, config.RedisOTPStore, logger),
		tokenStore(serviceContext, config.RedisResetStore, logger))

	gate := rbac.NewGate(userRepo, cfg.TierCapabilities())

	searcher := search.NewSearcher(cfg.SearchAPIs, cfg.ResolveKey)
	fetcher := datafetch.NewFetcher(cfg.Registries, cfg.ResolveKey)
	interpreter := exec.NewInterpreter(gate, cfg.GetString("tools.sandbox_endpoint", ""))

	if mcpMode {
		mcpServer := mcpserver.NewServer(mcpserver.Ports{
			RagService:  ragService,
			Searcher:    searcher,
			Fetcher:     fetcher,
			Interpreter: interpreter,
		})
		if err := mcpServer.Run(serviceContext); err != nil {
			logger.Error("MCP server stopped", "error", err)
		}
		return
	}

	handlers.InitHandlers(handlers.Deps{
		JobService:  jobService,
		RagService:  ragService,
		UserService: userService,
		Gate:        gate,
		Searcher:    searcher,
		Fetcher:     fetcher,
		Interpreter: interpreter,
		Exporter:    exporter,
	})
	middleware.InitAuth(handlers.SessionValidator())

	//init worker pool
	worker.InitServices(jobService, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

// tokenStore prefers redis and falls back to the in-process store when
// redis is offline.
func tokenStore(ctx context.Context, dbType int, logger *logger_i.Logger) users.TokenStore {
	if rs := redisstore.GetRedisStore(ctx, dbType); rs != nil {
		return users.NewRedisTokenStore(rs)
	}
	logger.Warn("Redis token store is offline, falling back to in-memory", "db", dbType)
	return users.NewMemoryTokenStore()
}
