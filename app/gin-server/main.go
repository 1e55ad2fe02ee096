package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nikzan/Multimodal-Support-System/config"
	"github.com/nikzan/Multimodal-Support-System/internal/api/handlers"
	"github.com/nikzan/Multimodal-Support-System/internal/api/middleware"
	"github.com/nikzan/Multimodal-Support-System/internal/api/routes"
	"github.com/nikzan/Multimodal-Support-System/internal/cache"
	"github.com/nikzan/Multimodal-Support-System/internal/logger"
	"github.com/nikzan/Multimodal-Support-System/internal/notify"
	"github.com/nikzan/Multimodal-Support-System/internal/providers/embedding"
	"github.com/nikzan/Multimodal-Support-System/internal/providers/llm"
	"github.com/nikzan/Multimodal-Support-System/internal/providers/stt"
	mongorepo "github.com/nikzan/Multimodal-Support-System/internal/repositories/mongo"
	pgrepo "github.com/nikzan/Multimodal-Support-System/internal/repositories/postgres"
	"github.com/nikzan/Multimodal-Support-System/internal/services"
	"github.com/nikzan/Multimodal-Support-System/internal/storage"
	"github.com/nikzan/Multimodal-Support-System/internal/workers"
)

func main() {
	_ = godotenv.Load()

	appLog := logger.New()
	ctx := context.Background()

	// Databases
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(); err != nil {
		log.Fatalf("PostgreSQL migration error: %v", err)
	}
	appLog.Info("PostgreSQL connected")

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	appLog.Info("MongoDB connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	appLog.Info("Redis connected")

	// AI and storage providers
	projectID := os.Getenv("GCP_PROJECT")
	location := os.Getenv("GCP_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	llmProvider, err := llm.NewVertexGemini(ctx, projectID, location, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatalf("Vertex Gemini init error: %v", err)
	}
	defer llmProvider.Close()

	sttProvider, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("Google Speech init error: %v", err)
	}
	defer sttProvider.Close()

	embedder, err := embedding.NewVertexEmbedder(ctx, projectID, location, os.Getenv("EMBEDDING_MODEL"))
	if err != nil {
		log.Fatalf("Vertex embedder init error: %v", err)
	}
	defer embedder.Close()

	store, err := storage.NewGCSStore(ctx, os.Getenv("GCS_BUCKET"))
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer store.Close()

	// Repositories
	mongoDB := config.MongoClient.Database(mongoDBName())
	tenantRepo := pgrepo.NewTenantRepo(config.PostgresDB)
	ticketRepo := pgrepo.NewTicketRepo(config.PostgresDB)
	messageRepo := pgrepo.NewMessageRepo(config.PostgresDB)
	knowledgeRepo := pgrepo.NewKnowledgeRepo(config.PostgresDB)
	suggestionLog := mongorepo.NewSuggestionLogRepo(mongoDB)

	// Services
	timeouts := services.AITimeoutsFromEnv()
	publisher := notify.NewRedisPublisher(config.RedisClient, appLog)
	redisCache := cache.NewRedisCache(config.RedisClient)

	normalizer := services.NewMediaNormalizer(sttProvider, llmProvider, store, timeouts, appLog)
	enricher := services.NewEnricher(llmProvider, timeouts, appLog)
	suggester := services.NewSuggester(embedder, llmProvider, knowledgeRepo, services.DefaultTopK, timeouts, appLog)

	refreshQueue := &workers.RedisRefreshQueue{Redis: config.RedisClient}

	bucket := services.NewBucketService(services.BucketDeps{
		Tickets:   ticketRepo,
		Messages:  messageRepo,
		Suggester: suggester,
		Publisher: publisher,
		Cache:     redisCache,
		SugLog:    suggestionLog,
		Refresh:   refreshQueue,
	}, appLog)

	chat := services.NewChatService(ticketRepo, messageRepo, normalizer, bucket, publisher, appLog)
	tickets := services.NewTicketService(services.TicketDeps{
		Tickets:    ticketRepo,
		Messages:   messageRepo,
		Tenants:    tenantRepo,
		Normalizer: normalizer,
		Enricher:   enricher,
		Suggester:  suggester,
		Bucket:     bucket,
		Chat:       chat,
		Publisher:  publisher,
	}, appLog)
	knowledge := services.NewKnowledgeService(knowledgeRepo, suggester, appLog)
	tenants := services.NewTenantService(tenantRepo, appLog)

	// Background suggestion refresh
	pool := &workers.RefreshWorkerPool{
		Redis:      config.RedisClient,
		Bucket:     bucket,
		NumWorkers: envInt("REFRESH_WORKERS", 3),
		Logger:     appLog,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("refresh worker pool error: %v", err)
	}

	// HTTP
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(appLog))

	routes.RegisterRoutes(r, routes.Deps{
		Tenants:   tenants,
		Ticket:    handlers.NewTicketHandler(tickets, bucket),
		Chat:      handlers.NewChatHandler(chat),
		Knowledge: handlers.NewKnowledgeHandler(knowledge),
		Tenant:    handlers.NewTenantHandler(tenants),
		WS:        handlers.NewWSHandler(tickets, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func mongoDBName() string {
	if v := os.Getenv("MONGO_DB"); v != "" {
		return v
	}
	return "support"
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
