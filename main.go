package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed-import-service/controllers"
	"feed-import-service/oracle"
	"feed-import-service/repository"
	"feed-import-service/routes"
	"feed-import-service/services"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()        // Flushes buffer, if any
	zap.ReplaceGlobals(logger) // Set the global logger

	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	// --- 1. Initialization ---
	cfg, err := LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zap.L().Warn("Failed to parse REDIS_URL, falling back to default", zap.Error(err))
		redisOpts = &redis.Options{Addr: "redis:6379", DB: 0}
	}
	rdb := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongo.Connect(ctx, mongoopts.Client().ApplyURI(cfg.MongoURL))
	cancel()
	if err != nil {
		zap.L().Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	db := mongoClient.Database(cfg.MongoDB)

	// --- 2. Dependency Injection (Wiring the layers together) ---

	importStore := repository.NewMongoImportStore(mongoClient, db)
	if err := importStore.EnsureIndexes(context.Background()); err != nil {
		zap.L().Warn("Failed to ensure import indexes", zap.Error(err))
	}

	feedStore, err := buildFeedStore(cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize feed storage", zap.Error(err))
	}

	oracleClient := oracle.NewResponseCache(
		oracle.NewHTTPClient(cfg.OracleURL, cfg.OracleAPIKey, cfg.OracleModel, cfg.OracleTimeout),
		cfg.OracleCacheSize,
	)

	catalogClient := services.NewCatalogClient(cfg.CatalogURL)
	locker := services.NewChunkLocker(rdb)
	resolver := services.NewAttributeResolver(cfg.StrictMode)
	runner := services.NewImportRunner(importStore, feedStore, catalogClient, locker, resolver, cfg.ChunkSize)
	inference := services.NewInferenceService(oracleClient)
	importService := services.NewImportService(importStore, feedStore, runner, inference, cfg.ChunkSize).WithQueue(rdb)

	importController := controllers.NewImportController(importService, controllers.Config{})

	// Background worker drives queued imports chunk by chunk.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	services.StartImportWorker(workerCtx, rdb, importService)

	// --- 3. HTTP Server & Middleware ---

	r := gin.New()
	r.Use(gin.Recovery()) // Recover from panics

	// Add request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- 4. Route Registration ---

	routes.RegisterImportRoutes(r, importController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// --- 5. Graceful Shutdown ---

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zap.L().Info("Feed Import Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for an interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down Feed Import Service...")

	stopWorker()

	// Create a context with a timeout to allow for cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		zap.L().Error("Failed to disconnect MongoDB", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		zap.L().Error("Failed to close Redis", zap.Error(err))
	}

	zap.L().Info("Feed Import Service stopped gracefully")
}

// buildFeedStore prefers S3 (LocalStack-compatible) when AWS settings
// are present and falls back to local disk otherwise.
func buildFeedStore(cfg *Config) (repository.RecordSource, error) {
	bucket := os.Getenv("AWS_S3_BUCKET")
	if bucket == "" {
		zap.L().Info("AWS_S3_BUCKET not set, using local feed storage", zap.String("dir", cfg.FeedStorageDir))
		return repository.NewLocalFeedStore(cfg.FeedStorageDir)
	}

	awsRegion := os.Getenv("AWS_REGION")
	if awsRegion == "" {
		awsRegion = "us-east-1"
	}
	awsEndpoint := os.Getenv("AWS_ENDPOINT") // e.g. http://localstack:4566
	awsAccessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	awsSecret := os.Getenv("AWS_SECRET_ACCESS_KEY")

	cfgOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(awsRegion),
	}
	if awsAccessKey != "" || awsSecret != "" {
		cfgOpts = append(cfgOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecret, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(), cfgOpts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if awsEndpoint != "" {
			o.BaseEndpoint = aws.String(awsEndpoint)
		}
	})

	prefix := os.Getenv("AWS_S3_PREFIX")
	if prefix == "" {
		prefix = "feeds/"
	}
	return repository.NewS3FeedStore(s3Client, bucket, prefix), nil
}
