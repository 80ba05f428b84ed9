package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidbase-backend/internal/ai"
	"vidbase-backend/internal/config"
	"vidbase-backend/internal/costs"
	"vidbase-backend/internal/database"
	"vidbase-backend/internal/embedding"
	"vidbase-backend/internal/handlers"
	"vidbase-backend/internal/middleware"
	"vidbase-backend/internal/pipeline"
	"vidbase-backend/internal/repository"
	"vidbase-backend/internal/router"
	"vidbase-backend/internal/transcript"
	"vidbase-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Vidbase Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	videoRepo := repository.NewVideoRepo(pool)
	chunkRepo := repository.NewChunkRepo(pool)
	costRepo := repository.NewCostLedgerRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := ai.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini client initialized")

	// ──── Initialize Transcript Router ────
	// Providers register with their retry policy: free caption sources
	// get more attempts because retrying them costs nothing, while the
	// paid speech-to-text provider bills per attempt.
	transcriptRouter := transcript.NewRouter()
	transcriptRouter.Register(transcript.NewYouTubeCaptionsProvider(), 3, 2*time.Second)
	transcriptRouter.Register(transcript.NewHostedCaptionsProvider(cfg.HostedCaptionsBaseURL), 3, 2*time.Second)
	transcriptRouter.Register(transcript.NewSpeechToTextProvider(geminiService, cfg.StoragePath), 2, 10*time.Second)

	// ──── Step 6: Start Pipeline Worker Pool ────
	embedder := embedding.NewGenerator(geminiService, ai.EmbeddingDimensions)
	publisher := pipeline.NewRedisPublisher(redisClients.PubSub)
	orchestrator := pipeline.NewOrchestrator(videoRepo, chunkRepo, transcriptRouter, embedder, costRepo, publisher)

	workerPool := pipeline.NewPool(redisClients.Queue, orchestrator, cfg.WorkerCount, cfg.CreatorConcurrency)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	rollupScheduler := costs.NewRollupScheduler(costRepo, redisClients.Queue)
	rollupScheduler.Start()
	log.Println("✓ Cost rollup scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.ServiceTokenSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	serviceAuth := middleware.NewServiceAuth(cfg.ServiceTokenSecret)
	queue := pipeline.NewQueue(redisClients.Queue)
	videoHandler := handlers.NewVideoHandler(videoRepo, chunkRepo, queue)
	costHandler := handlers.NewCostHandler(costRepo)

	r := router.New(serviceAuth, videoHandler, costHandler, wsHub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		rollupScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Vidbase Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/events", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
