// marketplace-service
//
// Job lifecycle and bilateral feedback for the Dom/Sub marketplace.
// Exposes a REST API (chi) and a gRPC API used by the Gateway to implement:
//   - job posting, editing, listing and deletion
//   - applications, retraction and applicant selection
//   - status transitions (filled → completed / failed, open → cancelled)
//   - feedback submission and flagging once a job is completed
//   - reputation reads, recomputed after each submission and by cron
//
// Publishes lifecycle events to Redis for Gateway SSE forward.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"findsub/marketplace-service/internal/application"
	"findsub/marketplace-service/internal/config"
	"findsub/marketplace-service/internal/db"
	"findsub/marketplace-service/internal/events"
	"findsub/marketplace-service/internal/feedback"
	"findsub/marketplace-service/internal/grpcserver"
	"findsub/marketplace-service/internal/httpapi"
	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/job"
	"findsub/marketplace-service/internal/kink"
	"findsub/marketplace-service/internal/reputation"
	"findsub/marketplace-service/internal/store/memory"
	"findsub/marketplace-service/internal/store/postgres"
	"findsub/marketplace-service/internal/user"
)

const version = "1.0.0"

// backend is everything the domain services need from storage.
type backend interface {
	job.Store
	application.Store
	feedback.Store
	kink.Store
	user.Store
	reputation.Source
}

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[marketplace-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ─────────────────────────────────────────────────────────────
	var store backend
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		log.Println("[marketplace-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[marketplace-service] PostgreSQL: %v", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("[marketplace-service] Migrate: %v", err)
		}
		log.Println("[marketplace-service] PostgreSQL connected ✓")
		store = postgres.NewStore(pool)
	default:
		log.Println("[marketplace-service] Using in-memory storage")
		mem := memory.NewStore()
		if cfg.ProfileSeedFile != "" {
			n, err := mem.SeedProfilesFromFile(cfg.ProfileSeedFile)
			if err != nil {
				log.Fatalf("[marketplace-service] Profile seed: %v", err)
			}
			log.Printf("[marketplace-service] Seeded %d profiles from %s", n, cfg.ProfileSeedFile)
		}
		store = mem
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	var (
		rdb   *redis.Client
		pub   events.Publisher = events.Nop{}
		cache reputation.Cache
	)
	if cfg.RedisURL != "" {
		log.Println("[marketplace-service] Connecting to Redis…")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[marketplace-service] Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("[marketplace-service] Redis connected ✓")
		pub = events.NewRedisPublisher(rdb)
		cache = reputation.NewRedisCache(rdb, cfg.ReputationCacheTTL)
	}

	// ── Domain services ─────────────────────────────────────────────────────
	kinks := kink.NewRegistry(store)
	if cfg.KinkSeedFile != "" {
		n, err := kinks.SeedFromFile(ctx, cfg.KinkSeedFile)
		if err != nil {
			log.Fatalf("[marketplace-service] Kink seed: %v", err)
		}
		log.Printf("[marketplace-service] Seeded %d kinks from %s", n, cfg.KinkSeedFile)
	}

	aggregator := reputation.NewAggregator(store, store, cache, pub)
	jobs := job.NewService(store, kinks, pub)
	ledger := application.NewLedger(store, store, pub)
	collector := feedback.NewCollector(store, store, kinks,
		feedback.NewModerator(cfg.FeedbackFlagTerms), aggregator, pub)
	verifier := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if verifier == nil {
		log.Println("[marketplace-service] JWT_SECRET unset, trusting gateway identity headers")
	}

	// ── Reputation cron ─────────────────────────────────────────────────────
	sched := reputation.NewScheduler(aggregator, cfg.ReputationIntervalMinutes)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[marketplace-service] Scheduler: %v", err)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	h := httpapi.NewHandler(httpapi.Config{
		Jobs:       jobs,
		Ledger:     ledger,
		Feedback:   collector,
		Reputation: aggregator,
		Kinks:      kinks,
		Verifier:   verifier,
	})
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[marketplace-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[marketplace-service] HTTP server error: %v", err)
		}
	}()

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("[marketplace-service] gRPC listen: %v", err)
	}
	gs := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor))
	grpcserver.Register(gs, grpcserver.NewServer(grpcserver.Services{
		Jobs:       jobs,
		Ledger:     ledger,
		Feedback:   collector,
		Reputation: aggregator,
		Verifier:   verifier,
	}))

	go func() {
		log.Printf("[marketplace-service] gRPC listening on :%s", cfg.GRPCPort)
		if err := gs.Serve(lis); err != nil {
			log.Fatalf("[marketplace-service] gRPC server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[marketplace-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[marketplace-service] Shutdown error: %v", err)
	}
	gs.GracefulStop()
	cancel()
	sched.Stop()
	log.Println("[marketplace-service] Stopped.")
}
