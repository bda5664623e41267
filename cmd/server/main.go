package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"himpana/internal/audit"
	branchhandler "himpana/internal/branch/handler"
	branchstore "himpana/internal/branch/store"
	"himpana/internal/delivery"
	"himpana/internal/guard"
	"himpana/internal/idcard"
	"himpana/internal/member/allocator"
	memberhandler "himpana/internal/member/handler"
	"himpana/internal/member/service"
	memberstore "himpana/internal/member/store"
	"himpana/internal/platform/config"
	"himpana/internal/platform/httpserver"
	"himpana/internal/platform/logger"
	"himpana/internal/platform/metrics"
	redisplatform "himpana/internal/platform/redis"
)

// guardTTL caps how long an in-flight enrollment lock can outlive a crashed
// request.
const guardTTL = 2 * time.Minute

// main wires dependencies and owns the process lifecycle; domain logic lives
// in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m := metrics.New()

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var inflight *guard.Guard
	if redisClient != nil {
		defer redisClient.Close()
		inflight = guard.New(redisClient, guardTTL, log)
		log.Info("enrollment in-flight guard enabled")
	}

	var recorder *audit.Recorder
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer publisher.Close()
		recorder = audit.NewRecorder(publisher, 256, log)
		log.Info("audit publisher enabled", "topic", cfg.Kafka.AuditTopic)
	}

	members := memberstore.NewPostgresStore(db)
	branches := branchstore.NewPostgresStore(db)

	images, err := idcard.NewStorage(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("prepare image storage: %w", err)
	}

	var renderer idcard.Renderer = idcard.StubRenderer{}
	if cfg.RendererURL != "" {
		renderer = idcard.NewHTTPRenderer(cfg.RendererURL)
	} else {
		log.Warn("RENDERER_URL not set, using stub card renderer")
	}

	var session *delivery.Session
	var sender delivery.Sender
	if cfg.GatewayToken != "" {
		transport := delivery.NewGatewayTransport(cfg.GatewayURL, cfg.GatewayToken, cfg.Delivery.PingInterval, log)
		session = delivery.NewSession(transport, delivery.Config{
			MaxAttempts:  cfg.Delivery.MaxAttempts,
			BackoffStep:  cfg.Delivery.BackoffStep,
			RestartDelay: cfg.Delivery.RestartDelay,
		}, log, m)
		sender = session
	} else {
		log.Warn("WA_GATEWAY_TOKEN not set, card delivery disabled")
	}

	svc := service.New(service.Deps{
		Members:     members,
		Allocator:   allocator.New(branches, members, log),
		Renderer:    renderer,
		Images:      images,
		Sender:      sender,
		Guard:       inflight,
		Audit:       recorder,
		Metrics:     m,
		Logger:      log,
		CountryCode: cfg.CountryCode,
	})

	router := chi.NewRouter()
	memberhandler.New(svc, log, m).Register(router)
	branchhandler.New(branches, log, m).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting himpana server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if session != nil {
		g.Go(func() error {
			return session.Run(gctx)
		})
	}

	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}

	return g.Wait()
}
