package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nguyenthanhak8-hue/LSTD/internal/cache"
	"github.com/nguyenthanhak8-hue/LSTD/internal/config"
	"github.com/nguyenthanhak8-hue/LSTD/internal/httpapi"
	"github.com/nguyenthanhak8-hue/LSTD/internal/hub"
	"github.com/nguyenthanhak8-hue/LSTD/internal/queue"
	"github.com/nguyenthanhak8-hue/LSTD/internal/scheduler"
	"github.com/nguyenthanhak8-hue/LSTD/internal/sensor"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store/postgres"
	"github.com/nguyenthanhak8-hue/LSTD/internal/telemetry"
)

// subscribeMessage is the only message clients send over the realtime
// channel. An empty tenxa clears the subscription.
type subscribeMessage struct {
	Tenxa string `json:"tenxa"`
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	shutdownTelemetry := telemetry.Setup("kiosk-service", cfg, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	h := hub.New(logger)
	registry := scheduler.NewRegistry()
	engine := queue.NewEngine(st, h, registry, logger)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	tenants := cache.NewTenants(st, redisClient, cfg.TenantCacheTTL)

	supervisor := scheduler.NewSupervisor(st, engine, registry, cfg.AutoCallInterval, logger)
	if err := supervisor.Start(context.Background()); err != nil {
		log.Fatalf("scheduler start: %v", err)
	}

	var seatListener *sensor.Listener
	if cfg.MQTTBrokerURL != "" {
		seatListener, err = sensor.NewListener(cfg.MQTTBrokerURL, cfg.MQTTClientID, engine, tenants, logger)
		if err != nil {
			log.Fatalf("seat sensor connect: %v", err)
		}
	}

	verifier := httpapi.NewTokenVerifier(cfg.JWTSecret)
	handler := httpapi.NewHandler(engine, st, tenants, verifier)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/realtime/", newRealtimeHandler(h))
	mux.Handle("/", handler.Routes())

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(mux), "kiosk-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("kiosk-service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if seatListener != nil {
		seatListener.Stop()
	}
	supervisor.Stop()
}

func newRealtimeHandler(h *hub.Hub) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			var sub subscribeMessage
			if err := json.Unmarshal([]byte(msg), &sub); err != nil {
				continue
			}
			h.Subscribe(client, sub.Tenxa)
		}
	})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
