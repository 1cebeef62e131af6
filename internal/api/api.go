package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/apiguardian/apiguardian/internal/adapters"
	"github.com/apiguardian/apiguardian/internal/config"
	"github.com/apiguardian/apiguardian/internal/migrations"
	"github.com/apiguardian/apiguardian/internal/pubsub"
	"github.com/apiguardian/apiguardian/internal/services"
	"github.com/apiguardian/apiguardian/pkg/gateway"
	"github.com/apiguardian/apiguardian/pkg/gateway/providers"
	"github.com/apiguardian/apiguardian/pkg/gateway/providers/anthropic"
	"github.com/apiguardian/apiguardian/pkg/gateway/providers/openai"
	"github.com/apiguardian/apiguardian/pkg/gateway/ratelimit"
	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

// Server is the HTTP server hosting both the management API and the proxy.
type Server struct {
	srv      *fasthttp.Server
	addr     string
	services *services.Services
	gateway  *gateway.Gateway
	pubsub   *pubsub.PubSub
}

// New wires up the full application: migrations, services, the forwarding
// pipeline and cache invalidation.
func New() *Server {
	conf := config.ReadConfig()

	m, err := migrations.NewMigrator()
	if err != nil {
		panic("unable to create migrator")
	}

	err = m.Up(0)
	if err != nil {
		panic("unable to run migrations")
	}

	cipher := secretcipher.New(conf.ENCRYPTION_KEY)
	if !cipher.Configured() {
		slog.Warn("ENCRYPTION_KEY is not set; proxy requests will be rejected until it is configured")
	}

	svc := services.NewServices(conf, cipher)

	directory := adapters.NewServiceDirectory(svc.Project)

	ps := pubsub.NewPubSub(conf)
	ps.Subscribe(func(event pubsub.ConfigChangeEvent) {
		if event.ChangeType == pubsub.ChangeTypeProject {
			directory.Invalidate()
		}
	})
	if err := ps.Start(); err != nil {
		slog.Error("Unable to start pubsub, key cache will not invalidate across instances", slog.Any("error", err))
	}

	registry := providers.NewRegistry(
		openai.New(&openai.AdapterOptions{BaseURL: conf.OPENAI_BASE_URL}),
		anthropic.New(&anthropic.AdapterOptions{BaseURL: conf.ANTHROPIC_BASE_URL}),
	)

	var limiter ratelimit.Storage
	if conf.REDIS_ADDR != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     conf.REDIS_ADDR,
			Password: conf.REDIS_PASSWORD,
		})
		rs := ratelimit.NewRedisStorage(client, "")
		if err := rs.Ping(context.Background()); err != nil {
			slog.Error("Unable to reach redis, falling back to in-memory rate limiting", slog.Any("error", err))
			limiter = ratelimit.NewInMemoryStorage()
		} else {
			limiter = rs
		}
	} else {
		limiter = ratelimit.NewInMemoryStorage()
	}

	gw := gateway.New(&gateway.Options{
		Directory:       directory,
		Cipher:          cipher,
		Registry:        registry,
		RateLimiter:     limiter,
		Usage:           adapters.NewServiceUsageRecorder(svc.Usage),
		UpstreamTimeout: time.Duration(conf.UPSTREAM_TIMEOUT_SECONDS) * time.Second,
	})

	s := &Server{
		srv:      &fasthttp.Server{},
		addr:     fmt.Sprintf("0.0.0.0:%s", conf.PORT),
		services: svc,
		gateway:  gw,
		pubsub:   ps,
	}

	s.srv.Handler = s.initRoutes()

	return s
}

// Start the rest server
func (s *Server) Start() {
	slog.Info("Starting REST server...", slog.String("addr", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	s.pubsub.Stop()
	if err := s.srv.Shutdown(); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}
