package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SignHolo/companion/internal/api"
	"github.com/SignHolo/companion/internal/clock"
	"github.com/SignHolo/companion/internal/config"
	"github.com/SignHolo/companion/internal/embedding"
	"github.com/SignHolo/companion/internal/gateway"
	"github.com/SignHolo/companion/internal/intent"
	"github.com/SignHolo/companion/internal/orchestrator"
	"github.com/SignHolo/companion/internal/provider"
	"github.com/SignHolo/companion/internal/reflection"
	"github.com/SignHolo/companion/internal/store"
	"github.com/SignHolo/companion/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting companion...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/companion.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Provider router: first registered is the default, the rest form the
	// fallback chain.
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		switch pc.Type {
		case "openai":
			p, perr := provider.NewOpenAIProvider(pc, logger)
			if perr != nil {
				logger.Warn("provider skipped", zap.String("id", pc.ID), zap.Error(perr))
				continue
			}
			router.Register(p)
		case "anthropic":
			p, perr := provider.NewAnthropicProvider(pc, logger)
			if perr != nil {
				logger.Warn("provider skipped", zap.String("id", pc.ID), zap.Error(perr))
				continue
			}
			router.Register(p)
		default:
			logger.Warn("unknown provider type",
				zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}
	if len(cfg.Fallbacks) > 0 {
		router.SetFallbacks(cfg.Fallbacks)
	}
	if _, ok := router.Default(); !ok {
		logger.Fatal("no generation provider available; set an API key for at least one configured provider")
	}

	// PostgreSQL is the system of record; the companion cannot run without
	// its memories.
	st, err := store.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	defer st.Close()
	if err := st.Migrate(context.Background(), "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Turn gate: Redis when configured, in-process otherwise.
	var gate orchestrator.Gate = orchestrator.NewLocalGate()
	if cfg.Database.Redis.URL != "" {
		opts, rerr := redis.ParseURL(cfg.Database.Redis.URL)
		if rerr != nil {
			logger.Warn("bad redis URL, using local turn gate", zap.Error(rerr))
		} else {
			client := redis.NewClient(opts)
			if perr := client.Ping(context.Background()).Err(); perr != nil {
				logger.Warn("redis unavailable, using local turn gate", zap.Error(perr))
			} else {
				gate = orchestrator.NewRedisGate(client)
				logger.Info("Redis turn gate active")
			}
		}
	}

	// Embedding and the vector index are optional; without them recall
	// falls back to recency and importance alone.
	var (
		embedder embedding.Provider
		index    *vectorstore.Index
	)
	if cfg.Embedding.Provider != "" {
		embedder, err = embedding.New(cfg.Embedding)
		if err != nil {
			logger.Warn("embedding disabled", zap.Error(err))
		}
	}
	if embedder != nil && cfg.Database.Qdrant.Host != "" {
		ix, qerr := vectorstore.Open(cfg.Database.Qdrant)
		if qerr != nil {
			logger.Warn("qdrant unavailable, similarity scoring disabled", zap.Error(qerr))
		} else {
			defer ix.Close()
			dim := uint64(cfg.Embedding.Dimension)
			if dim == 0 {
				dim = 1536
			}
			if qerr := ix.Ensure(context.Background(), dim); qerr != nil {
				logger.Warn("qdrant collection not ready", zap.Error(qerr))
			} else {
				index = ix
				logger.Info("Vector index ready")
			}
		}
	}

	classifier := intent.NewClassifier(router, logger)
	monologist := reflection.NewMonologist(router, logger)

	persona := orchestrator.Persona{
		Name:         cfg.Persona.Name,
		SystemPrompt: cfg.Persona.SystemPrompt,
		Traits:       cfg.Persona.Traits,
	}
	opts := orchestrator.Options{
		Embedder:   embedder,
		Monologist: monologist,
	}
	if index != nil {
		opts.Index = index
	}
	orch := orchestrator.New(st, gate, classifier, router, persona, logger, opts)

	// Idle-time reflection heartbeat.
	var heartbeat *clock.Heartbeat
	if cfg.Reflection.Enabled {
		interval := time.Duration(cfg.Reflection.IntervalHours) * time.Hour
		heartbeat = clock.NewHeartbeat(interval, orch.ReflectIdle, logger)
		heartbeat.Start()
		logger.Info("Reflection heartbeat started", zap.Duration("interval", interval))
	}

	// Chat surfaces.
	gwCtx, gwCancel := context.WithCancel(context.Background())
	gw := gateway.New(orch.HandleTurn, logger)
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}
	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if err := gw.ConnectAll(gwCtx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	handler := api.NewHandler(orch, st, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}
	go func() {
		logger.Info("Companion listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	if heartbeat != nil {
		heartbeat.Stop()
	}
	gwCancel()
	_ = gw.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	orch.Wait()
	logger.Info("Goodbye")
}
