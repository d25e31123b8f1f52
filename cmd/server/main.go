package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/p-n-ai/pai-grc/internal/advisor"
	"github.com/p-n-ai/pai-grc/internal/ai"
	"github.com/p-n-ai/pai-grc/internal/assessment"
	"github.com/p-n-ai/pai-grc/internal/audit"
	"github.com/p-n-ai/pai-grc/internal/comment"
	"github.com/p-n-ai/pai-grc/internal/notify"
	"github.com/p-n-ai/pai-grc/internal/platform/cache"
	"github.com/p-n-ai/pai-grc/internal/platform/config"
	"github.com/p-n-ai/pai-grc/internal/platform/database"
	"github.com/p-n-ai/pai-grc/internal/platform/logging"
	"github.com/p-n-ai/pai-grc/internal/server"
	"github.com/p-n-ai/pai-grc/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.Storage.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app is the wired application and the resources to release on exit.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects storage and builds every service behind the HTTP API.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	catalog, err := assessment.LoadCatalog(cfg.Questionnaire.Dir, cfg.Questionnaire.DefaultID)
	if err != nil {
		return nil, err
	}
	users, err := session.LoadDirectory(cfg.Auth.UsersFile)
	if err != nil {
		return nil, err
	}
	slog.Info("users loaded", "file", cfg.Auth.UsersFile, "count", users.Len())

	checks := map[string]server.Check{}

	var (
		assessmentStore assessment.Store = assessment.NewMemoryStore()
		commentStore    comment.Store    = comment.NewMemoryStore()
		trail           audit.Trail      = audit.NewMemoryLogger()
	)
	if cfg.Storage.Mode == "postgres" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db.HealthCheck

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		if assessmentStore, err = assessment.NewPostgresStore(db.Pool); err != nil {
			return nil, err
		}
		if commentStore, err = comment.NewPostgresStore(db.Pool); err != nil {
			return nil, err
		}
		trail = audit.NewPostgresLogger(db.Pool)
		slog.Info("database connected", "max_conns", cfg.Database.MaxConns)
	}

	var (
		latestCache  assessment.Cache
		sessionStore session.Store = session.NewMemoryStore()
	)
	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c.HealthCheck
		latestCache = c
		sessionStore = session.NewRedisStore(c)
		slog.Info("cache connected")
	}

	gateway := notify.NewGateway()
	var hub *notify.Hub
	if cfg.Notify.WebSocket {
		hub = notify.NewHub()
		gateway.Register("websocket", hub)
	}
	if cfg.Notify.TelegramBotToken != "" {
		tg, err := notify.NewTelegramChannel(cfg.Notify.TelegramBotToken, users.TelegramChatID)
		if err != nil {
			return nil, err
		}
		gateway.Register("telegram", tg)
	}

	router := newAIRouter(cfg)
	if cfg.HasAIProvider() {
		checks["ai"] = router.HealthCheck
	}
	adv := advisor.New(router, advisor.WithBudget(ai.NewMemoryBudget(int64(cfg.AI.TokenBudget))))

	srv := server.New(server.Config{
		Assessments: assessment.NewService(assessment.ServiceConfig{
			Catalog:  catalog,
			Store:    assessmentStore,
			Cache:    latestCache,
			CacheTTL: time.Duration(cfg.Cache.TTL) * time.Second,
			Audit:    trail,
		}),
		Comments: comment.NewService(commentStore, users, gateway, trail),
		Sessions: session.NewManager(users, sessionStore, time.Duration(cfg.Auth.SessionTTL)*time.Minute),
		Audit:    trail,
		Advisor:  adv,
		Hub:      hub,
		Checks:   checks,
	})
	a.handler = srv.Handler()
	return a, nil
}

func newAIRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()
	if cfg.AI.OpenAIAPIKey != "" {
		opts := []ai.OpenAIOption{ai.WithModel(cfg.AI.Model)}
		if cfg.AI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.AI.BaseURL))
		}
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, opts...))
	}
	if cfg.AI.DeepSeekAPIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.AI.DeepSeekAPIKey))
	}
	if !cfg.HasAIProvider() {
		slog.Info("no AI provider configured, remediation plans are rule-based")
	}
	return router
}
