// Package main provides the entry point for the Proptech AI lead and consent API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/config"
	"github.com/AleksYogi/proptech-ai/internal/handler"
	"github.com/AleksYogi/proptech-ai/internal/logger"
	"github.com/AleksYogi/proptech-ai/internal/metrics"
	"github.com/AleksYogi/proptech-ai/internal/notifier"
	"github.com/AleksYogi/proptech-ai/internal/store"
	"github.com/AleksYogi/proptech-ai/internal/store/postgres"
	"github.com/AleksYogi/proptech-ai/internal/store/supabase"
	"github.com/AleksYogi/proptech-ai/internal/validation"
)

// Run is the testable entrypoint for the application.
func Run(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()
	log.Info("Starting Proptech AI API", zap.String("notifier", cfg.LeadNotifier))

	client := &http.Client{Timeout: cfg.HTTPClientTimeout}

	consentStore, closeStore, err := openStore(ctx, cfg, client, log)
	if err != nil {
		log.Error("consent store unavailable", zap.Error(err))
		return err
	}
	defer closeStore()

	h := handler.New(log, validation.New(), handler.Options{
		Store:         consentStore,
		Notifiers:     buildNotifiers(cfg, client, log),
		NotifyAll:     cfg.LeadNotifier == config.NotifyAll,
		PolicyVersion: cfg.PolicyVersion,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, h),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	return nil
}

// newRouter mounts the API behind the shared middleware stack. Browser
// preflights are answered by the CORS layer before routing.
func newRouter(cfg *config.Config, h *handler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware)
	h.Routes(r)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// buildNotifiers returns the senders for the configured mode, primary first.
func buildNotifiers(cfg *config.Config, client *http.Client, log *zap.Logger) []notifier.Notifier {
	tg := notifier.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, client, log)
	email := notifier.NewEmail(cfg.ResendAPIURL, cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailTo, client, log)

	switch cfg.LeadNotifier {
	case config.NotifyEmail:
		return []notifier.Notifier{email}
	case config.NotifyAll:
		return []notifier.Notifier{email, tg}
	default:
		return []notifier.Notifier{tg}
	}
}

// openStore picks the consent store backend. DATABASE_URL selects direct
// Postgres; otherwise the Supabase REST adapter is used, configured or not.
func openStore(ctx context.Context, cfg *config.Config, client *http.Client, log *zap.Logger) (store.ConsentStore, func(), error) {
	if cfg.DatabaseURL != "" {
		if err := postgres.Migrate(cfg.DatabaseURL, log); err != nil {
			return nil, nil, err
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil
	}

	s := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, client, log)
	if !s.Configured() {
		log.Warn("Supabase credentials are not configured, consent logging will not work")
	}
	return s, func() {}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		os.Exit(1)
	}
}
