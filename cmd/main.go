package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"tg_miniapp/internal/config"
	"tg_miniapp/internal/infrastructure"
	httpapi "tg_miniapp/internal/interfaces/http"
	"tg_miniapp/internal/logging"
	"tg_miniapp/internal/metrics"
	"tg_miniapp/internal/repository"
	"tg_miniapp/internal/usecases"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting", "env", cfg.AppEnv, "bot", cfg.BotEnabled, "server", cfg.ServerEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(cfg.MetricsNamespace, prometheus.DefaultRegisterer)

	var srv *http.Server
	if cfg.ServerEnabled {
		var closeDB func()
		srv, closeDB, err = newAdminServer(ctx, cfg, logger, m)
		if err != nil {
			return err
		}
		defer closeDB()
	}

	var (
		tg      *infrastructure.TelegramClient
		service *usecases.MessageService
	)
	if cfg.BotEnabled {
		tg, err = infrastructure.NewTelegramClient(infrastructure.TelegramConfig{
			Token:       cfg.BotToken,
			APIEndpoint: cfg.BotAPIEndpoint,
			PollTimeout: cfg.BotPollTimeout,
			SendRate:    cfg.BotSendRate,
			SendBurst:   cfg.BotSendBurst,
		}, logger)
		if err != nil {
			return err
		}
		m.TrackActiveChats(tg.ActiveChats)
		service = usecases.NewMessageService(tg, usecases.MessageServiceConfig{
			MiniAppURL:  cfg.MiniAppURL,
			ClientSlug:  cfg.ClientSlug,
			BotUsername: tg.Bot.Self.UserName,
		}, logger, m)
	}

	g, gctx := errgroup.WithContext(ctx)

	if srv != nil {
		g.Go(func() error {
			logger.Info("http server listening", "addr", cfg.HTTPAddr, "web_root", cfg.WebRoot)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			logger.Info("http server shutting down")
			return srv.Shutdown(shutdownCtx)
		})
	}

	if tg != nil {
		g.Go(func() error {
			return tg.Poll(gctx, service.ProcessUpdate)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// newAdminServer builds the admin and static HTTP server. The returned func
// releases the optional database pool.
func newAdminServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*http.Server, func(), error) {
	store := repository.NewDocumentStore(repository.DocumentStoreConfig{
		Root:        cfg.WebRoot,
		ClientsDir:  cfg.ClientsDir,
		CatalogFile: cfg.CatalogFile,
		ConfigFile:  cfg.ConfigFile,
	})

	closeDB := func() {}
	var mirror usecases.DocumentMirror
	if cfg.DatabaseURL != "" {
		pg, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		closeDB = pg.Close
		mirror = repository.NewDocumentMirror(pg.Pool)
		logger.Info("document mirror enabled")
	}

	documents := usecases.NewDocumentUsecase(store, mirror, logger, m)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	httpapi.SetupRoutes(r, documents, httpapi.Config{
		WebRoot:      cfg.WebRoot,
		MiniAppURL:   cfg.MiniAppURL,
		MaxBodyBytes: cfg.MaxBodyBytes,
		SaveRate:     cfg.SaveRate,
		SaveBurst:    cfg.SaveBurst,
	}, httpapi.NewMiddleware(logger), logger)

	return &http.Server{Addr: cfg.HTTPAddr, Handler: r}, closeDB, nil
}
