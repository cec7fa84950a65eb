package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lecto-bridge/internal/clients"
	"lecto-bridge/internal/repository"
	"lecto-bridge/internal/service"
	"lecto-bridge/internal/transport/auth"
	"lecto-bridge/internal/transport/rest"
	"lecto-bridge/internal/transport/websocket"
	"lecto-bridge/pkg/database/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	cleanupEvery  = 5 * time.Minute
	fileRetention = 30 * time.Minute
)

var syncConcurrency int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&syncConcurrency, "sync-concurrency", 4, "debtors synced in parallel by POST /sync/debts")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	db, err := openPostgres(cfg.Postgres)
	if err != nil {
		return err
	}
	defer postgres.Close(db)

	redisClient, err := openRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	uploader, storage, err := newUploader(cfg)
	if err != nil {
		return err
	}

	wsHub := websocket.NewHub()
	wsClient := clients.NewWebSocketClient(wsHub)

	lectoClient := newLectoClient(cfg.Lecto)

	tokenRepo := repository.NewPersonalAccessTokenRepository(db, logger)
	debtRepo := repository.NewDebtRepository(db)

	store := service.NewStatusStore(redisClient)
	remindSvc := service.NewRemindExportService(lectoClient, uploader, store, wsClient, logger)
	syncSvc := service.NewSyncService(debtRepo, lectoClient, logger, syncConcurrency)
	exportSvc := service.NewExportService(store)

	sanctum := auth.SanctumMiddleware(tokenRepo, logger)

	router := rest.NewHandler(remindSvc, syncSvc, exportSvc, logger).InitRouterWithAuth(sanctum)

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.GetUserID(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		wsHub.HandleWebSocket(w, r, userID)
	})

	// /files, /health and /metrics stay public, the rest goes through auth
	root := chi.NewRouter()
	root.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Handle("/metrics", promhttp.Handler())
	root.Get("/files/{file}", serveFile(storage))
	root.Mount("/", router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      withCORS(root),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port, "s3", cfg.S3.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		cleanStorage(ctx, storage, logger)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

func serveFile(storage *clients.StorageClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")

		path, err := storage.Open(file)
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, "failed to access file", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clients.OriginalName(file)))
		http.ServeFile(w, r, path)
	}
}

func cleanStorage(ctx context.Context, storage *clients.StorageClient, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := storage.CleanupOlderThan(fileRetention); err != nil {
				logger.Warn("storage cleanup error", "error", err)
			}
		}
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
