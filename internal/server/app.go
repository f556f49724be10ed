// Package server initializes and runs the file gateway: it wires the
// metadata store, the object-store adapter, the credential issuer and the
// HTTP API together, runs migrations and handles graceful shutdown.
package server

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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/auth"
	"github.com/filegilla/filegateway/internal/server/blobstore"
	"github.com/filegilla/filegateway/internal/server/config"
	"github.com/filegilla/filegateway/internal/server/httpapi"
	"github.com/filegilla/filegateway/internal/server/metrics"
	"github.com/filegilla/filegateway/internal/server/repositories/repomanager"
	"github.com/filegilla/filegateway/internal/server/services/files"
	"github.com/filegilla/filegateway/internal/server/services/tenants"
	"github.com/filegilla/filegateway/internal/server/services/transfer"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repo := repomanager.NewPostgresRepositoryManager()
	if err := repo.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := blobstore.NewS3Store(ctx, blobstore.Settings{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}
	if err := ensureBucket(ctx, store, cfg.SharedBucket); err != nil {
		return nil, fmt.Errorf("shared bucket init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	issuer := auth.NewIssuer([]byte(cfg.SecretKey), cfg.CredentialValidityDuration)

	tenantService := tenants.NewService(db, repo, store, issuer, logger, m)
	fileService := files.NewService(tenantService, store, issuer, logger, cfg.PublicBaseURL)
	transferService := transfer.NewService(db, repo, store, cfg.SharedBucket, logger)

	handlers := httpapi.NewHandlers(fileService, transferService, repo.AdHoc(db), logger)
	router := httpapi.NewRouter(handlers, m, reg, logger, cfg.FunctionKeyHash)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		server: &http.Server{Addr: cfg.EndpointAddr, Handler: router},
	}, nil
}

// ensureBucket creates the bucket unless it already exists.
func ensureBucket(ctx context.Context, store blobstore.ObjectStore, bucket string) error {
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil || exists {
		return err
	}
	if err := store.CreateBucket(ctx, bucket); err != nil && !errors.Is(err, common.ErrorConflict) {
		return err
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting gateway", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "server error", "error", err.Error())
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(ctx, "gateway stopped")
}
