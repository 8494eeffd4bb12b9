// Package server wires the file service together: configuration, database,
// blob store, event dispatch, background chores and the HTTP and gRPC
// listeners. Run blocks until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/filekeeper/internal/server/config"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/filekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/filekeeper/internal/server/reaper"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"

	gs "github.com/dmitrijs2005/filekeeper/internal/server/grpc"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	metrics    *metrics.Metrics
	dispatcher *events.Dispatcher
	reaper     *reaper.Reaper
	reconciler *reaper.Reconciler
	router     *gin.Engine
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	blobs, err := blobstore.New(c.StagingDir, c.FinalDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	m := metrics.New()

	app := &App{config: c, logger: logger, db: db, metrics: m}

	var pub events.Publisher = events.NopPublisher{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		pub = events.NewRedisPublisher(app.redis, c.RedisStream)
	} else {
		logger.Warn(ctx, "redis address not set, object events are discarded")
	}
	app.dispatcher = events.NewDispatcher(pub, c.EventQueueSize, logger,
		events.WithCounters(m.EventsDropped, m.EventsPublished.WithLabelValues("ok"), m.EventsPublished.WithLabelValues("error")))

	objects := services.NewObjectService(db, rm, blobs, app.dispatcher, logger, m, c)
	attachments := services.NewAttachmentService(db, rm, logger)

	app.reaper = reaper.New(blobs.StagingDir(), c.ReaperInterval, c.ReaperMaxAge, logger, m)
	app.reconciler = reaper.NewReconciler(db, rm, logger, m)

	gin.SetMode(gin.ReleaseMode)
	app.router = httpapi.NewRouter(httpapi.NewHandler(objects, attachments, logger), []byte(c.SecretKey), logger, m)

	return app, nil
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	lis, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		app.logger.Error(ctx, "http listen", "address", app.config.EndpointAddrHTTP, "error", err)
		cancelFunc()
		return
	}
	app.serveHTTP(ctx, cancelFunc, lis)
}

// serveHTTP returns only after in-flight requests have drained or the
// shutdown timeout expired, so close never runs under a live handler.
func (app *App) serveHTTP(ctx context.Context, cancelFunc context.CancelFunc, lis net.Listener) {
	srv := &http.Server{
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
		return
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		app.logger.Error(sctx, "http shutdown", "error", err)
	}
	<-errCh
}

// Run serves until SIGINT/SIGTERM/SIGQUIT or ctx cancellation, then drains
// listeners, flushes queued events and closes connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.reaper.Run(ctx)
	}()

	if app.config.ReconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.reconciler.Run(ctx, app.config.ReconcileInterval)
		}()
	}

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}

func (app *App) close(ctx context.Context) {
	app.dispatcher.Close()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
}
