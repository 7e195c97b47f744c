package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/nps-insights/internal/config"
	handler "github.com/godilite/nps-insights/internal/grpc"
	"github.com/godilite/nps-insights/internal/httpapi"
	"github.com/godilite/nps-insights/internal/llm"
	"github.com/godilite/nps-insights/internal/repository"
	"github.com/godilite/nps-insights/internal/service"
	"github.com/godilite/nps-insights/pkg/cache"
	dbbuilder "github.com/godilite/nps-insights/pkg/database"
	"github.com/godilite/nps-insights/pkg/docstore"
	grpcsrv "github.com/godilite/nps-insights/pkg/grpc/server"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	mongo      *mongo.Client
	cache      cache.Store
	grpcServer *grpcsrv.Server
	httpServer *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	dbPool, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithJournalMode("WAL"),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	a.dbPool = dbPool
	if err := repository.EnsureSchema(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("database schema init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	responses, err := a.responseRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.cache = cache.Noop{}
	if cfg.CacheEnabled {
		cacheClient, err := cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		a.cache = cacheClient
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	}
	readThrough := cache.NewReadThrough(a.cache, cfg.CacheTTL, logger.Named("cache"))

	granularity, err := service.ParseGranularity(cfg.Period)
	if err != nil {
		return nil, err
	}
	aggregator := service.NewAggregator(
		service.WithDetractorFloor(cfg.DetractorMin),
		service.WithGranularity(granularity),
		service.WithTopAspects(cfg.TopAspects),
		service.WithTopTerms(cfg.TopTerms),
	)
	dashboard := service.NewDashboardService(responses, aggregator, logger.Named("dashboard"))

	merger := service.NewSummaryMerger(newGenerator(cfg, logger), cfg.LLMTimeout, logger.Named("summary"))
	digests := service.NewDigestService(repository.NewSummaryRepository(dbPool), merger, logger.Named("digest"))

	grpcHandlers := handler.NewGRPCHandlers(dashboard, digests, readThrough, logger)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRequestTimeout(cfg.LLMTimeout+30*time.Second),
		grpcsrv.WithMaxRecvMsgSize(8<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	a.grpcServer = grpcServer

	grpcServer.RegisterServiceWithHealth(handler.DashboardServiceName, func(s *grpc.Server) {
		handler.RegisterDashboardServer(s, grpcHandlers)
	})

	router := httpapi.NewRouter(
		httpapi.NewHandlers(dashboard, digests, readThrough, logger),
		logger,
		httpapi.RouterOptions{AllowedOrigins: cfg.CORSOrigins, RequestTimeout: cfg.LLMTimeout + 30*time.Second},
	)
	httpServer, err := httpapi.NewServer(cfg.HTTPAddr, router, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}
	a.httpServer = httpServer

	ok = true
	return a, nil
}

func (a *App) responseRepository(ctx context.Context, cfg *config.Config) (service.ResponseRepository, error) {
	if cfg.ResponseSource != config.SourceMongo {
		return repository.NewSurveyRepository(a.dbPool), nil
	}

	client, err := docstore.New(ctx,
		docstore.WithURI(cfg.MongoURI),
		docstore.WithAppName("nps-insights"),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo init failed: %w", err)
	}
	a.mongo = client
	a.logger.Info("Mongo client initialized", zap.String("database", cfg.MongoDatabase))
	return repository.NewMongoSurveyRepository(client.Database(cfg.MongoDatabase)), nil
}

// newGenerator falls back to a disabled generator so the dashboard still serves
// when no provider key is configured.
func newGenerator(cfg *config.Config, logger *zap.Logger) service.TextGenerator {
	gen, err := llm.New(llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
	}, logger.Named("llm"))
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			logger.Warn("no LLM API key configured, digest updates are disabled", zap.String("provider", cfg.LLMProvider))
		} else {
			logger.Error("LLM client init failed, digest updates are disabled", zap.Error(err))
		}
		return llm.Disabled{Reason: err}
	}
	logger.Info("LLM client initialized", zap.String("provider", cfg.LLMProvider))
	return gen
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is done, then shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	a.logger.Info("application starting")

	a.grpcServer.Start()
	a.httpServer.Start()

	<-ctx.Done()
	a.logger.Info("application shutting down")
	a.grpcServer.SetServing(handler.DashboardServiceName, false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
	}
	a.close()

	if len(errs) == 0 {
		a.logger.Info("graceful shutdown completed successfully")
	} else {
		a.logger.Warn("shutdown completed with errors", zap.Error(errors.Join(errs...)))
	}

	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// GRPCAddr and HTTPAddr return the bound listener addresses.
func (a *App) GRPCAddr() string { return a.grpcServer.Addr().String() }

func (a *App) HTTPAddr() string { return a.httpServer.Addr().String() }

func (a *App) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Error("mongo shutdown error", zap.Error(err))
		}
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
}
