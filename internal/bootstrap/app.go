package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gitscore-backend/internal/ai"
	"gitscore-backend/internal/analyses"
	"gitscore-backend/internal/github"
	"gitscore-backend/internal/payments"
	"gitscore-backend/internal/queue"
	"gitscore-backend/internal/shared/config"
	"gitscore-backend/internal/shared/server"
	"gitscore-backend/internal/shared/storage/db"
	"gitscore-backend/internal/throttle"
)

// App holds shared dependencies for the API and worker processes.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Queue  queue.Client

	AnalysesRepo analyses.Repo
	ThrottleRepo throttle.Repo
	PaymentsRepo payments.Repo

	AnalysesService *analyses.Service
	ThrottleService *throttle.Service
	PaymentsService *payments.Service

	AnalysisProcessor AnalysisProcessor

	AnalysisHandler *analyses.Handler
	PaymentsHandler *payments.Handler
}

// AnalysisProcessor allows callers to override analysis processing for tests.
type AnalysisProcessor interface {
	ProcessAnalysis(ctx context.Context, analysisID string, attempt int) error
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := buildRedis(cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  redisClient,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		DB:              app.DB,
		AnalysisHandler: app.AnalysisHandler,
		PaymentsHandler: app.PaymentsHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildRedis(cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SQSQueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var (
		analysisRepo analyses.Repo
		throttleRepo throttle.Repo
		paymentsRepo payments.Repo
	)
	if app.DB != nil {
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		throttleRepo = throttle.NewPGRepo(app.DB)
		paymentsRepo = payments.NewPGRepo(app.DB)
	} else {
		analysisRepo = analyses.NewMemoryRepo()
		throttleRepo = throttle.NewMemoryRepo()
		paymentsRepo = payments.NewMemoryRepo()
	}

	var cache github.Cache
	if app.Redis != nil {
		cache = github.NewRedisCache(app.Redis)
	} else {
		cache = github.NewMemoryCache(nil)
	}
	fetcher := github.NewFetcher(github.NewHTTPClient(app.Config.GitHubToken), cache)

	aiClient := ai.Client(ai.PlaceholderClient{})
	if strings.TrimSpace(app.Config.AnthropicAPIKey) != "" {
		anthropicClient, err := ai.NewAnthropicClient(
			app.Config.AnthropicAPIKey,
			app.Config.AnthropicModel,
			app.Config.AnthropicMaxTokens,
			0,
		)
		if err != nil {
			return err
		}
		aiClient = anthropicClient
	}

	analysisSvc := analyses.NewService(analysisRepo, app.Queue, fetcher, aiClient)
	throttleSvc := throttle.NewService(throttleRepo)

	provider := payments.Provider(placeholderProvider{})
	if strings.TrimSpace(app.Config.PaddleAPIKey) != "" {
		paddleClient, err := payments.NewPaddleClient(app.Config.PaddleAPIKey, app.Config.PaddleSandbox, 0)
		if err != nil {
			return err
		}
		provider = paddleClient
	}

	paymentsSvc := payments.NewService(paymentsRepo, provider, analysisGateway{repo: analysisRepo})
	paymentsSvc.PriceID = app.Config.PaddlePriceID
	paymentsSvc.FrontendURL = app.Config.FrontendURL
	paymentsSvc.WebhookSecret = app.Config.PaddleWebhookSecret
	paymentsSvc.Sandbox = app.Config.PaddleSandbox

	app.AnalysesRepo = analysisRepo
	app.ThrottleRepo = throttleRepo
	app.PaymentsRepo = paymentsRepo
	app.AnalysesService = analysisSvc
	app.ThrottleService = throttleSvc
	app.PaymentsService = paymentsSvc
	app.AnalysisProcessor = analysisSvc
	app.AnalysisHandler = analyses.NewHandler(analysisSvc, throttleSvc)
	app.PaymentsHandler = payments.NewHandler(paymentsSvc)

	if app.AnalysisHandler == nil || app.PaymentsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

// analysisGateway adapts the analyses repo to the narrow view the payment
// flow is allowed to touch.
type analysisGateway struct {
	repo analyses.Repo
}

func (g analysisGateway) Find(ctx context.Context, analysisUUID string) (payments.AnalysisSummary, error) {
	analysis, err := g.repo.GetByUUID(ctx, analysisUUID)
	if err != nil {
		if errors.Is(err, analyses.ErrNotFound) {
			return payments.AnalysisSummary{}, payments.ErrAnalysisNotFound
		}
		return payments.AnalysisSummary{}, err
	}
	return payments.AnalysisSummary{
		ID:        analysis.ID,
		UUID:      analysis.UUID,
		Username:  analysis.Username,
		Completed: analysis.Status == analyses.StatusCompleted,
		IsPaid:    analysis.IsPaid,
	}, nil
}

func (g analysisGateway) Unlock(ctx context.Context, analysisUUID, transactionID string, paidAt time.Time) (bool, error) {
	unlocked, err := g.repo.Unlock(ctx, analysisUUID, transactionID, paidAt)
	if err != nil {
		if errors.Is(err, analyses.ErrNotFound) {
			return false, payments.ErrAnalysisNotFound
		}
		return false, err
	}
	return unlocked, nil
}

type placeholderProvider struct{}

func (placeholderProvider) CreateTransaction(ctx context.Context, priceID string, customData map[string]string) (payments.Transaction, error) {
	_ = ctx
	_ = priceID
	_ = customData
	return payments.Transaction{}, errors.New("payment provider not configured")
}

func (placeholderProvider) GetTransaction(ctx context.Context, transactionID string) (payments.Transaction, error) {
	_ = ctx
	_ = transactionID
	return payments.Transaction{}, errors.New("payment provider not configured")
}
