package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"scalpcare-backend/internal/assessments"
	"scalpcare-backend/internal/customers"
	"scalpcare-backend/internal/kb"
	"scalpcare-backend/internal/llm"
	"scalpcare-backend/internal/llm/gemini"
	"scalpcare-backend/internal/llm/openai"
	"scalpcare-backend/internal/queue"
	"scalpcare-backend/internal/services/health"
	"scalpcare-backend/internal/shared/config"
	"scalpcare-backend/internal/shared/server"
	"scalpcare-backend/internal/shared/storage/db"
	"scalpcare-backend/internal/shared/storage/object"
	localstore "scalpcare-backend/internal/shared/storage/object/local"
	s3store "scalpcare-backend/internal/shared/storage/object/s3"
)

// App holds the wired dependencies shared by every binary.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.Store
	Queue     queue.Client
	Engine    *kb.Engine
	Generator llm.ReportGenerator

	CustomersService   *customers.Service
	AssessmentsService *assessments.Service
	// Processor handles queued report jobs. Tests may replace it.
	Processor Processor
}

// Processor generates the report for one assessment.
type Processor interface {
	ProcessAssessment(ctx context.Context, id string) error
}

// Build wires configuration into repositories, services and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil && isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Queue:     queueClient,
		Engine:    engine,
		Generator: generator,
	}
	buildServices(app)

	rules, groups := server.DefaultRateLimits()
	var pinger health.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	app.Router = server.NewRouter(server.Options{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		RateLimits:       rules,
		RateLimitGroups:  groups,
		Health:           health.NewService(pinger),
	},
		customers.NewHandler(app.CustomersService),
		assessments.NewHandler(app.AssessmentsService),
	)

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

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildEngine(catalogPath string) (*kb.Engine, error) {
	path := strings.TrimSpace(catalogPath)
	if path == "" {
		return kb.NewEngine(kb.DefaultCatalogs()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogs: %w", err)
	}
	defer f.Close()
	catalogs, err := kb.LoadCatalogs(f)
	if err != nil {
		return nil, fmt.Errorf("load catalogs %s: %w", path, err)
	}
	return kb.NewEngine(catalogs), nil
}

func buildGenerator(cfg config.Config) (llm.ReportGenerator, error) {
	var (
		key string
		gen llm.ReportGenerator
		err error
	)
	switch cfg.ReportProvider {
	case config.ProviderGemini:
		key = cfg.GeminiAPIKey
		if key != "" {
			gen, err = gemini.NewClient(key, cfg.ReportModel, cfg.ReportTimeout)
		}
	case config.ProviderOpenAI:
		key = cfg.OpenAIAPIKey
		if key != "" {
			gen, err = openai.NewClient(key, cfg.ReportModel, cfg.ReportTimeout)
		}
	default:
		return llm.PlaceholderGenerator{}, nil
	}
	if err != nil {
		return nil, err
	}
	if gen == nil {
		if !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("REPORT_PROVIDER=%s requires an API key", cfg.ReportProvider)
		}
		log.Printf("bootstrap: no API key for %s; reports will fail as not configured", cfg.ReportProvider)
		return llm.PlaceholderGenerator{}, nil
	}
	return gen, nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildServices(app *App) {
	var (
		customerRepo   customers.Repo
		assessmentRepo assessments.Repo
	)
	if app.DB != nil {
		customerRepo = &customers.PGRepo{DB: app.DB}
		assessmentRepo = &assessments.PGRepo{DB: app.DB}
	} else {
		customerRepo = customers.NewMemoryRepo()
		assessmentRepo = assessments.NewMemoryRepo()
	}

	customerSvc := customers.NewService(customerRepo)
	assessmentSvc := &assessments.Service{
		Repo:      assessmentRepo,
		Engine:    app.Engine,
		Generator: app.Generator,
		Store:     app.Store,
		Customers: customerSvc,
		Queue:     app.Queue,
	}

	app.CustomersService = customerSvc
	app.AssessmentsService = assessmentSvc
	app.Processor = assessmentSvc
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
