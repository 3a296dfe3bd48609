package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/account"
	"lexease-backend/internal/analyses"
	googleauth "lexease-backend/internal/auth"
	"lexease-backend/internal/documents"
	"lexease-backend/internal/drafting"
	"lexease-backend/internal/events"
	"lexease-backend/internal/extract"
	"lexease-backend/internal/llm"
	"lexease-backend/internal/llm/gemini"
	"lexease-backend/internal/llm/openai"
	"lexease-backend/internal/qa"
	"lexease-backend/internal/queue"
	"lexease-backend/internal/services/health"
	"lexease-backend/internal/shared/config"
	"lexease-backend/internal/shared/server"
	"lexease-backend/internal/shared/storage/db"
	"lexease-backend/internal/shared/storage/object"
	localstore "lexease-backend/internal/shared/storage/object/local"
	s3store "lexease-backend/internal/shared/storage/object/s3"
	"lexease-backend/internal/users"
)

const eventBuffer = 64

// App holds shared dependencies and the HTTP router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	LLM    llm.Client
	Events *events.Hub

	DocumentsRepo documents.DocumentsRepo
	MessagesRepo  qa.MessagesRepo
	UsersRepo     users.Repo

	Extractor        *extract.Extractor
	DocumentsService *documents.Service
	AnalysesService  *analyses.Service
	QAService        *qa.Service
	DraftingService  *drafting.Service
	UsersService     *users.Service
	AccountService   *account.Service
	Health           *health.Service

	closers []io.Closer
}

// Build wires every dependency from cfg. Without DATABASE_URL in a dev-like
// environment it falls back to in-memory repositories.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg, Events: events.NewHub(eventBuffer), Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB)
		app.Health.Register("database", sqlDB.PingContext)
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Queue, err = buildQueue(ctx, cfg); err != nil {
		return nil, err
	}
	if app.LLM, err = app.buildLLM(ctx); err != nil {
		return nil, err
	}
	if err := app.buildServices(); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:     cfg,
		Documents:  documents.NewHandler(app.DocumentsService),
		Analyses:   analyses.NewHandler(app.AnalysesService, app.UsersService),
		Events:     events.NewHandler(app.Events, app.DocumentsService, cfg.CORSAllowOrigin),
		QA:         qa.NewHandler(app.QAService),
		Drafting:   drafting.NewHandler(app.DraftingService),
		Users:      users.NewHandler(app.UsersService),
		Account:    account.NewHandler(app.AccountService),
		GoogleAuth: googleauth.NewGoogleService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL, app.UsersService),
		Health:     app.Health,
	})
	return app, nil
}

// Close releases the database pool and provider connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
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
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.LambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.ServerOptions()))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.AWSEndpointURL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, queue.SQSOptions{
		QueueURL: cfg.QueueURL,
		Region:   cfg.AWSRegion,
		Endpoint: cfg.AWSEndpointURL,
	})
}

// buildLLM picks the configured provider. A missing key in a dev-like
// environment degrades to the placeholder so the rest of the API still runs.
func (a *App) buildLLM(ctx context.Context) (llm.Client, error) {
	cfg := a.Config
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "none":
		return llm.PlaceholderClient{}, nil
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	default:
		var gc *gemini.Client
		gc, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err == nil {
			a.closers = append(a.closers, gc)
			client = gc
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: llm provider %s unavailable; using placeholder: %v", cfg.LLMProvider, err)
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	log.Printf("bootstrap: llm provider=%s model=%s", cfg.LLMProvider, cfg.LLMModel)
	return llm.WithRetry(client), nil
}

func (a *App) buildServices() error {
	if a.DB != nil {
		a.DocumentsRepo = &documents.PGRepo{DB: a.DB}
		a.MessagesRepo = &qa.PGRepo{DB: a.DB}
		a.UsersRepo = &users.PGRepo{DB: a.DB}
	} else {
		a.DocumentsRepo = documents.NewMemoryRepo()
		a.MessagesRepo = qa.NewMemoryRepo()
		a.UsersRepo = users.NewMemoryRepo()
	}

	var ocr llm.Client
	if _, placeholder := a.LLM.(llm.PlaceholderClient); a.Config.OCREnabled && !placeholder {
		ocr = a.LLM
	}
	a.Extractor = extract.New(ocr)

	catalog, err := drafting.LoadCatalog(a.Config.TemplateCatalogPath)
	if err != nil {
		return err
	}

	mode, err := analyses.ParseMode(a.Config.AnalysisMode, analyses.ModeStreaming)
	if err != nil {
		return err
	}

	a.DocumentsService = &documents.Service{Store: a.Store, Repo: a.DocumentsRepo, Extractor: a.Extractor}
	a.AnalysesService = &analyses.Service{
		Docs:   a.DocumentsRepo,
		LLM:    a.LLM,
		Events: a.Events,
		Queue:  a.Queue,
		Mode:   mode,
	}
	a.QAService = qa.NewService(a.LLM, a.MessagesRepo, a.DocumentsService)
	a.DraftingService = &drafting.Service{
		LLM:         a.LLM,
		Catalog:     catalog,
		Store:       a.Store,
		StorePrefix: a.Config.TemplateStorePrefix,
	}
	a.UsersService = users.NewService(a.UsersRepo)
	a.AccountService = account.NewService(a.DocumentsRepo)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
