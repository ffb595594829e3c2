package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"career-hub/internal/account"
	"career-hub/internal/advisor"
	googleauth "career-hub/internal/auth"
	"career-hub/internal/conversations"
	"career-hub/internal/coverletter"
	"career-hub/internal/documents"
	"career-hub/internal/interview"
	"career-hub/internal/jobs"
	"career-hub/internal/llm"
	"career-hub/internal/llm/gemini"
	openai "career-hub/internal/llm/openai"
	"career-hub/internal/orchestrator"
	"career-hub/internal/queue"
	"career-hub/internal/rag"
	"career-hub/internal/remoteapi"
	"career-hub/internal/services/health"
	"career-hub/internal/shared/config"
	"career-hub/internal/shared/server"
	"career-hub/internal/shared/storage/db"
	"career-hub/internal/shared/storage/object"
	localstore "career-hub/internal/shared/storage/object/local"
	s3store "career-hub/internal/shared/storage/object/s3"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/sqlagent"
	"career-hub/internal/usage"
	"career-hub/internal/users"
	"career-hub/internal/vectorstore"
)

// App holds shared dependencies for every binary.
type App struct {
	Config config.Config
	Router *gin.Engine

	DB      *sql.DB
	JobsDB  *sql.DB
	Dialect db.Dialect
	Store   object.ObjectStore
	Queue   queue.Client
	SQS     *queue.SQSClient

	Chat        llm.ChatModel
	Embedder    llm.Embedder
	Transcriber llm.Transcriber
	Vectors     vectorstore.Store

	Jobs         jobs.Repo
	SQLAgent     *sqlagent.Agent
	RAG          *rag.Agent
	Indexer      *rag.Indexer
	Orchestrator *orchestrator.Orchestrator
	Interviewer  *interview.Agent

	Documents     *documents.Service
	Reports       *advisor.Service
	Conversations *conversations.Service
	Interviews    *interview.Service
	CoverLetters  *coverletter.Service
	Usage         *usage.Service
	Users         *users.Service
	Account       *account.Service
	Health        *health.Service
	GoogleAuth    *googleauth.GoogleService
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if app.DB != nil && cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.SQSQueueURL) != "" {
		sqs, err := queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		app.SQS = sqs
		app.Queue = sqs
	}

	if err := buildLLM(ctx, app); err != nil {
		return nil, err
	}
	if err := buildVectors(app); err != nil {
		return nil, err
	}
	if err := buildJobs(ctx, app); err != nil {
		return nil, err
	}

	buildAgents(ctx, app)
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		Health:              app.Health,
		AccountHandler:      account.NewHandler(app.Account),
		ReportHandler:       advisor.NewHandler(app.Reports),
		ConversationHandler: conversations.NewHandler(app.Conversations),
		CoverLetterHandler:  coverletter.NewHandler(app.CoverLetters),
		DocumentHandler:     documents.NewHandler(app.Documents),
		InterviewHandler:    interview.NewHandler(app.Interviews),
		JobHandler:          jobs.NewHandler(app.Jobs),
		UsageHandler:        usage.NewHandler(app.Usage),
		UserHandler:         users.NewHandler(app.Users),
		GoogleAuth:          app.GoogleAuth,
		Remote: &remoteapi.Handler{
			Router:      app.Orchestrator,
			Advisor:     app.Reports,
			CoverLetter: app.CoverLetters.Generator,
			Interviewer: app.Interviewer,
		},
	})

	return app, nil
}

// Close releases database handles.
func (a *App) Close() error {
	var errs []error
	if a.JobsDB != nil && a.JobsDB != a.DB {
		errs = append(errs, a.JobsDB.Close())
	}
	// The Lambda singleton outlives a single App.
	if a.DB != nil && !db.IsLambdaRuntime() {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDev() {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": "DATABASE_URL empty"})
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
		if cfg.IsDev() {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": "connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildLLM selects the provider. Missing keys leave every capability
// unconfigured so the API still boots and answers with ErrNotConfigured.
func buildLLM(ctx context.Context, app *App) error {
	cfg := app.Config
	var (
		chat        llm.ChatModel   = llm.Unconfigured{}
		embedder    llm.Embedder    = llm.Unconfigured{}
		transcriber llm.Transcriber = llm.Unconfigured{}
	)

	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := openai.NewClient(openai.Options{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDims,
			TranscriptionModel:  cfg.TranscriptionModel,
			Timeout:             time.Duration(cfg.OpenAITimeoutSecs) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("openai client: %w", err)
		}
		chat, embedder, transcriber = client, client, client
	}

	if cfg.LLMProvider == "gemini" {
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": "gemini"})
			chat, embedder = llm.Unconfigured{}, llm.Unconfigured{}
		} else {
			client, err := gemini.NewClient(ctx, gemini.Options{
				APIKey:              cfg.GeminiAPIKey,
				Model:               cfg.RouterModel,
				EmbeddingModel:      cfg.EmbeddingModel,
				EmbeddingDimensions: cfg.EmbeddingDims,
			})
			if err != nil {
				return fmt.Errorf("gemini client: %w", err)
			}
			chat, embedder = client, client
		}
	} else if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": "openai"})
	}

	app.Chat = llm.WithRetry(chat, llm.DefaultRetryPolicy())
	app.Embedder = llm.WithEmbedRetry(embedder, llm.DefaultRetryPolicy())
	app.Transcriber = transcriber
	return nil
}

func buildVectors(app *App) error {
	switch app.Config.VectorStore {
	case "pgvector":
		if app.DB == nil {
			telemetry.Warn("bootstrap.vectors_memory", map[string]any{"reason": "pgvector needs DATABASE_URL"})
			app.Vectors = vectorstore.NewMemoryStore()
			return nil
		}
		app.Vectors = vectorstore.NewPGStore(app.DB)
	case "weaviate":
		store, err := vectorstore.NewWeaviateStore(vectorstore.WeaviateConfig{
			Host:   app.Config.WeaviateHost,
			Scheme: app.Config.WeaviateScheme,
			APIKey: app.Config.WeaviateAPIKey,
		})
		if err != nil {
			return fmt.Errorf("weaviate store: %w", err)
		}
		app.Vectors = store
	default:
		app.Vectors = vectorstore.NewMemoryStore()
	}
	return nil
}

func buildJobs(ctx context.Context, app *App) error {
	cfg := app.Config
	conn, dialect, err := db.OpenJobsDB(ctx, db.JobsConfig{
		Type:        cfg.JobsDBType,
		SQLitePath:  cfg.SQLiteDBPath,
		PostgresURL: cfg.JobsDatabaseURL,
	}, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDev() {
			telemetry.Warn("bootstrap.jobs_memory", map[string]any{"error": err})
			app.Jobs = jobs.NewMemoryRepo()
			return nil
		}
		return err
	}

	repo := jobs.NewSQLRepo(conn, dialect)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("jobs schema: %w", err)
	}
	app.JobsDB = conn
	app.Dialect = dialect
	app.Jobs = repo
	return nil
}

func buildAgents(ctx context.Context, app *App) {
	cfg := app.Config

	var sqlRunner orchestrator.Runner = offlineRunner{what: "jobs database"}
	if app.JobsDB != nil {
		app.SQLAgent = sqlagent.NewAgent(app.JobsDB, app.Dialect, app.Chat, cfg.SQLModel)
		sqlRunner = app.SQLAgent
	}

	app.RAG = rag.NewAgent(app.Vectors, app.Embedder, app.Chat, rag.Config{
		Model:      cfg.RAGModel,
		Collection: cfg.VectorCollection,
		Dimensions: cfg.EmbeddingDims,
	})
	if err := app.RAG.EnsureCollection(ctx); err != nil {
		telemetry.Warn("bootstrap.vectors_unready", map[string]any{"error": err})
	}
	app.Indexer = rag.NewIndexer(app.RAG)

	app.Orchestrator = orchestrator.New(app.Chat, sqlRunner, app.RAG, orchestrator.Config{
		Model:       cfg.RouterModel,
		Temperature: cfg.RouterTemperature,
		Mode:        orchestrator.Mode(cfg.OrchestratorMode),
	})
	app.Interviewer = interview.NewAgent(app.Chat, cfg.InterviewModel)
}

func buildServices(app *App) {
	cfg := app.Config

	var (
		docRepo     documents.DocumentsRepo
		reportRepo  advisor.Repo
		convRepo    conversations.Repo
		sessionRepo interview.Repo
		userRepo    users.Repo
	)
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		reportRepo = &advisor.PGRepo{DB: app.DB}
		convRepo = &conversations.PGRepo{DB: app.DB}
		sessionRepo = &interview.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		app.Usage = usage.NewPostgresService(usage.NewPGStore(app.DB, cfg.UsageLimit))
	} else {
		docRepo = documents.NewMemoryRepo()
		reportRepo = advisor.NewMemoryRepo()
		convRepo = conversations.NewMemoryRepo()
		sessionRepo = interview.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		app.Usage = usage.NewService(cfg.UsageLimit)
	}

	app.Documents = &documents.Service{
		Store:    app.Store,
		Repo:     docRepo,
		Provider: cfg.ObjectStoreType,
	}
	app.Reports = &advisor.Service{
		Repo:  reportRepo,
		Docs:  app.Documents,
		Agent: advisor.NewAgent(app.Chat, cfg.AdvisorModel, app.RAG),
		Usage: app.Usage,
		Queue: app.Queue,
		Model: cfg.AdvisorModel,
	}
	app.Conversations = conversations.NewService(convRepo, app.Orchestrator)
	app.Interviews = &interview.Service{
		Repo:        sessionRepo,
		Agent:       app.Interviewer,
		Transcriber: app.Transcriber,
		Docs:        app.Documents,
		Usage:       app.Usage,
	}
	app.CoverLetters = &coverletter.Service{
		Generator: coverletter.NewGenerator(app.Chat, cfg.AdvisorModel),
		Docs:      app.Documents,
		Usage:     app.Usage,
	}

	app.Users = users.NewService(userRepo)
	app.Account = &account.Service{
		DB:            app.DB,
		Documents:     app.Documents,
		Reports:       app.Reports,
		Conversations: app.Conversations,
		Interviews:    app.Interviews,
		Usage:         app.Usage,
	}
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		app.Users,
	)

	app.Health = health.NewService()
	if app.DB != nil {
		app.Health.Register("database", app.DB.PingContext)
	}
	if app.JobsDB != nil {
		app.Health.Register("jobs_database", app.JobsDB.PingContext)
	}
}

// offlineRunner stands in for an agent whose backing store failed to open.
type offlineRunner struct {
	what string
}

func (r offlineRunner) Run(context.Context, string) (string, error) {
	return "", fmt.Errorf("%s unavailable", r.what)
}
