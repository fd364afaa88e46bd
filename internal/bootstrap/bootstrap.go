package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/yigit/submity/docs" // registers the swagger spec
	appControllers "github.com/yigit/submity/internal/app/controllers"
	appMigrations "github.com/yigit/submity/internal/app/migrations"
	appRepos "github.com/yigit/submity/internal/app/repositories"
	appRoutes "github.com/yigit/submity/internal/app/routes"
	appServices "github.com/yigit/submity/internal/app/services"
	"github.com/yigit/submity/internal/config"
	"github.com/yigit/submity/internal/db"
	appMiddleware "github.com/yigit/submity/internal/middleware"
	pkgAuth "github.com/yigit/submity/internal/pkg/auth"
	"github.com/yigit/submity/internal/pkg/filestorage"
	"github.com/yigit/submity/internal/pkg/helpers"
	"github.com/yigit/submity/internal/pkg/kvstore"
	"github.com/yigit/submity/internal/pkg/logger"
	"github.com/yigit/submity/internal/pkg/websocket"
	"github.com/yigit/submity/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store                kvstore.Store
	Repos                *appRepos.Repositories
	FileStorage          filestorage.FileStorage
	JWTService           *pkgAuth.JWTService
	AuthService          *appServices.AuthService
	SubmissionService    *appServices.SubmissionService
	AuthController       *appControllers.AuthController
	SubmissionController *appControllers.SubmissionController
	AuthMiddleware       *appMiddleware.AuthMiddleware
	Hub                  *websocket.Hub
	WebSocketHandler     *websocket.Handler
	Logger               zerolog.Logger

	stopHub context.CancelFunc
}

// Close releases the resources held by the dependencies
func (d *Dependencies) Close() error {
	if d.stopHub != nil {
		d.stopHub()
	}
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the storage backend selected by storage.driver.
// The postgres driver also applies the migrations directory.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (kvstore.Store, error) {
	lgr.Info().Str("driver", cfg.Storage.Driver).Msg("Opening storage...")

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		lgr.Warn().Msg("In-memory storage selected, data is lost on restart")
		return kvstore.NewMemoryStore(), nil

	case config.StorageDriverBolt:
		store, err := kvstore.NewBoltStore(cfg.Storage.BoltPath)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.StorageDriverSQLite:
		store, err := kvstore.NewSQLiteStore(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.StorageDriverPostgres:
		database, err := db.NewPostgresDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		migrationsDir := cfg.Database.MigrationsDir
		if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
			database.Close()
			lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
			return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
		}

		migrator := appMigrations.NewMigrator(database.Pool, lgr)
		if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
			database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		return kvstore.NewPostgresStore(database.Pool), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// SetupFileStorage creates the backend uploaded documents are written to
func SetupFileStorage(ctx context.Context, cfg *config.Config) (filestorage.FileStorage, error) {
	if cfg.FileStorage.Driver == config.FileStorageB2 {
		b2Storage, err := filestorage.NewB2Storage(ctx, filestorage.B2Config{
			KeyID:   cfg.FileStorage.B2KeyID,
			AppKey:  cfg.FileStorage.B2AppKey,
			Bucket:  cfg.FileStorage.B2Bucket,
			BaseURL: cfg.FileStorage.B2BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return b2Storage, nil
	}

	// must match the static route registered by the server
	fileStorageBaseURL := strings.TrimRight(cfg.Server.PublicBaseURL, "/") + "/uploads"
	localStorage, err := filestorage.NewLocalStorage(cfg.Server.StoragePath, fileStorageBaseURL)
	if err != nil {
		return nil, err
	}
	return localStorage, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, store kvstore.Store, files filestorage.FileStorage, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Store:       store,
		FileStorage: files,
		Logger:      lgr,
	}

	deps.Repos = appRepos.NewRepositories(store, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 720*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.SessionRepository,
		deps.JWTService,
		lgr,
	)

	deps.SubmissionService = appServices.NewSubmissionService(
		deps.Repos.SubmissionRepository,
		files,
		appServices.SubmissionConfig{
			PublicBaseURL: cfg.Server.PublicBaseURL,
			Retention:     helpers.ParseDuration(cfg.Submissions.Retention, 720*time.Hour),
			MaxUploadSize: cfg.Server.MaxUploadSize,
		},
		lgr,
	)

	deps.Hub = websocket.NewHub(lgr)
	hubCtx, stopHub := context.WithCancel(context.Background())
	deps.stopHub = stopHub
	go deps.Hub.Run(hubCtx)
	deps.SubmissionService.WithNotifier(deps.Hub)
	deps.WebSocketHandler = websocket.NewHandler(deps.Hub, deps.SubmissionService, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.AuthService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.SubmissionController = appControllers.NewSubmissionController(deps.SubmissionService, lgr)

	if err := seed.CreateDefaultData(ctx, cfg, deps.AuthService, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}
	gin.DefaultWriter = io.Discard

	appMiddleware.RegisterValidation()

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))
	// multipart bodies above this size spill to temporary files
	router.MaxMultipartMemory = cfg.Server.MaxUploadSize + 1<<20

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"), ginSwagger.DefaultModelsExpandDepth(1)))

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.SubmissionController,
		deps.WebSocketHandler,
		deps.AuthMiddleware,
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
