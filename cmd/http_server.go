package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/auth"
	authpostgres "github.com/irfansh/bugtracker/internal/auth/postgres"
	"github.com/irfansh/bugtracker/internal/bug"
	bugpostgres "github.com/irfansh/bugtracker/internal/bug/postgres"
	"github.com/irfansh/bugtracker/internal/project"
	projectpostgres "github.com/irfansh/bugtracker/internal/project/postgres"
	"github.com/irfansh/bugtracker/internal/storage"
	"github.com/irfansh/bugtracker/internal/transport/rest"
	"github.com/irfansh/bugtracker/internal/user"
	userpostgres "github.com/irfansh/bugtracker/internal/user/postgres"
	"github.com/irfansh/bugtracker/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	files, err := storage.NewDiskStore(config.Storage.UploadDir, config.Storage.AllowedExtensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	projectRepo := projectpostgres.NewProjectRepository(gormDB)
	projectService := project.NewService(projectRepo, lg)
	projectHandler := project.NewHandler(projectService)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authRepo := authpostgres.NewAuthRepository(gormDB)
	authService := auth.NewService(authRepo, projectService, tokenGen, lg, config.Security.BCryptCost)
	authHandler := auth.NewHandler(authService)

	userRepo := userpostgres.NewUserRepository(gormDB)
	userService := user.NewService(userRepo, func(password string) (string, error) {
		return auth.HashPassword(password, config.Security.BCryptCost)
	}, lg)
	userHandler := user.NewHandler(userService)

	bugRepo := bugpostgres.NewBugRepository(gormDB)
	bugService := bug.NewService(bugRepo, projectRepo, files, lg)
	bugHandler := bug.NewHandler(bugService, config.Storage.MaxUploadBytes)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, authHandler, userHandler, projectHandler, bugHandler, files.Dir(), lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
	}, nil
}

// initDB opens the pgx-backed connection pool shared by gorm and the health
// check.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
