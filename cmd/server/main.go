package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	route "github.com/bassista/go_autosave/internal/api/route"
	appctx "github.com/bassista/go_autosave/internal/app"
	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/config"
	"github.com/bassista/go_autosave/internal/executor"
	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/report"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/enrichman/httpgrace"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err == nil {
		logger.WithComponent("main").Debug("loaded environment from .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	if !logger.ApplyLevel(cfg.Misc.LogLevel) {
		logger.WithComponent("main").Warnf("invalid log level '%s', keeping '%s'", cfg.Misc.LogLevel, logger.Logger.GetLevel())
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel())
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)

	repo, err := repository.NewJSONRepository(cfg.Data.FilePath)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init repository: %v", err)
	}

	jsonDoc, err := repo.Load(context.Background())
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot load data file: %v", err)
	}

	cacheStore := cache.NewStore(*jsonDoc)
	exec, err := executor.NewExecutorFromConfig(cfg.AutoSave.Executor, cacheStore, executor.RemoteOptions{
		BaseURL: cfg.AutoSave.RemoteBaseURL,
		Timeout: cfg.AutoSave.RemoteTimeout,
	})
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init save executor: %v", err)
	}
	logger.WithComponent("main").Infof("auto-save executor: %s, debounce delay: %v", cfg.AutoSave.Executor, cfg.AutoSave.Delay)

	app, err := appctx.New(cfg, repo, cacheStore, exec, report.NewFromEnv())
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer shutdown(app)

	if err := app.StartWatchers(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start watchers: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := route.SetupRoutes(app, logger.Logger)
	srv := createGraceHttpServer(app.BaseCtx, "main-server", app.Config.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Error(err)
	}
}

// shutdown flushes open sessions and the cache once the HTTP server has stopped.
func shutdown(app *appctx.App) {
	timeout := app.Config.Server.ShutDownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	app.Shutdown(ctx)
	logger.WithComponent("main").Info("shutdown complete")
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
