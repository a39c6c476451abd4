package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutor-backend/internal/config"
	"tutor-backend/internal/handler"
	"tutor-backend/internal/llm"
	"tutor-backend/internal/localstore"
	"tutor-backend/internal/service"
	"tutor-backend/internal/storage"
	"tutor-backend/internal/timer"
	"tutor-backend/pkg/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	config.Watch(func(updated *config.Config) {
		if err := logger.SetLevel(updated.Log.Level); err != nil {
			logger.Warnf("config reload: %v", err)
			return
		}
		logger.Infof("config reloaded, log level %s", updated.Log.Level)
	}, func(err error) {
		logger.Warnf("config reload ignored: %v", err)
	})

	sessions, err := newSessionStorage(cfg.Storage)
	if err != nil {
		return err
	}
	defer sessions.Close()

	progressStore, err := newProgressStore(cfg.Progress)
	if err != nil {
		return err
	}
	defer progressStore.Close()

	factory, err := llm.NewFactory(cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to configure model provider: %w", err)
	}

	// 初始化服务
	clients := service.NewClientRegistry(factory)
	scheduler := timer.NewScheduler()
	defer scheduler.Stop()
	pomodoros := timer.NewPomodoroManager(timer.PomodoroOptions{
		StudyDuration: cfg.Pomodoro.StudyDuration,
		BreakDuration: cfg.Pomodoro.BreakDuration,
		AutoBreak:     cfg.Pomodoro.AutoBreak,
		TickInterval:  cfg.Pomodoro.TickInterval,
	})
	defer pomodoros.Close()

	progressService := service.NewProgressService(progressStore)
	quizService := service.NewQuizService(sessions, clients, scheduler, progressService, cfg.Tutor)
	chatService := service.NewChatService(sessions, clients, scheduler, quizService, cfg.Tutor)

	// 初始化处理器
	router := handler.SetupRouter(cfg, handler.Handlers{
		Chat: handler.NewChatHandler(chatService, handler.StreamOptions{
			Timeout:   cfg.Server.StreamTimeout,
			Heartbeat: cfg.Server.Heartbeat,
		}),
		Socket:   handler.NewSocketHandler(chatService, cfg.CORS.AllowedOrigins, cfg.Server.StreamTimeout),
		Quiz:     handler.NewQuizHandler(quizService, cfg.Tutor.DefaultQuizQuestions),
		Progress: handler.NewProgressHandler(chatService, progressService),
		Pomodoro: handler.NewPomodoroHandler(chatService, pomodoros),
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("server listening on port %d (provider %s, storage %s)", cfg.Server.Port, cfg.Model.Provider, cfg.Storage.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
		return server.Close()
	}
	logger.Info("server stopped")
	return nil
}

func newSessionStorage(cfg config.StorageConfig) (storage.Storage, error) {
	var store storage.Storage
	switch cfg.Type {
	case "disk":
		store = storage.NewDiskStorage(cfg.DataDir, cfg.CacheSize)
	default:
		store = storage.NewMemoryStorage()
	}
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to init %s storage: %w", cfg.Type, err)
	}
	return store, nil
}

func newProgressStore(cfg config.ProgressConfig) (localstore.Store, error) {
	if cfg.Type != "sqlite" {
		return localstore.NewMemoryStore(), nil
	}
	store, err := localstore.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress store: %w", err)
	}
	return store, nil
}
