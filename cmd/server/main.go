package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/access"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/board"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/config"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/engine"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/logging"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/server"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/storage"
)

func main() {
	// 설정 로드
	cfg := config.Load()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Logger setup failed: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
	store, err := storage.Open(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("✅ Storage ready", zap.String("driver", store.Name()))

	boards, gate, err := loadState(store, cfg, logger)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		Boards:        boards,
		Gate:          gate,
		Store:         store,
		Logger:        logger,
		Debounce:      cfg.Persist.Debounce,
		ForceInterval: cfg.Persist.ForceInterval,
		Tick:          cfg.Persist.Tick,
		StoreTimeout:  cfg.Storage.Timeout,
	})
	eng.Start(context.Background())

	srv := server.New(cfg, eng, store, logger)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("🛑 Shutting down server...", zap.Stringer("signal", sig))
	case err := <-serveErr:
		if err != nil {
			logger.Error("listener stopped", zap.Error(err))
		}
	}

	// 엔진을 먼저 멈춰 마지막 저장을 끝내고 WebSocket 연결을 닫는다
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := eng.Stop(stopCtx); err != nil {
		logger.Error("engine stop", zap.Error(err))
	}
	if err := srv.Shutdown(stopCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	return nil
}

// loadState 저장된 보드/사용자 문서를 읽는다. 없으면 기본값으로 시작한다.
func loadState(store *storage.Store, cfg *config.Config, logger *zap.Logger) (*board.Registry, *access.Gate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
	defer cancel()

	boards := board.NewRegistry()
	boardsDoc, err := store.LoadBoards(ctx)
	switch {
	case err == nil:
		boards = board.Load(boardsDoc)
	case errors.Is(err, storage.ErrNotFound):
		logger.Info("ℹ️ No saved boards, starting with the default board")
	default:
		return nil, nil, err
	}

	gate := access.NewGate(cfg.Admin.Username)
	usersDoc, err := store.LoadUsers(ctx)
	switch {
	case err == nil:
		gate = access.Load(usersDoc)
	case errors.Is(err, storage.ErrNotFound):
		logger.Info("ℹ️ No saved users, seeding administrator", zap.String("admin", cfg.Admin.Username))
		if err := store.SaveUsers(ctx, gate.Snapshot()); err != nil {
			logger.Error("seed users save failed", zap.Error(err))
		}
	default:
		return nil, nil, err
	}

	// 삭제된 보드의 권한 항목 정리
	for id := range gate.AccessTable() {
		if _, ok := boards.Get(id); !ok {
			gate.RemoveBoard(id)
		}
	}

	logger.Info("📦 State loaded",
		zap.Int("boards", boards.Len()),
		zap.Int("users", len(gate.Users())))
	return boards, gate, nil
}
