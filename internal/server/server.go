package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/config"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/engine"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/handler"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/storage"
)

// Server Fiber 서버 래퍼
type Server struct {
	app           *fiber.App
	cfg           *config.Config
	log           *zap.Logger
	healthHandler *handler.HealthHandler
	boardHandler  *handler.BoardHandler
	wsHandler     *handler.WhiteboardWSHandler
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, eng *engine.Engine, store *storage.Store, log *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Infinity Whiteboard",
		ServerHeader:          "Fiber",
		StrictRouting:         false,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	return &Server{
		app:           app,
		cfg:           cfg,
		log:           log.Named("server"),
		healthHandler: handler.NewHealthHandler(store, eng, cfg.Storage.Timeout),
		boardHandler:  handler.NewBoardHandler(eng, cfg.Storage.Timeout),
		wsHandler:     handler.NewWhiteboardWSHandler(eng, cfg.WebSocket, cfg.RateLimit, log),
	}
}

// App 내부 fiber 앱 (테스트용)
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, OPTIONS",
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate Limiter 설정 (HTTP API용)
	apiLimiter := limiter.New(limiter.Config{
		Max:        s.cfg.RateLimit.APIPerMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	api := s.app.Group("/api", apiLimiter)
	api.Get("/boards", s.boardHandler.ListBoards)

	// WebSocket 화이트보드 엔드포인트 (/ws, 그리고 기존 클라이언트용 /)
	upgrade := func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
	ws := websocket.New(s.wsHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	})
	s.app.Get("/ws", upgrade, ws)
	s.app.Get("/", upgrade, ws)
}

// Start 서버 시작. Shutdown이 호출될 때까지 블로킹한다.
func (s *Server) Start() error {
	s.log.Info("🚀 Infinity Whiteboard starting", zap.String("addr", s.cfg.Server.Port))
	s.log.Info("📡 WebSocket endpoint", zap.String("url", "ws://localhost"+s.cfg.Server.Port+"/ws"))
	return s.app.Listen(s.cfg.Server.Port)
}

// Serve 이미 열린 리스너로 서버 시작
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown 서버 종료
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn("shutdown timed out, open connections dropped")
	}
	return err
}
