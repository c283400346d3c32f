package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/engine"
)

// Pinger 저장소 상태 확인
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// StatsSource 엔진 상태 조회
type StatsSource interface {
	Stats(ctx context.Context) (engine.Stats, error)
}

// HealthHandler 헬스체크 핸들러
type HealthHandler struct {
	store   Pinger
	engine  StatsSource
	timeout time.Duration
}

// NewHealthHandler HealthHandler 생성
func NewHealthHandler(store Pinger, engine StatsSource, timeout time.Duration) *HealthHandler {
	return &HealthHandler{store: store, engine: engine, timeout: timeout}
}

// ComponentCheck 컴포넌트 상태
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse 헬스체크 응답
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Sessions  int                       `json:"sessions"`
	Boards    int                       `json:"boards"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check 전체 상태 확인 (저장소 + 엔진)
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	// 1. 저장소 체크
	storeStart := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Checks["storage"] = ComponentCheck{
			Status: "unhealthy",
			Error:  h.store.Name() + " ping failed",
		}
	} else {
		response.Checks["storage"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(storeStart).String(),
		}
	}

	// 2. 엔진 루프 체크
	engineStart := time.Now()
	stats, err := h.engine.Stats(ctx)
	if err != nil {
		response.Status = "unhealthy"
		response.Checks["engine"] = ComponentCheck{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		response.Sessions = stats.Sessions
		response.Boards = stats.Boards
		response.Checks["engine"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(engineStart).String(),
		}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness K8s liveness probe용 (단순 체크)
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness K8s readiness probe용 (저장소 연결 체크)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}
