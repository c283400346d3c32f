package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

// BoardLister 보드 목록 조회
type BoardLister interface {
	Boards(ctx context.Context) ([]model.BoardInfo, error)
}

// BoardHandler 보드 목록 HTTP 핸들러
type BoardHandler struct {
	boards  BoardLister
	timeout time.Duration
}

// NewBoardHandler BoardHandler 생성
func NewBoardHandler(boards BoardLister, timeout time.Duration) *BoardHandler {
	return &BoardHandler{boards: boards, timeout: timeout}
}

// ListBoards 보드 id/name 목록 (액션 로그 제외)
func (h *BoardHandler) ListBoards(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	boards, err := h.boards.Boards(ctx)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "board registry unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"boards": boards,
	})
}
