package broadcast

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/session"
)

// Router 세션 레지스트리 기반 메시지 라우터.
// 메시지는 한 번만 인코딩되고 각 세션의 전송 버퍼에 넣어진다.
type Router struct {
	sessions *session.Registry
	log      *zap.Logger
}

// NewRouter Router 생성
func NewRouter(sessions *session.Registry, log *zap.Logger) *Router {
	return &Router{sessions: sessions, log: log}
}

// Encode 메시지를 JSON 프레임으로 변환. []byte는 그대로 사용한다.
func Encode(msg any) ([]byte, error) {
	if frame, ok := msg.([]byte); ok {
		return frame, nil
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return frame, nil
}

// SendTo 단일 세션으로 전송
func (r *Router) SendTo(s *session.Session, msg any) bool {
	frame, err := Encode(msg)
	if err != nil {
		r.log.Error("encode failed", zap.Error(err))
		return false
	}
	return r.deliver(s, frame)
}

// BroadcastAll 모든 세션으로 전송. exclude 세션은 건너뛴다.
func (r *Router) BroadcastAll(msg any, exclude string) int {
	frame, err := Encode(msg)
	if err != nil {
		r.log.Error("encode failed", zap.Error(err))
		return 0
	}
	sent := 0
	r.sessions.Each(func(s *session.Session) bool {
		if s.ID != exclude && r.deliver(s, frame) {
			sent++
		}
		return true
	})
	return sent
}

// BroadcastToBoard boardID를 보고 있는 세션으로만 전송
func (r *Router) BroadcastToBoard(boardID string, msg any, exclude string) int {
	frame, err := Encode(msg)
	if err != nil {
		r.log.Error("encode failed", zap.Error(err))
		return 0
	}
	sent := 0
	r.sessions.Each(func(s *session.Session) bool {
		if s.BoardID == boardID && s.ID != exclude && r.deliver(s, frame) {
			sent++
		}
		return true
	})
	return sent
}

func (r *Router) deliver(s *session.Session, frame []byte) bool {
	if s.Peer == nil || !s.Peer.Open() {
		return false
	}
	if !s.Peer.Send(frame) {
		r.log.Warn("send buffer full, dropping frame",
			zap.String("session", s.ID),
			zap.Int("bytes", len(frame)))
		return false
	}
	return true
}
