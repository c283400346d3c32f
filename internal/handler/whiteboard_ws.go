package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/config"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/session"
)

// Hub 세션 프로토콜을 처리하는 엔진
type Hub interface {
	Connect(ctx context.Context, peer session.Peer) (string, error)
	Disconnect(sessionID string)
	Submit(sessionID string, frame []byte) bool
}

// WhiteboardWSHandler 화이트보드 WebSocket 핸들러
type WhiteboardWSHandler struct {
	hub  Hub
	ws   config.WebSocketConfig
	rate config.RateLimitConfig
	log  *zap.Logger
}

// NewWhiteboardWSHandler WhiteboardWSHandler 생성
func NewWhiteboardWSHandler(hub Hub, ws config.WebSocketConfig, limits config.RateLimitConfig, log *zap.Logger) *WhiteboardWSHandler {
	return &WhiteboardWSHandler{hub: hub, ws: ws, rate: limits, log: log.Named("ws")}
}

// wsPeer 연결별 전송 버퍼. 엔진은 Send로 넣기만 하고 실제 쓰기는 writePump가 한다.
type wsPeer struct {
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPeer(buffer int) *wsPeer {
	return &wsPeer{
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

// Send 버퍼가 가득 차거나 닫혔으면 false
func (p *wsPeer) Send(frame []byte) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

// Open 연결 유지 여부
func (p *wsPeer) Open() bool {
	select {
	case <-p.closed:
		return false
	default:
		return true
	}
}

// Close 여러 번 호출해도 안전
func (p *wsPeer) Close() {
	p.once.Do(func() { close(p.closed) })
}

// HandleWebSocket WebSocket 연결 처리
func (h *WhiteboardWSHandler) HandleWebSocket(c *websocket.Conn) {
	peer := newPeer(h.ws.SendBuffer)

	id, err := h.hub.Connect(context.Background(), peer)
	if err != nil {
		h.log.Warn("connection rejected", zap.Error(err))
		c.Close()
		return
	}
	log := h.log.With(zap.String("session", id))

	// writePump가 끝나기 전에 핸들러가 반환되면 안 된다 (fiber가 conn을 재사용)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(c, peer, log)
	}()

	defer func() {
		h.hub.Disconnect(id)
		peer.Close()
		wg.Wait()
		c.Close()
	}()

	c.SetReadLimit(h.ws.MaxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(h.rate.MessagesPerSecond), h.rate.Burst)

	for {
		messageType, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("client closed connection")
			} else if websocket.IsUnexpectedCloseError(err) {
				log.Info("unexpected disconnect", zap.Error(err))
			} else {
				log.Debug("read ended", zap.Error(err))
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Debug("ignoring non-text frame", zap.Int("type", messageType))
			continue
		}
		if !limiter.Allow() {
			log.Warn("rate limit exceeded, dropping frame", zap.Int("bytes", len(msg)))
			continue
		}
		if !h.hub.Submit(id, msg) {
			return
		}
	}
}

// writePump 전송 버퍼를 소켓에 쓰고 주기적으로 ping을 보낸다
func (h *WhiteboardWSHandler) writePump(c *websocket.Conn, peer *wsPeer, log *zap.Logger) {
	ticker := time.NewTicker(h.ws.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-peer.send:
			_ = c.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
			if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug("write failed", zap.Error(err))
				peer.Close()
				// 읽기 루프를 깨운다
				_ = c.SetReadDeadline(time.Now())
				return
			}

		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("ping failed", zap.Error(err))
				peer.Close()
				_ = c.SetReadDeadline(time.Now())
				return
			}

		case <-peer.closed:
			_ = c.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
			_ = c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// 읽기 루프가 아직 돌고 있으면 종료시킨다 (엔진 종료 등)
			_ = c.SetReadDeadline(time.Now())
			return
		}
	}
}
