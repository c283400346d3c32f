package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

// Peer 세션의 전송 계층.
// Send는 블로킹하지 않으며 버퍼가 가득 차면 false를 반환한다.
type Peer interface {
	Send(frame []byte) bool
	Open() bool
	Close()
}

// Session 클라이언트 세션
type Session struct {
	ID          string
	Username    string
	BoardID     string
	IsAdmin     bool
	Peer        Peer
	ConnectedAt time.Time
}

// Duration 연결 유지 시간
func (s *Session) Duration(now time.Time) time.Duration {
	return now.Sub(s.ConnectedAt)
}

// Registry 연결 레지스트리.
// 엔진 루프만 접근하므로 잠금을 두지 않는다.
type Registry struct {
	sessions map[string]*Session
	order    []string
	newID    func() string
}

// NewRegistry 빈 레지스트리 생성
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		newID:    uuid.NewString,
	}
}

// Add 새 세션 등록. 세션은 기본 보드에서 시작한다.
func (r *Registry) Add(peer Peer, now time.Time) *Session {
	id := r.newID()
	for _, taken := r.sessions[id]; taken; _, taken = r.sessions[id] {
		id = r.newID()
	}
	s := &Session{
		ID:          id,
		BoardID:     model.DefaultBoardID,
		Peer:        peer,
		ConnectedAt: now,
	}
	r.sessions[id] = s
	r.order = append(r.order, id)
	return s
}

// Get 세션 조회
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Remove 세션 제거
func (r *Registry) Remove(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return s, true
}

// Each 연결 순서대로 순회. fn이 false를 반환하면 중단한다.
func (r *Registry) Each(fn func(*Session) bool) {
	for _, id := range r.order {
		if !fn(r.sessions[id]) {
			return
		}
	}
}

// OnBoard boardID를 보고 있는 세션 목록
func (r *Registry) OnBoard(boardID string) []*Session {
	var out []*Session
	r.Each(func(s *Session) bool {
		if s.BoardID == boardID {
			out = append(out, s)
		}
		return true
	})
	return out
}

// ByUsername username을 사용하는 세션 목록
func (r *Registry) ByUsername(username string) []*Session {
	if username == "" {
		return nil
	}
	var out []*Session
	r.Each(func(s *Session) bool {
		if s.Username == username {
			out = append(out, s)
		}
		return true
	})
	return out
}

// Len 연결 수
func (r *Registry) Len() int {
	return len(r.sessions)
}
