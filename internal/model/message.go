package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingType type 필드가 없는 메시지
var ErrMissingType = errors.New("message has no type")

// Payload 클라이언트가 보낸 JSON 객체.
// 그리기 데이터(좌표, 색상, 두께 등)는 해석하지 않고 숫자 표현까지 그대로 보존한다.
type Payload map[string]any

// Action 액션 로그에 저장되는 페이로드
type Action = Payload

// DecodePayload 수신 프레임을 Payload로 파싱
func DecodePayload(raw []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p == nil {
		return nil, ErrMissingType
	}
	if p.Type() == "" {
		return nil, ErrMissingType
	}
	return p, nil
}

// Type 메시지 타입
func (p Payload) Type() MessageType {
	return MessageType(p.String("type"))
}

// ClientID 원본 클라이언트 ID
func (p Payload) ClientID() string {
	return p.String("clientId")
}

// Username 작성자 이름
func (p Payload) Username() string {
	return p.String("username")
}

// String 문자열 필드 조회 (없거나 문자열이 아니면 "")
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// TrimmedString 앞뒤 공백을 제거한 문자열 필드
func (p Payload) TrimmedString(key string) string {
	return strings.TrimSpace(p.String(key))
}

// OptionalBool 불리언 필드 조회. 필드가 없거나 불리언이 아니면 nil
func (p Payload) OptionalBool(key string) *bool {
	if v, ok := p[key].(bool); ok {
		return &v
	}
	return nil
}

// InitMessage 연결 직후 전송되는 초기 상태
type InitMessage struct {
	Type            MessageType `json:"type"`
	ClientID        string      `json:"clientId"`
	BoardID         string      `json:"boardId"`
	Boards          []BoardInfo `json:"boards"`
	State           BoardState  `json:"state"`
	CanWrite        bool        `json:"canWrite"`
	DefaultUsername string      `json:"defaultUsername"`
}

// BoardStateMessage 보드 전환/생성 시 보드 전체 상태
type BoardStateMessage struct {
	Type     MessageType `json:"type"`
	BoardID  string      `json:"boardId"`
	Name     string      `json:"name"`
	Actions  []Action    `json:"actions"`
	CanWrite bool        `json:"canWrite"`
}

// BoardsListMessage 보드 목록
type BoardsListMessage struct {
	Type   MessageType `json:"type"`
	Boards []BoardInfo `json:"boards"`
}

// AdminStatusMessage 관리자 여부
type AdminStatusMessage struct {
	Type    MessageType `json:"type"`
	IsAdmin bool        `json:"isAdmin"`
}

// UsersListMessage 사용자 목록 + 권한 테이블 (관리자 전용)
type UsersListMessage struct {
	Type        MessageType            `json:"type"`
	Users       []User                 `json:"users"`
	BoardAccess map[string]AccessEntry `json:"boardAccess"`
}

// AccessRightsMessage 권한 변경 결과
type AccessRightsMessage struct {
	Type        MessageType            `json:"type"`
	BoardAccess map[string]AccessEntry `json:"boardAccess"`
}

// WriteAccessMessage 현재 보드의 쓰기 가능 여부
type WriteAccessMessage struct {
	Type     MessageType `json:"type"`
	BoardID  string      `json:"boardId"`
	CanWrite bool        `json:"canWrite"`
}

// UserEventMessage user_update / user_disconnect
type UserEventMessage struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"clientId"`
	Username string      `json:"username,omitempty"`
}

// ClearMessage 보드 전체 지우기
type ClearMessage struct {
	Type      MessageType `json:"type"`
	BoardID   string      `json:"boardId"`
	ClientID  string      `json:"clientId"`
	Timestamp int64       `json:"timestamp"`
}

// ClearUserMessage 특정 사용자 액션 지우기
type ClearUserMessage struct {
	Type     MessageType `json:"type"`
	BoardID  string      `json:"boardId"`
	Username string      `json:"username"`
}

// UpdateMessage 보드 액션 전체 갱신 (undo 이후)
type UpdateMessage struct {
	Type    MessageType `json:"type"`
	BoardID string      `json:"boardId"`
	Actions []Action    `json:"actions"`
}

// ErrorMessage 요청 거부 응답
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// NewError ErrorMessage 생성
func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}
