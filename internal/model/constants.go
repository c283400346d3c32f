package model

// 기본 보드 (삭제 불가)
const (
	DefaultBoardID   = "default"
	DefaultBoardName = "Main Board"
)

// Wildcard 모든 사용자를 의미하는 접근 권한 값
const Wildcard = "*"

// WildcardAlias 클라이언트가 보낼 수 있는 와일드카드 별칭
const WildcardAlias = "everyone"

// MessageType WebSocket 메시지 타입
type MessageType string

// 클라이언트 -> 서버
const (
	TypeUsername     MessageType = "username"
	TypeSwitchBoard  MessageType = "switch_board"
	TypeCreateBoard  MessageType = "create_board"
	TypeRenameBoard  MessageType = "rename_board"
	TypeDeleteBoard  MessageType = "delete_board"
	TypeUpdateAccess MessageType = "update_access"
	TypeGetUsers     MessageType = "get_users"
	TypeDraw         MessageType = "draw"
	TypeErase        MessageType = "erase"
	TypeUndo         MessageType = "undo"
	TypeRedo         MessageType = "redo"
	TypeClear        MessageType = "clear"
	TypeClearUser    MessageType = "clear_user"
	TypePan          MessageType = "pan"
	TypeZoom         MessageType = "zoom"
)

// 서버 -> 클라이언트
const (
	TypeInit           MessageType = "init"
	TypeBoardState     MessageType = "board_state"
	TypeBoardsList     MessageType = "boards_list"
	TypeAdminStatus    MessageType = "admin_status"
	TypeUsersList      MessageType = "users_list"
	TypeAccessRights   MessageType = "access_rights"
	TypeWriteAccess    MessageType = "write_access"
	TypeUserUpdate     MessageType = "user_update"
	TypeUserDisconnect MessageType = "user_disconnect"
	TypeUpdate         MessageType = "update"
	TypeError          MessageType = "error"
)

func (m MessageType) String() string {
	return string(m)
}
