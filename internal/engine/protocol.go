package engine

import (
	"errors"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/access"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/board"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/session"
)

// 클라이언트에 전달되는 거부 메시지
const (
	errNoWrite         = "You do not have write access to this board"
	errNoRead          = "You do not have read access to this board"
	errNeedUsername    = "You must set a username before creating a board"
	errRenameDenied    = "You do not have permission to rename this board"
	errDeleteDenied    = "Only administrators can delete boards"
	errDeleteDefault   = "The default board cannot be deleted"
	errBoardNotFound   = "Board not found"
	errAccessDenied    = "Only administrators can update access rights"
	errAccessNoTarget  = "A username is required to update access rights"
	errUsersDenied     = "Only administrators can view users"
	errClearUserDenied = "You can only clear your own drawings"
	errReservedName    = "This username is reserved"
)

// connect 세션 생성 후 init 전송
func (e *Engine) connect(peer session.Peer) string {
	s := e.sessions.Add(peer, e.clock.Now())

	def, _ := e.boards.Get(model.DefaultBoardID)
	state := e.stateFor(s, def)

	e.router.SendTo(s, model.InitMessage{
		Type:            model.TypeInit,
		ClientID:        s.ID,
		BoardID:         s.BoardID,
		Boards:          e.boards.List(),
		State:           state,
		CanWrite:        e.gate.CanWrite(s.Username, s.BoardID),
		DefaultUsername: access.GenerateDefaultName(),
	})

	e.log.Info("client connected",
		zap.String("session", s.ID),
		zap.Int("sessions", e.sessions.Len()))
	return s.ID
}

// disconnect 세션 제거 후 다른 클라이언트에 통지
func (e *Engine) disconnect(id string) {
	s, ok := e.sessions.Remove(id)
	if !ok {
		return
	}
	s.Peer.Close()

	e.router.BroadcastAll(model.UserEventMessage{
		Type:     model.TypeUserDisconnect,
		ClientID: s.ID,
		Username: s.Username,
	}, "")

	e.log.Info("client disconnected",
		zap.String("session", s.ID),
		zap.String("username", s.Username),
		zap.Duration("connected", s.Duration(e.clock.Now())),
		zap.Int("sessions", e.sessions.Len()))
}

// handle 수신 프레임 하나를 처리. 패닉은 이 메시지에서 멈춘다.
func (e *Engine) handle(sessionID string, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic while handling message",
				zap.String("session", sessionID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	s, ok := e.sessions.Get(sessionID)
	if !ok {
		return
	}

	msg, err := model.DecodePayload(frame)
	if err != nil {
		e.log.Warn("malformed message",
			zap.String("session", s.ID),
			zap.Int("bytes", len(frame)),
			zap.Error(err))
		return
	}

	// clientId는 항상 세션 ID. 다른 클라이언트 행세를 막는다.
	msg["clientId"] = s.ID
	msg["timestamp"] = e.clock.Now().UnixMilli()

	switch t := msg.Type(); t {
	case model.TypeUsername:
		e.handleUsername(s, msg)
	case model.TypeSwitchBoard:
		e.handleSwitchBoard(s, msg)
	case model.TypeCreateBoard:
		e.handleCreateBoard(s, msg)
	case model.TypeRenameBoard:
		e.handleRenameBoard(s, msg)
	case model.TypeDeleteBoard:
		e.handleDeleteBoard(s, msg)
	case model.TypeUpdateAccess:
		e.handleUpdateAccess(s, msg)
	case model.TypeGetUsers:
		e.handleGetUsers(s, msg)
	case model.TypeDraw, model.TypeErase:
		e.handleStroke(s, msg)
	case model.TypeUndo:
		e.handleUndo(s, msg)
	case model.TypeClear:
		e.handleClear(s, msg)
	case model.TypeClearUser:
		e.handleClearUser(s, msg)
	case model.TypePan, model.TypeZoom:
		e.handleView(s, msg)
	case model.TypeRedo:
		// redo는 클라이언트 로컬 동작
		e.log.Debug("redo ignored", zap.String("session", s.ID))
	default:
		e.log.Debug("unknown message type", zap.String("session", s.ID), zap.Stringer("type", t))
	}
}

func (e *Engine) handleUsername(s *session.Session, msg model.Payload) {
	name := msg.TrimmedString("username")
	if name == "" {
		e.log.Debug("empty username ignored", zap.String("session", s.ID))
		return
	}
	if access.IsReservedName(name) {
		e.deny(s, msg, errReservedName)
		return
	}

	user, created := e.gate.Resolve(name)
	s.Username = name
	s.IsAdmin = user.IsAdmin

	e.router.SendTo(s, model.AdminStatusMessage{Type: model.TypeAdminStatus, IsAdmin: s.IsAdmin})
	e.sendWriteAccess(s)
	e.router.BroadcastAll(model.UserEventMessage{
		Type:     model.TypeUserUpdate,
		ClientID: s.ID,
		Username: name,
	}, "")
	if created {
		e.saveUsers()
	}

	e.log.Info("username set",
		zap.String("session", s.ID),
		zap.String("username", name),
		zap.Bool("admin", s.IsAdmin),
		zap.Bool("new", created))
}

func (e *Engine) handleSwitchBoard(s *session.Session, msg model.Payload) {
	id := msg.TrimmedString("boardId")
	b, ok := e.boards.Get(id)
	if !ok {
		e.log.Debug("switch to unknown board", zap.String("session", s.ID), zap.String("board", id))
		return
	}
	if !e.gate.CanRead(s.Username, id) {
		e.deny(s, msg, errNoRead)
		return
	}

	s.BoardID = id
	e.sendBoardState(s, b)
	e.sendWriteAccess(s)
}

func (e *Engine) handleCreateBoard(s *session.Session, msg model.Payload) {
	if s.Username == "" {
		e.deny(s, msg, errNeedUsername)
		return
	}

	b := e.boards.Create(msg.TrimmedString("name"))
	e.gate.SetOwner(b.ID, s.Username)

	s.BoardID = b.ID
	e.sendBoardState(s, b)
	e.broadcastBoards()
	e.touch()
	e.saveUsers()

	e.log.Info("board created",
		zap.String("board", b.ID),
		zap.String("name", b.Name),
		zap.String("owner", s.Username))
}

func (e *Engine) handleRenameBoard(s *session.Session, msg model.Payload) {
	id := msg.TrimmedString("boardId")
	if _, ok := e.boards.Get(id); !ok {
		e.log.Debug("rename of unknown board", zap.String("session", s.ID), zap.String("board", id))
		return
	}
	if !s.IsAdmin && !e.gate.CanWrite(s.Username, id) {
		e.deny(s, msg, errRenameDenied)
		return
	}
	if err := e.boards.Rename(id, msg.String("name")); err != nil {
		e.log.Warn("rename failed", zap.String("board", id), zap.Error(err))
		return
	}

	e.broadcastBoards()
	e.touch()
}

func (e *Engine) handleDeleteBoard(s *session.Session, msg model.Payload) {
	id := msg.TrimmedString("boardId")
	if id == model.DefaultBoardID {
		e.deny(s, msg, errDeleteDefault)
		return
	}
	if !s.IsAdmin {
		e.deny(s, msg, errDeleteDenied)
		return
	}
	if err := e.boards.Delete(id); err != nil {
		if errors.Is(err, board.ErrNotFound) {
			e.deny(s, msg, errBoardNotFound)
			return
		}
		e.log.Warn("delete failed", zap.String("board", id), zap.Error(err))
		return
	}
	e.gate.RemoveBoard(id)

	def, _ := e.boards.Get(model.DefaultBoardID)
	for _, affected := range e.sessions.OnBoard(id) {
		affected.BoardID = model.DefaultBoardID
		e.sendBoardState(affected, def)
	}
	e.broadcastBoards()
	e.touch()
	e.saveUsers()

	e.log.Info("board deleted", zap.String("board", id), zap.String("by", s.Username))
}

func (e *Engine) handleUpdateAccess(s *session.Session, msg model.Payload) {
	if !s.IsAdmin {
		e.deny(s, msg, errAccessDenied)
		return
	}
	boardID := msg.TrimmedString("boardId")
	if _, ok := e.boards.Get(boardID); !ok {
		e.deny(s, msg, errBoardNotFound)
		return
	}
	target := access.NormalizeUsername(msg.String("username"))
	if target == "" {
		e.deny(s, msg, errAccessNoTarget)
		return
	}

	read := firstBool(msg, "read", "readAccess")
	write := firstBool(msg, "write", "writeAccess")
	entry := e.gate.UpdateAccess(boardID, target, read, write)

	e.router.SendTo(s, model.AccessRightsMessage{
		Type:        model.TypeAccessRights,
		BoardAccess: e.gate.AccessTable(),
	})

	// 해당 보드를 보고 있는 대상 사용자에게 쓰기 권한 변경 통지
	affected := e.sessions.ByUsername(target)
	if target == model.Wildcard {
		affected = e.sessions.OnBoard(boardID)
	}
	for _, a := range affected {
		if a.BoardID == boardID {
			e.sendWriteAccess(a)
		}
	}
	e.saveUsers()

	e.log.Info("access updated",
		zap.String("board", boardID),
		zap.String("username", target),
		zap.Strings("read", entry.ReadAccess),
		zap.Strings("write", entry.WriteAccess))
}

func (e *Engine) handleGetUsers(s *session.Session, msg model.Payload) {
	if !s.IsAdmin {
		e.deny(s, msg, errUsersDenied)
		return
	}
	e.router.SendTo(s, model.UsersListMessage{
		Type:        model.TypeUsersList,
		Users:       e.gate.Users(),
		BoardAccess: e.gate.AccessTable(),
	})
}

// handleStroke draw/erase를 현재 보드 로그에 추가하고 나머지에게 중계
func (e *Engine) handleStroke(s *session.Session, msg model.Payload) {
	b, ok := e.currentBoard(s)
	if !ok {
		return
	}
	if !e.gate.CanWrite(s.Username, b.ID) {
		e.deny(s, msg, errNoWrite)
		return
	}

	// 작성자 이름은 세션 기준
	if s.Username != "" {
		msg["username"] = s.Username
	} else {
		delete(msg, "username")
	}

	b.Append(msg)
	e.router.BroadcastToBoard(b.ID, msg, s.ID)
	e.touch()
}

func (e *Engine) handleUndo(s *session.Session, msg model.Payload) {
	b, ok := e.currentBoard(s)
	if !ok {
		return
	}
	if !e.gate.CanWrite(s.Username, b.ID) {
		e.deny(s, msg, errNoWrite)
		return
	}
	if _, removed := b.UndoLast(s.ID); !removed {
		e.log.Debug("nothing to undo", zap.String("session", s.ID), zap.String("board", b.ID))
		return
	}

	e.router.BroadcastToBoard(b.ID, model.UpdateMessage{
		Type:    model.TypeUpdate,
		BoardID: b.ID,
		Actions: b.Actions(),
	}, "")
	e.touch()
}

func (e *Engine) handleClear(s *session.Session, msg model.Payload) {
	b, ok := e.currentBoard(s)
	if !ok {
		return
	}
	if !s.IsAdmin && !e.gate.CanWrite(s.Username, b.ID) {
		e.deny(s, msg, errNoWrite)
		return
	}

	n := b.Clear()
	e.router.BroadcastToBoard(b.ID, model.ClearMessage{
		Type:      model.TypeClear,
		BoardID:   b.ID,
		ClientID:  msg.ClientID(),
		Timestamp: e.clock.Now().UnixMilli(),
	}, "")
	e.touch()

	e.log.Info("board cleared", zap.String("board", b.ID), zap.Int("actions", n), zap.String("by", s.Username))
}

func (e *Engine) handleClearUser(s *session.Session, msg model.Payload) {
	b, ok := e.currentBoard(s)
	if !ok {
		return
	}
	target := msg.TrimmedString("targetUsername")
	if target == "" {
		target = msg.TrimmedString("username")
	}
	if target == "" {
		e.log.Debug("clear_user without target", zap.String("session", s.ID))
		return
	}
	if !s.IsAdmin && (s.Username == "" || s.Username != target) {
		e.deny(s, msg, errClearUserDenied)
		return
	}

	n := b.ClearUser(target)
	e.router.BroadcastToBoard(b.ID, model.ClearUserMessage{
		Type:     model.TypeClearUser,
		BoardID:  b.ID,
		Username: target,
	}, "")
	if n > 0 {
		e.touch()
	}
}

// handleView pan/zoom은 저장하지 않고 같은 보드에만 중계. 읽기나 쓰기 중 하나면 된다.
func (e *Engine) handleView(s *session.Session, msg model.Payload) {
	b, ok := e.currentBoard(s)
	if !ok {
		return
	}
	if !e.gate.CanRead(s.Username, b.ID) && !e.gate.CanWrite(s.Username, b.ID) {
		e.deny(s, msg, errNoRead)
		return
	}
	e.router.BroadcastToBoard(b.ID, msg, s.ID)
}

// currentBoard 세션의 현재 보드. 삭제 시 세션이 재배정되므로 보통 항상 존재한다.
func (e *Engine) currentBoard(s *session.Session) (*board.Board, bool) {
	b, ok := e.boards.Get(s.BoardID)
	if !ok {
		e.log.Warn("session on missing board, moving to default",
			zap.String("session", s.ID), zap.String("board", s.BoardID))
		s.BoardID = model.DefaultBoardID
		def, _ := e.boards.Get(model.DefaultBoardID)
		e.sendBoardState(s, def)
		return nil, false
	}
	return b, true
}

// stateFor 읽기 권한이 없으면 액션 없이 보드 정보만 준다
func (e *Engine) stateFor(s *session.Session, b *board.Board) model.BoardState {
	state := b.State()
	if !e.gate.CanRead(s.Username, b.ID) {
		state.Actions = []model.Action{}
	}
	return state
}

func (e *Engine) sendBoardState(s *session.Session, b *board.Board) {
	state := e.stateFor(s, b)
	e.router.SendTo(s, model.BoardStateMessage{
		Type:     model.TypeBoardState,
		BoardID:  state.ID,
		Name:     state.Name,
		Actions:  state.Actions,
		CanWrite: e.gate.CanWrite(s.Username, b.ID),
	})
}

func (e *Engine) sendWriteAccess(s *session.Session) {
	e.router.SendTo(s, model.WriteAccessMessage{
		Type:     model.TypeWriteAccess,
		BoardID:  s.BoardID,
		CanWrite: e.gate.CanWrite(s.Username, s.BoardID),
	})
}

func (e *Engine) broadcastBoards() {
	e.router.BroadcastAll(model.BoardsListMessage{
		Type:   model.TypeBoardsList,
		Boards: e.boards.List(),
	}, "")
}

// deny 거부 응답. 공유 상태는 바뀌지 않는다.
func (e *Engine) deny(s *session.Session, msg model.Payload, reason string) {
	e.log.Debug("request denied",
		zap.String("session", s.ID),
		zap.String("username", s.Username),
		zap.Stringer("type", msg.Type()),
		zap.String("board", s.BoardID),
		zap.String("reason", reason))
	e.router.SendTo(s, model.NewError(reason))
}

func firstBool(msg model.Payload, keys ...string) *bool {
	for _, key := range keys {
		if v := msg.OptionalBool(key); v != nil {
			return v
		}
	}
	return nil
}
