package board

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

var (
	// ErrNotFound 없는 보드 ID
	ErrNotFound = errors.New("board not found")
	// ErrDefaultBoard 기본 보드는 삭제할 수 없음
	ErrDefaultBoard = errors.New("default board cannot be deleted")
)

// UntitledName 빈 이름 대신 사용
const UntitledName = "Untitled Board"

// Board 공유 캔버스 하나. ID는 바뀌지 않는다.
type Board struct {
	ID      string
	Name    string
	actions []model.Action
}

// Actions 액션 로그 복사본
func (b *Board) Actions() []model.Action {
	out := make([]model.Action, len(b.actions))
	copy(out, b.actions)
	return out
}

// Len 액션 수
func (b *Board) Len() int {
	return len(b.actions)
}

// Append 로그 끝에 추가
func (b *Board) Append(action model.Action) {
	b.actions = append(b.actions, action)
}

// UndoLast clientID의 가장 최근 액션 제거. 없으면 false.
func (b *Board) UndoLast(clientID string) (model.Action, bool) {
	if clientID == "" {
		return nil, false
	}
	for i := len(b.actions) - 1; i >= 0; i-- {
		if b.actions[i].ClientID() != clientID {
			continue
		}
		removed := b.actions[i]
		b.actions = append(b.actions[:i:i], b.actions[i+1:]...)
		return removed, true
	}
	return nil, false
}

// Clear 로그 비우기. 지운 개수 반환
func (b *Board) Clear() int {
	n := len(b.actions)
	b.actions = nil
	return n
}

// ClearUser username의 액션만 제거 (나머지 순서 유지)
func (b *Board) ClearUser(username string) int {
	kept := make([]model.Action, 0, len(b.actions))
	for _, a := range b.actions {
		if a.Username() == username {
			continue
		}
		kept = append(kept, a)
	}
	removed := len(b.actions) - len(kept)
	b.actions = kept
	return removed
}

// State 보드 전체 상태
func (b *Board) State() model.BoardState {
	return model.BoardState{ID: b.ID, Name: b.Name, Actions: b.Actions()}
}

// Registry 보드 레지스트리. 기본 보드는 항상 존재한다.
// 엔진 루프만 접근하므로 잠금을 두지 않는다.
type Registry struct {
	boards map[string]*Board
	order  []string
	newID  func() string
}

// NewRegistry 빈 기본 보드만 가진 레지스트리
func NewRegistry() *Registry {
	r := &Registry{
		boards: make(map[string]*Board),
		newID:  uuid.NewString,
	}
	r.ensureDefault()
	return r
}

// Load 저장된 문서에서 복원. 기본 보드가 없으면 추가한다.
func Load(doc model.BoardsDocument) *Registry {
	r := &Registry{
		boards: make(map[string]*Board, len(doc)),
		newID:  uuid.NewString,
	}

	// 저장된 생성 순서대로, 순서가 없는 레코드는 그 뒤에 id 순으로
	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		oi, oj := doc[ids[i]].Order, doc[ids[j]].Order
		if (oi > 0) != (oj > 0) {
			return oi > 0
		}
		if oi != oj {
			return oi < oj
		}
		return ids[i] < ids[j]
	})

	r.ensureDefault()
	if rec, ok := doc[model.DefaultBoardID]; ok {
		def := r.boards[model.DefaultBoardID]
		if rec.Name != "" {
			def.Name = rec.Name
		}
		def.actions = append([]model.Action(nil), rec.Actions...)
	}

	for _, id := range ids {
		if id == model.DefaultBoardID || id == "" {
			continue
		}
		rec := doc[id]
		r.add(&Board{
			ID:      id,
			Name:    rec.Name,
			actions: append([]model.Action(nil), rec.Actions...),
		})
	}
	return r
}

func (r *Registry) ensureDefault() {
	if _, ok := r.boards[model.DefaultBoardID]; ok {
		return
	}
	r.add(&Board{ID: model.DefaultBoardID, Name: model.DefaultBoardName})
}

func (r *Registry) add(b *Board) {
	r.boards[b.ID] = b
	r.order = append(r.order, b.ID)
}

// Get 보드 조회
func (r *Registry) Get(id string) (*Board, bool) {
	b, ok := r.boards[id]
	return b, ok
}

// Create 새 ID로 보드 생성
func (r *Registry) Create(name string) *Board {
	id := r.newID()
	for _, taken := r.boards[id]; taken; _, taken = r.boards[id] {
		id = r.newID()
	}
	b := &Board{ID: id, Name: cleanName(name)}
	r.add(b)
	return b
}

// Rename 보드 이름 변경
func (r *Registry) Rename(id, name string) error {
	b, ok := r.boards[id]
	if !ok {
		return ErrNotFound
	}
	b.Name = cleanName(name)
	return nil
}

// Delete 보드 삭제 (기본 보드 제외)
func (r *Registry) Delete(id string) error {
	if id == model.DefaultBoardID {
		return ErrDefaultBoard
	}
	if _, ok := r.boards[id]; !ok {
		return ErrNotFound
	}
	delete(r.boards, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List 생성 순서대로 id/name 목록 (기본 보드 먼저)
func (r *Registry) List() []model.BoardInfo {
	out := make([]model.BoardInfo, 0, len(r.order))
	for _, id := range r.order {
		b := r.boards[id]
		out = append(out, model.BoardInfo{ID: b.ID, Name: b.Name})
	}
	return out
}

// Len 보드 수
func (r *Registry) Len() int {
	return len(r.boards)
}

// Snapshot 저장용 문서. 액션은 추가 후 변경되지 않으므로 슬라이스만 복사한다.
func (r *Registry) Snapshot() model.BoardsDocument {
	doc := make(model.BoardsDocument, len(r.boards))
	for i, id := range r.order {
		b := r.boards[id]
		doc[id] = model.BoardRecord{Name: b.Name, Order: i + 1, Actions: b.Actions()}
	}
	return doc
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UntitledName
	}
	return name
}
