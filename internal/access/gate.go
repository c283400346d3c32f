package access

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

// Gate 사용자 레지스트리와 보드별 권한 테이블.
// 엔진 루프만 접근하므로 잠금을 두지 않는다.
type Gate struct {
	users   map[string]model.User
	order   []string
	entries map[string]*model.AccessEntry
	newID   func() string
}

// NewGate 관리자와 공개 기본 보드로 시작
func NewGate(adminUsername string) *Gate {
	g := &Gate{
		users:   make(map[string]model.User),
		entries: make(map[string]*model.AccessEntry),
		newID:   uuid.NewString,
	}
	if adminUsername = strings.TrimSpace(adminUsername); adminUsername != "" {
		g.addUser(model.User{ID: g.newID(), Username: adminUsername, IsAdmin: true})
	}
	g.entries[model.DefaultBoardID] = publicEntry()
	return g
}

// Load 저장된 문서에서 복원. 기본 보드 항목이 없으면 공개로 다시 만든다.
func Load(doc model.UsersDocument) *Gate {
	g := &Gate{
		users:   make(map[string]model.User, len(doc.Users)),
		entries: make(map[string]*model.AccessEntry, len(doc.BoardAccess)),
		newID:   uuid.NewString,
	}
	for _, u := range doc.Users {
		if u.Username == "" || IsReservedName(u.Username) {
			continue
		}
		if u.ID == "" {
			u.ID = g.newID()
		}
		g.addUser(u)
	}
	for boardID, entry := range doc.BoardAccess {
		g.entries[boardID] = &model.AccessEntry{
			ReadAccess:  normalizeSet(entry.ReadAccess),
			WriteAccess: normalizeSet(entry.WriteAccess),
		}
	}
	if _, ok := g.entries[model.DefaultBoardID]; !ok {
		g.entries[model.DefaultBoardID] = publicEntry()
	}
	return g
}

func publicEntry() *model.AccessEntry {
	return &model.AccessEntry{
		ReadAccess:  []string{model.Wildcard},
		WriteAccess: []string{model.Wildcard},
	}
}

func (g *Gate) addUser(u model.User) {
	if _, exists := g.users[u.Username]; !exists {
		g.order = append(g.order, u.Username)
	}
	g.users[u.Username] = u
}

// IsAdmin 관리자 여부
func (g *Gate) IsAdmin(username string) bool {
	if username == "" {
		return false
	}
	return g.users[username].IsAdmin
}

// Lookup 등록된 사용자 조회
func (g *Gate) Lookup(username string) (model.User, bool) {
	u, ok := g.users[username]
	return u, ok
}

// Resolve 사용자 조회, 없으면 일반 사용자로 등록.
// 자동 생성 이름은 등록하지 않는다. created는 레지스트리 변경 여부.
func (g *Gate) Resolve(username string) (user model.User, created bool) {
	if u, ok := g.users[username]; ok {
		return u, false
	}
	u := model.User{ID: g.newID(), Username: username}
	if IsDefaultName(username) {
		return u, false
	}
	g.addUser(u)
	return u, true
}

// CanRead 읽기 권한
func (g *Gate) CanRead(username, boardID string) bool {
	if g.IsAdmin(username) {
		return true
	}
	entry, ok := g.entries[boardID]
	if !ok {
		return false
	}
	return permits(entry.ReadAccess, username)
}

// CanWrite 쓰기 권한
func (g *Gate) CanWrite(username, boardID string) bool {
	if g.IsAdmin(username) {
		return true
	}
	entry, ok := g.entries[boardID]
	if !ok {
		return false
	}
	return permits(entry.WriteAccess, username)
}

func permits(set []string, username string) bool {
	if slices.Contains(set, model.Wildcard) {
		return true
	}
	return username != "" && slices.Contains(set, username)
}

// SetOwner 보드를 owner 전용으로 설정
func (g *Gate) SetOwner(boardID, owner string) {
	g.entries[boardID] = &model.AccessEntry{
		ReadAccess:  []string{owner},
		WriteAccess: []string{owner},
	}
}

// UpdateAccess 권한 부여/회수 (멱등). nil이면 해당 권한은 그대로.
// 항목이 없던 보드는 공개 기본값에서 시작한다.
func (g *Gate) UpdateAccess(boardID, username string, read, write *bool) model.AccessEntry {
	username = NormalizeUsername(username)
	entry, ok := g.entries[boardID]
	if !ok {
		entry = publicEntry()
		g.entries[boardID] = entry
	}
	if read != nil {
		entry.ReadAccess = apply(entry.ReadAccess, username, *read)
	}
	if write != nil {
		entry.WriteAccess = apply(entry.WriteAccess, username, *write)
	}
	return copyEntry(entry)
}

func apply(set []string, username string, grant bool) []string {
	has := slices.Contains(set, username)
	switch {
	case grant && !has:
		return append(set, username)
	case !grant && has:
		return slices.DeleteFunc(set, func(s string) bool { return s == username })
	}
	return set
}

// RemoveBoard 삭제된 보드의 권한 항목 제거
func (g *Gate) RemoveBoard(boardID string) {
	delete(g.entries, boardID)
}

// Entry 보드 권한 항목 복사본
func (g *Gate) Entry(boardID string) (model.AccessEntry, bool) {
	entry, ok := g.entries[boardID]
	if !ok {
		return model.AccessEntry{}, false
	}
	return copyEntry(entry), true
}

// Users 등록 순서대로 사용자 목록
func (g *Gate) Users() []model.User {
	out := make([]model.User, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.users[name])
	}
	return out
}

// AccessTable 전체 권한 테이블 복사본
func (g *Gate) AccessTable() map[string]model.AccessEntry {
	out := make(map[string]model.AccessEntry, len(g.entries))
	for id, entry := range g.entries {
		out[id] = copyEntry(entry)
	}
	return out
}

// Snapshot 저장용 문서
func (g *Gate) Snapshot() model.UsersDocument {
	return model.UsersDocument{
		Users:       g.Users(),
		BoardAccess: g.AccessTable(),
	}
}

// IsReservedName 와일드카드로 해석되는 이름 (사용자 이름으로 쓸 수 없음)
func IsReservedName(username string) bool {
	return NormalizeUsername(username) == model.Wildcard
}

// NormalizeUsername 공백 제거 + 와일드카드 별칭 변환
func NormalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	if strings.EqualFold(username, model.WildcardAlias) {
		return model.Wildcard
	}
	return username
}

func normalizeSet(set []string) []string {
	out := make([]string, 0, len(set))
	for _, name := range set {
		name = NormalizeUsername(name)
		if name == "" || slices.Contains(out, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func copyEntry(entry *model.AccessEntry) model.AccessEntry {
	return model.AccessEntry{
		ReadAccess:  append([]string{}, entry.ReadAccess...),
		WriteAccess: append([]string{}, entry.WriteAccess...),
	}
}
