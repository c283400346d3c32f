package engine

import (
	"slices"
	"testing"
	"time"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/access"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

func TestConnectSendsInit(t *testing.T) {
	h := newHarness(t)
	p := &fakePeer{}

	id := h.e.connect(p)

	init := p.last(t, "init")
	if init["clientId"] != id || init["boardId"] != model.DefaultBoardID {
		t.Errorf("init = %v", init)
	}
	if init["canWrite"] != true {
		t.Error("default board should be writable")
	}
	name, _ := init["defaultUsername"].(string)
	if !access.IsDefaultName(name) {
		t.Errorf("defaultUsername = %q", name)
	}
	boards := init["boards"].([]any)
	if len(boards) != 1 || boards[0].(map[string]any)["id"] != model.DefaultBoardID {
		t.Errorf("boards = %v", boards)
	}
	state := init["state"].(map[string]any)
	if state["name"] != model.DefaultBoardName || len(state["actions"].([]any)) != 0 {
		t.Errorf("state = %v", state)
	}
}

func TestUsername(t *testing.T) {
	h := newHarness(t)
	watcher, _ := h.join("")
	p, id := h.join("")

	h.send(id, map[string]any{"type": "username", "username": "  Alice "})

	if got := p.last(t, "admin_status"); got["isAdmin"] != false {
		t.Errorf("admin_status = %v", got)
	}
	if got := p.last(t, "write_access"); got["canWrite"] != true || got["boardId"] != model.DefaultBoardID {
		t.Errorf("write_access = %v", got)
	}
	update := watcher.last(t, "user_update")
	if update["clientId"] != id || update["username"] != "Alice" {
		t.Errorf("user_update = %v", update)
	}
	if len(p.ofType(t, "user_update")) != 1 {
		t.Error("sender should also receive user_update")
	}
	if h.store.userWrites() != 1 {
		t.Errorf("user writes = %d, want 1", h.store.userWrites())
	}

	h.send(id, map[string]any{"type": "username", "username": "Alice"})
	if h.store.userWrites() != 1 {
		t.Error("known user persisted again")
	}
}

func TestUsernameAdminAndDefaultNames(t *testing.T) {
	h := newHarness(t)
	p, id := h.join("")

	h.send(id, map[string]any{"type": "username", "username": "HappyPanda7"})
	if h.store.userWrites() != 0 {
		t.Error("generated default name was persisted")
	}

	h.send(id, map[string]any{"type": "username", "username": "admin"})
	if got := p.last(t, "admin_status"); got["isAdmin"] != true {
		t.Errorf("admin_status = %v", got)
	}
	s, _ := h.e.sessions.Get(id)
	if !s.IsAdmin {
		t.Error("session not marked admin")
	}

	p.reset()
	h.send(id, map[string]any{"type": "username", "username": "   "})
	if p.count() != 0 {
		t.Error("blank username produced a response")
	}
	if s.Username != "admin" {
		t.Errorf("blank username replaced %q", s.Username)
	}
}

func TestDrawIsTaggedAndRelayedToOthers(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, _ := h.join("Bob")
	carol, carolID := h.join("Carol")

	h.e.boards.Create("elsewhere")
	sprint := h.e.boards.List()[1].ID
	h.e.gate.UpdateAccess(sprint, model.Wildcard, boolPtr(true), nil)
	h.send(carolID, map[string]any{"type": "switch_board", "boardId": sprint})
	h.reset(alice, bob, carol)

	h.clock.Add(1500 * time.Millisecond)
	h.send(aliceID, map[string]any{
		"type":     "draw",
		"username": "Mallory",
		"points":   []any{map[string]any{"x": 1, "y": 2}, map[string]any{"x": 3, "y": 4}},
		"color":    "#000",
	})

	log := h.actions(model.DefaultBoardID)
	if len(log) != 1 {
		t.Fatalf("log has %d actions, want 1", len(log))
	}
	if log[0].Username() != "Alice" {
		t.Errorf("username = %q, want Alice", log[0].Username())
	}
	if log[0].ClientID() != aliceID {
		t.Errorf("clientId = %q", log[0].ClientID())
	}
	if log[0]["timestamp"] != h.clock.Now().UnixMilli() {
		t.Errorf("timestamp = %v", log[0]["timestamp"])
	}

	if alice.count() != 0 {
		t.Error("sender received its own draw")
	}
	if carol.count() != 0 {
		t.Error("draw leaked to another board")
	}
	got := bob.last(t, "draw")
	if got["username"] != "Alice" || len(got["points"].([]any)) != 2 {
		t.Errorf("relayed draw = %v", got)
	}
}

func TestAnonymousDrawHasNoUsername(t *testing.T) {
	h := newHarness(t)
	_, id := h.join("")

	h.send(id, map[string]any{"type": "erase", "username": "Alice", "x": 1})

	log := h.actions(model.DefaultBoardID)
	if len(log) != 1 {
		t.Fatalf("log = %v", log)
	}
	if _, ok := log[0]["username"]; ok {
		t.Errorf("anonymous action carries username %v", log[0]["username"])
	}
}

func TestDrawWithoutWriteAccessIsRejected(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	bob, bobID := h.join("Bob")

	h.send(adminID, map[string]any{"type": "create_board", "name": "X"})
	x := admin.last(t, "board_state")["boardId"].(string)
	h.send(adminID, map[string]any{"type": "update_access", "boardId": x, "username": "Bob", "read": true})
	h.send(bobID, map[string]any{"type": "switch_board", "boardId": x})
	if got := bob.last(t, "board_state"); got["canWrite"] != false {
		t.Errorf("bob board_state = %v", got)
	}
	h.reset(admin, bob)

	for _, typ := range []string{"draw", "erase", "undo", "clear"} {
		h.send(bobID, map[string]any{"type": typ, "x": 1})
	}

	errs := bob.ofType(t, "error")
	if len(errs) != 4 {
		t.Fatalf("errors = %v", bob.messages(t))
	}
	for _, e := range errs {
		if e["message"] != errNoWrite {
			t.Errorf("error message = %v", e["message"])
		}
	}
	if len(h.actions(x)) != 0 {
		t.Error("denied draw mutated the log")
	}
	if admin.count() != 0 {
		t.Errorf("admin received %v", admin.messages(t))
	}
}

func TestSwitchBoard(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	bob, bobID := h.join("Bob")

	h.send(adminID, map[string]any{"type": "create_board", "name": "Private"})
	private := admin.last(t, "board_state")["boardId"].(string)
	h.reset(bob)

	h.send(bobID, map[string]any{"type": "switch_board", "boardId": private})
	if got := bob.last(t, "error"); got["message"] != errNoRead {
		t.Errorf("error = %v", got)
	}
	s, _ := h.e.sessions.Get(bobID)
	if s.BoardID != model.DefaultBoardID {
		t.Error("denied switch moved the session")
	}

	bob.reset()
	h.send(bobID, map[string]any{"type": "switch_board", "boardId": "nope"})
	if bob.count() != 0 {
		t.Error("switch to unknown board should be silent")
	}

	h.send(adminID, map[string]any{"type": "switch_board", "boardId": model.DefaultBoardID})
	state := admin.last(t, "board_state")
	if state["boardId"] != model.DefaultBoardID || state["name"] != model.DefaultBoardName {
		t.Errorf("board_state = %v", state)
	}
	if got := admin.last(t, "write_access"); got["canWrite"] != true {
		t.Errorf("write_access = %v", got)
	}
}

func TestCreateBoard(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	other, _ := h.join("Bob")
	anon, anonID := h.join("")

	h.send(anonID, map[string]any{"type": "create_board", "name": "Nope"})
	if got := anon.last(t, "error"); got["message"] != errNeedUsername {
		t.Errorf("error = %v", got)
	}
	if h.e.boards.Len() != 1 {
		t.Fatal("board created without username")
	}
	h.reset(anon)

	h.send(adminID, map[string]any{"type": "create_board", "name": "Sprint"})

	state := admin.last(t, "board_state")
	id, _ := state["boardId"].(string)
	if id == "" || id == model.DefaultBoardID || state["name"] != "Sprint" || state["canWrite"] != true {
		t.Fatalf("board_state = %v", state)
	}
	entry, ok := h.e.gate.Entry(id)
	if !ok || !slices.Equal(entry.ReadAccess, []string{"admin"}) || !slices.Equal(entry.WriteAccess, []string{"admin"}) {
		t.Errorf("entry = %+v", entry)
	}
	s, _ := h.e.sessions.Get(adminID)
	if s.BoardID != id {
		t.Error("creator not switched to the new board")
	}
	for _, p := range []*fakePeer{admin, other, anon} {
		list := p.last(t, "boards_list")["boards"].([]any)
		if len(list) != 2 || list[1].(map[string]any)["name"] != "Sprint" {
			t.Errorf("boards_list = %v", list)
		}
	}
	if h.store.userWrites() == 0 {
		t.Error("access entry not persisted")
	}
	if !h.e.scheduler.Pending() {
		t.Error("board change not scheduled for persistence")
	}
}

func TestRenameBoard(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, bobID := h.join("Bob")

	h.send(aliceID, map[string]any{"type": "create_board", "name": "Draft"})
	id := alice.last(t, "board_state")["boardId"].(string)
	h.reset(alice, bob)

	h.send(bobID, map[string]any{"type": "rename_board", "boardId": id, "name": "Hijack"})
	if got := bob.last(t, "error"); got["message"] != errRenameDenied {
		t.Errorf("error = %v", got)
	}

	h.send(bobID, map[string]any{"type": "rename_board", "boardId": "missing", "name": "x"})
	if len(bob.ofType(t, "error")) != 1 {
		t.Error("rename of unknown board should be silent")
	}

	h.send(aliceID, map[string]any{"type": "rename_board", "boardId": id, "name": "Final"})
	b, _ := h.e.boards.Get(id)
	if b.Name != "Final" {
		t.Errorf("name = %q", b.Name)
	}
	list := bob.last(t, "boards_list")["boards"].([]any)
	if list[1].(map[string]any)["name"] != "Final" {
		t.Errorf("boards_list = %v", list)
	}
}

func TestDeleteBoardReassignsSessions(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	bob, bobID := h.join("Bob")
	carol, _ := h.join("Carol")

	h.send(adminID, map[string]any{"type": "create_board", "name": "Doomed"})
	id := admin.last(t, "board_state")["boardId"].(string)
	h.send(adminID, map[string]any{"type": "update_access", "boardId": id, "username": "everyone", "read": true, "write": true})
	h.send(bobID, map[string]any{"type": "switch_board", "boardId": id})
	h.send(bobID, map[string]any{"type": "draw", "x": 1})
	h.reset(admin, bob, carol)

	h.send(bobID, map[string]any{"type": "delete_board", "boardId": id})
	if got := bob.last(t, "error"); got["message"] != errDeleteDenied {
		t.Errorf("non-admin delete error = %v", got)
	}
	bob.reset()

	h.send(adminID, map[string]any{"type": "delete_board", "boardId": id})

	if _, ok := h.e.boards.Get(id); ok {
		t.Fatal("board still present")
	}
	if _, ok := h.e.gate.Entry(id); ok {
		t.Error("access entry still present")
	}
	for _, p := range []*fakePeer{admin, bob} {
		state := p.last(t, "board_state")
		if state["boardId"] != model.DefaultBoardID {
			t.Errorf("reassigned state = %v", state)
		}
	}
	if len(carol.ofType(t, "board_state")) != 0 {
		t.Error("session on default received a board_state")
	}
	for _, id := range []string{adminID, bobID} {
		s, _ := h.e.sessions.Get(id)
		if s.BoardID != model.DefaultBoardID {
			t.Errorf("session %s on %q", id, s.BoardID)
		}
	}
	if list := carol.last(t, "boards_list")["boards"].([]any); len(list) != 1 {
		t.Errorf("boards_list = %v", list)
	}
}

func TestDeleteBoardErrors(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	bob, bobID := h.join("Bob")

	tests := []struct {
		name string
		peer *fakePeer
		id   string
		send string
		want string
	}{
		{"default by admin", admin, adminID, model.DefaultBoardID, errDeleteDefault},
		{"default by user", bob, bobID, model.DefaultBoardID, errDeleteDefault},
		{"missing board", admin, adminID, "missing", errBoardNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.peer.reset()
			h.send(tt.id, map[string]any{"type": "delete_board", "boardId": tt.send})
			if got := tt.peer.last(t, "error"); got["message"] != tt.want {
				t.Errorf("error = %v, want %q", got["message"], tt.want)
			}
		})
	}
	if _, ok := h.e.boards.Get(model.DefaultBoardID); !ok {
		t.Fatal("default board deleted")
	}
}

func TestUpdateAccess(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	bob, bobID := h.join("Bob")

	h.send(bobID, map[string]any{"type": "update_access", "boardId": model.DefaultBoardID, "username": "Bob", "write": false})
	if got := bob.last(t, "error"); got["message"] != errAccessDenied {
		t.Errorf("error = %v", got)
	}

	h.send(adminID, map[string]any{"type": "update_access", "boardId": "missing", "username": "Bob", "read": true})
	if got := admin.last(t, "error"); got["message"] != errBoardNotFound {
		t.Errorf("error = %v", got)
	}

	h.send(adminID, map[string]any{"type": "create_board", "name": "Team"})
	team := admin.last(t, "board_state")["boardId"].(string)
	h.send(adminID, map[string]any{"type": "update_access", "boardId": team, "username": "Bob", "readAccess": true})
	h.send(bobID, map[string]any{"type": "switch_board", "boardId": team})
	h.reset(admin, bob)
	writes := h.store.userWrites()

	h.send(adminID, map[string]any{"type": "update_access", "boardId": team, "username": "Bob", "write": true})

	table := admin.last(t, "access_rights")["boardAccess"].(map[string]any)
	write := table[team].(map[string]any)["writeAccess"].([]any)
	if len(write) != 2 || write[1] != "Bob" {
		t.Errorf("writeAccess = %v", write)
	}
	if got := bob.last(t, "write_access"); got["canWrite"] != true || got["boardId"] != team {
		t.Errorf("bob write_access = %v", got)
	}
	if h.store.userWrites() != writes+1 {
		t.Error("access change not persisted synchronously")
	}

	// idempotent
	h.send(adminID, map[string]any{"type": "update_access", "boardId": team, "username": "Bob", "write": true})
	entry, _ := h.e.gate.Entry(team)
	if !slices.Equal(entry.WriteAccess, []string{"admin", "Bob"}) {
		t.Errorf("write after repeat = %v", entry.WriteAccess)
	}
}

func TestUpdateAccessNotifiesOnlyAffectedBoard(t *testing.T) {
	h := newHarness(t)
	_, adminID := h.join("admin")
	bob, _ := h.join("Bob")
	carol, _ := h.join("Carol")

	h.send(adminID, map[string]any{"type": "update_access", "boardId": model.DefaultBoardID, "username": "Bob", "write": false})
	if len(bob.ofType(t, "write_access")) != 1 {
		t.Error("bob not notified of his write capability")
	}
	if len(carol.ofType(t, "write_access")) != 0 {
		t.Error("unrelated user notified")
	}

	h.reset(bob, carol)
	h.send(adminID, map[string]any{"type": "update_access", "boardId": model.DefaultBoardID, "username": "everyone", "write": false})
	for _, p := range []*fakePeer{bob, carol} {
		if got := p.last(t, "write_access"); got["canWrite"] != false {
			t.Errorf("write_access = %v", got)
		}
	}
}

func TestGetUsers(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	bob, bobID := h.join("Bob")

	h.send(bobID, map[string]any{"type": "get_users"})
	if got := bob.last(t, "error"); got["message"] != errUsersDenied {
		t.Errorf("error = %v", got)
	}

	h.send(adminID, map[string]any{"type": "get_users"})
	list := admin.last(t, "users_list")
	users := list["users"].([]any)
	if len(users) != 2 || users[1].(map[string]any)["username"] != "Bob" {
		t.Errorf("users = %v", users)
	}
	if _, ok := list["boardAccess"].(map[string]any)[model.DefaultBoardID]; !ok {
		t.Errorf("boardAccess = %v", list["boardAccess"])
	}
}

func TestUndoRemovesOnlyLatestOfSender(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, bobID := h.join("Bob")

	h.send(aliceID, map[string]any{"type": "draw", "tag": "a1"})
	h.send(bobID, map[string]any{"type": "draw", "tag": "b1"})
	h.send(aliceID, map[string]any{"type": "draw", "tag": "a2"})
	h.send(bobID, map[string]any{"type": "draw", "tag": "b2"})
	h.reset(alice, bob)

	h.send(aliceID, map[string]any{"type": "undo"})

	var tags []string
	for _, a := range h.actions(model.DefaultBoardID) {
		tags = append(tags, a.String("tag"))
	}
	if !slices.Equal(tags, []string{"a1", "b1", "b2"}) {
		t.Errorf("log = %v", tags)
	}
	for _, p := range []*fakePeer{alice, bob} {
		update := p.last(t, "update")
		if update["boardId"] != model.DefaultBoardID || len(update["actions"].([]any)) != 3 {
			t.Errorf("update = %v", update)
		}
	}
}

func TestUndoWithNothingToUndoIsSilent(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, bobID := h.join("Bob")

	h.send(bobID, map[string]any{"type": "draw", "tag": "b1"})
	h.reset(alice, bob)

	h.send(aliceID, map[string]any{"type": "undo"})

	if alice.count() != 0 || bob.count() != 0 {
		t.Error("no-op undo produced messages")
	}
	if len(h.actions(model.DefaultBoardID)) != 1 {
		t.Error("no-op undo changed the log")
	}
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, _ := h.join("Bob")

	h.send(aliceID, map[string]any{"type": "draw"})
	h.reset(alice, bob)

	h.send(aliceID, map[string]any{"type": "clear"})

	if len(h.actions(model.DefaultBoardID)) != 0 {
		t.Error("log not cleared")
	}
	for _, p := range []*fakePeer{alice, bob} {
		got := p.last(t, "clear")
		if got["boardId"] != model.DefaultBoardID || got["clientId"] != aliceID {
			t.Errorf("clear = %v", got)
		}
	}
}

func TestClearUser(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	alice, aliceID := h.join("Alice")
	bob, bobID := h.join("Bob")

	h.send(aliceID, map[string]any{"type": "draw", "tag": "a1"})
	h.send(bobID, map[string]any{"type": "draw", "tag": "b1"})
	h.send(aliceID, map[string]any{"type": "draw", "tag": "a2"})
	h.send(bobID, map[string]any{"type": "draw", "tag": "b2"})
	h.reset(admin, alice, bob)

	h.send(aliceID, map[string]any{"type": "clear_user", "targetUsername": "Bob"})
	if got := alice.last(t, "error"); got["message"] != errClearUserDenied {
		t.Errorf("error = %v", got)
	}
	if len(h.actions(model.DefaultBoardID)) != 4 {
		t.Fatal("denied clear_user changed the log")
	}

	h.send(aliceID, map[string]any{"type": "clear_user", "targetUsername": "Alice"})
	tags := func() []string {
		var out []string
		for _, a := range h.actions(model.DefaultBoardID) {
			out = append(out, a.String("tag"))
		}
		return out
	}
	if got := tags(); !slices.Equal(got, []string{"b1", "b2"}) {
		t.Errorf("log after self clear = %v", got)
	}
	if got := bob.last(t, "clear_user"); got["username"] != "Alice" || got["boardId"] != model.DefaultBoardID {
		t.Errorf("clear_user = %v", got)
	}

	h.send(adminID, map[string]any{"type": "clear_user", "username": "Bob"})
	if got := tags(); len(got) != 0 {
		t.Errorf("log after admin clear = %v", got)
	}
}

func TestPanAndZoomAreRelayedNotStored(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, _ := h.join("Bob")

	h.send(aliceID, map[string]any{"type": "pan", "offsetX": 10, "offsetY": -4})
	h.send(aliceID, map[string]any{"type": "zoom", "scale": 1.5})

	if len(h.actions(model.DefaultBoardID)) != 0 {
		t.Error("view event stored in the log")
	}
	if alice.count() != 0 {
		t.Error("view event echoed to sender")
	}
	if got := bob.last(t, "pan"); got["offsetX"] != float64(10) || got["clientId"] != aliceID {
		t.Errorf("pan = %v", got)
	}
	if got := bob.last(t, "zoom"); got["scale"] != 1.5 {
		t.Errorf("zoom = %v", got)
	}
	if h.e.scheduler.Pending() {
		t.Error("view events scheduled a write")
	}
}

func TestMalformedAndUnknownMessagesAreIgnored(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, _ := h.join("Bob")

	for _, frame := range []string{`{not json`, `[]`, `{"x":1}`, `{"type":"redo"}`, `{"type":"dance"}`} {
		h.e.handle(aliceID, []byte(frame))
	}

	if alice.count() != 0 || bob.count() != 0 {
		t.Errorf("ignored frames produced messages: %v %v", alice.messages(t), bob.messages(t))
	}
	if _, ok := h.e.sessions.Get(aliceID); !ok {
		t.Error("malformed frame dropped the session")
	}

	h.send(aliceID, map[string]any{"type": "draw"})
	if len(bob.ofType(t, "draw")) != 1 {
		t.Error("session stopped working after bad frames")
	}
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")
	bob, _ := h.join("Bob")

	h.e.disconnect(aliceID)

	if _, ok := h.e.sessions.Get(aliceID); ok {
		t.Fatal("session still registered")
	}
	if alice.Open() {
		t.Error("peer not closed")
	}
	got := bob.last(t, "user_disconnect")
	if got["clientId"] != aliceID || got["username"] != "Alice" {
		t.Errorf("user_disconnect = %v", got)
	}

	bob.reset()
	h.send(aliceID, map[string]any{"type": "draw"})
	if bob.count() != 0 || len(h.actions(model.DefaultBoardID)) != 0 {
		t.Error("frame from a disconnected session was processed")
	}

	h.e.disconnect(aliceID)
}

func TestWildcardUsernamesAreRejected(t *testing.T) {
	for _, name := range []string{"everyone", "*", " Everyone "} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			p, id := h.join("")
			writes := h.store.userWrites()

			h.send(id, map[string]any{"type": "username", "username": name})

			if got := p.last(t, "error"); got["message"] != errReservedName {
				t.Errorf("error = %v", got)
			}
			if s, _ := h.e.sessions.Get(id); s.Username != "" {
				t.Errorf("session username = %q", s.Username)
			}
			if len(h.e.gate.Users()) != 1 || h.store.userWrites() != writes {
				t.Error("reserved name registered")
			}

			h.send(id, map[string]any{"type": "create_board", "name": "Mine"})
			if got := p.last(t, "error"); got["message"] != errNeedUsername {
				t.Errorf("create_board error = %v", got)
			}
		})
	}
}

func TestCreatedBoardStaysPrivateAcrossRestart(t *testing.T) {
	h := newHarness(t)
	alice, aliceID := h.join("Alice")

	h.send(aliceID, map[string]any{"type": "create_board", "name": "Secret"})
	id := alice.last(t, "board_state")["boardId"].(string)

	restarted := access.Load(h.e.gate.Snapshot())
	if restarted.CanRead("Mallory", id) || restarted.CanWrite("Mallory", id) {
		t.Error("private board readable by others after restart")
	}
	if !restarted.CanWrite("Alice", id) {
		t.Error("owner lost write access after restart")
	}
}

func TestUsersSavedAfterClientsAreNotified(t *testing.T) {
	h := newHarness(t)
	admin, adminID := h.join("admin")
	watcher, _ := h.join("Watcher")

	var seen []int
	h.store.onSaveUsers = func() {
		seen = append(seen, len(watcher.ofType(t, "boards_list")))
	}
	h.send(adminID, map[string]any{"type": "create_board", "name": "Team"})
	if !slices.Equal(seen, []int{1}) {
		t.Errorf("boards_list frames at save time = %v, want [1]", seen)
	}
	team := admin.last(t, "board_state")["boardId"].(string)

	seen = nil
	h.store.onSaveUsers = func() {
		seen = append(seen, len(admin.ofType(t, "access_rights")))
	}
	h.send(adminID, map[string]any{"type": "update_access", "boardId": team, "username": "Watcher", "read": true})
	if !slices.Equal(seen, []int{1}) {
		t.Errorf("access_rights frames at save time = %v, want [1]", seen)
	}

	seen = nil
	h.store.onSaveUsers = func() {
		seen = append(seen, len(watcher.ofType(t, "boards_list")))
	}
	h.send(adminID, map[string]any{"type": "delete_board", "boardId": team})
	if !slices.Equal(seen, []int{2}) {
		t.Errorf("boards_list frames at save time = %v, want [2]", seen)
	}

	newcomer, newID := h.join("")
	seen = nil
	h.store.onSaveUsers = func() {
		seen = append(seen, len(newcomer.ofType(t, "admin_status")))
	}
	h.send(newID, map[string]any{"type": "username", "username": "Dana"})
	if !slices.Equal(seen, []int{1}) {
		t.Errorf("admin_status frames at save time = %v, want [1]", seen)
	}
}

func TestUndoCannotTargetAnotherClient(t *testing.T) {
	h := newHarness(t)
	_, aliceID := h.join("Alice")
	bob, bobID := h.join("Bob")

	h.send(aliceID, map[string]any{"type": "draw", "tag": "a1"})
	h.send(bobID, map[string]any{"type": "draw", "tag": "b1", "clientId": aliceID})
	if got := h.actions(model.DefaultBoardID)[1].ClientID(); got != bobID {
		t.Errorf("stroke clientId = %q, want sender %q", got, bobID)
	}

	h.send(bobID, map[string]any{"type": "undo", "clientId": aliceID})
	h.send(bobID, map[string]any{"type": "undo", "clientId": aliceID})

	var tags []string
	for _, a := range h.actions(model.DefaultBoardID) {
		tags = append(tags, a.String("tag"))
	}
	if !slices.Equal(tags, []string{"a1"}) {
		t.Errorf("log = %v, want only alice's stroke", tags)
	}
	if len(bob.ofType(t, "update")) != 1 {
		t.Error("second undo should be a no-op")
	}
}

func TestViewNeedsAnyAccess(t *testing.T) {
	h := newHarness(t)
	_, adminID := h.join("admin")
	bob, bobID := h.join("Bob")
	carol, _ := h.join("Carol")

	// 기본 보드를 쓰기 전용으로
	h.send(adminID, map[string]any{"type": "update_access", "boardId": model.DefaultBoardID, "username": "everyone", "read": false})
	h.reset(bob, carol)

	h.send(bobID, map[string]any{"type": "pan", "offsetX": 3})
	if len(carol.ofType(t, "pan")) != 1 {
		t.Error("write-only user could not pan")
	}

	h.send(adminID, map[string]any{"type": "update_access", "boardId": model.DefaultBoardID, "username": "everyone", "write": false})
	h.reset(bob, carol)

	h.send(bobID, map[string]any{"type": "zoom", "scale": 2})
	if got := bob.last(t, "error"); got["message"] != errNoRead {
		t.Errorf("error = %v", got)
	}
	if carol.count() != 0 {
		t.Error("zoom relayed without access")
	}
}
