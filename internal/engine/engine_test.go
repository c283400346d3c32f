package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/access"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

type fakePeer struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (p *fakePeer) Send(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.frames = append(p.frames, frame)
	return true
}

func (p *fakePeer) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) messages(t *testing.T) []map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]any, 0, len(p.frames))
	for _, f := range p.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("peer received invalid json %s: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (p *fakePeer) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range p.messages(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (p *fakePeer) last(t *testing.T, typ string) map[string]any {
	t.Helper()
	msgs := p.ofType(t, typ)
	if len(msgs) == 0 {
		t.Fatalf("no %q message, got %v", typ, p.messages(t))
	}
	return msgs[len(msgs)-1]
}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = nil
}

type fakeStore struct {
	mu         sync.Mutex
	boards     []model.BoardsDocument
	users      []model.UsersDocument
	failBoards int

	// onSaveUsers는 저장 직전에 호출된다
	onSaveUsers func()
}

func (s *fakeStore) SaveBoards(_ context.Context, doc model.BoardsDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBoards > 0 {
		s.failBoards--
		return errors.New("store unavailable")
	}
	s.boards = append(s.boards, doc)
	return nil
}

func (s *fakeStore) SaveUsers(_ context.Context, doc model.UsersDocument) error {
	if s.onSaveUsers != nil {
		s.onSaveUsers()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, doc)
	return nil
}

func (s *fakeStore) boardWrites() []model.BoardsDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BoardsDocument(nil), s.boards...)
}

func (s *fakeStore) userWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type harness struct {
	t     *testing.T
	e     *Engine
	clock *clock.Mock
	store *fakeStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mock := clock.NewMock()
	mock.Add(time.Hour)
	store := &fakeStore{}
	e := New(Options{
		Gate:   access.NewGate("admin"),
		Store:  store,
		Clock:  mock,
		Logger: zaptest.NewLogger(t),
	})
	return &harness{t: t, e: e, clock: mock, store: store}
}

// join connects a peer, optionally sets its username and clears the
// frames received during setup.
func (h *harness) join(username string) (*fakePeer, string) {
	h.t.Helper()
	p := &fakePeer{}
	id := h.e.connect(p)
	if username != "" {
		h.send(id, map[string]any{"type": "username", "username": username})
	}
	p.reset()
	return p, id
}

func (h *harness) send(id string, msg map[string]any) {
	h.t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		h.t.Fatal(err)
	}
	h.e.handle(id, data)
}

func (h *harness) actions(boardID string) []model.Action {
	h.t.Helper()
	b, ok := h.e.boards.Get(boardID)
	if !ok {
		h.t.Fatalf("board %q missing", boardID)
	}
	return b.Actions()
}

func (h *harness) reset(peers ...*fakePeer) {
	for _, p := range peers {
		p.reset()
	}
}

func boolPtr(v bool) *bool { return &v }
