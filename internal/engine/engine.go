package engine

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/access"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/board"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/broadcast"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/session"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/storage"
)

// ErrStopped 엔진이 이미 종료됨
var ErrStopped = errors.New("engine stopped")

// Store 엔진이 사용하는 영속화 계층
type Store interface {
	SaveBoards(ctx context.Context, doc model.BoardsDocument) error
	SaveUsers(ctx context.Context, doc model.UsersDocument) error
}

// Options 엔진 구성
type Options struct {
	Boards *board.Registry
	Gate   *access.Gate
	Store  Store
	Clock  clock.Clock
	Logger *zap.Logger

	Debounce      time.Duration
	ForceInterval time.Duration
	Tick          time.Duration
	StoreTimeout  time.Duration
	InboundBuffer int
}

// Stats 엔진 상태 요약
type Stats struct {
	Sessions int `json:"sessions"`
	Boards   int `json:"boards"`
}

type registration struct {
	peer  session.Peer
	reply chan string
}

type inbound struct {
	sessionID string
	frame     []byte
}

// Engine 세션 프로토콜 처리기와 그 처리 루프.
// 보드/권한/세션 상태는 루프 고루틴만 접근한다.
type Engine struct {
	boards    *board.Registry
	gate      *access.Gate
	sessions  *session.Registry
	router    *broadcast.Router
	scheduler *storage.Scheduler
	writer    *storage.Writer
	store     Store
	clock     clock.Clock
	log       *zap.Logger

	tick         time.Duration
	storeTimeout time.Duration
	usersDirty   bool

	register    chan registration
	unregister  chan string
	inbound     chan inbound
	queries     chan func()
	flushFailed chan error
	quit        chan struct{}
	done        chan struct{}
}

// New 엔진 생성. Run 또는 Start를 호출해야 메시지가 처리된다.
func New(opts Options) *Engine {
	if opts.Boards == nil {
		opts.Boards = board.NewRegistry()
	}
	if opts.Gate == nil {
		opts.Gate = access.NewGate("")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.ForceInterval <= 0 {
		opts.ForceInterval = 30 * time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = 250 * time.Millisecond
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.InboundBuffer <= 0 {
		opts.InboundBuffer = 1024
	}

	log := opts.Logger.Named("engine")
	sessions := session.NewRegistry()

	e := &Engine{
		boards:       opts.Boards,
		gate:         opts.Gate,
		sessions:     sessions,
		router:       broadcast.NewRouter(sessions, log.Named("broadcast")),
		scheduler:    storage.NewScheduler(opts.Debounce, opts.ForceInterval, opts.Clock.Now()),
		store:        opts.Store,
		clock:        opts.Clock,
		log:          log,
		tick:         opts.Tick,
		storeTimeout: opts.StoreTimeout,
		register:     make(chan registration),
		unregister:   make(chan string, 64),
		inbound:      make(chan inbound, opts.InboundBuffer),
		queries:      make(chan func()),
		flushFailed:  make(chan error, 1),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	e.writer = storage.NewWriter(e.saveBoards, opts.StoreTimeout, e.onFlushFailed, log.Named("writer"))
	return e
}

// Start 처리 루프를 별도 고루틴에서 실행
func (e *Engine) Start(ctx context.Context) {
	go e.Run(ctx)
}

// Run 처리 루프. ctx가 끝나거나 Stop이 호출되면 마지막 저장 후 반환한다.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	e.writer.Start()
	ticker := e.clock.Ticker(e.tick)
	defer ticker.Stop()

	e.log.Info("engine started",
		zap.Int("boards", e.boards.Len()),
		zap.Int("users", len(e.gate.Users())))

	for {
		select {
		case r := <-e.register:
			r.reply <- e.connect(r.peer)
		case id := <-e.unregister:
			e.disconnect(id)
		case in := <-e.inbound:
			e.handle(in.sessionID, in.frame)
		case fn := <-e.queries:
			fn()
		case <-e.flushFailed:
			e.scheduler.MarkFailed()
		case <-ticker.C:
			e.onTick(e.clock.Now())
		case <-e.quit:
			e.shutdown()
			return
		case <-ctx.Done():
			e.shutdown()
			return
		}
	}
}

// Stop 루프 종료를 요청하고 마지막 저장이 끝날 때까지 기다린다
func (e *Engine) Stop(ctx context.Context) error {
	select {
	case <-e.quit:
	default:
		close(e.quit)
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 루프 종료 시 닫히는 채널
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Connect 새 연결 등록. init 메시지가 peer로 전송된 뒤 세션 ID를 반환한다.
func (e *Engine) Connect(ctx context.Context, peer session.Peer) (string, error) {
	reply := make(chan string, 1)
	select {
	case e.register <- registration{peer: peer, reply: reply}:
	case <-e.done:
		return "", ErrStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return <-reply, nil
}

// Disconnect 연결 종료 통지
func (e *Engine) Disconnect(sessionID string) {
	select {
	case e.unregister <- sessionID:
	case <-e.done:
	}
}

// Submit 수신 프레임 전달. 엔진이 종료되었으면 false.
func (e *Engine) Submit(sessionID string, frame []byte) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.inbound <- inbound{sessionID: sessionID, frame: frame}:
		return true
	case <-e.done:
		return false
	}
}

// Boards 보드 목록 (id, name)
func (e *Engine) Boards(ctx context.Context) ([]model.BoardInfo, error) {
	var out []model.BoardInfo
	err := e.query(ctx, func() { out = e.boards.List() })
	return out, err
}

// Stats 현재 세션/보드 수
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := e.query(ctx, func() {
		out = Stats{Sessions: e.sessions.Len(), Boards: e.boards.Len()}
	})
	return out, err
}

func (e *Engine) query(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}
	select {
	case e.queries <- wrapped:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

func (e *Engine) onTick(now time.Time) {
	if !e.scheduler.Poll(now) {
		return
	}
	e.writer.Submit(e.boards.Snapshot())
	if e.usersDirty {
		e.saveUsers()
	}
}

func (e *Engine) touch() {
	e.scheduler.Touch(e.clock.Now())
}

func (e *Engine) saveBoards(ctx context.Context, doc model.BoardsDocument) error {
	if e.store == nil {
		return nil
	}
	return e.store.SaveBoards(ctx, doc)
}

// onFlushFailed writer 고루틴에서 호출된다
func (e *Engine) onFlushFailed(err error) {
	select {
	case e.flushFailed <- err:
	default:
	}
}

// saveUsers 사용자/권한 문서는 변경 즉시 동기 저장한다
func (e *Engine) saveUsers() {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.storeTimeout)
	defer cancel()

	if err := e.store.SaveUsers(ctx, e.gate.Snapshot()); err != nil {
		e.log.Error("users save failed, retrying on next flush", zap.Error(err))
		e.usersDirty = true
		e.scheduler.MarkFailed()
		return
	}
	e.usersDirty = false
}

func (e *Engine) shutdown() {
	e.writer.Submit(e.boards.Snapshot())

	ctx, cancel := context.WithTimeout(context.Background(), e.storeTimeout)
	defer cancel()
	if err := e.writer.Stop(ctx); err != nil {
		e.log.Error("final flush did not finish", zap.Error(err))
	}
	if e.usersDirty {
		e.saveUsers()
	}

	e.sessions.Each(func(s *session.Session) bool {
		s.Peer.Close()
		return true
	})
	e.log.Info("engine stopped", zap.Int("sessions", e.sessions.Len()))
}
