package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

// SaveBoardsFunc 보드 문서 저장 함수
type SaveBoardsFunc func(ctx context.Context, doc model.BoardsDocument) error

// Writer 보드 문서를 별도 고루틴에서 저장.
// 대기열은 길이 1이며 아직 쓰지 못한 스냅샷은 최신 것으로 교체된다.
type Writer struct {
	save      SaveBoardsFunc
	timeout   time.Duration
	onFailure func(error)
	log       *zap.Logger

	pending chan model.BoardsDocument
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWriter Writer 생성. onFailure는 저장 실패 시 writer 고루틴에서 호출된다.
func NewWriter(save SaveBoardsFunc, timeout time.Duration, onFailure func(error), log *zap.Logger) *Writer {
	return &Writer{
		save:      save,
		timeout:   timeout,
		onFailure: onFailure,
		log:       log,
		pending:   make(chan model.BoardsDocument, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start 저장 고루틴 시작
func (w *Writer) Start() {
	go w.run()
}

// Submit 스냅샷 제출. 블로킹하지 않는다. 단일 생산자 전용.
func (w *Writer) Submit(doc model.BoardsDocument) {
	select {
	case w.pending <- doc:
		return
	default:
	}
	// 아직 저장되지 않은 이전 스냅샷은 버린다
	select {
	case <-w.pending:
	default:
	}
	w.pending <- doc
}

// Stop 남은 스냅샷을 저장한 뒤 고루틴 종료를 기다린다
func (w *Writer) Stop(ctx context.Context) error {
	w.once.Do(func() { close(w.quit) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case doc := <-w.pending:
			w.write(doc)
		case <-w.quit:
			select {
			case doc := <-w.pending:
				w.write(doc)
			default:
			}
			return
		}
	}
}

func (w *Writer) write(doc model.BoardsDocument) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.save(ctx, doc); err != nil {
		w.log.Error("board flush failed", zap.Error(err), zap.Int("boards", len(doc)))
		if w.onFailure != nil {
			w.onFailure(err)
		}
		return
	}
	w.log.Debug("boards flushed",
		zap.Int("boards", len(doc)),
		zap.Duration("took", time.Since(start)))
}
