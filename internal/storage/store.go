package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

// ErrNotFound 저장된 문서가 없음 (최초 부팅)
var ErrNotFound = errors.New("storage: document not found")

// Backend 문서 단위 저장소. 모든 쓰기는 문서 전체 덮어쓰기다.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Store 보드/사용자 문서를 인코딩해 Backend에 저장
type Store struct {
	backend Backend
	name    string
}

// New Backend 위에 Store 구성
func New(name string, backend Backend) *Store {
	return &Store{backend: backend, name: name}
}

// Name 백엔드 이름 (file, postgres, redis)
func (s *Store) Name() string {
	return s.name
}

// LoadBoards 보드 레지스트리 문서 로드
func (s *Store) LoadBoards(ctx context.Context) (model.BoardsDocument, error) {
	var doc model.BoardsDocument
	if err := s.load(ctx, model.DocumentBoards, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = model.BoardsDocument{}
	}
	return doc, nil
}

// SaveBoards 보드 레지스트리 문서 저장
func (s *Store) SaveBoards(ctx context.Context, doc model.BoardsDocument) error {
	return s.save(ctx, model.DocumentBoards, doc)
}

// LoadUsers 사용자/권한 문서 로드
func (s *Store) LoadUsers(ctx context.Context) (model.UsersDocument, error) {
	var doc model.UsersDocument
	err := s.load(ctx, model.DocumentUsers, &doc)
	return doc, err
}

// SaveUsers 사용자/권한 문서 저장
func (s *Store) SaveUsers(ctx context.Context, doc model.UsersDocument) error {
	return s.save(ctx, model.DocumentUsers, doc)
}

// Ping 백엔드 상태 확인
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close 백엔드 종료
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) load(ctx context.Context, key string, v any) error {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%s: read %s: %w", s.name, key, err)
	}
	// 액션 페이로드의 숫자 표현을 보존한다
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s: decode %s: %w", s.name, key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", s.name, key, err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%s: write %s: %w", s.name, key, err)
	}
	return nil
}
