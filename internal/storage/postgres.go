package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/database"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/model"
)

// PostgresBackend whiteboard_documents 테이블에 문서 저장
type PostgresBackend struct {
	db *gorm.DB
}

// NewPostgresBackend 마이그레이션이 끝난 gorm 연결로 백엔드 생성
func NewPostgresBackend(db *gorm.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Get 문서 조회
func (p *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var doc model.Document
	err := p.db.WithContext(ctx).Where("key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc.Data), nil
}

// Put 문서 upsert
func (p *PostgresBackend) Put(ctx context.Context, key string, data []byte) error {
	doc := model.Document{Key: key, Data: string(data)}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&doc).Error
}

// Ping DB 연결 확인
func (p *PostgresBackend) Ping(ctx context.Context) error {
	return database.Ping(ctx, p.db)
}

// Close DB 연결 종료
func (p *PostgresBackend) Close() error {
	return database.Close(p.db)
}
