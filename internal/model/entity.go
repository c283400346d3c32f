package model

import (
	"time"
)

// Document 영속화 문서 (보드 레지스트리 / 사용자·권한 레지스트리)
// 매 저장마다 문서 전체를 덮어쓴다.
type Document struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Data      string    `gorm:"type:jsonb;not null" json:"data"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string {
	return "whiteboard_documents"
}

// 문서 키
const (
	DocumentBoards = "boards"
	DocumentUsers  = "users"
)
