package model

// BoardInfo 보드 목록 항목 (액션 로그는 포함하지 않음)
type BoardInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BoardState 보드 전체 상태
type BoardState struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

// BoardRecord 영속화되는 보드 하나. Order는 생성 순서 (1부터, 0이면 알 수 없음)
type BoardRecord struct {
	Name    string   `json:"name"`
	Order   int      `json:"order,omitempty"`
	Actions []Action `json:"actions"`
}

// BoardsDocument 보드 ID -> 보드 레코드
type BoardsDocument map[string]BoardRecord
