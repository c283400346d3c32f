package model

// User 알려진 사용자 이름
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// AccessEntry 보드별 읽기/쓰기 권한 (사용자 이름 또는 Wildcard)
type AccessEntry struct {
	ReadAccess  []string `json:"readAccess"`
	WriteAccess []string `json:"writeAccess"`
}

// UsersDocument 사용자 및 보드 권한 문서
type UsersDocument struct {
	Users       []User                 `json:"users"`
	BoardAccess map[string]AccessEntry `json:"boardAccess"`
}
