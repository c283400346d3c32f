package storage

import (
	"context"
	"errors"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/cache"
)

// RedisBackend <prefix>:<key> 문자열 키에 문서 저장
type RedisBackend struct {
	client *cache.RedisClient
	prefix string
}

// NewRedisBackend Redis 백엔드 생성
func NewRedisBackend(client *cache.RedisClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// Get 문서 조회
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key))
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put 문서 저장 (만료 없음)
func (r *RedisBackend) Put(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.key(key), data, 0)
}

// Ping Redis 상태 확인
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Health(ctx)
}

// Close Redis 연결 종료
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
