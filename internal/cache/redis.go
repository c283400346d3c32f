package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss 키가 존재하지 않음
var ErrMiss = errors.New("cache: key not found")

// RedisClient go-redis 클라이언트 래퍼
type RedisClient struct {
	client *redis.Client
}

// Options Redis 접속 옵션
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient Redis 연결 생성 (Ping 확인 포함)
func NewRedisClient(ctx context.Context, opts Options) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisClient{client: client}, nil
}

// Get 값 조회. 키가 없으면 ErrMiss
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

// Set 값 저장 (expiration 0이면 만료 없음)
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Health 연결 상태 확인
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close 연결 종료
func (r *RedisClient) Close() error {
	return r.client.Close()
}
