package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 애플리케이션 전체 설정
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Persist   PersistConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
	Log       LogConfig
}

// ServerConfig HTTP 서버 설정
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// WebSocketConfig WebSocket 관련 설정
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	SendBuffer      int
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteTimeout    time.Duration
}

// CORSConfig CORS 설정
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// StorageConfig 영속화 백엔드 설정
type StorageConfig struct {
	Driver  string // file | postgres | redis
	Dir     string
	Timeout time.Duration
}

// RedisConfig Redis 설정
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// PersistConfig 저장 스케줄 설정
type PersistConfig struct {
	Debounce      time.Duration
	ForceInterval time.Duration
	Tick          time.Duration
}

// RateLimitConfig 요청 제한 설정
type RateLimitConfig struct {
	MessagesPerSecond float64
	Burst             int
	APIPerMinute      int
}

// AdminConfig 관리자 설정
type AdminConfig struct {
	Username string
}

// LogConfig 로깅 설정
type LogConfig struct {
	Level  string
	Format string // json | console
}

// Storage drivers
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Load 환경 변수에서 설정 로드
func Load() *Config {
	// .env 파일 로드 (없어도 에러 무시)
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv .env 없이 현재 환경 변수만으로 설정 구성
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         normalizePort(getEnv("PORT", ":3001")),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getInt("WS_READ_BUFFER_SIZE", 16*1024),
			WriteBufferSize: getInt("WS_WRITE_BUFFER_SIZE", 16*1024),
			MaxMessageSize:  int64(getInt("WS_MAX_MESSAGE_SIZE", 1<<20)),
			SendBuffer:      getInt("WS_SEND_BUFFER", 256),
			PingInterval:    getDuration("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        getDuration("WS_PONG_WAIT", 60*time.Second),
			WriteTimeout:    getDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept"),
		},
		Storage: StorageConfig{
			Driver:  getDriver("STORAGE_DRIVER", DriverFile),
			Dir:     getEnv("STORAGE_DIR", "data"),
			Timeout: getDuration("STORAGE_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "whiteboard"),
		},
		Persist: PersistConfig{
			Debounce:      getDuration("PERSIST_DEBOUNCE", 2*time.Second),
			ForceInterval: getDuration("PERSIST_FORCE_INTERVAL", 30*time.Second),
			Tick:          getDuration("PERSIST_TICK", 250*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			MessagesPerSecond: getFloat("WS_RATE_LIMIT", 200),
			Burst:             getInt("WS_RATE_BURST", 400),
			APIPerMinute:      getInt("API_RATE_LIMIT", 60),
		},
		Admin: AdminConfig{
			Username: strings.TrimSpace(getEnv("ADMIN_USERNAME", "admin")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}
}

// normalizePort "3001" 형태도 허용
func normalizePort(port string) string {
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

// getEnv 환경 변수 조회 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt 양의 정수형 환경 변수 조회
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

// getFloat 양의 실수형 환경 변수 조회
func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

// getDriver 저장 드라이버 조회 (알 수 없는 값은 기본값)
func getDriver(key, defaultValue string) string {
	switch v := strings.ToLower(os.Getenv(key)); v {
	case DriverFile, DriverPostgres, DriverRedis:
		return v
	}
	return defaultValue
}

// getDuration 시간 환경 변수 조회
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// 숫자만 있으면 초로 간주
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}
