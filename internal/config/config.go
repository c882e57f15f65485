package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type key string

const (
	KeyLogger  = key("logger")
	KeyUUID    = key("uuid")
	KeyRole    = key("role")
	KeyMetrics = key("metrics")
)

type Config struct {
	Service  Service
	Platform Platform
	Logger   Logger
	Metrics  Metrics
	Postgres ReadEnvDB
	Socket   Socket
	Client   Client
}

type Service struct {
	Port string `env:"SERVICE_PORT" env-default:"8080"`
	Name string `env:"SERVICE_NAME" env-default:"chat-service"`
}

type Platform struct {
	Env string `env:"ENV" env-default:"dev"`
}

type Logger struct {
	Host string `env:"LOGGER_SERVICE_HOST" env-default:"localhost"`
	Port string `env:"LOGGER_SERVICE_PORT" env-default:"12201"`
}

type Metrics struct {
	Host string `env:"METRICS_HOST" env-default:"localhost"`
	Port int    `env:"METRICS_PORT" env-default:"8125"`
}

type ReadEnvDB struct {
	Driver     string `env:"DB_DRIVER" env-default:"postgres"`
	User       string `env:"CHAT_SERVICE_POSTGRES_USER"`
	Password   string `env:"CHAT_SERVICE_POSTGRES_PASSWORD"`
	Database   string `env:"CHAT_SERVICE_POSTGRES_DB"`
	Host       string `env:"CHAT_SERVICE_POSTGRES_HOST" env-default:"localhost"`
	Port       string `env:"CHAT_SERVICE_POSTGRES_PORT" env-default:"5432"`
	SQLitePath string `env:"CHAT_SERVICE_SQLITE_PATH" env-default:"chat.db"`
}

// Socket holds the access token settings. The server refuses to start
// without a secret; the client only needs it to sign dev tokens.
type Socket struct {
	JWTSecret string        `env:"SOCKET_JWT_SECRET"`
	TokenTTL  time.Duration `env:"SOCKET_TOKEN_TTL" env-default:"24h"`
}

// Client configures the terminal chat client. UserID and Role are the session
// identity the synchronization client is constructed with.
type Client struct {
	BaseURL        string        `env:"CHAT_API_URL" env-default:"http://localhost:8080"`
	SocketURL      string        `env:"CHAT_SOCKET_URL" env-default:"ws://localhost:8080/socket"`
	Token          string        `env:"CHAT_TOKEN"`
	UserID         string        `env:"CHAT_USER_ID"`
	Role           string        `env:"CHAT_USER_ROLE" env-default:"player"`
	PollInterval   time.Duration `env:"CHAT_POLL_INTERVAL" env-default:"4s"`
	TypingTimeout  time.Duration `env:"CHAT_TYPING_TIMEOUT" env-default:"1500ms"`
	RequestTimeout time.Duration `env:"CHAT_REQUEST_TIMEOUT" env-default:"10s"`
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to read env variables: %s", err)
	}
	return cfg
}

func Load() (*Config, error) {
	// .env is optional; real deployments pass the environment directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
