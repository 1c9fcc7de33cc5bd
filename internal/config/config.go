package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/common-server/server-bootstrap/internal/schema"
	"github.com/common-server/server-bootstrap/pkg/logger"
)

const defaultPassword = "server_password"

// Existing-user policies applied when the application user is already present.
const (
	ExistingUserSkip   = "skip"
	ExistingUserUpdate = "update"
	ExistingUserFail   = "fail"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	App       AppUserConfig
	Retention RetentionConfig
	Bootstrap BootstrapConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
}

type ServerConfig struct {
	Enabled        bool
	Port           string
	Host           string
	RateLimitRPS   float64
	RateLimitBurst int
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// AppUserConfig is the credentialed user the bootstrap creates.
type AppUserConfig struct {
	User     string
	Password string
	Role     string
}

type RetentionConfig struct {
	ChatMessages time.Duration
	AuditLogs    time.Duration
}

type BootstrapConfig struct {
	ExistingUser string
	LockKey      string
	LockWait     time.Duration
	LockLease    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("STATUS_SERVER_ENABLED", false)
	v.SetDefault("SERVER_PORT", "5002")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("MONGODB_DATABASE", "server")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("APP_DB_USER", "server_app")
	v.SetDefault("APP_DB_PASSWORD", defaultPassword)
	v.SetDefault("APP_DB_ROLE", "readWrite")
	v.SetDefault("CHAT_MESSAGES_TTL_SECONDS", 2592000)
	v.SetDefault("AUDIT_LOGS_TTL_SECONDS", 7776000)
	v.SetDefault("BOOTSTRAP_EXISTING_USER", ExistingUserSkip)
	v.SetDefault("BOOTSTRAP_LOCK_KEY", "mongo-bootstrap")
	v.SetDefault("BOOTSTRAP_LOCK_WAIT_SECONDS", 30)
	v.SetDefault("BOOTSTRAP_LOCK_LEASE_SECONDS", 120)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MINIO_BUCKET", "server-bootstrap")

	cfg := &Config{
		Server: ServerConfig{
			Enabled:        v.GetBool("STATUS_SERVER_ENABLED"),
			Port:           v.GetString("SERVER_PORT"),
			Host:           v.GetString("SERVER_HOST"),
			RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		App: AppUserConfig{
			User:     v.GetString("APP_DB_USER"),
			Password: v.GetString("APP_DB_PASSWORD"),
			Role:     v.GetString("APP_DB_ROLE"),
		},
		Retention: RetentionConfig{
			ChatMessages: time.Duration(v.GetInt64("CHAT_MESSAGES_TTL_SECONDS")) * time.Second,
			AuditLogs:    time.Duration(v.GetInt64("AUDIT_LOGS_TTL_SECONDS")) * time.Second,
		},
		Bootstrap: BootstrapConfig{
			ExistingUser: strings.ToLower(strings.TrimSpace(v.GetString("BOOTSTRAP_EXISTING_USER"))),
			LockKey:      v.GetString("BOOTSTRAP_LOCK_KEY"),
			LockWait:     time.Duration(v.GetInt("BOOTSTRAP_LOCK_WAIT_SECONDS")) * time.Second,
			LockLease:    time.Duration(v.GetInt("BOOTSTRAP_LOCK_LEASE_SECONDS")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
	}

	if cfg.MongoDB.URI == "" {
		return nil, fmt.Errorf("environment variable MONGODB_URI is required")
	}
	switch cfg.Bootstrap.ExistingUser {
	case ExistingUserSkip, ExistingUserUpdate, ExistingUserFail:
	default:
		return nil, fmt.Errorf("BOOTSTRAP_EXISTING_USER must be one of skip|update|fail, got %q", cfg.Bootstrap.ExistingUser)
	}
	if cfg.Retention.ChatMessages <= 0 || cfg.Retention.AuditLogs <= 0 {
		return nil, fmt.Errorf("retention periods must be positive")
	}
	if cfg.Retention.ChatMessages > schema.MaxTTL || cfg.Retention.AuditLogs > schema.MaxTTL {
		return nil, fmt.Errorf("retention periods must not exceed %d seconds", int64(schema.MaxTTL/time.Second))
	}

	if cfg.App.Password == defaultPassword {
		logger.Warnf("APP_DB_PASSWORD is the built-in default; set a secure value in production")
	}

	return cfg, nil
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}

// ServerAddr returns the listen address of the status server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Plan returns the bootstrap plan described by the configuration.
func (c *Config) Plan() schema.Plan {
	plan := schema.DefaultPlan(c.MongoDB.Database, c.App.User, c.App.Password, c.Retention.ChatMessages, c.Retention.AuditLogs)
	plan.User.Roles[0].Role = c.App.Role
	return plan
}
