package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Users     []User          `yaml:"users"`
	Store     StoreConfig     `yaml:"store"`
	Minio     MinioConfig     `yaml:"minio"`
	Backend   BackendConfig   `yaml:"backend"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Redis     RedisConfig     `yaml:"redis"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Port           int `yaml:"port"`
	RateLimit      int `yaml:"rate_limit"` // requests per minute per client IP
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	Agency       string `yaml:"agency"`
}

type StoreConfig struct {
	Driver       string `yaml:"driver"` // memory, mysql, sqlite
	DSN          string `yaml:"dsn"`
	MaxContracts int    `yaml:"max_contracts"` // memory driver only, 0 = unlimited
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"` // skips the bucket location lookup when set
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// Enabled reports whether document storage is configured
func (c MinioConfig) Enabled() bool {
	return c.Endpoint != ""
}

// BackendConfig points at the REST backend that owns contract records
type BackendConfig struct {
	APIURL         string `yaml:"api_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type WebhookConfig struct {
	Seed string `yaml:"seed"`
}

type ReconcileConfig struct {
	IntervalMinutes    int `yaml:"interval_minutes"` // 0 disables the scheduler
	SyncTimeoutSeconds int `yaml:"sync_timeout_seconds"`
	Concurrency        int `yaml:"concurrency"`
	LockTTLSeconds     int `yaml:"lock_ttl_seconds"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"` // empty = allow all
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	GlobalConfig = &cfg
	return &cfg, nil
}

// applyEnv lets LOCACOES_* environment variables override secrets and endpoints
func (c *Config) applyEnv() {
	setString(&c.Auth.JWTSecret, "LOCACOES_JWT_SECRET")
	setString(&c.Store.Driver, "LOCACOES_STORE_DRIVER")
	setString(&c.Store.DSN, "LOCACOES_STORE_DSN")
	setString(&c.Minio.AccessKey, "LOCACOES_MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "LOCACOES_MINIO_SECRET_KEY")
	setString(&c.Backend.APIURL, "LOCACOES_BACKEND_URL")
	setString(&c.Backend.APIToken, "LOCACOES_BACKEND_TOKEN")
	setString(&c.Webhook.Seed, "LOCACOES_WEBHOOK_SEED")
	setString(&c.Redis.Addr, "LOCACOES_REDIS_ADDR")
	setString(&c.Redis.Password, "LOCACOES_REDIS_PASSWORD")

	if v := strings.TrimSpace(os.Getenv("LOCACOES_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if c.Server.TimeoutSeconds == 0 {
		c.Server.TimeoutSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 30
	}
	if c.Reconcile.SyncTimeoutSeconds == 0 {
		c.Reconcile.SyncTimeoutSeconds = 10
	}
	if c.Reconcile.Concurrency == 0 {
		c.Reconcile.Concurrency = 8
	}
	if c.Reconcile.LockTTLSeconds == 0 {
		c.Reconcile.LockTTLSeconds = 300
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
