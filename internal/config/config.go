package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Export   ExportConfig   `mapstructure:"export"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// MetricsToken 为空时 /metrics 不做校验。
	MetricsToken string `mapstructure:"metrics_token"`
	// ExportRateLimitPerMinute 限制单个客户端每分钟的导出次数，<=0 表示不限制。
	ExportRateLimitPerMinute int   `mapstructure:"export_rate_limit_per_minute"`
	MaxImageBytes            int64 `mapstructure:"max_image_bytes"`
	// AllowedOrigins 为空时编辑会话只接受同源连接。
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	EditDebounce   time.Duration `mapstructure:"edit_debounce"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// ExportConfig 控制无头浏览器导出流程的各项超时。
type ExportConfig struct {
	// Engine 取值 rod 或 chromedp。
	Engine         string        `mapstructure:"engine"`
	BrowserBin     string        `mapstructure:"browser_bin"`
	LoadTimeout    time.Duration `mapstructure:"load_timeout"`
	ImageTimeout   time.Duration `mapstructure:"image_timeout"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
	CaptureQuality int           `mapstructure:"capture_quality"`
}

// ClamdConfig 为空地址时跳过上传病毒扫描。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// DefaultExportConfig 返回导出流程的默认参数。
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Engine:         "rod",
		LoadTimeout:    30 * time.Second,
		ImageTimeout:   10 * time.Second,
		SettleDelay:    time.Second,
		BrowserTimeout: 90 * time.Second,
		CaptureQuality: 90,
	}
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Export.Engine = strings.ToLower(strings.TrimSpace(cfg.Export.Engine))

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	export := DefaultExportConfig()

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.export_rate_limit_per_minute", 20)
	v.SetDefault("api.max_image_bytes", 5*1024*1024)
	v.SetDefault("api.edit_debounce", 400*time.Millisecond)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resume_studio")
	v.SetDefault("database.user", "resume_studio")
	v.SetDefault("database.password", "resume_studio")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("export.engine", export.Engine)
	v.SetDefault("export.load_timeout", export.LoadTimeout)
	v.SetDefault("export.image_timeout", export.ImageTimeout)
	v.SetDefault("export.settle_delay", export.SettleDelay)
	v.SetDefault("export.browser_timeout", export.BrowserTimeout)
	v.SetDefault("export.capture_quality", export.CaptureQuality)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                         "API_PORT",
		"api.metrics_token":                "METRICS_TOKEN",
		"api.export_rate_limit_per_minute": "EXPORT_RATE_LIMIT_PER_MINUTE",
		"api.max_image_bytes":              "MAX_IMAGE_BYTES",
		"api.allowed_origins":              "ALLOWED_ORIGINS",
		"api.edit_debounce":                "EDIT_DEBOUNCE",
		"database.host":                    "DATABASE_HOST",
		"database.port":                    "DATABASE_PORT",
		"database.name":                    "POSTGRES_DB",
		"database.user":                    "POSTGRES_USER",
		"database.password":                "POSTGRES_PASSWORD",
		"database.sslmode":                 "DATABASE_SSLMODE",
		"redis.host":                       "REDIS_HOST",
		"redis.port":                       "REDIS_PORT",
		"minio.endpoint":                   "MINIO_ENDPOINT",
		"minio.public_endpoint":            "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":              "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":          "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                    "MINIO_USE_SSL",
		"minio.bucket":                     "MINIO_BUCKET",
		"minio.region":                     "MINIO_REGION",
		"minio.bucket_lookup":              "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":         "MINIO_AUTO_CREATE_BUCKET",
		"export.engine":                    "EXPORT_ENGINE",
		"export.browser_bin":               "ROD_BROWSER_BIN",
		"export.load_timeout":              "EXPORT_LOAD_TIMEOUT",
		"export.image_timeout":             "EXPORT_IMAGE_TIMEOUT",
		"export.settle_delay":              "EXPORT_SETTLE_DELAY",
		"export.browser_timeout":           "EXPORT_BROWSER_TIMEOUT",
		"export.capture_quality":           "EXPORT_CAPTURE_QUALITY",
		"clamd.addr":                       "CLAMD_ADDR",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	return ValidateExport(cfg.Export)
}

// ValidateExport 校验导出参数，CLI 直接构造配置时同样需要调用。
func ValidateExport(cfg ExportConfig) error {
	switch cfg.Engine {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("unsupported export engine %q", cfg.Engine)
	}
	if cfg.LoadTimeout <= 0 {
		return errors.New("export load timeout must be positive")
	}
	if cfg.ImageTimeout <= 0 {
		return errors.New("export image timeout must be positive")
	}
	if cfg.SettleDelay < 0 {
		return errors.New("export settle delay must not be negative")
	}
	if cfg.CaptureQuality <= 0 || cfg.CaptureQuality > 100 {
		return errors.New("export capture quality must be within 1..100")
	}
	return nil
}
