package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Geo      GeoConfig
	Grant    GrantConfig
	Storage  StorageConfig
	Audit    AuditConfig
	Printer  PrinterConfig
	Trace    TraceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GeoConfig configures the external IP geolocation lookup.
type GeoConfig struct {
	APIURL   string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// GrantConfig controls the signed access grants issued on verification.
type GrantConfig struct {
	Secret string
	TTL    time.Duration
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	Backend     string // "s3" or "local"
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	LocalDir    string
}

// AuditConfig tunes the asynchronous audit pipeline.
type AuditConfig struct {
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	WriteTimeout time.Duration
}

// PrinterConfig configures the optional print-broker integration.
type PrinterConfig struct {
	BrokerURL string
	Timeout   time.Duration
}

// TraceConfig bounds trace listing and export sizes.
type TraceConfig struct {
	ExportLimit int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Geo = GeoConfig{
		APIURL:   v.GetString("GEO_API_URL"),
		APIKey:   v.GetString("GEO_API_KEY"),
		Timeout:  parseDuration(v.GetString("GEO_TIMEOUT"), 3*time.Second),
		CacheTTL: parseDuration(v.GetString("GEO_CACHE_TTL"), 12*time.Hour),
	}

	cfg.Grant = GrantConfig{
		Secret: v.GetString("GRANT_SECRET"),
		TTL:    parseDuration(v.GetString("GRANT_TTL"), 10*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Backend:     v.GetString("STORAGE_BACKEND"),
		S3Bucket:    v.GetString("S3_BUCKET"),
		S3Region:    v.GetString("S3_REGION"),
		S3Endpoint:  v.GetString("S3_ENDPOINT"),
		S3AccessKey: v.GetString("S3_ACCESS_KEY"),
		S3SecretKey: v.GetString("S3_SECRET_KEY"),
		LocalDir:    v.GetString("LOCAL_STORAGE_DIR"),
	}

	cfg.Audit = AuditConfig{
		Workers:      v.GetInt("AUDIT_WORKERS"),
		BufferSize:   v.GetInt("AUDIT_BUFFER"),
		MaxRetries:   v.GetInt("AUDIT_RETRIES"),
		RetryDelay:   parseDuration(v.GetString("AUDIT_RETRY_DELAY"), time.Second),
		WriteTimeout: parseDuration(v.GetString("AUDIT_WRITE_TIMEOUT"), 5*time.Second),
	}

	cfg.Printer = PrinterConfig{
		BrokerURL: v.GetString("PRINT_BROKER_URL"),
		Timeout:   parseDuration(v.GetString("PRINT_BROKER_TIMEOUT"), 10*time.Second),
	}

	cfg.Trace = TraceConfig{
		ExportLimit: v.GetInt("TRACE_EXPORT_LIMIT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sharegate")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GEO_API_URL", "http://ip-api.com/json")
	v.SetDefault("GEO_API_KEY", "")
	v.SetDefault("GEO_TIMEOUT", "3s")
	v.SetDefault("GEO_CACHE_TTL", "12h")

	v.SetDefault("GRANT_SECRET", "dev_grant_secret")
	v.SetDefault("GRANT_TTL", "10m")

	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("LOCAL_STORAGE_DIR", "./files")

	v.SetDefault("AUDIT_WORKERS", 2)
	v.SetDefault("AUDIT_BUFFER", 256)
	v.SetDefault("AUDIT_RETRIES", 3)
	v.SetDefault("AUDIT_RETRY_DELAY", "1s")
	v.SetDefault("AUDIT_WRITE_TIMEOUT", "5s")

	v.SetDefault("PRINT_BROKER_URL", "")
	v.SetDefault("PRINT_BROKER_TIMEOUT", "10s")

	v.SetDefault("TRACE_EXPORT_LIMIT", 1000)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
