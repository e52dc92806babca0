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

	AppName     string
	CollegeName string
	// CollegeEmailDomain, when set, restricts sign-up to addresses on that domain.
	CollegeEmailDomain string
	LogoURL            string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Storage  StorageConfig
	Uploads  UploadConfig
	Browse   BrowseConfig
	Jobs     JobsConfig
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
	Enabled  bool
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig points at the S3-compatible object store holding note files.
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKey       string
	SecretKey       string
	DownloadURLTTL  time.Duration
	SignedURLMaxTTL time.Duration
}

// UploadConfig bounds what files may enter the catalog.
type UploadConfig struct {
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

// BrowseConfig tunes the note listing layer.
type BrowseConfig struct {
	PageSize       int
	SuggestionSize int
	CacheTTL       time.Duration
}

// JobsConfig configures the best-effort side-effect queue.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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

	cfg.AppName = v.GetString("APP_NAME")
	cfg.CollegeName = v.GetString("COLLEGE_NAME")
	cfg.CollegeEmailDomain = strings.ToLower(strings.TrimSpace(v.GetString("COLLEGE_EMAIL_DOMAIN")))
	cfg.LogoURL = v.GetString("LOGO_URL")

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
		Enabled:  v.GetBool("REDIS_ENABLED"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Endpoint:        v.GetString("STORAGE_ENDPOINT"),
		Region:          v.GetString("STORAGE_REGION"),
		Bucket:          v.GetString("STORAGE_BUCKET"),
		AccessKey:       v.GetString("STORAGE_ACCESS_KEY"),
		SecretKey:       v.GetString("STORAGE_SECRET_KEY"),
		DownloadURLTTL:  parseDuration(v.GetString("STORAGE_DOWNLOAD_URL_TTL"), time.Hour),
		SignedURLMaxTTL: parseDuration(v.GetString("STORAGE_SIGNED_URL_MAX_TTL"), 24*time.Hour),
	}

	maxUploadSize := v.GetInt64("MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadConfig{
		MaxFileSizeBytes:  maxUploadSize,
		AllowedExtensions: splitAndTrim(strings.ToLower(v.GetString("ALLOWED_FILE_TYPES"))),
	}

	cfg.Browse = BrowseConfig{
		PageSize:       v.GetInt("NOTES_PAGE_SIZE"),
		SuggestionSize: v.GetInt("NOTES_SUGGESTION_SIZE"),
		CacheTTL:       parseDuration(v.GetString("NOTES_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("APP_NAME", "Campus Notes")
	v.SetDefault("COLLEGE_NAME", "")
	v.SetDefault("COLLEGE_EMAIL_DOMAIN", "")
	v.SetDefault("LOGO_URL", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_notes")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_ENABLED", false)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_BUCKET", "student-notes")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_DOWNLOAD_URL_TTL", "1h")
	v.SetDefault("STORAGE_SIGNED_URL_MAX_TTL", "24h")

	v.SetDefault("MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("ALLOWED_FILE_TYPES", "pdf,docx,pptx,jpg,jpeg,png,gif")

	v.SetDefault("NOTES_PAGE_SIZE", 12)
	v.SetDefault("NOTES_SUGGESTION_SIZE", 24)
	v.SetDefault("NOTES_CACHE_TTL", "5m")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
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
