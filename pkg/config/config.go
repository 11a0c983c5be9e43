package config

import (
	"errors"
	"io/fs"
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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Log           LogConfig
	Payments      PaymentConfig
	Mail          MailConfig
	Notifications NotificationConfig
	Results       ResultsConfig
	Uploads       UploadConfig
	Cache         CacheConfig
	Metrics       MetricsConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

// RedisConfig locates the course catalog cache. KeyPrefix namespaces every
// key so several deployments can share one Redis database.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	PoolSize  int
	KeyPrefix string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaymentConfig holds the gateway credentials. KeySecret doubles as the
// shared secret used to verify completion signatures.
type PaymentConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
}

// MailConfig configures the SMTP dispatcher. An empty Host disables delivery.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NotificationConfig tunes the outbox worker.
type NotificationConfig struct {
	Workers       int
	MaxAttempts   int
	RetryDelay    time.Duration
	SweepInterval time.Duration
	QueueSize     int
}

// ResultsConfig bounds spreadsheet uploads.
type ResultsConfig struct {
	MaxUploadBytes int64
}

// UploadConfig controls where admission documents are written and how they are addressed.
type UploadConfig struct {
	Dir     string
	BaseURL string
}

type CacheConfig struct {
	Enabled   bool
	CourseTTL time.Duration
}

type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		RunMigrations: v.GetBool("RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		PoolSize:  v.GetInt("REDIS_POOL_SIZE"),
		KeyPrefix: strings.TrimSuffix(v.GetString("REDIS_KEY_PREFIX"), ":"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Payments = PaymentConfig{
		KeyID:     v.GetString("RAZORPAY_KEY_ID"),
		KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		Currency:  strings.ToUpper(v.GetString("PAYMENT_CURRENCY")),
	}

	cfg.Mail = MailConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USER"),
		Password: v.GetString("SMTP_PASS"),
		From:     v.GetString("SMTP_FROM"),
	}

	cfg.Notifications = NotificationConfig{
		Workers:       v.GetInt("NOTIFY_WORKERS"),
		MaxAttempts:   v.GetInt("NOTIFY_MAX_ATTEMPTS"),
		RetryDelay:    parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 5*time.Second),
		SweepInterval: parseDuration(v.GetString("NOTIFY_SWEEP_INTERVAL"), time.Minute),
		QueueSize:     v.GetInt("NOTIFY_QUEUE_SIZE"),
	}

	maxUpload := v.GetInt64("RESULTS_MAX_UPLOAD_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Results = ResultsConfig{MaxUploadBytes: maxUpload}

	cfg.Uploads = UploadConfig{
		Dir:     v.GetString("UPLOADS_DIR"),
		BaseURL: strings.TrimRight(v.GetString("UPLOADS_BASE_URL"), "/"),
	}

	cfg.Cache = CacheConfig{
		Enabled:   v.GetBool("ENABLE_CACHE"),
		CourseTTL: parseDuration(v.GetString("COURSE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "college_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_KEY_PREFIX", "college-portal")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("JWT_ISSUER", "college-portal")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RAZORPAY_KEY_ID", "rzp_test_placeholder")
	v.SetDefault("RAZORPAY_KEY_SECRET", "placeholder_secret")
	v.SetDefault("PAYMENT_CURRENCY", "INR")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "College Portal <no-reply@college.local>")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFY_RETRY_DELAY", "5s")
	v.SetDefault("NOTIFY_SWEEP_INTERVAL", "1m")
	v.SetDefault("NOTIFY_QUEUE_SIZE", 128)

	v.SetDefault("RESULTS_MAX_UPLOAD_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_DIR", "./uploads")
	v.SetDefault("UPLOADS_BASE_URL", "/uploads")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("COURSE_CACHE_TTL", "10m")
	v.SetDefault("ENABLE_METRICS", true)
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
