package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	HTTPAddr       string
	AllowedOrigins []string
	JWTSecret      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	Log LoggerConfig

	MaxGoals       int
	StreamInterval time.Duration
}

// LoggerConfig drives internal/observability.
type LoggerConfig struct {
	ServiceName string
	Level       string
	Format      string
	LogFile     string
	MaxSize     int
	MaxBackups  int
	MaxAge      int
	Compress    bool
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Load reads configuration from the process environment. A .env file in
// the working directory (or at path, when given) fills variables that are
// not already set.
func Load(path ...string) *Config {
	_ = godotenv.Load(path...)

	return &Config{
		DBHost:     getString("DB_HOST", "localhost"),
		DBPort:     getInt("DB_PORT", 5432),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getString("DB_NAME", "optileno"),
		DBSSLMode:  getString("DB_SSLMODE", "disable"),

		HTTPAddr:       getString("HTTP_ADDR", ":8080"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"*"}),
		JWTSecret:      os.Getenv("JWT_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		CacheTTL:      getDuration("CACHE_TTL", 2*time.Minute),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getString("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		Log: LoggerConfig{
			ServiceName: getString("SERVICE_NAME", "optileno"),
			Level:       getString("LOG_LEVEL", "info"),
			Format:      getString("LOG_FORMAT", "json"),
			LogFile:     os.Getenv("LOG_FILE"),
			MaxSize:     getInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups:  getInt("LOG_MAX_BACKUPS", 3),
			MaxAge:      getInt("LOG_MAX_AGE_DAYS", 28),
			Compress:    getBool("LOG_COMPRESS", false),
		},

		MaxGoals:       getInt("MAX_GOALS_TO_ANALYZE", 3),
		StreamInterval: getDuration("METRICS_STREAM_INTERVAL", 10*time.Second),
	}
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.DBPort <= 0 || c.DBPort > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT out of range: %d", c.DBPort))
	}
	if c.MaxGoals <= 0 {
		errs = append(errs, fmt.Errorf("MAX_GOALS_TO_ANALYZE must be positive: %d", c.MaxGoals))
	}
	if c.StreamInterval <= 0 {
		errs = append(errs, fmt.Errorf("METRICS_STREAM_INTERVAL must be positive: %s", c.StreamInterval))
	}
	return errors.Join(errs...)
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return d
}

func getList(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
