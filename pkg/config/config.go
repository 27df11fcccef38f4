package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                    string
	Env                     string
	DatabaseDriver          string
	PostgresConnStr         string
	SQLitePath              string
	MongoURI                string
	MongoDatabase           string
	SessionSecret           string
	SessionTTL              time.Duration
	UploadDir               string
	UploadMaxSize           string
	SpotifyClientID         string
	SpotifyClientSecret     string
	SpotifyTimeout          time.Duration
	ResetSchedule           string
	SchedulerEnabled        bool
	Timezone                string
	LogLevel                string
	LogFormat               string
	MetricsPort             string
	FirebaseCredentialsPath string
	LoginRateLimit          float64
}

// Load reads the configuration from the environment, after loading an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		DatabaseDriver:          strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		SQLitePath:              getEnv("SQLITE_PATH", "music_sns.db"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "songoftheday"),
		SessionSecret:           getEnv("SESSION_SECRET", "supersecretsessionkey"),
		SessionTTL:              getEnvDuration("SESSION_TTL", 72*time.Hour),
		UploadDir:               getEnv("UPLOAD_DIR", "static/uploads"),
		UploadMaxSize:           getEnv("UPLOAD_MAX_SIZE", "32M"),
		SpotifyClientID:         getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret:     getEnv("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyTimeout:          getEnvDuration("SPOTIFY_TIMEOUT", 5*time.Second),
		ResetSchedule:           getEnv("RESET_SCHEDULE", "0 4 * * *"),
		SchedulerEnabled:        getEnvBool("SCHEDULER_ENABLED", false),
		Timezone:                getEnv("TIMEZONE", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "json"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		LoginRateLimit:          getEnvFloat("LOGIN_RATE_LIMIT", 1),
	}
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves Timezone, falling back to the process's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.Timezone).Msg("unknown timezone, using local time")
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
