package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// AI analysis (stub analyzer when no key is set)
	OpenAIAPIKey string
	OpenAIAPIURL string
	OpenAIModel  string
	AITimeout    time.Duration

	// Geocoding
	GeocodeBaseURL   string
	GeocodeUserAgent string
	GeocodeTimeout   time.Duration

	// Image storage
	AzureStorageAccount    string
	AzureStorageConnString string
	AzureStorageContainer  string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryFolder       string
	MaxImageBytes          int64

	// Realtime
	RealtimeBackend string // "local" or "postgres"
	RealtimeChannel string

	// Notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	WebhookURL   string
	AMQPURL      string
	AMQPExchange string
	PublicAppURL string

	// Scheduler
	VoteReconcileCron string
	LogRetentionCron  string
	LogRetentionDays  int

	// Admin bootstrap: emails that get the admin role on registration
	AdminEmails string

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "alerthub"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL: getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AITimeout:    parseDuration(getEnv("AI_TIMEOUT", "20s")),

		GeocodeBaseURL:   getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeUserAgent: getEnv("GEOCODE_USER_AGENT", "NagarAlertHub/1.0"),
		GeocodeTimeout:   parseDuration(getEnv("GEOCODE_TIMEOUT", "8s")),

		AzureStorageAccount:    getEnv("AZURE_STORAGE_ACCOUNT", ""),
		AzureStorageConnString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
		AzureStorageContainer:  getEnv("AZURE_STORAGE_CONTAINER", "alert-images"),
		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:       getEnv("CLOUDINARY_FOLDER", "alert-images"),
		MaxImageBytes:          int64(getIntEnv("MAX_IMAGE_BYTES", 5*1024*1024)),

		RealtimeBackend: getEnv("REALTIME_BACKEND", "local"),
		RealtimeChannel: getEnv("REALTIME_CHANNEL", "alert_changes"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		WebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "alerthub.events"),
		PublicAppURL: getEnv("PUBLIC_APP_URL", "http://localhost:3000"),

		VoteReconcileCron: getEnv("VOTE_RECONCILE_CRON", "0 */15 * * * *"),
		LogRetentionCron:  getEnv("LOG_RETENTION_CRON", "0 30 3 * * *"),
		LogRetentionDays:  getIntEnv("LOG_RETENTION_DAYS", 30),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
	}
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.DBPassword == "" {
		return errors.New("DB_PASSWORD environment variable is required")
	}
	if c.RealtimeBackend != "local" && c.RealtimeBackend != "postgres" {
		return errors.New("REALTIME_BACKEND must be local or postgres")
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}
