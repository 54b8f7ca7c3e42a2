package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	JWTSecret string
	TokenTTL  time.Duration
	Location  *time.Location

	Backup BackupConfig
	Push   PushConfig
	OIDC   OIDCConfig
}

// OIDCConfig enables single sign-on when Issuer and ClientID are set.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// PushConfig configures Web Push habit reminders. Push stays off unless
// both VAPID keys are set.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	ReminderHour    int
}

// BackupConfig configures encrypted snapshots to S3-compatible storage.
type BackupConfig struct {
	Endpoint   string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Prefix     string
	Passphrase string
	Interval   time.Duration
	Retention  time.Duration
}

// Load reads an optional .env file and then LIFEQUEST_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	ttlHours, err := strconv.Atoi(getEnv("LIFEQUEST_TOKEN_TTL_HOURS", "72"))
	if err != nil || ttlHours <= 0 {
		return nil, fmt.Errorf("invalid LIFEQUEST_TOKEN_TTL_HOURS: %q", os.Getenv("LIFEQUEST_TOKEN_TTL_HOURS"))
	}

	tz := getEnv("LIFEQUEST_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	interval, err := strconv.Atoi(getEnv("LIFEQUEST_BACKUP_INTERVAL_HOURS", "0"))
	if err != nil || interval < 0 {
		return nil, fmt.Errorf("invalid LIFEQUEST_BACKUP_INTERVAL_HOURS: %q", os.Getenv("LIFEQUEST_BACKUP_INTERVAL_HOURS"))
	}
	retention, err := strconv.Atoi(getEnv("LIFEQUEST_BACKUP_RETENTION_DAYS", "30"))
	if err != nil || retention < 0 {
		return nil, fmt.Errorf("invalid LIFEQUEST_BACKUP_RETENTION_DAYS: %q", os.Getenv("LIFEQUEST_BACKUP_RETENTION_DAYS"))
	}

	reminderHour, err := strconv.Atoi(getEnv("LIFEQUEST_REMINDER_HOUR", "20"))
	if err != nil || reminderHour < 0 || reminderHour > 23 {
		return nil, fmt.Errorf("invalid LIFEQUEST_REMINDER_HOUR: %q", os.Getenv("LIFEQUEST_REMINDER_HOUR"))
	}

	cfg := &Config{
		Port:      getEnv("LIFEQUEST_PORT", "8080"),
		DBPath:    getEnv("LIFEQUEST_DB_PATH", "lifequest.db"),
		LogLevel:  getEnv("LIFEQUEST_LOG_LEVEL", "info"),
		JWTSecret: os.Getenv("LIFEQUEST_JWT_SECRET"),
		TokenTTL:  time.Duration(ttlHours) * time.Hour,
		Location:  loc,
		Backup: BackupConfig{
			Endpoint:   os.Getenv("LIFEQUEST_S3_ENDPOINT"),
			Bucket:     os.Getenv("LIFEQUEST_S3_BUCKET"),
			Region:     getEnv("LIFEQUEST_S3_REGION", "us-east-1"),
			AccessKey:  os.Getenv("LIFEQUEST_S3_ACCESS_KEY"),
			SecretKey:  os.Getenv("LIFEQUEST_S3_SECRET_KEY"),
			Prefix:     getEnv("LIFEQUEST_BACKUP_PREFIX", "lifequest"),
			Passphrase: os.Getenv("LIFEQUEST_BACKUP_PASSPHRASE"),
			Interval:   time.Duration(interval) * time.Hour,
			Retention:  time.Duration(retention) * 24 * time.Hour,
		},
		Push: PushConfig{
			VAPIDPublicKey:  os.Getenv("LIFEQUEST_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("LIFEQUEST_VAPID_PRIVATE_KEY"),
			Subject:         os.Getenv("LIFEQUEST_VAPID_SUBJECT"),
			ReminderHour:    reminderHour,
		},
		OIDC: OIDCConfig{
			Issuer:       os.Getenv("LIFEQUEST_OIDC_ISSUER"),
			ClientID:     os.Getenv("LIFEQUEST_OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("LIFEQUEST_OIDC_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("LIFEQUEST_OIDC_REDIRECT_URL"),
		},
	}
	return cfg, nil
}

// Validate checks settings that only the HTTP server needs.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("LIFEQUEST_JWT_SECRET must be at least 16 characters")
	}
	if c.OIDC.Issuer != "" && c.OIDC.RedirectURL == "" {
		return fmt.Errorf("LIFEQUEST_OIDC_REDIRECT_URL is required when LIFEQUEST_OIDC_ISSUER is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
