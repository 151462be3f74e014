package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
	"github.com/joho/godotenv"
)

type Config struct {
	StoreDriver   string // mongo or sqlite (default: mongo)
	MongoURL      string // Required for mongo: connection string
	MongoDatabase string // Optional: database name (default: users_db)
	DatabaseFile  string // Optional: path to SQLite database file (default: pharmacy.db)
	PepperFile    string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	SessionKeyFile string        // Optional: PEM Ed25519 key for session tokens; empty means a fresh key per start
	SessionIssuer  string        // Optional: iss claim of session tokens (default: pharmacy-accounts)
	SessionTTL     time.Duration // Session lifetime (default: 6h)
	OTPTTL         time.Duration // One-time code lifetime (default: 10m)

	MailDriver               string // smtp or log (default: smtp)
	SMTPServer               string // SMTP relay host (default: smtp.gmail.com)
	SMTPPort                 int    // SMTP relay port (default: 587)
	SMTPUser                 string // Required for smtp: login and default sender
	SMTPPassword             string // SMTP password
	SMTPFrom                 string // Optional: sender address (default: SMTPUser)
	RequireEmailVerification bool   // Signup waits for an emailed code (default: false)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	BindAddress          string        // Interface to listen on (default: 127.0.0.1)
	Port                 int           // HTTP server port (default: 8080)
	TrustedProxies       string        // Comma separated proxy CIDRs whose forwarding headers are honoured (default: none)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 15m)
}

// LoadConfig reads the configuration from the environment. Variables from a
// .env file in the working directory are loaded first without overriding
// anything already set.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Config{
		StoreDriver:              strings.ToLower(getEnvOrDefault("STORE_DRIVER", "mongo")),
		MongoURL:                 os.Getenv("MONGODB_URL"),
		MongoDatabase:            getEnvOrDefault("MONGODB_DATABASE", "users_db"),
		DatabaseFile:             getEnvOrDefault("DATABASE_FILE", "pharmacy.db"),
		PepperFile:               getEnvOrDefault("PEPPER_FILE", "pepper"),
		SessionKeyFile:           os.Getenv("SESSION_KEY_FILE"),
		SessionIssuer:            getEnvOrDefault("SESSION_ISSUER", "pharmacy-accounts"),
		SessionTTL:               getEnvDurationOrDefault("SESSION_TTL", 6*time.Hour),
		OTPTTL:                   getEnvDurationOrDefault("OTP_TTL", 10*time.Minute),
		MailDriver:               strings.ToLower(getEnvOrDefault("MAIL_DRIVER", "smtp")),
		SMTPServer:               getEnvOrDefault("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:                 getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUser:                 os.Getenv("SMTP_USER"),
		SMTPPassword:             os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:                 os.Getenv("SMTP_FROM"),
		RequireEmailVerification: getEnvBoolOrDefault("REQUIRE_EMAIL_VERIFICATION", false),
		Env:                      getEnvOrDefault("ENV", "dev"),
		LogLevel:                 getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:                getEnvOrDefault("LOG_FORMAT", "json"),
		BindAddress:              getEnvOrDefault("BIND_ADDRESS", "127.0.0.1"),
		Port:                     getEnvIntOrDefault("PORT", 8080),
		TrustedProxies:           os.Getenv("TRUSTED_PROXIES"),
		ShutdownGracePeriod:      getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval:     getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 15*time.Minute),
	}

	return cfg, cfg.Validate()
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case "mongo":
		if c.MongoURL == "" {
			errs = append(errs, errors.New("MONGODB_URL is required when STORE_DRIVER=mongo"))
		}
	case "sqlite":
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required when STORE_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q (want mongo or sqlite)", c.StoreDriver))
	}

	switch c.MailDriver {
	case "smtp":
		if c.SMTPServer == "" || c.SMTPUser == "" {
			errs = append(errs, errors.New("SMTP_SERVER and SMTP_USER are required when MAIL_DRIVER=smtp"))
		}
	case "log":
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q (want smtp or log)", c.MailDriver))
	}

	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}

	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
