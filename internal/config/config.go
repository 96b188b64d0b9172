package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	JWTTTL              time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	ClinicTimezone      string        `mapstructure:"CLINIC_TIMEZONE"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic          string        `mapstructure:"KAFKA_TOPIC"`
	SMTPAddr            string        `mapstructure:"SMTP_ADDR"`
	SMTPFrom            string        `mapstructure:"SMTP_FROM"`
	SMTPUser            string        `mapstructure:"SMTP_USER"`
	SMTPPassword        string        `mapstructure:"SMTP_PASSWORD"`
	ResetCodeTTL        time.Duration `mapstructure:"RESET_CODE_TTL"`
	OutboxRetentionDays int           `mapstructure:"OUTBOX_RETENTION_DAYS"`
}

// devJWTSecret signs tokens when ENV=development and no secret is configured.
const devJWTSecret = "sga-development-secret"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("CLINIC_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("KAFKA_TOPIC", "sga.agenda")
	v.SetDefault("RESET_CODE_TTL", "15m")
	v.SetDefault("OUTBOX_RETENTION_DAYS", 7)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SECRET", "JWT_TTL", "CORS_ORIGINS", "CLINIC_TIMEZONE",
		"REDIS_URL", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"SMTP_ADDR", "SMTP_FROM", "SMTP_USER", "SMTP_PASSWORD",
		"RESET_CODE_TTL", "OUTBOX_RETENTION_DAYS",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; using the development signing secret.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// splitList normalizes comma separated lists that viper may hand back as a
// single element.
func splitList(parsed []string, raw string) []string {
	if len(parsed) > 1 {
		return parsed
	}
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the clinic time zone used for calendar-day boundaries.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ClinicTimezone)
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret of at least 32 bytes is required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
		}
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("CLINIC_TIMEZONE %q is not a valid time zone: %w", c.ClinicTimezone, err)
	}
	if c.ResetCodeTTL <= 0 {
		return fmt.Errorf("RESET_CODE_TTL must be positive, got %s", c.ResetCodeTTL)
	}
	if c.SMTPAddr != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_ADDR is set")
	}
	return nil
}
