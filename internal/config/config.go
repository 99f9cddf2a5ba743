package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var AppEnv Config

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    string

	Store    string
	MongoURI string
	DBName   string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	PrivilegedRoles []string
	AuthRatePerMin  int

	StrictPricing bool
	TaxRate       decimal.Decimal
	FlatShipping  decimal.Decimal

	MerchantUpiID string
	MerchantName  string

	CORSOrigins []string
	UploadDir   string

	RedisAddr     string
	RedisPassword string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug(".env not loaded")
	}
	AppEnv = FromEnv()
}

// FromEnv reads the configuration from the process environment.
func FromEnv() Config {
	return Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Port:        getEnvOrDefault("PORT", "5000"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),

		Store:    strings.ToLower(getEnvOrDefault("STORE", StoreMongo)),
		MongoURI: getEnvOrDefault("MONGO_URI", ""),
		DBName:   getEnvOrDefault("DB_NAME", "ecommerce"),

		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		PrivilegedRoles: getListEnv("PRIVILEGED_ROLES", []string{"admin"}),
		AuthRatePerMin:  getIntEnv("AUTH_RATE_PER_MINUTE", 20),

		StrictPricing: getBoolEnv("STRICT_PRICING", false),
		TaxRate:       getDecimalEnv("TAX_RATE", decimal.NewFromFloat(0.18)),
		FlatShipping:  getDecimalEnv("FLAT_SHIPPING", decimal.NewFromInt(50)),

		MerchantUpiID: getEnvOrDefault("MERCHANT_UPI_ID", "xyz@okaxis"),
		MerchantName:  getEnvOrDefault("MERCHANT_NAME", "E-Commerce"),

		CORSOrigins: getListEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
		UploadDir:   getEnvOrDefault("UPLOAD_DIR", "uploads"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		SMTPHost:     getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: getEnvOrDefault("SMTP_USERNAME", ""),
		SMTPPassword: getEnvOrDefault("SMTP_PASSWORD", ""),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "noreply@example.com"),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE=mongo"))
		}
	case StoreMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store))
	}
	if c.TaxRate.IsNegative() || c.FlatShipping.IsNegative() {
		errs = append(errs, errors.New("TAX_RATE and FLAT_SHIPPING must not be negative"))
	}
	return errors.Join(errs...)
}
