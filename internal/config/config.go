package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultPort           = "8080"
	defaultDBPort         = "5432"
	defaultRedisPort      = "6379"
	defaultMaxUploadBytes = 10 << 20
	defaultIssuerTagline  = "Graphic Design Services"
	defaultThreshold      = "200"
)

// Config holds all configuration values from environment.
type Config struct {
	AppPort        string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool
	RedisHost      string // empty keeps the invoice-number fallback in memory
	RedisPort      string

	MaxUploadBytes int64

	// Invoice document settings
	IssuerName         string
	IssuerTagline      string
	PaymentLines       []string
	HighlightThreshold decimal.Decimal

	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from a .env file, if present, and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid .env file: %v", err)
	}

	minioSSL := false
	if sslEnv := os.Getenv("MINIO_SSL"); sslEnv != "" {
		val, err := strconv.ParseBool(sslEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		minioSSL = val
	}
	maxUpload := int64(defaultMaxUploadBytes)
	if sizeEnv := os.Getenv("MAX_UPLOAD_BYTES"); sizeEnv != "" {
		val, err := strconv.ParseInt(sizeEnv, 10, 64)
		if err != nil || val <= 0 {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES value: %q", sizeEnv)
		}
		maxUpload = val
	}
	threshold, err := decimal.NewFromString(getEnv("INVOICE_HIGHLIGHT_THRESHOLD", defaultThreshold))
	if err != nil {
		return nil, fmt.Errorf("invalid INVOICE_HIGHLIGHT_THRESHOLD value: %v", err)
	}

	cfg := &Config{
		AppPort:        getEnv("DASHBOARD_PORT", defaultPort),
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         getEnv("DB_PORT", defaultDBPort),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    os.Getenv("MINIO_BUCKET"),
		MinioSSL:       minioSSL,
		RedisHost:      os.Getenv("REDIS_HOST"),
		RedisPort:      getEnv("REDIS_PORT", defaultRedisPort),
		MaxUploadBytes: maxUpload,

		IssuerName:         os.Getenv("INVOICE_ISSUER_NAME"),
		IssuerTagline:      getEnv("INVOICE_ISSUER_TAGLINE", defaultIssuerTagline),
		PaymentLines:       splitLines(os.Getenv("INVOICE_PAYMENT_LINES")),
		HighlightThreshold: threshold,

		LogLevel:  strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
	// Basic validation for required fields
	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("database configuration is incomplete")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
		return nil, fmt.Errorf("minio configuration is incomplete")
	}
	return cfg, nil
}

// ConnectDatabase initializes a GORM database connection to PostgreSQL.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitLines(s string) []string {
	var lines []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, part)
		}
	}
	return lines
}
