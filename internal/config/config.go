package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Storage  StorageConfig
	Security SecurityConfig
	Upload   UploadConfig
	Audit    AuditConfig
}

type ServerConfig struct {
	Port      string
	PublicURL string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// StorageConfig selects and configures the blob backend. Backend is either
// "minio" (static credentials) or "s3" (IAM role when no access key is set).
type StorageConfig struct {
	Backend   string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type SecurityConfig struct {
	// AESKeyHex is the process-wide encryption key: exactly 64 hex
	// characters (32 bytes). Rotating it invalidates every undelivered
	// transfer.
	AESKeyHex string
}

type UploadConfig struct {
	MaxFileSize  int64
	AllowedMimes []string
	TokenTTL     time.Duration
}

type AuditConfig struct {
	QueueSize      int
	ExportInterval time.Duration
}

var defaultAllowedMimes = []string{
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/zip",
	"application/x-zip-compressed",
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "burnbox"),
			Password: getEnv("DB_PASSWORD", "burnbox_secret"),
			Name:     getEnv("DB_NAME", "burnbox"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "minio"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", "burnbox"),
			SecretKey: getEnv("STORAGE_SECRET_KEY", "burnbox_secret"),
			Bucket:    getEnv("STORAGE_BUCKET", "burnbox"),
			Region:    getEnv("STORAGE_REGION", ""),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Security: SecurityConfig{
			AESKeyHex: getEnv("AES_SECRET", ""),
		},
		Upload: UploadConfig{
			MaxFileSize:  getEnvAsInt64("MAX_FILE_SIZE", 100*1024*1024),
			AllowedMimes: getEnvAsSlice("ALLOWED_MIME_TYPES", defaultAllowedMimes),
			TokenTTL:     getEnvAsDuration("TOKEN_TTL", 30*24*time.Hour),
		},
		Audit: AuditConfig{
			QueueSize:      getEnvAsInt("AUDIT_QUEUE_SIZE", 1000),
			ExportInterval: getEnvAsDuration("AUDIT_EXPORT_INTERVAL", 1*time.Hour),
		},
	}
}

// Validate rejects configurations the server cannot safely start with.
func (c *Config) Validate() error {
	if _, err := c.Security.Key(); err != nil {
		return err
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.Upload.MaxFileSize)
	}
	if c.Upload.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Upload.TokenTTL)
	}
	switch c.Storage.Backend {
	case "minio", "s3":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be minio or s3, got %q", c.Storage.Backend)
	}
	return nil
}

// Key decodes the configured AES secret into raw key bytes.
func (s SecurityConfig) Key() ([]byte, error) {
	if len(s.AESKeyHex) != 64 {
		return nil, fmt.Errorf("AES_SECRET must be exactly 64 hex characters, got %d", len(s.AESKeyHex))
	}
	key, err := hex.DecodeString(s.AESKeyHex)
	if err != nil {
		return nil, fmt.Errorf("AES_SECRET is not valid hex: %w", err)
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
