// Package common holds process-wide configuration and shared error types.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
	HealthTimeout   time.Duration
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	UploadDir      string
}

type OCRConfig struct {
	Tesseract   string
	Lang        string
	DPI         int
	MaxPages    int
	Timeout     time.Duration
	TessdataDir string
}

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

type PipelineConfig struct {
	Workers int
}

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// LoadConfig reads configuration from environment variables, applying
// defaults suitable for local development.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 8),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 10*time.Second),
			HealthTimeout:   getEnvAsDuration("DB_HEALTH_TIMEOUT", 5*time.Second),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		},
		OCR: OCRConfig{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("OCR_LANG", "eng"),
			DPI:         getEnvAsInt("OCR_DPI", 200),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
			Timeout:     getEnvAsDuration("OCR_TIMEOUT", 120*time.Second),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:      getEnv("GROQ_API_KEY", ""),
			Model:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers: getEnvAsInt("PIPELINE_WORKERS", 1),
		},
	}
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: GROQ_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsInt32(key string, fallback int32) int32 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			return int32(n)
		}
	}
	return fallback
}

func getEnvAsFloat32(key string, fallback float32) float32 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
