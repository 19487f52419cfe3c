// Package config holds runtime configuration for the mosaic service
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	// HTTP server
	Host        string
	Port        int
	CORSOrigins []string

	// File upload limits
	MaxUploadBytes    int64
	AllowedExtensions []string

	// Session storage
	SessionTTL      time.Duration
	CleanupSchedule string

	// Data paths
	PalettesDir string
	FontPath    string
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8000,
		CORSOrigins:       []string{"http://localhost:5173"},
		MaxUploadBytes:    10 * 1024 * 1024,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "webp", "gif"},
		SessionTTL:        24 * time.Hour,
		CleanupSchedule:   "@hourly",
		FontPath:          "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}
}

// FromEnv returns the default configuration overridden by environment
// variables. Call godotenv.Load before this to pick up a .env file.
func FromEnv() (*Config, error) {
	cfg := Default()

	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitTrim(v)
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", v, err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		cfg.SessionTTL = ttl
	}
	if v := os.Getenv("CLEANUP_SCHEDULE"); v != "" {
		cfg.CleanupSchedule = v
	}
	if v := os.Getenv("PALETTES_DIR"); v != "" {
		cfg.PalettesDir = v
	}
	if v := os.Getenv("FONT_PATH"); v != "" {
		cfg.FontPath = v
	}

	return cfg, nil
}

// Addr returns the host:port address the HTTP server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowedExtension reports whether a file extension (without the dot)
// is accepted for upload
func (c *Config) AllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
