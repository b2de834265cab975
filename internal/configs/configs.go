/*
Package configs loads the server configuration from environment variables.

Every setting has a development-friendly default. Production refuses to start without a JWT
secret. The Postgres activity journal and the S3 snapshot archive are optional; the S3 settings
are all-or-nothing.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment   string
	Port          int
	SeedWorkspace bool

	// Security Settings
	AllowedOrigins []string
	JWTSecret      string

	// S3 Snapshot Archive Settings (optional)
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Activity Journal Settings (optional)
	DatabaseDSN string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// ArchiveEnabled reports whether S3 snapshot archiving is configured.
func (c *AppConfig) ArchiveEnabled() bool {
	return c.S3BucketName != ""
}

// JournalEnabled reports whether the Postgres activity journal is configured.
func (c *AppConfig) JournalEnabled() bool {
	return c.DatabaseDSN != ""
}

// LoadConfig reads and validates the configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "3001"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the allowed range (%d-%d)", port, 1024, 65535)
	}
	cfg.Port = port

	cfg.SeedWorkspace = true
	if seedStr := os.Getenv("SEED_WORKSPACE"); seedStr != "" {
		seed, err := strconv.ParseBool(seedStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SEED_WORKSPACE environment variable: %w", err)
		}
		cfg.SeedWorkspace = seed
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment", cfg.Environment)
		}
		cfg.JWTSecret = "insecure_development_secret_change_me"
	}

	// --- S3 Snapshot Archive Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	s3Values := map[string]string{
		"S3_BUCKET_NAME":       cfg.S3BucketName,
		"S3_ENDPOINT":          cfg.S3Endpoint,
		"S3_ACCESS_KEY_ID":     cfg.S3AccessKeyID,
		"S3_SECRET_ACCESS_KEY": cfg.S3SecretAccessKey,
	}
	var set, missing []string
	for name, value := range s3Values {
		if value == "" {
			missing = append(missing, name)
		} else {
			set = append(set, name)
		}
	}
	if len(set) > 0 && len(missing) > 0 {
		return nil, fmt.Errorf("incomplete S3 archive configuration, missing: %s", strings.Join(missing, ", "))
	}

	// --- Activity Journal Settings ---
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	return cfg, nil
}
