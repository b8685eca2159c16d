// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendGCS   = "gcs"
	BackendMinIO = "minio"
)

// Config holds all service settings.
type Config struct {
	Port string

	RawBucket       string
	ProcessedBucket string
	RawDir          string
	ProcessedDir    string

	Backend     string
	GCSEndpoint string
	MinIO       MinIO

	FFmpegPath   string
	TargetHeight int

	DownloadTimeout  time.Duration
	TranscodeTimeout time.Duration
	UploadTimeout    time.Duration
	ScopedPaths      bool

	MaxBodyBytes int64

	LogLevel  string
	LogFormat string
}

// MinIO holds the S3-compatible backend settings.
type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

var defaults = map[string]any{
	"port":              "3000",
	"raw_bucket":        "demo-raw-video",
	"processed_bucket":  "demo-processed-video",
	"raw_dir":           "./raw-videos",
	"processed_dir":     "./processed-videos",
	"storage_backend":   BackendGCS,
	"gcs_endpoint":      "",
	"minio_endpoint":    "",
	"minio_access_key":  "",
	"minio_secret_key":  "",
	"minio_use_ssl":     false,
	"ffmpeg_path":       "ffmpeg",
	"target_height":     360,
	"download_timeout":  "0s",
	"transcode_timeout": "0s",
	"upload_timeout":    "0s",
	"job_scoped_paths":  true,
	"max_body_bytes":    int64(1 << 20),
	"log_level":         "info",
	"log_format":        "json",
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	cfg := Config{
		Port:            v.GetString("port"),
		RawBucket:       v.GetString("raw_bucket"),
		ProcessedBucket: v.GetString("processed_bucket"),
		RawDir:          v.GetString("raw_dir"),
		ProcessedDir:    v.GetString("processed_dir"),
		Backend:         strings.ToLower(v.GetString("storage_backend")),
		GCSEndpoint:     v.GetString("gcs_endpoint"),
		MinIO: MinIO{
			Endpoint:  v.GetString("minio_endpoint"),
			AccessKey: v.GetString("minio_access_key"),
			SecretKey: v.GetString("minio_secret_key"),
			UseSSL:    v.GetBool("minio_use_ssl"),
		},
		FFmpegPath:       v.GetString("ffmpeg_path"),
		TargetHeight:     v.GetInt("target_height"),
		DownloadTimeout:  v.GetDuration("download_timeout"),
		TranscodeTimeout: v.GetDuration("transcode_timeout"),
		UploadTimeout:    v.GetDuration("upload_timeout"),
		ScopedPaths:      v.GetBool("job_scoped_paths"),
		MaxBodyBytes:     v.GetInt64("max_body_bytes"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	required := map[string]string{
		"PORT":             c.Port,
		"RAW_BUCKET":       c.RawBucket,
		"PROCESSED_BUCKET": c.ProcessedBucket,
		"RAW_DIR":          c.RawDir,
		"PROCESSED_DIR":    c.ProcessedDir,
	}
	for k, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("required env var %s is empty", k)
		}
	}
	if filepath.Clean(c.RawDir) == filepath.Clean(c.ProcessedDir) {
		return fmt.Errorf("RAW_DIR and PROCESSED_DIR must differ")
	}
	switch c.Backend {
	case BackendGCS:
	case BackendMinIO:
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Backend)
	}
	if c.TargetHeight <= 0 {
		return fmt.Errorf("TARGET_HEIGHT must be positive, got %d", c.TargetHeight)
	}
	if c.DownloadTimeout < 0 || c.TranscodeTimeout < 0 || c.UploadTimeout < 0 {
		return fmt.Errorf("stage timeouts must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}
