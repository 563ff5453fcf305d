package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel    string        `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogJSON     bool          `mapstructure:"log_json"`
	Port        string        `mapstructure:"port" validate:"required,numeric"`
	DatabaseURL string        `mapstructure:"database_url" validate:"omitempty,url"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" validate:"gt=0"`

	Extraction Extraction `mapstructure:"extraction"`
	Export     Export     `mapstructure:"export"`
}

type Extraction struct {
	OCRLanguage  string  `mapstructure:"ocr_language" validate:"required"`
	RenderScale  float64 `mapstructure:"render_scale" validate:"gt=0,lte=8"`
	PdftoppmPath string  `mapstructure:"pdftoppm_path" validate:"required"`
	MaxUploadMB  int64   `mapstructure:"max_upload_mb" validate:"gt=0"`
	// MaxParallel bounds the files extracted at once across all sessions.
	MaxParallel int64 `mapstructure:"max_parallel" validate:"gte=1,lte=64"`
}

type Export struct {
	FilePrefix string `mapstructure:"file_prefix" validate:"required,excludesall=/\\"`
	Sheets     Sheets `mapstructure:"sheets"`
}

type Sheets struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Tab             string `mapstructure:"tab"`
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Export.Sheets.SpreadsheetID != "" && c.Export.Sheets.CredentialsFile != ""
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.Extraction.MaxUploadMB << 20
}

var defaults = map[string]any{
	"log_level":    "info",
	"log_json":     false,
	"port":         "8080",
	"database_url": "",
	"session_ttl":  "2h",

	"extraction.ocr_language":  "eng",
	"extraction.render_scale":  2.0,
	"extraction.pdftoppm_path": "pdftoppm",
	"extraction.max_upload_mb": 10,
	"extraction.max_parallel":  2,

	"export.file_prefix":             "candidates",
	"export.sheets.credentials_file": "",
	"export.sheets.spreadsheet_id":   "",
	"export.sheets.tab":              "Candidates",
}

// Load reads .env, then the optional config file, then the environment.
// Environment keys are the upper-cased key paths with dots replaced by
// underscores, e.g. EXTRACTION_OCR_LANGUAGE.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
