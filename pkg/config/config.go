// Package config loads inboxdb settings from defaults, a YAML file, a .env file
// and INBOXDB_* environment variables, in that order.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-go-golems/inboxdb/pkg/export"
	"github.com/go-go-golems/inboxdb/pkg/ingest"
	"github.com/go-go-golems/inboxdb/pkg/logging"
	"github.com/go-go-golems/inboxdb/pkg/persistence/chatdb"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix         = "INBOXDB_"
	DefaultInboxDir   = "messages/inbox"
	DefaultTitlesFile = "titles.txt"
	DefaultEnvFile    = ".env"
)

type Config struct {
	InboxDir        string `yaml:"inbox_dir" env:"INBOX_DIR"`
	MessageFile     string `yaml:"message_file" env:"MESSAGE_FILE"`
	DataDir         string `yaml:"data_dir" env:"DATA_DIR"`
	Truncate        bool   `yaml:"truncate" env:"TRUNCATE"`
	ProgressEvery   int    `yaml:"progress_every" env:"PROGRESS_EVERY"`
	InsertBatchSize int    `yaml:"insert_batch_size" env:"INSERT_BATCH_SIZE"`
	TitlesFile      string `yaml:"titles_file" env:"TITLES_FILE"`
	MetricsFile     string `yaml:"metrics_file" env:"METRICS_FILE"`
	LogLevel        string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat       string `yaml:"log_format" env:"LOG_FORMAT"`
}

func Default() *Config {
	return &Config{
		InboxDir:        DefaultInboxDir,
		MessageFile:     export.DefaultMessageFile,
		DataDir:         ingest.DefaultDataDir,
		Truncate:        true,
		ProgressEvery:   ingest.DefaultProgressEvery,
		InsertBatchSize: chatdb.DefaultBatchSize,
		TitlesFile:      DefaultTitlesFile,
		LogLevel:        "info",
		LogFormat:       logging.FormatAuto,
	}
}

// LoadOptions names the optional files consulted by Load.
type LoadOptions struct {
	// ConfigFile is a YAML file. Unknown keys are rejected.
	ConfigFile string
	// EnvFile is loaded without overriding variables already set. When empty,
	// ./.env is used if it exists.
	EnvFile string
}

func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(opts.ConfigFile) != "" {
		if err := cfg.mergeYAMLFile(opts.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "config: parse environment")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "config: read file")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(err, "config: parse %s", path)
	}
	return nil
}

func loadEnvFile(path string) error {
	if strings.TrimSpace(path) != "" {
		return errors.Wrapf(godotenv.Load(path), "config: load %s", path)
	}
	if _, err := os.Stat(DefaultEnvFile); err != nil {
		return nil
	}
	return errors.Wrapf(godotenv.Load(DefaultEnvFile), "config: load %s", DefaultEnvFile)
}

func (c *Config) normalize() {
	c.InboxDir = strings.TrimSpace(c.InboxDir)
	c.MessageFile = strings.TrimSpace(c.MessageFile)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.TitlesFile = strings.TrimSpace(c.TitlesFile)
	c.MetricsFile = strings.TrimSpace(c.MetricsFile)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	if strings.TrimSpace(c.InboxDir) == "" {
		return errors.New("config: inbox_dir is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: data_dir is required")
	}
	if strings.TrimSpace(c.MessageFile) == "" {
		return errors.New("config: message_file is required")
	}
	if c.ProgressEvery <= 0 {
		return errors.Errorf("config: progress_every must be positive, got %d", c.ProgressEvery)
	}
	if c.InsertBatchSize <= 0 || c.InsertBatchSize > chatdb.MaxBatchSize {
		return errors.Errorf("config: insert_batch_size must be between 1 and %d, got %d", chatdb.MaxBatchSize, c.InsertBatchSize)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return errors.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	return nil
}

func (c *Config) ImporterOptions() ingest.Options {
	return ingest.Options{
		DataDir:         c.DataDir,
		MessageFile:     c.MessageFile,
		Truncate:        c.Truncate,
		ProgressEvery:   c.ProgressEvery,
		InsertBatchSize: c.InsertBatchSize,
	}
}

func (c *Config) LoggingSettings() logging.Settings {
	return logging.Settings{Level: c.LogLevel, Format: c.LogFormat}
}
