// Package config loads takeoutctl's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Job      JobConfig      `yaml:"job"`
	Download DownloadConfig `yaml:"download"`
	Auth     AuthConfig     `yaml:"auth"`
}

// JobConfig identifies the export job being retrieved
type JobConfig struct {
	ID       string `yaml:"id"`
	MaxIndex int    `yaml:"max_index"`
}

// DownloadConfig holds retrieval settings
type DownloadConfig struct {
	OutputDir    string `yaml:"output_dir"`
	DelaySeconds int    `yaml:"delay_seconds"`
	DBPath       string `yaml:"db_path"`
}

// AuthConfig holds session-acquisition settings
type AuthConfig struct {
	// CurlPath is the captured browser request the CurlFileProvider
	// re-reads on refresh.
	CurlPath string `yaml:"curl_path"`
	// Retries bounds consecutive session refreshes per index before
	// the run aborts.
	Retries int `yaml:"retries"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Job: JobConfig{
			MaxIndex: 277,
		},
		Download: DownloadConfig{
			OutputDir:    "takeout",
			DelaySeconds: 5,
			DBPath:       "takeoutctl.db",
		},
		Auth: AuthConfig{
			CurlPath: "curl.txt",
			Retries:  2,
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"takeoutctl.yaml",
		"/etc/takeoutctl/takeoutctl.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "takeoutctl", "takeoutctl.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// Validate checks that the configuration can drive a retrieval run.
// The job id is the UUID the export service assigned to the takeout.
func (c *Config) Validate() error {
	if c.Job.ID == "" {
		return fmt.Errorf("job.id is required")
	}
	if _, err := uuid.Parse(c.Job.ID); err != nil {
		return fmt.Errorf("job.id %q is not a valid UUID: %w", c.Job.ID, err)
	}
	if c.Job.MaxIndex < 1 {
		return fmt.Errorf("job.max_index must be at least 1, got %d", c.Job.MaxIndex)
	}
	if c.Download.DelaySeconds < 0 {
		return fmt.Errorf("download.delay_seconds must be non-negative, got %d", c.Download.DelaySeconds)
	}
	if c.Download.OutputDir == "" {
		return fmt.Errorf("download.output_dir is required")
	}
	if c.Auth.Retries < 0 {
		return fmt.Errorf("auth.retries must be non-negative, got %d", c.Auth.Retries)
	}
	return nil
}
