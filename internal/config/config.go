// Package config loads the gauntlet configuration from
// .gauntlet/config.yaml, falling back to defaults when no file exists.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".gauntlet"
	ConfigFileName = "config.yaml"
)

// Config is the complete gauntlet configuration.
type Config struct {
	// TargetURL is the default application under test.
	TargetURL string `yaml:"target_url"`
	// ArtifactsDir is the root all run artifacts persist under.
	ArtifactsDir string `yaml:"artifacts_dir"`
	// Headless controls whether Chrome runs without a window.
	Headless bool `yaml:"headless"`
	// Concurrency caps how many tests execute simultaneously.
	Concurrency int `yaml:"concurrency"`
	// ListenAddr is the API server bind address.
	ListenAddr string `yaml:"listen_addr"`
	// DatabasePath locates the sqlite run history.
	DatabasePath string `yaml:"database_path"`
	// KnowledgePath locates the planner knowledge base.
	KnowledgePath string `yaml:"knowledge_path"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		TargetURL:     "https://play.ezygamers.com/",
		ArtifactsDir:  "artifacts",
		Headless:      true,
		Concurrency:   5,
		ListenAddr:    ":8000",
		DatabasePath:  filepath.Join(ConfigDirName, "gauntlet.db"),
		KnowledgePath: filepath.Join(ConfigDirName, "knowledge.yaml"),
	}
}

// Load reads the config file under projectDir if present, layered over the
// defaults. A missing file is not an error.
func Load(projectDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(projectDir, ConfigDirName, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config beneath projectDir, creating the directory if
// needed.
func (c *Config) Save(projectDir string) error {
	dir := filepath.Join(projectDir, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
