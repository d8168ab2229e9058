package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up inside the data directory.
const ConfigFileName = "barflow.yaml"

// Config is the on-disk configuration. Every field is optional; explicit
// options passed to Open take precedence over the file.
type Config struct {
	Engine string `yaml:"engine"` // "sqlite" (default) or "file"

	Remote struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"remote"`

	Sync struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"sync"`

	Alerts struct {
		Interval time.Duration `yaml:"interval"`
		Horizon  time.Duration `yaml:"horizon"`
	} `yaml:"alerts"`
}

// LoadConfig reads the config file from the data directory. A missing file
// yields a zero Config, not an error.
func LoadConfig(dir string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// FindRoot looks upwards from startDir for a data directory indicator: the
// config file or the database file. Returns an error when nothing is found.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFileName) || hasFile(dir, DatabaseFileName) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("data directory not found")
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
