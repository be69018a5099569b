package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashmirror/hashmirror/internal/remote"
	"github.com/hashmirror/hashmirror/internal/utils"
)

var home, _ = os.UserHomeDir()

var (
	DefaultDataDir    = filepath.Join(home, ".hashmirror")
	DefaultConfigPath = filepath.Join(DefaultDataDir, "config.json")
)

// Config is the process configuration, loaded from config file, environment
// and flags (in ascending precedence).
type Config struct {
	// Path of the loaded config file, informational.
	Path string `json:"-"`

	// DataDir holds the journal database and lock file.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Concurrency bounds in-flight remote calls during execution.
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`

	Remote remote.S3Config `json:"remote" mapstructure:"remote"`
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir is required")
	}
	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("config: bad data_dir: %w", err)
	}
	c.DataDir = dataDir

	if c.Concurrency < 0 {
		return errors.New("config: concurrency cannot be negative")
	}

	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return utils.EnsureDir(c.DataDir)
}

// JournalPath is the location of the operation journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}
