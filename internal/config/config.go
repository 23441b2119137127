package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	IndexDir string `toml:"index_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
}

// Merge contains the link and merge policy for print/online serials.
type Merge struct {
	// Strict aborts the run on the first consistency error instead of
	// emitting the offending group unmerged.
	Strict                  bool     `toml:"strict"`
	SerialsOnly             bool     `toml:"serials_only"`
	ImplicitLinks           bool     `toml:"implicit_links"`
	NamespacePrefixes       []string `toml:"namespace_prefixes"`
	CrossLinkTags           []string `toml:"cross_link_tags"`
	UplinkTags              []string `toml:"uplink_tags"`
	StandardNumberSubfields []string `toml:"standard_number_subfields"`
	DebugMapsDir            string   `toml:"debug_maps_dir"`
	MissingPartnersFile     string   `toml:"missing_partners_file"`
}

// Guesser contains configuration for the duplicate guesser index.
type Guesser struct {
	StoreFile              string `toml:"store_file"`
	MaxControlNumberLength int    `toml:"max_control_number_length"`
	BatchSize              int    `toml:"batch_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for the run counters export.
type Metrics struct {
	// TextfilePath is written in Prometheus text format after each run when set.
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for marclink.
//
// Configuration sections by subsystem:
//   - Paths: index, log and scratch directories
//   - Merge: cross-reference and merge policy
//   - Guesser: duplicate index storage and limits
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths   Paths   `toml:"paths"`
	Merge   Merge   `toml:"merge"`
	Guesser Guesser `toml:"guesser"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("marclink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the index, log and work directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.IndexDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// GuesserStorePath returns the absolute path of the guesser database.
func (c *Config) GuesserStorePath() string {
	if filepath.IsAbs(c.Guesser.StoreFile) {
		return c.Guesser.StoreFile
	}
	return filepath.Join(c.Paths.IndexDir, c.Guesser.StoreFile)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
