package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const fileName = ".githistory.json"

// Config is the root configuration structure.
type Config struct {
	Mirror  MirrorConfig `json:"mirror"`
	Parser  ParserConfig `json:"parser"`
	Fetch   FetchConfig  `json:"fetch"`
	Filters FilterConfig `json:"filters"`
}

// MirrorConfig holds settings for the local bare mirrors.
type MirrorConfig struct {
	BasePath  string `json:"basePath"`  // Default: ~/.githistory/repositories
	SSLVerify bool   `json:"sslVerify"` // Default: true
	GitBinary string `json:"gitBinary"` // Default: "git"
}

// ParserConfig holds commit log parser settings.
type ParserConfig struct {
	Trailers []string `json:"trailers"` // Message trailers collected per commit
}

// FetchConfig holds defaults for the fetch command.
type FetchConfig struct {
	Branches []string `json:"branches"` // nil fetches every branch
	Format   string   `json:"format"`
}

// FilterConfig holds file filtering configuration.
type FilterConfig struct {
	Include []string `json:"include"` // Glob patterns for files to include
	Exclude []string `json:"exclude"` // Glob patterns for files to exclude
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Mirror: MirrorConfig{
			BasePath:  filepath.Join("~", ".githistory", "repositories"),
			SSLVerify: true,
			GitBinary: "git",
		},
		Parser: ParserConfig{
			Trailers: []string{"Signed-off-by"},
		},
		Fetch: FetchConfig{
			Format: "console",
		},
		Filters: FilterConfig{
			Include: []string{},
			Exclude: []string{},
		},
	}
}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		candidates := []string{fileName}
		if home := homeDir(); home != "" {
			candidates = append(candidates, filepath.Join(home, fileName))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home := homeDir()
	if home == "" {
		return path
	}
	return filepath.Join(home, path[1:])
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return os.Getenv("HOME")
}
