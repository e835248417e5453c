package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a deployment-specific configuration overlay. Zero values leave
// the corresponding Config field untouched.
type Profile struct {
	RevocationPath string `yaml:"revocation_path,omitempty"`
	RegistryPath   string `yaml:"registry_path,omitempty"`
	CIDAlgorithm   string `yaml:"cid_algorithm,omitempty"`
	CoverageMode   string `yaml:"coverage_mode,omitempty"`
	LogLevel       string `yaml:"log_level,omitempty"`
	CacheDisabled  bool   `yaml:"cache_disabled,omitempty"`
}

// LoadProfile reads a YAML profile and applies it over cfg.
func LoadProfile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse profile %s: %w", path, err)
	}

	if p.RevocationPath != "" {
		cfg.RevocationPath = p.RevocationPath
	}
	if p.RegistryPath != "" {
		cfg.RegistryPath = p.RegistryPath
	}
	if p.CIDAlgorithm != "" {
		cfg.CIDAlgorithm = p.CIDAlgorithm
	}
	if p.CoverageMode != "" {
		cfg.CoverageMode = p.CoverageMode
	}
	if p.LogLevel != "" {
		cfg.LogLevel = p.LogLevel
	}
	if p.CacheDisabled {
		cfg.CacheEnabled = false
	}
	return nil
}
