// Package config loads engine configuration from environment variables,
// with an optional YAML profile overlay for deployment-specific settings.
package config

import "os"

// Config holds engine configuration.
type Config struct {
	// RevocationPath is where the revocation snapshot is persisted.
	RevocationPath string
	// RegistryPath is where the policy registry snapshot is persisted.
	RegistryPath string
	// CacheEnabled toggles decision memoization.
	CacheEnabled bool
	// CIDAlgorithm selects the content-address digest ("sha256", "sha3-256").
	CIDAlgorithm string
	// CoverageMode selects chain coverage semantics ("any_link", "intersection").
	CoverageMode string
	// LogLevel is the slog level name.
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	revocationPath := os.Getenv("COVENANT_REVOCATION_PATH")
	if revocationPath == "" {
		revocationPath = "revocations.json"
	}

	registryPath := os.Getenv("COVENANT_REGISTRY_PATH")
	if registryPath == "" {
		registryPath = "policy_registry.json"
	}

	cidAlg := os.Getenv("COVENANT_CID_ALGORITHM")
	if cidAlg == "" {
		cidAlg = "sha256"
	}

	coverage := os.Getenv("COVENANT_COVERAGE_MODE")
	if coverage == "" {
		coverage = "any_link"
	}

	logLevel := os.Getenv("COVENANT_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	cacheEnabled := os.Getenv("COVENANT_CACHE_DISABLED") != "true"

	return &Config{
		RevocationPath: revocationPath,
		RegistryPath:   registryPath,
		CacheEnabled:   cacheEnabled,
		CIDAlgorithm:   cidAlg,
		CoverageMode:   coverage,
		LogLevel:       logLevel,
	}
}
