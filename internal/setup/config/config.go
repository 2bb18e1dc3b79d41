package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentVersion is the config file version this build expects.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Reputation Reputation `koanf:"reputation"`
	Ledger     Ledger     `koanf:"ledger"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	DBName       string `koanf:"db_name"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	// Connection max lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Connection max idle time in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Reputation contains score aggregation tunables. Zero values fall back to
// the engine defaults.
type Reputation struct {
	// Minimum score required to issue attestations.
	MinIssueScore int64 `koanf:"min_issue_score"`
	// Divisor scaling issuer score into the [0,1] trust factor.
	TrustDivisor float64 `koanf:"trust_divisor"`
	// Trust factor for issuers with no recorded score.
	ZeroTrustFactor float64 `koanf:"zero_trust_factor"`
	// Days an attestation contributes at full strength.
	DecayGraceDays float64 `koanf:"decay_grace_days"`
	// Days the linear decay takes after the grace period.
	DecayWindowDays float64 `koanf:"decay_window_days"`
	// Minimum decay multiplier.
	DecayFloor float64 `koanf:"decay_floor"`
	// Cached score lifetime in seconds.
	ScoreCacheTTL int `koanf:"score_cache_ttl"`
}

// Ledger contains ledger configuration.
type Ledger struct {
	// Reserved escrow account id; empty selects the built-in default.
	EscrowAccountID string `koanf:"escrow_account_id"`
}

// LoadConfig loads the configuration from the first guildpoint.toml found in
// the search paths. Returns the config and the path it was loaded from.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".guildpoint",
		homeDir + "/.guildpoint/config",
		"/etc/guildpoint/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := path + "/guildpoint.toml"
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: guildpoint.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	switch {
	case config.Version == 0:
		return nil, "", ErrConfigVersionMissing
	case config.Version != CurrentVersion:
		return nil, "", fmt.Errorf("%w: found version %d, expected %d",
			ErrConfigVersionMismatch, config.Version, CurrentVersion)
	}

	return &config, usedConfigPath, nil
}
