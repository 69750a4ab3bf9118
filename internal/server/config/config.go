// Package config handles configuration for the auth server, including
// defaults, dotenv and environment overlays, a JSON file and command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the auth server.
//
// An empty DatabaseDSN selects the in-memory store. An empty
// AuditArchiveBucket disables the audit archive export.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	SecretKey   string
	SessionTTL  time.Duration

	PasswordHashAlgorithm string
	BcryptCost            int

	LockoutThreshold int
	LockoutDuration  time.Duration

	ResetTokenTTL time.Duration
	ResetURLBase  string
	// ResetMailOutput is "stderr", "stdout" or a file path.
	ResetMailOutput string

	AuthRateLimit     int
	AuthRateWindow    time.Duration
	GeneralRateLimit  int
	GeneralRateWindow time.Duration

	LogFormat string

	AuditArchiveBucket string
	S3Region           string
	S3AccessKey        string
	S3SecretKey        string
	S3BaseEndpoint     string
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey is left empty on purpose and must be supplied.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDSN = ""
	c.SessionTTL = 7 * 24 * time.Hour
	c.PasswordHashAlgorithm = "bcrypt"
	c.BcryptCost = 12
	c.LockoutThreshold = 5
	c.LockoutDuration = 30 * time.Minute
	c.ResetTokenTTL = time.Hour
	c.ResetURLBase = "http://localhost:3000/reset-password"
	c.ResetMailOutput = "stderr"
	c.AuthRateLimit = 5
	c.AuthRateWindow = 15 * time.Minute
	c.GeneralRateLimit = 100
	c.GeneralRateWindow = time.Minute
	c.LogFormat = "slog"
	c.S3Region = "us-east-1"
}

// LoadConfig is Load followed by Validate.
func LoadConfig(args []string) (*Config, error) {
	cfg, err := Load(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load builds a Config by applying defaults, then overlaying a dotenv file,
// AUTH_* environment variables, an optional JSON file and finally
// command-line flags. args excludes the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, args); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

// FlagNames lists every flag the loader consumes, so tools sharing the
// command line can strip them.
func FlagNames() []string {
	return append([]string{"-c", "-config", "-env"}, serverFlags...)
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	switch c.PasswordHashAlgorithm {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("unknown password hash algorithm %q", c.PasswordHashAlgorithm))
	}
	if c.LockoutThreshold <= 0 || c.LockoutDuration <= 0 {
		errs = append(errs, errors.New("lockout threshold and duration must be positive"))
	}
	if c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("reset token ttl must be positive"))
	}
	if c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("auth rate limit and window must be positive"))
	}
	if c.GeneralRateLimit <= 0 || c.GeneralRateWindow <= 0 {
		errs = append(errs, errors.New("general rate limit and window must be positive"))
	}

	return errors.Join(errs...)
}
