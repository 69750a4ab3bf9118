package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/trainerauth/internal/flagx"
)

// EnvConfig mirrors Config for decoding AUTH_* environment variables.
// Unset variables leave the zero value, which is not copied over.
type EnvConfig struct {
	HTTPAddr              string        `env:"AUTH_HTTP_ADDR"`
	DatabaseDSN           string        `env:"AUTH_DATABASE_DSN"`
	SecretKey             string        `env:"AUTH_SECRET_KEY"`
	SessionTTL            time.Duration `env:"AUTH_SESSION_TTL"`
	PasswordHashAlgorithm string        `env:"AUTH_PASSWORD_HASH"`
	BcryptCost            int           `env:"AUTH_BCRYPT_COST"`
	LockoutThreshold      int           `env:"AUTH_LOCKOUT_THRESHOLD"`
	LockoutDuration       time.Duration `env:"AUTH_LOCKOUT_DURATION"`
	ResetTokenTTL         time.Duration `env:"AUTH_RESET_TOKEN_TTL"`
	ResetURLBase          string        `env:"AUTH_RESET_URL_BASE"`
	ResetMailOutput       string        `env:"AUTH_RESET_MAIL_OUTPUT"`
	AuthRateLimit         int           `env:"AUTH_RATE_LIMIT"`
	AuthRateWindow        time.Duration `env:"AUTH_RATE_WINDOW"`
	GeneralRateLimit      int           `env:"AUTH_GENERAL_RATE_LIMIT"`
	GeneralRateWindow     time.Duration `env:"AUTH_GENERAL_RATE_WINDOW"`
	LogFormat             string        `env:"AUTH_LOG_FORMAT"`
	AuditArchiveBucket    string        `env:"AUTH_AUDIT_ARCHIVE_BUCKET"`
	S3Region              string        `env:"AUTH_S3_REGION"`
	S3AccessKey           string        `env:"AUTH_S3_ACCESS_KEY"`
	S3SecretKey           string        `env:"AUTH_S3_SECRET_KEY"`
	S3BaseEndpoint        string        `env:"AUTH_S3_BASE_ENDPOINT"`
}

// parseEnv loads the dotenv file named by -env (or ./.env when present) and
// then overlays AUTH_* variables from the process environment. Variables
// already set in the environment win over the dotenv file.
func parseEnv(config *Config, args []string) error {
	if path := flagx.EnvFileFlag(args); path != "" {
		if err := godotenv.Load(path); err != nil {
			return err
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var e EnvConfig
	if err := envdecode.Decode(&e); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return err
	}

	overlayString(&config.HTTPAddr, e.HTTPAddr)
	overlayString(&config.DatabaseDSN, e.DatabaseDSN)
	overlayString(&config.SecretKey, e.SecretKey)
	overlayDuration(&config.SessionTTL, e.SessionTTL)
	overlayString(&config.PasswordHashAlgorithm, e.PasswordHashAlgorithm)
	overlayInt(&config.BcryptCost, e.BcryptCost)
	overlayInt(&config.LockoutThreshold, e.LockoutThreshold)
	overlayDuration(&config.LockoutDuration, e.LockoutDuration)
	overlayDuration(&config.ResetTokenTTL, e.ResetTokenTTL)
	overlayString(&config.ResetURLBase, e.ResetURLBase)
	overlayString(&config.ResetMailOutput, e.ResetMailOutput)
	overlayInt(&config.AuthRateLimit, e.AuthRateLimit)
	overlayDuration(&config.AuthRateWindow, e.AuthRateWindow)
	overlayInt(&config.GeneralRateLimit, e.GeneralRateLimit)
	overlayDuration(&config.GeneralRateWindow, e.GeneralRateWindow)
	overlayString(&config.LogFormat, e.LogFormat)
	overlayString(&config.AuditArchiveBucket, e.AuditArchiveBucket)
	overlayString(&config.S3Region, e.S3Region)
	overlayString(&config.S3AccessKey, e.S3AccessKey)
	overlayString(&config.S3SecretKey, e.S3SecretKey)
	overlayString(&config.S3BaseEndpoint, e.S3BaseEndpoint)

	return nil
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
