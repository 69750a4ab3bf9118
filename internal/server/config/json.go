package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/trainerauth/internal/flagx"
	"github.com/dmitrijs2005/trainerauth/internal/timex"
)

// JsonConfig is the on-disk shape of the -c/-config file. Durations use
// timex.Duration, so both "30m" and integer nanoseconds are accepted.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	HTTPAddr              string         `json:"http_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	SessionTTL            timex.Duration `json:"session_ttl"`
	PasswordHashAlgorithm string         `json:"password_hash_algorithm"`
	BcryptCost            int            `json:"bcrypt_cost"`
	LockoutThreshold      int            `json:"lockout_threshold"`
	LockoutDuration       timex.Duration `json:"lockout_duration"`
	ResetTokenTTL         timex.Duration `json:"reset_token_ttl"`
	ResetURLBase          string         `json:"reset_url_base"`
	ResetMailOutput       string         `json:"reset_mail_output"`
	AuthRateLimit         int            `json:"auth_rate_limit"`
	AuthRateWindow        timex.Duration `json:"auth_rate_window"`
	GeneralRateLimit      int            `json:"general_rate_limit"`
	GeneralRateWindow     timex.Duration `json:"general_rate_window"`
	LogFormat             string         `json:"log_format"`
	AuditArchiveBucket    string         `json:"audit_archive_bucket"`
	S3Region              string         `json:"s3_region"`
	S3AccessKey           string         `json:"s3_access_key"`
	S3SecretKey           string         `json:"s3_secret_key"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the JSON file named by -c or -config.
// Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	overlayString(&config.HTTPAddr, c.HTTPAddr)
	overlayString(&config.DatabaseDSN, c.DatabaseDSN)
	overlayString(&config.SecretKey, c.SecretKey)
	overlayDuration(&config.SessionTTL, c.SessionTTL.Duration)
	overlayString(&config.PasswordHashAlgorithm, c.PasswordHashAlgorithm)
	overlayInt(&config.BcryptCost, c.BcryptCost)
	overlayInt(&config.LockoutThreshold, c.LockoutThreshold)
	overlayDuration(&config.LockoutDuration, c.LockoutDuration.Duration)
	overlayDuration(&config.ResetTokenTTL, c.ResetTokenTTL.Duration)
	overlayString(&config.ResetURLBase, c.ResetURLBase)
	overlayString(&config.ResetMailOutput, c.ResetMailOutput)
	overlayInt(&config.AuthRateLimit, c.AuthRateLimit)
	overlayDuration(&config.AuthRateWindow, c.AuthRateWindow.Duration)
	overlayInt(&config.GeneralRateLimit, c.GeneralRateLimit)
	overlayDuration(&config.GeneralRateWindow, c.GeneralRateWindow.Duration)
	overlayString(&config.LogFormat, c.LogFormat)
	overlayString(&config.AuditArchiveBucket, c.AuditArchiveBucket)
	overlayString(&config.S3Region, c.S3Region)
	overlayString(&config.S3AccessKey, c.S3AccessKey)
	overlayString(&config.S3SecretKey, c.S3SecretKey)
	overlayString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	return nil
}
