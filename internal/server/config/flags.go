package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/trainerauth/internal/flagx"
)

// serverFlags lists the flags parseFlags owns.
var serverFlags = []string{"-a", "-d", "-s", "-t", "-hash", "-l", "-b", "-g", "-e", "-m"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string      HTTP bind address (e.g., ":8080")
//	-d string      PostgreSQL DSN; empty keeps the in-memory store
//	-s string      session signing secret
//	-t duration    session lifetime (e.g., "168h")
//	-hash string   password hash algorithm: bcrypt or argon2id
//	-l string      log backend: slog or zap
//	-b string      audit archive bucket
//	-g string      S3 region
//	-e string      S3 base endpoint
//	-m string      reset mail output: stderr, stdout or a file path
//
// Everything else on the command line is ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.SessionTTL, "t", config.SessionTTL, "session lifetime")
	fs.StringVar(&config.PasswordHashAlgorithm, "hash", config.PasswordHashAlgorithm, "password hash algorithm")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")
	fs.StringVar(&config.AuditArchiveBucket, "b", config.AuditArchiveBucket, "audit archive bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.ResetMailOutput, "m", config.ResetMailOutput, "reset mail output")

	return fs.Parse(args)
}
