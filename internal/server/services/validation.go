package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/trainerauth/internal/common"
)

const (
	minUsernameLen = 4
	maxUsernameLen = 30
	maxEmailLen    = 254
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	letterPattern   = regexp.MustCompile(`[A-Za-z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
)

// NormalizeEmail trims and lower-cases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameProblem(username string) string {
	n := utf8.RuneCountInString(username)
	switch {
	case username == "":
		return "Username is required"
	case n < minUsernameLen:
		return "Username must be at least 4 characters"
	case n > maxUsernameLen:
		return "Username must be at most 30 characters"
	case !usernamePattern.MatchString(username):
		return "Only letters, numbers and underscores allowed"
	}
	return ""
}

func emailProblem(email string) string {
	switch {
	case email == "":
		return "Email is required"
	case len(email) > maxEmailLen:
		return "Email must be at most 254 characters"
	case !emailPattern.MatchString(email):
		return "Please provide a valid email address"
	}
	return ""
}

func passwordProblem(password string) string {
	switch {
	case password == "":
		return "Password is required"
	case utf8.RuneCountInString(password) < minPasswordLen:
		return "Password must be at least 8 characters"
	case len(password) > maxPasswordBytes:
		return "Password must be at most 72 characters"
	case !letterPattern.MatchString(password):
		return "Password must contain at least one letter"
	case !digitPattern.MatchString(password):
		return "Password must contain at least one number"
	}
	return ""
}

// check adds problem under field when it is non-empty.
func check(v *common.ValidationError, field, problem string) {
	if problem != "" {
		v.Add(field, problem)
	}
}

// ValidateRegistration reports every malformed field at once.
func ValidateRegistration(username, email, password string) error {
	v := &common.ValidationError{}
	check(v, "username", usernameProblem(username))
	check(v, "email", emailProblem(email))
	check(v, "password", passwordProblem(password))
	return v.OrNil()
}

func validateEmail(email string) error {
	v := &common.ValidationError{}
	check(v, "email", emailProblem(email))
	return v.OrNil()
}

func validateNewPassword(field, password string) error {
	v := &common.ValidationError{}
	check(v, field, passwordProblem(password))
	return v.OrNil()
}
