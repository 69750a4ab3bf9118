package services

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	out := map[string]string{}
	for _, f := range ve.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidateRegistration_Valid(t *testing.T) {
	assert.NoError(t, ValidateRegistration("trainer1", "t1@example.com", "abcd1234"))
	assert.NoError(t, ValidateRegistration("ash_K", "a@b.co", "Pikachu25"))
}

func TestValidateRegistration_Messages(t *testing.T) {
	cases := []struct {
		username, email, password string
		field, msg                string
	}{
		{"", "t1@example.com", "abcd1234", "username", "Username is required"},
		{"ash", "t1@example.com", "abcd1234", "username", "Username must be at least 4 characters"},
		{strings.Repeat("a", 31), "t1@example.com", "abcd1234", "username", "Username must be at most 30 characters"},
		{"ash ketchum", "t1@example.com", "abcd1234", "username", "Only letters, numbers and underscores allowed"},
		{"trainer1", "", "abcd1234", "email", "Email is required"},
		{"trainer1", "t1@example", "abcd1234", "email", "Please provide a valid email address"},
		{"trainer1", "t1 @example.com", "abcd1234", "email", "Please provide a valid email address"},
		{"trainer1", strings.Repeat("a", 300) + "@example.com", "abcd1234", "email", "Email must be at most 254 characters"},
		{"trainer1", "t1@example.com", "", "password", "Password is required"},
		{"trainer1", "t1@example.com", "abc123", "password", "Password must be at least 8 characters"},
		{"trainer1", "t1@example.com", "12345678", "password", "Password must contain at least one letter"},
		{"trainer1", "t1@example.com", "abcdefgh", "password", "Password must contain at least one number"},
		{"trainer1", "t1@example.com", "a1" + strings.Repeat("x", 71), "password", "Password must be at most 72 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			got := fieldMessages(t, ValidateRegistration(tc.username, tc.email, tc.password))
			assert.Equal(t, tc.msg, got[tc.field])
			assert.Len(t, got, 1)
		})
	}
}

func TestValidateRegistration_CollectsAllFields(t *testing.T) {
	got := fieldMessages(t, ValidateRegistration("", "", ""))
	assert.Len(t, got, 3)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "t1@example.com", NormalizeEmail("  T1@Example.COM "))
}
