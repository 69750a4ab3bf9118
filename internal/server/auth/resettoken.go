package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/trainerauth/internal/common"
)

const resetTokenBytes = 32

// NewResetToken returns a fresh reset token and the digest to persist.
// The plaintext must only ever be handed to the delivery channel.
func NewResetToken() (plain, hash string, err error) {
	plain, err = common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return "", "", err
	}
	return plain, HashResetToken(plain), nil
}

// HashResetToken is the one-way digest stored for a reset token.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
