// Package credentials hashes and verifies ambassador passwords.
package credentials

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
)

// Hash returns a salted bcrypt hash. Hashing the same password twice yields
// different strings that both verify.
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost())

	return string(bytes), err
}

// Verify compares the given password with the stored hash. A malformed hash
// simply fails to verify.
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsHash reports whether s already looks like a bcrypt hash.
func IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

func cost() int {
	c := env.GetEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	if c < bcrypt.MinCost || c > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return c
}
