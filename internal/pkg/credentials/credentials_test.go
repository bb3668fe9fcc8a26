package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")

	first, err := Hash("rocket-rides")
	require.NoError(t, err)
	second, err := Hash("rocket-rides")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "salted hashes should differ")
	assert.True(t, Verify("rocket-rides", first))
	assert.True(t, Verify("rocket-rides", second))
	assert.False(t, Verify("wrong", first))
	assert.NotContains(t, first, "rocket-rides")
}

func TestVerifyMalformedHash(t *testing.T) {
	assert.False(t, Verify("secret", ""))
	assert.False(t, Verify("secret", "not-a-bcrypt-hash"))
	assert.False(t, Verify("secret", "$2a$04$short"))
}

func TestIsHash(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")
	h, err := Hash("secret")
	require.NoError(t, err)

	assert.True(t, IsHash(h))
	assert.False(t, IsHash("secret"))
}

func TestCostFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("BCRYPT_COST", "99")
	assert.Equal(t, bcrypt.DefaultCost, cost())

	t.Setenv("BCRYPT_COST", "5")
	assert.Equal(t, 5, cost())
}
