package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "roster/pkg/domain-errors"
)

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	t.Run("hash verifies against the original secret", func(t *testing.T) {
		hash, err := h.Hash("30111222")
		require.NoError(t, err)
		assert.NotEqual(t, "30111222", hash)
		require.NoError(t, Verify("30111222", hash))
	})

	t.Run("hashes are salted", func(t *testing.T) {
		a, err := h.Hash("30111222")
		require.NoError(t, err)
		b, err := h.Hash("30111222")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		hash, err := h.Hash("30111222")
		require.NoError(t, err)
		err = Verify("99999999", hash)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("empty and oversized secrets are invalid input", func(t *testing.T) {
		_, err := h.Hash("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = h.Hash(strings.Repeat("x", 100))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
