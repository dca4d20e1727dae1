package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeConflict, "email taken")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("upsert: %w", New(CodeConfiguration, "no sources"))
		assert.True(t, Is(err, CodeConfiguration))
	})

	t.Run("matches inner code of nested domain errors", func(t *testing.T) {
		inner := New(CodeNotFound, "missing")
		outer := Wrap(inner, CodeInternal, "load failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotFound))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")

	err := Wrap(cause, CodeUnavailable, "feed down")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "feed down: connection reset", err.Error())
	assert.Equal(t, CodeUnavailable, CodeOf(err))

	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}
