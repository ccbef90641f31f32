package fserr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(None, KindOf(nil))
	assert.Equal(FileOpen, KindOf(New("open", FileOpen)))
	wrapped := fmt.Errorf("outer: %w", New("create", OutOfSpace))
	assert.Equal(OutOfSpace, KindOf(wrapped))
	assert.Equal(IOError, KindOf(errors.New("something else")))
}

func TestIs(t *testing.T) {
	err := New("delete", FileNotFound)
	assert.True(t, errors.Is(err, FileNotFound))
	assert.False(t, errors.Is(err, FileOpen))
}

func TestIOUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := IO("write", cause)
	assert.Equal(t, IOError, KindOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestDescribe(t *testing.T) {
	for k := None; k <= IOError; k++ {
		assert.NotEqual(t, "unknown error", Describe(k), "kind %v", k)
	}
	assert.Equal(t, "unknown error", Describe(Kind(99)))
	assert.Equal(t, "EXCEEDS_MAX_FILE_SIZE", ExceedsMaxFileSize.String())
}
