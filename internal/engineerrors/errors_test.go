package engineerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := New(KeyNotFound, "engine.Delete", "key has no mapping").WithKey("foo")
	assert.Equal(t, "engine.Delete: key has no mapping", err.Error())
	assert.Equal(t, "foo", err.Key)
}

func TestWrap_IncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Io, "storage.Append", cause, "failed to write frame")
	assert.Contains(t, err.Error(), "disk full")
	assert.ErrorIs(t, err, cause)
}

func TestIs_MatchesKind(t *testing.T) {
	err := New(Corruption, "engine.Get", "index points at mismatched frame")
	assert.True(t, Is(err, Corruption))
	assert.False(t, Is(err, KeyNotFound))
}

func TestIs_WalksWrappedChain(t *testing.T) {
	inner := New(Codec, "format.DecodeBody", "crc32 mismatch")
	outer := Wrap(Io, "engine.Get", inner, "failed to recover index from log")
	assert.True(t, Is(outer, Io))
	assert.True(t, Is(outer, Codec))
	assert.False(t, Is(outer, KeyNotFound))
}

func TestIs_NilError(t *testing.T) {
	assert.False(t, Is(nil, Io))
}

func TestIs_NonEngineError(t *testing.T) {
	assert.False(t, Is(errors.New("plain error"), Io))
}
