// Package format provides unit tests for record encoding and decoding.
package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitlogdb/bitlog/internal/engineerrors"
)

func TestNewSetAndNewTombstone(t *testing.T) {
	set := NewSet("key", "value")
	assert.True(t, set.IsSet())
	assert.Equal(t, uint32(3), set.Keysize)
	assert.Equal(t, uint32(5), set.Valuesize)

	tombstone := NewTombstone("key")
	assert.False(t, tombstone.IsSet())
	assert.Equal(t, uint32(3), tombstone.Keysize)
	assert.Equal(t, uint32(0), tombstone.Valuesize)
	assert.Nil(t, tombstone.Value)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		record *Record
	}{
		{name: "set record", record: NewSet("key", "value")},
		{name: "tombstone record", record: NewTombstone("key")},
		{name: "empty key", record: NewSet("", "value")},
		{name: "empty value", record: NewSet("key", "")},
		{name: "large value", record: NewSet("key", string(make([]byte, 4096)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := tt.record.EncodeFrame()
			require.Len(t, frame, int(tt.record.FrameSize()))

			bodyLen, err := DecodeLengthPrefix(frame[:LengthPrefixSize])
			require.NoError(t, err)

			decoded, err := DecodeBody(frame[LengthPrefixSize : LengthPrefixSize+int64(bodyLen)])
			require.NoError(t, err)

			assert.Equal(t, tt.record.Flag, decoded.Flag)
			assert.Equal(t, tt.record.Keysize, decoded.Keysize)
			assert.Equal(t, tt.record.Valuesize, decoded.Valuesize)
			assert.Equal(t, string(tt.record.Key), string(decoded.Key))
			assert.Equal(t, string(tt.record.Value), string(decoded.Value))
		})
	}
}

func TestEncodeFrame_Deterministic(t *testing.T) {
	record := NewSet("key", "value")
	first := record.EncodeFrame()
	second := record.EncodeFrame()
	assert.Equal(t, first, second, "encoding the same record twice must produce identical bytes")
}

func TestDecodeBody_ShortBody(t *testing.T) {
	_, err := DecodeBody([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, engineerrors.Is(err, engineerrors.Codec))
}

func TestDecodeBody_TruncatedPayload(t *testing.T) {
	frame := NewSet("key", "value").EncodeFrame()
	body := frame[LengthPrefixSize:]

	_, err := DecodeBody(body[:len(body)-2])
	require.Error(t, err)
	assert.True(t, engineerrors.Is(err, engineerrors.Codec))
}

func TestDecodeBody_CRCMismatch(t *testing.T) {
	frame := NewSet("key", "value").EncodeFrame()
	body := frame[LengthPrefixSize:]
	body[4] ^= 0xFF // flip the flag byte, crc stays stale

	_, err := DecodeBody(body)
	require.Error(t, err)
	assert.True(t, engineerrors.Is(err, engineerrors.Codec))
}

func TestDecodeLengthPrefix_WrongSize(t *testing.T) {
	_, err := DecodeLengthPrefix([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, engineerrors.Is(err, engineerrors.Codec))
}
