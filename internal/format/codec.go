// Package format provides encoding and decoding functionality for log
// records. Records are stored in a binary format with CRC checksums for
// data integrity.
package format

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/bitlogdb/bitlog/internal/engineerrors"
)

// Record flag constants identify the record's variant.
const (
	FlagSet       uint8 = 0 // SET{key, value}: key now maps to value
	FlagTombstone uint8 = 1 // RM{key}: key has no mapping
)

// LengthPrefixSize is the fixed width of a frame's length prefix, in bytes.
// 8 bytes per spec, so very large values never overflow the prefix.
const LengthPrefixSize = 8

// bodyHeaderSize is the fixed portion of a record body, before the key and
// value bytes: CRC32(4) + Flag(1) + Keysize(4) + Valuesize(4).
const bodyHeaderSize = 4 + 1 + 4 + 4

// Record is a tagged union of SET{key,value} and RM{key}. RM records carry
// a nil Value and a zero Valuesize.
type Record struct {
	Flag      uint8
	Keysize   uint32
	Valuesize uint32
	Key       []byte
	Value     []byte
}

// NewSet builds a SET record for key/value.
func NewSet(key, value string) *Record {
	return &Record{
		Flag:      FlagSet,
		Keysize:   uint32(len(key)),
		Valuesize: uint32(len(value)),
		Key:       []byte(key),
		Value:     []byte(value),
	}
}

// NewTombstone builds an RM record for key.
func NewTombstone(key string) *Record {
	return &Record{
		Flag:    FlagTombstone,
		Keysize: uint32(len(key)),
		Key:     []byte(key),
	}
}

// IsSet reports whether r is a SET record.
func (r *Record) IsSet() bool { return r.Flag == FlagSet }

// FrameSize returns the total on-disk size of r once encoded as a frame:
// the length prefix plus the body.
func (r *Record) FrameSize() int64 {
	return LengthPrefixSize + int64(bodyHeaderSize) + int64(len(r.Key)) + int64(len(r.Value))
}

// EncodeFrame serializes r into a length-prefixed frame: deterministic, so
// the same record always produces the same bytes (required for compaction
// to be byte-stable).
func (r *Record) EncodeFrame() []byte {
	bodyLen := bodyHeaderSize + len(r.Key) + len(r.Value)
	frame := make([]byte, LengthPrefixSize+bodyLen)

	binary.LittleEndian.PutUint64(frame[0:8], uint64(bodyLen))

	body := frame[LengthPrefixSize:]
	body[4] = r.Flag
	binary.LittleEndian.PutUint32(body[5:9], r.Keysize)
	binary.LittleEndian.PutUint32(body[9:13], r.Valuesize)
	copy(body[bodyHeaderSize:bodyHeaderSize+len(r.Key)], r.Key)
	copy(body[bodyHeaderSize+len(r.Key):], r.Value)

	crc := crc32.ChecksumIEEE(body[4:])
	binary.LittleEndian.PutUint32(body[0:4], crc)

	return frame
}

// DecodeBody deserializes a record body (the bytes following the length
// prefix) into a Record, verifying its CRC32. Returns a Codec-kind error on
// malformed or corrupted input.
func DecodeBody(body []byte) (*Record, error) {
	const op = "format.DecodeBody"

	if len(body) < bodyHeaderSize {
		return nil, engineerrors.New(engineerrors.Codec, op,
			"body shorter than fixed header")
	}

	crc := binary.LittleEndian.Uint32(body[0:4])
	flag := body[4]
	keysize := binary.LittleEndian.Uint32(body[5:9])
	valuesize := binary.LittleEndian.Uint32(body[9:13])

	expectedLen := bodyHeaderSize + int(keysize) + int(valuesize)
	if len(body) < expectedLen {
		return nil, engineerrors.New(engineerrors.Codec, op,
			"body shorter than keysize+valuesize declares")
	}

	calculated := crc32.ChecksumIEEE(body[4:])
	if calculated != crc {
		return nil, engineerrors.New(engineerrors.Codec, op,
			"crc32 mismatch, body is corrupted")
	}

	key := make([]byte, keysize)
	copy(key, body[bodyHeaderSize:bodyHeaderSize+int(keysize)])

	var value []byte
	if valuesize > 0 {
		value = make([]byte, valuesize)
		copy(value, body[bodyHeaderSize+int(keysize):expectedLen])
	}

	return &Record{
		Flag:      flag,
		Keysize:   keysize,
		Valuesize: valuesize,
		Key:       key,
		Value:     value,
	}, nil
}

// DecodeLengthPrefix reads the body length encoded in an 8-byte little
// endian length prefix.
func DecodeLengthPrefix(prefix []byte) (uint64, error) {
	if len(prefix) != LengthPrefixSize {
		return 0, engineerrors.New(engineerrors.Codec, "format.DecodeLengthPrefix",
			"length prefix must be exactly 8 bytes")
	}
	return binary.LittleEndian.Uint64(prefix), nil
}
