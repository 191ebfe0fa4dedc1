// Package storage provides unit tests for the append-only log file.
package storage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitlogdb/bitlog/internal/format"
)

func TestOpen_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	log, err := Open(dir)
	require.NoError(t, err)
	defer log.Close()

	size, err := log.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestAppendAndReadFrame(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	defer log.Close()

	record := format.NewSet("key", "value")
	frame := record.EncodeFrame()

	require.NoError(t, log.Append(frame))

	got, err := log.ReadFrame(0)
	require.NoError(t, err)
	assert.True(t, got.IsSet())
	assert.Equal(t, "key", string(got.Key))
	assert.Equal(t, "value", string(got.Value))
}

func TestAppend_MultipleFrames(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	defer log.Close()

	records := []*format.Record{
		format.NewSet("key1", "value1"),
		format.NewSet("key2", "value2"),
		format.NewTombstone("key1"),
	}

	var offsets []int64
	var offset int64
	for _, r := range records {
		offsets = append(offsets, offset)
		frame := r.EncodeFrame()
		require.NoError(t, log.Append(frame))
		offset += int64(len(frame))
	}

	for i, r := range records {
		got, frameSize, err := log.ReadFrameAndSize(offsets[i])
		require.NoError(t, err)
		assert.Equal(t, r.Flag, got.Flag)
		assert.Equal(t, string(r.Key), string(got.Key))
		assert.Equal(t, r.FrameSize(), frameSize)
	}
}

func TestReadFrameAndSize_EOFAtEndOfLog(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	defer log.Close()

	_, _, err = log.ReadFrameAndSize(0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameAndSize_ShortTailFrame(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	defer log.Close()

	frame := format.NewSet("key", "value").EncodeFrame()
	require.NoError(t, log.Append(frame[:len(frame)-3]))

	_, _, err = log.ReadFrameAndSize(0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestTruncate(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	defer log.Close()

	good := format.NewSet("key", "value").EncodeFrame()
	require.NoError(t, log.Append(good))

	bad := format.NewSet("key2", "value2").EncodeFrame()
	require.NoError(t, log.Append(bad[:len(bad)-2]))

	require.NoError(t, log.Truncate(int64(len(good))))

	size, err := log.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(good)), size)

	_, _, err = log.ReadFrameAndSize(int64(len(good)))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderUnaffectedByAppendPosition(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	defer log.Close()

	first := format.NewSet("key1", "value1")
	firstFrame := first.EncodeFrame()
	require.NoError(t, log.Append(firstFrame))

	got, err := log.ReadFrame(0)
	require.NoError(t, err)
	assert.Equal(t, "value1", string(got.Value))

	second := format.NewSet("key2", "value2")
	require.NoError(t, log.Append(second.EncodeFrame()))

	// Re-reading the first frame must still work after a subsequent append.
	got, err = log.ReadFrame(0)
	require.NoError(t, err)
	assert.Equal(t, "value1", string(got.Value))
}

func TestClose(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, log.Append(format.NewSet("key", "value").EncodeFrame()))
	assert.NoError(t, log.Close())
}
