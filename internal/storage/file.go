// Package storage provides the append-only log file abstraction: two
// independent cursors over one file on disk, a buffered writer for appends
// and a seekable reader for point reads, so that a read never disturbs the
// append position.
package storage

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bitlogdb/bitlog/internal/engineerrors"
	"github.com/bitlogdb/bitlog/internal/format"
)

// LogFileName is the default name of the active log within a store directory.
const LogFileName = "log.data"

// Log is a buffered writer and an independent seekable reader over the same
// on-disk file. Writes go only through the writer; reads go only through
// the reader. Appends must be serialized by the caller (see internal/engine);
// reads are serialized by the Log's own mutex, which guards the reader.
type Log struct {
	path string

	writerFile *os.File
	writer     *bufio.Writer

	readerFile *os.File
	reader     *bufio.Reader

	mu sync.Mutex // guards reader's seek position; writer needs no lock of its own
}

// Open opens (creating if absent) the log file at dir/LogFileName and
// returns a Log ready for appends and reads.
func Open(dir string) (*Log, error) {
	const op = "storage.Open"
	path := filepath.Join(dir, LogFileName)

	wf, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.Io, op, err, "failed to open log for append")
	}

	rf, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		wf.Close()
		return nil, engineerrors.Wrap(engineerrors.Io, op, err, "failed to open log for read")
	}

	slog.Debug("storage: log opened", "path", path)

	return &Log{
		path:       path,
		writerFile: wf,
		writer:     bufio.NewWriter(wf),
		readerFile: rf,
		reader:     bufio.NewReader(rf),
	}, nil
}

// Size returns the current length of the log file on disk, not counting
// any bytes still sitting in the writer's buffer.
func (l *Log) Size() (int64, error) {
	stat, err := l.writerFile.Stat()
	if err != nil {
		return 0, engineerrors.Wrap(engineerrors.Io, "storage.Size", err, "failed to stat log file")
	}
	return stat.Size(), nil
}

// Append writes frame to the log and flushes it into the OS page cache
// before returning, so a future replay sees it even if the process dies
// immediately after. Does not call fsync.
func (l *Log) Append(frame []byte) error {
	const op = "storage.Append"

	n, err := l.writer.Write(frame)
	if err != nil {
		return engineerrors.Wrap(engineerrors.Io, op, err, "failed to write frame")
	}
	if n != len(frame) {
		return engineerrors.New(engineerrors.Io, op, "short write")
	}

	if err := l.writer.Flush(); err != nil {
		return engineerrors.Wrap(engineerrors.Io, op, err, "failed to flush frame to page cache")
	}
	return nil
}

// ReadFrame seeks the reader to offset, reads one frame's length prefix and
// body, and decodes it into a Record.
func (l *Log) ReadFrame(offset int64) (*format.Record, error) {
	const op = "storage.ReadFrame"

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.readerFile.Seek(offset, io.SeekStart); err != nil {
		return nil, engineerrors.Wrap(engineerrors.Io, op, err, "failed to seek reader")
	}
	l.reader.Reset(l.readerFile)

	prefix := make([]byte, format.LengthPrefixSize)
	if _, err := io.ReadFull(l.reader, prefix); err != nil {
		return nil, engineerrors.Wrap(engineerrors.Io, op, err, "failed to read length prefix")
	}

	bodyLen, err := format.DecodeLengthPrefix(prefix)
	if err != nil {
		return nil, err
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(l.reader, body); err != nil {
		return nil, engineerrors.Wrap(engineerrors.Io, op, err, "failed to read frame body")
	}

	record, err := format.DecodeBody(body)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ReadFrameAndSize behaves like ReadFrame but also returns the total frame
// size (length prefix + body), used by the replayer and compactor for
// garbage and offset accounting.
func (l *Log) ReadFrameAndSize(offset int64) (*format.Record, int64, error) {
	const op = "storage.ReadFrameAndSize"

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.readerFile.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, engineerrors.Wrap(engineerrors.Io, op, err, "failed to seek reader")
	}
	l.reader.Reset(l.readerFile)

	prefix := make([]byte, format.LengthPrefixSize)
	if _, err := io.ReadFull(l.reader, prefix); err != nil {
		return nil, 0, err // surfaced as-is, io.EOF included, so callers can detect end-of-log
	}

	bodyLen, err := format.DecodeLengthPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(l.reader, body); err != nil {
		// A prefix with no body at all reads back as io.EOF here, same as a
		// clean end-of-log would on the prefix read above. It isn't one: the
		// 8-byte prefix is already committed to disk, so this offset is a
		// torn write, not a frame boundary. Report it as ErrUnexpectedEOF so
		// the caller always truncates rather than treating it as EOF.
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, 0, err // short read at tail: caller truncates
	}

	record, err := format.DecodeBody(body)
	if err != nil {
		return nil, 0, err
	}

	frameSize := int64(format.LengthPrefixSize) + int64(bodyLen)
	return record, frameSize, nil
}

// Truncate shrinks the log file to size bytes, discarding a corrupted tail.
// The writer and reader are repositioned accordingly.
func (l *Log) Truncate(size int64) error {
	const op = "storage.Truncate"

	if err := l.writer.Flush(); err != nil {
		return engineerrors.Wrap(engineerrors.Io, op, err, "failed to flush before truncate")
	}
	if err := l.writerFile.Truncate(size); err != nil {
		return engineerrors.Wrap(engineerrors.Io, op, err, "failed to truncate log file")
	}
	if _, err := l.writerFile.Seek(size, io.SeekStart); err != nil {
		return engineerrors.Wrap(engineerrors.Io, op, err, "failed to reposition writer after truncate")
	}
	l.writer.Reset(l.writerFile)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.reader.Reset(l.readerFile)

	slog.Warn("storage: truncated log to last good frame boundary", "size", size)
	return nil
}

// Close flushes any buffered writes and closes both file handles.
func (l *Log) Close() error {
	const op = "storage.Close"

	if err := l.writer.Flush(); err != nil {
		slog.Error("storage: failed to flush writer on close", "error", err)
	}
	if err := l.writerFile.Close(); err != nil {
		return engineerrors.Wrap(engineerrors.Io, op, err, "failed to close writer file")
	}
	if err := l.readerFile.Close(); err != nil {
		return engineerrors.Wrap(engineerrors.Io, op, err, "failed to close reader file")
	}
	return nil
}

// Path returns the path of the underlying log file.
func (l *Log) Path() string {
	return l.path
}
