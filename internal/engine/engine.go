// Package engine provides the core key-value storage engine. It
// coordinates the record codec, the append-only log, and the in-memory
// key directory under a single-writer, many-readers concurrency discipline.
package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bitlogdb/bitlog/internal/compaction"
	"github.com/bitlogdb/bitlog/internal/config"
	"github.com/bitlogdb/bitlog/internal/engineerrors"
	"github.com/bitlogdb/bitlog/internal/format"
	"github.com/bitlogdb/bitlog/internal/index"
	"github.com/bitlogdb/bitlog/internal/storage"
)

// Engine is the orchestrator exposing Open/Get/Set/Delete/Close. All state
// mutation and index lookups go through mu, following concurrency strategy
// (a) of spec §5: one lock covering the index, the writer, the reader, and
// the offsets. Get takes a read lock so concurrent Gets proceed in
// parallel; Set, Delete, and compaction take a write lock and mutually
// exclude everything else.
type Engine struct {
	mu sync.RWMutex

	dir       string
	log       *storage.Log
	idx       *index.Index
	curOffset int64
	garbage   int64
	cfg       *config.Config
}

// Open opens (creating if absent) the log in dir and replays it to
// reconstruct the in-memory index. Any leftover temp_log.data from a
// compaction that crashed before its final rename is discarded, per
// spec §6. Returns an Io-kind error on any filesystem failure.
func Open(dir string, cfg *config.Config) (*Engine, error) {
	const op = "engine.Open"

	if cfg == nil {
		cfg = config.Default()
	}

	if err := discardLeftoverTempLog(dir); err != nil {
		return nil, err
	}

	log, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}

	idx, curOffset, garbage, err := recoverIndex(log)
	if err != nil {
		log.Close()
		return nil, engineerrors.Wrap(engineerrors.Io, op, err, "failed to recover index from log")
	}

	slog.Info("engine: opened",
		"dir", dir,
		"keys", idx.Len(),
		"cur_offset", curOffset,
		"garbage", garbage,
	)

	return &Engine{
		dir:       dir,
		log:       log,
		idx:       idx,
		curOffset: curOffset,
		garbage:   garbage,
		cfg:       cfg,
	}, nil
}

func discardLeftoverTempLog(dir string) error {
	path := filepath.Join(dir, compaction.TempLogFileName)
	err := os.Remove(path)
	if err == nil {
		slog.Warn("engine: discarded leftover temp log from an interrupted compaction", "path", path)
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return engineerrors.Wrap(engineerrors.Io, "engine.discardLeftoverTempLog", err, "failed to remove leftover temp log")
}

// Get returns the value mapped to key, or ok=false if key has no mapping.
// A Corruption-kind error indicates an invariant violation: the index
// pointed at a frame that is not the SET it claims to be.
func (e *Engine) Get(key string) (string, bool, error) {
	const op = "engine.Get"

	e.mu.RLock()
	defer e.mu.RUnlock()

	ptr, ok := e.idx.Get(key)
	if !ok {
		return "", false, nil
	}

	record, err := e.log.ReadFrame(ptr.Offset)
	if err != nil {
		if engineerrors.Is(err, engineerrors.Codec) {
			return "", false, engineerrors.Wrap(engineerrors.Corruption, op, err,
				"indexed frame failed to decode").WithKey(key)
		}
		return "", false, err
	}
	if !record.IsSet() || string(record.Key) != key {
		return "", false, engineerrors.New(engineerrors.Corruption, op,
			"index entry does not resolve to a matching SET frame").WithKey(key)
	}

	slog.Debug("engine: get", "key", key, "offset", ptr.Offset)
	return string(record.Value), true, nil
}

// Set encodes and appends a SET record for key/value, flushes it durably,
// and updates the index — in that order, so a crash never leaves an index
// entry ahead of durable bytes. Triggers compaction if garbage has reached
// the configured threshold.
func (e *Engine) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	record := format.NewSet(key, value)
	frame := record.EncodeFrame()
	frameSize := int64(len(frame))
	offset := e.curOffset

	if err := e.log.Append(frame); err != nil {
		return err
	}

	if prev, displaced := e.idx.Insert(key, index.LogPointer{Offset: offset, Size: frameSize}); displaced {
		e.garbage += prev.Size
	}
	e.curOffset += frameSize

	slog.Info("engine: set", "key", key, "offset", offset, "size", frameSize, "garbage", e.garbage)

	return e.maybeCompact()
}

// Delete removes key's mapping by appending a tombstone record. Fails with
// KeyNotFound and writes nothing if key has no current mapping.
func (e *Engine) Delete(key string) error {
	const op = "engine.Delete"

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.idx.Get(key)
	if !ok {
		return engineerrors.New(engineerrors.KeyNotFound, op, "key has no mapping").WithKey(key)
	}

	record := format.NewTombstone(key)
	frame := record.EncodeFrame()
	frameSize := int64(len(frame))

	if err := e.log.Append(frame); err != nil {
		return err
	}

	e.idx.Remove(key)
	e.garbage += prev.Size + frameSize
	e.curOffset += frameSize

	slog.Info("engine: delete", "key", key, "garbage", e.garbage)

	return e.maybeCompact()
}

// maybeCompact runs compaction if accumulated garbage has reached the
// configured threshold. Caller must hold mu for writing.
func (e *Engine) maybeCompact() error {
	if e.garbage < e.cfg.CompactionThreshold {
		return nil
	}

	slog.Info("engine: compaction threshold reached, compacting",
		"garbage", e.garbage, "threshold", e.cfg.CompactionThreshold)

	newLog, newIdx, newOffset, err := compaction.Run(e.dir, e.log, e.idx)
	if err != nil {
		return err
	}

	e.log = newLog
	e.idx = newIdx
	e.curOffset = newOffset
	e.garbage = 0

	slog.Info("engine: compaction complete", "keys", newIdx.Len(), "log_size", newOffset)
	return nil
}

// Close flushes and closes the log. No write is acknowledged before it is
// flushed, so there is nothing left to persist on Close beyond releasing
// the file handles.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.Close()
}

// KeyCount returns the number of live keys currently indexed. Exposed for
// tests and the benchmark harness; not part of the spec's core API.
func (e *Engine) KeyCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.Len()
}

// LogSize returns the current size of the active log file in bytes.
func (e *Engine) LogSize() (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.log.Size()
}
