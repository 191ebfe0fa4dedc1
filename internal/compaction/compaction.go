// Package compaction implements the invariant-preserving, atomic rewrite
// of the active log: exactly one SET frame per live key, then an atomic
// file swap into place.
package compaction

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bitlogdb/bitlog/internal/engineerrors"
	"github.com/bitlogdb/bitlog/internal/format"
	"github.com/bitlogdb/bitlog/internal/index"
	"github.com/bitlogdb/bitlog/internal/storage"
)

// TempLogFileName is the sibling file compaction writes to before the
// atomic rename. Present only transiently; a leftover copy at startup
// means a previous compaction crashed before its rename and is discarded.
const TempLogFileName = "temp_log.data"

// Run rewrites dir's active log to contain exactly one fresh SET frame per
// key in idx, fsyncs it, and atomically renames it over the active log.
// It returns a freshly opened Log and an Index with offsets rebased against
// the new file, plus the new file's size (the engine's next cur_offset).
// idx is read but never mutated.
//
// On any failure before the rename, the old log is untouched and the
// partial temp file is removed; the caller's existing log and index remain
// valid. A failure during or after the rename that leaves the engine
// without a usable log is returned as an Io-kind error — the caller should
// treat the engine as unusable and direct the operator to reopen the store
// (triggering a fresh replay).
func Run(dir string, oldLog *storage.Log, idx *index.Index) (*storage.Log, *index.Index, int64, error) {
	const op = "compaction.Run"

	tmpPath := filepath.Join(dir, TempLogFileName)
	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, 0, engineerrors.Wrap(engineerrors.Io, op, err, "failed to create temp log")
	}

	newIdx := index.New()
	var offset int64

	var rewriteErr error
	idx.Each(func(key string, ptr index.LogPointer) bool {
		record, err := oldLog.ReadFrame(ptr.Offset)
		if err != nil {
			rewriteErr = err
			return false
		}
		if !record.IsSet() || string(record.Key) != key {
			rewriteErr = engineerrors.New(engineerrors.Corruption, op,
				"index entry does not resolve to a matching SET frame during compaction").WithKey(key)
			return false
		}

		fresh := format.NewSet(key, string(record.Value))
		frame := fresh.EncodeFrame()
		if _, err := tmpFile.Write(frame); err != nil {
			rewriteErr = engineerrors.Wrap(engineerrors.Io, op, err, "failed to write frame to temp log")
			return false
		}

		newIdx.Insert(key, index.LogPointer{Offset: offset, Size: int64(len(frame))})
		offset += int64(len(frame))
		return true
	})

	if rewriteErr != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, nil, 0, rewriteErr
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, nil, 0, engineerrors.Wrap(engineerrors.Io, op, err, "failed to fsync temp log")
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, nil, 0, engineerrors.Wrap(engineerrors.Io, op, err, "failed to close temp log")
	}

	// Close the old log's handles before the swap: on platforms where an
	// open writer keeps writing to an unlinked inode, closing first avoids
	// straggler writes landing nowhere useful.
	if err := oldLog.Close(); err != nil {
		slog.Error("compaction: failed to close old log before swap", "error", err)
	}

	finalPath := filepath.Join(dir, storage.LogFileName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, nil, 0, engineerrors.Wrap(engineerrors.Io, op, err,
			"failed to atomically rename temp log into place")
	}

	newLog, err := storage.Open(dir)
	if err != nil {
		return nil, nil, 0, engineerrors.Wrap(engineerrors.Io, op, err,
			"rename succeeded but reopening the new log failed; reopen the store to recover via replay")
	}

	slog.Info("compaction: rewrote log", "dir", dir, "keys", newIdx.Len(), "bytes", offset)

	return newLog, newIdx, offset, nil
}
