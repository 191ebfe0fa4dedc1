package engine

import (
	"errors"
	"io"
	"log/slog"

	"github.com/bitlogdb/bitlog/internal/engineerrors"
	"github.com/bitlogdb/bitlog/internal/format"
	"github.com/bitlogdb/bitlog/internal/index"
	"github.com/bitlogdb/bitlog/internal/storage"
)

// recoverIndex scans log from offset zero, rebuilding the index and
// accounting for reclaimable bytes exactly as spec §4.4 describes. A
// short or corrupt frame at the tail is treated as the end of the valid
// log: the implementation truncates the log to the last good frame
// boundary (spec's recommended policy) rather than refusing to open. A
// genuine I/O failure (not an end-of-log condition) is returned as-is.
//
// io.EOF only ever means "nothing more was written past this offset" —
// storage.Log.ReadFrameAndSize never returns io.EOF for a prefix that was
// written but whose body is short or missing, even though io.ReadFull would
// naturally report that as io.EOF too; it is translated to
// io.ErrUnexpectedEOF so a torn write can't be mistaken for a clean boundary.
func recoverIndex(log *storage.Log) (*index.Index, int64, int64, error) {
	idx := index.New()
	var offset int64
	var garbage int64

	for {
		record, frameSize, err := log.ReadFrameAndSize(offset)
		if err == nil {
			applyRecoveredRecord(idx, record, offset, frameSize, &garbage)
			offset += frameSize
			continue
		}

		if errors.Is(err, io.EOF) {
			// Clean end of log: offset already sits at a frame boundary.
			break
		}

		if !errors.Is(err, io.ErrUnexpectedEOF) && !engineerrors.Is(err, engineerrors.Codec) {
			return nil, 0, 0, err
		}

		// io.ErrUnexpectedEOF (short tail frame) or a Codec error both mean
		// the log was truncated mid-write or corrupted at the tail.
		// Truncate to the last good boundary and stop scanning.
		slog.Warn("engine: corrupt or incomplete frame at tail, truncating log",
			"offset", offset, "error", err)
		if truncErr := log.Truncate(offset); truncErr != nil {
			return nil, 0, 0, truncErr
		}
		break
	}

	return idx, offset, garbage, nil
}

func applyRecoveredRecord(idx *index.Index, record *format.Record, offset, frameSize int64, garbage *int64) {
	key := string(record.Key)

	if record.IsSet() {
		if prev, displaced := idx.Insert(key, index.LogPointer{Offset: offset, Size: frameSize}); displaced {
			*garbage += prev.Size
		}
		return
	}

	// Tombstone.
	if prev, ok := idx.Remove(key); ok {
		*garbage += prev.Size + frameSize
	} else {
		*garbage += frameSize
	}
}
