// Copyright 2025 Takhin Data, Inc.

package partitionlog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
	"github.com/takhin-data/takhin/pkg/ppsm"
	"github.com/takhin-data/takhin/pkg/snapshotbuffer"
	"github.com/takhin-data/takhin/pkg/storage/log"
)

// recoverProducerState rebuilds a partition's producer state: load the most
// recent snapshot if it is still usable (same topic incarnation, still
// within the log's retained range), then replay every batch after the
// snapshot's offset (or from the oldest retained offset, absent a usable
// snapshot) through the log's high watermark.
func recoverProducerState(ctx context.Context, store *log.Log, snapBuf *snapshotbuffer.Buffer, topicUUID string, partition int32, logger *zap.Logger) (*ppsm.Manager, int64, error) {
	hwm := store.HighWaterMark()

	oldestAvailable := int64(0)
	if segments := store.GetSegments(); len(segments) > 0 {
		oldestAvailable = segments[0].BaseOffset
	}

	mgr := ppsm.New(topicUUID, partition)
	replayFrom := oldestAvailable

	if snapBuf != nil {
		snap, ok, err := snapBuf.ReadLatestSnapshot(topicUUID, partition)
		if err != nil {
			logger.Warn("failed to read producer state snapshot, falling back to full replay",
				zap.String("topic_uuid", topicUUID), zap.Int32("partition", partition), zap.Error(err))
		} else if ok {
			if snap.TopicUUID != topicUUID || snap.Partition != partition {
				logger.Warn("snapshot belongs to a different topic incarnation, discarding",
					zap.String("topic_uuid", topicUUID), zap.Int32("partition", partition))
			} else if snap.Offset+1 < oldestAvailable || snap.Offset >= hwm {
				// The snapshot's resume point has been trimmed away by
				// retention, or points past the current log: it cannot be
				// trusted, so fall back to a replay from the oldest
				// available offset instead.
				logger.Warn("snapshot offset outside retained log range, discarding",
					zap.String("topic_uuid", topicUUID), zap.Int32("partition", partition),
					zap.Int64("snapshot_offset", snap.Offset), zap.Int64("oldest_available", oldestAvailable), zap.Int64("hwm", hwm))
			} else {
				mgr.LoadFromSnapshot(snap)
				replayFrom = snap.Offset + 1
			}
		}
	}

	for offset := replayFrom; offset < hwm; offset++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		record, err := store.Read(offset)
		if err != nil {
			// A gap here means the backing log compacted/trimmed this
			// offset out from under replay; skip it rather than fail
			// recovery outright.
			continue
		}

		if err := replayRecord(mgr, offset, record.Value); err != nil {
			logger.Warn("skipping unreplayable record during recovery",
				zap.String("topic_uuid", topicUUID), zap.Int32("partition", partition),
				zap.Int64("offset", offset), zap.Error(err))
		}
	}

	return mgr, oldestAvailable, nil
}

func replayRecord(mgr *ppsm.Manager, offset int64, batch []byte) error {
	header, err := protocol.DecodeRecordBatchHeader(batch)
	if err != nil {
		return fmt.Errorf("decode record batch at offset %d: %w", offset, err)
	}

	if header.IsControlBatch() {
		commit, ok := protocol.DecodeControlBatchMarker(batch)
		if !ok {
			return fmt.Errorf("malformed control batch at offset %d", offset)
		}
		controlType := ppsm.ControlAbort
		if commit {
			controlType = ppsm.ControlCommit
		}
		_, err := mgr.CompleteTxn(header.ProducerID, header.ProducerEpoch, controlType, offset)
		return err
	}

	_, err = mgr.ValidateAndUpdate(
		header.ProducerID, header.ProducerEpoch,
		header.BaseSequence, header.LastSequence(),
		offset, offset,
		header.IsTransactional(),
	)
	return err
}
