// Copyright 2025 Takhin Data, Inc.

package txn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/takhin-data/takhin/pkg/metrics"
)

// MarkerWriter writes a transaction control marker (commit or abort) to one
// partition. Implementations must be idempotent: applying the same marker
// twice must not change the outcome, since the coordinator retries
// indefinitely until every partition acknowledges.
type MarkerWriter interface {
	WriteMarker(ctx context.Context, topic string, partition int32, producerID int64, producerEpoch int16, commit bool) error
}

// markerRetryBackoff bounds the delay between retries of a failed marker
// write; failures are expected to be transient (partition not yet loaded,
// leader moved) so the coordinator keeps trying rather than giving up.
const (
	markerRetryInitialBackoff = 50 * time.Millisecond
	markerRetryMaxBackoff     = 5 * time.Second
)

// writeMarkersWithRetry writes commit/abort markers to every partition in
// the transaction, retrying each one indefinitely (until ctx is canceled)
// since the two-phase commit cannot move past PrepareCommit/PrepareAbort
// until every partition has durably recorded the marker.
func (c *Coordinator) writeMarkersWithRetry(ctx context.Context, meta *Metadata, commit bool) {
	partitions := meta.partitionList()
	done := make(chan struct{})
	remaining := len(partitions)
	if remaining == 0 {
		return
	}

	for _, tp := range partitions {
		go func(tp TopicPartition) {
			c.writeMarkerWithRetry(ctx, meta.TransactionalID, tp, meta.ProducerID, meta.ProducerEpoch, commit)
			done <- struct{}{}
		}(tp)
	}

	for i := 0; i < remaining; i++ {
		<-done
	}
}

// writeMarkerWithRetry writes a single commit/abort marker to one partition,
// retrying indefinitely (until ctx is canceled) since the caller cannot
// abandon a pending marker once a PrepareCommit/PrepareAbort decision has
// been made durable. transactionalID is carried only for logging. The
// admin-plane marker-only path (AbortTransactionMarkerOnly) does not use
// it; it calls the marker writer once, without retry.
func (c *Coordinator) writeMarkerWithRetry(ctx context.Context, transactionalID string, tp TopicPartition, producerID int64, producerEpoch int16, commit bool) {
	backoff := markerRetryInitialBackoff
	attempt := 0
	for {
		err := c.markerWriter.WriteMarker(ctx, tp.Topic, tp.Partition, producerID, producerEpoch, commit)
		if err == nil {
			return
		}
		attempt++
		metrics.TxnMarkerWriteRetries.WithLabelValues(tp.Topic).Inc()
		c.logger.Warn("transaction marker write failed, retrying",
			zap.String("transactional_id", transactionalID),
			zap.String("topic", tp.Topic),
			zap.Int32("partition", tp.Partition),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > markerRetryMaxBackoff {
			backoff = markerRetryMaxBackoff
		}
	}
}
