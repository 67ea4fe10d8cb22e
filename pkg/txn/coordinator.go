// Copyright 2025 Takhin Data, Inc.

package txn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/takhin-data/takhin/pkg/metrics"
)

// Config configures a Coordinator.
type Config struct {
	// StateDir is where the compacted transaction log is stored.
	StateDir       string
	MaxSegmentSize int64

	// TransactionalIDExpirationMs bounds how long a CompleteCommit,
	// CompleteAbort or Dead transaction's metadata is retained without
	// activity before it is dropped.
	TransactionalIDExpirationMs int64
	// DefaultTxnTimeoutMs is used when a client does not override it.
	DefaultTxnTimeoutMs int32
}

// Coordinator manages transaction metadata for every transactional.id this
// broker is the coordinator for, drives the two-phase commit on EndTxn, and
// assigns producer ids and epochs.
type Coordinator struct {
	mu           sync.RWMutex
	transactions map[string]*Metadata

	nextProducerID int64
	stateLog       *stateLog
	markerWriter   MarkerWriter
	logger         *zap.Logger

	// idExpirationMs bounds how long a terminal-state transactional id is
	// retained before SweepExpiredTransactionalIDs drops it.
	idExpirationMs int64
}

// NewCoordinator creates a Coordinator backed by a compacted transaction log
// rooted at cfg.StateDir, and replays that log to rebuild in-memory state.
func NewCoordinator(cfg Config, markerWriter MarkerWriter, logger *zap.Logger) (*Coordinator, error) {
	sl, err := newStateLog(stateLogConfig{Dir: cfg.StateDir, MaxSegmentSize: cfg.MaxSegmentSize})
	if err != nil {
		return nil, fmt.Errorf("open transaction state log: %w", err)
	}

	loaded, err := sl.loadAll()
	if err != nil {
		return nil, fmt.Errorf("replay transaction state log: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Coordinator{
		transactions:   loaded,
		nextProducerID: 1000,
		stateLog:       sl,
		markerWriter:   markerWriter,
		logger:         logger,
		idExpirationMs: cfg.TransactionalIDExpirationMs,
	}

	var maxPID int64
	for _, m := range loaded {
		if m.ProducerID > maxPID {
			maxPID = m.ProducerID
		}
	}
	if maxPID >= c.nextProducerID {
		c.nextProducerID = maxPID + 1
	}

	return c, nil
}

func (c *Coordinator) allocateProducerID() int64 {
	return atomic.AddInt64(&c.nextProducerID, 1)
}

// Close releases the coordinator's backing state log.
func (c *Coordinator) Close() error {
	return c.stateLog.close()
}

// InitProducerID assigns (or bumps the epoch of) a producer id for the
// given transactional id, or allocates a fresh one-shot id when
// transactionalID is empty.
func (c *Coordinator) InitProducerID(transactionalID string, timeoutMs int32) (producerID int64, epoch int16, err error) {
	if transactionalID == "" {
		return c.allocateProducerID(), 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	meta, exists := c.transactions[transactionalID]
	if !exists {
		meta = newMetadata(transactionalID, c.allocateProducerID(), 0, timeoutMs)
		c.transactions[transactionalID] = meta
		if err := c.persist(meta); err != nil {
			return 0, 0, err
		}
		metrics.TxnStateTotal.WithLabelValues(meta.State.String()).Inc()
		return meta.ProducerID, meta.ProducerEpoch, nil
	}

	// A producer re-initializing fences out any prior instance: bump the
	// epoch and, if a transaction was left hanging, it is abandoned (the
	// new instance starts clean; a real broker would also trigger an abort
	// of any still-open transaction here).
	if meta.ProducerEpoch >= (1<<15)-1 {
		// Epoch exhausted: mint a brand new producer id.
		meta.ProducerID = c.allocateProducerID()
		meta.ProducerEpoch = 0
	} else {
		meta.LastProducerEpoch = meta.ProducerEpoch
		meta.ProducerEpoch++
	}
	meta.State = TransactionStatusEmpty
	meta.Partitions = make(map[TopicPartition]bool)
	meta.TxnLastUpdateTimestamp = time.Now().UnixMilli()

	if err := c.persist(meta); err != nil {
		return 0, 0, err
	}
	metrics.TxnStateTotal.WithLabelValues(meta.State.String()).Inc()
	return meta.ProducerID, meta.ProducerEpoch, nil
}

// verifyFenced checks that (producerID, epoch) still matches the tracked
// metadata for transactionalID, returning a *FencingError otherwise.
func (c *Coordinator) verifyFenced(meta *Metadata, producerID int64, epoch int16) error {
	if meta.ProducerID != producerID {
		return &FencingError{Kind: FencingProducerIDMismatch, TransactionalID: meta.TransactionalID}
	}
	if epoch < meta.ProducerEpoch {
		return &FencingError{
			Kind:            FencingEpochTooOld,
			TransactionalID: meta.TransactionalID,
			RequestEpoch:    epoch,
			TrackedEpoch:    meta.ProducerEpoch,
		}
	}
	return nil
}

// AddPartitionsToTxn records that the given partitions participate in the
// transaction currently owned by (producerID, epoch), opening the
// transaction (Empty -> Ongoing) on the first call.
func (c *Coordinator) AddPartitionsToTxn(transactionalID string, producerID int64, epoch int16, partitions []TopicPartition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, exists := c.transactions[transactionalID]
	if !exists {
		return &InvalidStateError{Kind: InvalidStateUnknownTransactionalID, TransactionalID: transactionalID}
	}
	if err := c.verifyFenced(meta, producerID, epoch); err != nil {
		return err
	}
	if meta.State != TransactionStatusEmpty && meta.State != TransactionStatusOngoing {
		return &InvalidStateError{Kind: InvalidStateConcurrentTransaction, TransactionalID: transactionalID, State: meta.State}
	}

	meta.State = TransactionStatusOngoing
	for _, tp := range partitions {
		meta.Partitions[tp] = true
	}
	meta.TxnLastUpdateTimestamp = time.Now().UnixMilli()

	if err := c.persist(meta); err != nil {
		return err
	}
	metrics.TxnStateTotal.WithLabelValues(meta.State.String()).Inc()
	return nil
}

// AddOffsetsToTxn marks the consumer-group offsets topic as a participant of
// the transaction, the same way a real partition would be added, so the
// commit marker also lands on __consumer_offsets.
func (c *Coordinator) AddOffsetsToTxn(transactionalID string, producerID int64, epoch int16, groupID string) error {
	return c.AddPartitionsToTxn(transactionalID, producerID, epoch, []TopicPartition{
		{Topic: groupOffsetsTopic, Partition: groupOffsetsPartition(groupID)},
	})
}

// groupOffsetsTopic is the internal topic name group-offset commits inside a
// transaction are attributed to, mirroring __consumer_offsets.
const groupOffsetsTopic = "__consumer_offsets"

// groupOffsetsPartition deterministically maps a group id to one of the
// offsets-topic partitions; kept simple (single partition) since this
// broker does not yet shard consumer offsets across multiple partitions.
func groupOffsetsPartition(groupID string) int32 {
	return 0
}

// TxnOffsetCommit validates that the transaction is in a state that allows
// committing group offsets; the actual offset write is performed by the
// group coordinator, this only fences and validates.
func (c *Coordinator) TxnOffsetCommit(transactionalID, groupID string, producerID int64, epoch int16) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta, exists := c.transactions[transactionalID]
	if !exists {
		return &InvalidStateError{Kind: InvalidStateUnknownTransactionalID, TransactionalID: transactionalID}
	}
	if err := c.verifyFenced(meta, producerID, epoch); err != nil {
		return err
	}
	if meta.State != TransactionStatusOngoing {
		return &InvalidStateError{Kind: InvalidStateNotOngoing, TransactionalID: transactionalID, State: meta.State}
	}
	return nil
}

// EndTxn drives the two-phase commit: moves to PrepareCommit/PrepareAbort,
// persists that decision (so a coordinator crash mid-commit resumes rather
// than loses the outcome), writes markers to every participating partition
// with indefinite retry, then moves to CompleteCommit/CompleteAbort.
func (c *Coordinator) EndTxn(ctx context.Context, transactionalID string, producerID int64, epoch int16, commit bool) error {
	c.mu.Lock()
	meta, exists := c.transactions[transactionalID]
	if !exists {
		c.mu.Unlock()
		return &InvalidStateError{Kind: InvalidStateUnknownTransactionalID, TransactionalID: transactionalID}
	}
	if err := c.verifyFenced(meta, producerID, epoch); err != nil {
		c.mu.Unlock()
		return err
	}
	if meta.State != TransactionStatusOngoing && meta.State != TransactionStatusEmpty {
		c.mu.Unlock()
		return &InvalidStateError{Kind: InvalidStateNotOngoing, TransactionalID: transactionalID, State: meta.State}
	}

	if commit {
		meta.State = TransactionStatusPrepareCommit
	} else {
		meta.State = TransactionStatusPrepareAbort
	}
	meta.TxnLastUpdateTimestamp = time.Now().UnixMilli()
	snapshot := meta.clone()
	persistErr := c.persist(meta)
	c.mu.Unlock()

	if persistErr != nil {
		return persistErr
	}
	metrics.TxnStateTotal.WithLabelValues(snapshot.State.String()).Inc()

	c.writeMarkersWithRetry(ctx, snapshot, commit)
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	meta, exists = c.transactions[transactionalID]
	if !exists {
		c.mu.Unlock()
		return nil
	}
	if commit {
		meta.State = TransactionStatusCompleteCommit
	} else {
		meta.State = TransactionStatusCompleteAbort
	}
	meta.Partitions = make(map[TopicPartition]bool)
	meta.TxnLastUpdateTimestamp = time.Now().UnixMilli()
	finalState := meta.State
	err := c.persist(meta)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	metrics.TxnStateTotal.WithLabelValues(finalState.String()).Inc()
	return nil
}

func (c *Coordinator) persist(meta *Metadata) error {
	return c.stateLog.append(meta)
}

// ListTransactions returns a snapshot of every transactional id and its
// current state, for the admin-plane ListTransactions operation.
func (c *Coordinator) ListTransactions() []Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Metadata, 0, len(c.transactions))
	for _, m := range c.transactions {
		out = append(out, *m.clone())
	}
	return out
}

// DescribeTransaction returns the full metadata for one transactional id.
func (c *Coordinator) DescribeTransaction(transactionalID string) (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.transactions[transactionalID]
	if !ok {
		return Metadata{}, false
	}
	return *m.clone(), true
}

// AbortTransactionMarkerOnly is the admin-plane abortTransaction operation
// (spec.md 4.3): it writes a single abort marker to one participant
// partition through the same marker writer the two-phase commit path uses,
// and never reads or mutates TransactionMetadata or the state log. This is
// deliberate: the operation exists to unblock a consumer stuck behind a
// transaction whose coordinator-tracked state may be stale or unreachable,
// so it is kept disjoint from c.transactions rather than routed through
// EndTxn/verifyFenced. Unlike the two-phase commit path it does not retry
// indefinitely; the caller decides whether to retry a failed marker write.
func (c *Coordinator) AbortTransactionMarkerOnly(ctx context.Context, partition TopicPartition, producerID int64, producerEpoch int16, coordinatorEpoch int32) error {
	return c.markerWriter.WriteMarker(ctx, partition.Topic, partition.Partition, producerID, producerEpoch, false)
}

// abortOngoing forces an ongoing or already-prepared-abort transaction to
// abort regardless of producer liveness, moving its metadata through
// PrepareAbort -> CompleteAbort and persisting both transitions. Unlike
// AbortTransactionMarkerOnly this does mutate coordinator state; it backs
// only the internal timeout sweep below, which needs to reclaim producers
// that crashed mid-transaction, not the admin-plane marker-only operation.
func (c *Coordinator) abortOngoing(ctx context.Context, transactionalID string) error {
	c.mu.Lock()
	meta, exists := c.transactions[transactionalID]
	if !exists {
		c.mu.Unlock()
		return &InvalidStateError{Kind: InvalidStateUnknownTransactionalID, TransactionalID: transactionalID}
	}
	if meta.State != TransactionStatusOngoing && meta.State != TransactionStatusPrepareAbort {
		c.mu.Unlock()
		return &InvalidStateError{Kind: InvalidStateNotOngoing, TransactionalID: transactionalID, State: meta.State}
	}

	meta.State = TransactionStatusPrepareAbort
	meta.TxnLastUpdateTimestamp = time.Now().UnixMilli()
	snapshot := meta.clone()
	if err := c.persist(meta); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.writeMarkersWithRetry(ctx, snapshot, false)
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	meta, exists = c.transactions[transactionalID]
	if exists {
		meta.State = TransactionStatusCompleteAbort
		meta.Partitions = make(map[TopicPartition]bool)
		meta.TxnLastUpdateTimestamp = time.Now().UnixMilli()
		err := c.persist(meta)
		c.mu.Unlock()
		if err != nil {
			return err
		}
	} else {
		c.mu.Unlock()
	}

	return nil
}

// SweepExpired moves any Ongoing transaction idle longer than its
// configured timeout to PrepareAbort and writes markers, reclaiming
// producers that crashed without ending their transaction.
func (c *Coordinator) SweepExpired(ctx context.Context) {
	now := time.Now().UnixMilli()

	c.mu.RLock()
	var expired []string
	for id, m := range c.transactions {
		if m.isExpired(now) {
			expired = append(expired, id)
		}
	}
	c.mu.RUnlock()

	for _, id := range expired {
		c.mu.RLock()
		meta, ok := c.transactions[id]
		c.mu.RUnlock()
		if !ok {
			continue
		}
		if err := c.abortOngoing(ctx, meta.TransactionalID); err != nil {
			c.logger.Warn("failed to abort expired transaction", zap.String("transactional_id", id), zap.Error(err))
		}
	}
}

// SweepExpiredTransactionalIDs moves transactional ids that have sat in a
// terminal state (CompleteCommit, CompleteAbort, or already Dead) longer
// than idExpirationMs to Dead and removes them from memory and the state
// log, per spec.md 4.3's "separate sweep removes transactional-ids that
// remained in a terminal state longer than transactionalIdExpirationMs."
func (c *Coordinator) SweepExpiredTransactionalIDs(_ context.Context) {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	var toRemove []string
	for id, m := range c.transactions {
		if m.terminalExpired(now, c.idExpirationMs) {
			m.State = TransactionStatusDead
			m.TxnLastUpdateTimestamp = now
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		delete(c.transactions, id)
	}
	c.mu.Unlock()

	for _, id := range toRemove {
		if err := c.stateLog.delete(id); err != nil {
			c.logger.Warn("failed to remove expired transactional id from state log", zap.String("transactional_id", id), zap.Error(err))
			continue
		}
		metrics.TxnStateTotal.WithLabelValues(TransactionStatusDead.String()).Inc()
	}
}
