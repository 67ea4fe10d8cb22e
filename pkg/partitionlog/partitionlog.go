// Copyright 2025 Takhin Data, Inc.

package partitionlog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
	"github.com/takhin-data/takhin/pkg/metrics"
	"github.com/takhin-data/takhin/pkg/ppsm"
	"github.com/takhin-data/takhin/pkg/snapshotbuffer"
	"github.com/takhin-data/takhin/pkg/storage/log"
)

// AppendResult describes the outcome of appending one batch.
type AppendResult struct {
	FirstOffset int64
	LastOffset  int64
	Duplicate   bool
}

// FetchResult carries everything a Fetch response partition needs beyond
// the raw bytes: watermark bookkeeping and, for read_committed fetches, the
// aborted-transaction list overlapping the returned range.
type FetchResult struct {
	Records             []byte
	HighWatermark       int64
	LastStableOffset    int64
	LogStartOffset      int64
	AbortedTransactions []protocol.AbortedTransaction
}

// IsolationLevel mirrors the Fetch request's isolation_level field.
type IsolationLevel int8

const (
	IsolationReadUncommitted IsolationLevel = 0
	IsolationReadCommitted   IsolationLevel = 1
)

// PartitionLog binds a Kafka partition to its backing segment log and the
// per-partition producer state manager that tracks idempotence and
// transaction membership for it.
type PartitionLog struct {
	topicName string
	topicUUID string
	partition int32

	store       *log.Log
	snapshotBuf *snapshotbuffer.Buffer
	logger      *zap.Logger

	mu    sync.Mutex
	cond  *sync.Cond
	state State

	producers *ppsm.Manager

	// logStartOffset is the oldest offset still retained; advanced by
	// retention/compaction and used both to bound recovery replay and to
	// purge stale entries from the aborted-transaction index.
	logStartOffset int64
}

// Config configures a new PartitionLog.
type Config struct {
	TopicName   string
	TopicUUID   string
	Partition   int32
	Store       *log.Log
	SnapshotBuf *snapshotbuffer.Buffer
	Logger      *zap.Logger
}

// New constructs a PartitionLog in the Uninitialised state; call Initialise
// before Append/Fetch.
func New(cfg Config) *PartitionLog {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pl := &PartitionLog{
		topicName:   cfg.TopicName,
		topicUUID:   cfg.TopicUUID,
		partition:   cfg.Partition,
		store:       cfg.Store,
		snapshotBuf: cfg.SnapshotBuf,
		logger:      logger,
		state:       Uninitialised,
	}
	pl.cond = sync.NewCond(&pl.mu)
	return pl
}

// State returns the partition's current lifecycle state.
func (pl *PartitionLog) State() State {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.state
}

// IsUnloaded reports whether the partition has been taken offline.
func (pl *PartitionLog) IsUnloaded() bool {
	return pl.State() == Unloaded
}

// Initialise moves the partition from Uninitialised/Unloaded into
// Recovering, runs the recovery algorithm, then into Ready. Concurrent
// callers of Initialise on an already-recovering partition get
// ErrAlreadyInitialising; callers wanting to wait for recovery to finish
// should use AwaitInitialisation instead.
func (pl *PartitionLog) Initialise(ctx context.Context) error {
	pl.mu.Lock()
	if pl.state == Recovering {
		pl.mu.Unlock()
		return ErrAlreadyInitialising
	}
	pl.state = Recovering
	pl.mu.Unlock()

	mgr, startOffset, err := recoverProducerState(ctx, pl.store, pl.snapshotBuf, pl.topicUUID, pl.partition, pl.logger)

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if err != nil {
		pl.state = Uninitialised
		return fmt.Errorf("recover partition %s-%d: %w", pl.topicName, pl.partition, err)
	}

	pl.producers = mgr
	pl.logStartOffset = startOffset
	pl.state = Ready
	pl.cond.Broadcast()
	return nil
}

// AwaitInitialisation blocks while the partition is Uninitialised or
// Recovering, until it becomes Ready or Unloaded or ctx is canceled. Returns ErrUnloaded if the partition was unloaded while
// waiting.
func (pl *PartitionLog) AwaitInitialisation(ctx context.Context) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	for pl.state == Uninitialised || pl.state == Recovering {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// sync.Cond has no context-aware wait; a background goroutine
		// broadcasts on cancellation so Wait does not block forever.
		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				pl.cond.Broadcast()
			case <-stop:
			}
		}()
		pl.cond.Wait()
		close(stop)
	}

	if pl.state == Unloaded {
		return ErrUnloaded
	}
	return ctx.Err()
}

// Append validates and applies one record batch to the partition,
// delegating sequence/epoch validation to the producer state manager
// before committing the batch to the log. The partition being effectively
// single-writer (callers serialize through this method) lets FirstOffset be
// computed from the log's current high watermark before the physical
// append, so a failed validation never touches the log.
func (pl *PartitionLog) Append(batch []byte) (AppendResult, error) {
	pl.mu.Lock()
	if pl.state != Ready {
		pl.mu.Unlock()
		return AppendResult{}, ErrNotReady
	}
	pl.mu.Unlock()

	header, err := protocol.DecodeRecordBatchHeader(batch)
	if err != nil {
		return AppendResult{}, fmt.Errorf("decode record batch: %w", err)
	}

	// The backing log assigns one slot per appended batch regardless of how
	// many Kafka records the batch logically contains, so the batch's
	// first and last offset coincide at this storage layer; sequence
	// validation still uses the record-level baseSequence/lastSequence from
	// the batch header.
	firstOffset := pl.store.HighWaterMark()
	lastOffset := firstOffset

	if header.IsControlBatch() {
		return pl.appendControlBatch(batch, header, firstOffset, lastOffset)
	}

	info, err := pl.producers.ValidateAndUpdate(
		header.ProducerID, header.ProducerEpoch,
		header.BaseSequence, header.LastSequence(),
		firstOffset, lastOffset,
		header.IsTransactional(),
	)
	if err != nil {
		return AppendResult{}, err
	}
	if info.Duplicate {
		return AppendResult{FirstOffset: info.FirstOffset, LastOffset: info.LastOffset, Duplicate: true}, nil
	}

	actualOffset, err := pl.store.Append(nil, batch)
	if err != nil {
		return AppendResult{}, fmt.Errorf("append to log: %w", err)
	}
	if actualOffset != firstOffset {
		// Another writer interleaved; the single-writer-domain invariant was
		// violated upstream. Surface it loudly rather than silently
		// corrupting producer-state offsets.
		pl.logger.Error("partition offset drift detected",
			zap.String("topic", pl.topicName),
			zap.Int32("partition", pl.partition),
			zap.Int64("expected", firstOffset),
			zap.Int64("actual", actualOffset),
		)
	}

	return AppendResult{FirstOffset: info.FirstOffset, LastOffset: info.LastOffset}, nil
}

func (pl *PartitionLog) appendControlBatch(batch []byte, header protocol.RecordBatchHeader, firstOffset, lastOffset int64) (AppendResult, error) {
	commit, ok := protocol.DecodeControlBatchMarker(batch)
	if !ok {
		return AppendResult{}, fmt.Errorf("malformed control batch")
	}

	controlType := ppsm.ControlAbort
	if commit {
		controlType = ppsm.ControlCommit
	}

	if _, err := pl.producers.CompleteTxn(header.ProducerID, header.ProducerEpoch, controlType, firstOffset); err != nil {
		return AppendResult{}, err
	}

	actualOffset, err := pl.store.Append(nil, batch)
	if err != nil {
		return AppendResult{}, fmt.Errorf("append control batch: %w", err)
	}

	return AppendResult{FirstOffset: actualOffset, LastOffset: lastOffset}, nil
}

// CompleteTxn applies a transaction marker out-of-band (i.e. not via a
// record batch physically appended through Append), used by the
// coordinator's marker writer. It both updates producer state and appends
// the control batch bytes so read_committed fetches and recovery see it.
func (pl *PartitionLog) CompleteTxn(ctx context.Context, producerID int64, epoch int16, commit bool) error {
	if err := pl.AwaitInitialisation(ctx); err != nil {
		return err
	}

	pl.mu.Lock()
	if pl.state != Ready {
		pl.mu.Unlock()
		return ErrNotReady
	}
	pl.mu.Unlock()

	markerOffset := pl.store.HighWaterMark()
	batch := protocol.EncodeControlBatch(markerOffset, producerID, epoch, commit)

	controlType := ppsm.ControlAbort
	if commit {
		controlType = ppsm.ControlCommit
	}
	if _, err := pl.producers.CompleteTxn(producerID, epoch, controlType, markerOffset); err != nil {
		return err
	}

	if _, err := pl.store.Append(nil, batch); err != nil {
		return fmt.Errorf("append marker: %w", err)
	}

	metrics.PPSMAbortedIndexSize.WithLabelValues(pl.topicUUID, fmt.Sprintf("%d", pl.partition)).Set(float64(len(pl.producers.AbortedFirstOffsets())))
	return nil
}

// Fetch reads records starting at offset, applying read_committed
// isolation semantics when requested: the last stable offset caps what is
// visible, and overlapping aborted transactions are reported so the
// consumer can filter them out of the returned record set.
func (pl *PartitionLog) Fetch(offset int64, maxBytes int32, isolation IsolationLevel) (FetchResult, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.state != Ready {
		return FetchResult{}, ErrNotReady
	}

	hwm := pl.store.HighWaterMark()
	lso := hwm
	if firstOpen, ok := pl.producers.FirstOpenTxnFirstOffset(); ok {
		lso = firstOpen
	}

	result := FetchResult{
		HighWatermark:    hwm,
		LastStableOffset: hwm,
		LogStartOffset:   pl.logStartOffset,
		Records:          []byte{},
	}
	fetchCeiling := hwm
	if isolation == IsolationReadCommitted {
		result.LastStableOffset = lso
		fetchCeiling = lso
	}

	if offset >= fetchCeiling {
		return result, nil
	}

	record, err := pl.store.Read(offset)
	if err == nil && record != nil {
		result.Records = record.Value
	}

	if isolation == IsolationReadCommitted {
		result.AbortedTransactions = toProtocolAborted(pl.producers.AbortedTxnsOverlapping(offset, fetchCeiling-1))
	}

	return result, nil
}

func toProtocolAborted(in []ppsm.AbortedTxn) []protocol.AbortedTransaction {
	out := make([]protocol.AbortedTransaction, len(in))
	for i, a := range in {
		out[i] = protocol.AbortedTransaction{ProducerID: a.ProducerID, FirstOffset: a.FirstOffset}
	}
	return out
}

// TakeProducerSnapshot serializes the current producer-state view and
// publishes it to the snapshot buffer, bounding future recovery time. A nil
// snapshot buffer (no persistent snapshot store configured) degrades to a
// no-op rather than an error: recovery simply falls back to a full replay.
func (pl *PartitionLog) TakeProducerSnapshot() error {
	pl.mu.Lock()
	if pl.state != Ready {
		pl.mu.Unlock()
		return ErrNotReady
	}
	mgr := pl.producers
	pl.mu.Unlock()

	if pl.snapshotBuf == nil {
		return nil
	}

	offset := pl.store.HighWaterMark() - 1
	if offset < 0 {
		return nil
	}
	snap := mgr.Snapshot(offset)
	return pl.snapshotBuf.Publish(snap)
}

// UpdatePurgeAbortedTxnsOffset advances the offset below which aborted-index
// entries are eligible for purge, tracking retention/compaction progress.
func (pl *PartitionLog) UpdatePurgeAbortedTxnsOffset(minValidOffset int64) {
	pl.mu.Lock()
	pl.logStartOffset = minValidOffset
	pl.mu.Unlock()
}

// ForcePurgeAbortedTxn drops aborted-transaction index entries that ended
// before the partition's current log start offset.
func (pl *PartitionLog) ForcePurgeAbortedTxn() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	mgr := pl.producers
	start := pl.logStartOffset

	if mgr == nil {
		return 0
	}
	purged := mgr.PurgeAbortedBefore(start)
	metrics.PPSMAbortedIndexSize.WithLabelValues(pl.topicUUID, fmt.Sprintf("%d", pl.partition)).Set(float64(len(mgr.AbortedFirstOffsets())))
	return purged
}

// FetchOldestAvailableIndexFromTopic returns the earliest offset the
// backing log still retains, used as the lower bound for recovery replay
// when no usable snapshot exists.
func (pl *PartitionLog) FetchOldestAvailableIndexFromTopic() int64 {
	segments := pl.store.GetSegments()
	if len(segments) == 0 {
		return 0
	}
	return segments[0].BaseOffset
}

// Unload takes a final snapshot (best effort) and transitions the
// partition to Unloaded; a later Initialise call recovers it again.
func (pl *PartitionLog) Unload() {
	_ = pl.TakeProducerSnapshot()

	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.state = Unloaded
	pl.cond.Broadcast()
}

// TopicUUID returns the stable topic identity this log was created for.
func (pl *PartitionLog) TopicUUID() string { return pl.topicUUID }

// Partition returns the partition id.
func (pl *PartitionLog) Partition() int32 { return pl.partition }

// NumTrackedProducers exposes the number of producers PPSM currently
// tracks, for diagnostics and tests.
func (pl *PartitionLog) NumTrackedProducers() int {
	pl.mu.Lock()
	mgr := pl.producers
	pl.mu.Unlock()
	if mgr == nil {
		return 0
	}
	return mgr.NumProducers()
}

// DescribeProducer returns the tracked producer-state entry and abort
// history for a single producer id, for the admin-plane DescribeProducers
// RPC. The second return is false if PPSM has no entry for producerID.
func (pl *PartitionLog) DescribeProducer(producerID int64) (ppsm.ProducerStateEntry, []ppsm.AbortedTxn, bool) {
	pl.mu.Lock()
	mgr := pl.producers
	pl.mu.Unlock()
	if mgr == nil {
		return ppsm.ProducerStateEntry{}, nil, false
	}
	entry, ok := mgr.EntryFor(producerID)
	if !ok {
		return ppsm.ProducerStateEntry{}, nil, false
	}
	return entry, mgr.AbortedTxnsForProducer(producerID), true
}
