// Copyright 2025 Takhin Data, Inc.

package ppsm

import "sync"

// ControlType identifies whether a transaction marker commits or aborts.
type ControlType int

const (
	ControlCommit ControlType = iota
	ControlAbort
)

// AppendInfo describes the outcome of a successfully validated append.
type AppendInfo struct {
	ProducerID  int64
	FirstOffset int64
	LastOffset  int64
	// Duplicate is true when the batch had already been applied; the
	// caller should respond with these (original) offsets rather than
	// re-appending anything.
	Duplicate bool
}

// CompletedTxn describes a transaction that completeTxn just closed.
type CompletedTxn struct {
	ProducerID  int64
	FirstOffset int64
	LastOffset  int64
	IsAborted   bool
}

// Manager is the per-partition producer state manager (PPSM): the
// authority on idempotence and transaction membership for one partition.
type Manager struct {
	mu sync.RWMutex

	topicUUID           string
	partition            int32
	producers            map[int64]*ProducerStateEntry
	aborted              *abortedIndex
	recoveryPointOffset  int64
}

// New creates an empty PPSM for the given partition.
func New(topicUUID string, partition int32) *Manager {
	return &Manager{
		topicUUID:           topicUUID,
		partition:           partition,
		producers:           make(map[int64]*ProducerStateEntry),
		aborted:             newAbortedIndex(),
		recoveryPointOffset: 0,
	}
}

// Partition returns the partition id this manager tracks.
func (m *Manager) Partition() int32 { return m.partition }

// TopicUUID returns the stable topic identity this manager was created for.
func (m *Manager) TopicUUID() string { return m.topicUUID }

// RecoveryPointOffset returns the offset the next replay should resume from.
func (m *Manager) RecoveryPointOffset() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recoveryPointOffset
}

// ValidateAndUpdate validates a batch about to be appended for (producerID,
// epoch) and, on success, updates the tracked entry. isTxn marks the batch
// as part of a transaction; on the first such batch for the producer it
// opens CurrentTxnFirstOffset.
func (m *Manager) ValidateAndUpdate(producerID int64, epoch int16, firstSeq, lastSeq int32, firstOffset, lastOffset int64, isTxn bool) (AppendInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.producers[producerID]
	if !exists {
		if firstSeq != 0 {
			return AppendInfo{}, &AppendError{Kind: AppendUnknownProducerID, ProducerID: producerID, RequestSeq: firstSeq}
		}
		entry = NewProducerStateEntry(producerID, epoch)
		m.producers[producerID] = entry
	}

	if epoch < entry.Epoch {
		return AppendInfo{}, &AppendError{
			Kind:         AppendInvalidProducerEpoch,
			ProducerID:   producerID,
			RequestEpoch: epoch,
			EntryEpoch:   entry.Epoch,
		}
	}

	// A strictly greater epoch resets the sequence tracking: the producer
	// re-initialised and is expected to start a fresh batch at seq 0.
	epochBump := epoch > entry.Epoch
	if epochBump {
		entry.Epoch = epoch
		entry.LastSeq = -1
		entry.Batches = nil
	}

	if dup, ok := entry.findDuplicate(firstSeq); ok {
		return AppendInfo{
			ProducerID:  producerID,
			FirstOffset: dup.FirstOffset,
			LastOffset:  dup.LastOffset,
			Duplicate:   true,
		}, nil
	}

	if !epochBump && firstSeq <= entry.LastSeq && entry.LastSeq >= 0 {
		return AppendInfo{}, &AppendError{
			Kind:        AppendDuplicateSequenceNumber,
			ProducerID:  producerID,
			RequestSeq:  firstSeq,
			ExpectedSeq: nextExpectedSeq(entry.LastSeq),
		}
	}

	expected := int32(0)
	if entry.LastSeq >= 0 {
		expected = nextExpectedSeq(entry.LastSeq)
	}
	if firstSeq != expected {
		return AppendInfo{}, &AppendError{
			Kind:        AppendOutOfOrderSequence,
			ProducerID:  producerID,
			RequestSeq:  firstSeq,
			ExpectedSeq: expected,
		}
	}

	entry.LastSeq = lastSeq
	entry.LastOffset = lastOffset
	entry.recordBatch(BatchMetadata{FirstSeq: firstSeq, LastSeq: lastSeq, FirstOffset: firstOffset, LastOffset: lastOffset})

	if isTxn && !entry.HasOngoingTxn() {
		entry.CurrentTxnFirstOffset = firstOffset
	}

	return AppendInfo{ProducerID: producerID, FirstOffset: firstOffset, LastOffset: lastOffset}, nil
}

// CompleteTxn closes the open transaction for producerID. On ControlAbort it
// records the aborted range in the index. Idempotent: completing an
// already-completed (no ongoing txn) producer is a no-op success, per
// spec's marker-idempotence invariant.
func (m *Manager) CompleteTxn(producerID int64, epoch int16, controlType ControlType, markerOffset int64) (CompletedTxn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.producers[producerID]
	if !exists {
		entry = NewProducerStateEntry(producerID, epoch)
		m.producers[producerID] = entry
	}

	if epoch < entry.Epoch {
		return CompletedTxn{}, &CompleteTxnError{
			Kind:         CompleteTxnInvalidProducerEpoch,
			ProducerID:   producerID,
			RequestEpoch: epoch,
			EntryEpoch:   entry.Epoch,
		}
	}
	if epoch > entry.Epoch {
		entry.Epoch = epoch
	}

	if !entry.HasOngoingTxn() {
		// Idempotent: marker already applied (or never opened, e.g. a
		// replayed duplicate marker). Nothing to do.
		return CompletedTxn{ProducerID: producerID, IsAborted: controlType == ControlAbort}, nil
	}

	firstOffset := entry.CurrentTxnFirstOffset
	lastOffset := markerOffset - 1
	entry.CurrentTxnFirstOffset = -1

	isAborted := controlType == ControlAbort
	if isAborted {
		m.aborted.insert(AbortedTxn{
			ProducerID:       producerID,
			FirstOffset:      firstOffset,
			LastOffset:       lastOffset,
			LastStableOffset: markerOffset + 1,
		})
	}

	return CompletedTxn{
		ProducerID:  producerID,
		FirstOffset: firstOffset,
		LastOffset:  lastOffset,
		IsAborted:   isAborted,
	}, nil
}

// AbortedTxnsOverlapping returns the aborted transactions whose offset
// range intersects [fetchStart, fetchEnd], inclusive-inclusive.
func (m *Manager) AbortedTxnsOverlapping(fetchStart, fetchEnd int64) []AbortedTxn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aborted.overlapping(fetchStart, fetchEnd)
}

// AbortedTxnsForProducer returns the aborted transactions recorded for a
// single producer id, for DescribeProducers-style diagnostics where a
// caller already knows the producer id and wants its abort history without
// scanning every entry in the index.
func (m *Manager) AbortedTxnsForProducer(producerID int64) []AbortedTxn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aborted.forProducer(producerID)
}

// PurgeAbortedBefore removes aborted-tx entries whose LastOffset precedes
// minValidOffset, returning the count purged.
func (m *Manager) PurgeAbortedBefore(minValidOffset int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted.purgeBefore(minValidOffset)
}

// AbortedFirstOffsets exposes the current aborted index's FirstOffset
// ordering, chiefly for tests asserting purge behavior.
func (m *Manager) AbortedFirstOffsets() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aborted.firstOffsets()
}

// FirstOpenTxnFirstOffset returns the smallest CurrentTxnFirstOffset among
// all producers with an ongoing transaction, and whether one exists. Used
// to compute lastStableOffset.
func (m *Manager) FirstOpenTxnFirstOffset() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var min int64
	found := false
	for _, e := range m.producers {
		if !e.HasOngoingTxn() {
			continue
		}
		if !found || e.CurrentTxnFirstOffset < min {
			min = e.CurrentTxnFirstOffset
			found = true
		}
	}
	return min, found
}

// EntryFor returns a copy of the tracked state for producerID, if any.
func (m *Manager) EntryFor(producerID int64) (ProducerStateEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.producers[producerID]
	if !ok {
		return ProducerStateEntry{}, false
	}
	return *e, true
}

// NumProducers returns how many producer entries are currently tracked.
func (m *Manager) NumProducers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.producers)
}
