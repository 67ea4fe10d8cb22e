// Copyright 2025 Takhin Data, Inc.

package ppsm

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
)

// snapshotVersion is bumped whenever the on-disk schema changes in a way
// that is not backward compatible.
const snapshotVersion = 1

// ErrSnapshotCorrupt is returned by DecodeSnapshot when the blob cannot be
// decoded at all (as opposed to being merely stale, which callers detect by
// comparing TopicUUID/Offset themselves).
var ErrSnapshotCorrupt = errors.New("ppsm: corrupt snapshot")

// Snapshot is a durable, offset-tagged image of a partition's producer
// state, used to bound recovery time. Offset is the last offset included.
type Snapshot struct {
	Version   int
	TopicUUID string
	Partition int32
	Offset    int64

	Producers    map[int64]ProducerStateEntry
	OngoingTxns  map[int64]int64 // producerID -> CurrentTxnFirstOffset
	AbortedIndex []AbortedTxn
}

// Snapshot serializes the manager's current state as of offset. The caller
// is responsible for ensuring offset is a batch boundary.
func (m *Manager) Snapshot(offset int64) Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	producers := make(map[int64]ProducerStateEntry, len(m.producers))
	ongoing := make(map[int64]int64)
	for pid, e := range m.producers {
		producers[pid] = *e.clone()
		if e.HasOngoingTxn() {
			ongoing[pid] = e.CurrentTxnFirstOffset
		}
	}

	return Snapshot{
		Version:      snapshotVersion,
		TopicUUID:    m.topicUUID,
		Partition:    m.partition,
		Offset:       offset,
		Producers:    producers,
		OngoingTxns:  ongoing,
		AbortedIndex: append([]AbortedTxn(nil), m.aborted.entries...),
	}
}

// LoadFromSnapshot resets the manager's internal state to the snapshot and
// records recoveryPointOffset = snap.Offset + 1.
func (m *Manager) LoadFromSnapshot(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.topicUUID = snap.TopicUUID
	m.partition = snap.Partition

	m.producers = make(map[int64]*ProducerStateEntry, len(snap.Producers))
	for pid, e := range snap.Producers {
		entry := e
		m.producers[pid] = &entry
	}

	m.aborted = newAbortedIndex()
	for _, a := range snap.AbortedIndex {
		m.aborted.insert(a)
	}

	m.recoveryPointOffset = snap.Offset + 1
}

// EncodeSnapshot serializes a Snapshot to its opaque wire representation.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode producer state snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot deserializes a snapshot produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	return snap, nil
}
