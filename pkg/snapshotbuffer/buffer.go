// Copyright 2025 Takhin Data, Inc.

// Package snapshotbuffer implements the internal, key-compacted topic that
// stores the latest producer-state snapshot for every partition.
package snapshotbuffer

import (
	"fmt"
	"sync"

	"github.com/takhin-data/takhin/pkg/compression"
	"github.com/takhin-data/takhin/pkg/ppsm"
	"github.com/takhin-data/takhin/pkg/storage/log"
)

// snapshotCompression is the codec applied to every gob-encoded snapshot
// before it is appended to the backing log. ZSTD is used for the same
// reason the teacher's produce path defaults to it for record batches: a
// good ratio/speed tradeoff for the kind of repetitive, struct-shaped data
// a producer-state snapshot is.
const snapshotCompression = compression.ZSTD

// Buffer is a compacted internal topic partitioned by partition id: the
// latest snapshot for a given (topicUUID, partition) key supersedes any
// prior one. Compaction runs when Compact is called; lookups are served
// from an in-memory key->offset index maintained alongside appends so
// readLatestSnapshot is O(1) without scanning the log.
type Buffer struct {
	mu       sync.RWMutex
	store    *log.Log
	latestAt map[string]int64 // key() -> offset of latest snapshot for that key
}

// Config configures where the snapshot buffer's backing log lives.
type Config struct {
	Dir            string
	MaxSegmentSize int64
}

// New opens (or creates) the snapshot buffer's backing compacted log and
// rebuilds the key->offset index by replaying it once.
func New(cfg Config) (*Buffer, error) {
	store, err := log.NewLog(log.LogConfig{
		Dir:            cfg.Dir,
		MaxSegmentSize: cfg.MaxSegmentSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open snapshot buffer store: %w", err)
	}

	b := &Buffer{
		store:    store,
		latestAt: make(map[string]int64),
	}
	if err := b.rebuildIndex(); err != nil {
		return nil, fmt.Errorf("rebuild snapshot buffer index: %w", err)
	}
	return b, nil
}

func key(topicUUID string, partition int32) string {
	return fmt.Sprintf("%s/%d", topicUUID, partition)
}

func (b *Buffer) rebuildIndex() error {
	hwm := b.store.HighWaterMark()
	for offset := int64(0); offset < hwm; offset++ {
		rec, err := b.store.Read(offset)
		if err != nil {
			continue // segment may have been trimmed ahead of the index replay
		}
		b.latestAt[string(rec.Key)] = offset
	}
	return nil
}

// Publish appends a new snapshot, superseding whatever was previously
// published for the same (topicUUID, partition).
func (b *Buffer) Publish(snap ppsm.Snapshot) error {
	payload, err := ppsm.EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	compressed, err := compression.Compress(snapshotCompression, payload)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	k := key(snap.TopicUUID, snap.Partition)

	b.mu.Lock()
	defer b.mu.Unlock()

	offset, err := b.store.Append([]byte(k), compressed)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	b.latestAt[k] = offset
	return nil
}

// ReadLatestSnapshot returns the most recently published snapshot for the
// given (topicUUID, partition), if any.
func (b *Buffer) ReadLatestSnapshot(topicUUID string, partition int32) (ppsm.Snapshot, bool, error) {
	k := key(topicUUID, partition)

	b.mu.RLock()
	offset, ok := b.latestAt[k]
	b.mu.RUnlock()
	if !ok {
		return ppsm.Snapshot{}, false, nil
	}

	rec, err := b.store.Read(offset)
	if err != nil {
		return ppsm.Snapshot{}, false, fmt.Errorf("read snapshot at offset %d: %w", offset, err)
	}

	payload, err := compression.Decompress(snapshotCompression, rec.Value)
	if err != nil {
		return ppsm.Snapshot{}, false, fmt.Errorf("decompress snapshot at offset %d: %w", offset, err)
	}

	snap, err := ppsm.DecodeSnapshot(payload)
	if err != nil {
		return ppsm.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Compact runs key-compaction over the buffer's backing log, following the
// same policy the teacher's storage/log package applies to data topics.
func (b *Buffer) Compact(policy log.CompactionPolicy) (*log.CompactionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result, err := b.store.Compact(policy)
	if err != nil {
		return nil, err
	}
	// Compaction rewrites segments and therefore offsets; rebuild the index
	// rather than try to patch it incrementally.
	b.latestAt = make(map[string]int64)
	if err := b.rebuildIndex(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases the underlying log store.
func (b *Buffer) Close() error {
	return b.store.Close()
}
