// Copyright 2025 Takhin Data, Inc.

package txn

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/takhin-data/takhin/pkg/storage/log"
)

// stateLog is the durable, key-compacted backing store for transaction
// metadata: one record per transactional id, superseded by every update,
// following the same compacted-topic pattern as the snapshot buffer.
type stateLog struct {
	mu       sync.RWMutex
	store    *log.Log
	latestAt map[string]int64
}

// stateLogConfig configures where the transaction log's backing store lives.
type stateLogConfig struct {
	Dir            string
	MaxSegmentSize int64
}

func newStateLog(cfg stateLogConfig) (*stateLog, error) {
	store, err := log.NewLog(log.LogConfig{
		Dir:            cfg.Dir,
		MaxSegmentSize: cfg.MaxSegmentSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open transaction log store: %w", err)
	}

	sl := &stateLog{
		store:    store,
		latestAt: make(map[string]int64),
	}
	if err := sl.rebuildIndex(); err != nil {
		return nil, fmt.Errorf("rebuild transaction log index: %w", err)
	}
	return sl, nil
}

func (sl *stateLog) rebuildIndex() error {
	hwm := sl.store.HighWaterMark()
	for offset := int64(0); offset < hwm; offset++ {
		rec, err := sl.store.Read(offset)
		if err != nil {
			continue
		}
		sl.latestAt[string(rec.Key)] = offset
	}
	return nil
}

// append persists meta, superseding any prior record for the same
// transactional id.
func (sl *stateLog) append(meta *Metadata) error {
	payload, err := encodeMetadata(meta)
	if err != nil {
		return err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	offset, err := sl.store.Append([]byte(meta.TransactionalID), payload)
	if err != nil {
		return fmt.Errorf("append transaction record: %w", err)
	}
	sl.latestAt[meta.TransactionalID] = offset
	return nil
}

// delete appends a tombstone (nil value) for transactionalID, marking it
// removed for the next compaction and making it disappear from loadAll on
// the next replay.
func (sl *stateLog) delete(transactionalID string) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	offset, err := sl.store.Append([]byte(transactionalID), nil)
	if err != nil {
		return fmt.Errorf("append transaction tombstone: %w", err)
	}
	sl.latestAt[transactionalID] = offset
	return nil
}

// loadAll replays the compacted log and returns the latest metadata for
// every transactional id, used to repopulate the coordinator's in-memory
// map on startup.
func (sl *stateLog) loadAll() (map[string]*Metadata, error) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	out := make(map[string]*Metadata, len(sl.latestAt))
	for txnID, offset := range sl.latestAt {
		rec, err := sl.store.Read(offset)
		if err != nil {
			continue
		}
		meta, err := decodeMetadata(rec.Value)
		if err != nil {
			continue
		}
		out[txnID] = meta
	}
	return out, nil
}

func (sl *stateLog) compact(policy log.CompactionPolicy) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if _, err := sl.store.Compact(policy); err != nil {
		return err
	}
	sl.latestAt = make(map[string]int64)
	return sl.rebuildIndex()
}

func (sl *stateLog) close() error {
	return sl.store.Close()
}

type gobMetadata struct {
	TransactionalID        string
	ProducerID             int64
	ProducerEpoch          int16
	LastProducerEpoch      int16
	TxnTimeoutMs           int32
	State                  TransactionStatus
	Partitions             []TopicPartition
	TxnStartTimestamp      int64
	TxnLastUpdateTimestamp int64
}

func encodeMetadata(m *Metadata) ([]byte, error) {
	g := gobMetadata{
		TransactionalID:        m.TransactionalID,
		ProducerID:             m.ProducerID,
		ProducerEpoch:          m.ProducerEpoch,
		LastProducerEpoch:      m.LastProducerEpoch,
		TxnTimeoutMs:           m.TxnTimeoutMs,
		State:                  m.State,
		Partitions:             m.partitionList(),
		TxnStartTimestamp:      m.TxnStartTimestamp,
		TxnLastUpdateTimestamp: m.TxnLastUpdateTimestamp,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, fmt.Errorf("encode transaction metadata: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeMetadata(data []byte) (*Metadata, error) {
	var g gobMetadata
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode transaction metadata: %w", err)
	}
	m := &Metadata{
		TransactionalID:        g.TransactionalID,
		ProducerID:             g.ProducerID,
		ProducerEpoch:          g.ProducerEpoch,
		LastProducerEpoch:      g.LastProducerEpoch,
		TxnTimeoutMs:           g.TxnTimeoutMs,
		State:                  g.State,
		Partitions:             make(map[TopicPartition]bool, len(g.Partitions)),
		TxnStartTimestamp:      g.TxnStartTimestamp,
		TxnLastUpdateTimestamp: g.TxnLastUpdateTimestamp,
	}
	for _, tp := range g.Partitions {
		m.Partitions[tp] = true
	}
	return m, nil
}
