// Copyright 2025 Takhin Data, Inc.

// Package txn implements the transaction coordinator: per-transactional-id
// state tracking, producer id/epoch assignment, and the two-phase commit
// that drives transaction markers onto participating partitions.
package txn

import "time"

// TransactionStatus represents the status of a transaction. Kept from the
// handler package's original stub enum and generalized with the fencing and
// completion semantics a real coordinator needs.
type TransactionStatus int

const (
	TransactionStatusEmpty TransactionStatus = iota
	TransactionStatusOngoing
	TransactionStatusPrepareCommit
	TransactionStatusPrepareAbort
	TransactionStatusCompleteCommit
	TransactionStatusCompleteAbort
	TransactionStatusDead
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionStatusEmpty:
		return "Empty"
	case TransactionStatusOngoing:
		return "Ongoing"
	case TransactionStatusPrepareCommit:
		return "PrepareCommit"
	case TransactionStatusPrepareAbort:
		return "PrepareAbort"
	case TransactionStatusCompleteCommit:
		return "CompleteCommit"
	case TransactionStatusCompleteAbort:
		return "CompleteAbort"
	case TransactionStatusDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// TopicPartition identifies a partition of a topic participating in a
// transaction.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// Metadata is the durable state the coordinator tracks for one
// transactional.id. ProducerEpoch fences zombie producers: any request
// bearing an epoch older than ProducerEpoch is rejected.
type Metadata struct {
	TransactionalID string
	ProducerID      int64
	ProducerEpoch   int16
	LastProducerEpoch int16
	TxnTimeoutMs    int32
	State           TransactionStatus

	// Partitions accumulates every (topic, partition) added to the current
	// transaction via AddPartitionsToTxn.
	Partitions map[TopicPartition]bool

	TxnStartTimestamp      int64
	TxnLastUpdateTimestamp int64
}

func newMetadata(transactionalID string, producerID int64, producerEpoch int16, timeoutMs int32) *Metadata {
	now := time.Now().UnixMilli()
	return &Metadata{
		TransactionalID:        transactionalID,
		ProducerID:             producerID,
		ProducerEpoch:          producerEpoch,
		LastProducerEpoch:      -1,
		TxnTimeoutMs:           timeoutMs,
		State:                  TransactionStatusEmpty,
		Partitions:             make(map[TopicPartition]bool),
		TxnStartTimestamp:      now,
		TxnLastUpdateTimestamp: now,
	}
}

func (m *Metadata) clone() *Metadata {
	cp := *m
	cp.Partitions = make(map[TopicPartition]bool, len(m.Partitions))
	for tp := range m.Partitions {
		cp.Partitions[tp] = true
	}
	return &cp
}

// partitionList returns the tracked partitions, in map iteration order
// (not sorted or grouped), for marker writing and admin responses.
func (m *Metadata) partitionList() []TopicPartition {
	out := make([]TopicPartition, 0, len(m.Partitions))
	for tp := range m.Partitions {
		out = append(out, tp)
	}
	return out
}

// isExpired reports whether the transaction has been idle long enough to be
// eligible for the coordinator's background abort sweep.
func (m *Metadata) isExpired(now int64) bool {
	if m.State != TransactionStatusOngoing && m.State != TransactionStatusEmpty {
		return false
	}
	return now-m.TxnLastUpdateTimestamp > int64(m.TxnTimeoutMs)
}

// terminalExpired reports whether a transactional id has sat in a terminal
// (post-commit/post-abort, or already Dead) state longer than
// expirationMs and is eligible to be dropped entirely. expirationMs <= 0
// disables this sweep, since a zero duration has no meaningful retention.
func (m *Metadata) terminalExpired(now, expirationMs int64) bool {
	if expirationMs <= 0 {
		return false
	}
	switch m.State {
	case TransactionStatusCompleteCommit, TransactionStatusCompleteAbort, TransactionStatusDead:
		return now-m.TxnLastUpdateTimestamp > expirationMs
	default:
		return false
	}
}
