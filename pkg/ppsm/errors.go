// Copyright 2025 Takhin Data, Inc.

package ppsm

import "fmt"

// AppendErrorKind is the closed set of ways a produce append can be
// rejected by the producer state manager. Modeled directly as an
// enumeration rather than an error class hierarchy.
type AppendErrorKind int

const (
	// AppendOK is not a failure; validateAndUpdate returns a nil error.
	AppendOK AppendErrorKind = iota
	// AppendInvalidProducerEpoch means the request epoch is lower than the
	// entry's recorded epoch (a fenced/zombie producer).
	AppendInvalidProducerEpoch
	// AppendDuplicateSequenceNumber means firstSeq <= entry.LastSeq: the
	// batch was already applied. Benign — callers should return the
	// original offsets.
	AppendDuplicateSequenceNumber
	// AppendOutOfOrderSequence means firstSeq skips ahead of the expected
	// next sequence. Fatal for the producer.
	AppendOutOfOrderSequence
	// AppendUnknownProducerID means no entry exists for the producer and
	// the batch is not a valid first batch (nonzero firstSeq with no
	// Epoch bump context).
	AppendUnknownProducerID
)

// AppendError reports why validateAndUpdate rejected a batch.
type AppendError struct {
	Kind          AppendErrorKind
	ProducerID    int64
	RequestEpoch  int16
	EntryEpoch    int16
	RequestSeq    int32
	ExpectedSeq   int32
}

func (e *AppendError) Error() string {
	switch e.Kind {
	case AppendInvalidProducerEpoch:
		return fmt.Sprintf("producer %d: invalid epoch %d, current epoch %d", e.ProducerID, e.RequestEpoch, e.EntryEpoch)
	case AppendDuplicateSequenceNumber:
		return fmt.Sprintf("producer %d: duplicate sequence number %d", e.ProducerID, e.RequestSeq)
	case AppendOutOfOrderSequence:
		return fmt.Sprintf("producer %d: out of order sequence number %d (expected %d)", e.ProducerID, e.RequestSeq, e.ExpectedSeq)
	case AppendUnknownProducerID:
		return fmt.Sprintf("producer %d: unknown producer id", e.ProducerID)
	default:
		return "unknown producer state append error"
	}
}

// CompleteTxnErrorKind enumerates why completeTxn was rejected.
type CompleteTxnErrorKind int

const (
	CompleteTxnOK CompleteTxnErrorKind = iota
	CompleteTxnInvalidProducerEpoch
	CompleteTxnNoOngoingTransaction
)

// CompleteTxnError reports why completeTxn could not be applied. A
// CompleteTxnNoOngoingTransaction is treated as idempotent success by
// callers per spec: completing an already-completed transaction is a no-op.
type CompleteTxnError struct {
	Kind         CompleteTxnErrorKind
	ProducerID   int64
	RequestEpoch int16
	EntryEpoch   int16
}

func (e *CompleteTxnError) Error() string {
	switch e.Kind {
	case CompleteTxnInvalidProducerEpoch:
		return fmt.Sprintf("producer %d: invalid epoch %d, current epoch %d", e.ProducerID, e.RequestEpoch, e.EntryEpoch)
	case CompleteTxnNoOngoingTransaction:
		return fmt.Sprintf("producer %d: no ongoing transaction", e.ProducerID)
	default:
		return "unknown complete-txn error"
	}
}
