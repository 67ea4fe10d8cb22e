// Copyright 2025 Takhin Data, Inc.

package ppsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndUpdateFirstBatch(t *testing.T) {
	m := New("uuid-1", 0)

	info, err := m.ValidateAndUpdate(100, 0, 0, 0, 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.FirstOffset)
	assert.False(t, info.Duplicate)
}

func TestValidateAndUpdateOutOfOrder(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 0, 0, 0, 0, 0, false)
	require.NoError(t, err)

	_, err = m.ValidateAndUpdate(100, 0, 5, 5, 1, 1, false)
	require.Error(t, err)
	var appendErr *AppendError
	require.ErrorAs(t, err, &appendErr)
	assert.Equal(t, AppendOutOfOrderSequence, appendErr.Kind)
}

func TestValidateAndUpdateDuplicateSequence(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 0, 0, 1, 0, 1, false)
	require.NoError(t, err)

	// Retry of the exact same batch is answered from the idempotence window.
	info, err := m.ValidateAndUpdate(100, 0, 0, 1, 0, 1, false)
	require.NoError(t, err)
	assert.True(t, info.Duplicate)
	assert.Equal(t, int64(0), info.FirstOffset)
	assert.Equal(t, int64(1), info.LastOffset)

	// Push enough further batches to evict the firstSeq=0 batch from the
	// retained idempotence window, then retry it: no longer answerable
	// from the window, so it is rejected as a duplicate instead.
	seq := int32(2)
	offset := int64(2)
	for i := 0; i < batchWindow; i++ {
		_, err = m.ValidateAndUpdate(100, 0, seq, seq, offset, offset, false)
		require.NoError(t, err)
		seq++
		offset++
	}

	_, err = m.ValidateAndUpdate(100, 0, 0, 1, 100, 101, false)
	require.Error(t, err)
	var appendErr *AppendError
	require.ErrorAs(t, err, &appendErr)
	assert.Equal(t, AppendDuplicateSequenceNumber, appendErr.Kind)
}

func TestValidateAndUpdateEpochFencing(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 5, 0, 0, 0, 0, false)
	require.NoError(t, err)

	_, err = m.ValidateAndUpdate(100, 4, 0, 0, 1, 1, false)
	require.Error(t, err)
	var appendErr *AppendError
	require.ErrorAs(t, err, &appendErr)
	assert.Equal(t, AppendInvalidProducerEpoch, appendErr.Kind)
}

func TestValidateAndUpdateEpochBumpResetsSequence(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 0, 0, 3, 0, 3, false)
	require.NoError(t, err)

	// New epoch restarts the sequence at 0.
	info, err := m.ValidateAndUpdate(100, 1, 0, 0, 4, 4, false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.FirstOffset)
}

func TestValidateAndUpdateOpensTxnFirstOffset(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 0, 0, 0, 10, 10, true)
	require.NoError(t, err)

	entry, ok := m.EntryFor(100)
	require.True(t, ok)
	assert.True(t, entry.HasOngoingTxn())
	assert.Equal(t, int64(10), entry.CurrentTxnFirstOffset)

	// A second transactional batch does not move the open offset.
	_, err = m.ValidateAndUpdate(100, 0, 1, 1, 11, 11, true)
	require.NoError(t, err)
	entry, _ = m.EntryFor(100)
	assert.Equal(t, int64(10), entry.CurrentTxnFirstOffset)
}

func TestCompleteTxnCommit(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 0, 0, 1, 0, 1, true)
	require.NoError(t, err)

	completed, err := m.CompleteTxn(100, 0, ControlCommit, 2)
	require.NoError(t, err)
	assert.False(t, completed.IsAborted)
	assert.Equal(t, int64(0), completed.FirstOffset)
	assert.Equal(t, int64(1), completed.LastOffset)

	entry, _ := m.EntryFor(100)
	assert.False(t, entry.HasOngoingTxn())
	assert.Empty(t, m.AbortedFirstOffsets())
}

func TestCompleteTxnAbortRecordsAbortedIndex(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 0, 0, 1, 0, 1, true)
	require.NoError(t, err)

	completed, err := m.CompleteTxn(100, 0, ControlAbort, 2)
	require.NoError(t, err)
	assert.True(t, completed.IsAborted)

	overlapping := m.AbortedTxnsOverlapping(0, 1)
	require.Len(t, overlapping, 1)
	assert.Equal(t, int64(100), overlapping[0].ProducerID)
	assert.Equal(t, int64(0), overlapping[0].FirstOffset)
	assert.Equal(t, int64(1), overlapping[0].LastOffset)
}

func TestCompleteTxnIdempotent(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 0, 0, 1, 0, 1, true)
	require.NoError(t, err)

	_, err = m.CompleteTxn(100, 0, ControlAbort, 2)
	require.NoError(t, err)

	// Applying the marker a second time must not add a second aborted entry.
	_, err = m.CompleteTxn(100, 0, ControlAbort, 2)
	require.NoError(t, err)
	assert.Len(t, m.AbortedFirstOffsets(), 1)
}

func TestCompleteTxnEpochFencing(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(100, 5, 0, 0, 0, 0, true)
	require.NoError(t, err)

	_, err = m.CompleteTxn(100, 4, ControlCommit, 1)
	require.Error(t, err)
	var ctErr *CompleteTxnError
	require.ErrorAs(t, err, &ctErr)
	assert.Equal(t, CompleteTxnInvalidProducerEpoch, ctErr.Kind)
}

func TestAbortedTxnPurge(t *testing.T) {
	m := New("uuid-1", 0)

	_, err := m.ValidateAndUpdate(1, 0, 0, 0, 0, 0, true)
	require.NoError(t, err)
	_, err = m.CompleteTxn(1, 0, ControlAbort, 3) // offsets 0-2

	require.NoError(t, err)

	_, err = m.ValidateAndUpdate(2, 0, 0, 0, 11, 11, true)
	require.NoError(t, err)
	_, err = m.CompleteTxn(2, 0, ControlAbort, 13) // offsets 11-12
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 11}, m.AbortedFirstOffsets())

	purged := m.PurgeAbortedBefore(5)
	assert.Equal(t, 1, purged)
	assert.Equal(t, []int64{11}, m.AbortedFirstOffsets())
}

func TestAbortedTxnsForProducer(t *testing.T) {
	m := New("uuid-1", 0)

	_, err := m.ValidateAndUpdate(1, 0, 0, 0, 0, 0, true)
	require.NoError(t, err)
	_, err = m.CompleteTxn(1, 0, ControlAbort, 3) // offsets 0-2
	require.NoError(t, err)

	_, err = m.ValidateAndUpdate(2, 0, 0, 0, 11, 11, true)
	require.NoError(t, err)
	_, err = m.CompleteTxn(2, 0, ControlAbort, 13) // offsets 11-12
	require.NoError(t, err)

	got := m.AbortedTxnsForProducer(1)
	require.Len(t, got, 1)
	assert.Equal(t, int64(0), got[0].FirstOffset)

	assert.Empty(t, m.AbortedTxnsForProducer(999))
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := New("uuid-1", 0)
	_, err := m.ValidateAndUpdate(1, 2, 0, 1, 0, 1, true)
	require.NoError(t, err)
	_, err = m.ValidateAndUpdate(2, 0, 0, 0, 2, 2, true)
	require.NoError(t, err)
	_, err = m.CompleteTxn(2, 0, ControlAbort, 3)
	require.NoError(t, err)

	snap := m.Snapshot(3)
	encoded, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(encoded)
	require.NoError(t, err)

	restored := New("", 0)
	restored.LoadFromSnapshot(decoded)

	assert.Equal(t, int64(4), restored.RecoveryPointOffset())
	e1, ok := restored.EntryFor(1)
	require.True(t, ok)
	assert.True(t, e1.HasOngoingTxn())
	assert.Equal(t, m.AbortedFirstOffsets(), restored.AbortedFirstOffsets())
}

func TestFirstOpenTxnFirstOffset(t *testing.T) {
	m := New("uuid-1", 0)
	_, found := m.FirstOpenTxnFirstOffset()
	assert.False(t, found)

	_, err := m.ValidateAndUpdate(1, 0, 0, 0, 10, 10, true)
	require.NoError(t, err)
	_, err = m.ValidateAndUpdate(2, 0, 0, 0, 5, 5, true)
	require.NoError(t, err)

	min, found := m.FirstOpenTxnFirstOffset()
	require.True(t, found)
	assert.Equal(t, int64(5), min)
}
