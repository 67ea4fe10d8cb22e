// Copyright 2025 Takhin Data, Inc.

package ppsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbortedIndexForProducer(t *testing.T) {
	idx := newAbortedIndex()
	idx.insert(AbortedTxn{ProducerID: 1, FirstOffset: 0, LastOffset: 1, LastStableOffset: 2})
	idx.insert(AbortedTxn{ProducerID: 2, FirstOffset: 2, LastOffset: 3, LastStableOffset: 4})
	idx.insert(AbortedTxn{ProducerID: 1, FirstOffset: 5, LastOffset: 6, LastStableOffset: 7})

	got := idx.forProducer(1)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(0), got[0].FirstOffset)
	assert.Equal(t, int64(5), got[1].FirstOffset)

	assert.Empty(t, idx.forProducer(99))
}

func TestAbortedIndexForProducerReflectsPurge(t *testing.T) {
	idx := newAbortedIndex()
	idx.insert(AbortedTxn{ProducerID: 1, FirstOffset: 0, LastOffset: 1, LastStableOffset: 2})
	idx.insert(AbortedTxn{ProducerID: 1, FirstOffset: 5, LastOffset: 6, LastStableOffset: 7})

	idx.purgeBefore(5)

	got := idx.forProducer(1)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].FirstOffset)
}
