// Copyright 2025 Takhin Data, Inc.

package ppsm

import "sort"

// AbortedTxn is the metadata a read_committed consumer needs to filter a
// range of offsets belonging to an aborted transaction.
type AbortedTxn struct {
	ProducerID       int64
	FirstOffset      int64
	LastOffset       int64
	LastStableOffset int64
}

// abortedIndex is an ordered sequence of AbortedTxn sorted by FirstOffset,
// with a secondary index by producer id for O(1) per-producer lookup
// (forProducer).
type abortedIndex struct {
	entries []AbortedTxn
	byPID   map[int64][]int // indexes into entries, per producer id
}

func newAbortedIndex() *abortedIndex {
	return &abortedIndex{
		byPID: make(map[int64][]int),
	}
}

// insert adds a new aborted transaction, keeping entries sorted by
// FirstOffset. O(log n) search plus O(n) shift, same cost model as an
// ordered slice insert anywhere else in the log store.
func (a *abortedIndex) insert(txn AbortedTxn) {
	idx := sort.Search(len(a.entries), func(i int) bool {
		return a.entries[i].FirstOffset >= txn.FirstOffset
	})
	a.entries = append(a.entries, AbortedTxn{})
	copy(a.entries[idx+1:], a.entries[idx:])
	a.entries[idx] = txn

	a.reindex()
}

func (a *abortedIndex) reindex() {
	a.byPID = make(map[int64][]int, len(a.byPID))
	for i, e := range a.entries {
		a.byPID[e.ProducerID] = append(a.byPID[e.ProducerID], i)
	}
}

// overlapping returns every entry whose [FirstOffset, LastOffset] range
// intersects [fetchStart, fetchEnd], inclusive-inclusive.
func (a *abortedIndex) overlapping(fetchStart, fetchEnd int64) []AbortedTxn {
	// First entry whose LastOffset >= fetchStart.
	start := sort.Search(len(a.entries), func(i int) bool {
		return a.entries[i].LastOffset >= fetchStart
	})

	var out []AbortedTxn
	for i := start; i < len(a.entries); i++ {
		e := a.entries[i]
		if e.FirstOffset > fetchEnd {
			break
		}
		out = append(out, e)
	}
	return out
}

// forProducer returns every aborted transaction recorded for producerID, in
// FirstOffset order, using byPID rather than a scan over entries.
func (a *abortedIndex) forProducer(producerID int64) []AbortedTxn {
	idxs := a.byPID[producerID]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]AbortedTxn, len(idxs))
	for i, idx := range idxs {
		out[i] = a.entries[idx]
	}
	return out
}

// purgeBefore removes every entry whose LastOffset precedes minValidOffset,
// returning the number of entries purged.
func (a *abortedIndex) purgeBefore(minValidOffset int64) int {
	kept := a.entries[:0]
	purged := 0
	for _, e := range a.entries {
		if e.LastOffset < minValidOffset {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	a.entries = kept
	a.reindex()
	return purged
}

func (a *abortedIndex) firstOffsets() []int64 {
	out := make([]int64, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.FirstOffset
	}
	return out
}

func (a *abortedIndex) clone() *abortedIndex {
	cp := newAbortedIndex()
	cp.entries = append([]AbortedTxn(nil), a.entries...)
	cp.reindex()
	return cp
}
