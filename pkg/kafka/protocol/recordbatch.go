// Copyright 2025 Takhin Data, Inc.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// recordBatchHeaderSize is the length, in bytes, of a v2 RecordBatch header
// up to and including recordsCount, before the individual records.
const recordBatchHeaderSize = 61

const (
	recordBatchAttrTransactionalBit = 1 << 4
	recordBatchAttrControlBit       = 1 << 5
)

// RecordBatchHeader is the subset of the Kafka v2 record batch header the
// transaction and idempotence path needs: producer identity, the sequence
// range of the batch, and whether it is transactional or a control batch.
type RecordBatchHeader struct {
	BaseOffset           int64
	PartitionLeaderEpoch int32
	Magic                int8
	Attributes           int16
	LastOffsetDelta      int32
	FirstTimestamp       int64
	MaxTimestamp         int64
	ProducerID           int64
	ProducerEpoch        int16
	BaseSequence         int32
	RecordsCount         int32
}

// IsTransactional reports whether the batch was produced within a
// transaction (attribute bit 4).
func (h RecordBatchHeader) IsTransactional() bool {
	return h.Attributes&recordBatchAttrTransactionalBit != 0
}

// IsControlBatch reports whether the batch is a control (marker) batch
// rather than a data batch (attribute bit 5).
func (h RecordBatchHeader) IsControlBatch() bool {
	return h.Attributes&recordBatchAttrControlBit != 0
}

// LastSequence returns the final sequence number covered by the batch.
func (h RecordBatchHeader) LastSequence() int32 {
	return h.BaseSequence + h.LastOffsetDelta
}

// ErrRecordBatchTooShort is returned by DecodeRecordBatchHeader when the
// buffer does not contain a full v2 batch header.
var ErrRecordBatchTooShort = fmt.Errorf("record batch shorter than header")

// DecodeRecordBatchHeader parses the fixed-size v2 record batch header from
// the front of data, the same layout Produce requests and Fetch responses
// carry their record sets in.
func DecodeRecordBatchHeader(data []byte) (RecordBatchHeader, error) {
	if len(data) < recordBatchHeaderSize {
		return RecordBatchHeader{}, ErrRecordBatchTooShort
	}

	var h RecordBatchHeader
	h.BaseOffset = int64(binary.BigEndian.Uint64(data[0:8]))
	// data[8:12] batchLength, data[12:16] partitionLeaderEpoch
	h.PartitionLeaderEpoch = int32(binary.BigEndian.Uint32(data[12:16]))
	h.Magic = int8(data[16])
	// data[17:21] crc
	h.Attributes = int16(binary.BigEndian.Uint16(data[21:23]))
	h.LastOffsetDelta = int32(binary.BigEndian.Uint32(data[23:27]))
	h.FirstTimestamp = int64(binary.BigEndian.Uint64(data[27:35]))
	h.MaxTimestamp = int64(binary.BigEndian.Uint64(data[35:43]))
	h.ProducerID = int64(binary.BigEndian.Uint64(data[43:51]))
	h.ProducerEpoch = int16(binary.BigEndian.Uint16(data[51:53]))
	h.BaseSequence = int32(binary.BigEndian.Uint32(data[53:57]))
	h.RecordsCount = int32(binary.BigEndian.Uint32(data[57:61]))
	return h, nil
}

// EncodeControlBatch builds a minimal v2 control record batch carrying a
// single commit/abort marker record for (producerID, producerEpoch) at
// baseOffset. Real Kafka control records also encode a key/value pair
// identifying the marker version and type; this only needs to round-trip
// within this broker; it is never read by an external Kafka client's
// decoder directly, only replayed through this broker's own PPSM.
func EncodeControlBatch(baseOffset int64, producerID int64, producerEpoch int16, commit bool) []byte {
	buf := make([]byte, recordBatchHeaderSize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(baseOffset))
	binary.BigEndian.PutUint32(buf[12:16], 0)
	buf[16] = 2 // magic v2
	attrs := int16(recordBatchAttrControlBit)
	binary.BigEndian.PutUint16(buf[21:23], uint16(attrs))
	binary.BigEndian.PutUint32(buf[23:27], 0) // lastOffsetDelta: single record
	binary.BigEndian.PutUint64(buf[43:51], uint64(producerID))
	binary.BigEndian.PutUint16(buf[51:53], uint16(producerEpoch))
	binary.BigEndian.PutUint32(buf[57:61], 1) // recordsCount

	markerType := byte(0) // 0 = abort
	if commit {
		markerType = 1
	}
	return append(buf, markerType)
}

// DecodeControlBatchMarker reports whether the control batch written by
// EncodeControlBatch is a commit marker.
func DecodeControlBatchMarker(data []byte) (commit bool, ok bool) {
	if len(data) <= recordBatchHeaderSize {
		return false, false
	}
	return data[recordBatchHeaderSize] == 1, true
}

// EncodeDataBatchHeader builds a v2 record batch header for a data batch
// carrying recordsCount records numbered [baseSequence, baseSequence+recordsCount).
// The caller's record payload, if any, may be appended after the returned
// bytes; this broker only ever inspects the header.
func EncodeDataBatchHeader(producerID int64, producerEpoch int16, baseSequence int32, recordsCount int32, transactional bool) []byte {
	buf := make([]byte, recordBatchHeaderSize)
	buf[16] = 2 // magic v2
	attrs := int16(0)
	if transactional {
		attrs |= recordBatchAttrTransactionalBit
	}
	binary.BigEndian.PutUint16(buf[21:23], uint16(attrs))
	lastOffsetDelta := int32(0)
	if recordsCount > 0 {
		lastOffsetDelta = recordsCount - 1
	}
	binary.BigEndian.PutUint32(buf[23:27], uint32(lastOffsetDelta))
	binary.BigEndian.PutUint64(buf[43:51], uint64(producerID))
	binary.BigEndian.PutUint16(buf[51:53], uint16(producerEpoch))
	binary.BigEndian.PutUint32(buf[53:57], uint32(baseSequence))
	binary.BigEndian.PutUint32(buf[57:61], uint32(recordsCount))
	return buf
}
