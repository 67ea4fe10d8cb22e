// Copyright 2025 Takhin Data, Inc.

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ListTransactionsRequest filters the set of transactional ids the admin
// ListTransactions operation returns. Empty filters match everything.
type ListTransactionsRequest struct {
	StateFilters      []string
	ProducerIDFilters []int64
}

// ListTransactionsResult describes one transactional id in a
// ListTransactions response.
type ListTransactionsResult struct {
	TransactionalID string
	ProducerID      int64
	TransactionState string
}

// ListTransactionsResponse represents the response for ListTransactions.
type ListTransactionsResponse struct {
	ErrorCode           ErrorCode
	UnknownStateFilters []string
	TransactionStates   []ListTransactionsResult
}

// DecodeListTransactionsRequest decodes a ListTransactions request.
func DecodeListTransactionsRequest(r io.Reader, version int16) (*ListTransactionsRequest, error) {
	stateLen, err := ReadArrayLength(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read state filters length: %w", err)
	}
	states := make([]string, stateLen)
	for i := int32(0); i < stateLen; i++ {
		s, err := ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read state filter: %w", err)
		}
		states[i] = s
	}

	pidLen, err := ReadArrayLength(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read producer id filters length: %w", err)
	}
	pids := make([]int64, pidLen)
	for i := int32(0); i < pidLen; i++ {
		pid, err := ReadInt64(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read producer id filter: %w", err)
		}
		pids[i] = pid
	}

	return &ListTransactionsRequest{StateFilters: states, ProducerIDFilters: pids}, nil
}

// EncodeListTransactionsRequest encodes a ListTransactions request.
func EncodeListTransactionsRequest(req *ListTransactionsRequest, version int16) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = appendArrayLen(buf, len(req.StateFilters))
	for _, s := range req.StateFilters {
		buf = appendString(buf, s)
	}
	buf = appendArrayLen(buf, len(req.ProducerIDFilters))
	for _, pid := range req.ProducerIDFilters {
		buf = appendInt64(buf, pid)
	}
	return buf, nil
}

// EncodeListTransactionsResponse encodes a ListTransactions response.
func EncodeListTransactionsResponse(resp *ListTransactionsResponse, version int16) ([]byte, error) {
	buf := make([]byte, 0, 128)
	buf = appendInt16(buf, int16(resp.ErrorCode))
	buf = appendArrayLen(buf, len(resp.UnknownStateFilters))
	for _, s := range resp.UnknownStateFilters {
		buf = appendString(buf, s)
	}
	buf = appendArrayLen(buf, len(resp.TransactionStates))
	for _, ts := range resp.TransactionStates {
		buf = appendString(buf, ts.TransactionalID)
		buf = appendInt64(buf, ts.ProducerID)
		buf = appendString(buf, ts.TransactionState)
	}
	return buf, nil
}

// DecodeListTransactionsResponse decodes a ListTransactions response, the
// mirror of EncodeListTransactionsResponse.
func DecodeListTransactionsResponse(r io.Reader, version int16) (*ListTransactionsResponse, error) {
	errCode, err := ReadInt16(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read error code: %w", err)
	}

	unknownLen, err := ReadArrayLength(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read unknown state filters length: %w", err)
	}
	unknown := make([]string, unknownLen)
	for i := int32(0); i < unknownLen; i++ {
		s, err := ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read unknown state filter: %w", err)
		}
		unknown[i] = s
	}

	statesLen, err := ReadArrayLength(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction states length: %w", err)
	}
	states := make([]ListTransactionsResult, statesLen)
	for i := int32(0); i < statesLen; i++ {
		txnID, err := ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read transactional id: %w", err)
		}
		pid, err := ReadInt64(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read producer id: %w", err)
		}
		state, err := ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction state: %w", err)
		}
		states[i] = ListTransactionsResult{TransactionalID: txnID, ProducerID: pid, TransactionState: state}
	}

	return &ListTransactionsResponse{ErrorCode: ErrorCode(errCode), UnknownStateFilters: unknown, TransactionStates: states}, nil
}

// WriteListTransactionsResponse writes the correlation id and encoded body
// for a ListTransactions response.
func WriteListTransactionsResponse(w io.Writer, header *RequestHeader, resp *ListTransactionsResponse) error {
	respData, err := EncodeListTransactionsResponse(resp, header.APIVersion)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, header.CorrelationID); err != nil {
		return err
	}
	_, err = w.Write(respData)
	return err
}

// DescribeTransactionsRequest names the transactional ids to describe.
type DescribeTransactionsRequest struct {
	TransactionalIDs []string
}

// DescribeTransactionsTopicResult lists the partitions of one topic
// participating in a described transaction.
type DescribeTransactionsTopicResult struct {
	Topic      string
	Partitions []int32
}

// DescribeTransactionsResult is the full per-transactional-id detail
// DescribeTransactions returns.
type DescribeTransactionsResult struct {
	ErrorCode              ErrorCode
	TransactionalID        string
	TransactionState       string
	TransactionTimeoutMs   int32
	TransactionStartTimeMs int64
	ProducerID             int64
	ProducerEpoch          int16
	Topics                 []DescribeTransactionsTopicResult
}

// DescribeTransactionsResponse represents the response for
// DescribeTransactions.
type DescribeTransactionsResponse struct {
	TransactionStates []DescribeTransactionsResult
}

// DecodeDescribeTransactionsRequest decodes a DescribeTransactions request.
func DecodeDescribeTransactionsRequest(r io.Reader, version int16) (*DescribeTransactionsRequest, error) {
	idLen, err := ReadArrayLength(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactional ids length: %w", err)
	}
	ids := make([]string, idLen)
	for i := int32(0); i < idLen; i++ {
		id, err := ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read transactional id: %w", err)
		}
		ids[i] = id
	}
	return &DescribeTransactionsRequest{TransactionalIDs: ids}, nil
}

// EncodeDescribeTransactionsRequest encodes a DescribeTransactions request.
func EncodeDescribeTransactionsRequest(req *DescribeTransactionsRequest, version int16) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = appendArrayLen(buf, len(req.TransactionalIDs))
	for _, id := range req.TransactionalIDs {
		buf = appendString(buf, id)
	}
	return buf, nil
}

// EncodeDescribeTransactionsResponse encodes a DescribeTransactions
// response.
func EncodeDescribeTransactionsResponse(resp *DescribeTransactionsResponse, version int16) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = appendArrayLen(buf, len(resp.TransactionStates))
	for _, ts := range resp.TransactionStates {
		buf = appendInt16(buf, int16(ts.ErrorCode))
		buf = appendString(buf, ts.TransactionalID)
		buf = appendString(buf, ts.TransactionState)
		buf = appendInt32(buf, ts.TransactionTimeoutMs)
		buf = appendInt64(buf, ts.TransactionStartTimeMs)
		buf = appendInt64(buf, ts.ProducerID)
		buf = appendInt16(buf, ts.ProducerEpoch)
		buf = appendArrayLen(buf, len(ts.Topics))
		for _, topic := range ts.Topics {
			buf = appendString(buf, topic.Topic)
			buf = appendArrayLen(buf, len(topic.Partitions))
			for _, p := range topic.Partitions {
				buf = appendInt32(buf, p)
			}
		}
	}
	return buf, nil
}

// DecodeDescribeTransactionsResponse decodes a DescribeTransactions
// response, the mirror of EncodeDescribeTransactionsResponse.
func DecodeDescribeTransactionsResponse(r io.Reader, version int16) (*DescribeTransactionsResponse, error) {
	statesLen, err := ReadArrayLength(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction states length: %w", err)
	}
	states := make([]DescribeTransactionsResult, statesLen)
	for i := int32(0); i < statesLen; i++ {
		errCode, err := ReadInt16(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read error code: %w", err)
		}
		txnID, err := ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read transactional id: %w", err)
		}
		state, err := ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction state: %w", err)
		}
		timeoutMs, err := ReadInt32(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction timeout: %w", err)
		}
		startMs, err := ReadInt64(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction start time: %w", err)
		}
		pid, err := ReadInt64(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read producer id: %w", err)
		}
		epoch, err := ReadInt16(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read producer epoch: %w", err)
		}
		topicsLen, err := ReadArrayLength(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read topics length: %w", err)
		}
		topics := make([]DescribeTransactionsTopicResult, topicsLen)
		for j := int32(0); j < topicsLen; j++ {
			name, err := ReadString(r)
			if err != nil {
				return nil, fmt.Errorf("failed to read topic name: %w", err)
			}
			partLen, err := ReadArrayLength(r)
			if err != nil {
				return nil, fmt.Errorf("failed to read partitions length: %w", err)
			}
			parts := make([]int32, partLen)
			for k := int32(0); k < partLen; k++ {
				p, err := ReadInt32(r)
				if err != nil {
					return nil, fmt.Errorf("failed to read partition: %w", err)
				}
				parts[k] = p
			}
			topics[j] = DescribeTransactionsTopicResult{Topic: name, Partitions: parts}
		}

		states[i] = DescribeTransactionsResult{
			ErrorCode:              ErrorCode(errCode),
			TransactionalID:        txnID,
			TransactionState:       state,
			TransactionTimeoutMs:   timeoutMs,
			TransactionStartTimeMs: startMs,
			ProducerID:             pid,
			ProducerEpoch:          epoch,
			Topics:                 topics,
		}
	}
	return &DescribeTransactionsResponse{TransactionStates: states}, nil
}

// WriteDescribeTransactionsResponse writes the correlation id and encoded
// body for a DescribeTransactions response.
func WriteDescribeTransactionsResponse(w io.Writer, header *RequestHeader, resp *DescribeTransactionsResponse) error {
	respData, err := EncodeDescribeTransactionsResponse(resp, header.APIVersion)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, header.CorrelationID); err != nil {
		return err
	}
	_, err = w.Write(respData)
	return err
}

// AbortTransactionRequest is the admin-plane abortTransaction operation
// (spec.md 4.3): force an abort marker onto one participant partition,
// independent of whatever state the coordinator currently tracks.
type AbortTransactionRequest struct {
	Topic            string
	Partition        int32
	ProducerID       int64
	ProducerEpoch    int16
	CoordinatorEpoch int32
}

// AbortTransactionResponse represents the response for AbortTransaction.
type AbortTransactionResponse struct {
	ErrorCode ErrorCode
}

// DecodeAbortTransactionRequest decodes an AbortTransaction request.
func DecodeAbortTransactionRequest(r io.Reader, version int16) (*AbortTransactionRequest, error) {
	topic, err := ReadString(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic: %w", err)
	}
	partition, err := ReadInt32(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition: %w", err)
	}
	producerID, err := ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read producer_id: %w", err)
	}
	producerEpoch, err := ReadInt16(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read producer_epoch: %w", err)
	}
	coordinatorEpoch, err := ReadInt32(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read coordinator_epoch: %w", err)
	}
	return &AbortTransactionRequest{
		Topic:            topic,
		Partition:        partition,
		ProducerID:       producerID,
		ProducerEpoch:    producerEpoch,
		CoordinatorEpoch: coordinatorEpoch,
	}, nil
}

// EncodeAbortTransactionRequest encodes an AbortTransaction request.
func EncodeAbortTransactionRequest(req *AbortTransactionRequest, version int16) ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = appendString(buf, req.Topic)
	buf = appendInt32(buf, req.Partition)
	buf = appendInt64(buf, req.ProducerID)
	buf = appendInt16(buf, req.ProducerEpoch)
	buf = appendInt32(buf, req.CoordinatorEpoch)
	return buf, nil
}

// EncodeAbortTransactionResponse encodes an AbortTransaction response.
func EncodeAbortTransactionResponse(resp *AbortTransactionResponse, version int16) ([]byte, error) {
	buf := make([]byte, 0, 2)
	buf = appendInt16(buf, int16(resp.ErrorCode))
	return buf, nil
}

// DecodeAbortTransactionResponse decodes an AbortTransaction response, the
// mirror of EncodeAbortTransactionResponse.
func DecodeAbortTransactionResponse(r io.Reader, version int16) (*AbortTransactionResponse, error) {
	errCode, err := ReadInt16(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read error code: %w", err)
	}
	return &AbortTransactionResponse{ErrorCode: ErrorCode(errCode)}, nil
}

// WriteAbortTransactionResponse writes the correlation id and encoded body
// for an AbortTransaction response.
func WriteAbortTransactionResponse(w io.Writer, header *RequestHeader, resp *AbortTransactionResponse) error {
	respData, err := EncodeAbortTransactionResponse(resp, header.APIVersion)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, header.CorrelationID); err != nil {
		return err
	}
	_, err = w.Write(respData)
	return err
}

// DescribeProducersRequest names one (topic, partition, producer id) whose
// tracked producer state and abort history to report.
type DescribeProducersRequest struct {
	Topic      string
	Partition  int32
	ProducerID int64
}

// DescribeProducersAbortedRange is one aborted-transaction range recorded
// for the described producer.
type DescribeProducersAbortedRange struct {
	FirstOffset      int64
	LastOffset       int64
	LastStableOffset int64
}

// DescribeProducersResponse reports a single producer's tracked state: its
// current epoch, last sequence and offset, any in-flight transaction's
// first offset, and its full abort history on this partition.
type DescribeProducersResponse struct {
	ErrorCode             ErrorCode
	ProducerID            int64
	ProducerEpoch         int16
	LastSequence          int32
	LastOffset            int64
	CurrentTxnFirstOffset int64
	AbortedRanges         []DescribeProducersAbortedRange
}

// DecodeDescribeProducersRequest decodes a DescribeProducers request.
func DecodeDescribeProducersRequest(r io.Reader, version int16) (*DescribeProducersRequest, error) {
	topic, err := ReadString(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic: %w", err)
	}
	partition, err := ReadInt32(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition: %w", err)
	}
	producerID, err := ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read producer_id: %w", err)
	}
	return &DescribeProducersRequest{Topic: topic, Partition: partition, ProducerID: producerID}, nil
}

// EncodeDescribeProducersRequest encodes a DescribeProducers request.
func EncodeDescribeProducersRequest(req *DescribeProducersRequest, version int16) ([]byte, error) {
	buf := make([]byte, 0, 24)
	buf = appendString(buf, req.Topic)
	buf = appendInt32(buf, req.Partition)
	buf = appendInt64(buf, req.ProducerID)
	return buf, nil
}

// EncodeDescribeProducersResponse encodes a DescribeProducers response.
func EncodeDescribeProducersResponse(resp *DescribeProducersResponse, version int16) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = appendInt16(buf, int16(resp.ErrorCode))
	buf = appendInt64(buf, resp.ProducerID)
	buf = appendInt16(buf, resp.ProducerEpoch)
	buf = appendInt32(buf, resp.LastSequence)
	buf = appendInt64(buf, resp.LastOffset)
	buf = appendInt64(buf, resp.CurrentTxnFirstOffset)
	buf = appendArrayLen(buf, len(resp.AbortedRanges))
	for _, ar := range resp.AbortedRanges {
		buf = appendInt64(buf, ar.FirstOffset)
		buf = appendInt64(buf, ar.LastOffset)
		buf = appendInt64(buf, ar.LastStableOffset)
	}
	return buf, nil
}

// DecodeDescribeProducersResponse decodes a DescribeProducers response, the
// mirror of EncodeDescribeProducersResponse.
func DecodeDescribeProducersResponse(r io.Reader, version int16) (*DescribeProducersResponse, error) {
	errCode, err := ReadInt16(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read error code: %w", err)
	}
	producerID, err := ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read producer_id: %w", err)
	}
	epoch, err := ReadInt16(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read producer_epoch: %w", err)
	}
	lastSeq, err := ReadInt32(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read last_sequence: %w", err)
	}
	lastOffset, err := ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read last_offset: %w", err)
	}
	currentTxnFirstOffset, err := ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read current_txn_first_offset: %w", err)
	}
	rangesLen, err := ReadArrayLength(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read aborted ranges length: %w", err)
	}
	ranges := make([]DescribeProducersAbortedRange, rangesLen)
	for i := int32(0); i < rangesLen; i++ {
		first, err := ReadInt64(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read first_offset: %w", err)
		}
		last, err := ReadInt64(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read last_offset: %w", err)
		}
		lso, err := ReadInt64(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read last_stable_offset: %w", err)
		}
		ranges[i] = DescribeProducersAbortedRange{FirstOffset: first, LastOffset: last, LastStableOffset: lso}
	}
	return &DescribeProducersResponse{
		ErrorCode:             ErrorCode(errCode),
		ProducerID:            producerID,
		ProducerEpoch:         epoch,
		LastSequence:          lastSeq,
		LastOffset:            lastOffset,
		CurrentTxnFirstOffset: currentTxnFirstOffset,
		AbortedRanges:         ranges,
	}, nil
}

// WriteDescribeProducersResponse writes the correlation id and encoded body
// for a DescribeProducers response.
func WriteDescribeProducersResponse(w io.Writer, header *RequestHeader, resp *DescribeProducersResponse) error {
	respData, err := EncodeDescribeProducersResponse(resp, header.APIVersion)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, header.CorrelationID); err != nil {
		return err
	}
	_, err = w.Write(respData)
	return err
}

func appendArrayLen(buf []byte, n int) []byte {
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(n))
	return append(buf, l...)
}

func appendString(buf []byte, s string) []byte {
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(s)))
	buf = append(buf, l...)
	return append(buf, []byte(s)...)
}

func appendInt16(buf []byte, v int16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return append(buf, b...)
}

func appendInt32(buf []byte, v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return append(buf, b...)
}

func appendInt64(buf []byte, v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return append(buf, b...)
}
