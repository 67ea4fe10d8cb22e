// Copyright 2025 Takhin Data, Inc.

package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
	"github.com/takhin-data/takhin/pkg/logger"
	"github.com/takhin-data/takhin/pkg/txn"
)

// handleListTransactions handles the admin-plane ListTransactions request,
// returning every transactional id this coordinator tracks that matches the
// requested state and producer id filters.
func (h *Handler) handleListTransactions(reader io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	req, err := protocol.DecodeListTransactionsRequest(reader, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	logger.Info("list transactions request",
		"component", "kafka-handler",
		"state_filters", req.StateFilters,
		"producer_id_filters", req.ProducerIDFilters,
	)

	all := h.txnCoordinator.ListTransactions()
	results := make([]protocol.ListTransactionsResult, 0, len(all))
	for _, meta := range all {
		if !matchesStateFilter(meta.State, req.StateFilters) || !matchesProducerIDFilter(meta.ProducerID, req.ProducerIDFilters) {
			continue
		}
		results = append(results, protocol.ListTransactionsResult{
			TransactionalID:  meta.TransactionalID,
			ProducerID:       meta.ProducerID,
			TransactionState: meta.State.String(),
		})
	}

	resp := &protocol.ListTransactionsResponse{
		ErrorCode:         protocol.None,
		TransactionStates: results,
	}

	var buf bytes.Buffer
	if err := protocol.WriteListTransactionsResponse(&buf, header, resp); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return buf.Bytes(), nil
}

func matchesStateFilter(state txn.TransactionStatus, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f == state.String() {
			return true
		}
	}
	return false
}

func matchesProducerIDFilter(producerID int64, filters []int64) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f == producerID {
			return true
		}
	}
	return false
}

// handleDescribeTransactions handles the admin-plane DescribeTransactions
// request, returning full metadata (state, timeouts, participant
// partitions) for each requested transactional id.
func (h *Handler) handleDescribeTransactions(reader io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	req, err := protocol.DecodeDescribeTransactionsRequest(reader, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	logger.Info("describe transactions request",
		"component", "kafka-handler",
		"transactional_ids", req.TransactionalIDs,
	)

	states := make([]protocol.DescribeTransactionsResult, 0, len(req.TransactionalIDs))
	for _, id := range req.TransactionalIDs {
		meta, ok := h.txnCoordinator.DescribeTransaction(id)
		if !ok {
			states = append(states, protocol.DescribeTransactionsResult{
				ErrorCode:       protocol.InvalidProducerIDMapping,
				TransactionalID: id,
			})
			continue
		}

		byTopic := make(map[string][]int32)
		for tp := range meta.Partitions {
			byTopic[tp.Topic] = append(byTopic[tp.Topic], tp.Partition)
		}
		topics := make([]protocol.DescribeTransactionsTopicResult, 0, len(byTopic))
		for topic, partitions := range byTopic {
			topics = append(topics, protocol.DescribeTransactionsTopicResult{Topic: topic, Partitions: partitions})
		}

		states = append(states, protocol.DescribeTransactionsResult{
			ErrorCode:              protocol.None,
			TransactionalID:        meta.TransactionalID,
			TransactionState:       meta.State.String(),
			TransactionTimeoutMs:   meta.TxnTimeoutMs,
			TransactionStartTimeMs: meta.TxnStartTimestamp,
			ProducerID:             meta.ProducerID,
			ProducerEpoch:          meta.ProducerEpoch,
			Topics:                 topics,
		})
	}

	resp := &protocol.DescribeTransactionsResponse{TransactionStates: states}

	var buf bytes.Buffer
	if err := protocol.WriteDescribeTransactionsResponse(&buf, header, resp); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return buf.Bytes(), nil
}

// handleDescribeProducers handles the admin-plane DescribeProducers
// request, reporting one producer's tracked PPSM state and abort history
// for a single (topic, partition), using the partition log's pid-keyed
// aborted-transaction lookup rather than scanning every aborted entry.
func (h *Handler) handleDescribeProducers(reader io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	req, err := protocol.DecodeDescribeProducersRequest(reader, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	logger.Info("describe producers request",
		"component", "kafka-handler",
		"topic", req.Topic,
		"partition", req.Partition,
		"producer_id", req.ProducerID,
	)

	resp := &protocol.DescribeProducersResponse{ProducerID: req.ProducerID}

	t, ok := h.topicManager.GetTopic(req.Topic)
	if !ok {
		resp.ErrorCode = protocol.UnknownTopicOrPartition
	} else if pl, ok := t.PartitionLog(req.Partition); !ok {
		resp.ErrorCode = protocol.UnknownTopicOrPartition
	} else if entry, aborted, ok := pl.DescribeProducer(req.ProducerID); !ok {
		resp.ErrorCode = protocol.UnknownProducerID
	} else {
		resp.ErrorCode = protocol.None
		resp.ProducerEpoch = entry.Epoch
		resp.LastSequence = entry.LastSeq
		resp.LastOffset = entry.LastOffset
		resp.CurrentTxnFirstOffset = entry.CurrentTxnFirstOffset
		resp.AbortedRanges = make([]protocol.DescribeProducersAbortedRange, len(aborted))
		for i, a := range aborted {
			resp.AbortedRanges[i] = protocol.DescribeProducersAbortedRange{
				FirstOffset:      a.FirstOffset,
				LastOffset:       a.LastOffset,
				LastStableOffset: a.LastStableOffset,
			}
		}
	}

	var buf bytes.Buffer
	if err := protocol.WriteDescribeProducersResponse(&buf, header, resp); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return buf.Bytes(), nil
}

// handleAbortTransaction handles the admin-plane AbortTransaction request:
// a marker-only abort of one participant partition, routed straight
// through the coordinator's marker-only path without touching any
// transactional id's tracked metadata.
func (h *Handler) handleAbortTransaction(reader io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	req, err := protocol.DecodeAbortTransactionRequest(reader, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	logger.Info("abort transaction request",
		"component", "kafka-handler",
		"topic", req.Topic,
		"partition", req.Partition,
		"producer_id", req.ProducerID,
		"producer_epoch", req.ProducerEpoch,
		"coordinator_epoch", req.CoordinatorEpoch,
	)

	partition := txn.TopicPartition{Topic: req.Topic, Partition: req.Partition}
	abortErr := h.txnCoordinator.AbortTransactionMarkerOnly(context.Background(), partition, req.ProducerID, req.ProducerEpoch, req.CoordinatorEpoch)
	errCode := protocol.None
	if abortErr != nil {
		errCode = protocol.UnknownServerError
		logger.Warn("abort transaction failed",
			"component", "kafka-handler",
			"topic", req.Topic,
			"partition", req.Partition,
			"error", abortErr,
		)
	}

	resp := &protocol.AbortTransactionResponse{ErrorCode: errCode}

	var buf bytes.Buffer
	if err := protocol.WriteAbortTransactionResponse(&buf, header, resp); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return buf.Bytes(), nil
}
