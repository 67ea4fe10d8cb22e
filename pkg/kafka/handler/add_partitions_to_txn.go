// Copyright 2025 Takhin Data, Inc.

package handler

import (
	"bytes"
	"fmt"
	"io"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
	"github.com/takhin-data/takhin/pkg/logger"
	"github.com/takhin-data/takhin/pkg/txn"
)

// handleAddPartitionsToTxn handles AddPartitionsToTxn requests
func (h *Handler) handleAddPartitionsToTxn(reader io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	req, err := protocol.DecodeAddPartitionsToTxnRequest(reader, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	logger.Info("add partitions to txn request",
		"component", "kafka-handler",
		"transactional_id", req.TransactionalID,
		"producer_id", req.ProducerID,
		"producer_epoch", req.ProducerEpoch,
		"num_topics", len(req.Topics),
	)

	partitions := make([]txn.TopicPartition, 0)
	for _, topic := range req.Topics {
		for _, partition := range topic.Partitions {
			partitions = append(partitions, txn.TopicPartition{Topic: topic.Name, Partition: partition})
		}
	}

	addErr := h.txnCoordinator.AddPartitionsToTxn(req.TransactionalID, req.ProducerID, req.ProducerEpoch, partitions)
	errCode := txnErrorCode(addErr)

	// Real Kafka can report a distinct error code per partition; this
	// coordinator validates the whole request atomically, so every
	// partition in the request carries the same outcome.
	results := make([]protocol.AddPartitionsToTxnTopicResult, 0, len(req.Topics))
	for _, topic := range req.Topics {
		partitionResults := make([]protocol.AddPartitionsToTxnPartitionResult, len(topic.Partitions))
		for i, partition := range topic.Partitions {
			partitionResults[i] = protocol.AddPartitionsToTxnPartitionResult{
				PartitionIndex: partition,
				ErrorCode:      errCode,
			}
		}

		results = append(results, protocol.AddPartitionsToTxnTopicResult{
			Name:             topic.Name,
			PartitionResults: partitionResults,
		})

		if addErr == nil {
			logger.Info("added partitions to transaction",
				"component", "kafka-handler",
				"transactional_id", req.TransactionalID,
				"topic", topic.Name,
				"num_partitions", len(topic.Partitions),
			)
		}
	}

	if addErr != nil {
		logger.Warn("add partitions to txn failed",
			"component", "kafka-handler",
			"transactional_id", req.TransactionalID,
			"error", addErr,
		)
	}

	resp := &protocol.AddPartitionsToTxnResponse{
		ThrottleTimeMs: 0,
		Results:        results,
	}

	// Encode response
	var buf bytes.Buffer
	if err := protocol.WriteAddPartitionsToTxnResponse(&buf, header, resp); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}

	return buf.Bytes(), nil
}
