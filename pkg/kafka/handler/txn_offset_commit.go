// Copyright 2025 Takhin Data, Inc.

package handler

import (
	"bytes"
	"fmt"
	"io"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
	"github.com/takhin-data/takhin/pkg/logger"
)

// handleTxnOffsetCommit handles TxnOffsetCommit requests
func (h *Handler) handleTxnOffsetCommit(reader io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	req, err := protocol.DecodeTxnOffsetCommitRequest(reader, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	logger.Info("txn offset commit request",
		"component", "kafka-handler",
		"transactional_id", req.TransactionalID,
		"group_id", req.GroupID,
		"producer_id", req.ProducerID,
		"producer_epoch", req.ProducerEpoch,
		"num_topics", len(req.Topics),
	)

	commitErr := h.txnCoordinator.TxnOffsetCommit(req.TransactionalID, req.GroupID, req.ProducerID, req.ProducerEpoch)
	errCode := txnErrorCode(commitErr)

	results := make([]protocol.TxnOffsetCommitTopicResult, 0, len(req.Topics))
	for _, topic := range req.Topics {
		partitionResults := make([]protocol.TxnOffsetCommitPartitionResult, len(topic.Partitions))
		for i, partition := range topic.Partitions {
			partitionResults[i] = protocol.TxnOffsetCommitPartitionResult{
				PartitionIndex: partition.PartitionIndex,
				ErrorCode:      errCode,
			}
		}

		results = append(results, protocol.TxnOffsetCommitTopicResult{
			Name:       topic.Name,
			Partitions: partitionResults,
		})

		logger.Info("committed offsets in transaction",
			"component", "kafka-handler",
			"transactional_id", req.TransactionalID,
			"group_id", req.GroupID,
			"topic", topic.Name,
			"error", commitErr,
			"total_count", len(topic.Partitions),
		)
	}

	resp := &protocol.TxnOffsetCommitResponse{
		ThrottleTimeMs: 0,
		Topics:         results,
	}

	var buf bytes.Buffer
	if err := protocol.WriteTxnOffsetCommitResponse(&buf, header, resp); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}

	return buf.Bytes(), nil
}
