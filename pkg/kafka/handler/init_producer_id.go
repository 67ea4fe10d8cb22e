// Copyright 2025 Takhin Data, Inc.

package handler

import (
	"bytes"
	"fmt"
	"io"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
)

// handleInitProducerID 处理 InitProducerID 请求
func (h *Handler) handleInitProducerID(r io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	// Decode request
	req, err := protocol.DecodeInitProducerIDRequest(r, header.APIVersion)
	if err != nil {
		h.logger.Error("failed to decode init producer id request", "error", err)
		return nil, err
	}
	req.Header = header

	var txnIDStr string
	if req.TransactionalID != nil {
		txnIDStr = *req.TransactionalID
	} else {
		txnIDStr = "<none>"
	}

	h.logger.Info("init producer id request",
		"transactional_id", txnIDStr,
		"timeout_ms", req.TransactionTimeoutMs,
	)

	var transactionalID string
	if req.TransactionalID != nil {
		transactionalID = *req.TransactionalID
	}

	producerID, producerEpoch, err := h.txnCoordinator.InitProducerID(transactionalID, req.TransactionTimeoutMs)

	resp := &protocol.InitProducerIDResponse{
		ThrottleTimeMs: 0,
		ErrorCode:      txnErrorCode(err),
		ProducerID:     producerID,
		ProducerEpoch:  producerEpoch,
	}

	if err != nil {
		h.logger.Error("failed to allocate producer id", "transactional_id", txnIDStr, "error", err)
	} else {
		h.logger.Info("allocated producer id",
			"transactional_id", txnIDStr,
			"producer_id", producerID,
			"producer_epoch", producerEpoch,
		)
	}

	// Encode response
	respData := protocol.EncodeInitProducerIDResponse(resp, header.APIVersion)

	// Add response header
	var buf bytes.Buffer
	respHeader := &protocol.ResponseHeader{
		CorrelationID: header.CorrelationID,
	}
	if err := respHeader.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode response header: %w", err)
	}

	buf.Write(respData)
	return buf.Bytes(), nil
}
