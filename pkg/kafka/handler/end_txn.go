// Copyright 2025 Takhin Data, Inc.

package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
	"github.com/takhin-data/takhin/pkg/logger"
)

// handleEndTxn handles EndTxn requests
func (h *Handler) handleEndTxn(reader io.Reader, header *protocol.RequestHeader) ([]byte, error) {
	req, err := protocol.DecodeEndTxnRequest(reader, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	action := "abort"
	if req.Committed {
		action = "commit"
	}

	logger.Info("end txn request",
		"component", "kafka-handler",
		"transactional_id", req.TransactionalID,
		"producer_id", req.ProducerID,
		"producer_epoch", req.ProducerEpoch,
		"action", action,
	)

	endErr := h.txnCoordinator.EndTxn(context.Background(), req.TransactionalID, req.ProducerID, req.ProducerEpoch, req.Committed)
	errorCode := txnErrorCode(endErr)

	if errorCode == protocol.None {
		logger.Info("transaction completed",
			"component", "kafka-handler",
			"transactional_id", req.TransactionalID,
			"action", action,
		)
	} else {
		logger.Warn("transaction end failed",
			"component", "kafka-handler",
			"transactional_id", req.TransactionalID,
			"action", action,
			"error", endErr,
		)
	}

	resp := &protocol.EndTxnResponse{
		ThrottleTimeMs: 0,
		ErrorCode:      errorCode,
	}

	// Encode response
	var buf bytes.Buffer
	if err := protocol.WriteEndTxnResponse(&buf, header, resp); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}

	return buf.Bytes(), nil
}
