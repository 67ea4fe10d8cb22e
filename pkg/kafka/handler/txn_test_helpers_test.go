// Copyright 2025 Takhin Data, Inc.

package handler

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takhin-data/takhin/pkg/kafka/protocol"
)

// initTestProducerID drives a real InitProducerID request through the
// handler so transaction tests exercise actual coordinator-assigned
// producer ids/epochs rather than hand-picked literals.
func initTestProducerID(t *testing.T, h *Handler, transactionalID string) (int64, int16) {
	t.Helper()

	req := &protocol.InitProducerIDRequest{
		TransactionalID:      &transactionalID,
		TransactionTimeoutMs: 60000,
		ProducerID:           -1,
		ProducerEpoch:        -1,
	}

	header := &protocol.RequestHeader{
		APIKey:        protocol.InitProducerIDKey,
		APIVersion:    0,
		CorrelationID: 1,
		ClientID:      "test-client",
	}

	reqData, err := protocol.EncodeInitProducerIDRequest(req, header.APIVersion)
	require.NoError(t, err)

	respData, err := h.handleInitProducerID(bytes.NewReader(reqData), header)
	require.NoError(t, err)

	respReader := bytes.NewReader(respData)
	var correlationID int32
	require.NoError(t, binary.Read(respReader, binary.BigEndian, &correlationID))

	respBody, err := io.ReadAll(respReader)
	require.NoError(t, err)

	resp, err := protocol.DecodeInitProducerIDResponse(respBody, header.APIVersion)
	require.NoError(t, err)
	require.Equal(t, protocol.None, resp.ErrorCode)

	return resp.ProducerID, resp.ProducerEpoch
}
