package evmrpc

import (
	"errors"
	"fmt"
	"strings"
)

// maxBodySnippet bounds how much of a raw response body is carried inside a
// ProtocolError for diagnosis.
const maxBodySnippet = 512

// rangeExceededCode is the provider error class for eth_getLogs queries
// spanning too many blocks.
const rangeExceededCode = -32005

// RPCError is a JSON-RPC 2.0 error object returned by the provider.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RangeExceeded reports whether this error is the provider's "block range
// too large" rejection, which is the only retryable error class.
func (e *RPCError) RangeExceeded() bool {
	return e.Code == rangeExceededCode || strings.Contains(strings.ToLower(e.Message), "limit exceeded")
}

// ProtocolError indicates a malformed or non-2xx HTTP response. Body holds a
// bounded snippet of the raw payload.
type ProtocolError struct {
	Status int
	Body   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error (status %d): %s", e.Status, e.Body)
}

// newProtocolError builds a ProtocolError with the body truncated.
func newProtocolError(status int, body []byte) *ProtocolError {
	s := string(body)
	if len(s) > maxBodySnippet {
		s = s[:maxBodySnippet]
	}
	return &ProtocolError{Status: status, Body: s}
}

// isRangeExceeded classifies an error from call as the retryable range class.
func isRangeExceeded(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.RangeExceeded()
}
