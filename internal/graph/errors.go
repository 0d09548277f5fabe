package graph

import "fmt"

// maxBodySnippet bounds how much of a raw response body is kept for
// diagnosis.
const maxBodySnippet = 512

// ProtocolError indicates a malformed or non-2xx GraphQL response.
type ProtocolError struct {
	Status int
	Body   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("graphql protocol error (status %d): %s", e.Status, e.Body)
}

func newProtocolError(status int, body []byte) *ProtocolError {
	s := string(body)
	if len(s) > maxBodySnippet {
		s = s[:maxBodySnippet]
	}
	return &ProtocolError{Status: status, Body: s}
}
