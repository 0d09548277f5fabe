// Package graph implements the alternate chain data protocol: a GraphQL
// endpoint serving decoded factory events. It is a peer of the evmrpc client
// behind the same provider contract and shares none of its wire types.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one GraphQL round trip.
const DefaultTimeout = 30 * time.Second

// eventsQuery selects decoded factory events, newest first.
const eventsQuery = `
query TokenCreations($limit: Int!, $tos: [String!]) {
  events(first: $limit, where: {transactionTo: $tos}, orderBy: blockTimestamp, orderDirection: desc) {
    blockTimestamp
    transaction { from to }
    arguments { name value }
  }
}`

// Client issues GraphQL POST requests to an indexing service.
type Client struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a GraphQL client for the given endpoint. The access
// token is sent as a bearer credential on every request.
func NewClient(endpoint, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		accessToken: accessToken,
		client:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// graphQLRequest is the wire shape of one POST body.
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// graphQLResponse is the wire shape of one response body.
type graphQLResponse struct {
	Data   *eventsData    `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type eventsData struct {
	Events []rawEvent `json:"events"`
}

type rawEvent struct {
	BlockTimestamp int64          `json:"blockTimestamp"`
	Transaction    rawTransaction `json:"transaction"`
	Arguments      []Argument     `json:"arguments"`
}

type rawTransaction struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Argument is one named event argument; Value is an address or a string.
type Argument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TokenEvent is one decoded factory event row.
type TokenEvent struct {
	BlockTime time.Time
	TxFrom    string
	TxTo      string
	Arguments []Argument
}

// TokenEvents fetches up to limit factory events for the given factory
// address, newest first.
func (c *Client) TokenEvents(ctx context.Context, factoryAddress string, limit int) ([]TokenEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(graphQLRequest{
		Query: eventsQuery,
		Variables: map[string]interface{}{
			"limit": limit,
			"tos":   []string{factoryAddress},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newProtocolError(resp.StatusCode, respBody)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, newProtocolError(resp.StatusCode, respBody)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}
	if gqlResp.Data == nil {
		return nil, newProtocolError(resp.StatusCode, respBody)
	}

	events := make([]TokenEvent, 0, len(gqlResp.Data.Events))
	for _, raw := range gqlResp.Data.Events {
		events = append(events, TokenEvent{
			BlockTime: time.Unix(raw.BlockTimestamp, 0).UTC(),
			TxFrom:    raw.Transaction.From,
			TxTo:      raw.Transaction.To,
			Arguments: raw.Arguments,
		})
	}
	return events, nil
}
