package evmrpc

import (
	"context"
	"encoding/json"
	"net/http"

	"tokenguard/internal/hexutil"
)

// fetchOutcome is the tri-state result of one eth_getLogs attempt. The
// range-halving logic is a plain state transition over these variants rather
// than catch-based control flow.
type fetchOutcome int

const (
	fetchOK fetchOutcome = iota
	fetchRangeExceeded
	fetchFatal
)

// Logs returns decoded event logs for the query via eth_getLogs.
//
// The requested span is pre-clamped to MaxBlockSpan by moving fromBlock
// forward. If the provider still rejects the request with its range-limit
// error class, the remaining span is halved and the request retried; once
// the span is at or below MinBlockSpan a further rejection yields an empty
// result instead of another attempt. Every other error propagates
// immediately.
func (c *Client) Logs(ctx context.Context, query LogRangeQuery) ([]LogEvent, error) {
	q := query

	if !q.ToLatest && q.Span() > MaxBlockSpan {
		q.FromBlock = q.ToBlock - MaxBlockSpan
	}

	for {
		logs, outcome, err := c.fetchLogs(ctx, q)
		switch outcome {
		case fetchOK:
			return logs, nil
		case fetchFatal:
			return nil, err
		}

		// Range exceeded. "latest" bounds have no measurable span to halve.
		if q.ToLatest {
			c.log.WithField("fromBlock", q.FromBlock).
				Warn("provider rejected open-ended log range, returning empty batch")
			return []LogEvent{}, nil
		}

		span := q.Span()
		if span <= MinBlockSpan {
			c.log.WithFields(map[string]interface{}{
				"fromBlock": q.FromBlock,
				"toBlock":   q.ToBlock,
			}).Warn("provider rejected minimal log range, returning empty batch")
			return []LogEvent{}, nil
		}

		q.FromBlock = q.ToBlock - span/2
		if c.observeRetry != nil {
			c.observeRetry()
		}
	}
}

// fetchLogs performs one eth_getLogs round trip and decodes the result.
func (c *Client) fetchLogs(ctx context.Context, q LogRangeQuery) ([]LogEvent, fetchOutcome, error) {
	result, err := c.call(ctx, "eth_getLogs", []interface{}{q.filterObject()})
	if err != nil {
		if isRangeExceeded(err) {
			return nil, fetchRangeExceeded, err
		}
		return nil, fetchFatal, err
	}

	var raws []rawLog
	if err := json.Unmarshal(result, &raws); err != nil {
		return nil, fetchFatal, newProtocolError(http.StatusOK, result)
	}

	logs := make([]LogEvent, 0, len(raws))
	for _, r := range raws {
		addr, err := hexutil.NormalizeAddress(r.Address)
		if err != nil {
			// One malformed entry must not fail the batch.
			c.log.WithField("address", r.Address).Warn("skipping log with malformed emitter address")
			continue
		}
		logs = append(logs, LogEvent{
			EmitterAddress: addr,
			Topics:         r.Topics,
			Data:           r.Data,
			BlockNumber:    hexutil.QuantityOrZero(r.BlockNumber),
			TxHash:         r.TransactionHash,
			LogIndex:       hexutil.QuantityOrZero(r.LogIndex),
		})
	}

	return logs, fetchOK, nil
}
