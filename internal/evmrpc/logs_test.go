package evmrpc

import (
	"context"
	"errors"
	"testing"

	"tokenguard/internal/hexutil"
)

// logsFilter is the decoded eth_getLogs parameter as seen by the test server.
type logsFilter struct {
	FromBlock uint64
	ToBlock   uint64
}

func decodeFilter(t *testing.T, req rpcRequest) logsFilter {
	t.Helper()
	if len(req.Params) != 1 {
		t.Fatalf("eth_getLogs expects 1 param, got %d", len(req.Params))
	}
	obj, ok := req.Params[0].(map[string]interface{})
	if !ok {
		t.Fatalf("filter param is %T, want object", req.Params[0])
	}
	from, _ := obj["fromBlock"].(string)
	to, _ := obj["toBlock"].(string)
	return logsFilter{
		FromBlock: hexutil.QuantityOrZero(from),
		ToBlock:   hexutil.QuantityOrZero(to),
	}
}

func TestLogs_DecodesEntries(t *testing.T) {
	server := rpcTestServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return []map[string]interface{}{
			{
				"address":         "0xFACEB00CFACEB00CFACEB00CFACEB00CFACEB00C",
				"topics":          []string{"0xsig", "0xtopic1"},
				"data":            "0x",
				"blockNumber":     "0x64",
				"transactionHash": "0xtx",
				"logIndex":        "0x2",
			},
		}, nil
	})
	defer server.Close()

	client := NewClient(server.URL)

	logs, err := client.Logs(context.Background(), LogRangeQuery{FromBlock: 0, ToBlock: 200})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}

	log := logs[0]
	if log.EmitterAddress != "0xfaceb00cfaceb00cfaceb00cfaceb00cfaceb00c" {
		t.Errorf("emitter not normalized: %s", log.EmitterAddress)
	}
	if log.BlockNumber != 100 {
		t.Errorf("expected block 100, got %d", log.BlockNumber)
	}
	if log.LogIndex != 2 {
		t.Errorf("expected log index 2, got %d", log.LogIndex)
	}
}

func TestLogs_SkipsMalformedEntry(t *testing.T) {
	server := rpcTestServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return []map[string]interface{}{
			{
				"address":     "not-an-address",
				"blockNumber": "0x1",
			},
			{
				"address":         "0xfaceb00cfaceb00cfaceb00cfaceb00cfaceb00c",
				"topics":          []string{"0xsig"},
				"data":            "0x",
				"blockNumber":     "garbage", // decodes to zero, not fatal
				"transactionHash": "0xtx",
				"logIndex":        "0x0",
			},
		}, nil
	})
	defer server.Close()

	client := NewClient(server.URL)

	logs, err := client.Logs(context.Background(), LogRangeQuery{FromBlock: 0, ToBlock: 10})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected malformed entry to be dropped, got %d logs", len(logs))
	}
	if logs[0].BlockNumber != 0 {
		t.Errorf("unparseable block number should decode to 0, got %d", logs[0].BlockNumber)
	}
}

func TestLogs_PreClampsWideSpan(t *testing.T) {
	var seen []logsFilter
	server := rpcTestServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		seen = append(seen, decodeFilter(t, req))
		return []map[string]interface{}{}, nil
	})
	defer server.Close()

	client := NewClient(server.URL)

	// 5000-block request must be clamped before the first network call.
	_, err := client.Logs(context.Background(), LogRangeQuery{FromBlock: 5000, ToBlock: 10000})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("expected 1 request, got %d", len(seen))
	}
	if span := seen[0].ToBlock - seen[0].FromBlock; span > MaxBlockSpan {
		t.Errorf("first request spans %d blocks, want <= %d", span, MaxBlockSpan)
	}
	if seen[0].FromBlock != 7000 {
		t.Errorf("fromBlock moved to %d, want 7000", seen[0].FromBlock)
	}
	if seen[0].ToBlock != 10000 {
		t.Errorf("toBlock changed to %d, want 10000", seen[0].ToBlock)
	}
}

func TestLogs_HalvesOnRangeExceeded(t *testing.T) {
	var seen []logsFilter
	server := rpcTestServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		f := decodeFilter(t, req)
		seen = append(seen, f)
		if f.ToBlock-f.FromBlock > 1000 {
			return nil, &RPCError{Code: rangeExceededCode, Message: "query returned more than 10000 results"}
		}
		return []map[string]interface{}{
			{
				"address":         "0xfaceb00cfaceb00cfaceb00cfaceb00cfaceb00c",
				"topics":          []string{"0xsig"},
				"data":            "0x",
				"blockNumber":     "0x1",
				"transactionHash": "0xtx",
				"logIndex":        "0x0",
			},
		}, nil
	})
	defer server.Close()

	client := NewClient(server.URL)

	logs, err := client.Logs(context.Background(), LogRangeQuery{FromBlock: 7000, ToBlock: 10000})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log after narrowing, got %d", len(logs))
	}

	// 3000 rejected -> 1500 rejected -> 750 accepted.
	if len(seen) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(seen))
	}
	if got := seen[1].ToBlock - seen[1].FromBlock; got != 1500 {
		t.Errorf("second attempt span %d, want 1500", got)
	}
	if got := seen[2].ToBlock - seen[2].FromBlock; got != 750 {
		t.Errorf("third attempt span %d, want 750", got)
	}
}

func TestLogs_AlwaysRejectedDegradesToEmpty(t *testing.T) {
	attempts := 0
	server := rpcTestServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		attempts++
		return nil, &RPCError{Code: 0, Message: "limit exceeded"}
	})
	defer server.Close()

	client := NewClient(server.URL)

	logs, err := client.Logs(context.Background(), LogRangeQuery{FromBlock: 9800, ToBlock: 10000})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("expected empty result, got %d logs", len(logs))
	}

	// 200 rejected -> halved to 100 rejected -> give up. Never unbounded.
	if attempts != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestLogs_OtherErrorsNotRetried(t *testing.T) {
	attempts := 0
	server := rpcTestServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		attempts++
		return nil, &RPCError{Code: -32000, Message: "header not found"}
	})
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Logs(context.Background(), LogRangeQuery{FromBlock: 0, ToBlock: 500})
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("fatal error retried: %d attempts", attempts)
	}
}

func TestLogRangeQuery_FilterObject(t *testing.T) {
	q := LogRangeQuery{
		FromBlock: 16,
		ToLatest:  true,
		Addresses: []string{"0xfactory"},
		Topics:    [][]string{{"0xsig"}, {"0xa", "0xb"}},
	}

	filter := q.filterObject()
	if filter["fromBlock"] != "0x10" {
		t.Errorf("fromBlock = %v", filter["fromBlock"])
	}
	if filter["toBlock"] != "latest" {
		t.Errorf("toBlock = %v", filter["toBlock"])
	}
	if filter["address"] != "0xfactory" {
		t.Errorf("single address should collapse to a string, got %v", filter["address"])
	}

	topics, ok := filter["topics"].([]interface{})
	if !ok || len(topics) != 2 {
		t.Fatalf("unexpected topics %v", filter["topics"])
	}
	if topics[0] != "0xsig" {
		t.Errorf("single alternative should collapse to a string, got %v", topics[0])
	}
	if alts, ok := topics[1].([]string); !ok || len(alts) != 2 {
		t.Errorf("expected OR-group of 2, got %v", topics[1])
	}
}
