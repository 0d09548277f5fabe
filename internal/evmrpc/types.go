package evmrpc

import "tokenguard/internal/hexutil"

// LogEvent is a decoded EVM event log. Produced only by this package and the
// provider layer built on it; callers outside ingestion never see it.
type LogEvent struct {
	EmitterAddress string   // contract that emitted the log
	Topics         []string // 32-byte hex words, index 0 = event signature
	Data           string   // raw hex payload
	BlockNumber    uint64
	TxHash         string
	LogIndex       uint64
}

// LogRangeQuery describes one eth_getLogs filter. Value object; the client
// never mutates the caller's copy.
type LogRangeQuery struct {
	FromBlock uint64
	ToBlock   uint64
	ToLatest  bool     // send "latest" instead of a numeric toBlock
	Addresses []string // emitting contracts, OR semantics
	Topics    [][]string // AND across positions, OR within a position
}

// Span returns the number of blocks covered by the query bounds.
func (q LogRangeQuery) Span() uint64 {
	if q.ToLatest || q.ToBlock < q.FromBlock {
		return 0
	}
	return q.ToBlock - q.FromBlock
}

// filterObject renders the query as the eth_getLogs JSON parameter.
// Single-element address and topic sets collapse to bare strings, matching
// what providers document.
func (q LogRangeQuery) filterObject() map[string]interface{} {
	filter := map[string]interface{}{
		"fromBlock": hexutil.FormatQuantity(q.FromBlock),
	}
	if q.ToLatest {
		filter["toBlock"] = "latest"
	} else {
		filter["toBlock"] = hexutil.FormatQuantity(q.ToBlock)
	}

	switch len(q.Addresses) {
	case 0:
	case 1:
		filter["address"] = q.Addresses[0]
	default:
		filter["address"] = q.Addresses
	}

	if len(q.Topics) > 0 {
		topics := make([]interface{}, len(q.Topics))
		for i, alts := range q.Topics {
			switch len(alts) {
			case 0:
				topics[i] = nil
			case 1:
				topics[i] = alts[0]
			default:
				topics[i] = alts
			}
		}
		filter["topics"] = topics
	}

	return filter
}

// Receipt is a decoded eth_getTransactionReceipt result.
type Receipt struct {
	TxHash          string
	BlockNumber     uint64
	Status          uint64 // 1 success, 0 reverted
	From            string
	To              string
	ContractAddress string // set for contract-creation transactions
}

// rawLog is the wire shape of one eth_getLogs entry.
type rawLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
}

// rawReceipt is the wire shape of an eth_getTransactionReceipt result.
type rawReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
}
