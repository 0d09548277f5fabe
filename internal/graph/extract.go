package graph

import (
	"strings"

	"tokenguard/internal/hexutil"
)

// Argument name synonyms across indexing services. Matching is
// case-insensitive on the argument name.
var (
	tokenArgNames   = map[string]struct{}{"token": {}, "address": {}, "tokenaddress": {}}
	nameArgNames    = map[string]struct{}{"name": {}, "tokenname": {}}
	symbolArgNames  = map[string]struct{}{"symbol": {}, "ticker": {}, "tokensymbol": {}}
	creatorArgNames = map[string]struct{}{"creator": {}, "sender": {}}
)

// TokenFields extracts the token address, name, symbol and creator from the
// event's named arguments. The creator falls back to the transaction sender.
// ok is false when no valid token address argument is present.
func (e TokenEvent) TokenFields() (address, name, symbol, creator string, ok bool) {
	for _, arg := range e.Arguments {
		key := strings.ToLower(strings.TrimSpace(arg.Name))
		switch {
		case hasKey(tokenArgNames, key):
			if addr, err := hexutil.NormalizeAddress(arg.Value); err == nil {
				address = addr
			}
		case hasKey(nameArgNames, key):
			name = arg.Value
		case hasKey(symbolArgNames, key):
			symbol = arg.Value
		case hasKey(creatorArgNames, key):
			if addr, err := hexutil.NormalizeAddress(arg.Value); err == nil {
				creator = addr
			}
		}
	}

	if creator == "" {
		if addr, err := hexutil.NormalizeAddress(e.TxFrom); err == nil {
			creator = addr
		}
	}

	return address, name, symbol, creator, address != ""
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
