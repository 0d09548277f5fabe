// Package provider unifies the chain protocol clients behind one contract
// that returns only domain records. Implementations form a closed set chosen
// at configuration time; callers never see wire types.
package provider

import (
	"context"
	"fmt"
	"time"

	"tokenguard/internal/domain"
)

// DefaultTTL is the cache lifetime applied to both provider operations.
const DefaultTTL = 90 * time.Second

// tokenCreatedTopic is the event signature hash of the factory's
// TokenCreated(address,address) event, matched as topic 0.
const tokenCreatedTopic = "0x5f7666687319b40936f33c188908d86aea154abd3f4127b4fa0a3f04f303c7da"

// Provider serves token discovery queries from one chain data source.
// LatestTokens returns at most count records, newest first.
type Provider interface {
	LatestTokens(ctx context.Context, count int) ([]domain.TokenRecord, error)
	IsTokenFromProvider(ctx context.Context, address string) (bool, error)
}

// Cache keys are deterministic per operation and parameters so concurrent
// identical requests coalesce.
func latestTokensKey(count int) string {
	return fmt.Sprintf("latest_tokens:%d", count)
}

func provenanceKey(address string) string {
	return "is_from_provider:" + address
}
