package provider

import (
	"context"
	"fmt"
	"time"

	"tokenguard/internal/cache"
	"tokenguard/internal/domain"
	"tokenguard/internal/graph"
	"tokenguard/internal/hexutil"
)

// provenanceScanLimit bounds how many recent factory events the GraphQL
// provenance check inspects.
const provenanceScanLimit = 200

// GraphProvider discovers tokens through the GraphQL protocol client. It
// yields richer records than the RPC path: the indexing service already
// decodes token names and symbols.
type GraphProvider struct {
	client  *graph.Client
	factory string
	ttl     time.Duration

	tokens     *cache.Cache[[]domain.TokenRecord]
	provenance *cache.Cache[cache.Flag]
}

// GraphOption configures a GraphProvider.
type GraphOption func(*graphSettings)

type graphSettings struct {
	ttl       time.Duration
	cacheOpts []cache.Option
}

// WithGraphTTL overrides the cache TTL.
func WithGraphTTL(ttl time.Duration) GraphOption {
	return func(s *graphSettings) { s.ttl = ttl }
}

// WithGraphCacheOptions passes observation hooks through to both caches.
func WithGraphCacheOptions(opts ...cache.Option) GraphOption {
	return func(s *graphSettings) { s.cacheOpts = opts }
}

// NewGraphProvider creates a provider reading factory events for the given
// factory contract from an indexing service.
func NewGraphProvider(client *graph.Client, factory string, opts ...GraphOption) *GraphProvider {
	s := graphSettings{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&s)
	}

	return &GraphProvider{
		client:     client,
		factory:    factory,
		ttl:        s.ttl,
		tokens:     cache.New[[]domain.TokenRecord](s.cacheOpts...),
		provenance: cache.New[cache.Flag](s.cacheOpts...),
	}
}

var _ Provider = (*GraphProvider)(nil)

// LatestTokens returns up to count recently created tokens, newest first.
func (p *GraphProvider) LatestTokens(ctx context.Context, count int) ([]domain.TokenRecord, error) {
	if count <= 0 {
		return nil, nil
	}
	return p.tokens.GetOrCreate(ctx, latestTokensKey(count), p.ttl, func(ctx context.Context) ([]domain.TokenRecord, error) {
		return p.fetchLatest(ctx, count)
	})
}

// IsTokenFromProvider reports whether the token appears among the factory's
// recent creation events.
func (p *GraphProvider) IsTokenFromProvider(ctx context.Context, address string) (bool, error) {
	addr, err := hexutil.NormalizeAddress(address)
	if err != nil {
		return false, fmt.Errorf("invalid token address: %w", err)
	}

	flag, err := p.provenance.GetOrCreate(ctx, provenanceKey(addr), p.ttl, func(ctx context.Context) (cache.Flag, error) {
		events, err := p.client.TokenEvents(ctx, p.factory, provenanceScanLimit)
		if err != nil {
			return cache.Flag{}, fmt.Errorf("fetch factory events: %w", err)
		}
		for _, ev := range events {
			if token, _, _, _, ok := ev.TokenFields(); ok && token == addr {
				return cache.Flag{Set: true}, nil
			}
		}
		return cache.Flag{}, nil
	})
	if err != nil {
		return false, err
	}
	return flag.Set, nil
}

func (p *GraphProvider) fetchLatest(ctx context.Context, count int) ([]domain.TokenRecord, error) {
	events, err := p.client.TokenEvents(ctx, p.factory, count)
	if err != nil {
		return nil, fmt.Errorf("fetch factory events: %w", err)
	}

	// Events arrive newest first; rows without a token address are dropped.
	records := make([]domain.TokenRecord, 0, len(events))
	for _, ev := range events {
		address, name, symbol, creator, ok := ev.TokenFields()
		if !ok {
			continue
		}
		records = append(records, domain.TokenRecord{
			Address:   address,
			Name:      name,
			Symbol:    symbol,
			Creator:   creator,
			CreatedAt: ev.BlockTime.UnixMilli(),
		})
	}
	if len(records) > count {
		records = records[:count]
	}
	return records, nil
}
