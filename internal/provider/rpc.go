package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tokenguard/internal/cache"
	"tokenguard/internal/domain"
	"tokenguard/internal/evmrpc"
	"tokenguard/internal/hexutil"
)

const (
	// lookbackBlocks bounds the discovery window behind the chain head,
	// matching the provider-side getLogs span limit.
	lookbackBlocks = 3000

	// avgBlockInterval is the fixed block time used to estimate creation
	// timestamps from block deltas.
	avgBlockInterval = 12 * time.Second
)

// RPCProvider discovers tokens by scanning factory creation events over the
// JSON-RPC protocol client. Every operation runs through the coalescing
// cache.
type RPCProvider struct {
	client        *evmrpc.Client
	factory       string
	creationTopic string
	ttl           time.Duration
	log           logrus.FieldLogger
	now           func() time.Time

	tokens     *cache.Cache[[]domain.TokenRecord]
	provenance *cache.Cache[cache.Flag]
}

// RPCOption configures an RPCProvider.
type RPCOption func(*rpcSettings)

type rpcSettings struct {
	ttl           time.Duration
	creationTopic string
	log           logrus.FieldLogger
	now           func() time.Time
	cacheOpts     []cache.Option
}

// WithRPCTTL overrides the cache TTL.
func WithRPCTTL(ttl time.Duration) RPCOption {
	return func(s *rpcSettings) { s.ttl = ttl }
}

// WithCreationTopic overrides the creation event signature matched as
// topic 0.
func WithCreationTopic(topic string) RPCOption {
	return func(s *rpcSettings) { s.creationTopic = topic }
}

// WithRPCLogger sets the logger.
func WithRPCLogger(log logrus.FieldLogger) RPCOption {
	return func(s *rpcSettings) { s.log = log }
}

// WithRPCClock overrides the time source, for tests.
func WithRPCClock(now func() time.Time) RPCOption {
	return func(s *rpcSettings) { s.now = now }
}

// WithRPCCacheOptions passes observation hooks through to both caches.
func WithRPCCacheOptions(opts ...cache.Option) RPCOption {
	return func(s *rpcSettings) { s.cacheOpts = opts }
}

// NewRPCProvider creates a provider scanning the given factory contract.
func NewRPCProvider(client *evmrpc.Client, factory string, opts ...RPCOption) *RPCProvider {
	s := rpcSettings{
		ttl:           DefaultTTL,
		creationTopic: tokenCreatedTopic,
		log:           logrus.StandardLogger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &RPCProvider{
		client:        client,
		factory:       factory,
		creationTopic: s.creationTopic,
		ttl:           s.ttl,
		log:           s.log,
		now:           s.now,
		tokens:        cache.New[[]domain.TokenRecord](s.cacheOpts...),
		provenance:    cache.New[cache.Flag](s.cacheOpts...),
	}
}

var _ Provider = (*RPCProvider)(nil)

// LatestTokens returns up to count recently created tokens, newest first.
func (p *RPCProvider) LatestTokens(ctx context.Context, count int) ([]domain.TokenRecord, error) {
	if count <= 0 {
		return nil, nil
	}
	return p.tokens.GetOrCreate(ctx, latestTokensKey(count), p.ttl, func(ctx context.Context) ([]domain.TokenRecord, error) {
		return p.fetchLatest(ctx, count)
	})
}

// IsTokenFromProvider reports whether the factory emitted a creation event
// for the given token. The query is narrowed by an exact topic-1 match, so
// any non-empty result proves provenance.
func (p *RPCProvider) IsTokenFromProvider(ctx context.Context, address string) (bool, error) {
	addr, err := hexutil.NormalizeAddress(address)
	if err != nil {
		return false, fmt.Errorf("invalid token address: %w", err)
	}

	flag, err := p.provenance.GetOrCreate(ctx, provenanceKey(addr), p.ttl, func(ctx context.Context) (cache.Flag, error) {
		return p.checkProvenance(ctx, addr)
	})
	if err != nil {
		return false, err
	}
	return flag.Set, nil
}

func (p *RPCProvider) fetchLatest(ctx context.Context, count int) ([]domain.TokenRecord, error) {
	head, err := p.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}

	logs, err := p.client.Logs(ctx, p.creationQuery(head, nil))
	if err != nil {
		return nil, fmt.Errorf("fetch creation logs: %w", err)
	}

	records := make([]domain.TokenRecord, 0, len(logs))
	for _, lg := range logs {
		rec, ok := p.decodeCreation(lg, head)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	// Logs arrive oldest first; callers want newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if len(records) > count {
		records = records[:count]
	}
	return records, nil
}

func (p *RPCProvider) checkProvenance(ctx context.Context, addr string) (cache.Flag, error) {
	topic, err := hexutil.AddressToTopic(addr)
	if err != nil {
		return cache.Flag{}, fmt.Errorf("encode topic: %w", err)
	}

	head, err := p.client.BlockNumber(ctx)
	if err != nil {
		return cache.Flag{}, fmt.Errorf("block number: %w", err)
	}

	logs, err := p.client.Logs(ctx, p.creationQuery(head, []string{topic}))
	if err != nil {
		return cache.Flag{}, fmt.Errorf("fetch creation logs: %w", err)
	}
	return cache.Flag{Set: len(logs) > 0}, nil
}

// creationQuery builds the factory creation-event filter over the lookback
// window ending at head. tokenTopics, when non-empty, narrows topic 1.
func (p *RPCProvider) creationQuery(head uint64, tokenTopics []string) evmrpc.LogRangeQuery {
	from := uint64(0)
	if head > lookbackBlocks {
		from = head - lookbackBlocks
	}

	topics := [][]string{{p.creationTopic}}
	if len(tokenTopics) > 0 {
		topics = append(topics, tokenTopics)
	}

	return evmrpc.LogRangeQuery{
		FromBlock: from,
		ToBlock:   head,
		Addresses: []string{p.factory},
		Topics:    topics,
	}
}

// decodeCreation maps one creation log to a domain record. Logs with fewer
// than two topics or a malformed token address are dropped.
func (p *RPCProvider) decodeCreation(lg evmrpc.LogEvent, head uint64) (domain.TokenRecord, bool) {
	if len(lg.Topics) < 2 {
		p.log.WithFields(logrus.Fields{
			"tx_hash":   lg.TxHash,
			"log_index": lg.LogIndex,
		}).Warn("creation log missing token topic, dropping")
		return domain.TokenRecord{}, false
	}

	token, err := hexutil.AddressFromTopic(lg.Topics[1])
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"tx_hash": lg.TxHash,
			"topic":   lg.Topics[1],
		}).Warn("creation log has malformed token address, dropping")
		return domain.TokenRecord{}, false
	}

	creator := ""
	if len(lg.Topics) >= 3 {
		if c, err := hexutil.AddressFromTopic(lg.Topics[2]); err == nil {
			creator = c
		}
	}

	// Creation time is estimated from the block delta at a fixed average
	// block interval; logs carry no timestamp.
	age := time.Duration(head-lg.BlockNumber) * avgBlockInterval
	createdAt := p.now().Add(-age).UnixMilli()

	return domain.TokenRecord{
		Address:   token,
		Creator:   creator,
		CreatedAt: createdAt,
	}, true
}
