// Package risk scores batches of freshly discovered tokens for fraud
// signals. Scoring is deterministic and order-independent within a batch:
// the same tokens produce the same per-address flags and score regardless of
// input order.
package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tokenguard/internal/domain"
	"tokenguard/internal/storage"
)

const (
	// maxScore caps the summed flag points.
	maxScore = 100

	// spamWindow is the historical window behind CREATOR_SPAM.
	spamWindow = 24 * time.Hour

	// burstThreshold is the per-batch creator count triggering CREATOR_BURST.
	burstThreshold = 3

	// spamThreshold is the historical creator count triggering CREATOR_SPAM.
	spamThreshold = 3
)

// Scorer evaluates token batches against the flag table, consulting the
// snapshot store for cross-batch history.
type Scorer struct {
	snapshots storage.SnapshotStore
	log       logrus.FieldLogger
	now       func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scorer) { s.log = log }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// NewScorer creates a Scorer backed by the given snapshot store.
func NewScorer(snapshots storage.SnapshotStore, opts ...Option) *Scorer {
	s := &Scorer{
		snapshots: snapshots,
		log:       logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeBatch scores every token in the batch and returns one report per
// token, in input order. Before scoring it records a snapshot for each token
// (insert-if-absent; a duplicate-key race means another request already
// recorded it and is treated as success). Historical heuristics deliberately
// exclude the current batch: in-batch patterns are covered by the two batch
// flags, and counting batch mates twice would double-signal.
func (s *Scorer) AnalyzeBatch(ctx context.Context, batch []domain.TokenRecord) ([]*domain.RiskReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.ensureSnapshots(ctx, batch); err != nil {
		return nil, err
	}

	creatorCounts := make(map[string]int, len(batch))
	nameCounts := make(map[string]int, len(batch))
	batchAddrs := make(map[string]struct{}, len(batch))
	for _, tok := range batch {
		creatorCounts[tok.Creator]++
		if n := normalize(tok.Name); n != "" {
			nameCounts[n]++
		}
		batchAddrs[tok.Address] = struct{}{}
	}

	analyzedAt := s.now().UnixMilli()
	reports := make([]*domain.RiskReport, 0, len(batch))
	for _, tok := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		flags, err := s.evaluate(ctx, tok, batch, creatorCounts, nameCounts, batchAddrs)
		if err != nil {
			return nil, fmt.Errorf("evaluate token %s: %w", tok.Address, err)
		}

		total := 0
		for _, f := range flags {
			total += f.Points
		}
		if total > maxScore {
			total = maxScore
		}

		reports = append(reports, &domain.RiskReport{
			TokenAddress: tok.Address,
			Score:        total,
			Flags:        flags,
			AnalyzedAt:   analyzedAt,
		})
	}

	return reports, nil
}

// ensureSnapshots records a snapshot per token so future batches can see
// this one as history. Write-once: duplicates mean the record exists.
func (s *Scorer) ensureSnapshots(ctx context.Context, batch []domain.TokenRecord) error {
	firstSeen := s.now().UnixMilli()
	for _, tok := range batch {
		snap := &domain.HistoricalSnapshot{
			Address:     tok.Address,
			Name:        tok.Name,
			Symbol:      tok.Symbol,
			Creator:     tok.Creator,
			CreatedAt:   tok.CreatedAt,
			FirstSeenAt: firstSeen,
		}
		err := s.snapshots.Insert(ctx, snap)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("record snapshot %s: %w", tok.Address, err)
		}
	}
	return nil
}

// evaluate runs every heuristic for one token. Each rule is independent; a
// token may accumulate any subset of flags, including overlapping symbol
// rules that intentionally stack.
func (s *Scorer) evaluate(
	ctx context.Context,
	tok domain.TokenRecord,
	batch []domain.TokenRecord,
	creatorCounts map[string]int,
	nameCounts map[string]int,
	batchAddrs map[string]struct{},
) ([]domain.RiskFlag, error) {
	var flags []domain.RiskFlag

	name := normalize(tok.Name)
	symbol := normalize(tok.Symbol)

	if creatorCounts[tok.Creator] >= burstThreshold {
		flags = append(flags, newFlag(domain.FlagCreatorBurst,
			fmt.Sprintf("creator deployed %d tokens in this batch", creatorCounts[tok.Creator])))
	}

	if name != "" && nameCounts[name] > 1 {
		flags = append(flags, newFlag(domain.FlagDuplicateNameInBatch,
			fmt.Sprintf("name %q appears %d times in this batch", tok.Name, nameCounts[name])))
	}

	spam, err := s.creatorSpam(ctx, tok, batch)
	if err != nil {
		return nil, err
	}
	if spam {
		flags = append(flags, newFlag(domain.FlagCreatorSpam,
			fmt.Sprintf("creator %s deployed %d+ tokens in the last 24h", tok.Creator, spamThreshold)))
	}

	reused, err := s.nameReused(ctx, name, symbol, batchAddrs)
	if err != nil {
		return nil, err
	}
	if reused {
		flags = append(flags, newFlag(domain.FlagNameReused,
			"an earlier token already uses this exact name or symbol"))
	}

	if n := len([]rune(symbol)); n == 1 || n == 2 {
		flags = append(flags, newFlag(domain.FlagSymbolTooShort,
			fmt.Sprintf("symbol %q has only %d characters", tok.Symbol, n)))
	}

	if symbolRandomized(symbol) {
		flags = append(flags, newFlag(domain.FlagSymbolRandomized,
			fmt.Sprintf("symbol %q looks auto-generated", tok.Symbol)))
	}

	if hits := keywordHits(name, genericKeywords); hits >= 2 {
		flags = append(flags, newFlag(domain.FlagNameTooGeneric,
			fmt.Sprintf("name matches %d hype keywords", hits)))
	}

	if sus, detail := nameSus(name, symbol); sus {
		flags = append(flags, newFlag(domain.FlagNameSus, detail))
	}

	return flags, nil
}

// creatorSpam checks the creator's recent history, net of the current batch.
func (s *Scorer) creatorSpam(ctx context.Context, tok domain.TokenRecord, batch []domain.TokenRecord) (bool, error) {
	since := s.now().Add(-spamWindow).UnixMilli()

	total, err := s.snapshots.CountByCreatorSince(ctx, tok.Creator, since)
	if err != nil {
		return false, fmt.Errorf("count creator history: %w", err)
	}

	// The batch was snapshotted before scoring; subtract its own
	// contribution so only prior history counts.
	inBatch := 0
	for _, other := range batch {
		if other.Creator == tok.Creator && other.CreatedAt >= since {
			inBatch++
		}
	}

	historical := total - inBatch
	return historical >= spamThreshold, nil
}

// nameReused checks whether a token outside the current batch already holds
// this exact normalized name or symbol.
func (s *Scorer) nameReused(ctx context.Context, name, symbol string, batchAddrs map[string]struct{}) (bool, error) {
	var matches []*domain.HistoricalSnapshot

	if name != "" {
		byName, err := s.snapshots.FindByExactName(ctx, name)
		if err != nil {
			return false, fmt.Errorf("find snapshots by name: %w", err)
		}
		matches = append(matches, byName...)
	}
	if symbol != "" {
		bySymbol, err := s.snapshots.FindByExactSymbol(ctx, symbol)
		if err != nil {
			return false, fmt.Errorf("find snapshots by symbol: %w", err)
		}
		matches = append(matches, bySymbol...)
	}

	for _, m := range matches {
		if _, inBatch := batchAddrs[m.Address]; !inBatch {
			return true, nil
		}
	}
	return false, nil
}

// symbolRandomized reports whether a normalized symbol carries two or more
// digits, or follows the letters-then-digits generator shape.
func symbolRandomized(symbol string) bool {
	return digitCount(symbol) >= 2 || randomSymbolPattern.MatchString(symbol)
}

// nameSus flags brand squatting and low-effort tickers: a brand token in
// name or symbol, a 1-2 char symbol, or a digit-bearing symbol of length <=5.
func nameSus(name, symbol string) (bool, string) {
	for _, brand := range brandTokens {
		if strings.Contains(name, brand) || strings.Contains(symbol, brand) {
			return true, fmt.Sprintf("references well-known brand %q", brand)
		}
	}
	if n := len([]rune(symbol)); n >= 1 && n <= 2 {
		return true, "symbol is suspiciously short"
	}
	if n := len([]rune(symbol)); n >= 1 && n <= 5 && digitCount(symbol) >= 1 {
		return true, "short symbol with digits"
	}
	return false, ""
}

// keywordHits counts distinct keywords appearing as substrings.
func keywordHits(s string, keywords []string) int {
	if s == "" {
		return 0
	}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			hits++
		}
	}
	return hits
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// normalize applies the comparison rule used everywhere: trim, lowercase.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
