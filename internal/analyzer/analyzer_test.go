package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tokenguard/internal/domain"
	"tokenguard/internal/risk"
	"tokenguard/internal/storage/memory"
)

type fakeProvider struct {
	tokens []domain.TokenRecord
	err    error
	calls  int
}

func (p *fakeProvider) LatestTokens(_ context.Context, count int) ([]domain.TokenRecord, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if len(p.tokens) > count {
		return p.tokens[:count], nil
	}
	return p.tokens, nil
}

func (p *fakeProvider) IsTokenFromProvider(context.Context, string) (bool, error) {
	return true, nil
}

type fakeArchive struct {
	batches [][]*domain.RiskReport
	err     error
}

func (a *fakeArchive) ArchiveBatch(_ context.Context, reports []*domain.RiskReport) error {
	if a.err != nil {
		return a.err
	}
	a.batches = append(a.batches, reports)
	return nil
}

type fakeAnnotator struct {
	failFor string
}

func (f *fakeAnnotator) Annotate(_ context.Context, token domain.TokenRecord, _ *domain.RiskReport) (string, error) {
	if token.Address == f.failFor {
		return "", errors.New("annotation service unavailable")
	}
	return "note for " + token.Address, nil
}

func testTokens(n int) []domain.TokenRecord {
	now := time.Now().UnixMilli()
	tokens := make([]domain.TokenRecord, 0, n)
	for i := 0; i < n; i++ {
		tokens = append(tokens, domain.TokenRecord{
			Address:   fmt.Sprintf("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa%d", i),
			Name:      fmt.Sprintf("Token %d", i),
			Symbol:    fmt.Sprintf("TKN%d", i),
			Creator:   fmt.Sprintf("0xccccccccccccccccccccccccccccccccccccccc%d", i),
			CreatedAt: now,
		})
	}
	return tokens
}

func newTestAnalyzer(p *fakeProvider, opts Options) (*Analyzer, *memory.ReportStore) {
	reports := memory.NewReportStore()
	opts.Provider = p
	opts.Scorer = risk.NewScorer(memory.NewSnapshotStore())
	opts.Reports = reports
	return New(opts), reports
}

func TestRun_FetchScorePersist(t *testing.T) {
	archive := &fakeArchive{}
	a, reports := newTestAnalyzer(&fakeProvider{tokens: testTokens(2)}, Options{
		Archive:   archive,
		Annotator: &fakeAnnotator{},
	})

	result, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.TokensFetched != 2 || result.TokensScored != 2 {
		t.Errorf("result = %+v, want 2 fetched and scored", result)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	stored, err := reports.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d reports, want 2", len(stored))
	}
	for _, r := range stored {
		if r.Annotation == "" {
			t.Errorf("report %s missing annotation", r.TokenAddress)
		}
	}

	if len(archive.batches) != 1 || len(archive.batches[0]) != 2 {
		t.Errorf("archive batches = %v, want one batch of 2", archive.batches)
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	a, reports := newTestAnalyzer(&fakeProvider{}, Options{})

	result, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TokensFetched != 0 || result.TokensScored != 0 {
		t.Errorf("result = %+v, want empty", result)
	}

	stored, _ := reports.ListRecent(context.Background(), 10)
	if len(stored) != 0 {
		t.Errorf("stored %d reports, want 0", len(stored))
	}
}

func TestRun_ProviderErrorAborts(t *testing.T) {
	a, _ := newTestAnalyzer(&fakeProvider{err: errors.New("endpoint down")}, Options{})

	if _, err := a.Run(context.Background()); err == nil {
		t.Fatal("expected fetch error to abort the run")
	}
}

func TestRun_AnnotationFailureIsNotFatal(t *testing.T) {
	tokens := testTokens(2)
	a, reports := newTestAnalyzer(&fakeProvider{tokens: tokens}, Options{
		Annotator: &fakeAnnotator{failFor: tokens[0].Address},
	})

	result, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TokensScored != 2 {
		t.Fatalf("result = %+v, want both tokens scored", result)
	}

	r0, err := reports.GetLatestByAddress(context.Background(), tokens[0].Address)
	if err != nil {
		t.Fatalf("GetLatestByAddress: %v", err)
	}
	if r0.Annotation != "" {
		t.Errorf("failed annotation should leave the field empty, got %q", r0.Annotation)
	}

	r1, err := reports.GetLatestByAddress(context.Background(), tokens[1].Address)
	if err != nil {
		t.Fatalf("GetLatestByAddress: %v", err)
	}
	if r1.Annotation == "" {
		t.Error("second token should still be annotated")
	}
}

func TestRun_ArchiveFailureIsNotFatal(t *testing.T) {
	a, reports := newTestAnalyzer(&fakeProvider{tokens: testTokens(1)}, Options{
		Archive: &fakeArchive{err: errors.New("clickhouse unreachable")},
	})

	result, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Errorf("result.Errors = %v, want the archive failure collected", result.Errors)
	}

	stored, _ := reports.ListRecent(context.Background(), 10)
	if len(stored) != 1 {
		t.Errorf("reports must persist even when archiving fails, stored %d", len(stored))
	}
}

func TestRun_BatchSizeLimitsFetch(t *testing.T) {
	p := &fakeProvider{tokens: testTokens(10)}
	a, _ := newTestAnalyzer(p, Options{BatchSize: 3})

	result, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TokensFetched != 3 {
		t.Errorf("fetched %d tokens, want batch size 3", result.TokensFetched)
	}
}
