// Package analyzer coordinates one analysis run: fetch the latest tokens
// from a chain data provider, score them, and persist the resulting reports.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tokenguard/internal/domain"
	"tokenguard/internal/observability"
	"tokenguard/internal/provider"
	"tokenguard/internal/risk"
	"tokenguard/internal/storage"
)

// DefaultBatchSize bounds one discovery fetch.
const DefaultBatchSize = 50

// Annotator produces an opaque human-readable annotation for a scored token.
// The annotation is stored on the report and never read by scoring.
type Annotator interface {
	Annotate(ctx context.Context, token domain.TokenRecord, report *domain.RiskReport) (string, error)
}

// Analyzer runs the fetch, score, persist pipeline.
type Analyzer struct {
	provider  provider.Provider
	scorer    *risk.Scorer
	reports   storage.ReportStore
	archive   storage.ReportArchive
	annotator Annotator
	batchSize int
	log       logrus.FieldLogger
}

// Options for creating an Analyzer. Provider, Scorer and Reports are
// required; Archive and Annotator are optional.
type Options struct {
	Provider  provider.Provider
	Scorer    *risk.Scorer
	Reports   storage.ReportStore
	Archive   storage.ReportArchive
	Annotator Annotator
	BatchSize int
	Logger    logrus.FieldLogger
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{
		provider:  opts.Provider,
		scorer:    opts.Scorer,
		reports:   opts.Reports,
		archive:   opts.Archive,
		annotator: opts.Annotator,
		batchSize: batchSize,
		log:       log,
	}
}

// RunResult summarizes one analysis run.
type RunResult struct {
	TokensFetched int
	TokensScored  int
	Flagged       int
	Errors        []string
}

// Run executes one full batch: fetch, score, annotate, persist, archive.
// Per-report persistence failures are collected, not fatal; fetch and
// scoring failures abort the run.
func (a *Analyzer) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	result := &RunResult{}

	tokens, err := a.provider.LatestTokens(ctx, a.batchSize)
	if err != nil {
		observability.RecordBatchRun("fetch_error", time.Since(started).Seconds())
		return nil, fmt.Errorf("fetch latest tokens: %w", err)
	}
	result.TokensFetched = len(tokens)

	if len(tokens) == 0 {
		a.log.Debug("no new tokens discovered")
		observability.RecordBatchRun("empty", time.Since(started).Seconds())
		return result, nil
	}

	reports, err := a.scorer.AnalyzeBatch(ctx, tokens)
	if err != nil {
		observability.RecordBatchRun("score_error", time.Since(started).Seconds())
		return nil, fmt.Errorf("score batch: %w", err)
	}
	result.TokensScored = len(reports)

	a.annotate(ctx, tokens, reports)

	for _, report := range reports {
		if report.Score > 0 {
			result.Flagged++
		}
		codes := make([]string, 0, len(report.Flags))
		for _, f := range report.Flags {
			codes = append(codes, string(f.Code))
		}
		observability.RecordTokenScored(codes)

		if err := a.reports.Insert(ctx, report); err != nil {
			a.log.WithError(err).WithField("token", report.TokenAddress).
				Error("failed to persist report")
			result.Errors = append(result.Errors,
				fmt.Sprintf("persist %s: %v", report.TokenAddress, err))
		}
	}

	if a.archive != nil {
		if err := a.archive.ArchiveBatch(ctx, reports); err != nil {
			// Analytics archive is best effort.
			a.log.WithError(err).Warn("failed to archive reports")
			result.Errors = append(result.Errors, fmt.Sprintf("archive: %v", err))
		}
	}

	observability.RecordBatchRun("ok", time.Since(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulBatch.Set(float64(time.Now().Unix()))

	a.log.WithFields(logrus.Fields{
		"fetched": result.TokensFetched,
		"scored":  result.TokensScored,
		"flagged": result.Flagged,
	}).Info("batch analysis complete")

	return result, nil
}

// annotate attaches annotator output to each report. Annotation failures are
// logged and skipped; they never influence the score or the run outcome.
func (a *Analyzer) annotate(ctx context.Context, tokens []domain.TokenRecord, reports []*domain.RiskReport) {
	if a.annotator == nil {
		return
	}
	for i, report := range reports {
		if i >= len(tokens) {
			break
		}
		text, err := a.annotator.Annotate(ctx, tokens[i], report)
		if err != nil {
			a.log.WithError(err).WithField("token", report.TokenAddress).
				Warn("annotation failed, continuing without")
			continue
		}
		report.Annotation = text
	}
}
