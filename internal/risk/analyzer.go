package risk

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
)

// DefaultConcurrency bounds parallel clause syntheses within one request.
// Matches the tracked-label count; higher values just pile onto the external
// service rate limits.
const DefaultConcurrency = 3

// ClauseSynthesizer is the per-clause pipeline. Satisfied by *Synthesizer.
type ClauseSynthesizer interface {
	Synthesize(ctx context.Context, clause contract.Clause, contractType string, profile contract.RiskProfile) (contract.ClauseAnalysis, error)
}

// Analyzer applies the synthesizer across every tracked clause of a
// contract.
type Analyzer struct {
	synthesizer ClauseSynthesizer
	concurrency int
	logger      *logging.Logger
}

// NewAnalyzer builds an analyzer with the given concurrency bound.
func NewAnalyzer(synthesizer ClauseSynthesizer, concurrency int, logger *logging.Logger) *Analyzer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{
		synthesizer: synthesizer,
		concurrency: concurrency,
		logger:      logger.Named("analyzer"),
	}
}

// AnalyzeAll analyzes every clause whose label is tracked, preserving input
// clause order in the output regardless of completion order.
//
// Per-clause failures are isolated: one clause's failure never prevents
// sibling verdicts. The returned error is non-nil only when the whole
// request is cancelled.
func (a *Analyzer) AnalyzeAll(ctx context.Context, clauses []contract.Clause, contractType string, profile contract.RiskProfile) ([]contract.ClauseAnalysis, []contract.ClauseFailure, error) {
	tracked := make([]contract.Clause, 0, len(clauses))
	for _, c := range clauses {
		if c.Label.Tracked() {
			tracked = append(tracked, c)
		}
	}
	if len(tracked) == 0 {
		return []contract.ClauseAnalysis{}, nil, nil
	}

	type slot struct {
		verdict contract.ClauseAnalysis
		err     error
	}
	slots := make([]slot, len(tracked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, clause := range tracked {
		g.Go(func() error {
			verdict, err := a.synthesizer.Synthesize(gctx, clause, contractType, profile)
			slots[i] = slot{verdict: verdict, err: err}
			if err != nil {
				a.logger.Error(gctx, "clause analysis failed",
					zap.String("clause_label", string(clause.Label)),
					zap.Error(err),
				)
			}
			// Failures are captured per slot, never returned: a returned
			// error would cancel sibling analyses.
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// Cancelled mid-flight; partial results are discarded.
		return nil, nil, err
	}

	verdicts := make([]contract.ClauseAnalysis, 0, len(tracked))
	var failures []contract.ClauseFailure
	for i, s := range slots {
		if s.err != nil {
			failures = append(failures, contract.ClauseFailure{
				ClauseLabel: string(tracked[i].Label),
				Reason:      s.err.Error(),
			})
			continue
		}
		verdicts = append(verdicts, s.verdict)
	}

	return verdicts, failures, nil
}
