package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
)

// fakeSynthesizer returns canned results per clause label and tracks
// concurrency.
type fakeSynthesizer struct {
	mu         sync.Mutex
	inFlight   int
	maxSeen    int
	delays     map[contract.ClauseLabel]time.Duration
	failLabels map[contract.ClauseLabel]error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, clause contract.Clause, contractType string, profile contract.RiskProfile) (contract.ClauseAnalysis, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	delay := f.delays[clause.Label]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			f.mu.Lock()
			f.inFlight--
			f.mu.Unlock()
			return contract.ClauseAnalysis{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err := f.failLabels[clause.Label]; err != nil {
		return contract.ClauseAnalysis{}, err
	}
	return contract.ClauseAnalysis{
		ClauseLabel:       string(clause.Label),
		RiskLevel:         contract.RiskGreen,
		Explanation:       "ok",
		PrecedentSnippets: []string{},
	}, nil
}

func allTrackedClauses() []contract.Clause {
	return []contract.Clause{
		{Label: contract.LabelLimitationOfLiability, RawText: "liability clause"},
		{Label: contract.LabelTermination, RawText: "termination clause"},
		{Label: contract.LabelGoverningLaw, RawText: "law clause"},
	}
}

func TestAnalyzeAllPreservesOrder(t *testing.T) {
	// Slow down the first clause so it finishes last.
	synth := &fakeSynthesizer{delays: map[contract.ClauseLabel]time.Duration{
		contract.LabelLimitationOfLiability: 50 * time.Millisecond,
	}}
	analyzer := NewAnalyzer(synth, 3, nil)

	verdicts, failures, err := analyzer.AnalyzeAll(context.Background(), allTrackedClauses(), "saas", contract.ProfileConservative)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, verdicts, 3)

	assert.Equal(t, "limitation_of_liability", verdicts[0].ClauseLabel)
	assert.Equal(t, "termination", verdicts[1].ClauseLabel)
	assert.Equal(t, "governing_law", verdicts[2].ClauseLabel)
}

func TestAnalyzeAllSkipsUntrackedLabels(t *testing.T) {
	t.Run("mixed labels", func(t *testing.T) {
		synth := &fakeSynthesizer{}
		analyzer := NewAnalyzer(synth, 3, nil)

		clauses := []contract.Clause{
			{Label: contract.LabelIP, RawText: "ip clause"},
			{Label: contract.LabelTermination, RawText: "termination clause"},
			{Label: contract.LabelOther, RawText: "notices clause"},
		}
		verdicts, failures, err := analyzer.AnalyzeAll(context.Background(), clauses, "saas", contract.ProfileConservative)
		require.NoError(t, err)
		assert.Empty(t, failures)
		require.Len(t, verdicts, 1)
		assert.Equal(t, "termination", verdicts[0].ClauseLabel)
	})

	t.Run("only untracked labels", func(t *testing.T) {
		synth := &fakeSynthesizer{}
		analyzer := NewAnalyzer(synth, 3, nil)

		clauses := []contract.Clause{
			{Label: contract.LabelIP, RawText: "ip clause"},
		}
		verdicts, failures, err := analyzer.AnalyzeAll(context.Background(), clauses, "saas", contract.ProfileConservative)
		require.NoError(t, err)
		assert.Empty(t, failures)
		assert.NotNil(t, verdicts)
		assert.Empty(t, verdicts)
	})
}

func TestAnalyzeAllIsolatesFailures(t *testing.T) {
	synth := &fakeSynthesizer{failLabels: map[contract.ClauseLabel]error{
		contract.LabelTermination: errors.New("completion exploded"),
	}}
	analyzer := NewAnalyzer(synth, 3, nil)

	verdicts, failures, err := analyzer.AnalyzeAll(context.Background(), allTrackedClauses(), "saas", contract.ProfileConservative)
	require.NoError(t, err)

	require.Len(t, verdicts, 2)
	assert.Equal(t, "limitation_of_liability", verdicts[0].ClauseLabel)
	assert.Equal(t, "governing_law", verdicts[1].ClauseLabel)

	require.Len(t, failures, 1)
	assert.Equal(t, "termination", failures[0].ClauseLabel)
	assert.Contains(t, failures[0].Reason, "completion exploded")
}

func TestAnalyzeAllBoundsConcurrency(t *testing.T) {
	synth := &fakeSynthesizer{delays: map[contract.ClauseLabel]time.Duration{
		contract.LabelLimitationOfLiability: 20 * time.Millisecond,
		contract.LabelTermination:           20 * time.Millisecond,
		contract.LabelGoverningLaw:          20 * time.Millisecond,
	}}
	analyzer := NewAnalyzer(synth, 1, nil)

	_, _, err := analyzer.AnalyzeAll(context.Background(), allTrackedClauses(), "saas", contract.ProfileConservative)
	require.NoError(t, err)
	assert.Equal(t, 1, synth.maxSeen)
}

func TestAnalyzeAllCancellation(t *testing.T) {
	synth := &fakeSynthesizer{delays: map[contract.ClauseLabel]time.Duration{
		contract.LabelLimitationOfLiability: time.Second,
		contract.LabelTermination:           time.Second,
		contract.LabelGoverningLaw:          time.Second,
	}}
	analyzer := NewAnalyzer(synth, 3, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	verdicts, failures, err := analyzer.AnalyzeAll(ctx, allTrackedClauses(), "saas", contract.ProfileConservative)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, verdicts)
	assert.Nil(t, failures)
}

func TestAnalyzeAllManyClauses(t *testing.T) {
	synth := &fakeSynthesizer{}
	analyzer := NewAnalyzer(synth, 3, nil)

	var clauses []contract.Clause
	for i := 0; i < 10; i++ {
		clauses = append(clauses, contract.Clause{
			Label:   contract.LabelTermination,
			RawText: fmt.Sprintf("termination variant %d", i),
		})
	}

	verdicts, failures, err := analyzer.AnalyzeAll(context.Background(), clauses, "saas", contract.ProfileConservative)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Len(t, verdicts, 10)
	assert.LessOrEqual(t, synth.maxSeen, 3)
}
