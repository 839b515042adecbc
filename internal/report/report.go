// Package report assembles the final contract analysis: a plain-English
// summary plus key terms generated from the structured extraction and the
// per-clause verdicts.
package report

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/genai"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
)

const summarySystemPrompt = `You help SME founders understand contracts.

Given:
- structured contract data, and
- clause analyses with risk levels,

produce a concise summary and a simple key_terms dict.

Return ONLY JSON like:

{
  "summary": "string, 3-6 sentences, plain English, non-technical",
  "key_terms": {
    "parties": ["A", "B"],
    "governing_law": "England and Wales",
    "term_months": 12,
    "auto_renewal": true,
    "headline_risk": "e.g. 'Liability very supplier-friendly; termination OK'",
    "flags": ["short list of key issues"]
  }
}

Rules:
- summary: 3-6 sentences max, no bullet points, clear and non-legalistic.
- key_terms: keep it simple; you can reuse fields from the structured data.
- "flags" should be a short list of the main risk issues (based on clause analyses).`

// Builder produces the contract-level report.
type Builder struct {
	completer genai.Completer
	logger    *logging.Logger
}

// NewBuilder builds a report builder over the given completer.
func NewBuilder(completer genai.Completer, logger *logging.Logger) (*Builder, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		completer: completer,
		logger:    logger.Named("report"),
	}, nil
}

type summaryPayload struct {
	Summary  string         `json:"summary"`
	KeyTerms map[string]any `json:"key_terms"`
}

// clauseDigest is the trimmed clause view shown to the summary model;
// suggested text and snippets stay out of the prompt.
type clauseDigest struct {
	ClauseLabel string             `json:"clause_label"`
	RiskLevel   contract.RiskLevel `json:"risk_level"`
	Explanation string             `json:"explanation"`
}

// Build combines the extraction and clause verdicts into a ContractAnalysis.
// A summary failure degrades to an empty summary rather than losing the
// clause verdicts the caller already paid for.
func (b *Builder) Build(
	ctx context.Context,
	extracted contract.ExtractedContract,
	verdicts []contract.ClauseAnalysis,
	failures []contract.ClauseFailure,
) contract.ContractAnalysis {
	analysis := contract.ContractAnalysis{
		KeyTerms: map[string]any{},
		Clauses:  verdicts,
		Failures: failures,
	}
	if analysis.Clauses == nil {
		analysis.Clauses = []contract.ClauseAnalysis{}
	}

	raw, err := b.completer.CompleteJSON(ctx, summarySystemPrompt, buildSummaryPrompt(extracted, verdicts))
	if err != nil {
		b.logger.Warn(ctx, "summary generation failed, returning verdicts without summary", zap.Error(err))
		return analysis
	}

	var payload summaryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		b.logger.Warn(ctx, "summary response was not valid JSON", zap.Error(err))
		return analysis
	}

	analysis.Summary = payload.Summary
	if payload.KeyTerms != nil {
		analysis.KeyTerms = payload.KeyTerms
	}
	return analysis
}

func buildSummaryPrompt(extracted contract.ExtractedContract, verdicts []contract.ClauseAnalysis) string {
	digests := make([]clauseDigest, 0, len(verdicts))
	for _, v := range verdicts {
		digests = append(digests, clauseDigest{
			ClauseLabel: v.ClauseLabel,
			RiskLevel:   v.RiskLevel,
			Explanation: v.Explanation,
		})
	}

	extractedJSON, _ := json.MarshalIndent(extracted, "", "  ")
	digestsJSON, _ := json.MarshalIndent(digests, "", "  ")

	return fmt.Sprintf(
		"Structured contract data (JSON):\n%s\n\nClause analyses (label + risk + explanation):\n%s\n\nReturn ONLY the JSON object specified in the system instruction.",
		extractedJSON, digestsJSON,
	)
}
