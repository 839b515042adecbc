// Package contract defines the domain model shared across the analysis
// pipeline: labeled clauses, precedent records, and per-clause risk verdicts.
package contract

import "fmt"

// ClauseLabel identifies the kind of clause a span of contract text was
// classified as during extraction.
type ClauseLabel string

const (
	LabelLimitationOfLiability ClauseLabel = "limitation_of_liability"
	LabelTermination           ClauseLabel = "termination"
	LabelGoverningLaw          ClauseLabel = "governing_law"
	LabelIP                    ClauseLabel = "ip"
	LabelOther                 ClauseLabel = "other"
)

// TrackedLabels is the fixed set of clause labels that receive risk analysis.
// Clauses with any other label pass through extraction untouched.
var TrackedLabels = map[ClauseLabel]bool{
	LabelLimitationOfLiability: true,
	LabelTermination:           true,
	LabelGoverningLaw:          true,
}

// Tracked reports whether the label is in the analyzed set.
func (l ClauseLabel) Tracked() bool {
	return TrackedLabels[l]
}

// RiskLevel is the GREEN/AMBER/RED classification of a clause's risk to the
// reviewing party.
type RiskLevel string

const (
	RiskGreen RiskLevel = "GREEN"
	RiskAmber RiskLevel = "AMBER"
	RiskRed   RiskLevel = "RED"
)

// Valid reports whether the risk level is one of the three known tiers.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskGreen, RiskAmber, RiskRed:
		return true
	}
	return false
}

// RiskProfile controls how aggressively the reviewer should judge clauses.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileBalanced     RiskProfile = "balanced"
	ProfileAggressive   RiskProfile = "aggressive"
)

// ParseRiskProfile validates a user-supplied risk profile string.
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch RiskProfile(s) {
	case ProfileConservative, ProfileBalanced, ProfileAggressive:
		return RiskProfile(s), nil
	}
	return "", fmt.Errorf("unknown risk profile %q (want conservative, balanced or aggressive)", s)
}

// Clause is a labeled span of contract text. Immutable once extracted; the
// analysis pipeline treats it as read-only input.
type Clause struct {
	Label     ClauseLabel `json:"label"`
	RawText   string      `json:"raw_text"`
	StartChar *int        `json:"start_char,omitempty"`
	EndChar   *int        `json:"end_char,omitempty"`
}

// ExtractedContract is the structured output of contract extraction.
type ExtractedContract struct {
	Parties       []string `json:"parties"`
	EffectiveDate string   `json:"effective_date,omitempty"`
	TermMonths    *int     `json:"term_months,omitempty"`
	AutoRenewal   *bool    `json:"auto_renewal,omitempty"`
	GoverningLaw  string   `json:"governing_law,omitempty"`
	ContractType  string   `json:"contract_type,omitempty"`
	Clauses       []Clause `json:"clauses"`
}

// PrecedentRecord is a reference clause with a known risk level, retrieved
// from the precedent corpus by similarity. Read-only; never mutated by the
// analysis pipeline.
type PrecedentRecord struct {
	ID           string `json:"id"`
	ClauseType   string `json:"clause_type"`
	ContractType string `json:"contract_type,omitempty"`
	RiskLevel    string `json:"risk_level"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Text         string `json:"text"`
}

// ClauseAnalysis is the final verdict for a single clause: the generative
// judgment informed by the deterministic prior and retrieved precedents.
// Created once per clause per analysis run; immutable afterwards.
type ClauseAnalysis struct {
	ClauseLabel       string    `json:"clause_label"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Explanation       string    `json:"explanation"`
	SuggestedText     string    `json:"suggested_text"`
	PrecedentSnippets []string  `json:"precedent_snippets"`
}

// ClauseFailure records a single clause whose analysis failed after all
// recovery attempts. Failures are isolated: siblings still produce verdicts.
type ClauseFailure struct {
	ClauseLabel string `json:"clause_label"`
	Reason      string `json:"reason"`
}

// ContractAnalysis is the full report returned to the caller: a plain-English
// summary, key terms, the ordered clause verdicts and any per-clause failures.
type ContractAnalysis struct {
	Summary  string           `json:"summary"`
	KeyTerms map[string]any   `json:"key_terms"`
	Clauses  []ClauseAnalysis `json:"clauses"`
	Failures []ClauseFailure  `json:"failures,omitempty"`
}
