// Package rules implements the deterministic first-pass risk classifier.
//
// The output is a prior signal fed into the generative synthesis prompt; it
// is never surfaced to the end user directly.
package rules

import (
	"strings"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/playbook"
)

// Classify computes a coarse risk tier for a clause from label-specific
// lexical heuristics. Pure function: same (clause, rule) always yields the
// same tier.
//
// Defaults are intentionally asymmetric: limitation_of_liability text with no
// recognizable cap language defaults to RED, while unmatched termination text
// defaults to AMBER. That mirrors the reviewed policy as shipped; see
// DESIGN.md for the open question around it.
func Classify(clause contract.Clause, rule playbook.Rule) contract.RiskLevel {
	text := strings.ToLower(clause.RawText)

	switch clause.Label {
	case contract.LabelLimitationOfLiability:
		if strings.Contains(text, "unlimited") &&
			!strings.Contains(text, "death") &&
			!strings.Contains(text, "personal injury") {
			return contract.RiskRed
		}
		if strings.Contains(text, "cap") ||
			strings.Contains(text, "maximum") ||
			strings.Contains(text, "shall not exceed") {
			return contract.RiskAmber
		}
		// No cap language at all is treated as high risk.
		return contract.RiskRed

	case contract.LabelGoverningLaw:
		if strings.Contains(text, "england") && strings.Contains(text, "wales") {
			return contract.RiskGreen
		}
		return contract.RiskAmber

	case contract.LabelTermination:
		if strings.Contains(text, "immediate") && strings.Contains(text, "any reason") {
			return contract.RiskRed
		}
		if strings.Contains(text, "days") || strings.Contains(text, "months") {
			return contract.RiskAmber
		}
		return contract.RiskAmber
	}

	return contract.RiskAmber
}
