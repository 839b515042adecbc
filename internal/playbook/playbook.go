// Package playbook holds static per-clause-type policy parameters used as a
// preliminary deterministic check before any generative judgment.
package playbook

import (
	"github.com/fyrsmithlabs/clauseguard/internal/contract"
)

// Rule is the policy parameter set for one clause type. A zero Rule is valid
// and means "no policy registered"; lookups never fail.
type Rule struct {
	// MaxCapMonths is the largest acceptable liability cap expressed as
	// months of fees (limitation_of_liability only).
	MaxCapMonths int `json:"max_cap_months,omitempty"`

	// AllowUnlimitedFor lists carve-outs for which unlimited liability is
	// acceptable (e.g. death or personal injury, fraud).
	AllowUnlimitedFor []string `json:"allow_unlimited_for,omitempty"`

	// DisallowExclusions lists liability heads that must not be excluded.
	DisallowExclusions []string `json:"disallow_exclusions,omitempty"`

	// Preferred lists preferred values for the clause (e.g. governing law
	// jurisdictions).
	Preferred []string `json:"preferred,omitempty"`

	// Discouraged lists values that raise concern but are not forbidden.
	Discouraged []string `json:"discouraged,omitempty"`

	// Forbidden lists values that are never acceptable.
	Forbidden []string `json:"forbidden,omitempty"`

	// MinNoticeDays is the shortest acceptable termination notice period.
	MinNoticeDays int `json:"min_notice_days,omitempty"`
}

// Empty reports whether the rule carries no policy at all.
func (r Rule) Empty() bool {
	return r.MaxCapMonths == 0 &&
		len(r.AllowUnlimitedFor) == 0 &&
		len(r.DisallowExclusions) == 0 &&
		len(r.Preferred) == 0 &&
		len(r.Discouraged) == 0 &&
		len(r.Forbidden) == 0 &&
		r.MinNoticeDays == 0
}

// Registry is a read-only lookup of playbook rules by clause label. Safe for
// concurrent use after construction.
type Registry struct {
	rules map[contract.ClauseLabel]Rule
}

// NewRegistry builds a registry from an explicit rule map. The map is copied;
// callers cannot mutate the registry afterwards.
func NewRegistry(rules map[contract.ClauseLabel]Rule) *Registry {
	copied := make(map[contract.ClauseLabel]Rule, len(rules))
	for label, rule := range rules {
		copied[label] = rule
	}
	return &Registry{rules: copied}
}

// Get returns the registered rule for a label, or a zero Rule if the label
// has no entry. Pure lookup with no failure modes.
func (r *Registry) Get(label contract.ClauseLabel) Rule {
	return r.rules[label]
}

// Default returns the built-in playbook used when no custom policy is
// configured.
func Default() *Registry {
	return NewRegistry(map[contract.ClauseLabel]Rule{
		contract.LabelLimitationOfLiability: {
			MaxCapMonths:       12,
			AllowUnlimitedFor:  []string{"death_or_personal_injury", "fraud"},
			DisallowExclusions: []string{"gross_negligence", "wilful_misconduct"},
		},
		contract.LabelGoverningLaw: {
			Preferred: []string{"England and Wales"},
		},
		contract.LabelTermination: {
			MinNoticeDays: 30,
		},
	})
}
