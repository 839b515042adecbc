package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/playbook"
)

func TestClassify(t *testing.T) {
	registry := playbook.Default()

	tests := []struct {
		name  string
		label contract.ClauseLabel
		text  string
		want  contract.RiskLevel
	}{
		{
			name:  "liability unlimited without carve-outs",
			label: contract.LabelLimitationOfLiability,
			text:  "The Supplier accepts unlimited liability for all losses arising under this Agreement.",
			want:  contract.RiskRed,
		},
		{
			name:  "liability unlimited with death carve-out",
			label: contract.LabelLimitationOfLiability,
			text:  "Liability is unlimited for death caused by negligence; otherwise capped at the Fees paid.",
			want:  contract.RiskAmber,
		},
		{
			name:  "liability unlimited with personal injury carve-out",
			label: contract.LabelLimitationOfLiability,
			text:  "Unlimited liability applies only to personal injury; in all other cases liability shall not exceed the Fees.",
			want:  contract.RiskAmber,
		},
		{
			name:  "liability with cap language",
			label: contract.LabelLimitationOfLiability,
			text:  "The Supplier's aggregate liability shall not exceed the Fees paid in the preceding twelve months.",
			want:  contract.RiskAmber,
		},
		{
			name:  "liability with maximum language",
			label: contract.LabelLimitationOfLiability,
			text:  "The maximum liability of either party is limited to 100,000 GBP.",
			want:  contract.RiskAmber,
		},
		{
			name:  "liability with no cap language defaults high",
			label: contract.LabelLimitationOfLiability,
			text:  "Each party is responsible for its own acts and omissions.",
			want:  contract.RiskRed,
		},
		{
			name:  "governing law england and wales",
			label: contract.LabelGoverningLaw,
			text:  "This Agreement is governed by the laws of England and Wales.",
			want:  contract.RiskGreen,
		},
		{
			name:  "governing law england only",
			label: contract.LabelGoverningLaw,
			text:  "This Agreement is governed by the laws of England.",
			want:  contract.RiskAmber,
		},
		{
			name:  "governing law foreign jurisdiction",
			label: contract.LabelGoverningLaw,
			text:  "This Agreement shall be governed by the laws of the State of New York.",
			want:  contract.RiskAmber,
		},
		{
			name:  "termination immediate for any reason",
			label: contract.LabelTermination,
			text:  "The Supplier may terminate with immediate effect at any time and for any reason.",
			want:  contract.RiskRed,
		},
		{
			name:  "termination with notice period in days",
			label: contract.LabelTermination,
			text:  "Either party may terminate on thirty (30) days' written notice.",
			want:  contract.RiskAmber,
		},
		{
			name:  "termination with notice period in months",
			label: contract.LabelTermination,
			text:  "Either party may terminate on three months' written notice.",
			want:  contract.RiskAmber,
		},
		{
			name:  "termination with no recognizable language",
			label: contract.LabelTermination,
			text:  "This Agreement continues until completed.",
			want:  contract.RiskAmber,
		},
		{
			name:  "untracked label defaults amber",
			label: contract.LabelIP,
			text:  "All intellectual property vests in the Supplier.",
			want:  contract.RiskAmber,
		},
		{
			name:  "other label defaults amber",
			label: contract.LabelOther,
			text:  "Notices must be sent in writing.",
			want:  contract.RiskAmber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause := contract.Clause{Label: tt.label, RawText: tt.text}
			got := Classify(clause, registry.Get(tt.label))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	clause := contract.Clause{
		Label:   contract.LabelGoverningLaw,
		RawText: "GOVERNED BY THE LAWS OF ENGLAND AND WALES.",
	}
	got := Classify(clause, playbook.Rule{})
	assert.Equal(t, contract.RiskGreen, got)
}

func TestClassifyIsDeterministic(t *testing.T) {
	clause := contract.Clause{
		Label:   contract.LabelLimitationOfLiability,
		RawText: "Liability shall not exceed the cap set out in the Order Form.",
	}
	rule := playbook.Default().Get(clause.Label)

	first := Classify(clause, rule)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(clause, rule))
	}
}
