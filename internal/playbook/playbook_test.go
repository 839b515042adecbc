package playbook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
)

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry(map[contract.ClauseLabel]Rule{
		contract.LabelTermination: {MinNoticeDays: 14},
	})

	t.Run("registered label", func(t *testing.T) {
		rule := registry.Get(contract.LabelTermination)
		assert.Equal(t, 14, rule.MinNoticeDays)
		assert.False(t, rule.Empty())
	})

	t.Run("unregistered label returns zero rule", func(t *testing.T) {
		rule := registry.Get(contract.LabelIP)
		assert.True(t, rule.Empty())
	})
}

func TestRegistryCopiesInput(t *testing.T) {
	rules := map[contract.ClauseLabel]Rule{
		contract.LabelGoverningLaw: {Preferred: []string{"England and Wales"}},
	}
	registry := NewRegistry(rules)

	delete(rules, contract.LabelGoverningLaw)

	assert.False(t, registry.Get(contract.LabelGoverningLaw).Empty())
}

func TestDefault(t *testing.T) {
	registry := Default()

	liability := registry.Get(contract.LabelLimitationOfLiability)
	assert.Equal(t, 12, liability.MaxCapMonths)
	assert.Contains(t, liability.AllowUnlimitedFor, "fraud")
	assert.Contains(t, liability.AllowUnlimitedFor, "death_or_personal_injury")

	law := registry.Get(contract.LabelGoverningLaw)
	assert.Equal(t, []string{"England and Wales"}, law.Preferred)

	termination := registry.Get(contract.LabelTermination)
	assert.Equal(t, 30, termination.MinNoticeDays)

	assert.True(t, registry.Get(contract.LabelOther).Empty())
}

func TestRuleEmpty(t *testing.T) {
	assert.True(t, Rule{}.Empty())
	assert.False(t, Rule{MaxCapMonths: 1}.Empty())
	assert.False(t, Rule{Forbidden: []string{"exclusive jurisdiction"}}.Empty())
}
