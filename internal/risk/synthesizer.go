// Package risk combines the deterministic classifier, precedent retrieval
// and a generative judgment into per-clause risk verdicts.
package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/genai"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
	"github.com/fyrsmithlabs/clauseguard/internal/playbook"
	"github.com/fyrsmithlabs/clauseguard/internal/rules"
)

var tracer = otel.Tracer("clauseguard.risk")

// ErrInvalidVerdict indicates the completion response failed schema
// validation twice (initial response plus one repair round-trip).
var ErrInvalidVerdict = errors.New("completion response failed verdict schema validation")

// riskSystemPrompt instructs the model to act as a contract risk reviewer
// and return only schema-conforming JSON.
const riskSystemPrompt = `You are a conservative contract risk reviewer.
Given a specific clause, a playbook, a risk profile, and some model precedents,
assign a risk level and suggest a better clause.

Return ONLY JSON matching this schema:

{
  "risk_level": "GREEN" | "AMBER" | "RED",
  "explanation": "short explanation",
  "suggested_text": "improved clause text, in similar style",
  "precedent_snippets": ["short snippet 1", "short snippet 2"]
}

Rules:
- "GREEN" means broadly OK for a conservative customer.
- "AMBER" means acceptable but with some concerns.
- "RED" means high-risk and should be renegotiated.
- Use the playbook and the rule-based preliminary risk as strong signals.
- Use the precedent clauses as models of better wording where useful.`

// PrecedentSource retrieves similar precedent clauses. Satisfied by
// *precedent.Retriever.
type PrecedentSource interface {
	Retrieve(ctx context.Context, clauseText, clauseType, contractType string, limit int) ([]contract.PrecedentRecord, error)
}

// SynthesizerConfig tunes a Synthesizer.
type SynthesizerConfig struct {
	// PrecedentLimit is the number of precedents requested per clause.
	// Default: 3.
	PrecedentLimit int
}

// Synthesizer produces the final risk verdict for a single clause.
//
// The deterministic tier is advisory input to the prompt, never a local
// override: final authority rests with the generative judgment. Retrieval is
// best-effort context; its failure degrades to an empty precedent list
// rather than aborting the clause.
type Synthesizer struct {
	playbook  *playbook.Registry
	retriever PrecedentSource
	completer genai.Completer
	schema    *gojsonschema.Schema
	config    SynthesizerConfig
	logger    *logging.Logger
}

// NewSynthesizer builds a synthesizer over the given collaborators.
func NewSynthesizer(
	registry *playbook.Registry,
	retriever PrecedentSource,
	completer genai.Completer,
	cfg SynthesizerConfig,
	logger *logging.Logger,
) (*Synthesizer, error) {
	if registry == nil {
		return nil, fmt.Errorf("playbook registry is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("precedent source is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.PrecedentLimit <= 0 {
		cfg.PrecedentLimit = 3
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(verdictSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling verdict schema: %w", err)
	}

	return &Synthesizer{
		playbook:  registry,
		retriever: retriever,
		completer: completer,
		schema:    schema,
		config:    cfg,
		logger:    logger.Named("synthesizer"),
	}, nil
}

// verdictPayload is the wire shape of a completion verdict.
type verdictPayload struct {
	RiskLevel         string   `json:"risk_level"`
	Explanation       string   `json:"explanation"`
	SuggestedText     string   `json:"suggested_text"`
	PrecedentSnippets []string `json:"precedent_snippets"`
}

// Synthesize runs the full per-clause pipeline: playbook lookup,
// deterministic tier, precedent retrieval, structured completion, schema
// validation with one repair round-trip.
func (s *Synthesizer) Synthesize(ctx context.Context, clause contract.Clause, contractType string, profile contract.RiskProfile) (contract.ClauseAnalysis, error) {
	ctx, span := tracer.Start(ctx, "risk.Synthesize")
	defer span.End()
	span.SetAttributes(attribute.String("clause_label", string(clause.Label)))

	rule := s.playbook.Get(clause.Label)
	tier := rules.Classify(clause, rule)

	precedents, err := s.retriever.Retrieve(ctx, clause.RawText, string(clause.Label), contractType, s.config.PrecedentLimit)
	if err != nil {
		// Retrieval is context, not a hard dependency.
		s.logger.Warn(ctx, "precedent retrieval failed, continuing without precedents",
			zap.String("clause_label", string(clause.Label)),
			zap.Error(err),
		)
		precedents = nil
	}

	userPrompt := buildUserPrompt(clause, contractType, profile, tier, rule, precedents)

	raw, err := s.completer.CompleteJSON(ctx, riskSystemPrompt, userPrompt)
	if err != nil {
		return contract.ClauseAnalysis{}, fmt.Errorf("completion for %s: %w", clause.Label, err)
	}

	payload, validationErr := s.parseVerdict(raw)
	if validationErr != nil {
		// One bounded repair round-trip, then give up on this clause.
		s.logger.Warn(ctx, "verdict failed schema validation, attempting repair",
			zap.String("clause_label", string(clause.Label)),
			zap.Error(validationErr),
		)
		repaired, err := s.completer.CompleteJSON(ctx, riskSystemPrompt, buildRepairPrompt(raw, validationErr))
		if err != nil {
			return contract.ClauseAnalysis{}, fmt.Errorf("repair completion for %s: %w", clause.Label, err)
		}
		payload, validationErr = s.parseVerdict(repaired)
		if validationErr != nil {
			return contract.ClauseAnalysis{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, validationErr)
		}
	}

	snippets := payload.PrecedentSnippets
	if snippets == nil {
		snippets = []string{}
	}

	return contract.ClauseAnalysis{
		ClauseLabel:       string(clause.Label),
		RiskLevel:         contract.RiskLevel(payload.RiskLevel),
		Explanation:       payload.Explanation,
		SuggestedText:     payload.SuggestedText,
		PrecedentSnippets: snippets,
	}, nil
}

// parseVerdict validates raw JSON against the verdict schema and decodes it.
func (s *Synthesizer) parseVerdict(raw json.RawMessage) (verdictPayload, error) {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return verdictPayload{}, fmt.Errorf("validating verdict: %w", err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			descs = append(descs, e.String())
		}
		return verdictPayload{}, fmt.Errorf("schema violations: %s", strings.Join(descs, "; "))
	}

	var payload verdictPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return verdictPayload{}, fmt.Errorf("decoding verdict: %w", err)
	}
	if !contract.RiskLevel(payload.RiskLevel).Valid() {
		return verdictPayload{}, fmt.Errorf("unknown risk level %q", payload.RiskLevel)
	}
	return payload, nil
}

// buildUserPrompt assembles the completion context: clause label, profile,
// the deterministic tier as a prior signal, the playbook rule, the clause
// text, and each precedent tagged with its risk level.
func buildUserPrompt(
	clause contract.Clause,
	contractType string,
	profile contract.RiskProfile,
	tier contract.RiskLevel,
	rule playbook.Rule,
	precedents []contract.PrecedentRecord,
) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Clause label: %s\n", clause.Label)
	fmt.Fprintf(&sb, "Contract type: %s\n", contractType)
	fmt.Fprintf(&sb, "Risk profile: %s\n", profile)
	fmt.Fprintf(&sb, "Rule-based preliminary risk: %s\n\n", tier)

	sb.WriteString("Playbook for this clause type:\n")
	if rule.Empty() {
		sb.WriteString("(none)\n")
	} else {
		ruleJSON, _ := json.Marshal(rule)
		sb.Write(ruleJSON)
		sb.WriteString("\n")
	}

	sb.WriteString("\nActual contract clause:\n<clause>\n")
	sb.WriteString(clause.RawText)
	sb.WriteString("\n</clause>\n\nRelevant precedent clauses:\n")
	if len(precedents) == 0 {
		sb.WriteString("(none found)\n")
	} else {
		for _, p := range precedents {
			fmt.Fprintf(&sb, "- [%s] %s\n\n", p.RiskLevel, p.Text)
		}
	}

	sb.WriteString("\nReturn strictly the JSON schema specified in the system instruction.")
	return sb.String()
}

// buildRepairPrompt asks the model to fix a schema-invalid response.
func buildRepairPrompt(raw json.RawMessage, validationErr error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The following JSON had validation errors against the required schema: %v\n\n", validationErr)
	sb.WriteString("Here is the JSON you produced:\n")
	sb.Write(raw)
	sb.WriteString("\n\nPlease return corrected JSON that strictly matches the schema in the system instruction.\n")
	sb.WriteString("Return ONLY the corrected JSON object.")
	return sb.String()
}
