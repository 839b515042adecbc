// Package extraction turns raw contract text into structured key terms and
// labeled clauses via a schema-validated structured completion.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/genai"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
)

// ErrExtractionFailed indicates the model could not produce a
// schema-conforming extraction even after the repair round-trip.
var ErrExtractionFailed = errors.New("contract extraction failed")

// maxContractChars truncates oversized contracts to keep prompts bounded.
const maxContractChars = 15000

const extractionSystemPrompt = `You are a contract analysis engine.
Extract structured key terms and clauses from the contract text.
Return ONLY valid JSON matching this schema (do not include any extra keys):

{
  "parties": ["Party A Ltd", "Party B Ltd"],
  "effective_date": "YYYY-MM-DD or null",
  "term_months": 12,
  "auto_renewal": true,
  "governing_law": "England and Wales",
  "contract_type": "saas" | "services" | "employment" | null,
  "clauses": [
    {
      "label": "limitation_of_liability" | "termination" | "governing_law" | "ip" | "other",
      "raw_text": "exact clause text from the contract",
      "start_char": 123,
      "end_char": 456
    }
  ]
}

Rules:
- If you are not sure about a value, use null (or [] for lists).
- "term_months" should be an integer number of months if you can infer it, otherwise null.
- "auto_renewal" should be true, false or null.
- "governing_law" should be a simple string like "England and Wales" if you can extract it.
- "contract_type" should be a best guess: "saas", "services", or "employment", or null if unclear.
- For clauses, include at least any limitation of liability, termination, and governing law clauses if present.
- "start_char" and "end_char" are offsets into the provided contract text string; if you cannot compute them reliably, use null.`

const extractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["parties", "clauses"],
  "properties": {
    "parties": {
      "type": "array",
      "items": {"type": "string"}
    },
    "effective_date": {"type": ["string", "null"]},
    "term_months": {"type": ["integer", "null"]},
    "auto_renewal": {"type": ["boolean", "null"]},
    "governing_law": {"type": ["string", "null"]},
    "contract_type": {"type": ["string", "null"]},
    "clauses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["label", "raw_text"],
        "properties": {
          "label": {
            "type": "string",
            "enum": ["limitation_of_liability", "termination", "governing_law", "ip", "other"]
          },
          "raw_text": {"type": "string"},
          "start_char": {"type": ["integer", "null"]},
          "end_char": {"type": ["integer", "null"]}
        }
      }
    }
  },
  "additionalProperties": true
}`

// Extractor drives the contract extraction completion.
type Extractor struct {
	completer genai.Completer
	schema    *gojsonschema.Schema
	logger    *logging.Logger
}

// NewExtractor builds an extractor over the given completer.
func NewExtractor(completer genai.Completer, logger *logging.Logger) (*Extractor, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(extractionSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling extraction schema: %w", err)
	}

	return &Extractor{
		completer: completer,
		schema:    schema,
		logger:    logger.Named("extraction"),
	}, nil
}

// Extract turns raw contract text into an ExtractedContract. A response
// failing schema validation gets one self-healing repair round-trip before
// the extraction is reported as failed.
func (e *Extractor) Extract(ctx context.Context, contractText string) (contract.ExtractedContract, error) {
	if strings.TrimSpace(contractText) == "" {
		return contract.ExtractedContract{}, fmt.Errorf("%w: empty contract text", ErrExtractionFailed)
	}

	userPrompt := buildExtractionPrompt(contractText)

	raw, err := e.completer.CompleteJSON(ctx, extractionSystemPrompt, userPrompt)
	if err != nil {
		return contract.ExtractedContract{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	extracted, validationErr := e.parse(raw)
	if validationErr == nil {
		return extracted, nil
	}

	e.logger.Warn(ctx, "extraction failed schema validation, attempting repair",
		zap.Error(validationErr),
	)

	var sb strings.Builder
	fmt.Fprintf(&sb, "The following JSON had validation errors in my schema: %v\n\n", validationErr)
	sb.WriteString("Here is the JSON you produced:\n")
	sb.Write(raw)
	sb.WriteString("\n\nPlease return corrected JSON that strictly matches the schema in the system instruction.\n")
	sb.WriteString("Return ONLY the corrected JSON object.")

	repaired, err := e.completer.CompleteJSON(ctx, extractionSystemPrompt, sb.String())
	if err != nil {
		return contract.ExtractedContract{}, fmt.Errorf("%w: repair completion: %v", ErrExtractionFailed, err)
	}
	extracted, validationErr = e.parse(repaired)
	if validationErr != nil {
		return contract.ExtractedContract{}, fmt.Errorf("%w: %v", ErrExtractionFailed, validationErr)
	}
	return extracted, nil
}

func (e *Extractor) parse(raw json.RawMessage) (contract.ExtractedContract, error) {
	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return contract.ExtractedContract{}, fmt.Errorf("validating extraction: %w", err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			descs = append(descs, violation.String())
		}
		return contract.ExtractedContract{}, fmt.Errorf("schema violations: %s", strings.Join(descs, "; "))
	}

	var extracted contract.ExtractedContract
	if err := json.Unmarshal(raw, &extracted); err != nil {
		return contract.ExtractedContract{}, fmt.Errorf("decoding extraction: %w", err)
	}
	return extracted, nil
}

func buildExtractionPrompt(contractText string) string {
	truncated := contractText
	if len(truncated) > maxContractChars {
		truncated = truncated[:maxContractChars]
	}
	var sb strings.Builder
	sb.WriteString("Contract text:\n<contract>\n")
	sb.WriteString(truncated)
	sb.WriteString("\n</contract>\n\nReturn ONLY the JSON object as described. Do not include any commentary or Markdown.")
	return sb.String()
}
