package risk

// verdictSchema is the JSON Schema every completion response must satisfy
// before it becomes a ClauseAnalysis. A response failing validation gets one
// repair round-trip; a second failure is a hard error for that clause.
const verdictSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["risk_level", "explanation", "suggested_text"],
  "properties": {
    "risk_level": {
      "type": "string",
      "enum": ["GREEN", "AMBER", "RED"]
    },
    "explanation": {
      "type": "string",
      "minLength": 1
    },
    "suggested_text": {
      "type": "string"
    },
    "precedent_snippets": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "additionalProperties": true
}`
