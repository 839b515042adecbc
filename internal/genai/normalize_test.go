package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain json",
			input: `{"risk_level": "GREEN"}`,
			want:  `{"risk_level": "GREEN"}`,
		},
		{
			name:  "json with surrounding whitespace",
			input: "\n  {\"a\": 1}  \n",
			want:  `{"a": 1}`,
		},
		{
			name:  "fenced json block",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "fenced block without language tag",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:    "prose instead of json",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "truncated json",
			input:   `{"risk_level": "GRE`,
			wantErr: true,
		},
		{
			name:    "empty response",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeJSON(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrCompletionFailed)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name    string
		values  []float32
		wantDim int
		wantErr bool
	}{
		{
			name:    "matching dimension",
			values:  []float32{0.1, 0.2, 0.3},
			wantDim: 3,
		},
		{
			name:    "dimension check skipped when zero",
			values:  []float32{0.1, 0.2},
			wantDim: 0,
		},
		{
			name:    "wrong dimension",
			values:  []float32{0.1, 0.2},
			wantDim: 3,
			wantErr: true,
		},
		{
			name:    "empty vector",
			values:  nil,
			wantDim: 3,
			wantErr: true,
		},
		{
			name:    "all-zero vector",
			values:  []float32{0, 0, 0},
			wantDim: 3,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeVector(tt.values, tt.wantDim)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrEmbeddingFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.values, got)
		})
	}
}
