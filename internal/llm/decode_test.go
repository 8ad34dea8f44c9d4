package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"Đây là kết quả: {\"a\":1} xong.", `{"a":1}`},
		{"  ", ""},
		{"```", ""},
	}
	for _, tt := range tests {
		if got := cleanModelJSON(tt.raw); got != tt.want {
			t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDecodeAnswer(t *testing.T) {
	req := extraction.Request{
		Kind:   extraction.KindDelete,
		Schema: extraction.JSONSchema(extraction.KindDelete),
	}

	t.Run("nulls are accepted", func(t *testing.T) {
		out := &extraction.DeleteCriteria{}
		err := decodeAnswer("test", `{"description":"phở","amount":null,"meal_time":null,"delete_most_recent":false,"confidence":0.7}`, req, out)
		require.NoError(t, err)
		assert.Equal(t, "phở", out.Description)
		assert.Nil(t, out.Amount)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		err := decodeAnswer("test", `{"delete_most_recent":true,"confidence":0.7,"reason":"x"}`, req, &extraction.DeleteCriteria{})
		assert.True(t, extraction.IsMalformedOutput(err))
	})

	t.Run("out of range confidence is rejected", func(t *testing.T) {
		err := decodeAnswer("test", `{"delete_most_recent":true,"confidence":7}`, req, &extraction.DeleteCriteria{})
		assert.True(t, extraction.IsMalformedOutput(err))
	})

	t.Run("empty", func(t *testing.T) {
		err := decodeAnswer("test", "", req, &extraction.DeleteCriteria{})
		assert.True(t, extraction.IsMalformedOutput(err))
	})
}

func TestDecodeAnswer_AllKindsCompile(t *testing.T) {
	kinds := []extraction.SchemaKind{
		extraction.KindIntent, extraction.KindExpense, extraction.KindDelete,
		extraction.KindBalance, extraction.KindStatistics,
	}
	for _, kind := range kinds {
		_, err := compiledSchema(kind, extraction.JSONSchema(kind))
		assert.NoError(t, err, "kind %s", kind)
	}
}
