package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsString(t *testing.T) {
	params := Params{
		"region":        "台北市",
		"election_year": float64(2026),
		"empty":         "",
		"nil":           nil,
		"nested":        map[string]any{"a": 1},
	}

	assert.Equal(t, "台北市", params.String("region", ""))
	assert.Equal(t, "2026", params.String("election_year", ""))
	assert.Equal(t, "fallback", params.String("empty", "fallback"))
	assert.Equal(t, "fallback", params.String("nil", "fallback"))
	assert.Equal(t, "fallback", params.String("missing", "fallback"))
	assert.Equal(t, "fallback", params.String("nested", "fallback"))
}

func TestParamsInt(t *testing.T) {
	params := Params{
		"float":  float64(30),
		"string": "15",
		"bad":    "soon",
	}

	assert.Equal(t, 30, params.Int("float", 0))
	assert.Equal(t, 15, params.Int("string", 0))
	assert.Equal(t, 7, params.Int("bad", 7))
	assert.Equal(t, 7, params.Int("missing", 7))
}

func TestParamsStrings(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []string
	}{
		{"string slice", []string{"交通", "教育"}, []string{"交通", "教育"}},
		{"any slice from json", []any{"交通", "教育"}, []string{"交通", "教育"}},
		{"comma separated", "交通, 教育,", []string{"交通", "教育"}},
		{"empty list", []any{}, []string{}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := Params{"keywords": tt.value}
			assert.Equal(t, tt.expected, params.Strings("keywords"))
		})
	}

	assert.Nil(t, Params{}.Strings("keywords"))
}
