package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"9007199254740993", int64(9007199254740993)},
		{"-7", int64(-7)},
		{"7.5", 7.5},
		{"1e2", int64(100)},
		{"1e300", 1e300},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Number(json.Number(tt.in)))
		})
	}
}

func TestNormalizeJSON(t *testing.T) {
	in := []any{json.Number("1"), "x", nil, []any{json.Number("2.5")}, map[string]any{"n": json.Number("3")}}
	want := []any{int64(1), "x", nil, []any{2.5}, map[string]any{"n": int64(3)}}
	assert.Equal(t, want, domain.NormalizeJSON(in))
}
