package expr_test

import (
	"testing"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_Build(t *testing.T) {
	tests := []struct {
		name    string
		spec    expr.Spec
		want    expr.Expr
		wantErr bool
	}{
		{name: "function", spec: expr.Spec{Function: "sha256", Args: []string{"a", "b"}}, want: expr.SHA256("a", "b")},
		{name: "canonical name", spec: expr.Spec{Function: "SHA512", Args: []string{"a"}}, want: expr.SHA512("a")},
		{name: "unknown function passes through", spec: expr.Spec{Function: "Upper", Args: []string{"a"}}, want: expr.Call("Upper", "a")},
		{name: "literal value", spec: expr.Spec{Function: "lit", Value: 7}, want: expr.Literal(7)},
		{name: "literal json arg", spec: expr.Spec{Function: "Lit", Args: []string{"3"}}, want: expr.Literal(3)},
		{name: "literal raw arg", spec: expr.Spec{Function: "Lit", Args: []string{"north"}}, want: expr.Literal("north")},
		{name: "collect list", spec: expr.Spec{Function: "collect_list", Args: []string{"a"}}, want: expr.CollectList("a")},
		{name: "collect set", spec: expr.Spec{Function: "CollectSet", Args: []string{"a"}}, want: expr.CollectSet("a")},
		{name: "split", spec: expr.Spec{Split: "tags", Delimiter: ","}, want: expr.SplitOn("tags", ",")},
		{name: "split and function", spec: expr.Spec{Split: "tags", Function: "Col"}, wantErr: true},
		{name: "nothing", spec: expr.Spec{}, wantErr: true},
		{name: "collect with two columns", spec: expr.Spec{Function: "CollectList", Args: []string{"a", "b"}}, wantErr: true},
		{name: "literal without value", spec: expr.Spec{Function: "Lit"}, wantErr: true},
		{name: "function without args", spec: expr.Spec{Function: "Col"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Build()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidExpression)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSplit(t *testing.T) {
	s, err := expr.ParseSplit("path:/")
	require.NoError(t, err)
	assert.Equal(t, expr.SplitOn("path", "/"), s)

	s, err = expr.ParseSplit("time::")
	require.NoError(t, err)
	assert.Equal(t, ":", s.Delimiter)

	_, err = expr.ParseSplit("nodelimiter")
	assert.Error(t, err)
}
