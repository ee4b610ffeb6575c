package registry_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/tabula/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upper(_ context.Context, values []any) (any, error) {
	return strings.ToUpper(fmt.Sprint(values[0])), nil
}

func TestRegistry_RegisterLookup(t *testing.T) {
	r := registry.New()
	r.Register("Upper", upper)
	r.Register("Concat", func(_ context.Context, values []any) (any, error) { return fmt.Sprint(values...), nil })

	_, ok := r.Lookup("Upper")
	assert.True(t, ok)
	_, ok = r.Lookup("Lower")
	assert.False(t, ok)
	assert.Equal(t, []string{"Concat", "Upper"}, r.Names())
}

func TestRegistry_NilLookup(t *testing.T) {
	var r *registry.Registry
	_, ok := r.Lookup("Upper")
	assert.False(t, ok)
}

func TestRegistry_Apply(t *testing.T) {
	r := registry.New()
	r.Register("Upper", upper)

	out, err := r.Apply(context.Background(), "Upper", [][]any{{"a"}, {"b"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "B"}, out)

	_, err = r.Apply(context.Background(), "Missing", nil)
	assert.Error(t, err)
}

func TestRegistry_ApplyStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	r := registry.New()
	r.Register("Fail", func(context.Context, []any) (any, error) { return nil, boom })

	_, err := r.Apply(context.Background(), "Fail", [][]any{{1}})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "row 0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Register("Upper", upper)
	_, err = r.Apply(ctx, "Upper", [][]any{{"a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
