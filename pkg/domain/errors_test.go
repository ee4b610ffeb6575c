package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCallError_UnwrapsToKind(t *testing.T) {
	err := &domain.CallError{Op: domain.OpApplySplit, Kind: domain.ErrOperation, Message: "column not found: b"}

	assert.ErrorIs(t, err, domain.ErrOperation)
	assert.NotErrorIs(t, err, domain.ErrLoad)
	assert.Equal(t, "apply.split: operation failed: column not found: b", err.Error())

	wrapped := fmt.Errorf("table: %w", err)
	var callErr *domain.CallError
	assert.True(t, errors.As(wrapped, &callErr))
	assert.Equal(t, domain.OpApplySplit, callErr.Op)
}

func TestCallError_WithoutMessage(t *testing.T) {
	err := &domain.CallError{Op: domain.OpDashboardAddText, Kind: domain.ErrOperation}
	assert.Equal(t, "dashboard.add_text: operation failed", err.Error())
}

func TestNewCall_CopiesArgs(t *testing.T) {
	args := []string{"a", "b"}
	call := domain.NewCall(domain.OpCollect, args...)
	args[0] = "mutated"

	assert.Equal(t, "a", call.Arg(0))
	assert.Equal(t, "b", call.Arg(1))
	assert.Equal(t, "", call.Arg(2))
	assert.Equal(t, "", call.Arg(-1))
}

func TestChartKind_Op(t *testing.T) {
	op, ok := domain.ChartStackedPercent.Op()
	assert.True(t, ok)
	assert.Equal(t, domain.OpChartStackedPercent, op)

	_, ok = domain.ChartKind("pie").Op()
	assert.False(t, ok)
}

func TestDashboardView_Page(t *testing.T) {
	view := domain.DashboardView{Pages: []domain.PageView{{Name: "P1"}, {Name: "P2"}}}

	p, ok := view.Page("P2")
	assert.True(t, ok)
	assert.Equal(t, "P2", p.Name)

	_, ok = view.Page("missing")
	assert.False(t, ok)
}
