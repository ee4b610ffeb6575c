package display_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/tabula/pkg/adapters/display"
	"github.com/aretw0/tabula/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.Sink = (*display.Sink)(nil)
	_ ports.Sink = display.Multi(nil)
)

func TestSink_Show(t *testing.T) {
	var buf bytes.Buffer
	s := display.New(display.WithWriter(&buf))

	require.NoError(t, s.Show(context.Background(), "<p>hi</p>"))
	assert.Equal(t, "<p>hi</p>\n", buf.String())
}

func TestSink_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.html")
	s := display.New()

	require.NoError(t, s.WriteFile(context.Background(), path, "<html></html>"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	assert.Error(t, s.WriteFile(context.Background(), "", "x"))
}

func TestSink_Browse(t *testing.T) {
	dir := t.TempDir()
	var opened string
	s := display.New(
		display.WithTempDir(dir),
		display.WithOpener(func(_ context.Context, target string) error {
			opened = target
			return nil
		}),
	)

	require.NoError(t, s.Browse(context.Background(), "<b>x</b>"))
	require.NotEmpty(t, opened)
	assert.True(t, strings.HasSuffix(opened, ".html"))

	data, err := os.ReadFile(opened)
	require.NoError(t, err)
	assert.Equal(t, "<b>x</b>", string(data))
}

func TestSink_BrowseOpenerFails(t *testing.T) {
	s := display.New(
		display.WithTempDir(t.TempDir()),
		display.WithOpener(func(context.Context, string) error { return errors.New("no browser") }),
	)

	err := s.Browse(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no browser")
}

func TestSink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	s := display.New(display.WithWriter(&buf))
	assert.ErrorIs(t, s.Show(ctx, "x"), context.Canceled)
	assert.Empty(t, buf.String())
}

type failing struct{}

func (failing) Show(context.Context, string) error              { return errors.New("boom") }
func (failing) WriteFile(context.Context, string, string) error { return errors.New("boom") }
func (failing) Browse(context.Context, string) error            { return errors.New("boom") }

func TestMulti(t *testing.T) {
	var a, b bytes.Buffer
	m := display.Multi{
		display.New(display.WithWriter(&a)),
		nil,
		display.New(display.WithWriter(&b)),
	}

	require.NoError(t, m.Show(context.Background(), "x"))
	assert.Equal(t, "x\n", a.String())
	assert.Equal(t, "x\n", b.String())

	m = append(m, failing{})
	err := m.Show(context.Background(), "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "x\ny\n", a.String(), "other sinks still receive the markup")
}
