package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/tabula/pkg/adapters/local"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const records = `[
{"region":"north","amount":10,"tags":"a,b"},
{"region":"south","amount":5,"tags":"c"},
{"region":"north","amount":10,"tags":"a,b"}
]`

type harness struct {
	t      *testing.T
	dir    string
	config string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tabula.yaml")
	content := fmt.Sprintf("store:\n  kind: file\n  path: %s\nlog:\n  level: off\n", filepath.Join(dir, "sessions"))
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))
	return &harness{t: t, dir: dir, config: cfg}
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--config", h.config}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(stdin, args...)
	require.NoError(h.t, err, errOut)
	return out
}

func (h *harness) load() string {
	h.t.Helper()
	return strings.TrimSpace(h.mustRun(records, "load", "-"))
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "version"})
	root.SetOut(&out)
	require.NoError(t, root.Execute())
	assert.Equal(t, "tabula version dev\n", out.String())
}

func TestRoot_PrintsHelp(t *testing.T) {
	h := newHarness(t)
	out, errOut, err := h.run("")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, errOut, "|_.__/")
}

func TestLoad_GeneratesSession(t *testing.T) {
	h := newHarness(t)
	id := h.load()
	assert.NotEmpty(t, id)

	assert.Equal(t, "region\namount\ntags\n", h.mustRun("", "columns", "-s", id))
	assert.Equal(t, "3\n", h.mustRun("", "count", "-s", id))
}

func TestLoad_NamedSessionFromFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "rows.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n{\"a\":2}\n"), 0o644))

	out, errOut, err := h.run("", "load", path, "--session", "mine")
	require.NoError(t, err)
	assert.Equal(t, "mine\n", out)
	assert.Contains(t, errOut, "loaded 2 records")
}

func TestLoad_KeepsColumnOrderAndPrecision(t *testing.T) {
	h := newHarness(t)
	id := strings.TrimSpace(h.mustRun(`{"zeta":9007199254740993,"alpha":"x"}`, "load", "-"))

	assert.Equal(t, "zeta\nalpha\n", h.mustRun("", "columns", "-s", id))
	assert.Equal(t, "[9007199254740993]\n", h.mustRun("", "collect", "-s", id, "zeta"))
}

func TestLoad_CSV(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("region,amount\nnorth,10\nsouth\n"), 0o644))

	_, errOut, err := h.run("", "load", path, "--session", "csv")
	require.NoError(t, err, errOut)
	assert.Contains(t, errOut, "loaded 2 records")
	assert.Equal(t, "region\namount\n", h.mustRun("", "columns", "-s", "csv"))
	assert.Equal(t, "[\"10\",\"\"]\n", h.mustRun("", "collect", "-s", "csv", "amount"))

	// --format overrides the extension.
	txt := filepath.Join(h.dir, "rows.txt")
	require.NoError(t, os.WriteFile(txt, []byte("a\n1\n"), 0o644))
	h.mustRun("", "load", txt, "--format", "csv", "--session", "txt")
	assert.Equal(t, "a\n", h.mustRun("", "columns", "-s", "txt"))

	_, _, err = h.run("", "load", path, "--format", "xml")
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	h := newHarness(t)
	id := h.load()

	assert.Equal(t, "2\n", h.mustRun("", "count", "-s", id, "--distinct"))
	assert.Equal(t, "1\n", h.mustRun("", "count", "-s", id, "--duplicates"))
	assert.Equal(t, "2\n", h.mustRun("", "count", "-s", id, "--distinct", "region"))

	_, _, err := h.run("", "count", "-s", id, "region")
	assert.Error(t, err)
	_, _, err = h.run("", "count", "-s", id, "--distinct", "--duplicates")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	h := newHarness(t)
	id := h.load()

	out := h.mustRun("", "apply", "-s", id, "--column", "parts", "--split", "tags:,")
	assert.Equal(t, "region\namount\ntags\nparts\n", out)

	h.mustRun("", "apply", "-s", id, "-c", "key", "--fn", "sha256", "--args", "region,amount")
	h.mustRun("", "apply", "-s", id, "-c", "one", "--fn", "lit", "--value", "1")

	var ones []any
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("", "collect", "-s", id, "one")), &ones))
	assert.Equal(t, []any{float64(1), float64(1), float64(1)}, ones)

	var parts []any
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("", "collect", "-s", id, "parts")), &parts))
	assert.Equal(t, []any{[]any{"a", "b"}, []any{"c"}, []any{"a", "b"}}, parts)

	var keys []string
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("", "collect", "-s", id, "key")), &keys))
	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[2])
	assert.NotEqual(t, keys[0], keys[1])
}

func TestApply_Invalid(t *testing.T) {
	h := newHarness(t)
	id := h.load()

	tests := map[string][]string{
		"neither fn nor split": {"apply", "-s", id, "-c", "x"},
		"both fn and split":    {"apply", "-s", id, "-c", "x", "--fn", "col", "--args", "a", "--split", "a:,"},
		"bad split":            {"apply", "-s", id, "-c", "x", "--split", "nodelim"},
		"fn without args":      {"apply", "-s", id, "-c", "x", "--fn", "sha256"},
		"unknown session":      {"apply", "-s", "nope", "-c", "x", "--fn", "col", "--args", "region"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := h.run("", args...)
			assert.Error(t, err)
		})
	}

	// Failed applies leave the stored table as it was.
	assert.Equal(t, "region\namount\ntags\n", h.mustRun("", "columns", "-s", id))
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	id := h.load()

	out := h.mustRun("", "show", "-s", id, "--kind", "show", "--rows", "1")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2, "header and one row")
	assert.Contains(t, lines[0], "region")

	html := h.mustRun("", "show", "-s", id, "--inline")
	assert.Contains(t, html, "<table")

	path := filepath.Join(h.dir, "table.html")
	h.mustRun("", "show", "-s", id, "--file", path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "north")

	_, _, err = h.run("", "show", "-s", id, "--kind", "sideways")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	h := newHarness(t)
	id := h.load()

	out := h.mustRun("", "describe", "-s", id, "--raw")
	assert.Contains(t, out, "# Table")
	assert.Contains(t, out, "| 1 | region | 2 |")
}

func TestChart(t *testing.T) {
	h := newHarness(t)
	id := h.load()

	out := h.mustRun("", "chart", "-s", id, "-g", "region", "-a", "amount:sum", "-t", "Amount")
	assert.Contains(t, out, "Amount")

	path := filepath.Join(h.dir, "chart.html")
	h.mustRun("", "chart", "-s", id, "-k", "column", "-g", "region", "-a", "amount:SUM", "-o", path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, _, err = h.run("", "chart", "-s", id, "-g", "region", "-a", "amount")
	assert.Error(t, err)
	_, _, err = h.run("", "chart", "-s", id, "-k", "pie", "-g", "region", "-a", "amount:sum")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	h := newHarness(t)
	recipePath := filepath.Join(h.dir, "sales.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "sales.json"), []byte(records), 0o644))
	require.NoError(t, os.WriteFile(recipePath, []byte(`
title: Sales
source: sales.json
charts:
  - name: totals
    kind: column
    title: Totals
    group_by: region
    aggregations: [{column: amount, func: sum}]
pages:
  - name: Overview
    blocks:
      - heading: Sales
      - chart: totals
      - table: true
`), 0o644))

	out := filepath.Join(h.dir, "out", "sales.html")
	_, errOut, err := h.run("", "build", recipePath, "-o", out, "--session", "dash")
	require.NoError(t, err, errOut)
	assert.Contains(t, errOut, "saved")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Sales")
	assert.Contains(t, string(data), "Overview")

	// The dashboard session is not a table.
	_, _, err = h.run("", "columns", "-s", "dash")
	assert.Error(t, err)
}

func TestEngineStdio(t *testing.T) {
	h := newHarness(t)
	call, err := json.Marshal(domain.NewCall(domain.OpPing))
	require.NoError(t, err)

	out := h.mustRun(string(call), "engine", "--stdio", "ping")

	var env domain.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, local.Pong, env.Result)
	assert.Empty(t, env.Error)
}

func TestBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tabula.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store:\n  kind: s3\n"), 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"--config", cfg, "columns", "-s", "x"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.kind")
}

func TestLogLevelFlag(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("", "--log-level", "shouting", "columns", "-s", "x")
	assert.Error(t, err)
}
