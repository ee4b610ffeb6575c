package process_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tabula/pkg/adapters/local"
	"github.com/aretw0/tabula/pkg/adapters/process"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/gateway"
	"github.com/aretw0/tabula/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "TABULA_PROCESS_HELPER"

// TestMain lets the test binary double as an engine process.
func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "":
		os.Exit(m.Run())
	case "serve":
		if err := process.Serve(context.Background(), local.New(), os.Stdin, os.Stdout); err != nil {
			os.Exit(2)
		}
		os.Exit(0)
	case "slow":
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		select {
		case <-sigs:
			os.Exit(130)
		case <-time.After(30 * time.Second):
			os.Exit(0)
		}
	case "crash":
		os.Stderr.WriteString("something went terribly wrong")
		os.Exit(123)
	case "garbage":
		os.Stdout.WriteString("not json")
		os.Exit(0)
	}
}

func helper(t *testing.T, mode string) *process.Engine {
	t.Helper()
	eng, err := process.New(process.Config{
		Command:     os.Args[0],
		Args:        []string{"-test.run=^$"},
		Environment: map[string]string{helperEnv: mode},
	}, process.WithGracePeriod(2*time.Second))
	require.NoError(t, err)
	return eng
}

func TestEngine_ThroughGateway(t *testing.T) {
	ctx := context.Background()
	gw, err := gateway.New(ctx, helper(t, "serve"))
	require.NoError(t, err)

	snap, err := gw.LoadJSON(ctx, `[{"a":"1","b":"x"},{"a":"2","b":"y"}]`)
	require.NoError(t, err)

	cols, err := gw.Columns(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)

	n, err := gw.Count(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEngine_EngineErrorTravelsInEnvelope(t *testing.T) {
	ctx := context.Background()
	eng := helper(t, "serve")

	_, err := eng.Invoke(ctx, domain.NewCall(domain.OpColumns, "{broken"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrUnreachable)
}

func TestEngine_MissingBinaryIsUnreachable(t *testing.T) {
	eng, err := process.New(process.Config{Command: "tabula-engine-that-does-not-exist"})
	require.NoError(t, err)

	_, err = eng.Invoke(context.Background(), domain.NewCall(domain.OpPing))
	assert.ErrorIs(t, err, ports.ErrUnreachable)

	_, err = gateway.New(context.Background(), eng)
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}

func TestEngine_Crash(t *testing.T) {
	_, err := helper(t, "crash").Invoke(context.Background(), domain.NewCall(domain.OpPing))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 123")
	assert.Contains(t, err.Error(), "something went terribly wrong")
}

func TestEngine_MalformedOutput(t *testing.T) {
	_, err := helper(t, "garbage").Invoke(context.Background(), domain.NewCall(domain.OpPing))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestEngine_CancelInterruptsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := helper(t, "slow").Invoke(ctx, domain.NewCall(domain.OpPing))
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 10*time.Second)
}

func TestNew_RequiresCommand(t *testing.T) {
	_, err := process.New(process.Config{})
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	in := strings.NewReader(`{"op":"ping","args":[]}`)
	require.NoError(t, process.Serve(ctx, local.New(), in, &out))

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	assert.Equal(t, local.Pong, env.Result)
	assert.Empty(t, env.Error)
}

func TestServe_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	failing := ports.EngineFunc(func(context.Context, domain.Call) (string, error) {
		return "", errors.New("unknown column \"z\"")
	})

	for _, input := range []string{`{"op":"collect","args":["{}","z"]}`, `not json`} {
		var out bytes.Buffer
		require.NoError(t, process.Serve(ctx, failing, strings.NewReader(input), &out))

		var env domain.Envelope
		require.NoError(t, json.Unmarshal(out.Bytes(), &env))
		assert.NotEmpty(t, env.Error, input)
		assert.Empty(t, env.Result)
	}
}
