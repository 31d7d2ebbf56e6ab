package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runjs/runjs/host"
)

// EngineEnv names a built engine module. Tests against the real engine are
// skipped without it.
const EngineEnv = "RUNJS_ENGINE_WASM"

func buildScript(t *testing.T, src string) string {
	t.Helper()
	engine := os.Getenv(EngineEnv)
	if engine == "" {
		t.Skipf("%s is not set", EngineEnv)
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "input.js")
	output := filepath.Join(dir, "index.wasm")
	require.NoError(t, os.WriteFile(input, []byte(src), 0o600))

	var stderr bytes.Buffer
	err := Build(context.Background(), Options{
		Input:       input,
		Output:      output,
		Engine:      engine,
		SkipWasmOpt: true,
		Stderr:      &stderr,
	})
	require.NoError(t, err, stderr.String())
	return output
}

func runModule(t *testing.T, module string, allow []string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	d, err := host.New(context.Background(), &host.Config{
		Path:           module,
		AllowedOrigins: allow,
		Stdout:         &stdout,
		Stderr:         &stderr,
	})
	require.NoError(t, err)
	err = d.Run(context.Background())
	return stdout.String(), err
}

func TestEngineConsoleLog(t *testing.T) {
	module := buildScript(t, `console.log("a", 1, true)`)

	out, err := runModule(t, module, nil)
	require.NoError(t, err)
	assert.Equal(t, "a 1 true\n", out)
}

func TestEngineRunsAreIdentical(t *testing.T) {
	module := buildScript(t, `
		globalThis.count = (globalThis.count || 0) + 1;
		console.log("count", count);
	`)

	first, err := runModule(t, module, nil)
	require.NoError(t, err)
	second, err := runModule(t, module, nil)
	require.NoError(t, err)
	assert.Equal(t, "count 1\n", first)
	assert.Equal(t, first, second)
}

func TestEngineHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("pong"))
	}))
	t.Cleanup(srv.Close)

	module := buildScript(t, `
		const resp = reqwest_get({method: "GET", uri: "`+srv.URL+`/ping", headers: {}});
		console.log(resp.status, String.fromCharCode.apply(null, new Uint8Array(resp.body)));
		try {
			reqwest_get({method: "GET", uri: "https://evil.test/", headers: {}});
		} catch (e) {
			console.log(e.name);
		}
	`)

	out, err := runModule(t, module, []string{srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "200 pong\nOriginNotAllowed\n", out)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEngineUncaughtError(t *testing.T) {
	module := buildScript(t, `throw new Error("boom")`)

	_, err := runModule(t, module, nil)
	assert.ErrorIs(t, err, host.ErrEvaluation)
}

func TestEngineCompileErrorFailsBuild(t *testing.T) {
	engine := os.Getenv(EngineEnv)
	if engine == "" {
		t.Skipf("%s is not set", EngineEnv)
	}
	dir := t.TempDir()
	input := filepath.Join(dir, "input.js")
	output := filepath.Join(dir, "index.wasm")
	require.NoError(t, os.WriteFile(input, []byte("let = ;"), 0o600))

	err := Build(context.Background(), Options{Input: input, Output: output, Engine: engine, SkipWasmOpt: true, Stderr: &bytes.Buffer{}})
	assert.ErrorIs(t, err, ErrChildFailed)
	assert.NoFileExists(t, output)
}
