package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runjs/runjs/runtime"
)

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no arguments", args: nil, want: 2},
		{name: "help", args: []string{"help"}, want: 0},
		{name: "build without input", args: []string{"build"}, want: 2},
		{name: "run with two inputs", args: []string{"run", "a.wasm", "b.wasm"}, want: 2},
		{name: "unknown flag", args: []string{"run", "-bogus", "a.wasm"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			got := run(context.Background(), tt.args, nil, &stdout, &stderr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.js")
	require.NoError(t, os.WriteFile(src, []byte("1"), 0o600))

	var stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"run", filepath.Join(dir, "missing.wasm")}, nil, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "runjs: ")

	stderr.Reset()
	assert.Equal(t, 1, run(context.Background(), []string{"build", src}, nil, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "engine module path is required")
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
engine = "file.wasm"
output = "file-out.wasm"
allowed-origins = ["https://file.test"]
http-timeout = "2s"
`), 0o600))

	fs := newFlagSet("runjs", &bytes.Buffer{}, true, true)
	opts, err := fs.parse([]string{
		"-config", file,
		"-o", "flag-out.wasm",
		"-allow", "https://a.test", "-allow", "https://b.test",
		"-runtime-mode", "compiler",
		"-no-wasm-opt",
		"input.js",
	})
	require.NoError(t, err)
	assert.Equal(t, "input.js", opts.input)
	assert.Equal(t, "file.wasm", opts.cfg.EnginePath)
	assert.Equal(t, "flag-out.wasm", opts.cfg.Output)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, opts.cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Second, opts.cfg.HTTPTimeout)
	assert.Equal(t, runtime.ModeCompiler, opts.cfg.Runtime.Mode)
	assert.True(t, opts.cfg.SkipWasmOpt)
	assert.Equal(t, file, opts.cfg.File)
}

func TestNoNetworkFlag(t *testing.T) {
	fs := newFlagSet("run", &bytes.Buffer{}, false, true)
	opts, err := fs.parse([]string{"-allow", "https://a.test", "-no-network", "module.wasm"})
	require.NoError(t, err)
	assert.NotNil(t, opts.cfg.AllowedOrigins)
	assert.Empty(t, opts.cfg.AllowedOrigins)
}

func TestBadRuntimeMode(t *testing.T) {
	fs := newFlagSet("run", &bytes.Buffer{}, false, true)
	_, err := fs.parse([]string{"-runtime-mode", "jit", "module.wasm"})
	assert.Error(t, err)
}

func TestBuildOptionsCarryLogSettings(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "runjs.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
engine = "engine.wasm"
log-level = "debug"
log-development = true
`), 0o600))

	opts, err := newFlagSet("build", &bytes.Buffer{}, true, false).parse([]string{"-config", file, "input.js"})
	require.NoError(t, err)
	got := buildOptions(opts, nil)
	assert.Equal(t, "debug", got.LogLevel)
	assert.True(t, got.LogDevelopment)
	assert.Equal(t, "engine.wasm", got.Engine)

	opts, err = newFlagSet("build", &bytes.Buffer{}, true, false).parse([]string{"-config", file, "-log-level", "error", "input.js"})
	require.NoError(t, err)
	assert.Equal(t, "error", buildOptions(opts, nil).LogLevel)
}
