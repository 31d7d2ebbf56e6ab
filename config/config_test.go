package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runjs/runjs/runtime"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "index.wasm", cfg.Output)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Nil(t, cfg.AllowedOrigins)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.Equal(t, runtime.Config{Type: "wazero", Mode: runtime.ModeInterpreter}, cfg.Runtime)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
engine = "engine.wasm"
wasm-opt = "/opt/binaryen/bin/wasm-opt"
allowed-origins = ["https://example.com", "http://localhost:8080"]
http-timeout = "5s"
log-level = "debug"

[runtime]
mode = "compiler"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "engine.wasm", cfg.EnginePath)
	assert.Equal(t, "/opt/binaryen/bin/wasm-opt", cfg.WasmOpt)
	assert.Equal(t, []string{"https://example.com", "http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, runtime.ModeCompiler, cfg.Runtime.Mode)
	assert.Equal(t, "index.wasm", cfg.Output)
	assert.Equal(t, path, cfg.File)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
engine = "from-file.wasm"
log-level = "debug"
`)
	envVars := map[string]string{
		"RUNJS_ENGINE_PATH":     "from-env.wasm",
		"RUNJS_ALLOWED_ORIGINS": "https://a.test,https://b.test",
		"RUNJS_HTTP_TIMEOUT":    "250ms",
		"RUNJS_SKIP_WASM_OPT":   "true",
		"RUNJS_RUNTIME_MODE":    "compiler",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.wasm", cfg.EnginePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTPTimeout)
	assert.True(t, cfg.SkipWasmOpt)
	assert.Equal(t, runtime.ModeCompiler, cfg.Runtime.Mode)
}

func TestEmptyAllowListDeniesAll(t *testing.T) {
	t.Setenv("RUNJS_ALLOWED_ORIGINS", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg.AllowedOrigins)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "unknown key", file: "engin = \"typo.wasm\"\n"},
		{name: "bad syntax", file: "engine = \n"},
		{name: "bad duration", env: map[string]string{"RUNJS_HTTP_TIMEOUT": "soon"}},
		{name: "negative timeout", env: map[string]string{"RUNJS_HTTP_TIMEOUT": "-1s"}},
		{name: "unknown mode", file: "[runtime]\nmode = \"jit\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, t.TempDir(), tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := FindFile(nested)
	require.NoError(t, err)
	if path != "" {
		// A runjs.toml above the temp dir would shadow the test.
		t.Skipf("found unrelated %s", path)
	}

	want := writeFile(t, root, "")
	path, err = FindFile(nested)
	require.NoError(t, err)
	assert.Equal(t, want, path)
}
