package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/runjs/runjs/runtime"
)

// newWazeroRuntime creates a new Wazero runtime instance
func newWazeroRuntime(cfg *runtime.Config) (runtime.Runtime, error) {
	var wrc wazero.RuntimeConfig
	switch cfg.Mode {
	case runtime.ModeInterpreter, "":
		wrc = wazero.NewRuntimeConfigInterpreter()
	case runtime.ModeCompiler:
		wrc = wazero.NewRuntimeConfigCompiler()
	default:
		return nil, fmt.Errorf("wazero: unknown mode %q: %w", cfg.Mode, runtime.ErrInvalidConfiguration)
	}

	// Cancelling the call context stops a running guest.
	wrc = wrc.WithCloseOnContextDone(true)

	return &wazeroRuntime{
		runtime: wazero.NewRuntimeWithConfig(context.Background(), wrc),
	}, nil
}
