// Package wazero registers the wazero-backed runtime. Import it for its
// side effect.
package wazero

import "github.com/runjs/runjs/runtime"

func init() {
	runtime.Register(runtime.DefaultType, newWazeroRuntime)
}
