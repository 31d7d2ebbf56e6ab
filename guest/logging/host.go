//go:build wasm

package logging

import (
	"encoding/json"
	"runtime"

	"go.uber.org/zap"

	"github.com/runjs/runjs/guest/internal/mem"
)

//go:wasmimport runjs log_message
func logMessage(ptr, size uint32)

// NewHostBridgeLogger returns a logger whose entries are written by the
// host-side logger.
func NewHostBridgeLogger() *zap.Logger {
	return newBridgeLogger(sendLogMessage)
}

func sendLogMessage(msg LogMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		// Nowhere to report it.
		return
	}
	ptr, size := mem.BytesToPtr(b)
	logMessage(ptr, size)
	runtime.KeepAlive(b) // until ptr is no longer needed.
}
