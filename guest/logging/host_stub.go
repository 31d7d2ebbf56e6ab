//go:build !wasm

package logging

import "go.uber.org/zap"

// NewHostBridgeLogger returns a development logger outside WebAssembly.
func NewHostBridgeLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
