package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// hostBridgeCore is a zapcore.Core that hands every entry to send. The host
// decides what to keep, so every level is enabled.
type hostBridgeCore struct {
	fields []zapcore.Field
	send   func(LogMessage)
}

func newBridgeLogger(send func(LogMessage)) *zap.Logger {
	return zap.New(&hostBridgeCore{send: send})
}

func (c *hostBridgeCore) Enabled(zapcore.Level) bool { return true }

func (c *hostBridgeCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &hostBridgeCore{fields: merged, send: c.send}
}

func (c *hostBridgeCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(entry, c)
}

func (c *hostBridgeCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.fields) > 0 {
		all = append(append([]zapcore.Field{}, c.fields...), fields...)
	}
	c.send(newMessage(entry, all))
	return nil
}

func (c *hostBridgeCore) Sync() error { return nil }
