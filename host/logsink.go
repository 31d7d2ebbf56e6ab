package host

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/runjs/runjs/runtime"
)

// LogMessage is a log entry sent by the guest through log_message.
type LogMessage struct {
	Level   int32             `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// zapLevelFromSlogLevel maps the guest's slog level onto zap. Levels above
// error are logged as errors so a guest cannot stop the host.
func zapLevelFromSlogLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func logMessageFn(ctx context.Context, mem runtime.Memory, stack []uint64) {
	buf := uint32(stack[0])
	size := uint32(stack[1])

	logger := stackFromContext(ctx).Logger
	if logger == nil {
		return
	}

	raw := mustRead(mem, buf, size, "log message")
	var msg LogMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Error("failed to unmarshal log message from guest", zap.Error(err))
		return
	}

	fields := make([]zap.Field, 0, len(msg.Fields))
	for k, v := range msg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	if ce := logger.Check(zapLevelFromSlogLevel(slog.Level(msg.Level)), msg.Message); ce != nil {
		ce.Write(fields...)
	}
}
