// Package logging forwards guest log entries to the host's log_message
// import. Entries travel as JSON and use slog level numbers, extended with
// the zap levels slog lacks.
package logging

import (
	"fmt"
	"log/slog"

	"go.uber.org/zap/zapcore"
)

// Extended log levels beyond slog to support Zap's additional levels
const (
	LevelDPanic slog.Level = slog.LevelError + 1 // 9
	LevelPanic  slog.Level = slog.LevelError + 2 // 10
	LevelFatal  slog.Level = slog.LevelError + 3 // 11
)

// LogMessage is the payload of one log_message call.
type LogMessage struct {
	Level   int32             `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// SlogLevel maps a zap level onto the wire level.
func SlogLevel(l zapcore.Level) slog.Level {
	switch l {
	case zapcore.DebugLevel:
		return slog.LevelDebug
	case zapcore.InfoLevel:
		return slog.LevelInfo
	case zapcore.WarnLevel:
		return slog.LevelWarn
	case zapcore.ErrorLevel:
		return slog.LevelError
	case zapcore.DPanicLevel:
		return LevelDPanic
	case zapcore.PanicLevel:
		return LevelPanic
	case zapcore.FatalLevel:
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

// newMessage flattens entry and fields into a LogMessage. Field values are
// rendered with their default formatting.
func newMessage(entry zapcore.Entry, fields []zapcore.Field) LogMessage {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}

	out := make(map[string]string, len(enc.Fields)+2)
	for k, v := range enc.Fields {
		out[k] = fmt.Sprint(v)
	}
	if entry.LoggerName != "" {
		out["logger"] = entry.LoggerName
	}
	if entry.Caller.Defined {
		out["caller"] = entry.Caller.String()
	}

	return LogMessage{
		Level:   int32(SlogLevel(entry.Level)),
		Message: entry.Message,
		Fields:  out,
	}
}
