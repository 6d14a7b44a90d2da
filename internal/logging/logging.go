// Package logging adapts journal operation logs to zap and fans them out to several sinks.
package logging

import (
	"context"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	statusError     = "error"
	statusRecovered = "recovered"
)

// ZapOperationLogger writes operation logs as structured zap entries.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger returns a logger writing to logger, or a no-op when logger is nil.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapOperationLogger{logger: logger}
}

// LogOperation logs rejections and recoveries at warn level and everything else at info.
func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry journal.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.Int("gold_delta", entry.GoldDelta),
		zap.Int("gold_balance", entry.GoldBalance),
		zap.Int("streak", entry.Streak),
	}
	if id := entry.EntryID.String(); id != "" {
		fields = append(fields, zap.String("entry_id", id))
	}
	if item := entry.ItemID.String(); item != "" {
		fields = append(fields, zap.String("item_id", item))
	}
	if entry.Key != "" {
		fields = append(fields, zap.String("key", entry.Key))
	}
	if entry.Detail != "" {
		fields = append(fields, zap.String("detail", entry.Detail))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}
	level := zapcore.InfoLevel
	if entry.Status == statusError || entry.Status == statusRecovered {
		level = zapcore.WarnLevel
	}
	operationLogger.logger.Log(level, "journal operation", fields...)
}

type multiLogger []journal.OperationLogger

// Combine returns a logger that forwards every entry to each non-nil logger in order.
func Combine(loggers ...journal.OperationLogger) journal.OperationLogger {
	combined := make(multiLogger, 0, len(loggers))
	for _, logger := range loggers {
		if logger != nil {
			combined = append(combined, logger)
		}
	}
	return combined
}

func (loggers multiLogger) LogOperation(ctx context.Context, entry journal.OperationLog) {
	for _, logger := range loggers {
		logger.LogOperation(ctx, entry)
	}
}
