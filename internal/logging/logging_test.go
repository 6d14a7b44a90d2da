package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingLogger struct {
	count int
}

func (logger *countingLogger) LogOperation(context.Context, journal.OperationLog) {
	logger.count++
}

func TestZapOperationLoggerLevels(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	operationLogger := NewZapOperationLogger(zap.New(core))
	ctx := context.Background()

	operationLogger.LogOperation(ctx, journal.OperationLog{Operation: "submit", Status: "ok", GoldDelta: 1, GoldBalance: 1, Streak: 1})
	operationLogger.LogOperation(ctx, journal.OperationLog{Operation: "purchase", Status: "error", Error: errors.New("insufficient funds")})
	operationLogger.LogOperation(ctx, journal.OperationLog{Operation: "recover", Status: "recovered", Key: journal.KeyStreak, Detail: "not an integer"})

	entries := logs.All()
	if len(entries) != 3 {
		test.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel || entries[2].Level != zapcore.WarnLevel {
		test.Fatalf("unexpected levels %v %v %v", entries[0].Level, entries[1].Level, entries[2].Level)
	}
	fields := entries[2].ContextMap()
	if fields["key"] != journal.KeyStreak || fields["operation"] != "recover" {
		test.Fatalf("unexpected fields %+v", fields)
	}
	if _, ok := entries[0].ContextMap()["error"]; ok {
		test.Fatalf("successful operation must not carry an error field")
	}
}

func TestCombineSkipsNilLoggers(test *testing.T) {
	test.Parallel()
	first := &countingLogger{}
	second := &countingLogger{}
	combined := Combine(first, nil, second)
	combined.LogOperation(context.Background(), journal.OperationLog{Operation: "grant"})
	if first.count != 1 || second.count != 1 {
		test.Fatalf("unexpected counts %d %d", first.count, second.count)
	}
}

func TestNilZapLoggerIsNoop(test *testing.T) {
	test.Parallel()
	NewZapOperationLogger(nil).LogOperation(context.Background(), journal.OperationLog{Operation: "equip"})
}
