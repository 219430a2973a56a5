package vmarena

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena/internal/logging"
)

var logger = logging.NewDefault("vmarena")

// SetLogger replaces the logger programming-error diagnostics are written
// to and returns the previous one. It must not race with arena use.
func SetLogger(l *zap.Logger) *zap.Logger {
	prev := logger
	logger = l
	return prev
}

// Check terminates the process with a diagnostic naming the caller's
// function, file and line when ok is false. It guards invariants whose
// violation would otherwise corrupt memory silently.
func Check(ok bool, msg string, fields ...zap.Field) {
	if !ok {
		fail(2, msg, fields...)
	}
}

func fatal(msg string, fields ...zap.Field) {
	fail(2, msg, fields...)
}

func fail(skip int, msg string, fields ...zap.Field) {
	if pc, file, line, ok := runtime.Caller(skip); ok {
		fields = append(fields, zap.String("file", file), zap.Int("line", line))
		if fn := runtime.FuncForPC(pc); fn != nil {
			fields = append(fields, zap.String("function", fn.Name()))
		}
	}
	logger.Fatal(msg, fields...)
}
