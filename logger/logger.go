// Package logger holds the process-wide zap logger. Runs log human-readable
// output to the console and JSON to fabrica.log for later inspection.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logFile = "fabrica.log"

var (
	log  *zap.Logger
	once sync.Once
)

// InitLogger builds the logger once. Safe to call from any package; GetLogger
// calls it lazily so explicit initialization is optional.
func InitLogger() {
	once.Do(func() {
		level := zap.NewAtomicLevelAt(zap.InfoLevel)

		// JSON to the log file. A file that cannot be opened degrades to
		// console-only logging rather than failing the run.
		file, _ := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file), level)

		// Console output stays human-readable.
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stdout), level)

		log = zap.New(zapcore.NewTee(consoleCore, fileCore),
			zap.AddCaller(), zap.AddCallerSkip(1))
	})
}

// GetLogger returns the shared logger, initializing it on first use.
func GetLogger() *zap.Logger {
	if log == nil {
		InitLogger()
	}
	return log
}

// Sync flushes buffered log entries. Called on process exit.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
