package logger

import (
	"go.uber.org/zap"
)

// Log is a no-op logger until Init is called, so packages can log from tests.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Init replaces Log with a zap logger at the given level ("debug", "info", ...).
func Init(level string, development bool) error {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg.Level = lvl

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l.Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Log.Sync()
}
