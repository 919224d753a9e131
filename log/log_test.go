package log_test

import (
	"testing"

	"github.com/vdodev-go/flowmesh/log"
)

func TestLoggerInterfaceSatisfiedByNoop(t *testing.T) {
	var l log.Logger = &noopLogger{}
	l.Debug("test")
	l.Debugf("test %d", 1)
	l.Info("test")
	l.Infof("test %d", 1)
	l.Warn("test")
	l.Warnf("test %d", 1)
	l.Error("test")
	l.Errorf("test %d", 1)
}

func TestSetLevelAcceptsEveryLevel(t *testing.T) {
	for _, level := range []string{
		log.LevelDebug,
		log.LevelInfo,
		log.LevelWarn,
		log.LevelError,
		log.LevelFatal,
		"not-a-real-level",
	} {
		log.SetLevel(level)
	}
}

func TestDefaultSatisfiesLogger(t *testing.T) {
	var _ log.Logger = log.Default
}

type noopLogger struct{}

func (*noopLogger) Debug(args ...any)                 {}
func (*noopLogger) Debugf(format string, args ...any) {}
func (*noopLogger) Info(args ...any)                  {}
func (*noopLogger) Infof(format string, args ...any)  {}
func (*noopLogger) Warn(args ...any)                  {}
func (*noopLogger) Warnf(format string, args ...any)  {}
func (*noopLogger) Error(args ...any)                 {}
func (*noopLogger) Errorf(format string, args ...any) {}
