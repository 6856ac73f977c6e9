package logging

import (
	corelogger "github.com/platformbuilds/ga4-insights/pkg/logger"
	"go.uber.org/zap"
)

// Logger is the logging interface used by internal packages. Internal code
// depends on this package rather than on pkg/logger directly.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

// New returns a no-op Logger. Useful for tests and optional dependencies.
func New() Logger {
	return &zapAdapter{logger: zap.NewNop()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return New()
	}
	return l
}

// With returns l enriched with key/value pairs when the implementation
// supports it, and l unchanged otherwise.
func With(l Logger, fields ...interface{}) Logger {
	switch v := l.(type) {
	case *coreAdapter:
		return &coreAdapter{core: v.core.With(fields...)}
	case *zapAdapter:
		return &zapAdapter{logger: v.logger.Sugar().With(fields...).Desugar()}
	default:
		return l
	}
}

// ExtractZapLogger attempts to obtain an underlying *zap.Logger from any
// provided value. If the value exposes a ZapLogger() *zap.Logger method,
// that logger is returned; otherwise a no-op *zap.Logger is returned.
func ExtractZapLogger(v interface{}) *zap.Logger {
	if zl, ok := v.(interface{ ZapLogger() *zap.Logger }); ok {
		return zl.ZapLogger()
	}
	return zap.NewNop()
}

// FromCoreLogger wraps the project core logger (pkg/logger.Logger) so that
// cmd/ binaries can build the concrete logger and hand it to internal code.
func FromCoreLogger(core corelogger.Logger) Logger {
	if core == nil {
		return New()
	}
	return &coreAdapter{core: core}
}

type coreAdapter struct {
	core corelogger.Logger
}

func (c *coreAdapter) Info(msg string, fields ...interface{})  { c.core.Info(msg, fields...) }
func (c *coreAdapter) Error(msg string, fields ...interface{}) { c.core.Error(msg, fields...) }
func (c *coreAdapter) Warn(msg string, fields ...interface{})  { c.core.Warn(msg, fields...) }
func (c *coreAdapter) Debug(msg string, fields ...interface{}) { c.core.Debug(msg, fields...) }
func (c *coreAdapter) Fatal(msg string, fields ...interface{}) { c.core.Fatal(msg, fields...) }

func (c *coreAdapter) ZapLogger() *zap.Logger {
	if zl, ok := c.core.(interface{ ZapLogger() *zap.Logger }); ok {
		return zl.ZapLogger()
	}
	return zap.NewNop()
}

type zapAdapter struct {
	logger *zap.Logger
}

func (z *zapAdapter) Info(msg string, fields ...interface{}) {
	z.logger.Sugar().Infow(msg, fields...)
}

func (z *zapAdapter) Error(msg string, fields ...interface{}) {
	z.logger.Sugar().Errorw(msg, fields...)
}

func (z *zapAdapter) Warn(msg string, fields ...interface{}) {
	z.logger.Sugar().Warnw(msg, fields...)
}

func (z *zapAdapter) Debug(msg string, fields ...interface{}) {
	z.logger.Sugar().Debugw(msg, fields...)
}

func (z *zapAdapter) Fatal(msg string, fields ...interface{}) {
	z.logger.Sugar().Fatalw(msg, fields...)
}

func (z *zapAdapter) ZapLogger() *zap.Logger { return z.logger }
