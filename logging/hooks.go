package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Hook is called for each log entry, e.g. to count entries per level.
// A hook error never blocks the write.
type Hook func(entry zapcore.Entry) error

// hookCore is a sink that runs hooks instead of writing. It sits in the tee
// next to the real cores so hooks fire even when no output is configured.
type hookCore struct {
	zapcore.LevelEnabler
	hooks []Hook
}

func newHookCore(enab zapcore.LevelEnabler, hooks []Hook) zapcore.Core {
	return &hookCore{LevelEnabler: enab, hooks: hooks}
}

func (c *hookCore) With([]zapcore.Field) zapcore.Core {
	return c
}

func (c *hookCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *hookCore) Write(entry zapcore.Entry, _ []zapcore.Field) error {
	for _, hook := range c.hooks {
		_ = hook(entry)
	}
	return nil
}

func (c *hookCore) Sync() error {
	return nil
}

// WithHooks returns a Logger that also runs hooks for every entry the
// wrapped logger would write.
func WithHooks(logger Logger, hooks ...Hook) Logger {
	if len(hooks) == 0 {
		return logger
	}
	return FromZap(logger.Zap().WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, newHookCore(core, hooks))
	})))
}
