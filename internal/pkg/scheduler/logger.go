package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var _ cron.Logger = (*cronLogger)(nil)

// cronLogger sends cron's own logging to zap. Routine messages go to debug,
// skipped runs are raised to warn.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) *cronLogger {
	return &cronLogger{logger: logger.Named("cron").Sugar()}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.logger.Warnw("previous price check still running, skipping", keysAndValues...)
		return
	}
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
