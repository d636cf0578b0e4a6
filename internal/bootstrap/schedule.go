package bootstrap

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/common"
)

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, kv ...interface{}) { c.l.Debugw("cron."+msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Errorw("cron."+msg, append(kv, "error", err)...)
}

// ScheduleRebuild runs job on spec. Overlapping runs are skipped and each
// run gets its own timeout. The returned cron is already started.
func ScheduleRebuild(spec string, timeout time.Duration, logger *zap.Logger, job func(context.Context) error) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{l: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(spec, rebuildJob(timeout, logger, job)); err != nil {
		return nil, common.NewValidationError("invalid rebuild schedule "+spec, err)
	}
	c.Start()
	logger.Info("schedule.rebuild.started", zap.String("spec", spec))
	return c, nil
}

func rebuildJob(timeout time.Duration, logger *zap.Logger, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := common.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			logger.Warn("schedule.rebuild.failed", zap.Error(err))
		}
	}
}
