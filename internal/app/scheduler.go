package app

import (
	"context"
	"time"

	"lms_backend/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 单次超时扫描的最长执行时间
const sweepTimeout = 30 * time.Second

// attemptSweeper 结算超时答题
type attemptSweeper interface {
	ExpireTimedOutAttempts(ctx context.Context) (int, error)
}

// newScheduler 按 cron 表达式注册超时答题扫描，表达式为空时返回 nil
func newScheduler(schedule string, sweeper attemptSweeper) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		expired, err := sweeper.ExpireTimedOutAttempts(ctx)
		if err != nil {
			logger.Log.Error("Timed out attempt sweep failed", zap.Error(err))
			return
		}
		if expired > 0 {
			logger.Log.Info("Timed out attempts finalized", zap.Int("count", expired))
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
