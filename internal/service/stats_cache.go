package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatsCache 课程统计的 Redis 缓存，未配置 Redis 时所有操作为空
type StatsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{Client: client, TTL: ttl}
}

func statsKey(courseID uint) string {
	return fmt.Sprintf("%s%d", util.CourseStatsKeyPrefix, courseID)
}

func (c *StatsCache) enabled() bool {
	return c != nil && c.Client != nil
}

func (c *StatsCache) Get(ctx context.Context, courseID uint) (*repository.CourseStats, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.Client.Get(ctx, statsKey(courseID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Course stats cache read failed", zap.Uint("courseId", courseID), zap.Error(err))
		}
		monitoring.StatsCacheCounter.WithLabelValues("miss").Inc()
		return nil, false
	}
	var stats repository.CourseStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		monitoring.StatsCacheCounter.WithLabelValues("miss").Inc()
		return nil, false
	}
	monitoring.StatsCacheCounter.WithLabelValues("hit").Inc()
	return &stats, true
}

func (c *StatsCache) Set(ctx context.Context, courseID uint, stats *repository.CourseStats) {
	if !c.enabled() || stats == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, statsKey(courseID), raw, c.TTL).Err(); err != nil {
		logger.Log.Warn("Course stats cache write failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
}

func (c *StatsCache) Invalidate(ctx context.Context, courseID uint) {
	if !c.enabled() {
		return
	}
	if err := c.Client.Del(ctx, statsKey(courseID)).Err(); err != nil {
		logger.Log.Warn("Course stats cache invalidation failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
}
