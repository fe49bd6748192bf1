// 手动结算超时答题脚本
//
// 主应用按 quiz.sweep_schedule 定时执行同样的扫描。
// 此脚本用于关闭定时扫描的部署，或停机维护后补做结算。
//
// 用法: go run scripts/expire_attempts.go

package main

import (
	"context"
	"lms_backend/internal/config"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"log"
	"time"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	enrollments := service.NewEnrollmentService(db, courseRepo, enrollmentRepo, activityRepo, service.NewStatsCache(nil, 0))
	quizzes := service.NewQuizService(
		db,
		repository.NewQuizRepository(db),
		repository.NewAttemptRepository(db),
		courseRepo,
		enrollmentRepo,
		activityRepo,
		enrollments,
		cfg.Quiz,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("手动触发超时答题结算...")
	expired, err := quizzes.ExpireTimedOutAttempts(ctx)
	if err != nil {
		log.Fatalf("结算失败: %v", err)
	}
	log.Printf("完成！共结算 %d 次答题", expired)
}
