// @title LMS 后端 API
// @version 1.0
// @description 在线学习平台后端：课程目录、选课进度与测验。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// 接口文档：执行 swag init 生成 docs 包，在 router.go 中导入 docs 并注册
// router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler)) 即可访问文档页面

package main

import (
	"flag"
	"lms_backend/internal/app"
	"lms_backend/internal/config"
	"lms_backend/pkg/logger"
	"log"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		application.Close()
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
