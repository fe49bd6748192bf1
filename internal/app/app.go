package app

import (
	"context"
	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/configwatcher"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	scheduler       *cron.Cron
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	mu              sync.RWMutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	enrollment *repository.EnrollmentRepository
	quiz       *repository.QuizRepository
	attempt    *repository.AttemptRepository
	activity   *repository.ActivityRepository
}

type services struct {
	auth       *service.AuthService
	user       *service.UserService
	storage    *service.StorageService
	stats      *service.StatsCache
	catalog    *service.CatalogService
	enrollment *service.EnrollmentService
	quiz       *service.QuizService
	dashboard  *service.DashboardService
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	course     *controller.CourseController
	enrollment *controller.EnrollmentController
	quiz       *controller.QuizController
	dashboard  *controller.DashboardController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig 热更新配置，仅日志级别与回调生效，其余配置需重启
func (a *App) applyConfig(cfg *config.Config) {
	logger.SetLevel(logger.ResolveLevel(cfg))

	a.mu.RLock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.RUnlock()

	for _, callback := range callbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		quiz:       repository.NewQuizRepository(db),
		attempt:    repository.NewAttemptRepository(db),
		activity:   repository.NewActivityRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(a.ctx, cfg)
	s.stats = service.NewStatsCache(rdb, cfg.Cache.StatsTTL())
	s.auth = service.NewAuthService(db, repos.user, repos.activity, cfg)
	s.user = service.NewUserService(db, repos.user, repos.activity)
	s.catalog = service.NewCatalogService(db, repos.course, repos.enrollment, repos.activity, s.storage, s.stats)
	s.enrollment = service.NewEnrollmentService(db, repos.course, repos.enrollment, repos.activity, s.stats)
	s.quiz = service.NewQuizService(
		db,
		repos.quiz,
		repos.attempt,
		repos.course,
		repos.enrollment,
		repos.activity,
		s.enrollment,
		cfg.Quiz,
	)
	s.dashboard = service.NewDashboardService(db, repos.course, repos.enrollment, repos.attempt, repos.activity)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.user),
		user:       controller.NewUserController(s.user),
		course:     controller.NewCourseController(s.catalog),
		enrollment: controller.NewEnrollmentController(s.enrollment),
		quiz:       controller.NewQuizController(s.quiz),
		dashboard:  controller.NewDashboardController(s.dashboard),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	scheduler, err := newScheduler(cfg.Quiz.SweepSchedule, s.quiz)
	if err != nil {
		logger.Log.Fatal("Invalid quiz sweep schedule", zap.String("schedule", cfg.Quiz.SweepSchedule), zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Start()
		a.scheduler = scheduler
	}

	if cfg.Server.WatchConfig {
		go func() {
			path := filepath.Join(cfg.ConfigDir, "config.yaml")
			if err := configwatcher.WatchConfig(a.ctx, path, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

func initRedis(cfg *config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	rdb, err := database.InitRedis(cfg)
	if err != nil {
		// Redis 只用于缓存，不可用时直接查库
		logger.Log.Warn("Redis unavailable, stats cache disabled", zap.Error(err))
		return nil
	}
	return rdb
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// release 模式默认不迁移，需 -migrate 显式开启
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.MigrateOnly {
		return app
	}

	app.Redis = initRedis(&cfg.Redis)

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, app.Redis)
	app.services = services
	controllers := app.initControllers(services, db, app.Redis)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services, cfg)

	return app
}

// Close 释放后台任务与连接
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.scheduler != nil {
		// 等待正在执行的扫描结束
		<-a.scheduler.Stop().Done()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}
