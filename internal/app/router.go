package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.user))
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)

		// 讲师相关接口
		a.registerInstructorRoutes(authGroup, c)

		// 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/categories", c.course.ListCategories)
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", c.course.GetCourse)
		public.GET("/courses/:id/stats", c.course.GetCourseStats)
		public.GET("/courses/:id/reviews", c.course.ListReviews)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)
	group.PUT("/profile", c.auth.UpdateProfile)
	group.PUT("/profile/password", c.auth.ChangePassword)

	group.GET("/quizzes/:id", c.quiz.GetQuiz)

	student := group.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.GET("/dashboard/student", c.dashboard.GetStudentDashboard)

		student.POST("/courses/:id/enroll", c.enrollment.Enroll)
		student.POST("/courses/:id/reviews", c.course.AddReview)

		student.GET("/enrollments", c.enrollment.ListEnrollments)
		student.GET("/enrollments/:id", c.enrollment.GetProgress)
		student.GET("/enrollments/:id/next-lesson", c.enrollment.NextLesson)
		student.GET("/enrollments/:id/study-time", c.enrollment.TotalStudyTime)
		student.POST("/enrollments/:id/drop", c.enrollment.Drop)
		student.POST("/enrollments/:id/lessons/:lessonId/access", c.enrollment.AccessLesson)
		student.POST("/enrollments/:id/lessons/:lessonId/complete", c.enrollment.CompleteLesson)
		student.POST("/enrollments/:id/lessons/:lessonId/study-time", c.enrollment.AddStudyTime)
		student.PUT("/enrollments/:id/lessons/:lessonId/video-progress", c.enrollment.UpdateVideoProgress)

		student.POST("/quizzes/:id/attempts", c.quiz.StartAttempt)
		student.GET("/quizzes/:id/attempts", c.quiz.ListAttempts)
		student.GET("/attempts/:id", c.quiz.GetAttempt)
		student.PUT("/attempts/:id/answers", c.quiz.RecordAnswer)
		student.POST("/attempts/:id/submit", c.quiz.SubmitAttempt)
		student.POST("/attempts/:id/abandon", c.quiz.Abandon)
	}
}

func (a *App) registerInstructorRoutes(group *gin.RouterGroup, c *controllers) {
	instructor := group.Group("/instructor")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.GET("/dashboard", c.dashboard.GetInstructorDashboard)

		instructor.POST("/courses", c.course.CreateCourse)
		instructor.POST("/courses/:id/publish", c.course.PublishCourse)
		instructor.POST("/courses/:id/archive", c.course.ArchiveCourse)
		instructor.POST("/courses/:id/modules", c.course.AddModule)
		instructor.POST("/modules/:id/lessons", c.course.AddLesson)
		instructor.POST("/lessons/:id/media", c.course.UploadLessonMedia)

		instructor.POST("/quizzes", c.quiz.CreateQuiz)
		instructor.PUT("/quizzes/:id/publish", c.quiz.SetPublished)
		instructor.POST("/quizzes/:id/questions", c.quiz.AddQuestion)
		instructor.PUT("/answers/:id/grade", c.quiz.GradeAnswer)
	}
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	admin := group.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
		admin.PUT("/users/:id/status", c.user.UpdateUserStatus)
		admin.POST("/categories", c.course.CreateCategory)
	}
}
