package controller

import (
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CatalogService *service.CatalogService
}

func NewCourseController(catalogService *service.CatalogService) *CourseController {
	return &CourseController{CatalogService: catalogService}
}

// CategoryRequest 分类请求
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// @Summary 创建课程分类
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CategoryRequest true "分类信息"
// @Success 201 {object} util.Response{data=model.Category}
// @Failure 409 {object} util.Response "分类已存在"
// @Router /api/admin/categories [post]
func (c *CourseController) CreateCategory(ctx *gin.Context) {
	var req CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	category, err := c.CatalogService.CreateCategory(ctx.Request.Context(), req.Name, req.Description)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, category)
}

// @Summary 课程分类列表
// @Tags 课程
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Category}
// @Router /api/categories [get]
func (c *CourseController) ListCategories(ctx *gin.Context) {
	categories, err := c.CatalogService.ListCategories(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, categories)
}

// @Summary 已发布课程列表
// @Description 支持分类、难度和关键字筛选，附带平均评分与学生数
// @Tags 课程
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param categoryId query int false "分类ID"
// @Param difficulty query string false "难度"
// @Param search query string false "关键字"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	filter := repository.CourseFilter{
		Difficulty: ctx.Query("difficulty"),
		Search:     ctx.Query("search"),
	}
	if categoryID := util.QueryInt(ctx, "categoryId", 0); categoryID > 0 {
		id := uint(categoryID)
		filter.CategoryID = &id
	}

	page, err := c.CatalogService.ListPublishedCourses(ctx.Request.Context(), filter,
		util.QueryInt(ctx, "page", 1),
		util.QueryInt(ctx, "limit", util.DefaultPageSize),
	)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, page)
}

// @Summary 课程详情
// @Description 返回课程、按顺序排列的模块与课时以及统计信息
// @Tags 课程
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.CatalogService.GetCourse(ctx.Request.Context(), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// @Summary 课程统计
// @Tags 课程
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=repository.CourseStats}
// @Router /api/courses/{id}/stats [get]
func (c *CourseController) GetCourseStats(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	stats, err := c.CatalogService.CourseStats(ctx.Request.Context(), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

// @Summary 创建课程
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CourseInput true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/instructor/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.CourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CatalogService.CreateCourse(ctx.Request.Context(), userID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// @Summary 发布课程
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 403 {object} util.Response "非课程讲师"
// @Router /api/instructor/courses/{id}/publish [post]
func (c *CourseController) PublishCourse(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	course, err := c.CatalogService.PublishCourse(ctx.Request.Context(), userID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// @Summary 归档课程
// @Tags 课程管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/instructor/courses/{id}/archive [post]
func (c *CourseController) ArchiveCourse(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	course, err := c.CatalogService.ArchiveCourse(ctx.Request.Context(), userID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// @Summary 添加模块
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param body body service.ModuleInput true "模块信息"
// @Success 201 {object} util.Response{data=model.Module}
// @Failure 409 {object} util.Response "排序重复"
// @Router /api/instructor/courses/{id}/modules [post]
func (c *CourseController) AddModule(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.ModuleInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.CatalogService.AddModule(ctx.Request.Context(), userID, courseID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, module)
}

// @Summary 添加课时
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Param body body service.LessonInput true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Failure 409 {object} util.Response "排序重复"
// @Router /api/instructor/modules/{id}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	moduleID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.LessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CatalogService.AddLesson(ctx.Request.Context(), userID, moduleID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, lesson)
}

// @Summary 上传课时媒体
// @Description 支持视频、图片和PDF，按文件内容识别类型
// @Tags 课程管理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Param file formData file true "媒体文件"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/instructor/lessons/{id}/media [post]
func (c *CourseController) UploadLessonMedia(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	lesson, err := c.CatalogService.AttachLessonMedia(ctx.Request.Context(), userID, lessonID, file.Filename, src, file.Size)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// @Summary 发表课程评价
// @Description 仅已选课学生可评价，每门课程一次
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param body body service.ReviewInput true "评价内容"
// @Success 201 {object} util.Response{data=model.CourseReview}
// @Failure 409 {object} util.Response "已评价"
// @Router /api/courses/{id}/reviews [post]
func (c *CourseController) AddReview(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.ReviewInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	review, err := c.CatalogService.AddReview(ctx.Request.Context(), userID, courseID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, review)
}

// @Summary 课程评价列表
// @Tags 课程
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.CourseReview}
// @Router /api/courses/{id}/reviews [get]
func (c *CourseController) ListReviews(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	reviews, err := c.CatalogService.ListReviews(ctx.Request.Context(), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, reviews)
}
