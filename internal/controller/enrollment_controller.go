package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// @Summary 选课
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 404 {object} util.Response "课程不存在或未发布"
// @Failure 409 {object} util.Response "已选课"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), userID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, enrollment)
}

// @Summary 我的选课
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/enrollments [get]
func (c *EnrollmentController) ListEnrollments(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	enrollments, err := c.EnrollmentService.ListEnrollments(ctx.Request.Context(), userID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, enrollments)
}

// @Summary 选课进度
// @Description 课时与模块进度、累计学习时长以及下一课时
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Success 200 {object} util.Response{data=service.EnrollmentProgress}
// @Router /api/enrollments/{id} [get]
func (c *EnrollmentController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	enrollmentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	progress, err := c.EnrollmentService.GetProgress(ctx.Request.Context(), userID, enrollmentID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 下一课时
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Success 200 {object} util.Response{data=model.Lesson} "全部完成时 data 为空"
// @Router /api/enrollments/{id}/next-lesson [get]
func (c *EnrollmentController) NextLesson(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	enrollmentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	lesson, err := c.EnrollmentService.NextLesson(ctx.Request.Context(), userID, enrollmentID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// @Summary 累计学习时长
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/enrollments/{id}/study-time [get]
func (c *EnrollmentController) TotalStudyTime(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	enrollmentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	minutes, err := c.EnrollmentService.TotalStudyTime(ctx.Request.Context(), userID, enrollmentID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"minutes": minutes})
}

// @Summary 退课
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 422 {object} util.Response "状态不允许"
// @Router /api/enrollments/{id}/drop [post]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	enrollmentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.EnrollmentService.Drop(ctx.Request.Context(), userID, enrollmentID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, enrollment)
}

// lessonPath 读取选课ID与课时ID
func lessonPath(ctx *gin.Context) (userID, enrollmentID, lessonID uint, ok bool) {
	if userID, ok = currentUserID(ctx); !ok {
		return
	}
	if enrollmentID, ok = pathID(ctx, "id"); !ok {
		return
	}
	lessonID, ok = pathID(ctx, "lessonId")
	return
}

// @Summary 完成课时
// @Description 将课时标记为完成并重新计算模块与课程进度
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Param lessonId path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonCompletion}
// @Failure 404 {object} util.Response "选课或课时不存在"
// @Failure 422 {object} util.Response "选课状态不允许"
// @Router /api/enrollments/{id}/lessons/{lessonId}/complete [post]
func (c *EnrollmentController) CompleteLesson(ctx *gin.Context) {
	userID, enrollmentID, lessonID, ok := lessonPath(ctx)
	if !ok {
		return
	}

	result, err := c.EnrollmentService.RecordLessonCompletion(ctx.Request.Context(), userID, enrollmentID, lessonID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 访问课时
// @Tags 学习
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Param lessonId path int true "课时ID"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Router /api/enrollments/{id}/lessons/{lessonId}/access [post]
func (c *EnrollmentController) AccessLesson(ctx *gin.Context) {
	userID, enrollmentID, lessonID, ok := lessonPath(ctx)
	if !ok {
		return
	}

	progress, err := c.EnrollmentService.AccessLesson(ctx.Request.Context(), userID, enrollmentID, lessonID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// StudyTimeRequest 学习时长上报
type StudyTimeRequest struct {
	Minutes int `json:"minutes" binding:"required,min=1"`
}

// @Summary 上报学习时长
// @Tags 学习
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Param lessonId path int true "课时ID"
// @Param body body StudyTimeRequest true "分钟数"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Router /api/enrollments/{id}/lessons/{lessonId}/study-time [post]
func (c *EnrollmentController) AddStudyTime(ctx *gin.Context) {
	userID, enrollmentID, lessonID, ok := lessonPath(ctx)
	if !ok {
		return
	}

	var req StudyTimeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.EnrollmentService.AddStudyTime(ctx.Request.Context(), userID, enrollmentID, lessonID, req.Minutes)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// VideoProgressRequest 视频播放位置
type VideoProgressRequest struct {
	Seconds int `json:"seconds" binding:"min=0"`
}

// @Summary 上报视频进度
// @Tags 学习
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Param lessonId path int true "课时ID"
// @Param body body VideoProgressRequest true "播放秒数"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Router /api/enrollments/{id}/lessons/{lessonId}/video-progress [put]
func (c *EnrollmentController) UpdateVideoProgress(ctx *gin.Context) {
	userID, enrollmentID, lessonID, ok := lessonPath(ctx)
	if !ok {
		return
	}

	var req VideoProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.EnrollmentService.UpdateVideoProgress(ctx.Request.Context(), userID, enrollmentID, lessonID, req.Seconds)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}
