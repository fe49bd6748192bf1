package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// @Summary 创建测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuizInput true "测验信息"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Router /api/instructor/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.QuizInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(ctx.Request.Context(), userID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, quiz)
}

// PublishQuizRequest 发布状态
type PublishQuizRequest struct {
	Published bool `json:"published"`
}

// @Summary 发布或下架测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param body body PublishQuizRequest true "发布状态"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/instructor/quizzes/{id}/publish [put]
func (c *QuizController) SetPublished(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req PublishQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.SetPublished(ctx.Request.Context(), userID, quizID, req.Published)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// @Summary 添加题目
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param body body service.QuestionInput true "题目与选项"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/instructor/quizzes/{id}/questions [post]
func (c *QuizController) AddQuestion(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuizService.AddQuestion(ctx.Request.Context(), userID, quizID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, question)
}

// GradeAnswerRequest 人工批改
type GradeAnswerRequest struct {
	Points   float64 `json:"points" binding:"min=0"`
	Feedback string  `json:"feedback"`
}

// @Summary 人工批改作答
// @Description 简答题与论述题由讲师评分，答题总分随之重算
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "作答ID"
// @Param body body GradeAnswerRequest true "得分与评语"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Router /api/instructor/answers/{id}/grade [put]
func (c *QuizController) GradeAnswer(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	answerID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req GradeAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.QuizService.GradeAnswer(ctx.Request.Context(), userID, answerID, req.Points, req.Feedback)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// @Summary 测验详情
// @Description 学生视角，不包含正确答案
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// @Summary 开始答题
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 201 {object} util.Response{data=model.QuizAttempt}
// @Failure 403 {object} util.Response "答题次数已用完"
// @Failure 422 {object} util.Response "测验不可用"
// @Router /api/quizzes/{id}/attempts [post]
func (c *QuizController) StartAttempt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.QuizService.StartAttempt(ctx.Request.Context(), userID, quizID, service.AttemptMeta{
		IPAddress: ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, attempt)
}

// @Summary 我的答题记录
// @Description 返回答题列表、剩余次数与最高分
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/quizzes/{id}/attempts [get]
func (c *QuizController) ListAttempts(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()
	attempts, err := c.QuizService.ListAttempts(reqCtx, userID, quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	remaining, err := c.QuizService.RemainingAttempts(reqCtx, userID, quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	best, err := c.QuizService.BestScore(reqCtx, userID, quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"attempts":          attempts,
		"remainingAttempts": remaining,
		"bestScore":         best,
	})
}

// @Summary 答题详情
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "答题ID"
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Router /api/attempts/{id} [get]
func (c *QuizController) GetAttempt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.QuizService.GetAttempt(ctx.Request.Context(), userID, attemptID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, view)
}

// @Summary 保存作答
// @Description 同一题目重复提交时覆盖
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "答题ID"
// @Param body body service.AnswerInput true "作答内容"
// @Success 200 {object} util.Response{data=model.StudentAnswer}
// @Failure 422 {object} util.Response "答题已结束"
// @Router /api/attempts/{id}/answers [put]
func (c *QuizController) RecordAnswer(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.AnswerInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.QuestionID == 0 {
		util.BadRequest(ctx, "questionId is required")
		return
	}

	answer, err := c.QuizService.RecordAnswer(ctx.Request.Context(), userID, attemptID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, answer)
}

// SubmitAttemptRequest 交卷请求，answers 可为空
type SubmitAttemptRequest struct {
	Answers []service.AnswerInput `json:"answers"`
}

// @Summary 交卷
// @Description 可同时提交剩余作答，提交后自动评分
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "答题ID"
// @Param body body SubmitAttemptRequest false "作答列表"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 422 {object} util.Response "答题已结束"
// @Router /api/attempts/{id}/submit [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req SubmitAttemptRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	attempt, err := c.QuizService.SubmitAttempt(ctx.Request.Context(), userID, attemptID, req.Answers)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// @Summary 放弃答题
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "答题ID"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Router /api/attempts/{id}/abandon [post]
func (c *QuizController) Abandon(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.QuizService.Abandon(ctx.Request.Context(), userID, attemptID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}
