package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// @Summary 学生仪表盘
// @Description 进行中与已完成的课程、学习时长、最近测验与动态
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.StudentDashboard}
// @Router /api/dashboard/student [get]
func (c *DashboardController) GetStudentDashboard(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	dashboard, err := c.DashboardService.StudentDashboard(ctx.Request.Context(), userID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, dashboard)
}

// @Summary 讲师仪表盘
// @Description 名下课程的学生数、选课总数与待批改作答数
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.InstructorDashboard}
// @Router /api/instructor/dashboard [get]
func (c *DashboardController) GetInstructorDashboard(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	dashboard, err := c.DashboardService.InstructorDashboard(ctx.Request.Context(), userID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, dashboard)
}
