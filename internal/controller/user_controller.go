package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserController 管理员用户管理
type UserController struct {
	UserService *service.UserService
}

// NewUserController 创建一个新的用户控制器实例
func NewUserController(userService *service.UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// ListUsers godoc
// @Summary 用户列表
// @Description 管理员分页查询用户，支持角色、禁用状态和关键字筛选
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param role query string false "角色"
// @Param disabled query bool false "是否禁用"
// @Param search query string false "姓名或邮箱"
// @Success 200 {object} util.Response{data=util.PageResponse} "Success"
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	filter := repository.UserFilter{
		Role:   model.UserRole(ctx.Query("role")),
		Search: ctx.Query("search"),
	}
	if v := ctx.Query("disabled"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			util.BadRequest(ctx, "invalid disabled")
			return
		}
		filter.Disabled = &disabled
	}

	page, err := c.UserService.ListUsers(ctx.Request.Context(), filter,
		util.QueryInt(ctx, "page", 1),
		util.QueryInt(ctx, "limit", util.DefaultPageSize),
	)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, page)
}

// UpdateUserStatusRequest 用户状态更新请求
type UpdateUserStatusRequest struct {
	Disabled bool `json:"disabled"`
}

// UpdateUserStatus godoc
// @Summary 禁用或启用用户
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param body body UpdateUserStatusRequest true "状态"
// @Success 200 {object} util.Response "Success"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/status [put]
func (c *UserController) UpdateUserStatus(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	userID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req UpdateUserStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetDisabled(ctx.Request.Context(), adminID, userID, req.Disabled); err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"id": userID, "disabled": req.Disabled})
}
