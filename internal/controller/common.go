package controller

import (
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentUserID 读取 JWT 中的用户 ID，未登录时写入 401
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}

// pathID 读取路径参数，非法时写入 400
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParamID(ctx, name)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return 0, false
	}
	return id, true
}
