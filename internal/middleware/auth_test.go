package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func newRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(testSecret), RoleMiddleware(roles...), func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	return r
}

func tokenFor(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	user := &model.User{Email: "u@example.com", Role: role}
	user.ID = id
	token, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		roles  []model.UserRole
		expect int
	}{
		{"missing token", "", []model.UserRole{model.Student}, http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", []model.UserRole{model.Student}, http.StatusUnauthorized},
		{"role matches", tokenFor(t, 1, model.Student), []model.UserRole{model.Student}, http.StatusOK},
		{"role mismatch", tokenFor(t, 2, model.Student), []model.UserRole{model.Instructor}, http.StatusForbidden},
		{"admin passes any role", tokenFor(t, 3, model.Admin), []model.UserRole{model.Instructor}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			newRouter(tt.roles...).ServeHTTP(w, req)
			assert.Equal(t, tt.expect, w.Code)
		})
	}
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+tokenFor(t, 7, model.Student), nil)
	w := httptest.NewRecorder()
	newRouter(model.Student).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":7}`, w.Body.String())
}
