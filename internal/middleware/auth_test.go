package middleware

import (
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-test-secret-test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	r.GET("/admin", AuthMiddleware(secret), RoleMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func token(t *testing.T, user *model.User) string {
	tok, err := util.GenerateJWT(user, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r *gin.Engine, path, tok string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	student := &model.User{Username: "s", Role: model.Student}
	student.ID = 7

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage"))
	assert.Equal(t, http.StatusOK, do(r, "/me", token(t, student)))

	other, err := util.GenerateJWT(student, "another-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", other))
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter()
	student := &model.User{Username: "s", Role: model.Student}
	admin := &model.User{Username: "a", Role: model.Admin}

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", token(t, student)))
	assert.Equal(t, http.StatusOK, do(r, "/admin", token(t, admin)))
}
