package middleware

import (
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/util"
	"mysql_practice_backend/pkg/logger"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware 校验 Bearer token，把 claims 写入上下文
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(strings.TrimSpace(tokenString), secret)
		if err != nil {
			logger.Log.Debug("JWT解析失败", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Set("userID", claims.UserID)
		c.Next()
	}
}

// RoleMiddleware 管理员直接放行
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		allowed := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type UserActivityRepo interface {
	UpdateLastSeen(userID uint) error
}

// ActivityMiddleware 异步刷新最后活跃时间
func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := util.GetUserFromContext(c); claims != nil {
			go func(id uint) {
				if err := repo.UpdateLastSeen(id); err != nil {
					logger.Log.Debug("更新活跃时间失败", zap.Uint("userID", id), zap.Error(err))
				}
			}(claims.UserID)
		}
		c.Next()
	}
}

// UserKey 限流 key，已登录按用户，否则按 IP
func UserKey(c *gin.Context) string {
	if claims := util.GetUserFromContext(c); claims != nil {
		return "user:" + strconv.FormatUint(uint64(claims.UserID), 10)
	}
	return "ip:" + c.ClientIP()
}
