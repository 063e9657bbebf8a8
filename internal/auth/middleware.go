package auth

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextUserKey gin上下文中当前用户的键
const ContextUserKey = "current_user"

// publicPathPrefixes 跳过身份解析的路径前缀
var publicPathPrefixes = []string{
	"/health",
	"/docs",
	"/redoc",
	"/openapi.json",
	"/favicon.ico",
	"/static",
	"/api/auth/login",
	"/api/auth/login-json",
	"/api/auth/register",
	"/api/auth/forgot-password",
}

// isPublicPath 判断路径是否免认证
func isPublicPath(path string) bool {
	for _, prefix := range publicPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// CurrentUser 从gin上下文中取出已解析的用户
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// ResolveSubject 将令牌主体解析为用户
// 优先按数字ID查找；解析失败时按用户名回退（兼容旧版令牌）
// 用户不存在或已禁用时返回 nil
func ResolveSubject(subject string, userRepo repository.UserRepository) *models.User {
	var user *models.User
	var err error

	if id, parseErr := strconv.ParseUint(subject, 10, 32); parseErr == nil {
		user, err = userRepo.GetByID(uint(id))
	} else {
		user, err = userRepo.GetByUsername(subject)
	}
	if err != nil || user == nil {
		return nil
	}
	if !user.IsActive {
		return nil
	}
	return user
}

// UserContextMiddleware 用户上下文中间件
// 尝试将Bearer令牌解析为用户并写入请求上下文
// 本中间件从不返回401，认证强制由路由级守卫完成
func UserContextMiddleware(tokens *TokenManager, userRepo repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, ok := tokens.Verify(tokenString, TokenKindAccess)
		if !ok {
			logger.Debug("Token verification failed",
				zap.String("path", c.Request.URL.Path))
			c.Next()
			return
		}

		user := ResolveSubject(subject, userRepo)
		if user == nil {
			logger.Debug("Token subject did not resolve to an active user",
				zap.String("subject", subject))
			c.Next()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// abortGuard 守卫拒绝响应
// 与api包的错误封装保持同一外形（守卫在api之下，不能反向导入）
func abortGuard(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, gin.H{
		"success":    false,
		"message":    message,
		"data":       nil,
		"error_code": errorCode,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
	c.Abort()
}

// RequirePermissions 权限守卫，any-of语义
// 未认证返回401；超级用户直接通过；持有任一所需权限即通过，否则403
func RequirePermissions(resolver *Resolver, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortGuard(c, http.StatusUnauthorized, "UNAUTHORIZED", "无法验证凭据")
			return
		}

		if user.IsSuperuser {
			c.Next()
			return
		}

		granted := resolver.PermissionsOf(user.ID)
		for _, need := range required {
			for _, have := range granted {
				if have == need || have == WildcardPermission {
					c.Next()
					return
				}
			}
		}

		abortGuard(c, http.StatusForbidden, "FORBIDDEN", "权限不足")
	}
}

// RequireRoles 角色守卫，any-of语义
func RequireRoles(resolver *Resolver, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortGuard(c, http.StatusUnauthorized, "UNAUTHORIZED", "无法验证凭据")
			return
		}

		if user.IsSuperuser {
			c.Next()
			return
		}

		held := resolver.RolesOf(user.ID)
		for _, need := range required {
			for _, have := range held {
				if have == need {
					c.Next()
					return
				}
			}
		}

		abortGuard(c, http.StatusForbidden, "FORBIDDEN", "角色不足")
	}
}
