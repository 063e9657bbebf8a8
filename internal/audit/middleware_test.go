package audit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuditTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	router := gin.New()
	router.Use(Middleware(repository.NewOperationLogRepository(db), zap.NewNop()))
	return router, db
}

func logCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.OperationLog{}).Count(&count).Error)
	return count
}

func TestMiddlewareLogsDelete(t *testing.T) {
	router, db := setupAuditTest(t)
	router.DELETE("/api/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/api/users/7", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), logCount(t, db))

	var entry models.OperationLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "删除用户", entry.Action)
	assert.Equal(t, "users", entry.Resource)
	assert.Equal(t, "删除用户成功", entry.Description)
	if assert.NotNil(t, entry.ResourceID) {
		assert.Equal(t, uint(7), *entry.ResourceID)
	}
	assert.Nil(t, entry.UserID, "匿名请求user_id应为空")
}

func TestMiddlewareSkipsDashboardList(t *testing.T) {
	router, db := setupAuditTest(t)
	router.GET("/api/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	router.GET("/api/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for _, path := range []string{"/api/dashboard", "/api/users", "/health"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, int64(0), logCount(t, db))
}

func TestMiddlewareLogsFailure(t *testing.T) {
	router, db := setupAuditTest(t)
	router.POST("/api/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"username":"x","password":"y"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var entry models.OperationLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "用户登录失败: HTTP 401", entry.Description)
	assert.Equal(t, 401, entry.StatusCode)
	assert.Empty(t, entry.RequestData, "凭据请求体不落库")
}

// TestMiddlewarePanicWritesLog handler panic时先落一条500日志再继续抛出
func TestMiddlewarePanicWritesLog(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	router := gin.New()
	// 恢复中间件在审计外层，验证panic被重新抛出并落日志
	router.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	router.Use(Middleware(repository.NewOperationLogRepository(db), zap.NewNop()))
	router.DELETE("/api/roles/:id", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/roles/3", nil))

	var entry models.OperationLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "删除角色失败: HTTP 500", entry.Description)
	assert.Equal(t, 500, entry.StatusCode)
}

func TestMiddlewareCapturesRequestBody(t *testing.T) {
	router, db := setupAuditTest(t)
	router.POST("/api/users", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"id": "USR-1"}})
	})

	body := `{"name":"Alice","email":"alice@example.com"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var entry models.OperationLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, body, entry.RequestData, "请求体应原样落库供审计")
	assert.Contains(t, entry.ResponseData, "USR-1")
}

func TestMiddlewareOversizeRequestBody(t *testing.T) {
	router, db := setupAuditTest(t)
	router.POST("/api/users", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	big := `{"blob":"` + strings.Repeat("a", maxRequestBody) + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, "超大请求体不影响业务处理")

	var entry models.OperationLog
	require.NoError(t, db.First(&entry).Error)
	assert.Contains(t, entry.RequestData, oversizeRequestNote)
}
