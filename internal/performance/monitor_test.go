package performance

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorRecord(t *testing.T) {
	m := NewMonitor()

	m.Record("GET", "/api/users", 10*time.Millisecond, 200)
	m.Record("GET", "/api/users", 30*time.Millisecond, 200)
	m.Record("GET", "/api/users", 20*time.Millisecond, 500)
	m.Record("POST", "/api/users", 5*time.Millisecond, 201)

	stats := m.Snapshot()
	require.Len(t, stats, 2)

	// 按请求量降序
	top := stats[0]
	assert.Equal(t, "GET", top.Method)
	assert.Equal(t, int64(3), top.Count)
	assert.Equal(t, int64(1), top.Errors)
	assert.InDelta(t, 10, top.MinMs, 0.5)
	assert.InDelta(t, 30, top.MaxMs, 0.5)
	assert.InDelta(t, 20, top.AvgMs, 0.5)
	assert.InDelta(t, 100.0/3, top.ErrorPct, 0.5)
}

func TestMonitorEmptySnapshot(t *testing.T) {
	m := NewMonitor()
	assert.Empty(t, m.Snapshot())
	assert.GreaterOrEqual(t, m.Uptime(), time.Duration(0))
}

// TestMonitorMiddleware 中间件按路由模板聚合
func TestMonitorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewMonitor()
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/users/"+id, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	stats := m.Snapshot()
	require.Len(t, stats, 1, "不同ID聚合到同一路由模板")
	assert.Equal(t, "/api/users/:id", stats[0].Path)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.Equal(t, int64(0), stats[0].Errors)
}

func TestMonitorMiddlewareCountsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewMonitor()
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/fail", nil))

	stats := m.Snapshot()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Errors)
	assert.InDelta(t, 100, stats[0].ErrorPct, 0.01)
}
