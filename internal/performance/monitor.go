// Package performance 提供进程内请求性能统计
package performance

import (
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RouteStats 单个路由的统计快照
type RouteStats struct {
	Method   string  `json:"method"`
	Path     string  `json:"path"`
	Count    int64   `json:"count"`
	Errors   int64   `json:"errors"`
	MinMs    float64 `json:"minMs"`
	MaxMs    float64 `json:"maxMs"`
	AvgMs    float64 `json:"avgMs"`
	TotalMs  float64 `json:"totalMs"`
	ErrorPct float64 `json:"errorPct"`
}

type routeKey struct {
	method string
	path   string
}

type routeCounter struct {
	count   int64
	errors  int64
	minMs   float64
	maxMs   float64
	totalMs float64
}

// Monitor 按(方法, 路由)聚合请求耗时与错误数
// 进程生命周期内单实例，由调用方注入
type Monitor struct {
	mu       sync.Mutex
	counters map[routeKey]*routeCounter
	started  time.Time
}

// NewMonitor 创建性能监控器
func NewMonitor() *Monitor {
	return &Monitor{
		counters: make(map[routeKey]*routeCounter),
		started:  time.Now(),
	}
}

// Record 记录一次请求
func (m *Monitor) Record(method, path string, duration time.Duration, statusCode int) {
	ms := float64(duration.Microseconds()) / 1000

	m.mu.Lock()
	defer m.mu.Unlock()

	key := routeKey{method: method, path: path}
	c, ok := m.counters[key]
	if !ok {
		c = &routeCounter{minMs: ms, maxMs: ms}
		m.counters[key] = c
	}

	c.count++
	c.totalMs += ms
	if statusCode >= 400 {
		c.errors++
	}
	if ms < c.minMs {
		c.minMs = ms
	}
	if ms > c.maxMs {
		c.maxMs = ms
	}
}

// Snapshot 导出全部路由统计，按请求量降序
func (m *Monitor) Snapshot() []RouteStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]RouteStats, 0, len(m.counters))
	for key, c := range m.counters {
		s := RouteStats{
			Method:  key.method,
			Path:    key.path,
			Count:   c.count,
			Errors:  c.errors,
			MinMs:   c.minMs,
			MaxMs:   c.maxMs,
			TotalMs: c.totalMs,
		}
		if c.count > 0 {
			s.AvgMs = c.totalMs / float64(c.count)
			s.ErrorPct = float64(c.errors) / float64(c.count) * 100
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })
	return stats
}

// Uptime 监控器启动至今的时长
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.started)
}

// Middleware 请求计时中间件
// 使用路由模板而非原始路径，避免按ID的路径爆炸
func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.Record(c.Request.Method, path, time.Since(start), c.Writer.Status())
	}
}
