package api

import (
	"net/http"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/performance"
	"rbac-platform/internal/service"

	"github.com/gin-gonic/gin"
)

// SystemHandler 系统管理处理器
type SystemHandler struct {
	systemService *service.SystemManagementService
	monitor       *performance.Monitor
}

// NewSystemHandler 创建系统管理处理器
func NewSystemHandler(systemService *service.SystemManagementService, monitor *performance.Monitor) *SystemHandler {
	return &SystemHandler{systemService: systemService, monitor: monitor}
}

// ListLogsRequest 系统日志列表请求
type ListLogsRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"pageSize,default=10"`
	Keyword  string `form:"keyword"`
	Level    string `form:"level,default=ALL"`
	Sorter   string `form:"sorter"`
}

// CleanupLogsRequest 日志清理请求
type CleanupLogsRequest struct {
	RetentionDays int `json:"retentionDays"`
}

// GetLogs 分页获取系统日志
func (h *SystemHandler) GetLogs(c *gin.Context) {
	var req ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "查询参数不正确")
		return
	}

	page, err := h.systemService.GetSystemLogs(req.Page, req.PageSize, req.Keyword, req.Level, parseSorter(req.Sorter))
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessPaginated(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetLogsSummary 获取日志概览
func (h *SystemHandler) GetLogsSummary(c *gin.Context) {
	summary, err := h.systemService.GetLogsSummary()
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, summary)
}

// GetSettings 获取系统设置
func (h *SystemHandler) GetSettings(c *gin.Context) {
	settings, err := h.systemService.GetSettings()
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, settings)
}

// UpdateSettings 更新系统设置
func (h *SystemHandler) UpdateSettings(c *gin.Context) {
	var input service.SystemSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	updated, err := h.systemService.UpdateSettings(&input)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "设置已更新", updated)
}

// CleanupLogs 手动触发日志清理
func (h *SystemHandler) CleanupLogs(c *gin.Context) {
	var req CleanupLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	deleted, err := h.systemService.CleanupLogs(req.RetentionDays)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "清理完成", gin.H{"deleted": deleted})
}

// GetPerformance 获取请求性能统计
func (h *SystemHandler) GetPerformance(c *gin.Context) {
	Success(c, gin.H{
		"uptime": h.monitor.Uptime().String(),
		"routes": h.monitor.Snapshot(),
	})
}

// RegisterRoutes 注册系统管理路由
func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup, resolver *auth.Resolver) {
	group := router.Group("/system")
	{
		group.GET("/logs", auth.RequirePermissions(resolver, "logs:view"), h.GetLogs)
		group.GET("/logs/summary", auth.RequirePermissions(resolver, "logs:view"), h.GetLogsSummary)
		group.POST("/logs/cleanup", auth.RequirePermissions(resolver, "system:manage"), h.CleanupLogs)
		group.GET("/settings", auth.RequirePermissions(resolver, "system:manage"), h.GetSettings)
		group.PUT("/settings", auth.RequirePermissions(resolver, "system:manage"), h.UpdateSettings)
		group.GET("/performance", auth.RequirePermissions(resolver, "system:manage"), h.GetPerformance)
	}
}
