package api

import (
	"encoding/json"
	"net/http"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理处理器
type UserHandler struct {
	userService *service.UserManagementService
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(userService *service.UserManagementService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsersRequest 用户列表请求
type ListUsersRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"pageSize,default=10"`
	Keyword  string `form:"keyword"`
	Role     string `form:"role"`
	Sorter   string `form:"sorter"`
}

// UpdateStatusRequest 更新用户状态请求
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// BulkDeleteRequest 批量删除请求
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// parseSorter 解析JSON编码的排序参数，解析失败时忽略
func parseSorter(raw string) *service.SortSpec {
	if raw == "" {
		return nil
	}
	var spec service.SortSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil
	}
	return &spec
}

// ListUsers 分页获取用户列表
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "查询参数不正确")
		return
	}

	page, err := h.userService.ListUsers(req.Page, req.PageSize, req.Keyword, req.Role, parseSorter(req.Sorter))
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessPaginated(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetUser 获取用户详情
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}

// CreateUser 创建用户
func (h *UserHandler) CreateUser(c *gin.Context) {
	var input service.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	user, err := h.userService.CreateUser(&input)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, user)
}

// UpdateUser 更新用户
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var input service.UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	user, err := h.userService.UpdateUser(c.Param("id"), &input)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}

// UpdateUserStatus 更新用户状态
func (h *UserHandler) UpdateUserStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	result, err := h.userService.UpdateUserStatus(c.Param("id"), req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// DeleteUser 删除用户
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", gin.H{"deleted": true})
}

// BulkDeleteUsers 批量删除用户
func (h *UserHandler) BulkDeleteUsers(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	deleted, err := h.userService.BulkDeleteUsers(req.IDs)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", gin.H{"deleted": deleted})
}

// RegisterRoutes 注册用户管理路由，写操作需要对应权限
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, resolver *auth.Resolver) {
	group := router.Group("/users")
	{
		group.GET("", auth.RequirePermissions(resolver, "users:view"), h.ListUsers)
		group.GET("/:id", auth.RequirePermissions(resolver, "users:view"), h.GetUser)
		group.POST("", auth.RequirePermissions(resolver, "users:create"), h.CreateUser)
		group.PUT("/:id", auth.RequirePermissions(resolver, "users:edit"), h.UpdateUser)
		group.PATCH("/:id/status", auth.RequirePermissions(resolver, "users:edit"), h.UpdateUserStatus)
		group.DELETE("/:id", auth.RequirePermissions(resolver, "users:delete"), h.DeleteUser)
		group.POST("/bulk-delete", auth.RequirePermissions(resolver, "users:delete"), h.BulkDeleteUsers)
	}
}
