package api

import (
	"net/http"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/service"

	"github.com/gin-gonic/gin"
)

// RoleHandler 角色管理处理器
type RoleHandler struct {
	roleService *service.RoleManagementService
}

// NewRoleHandler 创建角色管理处理器
func NewRoleHandler(roleService *service.RoleManagementService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// ListRoles 获取角色列表
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles()
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, roles)
}

// GetRole 获取角色详情
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, role)
}

// CreateRole 创建角色
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var input service.CreateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	role, err := h.roleService.CreateRole(&input)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, role)
}

// UpdateRole 更新角色
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var input service.UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	role, err := h.roleService.UpdateRole(c.Param("id"), &input)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, role)
}

// RegisterRoutes 注册角色管理路由
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup, resolver *auth.Resolver) {
	group := router.Group("/roles")
	{
		group.GET("", auth.RequirePermissions(resolver, "roles:view"), h.ListRoles)
		group.GET("/:id", auth.RequirePermissions(resolver, "roles:view"), h.GetRole)
		group.POST("", auth.RequirePermissions(resolver, "roles:create"), h.CreateRole)
		group.PUT("/:id", auth.RequirePermissions(resolver, "roles:edit"), h.UpdateRole)
	}
}
