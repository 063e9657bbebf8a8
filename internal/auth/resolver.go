package auth

import (
	"rbac-platform/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 权限解析失败时的安全默认值
var (
	fallbackRoles       = []string{"user"}
	fallbackPermissions = []string{"basic"}
)

// WildcardPermission 通配权限，持有者通过所有权限检查
const WildcardPermission = "*"

// Resolver 授权解析器
// 通过 user_roles / role_permissions 两张关联表显式联查，
// 计算用户的有效角色集和权限集，返回去重后的独立副本
type Resolver struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewResolver 创建授权解析器
func NewResolver(db *gorm.DB, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, logger: logger}
}

// RolesOf 计算用户的角色名集合
// 查询失败时不向调用方抛错，记录日志并返回默认角色集 {"user"}
func (r *Resolver) RolesOf(userID uint) []string {
	var names []string
	err := r.db.Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Distinct().
		Pluck("roles.name", &names).Error
	if err != nil {
		r.logger.Warn("Failed to resolve user roles, falling back to defaults",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return append([]string(nil), fallbackRoles...)
	}
	return names
}

// PermissionsOf 计算用户的权限名集合（去重）
// 查询失败时返回默认权限集 {"basic"}
func (r *Resolver) PermissionsOf(userID uint) []string {
	var names []string
	err := r.db.Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Distinct().
		Pluck("permissions.name", &names).Error
	if err != nil {
		r.logger.Warn("Failed to resolve user permissions, falling back to defaults",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return append([]string(nil), fallbackPermissions...)
	}
	return names
}

// Resolve 同时返回角色集和权限集
func (r *Resolver) Resolve(userID uint) (roles, permissions []string) {
	return r.RolesOf(userID), r.PermissionsOf(userID)
}

// HasPermission 检查用户是否持有指定权限
// 超级用户和通配权限 "*" 无条件通过
func (r *Resolver) HasPermission(userID uint, isSuperuser bool, name string) bool {
	if isSuperuser {
		return true
	}
	for _, p := range r.PermissionsOf(userID) {
		if p == name || p == WildcardPermission {
			return true
		}
	}
	return false
}

// HasRole 检查用户是否持有指定角色
func (r *Resolver) HasRole(userID uint, isSuperuser bool, name string) bool {
	if isSuperuser {
		return true
	}
	for _, role := range r.RolesOf(userID) {
		if role == name {
			return true
		}
	}
	return false
}
