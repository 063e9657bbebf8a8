package models

import (
	"time"
)

// User 用户模型
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"unique;not null;size:50" json:"username"`
	Email        string     `gorm:"unique;not null;size:100" json:"email"`
	PasswordHash string     `gorm:"not null;size:255" json:"-"` // 不在JSON中返回密码哈希
	FullName     string     `gorm:"size:100" json:"full_name"`
	Avatar       string     `gorm:"size:255" json:"avatar"`
	IsSuperuser  bool       `gorm:"default:false" json:"is_superuser"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLogin    *time.Time `json:"last_login"`
	UserRoles    []UserRole `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Role 角色模型
type Role struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"unique;not null;size:50" json:"name"`
	Description     string           `gorm:"size:200" json:"description"`
	IsActive        bool             `gorm:"default:true" json:"is_active"`
	UserRoles       []UserRole       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RolePermissions []RolePermission `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName 指定表名
func (Role) TableName() string {
	return "roles"
}

// Permission 权限模型
// Name 采用 "resource:action" 约定，如 "users:view"
type Permission struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"unique;not null;size:100" json:"name"`
	Resource        string           `gorm:"not null;size:50" json:"resource"`
	Action          string           `gorm:"not null;size:50" json:"action"`
	Description     string           `gorm:"size:200" json:"description"`
	IsActive        bool             `gorm:"default:true" json:"is_active"`
	RolePermissions []RolePermission `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName 指定表名
func (Permission) TableName() string {
	return "permissions"
}

// UserRole 用户角色关联表
// (user_id, role_id) 组合唯一，同一用户不能重复持有同一角色
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID    uint      `gorm:"not null;uniqueIndex:idx_user_role" json:"role_id"`
	Role      Role      `gorm:"foreignKey:RoleID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (UserRole) TableName() string {
	return "user_roles"
}

// RolePermission 角色权限关联表
type RolePermission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RoleID       uint       `gorm:"not null;uniqueIndex:idx_role_permission" json:"role_id"`
	PermissionID uint       `gorm:"not null;uniqueIndex:idx_role_permission" json:"permission_id"`
	Permission   Permission `gorm:"foreignKey:PermissionID" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName 指定表名
func (RolePermission) TableName() string {
	return "role_permissions"
}
