package database

import (
	"fmt"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 默认管理员账号
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "admin123456"
)

// defaultPermissions 系统初始权限集
var defaultPermissions = []models.Permission{
	{Name: "dashboard:view", Resource: "dashboard", Action: "view", Description: "查看仪表盘权限"},
	{Name: "users:view", Resource: "users", Action: "view", Description: "查看用户列表权限"},
	{Name: "users:edit", Resource: "users", Action: "edit", Description: "编辑用户权限"},
	{Name: "users:create", Resource: "users", Action: "create", Description: "创建用户权限"},
	{Name: "users:delete", Resource: "users", Action: "delete", Description: "删除用户权限"},
	{Name: "roles:view", Resource: "roles", Action: "view", Description: "查看角色列表权限"},
	{Name: "roles:edit", Resource: "roles", Action: "edit", Description: "编辑角色权限"},
	{Name: "roles:create", Resource: "roles", Action: "create", Description: "创建角色权限"},
	{Name: "roles:delete", Resource: "roles", Action: "delete", Description: "删除角色权限"},
	{Name: "system:manage", Resource: "system", Action: "manage", Description: "系统管理权限"},
	{Name: "logs:view", Resource: "logs", Action: "view", Description: "查看日志权限"},
}

// basicPermissionNames 普通用户角色的基本权限
var basicPermissionNames = []string{
	"dashboard:view",
	"users:view",
	"roles:view",
}

// Seed 初始化默认数据：权限、角色、管理员账号
// 已存在管理员时跳过
func Seed(db *gorm.DB, logger *zap.Logger) error {
	var existing models.User
	if err := db.Where("username = ?", DefaultAdminUsername).First(&existing).Error; err == nil {
		logger.Info("Default data already present, skipping seed")
		return nil
	}

	logger.Info("Seeding default permissions, roles and admin account")

	return db.Transaction(func(tx *gorm.DB) error {
		perms := make([]models.Permission, len(defaultPermissions))
		copy(perms, defaultPermissions)
		for i := range perms {
			if err := tx.Create(&perms[i]).Error; err != nil {
				return fmt.Errorf("failed to create permission %s: %w", perms[i].Name, err)
			}
		}

		adminRole := models.Role{Name: "admin", Description: "系统管理员，拥有所有权限"}
		userRole := models.Role{Name: "user", Description: "普通用户"}
		if err := tx.Create(&adminRole).Error; err != nil {
			return fmt.Errorf("failed to create admin role: %w", err)
		}
		if err := tx.Create(&userRole).Error; err != nil {
			return fmt.Errorf("failed to create user role: %w", err)
		}

		// 管理员角色持有全部权限
		for i := range perms {
			rp := models.RolePermission{RoleID: adminRole.ID, PermissionID: perms[i].ID}
			if err := tx.Create(&rp).Error; err != nil {
				return err
			}
		}

		// 普通用户角色只持有基本权限
		basic := make(map[string]bool, len(basicPermissionNames))
		for _, name := range basicPermissionNames {
			basic[name] = true
		}
		for i := range perms {
			if !basic[perms[i].Name] {
				continue
			}
			rp := models.RolePermission{RoleID: userRole.ID, PermissionID: perms[i].ID}
			if err := tx.Create(&rp).Error; err != nil {
				return err
			}
		}

		hash, err := auth.NewPasswordManager().HashPassword(DefaultAdminPassword)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		admin := models.User{
			Username:     DefaultAdminUsername,
			Email:        DefaultAdminEmail,
			PasswordHash: hash,
			FullName:     "系统管理员",
			IsSuperuser:  true,
			IsActive:     true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		assignment := models.UserRole{UserID: admin.ID, RoleID: adminRole.ID}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}

		logger.Info("Default data seeded",
			zap.String("admin_username", DefaultAdminUsername),
			zap.Int("permissions", len(perms)))
		return nil
	})
}
