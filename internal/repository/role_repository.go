package repository

import (
	"errors"

	"rbac-platform/internal/models"

	"gorm.io/gorm"
)

// RoleRepository 角色仓库接口
type RoleRepository interface {
	Create(role *models.Role) error
	GetByID(id uint) (*models.Role, error)
	GetByName(name string) (*models.Role, error)
	List() ([]*models.Role, error)
	Update(role *models.Role) error
	Delete(id uint) error
	GetPermissionNames(roleID uint) ([]string, error)
	ReplacePermissions(roleID uint, permissionIDs []uint) error
	MemberCount(roleID uint) (int64, error)
}

// roleRepository 角色仓库实现
type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository 创建新的角色仓库
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Create 创建角色
func (r *roleRepository) Create(role *models.Role) error {
	if role == nil {
		return errors.New("role cannot be nil")
	}
	return r.db.Create(role).Error
}

// GetByID 根据ID获取角色
func (r *roleRepository) GetByID(id uint) (*models.Role, error) {
	var role models.Role
	err := r.db.Preload("RolePermissions.Permission").First(&role, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// GetByName 根据名称获取角色
func (r *roleRepository) GetByName(name string) (*models.Role, error) {
	var role models.Role
	err := r.db.Preload("RolePermissions.Permission").Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// List 获取全部角色
func (r *roleRepository) List() ([]*models.Role, error) {
	var roles []*models.Role
	err := r.db.Preload("RolePermissions.Permission").Order("id ASC").Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// Update 更新角色
func (r *roleRepository) Update(role *models.Role) error {
	if role == nil {
		return errors.New("role cannot be nil")
	}
	return r.db.Save(role).Error
}

// Delete 删除角色及其关联
func (r *roleRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Role{}, id).Error
	})
}

// GetPermissionNames 获取角色的权限名称列表
func (r *roleRepository) GetPermissionNames(roleID uint) ([]string, error) {
	var names []string
	err := r.db.Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id ASC").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReplacePermissions 整体替换角色的权限集
// 删除现有关联后逐条插入新关联
func (r *roleRepository) ReplacePermissions(roleID uint, permissionIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		if len(permissionIDs) == 0 {
			return nil
		}

		rolePermissions := make([]models.RolePermission, len(permissionIDs))
		for i, permissionID := range permissionIDs {
			rolePermissions[i] = models.RolePermission{RoleID: roleID, PermissionID: permissionID}
		}
		return tx.Create(&rolePermissions).Error
	})
}

// MemberCount 统计持有该角色的用户数量
func (r *roleRepository) MemberCount(roleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserRole{}).Where("role_id = ?", roleID).Count(&count).Error
	return count, err
}
