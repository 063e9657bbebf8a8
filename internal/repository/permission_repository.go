package repository

import (
	"errors"

	"rbac-platform/internal/models"

	"gorm.io/gorm"
)

// PermissionRepository 权限仓库接口
type PermissionRepository interface {
	Create(permission *models.Permission) error
	GetByName(name string) (*models.Permission, error)
	GetByNames(names []string) ([]*models.Permission, error)
	List() ([]*models.Permission, error)
}

// permissionRepository 权限仓库实现
type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository 创建新的权限仓库
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

// Create 创建权限
func (r *permissionRepository) Create(permission *models.Permission) error {
	if permission == nil {
		return errors.New("permission cannot be nil")
	}
	return r.db.Create(permission).Error
}

// GetByName 根据名称获取权限
func (r *permissionRepository) GetByName(name string) (*models.Permission, error) {
	var permission models.Permission
	err := r.db.Where("name = ?", name).First(&permission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &permission, nil
}

// GetByNames 批量按名称获取权限，未知名称被忽略
func (r *permissionRepository) GetByNames(names []string) ([]*models.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var permissions []*models.Permission
	err := r.db.Where("name IN ?", names).Order("id ASC").Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

// List 获取全部权限
func (r *permissionRepository) List() ([]*models.Permission, error) {
	var permissions []*models.Permission
	err := r.db.Order("id ASC").Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}
