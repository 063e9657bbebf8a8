package repository

import (
	"errors"
	"strings"
	"time"

	"rbac-platform/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// UserListParams 用户列表查询参数
type UserListParams struct {
	Page      int
	PageSize  int
	Keyword   string
	Role      string // "all" 或空表示不过滤
	SortField string
	SortOrder string // ascend / descend
}

// UserRepository 用户仓库接口
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UsernameExists(username string) (bool, error)
	EmailExistsExcept(email string, exceptID uint) (bool, error)
	Update(user *models.User) error
	Delete(id uint) error
	BulkDelete(ids []uint) (int64, error)
	List(params UserListParams) ([]*models.User, int64, error)
	UpdateLastLogin(userID uint) error
	AssignRole(userID, roleID uint) error
	ReplaceRoles(userID uint, roleIDs []uint) error
}

// userRepository 用户仓库实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// userSortFields 允许排序的字段映射
var userSortFields = map[string]string{
	"name":      "full_name",
	"email":     "email",
	"lastLogin": "last_login",
	"createdAt": "created_at",
}

// Create 创建用户
func (r *userRepository) Create(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.db.Create(user).Error
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Preload("UserRoles.Role").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("UserRoles.Role").Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("UserRoles.Role").Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UsernameExists 检查用户名是否已存在
func (r *userRepository) UsernameExists(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// EmailExistsExcept 检查邮箱是否被其他用户占用
func (r *userRepository) EmailExistsExcept(email string, exceptID uint) (bool, error) {
	var count int64
	query := r.db.Model(&models.User{}).Where("email = ?", email)
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// Update 更新用户
func (r *userRepository) Update(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.db.Save(user).Error
}

// Delete 删除用户及其角色关联
func (r *userRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

// BulkDelete 批量删除用户，返回删除数量
func (r *userRepository) BulkDelete(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id IN ?", ids).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

// List 获取用户列表
func (r *userRepository) List(params UserListParams) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := r.db.Model(&models.User{})

	// 关键词模糊搜索（大小写不敏感）
	if params.Keyword != "" {
		pattern := "%" + strings.ToLower(params.Keyword) + "%"
		query = query.Where(
			"LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(username) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	// 角色筛选
	if params.Role != "" && params.Role != "all" {
		query = query.
			Joins("JOIN user_roles ON user_roles.user_id = users.id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ?", params.Role)
	}

	// 排序：未识别的字段回退到 id 升序
	orderClause := "users.id ASC"
	if column, allowed := userSortFields[params.SortField]; allowed {
		direction := "ASC"
		if params.SortOrder == "descend" {
			direction = "DESC"
		}
		orderClause = column + " " + direction
	}
	query = query.Order(orderClause)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.PageSize
	err := query.Preload("UserRoles.Role").Offset(offset).Limit(params.PageSize).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// UpdateLastLogin 更新最后登录时间
func (r *userRepository) UpdateLastLogin(userID uint) error {
	now := time.Now()
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("last_login", &now).Error
}

// AssignRole 将角色分配给用户，重复分配返回错误
func (r *userRepository) AssignRole(userID, roleID uint) error {
	userRole := models.UserRole{UserID: userID, RoleID: roleID}
	return r.db.Create(&userRole).Error
}

// ReplaceRoles 替换用户的全部角色
func (r *userRepository) ReplaceRoles(userID uint, roleIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		if len(roleIDs) == 0 {
			return nil
		}

		userRoles := make([]models.UserRole, len(roleIDs))
		for i, roleID := range roleIDs {
			userRoles[i] = models.UserRole{UserID: userID, RoleID: roleID}
		}
		return tx.Create(&userRoles).Error
	})
}
