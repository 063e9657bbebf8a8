// Package service 业务服务层
package service

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"go.uber.org/zap"
)

const (
	userIDPrefix = "USR-"
	roleIDPrefix = "ROLE-"

	maxPageSize = 100
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SortSpec 列表排序参数
type SortSpec struct {
	Field string `json:"field" form:"field"`
	Order string `json:"order" form:"order"` // ascend/descend
}

// ParsePrefixedID 解析带前缀的外部ID
// 前缀后必须是纯数字，否则返回参数错误
func ParsePrefixedID(raw, prefix, field string) (uint, error) {
	if raw == "" {
		return 0, models.NewFieldValidationError(field, field+"不能为空")
	}
	trimmed := strings.TrimPrefix(raw, prefix)
	id, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, models.NewFieldValidationError(field, field+"格式不正确")
	}
	return uint(id), nil
}

func validatePagination(page, pageSize int) error {
	if page < 1 {
		return models.NewFieldValidationError("page", "页码必须大于0")
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return models.NewFieldValidationError("pageSize", "每页数量必须在1-100之间")
	}
	return nil
}

// UserItem 用户列表/详情数据
type UserItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	RoleName    string   `json:"roleName"`
	Status      string   `json:"status"`
	LastLogin   *string  `json:"lastLogin"`
	CreatedAt   *string  `json:"createdAt,omitempty"`
	Avatar      string   `json:"avatar"`
	IsSuperuser bool     `json:"is_superuser"`
	Permissions []string `json:"permissions"`
}

// UserPage 分页结果
type UserPage struct {
	Items    []UserItem `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}

// CreateUserInput 创建用户参数
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

// UpdateUserInput 更新用户参数，nil字段表示不修改
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Avatar   *string `json:"avatar"`
	Role     *string `json:"role"`
}

// UserManagementService 用户管理服务
type UserManagementService struct {
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	resolver  *auth.Resolver
	passwords *auth.PasswordManager
	logger    *zap.Logger
}

// NewUserManagementService 创建用户管理服务
func NewUserManagementService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	resolver *auth.Resolver,
	logger *zap.Logger,
) *UserManagementService {
	return &UserManagementService{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		resolver:  resolver,
		passwords: auth.NewPasswordManager(),
		logger:    logger,
	}
}

// ListUsers 分页查询用户列表
func (s *UserManagementService) ListUsers(page, pageSize int, keyword, role string, sorter *SortSpec) (*UserPage, error) {
	if err := validatePagination(page, pageSize); err != nil {
		return nil, err
	}

	params := repository.UserListParams{
		Page:     page,
		PageSize: pageSize,
		Keyword:  keyword,
		Role:     role,
	}
	if sorter != nil {
		params.SortField = sorter.Field
		params.SortOrder = sorter.Order
	}

	users, total, err := s.userRepo.List(params)
	if err != nil {
		return nil, models.NewDatabaseError("获取用户列表失败", err)
	}

	items := make([]UserItem, 0, len(users))
	for _, user := range users {
		items = append(items, s.buildUserItem(user, false))
	}

	return &UserPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetUser 按外部ID获取用户详情
func (s *UserManagementService) GetUser(externalID string) (*UserItem, error) {
	id, err := ParsePrefixedID(externalID, userIDPrefix, "用户ID")
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("用户", externalID)
		}
		return nil, models.NewDatabaseError("获取用户详情失败", err)
	}

	item := s.buildUserItem(user, true)
	return &item, nil
}

// CreateUser 创建用户，用户名由邮箱前缀派生
func (s *UserManagementService) CreateUser(input *CreateUserInput) (*UserItem, error) {
	if input.Name == "" {
		return nil, models.NewFieldValidationError("name", "字段 name 不能为空")
	}
	if input.Email == "" {
		return nil, models.NewFieldValidationError("email", "字段 email 不能为空")
	}
	if input.Password == "" {
		return nil, models.NewFieldValidationError("password", "字段 password 不能为空")
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, models.NewFieldValidationError("email", "邮箱格式不正确")
	}

	if exists, err := s.userRepo.EmailExistsExcept(input.Email, 0); err != nil {
		return nil, models.NewDatabaseError("检查邮箱失败", err)
	} else if exists {
		return nil, models.NewFieldConflictError("email", "邮箱已被注册")
	}

	username := strings.SplitN(input.Email, "@", 2)[0]
	if exists, err := s.userRepo.UsernameExists(username); err != nil {
		return nil, models.NewDatabaseError("检查用户名失败", err)
	} else if exists {
		username = fmt.Sprintf("%s%d", username, 1000+rand.Intn(9000))
	}

	hash, err := s.passwords.HashPassword(input.Password)
	if err != nil {
		return nil, models.NewDatabaseError("密码哈希生成失败", err)
	}

	user := &models.User{
		Username:     username,
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.Name,
		Avatar:       input.Avatar,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, models.NewDatabaseError("创建用户失败", err)
	}

	if input.Role != "" {
		if role, err := s.roleRepo.GetByName(input.Role); err == nil {
			if err := s.userRepo.AssignRole(user.ID, role.ID); err != nil {
				s.logger.Warn("Failed to assign role on user creation",
					zap.Uint("user_id", user.ID), zap.String("role", input.Role), zap.Error(err))
			}
		}
	}

	s.logger.Info("User created",
		zap.Uint("user_id", user.ID), zap.String("email", input.Email))

	return s.GetUser(fmt.Sprintf("%s%d", userIDPrefix, user.ID))
}

// UpdateUser 更新用户，支持部分字段
func (s *UserManagementService) UpdateUser(externalID string, input *UpdateUserInput) (*UserItem, error) {
	id, err := ParsePrefixedID(externalID, userIDPrefix, "用户ID")
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("用户", externalID)
		}
		return nil, models.NewDatabaseError("获取用户失败", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, models.NewFieldValidationError("name", "姓名不能为空")
		}
		user.FullName = *input.Name
	}

	if input.Email != nil && *input.Email != user.Email {
		if *input.Email == "" {
			return nil, models.NewFieldValidationError("email", "邮箱不能为空")
		}
		if !emailPattern.MatchString(*input.Email) {
			return nil, models.NewFieldValidationError("email", "邮箱格式不正确")
		}
		// 排除自身后检查唯一性
		if exists, err := s.userRepo.EmailExistsExcept(*input.Email, user.ID); err != nil {
			return nil, models.NewDatabaseError("检查邮箱失败", err)
		} else if exists {
			return nil, models.NewFieldConflictError("email", "邮箱已被其他用户使用")
		}
		user.Email = *input.Email
	}

	if input.Avatar != nil {
		user.Avatar = *input.Avatar
	}

	if input.Password != nil && *input.Password != "" {
		if err := s.passwords.IsValidPassword(*input.Password); err != nil {
			return nil, models.NewFieldValidationError("password", "密码长度不能少于6位")
		}
		hash, err := s.passwords.HashPassword(*input.Password)
		if err != nil {
			return nil, models.NewDatabaseError("密码哈希生成失败", err)
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, models.NewDatabaseError("更新用户失败", err)
	}

	if input.Role != nil {
		var roleIDs []uint
		if *input.Role != "" {
			if role, err := s.roleRepo.GetByName(*input.Role); err == nil {
				roleIDs = append(roleIDs, role.ID)
			}
		}
		if err := s.userRepo.ReplaceRoles(user.ID, roleIDs); err != nil {
			return nil, models.NewDatabaseError("更新用户角色失败", err)
		}
	}

	s.logger.Info("User updated", zap.Uint("user_id", user.ID))

	return s.GetUser(fmt.Sprintf("%s%d", userIDPrefix, user.ID))
}

// UpdateUserStatus 更新用户启用状态
func (s *UserManagementService) UpdateUserStatus(externalID, status string) (map[string]interface{}, error) {
	id, err := ParsePrefixedID(externalID, userIDPrefix, "用户ID")
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("用户", externalID)
		}
		return nil, models.NewDatabaseError("获取用户失败", err)
	}

	if status == "" {
		status = "active"
	}
	user.IsActive = status == "active"

	if err := s.userRepo.Update(user); err != nil {
		return nil, models.NewDatabaseError("更新用户状态失败", err)
	}

	return map[string]interface{}{
		"id":     fmt.Sprintf("%s%d", userIDPrefix, user.ID),
		"status": status,
	}, nil
}

// DeleteUser 删除用户及其角色关联
func (s *UserManagementService) DeleteUser(externalID string) error {
	id, err := ParsePrefixedID(externalID, userIDPrefix, "用户ID")
	if err != nil {
		return err
	}

	if _, err := s.userRepo.GetByID(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewNotFoundError("用户", externalID)
		}
		return models.NewDatabaseError("获取用户失败", err)
	}

	if err := s.userRepo.Delete(id); err != nil {
		return models.NewDatabaseError("删除用户失败", err)
	}

	s.logger.Info("User deleted", zap.Uint("user_id", id))
	return nil
}

// BulkDeleteUsers 批量删除用户，返回删除数量
func (s *UserManagementService) BulkDeleteUsers(externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, models.NewFieldValidationError("ids", "请提供要删除的用户ID列表")
	}

	ids := make([]uint, 0, len(externalIDs))
	for _, raw := range externalIDs {
		id, err := ParsePrefixedID(raw, userIDPrefix, "用户ID")
		if err != nil {
			return 0, models.NewFieldValidationError("ids", fmt.Sprintf("用户ID格式不正确: %s", raw))
		}
		ids = append(ids, id)
	}

	deleted, err := s.userRepo.BulkDelete(ids)
	if err != nil {
		return 0, models.NewDatabaseError("批量删除用户失败", err)
	}

	s.logger.Info("Users bulk deleted", zap.Int64("count", deleted))
	return deleted, nil
}

// buildUserItem 构建用户展示数据，detail为true时附带创建时间
func (s *UserManagementService) buildUserItem(user *models.User, detail bool) UserItem {
	roles, permissions := s.resolver.Resolve(user.ID)

	role := "user"
	roleName := "普通用户"
	if len(roles) > 0 {
		role = roles[0]
		roleName = roles[0]
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}

	status := "active"
	if !user.IsActive {
		status = "disabled"
	}

	item := UserItem{
		ID:          fmt.Sprintf("%s%d", userIDPrefix, user.ID),
		Name:        name,
		Email:       user.Email,
		Role:        role,
		RoleName:    roleName,
		Status:      status,
		LastLogin:   formatTimePtr(user.LastLogin),
		Avatar:      user.Avatar,
		IsSuperuser: user.IsSuperuser,
		Permissions: permissions,
	}
	if detail {
		created := user.CreatedAt
		item.CreatedAt = formatTimePtr(&created)
	}
	return item
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	formatted := t.UTC().Format("2006-01-02T15:04:05") + "Z"
	return &formatted
}
