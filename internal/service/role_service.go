package service

import (
	"errors"
	"fmt"

	"rbac-platform/internal/cache"
	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"go.uber.org/zap"
)

const (
	rolesListCacheKey   = "roles_list"
	roleDetailCachePref = "role_detail_"

	roleCacheTTL = cache.DefaultTTL
)

// RoleItem 角色展示数据
type RoleItem struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Members     int64    `json:"members,omitempty"`
	Permissions []string `json:"permissions"`
	Status      string   `json:"status"`
}

// CreateRoleInput 创建角色参数
type CreateRoleInput struct {
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// UpdateRoleInput 更新角色参数，nil字段表示不修改
type UpdateRoleInput struct {
	DisplayName *string   `json:"displayName"`
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
}

// RoleManagementService 角色管理服务，读路径带短TTL缓存
type RoleManagementService struct {
	roleRepo repository.RoleRepository
	permRepo repository.PermissionRepository
	cache    *cache.Cache
	logger   *zap.Logger
}

// NewRoleManagementService 创建角色管理服务
func NewRoleManagementService(
	roleRepo repository.RoleRepository,
	permRepo repository.PermissionRepository,
	c *cache.Cache,
	logger *zap.Logger,
) *RoleManagementService {
	return &RoleManagementService{
		roleRepo: roleRepo,
		permRepo: permRepo,
		cache:    c,
		logger:   logger,
	}
}

// ListRoles 获取全部角色，结果缓存5分钟
func (s *RoleManagementService) ListRoles() ([]RoleItem, error) {
	if cached, ok := s.cache.Get(rolesListCacheKey); ok {
		s.logger.Debug("Roles list served from cache")
		return cached.([]RoleItem), nil
	}

	roles, err := s.roleRepo.List()
	if err != nil {
		return nil, models.NewDatabaseError("获取角色列表失败", err)
	}

	items := make([]RoleItem, 0, len(roles))
	for _, role := range roles {
		item, err := s.buildRoleItem(role, true)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	s.cache.Set(rolesListCacheKey, items, roleCacheTTL)
	return items, nil
}

// GetRole 按外部ID获取角色详情，结果缓存5分钟
func (s *RoleManagementService) GetRole(externalID string) (*RoleItem, error) {
	id, err := ParsePrefixedID(externalID, roleIDPrefix, "角色ID")
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s%d", roleDetailCachePref, id)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.logger.Debug("Role detail served from cache", zap.Uint("role_id", id))
		item := cached.(RoleItem)
		return &item, nil
	}

	role, err := s.roleRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("角色", externalID)
		}
		return nil, models.NewDatabaseError("获取角色详情失败", err)
	}

	item, err := s.buildRoleItem(role, false)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, *item, roleCacheTTL)
	return item, nil
}

// CreateRole 创建角色并绑定权限
func (s *RoleManagementService) CreateRole(input *CreateRoleInput) (*RoleItem, error) {
	if input.DisplayName == "" {
		return nil, models.NewFieldValidationError("displayName", "角色名称不能为空")
	}

	if _, err := s.roleRepo.GetByName(input.DisplayName); err == nil {
		return nil, models.NewFieldConflictError("displayName", "角色名称已存在")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewDatabaseError("检查角色名称失败", err)
	}

	role := &models.Role{
		Name:        input.DisplayName,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.roleRepo.Create(role); err != nil {
		return nil, models.NewDatabaseError("创建角色失败", err)
	}

	if len(input.Permissions) > 0 {
		if err := s.replacePermissions(role.ID, input.Permissions); err != nil {
			return nil, err
		}
	}

	s.invalidate(role.ID)
	s.logger.Info("Role created", zap.String("name", role.Name))

	return s.GetRole(fmt.Sprintf("%s%d", roleIDPrefix, role.ID))
}

// UpdateRole 更新角色，权限集为整体替换语义
func (s *RoleManagementService) UpdateRole(externalID string, input *UpdateRoleInput) (*RoleItem, error) {
	id, err := ParsePrefixedID(externalID, roleIDPrefix, "角色ID")
	if err != nil {
		return nil, err
	}

	role, err := s.roleRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("角色", externalID)
		}
		return nil, models.NewDatabaseError("获取角色失败", err)
	}

	if input.DisplayName != nil {
		if *input.DisplayName == "" {
			return nil, models.NewFieldValidationError("displayName", "角色名称不能为空")
		}
		role.Name = *input.DisplayName
	}
	if input.Description != nil {
		role.Description = *input.Description
	}

	if err := s.roleRepo.Update(role); err != nil {
		return nil, models.NewDatabaseError("更新角色失败", err)
	}

	if input.Permissions != nil {
		if err := s.replacePermissions(role.ID, *input.Permissions); err != nil {
			return nil, err
		}
	}

	s.invalidate(role.ID)
	s.logger.Info("Role updated", zap.Uint("role_id", role.ID))

	return s.GetRole(fmt.Sprintf("%s%d", roleIDPrefix, role.ID))
}

// replacePermissions 全量替换角色权限，无法识别的权限名被静默丢弃
func (s *RoleManagementService) replacePermissions(roleID uint, names []string) error {
	perms, err := s.permRepo.GetByNames(names)
	if err != nil {
		return models.NewDatabaseError("查询权限失败", err)
	}

	ids := make([]uint, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}

	if err := s.roleRepo.ReplacePermissions(roleID, ids); err != nil {
		return models.NewDatabaseError("更新角色权限失败", err)
	}
	return nil
}

// invalidate 清除角色相关缓存
func (s *RoleManagementService) invalidate(roleID uint) {
	s.cache.Delete(fmt.Sprintf("%s%d", roleDetailCachePref, roleID))
	s.cache.Delete(rolesListCacheKey)
}

func (s *RoleManagementService) buildRoleItem(role *models.Role, withMembers bool) (*RoleItem, error) {
	permissions, err := s.roleRepo.GetPermissionNames(role.ID)
	if err != nil {
		s.logger.Warn("Failed to load role permissions",
			zap.Uint("role_id", role.ID), zap.Error(err))
		permissions = []string{}
	}

	status := "active"
	if !role.IsActive {
		status = "disabled"
	}

	item := &RoleItem{
		ID:          fmt.Sprintf("%s%d", roleIDPrefix, role.ID),
		DisplayName: role.Name,
		Description: role.Description,
		Permissions: permissions,
		Status:      status,
	}

	if withMembers {
		count, err := s.roleRepo.MemberCount(role.ID)
		if err != nil {
			s.logger.Warn("Failed to count role members",
				zap.Uint("role_id", role.ID), zap.Error(err))
		} else {
			item.Members = count
		}
	}

	return item, nil
}
