package service

import (
	"testing"

	"rbac-platform/internal/cache"
	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newRoleService(t *testing.T) (*RoleManagementService, *gorm.DB) {
	t.Helper()

	db := setupServiceDB(t)
	svc := NewRoleManagementService(
		repository.NewRoleRepository(db),
		repository.NewPermissionRepository(db),
		cache.New(0),
		zap.NewNop(),
	)
	return svc, db
}

func seedPermissions(t *testing.T, db *gorm.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, db.Create(&models.Permission{
			Name: name, Resource: "test", Action: "test", IsActive: true,
		}).Error)
	}
}

func TestCreateRole(t *testing.T) {
	svc, db := newRoleService(t)
	seedPermissions(t, db, "users:view", "users:edit")

	role, err := svc.CreateRole(&CreateRoleInput{
		DisplayName: "editor",
		Description: "内容编辑",
		Permissions: []string{"users:view"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ROLE-1", role.ID)
	assert.Equal(t, "editor", role.DisplayName)
	assert.Equal(t, []string{"users:view"}, role.Permissions)
	assert.Equal(t, "active", role.Status)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	svc, _ := newRoleService(t)

	_, err := svc.CreateRole(&CreateRoleInput{DisplayName: "editor"})
	require.NoError(t, err)

	_, err = svc.CreateRole(&CreateRoleInput{DisplayName: "editor"})
	var cerr *models.ConflictError
	assert.ErrorAs(t, err, &cerr)
}

func TestGetRoleErrors(t *testing.T) {
	svc, _ := newRoleService(t)

	var verr *models.ValidationError
	_, err := svc.GetRole("ROLE-abc")
	assert.ErrorAs(t, err, &verr)

	var nerr *models.NotFoundError
	_, err = svc.GetRole("ROLE-999")
	assert.ErrorAs(t, err, &nerr)
}

// TestUpdateRolePermissionsReplace 权限集为整体替换，未知权限名被静默丢弃
func TestUpdateRolePermissionsReplace(t *testing.T) {
	svc, db := newRoleService(t)
	seedPermissions(t, db, "users:view", "users:edit", "roles:view")

	role, err := svc.CreateRole(&CreateRoleInput{
		DisplayName: "editor",
		Permissions: []string{"users:view", "users:edit"},
	})
	require.NoError(t, err)

	perms := []string{"roles:view", "nonexistent:perm"}
	updated, err := svc.UpdateRole(role.ID, &UpdateRoleInput{Permissions: &perms})
	require.NoError(t, err)
	assert.Equal(t, []string{"roles:view"}, updated.Permissions)

	// 清空权限集
	empty := []string{}
	updated, err = svc.UpdateRole(role.ID, &UpdateRoleInput{Permissions: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Permissions)
}

// TestRoleCacheInvalidation 更新后缓存失效，读取返回新数据
func TestRoleCacheInvalidation(t *testing.T) {
	svc, db := newRoleService(t)
	seedPermissions(t, db, "users:view")

	role, err := svc.CreateRole(&CreateRoleInput{DisplayName: "editor"})
	require.NoError(t, err)

	// 填充列表和详情缓存
	_, err = svc.ListRoles()
	require.NoError(t, err)
	_, err = svc.GetRole(role.ID)
	require.NoError(t, err)

	newName := "senior-editor"
	_, err = svc.UpdateRole(role.ID, &UpdateRoleInput{DisplayName: &newName})
	require.NoError(t, err)

	got, err := svc.GetRole(role.ID)
	require.NoError(t, err)
	assert.Equal(t, "senior-editor", got.DisplayName)

	list, err := svc.ListRoles()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "senior-editor", list[0].DisplayName)
}

func TestListRolesCached(t *testing.T) {
	svc, db := newRoleService(t)

	_, err := svc.CreateRole(&CreateRoleInput{DisplayName: "editor"})
	require.NoError(t, err)

	first, err := svc.ListRoles()
	require.NoError(t, err)
	require.Len(t, first, 1)

	// 绕过服务直接写库，缓存未失效时读到旧数据
	require.NoError(t, db.Create(&models.Role{Name: "auditor", IsActive: true}).Error)

	second, err := svc.ListRoles()
	require.NoError(t, err)
	assert.Len(t, second, 1, "列表命中缓存")
}

func TestRoleMemberCount(t *testing.T) {
	svc, db := newRoleService(t)

	role, err := svc.CreateRole(&CreateRoleInput{DisplayName: "editor"})
	require.NoError(t, err)

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: 1}).Error)

	list, err := svc.ListRoles()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, role.ID, list[0].ID)
	assert.Equal(t, int64(1), list[0].Members)
}
