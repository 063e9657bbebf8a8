package service

import (
	"fmt"
	"testing"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newUserService(t *testing.T) (*UserManagementService, *gorm.DB) {
	t.Helper()

	db := setupServiceDB(t)
	svc := NewUserManagementService(
		repository.NewUserRepository(db),
		repository.NewRoleRepository(db),
		auth.NewResolver(db, zap.NewNop()),
		zap.NewNop(),
	)
	return svc, db
}

func TestParsePrefixedID(t *testing.T) {
	id, err := ParsePrefixedID("USR-12", "USR-", "用户ID")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	_, err = ParsePrefixedID("USR-abc", "USR-", "用户ID")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = ParsePrefixedID("", "USR-", "用户ID")
	assert.ErrorAs(t, err, &verr)
}

func TestCreateAndGetUser(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.CreateUser(&CreateUserInput{
		Name:     "Alice Wang",
		Email:    "alice@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "USR-1", created.ID)
	assert.Equal(t, "Alice Wang", created.Name)
	assert.Equal(t, "active", created.Status)
	assert.Equal(t, "user", created.Role, "无角色时回落为默认角色")

	got, err := svc.GetUser(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)
	assert.NotNil(t, got.CreatedAt, "详情包含创建时间")
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newUserService(t)

	var verr *models.ValidationError

	_, err := svc.CreateUser(&CreateUserInput{Email: "a@b.com", Password: "secret1"})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.CreateUser(&CreateUserInput{Name: "A", Email: "not-an-email", Password: "secret1"})
	assert.ErrorAs(t, err, &verr)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.CreateUser(&CreateUserInput{Name: "A", Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.CreateUser(&CreateUserInput{Name: "B", Email: "dup@example.com", Password: "secret1"})
	var cerr *models.ConflictError
	assert.ErrorAs(t, err, &cerr)
}

func TestGetUserNotFound(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetUser("USR-999")
	var nerr *models.NotFoundError
	assert.ErrorAs(t, err, &nerr)
}

func TestListUsersPagination(t *testing.T) {
	svc, _ := newUserService(t)

	for i := 0; i < 15; i++ {
		_, err := svc.CreateUser(&CreateUserInput{
			Name:     fmt.Sprintf("User %02d", i),
			Email:    fmt.Sprintf("user%02d@example.com", i),
			Password: "secret1",
		})
		require.NoError(t, err)
	}

	first, err := svc.ListUsers(1, 10, "", "", nil)
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, int64(15), first.Total)
	assert.Equal(t, 1, first.Page)

	second, err := svc.ListUsers(2, 10, "", "", nil)
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)
	assert.Equal(t, int64(15), second.Total)
}

func TestListUsersPaginationValidation(t *testing.T) {
	svc, _ := newUserService(t)

	var verr *models.ValidationError
	_, err := svc.ListUsers(0, 10, "", "", nil)
	assert.ErrorAs(t, err, &verr)

	_, err = svc.ListUsers(1, 101, "", "", nil)
	assert.ErrorAs(t, err, &verr)
}

func TestListUsersKeyword(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.CreateUser(&CreateUserInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.CreateUser(&CreateUserInput{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	page, err := svc.ListUsers(1, 10, "alice", "", nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "alice@example.com", page.Items[0].Email)
}

func TestUpdateUserPartial(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.CreateUser(&CreateUserInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	newName := "Alice Chen"
	updated, err := svc.UpdateUser(created.ID, &UpdateUserInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Alice Chen", updated.Name)
	assert.Equal(t, "alice@example.com", updated.Email, "未提供的字段保持不变")
}

func TestUpdateUserEmailConflict(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.CreateUser(&CreateUserInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(&CreateUserInput{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	taken := "alice@example.com"
	_, err = svc.UpdateUser(bob.ID, &UpdateUserInput{Email: &taken})
	var cerr *models.ConflictError
	assert.ErrorAs(t, err, &cerr)

	// 自己的邮箱不算冲突
	own := "bob@example.com"
	_, err = svc.UpdateUser(bob.ID, &UpdateUserInput{Email: &own})
	assert.NoError(t, err)
}

func TestUpdateUserRoleReplace(t *testing.T) {
	svc, db := newUserService(t)

	require.NoError(t, db.Create(&models.Role{Name: "admin", IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Role{Name: "editor", IsActive: true}).Error)

	created, err := svc.CreateUser(&CreateUserInput{
		Name: "Alice", Email: "alice@example.com", Password: "secret1", Role: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", created.Role)

	newRole := "editor"
	updated, err := svc.UpdateUser(created.ID, &UpdateUserInput{Role: &newRole})
	require.NoError(t, err)
	assert.Equal(t, "editor", updated.Role, "角色为整体替换语义")

	var count int64
	require.NoError(t, db.Model(&models.UserRole{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateUserStatus(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.CreateUser(&CreateUserInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	result, err := svc.UpdateUserStatus(created.ID, "disabled")
	require.NoError(t, err)
	assert.Equal(t, "disabled", result["status"])

	got, err := svc.GetUser(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "disabled", got.Status)
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.CreateUser(&CreateUserInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(created.ID))

	_, err = svc.GetUser(created.ID)
	var nerr *models.NotFoundError
	assert.ErrorAs(t, err, &nerr)

	err = svc.DeleteUser("USR-999")
	assert.ErrorAs(t, err, &nerr)
}

func TestBulkDeleteUsers(t *testing.T) {
	svc, _ := newUserService(t)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		created, err := svc.CreateUser(&CreateUserInput{
			Name:     fmt.Sprintf("User %d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: "secret1",
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	deleted, err := svc.BulkDeleteUsers(ids[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	page, err := svc.ListUsers(1, 10, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	var verr *models.ValidationError
	_, err = svc.BulkDeleteUsers(nil)
	assert.ErrorAs(t, err, &verr)
}
