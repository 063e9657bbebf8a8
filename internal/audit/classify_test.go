package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		action   string
		resource string
	}{
		{"POST", "/api/auth/login", "用户登录", "auth"},
		{"POST", "/api/auth/login-json", "用户登录", "auth"},
		{"POST", "/api/auth/register", "用户注册", "auth"},
		{"POST", "/api/auth/forgot-password", "重置密码", "auth"},
		{"POST", "/api/auth/reset-password", "重置密码", "auth"},
		{"POST", "/api/users", "创建用户", "users"},
		{"PUT", "/api/users/12", "更新用户", "users"},
		{"PATCH", "/api/users/12/status", "更新用户", "users"},
		{"DELETE", "/api/users/12", "删除用户", "users"},
		{"POST", "/api/roles", "创建角色", "roles"},
		{"PUT", "/api/roles/3", "更新角色", "roles"},
		{"DELETE", "/api/roles/3", "删除角色", "roles"},
		{"PUT", "/api/system/settings", "更新系统设置", "system"},
		{"POST", "/api/system/logs/cleanup", "更新系统设置", "system"},
		{"DELETE", "/api/system/logs", "删除系统数据", "system"},
		{"DELETE", "/api/tags/7", "删除tags", "tags"},
		{"GET", "/api/dashboard", "GET操作", "dashboard"},
	}

	for _, tt := range tests {
		got := Classify(tt.method, tt.path)
		assert.Equal(t, tt.action, got.Action, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.resource, got.Resource, "%s %s", tt.method, tt.path)
	}
}

// TestClassifyDeterministic 相同输入永远得到相同标签
func TestClassifyDeterministic(t *testing.T) {
	first := Classify("DELETE", "/api/users/5")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify("DELETE", "/api/users/5"))
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "创建用户成功", Describe("创建用户", 201))
	assert.Equal(t, "用户登录成功", Describe("用户登录", 200))
	assert.Equal(t, "用户登录失败: HTTP 401", Describe("用户登录", 401))
	assert.Equal(t, "删除角色失败: HTTP 500", Describe("删除角色", 500))
}

func TestExtractResourceID(t *testing.T) {
	id := ExtractResourceID("/api/users/12")
	if assert.NotNil(t, id) {
		assert.Equal(t, uint(12), *id)
	}

	id = ExtractResourceID("/api/users/12/status")
	if assert.NotNil(t, id) {
		assert.Equal(t, uint(12), *id)
	}

	assert.Nil(t, ExtractResourceID("/api/users"))
	assert.Nil(t, ExtractResourceID("/api/auth/login"))
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, IsSensitive("POST", "/api/auth/login"))
	assert.True(t, IsSensitive("POST", "/api/auth/register"))
	assert.True(t, IsSensitive("POST", "/api/auth/forgot-password"))
	assert.True(t, IsSensitive("POST", "/api/users"))
	assert.True(t, IsSensitive("PUT", "/api/roles/3"))
	assert.True(t, IsSensitive("POST", "/api/users/bulk-delete"))
	assert.True(t, IsSensitive("POST", "/api/reports/export"))
	assert.True(t, IsSensitive("PUT", "/api/system/settings"))

	// 任意路径的DELETE都敏感
	assert.True(t, IsSensitive("DELETE", "/api/anything/1"))
	assert.True(t, IsSensitive("DELETE", "/api/tags/42"))

	assert.False(t, IsSensitive("GET", "/api/dashboard"))
	assert.False(t, IsSensitive("GET", "/api/roles"))
	assert.False(t, IsSensitive("POST", "/api/tags"))
	assert.False(t, IsSensitive("GET", "/api/system/settings"))
}
