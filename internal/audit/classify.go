// Package audit 提供审计日志中间件与日志保留策略
package audit

import (
	"fmt"
	"strconv"
	"strings"
)

// Classification 请求的操作分类结果
type Classification struct {
	Action   string
	Resource string
}

func isMutating(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// Classify 按(方法, 路径)推导操作类型与资源
// 规则有序匹配，结果必须确定，相同输入永远得到相同标签
func Classify(method, path string) Classification {
	lower := strings.ToLower(path)

	// 认证相关路径
	switch {
	case strings.Contains(lower, "forgot-password"), strings.Contains(lower, "reset"):
		return Classification{Action: "重置密码", Resource: "auth"}
	case strings.Contains(lower, "login"):
		return Classification{Action: "用户登录", Resource: "auth"}
	case strings.Contains(lower, "register"):
		return Classification{Action: "用户注册", Resource: "auth"}
	}

	if strings.Contains(lower, "/users") {
		switch method {
		case "POST":
			return Classification{Action: "创建用户", Resource: "users"}
		case "PUT", "PATCH":
			return Classification{Action: "更新用户", Resource: "users"}
		case "DELETE":
			return Classification{Action: "删除用户", Resource: "users"}
		}
	}

	if strings.Contains(lower, "/roles") {
		switch method {
		case "POST":
			return Classification{Action: "创建角色", Resource: "roles"}
		case "PUT", "PATCH":
			return Classification{Action: "更新角色", Resource: "roles"}
		case "DELETE":
			return Classification{Action: "删除角色", Resource: "roles"}
		}
	}

	if strings.Contains(lower, "/system") {
		switch method {
		case "POST", "PUT", "PATCH":
			return Classification{Action: "更新系统设置", Resource: "system"}
		case "DELETE":
			return Classification{Action: "删除系统数据", Resource: "system"}
		}
	}

	if method == "DELETE" {
		resource := firstSegment(path)
		return Classification{Action: "删除" + resource, Resource: resource}
	}

	return Classification{Action: method + "操作", Resource: firstSegment(path)}
}

// firstSegment 取路径首段作为资源名，跳过api前缀
func firstSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, p := range parts {
		if p == "" || p == "api" {
			continue
		}
		return p
	}
	return "root"
}

// Describe 生成操作描述
func Describe(action string, statusCode int) string {
	if statusCode >= 400 {
		return fmt.Sprintf("%s失败: HTTP %d", action, statusCode)
	}
	return action + "成功"
}

// ExtractResourceID 从路径中提取最后一个数字段作为资源ID
func ExtractResourceID(path string) *uint {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if id, err := strconv.ParseUint(parts[i], 10, 32); err == nil {
			v := uint(id)
			return &v
		}
	}
	return nil
}

// IsSensitive 判断请求是否需要记录审计日志
func IsSensitive(method, path string) bool {
	lower := strings.ToLower(path)

	for _, kw := range []string{"login", "register", "forgot-password", "reset", "password"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	if isMutating(method) && (strings.Contains(lower, "/users") || strings.Contains(lower, "/roles")) {
		return true
	}

	if method == "DELETE" {
		return true
	}

	for _, kw := range []string{"export", "import", "batch", "bulk"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	if isMutating(method) && strings.Contains(lower, "/system/settings") {
		return true
	}

	return false
}
