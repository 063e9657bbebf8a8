// Package api HTTP处理器与响应封装
package api

import (
	"errors"
	"net/http"
	"time"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/models"

	"github.com/gin-gonic/gin"
)

// 错误码常量
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// debugMode 为true时500响应携带内部错误详情
var debugMode = false

// SetDebugMode 设置调试模式
func SetDebugMode(enabled bool) {
	debugMode = enabled
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "操作成功",
		"data":      data,
		"timestamp": timestamp(),
	})
}

// SuccessWithMessage 成功响应带消息
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   message,
		"data":      data,
		"timestamp": timestamp(),
	})
}

// Created 201响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "创建成功",
		"data":      data,
		"timestamp": timestamp(),
	})
}

// SuccessPaginated 分页成功响应
func SuccessPaginated(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "操作成功",
		"data": gin.H{
			"items":    items,
			"total":    total,
			"page":     page,
			"pageSize": pageSize,
		},
		"timestamp": timestamp(),
	})
}

// Fail 错误响应
func Fail(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, gin.H{
		"success":    false,
		"message":    message,
		"data":       nil,
		"error_code": errorCode,
		"timestamp":  timestamp(),
	})
}

// HandleError 统一错误翻译点
// 业务错误类型映射到HTTP状态码，未分类错误按持久化失败处理
func HandleError(c *gin.Context, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		conflictErr   *models.ConflictError
		databaseErr   *models.DatabaseError
	)

	switch {
	case errors.As(err, &validationErr):
		Fail(c, http.StatusBadRequest, CodeValidationError, validationErr.Message)
	case errors.As(err, &notFoundErr):
		Fail(c, http.StatusNotFound, CodeNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		Fail(c, http.StatusConflict, CodeConflict, conflictErr.Message)
	case errors.As(err, &databaseErr):
		if debugMode {
			Fail(c, http.StatusInternalServerError, CodeDatabaseError, databaseErr.Error())
		} else {
			Fail(c, http.StatusInternalServerError, CodeDatabaseError, "服务器内部错误")
		}
	case errors.Is(err, auth.ErrInvalidCredentials):
		Fail(c, http.StatusUnauthorized, CodeUnauthorized, "用户名或密码错误")
	default:
		// 未分类错误不向外暴露细节
		message := "服务器内部错误"
		if debugMode {
			message = err.Error()
		}
		Fail(c, http.StatusInternalServerError, CodeInternalError, message)
	}
}
