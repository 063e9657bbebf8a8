package api

import (
	"net/http"

	"rbac-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// ForgotPasswordRequest 找回密码请求
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Login 表单登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "用户名和密码不能为空")
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessWithMessage(c, "登录成功", resp)
}

// LoginJSON JSON登录
func (h *AuthHandler) LoginJSON(c *gin.Context) {
	var req auth.LoginJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	resp, err := h.authService.LoginJSON(&req)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessWithMessage(c, "登录成功", resp)
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	id, err := h.authService.Register(&req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, gin.H{"id": id})
}

// ForgotPassword 找回密码
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, CodeValidationError, "请求格式不正确")
		return
	}

	status, err := h.authService.ForgotPassword(req.Email)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, gin.H{"status": status})
}

// RegisterRoutes 注册认证相关路由
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/auth")
	{
		group.POST("/login", h.Login)
		group.POST("/login-json", h.LoginJSON)
		group.POST("/register", h.Register)
		group.POST("/forgot-password", h.ForgotPassword)
	}
}
