package auth

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"go.uber.org/zap"
)

// ErrInvalidCredentials 用户名/邮箱或密码错误
var ErrInvalidCredentials = errors.New("invalid credentials")

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// LoginRequest 表单登录请求
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// LoginJSONRequest JSON登录请求
type LoginJSONRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserPayload 登录响应中的用户信息
type UserPayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Avatar      string   `json:"avatar"`
	LastLogin   *string  `json:"lastLogin"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expiresIn"` // 分钟
	User      UserPayload `json:"user"`
}

// Service 认证服务
type Service struct {
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	permRepo  repository.PermissionRepository
	resolver  *Resolver
	tokens    *TokenManager
	passwords *PasswordManager
	logger    *zap.Logger
}

// NewService 创建认证服务
func NewService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	permRepo repository.PermissionRepository,
	resolver *Resolver,
	tokens *TokenManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		permRepo:  permRepo,
		resolver:  resolver,
		tokens:    tokens,
		passwords: NewPasswordManager(),
		logger:    logger,
	}
}

// Login 表单登录（用户名+密码）
func (s *Service) Login(req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(req.Username)
	if err != nil {
		s.logger.Warn("Login failed: user not found", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	return s.completeLogin(user, req.Password, false)
}

// LoginJSON JSON登录（邮箱+密码，支持remember延长有效期）
func (s *Service) LoginJSON(req *LoginJSONRequest) (*LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, models.NewValidationError("邮箱和密码不能为空")
	}

	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		s.logger.Warn("Login failed: email not found", zap.String("email", req.Email))
		return nil, ErrInvalidCredentials
	}

	return s.completeLogin(user, req.Password, req.Remember)
}

// completeLogin 校验密码、刷新最后登录时间并签发令牌
func (s *Service) completeLogin(user *models.User, password string, remember bool) (*LoginResponse, error) {
	if !s.passwords.VerifyPassword(user.PasswordHash, password) {
		s.logger.Warn("Login failed: invalid password", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		// 不影响登录流程
		s.logger.Warn("Failed to update last login time",
			zap.Uint("user_id", user.ID), zap.Error(err))
	}
	now := time.Now()
	user.LastLogin = &now

	roles, permissions := s.resolver.Resolve(user.ID)

	ttl := s.tokens.AccessExpiry()
	if remember {
		// remember me：access令牌有效期延长到7天
		ttl = 7 * 24 * time.Hour
	}

	token, err := s.tokens.Issue(strconv.FormatUint(uint64(user.ID), 10), TokenKindAccess, ttl)
	if err != nil {
		return nil, models.NewDatabaseError("签发令牌失败", err)
	}

	s.logger.Info("User logged in", zap.String("username", user.Username))

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int(ttl / time.Minute),
		User:      s.buildUserPayload(user, roles, permissions),
	}, nil
}

// buildUserPayload 构建登录响应中的用户数据
func (s *Service) buildUserPayload(user *models.User, roles, permissions []string) UserPayload {
	role := "user"
	if len(roles) > 0 {
		role = roles[0]
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}

	var lastLogin *string
	if user.LastLogin != nil {
		formatted := user.LastLogin.UTC().Format("2006-01-02T15:04:05") + "Z"
		lastLogin = &formatted
	}

	return UserPayload{
		ID:          fmt.Sprintf("USR-%d", user.ID),
		Name:        name,
		Email:       user.Email,
		Role:        role,
		Permissions: permissions,
		Avatar:      user.Avatar,
		LastLogin:   lastLogin,
	}
}

// Register 用户注册
// 分配默认 "user" 角色；角色不存在时创建并赋予基本权限
func (s *Service) Register(req *RegisterRequest) (string, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return "", models.NewValidationError("姓名、邮箱和密码不能为空")
	}
	if !emailPattern.MatchString(req.Email) {
		return "", models.NewFieldValidationError("email", "邮箱格式不正确")
	}
	if err := s.passwords.IsValidPassword(req.Password); err != nil {
		return "", models.NewFieldValidationError("password", "密码长度不能少于6位")
	}

	if exists, err := s.userRepo.EmailExistsExcept(req.Email, 0); err != nil {
		return "", models.NewDatabaseError("检查邮箱失败", err)
	} else if exists {
		return "", models.NewFieldConflictError("email", "邮箱已被注册")
	}

	username, err := s.deriveUsername(req.Email)
	if err != nil {
		return "", err
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return "", models.NewDatabaseError("密码哈希生成失败", err)
	}

	user := &models.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.Name,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return "", models.NewDatabaseError("创建用户失败", err)
	}

	if err := s.assignDefaultRole(user.ID); err != nil {
		// 角色分配失败不回滚注册，记录后继续
		s.logger.Error("Failed to assign default role",
			zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("User registered", zap.String("email", req.Email))
	return fmt.Sprintf("USR-%d", user.ID), nil
}

// deriveUsername 从邮箱前缀生成用户名，冲突时追加随机数字后缀
func (s *Service) deriveUsername(email string) (string, error) {
	username := strings.SplitN(email, "@", 2)[0]

	for {
		exists, err := s.userRepo.UsernameExists(username)
		if err != nil {
			return "", models.NewDatabaseError("检查用户名失败", err)
		}
		if !exists {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", strings.SplitN(email, "@", 2)[0], 1000+rand.Intn(9000))
	}
}

// assignDefaultRole 为新用户分配默认角色
func (s *Service) assignDefaultRole(userID uint) error {
	role, err := s.roleRepo.GetByName("user")
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		role = &models.Role{Name: "user", Description: "普通用户，拥有基本查看权限"}
		if err := s.roleRepo.Create(role); err != nil {
			return err
		}

		// 为新建的默认角色赋予基本权限
		basics, err := s.permRepo.GetByNames([]string{"dashboard:view", "users:view", "roles:view"})
		if err == nil && len(basics) > 0 {
			ids := make([]uint, len(basics))
			for i, p := range basics {
				ids[i] = p.ID
			}
			if err := s.roleRepo.ReplacePermissions(role.ID, ids); err != nil {
				s.logger.Warn("Failed to grant basic permissions to default role", zap.Error(err))
			}
		}
	}

	return s.userRepo.AssignRole(userID, role.ID)
}

// ForgotPassword 找回密码
// 出于安全考虑，无论邮箱是否存在都返回已发送
func (s *Service) ForgotPassword(email string) (string, error) {
	if email == "" {
		return "", models.NewFieldValidationError("email", "邮箱不能为空")
	}

	if _, err := s.userRepo.GetByEmail(email); err != nil {
		s.logger.Info("Password reset requested for unknown email", zap.String("email", email))
		return "sent", nil
	}

	// 演示环境不实际发送邮件
	s.logger.Info("Password reset email sent (simulated)", zap.String("email", email))
	return "sent", nil
}
