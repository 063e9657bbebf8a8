package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rbac-platform/internal/models"
	"rbac-platform/internal/redis"
	"rbac-platform/internal/repository"

	"go.uber.org/zap"
)

const settingsRedisKey = "system_settings"

// 资源标签到中文模块名的映射
var moduleNames = map[string]string{
	"auth":      "认证系统",
	"users":     "用户管理",
	"roles":     "角色管理",
	"dashboard": "仪表盘",
	"admin":     "运营中心",
	"system":    "系统管理",
	"health":    "健康检查",
}

// LogContext 日志条目的上下文信息
type LogContext struct {
	RequestID  string `json:"requestId"`
	IP         string `json:"ip"`
	UserAgent  string `json:"userAgent"`
	ResourceID *uint  `json:"resourceId"`
	UserID     *uint  `json:"userId"`
	Resource   string `json:"resource"`
	UserEmail  string `json:"userEmail,omitempty"`
	UserName   string `json:"userName,omitempty"`
}

// LogItem 系统日志条目
type LogItem struct {
	ID      string     `json:"id"`
	Time    string     `json:"time"`
	Level   string     `json:"level"`
	Module  string     `json:"module"`
	Message string     `json:"message"`
	Action  string     `json:"action"`
	Context LogContext `json:"context"`
}

// LogPage 日志分页结果
type LogPage struct {
	Items    []LogItem `json:"items"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// LogsSummary 日志概览
type LogsSummary struct {
	Severity   map[string]int64         `json:"severity"`
	Recent     []LogItem                `json:"recent"`
	TopModules []map[string]interface{} `json:"topModules"`
	Total      int64                    `json:"total"`
	ErrorRatio float64                  `json:"errorRatio"`
	TodayCount int64                    `json:"todayCount"`
}

// NotificationSettings 通知设置
type NotificationSettings struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	InApp bool `json:"inApp"`
}

// SecuritySettings 安全设置
type SecuritySettings struct {
	MFA            bool   `json:"mfa"`
	SessionTimeout int    `json:"sessionTimeout"`
	PasswordPolicy string `json:"passwordPolicy"`
}

// SystemSettings 系统设置
type SystemSettings struct {
	AppName       string               `json:"appName"`
	Language      string               `json:"language"`
	Timezone      string               `json:"timezone"`
	Theme         string               `json:"theme"`
	Notifications NotificationSettings `json:"notifications"`
	Security      SecuritySettings     `json:"security"`
}

// SystemSettingsInput 更新系统设置的请求体
// 嵌套块为指针，请求中缺失时整块补默认值
type SystemSettingsInput struct {
	AppName       string                `json:"appName"`
	Language      string                `json:"language"`
	Timezone      string                `json:"timezone"`
	Theme         string                `json:"theme"`
	Notifications *NotificationSettings `json:"notifications"`
	Security      *SecuritySettings     `json:"security"`
}

func defaultSettings() SystemSettings {
	return SystemSettings{
		AppName:  "RBAC管理平台",
		Language: "zh",
		Timezone: "Asia/Shanghai",
		Theme:    "light",
		Notifications: NotificationSettings{
			Email: true,
			SMS:   false,
			InApp: true,
		},
		Security: SecuritySettings{
			MFA:            true,
			SessionTimeout: 30,
			PasswordPolicy: "长度≥12，含数字和特殊字符",
		},
	}
}

// SystemManagementService 系统管理服务
// 设置在配置了Redis时持久化，否则仅保存在进程内
type SystemManagementService struct {
	logRepo  repository.OperationLogRepository
	userRepo repository.UserRepository
	rdb      *redis.Client
	logger   *zap.Logger

	mu       sync.RWMutex
	settings SystemSettings
}

// NewSystemManagementService 创建系统管理服务，rdb可为nil
func NewSystemManagementService(
	logRepo repository.OperationLogRepository,
	userRepo repository.UserRepository,
	rdb *redis.Client,
	logger *zap.Logger,
) *SystemManagementService {
	return &SystemManagementService{
		logRepo:  logRepo,
		userRepo: userRepo,
		rdb:      rdb,
		logger:   logger,
		settings: defaultSettings(),
	}
}

// GetSystemLogs 分页查询操作日志
func (s *SystemManagementService) GetSystemLogs(page, pageSize int, keyword, level string, sorter *SortSpec) (*LogPage, error) {
	if err := validatePagination(page, pageSize); err != nil {
		return nil, err
	}

	params := repository.LogListParams{
		Page:     page,
		PageSize: pageSize,
		Keyword:  keyword,
		Level:    level,
	}
	if sorter != nil {
		params.SortField = sorter.Field
		params.SortOrder = sorter.Order
	}

	logs, total, err := s.logRepo.List(params)
	if err != nil {
		return nil, models.NewDatabaseError("获取系统日志失败", err)
	}

	items := make([]LogItem, 0, len(logs))
	for _, log := range logs {
		items = append(items, s.buildLogItem(log))
	}

	return &LogPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetLogsSummary 获取日志概览
func (s *SystemManagementService) GetLogsSummary() (*LogsSummary, error) {
	counts, err := s.logRepo.CountByLevel()
	if err != nil {
		return nil, models.NewDatabaseError("获取日志概览数据失败", err)
	}
	total := counts.Info + counts.Warn + counts.Error

	recentLogs, _, err := s.logRepo.List(repository.LogListParams{Page: 1, PageSize: 5})
	if err != nil {
		return nil, models.NewDatabaseError("获取日志概览数据失败", err)
	}
	recent := make([]LogItem, 0, len(recentLogs))
	for _, log := range recentLogs {
		recent = append(recent, s.buildLogItem(log))
	}

	resources, err := s.logRepo.TopResources(5)
	if err != nil {
		s.logger.Warn("Failed to aggregate log modules", zap.Error(err))
	}
	topModules := make([]map[string]interface{}, 0, len(resources))
	for _, rc := range resources {
		topModules = append(topModules, map[string]interface{}{
			"module": moduleName(rc.Resource),
			"total":  rc.Total,
		})
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	todayCount, err := s.logRepo.CountSince(todayStart)
	if err != nil {
		s.logger.Warn("Failed to count today's logs", zap.Error(err))
	}

	errorRatio := 0.0
	if total > 0 {
		errorRatio = float64(counts.Error) / float64(total) * 100
	}

	return &LogsSummary{
		Severity: map[string]int64{
			"ERROR": counts.Error,
			"WARN":  counts.Warn,
			"INFO":  counts.Info,
		},
		Recent:     recent,
		TopModules: topModules,
		Total:      total,
		ErrorRatio: errorRatio,
		TodayCount: todayCount,
	}, nil
}

// GetSettings 获取系统设置
func (s *SystemManagementService) GetSettings() (*SystemSettings, error) {
	if s.rdb != nil {
		var stored SystemSettings
		err := s.rdb.GetJSON(context.Background(), settingsRedisKey, &stored)
		if err == nil {
			return &stored, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Failed to load settings from Redis", zap.Error(err))
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.settings
	return &settings, nil
}

// UpdateSettings 更新系统设置
// appName/language/timezone/theme为必填；缺失的嵌套块整体补默认值，
// 已提供的块原样保留（仅回填空的会话时长和密码策略）
func (s *SystemManagementService) UpdateSettings(input *SystemSettingsInput) (*SystemSettings, error) {
	for field, value := range map[string]string{
		"appName":  input.AppName,
		"language": input.Language,
		"timezone": input.Timezone,
		"theme":    input.Theme,
	} {
		if value == "" {
			return nil, models.NewFieldValidationError(field, fmt.Sprintf("缺少必填字段: %s", field))
		}
	}

	defaults := defaultSettings()
	settings := SystemSettings{
		AppName:       input.AppName,
		Language:      input.Language,
		Timezone:      input.Timezone,
		Theme:         input.Theme,
		Notifications: defaults.Notifications,
		Security:      defaults.Security,
	}
	if input.Notifications != nil {
		settings.Notifications = *input.Notifications
	}
	if input.Security != nil {
		settings.Security = *input.Security
		if settings.Security.SessionTimeout == 0 {
			settings.Security.SessionTimeout = defaults.Security.SessionTimeout
		}
		if settings.Security.PasswordPolicy == "" {
			settings.Security.PasswordPolicy = defaults.Security.PasswordPolicy
		}
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if s.rdb != nil {
		if err := s.rdb.SetJSON(context.Background(), settingsRedisKey, &settings, 0); err != nil {
			s.logger.Warn("Failed to persist settings to Redis", zap.Error(err))
		}
	}

	s.logger.Info("System settings updated", zap.String("appName", settings.AppName))
	return &settings, nil
}

// CleanupLogs 按保留天数清理操作日志
func (s *SystemManagementService) CleanupLogs(retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, models.NewFieldValidationError("retentionDays", "保留天数必须大于0")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.logRepo.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, models.NewDatabaseError("清理日志失败", err)
	}

	s.logger.Info("Operation logs cleaned up",
		zap.Int64("deleted", deleted), zap.Int("retention_days", retentionDays))
	return deleted, nil
}

// buildLogItem 构建日志展示数据
func (s *SystemManagementService) buildLogItem(log *models.OperationLog) LogItem {
	item := LogItem{
		ID:      fmt.Sprintf("LOG-%d", log.ID),
		Time:    log.CreatedAt.Format("2006-01-02 15:04:05"),
		Level:   deriveLevel(log),
		Module:  moduleName(log.Resource),
		Message: log.Description,
		Action:  log.Action,
		Context: LogContext{
			RequestID:  fmt.Sprintf("req-%d", log.ID),
			IP:         log.IPAddress,
			UserAgent:  log.UserAgent,
			ResourceID: log.ResourceID,
			UserID:     log.UserID,
			Resource:   log.Resource,
		},
	}
	if item.Message == "" {
		item.Message = log.Action
	}

	if log.UserID != nil {
		if user, err := s.userRepo.GetByID(*log.UserID); err == nil {
			item.Context.UserEmail = user.Email
			if user.FullName != "" {
				item.Context.UserName = user.FullName
			} else {
				item.Context.UserName = user.Username
			}
		}
	}

	return item
}

// deriveLevel 由状态码和描述文本推导日志级别
func deriveLevel(log *models.OperationLog) string {
	if log.StatusCode >= 400 || strings.Contains(log.Description, "失败") {
		return "ERROR"
	}
	if log.StatusCode >= 300 {
		return "WARN"
	}
	return "INFO"
}

func moduleName(resource string) string {
	if name, ok := moduleNames[resource]; ok {
		return name
	}
	if resource == "" {
		return "system"
	}
	return resource
}
