package repository

import (
	"errors"
	"strings"
	"time"

	"rbac-platform/internal/models"

	"gorm.io/gorm"
)

// LogListParams 操作日志查询参数
type LogListParams struct {
	Page      int
	PageSize  int
	Keyword   string
	Level     string // ALL / INFO / WARN / ERROR
	SortField string
	SortOrder string
}

// LevelCounts 各级别日志数量
type LevelCounts struct {
	Info  int64
	Warn  int64
	Error int64
}

// ResourceCount 按资源聚合的日志数量
type ResourceCount struct {
	Resource string
	Total    int64
}

// OperationLogRepository 操作日志仓库接口
// 日志只追加，接口不提供更新操作
type OperationLogRepository interface {
	Create(log *models.OperationLog) error
	GetByID(id uint) (*models.OperationLog, error)
	List(params LogListParams) ([]*models.OperationLog, int64, error)
	CountSince(since time.Time) (int64, error)
	CountByLevel() (LevelCounts, error)
	TopResources(limit int) ([]ResourceCount, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// operationLogRepository 操作日志仓库实现
type operationLogRepository struct {
	db *gorm.DB
}

// NewOperationLogRepository 创建新的操作日志仓库
func NewOperationLogRepository(db *gorm.DB) OperationLogRepository {
	return &operationLogRepository{db: db}
}

// logSortFields 允许排序的字段映射
var logSortFields = map[string]string{
	"time":   "created_at",
	"method": "action",
	"path":   "resource",
}

// Create 写入一条操作日志
func (r *operationLogRepository) Create(log *models.OperationLog) error {
	if log == nil {
		return errors.New("operation log cannot be nil")
	}
	return r.db.Create(log).Error
}

// GetByID 根据ID获取操作日志
func (r *operationLogRepository) GetByID(id uint) (*models.OperationLog, error) {
	var log models.OperationLog
	err := r.db.First(&log, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// List 获取操作日志列表
func (r *operationLogRepository) List(params LogListParams) ([]*models.OperationLog, int64, error) {
	var logs []*models.OperationLog
	var total int64

	query := r.db.Model(&models.OperationLog{})

	if params.Keyword != "" {
		pattern := "%" + strings.ToLower(params.Keyword) + "%"
		query = query.Where(
			"LOWER(action) LIKE ? OR LOWER(resource) LIKE ? OR LOWER(ip_address) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	// 级别基于状态码和描述文本推导
	switch params.Level {
	case "", "ALL":
	case "ERROR":
		query = query.Where("status_code >= ? OR description LIKE ?", 400, "%失败%")
	case "WARN":
		query = query.Where("status_code >= ? AND status_code < ?", 300, 400)
	case "INFO":
		query = query.Where("status_code < ? AND description NOT LIKE ?", 300, "%失败%")
	}

	// 默认按时间倒序
	orderClause := "created_at DESC"
	if column, allowed := logSortFields[params.SortField]; allowed {
		direction := "DESC"
		if params.SortOrder == "ascend" {
			direction = "ASC"
		}
		orderClause = column + " " + direction
	}
	query = query.Order(orderClause)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.PageSize
	if err := query.Offset(offset).Limit(params.PageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// CountSince 统计某一时刻之后的日志数量
func (r *operationLogRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.OperationLog{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// CountByLevel 按级别统计日志数量
func (r *operationLogRepository) CountByLevel() (LevelCounts, error) {
	var counts LevelCounts

	err := r.db.Model(&models.OperationLog{}).
		Where("status_code >= ? OR description LIKE ?", 400, "%失败%").
		Count(&counts.Error).Error
	if err != nil {
		return counts, err
	}

	err = r.db.Model(&models.OperationLog{}).
		Where("status_code >= ? AND status_code < ?", 300, 400).
		Count(&counts.Warn).Error
	if err != nil {
		return counts, err
	}

	err = r.db.Model(&models.OperationLog{}).
		Where("status_code < ? AND description NOT LIKE ?", 300, "%失败%").
		Count(&counts.Info).Error
	return counts, err
}

// TopResources 统计日志量最多的资源
func (r *operationLogRepository) TopResources(limit int) ([]ResourceCount, error) {
	var counts []ResourceCount
	err := r.db.Model(&models.OperationLog{}).
		Select("resource, COUNT(id) AS total").
		Where("resource <> ''").
		Group("resource").
		Order("total DESC").
		Limit(limit).
		Scan(&counts).Error
	return counts, err
}

// DeleteOlderThan 删除早于指定时间的日志，返回删除数量
// 这是应用层唯一允许的日志删除路径（保留期清理）
func (r *operationLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&models.OperationLog{})
	return result.RowsAffected, result.Error
}
