package audit

import (
	"time"

	"rbac-platform/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionJob 按保留天数定期清理操作日志
type RetentionJob struct {
	logRepo       repository.OperationLogRepository
	retentionDays int
	logger        *zap.Logger
	cron          *cron.Cron
}

// NewRetentionJob 创建日志保留清理任务
func NewRetentionJob(logRepo repository.OperationLogRepository, retentionDays int, logger *zap.Logger) *RetentionJob {
	return &RetentionJob{
		logRepo:       logRepo,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start 启动每日清理调度，每天凌晨3点执行
func (j *RetentionJob) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc("0 3 * * *", j.Run); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("Operation log retention job scheduled",
		zap.Int("retention_days", j.retentionDays))
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (j *RetentionJob) Stop() {
	if j.cron != nil {
		ctx := j.cron.Stop()
		<-ctx.Done()
	}
}

// Run 执行一次清理
func (j *RetentionJob) Run() {
	if j.retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.logRepo.DeleteOlderThan(cutoff)
	if err != nil {
		j.logger.Error("Operation log cleanup failed", zap.Error(err))
		return
	}

	j.logger.Info("Operation log cleanup finished",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
}
