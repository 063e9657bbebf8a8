package models

import (
	"gorm.io/gorm"
)

// AutoMigrate 执行所有模型的自动迁移
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Role{},
		&Permission{},
		&UserRole{},
		&RolePermission{},
		&OperationLog{},
	)
}

// CreateIndexes 创建额外的索引
func CreateIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_operation_logs_resource ON operation_logs(resource)",
		"CREATE INDEX IF NOT EXISTS idx_operation_logs_action ON operation_logs(action)",
		"CREATE INDEX IF NOT EXISTS idx_users_last_login ON users(last_login)",
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
