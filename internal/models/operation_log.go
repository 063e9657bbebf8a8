package models

import (
	"time"
)

// OperationLog 操作日志模型
// 应用层只追加，写入后不再更新
type OperationLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index" json:"user_id"` // null 表示匿名或系统操作
	Action       string    `gorm:"not null;size:50" json:"action"`
	Resource     string    `gorm:"not null;size:50" json:"resource"`
	ResourceID   *uint     `json:"resource_id"`
	Description  string    `gorm:"type:text" json:"description"`
	IPAddress    string    `gorm:"size:45" json:"ip_address"`
	UserAgent    string    `gorm:"size:255" json:"user_agent"`
	StatusCode   int       `json:"status_code"`
	RequestData  string    `gorm:"type:text" json:"request_data"`  // JSON，写入前已限制大小
	ResponseData string    `gorm:"type:text" json:"response_data"` // JSON，写入前已限制大小
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (OperationLog) TableName() string {
	return "operation_logs"
}
