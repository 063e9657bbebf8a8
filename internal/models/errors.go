package models

import "fmt"

// ValidationError 数据验证错误
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		Message: message,
	}
}

// NewFieldValidationError 创建字段验证错误
func NewFieldValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NotFoundError 资源未找到错误
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
}

// NewNotFoundError 创建资源未找到错误
func NewNotFoundError(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// ConflictError 资源冲突错误（唯一性约束）
type ConflictError struct {
	Message string
	Field   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict error: %s", e.Message)
}

// NewConflictError 创建资源冲突错误
func NewConflictError(message string) *ConflictError {
	return &ConflictError{
		Message: message,
	}
}

// NewFieldConflictError 创建字段冲突错误
func NewFieldConflictError(field, message string) *ConflictError {
	return &ConflictError{
		Field:   field,
		Message: message,
	}
}

// DatabaseError 未预期的持久化失败
type DatabaseError struct {
	Message string
	Cause   error
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("database error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("database error: %s", e.Message)
}

// Unwrap 支持errors.Unwrap
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// NewDatabaseError 创建数据库错误
func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{
		Message: message,
		Cause:   cause,
	}
}
