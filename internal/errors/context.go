package errors

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey int

const (
	operationIDKey contextKey = iota
	operationKey
)

// WithOperationID 在 context 中记录操作ID，id 为空时生成新的 UUID
func WithOperationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewOperationID()
	}
	return context.WithValue(ctx, operationIDKey, id)
}

// WithOperation 在 context 中记录操作名称（如 "setMerkle"）
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// OperationID 从 context 获取操作ID
func OperationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(operationIDKey).(string)
	return id
}

// Operation 从 context 获取操作名称
func Operation(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	op, _ := ctx.Value(operationKey).(string)
	return op
}

// NewOperationID 生成新的操作ID
func NewOperationID() string {
	return uuid.New().String()
}

// ContextFields 返回 context 中可用于日志的字段
func ContextFields(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}
	if id := OperationID(ctx); id != "" {
		fields["operation_id"] = id
	}
	if op := Operation(ctx); op != "" {
		fields["operation"] = op
	}
	return fields
}
