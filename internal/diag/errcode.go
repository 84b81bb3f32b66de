package diag

import (
	"context"
	"errors"
	"os"
	"text/template"

	"suitetoc/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeFormat    Code = "format"
	CodeTemplate  Code = "template"
	CodeMetadata  Code = "metadata"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrFormat) || errors.Is(err, contract.ErrDuplicateSection) {
		return CodeFormat
	}
	if errors.Is(err, contract.ErrTemplateNotFound) {
		return CodeTemplate
	}
	var xerr template.ExecError
	if errors.As(err, &xerr) {
		return CodeTemplate
	}
	if errors.Is(err, contract.ErrMetadata) {
		return CodeMetadata
	}
	if errors.Is(err, contract.ErrPathInvalid) || errors.Is(err, contract.ErrInvalidInput) {
		return CodeInvariant
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
