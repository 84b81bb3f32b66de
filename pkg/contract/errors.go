package contract

import "errors"

// 最小错误分类（结构性错误直接上抛并终止构建）。
var (
	// ErrFormat: 小节数据文件记录格式错误（字段数不为 4 等）。
	ErrFormat = errors.New("section data format error")
	// ErrDuplicateSection: 同一 URI 出现多次（仅在 duplicate_policy=error 时使用）。
	ErrDuplicateSection = errors.New("duplicate section uri")
	// ErrTemplateNotFound: 模板搜索路径中找不到指定模板。
	ErrTemplateNotFound = errors.New("template not found")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用参数或配置不满足前置条件。
	ErrInvalidInput = errors.New("invalid input")
	// ErrMetadata: 单个测试的元数据无法抽取（可恢复，仅记录）。
	ErrMetadata = errors.New("metadata unavailable")
)
