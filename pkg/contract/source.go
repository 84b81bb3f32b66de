package contract

import "context"

// Test: 单个测试文件句柄。
type Test interface {
	// Name 返回组内相对名（正斜杠分隔）。
	Name() string
	// Metadata 抽取元数据；失败以 Err 结果返回而非 error。
	Metadata(ctx context.Context) MetadataResult
}

// Group: 命名测试集合。
// 约束：Tests 每次调用均返回完整、有限、顺序稳定的序列。
type Group interface {
	Name() GroupName
	Tests(ctx context.Context) ([]Test, error)
}

// Extractor: 按文件路径抽取元数据。
// 约束：单文件失败不得返回 error，而是 Err(ErrorRecord)。
type Extractor interface {
	Extract(ctx context.Context, path string) MetadataResult
}

// Source: 测试来源抽象（目录扫描、reftest 清单、未审核路径）。
// 不起并发；同一输入多次调用返回相同分组序列。
type Source interface {
	Groups(ctx context.Context, roots []string, unreviewed []string) ([]Group, error)
}
