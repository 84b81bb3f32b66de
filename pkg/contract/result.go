package contract

import "fmt"

// ErrorRecord: 单个测试的抽取失败描述（源位置 + 消息）。
// 索引器不解读其内容，只按出现顺序收集，不去重。
type ErrorRecord struct {
	Location string
	Message  string
}

func (e ErrorRecord) Error() string { return fmt.Sprintf("%s: %s", e.Location, e.Message) }

// Unwrap 使 errors.Is(rec, ErrMetadata) 成立。
func (e ErrorRecord) Unwrap() error { return ErrMetadata }

// MetadataResult: 抽取结果的显式标签类型 Ok(TestMetadata) | Err(ErrorRecord)。
type MetadataResult struct {
	ok   bool
	meta TestMetadata
	err  ErrorRecord
}

// Ok 构造成功结果。
func Ok(m TestMetadata) MetadataResult { return MetadataResult{ok: true, meta: m} }

// Err 构造失败结果。
func Err(rec ErrorRecord) MetadataResult { return MetadataResult{err: rec} }

// OK 报告是否成功。
func (r MetadataResult) OK() bool { return r.ok }

// Metadata 返回成功时的记录；失败时为零值。
func (r MetadataResult) Metadata() TestMetadata { return r.meta }

// Failure 返回失败时的错误记录；成功时为零值。
func (r MetadataResult) Failure() ErrorRecord { return r.err }
