package contract

import (
	"context"
	"io"
)

// ArtifactID: 构建产物的相对标识（正斜杠分隔，相对输出根目录）。
type ArtifactID string

// Writer: 将渲染结果以流式方式持久化到目标介质（文件系统等）。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 按字节透传，不修改内容（调用方负责 UTF-8 编码）；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
