package contract

import (
	"path"
	"strings"
)

// NormalizePath 规范化路径，统一为跨平台稳定的正斜杠形式。
// 规则：
// - 反斜杠转为正斜杠
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// TestFile 组合测试的构建树相对路径：group + "/" + test。
func TestFile(group GroupName, test string) string {
	return string(group) + "/" + NormalizePath(test)
}
