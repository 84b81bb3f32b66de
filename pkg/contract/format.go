package contract

import (
	"path"
	"strings"
)

// Format: 输出格式描述（索引扩展名、输出子目录、测试角色→扩展名映射）。
type Format struct {
	Name     string            `json:"name" yaml:"name"`
	IndexExt string            `json:"index_ext" yaml:"index_ext"`
	DirName  string            `json:"dir" yaml:"dir"`
	ExtMap   map[string]string `json:"ext_map" yaml:"ext_map"`
}

// IsXML 报告格式是否为 XML 系（索引扩展名以 ".x" 开头，如 .xht）。
func (f Format) IsXML() bool { return strings.HasPrefix(f.IndexExt, ".x") }

// Dest 将格式内文件名解析为构建树中的产物标识。
func (f Format) Dest(filename string) ArtifactID {
	if f.DirName == "" {
		return ArtifactID(path.Clean(filename))
	}
	return ArtifactID(path.Join(f.DirName, filename))
}
