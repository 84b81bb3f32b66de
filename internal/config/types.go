package config

import (
	"encoding/json"

	"suitetoc/pkg/contract"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// 键名使用 snake_case；JSON 与 YAML 共用同一组键，未知字段在解析期失败。
type Config struct {
	// Name/Title/SpecRoot 描述测试套件。
	Name     string `json:"name"`
	Title    string `json:"title"`
	SpecRoot string `json:"spec_root"`

	// Sections: 小节数据文件（sortKey\turi\tnumber\ttitle）。
	Sections string `json:"sections"`
	// SplitLevel: 分章前缀长度；0 为单页目录。
	// 合并约定：-1 表示未设置。
	SplitLevel int `json:"split_level"`
	// DuplicatePolicy: "last-wins"（默认）或 "error"。
	DuplicatePolicy string `json:"duplicate_policy"`

	Roots      []string `json:"roots"`
	Unreviewed []string `json:"unreviewed"`
	Dist       string   `json:"dist"`

	Formats      []contract.Format `json:"formats"`
	TemplateDirs []string          `json:"template_dirs"`
	ExtraData    map[string]any    `json:"extra_data"`

	// ErrorOutput: 为空时错误逐行写到 stderr。
	ErrorOutput Page `json:"error_output"`
	Overview    Page `json:"overview"`

	// FailOnErrors: 存在单测试错误时以退出码 2 结束。
	FailOnErrors *bool  `json:"fail_on_errors,omitempty"`
	MetricsFile  string `json:"metrics_file"`

	Logging    Logging    `json:"logging"`
	Components Components `json:"components"`
	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Page: 模板名 + 输出文件名（相对 dist）。
type Page struct {
	Template string `json:"template"`
	Output   string `json:"output"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Source    string `json:"source"`
	Extractor string `json:"extractor"`
	Renderer  string `json:"renderer"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Source    json.RawMessage `json:"source,omitempty"`
	Extractor json.RawMessage `json:"extractor,omitempty"`
	Renderer  json.RawMessage `json:"renderer,omitempty"`
	Writer    json.RawMessage `json:"writer,omitempty"`
}
