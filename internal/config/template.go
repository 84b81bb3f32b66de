package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 按 CSS 2.1 测试仓库的目录约定给出路径（approved/css2.1/...）；
// - 组件名采用仓库内置实现；
// - 选项给出全部键及中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	fail := false
	cfg := Config{
		Name:            "css2.1",
		Title:           "CSS2.1 Test Suite",
		SpecRoot:        "http://www.w3.org/TR/CSS21/",
		Sections:        "approved/css2.1/data/sections.dat",
		SplitLevel:      2,
		DuplicatePolicy: d.DuplicatePolicy,
		Roots:           []string{"approved/css2.1/src"},
		Dist:            "dist/css2.1",
		Formats:         d.Formats,
		TemplateDirs:    []string{"approved/css2.1/data"},
		ExtraData:       map[string]any{"devel": true, "official": true},
		Overview:        Page{Template: "overview.tmpl", Output: "index.htm"},
		FailOnErrors:    &fail,
		Logging:         Logging{Level: "info"},
		Components:      d.Components,
	}
	cfg.Options.Source = json.RawMessage(`{
  "include": ["*.xht"],
  "exclude_dir_names": ["support"],
  "reftest_list": "reftest/reftest.list",
  "spec_root": ""
}`)
	cfg.Options.Extractor = json.RawMessage(`{
  "spec_root": "",
  "allow_anonymous": false
}`)
	cfg.Options.Renderer = json.RawMessage(`{
  "search_path": [],
  "no_builtin": false
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "",
  "atomic": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}
