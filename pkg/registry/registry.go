// Package registry 显式登记各组件实现的工厂（零反射）。
// 工厂接收原样 JSON Options 与运行环境 Env；Options 中未设置的字段由 Env 补齐。
package registry

import (
	"bytes"
	"encoding/json"
	"errors"

	"suitetoc/pkg/contract"
	xhtml "suitetoc/plugins/extractor/xhtml"
	rfs "suitetoc/plugins/reader/filesystem"
	gotmpl "suitetoc/plugins/renderer/gotmpl"
	wfs "suitetoc/plugins/writer/filesystem"
)

// Env: 由顶层配置派生、供工厂补齐默认值的运行环境。
type Env struct {
	// Dist: 输出根目录。
	Dist string
	// SpecRoot: 规范根 URL。
	SpecRoot string
	// TemplateDirs: 模板搜索目录（有序）。
	TemplateDirs []string
}

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewExtractor 工厂签名。
type NewExtractor func(raw json.RawMessage, env Env) (contract.Extractor, error)

// NewSource 工厂签名；测试句柄通过 ex 抽取元数据。
type NewSource func(raw json.RawMessage, env Env, ex contract.Extractor) (contract.Source, error)

// NewRenderer 工厂签名。
type NewRenderer func(raw json.RawMessage, env Env) (contract.Renderer, error)

// NewWriter 工厂签名。
type NewWriter func(raw json.RawMessage, env Env) (contract.Writer, error)

// Extractor 工厂注册表。
var Extractor = map[string]NewExtractor{
	// xhtml: 解析 <head> 中的 link/meta/title
	"xhtml": func(raw json.RawMessage, env Env) (contract.Extractor, error) {
		var opts xhtml.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		if opts.SpecRoot == "" {
			opts.SpecRoot = env.SpecRoot
		}
		return xhtml.New(&opts), nil
	},
}

// Source 工厂注册表。
var Source = map[string]NewSource{
	// fs: 目录树 + reftest 清单
	"fs": func(raw json.RawMessage, env Env, ex contract.Extractor) (contract.Source, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		if opts.SpecRoot == "" {
			opts.SpecRoot = env.SpecRoot
		}
		return rfs.New(&opts, ex)
	},
}

// Renderer 工厂注册表。
var Renderer = map[string]NewRenderer{
	// gotmpl: text/template + sprig，内置模板兜底
	"gotmpl": func(raw json.RawMessage, env Env) (contract.Renderer, error) {
		var opts gotmpl.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		if len(opts.SearchPath) == 0 {
			opts.SearchPath = append([]string(nil), env.TemplateDirs...)
		}
		return gotmpl.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage, env Env) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		if opts.OutputDir == "" {
			opts.OutputDir = env.Dist
		}
		if opts.OutputDir == "" {
			return nil, errors.New("writer fs: output_dir not set")
		}
		return wfs.New(&opts)
	},
}
