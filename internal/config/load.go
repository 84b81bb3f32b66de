package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"suitetoc/pkg/contract"
)

// DefaultFormats 返回默认输出格式：XHTML 1.1 与 HTML 4。
func DefaultFormats() []contract.Format {
	return []contract.Format{
		{Name: "xhtml1", IndexExt: ".xht", DirName: "xhtml1"},
		{Name: "html4", IndexExt: ".htm", DirName: "html4", ExtMap: map[string]string{".xht": ".htm"}},
	}
}

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：sections 与 roots 不设默认（必须由配置/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		Dist:            "dist",
		SplitLevel:      0,
		DuplicatePolicy: "last-wins",
		Formats:         DefaultFormats(),
		Components: Components{
			Source:    "fs",
			Extractor: "xhtml",
			Renderer:  "gotmpl",
			Writer:    "fs",
		},
	}
}

// LoadFile 按扩展名解析配置文件：.yaml/.yml 为 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(b)
	default:
		return LoadJSON("", b)
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer f.Close()
		r = f
	default:
		return Config{}, errors.New("no config source provided")
	}
	cfg := Config{SplitLevel: -1}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadYAML 解析 YAML 配置：先解为通用树，再经 JSON 严格解码，
// 使两种格式共用同一组键与同一套未知字段校验。
func LoadYAML(raw []byte) (Config, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if tree == nil {
		return Config{SplitLevel: -1}, nil
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	return LoadJSON("", b)
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/列表/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.Name); s != "" {
		out.Name = s
	}
	if s := strings.TrimSpace(over.Title); s != "" {
		out.Title = s
	}
	if s := strings.TrimSpace(over.SpecRoot); s != "" {
		out.SpecRoot = s
	}
	if s := strings.TrimSpace(over.Sections); s != "" {
		out.Sections = s
	}
	// 特殊：SplitLevel 的 0 具有语义（单页目录），-1 视为未覆盖。
	if over.SplitLevel >= 0 {
		out.SplitLevel = over.SplitLevel
	}
	if s := strings.TrimSpace(over.DuplicatePolicy); s != "" {
		out.DuplicatePolicy = s
	}
	if len(over.Roots) > 0 {
		out.Roots = cloneStrings(over.Roots)
	}
	if len(over.Unreviewed) > 0 {
		out.Unreviewed = cloneStrings(over.Unreviewed)
	}
	if s := strings.TrimSpace(over.Dist); s != "" {
		out.Dist = s
	}
	if len(over.Formats) > 0 {
		out.Formats = cloneFormats(over.Formats)
	}
	if len(over.TemplateDirs) > 0 {
		out.TemplateDirs = cloneStrings(over.TemplateDirs)
	}
	// ExtraData（按键替换）
	if len(over.ExtraData) > 0 {
		m := make(map[string]any, len(out.ExtraData)+len(over.ExtraData))
		for k, v := range out.ExtraData {
			m[k] = v
		}
		for k, v := range over.ExtraData {
			m[k] = v
		}
		out.ExtraData = m
	}
	if over.ErrorOutput.Template != "" || over.ErrorOutput.Output != "" {
		out.ErrorOutput = over.ErrorOutput
	}
	if over.Overview.Template != "" || over.Overview.Output != "" {
		out.Overview = over.Overview
	}
	if over.FailOnErrors != nil {
		v := *over.FailOnErrors
		out.FailOnErrors = &v
	}
	if s := strings.TrimSpace(over.MetricsFile); s != "" {
		out.MetricsFile = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}

	// 组件名（空不覆盖）
	if over.Components.Source != "" {
		out.Components.Source = over.Components.Source
	}
	if over.Components.Extractor != "" {
		out.Components.Extractor = over.Components.Extractor
	}
	if over.Components.Renderer != "" {
		out.Components.Renderer = over.Components.Renderer
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Source) > 0 {
		out.Options.Source = cloneRaw(over.Options.Source)
	}
	if len(over.Options.Extractor) > 0 {
		out.Options.Extractor = cloneRaw(over.Options.Extractor)
	}
	if len(over.Options.Renderer) > 0 {
		out.Options.Renderer = cloneRaw(over.Options.Renderer)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvPrefix 为环境变量前缀。
const EnvPrefix = "SUITETOC_"

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 SUITETOC_；集合之外的键忽略。列表值以逗号分隔。
// 支持：NAME, TITLE, SPEC_ROOT, SECTIONS, SPLIT_LEVEL, DUPLICATE_POLICY, ROOTS, UNREVIEWED,
// DIST, TEMPLATE_DIRS, FAIL_ON_ERRORS, METRICS_FILE, LOG_LEVEL, COMPONENTS_*, OPTIONS_*_JSON。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	// 默认：-1 表示未设置，以便 Merge 能区分“未覆盖”和“显式设置为 0”。
	over.SplitLevel = -1
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		switch key {
		case "NAME":
			over.Name = val
		case "TITLE":
			over.Title = val
		case "SPEC_ROOT":
			over.SpecRoot = val
		case "SECTIONS":
			over.Sections = val
		case "SPLIT_LEVEL":
			v, err := atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("%sSPLIT_LEVEL: %w", EnvPrefix, err)
			}
			over.SplitLevel = v
		case "DUPLICATE_POLICY":
			over.DuplicatePolicy = val
		case "ROOTS":
			over.Roots = splitComma(val)
		case "UNREVIEWED":
			over.Unreviewed = splitComma(val)
		case "DIST":
			over.Dist = val
		case "TEMPLATE_DIRS":
			over.TemplateDirs = splitComma(val)
		case "FAIL_ON_ERRORS":
			b, err := parseBool(val)
			if err != nil {
				return Config{}, fmt.Errorf("%sFAIL_ON_ERRORS: %w", EnvPrefix, err)
			}
			over.FailOnErrors = &b
		case "METRICS_FILE":
			over.MetricsFile = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "COMPONENTS_SOURCE":
			over.Components.Source = val
		case "COMPONENTS_EXTRACTOR":
			over.Components.Extractor = val
		case "COMPONENTS_RENDERER":
			over.Components.Renderer = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_SOURCE_JSON":
			over.Options.Source = json.RawMessage(val)
		case "OPTIONS_EXTRACTOR_JSON":
			over.Options.Extractor = json.RawMessage(val)
		case "OPTIONS_RENDERER_JSON":
			over.Options.Renderer = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		}
	}
	return over, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneFormats(in []contract.Format) []contract.Format {
	out := make([]contract.Format, len(in))
	for i, f := range in {
		out[i] = f
		if f.ExtMap != nil {
			out[i].ExtMap = make(map[string]string, len(f.ExtMap))
			for k, v := range f.ExtMap {
				out[i].ExtMap[k] = v
			}
		}
	}
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
