// Package gotmpl 以 text/template + sprig 函数集实现 contract.Renderer。
//
// 模板按有序搜索路径解析：配置目录在前，内置模板在后，先命中者优先。
// 输出为 (X)HTML 文本，转义由模板显式调用 html 完成。
package gotmpl

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"suitetoc/pkg/contract"
)

//go:embed templates/*.tmpl
var builtin embed.FS

// maxIncludeDepth 限制 include 嵌套深度，避免模板互相包含导致无限递归。
const maxIncludeDepth = 8

// Options 为渲染器配置。
type Options struct {
	// SearchPath: 模板目录，按顺序查找。
	SearchPath []string `json:"search_path" yaml:"search_path"`
	// NoBuiltin: 不回退到内置模板。
	NoBuiltin bool `json:"no_builtin" yaml:"no_builtin"`
}

// Renderer 非并发安全：解析缓存与 include 深度均为实例状态。
type Renderer struct {
	dirs      []string
	noBuiltin bool
	cache     map[string]*template.Template
	depth     int
}

func New(opts *Options) *Renderer {
	r := &Renderer{cache: map[string]*template.Template{}}
	if opts != nil {
		r.dirs = append([]string(nil), opts.SearchPath...)
		r.noBuiltin = opts.NoBuiltin
	}
	return r
}

var _ contract.Renderer = (*Renderer)(nil)

// Render 解析（或取缓存）名为 name 的模板并以 data 执行。
func (r *Renderer) Render(ctx context.Context, name string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if t, ok := r.cache[name]; ok {
		return t, nil
	}
	if name == "" || strings.Contains(name, "..") || path.IsAbs(name) || filepath.IsAbs(name) {
		return nil, fmt.Errorf("%w: template name %q", contract.ErrInvalidInput, name)
	}
	src, origin, err := r.source(name)
	if err != nil {
		return nil, err
	}
	t, err := template.New(name).Funcs(r.funcMap()).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s (%s): %w", name, origin, err)
	}
	r.cache[name] = t
	return t, nil
}

// source 按搜索路径读取模板源文本，并返回命中位置。
func (r *Renderer) source(name string) ([]byte, string, error) {
	for _, dir := range r.dirs {
		p := filepath.Join(dir, filepath.FromSlash(name))
		b, err := os.ReadFile(p)
		if err == nil {
			return b, p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
	}
	if !r.noBuiltin {
		b, err := builtin.ReadFile("templates/" + name)
		if err == nil {
			return b, "builtin", nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s (search path: %s)", contract.ErrTemplateNotFound, name, strings.Join(r.searchDesc(), ", "))
}

func (r *Renderer) searchDesc() []string {
	out := append([]string(nil), r.dirs...)
	if !r.noBuiltin {
		out = append(out, "builtin")
	}
	return out
}

func (r *Renderer) funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()

	extra := map[string]any{
		"include": r.include,
		"swapext": swapExt,
	}
	for name, fn := range extra {
		fm[name] = fn
	}
	return fm
}

// include 以同一搜索路径渲染另一模板并返回文本。
func (r *Renderer) include(name string, data any) (string, error) {
	if r.depth >= maxIncludeDepth {
		return "", fmt.Errorf("include %s: nesting deeper than %d", name, maxIncludeDepth)
	}
	t, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	r.depth++
	defer func() { r.depth-- }()
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// swapExt 按扩展名映射改写文件路径的扩展名；无映射时原样返回。
func swapExt(extmap map[string]string, file string) string {
	ext := path.Ext(file)
	if to, ok := extmap[ext]; ok {
		return strings.TrimSuffix(file, ext) + to
	}
	return file
}
