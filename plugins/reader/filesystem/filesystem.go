// Package filesystem 实现基于目录树的测试来源（contract.Source）。
//
// 已审核根目录下每个直接子目录为一个分组（support 等目录除外），组内测试为
// 匹配 include 模式的常规文件，外加 reftest 清单中列出的测试。未审核路径既可以是
// reftest.list 文件，也可以是目录；目录中只有提及规范根 URL 的文件才会加入。
package filesystem

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"suitetoc/pkg/contract"
)

// Options 为 FileSystem Source 的可选配置。
type Options struct {
	// Include: 测试文件基名匹配模式（doublestar）。默认 ["*.xht"]。
	Include []string `json:"include" yaml:"include"`
	// ExcludeDirNames: 不作为分组的目录名模式（doublestar，大小写不敏感）。默认 ["support"]。
	ExcludeDirNames []string `json:"exclude_dir_names" yaml:"exclude_dir_names"`
	// ReftestList: 组目录内 reftest 清单的相对路径。默认 "reftest/reftest.list"。
	ReftestList string `json:"reftest_list" yaml:"reftest_list"`
	// SpecRoot: 未审核目录的过滤串；文件内容须包含该串。为空时不过滤。
	SpecRoot string `json:"spec_root" yaml:"spec_root"`
}

const reftestListName = "reftest.list"

// FileSystem 按目录树列举分组；不起并发。
type FileSystem struct {
	include    []string
	excludeDir []string
	reftest    string
	specRoot   string
	extractor  contract.Extractor
}

// New 创建 FileSystem Source；extractor 用于测试句柄按需抽取元数据。
func New(opts *Options, extractor contract.Extractor) (*FileSystem, error) {
	if extractor == nil {
		return nil, errors.New("filesystem source: extractor is nil")
	}
	fs := &FileSystem{
		include:    []string{"*.xht"},
		excludeDir: []string{"support"},
		reftest:    path.Join("reftest", reftestListName),
		extractor:  extractor,
	}
	if opts != nil {
		if len(opts.Include) > 0 {
			fs.include = opts.Include
		}
		if opts.ExcludeDirNames != nil {
			fs.excludeDir = opts.ExcludeDirNames
		}
		if strings.TrimSpace(opts.ReftestList) != "" {
			fs.reftest = contract.NormalizePath(opts.ReftestList)
		}
		fs.specRoot = opts.SpecRoot
	}
	for _, p := range append(append([]string{}, fs.include...), fs.excludeDir...) {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.New("filesystem source: invalid pattern " + p)
		}
	}
	return fs, nil
}

var _ contract.Source = (*FileSystem)(nil)

// Groups 列举分组：先已审核根（按根顺序、组名字典序），再未审核路径（按参数顺序）。
// 组内测试在 Tests 调用时才扫描。
func (r *FileSystem) Groups(ctx context.Context, roots []string, unreviewed []string) ([]contract.Group, error) {
	var out []contract.Group
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if !e.IsDir() || r.excluded(e.Name()) {
				continue
			}
			out = append(out, &dirGroup{
				src:     r,
				name:    contract.GroupName(e.Name()),
				dir:     filepath.Join(root, e.Name()),
				byExt:   true,
				reftest: r.reftest,
			})
		}
	}
	for _, p := range unreviewed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if filepath.Base(p) == reftestListName {
			dir := filepath.Dir(p)
			out = append(out, &dirGroup{src: r, name: contract.GroupName(filepath.Base(dir)), dir: dir, reftest: reftestListName})
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, errors.New("unreviewed path is neither a directory nor a reftest.list: " + p)
		}
		out = append(out, &dirGroup{src: r, name: contract.GroupName(filepath.Base(filepath.Clean(p))), dir: p, byExt: true, grep: r.specRoot})
	}
	return out, nil
}

func (r *FileSystem) excluded(name string) bool {
	for _, p := range r.excludeDir {
		if ok, _ := doublestar.Match(strings.ToLower(p), strings.ToLower(name)); ok {
			return true
		}
	}
	return false
}

func (r *FileSystem) included(name string) bool {
	for _, p := range r.include {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// dirGroup: 一个目录对应的分组。
type dirGroup struct {
	src     *FileSystem
	name    contract.GroupName
	dir     string
	byExt   bool   // 收录目录内匹配 include 的文件
	reftest string // 组目录内 reftest 清单相对路径；为空不读
	grep    string // 非空时仅收录内容包含该串的文件
}

func (g *dirGroup) Name() contract.GroupName { return g.name }

// Tests 每次调用重新扫描目录，返回按名称排序且去重的测试序列。
func (g *dirGroup) Tests(ctx context.Context) ([]contract.Test, error) {
	seen := map[string]struct{}{}
	var names []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if g.byExt {
		files, err := g.listFiles(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	if g.reftest != "" {
		refs, err := g.readReftests()
		if err != nil {
			return nil, err
		}
		for _, f := range refs {
			add(f)
		}
	}
	sort.Strings(names)
	out := make([]contract.Test, 0, len(names))
	for _, n := range names {
		out = append(out, &fileTest{name: n, path: filepath.Join(g.dir, filepath.FromSlash(n)), extractor: g.src.extractor})
	}
	return out, nil
}

// listFiles 列出目录内（不递归）匹配的常规文件；指向常规文件的符号链接允许。
func (g *dirGroup) listFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !g.src.included(e.Name()) {
			continue
		}
		p := filepath.Join(g.dir, e.Name())
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if g.grep != "" {
			ok, err := fileContains(p, g.grep)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// readReftests 解析 reftest 清单：每行 "== test ref" 或 "!= test ref"，# 起注释。
// 仅测试一侧计入分组；路径相对清单所在目录。清单不存在时返回空。
func (g *dirGroup) readReftests() ([]string, error) {
	listPath := filepath.Join(g.dir, filepath.FromSlash(g.reftest))
	f, err := os.Open(listPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	base := path.Dir(contract.NormalizePath(g.reftest))
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || (fields[0] != "==" && fields[0] != "!=") {
			continue
		}
		out = append(out, contract.NormalizePath(path.Join(base, fields[1])))
	}
	return out, sc.Err()
}

func fileContains(p, needle string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if strings.Contains(sc.Text(), needle) {
			return true, nil
		}
	}
	return false, sc.Err()
}

// fileTest: 单文件测试句柄，元数据按需抽取。
type fileTest struct {
	name      string
	path      string
	extractor contract.Extractor
}

func (t *fileTest) Name() string { return t.name }

func (t *fileTest) Metadata(ctx context.Context) contract.MetadataResult {
	return t.extractor.Extract(ctx, t.path)
}
