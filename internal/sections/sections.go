// Package sections 加载规范目录数据（toc data），构造 URI→Section 注册表。
//
// 数据文件每行一条记录，四个制表符分隔字段：
//
//	sortKey<TAB>uri<TAB>number<TAB>title
//
// 不支持字段内转义。
package sections

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"suitetoc/pkg/contract"
)

// DuplicatePolicy 决定同一 URI 重复出现时的处理方式。
type DuplicatePolicy string

const (
	// LastWins: 后出现者静默覆盖先出现者。
	LastWins DuplicatePolicy = "last-wins"
	// Reject: 重复即视为格式错误。
	Reject DuplicatePolicy = "error"
)

// Options 为加载选项。
type Options struct {
	Duplicates DuplicatePolicy
}

// Registry: 小节注册表。加载完成后只在索引阶段追加测试。
type Registry struct {
	byURI map[contract.SectionURI]*contract.Section
}

// Load 从文件加载注册表。
func Load(path string, opts Options) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reg, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Parse 从字节流解析注册表。空行跳过；行尾 CR/LF 不进入 title。
func Parse(r io.Reader, opts Options) (*Registry, error) {
	reg := &Registry{byURI: map[contract.SectionURI]*contract.Section{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: %w: want 4 tab-separated fields, got %d", line, contract.ErrFormat, len(fields))
		}
		uri := contract.SectionURI(fields[1])
		if _, dup := reg.byURI[uri]; dup && opts.Duplicates == Reject {
			return nil, fmt.Errorf("line %d: %w: %s", line, contract.ErrDuplicateSection, uri)
		}
		reg.byURI[uri] = contract.NewSection(uri, fields[3], fields[0], fields[2])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Get 按 URI 查找小节。
func (r *Registry) Get(uri contract.SectionURI) (*contract.Section, bool) {
	s, ok := r.byURI[uri]
	return s, ok
}

// Len 返回小节数。
func (r *Registry) Len() int { return len(r.byURI) }

// Sorted 返回按 SortKey 字节序升序排列的小节；SortKey 相同按 URI。
func (r *Registry) Sorted() []*contract.Section {
	out := make([]*contract.Section, 0, len(r.byURI))
	for _, s := range r.byURI {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].URI < out[j].URI
	})
	return out
}
