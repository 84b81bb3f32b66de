// Package indexer 汇总各分组测试的元数据，按规范小节归档，并渲染目录页。
//
// 索引器单线程、单遍运行：IndexGroup 逐组追加，Write/WriteOverview 只读状态。
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"suitetoc/internal/diag"
	"suitetoc/internal/sections"
	"suitetoc/pkg/contract"
)

const (
	chapterTOCTemplate = "chapter-toc.tmpl"
	testTOCTemplate    = "test-toc.tmpl"
)

// Suite 描述被索引的测试套件。
type Suite struct {
	Name     string
	Title    string
	SpecRoot string
}

// Page: 额外输出页（模板名 + 输出文件名）。
type Page struct {
	Template string
	Output   string
}

// Options 为索引器配置。
type Options struct {
	// SplitLevel: 分章所用的 SortKey 前缀长度；0 表示不分章。
	SplitLevel int
	Suite      Suite
	// ExtraData: 合并到每个页面数据中的附加键；内置键优先。
	ExtraData map[string]any
	// Overview: 可选的套件概览页；Template 为空时不输出。
	Overview Page
}

// Stats 为索引统计。
type Stats struct {
	Groups   int
	Tests    int
	Indexed  int
	Unplaced int
	Failed   int
	Pages    int
}

// Indexer 持有注册表与累积状态；非并发安全。
type Indexer struct {
	reg      *sections.Registry
	opts     Options
	renderer contract.Renderer
	writer   contract.Writer
	log      *diag.Logger

	errs         []contract.ErrorRecord
	contributors map[string]struct{}
	stats        Stats
}

// New 创建索引器。logger 为 nil 时不记录日志。
func New(reg *sections.Registry, opts Options, renderer contract.Renderer, writer contract.Writer, logger *diag.Logger) (*Indexer, error) {
	if reg == nil || renderer == nil || writer == nil {
		return nil, fmt.Errorf("%w: indexer requires registry, renderer and writer", contract.ErrInvalidInput)
	}
	if opts.SplitLevel < 0 {
		return nil, fmt.Errorf("%w: split level %d", contract.ErrInvalidInput, opts.SplitLevel)
	}
	if logger == nil {
		logger = diag.Nop()
	}
	return &Indexer{
		reg:          reg,
		opts:         opts,
		renderer:     renderer,
		writer:       writer,
		log:          logger,
		contributors: map[string]struct{}{},
	}, nil
}

// IndexGroup 按分组给出的顺序抽取每个测试的元数据并归档到所链接的小节。
//
// 抽取失败只记录错误；未登记的链接静默跳过。仅分组枚举失败或 ctx 取消时返回 error。
func (x *Indexer) IndexGroup(ctx context.Context, g contract.Group) error {
	group := g.Name()
	tests, err := g.Tests(ctx)
	if err != nil {
		return fmt.Errorf("group %s: %w", group, err)
	}
	x.stats.Groups++
	for _, t := range tests {
		if err := ctx.Err(); err != nil {
			return err
		}
		x.stats.Tests++
		file := contract.TestFile(group, t.Name())
		res := t.Metadata(ctx)
		if !res.OK() {
			rec := res.Failure()
			x.errs = append(x.errs, rec)
			x.stats.Failed++
			x.log.Warn("index", rec.Message, file, string(group))
			diag.IncTests("failed", 1)
			continue
		}
		m := res.Metadata().Clone()
		m.File = file
		placed := false
		for _, uri := range m.Links {
			if s, ok := x.reg.Get(uri); ok {
				s.AddTest(group, m)
				placed = true
			}
		}
		for _, c := range m.Credits {
			if c = norm.NFC.String(strings.TrimSpace(c)); c != "" {
				x.contributors[c] = struct{}{}
			}
		}
		if placed {
			x.stats.Indexed++
			diag.IncTests("indexed", 1)
		} else {
			x.stats.Unplaced++
			diag.IncTests("unplaced", 1)
			x.log.DebugStart("index", "no registered section", file, string(group), nil)
		}
	}
	return nil
}

// Errors 返回按出现顺序累积的错误记录（副本）。
func (x *Indexer) Errors() []contract.ErrorRecord {
	return append([]contract.ErrorRecord(nil), x.errs...)
}

// Contributors 返回去重后的贡献者，按 Unicode 排序规则排序。
func (x *Indexer) Contributors() []string {
	out := make([]string, 0, len(x.contributors))
	for c := range x.contributors {
		out = append(out, c)
	}
	collate.New(language.Und).SortStrings(out)
	return out
}

// Stats 返回当前统计。
func (x *Indexer) Stats() Stats { return x.stats }

// Write 按格式渲染目录页。
//
// SplitLevel > 0：toc<ext> 为章节目录，每章另出 chapter-<sortKey><ext>；
// SplitLevel == 0：toc<ext> 直接列出全部小节。
func (x *Indexer) Write(ctx context.Context, f contract.Format) error {
	t0 := time.Now()
	sorted := x.reg.Sorted()
	pages := 0
	if x.opts.SplitLevel > 0 {
		chapters := Chapters(sorted, x.opts.SplitLevel)
		data := x.formatData(f)
		data["chapters"] = chapters
		if err := x.page(ctx, chapterTOCTemplate, data, f.Dest("toc"+f.IndexExt)); err != nil {
			return err
		}
		pages++
		for _, ch := range chapters {
			data := x.formatData(f)
			data["chapter"] = ch
			data["chaptertitle"] = ch.Title
			data["testcount"] = ch.TestCount
			data["sections"] = ch.Sections
			if err := x.page(ctx, testTOCTemplate, data, f.Dest("chapter-"+ch.SortKey+f.IndexExt)); err != nil {
				return err
			}
			pages++
		}
	} else {
		data := x.formatData(f)
		data["chapters"] = sorted
		data["sections"] = sorted
		if err := x.page(ctx, testTOCTemplate, data, f.Dest("toc"+f.IndexExt)); err != nil {
			return err
		}
		pages++
	}
	x.log.InfoFinish("write", "format "+f.Name, t0, int64(pages))
	diag.ObserveDuration("write", "format", time.Since(t0).Milliseconds())
	return nil
}

// baseData 每次新建，页面之间互不影响。
func (x *Indexer) baseData() map[string]any {
	data := make(map[string]any, len(x.opts.ExtraData)+8)
	for k, v := range x.opts.ExtraData {
		data[k] = v
	}
	data["suitetitle"] = x.opts.Suite.Title
	data["suitename"] = x.opts.Suite.Name
	data["specroot"] = x.opts.Suite.SpecRoot
	return data
}

func (x *Indexer) formatData(f contract.Format) map[string]any {
	data := x.baseData()
	extmap := make(map[string]string, len(f.ExtMap))
	for k, v := range f.ExtMap {
		extmap[k] = v
	}
	data["indexext"] = f.IndexExt
	data["isXML"] = f.IsXML()
	data["formatdir"] = f.DirName
	data["extmap"] = extmap
	return data
}

func (x *Indexer) page(ctx context.Context, tmpl string, data map[string]any, id contract.ArtifactID) error {
	out, err := x.renderer.Render(ctx, tmpl, data)
	if err != nil {
		diag.IncOp("write", "render", "error")
		return fmt.Errorf("render %s for %s: %w", tmpl, id, err)
	}
	if err := x.writer.Write(ctx, id, strings.NewReader(out)); err != nil {
		diag.IncOp("write", "page", "error")
		return fmt.Errorf("write %s: %w", id, err)
	}
	x.stats.Pages++
	diag.IncOp("write", "page", "success")
	if term := diag.GetTerminal(); term != nil {
		term.PageWritten(string(id))
	}
	return nil
}
