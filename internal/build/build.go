package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"suitetoc/internal/diag"
	"suitetoc/internal/indexer"
	"suitetoc/internal/sections"
	"suitetoc/pkg/contract"
)

// - 单线程：分组按 Source 给出的顺序逐个索引，无并发。
// - 首错终止：结构性错误（小节数据、分组枚举、渲染、写出）直接返回，不重试。
// - 单测试失败只记录，不影响退出码（由调用方按 FailOnErrors 决定）。

// Components 聚合构建所需的组件。
type Components struct {
	Source   contract.Source
	Renderer contract.Renderer
	Writer   contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// Sections: 小节数据文件路径。
	Sections   string
	Duplicates sections.DuplicatePolicy
	// Roots: 已审核测试根；Unreviewed: 未审核路径（目录或 reftest.list）。
	Roots      []string
	Unreviewed []string
	// Dist: 输出根目录（加锁对象）。空表示不加锁。
	Dist       string
	SplitLevel int
	Suite      indexer.Suite
	Formats    []contract.Format
	ExtraData  map[string]any
	Overview   indexer.Page
	// Errors: 错误报告模板；Template 为空时逐行写到 ErrStream。
	Errors    indexer.Page
	ErrStream io.Writer
	// MetricsFile: 非空时在结束后以 Prometheus 文本格式写出指标。
	MetricsFile string
}

// Summary 为构建结果摘要。
type Summary struct {
	Stats  indexer.Stats
	Errors []contract.ErrorRecord
}

// Run 执行完整构建：加锁 → 小节数据 → 分组 → 逐组索引 → 各格式目录页 → 错误/概览。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	if err := sanity(comp, set); err != nil {
		return Summary{}, fmt.Errorf("sanity: %w", err)
	}
	if logger == nil {
		logger = diag.Nop()
	}
	runStart := time.Now()
	term := diag.GetTerminal()
	if term != nil {
		term.RunStart(set.Suite.Title, set.Dist)
	}
	var sum Summary
	ok := false
	defer func() {
		if term != nil {
			term.RunFinish(ok, len(sum.Errors), time.Since(runStart))
		}
		if set.MetricsFile != "" {
			if err := diag.WriteMetrics(set.MetricsFile); err != nil {
				logger.Error("build", string(diag.Classify(err)), "write metrics failed: "+err.Error(), nil)
			}
		}
	}()

	if set.Dist != "" {
		lock, err := lockDist(set.Dist)
		if err != nil {
			return sum, fail(logger, "build", "lock", err)
		}
		defer lock.Unlock()
	}

	t := logger.Start("sections", "load")
	reg, err := sections.Load(set.Sections, sections.Options{Duplicates: set.Duplicates})
	if err != nil {
		return sum, fail(logger, "sections", "load", err)
	}
	t.Finish("load", int64(reg.Len()))
	diag.IncOp("sections", "finish", "success")

	ix, err := indexer.New(reg, indexer.Options{
		SplitLevel: set.SplitLevel,
		Suite:      set.Suite,
		ExtraData:  set.ExtraData,
		Overview:   set.Overview,
	}, comp.Renderer, comp.Writer, logger)
	if err != nil {
		return sum, fail(logger, "index", "new", err)
	}

	t = logger.Start("source", "groups")
	groups, err := comp.Source.Groups(ctx, set.Roots, set.Unreviewed)
	if err != nil {
		return sum, fail(logger, "source", "groups", err)
	}
	t.Finish("groups", int64(len(groups)))

	for _, g := range groups {
		if err := indexGroup(ctx, ix, g, logger); err != nil {
			return summarize(ix, sum), err
		}
	}

	for _, f := range set.Formats {
		if err := ctx.Err(); err != nil {
			return summarize(ix, sum), err
		}
		if err := ix.Write(ctx, f); err != nil {
			return summarize(ix, sum), fail(logger, "write", f.Name, err)
		}
	}

	sink := contract.ToStream(set.ErrStream)
	if set.Errors.Template != "" {
		sink = contract.ToTemplate(set.Errors.Template, set.Errors.Output)
	}
	if err := ix.WriteOverview(ctx, ".", sink); err != nil {
		return summarize(ix, sum), fail(logger, "write", "overview", err)
	}

	sum = summarize(ix, sum)
	logger.InfoFinish("build", "done", runStart, int64(sum.Stats.Tests))
	ok = true
	return sum, nil
}

func indexGroup(ctx context.Context, ix *indexer.Indexer, g contract.Group, logger *diag.Logger) error {
	name := string(g.Name())
	before := ix.Stats()
	start := time.Now()
	t := logger.StartWith("index", "group", "", name)
	tests, err := g.Tests(ctx)
	if err != nil {
		return fail(logger, "source", name, err)
	}
	if term := diag.GetTerminal(); term != nil {
		term.GroupStart(name, len(tests))
	}
	if err := ix.IndexGroup(ctx, listedGroup{name: g.Name(), tests: tests}); err != nil {
		return fail(logger, "index", name, err)
	}
	after := ix.Stats()
	t.Finish("group", int64(after.Tests-before.Tests))
	diag.IncOp("index", "finish", "success")
	diag.ObserveDuration("index", "group", time.Since(start).Milliseconds())
	if term := diag.GetTerminal(); term != nil {
		term.GroupFinish(after.Indexed-before.Indexed, after.Failed-before.Failed, time.Since(start))
	}
	return nil
}

// listedGroup 持有已枚举的测试，避免同一分组重复扫描。
type listedGroup struct {
	name  contract.GroupName
	tests []contract.Test
}

func (g listedGroup) Name() contract.GroupName { return g.name }

func (g listedGroup) Tests(context.Context) ([]contract.Test, error) { return g.tests, nil }

func summarize(ix *indexer.Indexer, sum Summary) Summary {
	sum.Stats = ix.Stats()
	sum.Errors = ix.Errors()
	return sum
}

// fail 记录日志与指标后返回包装后的错误。
func fail(logger *diag.Logger, comp, stage string, err error) error {
	code := diag.Classify(err)
	logger.Error(comp, string(code), stage+" failed: "+err.Error(), nil)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	return fmt.Errorf("%s %s: %w", comp, stage, err)
}

func sanity(comp Components, set Settings) error {
	if comp.Source == nil || comp.Renderer == nil || comp.Writer == nil {
		return errors.New("nil component")
	}
	if set.Sections == "" {
		return fmt.Errorf("%w: sections file not set", contract.ErrInvalidInput)
	}
	if set.SplitLevel < 0 {
		return fmt.Errorf("%w: split level %d", contract.ErrInvalidInput, set.SplitLevel)
	}
	if len(set.Formats) == 0 {
		return fmt.Errorf("%w: no output formats", contract.ErrInvalidInput)
	}
	return nil
}
