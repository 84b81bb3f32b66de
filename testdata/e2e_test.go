package testdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitetoc/internal/build"
	cfgpkg "suitetoc/internal/config"
)

const specRoot = "http://www.w3.org/TR/CSS21/"

func baseConfig(outDir string) cfgpkg.Config {
	cfg := cfgpkg.Merge(cfgpkg.Defaults(), cfgpkg.DefaultTemplateConfig())
	cfg.Sections = filepath.Join("suite", "data", "sections.dat")
	cfg.Roots = []string{filepath.Join("suite", "approved")}
	cfg.Unreviewed = []string{filepath.Join("suite", "unreviewed", "contrib")}
	cfg.TemplateDirs = nil
	cfg.Dist = outDir
	cfg.Logging.Level = "error"
	cfg.Options.Writer = json.RawMessage(`{"atomic":false}`)
	return cfg
}

func runBuild(t *testing.T, cfg cfgpkg.Config) (build.Summary, string) {
	t.Helper()
	comp, set, err := cfgpkg.Assemble(cfg)
	require.NoError(t, err)
	var errs bytes.Buffer
	set.ErrStream = &errs
	sum, err := build.Run(context.Background(), comp, set, nil)
	require.NoError(t, err)
	return sum, errs.String()
}

func readAll(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	require.NoError(t, err)
	return out
}

// 端到端：真实目录树 → 抽取 → 分章 → 两种格式输出。
func TestEndToEnd(t *testing.T) {
	out := t.TempDir()
	sum, errText := runBuild(t, baseConfig(out))

	assert.Equal(t, 3, sum.Stats.Groups)
	assert.Equal(t, 6, sum.Stats.Tests)
	assert.Equal(t, 5, sum.Stats.Indexed)
	assert.Equal(t, 1, sum.Stats.Failed)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0].Location, "no-help-001.xht")
	assert.Equal(t, fmt.Sprintf("Error in %s: missing help link\n", sum.Errors[0].Location), errText)

	files := readAll(t, out)
	for _, name := range []string{
		"xhtml1/toc.xht", "xhtml1/chapter-01.xht", "xhtml1/chapter-02.xht", "xhtml1/chapter-08.xht",
		"html4/toc.htm", "html4/chapter-01.htm", "html4/chapter-02.htm", "html4/chapter-08.htm",
		"index.htm",
	} {
		assert.Contains(t, files, name)
	}

	toc := files["xhtml1/toc.xht"]
	assert.True(t, strings.HasPrefix(toc, "<?xml"))
	assert.Contains(t, toc, "About the CSS 2.1 Specification")
	assert.Contains(t, toc, `href="chapter-08.xht"`)

	ch8 := files["html4/chapter-08.htm"]
	assert.Contains(t, ch8, "box-model/box-dimensions-001.htm")
	assert.Contains(t, ch8, "box-model/margin-collapse-001.htm")
	assert.Contains(t, ch8, "box-model/reftest/margin-reftest-001.htm")
	assert.NotContains(t, ch8, "helper")
	assert.Contains(t, ch8, "(3 tests)")

	ch1 := files["xhtml1/chapter-01.xht"]
	assert.Contains(t, ch1, "contrib/reading-001.xht")
	assert.NotContains(t, ch1, "other-spec-001")

	idx := files["index.htm"]
	assert.Contains(t, idx, "Contributor Ü")
	assert.Contains(t, idx, "Gérard Talbot")
	assert.Less(t, strings.Index(idx, "Contributor Ü"), strings.Index(idx, "Elika J. Etemad"))
}

// 同一输入两次构建结果逐字节一致。
func TestEndToEndDeterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	runBuild(t, baseConfig(a))
	runBuild(t, baseConfig(b))
	assert.Equal(t, readAll(t, a), readAll(t, b))
}

// 单页目录与错误报告模板。
func TestEndToEndSinglePage(t *testing.T) {
	out := t.TempDir()
	cfg := baseConfig(out)
	cfg.SplitLevel = 0
	cfg.ErrorOutput = cfgpkg.Page{Template: "errors.tmpl", Output: "errors.htm"}
	_, errText := runBuild(t, cfg)
	assert.Empty(t, errText)

	files := readAll(t, out)
	assert.Contains(t, files, "html4/toc.htm")
	assert.NotContains(t, files, "html4/chapter-08.htm")
	assert.Contains(t, files["errors.htm"], "missing help link")
	assert.Contains(t, files["html4/toc.htm"], "Collapsing margins")
}
