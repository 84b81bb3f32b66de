package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"suitetoc/internal/indexer"
	"suitetoc/pkg/contract"
	gotmpl "suitetoc/plugins/renderer/gotmpl"
)

// discardWriter 丢弃所有输出，避免磁盘开销。
type discardWriter struct{}

func (discardWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

type memTest struct {
	name string
	meta contract.TestMetadata
}

func (t memTest) Name() string                                      { return t.name }
func (t memTest) Metadata(context.Context) contract.MetadataResult { return contract.Ok(t.meta) }

type memSource struct{ groups []contract.Group }

func (s memSource) Groups(context.Context, []string, []string) ([]contract.Group, error) {
	return s.groups, nil
}

// BenchmarkRun 测试内存来源下完整构建（索引 + 渲染）的性能。
func BenchmarkRun(b *testing.B) {
	for _, n := range []int{100, 2000} {
		b.Run(fmt.Sprintf("tests=%d", n), func(b *testing.B) {
			dir := b.TempDir()
			var toc strings.Builder
			var uris []contract.SectionURI
			for c := 1; c <= 20; c++ {
				for s := 0; s <= 10; s++ {
					uri := contract.SectionURI(fmt.Sprintf("http://spec/ch%02d.html#s%d", c, s))
					uris = append(uris, uri)
					fmt.Fprintf(&toc, "%02d%02d\t%s\t%d.%d\tSection\n", c, s, uri, c, s)
				}
			}
			sections := filepath.Join(dir, "sections.dat")
			if err := os.WriteFile(sections, []byte(toc.String()), 0o644); err != nil {
				b.Fatal(err)
			}
			tests := make([]contract.Test, 0, n)
			for i := 0; i < n; i++ {
				tests = append(tests, memTest{
					name: fmt.Sprintf("t%05d.xht", i),
					meta: contract.TestMetadata{Links: []contract.SectionURI{uris[i%len(uris)]}, Credits: []string{"a"}, Title: "t"},
				})
			}
			comp := Components{
				Source:   memSource{groups: []contract.Group{listedGroup{name: "g", tests: tests}}},
				Renderer: gotmpl.New(nil),
				Writer:   discardWriter{},
			}
			set := Settings{
				Sections:   sections,
				SplitLevel: 2,
				Suite:      indexer.Suite{Title: "Bench"},
				Formats:    []contract.Format{{Name: "xhtml1", IndexExt: ".xht", DirName: "xhtml1"}},
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Run(context.Background(), comp, set, nil); err != nil {
					b.Fatalf("运行失败: %v", err)
				}
			}
		})
	}
}
