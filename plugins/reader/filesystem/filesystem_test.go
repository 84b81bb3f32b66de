package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitetoc/pkg/contract"
)

type pathExtractor struct{ seen []string }

func (e *pathExtractor) Extract(_ context.Context, p string) contract.MetadataResult {
	e.seen = append(e.seen, p)
	return contract.Ok(contract.TestMetadata{Title: filepath.Base(p)})
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func testNames(t *testing.T, g contract.Group) []string {
	t.Helper()
	tests, err := g.Tests(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(tests))
	for _, tt := range tests {
		out = append(out, tt.Name())
	}
	return out
}

func groupNames(gs []contract.Group) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, string(g.Name()))
	}
	return out
}

func TestNewRequiresExtractor(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(&Options{Include: []string{"[a"}}, &pathExtractor{})
	require.Error(t, err)
}

func TestGroupsFromApprovedRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "zeta", "b.xht"), "x")
	writeFile(t, filepath.Join(root, "zeta", "a.xht"), "x")
	writeFile(t, filepath.Join(root, "zeta", "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "alpha", "c.xht"), "x")
	writeFile(t, filepath.Join(root, "support", "helper.xht"), "x")
	writeFile(t, filepath.Join(root, "README"), "x")

	src, err := New(nil, &pathExtractor{})
	require.NoError(t, err)
	gs, err := src.Groups(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, groupNames(gs))
	assert.Equal(t, []string{"a.xht", "b.xht"}, testNames(t, gs[1]))

	// 子目录不递归
	writeFile(t, filepath.Join(root, "zeta", "nested", "d.xht"), "x")
	assert.Equal(t, []string{"a.xht", "b.xht"}, testNames(t, gs[1]))
}

func TestExcludeDirNamesCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Support", "a.xht"), "x")
	writeFile(t, filepath.Join(root, "tmp-1", "a.xht"), "x")
	writeFile(t, filepath.Join(root, "keep", "a.xht"), "x")

	src, err := New(&Options{ExcludeDirNames: []string{"support", "tmp-*"}}, &pathExtractor{})
	require.NoError(t, err)
	gs, err := src.Groups(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, groupNames(gs))
}

func TestReftestListAddsTestSide(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "g", "a.xht"), "x")
	writeFile(t, filepath.Join(root, "g", "reftest", "reftest.list"),
		"# comment\n== r1.xht r1-ref.xht\n!= r2.xht r2-ref.xht # trailing\n\ninclude other.list\n== r1.xht again-ref.xht\n")

	src, err := New(nil, &pathExtractor{})
	require.NoError(t, err)
	gs, err := src.Groups(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, gs, 1)
	assert.Equal(t, []string{"a.xht", "reftest/r1.xht", "reftest/r2.xht"}, testNames(t, gs[0]))
}

func TestUnreviewedPaths(t *testing.T) {
	base := t.TempDir()
	const specRoot = "http://www.w3.org/TR/CSS21/"
	writeFile(t, filepath.Join(base, "contrib", "in.xht"), `<link rel="help" href="`+specRoot+`box.html"/>`)
	writeFile(t, filepath.Join(base, "contrib", "out.xht"), `<link rel="help" href="http://example.org/"/>`)
	writeFile(t, filepath.Join(base, "refs", "reftest.list"), "== t.xht t-ref.xht\n")

	src, err := New(&Options{SpecRoot: specRoot}, &pathExtractor{})
	require.NoError(t, err)
	gs, err := src.Groups(context.Background(), nil, []string{
		filepath.Join(base, "contrib"),
		filepath.Join(base, "refs", "reftest.list"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"contrib", "refs"}, groupNames(gs))
	assert.Equal(t, []string{"in.xht"}, testNames(t, gs[0]))
	assert.Equal(t, []string{"t.xht"}, testNames(t, gs[1]))
}

func TestUnreviewedMissingPath(t *testing.T) {
	src, err := New(nil, &pathExtractor{})
	require.NoError(t, err)
	_, err = src.Groups(context.Background(), nil, []string{filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}

func TestMetadataDelegatesToExtractor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "g", "a.xht"), "x")
	ex := &pathExtractor{}
	src, err := New(nil, ex)
	require.NoError(t, err)
	gs, err := src.Groups(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	tests, err := gs[0].Tests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 1)
	res := tests[0].Metadata(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, "a.xht", res.Metadata().Title)
	assert.Equal(t, []string{filepath.Join(root, "g", "a.xht")}, ex.seen)
}

func TestGroupsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src, err := New(nil, &pathExtractor{})
	require.NoError(t, err)
	_, err = src.Groups(ctx, []string{t.TempDir()}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
