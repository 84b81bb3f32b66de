package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitetoc/internal/build"
	cfgpkg "suitetoc/internal/config"
	"suitetoc/internal/diag"
	"suitetoc/pkg/contract"
)

const specRoot = "http://spec.example/"

func write(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// setupSuite 在临时目录中构造最小测试仓库并切换工作目录。
func setupSuite(t *testing.T, withBadTest bool) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	write(t, filepath.Join(dir, "data", "sections.dat"), "01\t"+specRoot+"a.html\t1\tA\n02\t"+specRoot+"b.html\t2\tB\n")
	write(t, filepath.Join(dir, "src", "g", "t1.xht"),
		`<html><head><title>t1</title><link rel="help" href="`+specRoot+`b.html"><link rel="author" title="alice"></head></html>`)
	if withBadTest {
		write(t, filepath.Join(dir, "src", "g", "t2.xht"), `<html><head><title>t2</title></head></html>`)
	}
	cfg := map[string]any{
		"title":       "Mini Suite",
		"spec_root":   specRoot,
		"sections":    "data/sections.dat",
		"split_level": 2,
		"roots":       []string{"src"},
		"dist":        "dist",
		"logging":     map[string]string{"level": "error"},
	}
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	write(t, filepath.Join(dir, "config.json"), string(b))
	return dir
}

func TestRunInitConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	outDir := filepath.Join(dir, "out")
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--init-config=" + outDir}, &stdout, &stderr), stderr.String())
	assert.FileExists(t, filepath.Join(outDir, "config.json"))
	assert.FileExists(t, filepath.Join(outDir, ".env"))

	_, err := cfgpkg.LoadFile(filepath.Join(outDir, "config.json"))
	require.NoError(t, err)

	// 不覆盖已有文件
	require.Equal(t, exitConfig, run([]string{"--init-config=" + outDir}, &stdout, &stderr))
}

func TestRunInitConfigDefaultDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--init-config"}, &stdout, &stderr))
	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

func TestRunSuccess(t *testing.T) {
	dir := setupSuite(t, false)
	var stdout, stderr bytes.Buffer
	code := run([]string{"--status=false"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "Building Mini Suite from repository ")
	assert.FileExists(t, filepath.Join(dir, "dist", "xhtml1", "toc.xht"))
	assert.FileExists(t, filepath.Join(dir, "dist", "html4", "chapter-02.htm"))
}

func TestRunCLIOverrides(t *testing.T) {
	dir := setupSuite(t, false)
	var stdout, stderr bytes.Buffer
	code := run([]string{"--status=false", "--dist", "other", "--split-level", "0"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.FileExists(t, filepath.Join(dir, "other", "html4", "toc.htm"))
	assert.NoFileExists(t, filepath.Join(dir, "other", "html4", "chapter-01.htm"))
}

func TestRunEnvOverrides(t *testing.T) {
	dir := setupSuite(t, false)
	t.Setenv("SUITETOC_DIST", "from-env")
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--status=false"}, &stdout, &stderr), stderr.String())
	assert.DirExists(t, filepath.Join(dir, "from-env"))
}

func TestRunPerTestErrors(t *testing.T) {
	setupSuite(t, true)
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--status=false"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error in ")

	t.Setenv("SUITETOC_FAIL_ON_ERRORS", "true")
	stderr.Reset()
	require.Equal(t, exitTestErrs, run([]string{"--status=false", "--dist", "dist2"}, &stdout, &stderr))
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	write(t, filepath.Join(dir, "config.json"), `{"title":"x"}`)
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitConfig, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "配置校验失败")

	write(t, filepath.Join(dir, "bad.yaml"), "nope: 1\n")
	require.Equal(t, exitConfig, run([]string{"--config", "bad.yaml"}, &stdout, &stderr))

	require.Equal(t, exitConfig, run([]string{"--no-such-flag"}, &stdout, &stderr))
}

func TestRunBuildFailure(t *testing.T) {
	dir := setupSuite(t, false)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "sections.dat")))
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitBuild, run([]string{"--status=false"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "构建失败")
}

func TestRunUsesInjectedBuild(t *testing.T) {
	setupSuite(t, false)
	old := buildRun
	defer func() { buildRun = old }()
	var got build.Settings
	buildRun = func(ctx context.Context, comp build.Components, set build.Settings, logger *diag.Logger) (build.Summary, error) {
		got = set
		return build.Summary{Errors: []contract.ErrorRecord{{Location: "x", Message: "y"}}}, nil
	}
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--status=false", "extra/dir"}, &stdout, &stderr))
	assert.Equal(t, []string{"extra/dir"}, got.Unreviewed)
	assert.Equal(t, 2, got.SplitLevel)

	buildRun = func(context.Context, build.Components, build.Settings, *diag.Logger) (build.Summary, error) {
		return build.Summary{}, fmt.Errorf("wrapped: %w", context.Canceled)
	}
	stderr.Reset()
	require.Equal(t, exitBuild, run([]string{"--status=false"}, &stdout, &stderr))
	assert.NotContains(t, stderr.String(), "构建失败")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	write(t, p, "# c\nexport SUITETOC_TEST_A=\"quoted\"\nSUITETOC_TEST_B='single'\nSUITETOC_TEST_C=keep\nbroken\n")
	t.Setenv("SUITETOC_TEST_C", "preset")
	// 注册清理：loadDotEnv 通过 os.Setenv 写入
	t.Setenv("SUITETOC_TEST_A", "")
	require.NoError(t, os.Unsetenv("SUITETOC_TEST_A"))
	t.Setenv("SUITETOC_TEST_B", "")
	require.NoError(t, os.Unsetenv("SUITETOC_TEST_B"))

	require.NoError(t, loadDotEnv(p))
	assert.Equal(t, "quoted", os.Getenv("SUITETOC_TEST_A"))
	assert.Equal(t, "single", os.Getenv("SUITETOC_TEST_B"))
	assert.Equal(t, "preset", os.Getenv("SUITETOC_TEST_C"))
	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing")))
}

func TestExitErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	e := &exitError{code: 1, err: inner}
	assert.ErrorIs(t, e, inner)
	assert.Equal(t, "exit 3", (&exitError{code: 3}).Error())
}
