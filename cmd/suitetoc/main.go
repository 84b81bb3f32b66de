package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "suitetoc/internal/config"
	"suitetoc/internal/build"
	"suitetoc/internal/diag"
)

var buildRun = build.Run

// 退出码：0 成功；1 构建失败；2 存在单测试错误且 fail_on_errors；3 配置/参数错误。
const (
	exitOK       = 0
	exitBuild    = 1
	exitTestErrs = 2
	exitConfig   = 3
)

// exitError 携带退出码穿过 cobra 的错误返回。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type cliFlags struct {
	config     string
	dist       string
	splitLevel int
	logLevel   string
	initDir    string
	status     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	if args == nil {
		// nil 时 cobra 会回退到 os.Args
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// 旗标解析等 cobra 层错误
	fmt.Fprintf(stderr, "参数错误: %v\n", err)
	return exitConfig
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fl cliFlags
	cmd := &cobra.Command{
		Use:   "suitetoc [unreviewed paths...]",
		Short: "Build table-of-contents pages for a conformance test suite",
		Long: `suitetoc indexes test files by the specification sections they link to
and renders chapter and section TOC pages for every configured output format.

Positional arguments are unreviewed test locations: a directory (only files
mentioning the spec root are included) or a reftest.list file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := execute(cmd.Context(), fl, args, stdout, stderr); code != exitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	f := cmd.Flags()
	f.StringVar(&fl.config, "config", "", "配置文件路径（JSON/YAML）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	f.StringVar(&fl.dist, "dist", "", "输出根目录（覆盖配置）")
	// split-level 允许显式设置为 0；默认 -1 表示“未覆盖”。
	f.IntVar(&fl.splitLevel, "split-level", -1, "分章前缀长度（覆盖配置；0 表示单页目录）")
	f.StringVar(&fl.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	f.StringVar(&fl.initDir, "init-config", "", "在指定目录生成默认配置 config.json 和 .env 模板（不覆盖已有文件）；不带值时为当前目录")
	f.Lookup("init-config").NoOptDefVal = "."
	f.BoolVar(&fl.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	return cmd
}

func execute(ctx context.Context, fl cliFlags, unreviewed []string, stdout, stderr io.Writer) int {
	start := time.Now()
	corrID := uuid.NewString()
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	logLevel := "info"
	logger := diag.NewLogger(corrID, logLevel)
	defer func() { logger.Sync() }()

	// --init-config: 生成模板并退出
	if dir := strings.TrimSpace(fl.initDir); dir != "" {
		if err := initConfig(dir); err != nil {
			fmt.Fprintf(stderr, "生成默认配置失败: %v\n", err)
			logger.Error("cli", string(diag.Classify(err)), "init config failed", &start)
			return exitConfig
		}
		return exitOK
	}

	cfg, err := loadConfig(fl, unreviewed)
	if err != nil {
		fmt.Fprintf(stderr, "配置解析失败: %v\n", err)
		logger.Error("cli", string(diag.Classify(err)), "config failed", &start)
		return exitConfig
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "配置校验失败: %v\n", err)
		// 打印有效配置，便于诊断
		dumpConfig(stderr, cfg)
		logger.Error("cli", string(diag.Classify(err)), "config invalid", &start)
		return exitConfig
	}

	// 使用最终配置中的日志级别重建 logger
	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		logLevel = lv
	}
	logger.Sync()
	logger = diag.NewLogger(corrID, logLevel)

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("cli", string(diag.Classify(err)), "assemble failed", &start)
		return exitConfig
	}
	set.ErrStream = stderr

	logger.DebugStart("config", "effective", "", "", map[string]string{
		"sections":    cfg.Sections,
		"roots":       strings.Join(cfg.Roots, ","),
		"unreviewed":  fmt.Sprintf("%d", len(cfg.Unreviewed)),
		"dist":        cfg.Dist,
		"split_level": fmt.Sprintf("%d", cfg.SplitLevel),
		"formats":     fmt.Sprintf("%d", len(cfg.Formats)),
		"source":      cfg.Components.Source,
		"extractor":   cfg.Components.Extractor,
		"renderer":    cfg.Components.Renderer,
		"writer":      cfg.Components.Writer,
	})

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(stderr, fl.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	fmt.Fprintf(stdout, "Building %s from repository %s into %s\n", cfg.Title, absPath("."), absPath(cfg.Dist))

	t := logger.Start("build", "run")
	sum, err := buildRun(ctx, comp, set, logger)
	if err != nil {
		code := string(diag.Classify(err))
		logger.Error("build", code, "first error", &start)
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "构建失败: %v\n", err)
		}
		return exitBuild
	}
	t.Finish("run", int64(sum.Stats.Tests))
	diag.ObserveDuration("build", "finish", time.Since(start).Milliseconds())
	if cfg.FailOnErrorsEnabled() && len(sum.Errors) > 0 {
		return exitTestErrs
	}
	return exitOK
}

// loadConfig 按 Defaults → 配置文件 → ENV → CLI 合并。
func loadConfig(fl cliFlags, unreviewed []string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := fl.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		for _, p := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	if raw := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); raw != "" {
		base, err := cfgpkg.LoadJSON("", []byte(raw))
		if err != nil {
			return cfg, fmt.Errorf("%sCONFIG_JSON: %w", cfgpkg.EnvPrefix, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	overCLI := cfgpkg.Config{
		Dist:       strings.TrimSpace(fl.dist),
		SplitLevel: fl.splitLevel,
		Logging:    cfgpkg.Logging{Level: fl.logLevel},
		Unreviewed: unreviewed,
	}
	return cfgpkg.Merge(cfg, overCLI), nil
}

func initConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeConfig(filepath.Join(dir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
		return err
	}
	// .env 模板失败不影响主配置
	_ = writeDotEnv(filepath.Join(dir, ".env"))
	return nil
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

func dumpConfig(w io.Writer, c cfgpkg.Config) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(w, "有效配置:\n%s\n", b)
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(b, '\n'))
	return err
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export "；
// - 仅按首个 '=' 分割；成对的单/双引号去除；
// - 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if len(val) >= 2 && (val[0] == '\'' || val[0] == '"') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	keys := []string{
		"CONFIG_FILE", "CONFIG_JSON",
		"", "TITLE", "SPEC_ROOT", "SECTIONS", "SPLIT_LEVEL", "DUPLICATE_POLICY",
		"ROOTS", "UNREVIEWED", "DIST", "TEMPLATE_DIRS", "FAIL_ON_ERRORS", "METRICS_FILE", "LOG_LEVEL",
		"", "COMPONENTS_SOURCE", "COMPONENTS_EXTRACTOR", "COMPONENTS_RENDERER", "COMPONENTS_WRITER",
		"", "OPTIONS_SOURCE_JSON", "OPTIONS_EXTRACTOR_JSON", "OPTIONS_RENDERER_JSON", "OPTIONS_WRITER_JSON",
	}
	var b strings.Builder
	b.WriteString("# suitetoc .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件；空值表示未设置。\n\n")
	for _, k := range keys {
		if k == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}
