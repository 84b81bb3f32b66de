package config

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"suitetoc/internal/build"
	"suitetoc/internal/indexer"
	"suitetoc/internal/sections"
	"suitetoc/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Sections) == "" {
		return errors.New("config: sections not set")
	}
	if len(cfg.Roots) == 0 && len(cfg.Unreviewed) == 0 {
		return errors.New("config: roots and unreviewed both empty")
	}
	for _, r := range append(cloneStrings(cfg.Roots), cfg.Unreviewed...) {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: test path cannot be empty")
		}
	}
	if strings.TrimSpace(cfg.Dist) == "" {
		return errors.New("config: dist not set")
	}
	if cfg.SplitLevel < 0 {
		return errors.New("config: split_level must be >= 0")
	}
	switch sections.DuplicatePolicy(cfg.DuplicatePolicy) {
	case "", sections.LastWins, sections.Reject:
	default:
		return fmt.Errorf("config: duplicate_policy %q (want %q or %q)", cfg.DuplicatePolicy, sections.LastWins, sections.Reject)
	}
	if len(cfg.Formats) == 0 {
		return errors.New("config: formats empty")
	}
	seen := map[string]bool{}
	for _, f := range cfg.Formats {
		if f.Name == "" {
			return errors.New("config: format name empty")
		}
		if seen[f.Name] {
			return fmt.Errorf("config: format %q duplicated", f.Name)
		}
		seen[f.Name] = true
		if !strings.HasPrefix(f.IndexExt, ".") {
			return fmt.Errorf("config: format %q index_ext must start with '.'", f.Name)
		}
		if f.DirName != "" {
			d := path.Clean(strings.ReplaceAll(f.DirName, "\\", "/"))
			if path.IsAbs(d) || d == ".." || strings.HasPrefix(d, "../") {
				return fmt.Errorf("config: format %q dir escapes dist", f.Name)
			}
		}
	}
	if err := validatePage("error_output", cfg.ErrorOutput); err != nil {
		return err
	}
	if err := validatePage("overview", cfg.Overview); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q", cfg.Logging.Level)
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults().Components
	if name := effName(cfg.Components.Source, d.Source); registry.Source[name] == nil {
		return fmt.Errorf("config: source %q not registered", name)
	}
	if name := effName(cfg.Components.Extractor, d.Extractor); registry.Extractor[name] == nil {
		return fmt.Errorf("config: extractor %q not registered", name)
	}
	if name := effName(cfg.Components.Renderer, d.Renderer); registry.Renderer[name] == nil {
		return fmt.Errorf("config: renderer %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return nil
}

func validatePage(key string, p Page) error {
	if (p.Template == "") != (p.Output == "") {
		return fmt.Errorf("config: %s needs both template and output", key)
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (build.Components, build.Settings, error) {
	if err := Validate(cfg); err != nil {
		return build.Components{}, build.Settings{}, err
	}

	d := Defaults().Components
	env := registry.Env{
		Dist:         cfg.Dist,
		SpecRoot:     cfg.SpecRoot,
		TemplateDirs: cloneStrings(cfg.TemplateDirs),
	}

	ex, err := registry.Extractor[effName(cfg.Components.Extractor, d.Extractor)](cfg.Options.Extractor, env)
	if err != nil {
		return build.Components{}, build.Settings{}, fmt.Errorf("extractor options: %w", err)
	}
	src, err := registry.Source[effName(cfg.Components.Source, d.Source)](cfg.Options.Source, env, ex)
	if err != nil {
		return build.Components{}, build.Settings{}, fmt.Errorf("source options: %w", err)
	}
	r, err := registry.Renderer[effName(cfg.Components.Renderer, d.Renderer)](cfg.Options.Renderer, env)
	if err != nil {
		return build.Components{}, build.Settings{}, fmt.Errorf("renderer options: %w", err)
	}
	w, err := registry.Writer[effName(cfg.Components.Writer, d.Writer)](cfg.Options.Writer, env)
	if err != nil {
		return build.Components{}, build.Settings{}, fmt.Errorf("writer options: %w", err)
	}

	comp := build.Components{Source: src, Renderer: r, Writer: w}
	policy := sections.DuplicatePolicy(cfg.DuplicatePolicy)
	if policy == "" {
		policy = sections.LastWins
	}
	set := build.Settings{
		Sections:    cfg.Sections,
		Duplicates:  policy,
		Roots:       cloneStrings(cfg.Roots),
		Unreviewed:  cloneStrings(cfg.Unreviewed),
		Dist:        cfg.Dist,
		SplitLevel:  cfg.SplitLevel,
		Suite:       indexer.Suite{Name: cfg.Name, Title: cfg.Title, SpecRoot: cfg.SpecRoot},
		Formats:     cloneFormats(cfg.Formats),
		ExtraData:   cfg.ExtraData,
		Overview:    indexer.Page(cfg.Overview),
		Errors:      indexer.Page(cfg.ErrorOutput),
		MetricsFile: cfg.MetricsFile,
	}
	return comp, set, nil
}

// FailOnErrorsEnabled 返回生效的 fail_on_errors 值（默认 false）。
func (c Config) FailOnErrorsEnabled() bool {
	return c.FailOnErrors != nil && *c.FailOnErrors
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
