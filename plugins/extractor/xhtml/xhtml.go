// Package xhtml 从 (X)HTML 测试文件的 <head> 中抽取测试元数据。
//
// 识别的元素：
//   - <link rel="help" href>   → Links（仅保留 SpecRoot 前缀下的链接，SpecRoot 为空时全部保留）
//   - <link rel="author" title> → Credits
//   - <title>                  → Title
//   - <meta name="flags">      → Flags（空白分隔）
//   - <meta name="assert">     → Assert
//
// 单文件失败以 contract.Err 返回，从不返回 error。
package xhtml

import (
	"context"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"suitetoc/pkg/contract"
)

// Options 为抽取器配置。
type Options struct {
	SpecRoot string `json:"spec_root" yaml:"spec_root"`
	// AllowAnonymous: 允许缺少 author 链接的测试。默认 false。
	AllowAnonymous bool `json:"allow_anonymous" yaml:"allow_anonymous"`
}

// Extractor 实现 contract.Extractor；无状态，可重复使用。
type Extractor struct {
	specRoot       string
	allowAnonymous bool
}

func New(opts *Options) *Extractor {
	e := &Extractor{}
	if opts != nil {
		e.specRoot = opts.SpecRoot
		e.allowAnonymous = opts.AllowAnonymous
	}
	return e
}

var _ contract.Extractor = (*Extractor)(nil)

// Extract 读取并解析 path 指向的文件。
func (e *Extractor) Extract(ctx context.Context, path string) contract.MetadataResult {
	fail := func(msg string) contract.MetadataResult {
		return contract.Err(contract.ErrorRecord{Location: path, Message: msg})
	}
	if err := ctx.Err(); err != nil {
		return fail(err.Error())
	}
	f, err := os.Open(path)
	if err != nil {
		return fail(err.Error())
	}
	defer f.Close()
	doc, err := html.Parse(f)
	if err != nil {
		return fail("parse: " + err.Error())
	}

	var c collector
	c.walk(doc)

	m := contract.TestMetadata{
		Title:   c.title,
		Flags:   c.flags,
		Assert:  c.assert,
		Credits: c.credits,
	}
	for _, href := range c.help {
		if e.specRoot != "" && !strings.HasPrefix(href, e.specRoot) {
			continue
		}
		m.Links = appendUnique(m.Links, contract.SectionURI(href))
	}
	if len(m.Links) == 0 {
		return fail("missing help link")
	}
	if len(m.Credits) == 0 && !e.allowAnonymous {
		return fail("missing author link")
	}
	return contract.Ok(m)
}

type collector struct {
	help    []string
	credits []string
	title   string
	flags   []string
	assert  string
	inTitle bool
}

func (c *collector) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Link:
			rels := strings.Fields(strings.ToLower(getAttr(n, "rel")))
			for _, rel := range rels {
				switch rel {
				case "help":
					if href := strings.TrimSpace(getAttr(n, "href")); href != "" {
						c.help = append(c.help, href)
					}
				case "author":
					if name := collapse(getAttr(n, "title")); name != "" {
						c.credits = appendUnique(c.credits, name)
					}
				}
			}
		case atom.Meta:
			switch strings.ToLower(getAttr(n, "name")) {
			case "flags":
				for _, f := range strings.Fields(getAttr(n, "content")) {
					c.flags = appendUnique(c.flags, f)
				}
			case "assert":
				c.assert = collapse(getAttr(n, "content"))
			}
		case atom.Title:
			if c.title == "" {
				c.title = collapse(textOf(n))
			}
		case atom.Body:
			// 元数据只在 head 中
			return
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.TextNode {
			sb.WriteString(ch.Data)
		}
	}
	return sb.String()
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

func appendUnique[T comparable](list []T, v T) []T {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
