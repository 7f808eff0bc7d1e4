package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"devlog/internal/models"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Headings deeper than this are rendered but left out of the table of contents.
const tocMaxDepth = 3

const moreSeparator = "<!--more-->"

var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
)

var sanitizer = newSanitizer()

func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	return p
}

// Rendered is a post body ready for the detail template.
type Rendered struct {
	HTML template.HTML
	TOC  []models.TocEntry
}

// headingIDs hands out slug based heading anchors, suffixing repeats with -1, -2 ...
type headingIDs struct {
	seen map[string]bool
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: map[string]bool{}}
}

func (h *headingIDs) Generate(value []byte, _ ast.NodeKind) []byte {
	base := slug.Make(string(value))
	if base == "" {
		base = "section"
	}
	id := base
	for i := 1; h.seen[id]; i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	h.seen[id] = true
	return []byte(id)
}

func (h *headingIDs) Put(value []byte) {
	h.seen[string(value)] = true
}

// RenderPost converts markdown to sanitized HTML and collects the h1-h3 headings.
func RenderPost(md string) (Rendered, error) {
	src := []byte(md)
	ctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	doc := mdRenderer.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var buf bytes.Buffer
	if err := mdRenderer.Renderer().Render(&buf, src, doc); err != nil {
		return Rendered{}, fmt.Errorf("render markdown: %w", err)
	}
	out := strings.ReplaceAll(buf.String(), moreSeparator, "")

	return Rendered{
		HTML: template.HTML(sanitizer.Sanitize(out)),
		TOC:  nestTOC(collectHeadings(doc, src)),
	}, nil
}

func RenderMarkdown(md string) (template.HTML, error) {
	r, err := RenderPost(md)
	if err != nil {
		return "", err
	}
	return r.HTML, nil
}

func collectHeadings(doc ast.Node, src []byte) []models.TocEntry {
	var flat []models.TocEntry
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		if h.Level <= tocMaxDepth {
			var id string
			if v, ok := h.AttributeString("id"); ok {
				if b, ok := v.([]byte); ok {
					id = string(b)
				}
			}
			flat = append(flat, models.TocEntry{Value: nodeText(h, src), Depth: h.Level, ID: id})
		}
		return ast.WalkSkipChildren, nil
	})
	return flat
}

// nestTOC hangs every heading under the nearest preceding shallower one.
func nestTOC(flat []models.TocEntry) []models.TocEntry {
	out := []models.TocEntry{}
	for i := 0; i < len(flat); {
		e := flat[i]
		j := i + 1
		for j < len(flat) && flat[j].Depth > e.Depth {
			j++
		}
		if j > i+1 {
			e.Children = nestTOC(flat[i+1 : j])
		}
		out = append(out, e)
		i = j
	}
	return out
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

var (
	mdLinkRe   = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdMarkRe   = regexp.MustCompile("(?m)^\\s*[#>]+|[*_`~]")
	mdHTMLRe   = regexp.MustCompile(`<[^>]+>`)
	mdSpacesRe = regexp.MustCompile(`\s+`)
)

// stripMarkdown removes markdown formatting for excerpt generation. Link text is kept.
func stripMarkdown(md string) string {
	md = mdLinkRe.ReplaceAllString(md, "$1")
	md = mdHTMLRe.ReplaceAllString(md, "")
	md = mdMarkRe.ReplaceAllString(md, "")
	return strings.TrimSpace(mdSpacesRe.ReplaceAllString(md, " "))
}

func GenerateExcerpt(md string, length int) string {
	excerpt, _, _ := strings.Cut(md, moreSeparator)

	plainText := stripMarkdown(excerpt)
	// Count runes so Korean text is not cut mid character.
	runes := []rune(plainText)
	if len(runes) > length {
		return string(runes[:length]) + "..."
	}
	return string(runes)
}
