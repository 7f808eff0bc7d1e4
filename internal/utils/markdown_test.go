package utils

import (
	"reflect"
	"strings"
	"testing"

	"devlog/internal/models"
)

func TestRenderPostTOC(t *testing.T) {
	md := "# Intro\n\ntext\n\n## Setup **fast**\n\n### Details\n\n#### Too deep\n\n## Setup fast\n\n# Outro\n"
	r, err := RenderPost(md)
	if err != nil {
		t.Fatalf("RenderPost failed: %v", err)
	}

	want := []models.TocEntry{
		{Value: "Intro", Depth: 1, ID: "intro", Children: []models.TocEntry{
			{Value: "Setup fast", Depth: 2, ID: "setup-fast", Children: []models.TocEntry{
				{Value: "Details", Depth: 3, ID: "details"},
			}},
			{Value: "Setup fast", Depth: 2, ID: "setup-fast-1"},
		}},
		{Value: "Outro", Depth: 1, ID: "outro"},
	}
	if !reflect.DeepEqual(r.TOC, want) {
		t.Errorf("TOC = %+v\nwant %+v", r.TOC, want)
	}

	html := string(r.HTML)
	for _, frag := range []string{`<h1 id="intro">`, `<h2 id="setup-fast-1">`, `<h4 id="too-deep">`, "<strong>fast</strong>"} {
		if !strings.Contains(html, frag) {
			t.Errorf("html missing %q:\n%s", frag, html)
		}
	}
}

func TestRenderPostStartsDeep(t *testing.T) {
	r, err := RenderPost("### Deep first\n\n## Then shallower\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.TOC) != 2 || r.TOC[0].Depth != 3 || r.TOC[1].Depth != 2 {
		t.Errorf("TOC = %+v", r.TOC)
	}
}

func TestRenderPostSanitizes(t *testing.T) {
	md := "hello <script>alert(1)</script> <a href=\"javascript:alert(1)\">x</a>\n\n```go\nfmt.Println()\n```\n"
	r, err := RenderPost(md)
	if err != nil {
		t.Fatal(err)
	}
	html := string(r.HTML)
	if strings.Contains(html, "<script>") || strings.Contains(html, "javascript:") {
		t.Errorf("unsafe html survived: %s", html)
	}
	if !strings.Contains(html, `class="language-go"`) {
		t.Errorf("code class dropped: %s", html)
	}
}

func TestRenderPostEmpty(t *testing.T) {
	r, err := RenderPost("")
	if err != nil {
		t.Fatal(err)
	}
	if r.HTML != "" || r.TOC == nil || len(r.TOC) != 0 {
		t.Errorf("empty render = %+v", r)
	}
}

func TestHeadingIDsNonLatin(t *testing.T) {
	ids := newHeadingIDs()
	first := string(ids.Generate([]byte("안녕하세요"), 0))
	if first == "" || first == "section" {
		t.Errorf("korean heading id = %q", first)
	}
	if got := string(ids.Generate([]byte("!!!"), 0)); got != "section" {
		t.Errorf("punctuation heading id = %q", got)
	}
	if got := string(ids.Generate([]byte("???"), 0)); got != "section-1" {
		t.Errorf("second punctuation heading id = %q", got)
	}
}

func TestGenerateExcerpt(t *testing.T) {
	cases := []struct {
		name, md string
		n        int
		want     string
	}{
		{"separator", "# Title\n\nFirst *part*.<!--more-->hidden", 100, "Title First part."},
		{"links keep text", "See [the docs](https://example.com) and ![img](/a.png)", 100, "See the docs and img"},
		{"truncates runes", "가나다라마바사", 3, "가나다..."},
		{"exact length", "abc", 3, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GenerateExcerpt(tc.md, tc.n); got != tc.want {
				t.Errorf("GenerateExcerpt = %q, want %q", got, tc.want)
			}
		})
	}
}
