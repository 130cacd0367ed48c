package render

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
	"time"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "heading",
			input:    "## Daily digest",
			contains: []string{"<h2>", "Daily digest", "</h2>"},
		},
		{
			name:     "emphasis",
			input:    "This is **important** and _new_",
			contains: []string{"<strong>important</strong>", "<em>new</em>"},
		},
		{
			name:     "list",
			input:    "- first point\n- second point",
			contains: []string{"<ul>", "<li>first point</li>", "<li>second point</li>"},
		},
		{
			name:     "inline code",
			input:    "tags `#go #ai`",
			contains: []string{"<code>#go #ai</code>"},
		},
		{
			name:     "external link opens in new tab",
			input:    "[post](https://x.com/golang/status/1)",
			contains: []string{`href="https://x.com/golang/status/1"`, `rel="nofollow noopener"`, `target="_blank"`},
		},
		{
			name:        "script is stripped",
			input:       "<script>alert('xss')</script>",
			notContains: []string{"<script>"},
		},
		{
			name:        "event handlers are stripped",
			input:       "<div onclick=\"alert('xss')\">Click me</div>",
			notContains: []string{"onclick"},
		},
		{
			name:        "javascript links are stripped",
			input:       "[click](javascript:alert(1))",
			notContains: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Markdown(tt.input))

			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\ninput: %q\noutput: %q", want, tt.input, got)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("output contains %q\ninput: %q\noutput: %q", unwanted, tt.input, got)
				}
			}
		})
	}
}

func TestMarkdownReturnsTemplateHTML(t *testing.T) {
	var _ template.HTML = Markdown("# Test")

	if got := Markdown(""); len(got) > 10 {
		t.Errorf("expected minimal output for empty input, got %q", got)
	}
}

func testDigest() Digest {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return Digest{
		Title:       "InfoHunter digest 2024-06-01",
		GeneratedAt: now,
		Entries: []DigestEntry{
			{
				Title:      "Go 1.23 is released",
				Source:     "twitter",
				Author:     "golang",
				AuthorURL:  "https://x.com/golang",
				URL:        "https://x.com/golang/status/1",
				Summary:    "Range-over-func iterators ship.",
				KeyPoints:  []string{"iterators", "telemetry"},
				Importance: "important",
				Hashtags:   []string{"go", "release"},
				PostedAt:   now.Add(-2 * time.Hour),
			},
			{
				Title:    "Weekly AI roundup",
				Source:   "blog",
				PostedAt: now.Add(-30 * time.Second),
			},
		},
	}
}

func TestDigestMarkdown(t *testing.T) {
	md := testDigest().Markdown()

	for _, want := range []string{
		"# InfoHunter digest 2024-06-01",
		"_2 items · generated 2024-06-01 09:00_",
		"## [Go 1.23 is released](https://x.com/golang/status/1)",
		"**Twitter** · [golang](https://x.com/golang) · 2 hours ago · _important_",
		"- iterators\n- telemetry",
		"`#go #release`",
		"## Weekly AI roundup",
		"**Blog/RSS** · just now",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("digest markdown missing %q\n%s", want, md)
		}
	}
}

func TestDigestEmpty(t *testing.T) {
	d := Digest{Title: "Empty", GeneratedAt: time.Now()}
	if !strings.Contains(d.Markdown(), "Nothing new.") {
		t.Errorf("empty digest should say so, got %q", d.Markdown())
	}

	var buf bytes.Buffer
	if err := d.WriteHTML(&buf); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	if !strings.Contains(buf.String(), "<p>Nothing new.</p>") {
		t.Errorf("empty html digest should say so")
	}
}

func TestDigestHTML(t *testing.T) {
	d := testDigest()
	d.Entries[1].Summary = "<script>alert(1)</script>"

	var buf bytes.Buffer
	if err := d.WriteHTML(&buf); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<title>InfoHunter digest 2024-06-01</title>",
		"border-color: #1DA1F2",
		"border-color: #FF8C00",
		"<strong>Twitter</strong>",
		"<li>iterators</li>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("digest html missing %q", want)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("digest html must not contain script tags")
	}
}
