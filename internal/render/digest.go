package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/devilmonastery/infohunter/internal/pkg/format"
	"github.com/devilmonastery/infohunter/internal/pkg/textutil"
)

// DigestEntry is one content item in an exported digest
type DigestEntry struct {
	Title      string
	Source     string
	Author     string
	AuthorURL  string
	URL        string
	Summary    string
	KeyPoints  []string
	Importance string
	Hashtags   []string
	PostedAt   time.Time
}

// Digest is a dated collection of feed entries
type Digest struct {
	Title       string
	GeneratedAt time.Time
	Entries     []DigestEntry
}

// Markdown renders one entry as a markdown section. Times are shown relative to now.
func (e DigestEntry) Markdown(now time.Time) string {
	var b strings.Builder

	title := e.Title
	if e.URL != "" {
		title = fmt.Sprintf("[%s](%s)", e.Title, e.URL)
	}
	fmt.Fprintf(&b, "## %s\n\n", title)

	author := e.Author
	if author != "" && e.AuthorURL != "" {
		author = fmt.Sprintf("[%s](%s)", e.Author, e.AuthorURL)
	}
	meta := []string{"**" + format.SourceLabel(e.Source) + "**"}
	if author != "" {
		meta = append(meta, author)
	}
	meta = append(meta, format.RelativeTime(e.PostedAt, now))
	if e.Importance != "" {
		meta = append(meta, "_"+e.Importance+"_")
	}
	b.WriteString(strings.Join(meta, " · "))
	b.WriteString("\n\n")

	if e.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", e.Summary)
	}
	for _, p := range e.KeyPoints {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	if len(e.KeyPoints) > 0 {
		b.WriteString("\n")
	}
	if len(e.Hashtags) > 0 {
		fmt.Fprintf(&b, "`%s`\n\n", textutil.FormatHashtags(e.Hashtags))
	}
	return b.String()
}

// Markdown renders the whole digest
func (d Digest) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	fmt.Fprintf(&b, "_%d items · generated %s_\n\n", len(d.Entries), d.GeneratedAt.Format("2006-01-02 15:04"))
	if len(d.Entries) == 0 {
		b.WriteString("Nothing new.\n")
		return b.String()
	}
	for _, e := range d.Entries {
		b.WriteString(e.Markdown(d.GeneratedAt))
	}
	return b.String()
}

var digestPage = template.Must(template.New("digest").Funcs(template.FuncMap{
	"renderMarkdown": Markdown,
	"sourceColor":    format.SourceColor,
	"entryMarkdown": func(e DigestEntry, now time.Time) template.HTML {
		return Markdown(e.Markdown(now))
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; color: #111827; }
article { border-left: 4px solid; padding: 0.25rem 1rem; margin: 1.5rem 0; }
article h2 { font-size: 1.1rem; }
code { background: #F3F4F6; padding: 0 0.25rem; }
footer { color: #6B7280; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{- range .Entries}}
<article style="border-color: {{sourceColor .Source}}">
{{entryMarkdown . $.GeneratedAt}}
</article>
{{- else}}
<p>Nothing new.</p>
{{- end}}
<footer>{{len .Entries}} items · generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</footer>
</body>
</html>
`))

// WriteHTML renders the digest as a standalone HTML page
func (d Digest) WriteHTML(w io.Writer) error {
	return digestPage.Execute(w, d)
}
