package render

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Markdown converts markdown text to safe HTML for use in templates
func Markdown(markdown string) template.HTML {
	unsafe := blackfriday.Run([]byte(markdown))
	return template.HTML(policy.SanitizeBytes(unsafe))
}
