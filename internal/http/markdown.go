package http

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
)

// MarkdownRenderer converts page Markdown to sanitised HTML. Page content is
// user supplied, so everything goes through the UGC policy before it reaches
// a template.
type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdownRenderer constructs the renderer with the default settings.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md:     goldmark.New(),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts markdown to HTML and strips anything the policy rejects.
func (r *MarkdownRenderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}

	return r.policy.Sanitize(buf.String()), nil
}
