package utils

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

func init() {
	ugcPolicy.AllowImages()
	ugcPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	ugcPolicy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown converts a report description to sanitized HTML.
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source)
	}
	return EnhanceHTMLContent(ugcPolicy.Sanitize(buf.String()))
}

// StripTags removes all markup from user input and trims it. Entities are
// decoded again so plain text round-trips unchanged.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
