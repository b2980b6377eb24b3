package email

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts admin-authored markdown to an HTML fragment.
// On a renderer failure the escaped source is returned as a paragraph.
func RenderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return buf.String()
}

// Layout wraps body HTML with a heading and footer line.
func Layout(heading, bodyHTML, footer string) string {
	return fmt.Sprintf(
		`<div style="font-family:sans-serif;max-width:560px"><h2>%s</h2>%s<p style="color:#6b7280;font-size:12px">%s</p></div>`,
		html.EscapeString(heading), bodyHTML, html.EscapeString(footer))
}
