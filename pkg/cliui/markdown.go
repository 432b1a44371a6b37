package cliui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown content for terminal display using glamour.
// On failure the content is returned unchanged along with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// Markdown is RenderMarkdown without the error; unrenderable content is
// returned as-is.
func Markdown(content string) string {
	rendered, _ := RenderMarkdown(content)
	return rendered
}
