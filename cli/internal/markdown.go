package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderMarkdown renders markdown content, using glamour for terminal output or plain text otherwise
func renderMarkdown(w io.Writer, markdown string, theme string) string {
	if !isTerminal(w) {
		return markdown
	}
	rendered, err := glamour.Render(markdown, theme)
	if err != nil {
		// Fall back to plain markdown if rendering fails
		return markdown
	}
	return rendered
}

// printMarkdown renders and prints markdown using the configured theme
func printMarkdown(w io.Writer, markdown string) {
	config, err := LoadConfig()
	if err != nil {
		config = DefaultConfig()
	}
	fmt.Fprint(w, renderMarkdown(w, markdown, getTheme(config)))
}

// getTheme returns the theme from the current context, or "auto" if config is unavailable
func getTheme(config *Config) string {
	if config == nil {
		return "auto"
	}

	ctx, err := config.GetCurrentContext()
	if err != nil || ctx.Rendering.Theme == "" {
		return "auto"
	}

	return ctx.Rendering.Theme
}
