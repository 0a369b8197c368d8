// Package sanitize strips editor artifacts from submitted source and runs
// shallow per-language structural checks before any runner is invoked.
package sanitize

import (
	"strings"

	"codearena/internal/lang"
)

// placeholderMarkers are editor scaffold lines injected into starter code.
// They are removed regardless of language.
var placeholderMarkers = []string{
	"# Write your code here",
	"// Write your code here",
	"/* Write your code here */",
	"# YOUR CODE HERE",
	"// YOUR CODE HERE",
}

// Sanitize removes foreign comment syntax and placeholder markers, then
// collapses the source to trimmed-right, non-blank lines joined by newline.
// The transform is lossy: downstream error line numbers refer to the
// sanitized text, not the original.
func Sanitize(code string, language lang.Language) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = stripForeignComment(line, language)
		line = stripPlaceholder(line)
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// stripForeignComment removes single-line comments written in the wrong
// language family, which show up when snippets are pasted between editors.
func stripForeignComment(line string, language lang.Language) string {
	trimmed := strings.TrimSpace(line)
	switch language {
	case lang.Python:
		if strings.HasPrefix(trimmed, "//") {
			return ""
		}
	case lang.JavaScript, lang.Java:
		if strings.HasPrefix(trimmed, "#") {
			return ""
		}
	case lang.CPP:
		if strings.HasPrefix(trimmed, "#") && !isPreprocessorDirective(trimmed) {
			return ""
		}
	}
	return line
}

// preprocessorDirectives are the C preprocessor keywords. Lines starting
// with one are real code, not pasted comments, and must survive intact.
var preprocessorDirectives = []string{
	"include", "define", "undef", "ifdef", "ifndef", "if", "elif", "else",
	"endif", "pragma", "error", "warning", "line",
}

func isPreprocessorDirective(trimmed string) bool {
	rest := strings.TrimLeft(trimmed[1:], " \t")
	for _, d := range preprocessorDirectives {
		if rest == d || strings.HasPrefix(rest, d+" ") || strings.HasPrefix(rest, d+"<") || strings.HasPrefix(rest, d+"(") {
			return true
		}
	}
	return false
}

func stripPlaceholder(line string) string {
	for _, marker := range placeholderMarkers {
		if strings.Contains(line, marker) {
			return strings.ReplaceAll(line, marker, "")
		}
	}
	return line
}
