package process

import (
	"strings"

	"codearena/internal/lang"
)

// friendlyError turns raw interpreter or compiler noise into a short
// message a contestant can act on. The raw tail is kept so nothing is
// hidden, only prefixed.
func friendlyError(language lang.Language, raw string, exitCode int) string {
	if raw == "" {
		if exitCode > 0 {
			return "Execution failed: process exited with a non-zero status"
		}
		return "Execution failed"
	}

	line := lastMeaningfulLine(raw)

	switch language {
	case lang.Python:
		switch {
		case strings.Contains(raw, "SyntaxError"):
			return "Syntax error: " + line
		case strings.Contains(raw, "IndentationError"):
			return "Indentation error: " + line
		case strings.Contains(raw, "NameError"):
			return "Name error: " + line
		case strings.Contains(raw, "TypeError"):
			return "Type error: " + line
		case strings.Contains(raw, "ZeroDivisionError"):
			return "Division by zero: " + line
		}
	case lang.JavaScript:
		switch {
		case strings.Contains(raw, "SyntaxError"):
			return "Syntax error: " + line
		case strings.Contains(raw, "ReferenceError"):
			return "Reference error: " + line
		case strings.Contains(raw, "TypeError"):
			return "Type error: " + line
		}
	case lang.Java:
		switch {
		case strings.Contains(raw, "error:"):
			return "Compilation error: " + line
		case strings.Contains(raw, "Exception"):
			return "Runtime exception: " + line
		}
	case lang.CPP:
		switch {
		case strings.Contains(raw, "error:"):
			return "Compilation error: " + line
		case strings.Contains(raw, "Segmentation fault"):
			return "Segmentation fault"
		}
	}

	return "Execution failed: " + line
}

// lastMeaningfulLine picks the final non-blank line of a stderr dump,
// which is where interpreters put the actual error.
func lastMeaningfulLine(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return raw
}
