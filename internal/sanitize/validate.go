package sanitize

import (
	"strings"

	"codearena/internal/lang"
	appErr "codearena/pkg/errors"
)

var pythonBlockKeywords = []string{
	"class", "def", "if", "for", "while", "with", "try", "elif", "else", "except", "finally",
}

// cppControlPrefixes are line starts exempt from the naive semicolon check.
var cppControlPrefixes = []string{
	"#", "if", "else", "for", "while", "do", "switch", "case", "default", "namespace",
	"public", "private", "protected", "template", "using", "struct", "class", "try", "catch",
}

// Validate runs the advisory structural checks for a language. The checks
// are heuristic: they catch obviously broken submissions cheaply so the
// sandbox is never started for code that cannot possibly run.
func Validate(code string, language lang.Language) error {
	if strings.TrimSpace(code) == "" {
		return appErr.New(appErr.EmptySource)
	}
	switch language {
	case lang.Python:
		return validatePython(code)
	case lang.CPP:
		return validateCPP(code)
	case lang.JavaScript:
		return validateJavaScript(code)
	case lang.Java:
		return validateJava(code)
	}
	return appErr.Newf(appErr.LanguageNotSupported, "unknown language: %s", language)
}

func validatePython(code string) error {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if opensBlock(trimmed) {
			next := nextNonBlank(lines, i+1)
			if next == "" {
				return appErr.Newf(appErr.BadIndentation, "line %d: expected an indented block after %q", i+1, firstWord(trimmed))
			}
			if indentOf(next) <= indentOf(line) {
				return appErr.Newf(appErr.BadIndentation, "line %d: expected an indented block after %q", i+1, firstWord(trimmed))
			}
		}

		if indentOf(line)%4 != 0 {
			return appErr.Newf(appErr.BadIndentation, "line %d: indentation is not a multiple of 4 spaces", i+1)
		}
	}
	return nil
}

func validateCPP(code string) error {
	if !strings.Contains(code, "main") {
		return appErr.New(appErr.MissingEntryPoint).WithMessage("C++ code must define a main function")
	}
	if err := checkBalanced(code, '{', '}'); err != nil {
		return err
	}
	return checkTerminators(code, "C++")
}

func validateJavaScript(code string) error {
	if err := checkBalanced(code, '{', '}'); err != nil {
		return err
	}
	if err := checkBalanced(code, '(', ')'); err != nil {
		return err
	}
	// Semicolons are a suggestion in JavaScript, never an error.
	return nil
}

func validateJava(code string) error {
	if !strings.Contains(code, "class") {
		return appErr.New(appErr.MissingEntryPoint).WithMessage("Java code must define a class")
	}
	if !strings.Contains(code, "public static void main") {
		return appErr.New(appErr.MissingEntryPoint).WithMessage("Java code must define public static void main")
	}
	if err := checkBalanced(code, '{', '}'); err != nil {
		return err
	}
	return checkTerminators(code, "Java")
}

// checkTerminators naively requires every statement line to end in ';',
// '{' or '}'. Control-flow and preprocessor lines are exempt; this is an
// advisory heuristic, not a parser.
func checkTerminators(code, languageName string) error {
	for i, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if isControlLine(trimmed) {
			continue
		}
		last := trimmed[len(trimmed)-1]
		if last != ';' && last != '{' && last != '}' && last != ':' && last != ')' && last != ',' {
			return appErr.Newf(appErr.ValidationFailed, "%s: line %d may be missing a semicolon: %q", languageName, i+1, trimmed)
		}
	}
	return nil
}

func isControlLine(trimmed string) bool {
	for _, prefix := range cppControlPrefixes {
		if trimmed == prefix || strings.HasPrefix(trimmed, prefix+" ") || strings.HasPrefix(trimmed, prefix+"(") {
			return true
		}
	}
	return false
}

func checkBalanced(code string, open, close rune) error {
	depth := 0
	for _, r := range code {
		switch r {
		case open:
			depth++
		case close:
			depth--
			if depth < 0 {
				return appErr.Newf(appErr.UnbalancedBraces, "unexpected %q", string(close))
			}
		}
	}
	if depth != 0 {
		return appErr.Newf(appErr.UnbalancedBraces, "unbalanced %q/%q", string(open), string(close))
	}
	return nil
}

func opensBlock(trimmed string) bool {
	if !strings.HasSuffix(trimmed, ":") {
		return false
	}
	word := firstWord(trimmed)
	for _, kw := range pythonBlockKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

func firstWord(trimmed string) string {
	for i, r := range trimmed {
		if r == ' ' || r == '(' || r == ':' {
			return trimmed[:i]
		}
	}
	return trimmed
}

func nextNonBlank(lines []string, from int) string {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func indentOf(line string) int {
	count := 0
	for _, r := range line {
		switch r {
		case ' ':
			count++
		case '\t':
			count += 4
		default:
			return count
		}
	}
	return count
}
