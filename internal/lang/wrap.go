package lang

import (
	"fmt"
	"strings"
)

// Wrap injects the entry point a bare snippet is missing so it becomes a
// runnable program. It is idempotent: code that already has the required
// entry point is returned unchanged.
func Wrap(code string, language Language) string {
	switch language {
	case Java:
		return wrapJava(code)
	case CPP:
		return wrapCPP(code)
	default:
		// Python and JavaScript are assumed to be complete programs.
		return code
	}
}

func wrapJava(code string) string {
	if strings.Contains(code, "class ") {
		return code
	}
	return fmt.Sprintf("public class Solution {\n    public static void main(String[] args) {\n%s\n    }\n}", indent(code, 8))
}

func wrapCPP(code string) string {
	if hasMainFunction(code) {
		return code
	}
	return fmt.Sprintf("#include <iostream>\nusing namespace std;\n\nint main() {\n%s;\n    return 0;\n}", indent(strings.TrimRight(code, ";\n\t "), 4))
}

// hasMainFunction detects an existing main definition without being fooled
// by identifiers that merely contain "main".
func hasMainFunction(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "main(") &&
			(strings.HasPrefix(trimmed, "int main") || strings.HasPrefix(trimmed, "auto main") || strings.HasPrefix(trimmed, "void main")) {
			return true
		}
	}
	return false
}

func indent(code string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}
