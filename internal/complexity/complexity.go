// Package complexity labels source with rough asymptotic estimates for
// display. The heuristics are keyword counts, not analysis; the labels are
// advisory and never influence a verdict.
package complexity

import (
	"strings"

	"codearena/internal/lang"
)

// Estimate is the heuristic complexity label pair for one submission.
type Estimate struct {
	Time  string
	Space string
}

var loopKeywords = map[lang.Language][]string{
	lang.Python:     {"for ", "while "},
	lang.JavaScript: {"for ", "for(", "while ", "while(", ".foreach", ".map(", ".filter(", ".reduce("},
	lang.Java:       {"for ", "for(", "while ", "while("},
	lang.CPP:        {"for ", "for(", "while ", "while("},
}

var sortKeywords = []string{"sort", "merge", "heap"}

var allocKeywords = map[lang.Language][]string{
	lang.Python:     {"[", "list(", "dict(", "set("},
	lang.JavaScript: {"[", "new array", "new map", "new set"},
	lang.Java:       {"new int[", "new long[", "arraylist", "hashmap", "hashset", "new array"},
	lang.CPP:        {"vector", "map<", "set<", "new int[", "array<"},
}

// Analyze estimates time and space complexity from source text.
func Analyze(code string, language lang.Language) Estimate {
	lowered := strings.ToLower(code)

	est := Estimate{Time: "O(1)", Space: "O(1)"}

	loops := countLoops(lowered, language)
	switch {
	case loops >= 2 && hasNestedLoops(lowered, language):
		est.Time = "O(n²)"
	case containsAny(lowered, sortKeywords):
		est.Time = "O(n log n)"
	case loops >= 1:
		est.Time = "O(n)"
	}

	if keywords, ok := allocKeywords[language]; ok && containsAny(lowered, keywords) {
		if est.Time == "O(n²)" {
			est.Space = "O(n²)"
		} else {
			est.Space = "O(n)"
		}
	}
	return est
}

func countLoops(lowered string, language lang.Language) int {
	total := 0
	for _, kw := range loopKeywords[language] {
		total += strings.Count(lowered, kw)
	}
	return total
}

// hasNestedLoops checks whether a loop keyword appears at a deeper indent or
// brace depth than an earlier one. Cheap and wrong in the ways one expects.
func hasNestedLoops(lowered string, language lang.Language) bool {
	if language == lang.Python {
		firstIndent := -1
		for _, line := range strings.Split(lowered, "\n") {
			trimmed := strings.TrimLeft(line, " \t")
			if !strings.HasPrefix(trimmed, "for ") && !strings.HasPrefix(trimmed, "while ") {
				continue
			}
			indent := len(line) - len(trimmed)
			if firstIndent == -1 {
				firstIndent = indent
				continue
			}
			if indent > firstIndent {
				return true
			}
		}
		return false
	}

	depth := 0
	loopDepths := []int{}
	for i := 0; i < len(lowered); i++ {
		switch lowered[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if strings.HasPrefix(lowered[i:], "for") || strings.HasPrefix(lowered[i:], "while") {
			for _, d := range loopDepths {
				if depth > d {
					return true
				}
			}
			loopDepths = append(loopDepths, depth)
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
