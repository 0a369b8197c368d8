// Package lang defines the closed set of supported languages and the
// alias normalization used everywhere a language id enters the system.
package lang

import (
	"strings"

	appErr "codearena/pkg/errors"
)

// Language is a canonical language identifier.
type Language string

const (
	JavaScript Language = "javascript"
	Python     Language = "python"
	Java       Language = "java"
	CPP        Language = "cpp"
)

// aliases maps every accepted spelling to its canonical id.
// Unknown aliases are rejected with a typed error, never defaulted.
var aliases = map[string]Language{
	"javascript": JavaScript,
	"js":         JavaScript,
	"node":       JavaScript,
	"node.js":    JavaScript,
	"nodejs":     JavaScript,
	"python":     Python,
	"python3":    Python,
	"py":         Python,
	"java":       Java,
	"cpp":        CPP,
	"c++":        CPP,
	"cplusplus":  CPP,
}

// All returns every supported language in a stable order.
func All() []Language {
	return []Language{JavaScript, Python, Java, CPP}
}

// Normalize maps a language alias to its canonical id.
func Normalize(alias string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(alias))
	if key == "" {
		return "", appErr.ValidationError("language", "required")
	}
	lang, ok := aliases[key]
	if !ok {
		return "", appErr.Newf(appErr.UnknownLanguageAlias, "unknown language: %s", alias)
	}
	return lang, nil
}

// IsSupported reports whether the canonical id is one of the supported languages.
func IsSupported(l Language) bool {
	switch l {
	case JavaScript, Python, Java, CPP:
		return true
	}
	return false
}

// Compiled reports whether the language needs a compile step before running.
func (l Language) Compiled() bool {
	return l == Java || l == CPP
}

func (l Language) String() string {
	return string(l)
}
