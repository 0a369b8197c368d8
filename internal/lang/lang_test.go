package lang_test

import (
	"strings"
	"testing"

	"codearena/internal/lang"
	appErr "codearena/pkg/errors"
)

func TestNormalizeAliases(t *testing.T) {
	cases := map[string]lang.Language{
		"py":        lang.Python,
		"python":    lang.Python,
		"python3":   lang.Python,
		"c++":       lang.CPP,
		"cplusplus": lang.CPP,
		"cpp":       lang.CPP,
		"js":        lang.JavaScript,
		"node.js":   lang.JavaScript,
		"nodejs":    lang.JavaScript,
		"JAVA":      lang.Java,
		" python ":  lang.Python,
	}
	for alias, want := range cases {
		got, err := lang.Normalize(alias)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", alias, err)
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestNormalizeUnknownAlias(t *testing.T) {
	_, err := lang.Normalize("brainfuck")
	if err == nil {
		t.Fatal("expected error for unknown alias")
	}
	if appErr.GetCode(err) != appErr.UnknownLanguageAlias {
		t.Errorf("unexpected error code: %d", appErr.GetCode(err))
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if _, err := lang.Normalize(""); err == nil {
		t.Fatal("expected error for empty alias")
	}
}

func TestWrapIdempotent(t *testing.T) {
	snippets := map[lang.Language]string{
		lang.Java:       `System.out.println("hi")`,
		lang.CPP:        `cout << "hi"`,
		lang.Python:     `print("hi")`,
		lang.JavaScript: `console.log("hi")`,
	}
	for language, code := range snippets {
		once := lang.Wrap(code, language)
		twice := lang.Wrap(once, language)
		if once != twice {
			t.Errorf("%s: Wrap is not idempotent:\nonce:\n%s\ntwice:\n%s", language, once, twice)
		}
	}
}

func TestWrapJavaAddsEntryPoint(t *testing.T) {
	wrapped := lang.Wrap(`System.out.println("55")`, lang.Java)
	if !strings.Contains(wrapped, "public class Solution") {
		t.Errorf("missing class wrapper:\n%s", wrapped)
	}
	if !strings.Contains(wrapped, "public static void main(String[] args)") {
		t.Errorf("missing main wrapper:\n%s", wrapped)
	}
}

func TestWrapJavaKeepsExistingClass(t *testing.T) {
	code := "public class Solution { public static void main(String[] args) {} }"
	if got := lang.Wrap(code, lang.Java); got != code {
		t.Errorf("existing class was rewrapped:\n%s", got)
	}
}

func TestWrapCPPAddsMain(t *testing.T) {
	wrapped := lang.Wrap(`cout << 42`, lang.CPP)
	if !strings.Contains(wrapped, "int main()") {
		t.Errorf("missing main:\n%s", wrapped)
	}
	if !strings.Contains(wrapped, "#include <iostream>") {
		t.Errorf("missing include:\n%s", wrapped)
	}
	if !strings.Contains(wrapped, "return 0;") {
		t.Errorf("missing return:\n%s", wrapped)
	}
}

func TestWrapInterpretedUnchanged(t *testing.T) {
	for _, language := range []lang.Language{lang.Python, lang.JavaScript} {
		code := "some arbitrary snippet"
		if got := lang.Wrap(code, language); got != code {
			t.Errorf("%s: expected code unchanged, got %q", language, got)
		}
	}
}
