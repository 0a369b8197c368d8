package process

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"

	"codearena/internal/lang"
	"codearena/internal/sandbox"
	"codearena/internal/sandbox/profile"
	"codearena/internal/sandbox/result"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func TestExecuteEchoesSource(t *testing.T) {
	requireTool(t, "cat")

	root := t.TempDir()
	r := NewRunner(root, WithSpecs([]profile.LanguageSpec{
		{ID: lang.Python, SourceFile: "main.py", RunCmdTpl: "cat {src}"},
	}))

	res, err := r.Execute(context.Background(), sandbox.Request{
		Code:     `print("hello")`,
		Language: lang.Python,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != result.VerdictSuccess {
		t.Fatalf("verdict = %s, want SUCCESS (error: %s)", res.Status, res.Error)
	}
	if res.Output != `print("hello")` {
		t.Errorf("output = %q", res.Output)
	}
	if res.ExecutionTimeMs < 0 {
		t.Errorf("negative execution time %d", res.ExecutionTimeMs)
	}
}

func TestExecuteKeepsStderrWarningsOnSuccess(t *testing.T) {
	requireTool(t, "sh")

	root := t.TempDir()
	r := NewRunner(root, WithSpecs([]profile.LanguageSpec{
		{ID: lang.Python, SourceFile: "main.py", RunCmdTpl: "sh -c 'echo DeprecationWarning: x >&2; echo ok'"},
	}))

	res, err := r.Execute(context.Background(), sandbox.Request{
		Code:     `print("hello")`,
		Language: lang.Python,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != result.VerdictSuccess {
		t.Fatalf("verdict = %s, want SUCCESS", res.Status)
	}
	if res.Output != "ok" {
		t.Errorf("output = %q", res.Output)
	}
	if res.Error != "DeprecationWarning: x" {
		t.Errorf("error = %q, want the stderr warning kept", res.Error)
	}
}

func TestExecuteTimeout(t *testing.T) {
	requireTool(t, "sleep")

	root := t.TempDir()
	r := NewRunner(root, WithSpecs([]profile.LanguageSpec{
		{ID: lang.Python, SourceFile: "main.py", RunCmdTpl: "sleep 5"},
	}))

	res, err := r.Execute(context.Background(), sandbox.Request{
		Code:        `print("hello")`,
		Language:    lang.Python,
		TimeLimitMs: 100,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != result.VerdictTimeout {
		t.Fatalf("verdict = %s, want TIMEOUT", res.Status)
	}
	if res.Error != "Time limit exceeded" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	requireTool(t, "false")

	root := t.TempDir()
	r := NewRunner(root, WithSpecs([]profile.LanguageSpec{
		{ID: lang.Python, SourceFile: "main.py", RunCmdTpl: "false"},
	}))

	res, err := r.Execute(context.Background(), sandbox.Request{
		Code:     `print("hello")`,
		Language: lang.Python,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != result.VerdictError {
		t.Fatalf("verdict = %s, want ERROR", res.Status)
	}
	if res.Output != result.NoOutput {
		t.Errorf("output = %q, want placeholder", res.Output)
	}
}

func TestExecuteCleansWorkingDirectory(t *testing.T) {
	requireTool(t, "cat")

	root := t.TempDir()
	r := NewRunner(root, WithSpecs([]profile.LanguageSpec{
		{ID: lang.Python, SourceFile: "main.py", RunCmdTpl: "cat {src}"},
	}))

	if _, err := r.Execute(context.Background(), sandbox.Request{
		Code:     `print("hello")`,
		Language: lang.Python,
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp root not empty after run: %d entries", len(entries))
	}
}

func TestExecuteValidationFailure(t *testing.T) {
	root := t.TempDir()
	r := NewRunner(root)

	res, err := r.Execute(context.Background(), sandbox.Request{
		Code:     "   ",
		Language: lang.Python,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != result.VerdictError {
		t.Fatalf("verdict = %s, want ERROR", res.Status)
	}
	if res.Error == "" {
		t.Error("expected a validation message")
	}
	if res.Output != result.NoOutput {
		t.Errorf("output = %q, want placeholder", res.Output)
	}
}

func TestExecuteStdinDelivered(t *testing.T) {
	requireTool(t, "head")

	root := t.TempDir()
	r := NewRunner(root, WithSpecs([]profile.LanguageSpec{
		{ID: lang.Python, SourceFile: "main.py", RunCmdTpl: "head -n 1"},
	}))

	res, err := r.Execute(context.Background(), sandbox.Request{
		Code:     `print("hello")`,
		Language: lang.Python,
		Stdin:    "first line\nsecond line\n",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != result.VerdictSuccess {
		t.Fatalf("verdict = %s (error: %s)", res.Status, res.Error)
	}
	if res.Output != "first line" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestCappedWriterStops(t *testing.T) {
	var buf bytes.Buffer
	w := newCappedWriter(&buf, 8)

	n, err := w.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Fatalf("Write = (%d, %v)", n, err)
	}
	if buf.String() != "01234567" {
		t.Errorf("buffer = %q", buf.String())
	}
	if n, _ := w.Write([]byte("more")); n != 4 {
		t.Errorf("overflow write reported %d", n)
	}
	if buf.Len() != 8 {
		t.Errorf("buffer grew past cap: %d", buf.Len())
	}
}

func TestFriendlyError(t *testing.T) {
	cases := []struct {
		language lang.Language
		raw      string
		want     string
	}{
		{lang.Python, "Traceback (most recent call last):\n  File \"main.py\", line 1\nNameError: name 'x' is not defined", "Name error:"},
		{lang.Python, "  File \"main.py\", line 2\nSyntaxError: invalid syntax", "Syntax error:"},
		{lang.JavaScript, "ReferenceError: x is not defined\n    at main.js:1", "Reference error:"},
		{lang.CPP, "main.cpp:3:5: error: expected ';'", "Compilation error:"},
		{lang.Java, "Exception in thread \"main\" java.lang.ArithmeticException: / by zero", "Runtime exception:"},
		{lang.Python, "", "Execution failed"},
	}
	for _, tc := range cases {
		got := friendlyError(tc.language, tc.raw, 1)
		if !strings.HasPrefix(got, tc.want) {
			t.Errorf("friendlyError(%s, %q) = %q, want prefix %q", tc.language, tc.raw, got, tc.want)
		}
	}
}
