// Package profile defines how each supported language is compiled and run
// by the process sandbox.
package profile

import "codearena/internal/lang"

// LanguageSpec defines the on-disk layout and shell commands for one
// language. Command templates understand {src}, {bin} and {dir}.
type LanguageSpec struct {
	ID             lang.Language `yaml:"id"`
	SourceFile     string        `yaml:"sourceFile"`
	BinaryFile     string        `yaml:"binaryFile"`
	CompileEnabled bool          `yaml:"compileEnabled"`
	CompileCmdTpl  string        `yaml:"compileCmd"`
	RunCmdTpl      string        `yaml:"runCmd"`
}

// Defaults returns the built-in language specs. The java class name is
// fixed to Solution, which the wrap step guarantees.
func Defaults() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:         lang.JavaScript,
			SourceFile: "main.js",
			RunCmdTpl:  "node {src}",
		},
		{
			ID:         lang.Python,
			SourceFile: "main.py",
			RunCmdTpl:  "python3 {src}",
		},
		{
			ID:             lang.Java,
			SourceFile:     "Solution.java",
			BinaryFile:     "Solution.class",
			CompileEnabled: true,
			CompileCmdTpl:  "javac {src}",
			RunCmdTpl:      "java -cp {dir} Solution",
		},
		{
			ID:             lang.CPP,
			SourceFile:     "main.cpp",
			BinaryFile:     "main",
			CompileEnabled: true,
			CompileCmdTpl:  "g++ -O2 -std=c++17 -o {bin} {src}",
			RunCmdTpl:      "{bin}",
		},
	}
}

// Index builds a lookup map from a spec list, later entries winning so
// config overrides replace the defaults.
func Index(specs []LanguageSpec) map[lang.Language]LanguageSpec {
	out := make(map[lang.Language]LanguageSpec, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			continue
		}
		out[s.ID] = s
	}
	return out
}
