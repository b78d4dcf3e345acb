// Package preproc handles C preprocessing.
// It provides both an internal preprocessor implementation and fallback
// to an external system preprocessor (cc -E).
package preproc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cpp"
)

// Options configures the preprocessing step
type Options struct {
	IncludePaths []string // -I directories
	SystemPaths  []string // -isystem directories
	Predefines   []string // target macros, NAME=VALUE
	Defines      []string // -D macros, NAME or NAME=VALUE, in command line order
	Undefines    []string // -U macros
	UseExternal  bool     // Force use of external preprocessor
	LineMarkers  bool     // Generate #line markers
}

// Result is the output of one preprocessing run.
type Result struct {
	Text       string
	Inclusions []cpp.Inclusion
	// Macros holds the definitions active at the end of the file. The
	// external preprocessor does not report them, so the table is empty.
	Macros   *cpp.MacroTable
	Warnings []cpp.Diagnostic
	system   func(string) bool
}

// IsSystemFile reports whether path was entered through a system include
// directory.
func (r *Result) IsSystemFile(path string) bool {
	if r.system == nil {
		return false
	}
	return r.system(path)
}

// Preprocess runs the C preprocessor on the given source file.
// By default, it uses the internal preprocessor. Set UseExternal option
// to force use of the system preprocessor.
func Preprocess(ctx context.Context, filename string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.UseExternal {
		return preprocessExternal(ctx, filename, opts)
	}
	return preprocessInternal(filename, opts)
}

// preprocessInternal uses our internal pkg/cpp preprocessor
func preprocessInternal(filename string, opts *Options) (*Result, error) {
	pp := cpp.NewPreprocessor(cpp.PreprocessorOptions{
		Predefines:   opts.Predefines,
		Defines:      opts.Defines,
		Undefines:    opts.Undefines,
		IncludePaths: opts.IncludePaths,
		SystemPaths:  opts.SystemPaths,
		LineMarkers:  opts.LineMarkers,
	})
	text, err := pp.PreprocessFile(filename)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:       text,
		Inclusions: pp.Inclusions(),
		Macros:     pp.GetMacros(),
		Warnings:   pp.Diagnostics(),
		system:     pp.IsSystemFile,
	}, nil
}

// preprocessExternal uses the system C preprocessor (cc -E)
func preprocessExternal(ctx context.Context, filename string, opts *Options) (*Result, error) {
	args := []string{"-E"}
	if !opts.LineMarkers {
		args = append(args, "-P")
	}
	for _, path := range opts.IncludePaths {
		args = append(args, "-I"+path)
	}
	for _, path := range opts.SystemPaths {
		args = append(args, "-isystem", path)
	}
	for _, def := range opts.Defines {
		args = append(args, "-D"+def)
	}
	for _, name := range opts.Undefines {
		args = append(args, "-U"+name)
	}
	args = append(args, filename)

	cppCmd := findPreprocessor()
	if cppCmd == "" {
		return nil, fmt.Errorf("no C preprocessor found (tried: cc, gcc, clang)")
	}

	cmd := exec.CommandContext(ctx, cppCmd, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Relative includes resolve against the header's directory.
	cmd.Dir = filepath.Dir(filename)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("preprocessing failed: %v\n%s", err, stderr.String())
	}

	systemDirs := opts.SystemPaths
	return &Result{
		Text:   stdout.String(),
		Macros: cpp.NewMacroTable(),
		system: func(path string) bool {
			for _, dir := range systemDirs {
				if strings.HasPrefix(path, dir) {
					return true
				}
			}
			return false
		},
	}, nil
}

// NeedsPreprocessing returns true if the file might need preprocessing.
// Files ending in .i are considered already preprocessed.
func NeedsPreprocessing(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) != ".i"
}

// findPreprocessor searches for a C preprocessor on the system
func findPreprocessor() string {
	for _, cmd := range []string{"cc", "gcc", "clang"} {
		if path, err := exec.LookPath(cmd); err == nil {
			return path
		}
	}
	return ""
}
