package cfront

import (
	"strings"

	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// Args are the compiler-style arguments the front end understands.
type Args struct {
	IncludePaths []string
	SystemPaths  []string
	Defines      []string
	Undefines    []string
	Target       platform.TargetPlatform
	Std          string
	// Ignored collects arguments with no effect on the front end.
	Ignored []string
}

// takesValue lists flags whose value may be the next argument.
var takesValue = map[string]bool{
	"-I": true, "-isystem": true, "-D": true, "-U": true, "-target": true,
	"-include": true, "-iquote": true, "-idirafter": true, "-F": true,
}

// ParseArgs parses -I, --include-directory=, -isystem, -D, --define-macro=,
// -U, --target=, -target and -std=. Anything else is recorded as ignored.
// The target defaults to host when none is given.
func ParseArgs(args []string, host platform.TargetPlatform) (Args, error) {
	a := Args{Target: host}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		flag, value := splitFlag(arg)
		if value == "" && takesValue[flag] && !strings.HasPrefix(arg, "--") {
			if i+1 >= len(args) {
				return a, apperrors.Newf(apperrors.CodeConfig, "argument to '%s' is missing", flag)
			}
			i++
			value = args[i]
		}

		switch flag {
		case "-I", "--include-directory":
			a.IncludePaths = append(a.IncludePaths, value)
		case "-isystem":
			a.SystemPaths = append(a.SystemPaths, value)
		case "-D", "--define-macro":
			a.Defines = append(a.Defines, value)
		case "-U", "--undefine-macro":
			a.Undefines = append(a.Undefines, value)
		case "--target", "-target":
			p, err := platform.Parse(value)
			if err != nil {
				return a, err
			}
			a.Target = p
		case "-std":
			a.Std = value
		default:
			a.Ignored = append(a.Ignored, arg)
		}
	}
	return a, nil
}

// splitFlag separates the flag from an attached value: -Ifoo, -DX=1,
// --target=x, -std=c11.
func splitFlag(arg string) (string, string) {
	if strings.HasPrefix(arg, "--") || strings.HasPrefix(arg, "-std=") {
		if k, v, ok := strings.Cut(arg, "="); ok {
			return k, v
		}
		return arg, ""
	}
	for _, prefix := range []string{"-isystem", "-I", "-D", "-U"} {
		if strings.HasPrefix(arg, prefix) {
			return prefix, arg[len(prefix):]
		}
	}
	return arg, ""
}
