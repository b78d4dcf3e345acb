package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"without cause", New(CodeUnreachable, "boom"), "UNREACHABLE: boom"},
		{"with cause", Wrap(CodeIO, "reading a.h", fs.ErrNotExist), "IO_ERROR: reading a.h: file does not exist"},
		{"formatted", Newf(CodeMacro, "macro %s", "X"), "MACRO_ERROR: macro X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := IOError("reading", fs.ErrPermission)
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is did not see the wrapped error")
	}
}

func TestWithDetail(t *testing.T) {
	err := ParseError("foo.h", errors.New("bad"))
	if err.Details["file"] != "foo.h" {
		t.Errorf("Details[file] = %q, want foo.h", err.Details["file"])
	}
	err = err.WithDetail("line", "3")
	if len(err.Details) != 2 {
		t.Errorf("len(Details) = %d, want 2", len(err.Details))
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("platform x86_64-unknown-linux-gnu: %w", UnknownTypeKind("Vector", "v4f"))

	tests := []struct {
		name        string
		err         error
		code        string
		parse       bool
		unsupported bool
		config      bool
	}{
		{"parse", ParseError("a.h", nil), CodeParse, true, false, false},
		{"unknown kind wrapped", wrapped, CodeUnknownTypeKind, false, true, false},
		{"unsupported", UnsupportedDeclaration("K&R"), CodeUnsupportedDeclaration, false, true, false},
		{"unreachable", Unreachable("kind %d", 99), CodeUnreachable, false, true, false},
		{"config", ConfigError("bad", nil), CodeConfig, false, false, true},
		{"plain", errors.New("plain"), "", false, false, false},
		{"nil", nil, "", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.code {
				t.Errorf("CodeOf() = %q, want %q", got, tt.code)
			}
			if got := IsParse(tt.err); got != tt.parse {
				t.Errorf("IsParse() = %v, want %v", got, tt.parse)
			}
			if got := IsUnsupported(tt.err); got != tt.unsupported {
				t.Errorf("IsUnsupported() = %v, want %v", got, tt.unsupported)
			}
			if got := IsConfig(tt.err); got != tt.config {
				t.Errorf("IsConfig() = %v, want %v", got, tt.config)
			}
		})
	}
}
