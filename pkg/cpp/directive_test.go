package cpp

import (
	"reflect"
	"testing"
)

func parseDirectiveLine(t *testing.T, line string) *Directive {
	t.Helper()
	tokens := lexFragment(line, SourceLoc{File: "d.h", Line: 7})
	dir, err := ParseDirectiveFromTokens(tokens, SourceLoc{File: "d.h", Line: 7})
	if err != nil {
		t.Fatalf("ParseDirectiveFromTokens(%q): %v", line, err)
	}
	return dir
}

func TestParseDirective_Types(t *testing.T) {
	tests := []struct {
		line string
		want DirectiveType
	}{
		{"", DIR_EMPTY},
		{"define X 1", DIR_DEFINE},
		{"undef X", DIR_UNDEF},
		{"include <a.h>", DIR_INCLUDE},
		{"include_next <a.h>", DIR_INCLUDE_NEXT},
		{"import \"a.h\"", DIR_IMPORT},
		{"if 1", DIR_IF},
		{"ifdef X", DIR_IFDEF},
		{"ifndef X", DIR_IFNDEF},
		{"elif 0", DIR_ELIF},
		{"else", DIR_ELSE},
		{"endif", DIR_ENDIF},
		{"line 10", DIR_LINE},
		{"12 \"x.h\" 1 3", DIR_LINEMARKER},
		{"error boom", DIR_ERROR},
		{"warning hmm", DIR_WARNING},
		{"pragma pack(push, 1)", DIR_PRAGMA},
		{"ident \"v1\"", DIR_IGNORED},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			dir := parseDirectiveLine(t, tt.line)
			if dir.Type != tt.want {
				t.Errorf("type = %v, want %v", dir.Type, tt.want)
			}
			if dir.Loc.Line != 7 {
				t.Errorf("loc line = %d, want 7", dir.Loc.Line)
			}
		})
	}
}

func TestParseDirective_Define(t *testing.T) {
	tests := []struct {
		line         string
		name         string
		functionLike bool
		params       []string
		variadic     bool
		body         string
	}{
		{"define PI 3.14", "PI", false, nil, false, "3.14"},
		{"define FLAG", "FLAG", false, nil, false, ""},
		{"define PAREN (x)", "PAREN", false, nil, false, "(x)"},
		{"define ADD(a, b) ((a) + (b))", "ADD", true, []string{"a", "b"}, false, "((a) + (b))"},
		{"define NOARGS() 0", "NOARGS", true, nil, false, "0"},
		{"define LOG(fmt, ...) printf(fmt, __VA_ARGS__)", "LOG", true, []string{"fmt"}, true, "printf(fmt, __VA_ARGS__)"},
		{"define GLOG(args...) f(args)", "GLOG", true, nil, true, "f(__VA_ARGS__)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := parseDirectiveLine(t, tt.line)
			if dir.Identifier != tt.name || dir.IsFunctionLike != tt.functionLike || dir.IsVariadic != tt.variadic {
				t.Errorf("got %s fn=%v variadic=%v", dir.Identifier, dir.IsFunctionLike, dir.IsVariadic)
			}
			if !reflect.DeepEqual(dir.Params, tt.params) {
				t.Errorf("params = %v, want %v", dir.Params, tt.params)
			}
			if got := TokensToString(dir.Replacement); got != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}
		})
	}
}

func TestParseDirective_Operands(t *testing.T) {
	if dir := parseDirectiveLine(t, "include <sys/types.h>"); dir.HeaderName != "<sys/types.h>" {
		t.Errorf("angled header = %q", dir.HeaderName)
	}
	if dir := parseDirectiveLine(t, "include \"local.h\""); dir.HeaderName != "\"local.h\"" {
		t.Errorf("quoted header = %q", dir.HeaderName)
	}
	if dir := parseDirectiveLine(t, "include HEADER"); dir.HeaderName != "" || len(dir.Expression) != 1 {
		t.Errorf("computed include = %+v", dir)
	}
	dir := parseDirectiveLine(t, "line 42 \"gen.c\"")
	if dir.LineNum != 42 || dir.FileName != "gen.c" {
		t.Errorf("#line = %d %q", dir.LineNum, dir.FileName)
	}
	dir = parseDirectiveLine(t, "5 \"/usr/include/stdio.h\" 1 3")
	if dir.LineNum != 5 || dir.FileName != "/usr/include/stdio.h" || !reflect.DeepEqual(dir.Flags, []int{1, 3}) {
		t.Errorf("marker = %+v", dir)
	}
	if dir := parseDirectiveLine(t, "error  missing  config "); dir.Message != "missing  config" {
		t.Errorf("message = %q", dir.Message)
	}
}

func TestParseDirective_Errors(t *testing.T) {
	for _, line := range []string{
		"bogus",
		"define",
		"define 1X",
		"define F(a, a",
		"define F(a b) x",
		"ifdef",
		"include",
		"if",
		"line x",
	} {
		t.Run(line, func(t *testing.T) {
			tokens := lexFragment(line, SourceLoc{})
			if _, err := ParseDirectiveFromTokens(tokens, SourceLoc{}); err == nil {
				t.Errorf("expected error for #%s", line)
			}
		})
	}
}

func TestDirectiveTypePredicates(t *testing.T) {
	if !DIR_ELIF.IsConditional() || DIR_DEFINE.IsConditional() {
		t.Error("IsConditional")
	}
	if !DIR_INCLUDE_NEXT.IsInclude() || !DIR_IMPORT.IsInclude() || DIR_LINE.IsInclude() {
		t.Error("IsInclude")
	}
}
