package cpp

import (
	"errors"
	"strings"
	"testing"
)

// defineAll runs each line of src as a #define of api.h, numbering lines
// from 1.
func defineAll(t *testing.T, src string) *MacroTable {
	t.Helper()
	mt := NewMacroTable()
	for i, line := range strings.Split(strings.TrimSpace(src), "\n") {
		loc := SourceLoc{File: "api.h", Line: i + 1}
		dir, err := ParseDirectiveFromTokens(tokenize(strings.TrimPrefix(strings.TrimSpace(line), "#")), loc)
		if err != nil {
			t.Fatalf("line %d %q: %v", i+1, line, err)
		}
		if err := mt.DefineFromDirective(dir); err != nil {
			t.Fatalf("line %d %q: %v", i+1, line, err)
		}
	}
	return mt
}

func expandString(t *testing.T, mt *MacroTable, input string) string {
	t.Helper()
	out, err := NewExpander(mt).Expand(tokenize(input))
	if err != nil {
		t.Fatalf("Expand(%q) error: %v", input, err)
	}
	return TokensToString(out)
}

// squash drops all whitespace so that spacing left by empty expansions
// does not matter.
func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestExpandHeaderIdioms(t *testing.T) {
	tests := []struct {
		name    string
		defines string
		input   string
		want    string
	}{
		{
			name:    "empty export macro",
			defines: "#define API_DECL",
			input:   "API_DECL int api_open(const char *path);",
			want:    "intapi_open(constchar*path);",
		},
		{
			name:    "visibility attribute",
			defines: `#define API_DECL __attribute__((visibility("default")))`,
			input:   "API_DECL void api_close(void);",
			want:    `__attribute__((visibility("default")))voidapi_close(void);`,
		},
		{
			name: "windows import with calling convention",
			defines: `#define API_CALL __stdcall
#define API_DECL(ret) __declspec(dllimport) ret API_CALL`,
			input: "API_DECL(int) api_poll(int timeout);",
			want:  "__declspec(dllimport)int__stdcallapi_poll(inttimeout);",
		},
		{
			name: "prefixed names",
			defines: `#define API_PREFIX api_
#define API_NAME(n) API_CAT(API_PREFIX, n)
#define API_CAT(a, b) API_CAT2(a, b)
#define API_CAT2(a, b) a ## b`,
			input: "int API_NAME(version)(void);",
			want:  "intapi_version(void);",
		},
		{
			name: "macro naming a function-like macro",
			defines: `#define API_FN(ret, name) ret name
#define EXPORT_FN API_FN`,
			input: "EXPORT_FN(int, api_init)(void);",
			want:  "intapi_init(void);",
		},
		{
			name:    "function-like name without arguments",
			defines: "#define min(a, b) ((a) < (b) ? (a) : (b))",
			input:   "int min; int (min)(int, int);",
			want:    "intmin;int(min)(int,int);",
		},
		{
			name: "version arithmetic",
			defines: `#define API_MAJOR 2
#define API_MINOR 7
#define API_VERSION (API_MAJOR * 100 + API_MINOR)`,
			input: "API_VERSION",
			want:  "(2*100+7)",
		},
		{
			name: "empty arguments",
			defines: `#define NOARGS() 1
#define ONE(x) [x]`,
			input: "NOARGS() ONE()",
			want:  "1[]",
		},
		{
			name:    "argument spanning lines",
			defines: "#define PAIR(a, b) a + b",
			input:   "PAIR(1,\n 2)",
			want:    "1+2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := defineAll(t, tt.defines)
			if got := squash(expandString(t, mt, tt.input)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecursiveExpansionPrevention(t *testing.T) {
	tests := []struct {
		name    string
		defines string
		input   string
		want    string
	}{
		// The replacement list keeps its inner spaces.
		{"direct self-reference", "#define X X + 1", "X", "X + 1"},
		{"errno idiom", "#define errno errno", "errno", "errno"},
		{"indirect", "#define A B\n#define B A", "A", "A"},
		{"function self-reference", "#define f(x) x + f(x)", "f(1)", "1 + f(1)"},
		{"argument may use the macro", "#define f(x) (x)", "f(f(1))", "((1))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := defineAll(t, tt.defines)
			if got := expandString(t, mt, tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringification(t *testing.T) {
	mt := defineAll(t, `#define STR(x) #x
#define XSTR(x) STR(x)
#define API_VERSION 3`)

	tests := []struct {
		input string
		want  string
	}{
		{"STR(API_VERSION)", `"API_VERSION"`},
		{"XSTR(API_VERSION)", `"3"`},
		{"STR(  a   +\tb  )", `"a + b"`},
		{`STR("v\n")`, `"\"v\\n\""`},
		{`STR('"')`, `"'\"'"`},
		{"STR()", `""`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandString(t, mt, tt.input); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTokenPasting(t *testing.T) {
	mt := defineAll(t, `#define CAT(a, b) a ## b
#define API_ENUM(name) API_ ## name ## _COUNT
#define ARROW(a) a ## >`)

	tests := []struct {
		input string
		want  string
	}{
		{"CAT(api_, open)", "api_open"},
		{"CAT(1, 2)", "12"},
		{"CAT(, x)", "x"},
		{"CAT(x, )", "x"},
		{"CAT(,)", ""},
		{"API_ENUM(MODE)", "API_MODE_COUNT"},
		{"ARROW(-)", "->"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandString(t, mt, tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	out, err := NewExpander(mt).Expand(tokenize("ARROW(-)"))
	if err != nil || len(out) != 1 || out[0].Type != PP_PUNCTUATOR {
		t.Errorf("pasted -> should be one punctuator, got %v %v", out, err)
	}
}

func TestVariadicMacros(t *testing.T) {
	mt := defineAll(t, `#define LOG(fmt, ...) api_log(fmt, __VA_ARGS__)
#define LOGX(fmt, ...) api_log(fmt, ## __VA_ARGS__)
#define LOGO(fmt, ...) api_log(fmt __VA_OPT__(,) __VA_ARGS__)
#define CALL(f, args...) f(args)
#define COUNT(...) #__VA_ARGS__`)

	tests := []struct {
		input string
		want  string
	}{
		{`LOG("%d", 1)`, `api_log("%d",1)`},
		{`LOG("%d %s", 1, name)`, `api_log("%d%s",1,name)`},
		{`LOGX("done")`, `api_log("done")`},
		{`LOGX("%d", 1)`, `api_log("%d",1)`},
		{`LOGO("done")`, `api_log("done")`},
		{`LOGO("%d", 1, 2)`, `api_log("%d",1,2)`},
		{"CALL(api_reset)", "api_reset()"},
		{"CALL(api_seek, fd, 0)", "api_seek(fd,0)"},
		{"COUNT(a,b,  c)", `"a,b,c"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := squash(expandString(t, mt, tt.input)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuiltinMacros(t *testing.T) {
	mt := NewMacroTable()
	e := NewExpander(mt)

	out, err := e.ExpandAt(tokenize("__FILE__ __LINE__"), SourceLoc{File: "api.h", Line: 7})
	if err != nil {
		t.Fatal(err)
	}
	if got := TokensToString(out); got != `"api.h" 7` {
		t.Errorf("got %s", got)
	}

	first := expandString(t, mt, "__COUNTER__")
	second := expandString(t, mt, "__COUNTER__")
	if first != "0" || second != "1" {
		t.Errorf("__COUNTER__ = %s then %s", first, second)
	}
}

func TestExpansionKeepsMacroOrigin(t *testing.T) {
	mt := defineAll(t, `#define API_MAJOR 2
#define API_VERSION (API_MAJOR * 100)
#define ID(x) x`)

	input := tokenize("int v = API_VERSION; ID(w)")
	out, err := NewExpander(mt).Expand(input)
	if err != nil {
		t.Fatal(err)
	}
	at := input[6].Loc // API_VERSION
	origin := map[string]Token{}
	for _, tok := range out {
		origin[tok.Text] = tok
	}

	tests := []struct {
		text  string
		macro string
		line  int
	}{
		{"int", "", 0},
		{"(", "API_VERSION", 2},
		{"2", "API_MAJOR", 1},
		{"100", "API_VERSION", 2},
		{"w", "ID", 3},
	}
	for _, tt := range tests {
		tok, ok := origin[tt.text]
		if !ok {
			t.Errorf("%q missing from %v", tt.text, out)
			continue
		}
		if tok.Macro != tt.macro || (tt.macro != "" && (tok.Def.File != "api.h" || tok.Def.Line != tt.line)) {
			t.Errorf("%q from %q at %s, want %q at api.h:%d", tt.text, tok.Macro, tok.Def, tt.macro, tt.line)
		}
	}
	if got := origin["100"].Loc; got != at {
		t.Errorf("expanded token located at %v, want the invocation %v", got, at)
	}
}

func TestExpandMacro(t *testing.T) {
	mt := defineAll(t, `#define STR(x) #x
#define XSTR(x) STR(x)
#define API_VERSION 3
#define API_VERSION_STR XSTR(API_VERSION)
#define API_LINE __LINE__`)
	e := NewExpander(mt)

	out, err := e.ExpandMacro("API_VERSION_STR")
	if err != nil {
		t.Fatal(err)
	}
	if got := TokensToString(out); got != `"3"` {
		t.Errorf("API_VERSION_STR = %s", got)
	}
	if out, err := e.ExpandMacro("API_LINE"); err != nil || TokensToString(out) != "5" {
		t.Errorf("API_LINE = %v, %v; want its definition line", out, err)
	}
	if _, err := e.ExpandMacro("XSTR"); err == nil {
		t.Error("function-like macros cannot be expanded on their own")
	}
	if _, err := e.ExpandMacro("API_MISSING"); err == nil {
		t.Error("undefined macro should fail")
	}
}

func TestExpanderErrors(t *testing.T) {
	mt := defineAll(t, `#define PAIR(a, b) a b
#define WRAP PAIR(1)
#define BAD(x) # y
#define CAT(a, b) a ## b
#define LOG(fmt, ...) fmt`)

	tests := []struct {
		input string
		want  []string
	}{
		{"PAIR(1)", []string{"in expansion of macro PAIR (defined at api.h:1)", "requires 2 arguments, got 1"}},
		{"PAIR(1, 2, 3)", []string{"requires 2 arguments, got 3"}},
		{"PAIR(1, 2", []string{"unterminated argument list"}},
		{"WRAP", []string{"in expansion of macro WRAP (defined at api.h:2)", "macro PAIR (defined at api.h:1)"}},
		{"BAD(1)", []string{"api.h:3", "not followed by a macro parameter"}},
		{"CAT(+, /)", []string{"does not give a valid preprocessing token"}},
		{"LOG()", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewExpander(mt).Expand(tokenize(tt.input))
			if len(tt.want) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			var expErr *ExpansionError
			if !errors.As(err, &expErr) {
				t.Errorf("error %v is not an ExpansionError", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q should mention %q", err, w)
				}
			}
		})
	}
}
