package cfront

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
	"gopkg.in/yaml.v3"
)

// LayoutSpec is one case from layout.yaml
type LayoutSpec struct {
	Name    string       `yaml:"name"`
	Target  string       `yaml:"target"`
	Header  string       `yaml:"header"`
	Records []RecordSpec `yaml:"records"`
}

// RecordSpec is the expected layout of one record
type RecordSpec struct {
	Name   string      `yaml:"name"`
	Size   int64       `yaml:"size"`
	Align  int64       `yaml:"align"`
	Fields []FieldSpec `yaml:"fields"`
}

// FieldSpec is the expected bit offset of a named field
type FieldSpec struct {
	Name   string `yaml:"name"`
	Offset int64  `yaml:"offset"`
}

func writeHeader(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func parseHeader(t *testing.T, target platform.TargetPlatform, src string, args ...string) cindex.TranslationUnit {
	t.Helper()
	path := writeHeader(t, t.TempDir(), "test.h", src)
	tu, err := (&Parser{Host: target}).Parse(context.Background(), path, args)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tu
}

// findCursor returns the first cursor of kind named name, searching records
// recursively.
func findCursor(t *testing.T, root cindex.Cursor, kind cindex.CursorKind, name string) cindex.Cursor {
	t.Helper()
	found := cindex.Descendants(root,
		func(c cindex.Cursor) bool { return c.Kind() == kind && c.Spelling() == name },
		func(c cindex.Cursor) bool {
			return c.Kind() == cindex.CursorStructDecl || c.Kind() == cindex.CursorUnionDecl
		})
	if len(found) == 0 {
		t.Fatalf("no %s cursor named %q", kind, name)
	}
	return found[0]
}

func findChild(t *testing.T, c cindex.Cursor, name string) cindex.Cursor {
	t.Helper()
	for _, child := range c.Children() {
		if child.Spelling() == name {
			return child
		}
	}
	t.Fatalf("%s has no child %q", c.Spelling(), name)
	return nil
}

func isRecordDecl(c cindex.Cursor) bool {
	return c.Kind() == cindex.CursorStructDecl || c.Kind() == cindex.CursorUnionDecl
}

func TestRecordLayoutYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/layout.yaml")
	if err != nil {
		t.Fatalf("failed to read layout.yaml: %v", err)
	}
	var file struct {
		Tests []LayoutSpec `yaml:"tests"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to parse layout.yaml: %v", err)
	}

	for _, tc := range file.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			tu := parseHeader(t, platform.MustParse(tc.Target), tc.Header)
			for _, want := range tc.Records {
				records := cindex.Descendants(tu.Cursor(),
					func(c cindex.Cursor) bool { return isRecordDecl(c) && c.Spelling() == want.Name },
					nil)
				if len(records) == 0 {
					t.Fatalf("record %q not found", want.Name)
				}
				rec := records[0]
				if got := rec.Type().SizeOf(); got != want.Size {
					t.Errorf("%s: size = %d, want %d", want.Name, got, want.Size)
				}
				if got := rec.Type().AlignOf(); got != want.Align {
					t.Errorf("%s: align = %d, want %d", want.Name, got, want.Align)
				}
				for _, f := range want.Fields {
					if got := findChild(t, rec, f.Name).FieldOffset(); got != f.Offset {
						t.Errorf("%s.%s: offset = %d, want %d", want.Name, f.Name, got, f.Offset)
					}
				}
			}
		})
	}
}

func TestTopLevelCursors(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, `
struct point { int x; int y; };
enum color { RED, GREEN };
typedef struct point point_t;
extern int counter;
static int hidden;
int area(const struct point *p);
`)
	type want struct {
		kind cindex.CursorKind
		name string
	}
	wants := []want{
		{cindex.CursorStructDecl, "point"},
		{cindex.CursorEnumDecl, "color"},
		{cindex.CursorTypedefDecl, "point_t"},
		{cindex.CursorVarDecl, "counter"},
		{cindex.CursorVarDecl, "hidden"},
		{cindex.CursorFunctionDecl, "area"},
	}
	var got []want
	for _, c := range tu.Cursor().Children() {
		if c.Kind() == cindex.CursorMacroDefinition || c.Kind() == cindex.CursorInclusionDirective {
			continue
		}
		got = append(got, want{c.Kind(), c.Spelling()})
	}
	if len(got) != len(wants) {
		t.Fatalf("cursors = %v, want %v", got, wants)
	}
	for i := range wants {
		if got[i] != wants[i] {
			t.Errorf("cursor %d = %v, want %v", i, got[i], wants[i])
		}
	}

	if l := findCursor(t, tu.Cursor(), cindex.CursorVarDecl, "counter").Linkage(); l != cindex.LinkageExternal {
		t.Errorf("counter linkage = %s, want External", l)
	}
	if l := findCursor(t, tu.Cursor(), cindex.CursorVarDecl, "hidden").Linkage(); l != cindex.LinkageInternal {
		t.Errorf("hidden linkage = %s, want Internal", l)
	}
	if tu.PointerWidth() != 64 {
		t.Errorf("PointerWidth = %d, want 64", tu.PointerWidth())
	}
}

func TestTypedefOfUntaggedStruct(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, "typedef struct { int x; } point;\n")

	rec := tu.Cursor().Children()[0]
	if rec.Kind() != cindex.CursorStructDecl {
		t.Fatalf("first cursor kind = %s, want StructDecl", rec.Kind())
	}
	if rec.Spelling() != "point" || rec.IsAnonymous() {
		t.Errorf("struct spelling = %q anonymous = %v, want point, false", rec.Spelling(), rec.IsAnonymous())
	}

	td := findCursor(t, tu.Cursor(), cindex.CursorTypedefDecl, "point")
	under := td.TypedefUnderlyingType()
	if under.Kind() != cindex.TypeElaborated {
		t.Fatalf("underlying kind = %s, want Elaborated", under.Kind())
	}
	named := under.Named()
	if named.Kind() != cindex.TypeRecord {
		t.Fatalf("named kind = %s, want Record", named.Kind())
	}
	if decl := named.Declaration(); decl == nil || !decl.Equal(rec) {
		t.Errorf("Declaration() does not return the struct cursor")
	}
	if got := td.Type().Canonical().Kind(); got != cindex.TypeRecord {
		t.Errorf("typedef canonical kind = %s, want Record", got)
	}
}

func TestAnonymousMembers(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, `
struct variant {
	int kind;
	union { int i; float f; };
	struct { char tag; } named;
};
`)
	rec := findCursor(t, tu.Cursor(), cindex.CursorStructDecl, "variant")
	var anon []cindex.Cursor
	for _, c := range rec.Children() {
		if isRecordDecl(c) {
			anon = append(anon, c)
		}
	}
	if len(anon) != 2 {
		t.Fatalf("nested record cursors = %d, want 2", len(anon))
	}
	if !anon[0].IsAnonymous() || anon[0].Kind() != cindex.CursorUnionDecl {
		t.Errorf("first nested record: kind %s anonymous %v", anon[0].Kind(), anon[0].IsAnonymous())
	}
	if got := anon[0].FieldOffset(); got != 32 {
		t.Errorf("anonymous union offset = %d, want 32", got)
	}
	if got := anon[1].FieldOffset(); got != cindex.SizeIncomplete {
		t.Errorf("struct behind a named field has offset %d, want none", got)
	}
	if got := findChild(t, rec, "named").FieldOffset(); got != 64 {
		t.Errorf("named offset = %d, want 64", got)
	}
	if got := findChild(t, anon[0], "f").BitWidth(); got != -1 {
		t.Errorf("BitWidth of a plain field = %d, want -1", got)
	}
}

func TestFunctionCursor(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, "int format(const char *fmt, int count, ...);\n")
	fn := findCursor(t, tu.Cursor(), cindex.CursorFunctionDecl, "format")

	if fn.Type().Kind() != cindex.TypeFunctionProto {
		t.Errorf("kind = %s, want FunctionProto", fn.Type().Kind())
	}
	if !fn.Type().IsVariadic() {
		t.Error("expected variadic function")
	}
	if fn.Type().CallingConv() != cindex.CallingConvC {
		t.Errorf("calling convention = %s, want C", fn.Type().CallingConv())
	}
	if fn.ResultType().Kind() != cindex.TypeInt {
		t.Errorf("result kind = %s, want Int", fn.ResultType().Kind())
	}
	args := fn.Arguments()
	if len(args) != 2 {
		t.Fatalf("arguments = %d, want 2", len(args))
	}
	if args[0].Spelling() != "fmt" || args[1].Spelling() != "count" {
		t.Errorf("argument names = %q, %q", args[0].Spelling(), args[1].Spelling())
	}
	pointee := args[0].Type().Pointee()
	if pointee.Kind() != cindex.TypeCharS || !pointee.IsConst() {
		t.Errorf("fmt pointee = %s const=%v, want const Char_S", pointee.Kind(), pointee.IsConst())
	}
}

func TestCallingConventions(t *testing.T) {
	tests := []struct {
		name       string
		target     platform.TargetPlatform
		src        string
		wantKind   cindex.TypeKind
		wantConv   cindex.CallingConv
		wantWarned bool
	}{
		{
			name:     "stdcall on x86",
			target:   platform.I686PcWindowsMsvc,
			src:      "int __stdcall f(int a);\n",
			wantKind: cindex.TypeAttributed,
			wantConv: cindex.CallingConvX86StdCall,
		},
		{
			name:     "fastcall attribute on x86",
			target:   platform.I686UnknownLinuxGnu,
			src:      "int f(int a) __attribute__((fastcall));\n",
			wantKind: cindex.TypeAttributed,
			wantConv: cindex.CallingConvX86FastCall,
		},
		{
			name:       "stdcall ignored on x64",
			target:     platform.X8664PcWindowsMsvc,
			src:        "int __stdcall f(int a);\n",
			wantKind:   cindex.TypeFunctionProto,
			wantConv:   cindex.CallingConvC,
			wantWarned: true,
		},
		{
			name:     "vectorcall on x64",
			target:   platform.X8664PcWindowsMsvc,
			src:      "int __vectorcall f(int a);\n",
			wantKind: cindex.TypeAttributed,
			wantConv: cindex.CallingConvX86VectorCall,
		},
		{
			name:     "default convention",
			target:   platform.Aarch64AppleDarwin,
			src:      "int f(int a);\n",
			wantKind: cindex.TypeFunctionProto,
			wantConv: cindex.CallingConvC,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := parseHeader(t, tt.target, tt.src)
			fn := findCursor(t, tu.Cursor(), cindex.CursorFunctionDecl, "f")
			if got := fn.Type().Kind(); got != tt.wantKind {
				t.Errorf("kind = %s, want %s", got, tt.wantKind)
			}
			if got := fn.Type().CallingConv(); got != tt.wantConv {
				t.Errorf("calling convention = %s, want %s", got, tt.wantConv)
			}
			warned := false
			for _, d := range tu.Diagnostics() {
				if d.Severity == cindex.SeverityWarning && strings.Contains(d.Message, "calling convention") {
					warned = true
				}
			}
			if warned != tt.wantWarned {
				t.Errorf("warned = %v, want %v (%v)", warned, tt.wantWarned, tu.Diagnostics())
			}
		})
	}
}

func TestEnumCursors(t *testing.T) {
	tests := []struct {
		name       string
		target     platform.TargetPlatform
		src        string
		wantType   cindex.TypeKind
		wantValues map[string]int64
	}{
		{
			name:       "implicit values",
			target:     platform.X8664UnknownLinuxGnu,
			src:        "enum e { A, B = 5, C, D = B + 10 };\n",
			wantType:   cindex.TypeUInt,
			wantValues: map[string]int64{"A": 0, "B": 5, "C": 6, "D": 15},
		},
		{
			name:       "negative value",
			target:     platform.X8664UnknownLinuxGnu,
			src:        "enum e { A = -1, B };\n",
			wantType:   cindex.TypeInt,
			wantValues: map[string]int64{"A": -1, "B": 0},
		},
		{
			name:       "msvc enums are int",
			target:     platform.X8664PcWindowsMsvc,
			src:        "enum e { A = 1, B = 2 };\n",
			wantType:   cindex.TypeInt,
			wantValues: map[string]int64{"A": 1, "B": 2},
		},
		{
			name:       "wide values",
			target:     platform.X8664UnknownLinuxGnu,
			src:        "enum e { A = 0x100000000 };\n",
			wantType:   cindex.TypeULong,
			wantValues: map[string]int64{"A": 0x100000000},
		},
		{
			name:       "packed enum",
			target:     platform.X8664UnknownLinuxGnu,
			src:        "enum __attribute__((packed)) e { A, B = 200 };\n",
			wantType:   cindex.TypeUChar,
			wantValues: map[string]int64{"A": 0, "B": 200},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := parseHeader(t, tt.target, tt.src)
			en := findCursor(t, tu.Cursor(), cindex.CursorEnumDecl, "e")
			if got := en.EnumIntegerType().Kind(); got != tt.wantType {
				t.Errorf("integer type = %s, want %s", got, tt.wantType)
			}
			children := en.Children()
			if len(children) != len(tt.wantValues) {
				t.Fatalf("constants = %d, want %d", len(children), len(tt.wantValues))
			}
			for _, c := range children {
				if got := c.EnumConstantValue(); got != tt.wantValues[c.Spelling()] {
					t.Errorf("%s = %d, want %d", c.Spelling(), got, tt.wantValues[c.Spelling()])
				}
			}
		})
	}
}

func TestTypeKinds(t *testing.T) {
	tests := []struct {
		name   string
		target platform.TargetPlatform
		decl   string
		want   cindex.TypeKind
	}{
		{"plain char is signed on x86", platform.X8664UnknownLinuxGnu, "char v;", cindex.TypeCharS},
		{"plain char is unsigned on arm linux", platform.Aarch64UnknownLinuxGnu, "char v;", cindex.TypeCharU},
		{"signed char", platform.Aarch64UnknownLinuxGnu, "signed char v;", cindex.TypeSChar},
		{"unsigned long long", platform.X8664UnknownLinuxGnu, "unsigned long long v;", cindex.TypeULongLong},
		{"bool", platform.X8664UnknownLinuxGnu, "_Bool v;", cindex.TypeBool},
		{"long double", platform.X8664UnknownLinuxGnu, "long double v;", cindex.TypeLongDouble},
		{"constant array", platform.X8664UnknownLinuxGnu, "int v[4];", cindex.TypeConstantArray},
		{"incomplete array", platform.X8664UnknownLinuxGnu, "extern int v[];", cindex.TypeIncompleteArray},
		{"pointer", platform.X8664UnknownLinuxGnu, "void *v;", cindex.TypePointer},
		{"elaborated enum", platform.X8664UnknownLinuxGnu, "enum e { A } v;", cindex.TypeElaborated},
		{"va_list builtin", platform.X8664UnknownLinuxGnu, "__builtin_va_list v;", cindex.TypeUnexposed},
		{"mode attribute", platform.X8664UnknownLinuxGnu, "int v __attribute__((mode(DI)));", cindex.TypeLong},
		{"int128", platform.X8664UnknownLinuxGnu, "__int128 v;", cindex.TypeInt128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := parseHeader(t, tt.target, tt.decl+"\n")
			v := findCursor(t, tu.Cursor(), cindex.CursorVarDecl, "v")
			if got := v.Type().Kind(); got != tt.want {
				t.Errorf("kind = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFunctionPointerTypedef(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, "typedef void (*callback)(int code, void *data);\n")
	td := findCursor(t, tu.Cursor(), cindex.CursorTypedefDecl, "callback")

	under := td.TypedefUnderlyingType()
	if under.Kind() != cindex.TypePointer {
		t.Fatalf("underlying kind = %s, want Pointer", under.Kind())
	}
	fn := under.Pointee()
	if fn.Kind() != cindex.TypeFunctionProto {
		t.Fatalf("pointee kind = %s, want FunctionProto", fn.Kind())
	}
	if fn.Result().Kind() != cindex.TypeVoid {
		t.Errorf("result = %s, want Void", fn.Result().Kind())
	}
	params := fn.ArgTypes()
	if len(params) != 2 || params[0].Kind() != cindex.TypeInt || params[1].Kind() != cindex.TypePointer {
		t.Errorf("unexpected parameter types %v", params)
	}
	if got := under.SizeOf(); got != 8 {
		t.Errorf("size = %d, want 8", got)
	}
}

func TestInclusionDirectives(t *testing.T) {
	dir := t.TempDir()
	writeHeader(t, dir, "inc/types.h", "typedef int handle;\n")
	main := writeHeader(t, dir, "main.h", "#include \"types.h\"\nhandle open_handle(void);\n")

	tu, err := (&Parser{Host: platform.X8664UnknownLinuxGnu}).Parse(context.Background(), main, []string{"-I" + filepath.Join(dir, "inc")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	inc := findCursor(t, tu.Cursor(), cindex.CursorInclusionDirective, "types.h")
	if got := filepath.Base(inc.IncludedFile()); got != "types.h" {
		t.Errorf("included file = %q", inc.IncludedFile())
	}
	if inc.Location().Line != 1 {
		t.Errorf("directive line = %d, want 1", inc.Location().Line)
	}
	td := findCursor(t, tu.Cursor(), cindex.CursorTypedefDecl, "handle")
	if got := filepath.Base(td.Location().File); got != "types.h" {
		t.Errorf("typedef declared in %q, want types.h", td.Location().File)
	}
	fn := findCursor(t, tu.Cursor(), cindex.CursorFunctionDecl, "open_handle")
	if fn.Location().Line != 2 {
		t.Errorf("function line = %d, want 2", fn.Location().Line)
	}
}

func TestMacroCursors(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, "#define VERSION 3\n#define MAX(a, b) ((a) > (b) ? (a) : (b))\n")

	v := findCursor(t, tu.Cursor(), cindex.CursorMacroDefinition, "VERSION")
	if v.IsMacroFunctionLike() || v.IsMacroBuiltin() {
		t.Errorf("VERSION: function-like %v builtin %v", v.IsMacroFunctionLike(), v.IsMacroBuiltin())
	}
	if v.Location().Line != 1 {
		t.Errorf("VERSION line = %d, want 1", v.Location().Line)
	}
	if !findCursor(t, tu.Cursor(), cindex.CursorMacroDefinition, "MAX").IsMacroFunctionLike() {
		t.Error("MAX should be function-like")
	}
	if !findCursor(t, tu.Cursor(), cindex.CursorMacroDefinition, "__STDC__").IsMacroBuiltin() {
		t.Error("__STDC__ should be builtin")
	}
}

func TestEvaluateMacro(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, `
typedef unsigned int uint32_t;
enum { BASE = 16 };
struct pair { int a; int b; };
#define ONE 1
#define SHIFTED (ONE << 4)
#define RATIO 1.5f
#define GREETING "hi\n"
#define MASK 0xFFFFFFFFu
#define CAST ((uint32_t)7)
#define FROM_ENUM (BASE * 2)
#define PAIR_SIZE sizeof(struct pair)
#define NEGATIVE (-ONE)
#define SQUARE(x) ((x) * (x))
#define UNKNOWN undefined_thing
#define EMPTY
`)
	before := len(tu.Diagnostics())
	tests := []struct {
		name     string
		kind     cindex.EvalKind
		i        int64
		f        float64
		s        string
		typeName string
		unsigned bool
		wantErr  bool
	}{
		{name: "ONE", kind: cindex.EvalInt, i: 1, typeName: "int"},
		{name: "SHIFTED", kind: cindex.EvalInt, i: 16, typeName: "int"},
		{name: "RATIO", kind: cindex.EvalFloat, f: 1.5, typeName: "float"},
		{name: "GREETING", kind: cindex.EvalString, s: "hi\n", typeName: "char*"},
		{name: "MASK", kind: cindex.EvalInt, i: 0xFFFFFFFF, typeName: "unsigned int", unsigned: true},
		{name: "CAST", kind: cindex.EvalInt, i: 7, typeName: "uint32_t", unsigned: true},
		{name: "FROM_ENUM", kind: cindex.EvalInt, i: 32, typeName: "int"},
		{name: "PAIR_SIZE", kind: cindex.EvalInt, i: 8, typeName: "unsigned long", unsigned: true},
		{name: "NEGATIVE", kind: cindex.EvalInt, i: -1, typeName: "int"},
		{name: "SQUARE", wantErr: true},
		{name: "UNKNOWN", wantErr: true},
		{name: "EMPTY", wantErr: true},
		{name: "NOT_DEFINED", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tu.EvaluateMacro(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				if apperrors.CodeOf(err) != apperrors.CodeMacro {
					t.Errorf("error code = %q, want %q", apperrors.CodeOf(err), apperrors.CodeMacro)
				}
				return
			}
			if err != nil {
				t.Fatalf("EvaluateMacro: %v", err)
			}
			if got.Kind != tt.kind || got.TypeName != tt.typeName || got.Unsigned != tt.unsigned {
				t.Errorf("got kind %d type %q unsigned %v, want kind %d type %q unsigned %v",
					got.Kind, got.TypeName, got.Unsigned, tt.kind, tt.typeName, tt.unsigned)
			}
			if got.Int != tt.i || got.Float != tt.f || got.Str != tt.s {
				t.Errorf("got value %d/%g/%q, want %d/%g/%q", got.Int, got.Float, got.Str, tt.i, tt.f, tt.s)
			}
		})
	}
	if n := len(tu.Diagnostics()); n != before {
		t.Errorf("evaluation left %d diagnostics behind: %v", n-before, tu.Diagnostics())
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"syntax error", "int f(;\n", ""},
		{"missing include", "#include \"missing.h\"\n", "missing.h"},
		{"static assertion", "_Static_assert(sizeof(int) == 2, \"int is 16 bits\");\n", "static assertion failed"},
		{"conflicting tags", "struct s { int a; };\nunion s *p;\n", "does not match"},
		{"unknown type", "widget_t make(void);\n", ""},
		{"typedef redefinition", "typedef int t;\ntypedef long t;\n", "typedef redefinition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeHeader(t, t.TempDir(), "bad.h", tt.src)
			_, err := (&Parser{Host: platform.X8664UnknownLinuxGnu}).Parse(context.Background(), path, nil)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !apperrors.IsParse(err) {
				t.Errorf("expected a parse error, got %v", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeHeader(t, t.TempDir(), "a.h", "int x;\n")
	if _, err := (&Parser{Host: platform.X8664UnknownLinuxGnu}).Parse(ctx, path, nil); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestTargetArgument(t *testing.T) {
	tests := []struct {
		arg        string
		wantTriple string
		wantWidth  int
	}{
		{"--target=x86_64-pc-windows", "x86_64-pc-windows-msvc", 64},
		{"--target=i686-unknown-linux-gnu", "i686-unknown-linux-gnu", 32},
		{"--target=wasm32-unknown-emscripten", "wasm32-unknown-emscripten", 32},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			tu := parseHeader(t, platform.X8664UnknownLinuxGnu, "int x;\n", tt.arg)
			if got := tu.TargetTriple(); got != tt.wantTriple {
				t.Errorf("TargetTriple = %q, want %q", got, tt.wantTriple)
			}
			if got := tu.PointerWidth(); got != tt.wantWidth {
				t.Errorf("PointerWidth = %d, want %d", got, tt.wantWidth)
			}
		})
	}
}

func TestDefinesReachHeader(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, `
#ifdef WITH_EXTRA
int extra(void);
#endif
int base(void);
`, "-DWITH_EXTRA")
	findCursor(t, tu.Cursor(), cindex.CursorFunctionDecl, "extra")
}

func TestVisibilityPragma(t *testing.T) {
	tu := parseHeader(t, platform.X8664UnknownLinuxGnu, `
#pragma GCC visibility push(hidden)
int internal_fn(void);
#pragma GCC visibility pop
int public_fn(void);
int explicit_fn(void) __attribute__((visibility("hidden")));
`)
	tests := map[string]cindex.Visibility{
		"internal_fn": cindex.VisibilityHidden,
		"public_fn":   cindex.VisibilityDefault,
		"explicit_fn": cindex.VisibilityHidden,
	}
	for name, want := range tests {
		if got := findCursor(t, tu.Cursor(), cindex.CursorFunctionDecl, name).Visibility(); got != want {
			t.Errorf("%s visibility = %d, want %d", name, got, want)
		}
	}
}

func TestLinkFrameworks(t *testing.T) {
	dir := t.TempDir()
	headers := filepath.Join(dir, "Widget.framework", "Headers")
	writeHeader(t, headers, "Widget.h", "int widget_count(void);\n")

	fw, err := LinkFrameworks([]string{filepath.Join(dir, "missing"), dir}, []string{"Widget"})
	if err != nil {
		t.Fatalf("LinkFrameworks: %v", err)
	}
	link := filepath.Join(fw.Dir, "Widget")
	if fw.Linked[link] != headers {
		t.Errorf("Linked = %v", fw.Linked)
	}
	if _, err := os.Stat(filepath.Join(link, "Widget.h")); err != nil {
		t.Errorf("header not reachable through link: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(fw.Dir); !os.IsNotExist(err) {
		t.Errorf("framework directory still exists after Close")
	}

	if _, err := LinkFrameworks([]string{dir}, []string{"Nope"}); err == nil {
		t.Error("expected error for missing framework")
	}
}
