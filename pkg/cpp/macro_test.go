package cpp

import (
	"reflect"
	"strings"
	"testing"
)

func TestMacroTable_Builtins(t *testing.T) {
	mt := NewMacroTable()
	for _, name := range []string{"__FILE__", "__LINE__", "__COUNTER__", "__STDC__", "__STDC_VERSION__"} {
		if !mt.IsDefined(name) {
			t.Errorf("%s should be predefined", name)
		}
	}
	if err := mt.DefineSimple("__LINE__", "3", SourceLoc{}); err == nil {
		t.Error("redefining __LINE__ should fail")
	}
	mt.Undefine("__FILE__")
	if !mt.IsDefined("__FILE__") {
		t.Error("built-in macros survive #undef")
	}
	if got := mt.Lookup("__STDC_VERSION__").Body(); got != "201112L" {
		t.Errorf("__STDC_VERSION__ = %q", got)
	}
}

func TestMacroTable_DefineErrors(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineSimple("defined", "1", SourceLoc{}); err == nil {
		t.Error("\"defined\" must be rejected")
	}
	if err := mt.DefineSimple("9lives", "1", SourceLoc{}); err == nil {
		t.Error("non-identifier must be rejected")
	}
	if err := mt.DefineFunction("F", []string{"a", "a"}, false, nil, SourceLoc{}); err == nil {
		t.Error("duplicate parameter must be rejected")
	}
}

func TestMacroTable_CmdlineDefines(t *testing.T) {
	mt := NewMacroTable()
	mt.ApplyCmdlineDefines([]string{"A", "B=2", "SQ(x)=((x)*(x))", "C=  spaced"}, []string{"A"})

	if mt.IsDefined("A") {
		t.Error("A should be undefined by -U")
	}
	if got := mt.Lookup("B").Body(); got != "2" {
		t.Errorf("B = %q", got)
	}
	sq := mt.Lookup("SQ")
	if sq == nil || !sq.IsFunctionLike() || !reflect.DeepEqual(sq.Params, []string{"x"}) {
		t.Fatalf("SQ = %+v", sq)
	}
	if got := mt.Lookup("C").Body(); got != "spaced" {
		t.Errorf("C = %q", got)
	}
	if sq.Loc.File != "<command line>" {
		t.Errorf("command line location = %q", sq.Loc.File)
	}
}

func TestMacroTable_FromDirectiveKeepsLocation(t *testing.T) {
	loc := SourceLoc{File: "/inc/api.h", Line: 12, Column: 1}
	dir, err := ParseDirectiveFromTokens(lexFragment("define API_VERSION 3", loc), loc)
	if err != nil {
		t.Fatal(err)
	}
	mt := NewMacroTable()
	if err := mt.DefineFromDirective(dir); err != nil {
		t.Fatal(err)
	}
	m := mt.Lookup("API_VERSION")
	if m.Loc != loc || m.Kind != MacroObject || m.Kind.String() != "object" {
		t.Errorf("macro = %+v (%s)", m, m.Kind)
	}
	names := strings.Join(mt.Names(), ",")
	if !strings.Contains(names, "API_VERSION") || !strings.HasPrefix(names, "API_VERSION") {
		t.Errorf("Names() = %s", names)
	}
}
