package cast

import (
	"encoding/json"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func sampleTree() *AbstractSyntaxTree {
	a := NewAbstractSyntaxTree("api.h", "x86_64-unknown-linux-gnu", "x86_64-unknown-linux-gnu")
	intType := TypeInfo{Name: "int", Kind: KindPrimitive, SizeOf: 4, AlignOf: intPtr(4)}
	loc := Location{FileName: "api.h", FilePath: "api.h", Line: 3, Column: 5}
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(a.Add(&Function{
		Name:              "add",
		Location:          loc,
		CallingConvention: CallingConventionC,
		ReturnType:        intType,
		Parameters: []FunctionParameter{
			{Name: "a", Type: intType},
			{Name: "b", Type: intType},
		},
	}))
	must(a.Add(&Record{
		Kind:     KindStruct,
		Name:     "pair",
		Location: loc,
		SizeOf:   8,
		AlignOf:  4,
		Fields: []RecordField{
			{Name: "x", Type: intType, OffsetOf: 0, SizeOf: 4},
			{Name: "y", Type: intType, OffsetOf: 4, SizeOf: 4, BitWidthOf: intPtr(3), BitOffsetOf: intPtr(32)},
		},
	}))
	must(a.Add(&OpaqueType{Name: "handle", Location: loc}))
	must(a.Add(&EnumConstant{Name: "RED", Type: intType, Value: -1}))
	must(a.Add(&MacroObject{Name: "VERSION", TypeName: "int", Value: "3"}))
	ptr := VoidPointer(8)
	must(a.Add(&TypeAlias{Name: "ctx_t", Location: loc, UnderlyingType: ptr}))
	return a
}

func TestRoundTrip(t *testing.T) {
	a := sampleTree()
	data, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !Equal(a, b) {
		again, _ := Marshal(b)
		t.Errorf("round trip changed the document:\n%s\nvs\n%s", data, again)
	}
	if got := b.Records["pair"].Fields[1].BitWidthOf; got == nil || *got != 3 {
		t.Errorf("bit width lost: %v", got)
	}
	if b.Functions["add"].Parameters[1].Name != "b" {
		t.Errorf("parameter order lost: %+v", b.Functions["add"].Parameters)
	}
}

func TestMarshalKeys(t *testing.T) {
	data, err := Marshal(sampleTree())
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, key := range []string{
		`"file_name": "api.h"`,
		`"platform_requested"`,
		`"calling_convention": "C"`,
		`"kind": "Struct"`,
		`"offset_of": 4`,
		`"bit_offset_of": 32`,
		`"enum_constants"`,
	} {
		if !strings.Contains(text, key) {
			t.Errorf("missing %s in\n%s", key, text)
		}
	}
	// Primitive types have no location.
	if !strings.Contains(text, `"location": null`) {
		t.Errorf("expected null locations in\n%s", text)
	}
	if strings.Index(text, `"add"`) > strings.Index(text, `"ctx_t"`) {
		t.Error("collections are not written in key order")
	}
}

func TestAddDuplicate(t *testing.T) {
	a := sampleTree()
	err := a.Add(&OpaqueType{Name: "handle"})
	if err == nil || !strings.Contains(err.Error(), "duplicate OpaqueType 'handle'") {
		t.Errorf("Add duplicate = %v", err)
	}
	if err := a.Add(&Pointer{Name: "int*"}); err == nil {
		t.Error("pointers must not be added to the document")
	}
	if a.Len() != 6 {
		t.Errorf("Len = %d, want 6", a.Len())
	}
}

func TestEqual(t *testing.T) {
	a, b := sampleTree(), sampleTree()
	if !Equal(a, b) {
		t.Fatal("identical trees differ")
	}
	b.Records["pair"].Fields[0].PaddingOf = 1
	if Equal(a, b) {
		t.Error("padding change not detected")
	}
	if Equal(a, nil) || !Equal(nil, nil) {
		t.Error("nil handling")
	}
}

func TestKindText(t *testing.T) {
	for k := KindUnknown; k <= KindMacroObject; k++ {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("%d: %v", k, err)
		}
		var back Kind
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Errorf("%s round trip = %v, %v", text, back, err)
		}
	}
	var k Kind
	if err := json.Unmarshal([]byte(`"Bogus"`), &k); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		a, b Location
		want int
	}{
		{Location{FileName: "a.h", Line: 2}, Location{FileName: "b.h", Line: 1}, -1},
		{Location{FileName: "a.h", Line: 2}, Location{FileName: "a.h", Line: 1}, 1},
		{Location{FileName: "a.h", Line: 2, Column: 3}, Location{FileName: "a.h", Line: 2, Column: 3}, 0},
		{Location{FileName: "a.h", Line: 2, Column: 1}, Location{FileName: "a.h", Line: 2, Column: 9}, -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
	if !NoLocation.IsNull() || NoLocation.String() != "" {
		t.Error("NoLocation")
	}
	var l Location
	if err := json.Unmarshal([]byte(`{"file_name":"x.h","line":4,"column":2}`), &l); err != nil {
		t.Fatal(err)
	}
	if l.String() != "x.h:4:2" {
		t.Errorf("String = %q", l.String())
	}
}
