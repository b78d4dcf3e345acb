package ctypes

import "testing"

func TestTypeSpelling(t *testing.T) {
	fn := Tfunction{Params: []Type{Int()}, Return: Int()}
	anon := &Record{Where: "demo.h:3:9", Complete: true}
	tests := []struct {
		name    string
		typ     Type
		wantStr string
	}{
		{"void", Void(), "void"},
		{"int", Int(), "int"},
		{"unsigned int", UInt(), "unsigned int"},
		{"char", Char(), "char"},
		{"signed char", Tint{Size: I8, Sign: Signed}, "signed char"},
		{"unsigned char", UChar(), "unsigned char"},
		{"short", Short(), "short"},
		{"bool", Bool(), "_Bool"},
		{"long", Long(), "long"},
		{"unsigned long long", ULongLong(), "unsigned long long"},
		{"float", Float(), "float"},
		{"double", Double(), "double"},
		{"long double", Tfloat{Size: FLong}, "long double"},
		{"complex float", Tfloat{Size: F32, Complex: true}, "_Complex float"},
		{"pointer to int", Pointer(Int()), "int *"},
		{"pointer to void", Pointer(Void()), "void *"},
		{"pointer to const char", Pointer(Const(Char())), "const char *"},
		{"const pointer", Tqualified{Elem: Pointer(Int()), Const: true}, "int *const"},
		{"array of int", Array(Int(), 10), "int[10]"},
		{"incomplete array", Array(Char(), -1), "char[]"},
		{"array of pointers", Array(Pointer(Char()), 16), "char *[16]"},
		{"pointer to array", Pointer(Array(Int(), 4)), "int (*)[4]"},
		{"function", fn, "int (int)"},
		{"function pointer", Pointer(fn), "int (*)(int)"},
		{"void parameter list", Tfunction{Return: Void()}, "void (void)"},
		{"unprototyped", Tfunction{Return: Int(), NoProto: true}, "int ()"},
		{"variadic", Tfunction{Params: []Type{Pointer(Const(Char()))}, Return: Int(), VarArg: true}, "int (const char *, ...)"},
		{"named struct", Tstruct{Name: "point"}, "struct point"},
		{"elaborated union", Telaborated{Named: Tunion{Name: "u"}}, "union u"},
		{"anonymous struct", Tstruct{Rec: anon}, "struct (unnamed at demo.h:3:9)"},
		{"typedef'd anonymous struct", Tstruct{Rec: &Record{TypedefName: "point_t"}}, "point_t"},
		{"enum", Tenum{Name: "color"}, "enum color"},
		{"typedef", Ttypedef{Name: "size_t", Underlying: ULong()}, "size_t"},
		{"builtin", Tbuiltin{Name: "__builtin_va_list", Canonical: Pointer(Char())}, "__builtin_va_list"},
		{"attributed function pointer", Pointer(Tattributed{Modified: fn, Attr: "stdcall"}), "int (*)(int) __attribute__((stdcall))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestTypeEquality(t *testing.T) {
	rec := &Record{Name: "A"}
	tests := []struct {
		name  string
		a, b  Type
		equal bool
	}{
		{"int == int", Int(), Int(), true},
		{"int != unsigned int", Int(), UInt(), false},
		{"int != long", Int(), Long(), false},
		{"long != long long", Long(), LongLong(), false},
		{"int != void", Int(), Void(), false},
		{"void == void", Void(), Void(), true},
		{"plain char != signed char", Char(), Tint{Size: I8, Sign: Signed}, false},
		{"pointer to int == pointer to int", Pointer(Int()), Pointer(Int()), true},
		{"pointer to int != pointer to char", Pointer(Int()), Pointer(Char()), false},
		{"array[10] of int == array[10] of int", Array(Int(), 10), Array(Int(), 10), true},
		{"array[10] of int != array[20] of int", Array(Int(), 10), Array(Int(), 20), false},
		{"struct A == struct A", Tstruct{Name: "A", Rec: rec}, Tstruct{Name: "A", Rec: rec}, true},
		{"struct A != struct B", Tstruct{Name: "A"}, Tstruct{Name: "B"}, false},
		{"struct A != union A", Tstruct{Name: "A"}, Tunion{Name: "A"}, false},
		{"const int != int", Const(Int()), Int(), false},
		{"typedef by name", Ttypedef{Name: "T", Underlying: Int()}, Ttypedef{Name: "T"}, true},
		{"nil == nil", nil, nil, true},
		{"nil != int", nil, Int(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.equal {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.equal)
			}
		})
	}
}

func TestFunctionTypeEquality(t *testing.T) {
	fn1 := Tfunction{Params: []Type{Int(), Int()}, Return: Int()}
	fn2 := Tfunction{Params: []Type{Int(), Int()}, Return: Int()}
	fn3 := Tfunction{Params: []Type{Int()}, Return: Int()}
	fn4 := Tfunction{Params: []Type{Int(), Int()}, Return: Void()}
	fn5 := Tfunction{Params: []Type{Int(), Int()}, Return: Int(), CallConv: CallStdcall}

	if !Equal(fn1, fn2) {
		t.Error("identical function types should be equal")
	}
	if Equal(fn1, fn3) {
		t.Error("functions with different param counts should not be equal")
	}
	if Equal(fn1, fn4) {
		t.Error("functions with different return types should not be equal")
	}
	if Equal(fn1, fn5) {
		t.Error("functions with different calling conventions should not be equal")
	}
}

func TestCanonical(t *testing.T) {
	rec := &Record{Name: "s", Complete: true}
	sugared := Ttypedef{
		Name: "s_t",
		Underlying: Tqualified{
			Elem:  Telaborated{Named: Tattributed{Modified: Tstruct{Name: "s", Rec: rec}, Attr: "aligned"}},
			Const: true,
		},
	}
	if got := Canonical(sugared); !Equal(got, Tstruct{Name: "s", Rec: rec}) {
		t.Errorf("Canonical() = %v, want struct s", got)
	}
	if got := Canonical(Tbuiltin{Name: "__builtin_va_list", Canonical: Pointer(Char())}); !Equal(got, Pointer(Char())) {
		t.Errorf("Canonical(builtin) = %v, want char *", got)
	}
}

func TestIntegerPredicates(t *testing.T) {
	tests := []struct {
		typ      Type
		integer  bool
		unsigned bool
	}{
		{Int(), true, false},
		{UInt(), true, true},
		{Char(), true, false},
		{ULongLong(), true, true},
		{Ttypedef{Name: "size_t", Underlying: ULong()}, true, true},
		{Tenum{Name: "e", Enum: &Enum{Underlying: UInt(), Complete: true}}, true, true},
		{Double(), false, false},
		{Pointer(Int()), false, false},
	}
	for _, tt := range tests {
		if got := IsInteger(tt.typ); got != tt.integer {
			t.Errorf("IsInteger(%v) = %v, want %v", tt.typ, got, tt.integer)
		}
		if got := IsUnsigned(tt.typ); got != tt.unsigned {
			t.Errorf("IsUnsigned(%v) = %v, want %v", tt.typ, got, tt.unsigned)
		}
	}
}

func TestParseCallConv(t *testing.T) {
	for _, name := range []string{"cdecl", "stdcall", "fastcall", "vectorcall", "thiscall", "ms_abi"} {
		cc, ok := ParseCallConv(name)
		if !ok {
			t.Errorf("ParseCallConv(%q) failed", name)
			continue
		}
		if cc.String() != name {
			t.Errorf("ParseCallConv(%q).String() = %q", name, cc.String())
		}
	}
	if _, ok := ParseCallConv("interrupt"); ok {
		t.Error("ParseCallConv(interrupt) should fail")
	}
}

func TestIntSizeString(t *testing.T) {
	tests := []struct {
		size IntSize
		want string
	}{
		{I8, "i8"},
		{I16, "i16"},
		{I32, "i32"},
		{IBool, "ibool"},
		{I128, "i128"},
	}
	for _, tt := range tests {
		if got := tt.size.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.size, got, tt.want)
		}
	}
}
