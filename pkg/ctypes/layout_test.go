package ctypes

import (
	"testing"

	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

func field(name string, t Type) Field {
	return Field{Name: name, Type: t, BitWidth: -1}
}

func bitfield(name string, t Type, width int64) Field {
	return Field{Name: name, Type: t, BitWidth: width}
}

func structOf(rec *Record) Type {
	rec.Complete = true
	return Tstruct{Name: rec.Name, Rec: rec}
}

func TestScalarSizes(t *testing.T) {
	tests := []struct {
		triple string
		typ    Type
		size   int64
		align  int64
	}{
		{"x86_64-unknown-linux-gnu", Long(), 8, 8},
		{"x86_64-pc-windows-msvc", Long(), 4, 4},
		{"i686-unknown-linux-gnu", Long(), 4, 4},
		{"i686-unknown-linux-gnu", LongLong(), 8, 4},
		{"i686-unknown-linux-gnu", Double(), 8, 4},
		{"i686-pc-windows-msvc", Double(), 8, 8},
		{"i686-unknown-linux-gnu", Tfloat{Size: FLong}, 12, 4},
		{"x86_64-unknown-linux-gnu", Tfloat{Size: FLong}, 16, 16},
		{"aarch64-apple-darwin", Tfloat{Size: FLong}, 8, 8},
		{"x86_64-unknown-linux-gnu", Tfloat{Size: F64, Complex: true}, 16, 8},
		{"x86_64-unknown-linux-gnu", Pointer(Void()), 8, 8},
		{"wasm32-unknown-unknown", Pointer(Void()), 4, 4},
		{"x86_64-unknown-linux-gnu", Tint{Size: I128}, 16, 16},
		{"x86_64-unknown-linux-gnu", Array(Short(), 5), 10, 2},
		{"x86_64-unknown-linux-gnu", Ttypedef{Name: "u8", Underlying: UChar()}, 1, 1},
		{"x86_64-unknown-linux-gnu", Const(Int()), 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.triple+"/"+tt.typ.String(), func(t *testing.T) {
			l := NewLayout(TargetOf(platform.MustParse(tt.triple)))
			if got := l.SizeOf(tt.typ); got != tt.size {
				t.Errorf("SizeOf = %d, want %d", got, tt.size)
			}
			if got := l.AlignOf(tt.typ); got != tt.align {
				t.Errorf("AlignOf = %d, want %d", got, tt.align)
			}
		})
	}
}

func TestIncompleteSizes(t *testing.T) {
	l := NewLayout(TargetOf(platform.X8664UnknownLinuxGnu))
	incomplete := []Type{
		Void(),
		Tfunction{Return: Int()},
		Tstruct{Name: "opaque", Rec: &Record{Name: "opaque"}},
		Tenum{Name: "later", Enum: &Enum{Name: "later"}},
		Array(Int(), -1),
		Array(Tstruct{Name: "opaque", Rec: &Record{Name: "opaque"}}, 4),
	}
	for _, typ := range incomplete {
		if got := l.SizeOf(typ); got != SizeIncomplete {
			t.Errorf("SizeOf(%v) = %d, want %d", typ, got, SizeIncomplete)
		}
	}
}

func verifyLayout(t *testing.T, l *Layout, typ Type, size, align int64, offsets []int64) {
	t.Helper()
	if got := l.SizeOf(typ); got != size {
		t.Errorf("size = %d, want %d", got, size)
	}
	if got := l.AlignOf(typ); got != align {
		t.Errorf("align = %d, want %d", got, align)
	}
	var rec *Record
	switch x := typ.(type) {
	case Tstruct:
		rec = x.Rec
	case Tunion:
		rec = x.Rec
	}
	rl, ok := l.Record(rec)
	if !ok {
		t.Fatalf("record is incomplete")
	}
	if len(rl.Offsets) != len(offsets) {
		t.Fatalf("got %d offsets, want %d", len(rl.Offsets), len(offsets))
	}
	for i, want := range offsets {
		if rl.Offsets[i] != want {
			t.Errorf("offset of field %d = %d, want %d", i, rl.Offsets[i], want)
		}
	}
}

func TestRecordLayout(t *testing.T) {
	linux64 := TargetOf(platform.X8664UnknownLinuxGnu)
	linux32 := TargetOf(platform.I686UnknownLinuxGnu)
	win64 := TargetOf(platform.X8664PcWindowsMsvc)

	tests := []struct {
		name    string
		target  Target
		typ     Type
		size    int64
		align   int64
		offsets []int64
	}{
		{
			name:    "natural padding",
			target:  linux64,
			typ:     structOf(&Record{Name: "pair", Fields: []Field{field("c", Char()), field("i", Int())}}),
			size:    8,
			align:   4,
			offsets: []int64{0, 32},
		},
		{
			name:    "trailing padding",
			target:  linux64,
			typ:     structOf(&Record{Name: "tail", Fields: []Field{field("p", Pointer(Void())), field("c", Char())}}),
			size:    16,
			align:   8,
			offsets: []int64{0, 64},
		},
		{
			name:    "packed attribute",
			target:  linux64,
			typ:     structOf(&Record{Name: "wire", Packed: true, Fields: []Field{field("c", Char()), field("i", Int())}}),
			size:    5,
			align:   1,
			offsets: []int64{0, 8},
		},
		{
			name:    "pragma pack 2",
			target:  linux64,
			typ:     structOf(&Record{Name: "p2", MaxFieldAlign: 2, Fields: []Field{field("c", Char()), field("i", Int())}}),
			size:    6,
			align:   2,
			offsets: []int64{0, 16},
		},
		{
			name:    "aligned record",
			target:  linux64,
			typ:     structOf(&Record{Name: "line", Align: 16, Fields: []Field{field("c", Char())}}),
			size:    16,
			align:   16,
			offsets: []int64{0},
		},
		{
			name:    "aligned field",
			target:  linux64,
			typ:     structOf(&Record{Name: "af", Fields: []Field{field("c", Char()), {Name: "d", Type: Int(), BitWidth: -1, Align: 8}}}),
			size:    16,
			align:   8,
			offsets: []int64{0, 64},
		},
		{
			name:    "flexible array member",
			target:  linux64,
			typ:     structOf(&Record{Name: "buffer", Fields: []Field{field("len", Int()), field("data", Array(Char(), -1))}}),
			size:    4,
			align:   4,
			offsets: []int64{0, 32},
		},
		{
			name:    "long long on i386",
			target:  linux32,
			typ:     structOf(&Record{Name: "ll", Fields: []Field{field("c", Char()), field("v", LongLong())}}),
			size:    12,
			align:   4,
			offsets: []int64{0, 32},
		},
		{
			name:   "union",
			target: linux64,
			typ: func() Type {
				rec := &Record{Name: "num", Union: true, Complete: true, Fields: []Field{field("c", Char()), field("d", Double())}}
				return Tunion{Name: "num", Rec: rec}
			}(),
			size:    8,
			align:   8,
			offsets: []int64{0, 0},
		},
		{
			name:   "gcc bitfields share storage",
			target: linux64,
			typ: structOf(&Record{Name: "flags", Fields: []Field{
				bitfield("a", UInt(), 3),
				bitfield("", UInt(), 0),
				bitfield("b", Int(), 5),
			}}),
			size:    8,
			align:   4,
			offsets: []int64{0, 32, 32},
		},
		{
			name:    "gcc bitfields of mixed types",
			target:  linux64,
			typ:     structOf(&Record{Name: "mixed", Fields: []Field{bitfield("a", Char(), 3), bitfield("b", Int(), 5)}}),
			size:    4,
			align:   4,
			offsets: []int64{0, 3},
		},
		{
			name:    "gcc bitfield does not straddle its unit",
			target:  linux64,
			typ:     structOf(&Record{Name: "straddle", Fields: []Field{bitfield("a", UInt(), 30), bitfield("b", UInt(), 5)}}),
			size:    8,
			align:   4,
			offsets: []int64{0, 32},
		},
		{
			name:    "msvc bitfields of mixed types",
			target:  win64,
			typ:     structOf(&Record{Name: "mixed", Fields: []Field{bitfield("a", Char(), 3), bitfield("b", Int(), 5)}}),
			size:    8,
			align:   4,
			offsets: []int64{0, 32},
		},
		{
			name:    "msvc bitfields of one type",
			target:  win64,
			typ:     structOf(&Record{Name: "same", Fields: []Field{bitfield("a", UInt(), 3), bitfield("b", UInt(), 5), field("c", Char())}}),
			size:    8,
			align:   4,
			offsets: []int64{0, 3, 32},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifyLayout(t, NewLayout(tt.target), tt.typ, tt.size, tt.align, tt.offsets)
		})
	}
}

func TestFieldOffset(t *testing.T) {
	l := NewLayout(TargetOf(platform.X8664UnknownLinuxGnu))
	rec := &Record{Name: "pair", Complete: true, Fields: []Field{field("c", Char()), field("i", Int())}}
	if off, ok := l.FieldOffset(rec, "i"); !ok || off != 32 {
		t.Errorf("FieldOffset(i) = %d, %v; want 32, true", off, ok)
	}
	if _, ok := l.FieldOffset(rec, "missing"); ok {
		t.Error("FieldOffset(missing) should fail")
	}
	if _, ok := l.FieldOffset(&Record{Name: "fwd"}, "x"); ok {
		t.Error("FieldOffset on an incomplete record should fail")
	}
}

func TestTargetOf(t *testing.T) {
	win := TargetOf(platform.X8664PcWindowsGnu)
	if !win.MSBitfields || win.LongSize != 4 || win.PointerSize != 8 {
		t.Errorf("windows-gnu target = %+v", win)
	}
	mac := TargetOf(platform.Aarch64AppleDarwin)
	if mac.MSBitfields || mac.LongSize != 8 {
		t.Errorf("darwin target = %+v", mac)
	}
}
