// Package ctypes defines the C type system used by the front end: scalar,
// derived and tagged types plus the sugar (typedef, elaborated, attributed,
// qualified) that the explorer needs to see.
package ctypes

import (
	"strconv"
	"strings"
)

// Type is the interface for all C types
type Type interface {
	implType()
	String() string
}

// Signedness represents signed/unsigned for integer types
type Signedness int

const (
	Signed Signedness = iota
	Unsigned
)

func (s Signedness) String() string {
	if s == Signed {
		return "signed"
	}
	return "unsigned"
}

// IntSize represents the size of integer types
type IntSize int

const (
	I8 IntSize = iota
	I16
	I32
	IBool
	I128
)

func (s IntSize) String() string {
	names := []string{"i8", "i16", "i32", "ibool", "i128"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// FloatSize represents the size of floating-point types
type FloatSize int

const (
	F32 FloatSize = iota
	F64
	FLong // long double
	F16
)

func (s FloatSize) String() string {
	names := []string{"f32", "f64", "flong", "f16"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// CallConv is the calling convention of a function type.
type CallConv int

const (
	CallC CallConv = iota
	CallStdcall
	CallFastcall
	CallVectorcall
	CallThiscall
	CallPascal
	CallWin64
	CallSysV
	CallRegcall
)

var callConvNames = []string{"cdecl", "stdcall", "fastcall", "vectorcall", "thiscall", "pascal", "ms_abi", "sysv_abi", "regcall"}

func (c CallConv) String() string {
	if int(c) < len(callConvNames) {
		return callConvNames[c]
	}
	return "?"
}

// ParseCallConv maps an attribute or keyword spelling (without underscores)
// to a calling convention.
func ParseCallConv(name string) (CallConv, bool) {
	for i, n := range callConvNames {
		if n == name {
			return CallConv(i), true
		}
	}
	return CallC, false
}

// Tvoid represents the void type
type Tvoid struct{}

// Tint represents char, short, int, _Bool and __int128. Plain marks char
// written without signed/unsigned.
type Tint struct {
	Size  IntSize
	Sign  Signedness
	Plain bool
}

// Tlong represents long and long long
type Tlong struct {
	Sign     Signedness
	LongLong bool
}

// Tfloat represents floating-point types, optionally _Complex
type Tfloat struct {
	Size    FloatSize
	Complex bool
}

// Tpointer represents pointer types
type Tpointer struct {
	Elem Type
}

// Tarray represents array types
type Tarray struct {
	Elem Type
	Size int64 // -1 for incomplete array
}

// Tfunction represents function types
type Tfunction struct {
	Params   []Type
	Return   Type
	VarArg   bool
	NoProto  bool // declared without a parameter list
	CallConv CallConv
}

// Tstruct represents struct types
type Tstruct struct {
	Name string
	Rec  *Record
}

// Tunion represents union types
type Tunion struct {
	Name string
	Rec  *Record
}

// Tenum represents enum types
type Tenum struct {
	Name string
	Enum *Enum
}

// Ttypedef is a use of a typedef name
type Ttypedef struct {
	Name       string
	Underlying Type
}

// Telaborated is a tag type written with its keyword, e.g. `struct foo`
type Telaborated struct {
	Named Type
}

// Tattributed carries a type attribute such as a calling convention
type Tattributed struct {
	Modified Type
	Attr     string
}

// Tqualified adds cv-qualifiers to a type
type Tqualified struct {
	Elem     Type
	Const    bool
	Volatile bool
	Restrict bool
}

// Tbuiltin is a compiler-provided type without an exposed structure, such
// as __builtin_va_list
type Tbuiltin struct {
	Name      string
	Canonical Type
}

// Record is the shared definition behind struct and union types. Forward
// declarations and the later definition point at the same Record.
type Record struct {
	Name          string
	Union         bool
	Fields        []Field
	Complete      bool
	Packed        bool  // __attribute__((packed))
	Align         int64 // aligned attribute in bytes, 0 if none
	MaxFieldAlign int64 // #pragma pack value in effect, 0 if none
	TypedefName   string
	Where         string // file:line:col, used to spell anonymous records
}

// Field represents a struct or union field
type Field struct {
	Name     string
	Type     Type
	BitWidth int64 // -1 when not a bitfield
	Align    int64 // aligned attribute or _Alignas, 0 if none
	Packed   bool
}

// IsBitfield reports whether the field has a declared width.
func (f Field) IsBitfield() bool {
	return f.BitWidth >= 0
}

// Enum is the shared definition behind an enum type.
type Enum struct {
	Name        string
	Underlying  Type
	Constants   []EnumConstant
	Complete    bool
	TypedefName string
	Where       string
}

// EnumConstant is one enumerator with its value
type EnumConstant struct {
	Name  string
	Value int64
}

// Marker methods for Type interface
func (Tvoid) implType()       {}
func (Tint) implType()        {}
func (Tlong) implType()       {}
func (Tfloat) implType()      {}
func (Tpointer) implType()    {}
func (Tarray) implType()      {}
func (Tfunction) implType()   {}
func (Tstruct) implType()     {}
func (Tunion) implType()      {}
func (Tenum) implType()       {}
func (Ttypedef) implType()    {}
func (Telaborated) implType() {}
func (Tattributed) implType() {}
func (Tqualified) implType()  {}
func (Tbuiltin) implType()    {}

// String methods for types
func (Tvoid) String() string { return "void" }

func (t Tint) String() string {
	switch t.Size {
	case IBool:
		return "_Bool"
	case I8:
		if t.Plain {
			return "char"
		}
		return t.Sign.String() + " char"
	case I128:
		if t.Sign == Unsigned {
			return "unsigned __int128"
		}
		return "__int128"
	}
	sign := ""
	if t.Sign == Unsigned {
		sign = "unsigned "
	}
	if t.Size == I16 {
		return sign + "short"
	}
	return sign + "int"
}

func (t Tlong) String() string {
	name := "long"
	if t.LongLong {
		name = "long long"
	}
	if t.Sign == Unsigned {
		return "unsigned " + name
	}
	return name
}

func (t Tfloat) String() string {
	var name string
	switch t.Size {
	case F32:
		name = "float"
	case FLong:
		name = "long double"
	case F16:
		name = "_Float16"
	default:
		name = "double"
	}
	if t.Complex {
		return "_Complex " + name
	}
	return name
}

func (t Tpointer) String() string    { return Spell(t) }
func (t Tarray) String() string      { return Spell(t) }
func (t Tfunction) String() string   { return Spell(t) }
func (t Tattributed) String() string { return Spell(t) }
func (t Tqualified) String() string  { return Spell(t) }

func (t Tstruct) String() string { return tagSpelling("struct", t.Name, t.Rec) }
func (t Tunion) String() string  { return tagSpelling("union", t.Name, t.Rec) }

func (t Tenum) String() string {
	if t.Name != "" {
		return "enum " + t.Name
	}
	if t.Enum != nil && t.Enum.TypedefName != "" {
		return t.Enum.TypedefName
	}
	where := ""
	if t.Enum != nil {
		where = t.Enum.Where
	}
	return "enum (unnamed at " + where + ")"
}

func tagSpelling(keyword, name string, rec *Record) string {
	if name != "" {
		return keyword + " " + name
	}
	if rec != nil && rec.TypedefName != "" {
		return rec.TypedefName
	}
	where := ""
	if rec != nil {
		where = rec.Where
	}
	return keyword + " (unnamed at " + where + ")"
}

func (t Ttypedef) String() string    { return t.Name }
func (t Telaborated) String() string { return t.Named.String() }
func (t Tbuiltin) String() string    { return t.Name }

// Spell renders a type the way a C compiler prints it: `int *`,
// `const char *`, `int (*)(int)`, `char[16]`.
func Spell(t Type) string {
	return spell(t, "")
}

func spell(t Type, inner string) string {
	switch t := t.(type) {
	case Tpointer:
		if needsParens(t.Elem) {
			return spell(t.Elem, "(*"+inner+")")
		}
		return spell(t.Elem, "*"+inner)
	case Tarray:
		size := ""
		if t.Size >= 0 {
			size = strconv.FormatInt(t.Size, 10)
		}
		return spell(t.Elem, inner+"["+size+"]")
	case Tfunction:
		return spell(t.Return, inner+"("+paramSpelling(t)+")")
	case Tqualified:
		quals := qualifierSpelling(t)
		if p, ok := t.Elem.(Tpointer); ok {
			if inner != "" {
				quals += " "
			}
			return spell(p, quals+inner)
		}
		return quals + " " + spell(t.Elem, inner)
	case Tattributed:
		return spell(t.Modified, inner) + " __attribute__((" + t.Attr + "))"
	case nil:
		return join("<nil>", inner)
	}
	return join(t.String(), inner)
}

func join(base, inner string) string {
	switch {
	case inner == "":
		return base
	case strings.HasPrefix(inner, "["):
		return base + inner
	}
	return base + " " + inner
}

func needsParens(t Type) bool {
	switch t := t.(type) {
	case Tarray, Tfunction:
		return true
	case Tattributed:
		return needsParens(t.Modified)
	}
	return false
}

func paramSpelling(f Tfunction) string {
	if f.NoProto {
		return ""
	}
	if len(f.Params) == 0 && !f.VarArg {
		return "void"
	}
	parts := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		parts = append(parts, Spell(p))
	}
	if f.VarArg {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

func qualifierSpelling(q Tqualified) string {
	var words []string
	if q.Const {
		words = append(words, "const")
	}
	if q.Volatile {
		words = append(words, "volatile")
	}
	if q.Restrict {
		words = append(words, "restrict")
	}
	return strings.Join(words, " ")
}

// Common type constructors

// Int returns a signed 32-bit int type
func Int() Type {
	return Tint{Size: I32, Sign: Signed}
}

// UInt returns an unsigned 32-bit int type
func UInt() Type {
	return Tint{Size: I32, Sign: Unsigned}
}

// Char returns the plain char type
func Char() Type {
	return Tint{Size: I8, Sign: Signed, Plain: true}
}

// UChar returns an unsigned char type
func UChar() Type {
	return Tint{Size: I8, Sign: Unsigned}
}

// Short returns a signed short type
func Short() Type {
	return Tint{Size: I16, Sign: Signed}
}

// Bool returns _Bool
func Bool() Type {
	return Tint{Size: IBool, Sign: Unsigned}
}

// Long returns a signed long type
func Long() Type {
	return Tlong{Sign: Signed}
}

// ULong returns an unsigned long type
func ULong() Type {
	return Tlong{Sign: Unsigned}
}

// LongLong returns a signed long long type
func LongLong() Type {
	return Tlong{Sign: Signed, LongLong: true}
}

// ULongLong returns an unsigned long long type
func ULongLong() Type {
	return Tlong{Sign: Unsigned, LongLong: true}
}

// Float returns a float (32-bit) type
func Float() Type {
	return Tfloat{Size: F32}
}

// Double returns a double (64-bit) type
func Double() Type {
	return Tfloat{Size: F64}
}

// Void returns the void type
func Void() Type {
	return Tvoid{}
}

// Pointer returns a pointer to the given type
func Pointer(elem Type) Type {
	return Tpointer{Elem: elem}
}

// Array returns an array type
func Array(elem Type, size int64) Type {
	return Tarray{Elem: elem, Size: size}
}

// Const returns elem with a const qualifier added.
func Const(elem Type) Type {
	if q, ok := elem.(Tqualified); ok {
		q.Const = true
		return q
	}
	return Tqualified{Elem: elem, Const: true}
}

// Unqualified strips cv-qualifiers from the outermost level.
func Unqualified(t Type) (Type, Tqualified) {
	if q, ok := t.(Tqualified); ok {
		return q.Elem, q
	}
	return t, Tqualified{}
}

// Canonical strips typedefs, elaboration, attributes, qualifiers and builtin
// sugar down to the structural type. Nested types are left as written.
func Canonical(t Type) Type {
	for {
		switch x := t.(type) {
		case Ttypedef:
			t = x.Underlying
		case Telaborated:
			t = x.Named
		case Tattributed:
			t = x.Modified
		case Tqualified:
			t = x.Elem
		case Tbuiltin:
			t = x.Canonical
		default:
			return t
		}
	}
}

// IsInteger reports whether the canonical type is an integer or enum type.
func IsInteger(t Type) bool {
	switch Canonical(t).(type) {
	case Tint, Tlong, Tenum:
		return true
	}
	return false
}

// IsUnsigned reports whether the canonical integer type is unsigned.
func IsUnsigned(t Type) bool {
	switch x := Canonical(t).(type) {
	case Tint:
		return x.Sign == Unsigned && !x.Plain
	case Tlong:
		return x.Sign == Unsigned
	case Tenum:
		if x.Enum != nil && x.Enum.Underlying != nil {
			return IsUnsigned(x.Enum.Underlying)
		}
	}
	return false
}

// Equal checks if two types are equal
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ta := a.(type) {
	case Tvoid:
		_, ok := b.(Tvoid)
		return ok
	case Tint:
		tb, ok := b.(Tint)
		return ok && ta == tb
	case Tlong:
		tb, ok := b.(Tlong)
		return ok && ta == tb
	case Tfloat:
		tb, ok := b.(Tfloat)
		return ok && ta == tb
	case Tpointer:
		tb, ok := b.(Tpointer)
		return ok && Equal(ta.Elem, tb.Elem)
	case Tarray:
		tb, ok := b.(Tarray)
		return ok && ta.Size == tb.Size && Equal(ta.Elem, tb.Elem)
	case Tstruct:
		tb, ok := b.(Tstruct)
		return ok && ta.Name == tb.Name && ta.Rec == tb.Rec
	case Tunion:
		tb, ok := b.(Tunion)
		return ok && ta.Name == tb.Name && ta.Rec == tb.Rec
	case Tenum:
		tb, ok := b.(Tenum)
		return ok && ta.Name == tb.Name && ta.Enum == tb.Enum
	case Ttypedef:
		tb, ok := b.(Ttypedef)
		return ok && ta.Name == tb.Name
	case Telaborated:
		tb, ok := b.(Telaborated)
		return ok && Equal(ta.Named, tb.Named)
	case Tattributed:
		tb, ok := b.(Tattributed)
		return ok && ta.Attr == tb.Attr && Equal(ta.Modified, tb.Modified)
	case Tqualified:
		tb, ok := b.(Tqualified)
		return ok && ta.Const == tb.Const && ta.Volatile == tb.Volatile &&
			ta.Restrict == tb.Restrict && Equal(ta.Elem, tb.Elem)
	case Tbuiltin:
		tb, ok := b.(Tbuiltin)
		return ok && ta.Name == tb.Name
	case Tfunction:
		tb, ok := b.(Tfunction)
		if !ok || ta.VarArg != tb.VarArg || ta.NoProto != tb.NoProto ||
			ta.CallConv != tb.CallConv || len(ta.Params) != len(tb.Params) {
			return false
		}
		if !Equal(ta.Return, tb.Return) {
			return false
		}
		for i, p := range ta.Params {
			if !Equal(p, tb.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}
