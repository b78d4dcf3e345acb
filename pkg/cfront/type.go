package cfront

import (
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/ctypes"
)

// typ presents a ctypes.Type through the cindex contract. A nil t is the
// invalid type.
type typ struct {
	tu *unit
	t  ctypes.Type
}

var _ cindex.Type = typ{}

func (u *unit) wrap(t ctypes.Type) cindex.Type {
	return typ{tu: u, t: t}
}

func (x typ) Kind() cindex.TypeKind {
	switch t := x.t.(type) {
	case ctypes.Tvoid:
		return cindex.TypeVoid
	case ctypes.Tint:
		return x.intKind(t)
	case ctypes.Tlong:
		switch {
		case t.LongLong && t.Sign == ctypes.Unsigned:
			return cindex.TypeULongLong
		case t.LongLong:
			return cindex.TypeLongLong
		case t.Sign == ctypes.Unsigned:
			return cindex.TypeULong
		}
		return cindex.TypeLong
	case ctypes.Tfloat:
		if t.Complex {
			return cindex.TypeComplex
		}
		switch t.Size {
		case ctypes.F16:
			return cindex.TypeHalf
		case ctypes.F32:
			return cindex.TypeFloat
		case ctypes.FLong:
			return cindex.TypeLongDouble
		}
		return cindex.TypeDouble
	case ctypes.Tpointer:
		return cindex.TypePointer
	case ctypes.Tarray:
		if t.Size < 0 {
			return cindex.TypeIncompleteArray
		}
		return cindex.TypeConstantArray
	case ctypes.Tfunction:
		if t.NoProto {
			return cindex.TypeFunctionNoProto
		}
		return cindex.TypeFunctionProto
	case ctypes.Tstruct, ctypes.Tunion:
		return cindex.TypeRecord
	case ctypes.Tenum:
		return cindex.TypeEnum
	case ctypes.Ttypedef:
		return cindex.TypeTypedef
	case ctypes.Telaborated:
		return cindex.TypeElaborated
	case ctypes.Tattributed:
		return cindex.TypeAttributed
	case ctypes.Tqualified:
		return typ{tu: x.tu, t: t.Elem}.Kind()
	case ctypes.Tbuiltin:
		return cindex.TypeUnexposed
	}
	return cindex.TypeInvalid
}

func (x typ) intKind(t ctypes.Tint) cindex.TypeKind {
	unsigned := t.Sign == ctypes.Unsigned
	switch t.Size {
	case ctypes.IBool:
		return cindex.TypeBool
	case ctypes.I8:
		switch {
		case t.Plain && x.tu.target.CharIsSigned():
			return cindex.TypeCharS
		case t.Plain:
			return cindex.TypeCharU
		case unsigned:
			return cindex.TypeUChar
		}
		return cindex.TypeSChar
	case ctypes.I16:
		if unsigned {
			return cindex.TypeUShort
		}
		return cindex.TypeShort
	case ctypes.I128:
		if unsigned {
			return cindex.TypeUInt128
		}
		return cindex.TypeInt128
	}
	if unsigned {
		return cindex.TypeUInt
	}
	return cindex.TypeInt
}

func (x typ) Spelling() string {
	if x.t == nil {
		return ""
	}
	return ctypes.Spell(x.t)
}

func (x typ) SizeOf() int64 {
	if x.t == nil {
		return cindex.SizeIncomplete
	}
	return x.tu.layout.SizeOf(x.t)
}

func (x typ) AlignOf() int64 {
	if x.t == nil {
		return cindex.SizeIncomplete
	}
	return x.tu.layout.AlignOf(x.t)
}

// strip removes qualifiers, which are not visible as a type kind.
func (x typ) strip() ctypes.Type {
	t, _ := ctypes.Unqualified(x.t)
	return t
}

func (x typ) Pointee() cindex.Type {
	if p, ok := x.strip().(ctypes.Tpointer); ok {
		return x.tu.wrap(p.Elem)
	}
	return x.tu.wrap(nil)
}

func (x typ) Element() cindex.Type {
	if a, ok := x.strip().(ctypes.Tarray); ok {
		return x.tu.wrap(a.Elem)
	}
	return x.tu.wrap(nil)
}

func (x typ) ArraySize() int64 {
	if a, ok := x.strip().(ctypes.Tarray); ok && a.Size >= 0 {
		return a.Size
	}
	return -1
}

func (x typ) Canonical() cindex.Type {
	if x.t == nil {
		return x
	}
	return x.tu.wrap(deepCanonical(x.t))
}

// deepCanonical removes sugar at every level, keeping qualifiers.
func deepCanonical(t ctypes.Type) ctypes.Type {
	switch x := t.(type) {
	case ctypes.Ttypedef:
		return deepCanonical(x.Underlying)
	case ctypes.Telaborated:
		return deepCanonical(x.Named)
	case ctypes.Tattributed:
		return deepCanonical(x.Modified)
	case ctypes.Tbuiltin:
		return deepCanonical(x.Canonical)
	case ctypes.Tqualified:
		elem := deepCanonical(x.Elem)
		if q, ok := elem.(ctypes.Tqualified); ok {
			q.Const = q.Const || x.Const
			q.Volatile = q.Volatile || x.Volatile
			q.Restrict = q.Restrict || x.Restrict
			return q
		}
		x.Elem = elem
		return x
	case ctypes.Tpointer:
		return ctypes.Tpointer{Elem: deepCanonical(x.Elem)}
	case ctypes.Tarray:
		return ctypes.Tarray{Elem: deepCanonical(x.Elem), Size: x.Size}
	case ctypes.Tfunction:
		f := x
		f.Return = deepCanonical(x.Return)
		f.Params = make([]ctypes.Type, len(x.Params))
		for i, p := range x.Params {
			f.Params[i] = deepCanonical(p)
		}
		return f
	}
	return t
}

func (x typ) Declaration() cindex.Cursor {
	var d *decl
	switch t := x.strip().(type) {
	case ctypes.Tstruct:
		d = x.tu.records[t.Rec]
	case ctypes.Tunion:
		d = x.tu.records[t.Rec]
	case ctypes.Tenum:
		d = x.tu.enums[t.Enum]
	case ctypes.Ttypedef:
		d = x.tu.typedefs[t.Name]
	case ctypes.Telaborated:
		return typ{tu: x.tu, t: t.Named}.Declaration()
	}
	if d == nil {
		return nil
	}
	return d
}

func (x typ) Modified() cindex.Type {
	if a, ok := x.strip().(ctypes.Tattributed); ok {
		return x.tu.wrap(a.Modified)
	}
	return x.tu.wrap(nil)
}

func (x typ) Named() cindex.Type {
	if e, ok := x.strip().(ctypes.Telaborated); ok {
		return x.tu.wrap(e.Named)
	}
	return x.tu.wrap(nil)
}

// function finds the function type under any sugar.
func (x typ) function() (ctypes.Tfunction, bool) {
	f, ok := ctypes.Canonical(x.t).(ctypes.Tfunction)
	return f, ok
}

func (x typ) Result() cindex.Type {
	if f, ok := x.function(); ok {
		return x.tu.wrap(f.Return)
	}
	return x.tu.wrap(nil)
}

func (x typ) ArgTypes() []cindex.Type {
	f, ok := x.function()
	if !ok {
		return nil
	}
	out := make([]cindex.Type, len(f.Params))
	for i, p := range f.Params {
		out[i] = x.tu.wrap(p)
	}
	return out
}

func (x typ) IsVariadic() bool {
	f, ok := x.function()
	return ok && f.VarArg
}

var callingConvs = map[ctypes.CallConv]cindex.CallingConv{
	ctypes.CallC:          cindex.CallingConvC,
	ctypes.CallStdcall:    cindex.CallingConvX86StdCall,
	ctypes.CallFastcall:   cindex.CallingConvX86FastCall,
	ctypes.CallThiscall:   cindex.CallingConvX86ThisCall,
	ctypes.CallPascal:     cindex.CallingConvX86Pascal,
	ctypes.CallVectorcall: cindex.CallingConvX86VectorCall,
	ctypes.CallWin64:      cindex.CallingConvWin64,
	ctypes.CallSysV:       cindex.CallingConvX86_64SysV,
	ctypes.CallRegcall:    cindex.CallingConvX86RegCall,
}

func (x typ) CallingConv() cindex.CallingConv {
	f, ok := x.function()
	if !ok {
		return cindex.CallingConvInvalid
	}
	return callingConvs[f.CallConv]
}

func (x typ) IsConst() bool {
	q, ok := x.t.(ctypes.Tqualified)
	return ok && q.Const
}
