// Package cindex is the contract between the explorer and a C front end:
// cursors for declarations, types with layout queries, and translation
// units. Child enumeration returns owned slices instead of callbacks.
package cindex

import (
	"context"
	"fmt"
)

// SizeIncomplete is returned by size and alignment queries on types
// without a complete definition.
const SizeIncomplete int64 = -2

// CursorKind classifies a cursor.
type CursorKind int

const (
	CursorNoDeclFound CursorKind = iota
	CursorTranslationUnit
	CursorStructDecl
	CursorUnionDecl
	CursorEnumDecl
	CursorFieldDecl
	CursorEnumConstantDecl
	CursorFunctionDecl
	CursorVarDecl
	CursorParmDecl
	CursorTypedefDecl
	CursorMacroDefinition
	CursorInclusionDirective
)

var cursorKindNames = []string{
	"NoDeclFound", "TranslationUnit", "StructDecl", "UnionDecl", "EnumDecl",
	"FieldDecl", "EnumConstantDecl", "FunctionDecl", "VarDecl", "ParmDecl",
	"TypedefDecl", "MacroDefinition", "InclusionDirective",
}

func (k CursorKind) String() string {
	if int(k) < len(cursorKindNames) {
		return cursorKindNames[k]
	}
	return fmt.Sprintf("CursorKind(%d)", int(k))
}

// TypeKind classifies a type.
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeUnexposed
	TypeVoid
	TypeBool
	TypeCharU
	TypeUChar
	TypeUShort
	TypeUInt
	TypeULong
	TypeULongLong
	TypeUInt128
	TypeCharS
	TypeSChar
	TypeShort
	TypeInt
	TypeLong
	TypeLongLong
	TypeInt128
	TypeHalf
	TypeFloat
	TypeDouble
	TypeLongDouble
	TypeComplex
	TypePointer
	TypeRecord
	TypeEnum
	TypeTypedef
	TypeFunctionNoProto
	TypeFunctionProto
	TypeConstantArray
	TypeIncompleteArray
	TypeElaborated
	TypeAttributed
)

var typeKindNames = []string{
	"Invalid", "Unexposed", "Void", "Bool", "Char_U", "UChar", "UShort", "UInt",
	"ULong", "ULongLong", "UInt128", "Char_S", "SChar", "Short", "Int", "Long",
	"LongLong", "Int128", "Half", "Float", "Double", "LongDouble", "Complex",
	"Pointer", "Record", "Enum", "Typedef", "FunctionNoProto", "FunctionProto",
	"ConstantArray", "IncompleteArray", "Elaborated", "Attributed",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// IsPrimitive reports whether the kind is void, bool, an integer or a
// floating-point type.
func (k TypeKind) IsPrimitive() bool {
	return k >= TypeVoid && k <= TypeLongDouble
}

// Linkage of a declaration.
type Linkage int

const (
	LinkageInvalid Linkage = iota
	LinkageNoLinkage
	LinkageInternal
	LinkageUniqueExternal
	LinkageExternal
)

func (l Linkage) String() string {
	switch l {
	case LinkageNoLinkage:
		return "NoLinkage"
	case LinkageInternal:
		return "Internal"
	case LinkageUniqueExternal:
		return "UniqueExternal"
	case LinkageExternal:
		return "External"
	}
	return "Invalid"
}

// Visibility of a declaration as set by visibility attributes.
type Visibility int

const (
	VisibilityInvalid Visibility = iota
	VisibilityHidden
	VisibilityProtected
	VisibilityDefault
)

// CallingConv is the calling convention of a function type.
type CallingConv int

const (
	CallingConvInvalid CallingConv = iota
	CallingConvC
	CallingConvX86StdCall
	CallingConvX86FastCall
	CallingConvX86ThisCall
	CallingConvX86Pascal
	CallingConvX86VectorCall
	CallingConvWin64
	CallingConvX86_64SysV
	CallingConvX86RegCall
)

func (c CallingConv) String() string {
	names := []string{"Invalid", "C", "X86StdCall", "X86FastCall", "X86ThisCall",
		"X86Pascal", "X86VectorCall", "Win64", "X86_64SysV", "X86RegCall"}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("CallingConv(%d)", int(c))
}

// Severity of a diagnostic.
type Severity int

const (
	SeverityIgnored Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	return [...]string{"ignored", "note", "warning", "error", "fatal"}[s]
}

// Location is a position in a source file.
type Location struct {
	File     string
	Line     int
	Column   int
	IsSystem bool
}

// IsZero reports whether l carries no position.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is a message produced while parsing.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location Location
}

func (d Diagnostic) String() string {
	if d.Location.IsZero() {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
}

// Cursor is a declaration in a translation unit.
type Cursor interface {
	Kind() CursorKind
	Spelling() string
	Location() Location
	Linkage() Linkage
	Visibility() Visibility
	Type() Type
	// Children returns the direct children in source order.
	Children() []Cursor
	IsAnonymous() bool
	Equal(other Cursor) bool

	TypedefUnderlyingType() Type
	EnumIntegerType() Type
	EnumConstantValue() int64
	ResultType() Type
	Arguments() []Cursor
	// FieldOffset is the offset of a field in bits, or a negative value when
	// the record is incomplete.
	FieldOffset() int64
	// BitWidth is the declared width of a bitfield, -1 for other fields.
	BitWidth() int
	IsMacroFunctionLike() bool
	IsMacroBuiltin() bool
	IncludedFile() string
}

// Type is a C type as seen by the front end.
type Type interface {
	Kind() TypeKind
	Spelling() string
	SizeOf() int64
	AlignOf() int64
	Pointee() Type
	Element() Type
	// ArraySize is the element count of a constant array, -1 otherwise.
	ArraySize() int64
	Canonical() Type
	// Declaration returns the declaring cursor, or nil.
	Declaration() Cursor
	Modified() Type
	Named() Type
	Result() Type
	ArgTypes() []Type
	IsVariadic() bool
	CallingConv() CallingConv
	IsConst() bool
}

// EvalKind is the category of an evaluated macro.
type EvalKind int

const (
	EvalInt EvalKind = iota
	EvalFloat
	EvalString
)

// EvalResult is the value of a macro evaluated in a translation unit.
type EvalResult struct {
	Kind     EvalKind
	Int      int64
	Unsigned bool
	Float    float64
	Str      string
	TypeName string
}

// TranslationUnit is a parsed header.
type TranslationUnit interface {
	Cursor() Cursor
	Spelling() string
	Diagnostics() []Diagnostic
	TargetTriple() string
	PointerWidth() int
	// EvaluateMacro evaluates an object-like macro as a constant expression
	// in the scope of the translation unit.
	EvaluateMacro(name string) (EvalResult, error)
	Close() error
}

// Parser parses a header with compiler-style arguments.
type Parser interface {
	Parse(ctx context.Context, file string, args []string) (TranslationUnit, error)
}

// Descendants returns the children of c, recursing into each child for
// which recurse returns true, in pre-order.
func Descendants(c Cursor, keep func(Cursor) bool, recurse func(Cursor) bool) []Cursor {
	var out []Cursor
	for _, child := range c.Children() {
		if keep(child) {
			out = append(out, child)
		}
		if recurse != nil && recurse(child) {
			out = append(out, Descendants(child, keep, recurse)...)
		}
	}
	return out
}

// HasErrors reports whether any diagnostic is an error or fatal.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}
