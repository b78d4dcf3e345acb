package cfront

import (
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/cpp"
	"github.com/raymyers/ralph-bindgen/pkg/ctypes"
)

// decl is a cursor produced by semantic analysis. Cursors are immutable once
// the translation unit is built.
type decl struct {
	tu         *unit
	kind       cindex.CursorKind
	name       string
	loc        cindex.Location
	linkage    cindex.Linkage
	visibility cindex.Visibility
	typ        ctypes.Type
	children   []*decl

	underlying ctypes.Type    // TypedefDecl
	rec        *ctypes.Record // StructDecl, UnionDecl
	enum       *ctypes.Enum   // EnumDecl
	value      int64          // EnumConstantDecl
	result     ctypes.Type    // FunctionDecl
	args       []*decl        // FunctionDecl
	parent     *ctypes.Record // FieldDecl, or a record declared as an anonymous member
	fieldIndex int            // index into parent.Fields, -1 when not a member
	bitWidth   int            // FieldDecl
	macro      *cpp.Macro     // MacroDefinition
	included   string         // InclusionDirective
}

var _ cindex.Cursor = (*decl)(nil)

func (d *decl) Kind() cindex.CursorKind { return d.kind }

// Spelling is the declared name. Records and enums without a tag take the
// name of the typedef that introduced them.
func (d *decl) Spelling() string {
	if d.name != "" {
		return d.name
	}
	switch {
	case d.rec != nil:
		return d.rec.TypedefName
	case d.enum != nil:
		return d.enum.TypedefName
	}
	return ""
}

func (d *decl) Location() cindex.Location     { return d.loc }
func (d *decl) Linkage() cindex.Linkage       { return d.linkage }
func (d *decl) Visibility() cindex.Visibility { return d.visibility }

func (d *decl) Type() cindex.Type {
	if d.typ == nil {
		return d.tu.wrap(nil)
	}
	return d.tu.wrap(d.typ)
}

func (d *decl) Children() []cindex.Cursor {
	out := make([]cindex.Cursor, len(d.children))
	for i, c := range d.children {
		out[i] = c
	}
	return out
}

// IsAnonymous reports a record or enum declared with neither a tag nor a
// typedef name.
func (d *decl) IsAnonymous() bool {
	switch d.kind {
	case cindex.CursorStructDecl, cindex.CursorUnionDecl, cindex.CursorEnumDecl:
		return d.Spelling() == ""
	}
	return false
}

func (d *decl) Equal(other cindex.Cursor) bool {
	o, ok := other.(*decl)
	return ok && o == d
}

func (d *decl) TypedefUnderlyingType() cindex.Type { return d.tu.wrap(d.underlying) }

func (d *decl) EnumIntegerType() cindex.Type {
	if d.enum == nil {
		return d.tu.wrap(nil)
	}
	return d.tu.wrap(d.enum.Underlying)
}

func (d *decl) EnumConstantValue() int64 { return d.value }
func (d *decl) ResultType() cindex.Type  { return d.tu.wrap(d.result) }

func (d *decl) Arguments() []cindex.Cursor {
	out := make([]cindex.Cursor, len(d.args))
	for i, a := range d.args {
		out[i] = a
	}
	return out
}

// FieldOffset returns the offset in bits of a field, or of the unnamed
// member holding an anonymous record. Incomplete parents yield
// SizeIncomplete.
func (d *decl) FieldOffset() int64 {
	if d.parent == nil || d.fieldIndex < 0 {
		return cindex.SizeIncomplete
	}
	rl, ok := d.tu.layout.Record(d.parent)
	if !ok || d.fieldIndex >= len(rl.Offsets) {
		return cindex.SizeIncomplete
	}
	return rl.Offsets[d.fieldIndex]
}

func (d *decl) BitWidth() int {
	if d.kind != cindex.CursorFieldDecl {
		return -1
	}
	return d.bitWidth
}

func (d *decl) IsMacroFunctionLike() bool {
	return d.macro != nil && d.macro.IsFunctionLike()
}

func (d *decl) IsMacroBuiltin() bool {
	return d.macro != nil && (d.macro.Kind == cpp.MacroBuiltin || d.loc.File == "")
}

func (d *decl) IncludedFile() string { return d.included }
