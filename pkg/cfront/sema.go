package cfront

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cabs"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/ctypes"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// biggestAlignment is the alignment of `__attribute__((aligned))` without
// an argument.
const biggestAlignment = 16

type tagEntry struct {
	rec  *ctypes.Record
	enum *ctypes.Enum
}

type packEntry struct {
	id    string
	value int64
}

// sema turns declarations into cursors. File scope is the only scope headers
// need: tags share one namespace, typedefs and ordinary identifiers another.
type sema struct {
	u          *unit
	tags       map[string]tagEntry
	ordinary   map[string]*decl
	pack       int64
	packStack  []packEntry
	visibility []cindex.Visibility
}

func newSema(u *unit) *sema {
	return &sema{
		u:        u,
		tags:     make(map[string]tagEntry),
		ordinary: make(map[string]*decl),
	}
}

func location(l cabs.Loc) cindex.Location {
	return cindex.Location{File: l.File, Line: l.Line, Column: l.Column, IsSystem: l.System}
}

func where(l cabs.Loc) string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

func (s *sema) errorf(loc cabs.Loc, format string, args ...any) {
	s.u.diags = append(s.u.diags, cindex.Diagnostic{
		Severity: cindex.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: location(loc),
	})
}

func (s *sema) warnf(loc cabs.Loc, format string, args ...any) {
	s.u.diags = append(s.u.diags, cindex.Diagnostic{
		Severity: cindex.SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Location: location(loc),
	})
}

func (s *sema) newDecl(kind cindex.CursorKind, name string, loc cabs.Loc) *decl {
	return &decl{tu: s.u, kind: kind, name: name, loc: location(loc), fieldIndex: -1}
}

// analyze adds the file-scope cursors of prog to the translation unit.
func (s *sema) analyze(prog *cabs.Program) {
	for _, def := range prog.Definitions {
		switch d := def.(type) {
		case cabs.Declaration:
			s.declaration(d.Specs, d.Declarators, d.Loc)
		case cabs.FunDef:
			s.declaration(d.Specs, []cabs.Declarator{d.Declarator}, d.Loc)
		case cabs.StaticAssert:
			s.staticAssert(d)
		case cabs.Pragma:
			s.pragma(d)
		}
	}
}

func (s *sema) declaration(specs cabs.DeclSpec, declarators []cabs.Declarator, loc cabs.Loc) {
	var out []*decl
	base := s.specType(specs, loc, &out, len(declarators) == 0)
	for _, d := range declarators {
		dloc := d.Loc
		if dloc.Line == 0 {
			dloc = loc
		}
		t := s.declType(specs, base, d, dloc)
		var c *decl
		switch {
		case specs.Storage == cabs.StorageTypedef:
			c = s.typedef(d, t, base, dloc)
		case isFunctionType(t):
			c = s.function(specs, d, t, dloc)
		default:
			c = s.variable(specs, d, t, dloc)
		}
		if c != nil {
			out = append(out, c)
		}
	}
	s.u.root.children = append(s.u.root.children, out...)
}

func isFunctionType(t ctypes.Type) bool {
	_, ok := ctypes.Canonical(t).(ctypes.Tfunction)
	return ok
}

func (s *sema) typedef(d cabs.Declarator, t, base ctypes.Type, loc cabs.Loc) *decl {
	if prev := s.u.typedefs[d.Name]; prev != nil {
		if !ctypes.Equal(deepCanonical(prev.underlying), deepCanonical(t)) {
			s.errorf(loc, "typedef redefinition with different types ('%s' vs '%s')",
				ctypes.Spell(t), ctypes.Spell(prev.underlying))
		}
		return nil
	}
	if len(d.Derived) == 0 {
		nameAnonymousTag(base, d.Name)
	}
	c := s.newDecl(cindex.CursorTypedefDecl, d.Name, loc)
	c.underlying = t
	c.typ = ctypes.Ttypedef{Name: d.Name, Underlying: t}
	c.linkage = cindex.LinkageNoLinkage
	s.u.typedefs[d.Name] = c
	return c
}

// nameAnonymousTag gives an untagged record or enum the name of the typedef
// declaring it, as in `typedef struct { ... } point;`.
func nameAnonymousTag(base ctypes.Type, name string) {
	if e, ok := base.(ctypes.Telaborated); ok {
		base = e.Named
	}
	switch t := base.(type) {
	case ctypes.Tstruct:
		if t.Name == "" && t.Rec.TypedefName == "" {
			t.Rec.TypedefName = name
		}
	case ctypes.Tunion:
		if t.Name == "" && t.Rec.TypedefName == "" {
			t.Rec.TypedefName = name
		}
	case ctypes.Tenum:
		if t.Name == "" && t.Enum.TypedefName == "" {
			t.Enum.TypedefName = name
		}
	}
}

func (s *sema) function(specs cabs.DeclSpec, d cabs.Declarator, t ctypes.Type, loc cabs.Loc) *decl {
	if prev := s.ordinary[d.Name]; prev != nil {
		// Redeclarations merge into the first cursor.
		return nil
	}
	fn := ctypes.Canonical(t).(ctypes.Tfunction)
	c := s.newDecl(cindex.CursorFunctionDecl, d.Name, loc)
	c.typ = t
	c.result = fn.Return
	c.linkage = s.linkage(specs)
	c.visibility = s.declVisibility(specs.Attrs, d.Attrs)

	var params []cabs.ParamDecl
	if d.IsFunction() {
		params = d.Derived[len(d.Derived)-1].(cabs.FuncDecl).Params
	}
	for i, pt := range fn.Params {
		name, ploc := "", loc
		if i < len(params) {
			name = params[i].Declarator.Name
			ploc = params[i].Loc
			if params[i].Declarator.Loc.Line != 0 {
				ploc = params[i].Declarator.Loc
			}
		}
		arg := s.newDecl(cindex.CursorParmDecl, name, ploc)
		arg.typ = pt
		arg.linkage = cindex.LinkageNoLinkage
		c.args = append(c.args, arg)
	}
	s.ordinary[d.Name] = c
	return c
}

func (s *sema) variable(specs cabs.DeclSpec, d cabs.Declarator, t ctypes.Type, loc cabs.Loc) *decl {
	if prev := s.ordinary[d.Name]; prev != nil {
		return nil
	}
	c := s.newDecl(cindex.CursorVarDecl, d.Name, loc)
	c.typ = t
	c.linkage = s.linkage(specs)
	c.visibility = s.declVisibility(specs.Attrs, d.Attrs)
	s.ordinary[d.Name] = c
	return c
}

func (s *sema) linkage(specs cabs.DeclSpec) cindex.Linkage {
	if specs.Storage == cabs.StorageStatic {
		return cindex.LinkageInternal
	}
	return cindex.LinkageExternal
}

// declVisibility applies a visibility attribute, then the innermost
// `#pragma GCC visibility push`.
func (s *sema) declVisibility(attrLists ...[]cabs.Attribute) cindex.Visibility {
	for _, attrs := range attrLists {
		if a, ok := cabs.Attr(attrs, "visibility"); ok {
			return parseVisibility(a.Raw)
		}
	}
	if n := len(s.visibility); n > 0 {
		return s.visibility[n-1]
	}
	return cindex.VisibilityDefault
}

func parseVisibility(raw string) cindex.Visibility {
	switch strings.Trim(raw, "\" ") {
	case "hidden", "internal":
		return cindex.VisibilityHidden
	case "protected":
		return cindex.VisibilityProtected
	}
	return cindex.VisibilityDefault
}

func (s *sema) staticAssert(sa cabs.StaticAssert) {
	v, err := s.eval(sa.Cond)
	if err != nil {
		s.errorf(sa.Loc, "static assertion expression is not an integral constant expression: %v", err)
		return
	}
	if !v.truthy() {
		s.errorf(sa.Loc, "static assertion failed: %s", sa.Message)
	}
}

// pragma handles #pragma pack and #pragma GCC visibility. Other pragmas
// have no effect on declarations.
func (s *sema) pragma(p cabs.Pragma) {
	fields := strings.Fields(strings.NewReplacer("(", " ( ", ")", " ) ", ",", " , ").Replace(p.Text))
	if len(fields) == 0 {
		return
	}
	switch {
	case fields[0] == "pack":
		s.pragmaPack(pragmaArgs(fields[1:]), p.Loc)
	case len(fields) >= 3 && fields[0] == "GCC" && fields[1] == "visibility":
		switch fields[2] {
		case "push":
			args := pragmaArgs(fields[3:])
			if len(args) == 1 {
				s.visibility = append(s.visibility, parseVisibility(args[0]))
			}
		case "pop":
			if n := len(s.visibility); n > 0 {
				s.visibility = s.visibility[:n-1]
			}
		}
	}
}

// pragmaArgs returns the comma-separated words between parentheses.
func pragmaArgs(fields []string) []string {
	var args []string
	cur := ""
	for _, f := range fields {
		switch f {
		case "(":
		case ")", ",":
			if cur != "" {
				args = append(args, cur)
			}
			cur = ""
			if f == ")" {
				return args
			}
		default:
			cur += f
		}
	}
	return args
}

func validPack(n int64) bool {
	switch n {
	case 0, 1, 2, 4, 8, 16:
		return true
	}
	return false
}

func (s *sema) pragmaPack(args []string, loc cabs.Loc) {
	if len(args) == 0 {
		s.pack = 0
		return
	}
	switch args[0] {
	case "push":
		entry := packEntry{value: s.pack}
		for _, a := range args[1:] {
			if n, err := strconv.ParseInt(a, 0, 64); err == nil {
				if !validPack(n) {
					s.warnf(loc, "expected #pragma pack parameter to be '1', '2', '4', '8', or '16'")
					continue
				}
				s.pack = n
			} else {
				entry.id = a
			}
		}
		s.packStack = append(s.packStack, entry)
	case "pop":
		id, value := "", int64(-1)
		for _, a := range args[1:] {
			if n, err := strconv.ParseInt(a, 0, 64); err == nil {
				value = n
			} else {
				id = a
			}
		}
		s.popPack(id, loc)
		if value >= 0 {
			s.pack = value
		}
	case "show":
	default:
		n, err := strconv.ParseInt(args[0], 0, 64)
		if err != nil || !validPack(n) {
			s.warnf(loc, "expected #pragma pack parameter to be '1', '2', '4', '8', or '16'")
			return
		}
		s.pack = n
	}
}

func (s *sema) popPack(id string, loc cabs.Loc) {
	for i := len(s.packStack) - 1; i >= 0; i-- {
		if id == "" || s.packStack[i].id == id {
			s.pack = s.packStack[i].value
			s.packStack = s.packStack[:i]
			return
		}
	}
	if id != "" {
		s.warnf(loc, "pragma pack(pop, ...) failed: stack empty or identifier '%s' not found", id)
	} else {
		s.warnf(loc, "#pragma pack(pop, ...) failed: stack empty")
	}
}

// specType resolves the type specifier of specs without qualifiers. Record
// and enum declarations it contains are appended to out. standalone is set
// when no declarator follows, as in `struct s;`.
func (s *sema) specType(specs cabs.DeclSpec, loc cabs.Loc, out *[]*decl, standalone bool) ctypes.Type {
	switch ts := specs.Type.(type) {
	case cabs.BaseType:
		return baseType(ts.Names)
	case cabs.TypedefName:
		return s.typedefName(ts.Name, loc)
	case cabs.RecordSpec:
		return s.recordSpec(ts, specs.Attrs, out, standalone)
	case cabs.EnumSpec:
		return s.enumSpec(ts, out, standalone)
	case cabs.TypeofSpec:
		if ts.Type != nil {
			return s.typeName(*ts.Type, loc)
		}
		if v, ok := ts.Expr.(cabs.Variable); ok {
			if d := s.ordinary[v.Name]; d != nil {
				return d.typ
			}
		}
		v, err := s.eval(ts.Expr)
		if err != nil {
			s.errorf(loc, "cannot determine the type of typeof operand: %v", err)
			return ctypes.Int()
		}
		return v.typ
	}
	s.warnf(loc, "type specifier missing, defaults to 'int'")
	return ctypes.Int()
}

func baseType(names []string) ctypes.Type {
	count := make(map[string]int, len(names))
	for _, n := range names {
		count[n]++
	}
	signed, unsigned := count["signed"] > 0, count["unsigned"] > 0
	sign := ctypes.Signed
	if unsigned {
		sign = ctypes.Unsigned
	}
	cplx := count["_Complex"] > 0

	switch {
	case count["void"] > 0:
		return ctypes.Void()
	case count["_Bool"] > 0:
		return ctypes.Bool()
	case count["_Float16"] > 0:
		return ctypes.Tfloat{Size: ctypes.F16}
	case count["float"] > 0:
		return ctypes.Tfloat{Size: ctypes.F32, Complex: cplx}
	case count["double"] > 0:
		if count["long"] > 0 {
			return ctypes.Tfloat{Size: ctypes.FLong, Complex: cplx}
		}
		return ctypes.Tfloat{Size: ctypes.F64, Complex: cplx}
	case cplx:
		return ctypes.Tfloat{Size: ctypes.F64, Complex: true}
	case count["char"] > 0 || count["__int8"] > 0:
		return ctypes.Tint{Size: ctypes.I8, Sign: sign, Plain: !signed && !unsigned}
	case count["short"] > 0 || count["__int16"] > 0:
		return ctypes.Tint{Size: ctypes.I16, Sign: sign}
	case count["__int128"] > 0:
		return ctypes.Tint{Size: ctypes.I128, Sign: sign}
	case count["long"] >= 2 || count["__int64"] > 0:
		return ctypes.Tlong{Sign: sign, LongLong: true}
	case count["long"] == 1:
		return ctypes.Tlong{Sign: sign}
	}
	return ctypes.Tint{Size: ctypes.I32, Sign: sign}
}

func (s *sema) typedefName(name string, loc cabs.Loc) ctypes.Type {
	switch name {
	case "__builtin_va_list", "__builtin_ms_va_list":
		return ctypes.Tbuiltin{Name: name, Canonical: ctypes.Pointer(ctypes.Char())}
	case "__uint128_t":
		return ctypes.Tint{Size: ctypes.I128, Sign: ctypes.Unsigned}
	}
	d := s.u.typedefs[name]
	if d == nil {
		s.errorf(loc, "unknown type name '%s'", name)
		return ctypes.Int()
	}
	return ctypes.Ttypedef{Name: name, Underlying: d.underlying}
}

func recordType(rec *ctypes.Record) ctypes.Type {
	if rec.Union {
		return ctypes.Tunion{Name: rec.Name, Rec: rec}
	}
	return ctypes.Tstruct{Name: rec.Name, Rec: rec}
}

func (s *sema) recordSpec(rs cabs.RecordSpec, specAttrs []cabs.Attribute, out *[]*decl, standalone bool) ctypes.Type {
	union := rs.Kind == cabs.Union
	kind := cindex.CursorStructDecl
	if union {
		kind = cindex.CursorUnionDecl
	}

	var rec *ctypes.Record
	created := false
	if rs.Name != "" {
		if e, ok := s.tags[rs.Name]; ok {
			if e.rec == nil || e.rec.Union != union {
				s.errorf(rs.Loc, "use of '%s' with tag type that does not match previous declaration", rs.Name)
				return ctypes.Int()
			}
			rec = e.rec
			if rs.HasBody && rec.Complete {
				s.errorf(rs.Loc, "redefinition of '%s %s'", rs.Kind, rs.Name)
				return ctypes.Telaborated{Named: recordType(rec)}
			}
		}
	}
	if rec == nil {
		rec = &ctypes.Record{Name: rs.Name, Union: union, Where: where(rs.Loc)}
		created = true
		if rs.Name != "" {
			s.tags[rs.Name] = tagEntry{rec: rec}
		}
	}
	t := recordType(rec)

	if rs.HasBody || standalone || created {
		d := s.newDecl(kind, rs.Name, rs.Loc)
		d.rec = rec
		d.typ = t
		if rs.HasBody {
			s.defineRecord(rec, d, rs, specAttrs)
			s.u.records[rec] = d
		} else if s.u.records[rec] == nil {
			s.u.records[rec] = d
		}
		*out = append(*out, d)
	}
	return ctypes.Telaborated{Named: t}
}

func (s *sema) defineRecord(rec *ctypes.Record, d *decl, rs cabs.RecordSpec, specAttrs []cabs.Attribute) {
	_, packed := cabs.Attr(rs.Attrs, "packed")
	if _, ok := cabs.Attr(specAttrs, "packed"); ok {
		packed = true
	}
	rec.Packed = packed
	rec.Align = max(s.alignAttr(rs.Attrs, rs.Loc), s.alignAttr(specAttrs, rs.Loc))
	rec.MaxFieldAlign = s.pack

	for _, f := range rs.Fields {
		var nested []*decl
		base := s.specType(f.Specs, f.Loc, &nested, len(f.Declarators) == 0)
		d.children = append(d.children, nested...)

		if len(f.Declarators) == 0 {
			sub, ok := f.Specs.Type.(cabs.RecordSpec)
			if !ok || sub.Name != "" || !sub.HasBody {
				s.warnf(f.Loc, "declaration does not declare anything")
				continue
			}
			idx := len(rec.Fields)
			rec.Fields = append(rec.Fields, ctypes.Field{Type: base, BitWidth: -1})
			for _, n := range nested {
				if n.rec != nil && n.rec.Name == "" && ctypes.Equal(recordType(n.rec), ctypes.Canonical(base)) {
					n.parent = rec
					n.fieldIndex = idx
				}
			}
			continue
		}

		for _, fd := range f.Declarators {
			floc := fd.Loc
			if floc.Line == 0 {
				floc = f.Loc
			}
			ft := s.declType(f.Specs, base, fd, floc)
			field := ctypes.Field{Name: fd.Name, Type: ft, BitWidth: -1}
			if fd.BitWidth != nil {
				if w, ok := s.evalInt(fd.BitWidth, floc); ok {
					if w < 0 {
						s.errorf(floc, "bit-field '%s' has negative width (%d)", fd.Name, w)
						w = 0
					}
					field.BitWidth = w
				}
			}
			_, fpacked := cabs.Attr(fd.Attrs, "packed")
			if _, ok := cabs.Attr(f.Specs.Attrs, "packed"); ok {
				fpacked = true
			}
			field.Packed = fpacked
			field.Align = max(s.alignAttr(fd.Attrs, floc), s.alignAttr(f.Specs.Attrs, floc), s.alignAs(f.Specs.AlignAs, floc))

			idx := len(rec.Fields)
			rec.Fields = append(rec.Fields, field)
			if fd.Name == "" {
				continue
			}
			fc := s.newDecl(cindex.CursorFieldDecl, fd.Name, floc)
			fc.typ = ft
			fc.parent = rec
			fc.fieldIndex = idx
			fc.bitWidth = int(field.BitWidth)
			fc.linkage = cindex.LinkageNoLinkage
			d.children = append(d.children, fc)
		}
	}
	rec.Complete = true
}

// alignAttr returns the largest aligned/align attribute value, 0 if none.
func (s *sema) alignAttr(attrs []cabs.Attribute, loc cabs.Loc) int64 {
	var align int64
	for _, a := range attrs {
		if a.Name != "aligned" && a.Name != "align" {
			continue
		}
		if len(a.Args) == 0 {
			align = max(align, biggestAlignment)
			continue
		}
		if n, ok := s.evalInt(a.Args[0], loc); ok {
			if n <= 0 || n&(n-1) != 0 {
				s.errorf(loc, "requested alignment is not a power of 2")
				continue
			}
			align = max(align, n)
		}
	}
	return align
}

func (s *sema) alignAs(exprs []cabs.Expr, loc cabs.Loc) int64 {
	var align int64
	for _, e := range exprs {
		if n, ok := s.evalInt(e, loc); ok {
			align = max(align, n)
		}
	}
	return align
}

func (s *sema) enumSpec(es cabs.EnumSpec, out *[]*decl, standalone bool) ctypes.Type {
	var en *ctypes.Enum
	created := false
	if es.Name != "" {
		if e, ok := s.tags[es.Name]; ok {
			if e.enum == nil {
				s.errorf(es.Loc, "use of '%s' with tag type that does not match previous declaration", es.Name)
				return ctypes.Int()
			}
			en = e.enum
			if es.HasBody && en.Complete {
				s.errorf(es.Loc, "redefinition of 'enum %s'", es.Name)
				return ctypes.Telaborated{Named: ctypes.Tenum{Name: en.Name, Enum: en}}
			}
		}
	}
	if en == nil {
		en = &ctypes.Enum{Name: es.Name, Where: where(es.Loc)}
		created = true
		if es.Name != "" {
			s.tags[es.Name] = tagEntry{enum: en}
		}
	}
	if es.Underlying != nil {
		en.Underlying = s.typeName(*es.Underlying, es.Loc)
	}
	t := ctypes.Tenum{Name: en.Name, Enum: en}

	if es.HasBody || standalone || created {
		d := s.newDecl(cindex.CursorEnumDecl, es.Name, es.Loc)
		d.enum = en
		d.typ = t
		if es.HasBody {
			s.defineEnum(en, d, es)
			s.u.enums[en] = d
		} else if s.u.enums[en] == nil {
			s.u.enums[en] = d
		}
		*out = append(*out, d)
	}
	return ctypes.Telaborated{Named: t}
}

func (s *sema) defineEnum(en *ctypes.Enum, d *decl, es cabs.EnumSpec) {
	var next int64
	for _, e := range es.Enumerators {
		if e.Value != nil {
			if v, ok := s.evalInt(e.Value, e.Loc); ok {
				next = v
			}
		}
		c := s.newDecl(cindex.CursorEnumConstantDecl, e.Name, e.Loc)
		c.value = next
		c.typ = ctypes.Int()
		if next < math.MinInt32 || next > math.MaxInt32 {
			c.typ = ctypes.LongLong()
		}
		c.linkage = cindex.LinkageNoLinkage
		if prev := s.u.enumConsts[e.Name]; prev != nil {
			s.errorf(e.Loc, "redefinition of enumerator '%s'", e.Name)
		} else {
			s.u.enumConsts[e.Name] = c
		}
		en.Constants = append(en.Constants, ctypes.EnumConstant{Name: e.Name, Value: next})
		d.children = append(d.children, c)
		next++
	}

	if en.Underlying == nil {
		_, packed := cabs.Attr(es.Attrs, "packed")
		en.Underlying = s.enumUnderlying(en.Constants, packed)
	}
	for _, c := range d.children {
		if c.value < math.MinInt32 || c.value > math.MaxInt32 {
			c.typ = en.Underlying
		} else {
			c.typ = ctypes.Int()
		}
	}
	en.Complete = true
}

// enumUnderlying picks the integer type of an enum: int under the Microsoft
// ABI, otherwise unsigned int when no value is negative, widened to fit.
// Packed enums take the smallest fitting type.
func (s *sema) enumUnderlying(consts []ctypes.EnumConstant, packed bool) ctypes.Type {
	if s.u.target.IsMSVC() && !packed {
		return ctypes.Int()
	}
	var lo, hi int64
	for i, c := range consts {
		if i == 0 || c.Value < lo {
			lo = c.Value
		}
		if i == 0 || c.Value > hi {
			hi = c.Value
		}
	}
	negative := lo < 0
	if packed {
		switch {
		case !negative && hi <= math.MaxUint8:
			return ctypes.UChar()
		case negative && lo >= math.MinInt8 && hi <= math.MaxInt8:
			return ctypes.Tint{Size: ctypes.I8, Sign: ctypes.Signed}
		case !negative && hi <= math.MaxUint16:
			return ctypes.Tint{Size: ctypes.I16, Sign: ctypes.Unsigned}
		case negative && lo >= math.MinInt16 && hi <= math.MaxInt16:
			return ctypes.Short()
		}
	}
	switch {
	case !negative && hi <= math.MaxUint32:
		return ctypes.UInt()
	case negative && lo >= math.MinInt32 && hi <= math.MaxInt32:
		return ctypes.Int()
	case !negative:
		return s.longType(ctypes.Unsigned)
	}
	return s.longType(ctypes.Signed)
}

// longType is the 64-bit integer type of the target: long under LP64, long
// long otherwise.
func (s *sema) longType(sign ctypes.Signedness) ctypes.Type {
	if s.u.target.DataModel() == platform.LP64 {
		return ctypes.Tlong{Sign: sign}
	}
	return ctypes.Tlong{Sign: sign, LongLong: true}
}

// typeName resolves the type of a cast, sizeof or typeof operand.
func (s *sema) typeName(tn cabs.TypeName, loc cabs.Loc) ctypes.Type {
	var discard []*decl
	base := s.specType(tn.Specs, loc, &discard, false)
	return s.declType(tn.Specs, base, tn.Declarator, loc)
}

func qualify(t ctypes.Type, c, v, r bool) ctypes.Type {
	if !c && !v && !r {
		return t
	}
	if q, ok := t.(ctypes.Tqualified); ok {
		q.Const = q.Const || c
		q.Volatile = q.Volatile || v
		q.Restrict = q.Restrict || r
		return q
	}
	return ctypes.Tqualified{Elem: t, Const: c, Volatile: v, Restrict: r}
}

// declType applies the declarator to the specifier type. Derivations run
// from the base type outwards. A calling convention written outside the
// declarator belongs to the outermost function derivation.
func (s *sema) declType(specs cabs.DeclSpec, base ctypes.Type, d cabs.Declarator, loc cabs.Loc) ctypes.Type {
	t := base
	if a, ok := findAttr("mode", specs.Attrs, d.Attrs); ok {
		t = s.applyMode(t, a, loc)
	}
	if a, ok := findAttr("vector_size", specs.Attrs, d.Attrs); ok {
		t = s.applyVectorSize(t, a, loc)
	}
	t = qualify(t, specs.Const, specs.Volatile, specs.Restrict)

	outer := -1
	for i, der := range d.Derived {
		if _, ok := der.(cabs.FuncDecl); ok {
			outer = i
		}
	}
	for i, der := range d.Derived {
		switch x := der.(type) {
		case cabs.PointerDecl:
			t = qualify(ctypes.Pointer(t), x.Const, x.Volatile, x.Restrict)
		case cabs.ArrayDecl:
			size := int64(-1)
			if x.Size != nil {
				if n, ok := s.evalInt(x.Size, loc); ok {
					if n < 0 {
						s.errorf(loc, "array size is negative")
						n = 0
					}
					size = n
				}
			}
			t = ctypes.Tarray{Elem: t, Size: size}
		case cabs.FuncDecl:
			cc := x.CallConv
			if cc == "" {
				cc = callConvAttr(x.Attrs)
			}
			if cc == "" && i == outer {
				cc = firstNonEmpty(d.CallConv, specs.CallConv, callConvAttr(d.Attrs), callConvAttr(specs.Attrs))
			}
			t = s.functionType(t, x, cc, loc)
		}
	}
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func findAttr(name string, lists ...[]cabs.Attribute) (cabs.Attribute, bool) {
	for _, attrs := range lists {
		if a, ok := cabs.Attr(attrs, name); ok {
			return a, true
		}
	}
	return cabs.Attribute{}, false
}

func callConvAttr(attrs []cabs.Attribute) string {
	for _, a := range attrs {
		if _, ok := ctypes.ParseCallConv(a.Name); ok {
			return a.Name
		}
	}
	return ""
}

func (s *sema) functionType(ret ctypes.Type, fd cabs.FuncDecl, ccName string, loc cabs.Loc) ctypes.Type {
	f := ctypes.Tfunction{Return: ret, VarArg: fd.Variadic, NoProto: fd.OldStyle}
	for _, p := range fd.Params {
		var discard []*decl
		pb := s.specType(p.Specs, p.Loc, &discard, false)
		pt := s.declType(p.Specs, pb, p.Declarator, p.Loc)
		f.Params = append(f.Params, adjustParam(pt))
	}
	cc, explicit := s.callConv(ccName, loc)
	f.CallConv = cc
	if explicit {
		return ctypes.Tattributed{Modified: f, Attr: ccName}
	}
	return f
}

// adjustParam decays array and function parameters to pointers.
func adjustParam(t ctypes.Type) ctypes.Type {
	switch c := ctypes.Canonical(t).(type) {
	case ctypes.Tarray:
		return ctypes.Pointer(c.Elem)
	case ctypes.Tfunction:
		return ctypes.Pointer(t)
	}
	return t
}

// callConv resolves a calling convention name for the target. Conventions
// the target does not support are ignored with a warning.
func (s *sema) callConv(name string, loc cabs.Loc) (ctypes.CallConv, bool) {
	if name == "" {
		return ctypes.CallC, false
	}
	cc, ok := ctypes.ParseCallConv(name)
	if !ok {
		s.warnf(loc, "unknown calling convention '%s'", name)
		return ctypes.CallC, false
	}
	windows := s.u.target.OperatingSystem == platform.OSWindows
	switch s.u.target.Architecture {
	case platform.ArchX86:
		if cc != ctypes.CallWin64 && cc != ctypes.CallSysV {
			return cc, true
		}
	case platform.ArchX64:
		switch cc {
		case ctypes.CallC, ctypes.CallVectorcall, ctypes.CallRegcall:
			return cc, true
		case ctypes.CallWin64:
			if windows {
				return ctypes.CallC, true
			}
			return cc, true
		case ctypes.CallSysV:
			if !windows {
				return ctypes.CallC, true
			}
			return cc, true
		}
	default:
		if cc == ctypes.CallC {
			return cc, true
		}
	}
	s.warnf(loc, "'%s' calling convention is not supported for this target", name)
	return ctypes.CallC, false
}

// applyMode implements __attribute__((mode(...))) on integer types.
func (s *sema) applyMode(t ctypes.Type, a cabs.Attribute, loc cabs.Loc) ctypes.Type {
	mode := strings.Trim(a.Raw, "_ ")
	if len(a.Args) > 0 {
		if v, ok := a.Args[0].(cabs.Variable); ok {
			mode = strings.Trim(v.Name, "_")
		}
	}
	sign := ctypes.Signed
	if ctypes.IsUnsigned(t) {
		sign = ctypes.Unsigned
	}
	if mode == "word" || mode == "pointer" {
		mode = "SI"
		if s.u.target.PointerWidth() == 64 {
			mode = "DI"
		}
	}
	switch mode {
	case "QI", "byte":
		return ctypes.Tint{Size: ctypes.I8, Sign: sign}
	case "HI":
		return ctypes.Tint{Size: ctypes.I16, Sign: sign}
	case "SI":
		return ctypes.Tint{Size: ctypes.I32, Sign: sign}
	case "DI":
		return s.longType(sign)
	case "TI":
		return ctypes.Tint{Size: ctypes.I128, Sign: sign}
	case "SF":
		return ctypes.Float()
	case "DF":
		return ctypes.Double()
	}
	s.errorf(loc, "unknown machine mode '%s'", mode)
	return t
}

// applyVectorSize models a GCC vector as an array of its element type.
func (s *sema) applyVectorSize(t ctypes.Type, a cabs.Attribute, loc cabs.Loc) ctypes.Type {
	if len(a.Args) == 0 {
		s.errorf(loc, "'vector_size' attribute takes one argument")
		return t
	}
	bytes, ok := s.evalInt(a.Args[0], loc)
	if !ok {
		return t
	}
	elem := s.u.layout.SizeOf(t)
	if elem <= 0 || bytes%elem != 0 {
		s.errorf(loc, "vector size not an integral multiple of component size")
		return t
	}
	return ctypes.Tarray{Elem: t, Size: bytes / elem}
}
