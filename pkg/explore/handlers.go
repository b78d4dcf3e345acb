package explore

import (
	"slices"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
)

// kindSet matches any kind when nil.
type kindSet[K comparable] []K

func (ks kindSet[K]) contains(k K) bool {
	return ks == nil || slices.Contains(ks, k)
}

var (
	functionTypeKinds = kindSet[cindex.TypeKind]{cindex.TypeFunctionProto, cindex.TypeFunctionNoProto}
	enumConstantTypes = kindSet[cindex.TypeKind]{
		cindex.TypeCharS, cindex.TypeSChar, cindex.TypeCharU, cindex.TypeUChar,
		cindex.TypeShort, cindex.TypeUShort, cindex.TypeInt, cindex.TypeUInt,
		cindex.TypeLong, cindex.TypeULong, cindex.TypeLongLong, cindex.TypeULongLong,
	}
	primitiveTypeKinds = kindSet[cindex.TypeKind]{
		cindex.TypeVoid, cindex.TypeBool, cindex.TypeCharU, cindex.TypeUChar, cindex.TypeUShort,
		cindex.TypeUInt, cindex.TypeULong, cindex.TypeULongLong, cindex.TypeUInt128,
		cindex.TypeCharS, cindex.TypeSChar, cindex.TypeShort, cindex.TypeInt, cindex.TypeLong,
		cindex.TypeLongLong, cindex.TypeInt128, cindex.TypeHalf, cindex.TypeFloat,
		cindex.TypeDouble, cindex.TypeLongDouble,
	}
)

// expected returns the cursor and type kinds a handler accepts.
func expected(kind cast.Kind) (kindSet[cindex.CursorKind], kindSet[cindex.TypeKind]) {
	switch kind {
	case cast.KindFunction:
		return kindSet[cindex.CursorKind]{cindex.CursorFunctionDecl}, functionTypeKinds
	case cast.KindFunctionPointer:
		return nil, functionTypeKinds
	case cast.KindVariable:
		return kindSet[cindex.CursorKind]{cindex.CursorVarDecl}, nil
	case cast.KindStruct:
		return kindSet[cindex.CursorKind]{cindex.CursorStructDecl}, kindSet[cindex.TypeKind]{cindex.TypeRecord}
	case cast.KindUnion:
		return kindSet[cindex.CursorKind]{cindex.CursorUnionDecl}, kindSet[cindex.TypeKind]{cindex.TypeRecord}
	case cast.KindEnum:
		return kindSet[cindex.CursorKind]{cindex.CursorEnumDecl}, kindSet[cindex.TypeKind]{cindex.TypeEnum}
	case cast.KindEnumConstant:
		return kindSet[cindex.CursorKind]{cindex.CursorEnumConstantDecl}, enumConstantTypes
	case cast.KindTypeAlias:
		return kindSet[cindex.CursorKind]{cindex.CursorTypedefDecl}, kindSet[cindex.TypeKind]{cindex.TypeTypedef}
	case cast.KindOpaqueType:
		return kindSet[cindex.CursorKind]{cindex.CursorStructDecl, cindex.CursorUnionDecl, cindex.CursorTypedefDecl},
			kindSet[cindex.TypeKind]{cindex.TypeRecord, cindex.TypeTypedef}
	case cast.KindPointer:
		return nil, kindSet[cindex.TypeKind]{cindex.TypePointer}
	case cast.KindArray:
		return nil, kindSet[cindex.TypeKind]{cindex.TypeConstantArray, cindex.TypeIncompleteArray}
	case cast.KindPrimitive:
		return nil, primitiveTypeKinds
	case cast.KindMacroObject:
		return kindSet[cindex.CursorKind]{cindex.CursorMacroDefinition}, nil
	}
	return kindSet[cindex.CursorKind]{}, kindSet[cindex.TypeKind]{}
}

// visit checks a candidate against its handler and explores it. Mismatched
// and repeated candidates are logged and dropped.
func (s *session) visit(info *infoNode) (cast.Node, error) {
	log := s.log.With("kind", info.kind.String(), "name", info.name)
	cursors, types := expected(info.kind)

	if cursors != nil {
		if info.cursor == nil || !cursors.contains(info.cursor.Kind()) {
			got := "none"
			if info.cursor != nil {
				got = info.cursor.Kind().String()
			}
			log.Error("Unexpected cursor kind", "cursor_kind", got)
			return nil, nil
		}
	}
	if types != nil {
		if info.typ == nil || !types.contains(info.typ.Kind()) {
			got := "none"
			if info.typ != nil {
				got = info.typ.Kind().String()
			}
			log.Error("Unexpected type kind", "type_kind", got)
			return nil, nil
		}
	}
	key := visitKey{info.kind, info.name}
	if s.visited[key] {
		log.Error("Already explored")
		return nil, nil
	}
	s.visited[key] = true

	log.Debug("Exploring")
	node, err := s.explore(info)
	if err != nil {
		return nil, err
	}
	if node == nil {
		log.Debug("Ignored")
		return nil, nil
	}
	log.Debug("Explored")
	return node, nil
}

func (s *session) explore(info *infoNode) (cast.Node, error) {
	switch info.kind {
	case cast.KindFunction:
		return s.exploreFunction(info)
	case cast.KindFunctionPointer:
		return s.exploreFunctionPointer(info)
	case cast.KindVariable:
		return s.exploreVariable(info)
	case cast.KindStruct:
		return s.exploreRecord(info, false)
	case cast.KindUnion:
		return s.exploreRecord(info, true)
	case cast.KindEnum:
		return s.exploreEnum(info)
	case cast.KindEnumConstant:
		return s.exploreEnumConstant(info)
	case cast.KindTypeAlias:
		return s.exploreTypeAlias(info)
	case cast.KindOpaqueType:
		return &cast.OpaqueType{Name: info.name, Location: info.location}, nil
	case cast.KindPointer:
		return s.explorePointer(info)
	case cast.KindArray:
		return s.exploreArray(info)
	case cast.KindPrimitive:
		ti, err := s.createTypeInfo(info, info.typ)
		if err != nil {
			return nil, err
		}
		return &cast.Primitive{Name: info.name, Type: *ti}, nil
	case cast.KindMacroObject:
		return s.exploreMacroObject(info)
	}
	return nil, apperrors.Unreachable("no handler for kind %s", info.kind)
}

func (s *session) exploreVariable(info *infoNode) (cast.Node, error) {
	t, err := s.VisitType(info.cursor.Type(), info, 0)
	if err != nil || t == nil {
		return nil, err
	}
	return &cast.Variable{Name: info.name, Location: info.location, Type: *t}, nil
}

func (s *session) exploreEnum(info *infoNode) (cast.Node, error) {
	integer, err := s.VisitType(info.cursor.EnumIntegerType(), info, 0)
	if err != nil || integer == nil {
		return nil, err
	}
	enum := &cast.Enum{Name: info.name, Location: info.location, IntegerType: *integer}
	for _, c := range info.cursor.Children() {
		if c.Kind() != cindex.CursorEnumConstantDecl {
			continue
		}
		enum.Values = append(enum.Values, cast.EnumValue{Name: c.Spelling(), Value: c.EnumConstantValue()})
	}
	return enum, nil
}

func (s *session) exploreEnumConstant(info *infoNode) (cast.Node, error) {
	t, err := s.VisitType(info.typ, info.parent, 0)
	if err != nil || t == nil {
		return nil, err
	}
	loc := s.location(info.cursor, nil)
	if loc.IsNull() && info.parent != nil {
		loc = info.parent.location
	}
	return &cast.EnumConstant{
		Name:     info.name,
		Location: loc,
		Type:     *t,
		Value:    info.cursor.EnumConstantValue(),
	}, nil
}

func (s *session) exploreTypeAlias(info *infoNode) (cast.Node, error) {
	inner := info.inner
	if inner == nil {
		var err error
		inner, err = s.VisitType(info.cursor.TypedefUnderlyingType(), info, 0)
		if err != nil || inner == nil {
			return nil, err
		}
	}
	if inner.Name == info.name {
		return nil, nil
	}
	return &cast.TypeAlias{Name: info.name, Location: info.location, UnderlyingType: *inner}, nil
}

func (s *session) explorePointer(info *infoNode) (cast.Node, error) {
	ti, err := s.createTypeInfo(info, info.typ)
	if err != nil {
		return nil, err
	}
	if _, err := s.VisitType(info.typ.Pointee(), info, 0); err != nil {
		return nil, err
	}
	return &cast.Pointer{Name: info.name, Type: *ti}, nil
}

func (s *session) exploreArray(info *infoNode) (cast.Node, error) {
	ti, err := s.createTypeInfo(info, info.typ)
	if err != nil {
		return nil, err
	}
	if _, err := s.VisitType(info.typ.Element(), info, 0); err != nil {
		return nil, err
	}
	return &cast.Array{Name: info.name, Type: *ti}, nil
}
