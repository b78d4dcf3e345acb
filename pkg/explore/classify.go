package explore

import (
	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
)

// classify assigns a kind to t. The returned type is the one the kind's
// handler works on: the declared type for tagged and typedef types, the
// function type for function pointers.
func classify(t cindex.Type, parentKind cast.Kind) (cast.Kind, cindex.Type, error) {
	if decl := t.Declaration(); decl != nil {
		if dt := decl.Type(); dt.Kind() != cindex.TypeInvalid {
			t = dt
		}
	}

	kind := t.Kind()
	if kind.IsPrimitive() {
		return cast.KindPrimitive, t, nil
	}

	switch kind {
	case cindex.TypeEnum:
		return cast.KindEnum, t, nil

	case cindex.TypeRecord:
		if t.SizeOf() < 0 {
			return cast.KindOpaqueType, t, nil
		}
		if decl := t.Declaration(); decl != nil && decl.Kind() == cindex.CursorUnionDecl {
			return cast.KindUnion, t, nil
		}
		return cast.KindStruct, t, nil

	case cindex.TypeTypedef:
		decl := t.Declaration()
		if decl == nil {
			return cast.KindUnknown, t, apperrors.Unreachable("typedef '%s' has no declaration", t.Spelling())
		}
		underlying := decl.TypedefUnderlyingType()
		if underlying.Kind() == cindex.TypePointer {
			return cast.KindTypeAlias, t, nil
		}
		k, _, err := classify(underlying, cast.KindTypeAlias)
		if err != nil {
			return cast.KindUnknown, t, err
		}
		if k == cast.KindOpaqueType {
			return cast.KindOpaqueType, t, nil
		}
		return cast.KindTypeAlias, t, nil

	case cindex.TypeFunctionProto, cindex.TypeFunctionNoProto:
		if t.Declaration() == nil || parentKind == cast.KindTypeAlias {
			return cast.KindFunctionPointer, t, nil
		}
		return cast.KindFunction, t, nil

	case cindex.TypePointer:
		pointee := t.Pointee()
		if pointee.Kind() == cindex.TypeAttributed {
			pointee = pointee.Modified()
		}
		if isFunction(pointee) {
			return cast.KindFunctionPointer, pointee, nil
		}
		return cast.KindPointer, t, nil

	case cindex.TypeAttributed:
		return classify(t.Modified(), parentKind)

	case cindex.TypeElaborated:
		return classify(t.Named(), parentKind)

	case cindex.TypeConstantArray, cindex.TypeIncompleteArray:
		return cast.KindArray, t, nil

	case cindex.TypeUnexposed:
		canonical := t.Canonical()
		if canonical.Kind() == cindex.TypeUnexposed {
			return cast.KindUnknown, t, apperrors.UnknownTypeKind(kind.String(), t.Spelling())
		}
		return classify(canonical, parentKind)
	}
	return cast.KindUnknown, t, apperrors.UnknownTypeKind(kind.String(), t.Spelling())
}

func isFunction(t cindex.Type) bool {
	switch t.Kind() {
	case cindex.TypeFunctionProto, cindex.TypeFunctionNoProto:
		return true
	}
	return false
}
