package explore

import (
	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
)

// callingConvention maps the convention of a function type. Only the C
// convention can be bound.
func callingConvention(name string, t cindex.Type) (cast.CallingConvention, error) {
	cc := t.CallingConv()
	if cc == cindex.CallingConvC {
		return cast.CallingConventionC, nil
	}
	return "", apperrors.Newf(apperrors.CodeCallingConvention,
		"unsupported calling convention '%s' for '%s'", cc, name).
		WithDetail("calling_convention", cc.String())
}

func (s *session) exploreFunction(info *infoNode) (cast.Node, error) {
	cc, err := callingConvention(info.name, info.typ)
	if err != nil {
		return nil, err
	}
	ret, err := s.VisitType(info.cursor.ResultType(), info, 0)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		s.log.Debug("Function return type is blocked", "function", info.name)
		return nil, nil
	}

	fn := &cast.Function{
		Name:              info.name,
		Location:          info.location,
		CallingConvention: cc,
		ReturnType:        *ret,
		IsVariadic:        info.typ.IsVariadic(),
	}
	for i, arg := range info.cursor.Arguments() {
		t, err := s.VisitType(arg.Type(), info, i)
		if err != nil {
			return nil, err
		}
		if t == nil {
			s.log.Debug("Function parameter type is blocked", "function", info.name, "parameter", arg.Spelling())
			return nil, nil
		}
		fn.Parameters = append(fn.Parameters, cast.FunctionParameter{
			Name:     arg.Spelling(),
			Location: s.location(arg, nil),
			Type:     *t,
		})
	}
	return fn, nil
}

func (s *session) exploreFunctionPointer(info *infoNode) (cast.Node, error) {
	cc, err := callingConvention(info.name, info.typ)
	if err != nil {
		return nil, err
	}
	ret, err := s.VisitType(info.typ.Result(), info, 0)
	if err != nil || ret == nil {
		return nil, err
	}
	fp := &cast.FunctionPointer{
		Name:     info.name,
		Location: info.location,
		Type: cast.TypeInfo{
			Name:     info.name,
			Kind:     cast.KindFunctionPointer,
			SizeOf:   s.pointerSize,
			AlignOf:  s.pointerAlign(),
			Location: info.location,
		},
		CallingConvention: cc,
		ReturnType:        *ret,
	}
	for i, arg := range info.typ.ArgTypes() {
		t, err := s.VisitType(arg, info, i)
		if err != nil || t == nil {
			return nil, err
		}
		fp.Parameters = append(fp.Parameters, cast.FunctionPointerParameter{Type: *t})
	}
	return fp, nil
}
