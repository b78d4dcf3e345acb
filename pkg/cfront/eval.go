package cfront

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cabs"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/ctypes"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

var errNotConstant = errors.New("expression is not an integer constant expression")

// value is the result of a constant expression. Integers keep their bits in
// i; unsigned 64-bit values are reinterpreted.
type value struct {
	kind cindex.EvalKind
	typ  ctypes.Type
	i    int64
	f    float64
	s    string
}

func (v value) truthy() bool {
	switch v.kind {
	case cindex.EvalFloat:
		return v.f != 0
	case cindex.EvalString:
		return true
	}
	return v.i != 0
}

func intValue(t ctypes.Type, i int64) value {
	return value{kind: cindex.EvalInt, typ: t, i: i}
}

// evalInt evaluates an integer constant expression, reporting failures as
// error diagnostics at loc.
func (s *sema) evalInt(e cabs.Expr, loc cabs.Loc) (int64, bool) {
	v, err := s.eval(e)
	if err == nil && v.kind != cindex.EvalInt {
		err = errNotConstant
	}
	if err != nil {
		s.errorf(loc, "%v", err)
		return 0, false
	}
	return v.i, true
}

func (s *sema) eval(e cabs.Expr) (value, error) {
	switch x := e.(type) {
	case cabs.Constant:
		t := s.literalType(x)
		return intValue(t, s.truncate(x.Value, t)), nil
	case cabs.FloatConst:
		if x.Single {
			return value{kind: cindex.EvalFloat, typ: ctypes.Float(), f: float64(float32(x.Value))}, nil
		}
		return value{kind: cindex.EvalFloat, typ: ctypes.Double(), f: x.Value}, nil
	case cabs.StringLit:
		return value{kind: cindex.EvalString, typ: ctypes.Pointer(ctypes.Char()), s: unescape(x.Value)}, nil
	case cabs.Variable:
		if c := s.u.enumConsts[x.Name]; c != nil {
			return intValue(c.typ, c.value), nil
		}
		if s.ordinary[x.Name] != nil {
			return value{}, fmt.Errorf("'%s' is not a constant", x.Name)
		}
		return value{}, fmt.Errorf("use of undeclared identifier '%s'", x.Name)
	case cabs.Paren:
		return s.eval(x.Expr)
	case cabs.Unary:
		return s.unary(x)
	case cabs.Binary:
		return s.binary(x)
	case cabs.Conditional:
		return s.conditional(x)
	case cabs.Cast:
		v, err := s.eval(x.Expr)
		if err != nil {
			return v, err
		}
		return s.convert(v, s.typeName(x.Type, cabs.Loc{}))
	case cabs.SizeofType:
		return s.sizeOf(s.typeName(x.Type, cabs.Loc{}))
	case cabs.SizeofExpr:
		if str, ok := x.Expr.(cabs.StringLit); ok {
			return intValue(s.sizeType(), int64(len(unescape(str.Value))+1)), nil
		}
		v, err := s.eval(x.Expr)
		if err != nil {
			return v, err
		}
		return s.sizeOf(v.typ)
	case cabs.AlignofType:
		t := s.typeName(x.Type, cabs.Loc{})
		align := s.u.layout.AlignOf(t)
		if align < 0 {
			return value{}, fmt.Errorf("invalid application of 'alignof' to an incomplete type '%s'", ctypes.Spell(t))
		}
		return intValue(s.sizeType(), align), nil
	case cabs.OffsetOf:
		return s.offsetOf(x)
	case nil:
		return value{}, errNotConstant
	}
	return value{}, errNotConstant
}

func (s *sema) sizeOf(t ctypes.Type) (value, error) {
	size := s.u.layout.SizeOf(t)
	if size < 0 {
		return value{}, fmt.Errorf("invalid application of 'sizeof' to an incomplete type '%s'", ctypes.Spell(t))
	}
	return intValue(s.sizeType(), size), nil
}

// sizeType is the type of sizeof expressions, size_t.
func (s *sema) sizeType() ctypes.Type {
	switch s.u.target.DataModel() {
	case platform.LP64:
		return ctypes.ULong()
	case platform.LLP64:
		return ctypes.ULongLong()
	}
	return ctypes.UInt()
}

func (s *sema) offsetOf(x cabs.OffsetOf) (value, error) {
	t := s.typeName(x.Type, cabs.Loc{})
	var bits int64
	for _, name := range x.Member {
		rec := recordOf(t)
		if rec == nil || !rec.Complete {
			return value{}, fmt.Errorf("offsetof requires a complete struct or union type, got '%s'", ctypes.Spell(t))
		}
		off, ft, ok := s.findField(rec, name)
		if !ok {
			return value{}, fmt.Errorf("no member named '%s' in '%s'", name, ctypes.Spell(t))
		}
		bits += off
		t = ft
	}
	return intValue(s.sizeType(), bits/8), nil
}

func recordOf(t ctypes.Type) *ctypes.Record {
	switch c := ctypes.Canonical(t).(type) {
	case ctypes.Tstruct:
		return c.Rec
	case ctypes.Tunion:
		return c.Rec
	}
	return nil
}

// findField looks a member up by name, descending into anonymous members.
func (s *sema) findField(rec *ctypes.Record, name string) (int64, ctypes.Type, bool) {
	rl, ok := s.u.layout.Record(rec)
	if !ok {
		return 0, nil, false
	}
	for i, f := range rec.Fields {
		if f.Name == name {
			return rl.Offsets[i], f.Type, true
		}
		if f.Name == "" {
			if sub := recordOf(f.Type); sub != nil {
				if off, ft, ok := s.findField(sub, name); ok {
					return rl.Offsets[i] + off, ft, true
				}
			}
		}
	}
	return 0, nil, false
}

// literalType applies the C rules for the type of an integer constant: the
// first of int, long, long long (with unsigned variants for octal, hex and
// u-suffixed literals) that can hold the value.
func (s *sema) literalType(c cabs.Constant) ctypes.Type {
	if strings.HasPrefix(c.Text, "'") || c.Text == "" {
		return ctypes.Int()
	}
	decimal := !strings.HasPrefix(c.Text, "0") || c.Text == "0"
	var candidates []ctypes.Type
	add := func(signed, unsigned ctypes.Type) {
		if !c.Unsigned {
			candidates = append(candidates, signed)
		}
		if c.Unsigned || !decimal {
			candidates = append(candidates, unsigned)
		}
	}
	if c.Long == 0 {
		add(ctypes.Int(), ctypes.UInt())
	}
	if c.Long <= 1 {
		add(ctypes.Long(), ctypes.ULong())
	}
	add(ctypes.LongLong(), ctypes.ULongLong())

	u := uint64(c.Value)
	for _, t := range candidates {
		if u <= s.maxValue(t) {
			return t
		}
	}
	return ctypes.ULongLong()
}

func (s *sema) maxValue(t ctypes.Type) uint64 {
	bits := uint(s.u.layout.SizeOf(t) * 8)
	if bits == 0 || bits > 64 {
		bits = 64
	}
	if ctypes.IsUnsigned(t) {
		if bits == 64 {
			return math.MaxUint64
		}
		return 1<<bits - 1
	}
	return 1<<(bits-1) - 1
}

// truncate wraps v to the width and signedness of t.
func (s *sema) truncate(v int64, t ctypes.Type) int64 {
	c := ctypes.Canonical(t)
	if i, ok := c.(ctypes.Tint); ok && i.Size == ctypes.IBool {
		if v != 0 {
			return 1
		}
		return 0
	}
	size := s.u.layout.SizeOf(c)
	if size <= 0 || size >= 8 {
		return v
	}
	bits := uint(size * 8)
	if ctypes.IsUnsigned(c) || isUnsignedPlainChar(c, s.u.target) {
		return v & (1<<bits - 1)
	}
	return v << (64 - bits) >> (64 - bits)
}

func isUnsignedPlainChar(t ctypes.Type, target platform.TargetPlatform) bool {
	i, ok := t.(ctypes.Tint)
	return ok && i.Plain && !target.CharIsSigned()
}

func intRank(t ctypes.Type) int {
	switch c := ctypes.Canonical(t).(type) {
	case ctypes.Tint:
		switch c.Size {
		case ctypes.IBool:
			return 0
		case ctypes.I8:
			return 1
		case ctypes.I16:
			return 2
		case ctypes.I128:
			return 6
		}
		return 3
	case ctypes.Tlong:
		if c.LongLong {
			return 5
		}
		return 4
	case ctypes.Tenum:
		if c.Enum != nil && c.Enum.Underlying != nil {
			return intRank(c.Enum.Underlying)
		}
	}
	return 3
}

// promote applies the integer promotions.
func (s *sema) promote(t ctypes.Type) ctypes.Type {
	c := ctypes.Canonical(t)
	if e, ok := c.(ctypes.Tenum); ok && e.Enum != nil && e.Enum.Underlying != nil {
		c = ctypes.Canonical(e.Enum.Underlying)
	}
	if intRank(c) < 3 {
		return ctypes.Int()
	}
	return c
}

func toUnsigned(t ctypes.Type) ctypes.Type {
	switch c := t.(type) {
	case ctypes.Tint:
		c.Sign, c.Plain = ctypes.Unsigned, false
		return c
	case ctypes.Tlong:
		c.Sign = ctypes.Unsigned
		return c
	}
	return t
}

// commonType applies the usual arithmetic conversions.
func (s *sema) commonType(a, b ctypes.Type) ctypes.Type {
	a, b = s.promote(a), s.promote(b)
	_, af := a.(ctypes.Tfloat)
	_, bf := b.(ctypes.Tfloat)
	switch {
	case af && bf:
		if s.u.layout.SizeOf(b) > s.u.layout.SizeOf(a) {
			return b
		}
		return a
	case af:
		return a
	case bf:
		return b
	}

	ra, rb := intRank(a), intRank(b)
	ua, ub := ctypes.IsUnsigned(a), ctypes.IsUnsigned(b)
	if ua == ub {
		if rb > ra {
			return b
		}
		return a
	}
	u, sg, ru, rs := a, b, ra, rb
	if ub {
		u, sg, ru, rs = b, a, rb, ra
	}
	if ru >= rs {
		return u
	}
	if s.u.layout.SizeOf(sg) > s.u.layout.SizeOf(u) {
		return sg
	}
	return toUnsigned(sg)
}

func (s *sema) toFloat(v value) float64 {
	if v.kind == cindex.EvalFloat {
		return v.f
	}
	if ctypes.IsUnsigned(v.typ) {
		return float64(uint64(v.i))
	}
	return float64(v.i)
}

// convert casts v to t.
func (s *sema) convert(v value, t ctypes.Type) (value, error) {
	if v.kind == cindex.EvalString {
		return value{}, errNotConstant
	}
	switch ctypes.Canonical(t).(type) {
	case ctypes.Tint, ctypes.Tlong, ctypes.Tenum:
		i := v.i
		if v.kind == cindex.EvalFloat {
			i = int64(v.f)
		}
		return intValue(t, s.truncate(i, t)), nil
	case ctypes.Tfloat:
		f := s.toFloat(v)
		if ctypes.Equal(ctypes.Canonical(t), ctypes.Float()) {
			f = float64(float32(f))
		}
		return value{kind: cindex.EvalFloat, typ: t, f: f}, nil
	}
	return value{}, fmt.Errorf("cannot evaluate cast to '%s'", ctypes.Spell(t))
}

func (s *sema) unary(x cabs.Unary) (value, error) {
	v, err := s.eval(x.Expr)
	if err != nil {
		return v, err
	}
	if v.kind == cindex.EvalString {
		return value{}, errNotConstant
	}
	switch x.Op {
	case cabs.OpNot:
		if v.truthy() {
			return intValue(ctypes.Int(), 0), nil
		}
		return intValue(ctypes.Int(), 1), nil
	case cabs.OpPlus, cabs.OpNeg, cabs.OpBitNot:
		if v.kind == cindex.EvalFloat {
			switch x.Op {
			case cabs.OpNeg:
				v.f = -v.f
			case cabs.OpBitNot:
				return value{}, errors.New("invalid argument type to unary expression")
			}
			return v, nil
		}
		t := s.promote(v.typ)
		i := v.i
		switch x.Op {
		case cabs.OpNeg:
			i = -i
		case cabs.OpBitNot:
			i = ^i
		}
		return intValue(t, s.truncate(i, t)), nil
	}
	return value{}, errNotConstant
}

func (s *sema) binary(x cabs.Binary) (value, error) {
	switch x.Op {
	case cabs.OpAnd, cabs.OpOr:
		l, err := s.eval(x.Left)
		if err != nil {
			return l, err
		}
		if l.truthy() == (x.Op == cabs.OpOr) {
			return intValue(ctypes.Int(), boolInt(x.Op == cabs.OpOr)), nil
		}
		r, err := s.eval(x.Right)
		if err != nil {
			return r, err
		}
		return intValue(ctypes.Int(), boolInt(r.truthy())), nil
	case cabs.OpComma:
		if _, err := s.eval(x.Left); err != nil {
			return value{}, err
		}
		return s.eval(x.Right)
	case cabs.OpAssign:
		return value{}, errNotConstant
	}

	l, err := s.eval(x.Left)
	if err != nil {
		return l, err
	}
	r, err := s.eval(x.Right)
	if err != nil {
		return r, err
	}
	if l.kind == cindex.EvalString || r.kind == cindex.EvalString {
		return value{}, errNotConstant
	}
	if l.kind == cindex.EvalFloat || r.kind == cindex.EvalFloat {
		return s.floatBinary(x.Op, l, r)
	}

	if x.Op == cabs.OpShl || x.Op == cabs.OpShr {
		t := s.promote(l.typ)
		bits := s.u.layout.SizeOf(t) * 8
		if r.i < 0 || r.i >= bits {
			return value{}, fmt.Errorf("shift count %d is out of range for '%s'", r.i, ctypes.Spell(t))
		}
		a := s.truncate(l.i, t)
		if x.Op == cabs.OpShl {
			return intValue(t, s.truncate(a<<uint(r.i), t)), nil
		}
		if ctypes.IsUnsigned(t) {
			return intValue(t, s.truncate(int64(uint64(a)>>uint(r.i)), t)), nil
		}
		return intValue(t, a>>uint(r.i)), nil
	}

	t := s.commonType(l.typ, r.typ)
	a, b := s.truncate(l.i, t), s.truncate(r.i, t)
	unsigned := ctypes.IsUnsigned(t)
	var res int64
	switch x.Op {
	case cabs.OpAdd:
		res = a + b
	case cabs.OpSub:
		res = a - b
	case cabs.OpMul:
		res = a * b
	case cabs.OpDiv, cabs.OpMod:
		if b == 0 {
			return value{}, errors.New("division by zero")
		}
		switch {
		case unsigned && x.Op == cabs.OpDiv:
			res = int64(uint64(a) / uint64(b))
		case unsigned:
			res = int64(uint64(a) % uint64(b))
		case x.Op == cabs.OpDiv:
			res = a / b
		default:
			res = a % b
		}
	case cabs.OpBitAnd:
		res = a & b
	case cabs.OpBitOr:
		res = a | b
	case cabs.OpBitXor:
		res = a ^ b
	case cabs.OpLt, cabs.OpLe, cabs.OpGt, cabs.OpGe, cabs.OpEq, cabs.OpNe:
		return intValue(ctypes.Int(), boolInt(compare(x.Op, a, b, unsigned))), nil
	default:
		return value{}, errNotConstant
	}
	return intValue(t, s.truncate(res, t)), nil
}

func compare(op cabs.BinaryOp, a, b int64, unsigned bool) bool {
	cmp := 0
	switch {
	case unsigned && uint64(a) < uint64(b), !unsigned && a < b:
		cmp = -1
	case a != b:
		cmp = 1
	}
	switch op {
	case cabs.OpLt:
		return cmp < 0
	case cabs.OpLe:
		return cmp <= 0
	case cabs.OpGt:
		return cmp > 0
	case cabs.OpGe:
		return cmp >= 0
	case cabs.OpEq:
		return cmp == 0
	}
	return cmp != 0
}

func (s *sema) floatBinary(op cabs.BinaryOp, l, r value) (value, error) {
	t := s.commonType(l.typ, r.typ)
	a, b := s.toFloat(l), s.toFloat(r)
	var res float64
	switch op {
	case cabs.OpAdd:
		res = a + b
	case cabs.OpSub:
		res = a - b
	case cabs.OpMul:
		res = a * b
	case cabs.OpDiv:
		res = a / b
	case cabs.OpLt:
		return intValue(ctypes.Int(), boolInt(a < b)), nil
	case cabs.OpLe:
		return intValue(ctypes.Int(), boolInt(a <= b)), nil
	case cabs.OpGt:
		return intValue(ctypes.Int(), boolInt(a > b)), nil
	case cabs.OpGe:
		return intValue(ctypes.Int(), boolInt(a >= b)), nil
	case cabs.OpEq:
		return intValue(ctypes.Int(), boolInt(a == b)), nil
	case cabs.OpNe:
		return intValue(ctypes.Int(), boolInt(a != b)), nil
	default:
		return value{}, fmt.Errorf("invalid operands to binary expression ('%s')", op)
	}
	if ctypes.Equal(t, ctypes.Float()) {
		res = float64(float32(res))
	}
	return value{kind: cindex.EvalFloat, typ: t, f: res}, nil
}

func (s *sema) conditional(x cabs.Conditional) (value, error) {
	c, err := s.eval(x.Cond)
	if err != nil {
		return c, err
	}
	then, err := s.eval(x.Then)
	if err != nil {
		return then, err
	}
	els, err := s.eval(x.Else)
	if err != nil {
		return els, err
	}
	chosen := els
	if c.truthy() {
		chosen = then
	}
	if then.kind == cindex.EvalString || els.kind == cindex.EvalString {
		return chosen, nil
	}
	return s.convert(chosen, s.commonType(then.typ, els.typ))
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// unescape decodes the escape sequences left in a string literal.
func unescape(body string) string {
	if out, err := strconv.Unquote(`"` + body + `"`); err == nil {
		return out
	}
	return body
}
