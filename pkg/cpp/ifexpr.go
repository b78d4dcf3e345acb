// ifexpr.go evaluates the constant expressions of #if lines. Operands are
// intmax_t or uintmax_t: an operation with an unsigned operand is carried
// out unsigned, so limits such as ULONG_MAX compare the way the compiler
// compares them.
package cpp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ppValue is the value of an #if operand.
type ppValue struct {
	bits     uint64
	unsigned bool
}

func signedValue(v int64) ppValue { return ppValue{bits: uint64(v)} }

func boolValue(b bool) ppValue {
	if b {
		return ppValue{bits: 1}
	}
	return ppValue{}
}

func (v ppValue) truth() bool { return v.bits != 0 }

func (v ppValue) String() string {
	if v.unsigned {
		return strconv.FormatUint(v.bits, 10) + "U"
	}
	return strconv.FormatInt(int64(v.bits), 10)
}

// binaryPrec maps each binary operator to its precedence; higher binds
// tighter.
var binaryPrec = map[string]int{
	"*": 10, "/": 10, "%": 10,
	"+": 9, "-": 9,
	"<<": 8, ">>": 8,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"==": 6, "!=": 6,
	"&": 5,
	"^": 4,
	"|": 3,
	"&&": 2,
	"||": 1,
}

// evalIfExpr evaluates a fully macro-expanded #if operand.
func evalIfExpr(tokens []Token) (ppValue, error) {
	p := &ifParser{}
	for _, tok := range tokens {
		if tok.Type != PP_WHITESPACE && tok.Type != PP_NEWLINE {
			p.tokens = append(p.tokens, tok)
		}
	}
	if len(p.tokens) == 0 {
		return ppValue{}, fmt.Errorf("#if with no expression")
	}
	v, err := p.conditional(true)
	if err != nil {
		return ppValue{}, err
	}
	if p.pos < len(p.tokens) {
		return ppValue{}, fmt.Errorf("missing binary operator before %q", p.tokens[p.pos].Text)
	}
	return v, nil
}

// ifParser is a precedence-climbing parser. Subexpressions parsed with
// eval false are only checked for syntax, so a short-circuited operand may
// divide by zero.
type ifParser struct {
	tokens []Token
	pos    int
}

func (p *ifParser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: PP_EOF}
	}
	return p.tokens[p.pos]
}

func (p *ifParser) accept(op string) bool {
	if isPunct(p.peek(), op) {
		p.pos++
		return true
	}
	return false
}

func (p *ifParser) conditional(eval bool) (ppValue, error) {
	cond, err := p.binary(1, eval)
	if err != nil || !p.accept("?") {
		return cond, err
	}
	then, err := p.conditional(eval && cond.truth())
	if err != nil {
		return ppValue{}, err
	}
	if !p.accept(":") {
		return ppValue{}, fmt.Errorf("expected ':' in conditional expression")
	}
	otherwise, err := p.conditional(eval && !cond.truth())
	if err != nil {
		return ppValue{}, err
	}
	v := otherwise
	if cond.truth() {
		v = then
	}
	v.unsigned = then.unsigned || otherwise.unsigned
	return v, nil
}

func (p *ifParser) binary(minPrec int, eval bool) (ppValue, error) {
	lhs, err := p.unary(eval)
	if err != nil {
		return ppValue{}, err
	}
	for {
		op := p.peek()
		prec, ok := binaryPrec[op.Text]
		if op.Type != PP_PUNCTUATOR || !ok || prec < minPrec {
			return lhs, nil
		}
		p.pos++

		rhsEval := eval
		switch op.Text {
		case "&&":
			rhsEval = eval && lhs.truth()
		case "||":
			rhsEval = eval && !lhs.truth()
		}
		rhs, err := p.binary(prec+1, rhsEval)
		if err != nil {
			return ppValue{}, err
		}
		if !eval {
			lhs = ppValue{unsigned: lhs.unsigned || rhs.unsigned}
			continue
		}
		if lhs, err = applyBinary(op.Text, lhs, rhs); err != nil {
			return ppValue{}, err
		}
	}
}

func applyBinary(op string, a, b ppValue) (ppValue, error) {
	switch op {
	case "&&":
		return boolValue(a.truth() && b.truth()), nil
	case "||":
		return boolValue(a.truth() || b.truth()), nil
	case "<<", ">>":
		return shift(op, a, b), nil
	}

	u := a.unsigned || b.unsigned
	x, y := a.bits, b.bits
	sx, sy := int64(x), int64(y)
	switch op {
	case "<":
		return boolValue(u && x < y || !u && sx < sy), nil
	case ">":
		return boolValue(u && x > y || !u && sx > sy), nil
	case "<=":
		return boolValue(u && x <= y || !u && sx <= sy), nil
	case ">=":
		return boolValue(u && x >= y || !u && sx >= sy), nil
	case "==":
		return boolValue(x == y), nil
	case "!=":
		return boolValue(x != y), nil
	}

	var r uint64
	switch op {
	case "+":
		r = x + y
	case "-":
		r = x - y
	case "*":
		r = x * y
	case "&":
		r = x & y
	case "|":
		r = x | y
	case "^":
		r = x ^ y
	case "/", "%":
		if y == 0 {
			return ppValue{}, fmt.Errorf("division by zero in #if")
		}
		switch {
		case u && op == "/":
			r = x / y
		case u:
			r = x % y
		case sx == math.MinInt64 && sy == -1:
			r = x
			if op == "%" {
				r = 0
			}
		case op == "/":
			r = uint64(sx / sy)
		default:
			r = uint64(sx % sy)
		}
	}
	return ppValue{bits: r, unsigned: u}, nil
}

// shift keeps the type of its left operand. Counts outside [0, 64) give 0,
// or -1 for a right shift of a negative signed value.
func shift(op string, a, b ppValue) ppValue {
	n := b.bits
	if !b.unsigned && int64(n) < 0 {
		n = -n
		if op == "<<" {
			op = ">>"
		} else {
			op = "<<"
		}
	}
	if n >= 64 {
		if op == ">>" && !a.unsigned && int64(a.bits) < 0 {
			return signedValue(-1)
		}
		return ppValue{unsigned: a.unsigned}
	}
	switch {
	case op == "<<":
		return ppValue{bits: a.bits << n, unsigned: a.unsigned}
	case a.unsigned:
		return ppValue{bits: a.bits >> n, unsigned: true}
	default:
		return signedValue(int64(a.bits) >> n)
	}
}

func (p *ifParser) unary(eval bool) (ppValue, error) {
	tok := p.peek()
	if tok.Type == PP_PUNCTUATOR {
		switch tok.Text {
		case "!", "-", "+", "~":
			p.pos++
			v, err := p.unary(eval)
			if err != nil {
				return ppValue{}, err
			}
			switch tok.Text {
			case "!":
				return boolValue(!v.truth()), nil
			case "-":
				v.bits = -v.bits
			case "~":
				v.bits = ^v.bits
			}
			return v, nil
		case "(":
			p.pos++
			v, err := p.conditional(eval)
			if err != nil {
				return ppValue{}, err
			}
			if !p.accept(")") {
				return ppValue{}, fmt.Errorf("missing ')' in expression")
			}
			return v, nil
		}
	}

	p.pos++
	switch tok.Type {
	case PP_NUMBER:
		return parseNumber(tok.Text)
	case PP_CHAR_CONST:
		return parseCharConst(tok.Text)
	case PP_IDENTIFIER:
		// Identifiers left after expansion are not macros and count as 0.
		return boolValue(tok.Text == "true"), nil
	case PP_EOF:
		return ppValue{}, fmt.Errorf("#if expression ends early")
	}
	return ppValue{}, fmt.Errorf("token %q is not valid in preprocessor expressions", tok.Text)
}

// parseNumber parses an integer constant with its suffix. A u suffix or a
// value above INTMAX_MAX makes it unsigned.
func parseNumber(s string) (ppValue, error) {
	digits := strings.TrimRight(s, "lLuU")
	unsigned := strings.ContainsAny(s[len(digits):], "uU")

	base := 10
	switch {
	case strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X"):
		digits, base = digits[2:], 16
	case strings.HasPrefix(digits, "0b") || strings.HasPrefix(digits, "0B"):
		digits, base = digits[2:], 2
	case len(digits) > 1 && digits[0] == '0':
		digits, base = digits[1:], 8
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		if strings.ContainsAny(s, ".eEpP") && base != 16 || strings.ContainsAny(s, ".pP") {
			return ppValue{}, fmt.Errorf("floating constant %s in preprocessor expression", s)
		}
		return ppValue{}, fmt.Errorf("invalid integer constant %s", s)
	}
	return ppValue{bits: v, unsigned: unsigned || v > math.MaxInt64}, nil
}

// simpleEscapes maps the character after a backslash to its value.
var simpleEscapes = map[byte]int64{
	'n': '\n', 't': '\t', 'r': '\r', 'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v',
	'\\': '\\', '\'': '\'', '"': '"', '?': '?',
}

// parseCharConst gives the value of a single-character constant such as
// 'a', '\n', '\x7f' or L'\0'.
func parseCharConst(s string) (ppValue, error) {
	s = s[strings.IndexByte(s, '\'')+1:]
	if !strings.HasSuffix(s, "'") || len(s) < 2 {
		return ppValue{}, fmt.Errorf("invalid character constant")
	}
	inner := s[:len(s)-1]
	if inner[0] != '\\' {
		return signedValue(int64(inner[0])), nil
	}
	if len(inner) < 2 {
		return ppValue{}, fmt.Errorf("invalid escape in character constant")
	}
	if v, ok := simpleEscapes[inner[1]]; ok {
		return signedValue(v), nil
	}
	base, digits := 8, inner[1:]
	if inner[1] == 'x' {
		base, digits = 16, inner[2:]
	}
	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return ppValue{}, fmt.Errorf("invalid escape \\%s in character constant", inner[1:])
	}
	return signedValue(v), nil
}
