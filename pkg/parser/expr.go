package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cabs"
	"github.com/raymyers/ralph-bindgen/pkg/lexer"
)

// binary operator precedence, higher binds tighter
var binaryOps = map[lexer.TokenType]struct {
	op   cabs.BinaryOp
	prec int
}{
	lexer.TokenOr:        {cabs.OpOr, 1},
	lexer.TokenAnd:       {cabs.OpAnd, 2},
	lexer.TokenPipe:      {cabs.OpBitOr, 3},
	lexer.TokenCaret:     {cabs.OpBitXor, 4},
	lexer.TokenAmpersand: {cabs.OpBitAnd, 5},
	lexer.TokenEq:        {cabs.OpEq, 6},
	lexer.TokenNe:        {cabs.OpNe, 6},
	lexer.TokenLt:        {cabs.OpLt, 7},
	lexer.TokenLe:        {cabs.OpLe, 7},
	lexer.TokenGt:        {cabs.OpGt, 7},
	lexer.TokenGe:        {cabs.OpGe, 7},
	lexer.TokenShl:       {cabs.OpShl, 8},
	lexer.TokenShr:       {cabs.OpShr, 8},
	lexer.TokenPlus:      {cabs.OpAdd, 9},
	lexer.TokenMinus:     {cabs.OpSub, 9},
	lexer.TokenStar:      {cabs.OpMul, 10},
	lexer.TokenSlash:     {cabs.OpDiv, 10},
	lexer.TokenPercent:   {cabs.OpMod, 10},
}

var unaryOps = map[lexer.TokenType]cabs.UnaryOp{
	lexer.TokenMinus:     cabs.OpNeg,
	lexer.TokenPlus:      cabs.OpPlus,
	lexer.TokenNot:       cabs.OpNot,
	lexer.TokenTilde:     cabs.OpBitNot,
	lexer.TokenAmpersand: cabs.OpAddrOf,
	lexer.TokenStar:      cabs.OpDeref,
}

// ParseExpression parses a standalone constant expression, such as the body
// of an object-like macro.
func (p *Parser) ParseExpression() cabs.Expr {
	e := p.parseExpression()
	if !p.curTokenIs(lexer.TokenEOF) {
		p.addError(fmt.Sprintf("unexpected %s after expression", describe(p.curToken)))
	}
	return e
}

func (p *Parser) parseExpression() cabs.Expr {
	left := p.parseConditional()
	for p.curTokenIs(lexer.TokenComma) {
		p.nextToken()
		left = cabs.Binary{Op: cabs.OpComma, Left: left, Right: p.parseConditional()}
	}
	return left
}

func (p *Parser) parseConditional() cabs.Expr {
	cond := p.parseBinary(1)
	if !p.curTokenIs(lexer.TokenQuestion) {
		return cond
	}
	p.nextToken()
	then := p.parseExpression()
	if !p.expect(lexer.TokenColon) {
		return cond
	}
	return cabs.Conditional{Cond: cond, Then: then, Else: p.parseConditional()}
}

func (p *Parser) parseBinary(minPrec int) cabs.Expr {
	left := p.parseCast()
	for {
		info, ok := binaryOps[p.curToken.Type]
		if !ok || info.prec < minPrec {
			return left
		}
		p.nextToken()
		right := p.parseBinary(info.prec + 1)
		left = cabs.Binary{Op: info.op, Left: left, Right: right}
	}
}

func (p *Parser) parseCast() cabs.Expr {
	if p.curTokenIs(lexer.TokenLParen) && p.isTypeStart(p.peekToken) {
		p.nextToken()
		tn := p.parseTypeName()
		p.expect(lexer.TokenRParen)
		if p.curTokenIs(lexer.TokenLBrace) {
			p.addError("compound literals are not supported in constant expressions")
			p.skipBalanced()
			return cabs.Cast{Type: tn, Expr: cabs.Constant{}}
		}
		return cabs.Cast{Type: tn, Expr: p.parseCast()}
	}
	return p.parseUnary()
}

func (p *Parser) parseUnary() cabs.Expr {
	if op, ok := unaryOps[p.curToken.Type]; ok {
		p.nextToken()
		return cabs.Unary{Op: op, Expr: p.parseCast()}
	}
	switch p.curToken.Type {
	case lexer.TokenExtension:
		p.nextToken()
		return p.parseCast()
	case lexer.TokenSizeof:
		p.nextToken()
		if p.curTokenIs(lexer.TokenLParen) && p.isTypeStart(p.peekToken) {
			p.nextToken()
			tn := p.parseTypeName()
			p.expect(lexer.TokenRParen)
			return cabs.SizeofType{Type: tn}
		}
		return cabs.SizeofExpr{Expr: p.parseUnary()}
	case lexer.TokenAlignof:
		p.nextToken()
		if !p.expect(lexer.TokenLParen) {
			return nil
		}
		tn := p.parseTypeName()
		p.expect(lexer.TokenRParen)
		return cabs.AlignofType{Type: tn}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() cabs.Expr {
	e := p.parsePrimary()
	for {
		switch p.curToken.Type {
		case lexer.TokenLBracket:
			p.nextToken()
			idx := p.parseExpression()
			p.expect(lexer.TokenRBracket)
			e = cabs.Index{Array: e, Index: idx}
		case lexer.TokenLParen:
			p.nextToken()
			var args []cabs.Expr
			for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
				args = append(args, p.parseConditional())
				if !p.curTokenIs(lexer.TokenComma) {
					break
				}
				p.nextToken()
			}
			p.expect(lexer.TokenRParen)
			e = cabs.Call{Func: e, Args: args}
		case lexer.TokenDot, lexer.TokenArrow:
			arrow := p.curTokenIs(lexer.TokenArrow)
			p.nextToken()
			name := p.curToken.Literal
			if !p.expect(lexer.TokenIdent) {
				return e
			}
			e = cabs.Member{Expr: e, Name: name, Arrow: arrow}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() cabs.Expr {
	t := p.curToken
	switch t.Type {
	case lexer.TokenInt:
		p.nextToken()
		c, err := ParseIntLiteral(t.Literal)
		if err != nil {
			p.errors = append(p.errors, Error{File: t.File, Line: t.Line, Column: t.Column, System: t.System, Msg: err.Error()})
		}
		return c
	case lexer.TokenFloatLit:
		p.nextToken()
		f, err := ParseFloatLiteral(t.Literal)
		if err != nil {
			p.errors = append(p.errors, Error{File: t.File, Line: t.Line, Column: t.Column, System: t.System, Msg: err.Error()})
		}
		return f
	case lexer.TokenCharLit:
		p.nextToken()
		return cabs.Constant{Value: charValue(t.Literal), Text: "'" + t.Literal + "'"}
	case lexer.TokenString:
		return cabs.StringLit{Value: p.parseStringLiterals()}
	case lexer.TokenIdent:
		if t.Literal == "__builtin_offsetof" && p.peekTokenIs(lexer.TokenLParen) {
			return p.parseOffsetOf()
		}
		p.nextToken()
		return cabs.Variable{Name: t.Literal}
	case lexer.TokenLParen:
		p.nextToken()
		e := p.parseExpression()
		p.expect(lexer.TokenRParen)
		return cabs.Paren{Expr: e}
	}
	p.addError(fmt.Sprintf("expected expression, got %s", describe(t)))
	if !p.curTokenIs(lexer.TokenEOF) && !p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
	}
	return nil
}

func (p *Parser) parseOffsetOf() cabs.Expr {
	p.nextToken() // consume __builtin_offsetof
	p.nextToken() // consume (
	off := cabs.OffsetOf{Type: p.parseTypeName()}
	if !p.expect(lexer.TokenComma) {
		return off
	}
	for {
		off.Member = append(off.Member, p.curToken.Literal)
		if !p.expect(lexer.TokenIdent) {
			return off
		}
		if !p.curTokenIs(lexer.TokenDot) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)
	return off
}

// ParseIntLiteral converts an integer literal with optional u/l/ll/i64
// suffixes.
func ParseIntLiteral(lit string) (cabs.Constant, error) {
	c := cabs.Constant{Text: lit}
	digits := strings.ReplaceAll(lit, "'", "")
	lower := strings.ToLower(digits)
	if strings.HasSuffix(lower, "i64") {
		lower = lower[:len(lower)-3]
		c.Long = 2
	}
suffix:
	for len(lower) > 0 {
		switch last := lower[len(lower)-1]; {
		case last == 'u':
			c.Unsigned = true
		case last == 'l':
			c.Long++
		case last == 'b' && strings.HasSuffix(lower, "wb") && !strings.HasPrefix(lower, "0b"):
			lower = lower[:len(lower)-1]
		default:
			break suffix
		}
		lower = lower[:len(lower)-1]
	}
	v, err := strconv.ParseUint(lower, 0, 64)
	if err != nil {
		return c, fmt.Errorf("invalid integer literal %q", lit)
	}
	c.Value = int64(v)
	return c, nil
}

// ParseFloatLiteral converts a decimal or hexadecimal floating literal.
func ParseFloatLiteral(lit string) (cabs.FloatConst, error) {
	f := cabs.FloatConst{Text: lit}
	body := strings.ReplaceAll(lit, "'", "")
	hex := strings.HasPrefix(strings.ToLower(body), "0x")
	for len(body) > 0 {
		last := body[len(body)-1]
		if last == 'l' || last == 'L' || (!hex || strings.ContainsAny(body, "pP")) && (last == 'f' || last == 'F') {
			f.Single = f.Single || last == 'f' || last == 'F'
			body = body[:len(body)-1]
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return f, fmt.Errorf("invalid floating literal %q", lit)
	}
	f.Value = v
	return f, nil
}

var simpleEscapes = map[byte]int64{
	'n': '\n', 't': '\t', 'r': '\r', 'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v',
	'\\': '\\', '\'': '\'', '"': '"', '?': '?', 'e': 27,
}

// charValue returns the value of a character constant body; multi-character
// constants pack bytes big-endian into an int like GCC does.
func charValue(body string) int64 {
	var vals []int64
	for i := 0; i < len(body); {
		c := body[i]
		i++
		if c != '\\' || i >= len(body) {
			vals = append(vals, int64(c))
			continue
		}
		e := body[i]
		switch {
		case e >= '0' && e <= '7':
			var v int64
			for n := 0; n < 3 && i < len(body) && body[i] >= '0' && body[i] <= '7'; n++ {
				v = v*8 + int64(body[i]-'0')
				i++
			}
			vals = append(vals, v)
		case e == 'x':
			i++
			var v int64
			for i < len(body) && strings.IndexByte("0123456789abcdefABCDEF", body[i]) >= 0 {
				d, _ := strconv.ParseInt(body[i:i+1], 16, 64)
				v = v*16 + d
				i++
			}
			vals = append(vals, v)
		default:
			v, ok := simpleEscapes[e]
			if !ok {
				v = int64(e)
			}
			vals = append(vals, v)
			i++
		}
	}
	if len(vals) == 1 {
		return vals[0]
	}
	var v int64
	for _, b := range vals {
		v = v<<8 | b&0xff
	}
	return v
}
