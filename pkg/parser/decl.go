package parser

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cabs"
	"github.com/raymyers/ralph-bindgen/pkg/lexer"
)

// attributes whose arguments feed type layout and are kept as expressions
var layoutAttributes = map[string]bool{
	"aligned":         true,
	"align":           true,
	"vector_size":     true,
	"ext_vector_type": true,
	"mode":            true,
}

// attribute spellings of calling conventions
var callConvAttributes = map[string]bool{
	"cdecl":      true,
	"stdcall":    true,
	"fastcall":   true,
	"vectorcall": true,
	"thiscall":   true,
	"pascal":     true,
	"ms_abi":     true,
	"sysv_abi":   true,
	"regcall":    true,
}

func callConvName(spelling string) string {
	return strings.TrimLeft(spelling, "_")
}

func isBaseTypeKeyword(t lexer.TokenType) bool {
	switch t {
	case lexer.TokenVoid, lexer.TokenChar, lexer.TokenShort, lexer.TokenInt_,
		lexer.TokenLong, lexer.TokenFloat, lexer.TokenDouble, lexer.TokenSigned,
		lexer.TokenUnsigned, lexer.TokenBool, lexer.TokenComplex, lexer.TokenInt8,
		lexer.TokenInt16, lexer.TokenInt32, lexer.TokenInt64, lexer.TokenInt128,
		lexer.TokenFloat16:
		return true
	}
	return false
}

// isTypeStart reports whether t can begin a type name.
func (p *Parser) isTypeStart(t lexer.Token) bool {
	if isBaseTypeKeyword(t.Type) {
		return true
	}
	switch t.Type {
	case lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict, lexer.TokenAtomic,
		lexer.TokenStruct, lexer.TokenUnion, lexer.TokenEnum, lexer.TokenTypeof,
		lexer.TokenAttribute, lexer.TokenDeclspec, lexer.TokenQualExt, lexer.TokenAlignas:
		return true
	case lexer.TokenIdent:
		return p.typedefs[t.Literal]
	}
	return false
}

// parseDeclSpecs parses declaration specifiers in any order. A typedef name
// is only taken as a type when no type specifier has been seen yet.
func (p *Parser) parseDeclSpecs() (cabs.DeclSpec, bool) {
	var s cabs.DeclSpec
	var base []string
	seenType := false
	seenAny := false

loop:
	for {
		t := p.curToken
		switch t.Type {
		case lexer.TokenTypedef:
			s.Storage = cabs.StorageTypedef
		case lexer.TokenExtern:
			s.Storage = cabs.StorageExtern
		case lexer.TokenStatic:
			s.Storage = cabs.StorageStatic
		case lexer.TokenAuto:
			s.Storage = cabs.StorageAuto
		case lexer.TokenRegister:
			s.Storage = cabs.StorageRegister
		case lexer.TokenThreadLocal:
			s.ThreadLocal = true
		case lexer.TokenInline:
			s.Inline = true
		case lexer.TokenNoreturn:
			s.Noreturn = true
		case lexer.TokenConst:
			s.Const = true
		case lexer.TokenVolatile:
			s.Volatile = true
		case lexer.TokenRestrict:
			s.Restrict = true
		case lexer.TokenQualExt, lexer.TokenExtension:
		case lexer.TokenCallConv:
			s.CallConv = callConvName(t.Literal)
		case lexer.TokenAtomic:
			if p.peekTokenIs(lexer.TokenLParen) {
				p.nextToken()
				p.nextToken()
				tn := p.parseTypeName()
				p.expect(lexer.TokenRParen)
				s.Type = cabs.TypeofSpec{Type: &tn}
				seenType, seenAny = true, true
				continue
			}
			s.Atomic = true
		case lexer.TokenAttribute, lexer.TokenDeclspec:
			for _, a := range p.parseAttributes() {
				if callConvAttributes[a.Name] {
					s.CallConv = a.Name
					continue
				}
				s.Attrs = append(s.Attrs, a)
			}
			seenAny = true
			continue
		case lexer.TokenAlignas:
			p.nextToken()
			if !p.expect(lexer.TokenLParen) {
				return s, false
			}
			if p.isTypeStart(p.curToken) {
				s.AlignAs = append(s.AlignAs, cabs.AlignofType{Type: p.parseTypeName()})
			} else {
				s.AlignAs = append(s.AlignAs, p.parseConditional())
			}
			if !p.expect(lexer.TokenRParen) {
				return s, false
			}
			seenAny = true
			continue
		case lexer.TokenStruct, lexer.TokenUnion:
			s.Type = p.parseRecordSpec()
			seenType, seenAny = true, true
			continue
		case lexer.TokenEnum:
			s.Type = p.parseEnumSpec()
			seenType, seenAny = true, true
			continue
		case lexer.TokenTypeof:
			s.Type = p.parseTypeof()
			seenType, seenAny = true, true
			continue
		case lexer.TokenIdent:
			if seenType || !p.typedefs[t.Literal] {
				break loop
			}
			s.Type = cabs.TypedefName{Name: t.Literal}
			seenType = true
		default:
			if !isBaseTypeKeyword(t.Type) {
				break loop
			}
			base = append(base, t.Type.String())
			seenType = true
		}
		seenAny = true
		p.nextToken()
	}

	if len(base) > 0 {
		s.Type = cabs.BaseType{Names: base}
	}
	if !seenAny {
		p.addError(fmt.Sprintf("expected declaration specifiers, got %s", describe(p.curToken)))
		return s, false
	}
	return s, true
}

func (p *Parser) parseTypeof() cabs.TypeSpec {
	p.nextToken() // consume typeof
	spec := cabs.TypeofSpec{}
	if !p.expect(lexer.TokenLParen) {
		return spec
	}
	if p.isTypeStart(p.curToken) {
		tn := p.parseTypeName()
		spec.Type = &tn
	} else {
		spec.Expr = p.parseExpression()
	}
	p.expect(lexer.TokenRParen)
	return spec
}

// parseAttributes parses any run of __attribute__((...)) and __declspec(...).
func (p *Parser) parseAttributes() []cabs.Attribute {
	var attrs []cabs.Attribute
	for {
		switch p.curToken.Type {
		case lexer.TokenAttribute:
			p.nextToken()
			if !p.expect(lexer.TokenLParen) || !p.expect(lexer.TokenLParen) {
				return attrs
			}
			for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
				if p.curTokenIs(lexer.TokenComma) {
					p.nextToken()
					continue
				}
				attrs = append(attrs, p.parseAttribute(false))
			}
			p.expect(lexer.TokenRParen)
			p.expect(lexer.TokenRParen)
		case lexer.TokenDeclspec:
			p.nextToken()
			if !p.expect(lexer.TokenLParen) {
				return attrs
			}
			for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
				attrs = append(attrs, p.parseAttribute(true))
			}
			p.expect(lexer.TokenRParen)
		default:
			return attrs
		}
	}
}

func (p *Parser) parseAttribute(declspec bool) cabs.Attribute {
	a := cabs.Attribute{Name: strings.Trim(p.curToken.Literal, "_"), Declspec: declspec}
	p.nextToken()
	// C23 style scoped names: gnu::aligned
	for p.curTokenIs(lexer.TokenColon) && p.peekTokenIs(lexer.TokenColon) {
		p.nextToken()
		p.nextToken()
		a.Name = strings.Trim(p.curToken.Literal, "_")
		p.nextToken()
	}
	if !p.curTokenIs(lexer.TokenLParen) {
		return a
	}
	if layoutAttributes[a.Name] {
		p.nextToken()
		for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
			a.Args = append(a.Args, p.parseConditional())
			if !p.curTokenIs(lexer.TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(lexer.TokenRParen)
		return a
	}
	a.Raw = p.balancedText()
	return a
}

// balancedText consumes a parenthesized group and returns its inner tokens
// joined by spaces.
func (p *Parser) balancedText() string {
	var parts []string
	depth := 0
	for !p.curTokenIs(lexer.TokenEOF) {
		t := p.curToken
		switch t.Type {
		case lexer.TokenLParen:
			depth++
		case lexer.TokenRParen:
			depth--
		}
		p.nextToken()
		if depth == 0 {
			break
		}
		if depth == 1 && t.Type == lexer.TokenLParen {
			continue
		}
		switch t.Type {
		case lexer.TokenString:
			parts = append(parts, `"`+t.Literal+`"`)
		case lexer.TokenCharLit:
			parts = append(parts, "'"+t.Literal+"'")
		default:
			parts = append(parts, t.Literal)
		}
	}
	return strings.Join(parts, " ")
}

func (p *Parser) parseRecordSpec() cabs.RecordSpec {
	r := cabs.RecordSpec{Kind: cabs.Struct, Loc: p.loc()}
	if p.curTokenIs(lexer.TokenUnion) {
		r.Kind = cabs.Union
	}
	p.nextToken()
	r.Attrs = p.parseAttributes()
	if p.curTokenIs(lexer.TokenIdent) {
		r.Name = p.curToken.Literal
		r.Loc = p.loc()
		p.nextToken()
		r.Attrs = append(r.Attrs, p.parseAttributes()...)
	}
	if !p.curTokenIs(lexer.TokenLBrace) {
		if r.Name == "" {
			p.addError(fmt.Sprintf("expected %s name or '{', got %s", r.Kind, describe(p.curToken)))
		}
		return r
	}
	p.nextToken()
	r.HasBody = true
	r.Fields = []cabs.FieldDecl{}
	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case lexer.TokenSemicolon:
			p.nextToken()
			continue
		case lexer.TokenStaticAssert:
			p.parseStaticAssert()
			continue
		}
		before := len(p.errors)
		f := p.parseField()
		if len(p.errors) > before {
			p.skipField()
			continue
		}
		r.Fields = append(r.Fields, f)
	}
	p.expect(lexer.TokenRBrace)
	r.Attrs = append(r.Attrs, p.parseAttributes()...)
	return r
}

func (p *Parser) parseField() cabs.FieldDecl {
	f := cabs.FieldDecl{Loc: p.loc()}
	specs, ok := p.parseDeclSpecs()
	if !ok {
		return f
	}
	f.Specs = specs
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return f
	}
	for {
		var d cabs.Declarator
		if p.curTokenIs(lexer.TokenColon) {
			d.Loc = p.loc()
		} else {
			before := len(p.errors)
			d = p.parseDeclarator(false)
			if len(p.errors) > before {
				return f
			}
		}
		if p.curTokenIs(lexer.TokenColon) {
			p.nextToken()
			d.BitWidth = p.parseConditional()
		}
		d.Attrs = append(d.Attrs, p.parseAttributes()...)
		f.Declarators = append(f.Declarators, d)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenSemicolon)
	return f
}

// skipField recovers inside a record body: it stops after the next ';' or
// before the '}' closing the record.
func (p *Parser) skipField() {
	depth := 0
	for !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenLBrace:
			depth++
		case lexer.TokenRParen, lexer.TokenRBracket:
			depth--
		case lexer.TokenRBrace:
			if depth == 0 {
				return
			}
			depth--
		case lexer.TokenSemicolon:
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}

func (p *Parser) parseEnumSpec() cabs.EnumSpec {
	e := cabs.EnumSpec{Loc: p.loc()}
	p.nextToken() // consume enum
	e.Attrs = p.parseAttributes()
	if p.curTokenIs(lexer.TokenIdent) {
		e.Name = p.curToken.Literal
		e.Loc = p.loc()
		p.nextToken()
		e.Attrs = append(e.Attrs, p.parseAttributes()...)
	}
	if p.curTokenIs(lexer.TokenColon) {
		p.nextToken()
		tn := p.parseTypeName()
		e.Underlying = &tn
	}
	if !p.curTokenIs(lexer.TokenLBrace) {
		if e.Name == "" {
			p.addError(fmt.Sprintf("expected enum name or '{', got %s", describe(p.curToken)))
		}
		return e
	}
	p.nextToken()
	e.HasBody = true
	e.Enumerators = []cabs.Enumerator{}
	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected enumerator name, got %s", describe(p.curToken)))
			return e
		}
		en := cabs.Enumerator{Name: p.curToken.Literal, Loc: p.loc()}
		p.nextToken()
		p.parseAttributes()
		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			en.Value = p.parseConditional()
		}
		e.Enumerators = append(e.Enumerators, en)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRBrace)
	e.Attrs = append(e.Attrs, p.parseAttributes()...)
	return e
}

// parseTypeName parses the type in a cast, sizeof, typeof or _Atomic().
func (p *Parser) parseTypeName() cabs.TypeName {
	specs, _ := p.parseDeclSpecs()
	return cabs.TypeName{Specs: specs, Declarator: p.parseDeclarator(true)}
}

// parseDeclarator parses a declarator; with abstract set the name may be
// missing. Derivations are assembled from the base type outwards: pointers
// first, then suffixes innermost-first, then the parenthesized inner part.
func (p *Parser) parseDeclarator(abstract bool) cabs.Declarator {
	d := cabs.Declarator{Loc: p.loc()}
	var local []cabs.Derivation
	callConv := ""

prefix:
	for {
		switch p.curToken.Type {
		case lexer.TokenStar:
			p.nextToken()
			local = append(local, p.parsePointerQualifiers(&callConv))
		case lexer.TokenCallConv:
			callConv = callConvName(p.curToken.Literal)
			p.nextToken()
		case lexer.TokenAttribute, lexer.TokenDeclspec:
			for _, a := range p.parseAttributes() {
				if callConvAttributes[a.Name] {
					callConv = a.Name
					continue
				}
				d.Attrs = append(d.Attrs, a)
			}
		case lexer.TokenQualExt, lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict:
			p.nextToken()
		default:
			break prefix
		}
	}

	var inner *cabs.Declarator
	switch {
	case p.curTokenIs(lexer.TokenIdent):
		d.Name = p.curToken.Literal
		d.Loc = p.loc()
		p.nextToken()
	case p.curTokenIs(lexer.TokenLParen) && p.isNestedDeclarator():
		p.nextToken()
		in := p.parseDeclarator(abstract)
		p.expect(lexer.TokenRParen)
		inner = &in
	case !abstract:
		p.addError(fmt.Sprintf("expected identifier or '(', got %s", describe(p.curToken)))
		return d
	}

	var suffixes []cabs.Derivation
suffix:
	for {
		switch p.curToken.Type {
		case lexer.TokenLBracket:
			suffixes = append(suffixes, p.parseArraySuffix())
		case lexer.TokenLParen:
			suffixes = append(suffixes, p.parseParamList())
		default:
			break suffix
		}
	}
	for i := len(suffixes) - 1; i >= 0; i-- {
		local = append(local, suffixes[i])
	}

	if inner != nil && inner.CallConv != "" && callConv == "" {
		callConv = inner.CallConv
	}
	if callConv != "" {
		for i := len(local) - 1; i >= 0; i-- {
			if f, ok := local[i].(cabs.FuncDecl); ok {
				f.CallConv = callConv
				local[i] = f
				callConv = ""
				break
			}
		}
	}
	d.Derived = local
	d.CallConv = callConv
	if inner != nil {
		d.Name = inner.Name
		d.Loc = inner.Loc
		d.Derived = append(d.Derived, inner.Derived...)
		d.Attrs = append(d.Attrs, inner.Attrs...)
	}
	return d
}

func (p *Parser) parsePointerQualifiers(callConv *string) cabs.PointerDecl {
	var ptr cabs.PointerDecl
	for {
		switch p.curToken.Type {
		case lexer.TokenConst:
			ptr.Const = true
		case lexer.TokenVolatile:
			ptr.Volatile = true
		case lexer.TokenRestrict:
			ptr.Restrict = true
		case lexer.TokenQualExt, lexer.TokenAtomic, lexer.TokenExtension:
		case lexer.TokenCallConv:
			*callConv = callConvName(p.curToken.Literal)
		case lexer.TokenAttribute, lexer.TokenDeclspec:
			ptr.Attrs = append(ptr.Attrs, p.parseAttributes()...)
			continue
		default:
			return ptr
		}
		p.nextToken()
	}
}

// isNestedDeclarator decides whether the '(' at the current token opens a
// nested declarator rather than a parameter list.
func (p *Parser) isNestedDeclarator() bool {
	switch p.peekToken.Type {
	case lexer.TokenStar, lexer.TokenLParen, lexer.TokenCallConv, lexer.TokenLBracket:
		return true
	case lexer.TokenAttribute, lexer.TokenDeclspec, lexer.TokenQualExt:
		return true
	case lexer.TokenIdent:
		return !p.typedefs[p.peekToken.Literal]
	}
	return false
}

func (p *Parser) parseArraySuffix() cabs.ArrayDecl {
	p.nextToken() // consume [
	var a cabs.ArrayDecl
quals:
	for {
		switch p.curToken.Type {
		case lexer.TokenStatic:
			a.Static = true
		case lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict, lexer.TokenQualExt:
		default:
			break quals
		}
		p.nextToken()
	}
	switch {
	case p.curTokenIs(lexer.TokenStar) && p.peekTokenIs(lexer.TokenRBracket):
		p.nextToken()
	case !p.curTokenIs(lexer.TokenRBracket):
		a.Size = p.parseConditional()
	}
	p.expect(lexer.TokenRBracket)
	return a
}

func (p *Parser) parseParamList() cabs.FuncDecl {
	p.nextToken() // consume (
	f := cabs.FuncDecl{}
	if p.curTokenIs(lexer.TokenRParen) {
		p.nextToken()
		f.OldStyle = true
		return f
	}
	if p.curTokenIs(lexer.TokenVoid) && p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
		p.nextToken()
		return f
	}
	if p.curTokenIs(lexer.TokenIdent) && !p.typedefs[p.curToken.Literal] {
		// identifier list of an old-style definition
		for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
			p.nextToken()
		}
		p.expect(lexer.TokenRParen)
		f.OldStyle = true
		return f
	}
	for {
		if p.curTokenIs(lexer.TokenEllipsis) {
			f.Variadic = true
			p.nextToken()
			break
		}
		loc := p.loc()
		specs, ok := p.parseDeclSpecs()
		if !ok {
			return f
		}
		d := p.parseDeclarator(true)
		d.Attrs = append(d.Attrs, p.parseAttributes()...)
		f.Params = append(f.Params, cabs.ParamDecl{Specs: specs, Declarator: d, Loc: loc})
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)
	return f
}

// parseDeclaratorTail reads an asm label and trailing attributes.
func (p *Parser) parseDeclaratorTail(d *cabs.Declarator) {
	for {
		switch p.curToken.Type {
		case lexer.TokenAsm:
			p.nextToken()
			if !p.expect(lexer.TokenLParen) {
				return
			}
			d.AsmLabel = p.parseStringLiterals()
			p.expect(lexer.TokenRParen)
		case lexer.TokenAttribute, lexer.TokenDeclspec:
			d.Attrs = append(d.Attrs, p.parseAttributes()...)
		default:
			return
		}
	}
}
