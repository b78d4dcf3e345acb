// Package parser implements a recursive descent parser for the external
// declarations of preprocessed C headers.
package parser

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cabs"
	"github.com/raymyers/ralph-bindgen/pkg/lexer"
)

// Error is a syntax error at a source position.
type Error struct {
	File   string
	Line   int
	Column int
	System bool
	Msg    string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column, e.Msg)
}

// Parser parses C source code into a Cabs AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	prevType  lexer.TokenType
	errors    []Error
	typedefs  map[string]bool // typedef names in scope
	pragmas   []cabs.Pragma   // read but not yet emitted
}

// compiler-provided typedef names
var builtinTypedefs = []string{"__builtin_va_list", "__builtin_ms_va_list", "__uint128_t"}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:        l,
		typedefs: make(map[string]bool),
	}
	for _, name := range builtinTypedefs {
		p.typedefs[name] = true
	}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses preprocessed source whose first tokens belong to file.
func Parse(src, file string, system bool) (*cabs.Program, []Error) {
	p := New(lexer.NewFile(src, file, system))
	prog := p.ParseProgram()
	return prog, p.errors
}

// nextToken advances, setting pragmas aside so they can be emitted between
// definitions in source order.
func (p *Parser) nextToken() {
	p.prevType = p.curToken.Type
	p.curToken = p.peekToken
	for {
		p.peekToken = p.l.NextToken()
		if p.peekToken.Type != lexer.TokenPragma {
			return
		}
		p.pragmas = append(p.pragmas, cabs.Pragma{Text: p.peekToken.Literal, Loc: tokenLoc(p.peekToken)})
	}
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	msgs := make([]string, len(p.errors))
	for i, e := range p.errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// Diagnostics returns the parsing errors with their files.
func (p *Parser) Diagnostics() []Error {
	return p.errors
}

// IsTypedef reports whether name was declared as a typedef so far.
func (p *Parser) IsTypedef(name string) bool {
	return p.typedefs[name]
}

// DeclareTypedef makes name parse as a type, for expressions parsed outside
// the declarations that introduced it.
func (p *Parser) DeclareTypedef(name string) {
	p.typedefs[name] = true
}

func (p *Parser) addError(msg string) {
	t := p.curToken
	p.errors = append(p.errors, Error{File: t.File, Line: t.Line, Column: t.Column, System: t.System, Msg: msg})
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, describe(p.curToken)))
	return false
}

func describe(t lexer.Token) string {
	switch t.Type {
	case lexer.TokenIdent, lexer.TokenInt, lexer.TokenFloatLit:
		return fmt.Sprintf("%s %q", t.Type, t.Literal)
	}
	return t.Type.String()
}

func tokenLoc(t lexer.Token) cabs.Loc {
	return cabs.Loc{File: t.File, Line: t.Line, Column: t.Column, System: t.System}
}

func (p *Parser) loc() cabs.Loc {
	return tokenLoc(p.curToken)
}

// ParseProgram parses definitions until EOF, recovering at the next ';'
// after an error.
func (p *Parser) ParseProgram() *cabs.Program {
	prog := &cabs.Program{Definitions: []cabs.Definition{}}
	for {
		prog.Definitions = append(prog.Definitions, p.flushPragmas()...)
		if p.curTokenIs(lexer.TokenEOF) {
			break
		}
		before := len(p.errors)
		start := p.curToken
		def := p.ParseDefinition()
		if len(p.errors) > before {
			p.synchronize(start)
			continue
		}
		if def != nil {
			prog.Definitions = append(prog.Definitions, def)
		}
	}
	return prog
}

func (p *Parser) flushPragmas() []cabs.Definition {
	if len(p.pragmas) == 0 {
		return nil
	}
	defs := make([]cabs.Definition, len(p.pragmas))
	for i, pr := range p.pragmas {
		defs[i] = pr
	}
	p.pragmas = p.pragmas[:0]
	return defs
}

// synchronize skips to just after the next top-level ';' unless the failed
// definition already ended with one.
func (p *Parser) synchronize(start lexer.Token) {
	if p.curToken != start && p.prevType == lexer.TokenSemicolon {
		return
	}
	depth := 0
	for !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenLBrace:
			depth++
		case lexer.TokenRParen, lexer.TokenRBracket, lexer.TokenRBrace:
			depth = max(depth-1, 0)
		case lexer.TokenSemicolon:
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}

// ParseDefinition parses one top-level definition. It returns nil for
// constructs that produce nothing, such as a stray ';'.
func (p *Parser) ParseDefinition() cabs.Definition {
	loc := p.loc()
	switch p.curToken.Type {
	case lexer.TokenSemicolon:
		p.nextToken()
		return nil
	case lexer.TokenStaticAssert:
		return p.parseStaticAssert()
	case lexer.TokenAsm:
		// file-scope asm("...");
		p.nextToken()
		if p.curTokenIs(lexer.TokenLParen) {
			p.skipBalanced()
		}
		p.expect(lexer.TokenSemicolon)
		return nil
	}

	specs, ok := p.parseDeclSpecs()
	if !ok {
		return nil
	}
	decl := cabs.Declaration{Specs: specs, Loc: loc}
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return decl
	}

	for {
		before := len(p.errors)
		d := p.parseDeclarator(false)
		if len(p.errors) > before {
			return nil
		}
		if d.Name == "" {
			p.addError(fmt.Sprintf("expected identifier, got %s", describe(p.curToken)))
			return nil
		}
		p.parseDeclaratorTail(&d)
		if specs.Storage == cabs.StorageTypedef {
			p.typedefs[d.Name] = true
		}

		if p.curTokenIs(lexer.TokenLBrace) && len(decl.Declarators) == 0 && d.IsFunction() {
			p.skipBalanced()
			return cabs.FunDef{Specs: specs, Declarator: d, Loc: loc}
		}
		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			p.skipInitializer()
			d.HasInit = true
		}
		decl.Declarators = append(decl.Declarators, d)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}

	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return decl
}

func (p *Parser) parseStaticAssert() cabs.Definition {
	sa := cabs.StaticAssert{Loc: p.loc()}
	p.nextToken() // consume _Static_assert
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	sa.Cond = p.parseConditional()
	if p.curTokenIs(lexer.TokenComma) {
		p.nextToken()
		sa.Message = p.parseStringLiterals()
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}
	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return sa
}

// parseStringLiterals concatenates adjacent string literals.
func (p *Parser) parseStringLiterals() string {
	var sb strings.Builder
	if !p.curTokenIs(lexer.TokenString) {
		p.addError(fmt.Sprintf("expected string literal, got %s", describe(p.curToken)))
		return ""
	}
	for p.curTokenIs(lexer.TokenString) {
		sb.WriteString(p.curToken.Literal)
		p.nextToken()
	}
	return sb.String()
}

// skipBalanced consumes a bracketed group starting at the current token.
func (p *Parser) skipBalanced() {
	depth := 0
	for !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenLBrace:
			depth++
		case lexer.TokenRParen, lexer.TokenRBracket, lexer.TokenRBrace:
			depth--
		}
		p.nextToken()
		if depth <= 0 {
			return
		}
	}
	p.addError("unexpected end of input in bracketed group")
}

// skipInitializer consumes tokens up to the ',' or ';' ending an initializer.
func (p *Parser) skipInitializer() {
	for !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenLBrace:
			p.skipBalanced()
			continue
		case lexer.TokenComma, lexer.TokenSemicolon:
			return
		}
		p.nextToken()
	}
}
