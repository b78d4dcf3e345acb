// Package cpp implements the C preprocessor used to read headers: lexing,
// macro expansion, conditional inclusion and include resolution.
package cpp

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType represents the type of a preprocessing token.
type TokenType int

const (
	PP_EOF TokenType = iota
	PP_IDENTIFIER
	PP_NUMBER
	PP_CHAR_CONST
	PP_STRING
	PP_PUNCTUATOR
	PP_HASH        // # opening a directive line
	PP_HASHHASH    // ##
	PP_NEWLINE     // ends a directive
	PP_WHITESPACE  // spaces, tabs and comments
	PP_PLACEHOLDER // empty argument during ## pasting
)

var tokenTypeNames = [...]string{
	PP_EOF:         "EOF",
	PP_IDENTIFIER:  "IDENTIFIER",
	PP_NUMBER:      "NUMBER",
	PP_CHAR_CONST:  "CHAR_CONST",
	PP_STRING:      "STRING",
	PP_PUNCTUATOR:  "PUNCTUATOR",
	PP_HASH:        "HASH",
	PP_HASHHASH:    "HASHHASH",
	PP_NEWLINE:     "NEWLINE",
	PP_WHITESPACE:  "WHITESPACE",
	PP_PLACEHOLDER: "PLACEHOLDER",
}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenTypeNames) {
		return "UNKNOWN"
	}
	return tokenTypeNames[t]
}

// SourceLoc represents a position in a header.
type SourceLoc struct {
	File   string
	Line   int
	Column int
}

func (l SourceLoc) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Token represents a preprocessing token.
type Token struct {
	Type TokenType
	Text string
	Loc  SourceLoc

	// Macro is the innermost macro whose expansion produced the token and
	// Def the location of its #define. Both are empty for tokens that were
	// never part of an expansion.
	Macro string
	Def   SourceLoc

	hide *hideSet
}

func (t Token) String() string {
	if t.Macro != "" {
		return fmt.Sprintf("%s %q (from %s at %s)", t.Type, t.Text, t.Macro, t.Def)
	}
	return fmt.Sprintf("%s %q", t.Type, t.Text)
}

// threeCharPunct and twoCharPunct list the punctuators longer than one byte.
var (
	threeCharPunct = []string{"<<=", ">>=", "..."}
	twoCharPunct   = []string{
		"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=",
		"&&", "||", "*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=",
	}
)

// Lexer splits header text into preprocessing tokens. Comments become a
// single space, backslash-newline pairs disappear, and newlines are kept
// because they end directives.
type Lexer struct {
	src       string
	pos       int
	line      int
	col       int
	file      string
	lineStart bool // only whitespace seen since the last newline
}

// NewLexer creates a lexer for the contents of file.
func NewLexer(input, filename string) *Lexer {
	return &Lexer{src: input, line: 1, col: 1, file: filename, lineStart: true}
}

// NextToken returns the next preprocessing token, PP_EOF at the end.
func (l *Lexer) NextToken() Token {
	l.splice()
	loc := l.loc()
	if l.pos >= len(l.src) {
		return Token{Type: PP_EOF, Loc: loc}
	}

	c := l.src[l.pos]
	switch {
	case c == '\n':
		l.advance()
		l.lineStart = true
		return Token{Type: PP_NEWLINE, Text: "\n", Loc: loc}
	case isSpace(c):
		return l.whitespace(loc)
	case c == '/' && l.at(1) == '/':
		return l.lineComment(loc)
	case c == '/' && l.at(1) == '*':
		return l.blockComment(loc)
	}

	startOfLine := l.lineStart
	l.lineStart = false
	switch {
	case c == '#' && l.at(1) == '#':
		l.advanceN(2)
		return Token{Type: PP_HASHHASH, Text: "##", Loc: loc}
	case c == '#' && startOfLine:
		l.advance()
		return Token{Type: PP_HASH, Text: "#", Loc: loc}
	case c == '"':
		return l.quoted(loc, l.pos, '"', PP_STRING)
	case c == '\'':
		return l.quoted(loc, l.pos, '\'', PP_CHAR_CONST)
	case isDigit(c) || (c == '.' && isDigit(l.at(1))):
		return l.number(loc)
	case isIdentStart(c):
		return l.identifier(loc)
	}
	return l.punctuator(loc)
}

// splice drops backslash-newline pairs at the current position.
func (l *Lexer) splice() bool {
	spliced := false
	for l.pos+1 < len(l.src) && l.src[l.pos] == '\\' && l.src[l.pos+1] == '\n' {
		l.pos += 2
		l.line++
		l.col = 1
		spliced = true
	}
	return spliced
}

func (l *Lexer) loc() SourceLoc {
	return SourceLoc{File: l.file, Line: l.line, Column: l.col}
}

// at returns the byte offset bytes ahead, or 0 past the end.
func (l *Lexer) at(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *Lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) advanceN(n int) {
	for range n {
		l.advance()
	}
}

func (l *Lexer) whitespace(loc SourceLoc) Token {
	start := l.pos
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.advance()
	}
	return Token{Type: PP_WHITESPACE, Text: l.src[start:l.pos], Loc: loc}
}

func (l *Lexer) lineComment(loc SourceLoc) Token {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		if l.splice() {
			continue
		}
		l.advance()
	}
	return Token{Type: PP_WHITESPACE, Text: " ", Loc: loc}
}

func (l *Lexer) blockComment(loc SourceLoc) Token {
	l.advanceN(2)
	for l.pos < len(l.src) {
		if l.src[l.pos] == '*' && l.at(1) == '/' {
			l.advanceN(2)
			break
		}
		l.advance()
	}
	return Token{Type: PP_WHITESPACE, Text: " ", Loc: loc}
}

// quoted scans a string or character literal whose text begins at start,
// which lies before the current position when an encoding prefix was read.
// An unterminated literal stops at the end of the line.
func (l *Lexer) quoted(loc SourceLoc, start int, quote byte, typ TokenType) Token {
	l.advance()
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.advance()
			break
		}
		if c == '\n' {
			break
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.advance()
		}
		l.advance()
	}
	return Token{Type: typ, Text: l.src[start:l.pos], Loc: loc}
}

// number scans a pp-number: digits, identifier characters, dots and signed
// exponents, which covers suffixed constants like 0x7fffffffUL and 1.5e-3f.
func (l *Lexer) number(loc SourceLoc) Token {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if !isIdentContinue(c) && c != '.' {
			break
		}
		l.advance()
		if strings.IndexByte("eEpP", c) >= 0 && (l.at(0) == '+' || l.at(0) == '-') {
			l.advance()
		}
	}
	return Token{Type: PP_NUMBER, Text: l.src[start:l.pos], Loc: loc}
}

// identifier scans an identifier. Encoding prefixes directly followed by a
// quote (L"", u8"", U'') start a literal instead.
func (l *Lexer) identifier(loc SourceLoc) Token {
	start := l.pos
	var text strings.Builder
	for {
		l.splice()
		if l.pos >= len(l.src) || !isIdentContinue(l.src[l.pos]) {
			break
		}
		text.WriteByte(l.src[l.pos])
		l.advance()
	}
	name := text.String()
	if isEncodingPrefix(name) && l.pos-start == len(name) {
		switch l.at(0) {
		case '"':
			return l.quoted(loc, start, '"', PP_STRING)
		case '\'':
			return l.quoted(loc, start, '\'', PP_CHAR_CONST)
		}
	}
	return Token{Type: PP_IDENTIFIER, Text: name, Loc: loc}
}

func (l *Lexer) punctuator(loc SourceLoc) Token {
	rest := l.src[l.pos:]
	for _, group := range [][]string{threeCharPunct, twoCharPunct} {
		for _, p := range group {
			if strings.HasPrefix(rest, p) {
				l.advanceN(len(p))
				return Token{Type: PP_PUNCTUATOR, Text: p, Loc: loc}
			}
		}
	}
	l.advance()
	return Token{Type: PP_PUNCTUATOR, Text: rest[:1], Loc: loc}
}

func isEncodingPrefix(s string) bool {
	return s == "L" || s == "u" || s == "U" || s == "u8"
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// TokensToString converts a slice of tokens back to source text.
func TokensToString(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

// IsIdentifier checks if a string is a valid C identifier.
func IsIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}
