package lexer

import (
	"strconv"
	"strings"
	"unicode"
)

// Lexer tokenizes preprocessed C source code. Line markers (# N "file" flags)
// left by the preprocessor update the position attached to later tokens.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // next reading position
	ch      byte // current character
	line    int
	column  int
	file    string
	system  bool
	bol     bool // only whitespace seen since the last newline
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	return NewFile(input, "", false)
}

// NewFile creates a Lexer whose tokens start out attributed to file.
func NewFile(input, file string, system bool) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, file: file, system: system, bol: true}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
		l.bol = true
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) peekChar() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(n int) byte {
	if l.readPos+n >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+n]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()
		if !l.skipComments() {
			break
		}
	}

	if l.ch == '#' && l.bol {
		if tok, ok := l.readDirectiveLine(); ok {
			return tok
		}
		return l.NextToken()
	}
	l.bol = false

	tok := l.position()

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
		tok.Literal = ""
		return tok
	case '+', '-', '*', '/', '%', '=', '!', '<', '>', '&', '|', '^', '~', '?', ':',
		'(', ')', '{', '}', '[', ']', ';', ',', '#':
		tok = l.punctuator(tok)
	case '.':
		switch {
		case l.peekChar() == '.' && l.peekAt(1) == '.':
			tok = l.literal(tok, TokenEllipsis, 3)
		case isDigit(l.peekChar()):
			tok.Literal = l.readNumber()
			tok.Type = numberType(tok.Literal)
		default:
			tok = l.literal(tok, TokenDot, 1)
		}
	case '"':
		tok.Type = TokenString
		tok.Literal = l.readQuoted('"')
	case '\'':
		tok.Type = TokenCharLit
		tok.Literal = l.readQuoted('\'')
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			if isEncodingPrefix(tok.Literal) && (l.ch == '"' || l.ch == '\'') {
				quote := l.ch
				tok.Literal = l.readQuoted(quote)
				tok.Type = TokenString
				if quote == '\'' {
					tok.Type = TokenCharLit
				}
				return tok
			}
			if tok.Literal == "_Pragma" {
				if text, ok := l.readPragmaOperator(); ok {
					tok.Type = TokenPragma
					tok.Literal = text
					return tok
				}
			}
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Literal = l.readNumber()
			tok.Type = numberType(tok.Literal)
			return tok
		}
		tok = l.literal(tok, TokenIllegal, 1)
	}

	return tok
}

func (l *Lexer) position() Token {
	return Token{Line: l.line, Column: l.column, File: l.file, System: l.system}
}

var punctuators = map[string]TokenType{
	"<<=": TokenShlAssign, ">>=": TokenShrAssign,
	"++": TokenIncrement, "--": TokenDecrement, "->": TokenArrow,
	"+=": TokenPlusAssign, "-=": TokenMinusAssign, "*=": TokenStarAssign,
	"/=": TokenSlashAssign, "%=": TokenPercentAssign, "&=": TokenAndAssign,
	"|=": TokenOrAssign, "^=": TokenXorAssign, "==": TokenEq, "!=": TokenNe,
	"<=": TokenLe, ">=": TokenGe, "&&": TokenAnd, "||": TokenOr,
	"<<": TokenShl, ">>": TokenShr,
	"+": TokenPlus, "-": TokenMinus, "*": TokenStar, "/": TokenSlash,
	"%": TokenPercent, "=": TokenAssign, "!": TokenNot, "<": TokenLt,
	">": TokenGt, "&": TokenAmpersand, "|": TokenPipe, "^": TokenCaret,
	"~": TokenTilde, "?": TokenQuestion, ":": TokenColon, "(": TokenLParen,
	")": TokenRParen, "{": TokenLBrace, "}": TokenRBrace, "[": TokenLBracket,
	"]": TokenRBracket, ";": TokenSemicolon, ",": TokenComma, "#": TokenHash,
}

// punctuator takes the longest punctuator starting at the current character.
func (l *Lexer) punctuator(tok Token) Token {
	for n := 3; n >= 1; n-- {
		if l.pos+n > len(l.input) {
			continue
		}
		if t, ok := punctuators[l.input[l.pos:l.pos+n]]; ok {
			return l.literal(tok, t, n)
		}
	}
	return l.literal(tok, TokenIllegal, 1)
}

// literal consumes n characters as a token of type t.
func (l *Lexer) literal(tok Token, t TokenType, n int) Token {
	tok.Type = t
	tok.Literal = l.input[l.pos : l.pos+n]
	for i := 0; i < n; i++ {
		l.readChar()
	}
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v' ||
		(l.ch == '\\' && (l.peekChar() == '\n' || (l.peekChar() == '\r' && l.peekAt(1) == '\n'))) {
		l.readChar()
	}
}

// skipComments consumes one comment and reports whether it did.
func (l *Lexer) skipComments() bool {
	if l.ch != '/' {
		return false
	}
	switch l.peekChar() {
	case '/':
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		return true
	case '*':
		l.readChar() // consume /
		l.readChar() // consume *
		for l.ch != 0 {
			if l.ch == '*' && l.peekChar() == '/' {
				l.readChar()
				l.readChar()
				break
			}
			l.readChar()
		}
		return true
	}
	return false
}

// readDirectiveLine handles a '#' at the start of a line. Line markers and
// #line update the position; #pragma becomes a TokenPragma; anything else is
// skipped.
func (l *Lexer) readDirectiveLine() (Token, bool) {
	tok := l.position()
	l.readChar() // consume #
	start := l.pos
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	text := strings.TrimSpace(l.input[start:l.pos])

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return tok, false
	}
	if fields[0] == "pragma" {
		tok.Type = TokenPragma
		tok.Literal = strings.TrimSpace(strings.TrimPrefix(text, "pragma"))
		return tok, true
	}
	if fields[0] == "line" {
		text = strings.TrimSpace(strings.TrimPrefix(text, "line"))
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return tok, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return tok, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
	if strings.HasPrefix(rest, "\"") {
		end := closingQuote(rest)
		if name, err := strconv.Unquote(rest[:end+1]); err == nil {
			l.file = name
		} else {
			l.file = rest[1:end]
		}
		flags := strings.Fields(rest[end+1:])
		l.system = false
		for _, f := range flags {
			if f == "3" {
				l.system = true
			}
		}
	}
	// The newline ending this line bumps the counter to n.
	l.line = n - 1
	return tok, false
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return len(s) - 1
}

// readPragmaOperator reads the ("...") operand of _Pragma.
func (l *Lexer) readPragmaOperator() (string, bool) {
	save := *l
	l.skipWhitespace()
	if l.ch != '(' {
		*l = save
		return "", false
	}
	l.readChar()
	l.skipWhitespace()
	if l.ch != '"' {
		*l = save
		return "", false
	}
	raw := l.readQuoted('"')
	l.skipWhitespace()
	if l.ch != ')' {
		*l = save
		return "", false
	}
	l.readChar()
	text := strings.ReplaceAll(raw, `\"`, `"`)
	return strings.ReplaceAll(text, `\\`, `\`), true
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '$' {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readNumber reads a preprocessing number: digits, letters, '.', and a sign
// directly after an exponent character.
func (l *Lexer) readNumber() string {
	pos := l.pos
	for {
		switch {
		case isDigit(l.ch) || isLetter(l.ch) || l.ch == '.':
			if (l.ch == 'e' || l.ch == 'E' || l.ch == 'p' || l.ch == 'P') && (l.peekChar() == '+' || l.peekChar() == '-') {
				l.readChar()
			}
			l.readChar()
		case l.ch == '\'' && isDigit(l.peekChar()):
			// C23 digit separator
			l.readChar()
		default:
			return l.input[pos:l.pos]
		}
	}
}

func numberType(lit string) TokenType {
	lower := strings.ToLower(lit)
	if strings.HasPrefix(lower, "0x") {
		if strings.ContainsAny(lower, ".p") {
			return TokenFloatLit
		}
		return TokenInt
	}
	if strings.ContainsAny(lower, ".e") || strings.HasSuffix(lower, "f") {
		return TokenFloatLit
	}
	return TokenInt
}

// readQuoted reads a string or character literal and returns its contents
// with escapes left in place.
func (l *Lexer) readQuoted(quote byte) string {
	l.readChar() // consume opening quote
	pos := l.pos
	for l.ch != quote && l.ch != 0 && l.ch != '\n' {
		if l.ch == '\\' {
			l.readChar() // skip escape char
		}
		l.readChar()
	}
	str := l.input[pos:l.pos]
	if l.ch == quote {
		l.readChar() // consume closing quote
	}
	return str
}

func isEncodingPrefix(s string) bool {
	return s == "L" || s == "u" || s == "U" || s == "u8"
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
