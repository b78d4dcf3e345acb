// directive.go parses the tokens of a preprocessing directive line.
package cpp

import (
	"fmt"
	"strconv"
	"strings"
)

// DirectiveType identifies a preprocessing directive.
type DirectiveType int

const (
	DIR_EMPTY DirectiveType = iota
	DIR_DEFINE
	DIR_UNDEF
	DIR_INCLUDE
	DIR_INCLUDE_NEXT
	DIR_IMPORT
	DIR_IF
	DIR_IFDEF
	DIR_IFNDEF
	DIR_ELIF
	DIR_ELSE
	DIR_ENDIF
	DIR_LINE
	DIR_LINEMARKER
	DIR_ERROR
	DIR_WARNING
	DIR_PRAGMA
	DIR_IGNORED // #ident, #sccs, #assert, #unassert
)

var directiveNames = map[string]DirectiveType{
	"define":       DIR_DEFINE,
	"undef":        DIR_UNDEF,
	"include":      DIR_INCLUDE,
	"include_next": DIR_INCLUDE_NEXT,
	"import":       DIR_IMPORT,
	"if":           DIR_IF,
	"ifdef":        DIR_IFDEF,
	"ifndef":       DIR_IFNDEF,
	"elif":         DIR_ELIF,
	"else":         DIR_ELSE,
	"endif":        DIR_ENDIF,
	"line":         DIR_LINE,
	"error":        DIR_ERROR,
	"warning":      DIR_WARNING,
	"pragma":       DIR_PRAGMA,
	"ident":        DIR_IGNORED,
	"sccs":         DIR_IGNORED,
	"assert":       DIR_IGNORED,
	"unassert":     DIR_IGNORED,
}

func (d DirectiveType) String() string {
	switch d {
	case DIR_EMPTY:
		return "#"
	case DIR_LINEMARKER:
		return "# <line>"
	case DIR_IGNORED:
		return "#ident"
	}
	for name, t := range directiveNames {
		if t == d && t != DIR_IGNORED {
			return "#" + name
		}
	}
	return "#<unknown>"
}

// IsConditional reports whether the directive opens, continues or closes a conditional group.
func (d DirectiveType) IsConditional() bool {
	switch d {
	case DIR_IF, DIR_IFDEF, DIR_IFNDEF, DIR_ELIF, DIR_ELSE, DIR_ENDIF:
		return true
	}
	return false
}

// IsInclude reports whether the directive pulls in another file.
func (d DirectiveType) IsInclude() bool {
	return d == DIR_INCLUDE || d == DIR_INCLUDE_NEXT || d == DIR_IMPORT
}

// Directive is a parsed preprocessing directive.
type Directive struct {
	Type       DirectiveType
	Identifier string

	// #define
	Params         []string
	IsVariadic     bool
	IsFunctionLike bool
	Replacement    []Token

	// #if, #elif, and #include lines whose operand needs macro expansion
	Expression []Token

	// #include: "<name>" or "\"name\""
	HeaderName string

	// #line and line markers
	FileName string
	LineNum  int
	Flags    []int

	Message      string
	PragmaTokens []Token
	Loc          SourceLoc
}

// ParseDirectiveFromTokens parses the tokens that follow the '#' of a directive line.
func ParseDirectiveFromTokens(tokens []Token, loc SourceLoc) (*Directive, error) {
	tokens = stripNewline(tokens)
	i := skipWS(tokens, 0)
	if i >= len(tokens) {
		return &Directive{Type: DIR_EMPTY, Loc: loc}, nil
	}

	first := tokens[i]
	if first.Type == PP_NUMBER {
		return parseLineMarker(tokens[i:], loc)
	}
	if first.Type != PP_IDENTIFIER {
		return nil, fmt.Errorf("invalid preprocessing directive #%s", first.Text)
	}

	dirType, ok := directiveNames[first.Text]
	if !ok {
		return nil, fmt.Errorf("invalid preprocessing directive #%s", first.Text)
	}

	dir := &Directive{Type: dirType, Loc: loc}
	rest := tokens[i+1:]

	switch dirType {
	case DIR_DEFINE:
		return dir, parseDefine(dir, rest)
	case DIR_UNDEF, DIR_IFDEF, DIR_IFNDEF:
		j := skipWS(rest, 0)
		if j >= len(rest) || rest[j].Type != PP_IDENTIFIER {
			return nil, fmt.Errorf("%s: macro name must be an identifier", dirType)
		}
		dir.Identifier = rest[j].Text
	case DIR_INCLUDE, DIR_INCLUDE_NEXT, DIR_IMPORT:
		parseIncludeOperand(dir, rest)
		if dir.HeaderName == "" && len(dir.Expression) == 0 {
			return nil, fmt.Errorf("%s expects \"FILENAME\" or <FILENAME>", dirType)
		}
	case DIR_IF, DIR_ELIF:
		dir.Expression = trimWhitespace(rest)
		if len(dir.Expression) == 0 {
			return nil, fmt.Errorf("%s with no expression", dirType)
		}
	case DIR_LINE:
		return parseLine(dir, rest)
	case DIR_ERROR, DIR_WARNING:
		dir.Message = strings.TrimSpace(TokensToString(rest))
	case DIR_PRAGMA:
		dir.PragmaTokens = trimWhitespace(rest)
	}
	return dir, nil
}

func parseDefine(dir *Directive, rest []Token) error {
	j := skipWS(rest, 0)
	if j >= len(rest) || rest[j].Type != PP_IDENTIFIER {
		return fmt.Errorf("#define: macro name must be an identifier")
	}
	dir.Identifier = rest[j].Text
	j++

	// Function-like only when '(' follows the name with no whitespace between.
	if j < len(rest) && rest[j].Type == PP_PUNCTUATOR && rest[j].Text == "(" {
		dir.IsFunctionLike = true
		j++
		namedVariadic := ""
		for {
			j = skipWS(rest, j)
			if j >= len(rest) {
				return fmt.Errorf("#define %s: missing ')' in parameter list", dir.Identifier)
			}
			tok := rest[j]
			if tok.Type == PP_PUNCTUATOR && tok.Text == ")" && len(dir.Params) == 0 && !dir.IsVariadic {
				j++
				break
			}
			switch {
			case tok.Type == PP_PUNCTUATOR && tok.Text == "...":
				dir.IsVariadic = true
				j++
			case tok.Type == PP_IDENTIFIER:
				j++
				k := skipWS(rest, j)
				if k < len(rest) && rest[k].Type == PP_PUNCTUATOR && rest[k].Text == "..." {
					dir.IsVariadic = true
					namedVariadic = tok.Text
					j = k + 1
				} else {
					dir.Params = append(dir.Params, tok.Text)
				}
			default:
				return fmt.Errorf("#define %s: invalid token %q in parameter list", dir.Identifier, tok.Text)
			}

			j = skipWS(rest, j)
			if j >= len(rest) {
				return fmt.Errorf("#define %s: missing ')' in parameter list", dir.Identifier)
			}
			if rest[j].Type == PP_PUNCTUATOR && rest[j].Text == ")" {
				j++
				break
			}
			if dir.IsVariadic || rest[j].Type != PP_PUNCTUATOR || rest[j].Text != "," {
				return fmt.Errorf("#define %s: expected ',' or ')' in parameter list", dir.Identifier)
			}
			j++
		}

		body := trimWhitespace(rest[j:])
		if namedVariadic != "" {
			renamed := make([]Token, len(body))
			for k, tok := range body {
				if tok.Type == PP_IDENTIFIER && tok.Text == namedVariadic {
					tok.Text = "__VA_ARGS__"
				}
				renamed[k] = tok
			}
			body = renamed
		}
		dir.Replacement = body
		return nil
	}

	dir.Replacement = trimWhitespace(rest[j:])
	return nil
}

func parseIncludeOperand(dir *Directive, rest []Token) {
	j := skipWS(rest, 0)
	if j >= len(rest) {
		return
	}
	tok := rest[j]
	switch {
	case tok.Type == PP_STRING:
		dir.HeaderName = tok.Text
	case tok.Type == PP_PUNCTUATOR && tok.Text == "<":
		var sb strings.Builder
		sb.WriteString("<")
		for k := j + 1; k < len(rest); k++ {
			if rest[k].Type == PP_PUNCTUATOR && rest[k].Text == ">" {
				sb.WriteString(">")
				dir.HeaderName = sb.String()
				return
			}
			sb.WriteString(rest[k].Text)
		}
		dir.Expression = trimWhitespace(rest[j:])
	default:
		dir.Expression = trimWhitespace(rest[j:])
	}
}

func parseLine(dir *Directive, rest []Token) (*Directive, error) {
	j := skipWS(rest, 0)
	if j >= len(rest) || rest[j].Type != PP_NUMBER {
		return nil, fmt.Errorf("#line directive requires a positive integer argument")
	}
	n, err := strconv.Atoi(rest[j].Text)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("#line directive requires a positive integer argument")
	}
	dir.LineNum = n
	j = skipWS(rest, j+1)
	if j < len(rest) && rest[j].Type == PP_STRING {
		dir.FileName = unquote(rest[j].Text)
	}
	return dir, nil
}

func parseLineMarker(tokens []Token, loc SourceLoc) (*Directive, error) {
	dir := &Directive{Type: DIR_LINEMARKER, Loc: loc}
	n, err := strconv.Atoi(tokens[0].Text)
	if err != nil {
		return nil, fmt.Errorf("invalid line marker %q", tokens[0].Text)
	}
	dir.LineNum = n
	j := skipWS(tokens, 1)
	if j < len(tokens) && tokens[j].Type == PP_STRING {
		dir.FileName = unquote(tokens[j].Text)
		j++
	}
	for {
		j = skipWS(tokens, j)
		if j >= len(tokens) || tokens[j].Type != PP_NUMBER {
			break
		}
		if flag, err := strconv.Atoi(tokens[j].Text); err == nil {
			dir.Flags = append(dir.Flags, flag)
		}
		j++
	}
	return dir, nil
}

func skipWS(tokens []Token, i int) int {
	for i < len(tokens) && tokens[i].Type == PP_WHITESPACE {
		i++
	}
	return i
}

func stripNewline(tokens []Token) []Token {
	for len(tokens) > 0 && tokens[len(tokens)-1].Type == PP_NEWLINE {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, "\"")
}
