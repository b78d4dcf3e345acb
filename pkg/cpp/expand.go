// expand.go rewrites macro invocations into their replacement lists.
// Replaced tokens take the location of the invocation and remember the
// macro and #define they came from.
package cpp

import (
	"fmt"
	"strings"
)

// ExpansionError is a failed macro invocation together with the
// definition of the macro being invoked.
type ExpansionError struct {
	Macro string
	Def   SourceLoc
	Err   error
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("in expansion of macro %s (defined at %s): %v", e.Macro, e.Def, e.Err)
}

func (e *ExpansionError) Unwrap() error { return e.Err }

// hideSet is the immutable set of macro names a token may no longer
// expand, so that self-referencing macros terminate.
type hideSet struct {
	name string
	next *hideSet
}

func (h *hideSet) has(name string) bool {
	for ; h != nil; h = h.next {
		if h.name == name {
			return true
		}
	}
	return false
}

func (h *hideSet) with(name string) *hideSet {
	if h.has(name) {
		return h
	}
	return &hideSet{name: name, next: h}
}

func (h *hideSet) union(o *hideSet) *hideSet {
	for ; o != nil; o = o.next {
		h = h.with(o.name)
	}
	return h
}

func (h *hideSet) intersect(o *hideSet) *hideSet {
	var out *hideSet
	for ; h != nil; h = h.next {
		if o.has(h.name) {
			out = out.with(h.name)
		}
	}
	return out
}

// Expander expands macros defined in a MacroTable.
type Expander struct {
	macros *MacroTable
	at     SourceLoc // line being expanded; __FILE__ and __LINE__ report it
}

// NewExpander creates an expander over macros.
func NewExpander(macros *MacroTable) *Expander {
	return &Expander{macros: macros}
}

// Expand expands every macro invocation in tokens.
func (e *Expander) Expand(tokens []Token) ([]Token, error) {
	return e.ExpandAt(tokens, SourceLoc{})
}

// ExpandAt expands tokens read from the line at loc.
func (e *Expander) ExpandAt(tokens []Token, loc SourceLoc) ([]Token, error) {
	e.at = loc
	return e.rescan(tokens)
}

// ExpandMacro expands the object-like macro name on its own, as a binding
// generator sees it when the header has been read to the end.
func (e *Expander) ExpandMacro(name string) ([]Token, error) {
	m := e.macros.Lookup(name)
	if m == nil {
		return nil, fmt.Errorf("macro %s is not defined", name)
	}
	if m.IsFunctionLike() {
		return nil, fmt.Errorf("macro %s is function-like", name)
	}
	out, err := e.ExpandAt([]Token{{Type: PP_IDENTIFIER, Text: name, Loc: m.Loc}}, m.Loc)
	if err != nil {
		return nil, err
	}
	return trimWhitespace(out), nil
}

// rescan expands tokens left to right. A replacement list is pushed back in
// front of the remaining input so that it can complete an invocation with
// arguments that follow it.
func (e *Expander) rescan(input []Token) ([]Token, error) {
	var out []Token
	work := input
	for len(work) > 0 {
		tok := work[0]
		var m *Macro
		if tok.Type == PP_IDENTIFIER && !tok.hide.has(tok.Text) {
			m = e.macros.Lookup(tok.Text)
		}
		if m == nil {
			out = append(out, tok)
			work = work[1:]
			continue
		}

		switch m.Kind {
		case MacroBuiltin:
			toks, err := e.builtin(m, tok.Loc)
			if err != nil {
				return nil, err
			}
			out = append(out, toks...)
			work = work[1:]

		case MacroObject:
			body, err := e.replace(m, tok, nil, tok.hide.with(m.Name))
			if err != nil {
				return nil, err
			}
			work = append(body, work[1:]...)

		case MacroFunction:
			open := skipBlank(work, 1)
			if open >= len(work) || !isPunct(work[open], "(") {
				out = append(out, tok)
				work = work[1:]
				continue
			}
			args, end, err := collectArgs(work, open)
			if err == nil {
				args, err = fitArgs(m, args)
			}
			if err != nil {
				return nil, e.invocationError(m, tok, err)
			}
			hs := tok.hide.intersect(work[end].hide).with(m.Name)
			body, err := e.replace(m, tok, args, hs)
			if err != nil {
				return nil, err
			}
			work = append(body, work[end+1:]...)
		}
	}
	return out, nil
}

// invocationError wraps err with the macro's definition and, when the
// invocation itself came from another macro, that macro's definition.
func (e *Expander) invocationError(m *Macro, at Token, err error) error {
	err = &ExpansionError{Macro: m.Name, Def: m.Loc, Err: err}
	if at.Macro != "" {
		err = &ExpansionError{Macro: at.Macro, Def: at.Def, Err: err}
	}
	return err
}

func (e *Expander) builtin(m *Macro, loc SourceLoc) ([]Token, error) {
	if e.at.File != "" {
		loc = e.at
	}
	switch m.Name {
	case "__FILE__":
		return e.macros.GetFileToken(loc), nil
	case "__LINE__":
		return e.macros.GetLineToken(loc), nil
	}
	if m.BuiltinFunc == nil {
		return nil, fmt.Errorf("built-in macro %s has no implementation", m.Name)
	}
	return m.BuiltinFunc(loc), nil
}

// macroArg is one argument of a function-like invocation.
type macroArg struct {
	raw      []Token
	expanded []Token
	done     bool
}

// collectArgs splits the parenthesized argument list opening at tokens[open]
// on top-level commas. It returns the index of the closing parenthesis.
func collectArgs(tokens []Token, open int) ([]*macroArg, int, error) {
	var args []*macroArg
	var cur []Token
	depth := 0
	for i := open + 1; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == PP_NEWLINE {
			tok.Type, tok.Text = PP_WHITESPACE, " "
		}
		switch {
		case isPunct(tok, "("):
			depth++
		case isPunct(tok, ")") && depth > 0:
			depth--
		case isPunct(tok, ")"):
			args = append(args, &macroArg{raw: trimWhitespace(cur)})
			return args, i, nil
		case isPunct(tok, ",") && depth == 0:
			args = append(args, &macroArg{raw: trimWhitespace(cur)})
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	return nil, 0, fmt.Errorf("unterminated argument list")
}

// fitArgs checks the argument count and folds the variable arguments into
// one trailing argument. F() passes no argument to a macro without
// parameters and one empty argument otherwise.
func fitArgs(m *Macro, args []*macroArg) ([]*macroArg, error) {
	n := len(m.Params)
	if n == 0 && len(args) == 1 && len(args[0].raw) == 0 {
		args = nil
	}
	if !m.IsVariadic {
		if len(args) != n {
			return nil, fmt.Errorf("macro %s requires %d arguments, got %d", m.Name, n, len(args))
		}
		return args, nil
	}
	if len(args) < n {
		return nil, fmt.Errorf("macro %s requires at least %d arguments, got %d", m.Name, n, len(args))
	}
	va := &macroArg{}
	for i, a := range args[n:] {
		if i > 0 {
			va.raw = append(va.raw,
				Token{Type: PP_PUNCTUATOR, Text: ","},
				Token{Type: PP_WHITESPACE, Text: " "})
		}
		va.raw = append(va.raw, a.raw...)
	}
	return append(args[:n:n], va), nil
}

// replace instantiates the replacement list of m invoked at the token at,
// substituting args for parameters, and marks the result with hs.
func (e *Expander) replace(m *Macro, at Token, args []*macroArg, hs *hideSet) ([]Token, error) {
	params := map[string]*macroArg{}
	for i, p := range m.Params {
		params[p] = args[i]
	}
	if m.IsVariadic {
		params["__VA_ARGS__"] = args[len(m.Params)]
	}

	body, err := e.substitute(m, m.Replacement, params)
	if err != nil {
		return nil, &ExpansionError{Macro: m.Name, Def: m.Loc, Err: err}
	}
	body, err = paste(body)
	if err != nil {
		return nil, &ExpansionError{Macro: m.Name, Def: m.Loc, Err: err}
	}

	out := make([]Token, 0, len(body))
	for _, tok := range body {
		if tok.Type == PP_PLACEHOLDER {
			continue
		}
		if tok.Macro == "" {
			tok.Macro, tok.Def = m.Name, m.Loc
		}
		tok.Loc = at.Loc
		tok.hide = hs.union(tok.hide)
		out = append(out, tok)
	}
	return out, nil
}

// substitute replaces parameters in body. Operands of # and ## use the
// argument as written; other uses get the fully expanded argument.
func (e *Expander) substitute(m *Macro, body []Token, params map[string]*macroArg) ([]Token, error) {
	var out []Token
	for i := 0; i < len(body); i++ {
		tok := body[i]

		if isPunct(tok, "#") || tok.Type == PP_HASH {
			if j := skipBlank(body, i+1); j < len(body) {
				if arg, ok := params[body[j].Text]; ok && body[j].Type == PP_IDENTIFIER {
					out = append(out, stringify(arg.raw))
					i = j
					continue
				}
			}
			if m.IsFunctionLike() {
				return nil, fmt.Errorf("'#' is not followed by a macro parameter")
			}
		}

		if tok.Type != PP_IDENTIFIER {
			out = append(out, tok)
			continue
		}

		if tok.Text == "__VA_OPT__" && m.IsVariadic {
			content, end, err := vaOptContent(body, i)
			if err != nil {
				return nil, err
			}
			i = end
			if len(params["__VA_ARGS__"].raw) == 0 {
				out = append(out, Token{Type: PP_PLACEHOLDER})
				continue
			}
			inner, err := e.substitute(m, content, params)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
			continue
		}

		arg, ok := params[tok.Text]
		if !ok {
			out = append(out, tok)
			continue
		}

		// GNU extension: in ", ## __VA_ARGS__" an empty variable argument
		// removes the comma.
		if tok.Text == "__VA_ARGS__" {
			if k, comma := pastedComma(out); comma {
				if len(arg.raw) == 0 {
					out = out[:k]
				} else {
					out = append(out[:k+1], arg.raw...)
				}
				continue
			}
		}

		switch {
		case nextNonBlankIs(body, i+1, PP_HASHHASH) || prevNonBlankIs(body, i-1, PP_HASHHASH):
			if len(arg.raw) == 0 {
				out = append(out, Token{Type: PP_PLACEHOLDER})
			} else {
				out = append(out, arg.raw...)
			}
		default:
			if !arg.done {
				expanded, err := e.rescan(arg.raw)
				if err != nil {
					return nil, err
				}
				arg.expanded, arg.done = expanded, true
			}
			out = append(out, arg.expanded...)
		}
	}
	return out, nil
}

// vaOptContent returns the tokens between the parentheses of the
// __VA_OPT__ at body[i] and the index of the closing parenthesis.
func vaOptContent(body []Token, i int) ([]Token, int, error) {
	open := skipBlank(body, i+1)
	if open >= len(body) || !isPunct(body[open], "(") {
		return nil, 0, fmt.Errorf("__VA_OPT__ must be followed by '('")
	}
	depth := 0
	for j := open + 1; j < len(body); j++ {
		switch {
		case isPunct(body[j], "("):
			depth++
		case isPunct(body[j], ")") && depth > 0:
			depth--
		case isPunct(body[j], ")"):
			return body[open+1 : j], j, nil
		}
	}
	return nil, 0, fmt.Errorf("unterminated __VA_OPT__")
}

// pastedComma reports whether out ends in ", ##" and returns the index of
// the comma.
func pastedComma(out []Token) (int, bool) {
	j := len(out) - 1
	for j >= 0 && out[j].Type == PP_WHITESPACE {
		j--
	}
	if j < 0 || out[j].Type != PP_HASHHASH {
		return 0, false
	}
	j--
	for j >= 0 && out[j].Type == PP_WHITESPACE {
		j--
	}
	if j < 0 || !isPunct(out[j], ",") {
		return 0, false
	}
	return j, true
}

// stringify implements the # operator: whitespace runs become one space and
// quotes and backslashes inside literals are escaped.
func stringify(tokens []Token) Token {
	var sb strings.Builder
	sb.WriteByte('"')
	space := false
	for _, tok := range tokens {
		if tok.Type == PP_WHITESPACE || tok.Type == PP_NEWLINE {
			space = true
			continue
		}
		if space && sb.Len() > 1 {
			sb.WriteByte(' ')
		}
		space = false
		if tok.Type == PP_STRING || tok.Type == PP_CHAR_CONST {
			for _, c := range tok.Text {
				if c == '"' || c == '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteRune(c)
			}
			continue
		}
		sb.WriteString(tok.Text)
	}
	sb.WriteByte('"')
	return Token{Type: PP_STRING, Text: sb.String()}
}

// paste applies the ## operators left in body.
func paste(body []Token) ([]Token, error) {
	var out []Token
	for i := 0; i < len(body); i++ {
		if body[i].Type != PP_HASHHASH {
			out = append(out, body[i])
			continue
		}
		for len(out) > 0 && out[len(out)-1].Type == PP_WHITESPACE {
			out = out[:len(out)-1]
		}
		j := skipBlank(body, i+1)
		if len(out) == 0 || j >= len(body) {
			return nil, fmt.Errorf("'##' cannot appear at either end of a macro expansion")
		}
		left, right := out[len(out)-1], body[j]
		out = out[:len(out)-1]
		i = j

		switch {
		case left.Type == PP_PLACEHOLDER:
			out = append(out, right)
		case right.Type == PP_PLACEHOLDER:
			out = append(out, left)
		default:
			pasted := relex(left.Text+right.Text, left)
			if len(pasted) != 1 {
				return nil, fmt.Errorf("pasting %q and %q does not give a valid preprocessing token", left.Text, right.Text)
			}
			out = append(out, pasted[0])
		}
	}
	return out, nil
}

// relex tokenizes the result of a paste, keeping the origin of like.
func relex(text string, like Token) []Token {
	lex := NewLexer(text, like.Loc.File)
	lex.lineStart = false
	var out []Token
	for {
		tok := lex.NextToken()
		if tok.Type == PP_EOF {
			return out
		}
		tok.Loc, tok.Macro, tok.Def, tok.hide = like.Loc, like.Macro, like.Def, like.hide
		out = append(out, tok)
	}
}

func isPunct(tok Token, text string) bool {
	return tok.Type == PP_PUNCTUATOR && tok.Text == text
}

// skipBlank returns the index of the first token at or after i that is not
// whitespace or a newline.
func skipBlank(tokens []Token, i int) int {
	for i < len(tokens) && (tokens[i].Type == PP_WHITESPACE || tokens[i].Type == PP_NEWLINE) {
		i++
	}
	return i
}

func nextNonBlankIs(tokens []Token, i int, typ TokenType) bool {
	i = skipBlank(tokens, i)
	return i < len(tokens) && tokens[i].Type == typ
}

func prevNonBlankIs(tokens []Token, i int, typ TokenType) bool {
	for i >= 0 && tokens[i].Type == PP_WHITESPACE {
		i--
	}
	return i >= 0 && tokens[i].Type == typ
}

// trimWhitespace removes leading and trailing whitespace from a token slice.
func trimWhitespace(tokens []Token) []Token {
	start, end := 0, len(tokens)
	for start < end && tokens[start].Type == PP_WHITESPACE {
		start++
	}
	for end > start && tokens[end-1].Type == PP_WHITESPACE {
		end--
	}
	if start == end {
		return nil
	}
	return tokens[start:end]
}
