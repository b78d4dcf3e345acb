// conditional.go tracks #if/#ifdef/#elif/#else/#endif groups and resolves
// the operators that only exist in #if lines: defined and the __has_*
// feature queries that headers use to test their compiler.
package cpp

import (
	"fmt"
	"strings"
)

// branch is one open conditional.
type branch struct {
	outerLive bool // the enclosing group is kept
	live      bool // the current group is kept
	taken     bool // some group of this conditional was kept
	sawElse   bool
}

// ConditionalProcessor keeps the stack of open conditionals.
type ConditionalProcessor struct {
	macros   *MacroTable
	expander *Expander
	stack    []branch

	// HasInclude resolves __has_include / __has_include_next operands such as
	// "<stdio.h>". Without it both evaluate to 0.
	HasInclude func(headerName string, next bool) bool
}

// knownAttributes answer __has_attribute with 1.
var knownAttributes = map[string]bool{
	"aligned": true, "packed": true, "visibility": true, "deprecated": true,
	"unavailable": true, "availability": true, "unused": true, "used": true,
	"noreturn": true, "const": true, "pure": true, "nonnull": true,
	"warn_unused_result": true, "format": true, "cdecl": true, "stdcall": true,
	"fastcall": true, "vectorcall": true, "ms_abi": true, "sysv_abi": true,
	"always_inline": true, "noinline": true, "malloc": true,
}

// NewConditionalProcessor creates a processor evaluating against macros.
func NewConditionalProcessor(macros *MacroTable) *ConditionalProcessor {
	return &ConditionalProcessor{macros: macros, expander: NewExpander(macros)}
}

// IsActive reports whether lines at the current position are kept.
func (cp *ConditionalProcessor) IsActive() bool {
	return len(cp.stack) == 0 || cp.stack[len(cp.stack)-1].live
}

// Depth returns the number of open conditionals.
func (cp *ConditionalProcessor) Depth() int {
	return len(cp.stack)
}

// open pushes a conditional whose first group is kept when cond holds.
// cond is not consulted inside a skipped group.
func (cp *ConditionalProcessor) open(cond func() (bool, error)) error {
	if !cp.IsActive() {
		cp.stack = append(cp.stack, branch{})
		return nil
	}
	ok, err := cond()
	if err != nil {
		return err
	}
	cp.stack = append(cp.stack, branch{outerLive: true, live: ok, taken: ok})
	return nil
}

// ProcessIf handles #if.
func (cp *ConditionalProcessor) ProcessIf(expr []Token) error {
	return cp.open(func() (bool, error) {
		ok, err := cp.evaluateCondition(expr)
		if err != nil {
			return false, fmt.Errorf("#if: %w", err)
		}
		return ok, nil
	})
}

// ProcessIfdef handles #ifdef.
func (cp *ConditionalProcessor) ProcessIfdef(name string) error {
	return cp.open(func() (bool, error) { return cp.macros.IsDefined(name), nil })
}

// ProcessIfndef handles #ifndef, which opens most include guards.
func (cp *ConditionalProcessor) ProcessIfndef(name string) error {
	return cp.open(func() (bool, error) { return !cp.macros.IsDefined(name), nil })
}

// ProcessElif handles #elif. Its condition is only evaluated when no
// earlier group was kept.
func (cp *ConditionalProcessor) ProcessElif(expr []Token) error {
	if len(cp.stack) == 0 {
		return fmt.Errorf("#elif without #if")
	}
	b := &cp.stack[len(cp.stack)-1]
	if b.sawElse {
		return fmt.Errorf("#elif after #else")
	}
	if !b.outerLive || b.taken {
		b.live = false
		return nil
	}
	ok, err := cp.evaluateCondition(expr)
	if err != nil {
		return fmt.Errorf("#elif: %w", err)
	}
	b.live, b.taken = ok, ok
	return nil
}

// ProcessElse handles #else.
func (cp *ConditionalProcessor) ProcessElse() error {
	if len(cp.stack) == 0 {
		return fmt.Errorf("#else without #if")
	}
	b := &cp.stack[len(cp.stack)-1]
	if b.sawElse {
		return fmt.Errorf("#else after #else")
	}
	b.sawElse = true
	b.live = b.outerLive && !b.taken
	b.taken = b.taken || b.live
	return nil
}

// ProcessEndif handles #endif.
func (cp *ConditionalProcessor) ProcessEndif() error {
	if len(cp.stack) == 0 {
		return fmt.Errorf("#endif without #if")
	}
	cp.stack = cp.stack[:len(cp.stack)-1]
	return nil
}

// evaluateCondition evaluates the operand of #if or #elif.
func (cp *ConditionalProcessor) evaluateCondition(tokens []Token) (bool, error) {
	resolved, err := cp.resolveOperators(tokens)
	if err != nil {
		return false, err
	}
	expanded, err := cp.expander.Expand(resolved)
	if err != nil {
		return false, err
	}
	v, err := evalIfExpr(expanded)
	if err != nil {
		return false, err
	}
	return v.truth(), nil
}

// resolveOperators replaces defined and the feature queries by 0 or 1
// before macro expansion can touch their operands.
func (cp *ConditionalProcessor) resolveOperators(tokens []Token) ([]Token, error) {
	var out []Token
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type != PP_IDENTIFIER || (tok.Text != "defined" && !isFeatureQuery(tok.Text)) {
			out = append(out, tok)
			continue
		}

		var (
			value bool
			end   int
			err   error
		)
		if tok.Text == "defined" {
			value, end, err = cp.definedOperand(tokens, i)
		} else {
			value, end, err = cp.featureQuery(tokens, i)
		}
		if err != nil {
			return nil, err
		}
		text := "0"
		if value {
			text = "1"
		}
		out = append(out, Token{Type: PP_NUMBER, Text: text, Loc: tok.Loc})
		i = end
	}
	return out, nil
}

// definedOperand evaluates "defined NAME" or "defined ( NAME )" starting at
// tokens[i] and returns the index of its last token.
func (cp *ConditionalProcessor) definedOperand(tokens []Token, i int) (bool, int, error) {
	j := skipBlank(tokens, i+1)
	paren := j < len(tokens) && isPunct(tokens[j], "(")
	if paren {
		j = skipBlank(tokens, j+1)
	}
	if j >= len(tokens) || tokens[j].Type != PP_IDENTIFIER {
		return false, 0, fmt.Errorf("operator \"defined\" requires an identifier")
	}
	name := tokens[j].Text
	if paren {
		j = skipBlank(tokens, j+1)
		if j >= len(tokens) || !isPunct(tokens[j], ")") {
			return false, 0, fmt.Errorf("missing ')' after \"defined\"")
		}
	}
	return cp.macros.IsDefined(name), j, nil
}

func isFeatureQuery(name string) bool {
	switch name {
	case "__has_include", "__has_include_next", "__has_attribute", "__has_c_attribute",
		"__has_cpp_attribute", "__has_declspec_attribute", "__has_builtin", "__has_feature",
		"__has_extension", "__has_warning", "__is_identifier":
		return true
	}
	return false
}

// featureQuery evaluates the __has_* operator at tokens[i] and returns the
// index of its closing parenthesis.
func (cp *ConditionalProcessor) featureQuery(tokens []Token, i int) (bool, int, error) {
	name := tokens[i].Text
	j := skipBlank(tokens, i+1)
	if j >= len(tokens) || !isPunct(tokens[j], "(") {
		return false, 0, fmt.Errorf("%s requires a parenthesized operand", name)
	}
	var operand []Token
	depth := 0
	end := -1
	for j++; j < len(tokens) && end < 0; j++ {
		switch t := tokens[j]; {
		case isPunct(t, "("):
			depth++
		case isPunct(t, ")") && depth == 0:
			end = j
			continue
		case isPunct(t, ")"):
			depth--
		case t.Type == PP_WHITESPACE || t.Type == PP_NEWLINE:
			continue
		}
		operand = append(operand, tokens[j])
	}
	if end < 0 {
		return false, 0, fmt.Errorf("missing ')' after %s", name)
	}

	text := TokensToString(operand)
	switch name {
	case "__has_include", "__has_include_next":
		if cp.HasInclude == nil || text == "" {
			return false, end, nil
		}
		if !strings.HasPrefix(text, "<") && !strings.HasPrefix(text, "\"") {
			expanded, err := cp.expander.Expand(operand)
			if err != nil {
				return false, 0, err
			}
			text = strings.TrimSpace(TokensToString(expanded))
		}
		return cp.HasInclude(text, name == "__has_include_next"), end, nil
	case "__has_attribute":
		return knownAttributes[strings.Trim(text, "_")], end, nil
	case "__is_identifier":
		return true, end, nil
	}
	return false, end, nil
}
