// macro.go holds the macro table shared by the expander, the conditional
// evaluator and the preprocessor driver.
package cpp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MacroKind distinguishes object-like, function-like and built-in macros.
type MacroKind int

const (
	MacroObject MacroKind = iota
	MacroFunction
	MacroBuiltin
)

func (k MacroKind) String() string {
	switch k {
	case MacroObject:
		return "object"
	case MacroFunction:
		return "function"
	case MacroBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Macro is a single macro definition.
type Macro struct {
	Name        string
	Kind        MacroKind
	Params      []string
	IsVariadic  bool
	Replacement []Token
	BuiltinFunc func(SourceLoc) []Token
	Loc         SourceLoc
}

// Body returns the replacement list as source text without surrounding whitespace.
func (m *Macro) Body() string {
	return strings.TrimSpace(TokensToString(m.Replacement))
}

// IsFunctionLike reports whether the macro takes arguments.
func (m *Macro) IsFunctionLike() bool {
	return m.Kind == MacroFunction
}

// MacroTable stores the active macro definitions.
type MacroTable struct {
	macros  map[string]*Macro
	counter int
}

// NewMacroTable creates a table holding the standard built-in macros.
func NewMacroTable() *MacroTable {
	t := &MacroTable{macros: make(map[string]*Macro)}

	t.macros["__FILE__"] = &Macro{Name: "__FILE__", Kind: MacroBuiltin}
	t.macros["__LINE__"] = &Macro{Name: "__LINE__", Kind: MacroBuiltin}
	t.macros["__COUNTER__"] = &Macro{
		Name: "__COUNTER__",
		Kind: MacroBuiltin,
		BuiltinFunc: func(loc SourceLoc) []Token {
			n := t.counter
			t.counter++
			return []Token{{Type: PP_NUMBER, Text: strconv.Itoa(n), Loc: loc}}
		},
	}

	builtin := SourceLoc{File: "<built-in>", Line: 1, Column: 1}
	_ = t.DefineSimple("__STDC__", "1", builtin)
	_ = t.DefineSimple("__STDC_VERSION__", "201112L", builtin)
	_ = t.DefineSimple("__STDC_HOSTED__", "1", builtin)
	return t
}

// Define adds or replaces a macro. Built-in macros cannot be redefined.
func (t *MacroTable) Define(m *Macro) error {
	if m.Name == "" || !IsIdentifier(m.Name) {
		return fmt.Errorf("macro name must be an identifier, got %q", m.Name)
	}
	if m.Name == "defined" {
		return fmt.Errorf("\"defined\" cannot be used as a macro name")
	}
	if old, ok := t.macros[m.Name]; ok && old.Kind == MacroBuiltin {
		return fmt.Errorf("cannot redefine built-in macro %s", m.Name)
	}
	t.macros[m.Name] = m
	return nil
}

// DefineSimple defines an object-like macro from source text.
func (t *MacroTable) DefineSimple(name, value string, loc SourceLoc) error {
	return t.DefineObject(name, lexFragment(value, loc), loc)
}

// DefineObject defines an object-like macro.
func (t *MacroTable) DefineObject(name string, body []Token, loc SourceLoc) error {
	return t.Define(&Macro{
		Name:        name,
		Kind:        MacroObject,
		Replacement: trimWhitespace(body),
		Loc:         loc,
	})
}

// DefineFunction defines a function-like macro.
func (t *MacroTable) DefineFunction(name string, params []string, variadic bool, body []Token, loc SourceLoc) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p] {
			return fmt.Errorf("duplicate macro parameter %q in %s", p, name)
		}
		seen[p] = true
	}
	return t.Define(&Macro{
		Name:        name,
		Kind:        MacroFunction,
		Params:      params,
		IsVariadic:  variadic,
		Replacement: trimWhitespace(body),
		Loc:         loc,
	})
}

// DefineFromDirective defines the macro described by a #define directive.
func (t *MacroTable) DefineFromDirective(dir *Directive) error {
	if dir.Type != DIR_DEFINE {
		return fmt.Errorf("expected #define, got %s", dir.Type)
	}
	if dir.IsFunctionLike {
		return t.DefineFunction(dir.Identifier, dir.Params, dir.IsVariadic, dir.Replacement, dir.Loc)
	}
	return t.DefineObject(dir.Identifier, dir.Replacement, dir.Loc)
}

// ApplyCmdlineDefines applies -D and -U options in order: defines first, then undefines.
// A define is NAME, NAME=VALUE or NAME(ARGS)=BODY.
func (t *MacroTable) ApplyCmdlineDefines(defines, undefines []string) {
	loc := SourceLoc{File: "<command line>", Line: 1, Column: 1}
	for _, d := range defines {
		name, value, hasValue := strings.Cut(d, "=")
		if !hasValue {
			value = "1"
		}
		if strings.Contains(name, "(") {
			dir, err := ParseDirectiveFromTokens(lexFragment("define "+name+" "+value, loc), loc)
			if err == nil {
				_ = t.DefineFromDirective(dir)
			}
			continue
		}
		_ = t.DefineSimple(strings.TrimSpace(name), value, loc)
	}
	for _, u := range undefines {
		t.Undefine(strings.TrimSpace(u))
	}
}

// Undefine removes a macro. Built-ins are kept.
func (t *MacroTable) Undefine(name string) {
	if m, ok := t.macros[name]; ok && m.Kind == MacroBuiltin {
		return
	}
	delete(t.macros, name)
}

// IsDefined reports whether name is currently a macro.
func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Lookup returns the macro called name, or nil.
func (t *MacroTable) Lookup(name string) *Macro {
	return t.macros[name]
}

// Names returns the defined macro names in sorted order.
func (t *MacroTable) Names() []string {
	names := make([]string, 0, len(t.macros))
	for name := range t.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetFileToken returns the expansion of __FILE__ at loc.
func (t *MacroTable) GetFileToken(loc SourceLoc) []Token {
	return []Token{{Type: PP_STRING, Text: strconv.Quote(loc.File), Loc: loc}}
}

// GetLineToken returns the expansion of __LINE__ at loc.
func (t *MacroTable) GetLineToken(loc SourceLoc) []Token {
	return []Token{{Type: PP_NUMBER, Text: strconv.Itoa(loc.Line), Loc: loc}}
}

// lexFragment tokenizes a single logical line.
func lexFragment(text string, loc SourceLoc) []Token {
	lex := NewLexer(text, loc.File)
	lex.lineStart = false
	var tokens []Token
	for {
		tok := lex.NextToken()
		if tok.Type == PP_EOF || tok.Type == PP_NEWLINE {
			break
		}
		tok.Loc = loc
		tokens = append(tokens, tok)
	}
	return tokens
}
