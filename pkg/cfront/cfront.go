// Package cfront is the C front end behind the cindex contract: it
// preprocesses a header, parses its declarations and resolves them into
// cursors and types laid out for the requested target.
package cfront

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/cpp"
	"github.com/raymyers/ralph-bindgen/pkg/ctypes"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
	"github.com/raymyers/ralph-bindgen/pkg/lexer"
	"github.com/raymyers/ralph-bindgen/pkg/parser"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
	"github.com/raymyers/ralph-bindgen/pkg/preproc"
)

// Parser implements cindex.Parser.
type Parser struct {
	// Host is the target used when the arguments name none. The zero value
	// means the running platform.
	Host platform.TargetPlatform
	// UseExternal preprocesses with the host C compiler. Macro objects are
	// unavailable in that mode.
	UseExternal bool
}

var _ cindex.Parser = (*Parser)(nil)

// New returns a parser for the running platform.
func New() *Parser {
	return &Parser{Host: platform.Host()}
}

// Parse builds a translation unit for file. Error and fatal diagnostics make
// it fail with a parse error carrying the first of them.
func (p *Parser) Parse(ctx context.Context, file string, args []string) (cindex.TranslationUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	host := p.Host
	if host.IsZero() {
		host = platform.Host()
	}
	a, err := ParseArgs(args, host)
	if err != nil {
		return nil, apperrors.ParseError(file, err)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, apperrors.ParseError(file, err)
	}

	u := newUnit(abs, a.Target)
	res, err := preproc.Preprocess(ctx, abs, &preproc.Options{
		IncludePaths: a.IncludePaths,
		SystemPaths:  a.SystemPaths,
		Predefines:   a.Target.Predefines(),
		Defines:      a.Defines,
		Undefines:    a.Undefines,
		UseExternal:  p.UseExternal,
		LineMarkers:  true,
	})
	if err != nil {
		u.diags = append(u.diags, cindex.Diagnostic{
			Severity: cindex.SeverityFatal,
			Message:  err.Error(),
			Location: cindex.Location{File: abs},
		})
		return nil, u.failure()
	}
	for _, w := range res.Warnings {
		u.diags = append(u.diags, cindex.Diagnostic{
			Severity: cindex.SeverityWarning,
			Message:  w.Message,
			Location: cindex.Location{File: w.Loc.File, Line: w.Loc.Line, Column: w.Loc.Column},
		})
	}

	prog, perrs := parser.Parse(res.Text, abs, res.IsSystemFile(abs))
	for _, e := range perrs {
		u.diags = append(u.diags, cindex.Diagnostic{
			Severity: cindex.SeverityError,
			Message:  e.Msg,
			Location: cindex.Location{File: e.File, Line: e.Line, Column: e.Column, IsSystem: e.System},
		})
	}

	u.sema = newSema(u)
	u.sema.analyze(prog)
	u.macros = res.Macros
	u.addPreprocessorCursors(res)

	if cindex.HasErrors(u.diags) {
		return nil, u.failure()
	}
	return u, nil
}

// unit is a translation unit. It is not safe for concurrent use.
type unit struct {
	file   string
	target platform.TargetPlatform
	layout *ctypes.Layout
	root   *decl
	diags  []cindex.Diagnostic
	sema   *sema
	macros *cpp.MacroTable

	records    map[*ctypes.Record]*decl
	enums      map[*ctypes.Enum]*decl
	typedefs   map[string]*decl
	enumConsts map[string]*decl
}

var _ cindex.TranslationUnit = (*unit)(nil)

func newUnit(file string, target platform.TargetPlatform) *unit {
	u := &unit{
		file:       file,
		target:     target,
		layout:     ctypes.NewLayout(ctypes.TargetOf(target)),
		records:    make(map[*ctypes.Record]*decl),
		enums:      make(map[*ctypes.Enum]*decl),
		typedefs:   make(map[string]*decl),
		enumConsts: make(map[string]*decl),
		macros:     cpp.NewMacroTable(),
	}
	u.root = &decl{tu: u, kind: cindex.CursorTranslationUnit, name: file, loc: cindex.Location{File: file}, fieldIndex: -1}
	return u
}

func (u *unit) failure() error {
	for _, d := range u.diags {
		if d.Severity >= cindex.SeverityError {
			return apperrors.ParseError(u.file, errors.New(d.String())).
				WithDetail("diagnostics", strconv.Itoa(len(u.diags)))
		}
	}
	return apperrors.ParseError(u.file, errors.New("unknown failure"))
}

// addPreprocessorCursors appends macro definitions and inclusion
// directives to the translation unit, ordered by position.
func (u *unit) addPreprocessorCursors(res *preproc.Result) {
	var macros []*decl
	for _, name := range res.Macros.Names() {
		m := res.Macros.Lookup(name)
		d := &decl{tu: u, kind: cindex.CursorMacroDefinition, name: name, macro: m, fieldIndex: -1}
		if !strings.HasPrefix(m.Loc.File, "<") && m.Loc.File != "" {
			d.loc = cindex.Location{
				File:     m.Loc.File,
				Line:     m.Loc.Line,
				Column:   m.Loc.Column,
				IsSystem: res.IsSystemFile(m.Loc.File),
			}
		}
		macros = append(macros, d)
	}
	sort.SliceStable(macros, func(i, j int) bool {
		a, b := macros[i].loc, macros[j].loc
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	for _, inc := range res.Inclusions {
		name := strings.Trim(inc.Spelled, "<>\"")
		u.root.children = append(u.root.children, &decl{
			tu:         u,
			kind:       cindex.CursorInclusionDirective,
			name:       name,
			loc:        cindex.Location{File: inc.From, Line: inc.Line, Column: 1, IsSystem: res.IsSystemFile(inc.From)},
			included:   inc.Path,
			fieldIndex: -1,
		})
	}
	u.root.children = append(u.root.children, macros...)
}

func (u *unit) Cursor() cindex.Cursor { return u.root }
func (u *unit) Spelling() string { return u.file }
func (u *unit) Diagnostics() []cindex.Diagnostic { return u.diags }
func (u *unit) TargetTriple() string { return u.target.Actual().Triple }
func (u *unit) PointerWidth() int { return u.target.PointerWidth() }
func (u *unit) Close() error { return nil }

// EvaluateMacro expands an object-like macro and evaluates the expansion
// as a constant expression at the end of the translation unit.
func (u *unit) EvaluateMacro(name string) (cindex.EvalResult, error) {
	m := u.macros.Lookup(name)
	if m == nil {
		return cindex.EvalResult{}, apperrors.Newf(apperrors.CodeMacro, "macro '%s' is not defined", name)
	}
	if m.IsFunctionLike() {
		return cindex.EvalResult{}, apperrors.Newf(apperrors.CodeMacro, "macro '%s' is function-like", name)
	}
	tokens, err := cpp.NewExpander(u.macros).ExpandMacro(name)
	if err != nil {
		return cindex.EvalResult{}, apperrors.Wrap(apperrors.CodeMacro, fmt.Sprintf("expanding '%s'", name), err)
	}

	p := parser.New(lexer.New(cpp.TokensToString(tokens)))
	for td := range u.typedefs {
		p.DeclareTypedef(td)
	}
	expr := p.ParseExpression()
	if errs := p.Errors(); len(errs) > 0 {
		return cindex.EvalResult{}, apperrors.Wrap(apperrors.CodeMacro, fmt.Sprintf("parsing '%s'", name), errors.New(errs[0]))
	}

	// Evaluation must not leave diagnostics behind.
	mark := len(u.diags)
	v, err := u.sema.eval(expr)
	if err == nil && len(u.diags) > mark {
		err = errors.New(u.diags[mark].Message)
	}
	u.diags = u.diags[:mark]
	if err != nil {
		return cindex.EvalResult{}, apperrors.Wrap(apperrors.CodeMacro, fmt.Sprintf("evaluating '%s'", name), err)
	}

	res := cindex.EvalResult{Kind: v.kind, TypeName: ctypes.Spell(v.typ)}
	switch v.kind {
	case cindex.EvalInt:
		res.Int = v.i
		res.Unsigned = ctypes.IsUnsigned(v.typ)
	case cindex.EvalFloat:
		res.Float = v.f
	case cindex.EvalString:
		res.Str = v.s
		res.TypeName = "char*"
	}
	return res, nil
}
