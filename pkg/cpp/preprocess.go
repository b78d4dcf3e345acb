// preprocess.go implements the main preprocessor driver with include processing.
package cpp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Preprocessor is the main driver for C preprocessing.
type Preprocessor struct {
	macros        *MacroTable
	conditional   *ConditionalProcessor
	expander      *Expander
	resolver      *IncludeResolver
	opts          PreprocessorOptions
	includeGuards map[string]string // file path -> guard macro name
	inclusions    []Inclusion
	diagnostics   []Diagnostic
	systemFiles   map[string]bool
}

// PreprocessorOptions configures the preprocessor.
type PreprocessorOptions struct {
	Predefines   []string // target macros, NAME=VALUE, applied before Defines
	Defines      []string // -D definitions
	Undefines    []string // -U undefinitions
	IncludePaths []string // -I directories
	SystemPaths  []string // -isystem directories
	KeepComments bool     // Preserve comments in output
	LineMarkers  bool     // Generate # N "file" flags markers
}

// Inclusion records one #include directive that was executed.
type Inclusion struct {
	From    string // file containing the directive
	Line    int
	Spelled string // header name as written, with its delimiters
	Path    string // resolved absolute path
	Angled  bool
	System  bool
}

// Diagnostic is a non-fatal message produced while preprocessing (#warning).
type Diagnostic struct {
	Loc     SourceLoc
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: warning: %s", d.Loc.File, d.Loc.Line, d.Message)
}

// maxLineGap is the largest source gap filled with blank lines instead of a marker.
const maxLineGap = 8

// NewPreprocessor creates a new preprocessor instance.
func NewPreprocessor(opts PreprocessorOptions) *Preprocessor {
	macros := NewMacroTable()
	macros.ApplyCmdlineDefines(opts.Predefines, nil)
	macros.ApplyCmdlineDefines(opts.Defines, opts.Undefines)

	resolver := NewIncludeResolver()
	for _, p := range opts.IncludePaths {
		resolver.AddUserPath(p)
	}
	for _, p := range opts.SystemPaths {
		resolver.AddSystemPath(p)
	}

	p := &Preprocessor{
		macros:        macros,
		conditional:   NewConditionalProcessor(macros),
		expander:      NewExpander(macros),
		resolver:      resolver,
		opts:          opts,
		includeGuards: make(map[string]string),
		systemFiles:   make(map[string]bool),
	}
	p.conditional.HasInclude = p.hasInclude
	return p
}

// PreprocessFile preprocesses a file and returns the result.
func (p *Preprocessor) PreprocessFile(filename string) (string, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		absPath = filename
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}

	p.resolver.SetCurrentFile(absPath)
	if err := p.resolver.PushFile(absPath); err != nil {
		return "", err
	}
	defer p.resolver.PopFile()

	system := p.resolver.IsSystemFile(absPath)
	if system {
		p.systemFiles[absPath] = true
	}
	return p.preprocessContent(string(content), absPath, "", system)
}

// PreprocessString preprocesses a string with a given filename for error messages.
func (p *Preprocessor) PreprocessString(source, filename string) (string, error) {
	if filename != "" && p.resolver.CurrentDir == "" {
		p.resolver.SetCurrentFile(filename)
	}
	return p.preprocessContent(source, filename, "", false)
}

// lineSync keeps the output line count aligned with the source file.
type lineSync struct {
	file   string
	system bool
	next   int // presumed line the next output line belongs to
	delta  int // #line adjustment from physical to presumed lines
}

func (s *lineSync) marker(out *strings.Builder, line int, flags string) {
	fmt.Fprintf(out, "# %d %q", line, s.file)
	if flags != "" {
		out.WriteString(" " + flags)
	}
	if s.system && !strings.Contains(flags, "3") {
		out.WriteString(" 3")
	}
	out.WriteString("\n")
	s.next = line
}

func (s *lineSync) moveTo(out *strings.Builder, line int) {
	line += s.delta
	gap := line - s.next
	switch {
	case gap == 0:
	case gap > 0 && gap <= maxLineGap:
		out.WriteString(strings.Repeat("\n", gap))
	default:
		s.marker(out, line, "")
	}
	s.next = line
}

// preprocessContent is the main preprocessing loop. enterFlags is written on
// the opening marker ("1" when entering an included file).
func (p *Preprocessor) preprocessContent(source, filename, enterFlags string, system bool) (string, error) {
	lex := NewLexer(source, filename)
	var output strings.Builder
	sync := &lineSync{file: filename, system: system, next: 1}
	startDepth := p.conditional.Depth()

	if p.opts.LineMarkers {
		sync.marker(&output, 1, enterFlags)
	}

	var line, pending []Token
	emit := func(tokens []Token) error {
		text, err := p.expandText(tokens, filename)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", filename, tokens[0].Loc.Line, err)
		}
		if p.opts.LineMarkers {
			sync.moveTo(&output, tokens[0].Loc.Line)
			sync.next++
		}
		output.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			output.WriteString("\n")
		}
		return nil
	}

	flushLine := func() error {
		defer func() { line = nil }()
		if isDirectiveLine(line) {
			result, err := p.processLine(line, filename, sync)
			if err != nil {
				return fmt.Errorf("%s:%d: %w", filename, line[0].Loc.Line, err)
			}
			if result != "" {
				if p.opts.LineMarkers && !strings.HasPrefix(result, "# ") {
					sync.moveTo(&output, line[0].Loc.Line)
					sync.next++
				}
				output.WriteString(result)
			}
			return nil
		}
		if !p.conditional.IsActive() {
			return nil
		}
		pending = append(pending, line...)
		if p.invocationOpen(pending) {
			return nil
		}
		tokens := pending
		pending = nil
		if blankLine(tokens) {
			return nil
		}
		return emit(joinLines(tokens))
	}

	for {
		tok := lex.NextToken()
		if tok.Type == PP_EOF {
			if len(line) > 0 {
				if err := flushLine(); err != nil {
					return "", err
				}
			}
			if len(pending) > 0 && !blankLine(pending) {
				if err := emit(joinLines(pending)); err != nil {
					return "", err
				}
			}
			break
		}
		line = append(line, tok)
		if tok.Type == PP_NEWLINE {
			if err := flushLine(); err != nil {
				return "", err
			}
		}
	}

	if p.conditional.Depth() != startDepth {
		return "", fmt.Errorf("%s: unterminated conditional directive, %d level(s) unclosed",
			filename, p.conditional.Depth()-startDepth)
	}

	return output.String(), nil
}

func isDirectiveLine(tokens []Token) bool {
	for _, tok := range tokens {
		if tok.Type == PP_WHITESPACE {
			continue
		}
		return tok.Type == PP_HASH
	}
	return false
}

func blankLine(tokens []Token) bool {
	for _, tok := range tokens {
		if tok.Type != PP_WHITESPACE && tok.Type != PP_NEWLINE {
			return false
		}
	}
	return true
}

// joinLines turns the inner newlines of a multi-line invocation into spaces.
func joinLines(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	copy(out, tokens)
	for i := 0; i < len(out)-1; i++ {
		if out[i].Type == PP_NEWLINE {
			out[i] = Token{Type: PP_WHITESPACE, Text: " ", Loc: out[i].Loc}
		}
	}
	return out
}

// invocationOpen reports whether tokens end inside the argument list of a
// function-like macro, which continues on the next line.
func (p *Preprocessor) invocationOpen(tokens []Token) bool {
	depth := 0
	inCall := false
	for i, tok := range tokens {
		switch {
		case tok.Type == PP_IDENTIFIER && depth == 0:
			if m := p.macros.Lookup(tok.Text); m != nil && m.IsFunctionLike() && nextIsParen(tokens, i+1) {
				inCall = true
			}
		case tok.Type == PP_PUNCTUATOR && tok.Text == "(":
			if inCall || depth > 0 {
				depth++
			}
		case tok.Type == PP_PUNCTUATOR && tok.Text == ")":
			if depth > 0 {
				depth--
				if depth == 0 {
					inCall = false
				}
			}
		}
	}
	return depth > 0
}

func nextIsParen(tokens []Token, i int) bool {
	for ; i < len(tokens); i++ {
		switch tokens[i].Type {
		case PP_WHITESPACE, PP_NEWLINE:
			continue
		case PP_PUNCTUATOR:
			return tokens[i].Text == "("
		default:
			return false
		}
	}
	return false
}

func (p *Preprocessor) expandText(tokens []Token, filename string) (string, error) {
	expanded, err := p.expander.ExpandAt(tokens, SourceLoc{File: filename, Line: tokens[0].Loc.Line})
	if err != nil {
		return "", err
	}
	return TokensToString(expanded), nil
}

// processLine processes a single directive line.
func (p *Preprocessor) processLine(tokens []Token, filename string, sync *lineSync) (string, error) {
	firstNonWS := 0
	for firstNonWS < len(tokens) && tokens[firstNonWS].Type == PP_WHITESPACE {
		firstNonWS++
	}
	if firstNonWS < len(tokens) && tokens[firstNonWS].Type == PP_HASH {
		return p.processDirective(tokens[firstNonWS:], filename, sync)
	}
	return "", nil
}

// processDirective handles a preprocessing directive.
func (p *Preprocessor) processDirective(tokens []Token, filename string, sync *lineSync) (string, error) {
	if len(tokens) == 0 {
		return "", nil
	}

	loc := tokens[0].Loc
	dir, err := ParseDirectiveFromTokens(tokens[1:], loc)
	if err != nil {
		// In inactive blocks, silently ignore unknown directives
		if !p.conditional.IsActive() {
			return "", nil
		}
		return "", err
	}

	// Handle conditional directives even in inactive blocks
	switch dir.Type {
	case DIR_IF:
		return "", p.conditional.ProcessIf(dir.Expression)
	case DIR_IFDEF:
		return "", p.conditional.ProcessIfdef(dir.Identifier)
	case DIR_IFNDEF:
		return "", p.conditional.ProcessIfndef(dir.Identifier)
	case DIR_ELIF:
		return "", p.conditional.ProcessElif(dir.Expression)
	case DIR_ELSE:
		return "", p.conditional.ProcessElse()
	case DIR_ENDIF:
		return "", p.conditional.ProcessEndif()
	}

	if !p.conditional.IsActive() {
		return "", nil
	}

	switch dir.Type {
	case DIR_INCLUDE, DIR_INCLUDE_NEXT, DIR_IMPORT:
		return p.processInclude(dir, filename, sync)
	case DIR_DEFINE:
		return "", p.macros.DefineFromDirective(dir)
	case DIR_UNDEF:
		p.macros.Undefine(dir.Identifier)
		return "", nil
	case DIR_LINE, DIR_LINEMARKER:
		if dir.FileName != "" {
			sync.file = dir.FileName
		}
		sync.delta = dir.LineNum - (loc.Line + 1)
		if !p.opts.LineMarkers {
			return "", nil
		}
		var out strings.Builder
		sync.marker(&out, dir.LineNum, "")
		return out.String(), nil
	case DIR_ERROR:
		return "", fmt.Errorf("#error %s", dir.Message)
	case DIR_WARNING:
		p.diagnostics = append(p.diagnostics, Diagnostic{Loc: loc, Message: dir.Message})
		return "", nil
	case DIR_PRAGMA:
		return p.processPragma(dir, filename)
	case DIR_EMPTY, DIR_IGNORED:
		return "", nil
	default:
		return "", fmt.Errorf("unhandled directive type: %v", dir.Type)
	}
}

// headerOperand returns the include operand with delimiters, expanding macros
// for the computed form.
func (p *Preprocessor) headerOperand(dir *Directive) (string, error) {
	headerName := dir.HeaderName
	if headerName == "" && len(dir.Expression) > 0 {
		expanded, err := p.expander.Expand(dir.Expression)
		if err != nil {
			return "", fmt.Errorf("expanding include: %w", err)
		}
		headerName = strings.TrimSpace(TokensToString(expanded))
		if strings.HasPrefix(headerName, "<") && strings.HasSuffix(headerName, ">") {
			headerName = "<" + strings.ReplaceAll(headerName[1:len(headerName)-1], " ", "") + ">"
		}
	}
	if headerName == "" {
		return "", fmt.Errorf("empty include file name")
	}
	return headerName, nil
}

func splitHeaderName(headerName string) (string, IncludeKind) {
	switch {
	case strings.HasPrefix(headerName, "<") && strings.HasSuffix(headerName, ">"):
		return headerName[1 : len(headerName)-1], IncludeAngled
	case strings.HasPrefix(headerName, "\"") && strings.HasSuffix(headerName, "\""):
		return headerName[1 : len(headerName)-1], IncludeQuoted
	default:
		return headerName, IncludeQuoted
	}
}

// processInclude handles #include, #include_next and #import.
func (p *Preprocessor) processInclude(dir *Directive, currentFile string, sync *lineSync) (string, error) {
	headerName, err := p.headerOperand(dir)
	if err != nil {
		return "", err
	}
	fileName, kind := splitHeaderName(headerName)

	p.resolver.SetCurrentFile(currentFile)
	res, err := p.resolver.Lookup(fileName, kind, dir.Type == DIR_INCLUDE_NEXT)
	if err != nil {
		return "", fmt.Errorf("#include %s: %w", headerName, err)
	}
	includePath := res.Path
	system := res.System || p.systemFiles[currentFile]

	p.inclusions = append(p.inclusions, Inclusion{
		From:    currentFile,
		Line:    dir.Loc.Line,
		Spelled: headerName,
		Path:    includePath,
		Angled:  kind == IncludeAngled,
		System:  system,
	})

	if p.resolver.IsAlreadyIncluded(includePath) {
		return "", nil
	}
	if guardMacro, ok := p.includeGuards[includePath]; ok && p.macros.IsDefined(guardMacro) {
		return "", nil
	}
	if dir.Type == DIR_IMPORT {
		p.resolver.MarkPragmaOnce(includePath)
	}

	if p.resolver.IncludeDepth() >= MaxIncludeDepth {
		return "", fmt.Errorf("#include nested too deeply")
	}
	if err := p.resolver.PushFile(includePath); err != nil {
		return "", err
	}
	defer p.resolver.PopFile()

	content, err := os.ReadFile(includePath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", includePath, err)
	}

	if guardMacro := p.detectIncludeGuard(string(content), includePath); guardMacro != "" {
		p.includeGuards[includePath] = guardMacro
	}
	if system {
		p.systemFiles[includePath] = true
	}

	var output strings.Builder
	oldDir := p.resolver.CurrentDir
	p.resolver.SetCurrentFile(includePath)

	result, err := p.preprocessContent(string(content), includePath, "1", system)
	p.resolver.CurrentDir = oldDir
	if err != nil {
		return "", fmt.Errorf("in %s: %w", includePath, err)
	}
	output.WriteString(result)

	if p.opts.LineMarkers {
		sync.marker(&output, dir.Loc.Line+1+sync.delta, "2")
	}
	return output.String(), nil
}

// hasInclude answers __has_include and __has_include_next.
func (p *Preprocessor) hasInclude(headerName string, next bool) bool {
	fileName, kind := splitHeaderName(headerName)
	_, err := p.resolver.Lookup(fileName, kind, next)
	return err == nil
}

// detectIncludeGuard checks if a file has an include guard pattern.
// Returns the guard macro name if found, empty string otherwise.
func (p *Preprocessor) detectIncludeGuard(content, filename string) string {
	lex := NewLexer(content, filename)

	var tokens []Token
	for {
		tok := lex.NextToken()
		if tok.Type == PP_EOF {
			break
		}
		if tok.Type != PP_WHITESPACE && tok.Type != PP_NEWLINE {
			tokens = append(tokens, tok)
		}
		if len(tokens) > 10 {
			break
		}
	}

	if len(tokens) < 6 {
		return ""
	}
	if tokens[0].Type != PP_HASH || tokens[3].Type != PP_HASH || tokens[4].Text != "define" {
		return ""
	}

	// #ifndef GUARD / #define GUARD
	if tokens[1].Text == "ifndef" && tokens[2].Type == PP_IDENTIFIER && tokens[5].Text == tokens[2].Text {
		return tokens[2].Text
	}
	return ""
}

// processPragma handles #pragma directives.
func (p *Preprocessor) processPragma(dir *Directive, filename string) (string, error) {
	if len(dir.PragmaTokens) == 0 {
		return "", nil
	}

	if dir.PragmaTokens[0].Type == PP_IDENTIFIER && dir.PragmaTokens[0].Text == "once" {
		p.resolver.MarkPragmaOnce(filename)
		return "", nil
	}

	// Pass through other pragmas; #pragma pack is consumed by the parser.
	var sb strings.Builder
	sb.WriteString("#pragma ")
	sb.WriteString(TokensToString(dir.PragmaTokens))
	sb.WriteString("\n")
	return sb.String(), nil
}

// GetMacros returns the macro table for inspection.
func (p *Preprocessor) GetMacros() *MacroTable {
	return p.macros
}

// Inclusions returns every #include executed, in order.
func (p *Preprocessor) Inclusions() []Inclusion {
	return p.inclusions
}

// Diagnostics returns the #warning messages seen.
func (p *Preprocessor) Diagnostics() []Diagnostic {
	return p.diagnostics
}

// IsSystemFile reports whether path was entered as a system header.
func (p *Preprocessor) IsSystemFile(path string) bool {
	return p.systemFiles[path] || p.resolver.IsSystemFile(path)
}

// SetLineMarkers enables or disables line marker output.
func (p *Preprocessor) SetLineMarkers(enabled bool) {
	p.opts.LineMarkers = enabled
}
