// Package explore walks the declarations a C header exports and resolves
// every type they reach into the binding AST.
package explore

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
	"github.com/raymyers/ralph-bindgen/pkg/logger"
	"github.com/raymyers/ralph-bindgen/pkg/macro"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// Request describes one exploration.
type Request struct {
	HeaderPath string
	Platform   platform.TargetPlatform
	Options    Options
	Parse      ParseOptions
}

// Explorer produces binding documents. One Explorer can serve concurrent
// requests; each request gets its own session.
type Explorer struct {
	parser cindex.Parser
	log    *logger.Logger
	macros *macro.Scanner
}

func New(parser cindex.Parser, log *logger.Logger) *Explorer {
	if log == nil {
		log = logger.Discard()
	}
	return &Explorer{parser: parser, log: log.WithComponent("explore"), macros: macro.NewScanner()}
}

// AbstractSyntaxTree parses the header for the requested platform and
// explores it. No document is returned when any step fails.
func (e *Explorer) AbstractSyntaxTree(ctx context.Context, req Request) (*cast.AbstractSyntaxTree, error) {
	log := e.log.WithPlatform(req.Platform.Triple).WithFile(req.HeaderPath)
	s := newSession(ctx, log, e.macros, req)
	s.parser = e.parser
	defer s.close()

	args := Arguments(req.Platform, req.Parse)
	tu, err := s.parseFile(req.HeaderPath, args)
	if err != nil {
		return nil, err
	}
	s.pointerSize = tu.PointerWidth() / 8

	if err := s.visitTranslationUnit(tu, args); err != nil {
		return nil, err
	}
	if err := s.drain(); err != nil {
		return nil, err
	}
	return s.assemble(s.rewritePath(tu.Spelling()), req.Platform.Triple, tu.TargetTriple())
}

func (s *session) parseFile(path string, args []string) (cindex.TranslationUnit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, apperrors.IOError("resolving "+path, err)
	}
	s.parsedFiles[abs] = true
	tu, err := s.parser.Parse(s.ctx, abs, args)
	if err != nil {
		return nil, err
	}
	s.units = append(s.units, tu)
	return tu, nil
}

func (s *session) close() {
	for _, tu := range s.units {
		if err := tu.Close(); err != nil {
			s.log.Warn("Closing translation unit failed", "unit", tu.Spelling(), "error", err)
		}
	}
	s.units = nil
}

// visitTranslationUnit seeds the frontiers from the top-level declarations
// of tu, then scans the headers it includes.
func (s *session) visitTranslationUnit(tu cindex.TranslationUnit, args []string) error {
	s.unit = tu
	s.log.Info("Visiting translation unit", "unit", tu.Spelling())

	var includes []cindex.Cursor
	defined := make(map[string]cindex.Cursor)
	for _, c := range tu.Cursor().Children() {
		switch c.Kind() {
		case cindex.CursorInclusionDirective:
			includes = append(includes, c)
			continue
		case cindex.CursorMacroDefinition:
			defined[c.Spelling()] = c
			continue
		}
		if err := s.visitTopLevel(c); err != nil {
			return err
		}
	}
	if s.opts.IsEnabledMacroObjects {
		if err := s.visitMacroCandidates(tu.Spelling(), defined); err != nil {
			return err
		}
	}
	s.log.Info("Visited translation unit", "unit", tu.Spelling())

	if s.parse.IsEnabledSingleHeader {
		return nil
	}
	for _, inc := range includes {
		if err := s.visitInclude(inc, args); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) visitInclude(inc cindex.Cursor, args []string) error {
	path := inc.IncludedFile()
	if path == "" {
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if s.parsedFiles[path] {
		return nil
	}
	if !s.opts.IsEnabledSystemDeclarations && (inc.Location().IsSystem || s.isSystemPath(path)) {
		return nil
	}
	tu, err := s.parseFile(path, args)
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.Warn("Skipping included header", "include", path, "error", err)
		return nil
	}
	parent := s.unit
	defer func() { s.unit = parent }()
	return s.visitTranslationUnit(tu, args)
}

func (s *session) isSystemPath(path string) bool {
	for _, dir := range s.parse.SystemIncludeDirectories {
		if abs, err := filepath.Abs(dir); err == nil && strings.HasPrefix(path, abs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// visitTopLevel queues an exported declaration.
func (s *session) visitTopLevel(c cindex.Cursor) error {
	switch c.Kind() {
	case cindex.CursorFunctionDecl, cindex.CursorVarDecl, cindex.CursorEnumDecl,
		cindex.CursorTypedefDecl:
	default:
		return nil
	}
	loc := c.Location()
	if !s.opts.IsEnabledSystemDeclarations && loc.IsSystem {
		return nil
	}
	if s.isHeaderBlocked(loc.File) {
		return nil
	}
	name := c.Spelling()
	if !s.isNameAllowed(name) {
		return nil
	}

	switch c.Kind() {
	case cindex.CursorFunctionDecl:
		if c.Linkage() != cindex.LinkageExternal {
			return nil
		}
		t := c.Type()
		if t.Kind() == cindex.TypeAttributed {
			t = t.Modified()
		}
		if !isFunction(t) {
			t = t.Canonical()
		}
		s.enqueue(s.newInfoNode(cast.KindFunction, name, c, t, nil, nil, 0))

	case cindex.CursorVarDecl:
		if c.Linkage() != cindex.LinkageExternal {
			return nil
		}
		s.enqueue(s.newInfoNode(cast.KindVariable, name, c, c.Type(), nil, nil, 0))

	case cindex.CursorEnumDecl:
		return s.visitEnum(c)

	case cindex.CursorTypedefDecl:
		_, err := s.VisitType(c.Type(), nil, 0)
		return err

	}
	return nil
}

// visitEnum queues a named enum when dangling enums are wanted. An
// anonymous enum whose constants share a prefix is named by the prefix;
// otherwise its constants are queued one by one.
func (s *session) visitEnum(c cindex.Cursor) error {
	if !c.IsAnonymous() {
		if !s.opts.IsEnabledEnumsDangling {
			return nil
		}
		_, err := s.VisitType(c.Type(), nil, 0)
		return err
	}

	enum := s.newInfoNode(cast.KindEnum, commonPrefix(enumConstantNames(c)), c, c.Type(), c.Type(), nil, 0)
	if enum.name != "" {
		s.enqueue(enum)
		return nil
	}
	integer := c.EnumIntegerType()
	for _, constant := range c.Children() {
		if constant.Kind() != cindex.CursorEnumConstantDecl {
			continue
		}
		s.enqueue(s.newInfoNode(cast.KindEnumConstant, constant.Spelling(), constant, integer, integer, enum, 0))
	}
	return nil
}

// drain explores the frontiers in order: macros, variables, functions,
// then types until no type is left.
func (s *session) drain() error {
	for _, q := range []struct {
		name  string
		queue *[]*infoNode
	}{
		{"macro objects", &s.macroQueue},
		{"variables", &s.variableQueue},
		{"functions", &s.functionQueue},
		{"types", &s.typeQueue},
	} {
		if len(*q.queue) == 0 {
			continue
		}
		s.log.Info("Exploring "+q.name, "count", len(*q.queue), "names", queueNames(*q.queue))
		var found []string
		for len(*q.queue) > 0 {
			if err := s.ctx.Err(); err != nil {
				return err
			}
			info := (*q.queue)[0]
			*q.queue = (*q.queue)[1:]
			node, err := s.visit(info)
			if err != nil {
				return err
			}
			if node != nil {
				s.found = append(s.found, node)
				found = append(found, node.NodeName())
			}
		}
		s.log.Info("Found "+q.name, "count", len(found), "names", strings.Join(found, ", "))
	}
	return nil
}

func queueNames(queue []*infoNode) string {
	names := make([]string, len(queue))
	for i, info := range queue {
		names[i] = info.name
	}
	return strings.Join(names, ", ")
}

// assemble sorts the found nodes by name and builds the document. Pointer,
// array and primitive nodes are not part of it.
func (s *session) assemble(fileName, requested, actual string) (*cast.AbstractSyntaxTree, error) {
	nodes := slices.Clone(s.found)
	slices.SortStableFunc(nodes, func(a, b cast.Node) int {
		return strings.Compare(a.NodeName(), b.NodeName())
	})
	doc := cast.NewAbstractSyntaxTree(fileName, requested, actual)
	for _, n := range nodes {
		switch n.NodeKind() {
		case cast.KindPointer, cast.KindArray, cast.KindPrimitive:
			continue
		}
		if err := doc.Add(n); err != nil {
			return nil, apperrors.Unreachable("%v", err)
		}
		s.log.Info("Found "+n.NodeKind().String(), "name", n.NodeName(), "location", n.NodeLocation().String())
	}
	return doc, nil
}
