package explore

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/logger"
	"github.com/raymyers/ralph-bindgen/pkg/macro"
)

// infoNode is a candidate waiting in a frontier.
type infoNode struct {
	kind       cast.Kind
	name       string
	cursor     cindex.Cursor
	typ        cindex.Type
	location   cast.Location
	parent     *infoNode
	fieldIndex int
	sizeOf     int
	alignOf    *int
	// unit is the translation unit the candidate was found in; macros are
	// evaluated in it.
	unit cindex.TranslationUnit
	// inner is the resolved underlying type of an alias.
	inner *cast.TypeInfo
	// define is the source definition of a macro object.
	define macro.Definition
}

type visitKey struct {
	kind cast.Kind
	name string
}

// session is the state of one exploration. It is not safe for concurrent
// use.
type session struct {
	ctx         context.Context
	log         *logger.Logger
	opts        Options
	parse       ParseOptions
	parser      cindex.Parser
	macros      *macro.Scanner
	pointerSize int
	unit        cindex.TranslationUnit

	// includeDirs are stripped from locations, longest first.
	includeDirs []string
	opaque      map[string]bool

	macroQueue    []*infoNode
	variableQueue []*infoNode
	functionQueue []*infoNode
	typeQueue     []*infoNode

	enqueued       map[visitKey]bool
	visited        map[visitKey]bool
	fnPointerNames map[string]string
	found          []cast.Node

	units       []cindex.TranslationUnit
	parsedFiles map[string]bool
}

func newSession(ctx context.Context, log *logger.Logger, macros *macro.Scanner, req Request) *session {
	s := &session{
		ctx:            ctx,
		log:            log,
		opts:           req.Options,
		parse:          req.Parse,
		macros:         macros,
		opaque:         make(map[string]bool),
		enqueued:       make(map[visitKey]bool),
		visited:        make(map[visitKey]bool),
		fnPointerNames: make(map[string]string),
		parsedFiles:    make(map[string]bool),
	}
	for _, name := range req.Options.OpaqueTypeNames {
		s.opaque[name] = true
	}
	dirs := append([]string(nil), req.Parse.UserIncludeDirectories...)
	if abs, err := filepath.Abs(req.HeaderPath); err == nil {
		dirs = append(dirs, filepath.Dir(abs))
	}
	for _, dir := range dirs {
		if abs, err := filepath.Abs(dir); err == nil {
			s.includeDirs = append(s.includeDirs, abs)
		}
	}
	slices.SortStableFunc(s.includeDirs, func(a, b string) int { return len(b) - len(a) })
	return s
}

// location maps a cursor to a document location. Translation units,
// primitives and indirections have none.
func (s *session) location(cursor cindex.Cursor, t cindex.Type) cast.Location {
	if cursor != nil && cursor.Kind() == cindex.CursorTranslationUnit {
		return cast.NoLocation
	}
	if t != nil {
		k := t.Kind()
		switch {
		case isFunction(t):
			if cursor == nil || cursor.Kind() != cindex.CursorFunctionDecl {
				return cast.NoLocation
			}
		case k == cindex.TypePointer, k == cindex.TypeConstantArray, k == cindex.TypeIncompleteArray:
			return cast.NoLocation
		case k.IsPrimitive():
			return cast.NoLocation
		}
	}
	if cursor == nil {
		return cast.NoLocation
	}

	loc := cursor.Location()
	file := loc.File
	if file == "" && s.unit != nil {
		file = s.unit.Spelling()
	}
	if file == "" {
		return cast.NoLocation
	}
	return cast.Location{
		FileName: filepath.Base(file),
		FilePath: s.rewritePath(file),
		Line:     loc.Line,
		Column:   loc.Column,
	}
}

func (s *session) rewritePath(path string) string {
	path = filepath.Clean(path)
	for _, lp := range s.parse.LinkedPaths {
		if lp.From != "" && strings.HasPrefix(path, lp.From) {
			path = filepath.Clean(lp.To + path[len(lp.From):])
			break
		}
	}
	if s.opts.IsEnabledLocationFullPaths {
		return path
	}
	for _, dir := range s.includeDirs {
		if rel, ok := strings.CutPrefix(path, dir); ok && (rel == "" || rel[0] == '/' || rel[0] == '\\') {
			return strings.Trim(rel, `/\`)
		}
	}
	return path
}

// newInfoNode builds a candidate. Size and alignment come from container,
// the type as written at the use site.
func (s *session) newInfoNode(kind cast.Kind, name string, cursor cindex.Cursor, t, container cindex.Type, parent *infoNode, fieldIndex int) *infoNode {
	info := &infoNode{
		kind:       kind,
		name:       name,
		cursor:     cursor,
		typ:        t,
		parent:     parent,
		fieldIndex: fieldIndex,
		unit:       s.unit,
	}
	info.location = s.location(cursor, t)
	if info.location.IsNull() && parent != nil && parent.kind == cast.KindTypeAlias {
		info.location = parent.location
	}
	if container != nil {
		info.sizeOf = s.sizeOf(kind, container)
		info.alignOf = s.alignOf(kind, container)
	}
	return info
}

// VisitType resolves t used under parent and enqueues what it names.
func (s *session) VisitType(t cindex.Type, parent *infoNode, fieldIndex int) (*cast.TypeInfo, error) {
	return s.visitType(t, parent, fieldIndex, true)
}

// visitType resolves a type to its document form. With enqueue unset only
// the type info is built; nothing is added to the frontiers. A nil result
// means the type lives in a blocked header and the use should be dropped.
func (s *session) visitType(t cindex.Type, parent *infoNode, fieldIndex int, enqueue bool) (*cast.TypeInfo, error) {
	if t.Kind() == cindex.TypeUnexposed && strings.Contains(t.Spelling(), "va_list") {
		vp := cast.VoidPointer(s.pointerSize)
		return &vp, nil
	}

	parentKind := cast.KindUnknown
	if parent != nil {
		parentKind = parent.kind
	}
	kind, typ, err := classify(t, parentKind)
	if err != nil {
		return nil, err
	}
	name, err := s.typeName(kind, typ, parent, fieldIndex)
	if err != nil {
		return nil, err
	}
	info := s.newInfoNode(kind, name, typ.Declaration(), typ, t, parent, fieldIndex)

	if s.isBlocked(info) {
		return s.typeInfoBlocked(info, enqueue)
	}

	switch kind {
	case cast.KindStruct, cast.KindUnion, cast.KindTypeAlias, cast.KindOpaqueType:
		if s.opaque[name] {
			info.kind = cast.KindOpaqueType
			if enqueue {
				s.enqueue(info)
			}
			return &cast.TypeInfo{Name: name, Kind: cast.KindOpaqueType, Location: info.location}, nil
		}
	}
	if kind == cast.KindTypeAlias {
		return s.visitAlias(info, t, enqueue)
	}

	if enqueue {
		s.enqueue(info)
	}
	return s.createTypeInfo(info, t)
}

// visitAlias resolves a typedef. An alias naming its own target collapses
// into it, and an alias of a pointer to an opaque type becomes opaque.
func (s *session) visitAlias(info *infoNode, container cindex.Type, enqueue bool) (*cast.TypeInfo, error) {
	underlying := info.cursor.TypedefUnderlyingType()
	inner, err := s.visitType(underlying, info, 0, false)
	if err != nil || inner == nil {
		return nil, err
	}

	if inner.Kind == cast.KindPointer && inner.InnerType != nil && inner.InnerType.Kind == cast.KindOpaqueType {
		info.kind = cast.KindOpaqueType
		if enqueue {
			s.enqueue(info)
		}
		return &cast.TypeInfo{
			Name:      info.name,
			Kind:      cast.KindOpaqueType,
			SizeOf:    s.pointerSize,
			AlignOf:   s.pointerAlign(),
			Location:  info.location,
			InnerType: inner,
		}, nil
	}

	if enqueue {
		if inner, err = s.visitType(underlying, info, 0, true); err != nil || inner == nil {
			return nil, err
		}
	}
	if inner.Name == info.name {
		return inner, nil
	}
	info.inner = inner
	if enqueue {
		s.enqueue(info)
	}
	return &cast.TypeInfo{
		Name:      info.name,
		Kind:      cast.KindTypeAlias,
		SizeOf:    info.sizeOf,
		AlignOf:   info.alignOf,
		Location:  info.location,
		IsConst:   container.IsConst(),
		InnerType: inner,
	}, nil
}

// typeInfoBlocked resolves a use of a blocked type. Aliases are seen
// through; anything else drops the use.
func (s *session) typeInfoBlocked(info *infoNode, enqueue bool) (*cast.TypeInfo, error) {
	if info.parent == nil {
		return nil, nil
	}
	if info.kind == cast.KindTypeAlias && info.cursor != nil {
		return s.visitType(info.cursor.TypedefUnderlyingType(), info.parent, info.fieldIndex, enqueue)
	}
	return nil, nil
}

func (s *session) createTypeInfo(info *infoNode, container cindex.Type) (*cast.TypeInfo, error) {
	ti := &cast.TypeInfo{
		Name:     info.name,
		Kind:     info.kind,
		SizeOf:   info.sizeOf,
		AlignOf:  info.alignOf,
		Location: info.location,
		IsConst:  container.IsConst(),
	}
	if info.cursor != nil {
		ti.IsAnonymous = info.cursor.IsAnonymous()
	}

	t := info.typ
	for t.Kind() == cindex.TypeAttributed {
		t = t.Modified()
	}
	switch info.kind {
	case cast.KindArray:
		if n := t.ArraySize(); n >= 0 {
			size := int(n)
			ti.ArraySize = &size
		}
		elem := t.Element()
		if es := elem.SizeOf(); es >= 0 {
			size := int(es)
			ti.ElementSize = &size
		}
		inner, err := s.visitType(elem, info, 0, false)
		if err != nil {
			return nil, err
		}
		ti.InnerType = inner
	case cast.KindPointer:
		inner, err := s.visitType(t.Pointee(), info, 0, false)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			vp := cast.VoidPointer(s.pointerSize)
			return &vp, nil
		}
		ti.InnerType = inner
	}
	return ti, nil
}

// isBlocked reports a candidate declared in a blocked header, or in a
// system header while system declarations are disabled.
func (s *session) isBlocked(info *infoNode) bool {
	switch info.kind {
	case cast.KindPrimitive, cast.KindPointer, cast.KindArray:
		return false
	}
	if info.cursor == nil {
		return false
	}
	if s.isHeaderBlocked(info.cursor.Location().File) {
		return true
	}
	return !s.opts.IsEnabledSystemDeclarations && info.cursor.Location().IsSystem
}

func (s *session) isHeaderBlocked(file string) bool {
	if file == "" {
		return false
	}
	file = filepath.ToSlash(filepath.Clean(file))
	for _, blocked := range s.opts.HeaderFilesBlocked {
		blocked = filepath.ToSlash(blocked)
		if file == blocked || strings.HasSuffix(file, "/"+blocked) {
			return true
		}
	}
	return false
}

func (s *session) isNameAllowed(name string) bool {
	return s.opts.IsEnabledAllowNamesWithPrefixedUnderscore || !strings.HasPrefix(name, "_")
}

// canVisit applies the options that gate a candidate before it is queued.
func (s *session) canVisit(info *infoNode) bool {
	if s.visited[visitKey{info.kind, info.name}] {
		return false
	}
	switch info.kind {
	case cast.KindFunction:
		return s.opts.IsEnabledFunctions &&
			(len(s.opts.FunctionNamesAllowed) == 0 || slices.Contains(s.opts.FunctionNamesAllowed, info.name))
	case cast.KindVariable:
		return s.opts.IsEnabledVariables
	case cast.KindMacroObject:
		return s.opts.IsEnabledMacroObjects
	case cast.KindEnumConstant:
		return s.opts.IsEnabledEnumConstants &&
			(len(s.opts.EnumConstantNamesAllowed) == 0 || slices.Contains(s.opts.EnumConstantNamesAllowed, info.name))
	}
	return true
}

func (s *session) enqueue(info *infoNode) {
	key := visitKey{info.kind, info.name}
	if s.enqueued[key] || !s.canVisit(info) {
		return
	}
	s.enqueued[key] = true
	switch info.kind {
	case cast.KindMacroObject:
		s.macroQueue = append(s.macroQueue, info)
	case cast.KindVariable:
		s.variableQueue = append(s.variableQueue, info)
	case cast.KindFunction:
		s.functionQueue = append(s.functionQueue, info)
	default:
		s.typeQueue = append(s.typeQueue, info)
	}
	s.log.Debug("Enqueued", "kind", info.kind.String(), "name", info.name)
}
