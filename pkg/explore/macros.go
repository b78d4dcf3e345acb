package explore

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
)

// isMacroCandidate filters the macros a unit defines before their source
// definitions are queued.
func isMacroCandidate(c cindex.Cursor) bool {
	if c.IsMacroBuiltin() || c.IsMacroFunctionLike() {
		return false
	}
	name := c.Spelling()
	switch {
	case strings.HasPrefix(name, "_"),
		strings.HasSuffix(name, "API_DECL"),
		strings.HasPrefix(name, "PINVOKE_TARGET_"):
		return false
	}
	return true
}

// visitMacroCandidates queues the object-like macros written in the source
// of file, in source order. In single-header mode every other file the unit
// defines macros in is scanned as well. A scanned definition is only a
// candidate while the preprocessed unit still defines its name; when the
// unit keeps a later definition from the same file, that one is used.
func (s *session) visitMacroCandidates(file string, defined map[string]cindex.Cursor) error {
	files := []string{filepath.Clean(file)}
	if s.parse.IsEnabledSingleHeader {
		files = append(files, s.macroFiles(defined, files[0])...)
	}
	for _, path := range files {
		if s.isHeaderBlocked(path) {
			continue
		}
		defs, err := s.macros.Definitions(s.ctx, path)
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.log.Debug("Macro source is unavailable", "file", path, "error", err)
			continue
		}
		for _, def := range defs {
			c, ok := defined[def.Name]
			if !ok || !isMacroCandidate(c) || !s.isNameAllowed(def.Name) {
				continue
			}
			loc := c.Location()
			sameFile := filepath.Clean(loc.File) == path
			if sameFile && loc.Line != def.Line {
				continue
			}
			info := s.newInfoNode(cast.KindMacroObject, def.Name, c, nil, nil, nil, 0)
			if !sameFile {
				info.location = cast.Location{
					FileName: filepath.Base(path),
					FilePath: s.rewritePath(path),
					Line:     def.Line,
					Column:   def.Column,
				}
			}
			info.define = def
			s.enqueue(info)
		}
	}
	return nil
}

// macroFiles lists the other files holding definitions of defined, sorted.
// System headers are left out unless system declarations are wanted.
func (s *session) macroFiles(defined map[string]cindex.Cursor, primary string) []string {
	seen := map[string]bool{primary: true}
	var files []string
	for _, c := range defined {
		loc := c.Location()
		if loc.File == "" || (loc.IsSystem && !s.opts.IsEnabledSystemDeclarations) {
			continue
		}
		path := filepath.Clean(loc.File)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	slices.Sort(files)
	return files
}

// exploreMacroObject evaluates an object-like macro. Macros that are only
// flags or do not evaluate to a constant are dropped.
func (s *session) exploreMacroObject(info *infoNode) (cast.Node, error) {
	log := s.log.With("macro", info.name)
	if info.define.IsFlag() {
		return nil, nil
	}

	res, err := info.unit.EvaluateMacro(info.name)
	if err != nil {
		log.Debug("Macro does not evaluate to a constant", "error", err)
		return nil, nil
	}
	m := &cast.MacroObject{Name: info.name, Location: info.location, TypeName: res.TypeName}
	switch res.Kind {
	case cindex.EvalInt:
		if res.Unsigned {
			m.Value = strconv.FormatUint(uint64(res.Int), 10)
		} else {
			m.Value = strconv.FormatInt(res.Int, 10)
		}
		if m.TypeName == "" {
			m.TypeName = "int"
		}
	case cindex.EvalFloat:
		m.Value = strconv.FormatFloat(res.Float, 'g', -1, 64)
		if m.TypeName == "" {
			m.TypeName = "double"
		}
	case cindex.EvalString:
		m.Value = res.Str
		if m.TypeName == "" {
			m.TypeName = "char*"
		}
	}
	m.TypeName = sanitizeName(m.TypeName)
	return m, nil
}
