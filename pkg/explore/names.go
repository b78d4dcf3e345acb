package explore

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
)

const unnamedMarker = "(unnamed at "

// sanitizeName removes the tag and qualifier keywords the front end puts in
// type spellings.
func sanitizeName(name string) string {
	for {
		trimmed := name
		for _, prefix := range []string{"struct ", "union ", "enum ", "const "} {
			trimmed = strings.TrimPrefix(trimmed, prefix)
		}
		if trimmed == name {
			break
		}
		name = trimmed
	}
	name = strings.ReplaceAll(name, " *", "*")
	return strings.ReplaceAll(name, "*const", "*")
}

// commonPrefix strips one trailing character from every name per round
// until all names agree. It gives up as soon as any name runs out.
func commonPrefix(names []string) string {
	if len(names) < 2 {
		return ""
	}
	candidates := append([]string(nil), names...)
	for {
		for i, c := range candidates {
			if c == "" {
				return ""
			}
			candidates[i] = c[:len(c)-1]
		}
		same := true
		for _, c := range candidates[1:] {
			if c != candidates[0] {
				same = false
				break
			}
		}
		if same {
			return candidates[0]
		}
	}
}

func enumConstantNames(enum cindex.Cursor) []string {
	var names []string
	for _, c := range enum.Children() {
		if c.Kind() == cindex.CursorEnumConstantDecl {
			names = append(names, c.Spelling())
		}
	}
	return names
}

// typeName is the name a type is emitted under. Anonymous and unnamed
// records take their name from the parent and the field position.
func (s *session) typeName(kind cast.Kind, t cindex.Type, parent *infoNode, fieldIndex int) (string, error) {
	switch kind {
	case cast.KindFunction, cast.KindMacroObject:
		return "", nil
	case cast.KindFunctionPointer:
		if parent != nil && parent.kind == cast.KindTypeAlias {
			return parent.name, nil
		}
		return s.functionPointerName(t), nil
	}

	name := sanitizeName(t.Spelling())
	if decl := t.Declaration(); decl != nil && decl.IsAnonymous() {
		if decl.Kind() == cindex.CursorEnumDecl {
			if prefix := commonPrefix(enumConstantNames(decl)); prefix != "" {
				return prefix, nil
			}
		}
		if parent != nil && isAnonymousMember(decl) {
			return parent.name + "_ANONYMOUS_FIELD" + strconv.Itoa(fieldIndex), nil
		}
		if parent != nil && !parent.kind.IsRecord() && decl.Kind() == cindex.CursorUnionDecl {
			return parent.name + "_" + decl.Spelling(), nil
		}
	}
	if parent != nil && strings.Contains(name, unnamedMarker) {
		return parent.name + "_UNNAMED_FIELD" + strconv.Itoa(fieldIndex), nil
	}
	if name == "" {
		return "", apperrors.Unreachable("no name for %s type '%s'", kind, t.Spelling())
	}
	return name, nil
}

// isAnonymousMember reports a record declared as an unnamed member of its
// parent record.
func isAnonymousMember(c cindex.Cursor) bool {
	switch c.Kind() {
	case cindex.CursorStructDecl, cindex.CursorUnionDecl:
		return c.FieldOffset() >= 0
	}
	return false
}

// functionPointerName builds a name from the signature, such as
// FnPtr_Int_CharPtr_Void for void (*)(int, char *). Names are cached per
// spelling.
func (s *session) functionPointerName(fn cindex.Type) string {
	key := fn.Spelling()
	if name, ok := s.fnPointerNames[key]; ok {
		return name
	}
	var parts []string
	for _, arg := range fn.ArgTypes() {
		parts = append(parts, signaturePart(arg))
	}
	parts = append(parts, signaturePart(fn.Result()))
	name := "FnPtr_" + strings.Join(parts, "_")
	s.fnPointerNames[key] = name
	return name
}

func signaturePart(t cindex.Type) string {
	spelling := sanitizeName(t.Spelling())
	spelling = strings.ReplaceAll(spelling, "*", " Ptr ")
	var b strings.Builder
	for _, word := range strings.FieldsFunc(spelling, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	}) {
		if word == "const" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}
	return b.String()
}
