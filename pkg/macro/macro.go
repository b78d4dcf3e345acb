// Package macro finds object-like macro definitions in header source with a
// tree-sitter C grammar. The definitions are candidates for macro objects;
// their values are evaluated by the front end.
package macro

import (
	"context"
	"os"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
)

// Definition is one `#define NAME value` line.
type Definition struct {
	Name string
	// Value is the replacement text with surrounding whitespace and line
	// continuations removed. It is empty for flag macros.
	Value  string
	Line   int
	Column int
}

// IsFlag reports whether the macro has no replacement text.
func (d Definition) IsFlag() bool {
	return d.Value == ""
}

// Scan returns the object-like macro definitions in src, in source order.
// Function-like macros are skipped.
func Scan(ctx context.Context, src []byte) ([]Definition, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMacro, "scanning macro definitions", err)
	}
	defer tree.Close()

	var defs []Definition
	walk(tree.RootNode(), func(n *sitter.Node) {
		if n.Type() != "preproc_def" {
			return
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		d := Definition{
			Name:   nameNode.Content(src),
			Line:   int(n.StartPoint().Row) + 1,
			Column: int(nameNode.StartPoint().Column) + 1,
		}
		if v := n.ChildByFieldName("value"); v != nil {
			d.Value = cleanValue(v.Content(src))
		}
		defs = append(defs, d)
	})
	return defs, nil
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}

func cleanValue(s string) string {
	s = strings.ReplaceAll(s, "\\\r\n", " ")
	s = strings.ReplaceAll(s, "\\\n", " ")
	return strings.TrimSpace(s)
}

// Scanner scans files and caches the result per path. It is safe for
// concurrent use.
type Scanner struct {
	mu    sync.Mutex
	files map[string][]Definition
}

func NewScanner() *Scanner {
	return &Scanner{files: make(map[string][]Definition)}
}

// Definitions returns the object-like macro definitions in the file at
// path, in source order. A name defined twice appears twice.
func (s *Scanner) Definitions(ctx context.Context, path string) ([]Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if defs, ok := s.files[path]; ok {
		return defs, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.IOError("reading "+path, err)
	}
	defs, err := Scan(ctx, src)
	if err != nil {
		return nil, err
	}
	s.files[path] = defs
	return defs, nil
}
