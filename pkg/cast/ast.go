package cast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AbstractSyntaxTree is the document produced for one header on one target
// platform. Each collection is keyed by node name.
type AbstractSyntaxTree struct {
	FileName          string                      `json:"file_name"`
	PlatformRequested string                      `json:"platform_requested"`
	PlatformActual    string                      `json:"platform_actual"`
	MacroObjects      map[string]*MacroObject     `json:"macro_objects"`
	Variables         map[string]*Variable        `json:"variables"`
	Functions         map[string]*Function        `json:"functions"`
	Records           map[string]*Record          `json:"records"`
	Enums             map[string]*Enum            `json:"enums"`
	TypeAliases       map[string]*TypeAlias       `json:"type_aliases"`
	OpaqueTypes       map[string]*OpaqueType      `json:"opaque_types"`
	FunctionPointers  map[string]*FunctionPointer `json:"function_pointers"`
	EnumConstants     map[string]*EnumConstant    `json:"enum_constants"`
}

// NewAbstractSyntaxTree returns a document with empty collections.
func NewAbstractSyntaxTree(fileName, requested, actual string) *AbstractSyntaxTree {
	return &AbstractSyntaxTree{
		FileName:          fileName,
		PlatformRequested: requested,
		PlatformActual:    actual,
		MacroObjects:      map[string]*MacroObject{},
		Variables:         map[string]*Variable{},
		Functions:         map[string]*Function{},
		Records:           map[string]*Record{},
		Enums:             map[string]*Enum{},
		TypeAliases:       map[string]*TypeAlias{},
		OpaqueTypes:       map[string]*OpaqueType{},
		FunctionPointers:  map[string]*FunctionPointer{},
		EnumConstants:     map[string]*EnumConstant{},
	}
}

// Add stores n in the collection for its kind. A name already present in
// that collection is an error.
func (a *AbstractSyntaxTree) Add(n Node) error {
	name := n.NodeName()
	var exists bool
	switch n := n.(type) {
	case *MacroObject:
		exists = put(a.MacroObjects, name, n)
	case *Variable:
		exists = put(a.Variables, name, n)
	case *Function:
		exists = put(a.Functions, name, n)
	case *Record:
		exists = put(a.Records, name, n)
	case *Enum:
		exists = put(a.Enums, name, n)
	case *TypeAlias:
		exists = put(a.TypeAliases, name, n)
	case *OpaqueType:
		exists = put(a.OpaqueTypes, name, n)
	case *FunctionPointer:
		exists = put(a.FunctionPointers, name, n)
	case *EnumConstant:
		exists = put(a.EnumConstants, name, n)
	default:
		return fmt.Errorf("%s nodes are not part of the document", n.NodeKind())
	}
	if exists {
		return fmt.Errorf("duplicate %s '%s'", n.NodeKind(), name)
	}
	return nil
}

func put[T any](m map[string]T, name string, v T) bool {
	if _, ok := m[name]; ok {
		return true
	}
	m[name] = v
	return false
}

// Len is the number of nodes in the document.
func (a *AbstractSyntaxTree) Len() int {
	return len(a.MacroObjects) + len(a.Variables) + len(a.Functions) + len(a.Records) +
		len(a.Enums) + len(a.TypeAliases) + len(a.OpaqueTypes) + len(a.FunctionPointers) +
		len(a.EnumConstants)
}

// Marshal encodes the document as indented JSON. Object keys of the
// collections are sorted.
func Marshal(a *AbstractSyntaxTree) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a document written by Marshal.
func Unmarshal(data []byte) (*AbstractSyntaxTree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var a AbstractSyntaxTree
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Equal reports whether two documents encode identically.
func Equal(a, b *AbstractSyntaxTree) bool {
	if a == nil || b == nil {
		return a == b
	}
	da, err := Marshal(a)
	if err != nil {
		return false
	}
	db, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
