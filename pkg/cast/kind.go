// Package cast is the binding AST: the nodes produced by exploring a C
// header and the document they are assembled into.
package cast

import (
	"fmt"
)

// Kind is the semantic category of a node or type.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrimitive
	KindPointer
	KindArray
	KindFunction
	KindFunctionPointer
	KindEnum
	KindEnumConstant
	KindStruct
	KindUnion
	KindTypeAlias
	KindOpaqueType
	KindVariable
	KindMacroObject
)

var kindNames = [...]string{
	KindUnknown:         "Unknown",
	KindPrimitive:       "Primitive",
	KindPointer:         "Pointer",
	KindArray:           "Array",
	KindFunction:        "Function",
	KindFunctionPointer: "FunctionPointer",
	KindEnum:            "Enum",
	KindEnumConstant:    "EnumConstant",
	KindStruct:          "Struct",
	KindUnion:           "Union",
	KindTypeAlias:       "TypeAlias",
	KindOpaqueType:      "OpaqueType",
	KindVariable:        "Variable",
	KindMacroObject:     "MacroObject",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsRecord reports whether k is a struct or a union.
func (k Kind) IsRecord() bool {
	return k == KindStruct || k == KindUnion
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", text)
}

// CallingConvention of a function or function pointer.
type CallingConvention string

const (
	CallingConventionC CallingConvention = "C"
)
