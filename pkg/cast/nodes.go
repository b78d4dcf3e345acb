package cast

// TypeInfo is a resolved type. InnerType is the pointee of a pointer, the
// element of an array, or the underlying type of an alias; the chain is a
// tree bounded by the nesting of the declaration.
type TypeInfo struct {
	Name        string    `json:"name"`
	Kind        Kind      `json:"kind"`
	SizeOf      int       `json:"size_of"`
	AlignOf     *int      `json:"align_of"`
	ElementSize *int      `json:"size_of_element,omitempty"`
	ArraySize   *int      `json:"array_size,omitempty"`
	IsAnonymous bool      `json:"is_anonymous,omitempty"`
	IsConst     bool      `json:"is_const,omitempty"`
	Location    Location  `json:"location"`
	InnerType   *TypeInfo `json:"inner_type,omitempty"`
}

// VoidPointer is the type info used for pointers into blocked headers.
func VoidPointer(pointerSize int) TypeInfo {
	align := pointerSize
	return TypeInfo{
		Name:    "void*",
		Kind:    KindPointer,
		SizeOf:  pointerSize,
		AlignOf: &align,
		InnerType: &TypeInfo{
			Name: "void",
			Kind: KindPrimitive,
		},
	}
}

// Node is implemented by every node the explorer produces.
type Node interface {
	NodeKind() Kind
	NodeName() string
	NodeLocation() Location
}

type Function struct {
	Name              string              `json:"name"`
	Location          Location            `json:"location"`
	CallingConvention CallingConvention   `json:"calling_convention"`
	ReturnType        TypeInfo            `json:"return_type"`
	Parameters        []FunctionParameter `json:"parameters,omitempty"`
	IsVariadic        bool                `json:"is_variadic,omitempty"`
}

type FunctionParameter struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	Type     TypeInfo `json:"type"`
}

type Variable struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	Type     TypeInfo `json:"type"`
}

// Record is a struct or a union. Anonymous records nested in it are
// emitted as records of their own, named after their parent and listed in
// NestedRecords.
type Record struct {
	Kind          Kind          `json:"kind"`
	Name          string        `json:"name"`
	ParentName    string        `json:"parent_name,omitempty"`
	Location      Location      `json:"location"`
	SizeOf        int           `json:"size_of"`
	AlignOf       int           `json:"align_of"`
	Fields        []RecordField `json:"fields,omitempty"`
	NestedRecords []string      `json:"nested_records,omitempty"`
}

// RecordField offsets and sizes are in bytes. SizeOf is the field's share of
// the record: its type size in a struct (the byte width for bitfields), the
// whole union for a union member.
type RecordField struct {
	Name        string   `json:"name"`
	Location    Location `json:"location"`
	Type        TypeInfo `json:"type"`
	OffsetOf    int      `json:"offset_of"`
	PaddingOf   int      `json:"padding_of,omitempty"`
	SizeOf      int      `json:"size_of"`
	BitWidthOf  *int     `json:"bit_width_of,omitempty"`
	BitOffsetOf *int     `json:"bit_offset_of,omitempty"`
}

type Enum struct {
	Name        string      `json:"name"`
	Location    Location    `json:"location"`
	IntegerType TypeInfo    `json:"integer_type"`
	Values      []EnumValue `json:"values,omitempty"`
}

type EnumValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// EnumConstant is a member of an anonymous enum promoted to a standalone
// constant.
type EnumConstant struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	Type     TypeInfo `json:"type"`
	Value    int64    `json:"value"`
}

type TypeAlias struct {
	Name           string   `json:"name"`
	Location       Location `json:"location"`
	UnderlyingType TypeInfo `json:"underlying_type"`
}

// OpaqueType has no known layout; SizeOf is always 0.
type OpaqueType struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	SizeOf   int      `json:"size_of"`
}

type FunctionPointer struct {
	Name              string                     `json:"name"`
	Location          Location                   `json:"location"`
	Type              TypeInfo                   `json:"type"`
	CallingConvention CallingConvention          `json:"calling_convention"`
	ReturnType        TypeInfo                   `json:"return_type"`
	Parameters        []FunctionPointerParameter `json:"parameters,omitempty"`
}

type FunctionPointerParameter struct {
	Name string   `json:"name"`
	Type TypeInfo `json:"type"`
}

// MacroObject is an object-like macro with a constant value. Value is the
// decimal integer, the floating-point number, or the string contents.
type MacroObject struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	TypeName string   `json:"type_name"`
	Value    string   `json:"value"`
}

type Pointer struct {
	Name string   `json:"name"`
	Type TypeInfo `json:"type"`
}

type Array struct {
	Name string   `json:"name"`
	Type TypeInfo `json:"type"`
}

type Primitive struct {
	Name string   `json:"name"`
	Type TypeInfo `json:"type"`
}

func (n *Function) NodeKind() Kind        { return KindFunction }
func (n *Variable) NodeKind() Kind        { return KindVariable }
func (n *Record) NodeKind() Kind          { return n.Kind }
func (n *Enum) NodeKind() Kind            { return KindEnum }
func (n *EnumConstant) NodeKind() Kind    { return KindEnumConstant }
func (n *TypeAlias) NodeKind() Kind       { return KindTypeAlias }
func (n *OpaqueType) NodeKind() Kind      { return KindOpaqueType }
func (n *FunctionPointer) NodeKind() Kind { return KindFunctionPointer }
func (n *MacroObject) NodeKind() Kind     { return KindMacroObject }
func (n *Pointer) NodeKind() Kind         { return KindPointer }
func (n *Array) NodeKind() Kind           { return KindArray }
func (n *Primitive) NodeKind() Kind       { return KindPrimitive }

func (n *Function) NodeName() string        { return n.Name }
func (n *Variable) NodeName() string        { return n.Name }
func (n *Record) NodeName() string          { return n.Name }
func (n *Enum) NodeName() string            { return n.Name }
func (n *EnumConstant) NodeName() string    { return n.Name }
func (n *TypeAlias) NodeName() string       { return n.Name }
func (n *OpaqueType) NodeName() string      { return n.Name }
func (n *FunctionPointer) NodeName() string { return n.Name }
func (n *MacroObject) NodeName() string     { return n.Name }
func (n *Pointer) NodeName() string         { return n.Name }
func (n *Array) NodeName() string           { return n.Name }
func (n *Primitive) NodeName() string       { return n.Name }

func (n *Function) NodeLocation() Location        { return n.Location }
func (n *Variable) NodeLocation() Location        { return n.Location }
func (n *Record) NodeLocation() Location          { return n.Location }
func (n *Enum) NodeLocation() Location            { return n.Location }
func (n *EnumConstant) NodeLocation() Location    { return n.Location }
func (n *TypeAlias) NodeLocation() Location       { return n.Location }
func (n *OpaqueType) NodeLocation() Location      { return n.Location }
func (n *FunctionPointer) NodeLocation() Location { return n.Location }
func (n *MacroObject) NodeLocation() Location     { return n.Location }
func (n *Pointer) NodeLocation() Location         { return n.Type.Location }
func (n *Array) NodeLocation() Location           { return n.Type.Location }
func (n *Primitive) NodeLocation() Location       { return NoLocation }
