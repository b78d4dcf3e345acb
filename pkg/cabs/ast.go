// Package cabs defines the abstract syntax of C external declarations as they
// appear in headers: declaration specifiers, declarators, records, enums,
// attributes and the constant expressions they contain.
package cabs

// Node is the base interface for all AST nodes
type Node interface {
	implCabsNode()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	implCabsExpr()
}

// Definition is the interface for top-level definitions
type Definition interface {
	Node
	implDefinition()
	Location() Loc
}

// TypeSpec is the interface for the type part of declaration specifiers
type TypeSpec interface {
	Node
	implTypeSpec()
}

// Derivation is one step of a declarator: pointer, array or function.
type Derivation interface {
	Node
	implDerivation()
}

// Loc is a source position as presumed after line markers.
type Loc struct {
	File   string
	Line   int
	Column int
	System bool
}

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd // &&
	OpOr  // ||
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl // <<
	OpShr // >>
	OpAssign
	OpComma
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "||", "&", "|", "^", "<<", ">>", "=", ","}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpNeg    UnaryOp = iota // -
	OpNot                   // !
	OpBitNot                // ~
	OpPlus                  // +
	OpAddrOf                // &
	OpDeref                 // *
)

func (op UnaryOp) String() string {
	names := []string{"-", "!", "~", "+", "&", "*"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Constant represents an integer or character constant
type Constant struct {
	Value    int64
	Text     string // spelling, including suffixes
	Unsigned bool
	Long     int // number of 'l' suffixes
}

// FloatConst represents a floating constant
type FloatConst struct {
	Value  float64
	Text   string
	Single bool // f suffix
}

// StringLit represents adjacent string literals after concatenation
type StringLit struct {
	Value string // contents with escapes left in place
}

// Variable represents an identifier expression
type Variable struct {
	Name string
}

// Unary represents a unary expression
type Unary struct {
	Op   UnaryOp
	Expr Expr
}

// Binary represents a binary expression
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Paren represents a parenthesized expression
type Paren struct {
	Expr Expr
}

// Conditional represents the ternary operator: cond ? then : else
type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
}

// Call represents a function call
type Call struct {
	Func Expr
	Args []Expr
}

// Index represents array subscript access: arr[idx]
type Index struct {
	Array Expr
	Index Expr
}

// Member represents s.f or p->f
type Member struct {
	Expr  Expr
	Name  string
	Arrow bool
}

// Cast represents (type)expr
type Cast struct {
	Type TypeName
	Expr Expr
}

// SizeofType represents sizeof(type)
type SizeofType struct {
	Type TypeName
}

// SizeofExpr represents sizeof expr
type SizeofExpr struct {
	Expr Expr
}

// AlignofType represents _Alignof(type)
type AlignofType struct {
	Type TypeName
}

// OffsetOf represents __builtin_offsetof(type, member.path)
type OffsetOf struct {
	Type   TypeName
	Member []string
}

// StorageClass is the storage-class specifier of a declaration.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageTypedef
	StorageExtern
	StorageStatic
	StorageAuto
	StorageRegister
)

func (s StorageClass) String() string {
	names := []string{"", "typedef", "extern", "static", "auto", "register"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// Attribute is one GNU __attribute__ entry or one __declspec entry.
type Attribute struct {
	Name     string // without surrounding underscores
	Args     []Expr // parsed for layout attributes (aligned, vector_size, mode)
	Raw      string // argument text for everything else
	Declspec bool
}

// DeclSpec collects declaration specifiers.
type DeclSpec struct {
	Storage     StorageClass
	Type        TypeSpec
	Const       bool
	Volatile    bool
	Restrict    bool
	Atomic      bool
	Inline      bool
	Noreturn    bool
	ThreadLocal bool
	AlignAs     []Expr
	CallConv    string
	Attrs       []Attribute
}

// BaseType is a list of type-specifier keywords, e.g. unsigned long int.
type BaseType struct {
	Names []string
}

// TypedefName refers to a previously declared typedef.
type TypedefName struct {
	Name string
}

// RecordKind distinguishes struct from union.
type RecordKind int

const (
	Struct RecordKind = iota
	Union
)

func (k RecordKind) String() string {
	if k == Union {
		return "union"
	}
	return "struct"
}

// RecordSpec is a struct or union specifier. Fields is nil for a reference
// or forward declaration; HasBody distinguishes `struct S {}` from `struct S`.
type RecordSpec struct {
	Kind    RecordKind
	Name    string
	HasBody bool
	Fields  []FieldDecl
	Attrs   []Attribute
	Loc     Loc
}

// FieldDecl is one member declaration inside a record body. An anonymous
// struct or union member has no declarators.
type FieldDecl struct {
	Specs       DeclSpec
	Declarators []Declarator
	Loc         Loc
}

// EnumSpec is an enum specifier.
type EnumSpec struct {
	Name        string
	HasBody     bool
	Enumerators []Enumerator
	Underlying  *TypeName // enum E : type
	Attrs       []Attribute
	Loc         Loc
}

// Enumerator is one enum constant.
type Enumerator struct {
	Name  string
	Value Expr // nil when implicit
	Loc   Loc
}

// TypeofSpec is typeof(expr), typeof(type) or _Atomic(type).
type TypeofSpec struct {
	Expr Expr
	Type *TypeName
}

// Declarator names an entity and derives its type from the specifiers.
// Derived is ordered from the base type outwards: for `int *a[3]` it is
// [Pointer, Array].
type Declarator struct {
	Name     string
	Loc      Loc
	Derived  []Derivation
	Attrs    []Attribute
	CallConv string // calling convention not yet attached to a function derivation
	AsmLabel string
	BitWidth Expr // bitfield width, fields only
	HasInit  bool
}

// PointerDecl is a pointer derivation with its qualifiers.
type PointerDecl struct {
	Const    bool
	Volatile bool
	Restrict bool
	Attrs    []Attribute
}

// ArrayDecl is an array derivation; Size is nil for [] and [*].
type ArrayDecl struct {
	Size   Expr
	Static bool
}

// FuncDecl is a function derivation.
type FuncDecl struct {
	Params   []ParamDecl
	Variadic bool
	OldStyle bool // () with no parameter information
	CallConv string
	Attrs    []Attribute
}

// ParamDecl is one parameter; the declarator may be abstract.
type ParamDecl struct {
	Specs      DeclSpec
	Declarator Declarator
	Loc        Loc
}

// TypeName is a type written in a cast, sizeof or typeof.
type TypeName struct {
	Specs      DeclSpec
	Declarator Declarator
}

// Declaration is a top-level declaration: `specs d1, d2;`.
type Declaration struct {
	Specs       DeclSpec
	Declarators []Declarator
	Loc         Loc
}

// FunDef represents a function definition; the body is not kept.
type FunDef struct {
	Specs      DeclSpec
	Declarator Declarator
	Loc        Loc
}

// StaticAssert represents _Static_assert(cond, "message").
type StaticAssert struct {
	Cond    Expr
	Message string
	Loc     Loc
}

// Pragma is a #pragma or _Pragma at file scope, in source order.
type Pragma struct {
	Text string
	Loc  Loc
}

// Program is a parsed translation unit.
type Program struct {
	Definitions []Definition
}

// Marker methods for interface implementation
func (Constant) implCabsNode() {}
func (Constant) implCabsExpr() {}

func (FloatConst) implCabsNode() {}
func (FloatConst) implCabsExpr() {}

func (StringLit) implCabsNode() {}
func (StringLit) implCabsExpr() {}

func (Variable) implCabsNode() {}
func (Variable) implCabsExpr() {}

func (Unary) implCabsNode() {}
func (Unary) implCabsExpr() {}

func (Binary) implCabsNode() {}
func (Binary) implCabsExpr() {}

func (Paren) implCabsNode() {}
func (Paren) implCabsExpr() {}

func (Conditional) implCabsNode() {}
func (Conditional) implCabsExpr() {}

func (Call) implCabsNode() {}
func (Call) implCabsExpr() {}

func (Index) implCabsNode() {}
func (Index) implCabsExpr() {}

func (Member) implCabsNode() {}
func (Member) implCabsExpr() {}

func (Cast) implCabsNode() {}
func (Cast) implCabsExpr() {}

func (SizeofType) implCabsNode() {}
func (SizeofType) implCabsExpr() {}

func (SizeofExpr) implCabsNode() {}
func (SizeofExpr) implCabsExpr() {}

func (AlignofType) implCabsNode() {}
func (AlignofType) implCabsExpr() {}

func (OffsetOf) implCabsNode() {}
func (OffsetOf) implCabsExpr() {}

func (BaseType) implCabsNode() {}
func (BaseType) implTypeSpec() {}

func (TypedefName) implCabsNode() {}
func (TypedefName) implTypeSpec() {}

func (RecordSpec) implCabsNode() {}
func (RecordSpec) implTypeSpec() {}

func (EnumSpec) implCabsNode() {}
func (EnumSpec) implTypeSpec() {}

func (TypeofSpec) implCabsNode() {}
func (TypeofSpec) implTypeSpec() {}

func (PointerDecl) implCabsNode()    {}
func (PointerDecl) implDerivation() {}

func (ArrayDecl) implCabsNode()    {}
func (ArrayDecl) implDerivation() {}

func (FuncDecl) implCabsNode()    {}
func (FuncDecl) implDerivation() {}

func (Declaration) implCabsNode()    {}
func (Declaration) implDefinition() {}

func (FunDef) implCabsNode()    {}
func (FunDef) implDefinition() {}

func (StaticAssert) implCabsNode()    {}
func (StaticAssert) implDefinition() {}

func (Pragma) implCabsNode()    {}
func (Pragma) implDefinition() {}

func (d Declaration) Location() Loc  { return d.Loc }
func (d FunDef) Location() Loc       { return d.Loc }
func (d StaticAssert) Location() Loc { return d.Loc }
func (d Pragma) Location() Loc       { return d.Loc }

// IsFunction reports whether the outermost derivation is a function, i.e.
// the declarator declares a function rather than an object.
func (d Declarator) IsFunction() bool {
	return len(d.Derived) > 0 && isFunc(d.Derived[len(d.Derived)-1])
}

func isFunc(d Derivation) bool {
	_, ok := d.(FuncDecl)
	return ok
}

// Attr returns the first attribute called name.
func Attr(attrs []Attribute, name string) (Attribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}
