// Package cabs provides AST printing functionality
package cabs

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the AST as C declarations
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// Print writes prog to w.
func Print(w io.Writer, prog *Program) {
	NewPrinter(w).PrintProgram(prog)
}

// PrintProgram prints a complete program
func (p *Printer) PrintProgram(prog *Program) {
	for _, def := range prog.Definitions {
		p.printDefinition(def)
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printDefinition(def Definition) {
	switch d := def.(type) {
	case Declaration:
		p.printSpecs(d.Specs)
		for i, decl := range d.Declarators {
			if i > 0 {
				fmt.Fprint(p.w, ",")
			}
			fmt.Fprint(p.w, " ", DeclaratorString(decl))
		}
		fmt.Fprintln(p.w, ";")
	case FunDef:
		p.printSpecs(d.Specs)
		fmt.Fprintf(p.w, " %s {}\n", DeclaratorString(d.Declarator))
	case StaticAssert:
		fmt.Fprintf(p.w, "_Static_assert(%s, \"%s\");\n", ExprString(d.Cond), d.Message)
	case Pragma:
		fmt.Fprintf(p.w, "#pragma %s\n", d.Text)
	default:
		fmt.Fprintf(p.w, "/* unknown definition %T */\n", def)
	}
}

func (p *Printer) printSpecs(s DeclSpec) {
	var words []string
	if s.Storage != StorageNone {
		words = append(words, s.Storage.String())
	}
	if s.Inline {
		words = append(words, "inline")
	}
	if s.Noreturn {
		words = append(words, "_Noreturn")
	}
	if s.ThreadLocal {
		words = append(words, "_Thread_local")
	}
	words = append(words, qualifierWords(s.Const, s.Volatile, s.Restrict)...)
	if s.Atomic {
		words = append(words, "_Atomic")
	}
	if s.CallConv != "" {
		words = append(words, "__"+s.CallConv)
	}
	fmt.Fprint(p.w, strings.Join(words, " "))
	if len(words) > 0 {
		fmt.Fprint(p.w, " ")
	}
	p.printTypeSpec(s.Type)
	if attrs := attributeString(s.Attrs); attrs != "" {
		fmt.Fprint(p.w, " ", attrs)
	}
}

func (p *Printer) printTypeSpec(t TypeSpec) {
	switch t := t.(type) {
	case nil:
		fmt.Fprint(p.w, "int")
	case BaseType:
		fmt.Fprint(p.w, strings.Join(t.Names, " "))
	case TypedefName:
		fmt.Fprint(p.w, t.Name)
	case TypeofSpec:
		if t.Type != nil {
			fmt.Fprintf(p.w, "typeof(%s)", TypeNameString(*t.Type))
		} else {
			fmt.Fprintf(p.w, "typeof(%s)", ExprString(t.Expr))
		}
	case RecordSpec:
		p.printRecord(t)
	case EnumSpec:
		p.printEnum(t)
	default:
		fmt.Fprintf(p.w, "/* unknown type %T */", t)
	}
}

func (p *Printer) printRecord(r RecordSpec) {
	fmt.Fprint(p.w, r.Kind.String())
	if attrs := attributeString(r.Attrs); attrs != "" {
		fmt.Fprint(p.w, " ", attrs)
	}
	if r.Name != "" {
		fmt.Fprint(p.w, " ", r.Name)
	}
	if !r.HasBody {
		return
	}
	fmt.Fprintln(p.w, " {")
	p.indent++
	for _, field := range r.Fields {
		p.writeIndent()
		p.printSpecs(field.Specs)
		for i, d := range field.Declarators {
			if i > 0 {
				fmt.Fprint(p.w, ",")
			}
			fmt.Fprint(p.w, " ", DeclaratorString(d))
		}
		fmt.Fprintln(p.w, ";")
	}
	p.indent--
	p.writeIndent()
	fmt.Fprint(p.w, "}")
}

func (p *Printer) printEnum(e EnumSpec) {
	fmt.Fprint(p.w, "enum")
	if e.Name != "" {
		fmt.Fprint(p.w, " ", e.Name)
	}
	if e.Underlying != nil {
		fmt.Fprint(p.w, " : ", TypeNameString(*e.Underlying))
	}
	if !e.HasBody {
		return
	}
	fmt.Fprintln(p.w, " {")
	p.indent++
	for i, val := range e.Enumerators {
		p.writeIndent()
		fmt.Fprint(p.w, val.Name)
		if val.Value != nil {
			fmt.Fprint(p.w, " = ")
			p.printExpr(val.Value)
		}
		if i < len(e.Enumerators)-1 {
			fmt.Fprintln(p.w, ",")
		} else {
			fmt.Fprintln(p.w)
		}
	}
	p.indent--
	p.writeIndent()
	fmt.Fprint(p.w, "}")
}

func qualifierWords(c, v, r bool) []string {
	var words []string
	if c {
		words = append(words, "const")
	}
	if v {
		words = append(words, "volatile")
	}
	if r {
		words = append(words, "restrict")
	}
	return words
}

func attributeString(attrs []Attribute) string {
	var parts []string
	for _, a := range attrs {
		text := a.Name
		switch {
		case len(a.Args) > 0:
			args := make([]string, len(a.Args))
			for i, e := range a.Args {
				args[i] = ExprString(e)
			}
			text += "(" + strings.Join(args, ", ") + ")"
		case a.Raw != "":
			text += "(" + a.Raw + ")"
		}
		if a.Declspec {
			parts = append(parts, "__declspec("+text+")")
		} else {
			parts = append(parts, "__attribute__(("+text+"))")
		}
	}
	return strings.Join(parts, " ")
}

// DeclaratorString renders a declarator around its name, applying the
// derivations from the outermost inwards.
func DeclaratorString(d Declarator) string {
	s := d.Name
	pointer := false
	for i := len(d.Derived) - 1; i >= 0; i-- {
		switch x := d.Derived[i].(type) {
		case PointerDecl:
			quals := strings.Join(qualifierWords(x.Const, x.Volatile, x.Restrict), " ")
			if quals != "" && s != "" {
				quals += " "
			}
			s = "*" + quals + s
			pointer = true
			continue
		case ArrayDecl:
			if pointer {
				s = "(" + s + ")"
			}
			size := ""
			if x.Size != nil {
				size = ExprString(x.Size)
			}
			s += "[" + size + "]"
		case FuncDecl:
			if x.CallConv != "" {
				s = "__" + x.CallConv + " " + s
			}
			if pointer {
				s = "(" + s + ")"
			}
			s += "(" + paramsString(x) + ")"
		}
		pointer = false
	}
	if d.BitWidth != nil {
		s += " : " + ExprString(d.BitWidth)
	}
	if d.AsmLabel != "" {
		s += " __asm__(\"" + d.AsmLabel + "\")"
	}
	if attrs := attributeString(d.Attrs); attrs != "" {
		s += " " + attrs
	}
	return strings.TrimSpace(s)
}

func paramsString(f FuncDecl) string {
	if f.OldStyle {
		return ""
	}
	if len(f.Params) == 0 && !f.Variadic {
		return "void"
	}
	parts := make([]string, 0, len(f.Params)+1)
	for _, param := range f.Params {
		parts = append(parts, TypeNameString(TypeName{Specs: param.Specs, Declarator: param.Declarator}))
	}
	if f.Variadic {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

// TypeNameString renders specifiers and a possibly abstract declarator.
func TypeNameString(t TypeName) string {
	var sb strings.Builder
	p := NewPrinter(&sb)
	p.printSpecs(t.Specs)
	if d := DeclaratorString(t.Declarator); d != "" {
		sb.WriteString(" " + d)
	}
	return sb.String()
}

// ExprString renders an expression.
func ExprString(e Expr) string {
	var sb strings.Builder
	NewPrinter(&sb).printExpr(e)
	return sb.String()
}

func (p *Printer) printExpr(expr Expr) {
	switch e := expr.(type) {
	case Constant:
		if e.Text != "" {
			fmt.Fprint(p.w, e.Text)
		} else {
			fmt.Fprintf(p.w, "%d", e.Value)
		}
	case FloatConst:
		if e.Text != "" {
			fmt.Fprint(p.w, e.Text)
		} else {
			fmt.Fprintf(p.w, "%g", e.Value)
		}
	case StringLit:
		fmt.Fprintf(p.w, "\"%s\"", e.Value)
	case Variable:
		fmt.Fprint(p.w, e.Name)
	case Unary:
		fmt.Fprint(p.w, e.Op.String())
		p.printExpr(e.Expr)
	case Binary:
		p.printBinary(e)
	case Paren:
		fmt.Fprint(p.w, "(")
		p.printExpr(e.Expr)
		fmt.Fprint(p.w, ")")
	case Conditional:
		p.printExpr(e.Cond)
		fmt.Fprint(p.w, " ? ")
		p.printExpr(e.Then)
		fmt.Fprint(p.w, " : ")
		p.printExpr(e.Else)
	case Call:
		p.printExpr(e.Func)
		fmt.Fprint(p.w, "(")
		for i, arg := range e.Args {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.printExpr(arg)
		}
		fmt.Fprint(p.w, ")")
	case Index:
		p.printExpr(e.Array)
		fmt.Fprint(p.w, "[")
		p.printExpr(e.Index)
		fmt.Fprint(p.w, "]")
	case Member:
		p.printExpr(e.Expr)
		if e.Arrow {
			fmt.Fprint(p.w, "->")
		} else {
			fmt.Fprint(p.w, ".")
		}
		fmt.Fprint(p.w, e.Name)
	case SizeofExpr:
		fmt.Fprint(p.w, "sizeof ")
		p.printExpr(e.Expr)
	case SizeofType:
		fmt.Fprintf(p.w, "sizeof(%s)", TypeNameString(e.Type))
	case AlignofType:
		fmt.Fprintf(p.w, "_Alignof(%s)", TypeNameString(e.Type))
	case OffsetOf:
		fmt.Fprintf(p.w, "__builtin_offsetof(%s, %s)", TypeNameString(e.Type), strings.Join(e.Member, "."))
	case Cast:
		fmt.Fprintf(p.w, "(%s)", TypeNameString(e.Type))
		p.printExpr(e.Expr)
	default:
		fmt.Fprintf(p.w, "/* unknown expr %T */", expr)
	}
}

func (p *Printer) printBinary(b Binary) {
	p.printExpr(b.Left)
	if b.Op == OpComma {
		fmt.Fprint(p.w, ", ")
	} else {
		fmt.Fprintf(p.w, " %s ", b.Op.String())
	}
	p.printExpr(b.Right)
}
