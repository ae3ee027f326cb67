package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for O programs
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Type references
// ---------------------------------------------------------------------------

// TypeRef names a type with an optional single type argument: Integer,
// Array[Integer], Box[Dog]. The zero TypeRef is the unknown type.
type TypeRef struct {
	Name string
	Arg  *TypeRef
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// RealLiteral represents a real literal.
type RealLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *RealLiteral) Span() Span { return n.SpanVal }
func (n *RealLiteral) node()      {}
func (n *RealLiteral) expr()      {}

// BoolLiteral represents 'true' or 'false'.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// Identifier represents a reference to a local, parameter or field.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// This represents the 'this' self-reference.
type This struct {
	SpanVal Span
}

func (n *This) Span() Span { return n.SpanVal }
func (n *This) node()      {}
func (n *This) expr()      {}

// ConstructorCall represents Name[Arg](args...).
type ConstructorCall struct {
	SpanVal Span
	Type    TypeRef
	Args    []Expr
}

func (n *ConstructorCall) Span() Span { return n.SpanVal }
func (n *ConstructorCall) node()      {}
func (n *ConstructorCall) expr()      {}

// Call represents callee(args...). The callee is either an Identifier (a
// method of the enclosing class) or a MemberAccess (a method of the target).
type Call struct {
	SpanVal Span
	Callee  Expr
	Args    []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// MemberAccess represents target.member.
type MemberAccess struct {
	SpanVal Span
	Target  Expr
	Member  string
}

func (n *MemberAccess) Span() Span { return n.SpanVal }
func (n *MemberAccess) node()      {}
func (n *MemberAccess) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// VarDecl declares a local: var name : init.
type VarDecl struct {
	SpanVal Span
	Name    string
	Init    Expr
}

func (n *VarDecl) Span() Span { return n.SpanVal }
func (n *VarDecl) node()      {}
func (n *VarDecl) stmt()      {}

// Assignment represents target := value. Target is an Identifier, or a
// MemberAccess whose target is This.
type Assignment struct {
	SpanVal Span
	Target  Expr
	Value   Expr
}

func (n *Assignment) Span() Span { return n.SpanVal }
func (n *Assignment) node()      {}
func (n *Assignment) stmt()      {}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Return represents 'return' with an optional value.
type Return struct {
	SpanVal Span
	Value   Expr // nil for a bare return
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) stmt()      {}

// If represents if cond then ... [else ...] end.
type If struct {
	SpanVal Span
	Cond    Expr
	Then    []Stmt
	Else    []Stmt
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}
func (n *If) stmt()      {}

// While represents while cond loop ... end.
type While struct {
	SpanVal Span
	Cond    Expr
	Body    []Stmt
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}
func (n *While) stmt()      {}

// ---------------------------------------------------------------------------
// Members and classes
// ---------------------------------------------------------------------------

// Member is a field, constructor or method of a class.
type Member interface {
	Node
	member() // marker method
}

// Param is a typed method or constructor parameter.
type Param struct {
	SpanVal Span
	Name    string
	Type    TypeRef
}

func (p *Param) Span() Span { return p.SpanVal }
func (p *Param) node()      {}

// FieldDecl declares a field. Its type is inferred from Init.
type FieldDecl struct {
	SpanVal Span
	Name    string
	Init    Expr
}

func (n *FieldDecl) Span() Span { return n.SpanVal }
func (n *FieldDecl) node()      {}
func (n *FieldDecl) member()    {}

// ConstructorDecl declares this(params) is body end.
type ConstructorDecl struct {
	SpanVal Span
	Params  []Param
	Body    []Stmt
}

func (n *ConstructorDecl) Span() Span { return n.SpanVal }
func (n *ConstructorDecl) node()      {}
func (n *ConstructorDecl) member()    {}

// MethodDecl declares a method. A method with Forward set has no body and
// must be implemented by a body-bearing method with the same signature.
type MethodDecl struct {
	SpanVal    Span
	Name       string
	Params     []Param
	ReturnType TypeRef // Void when absent
	Body       []Stmt
	Forward    bool
}

func (n *MethodDecl) Span() Span { return n.SpanVal }
func (n *MethodDecl) node()      {}
func (n *MethodDecl) member()    {}

// ClassDecl represents a class declaration.
type ClassDecl struct {
	SpanVal      Span
	Name         string
	GenericParam string // "" when the class is not generic
	BaseName     string // "" when the class has no base
	Members      []Member
}

func (n *ClassDecl) Span() Span { return n.SpanVal }
func (n *ClassDecl) node()      {}

// Fields returns the class's own field declarations in order.
func (n *ClassDecl) Fields() []*FieldDecl {
	var out []*FieldDecl
	for _, m := range n.Members {
		if f, ok := m.(*FieldDecl); ok {
			out = append(out, f)
		}
	}
	return out
}

// Constructors returns the class's own constructor declarations in order.
func (n *ClassDecl) Constructors() []*ConstructorDecl {
	var out []*ConstructorDecl
	for _, m := range n.Members {
		if c, ok := m.(*ConstructorDecl); ok {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns the class's own method declarations in order, forward
// declarations included.
func (n *ClassDecl) Methods() []*MethodDecl {
	var out []*MethodDecl
	for _, m := range n.Members {
		if md, ok := m.(*MethodDecl); ok {
			out = append(out, md)
		}
	}
	return out
}

// Program is an ordered list of class declarations.
type Program struct {
	SpanVal Span
	Classes []*ClassDecl
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}
