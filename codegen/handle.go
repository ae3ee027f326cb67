package codegen

import (
	"strings"

	"github.com/niotu/CompilerConstrction-sub000/compiler"
	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
)

// State is the lifecycle stage of a class during generation. It only moves
// forward.
type State int

const (
	StatePending State = iota
	StateGenerated
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateGenerated:
		return "generated"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// TypeHandle refers to one user class. It is either *Pending (signatures
// registered, bodies possibly still missing) or *Finalized.
type TypeHandle interface {
	Name() string
	State() State
	isTypeHandle()
}

// Pending is a class under construction. Its signature tables are built
// during the declare phase and consulted by structural lookup while bodies
// are generated.
type Pending struct {
	Decl  *compiler.ClassDecl
	Token bytecode.TypeToken
	Base  *Pending // nil when the class has no user base

	Fields []*fieldEntry
	Ctors  []*member

	methods map[string]*member   // keyed by name and parameter types
	byName  map[string][]*member // overloads in declaration order
	state   State
}

func newPending(decl *compiler.ClassDecl, tok bytecode.TypeToken, base *Pending) *Pending {
	p := &Pending{
		Decl:    decl,
		Token:   tok,
		Base:    base,
		methods: make(map[string]*member),
		byName:  make(map[string][]*member),
	}
	for _, f := range decl.Fields() {
		p.Fields = append(p.Fields, &fieldEntry{Decl: f, Token: -1})
	}
	return p
}

func (p *Pending) Name() string  { return p.Decl.Name }
func (p *Pending) State() State  { return p.state }
func (p *Pending) isTypeHandle() {}

// addMethod registers a method signature. It returns false if the class
// already has a method with the same name and parameter types.
func (p *Pending) addMethod(m *member) bool {
	key := sigKey(m.Name, m.Params)
	if _, dup := p.methods[key]; dup {
		return false
	}
	p.methods[key] = m
	p.byName[m.Name] = append(p.byName[m.Name], m)
	return true
}

// Lookup finds a method declared by this class with exactly these
// parameter types.
func (p *Pending) Lookup(name string, params []compiler.TypeRef) (*member, bool) {
	m, ok := p.methods[sigKey(name, params)]
	return m, ok
}

// LookupInherited is Lookup walking up the base chain.
func (p *Pending) LookupInherited(name string, params []compiler.TypeRef) (*member, *Pending, bool) {
	for c := p; c != nil; c = c.Base {
		if m, ok := c.Lookup(name, params); ok {
			return m, c, true
		}
	}
	return nil, nil, false
}

// Constructor returns the constructor with exactly these parameter types.
func (p *Pending) Constructor(params []compiler.TypeRef) (*member, bool) {
	for _, c := range p.Ctors {
		if compiler.SameTypes(c.Params, params) {
			return c, true
		}
	}
	return nil, false
}

// field finds a field by name in the class or its ancestors.
func (p *Pending) field(name string) (*fieldEntry, *Pending) {
	for c := p; c != nil; c = c.Base {
		for _, f := range c.Fields {
			if f.Decl.Name == name {
				return f, c
			}
		}
	}
	return nil, nil
}

// Finalized is a class converted into its directly usable runtime type.
type Finalized struct {
	Type *bytecode.Type
}

func (f *Finalized) Name() string  { return f.Type.Name }
func (f *Finalized) State() State  { return StateFinalized }
func (f *Finalized) isTypeHandle() {}

// member is a constructor or method signature registered in phase 1.
type member struct {
	Name   string
	Params []compiler.TypeRef
	Return compiler.TypeRef
	Token  bytecode.MethodToken

	Method *compiler.MethodDecl      // nil for constructors
	Ctor   *compiler.ConstructorDecl // nil for methods and default constructors
}

// fieldEntry is a field with its lazily inferred type.
type fieldEntry struct {
	Decl  *compiler.FieldDecl
	Token bytecode.FieldToken
	Type  compiler.TypeRef

	inferred  bool
	inferring bool
}

func sigKey(name string, params []compiler.TypeRef) string {
	return name + "(" + strings.Join(typeNames(params), ",") + ")"
}

func typeNames(types []compiler.TypeRef) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

// returnName renders a return type for the target; procedures have none.
func returnName(t compiler.TypeRef) string {
	if t.IsVoid() || t.IsUnknown() {
		return ""
	}
	return t.String()
}
