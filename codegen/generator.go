package codegen

import (
	"errors"
	"fmt"
	"sort"

	"github.com/niotu/CompilerConstrction-sub000/compiler"
	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
	"github.com/tliron/commonlog"
)

// ContractError reports a program the generator cannot lower although it
// passed validation, or a target that broke its side of the contract.
type ContractError struct {
	Class  string
	Member string
	Msg    string
}

func (e *ContractError) Error() string {
	switch {
	case e.Class == "":
		return "codegen: " + e.Msg
	case e.Member == "":
		return fmt.Sprintf("codegen: %s: %s", e.Class, e.Msg)
	}
	return fmt.Sprintf("codegen: %s.%s: %s", e.Class, e.Member, e.Msg)
}

func contractf(class, member, format string, args ...interface{}) *ContractError {
	return &ContractError{Class: class, Member: member, Msg: fmt.Sprintf(format, args...)}
}

// Option configures a Generator.
type Option func(*Generator)

// WithTracer sends per-phase and per-member tracing to log.
func WithTracer(log commonlog.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.tracer = log
		}
	}
}

type nativeKey struct {
	template string
	typeArg  string
}

// Generator lowers a validated program onto a bytecode.Target in three
// phases: declare every signature, generate every body, finalize every
// type base first. A Generator is used for one compilation.
type Generator struct {
	reg    *compiler.Registry
	target bytecode.Target
	tracer commonlog.Logger

	handles map[string]TypeHandle
	pending map[string]*Pending
	order   []*Pending

	natives map[nativeKey]bytecode.NativeToken
	used    bool
}

// New creates a generator writing to target. reg must be the registry the
// program was validated against.
func New(reg *compiler.Registry, target bytecode.Target, opts ...Option) *Generator {
	g := &Generator{
		reg:     reg,
		target:  target,
		tracer:  commonlog.MockLogger{},
		handles: make(map[string]TypeHandle),
		pending: make(map[string]*Pending),
		natives: make(map[nativeKey]bytecode.NativeToken),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result lists the finalized types in finalization order.
type Result struct {
	Types []*Finalized
}

// Handle returns the current handle of a user class, or nil.
func (g *Generator) Handle(name string) TypeHandle {
	return g.handles[name]
}

// NativeCount returns the number of distinct built-in instantiations the
// generator imported.
func (g *Generator) NativeCount() int {
	return len(g.natives)
}

// Generate runs the three phases over prog.
func (g *Generator) Generate(prog *compiler.Program) (*Result, error) {
	if g.used {
		return nil, errors.New("codegen: a Generator compiles one program")
	}
	g.used = true
	if prog == nil {
		return &Result{}, nil
	}

	if err := g.declare(prog); err != nil {
		return nil, err
	}
	g.tracer.Debugf("declared %d types", len(g.order))
	if err := g.generateBodies(); err != nil {
		return nil, err
	}
	g.tracer.Debugf("generated bodies, %d native imports", len(g.natives))
	return g.finalize()
}

// Compile lowers an already validated program into a fresh in-memory module
// named name.
func Compile(reg *compiler.Registry, prog *compiler.Program, name string, opts ...Option) (*bytecode.Module, error) {
	b := bytecode.NewModuleBuilder(name)
	if _, err := New(reg, b, opts...).Generate(prog); err != nil {
		return nil, err
	}
	return b.Module()
}

// ---------------------------------------------------------------------------
// Phase 1: declare
// ---------------------------------------------------------------------------

// sortedClasses orders the classes so every base precedes its subclasses,
// keeping source order otherwise.
func (g *Generator) sortedClasses(prog *compiler.Program) []*compiler.ClassDecl {
	seen := make(map[string]bool)
	var classes []*compiler.ClassDecl
	for _, c := range prog.Classes {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		classes = append(classes, c)
	}
	depth := func(c *compiler.ClassDecl) int {
		return len(g.reg.Ancestors(c.Name))
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return depth(classes[i]) < depth(classes[j])
	})
	return classes
}

func (g *Generator) declare(prog *compiler.Program) error {
	for _, decl := range g.sortedClasses(prog) {
		var base *Pending
		baseTok := bytecode.NoType
		if decl.BaseName != "" {
			base = g.pending[decl.BaseName]
			if base == nil {
				return contractf(decl.Name, "", "base class %s is not a user class", decl.BaseName)
			}
			baseTok = base.Token
		}
		tok, err := g.target.DeclareType(decl.Name, baseTok)
		if err != nil {
			return fmt.Errorf("codegen: declare %s: %w", decl.Name, err)
		}
		p := newPending(decl, tok, base)
		g.pending[decl.Name] = p
		g.handles[decl.Name] = p
		g.order = append(g.order, p)
		g.tracer.Debugf("declared type %s (token %d)", decl.Name, tok)
	}

	for _, p := range g.order {
		if err := g.declareCallables(p); err != nil {
			return err
		}
	}
	for _, p := range g.order {
		if err := g.declareFields(p); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) declareCallables(p *Pending) error {
	ctors := p.Decl.Constructors()
	if len(ctors) == 0 {
		ctors = []*compiler.ConstructorDecl{nil}
	}
	for _, c := range ctors {
		var params []compiler.TypeRef
		if c != nil {
			params = compiler.ParamTypes(c.Params)
		}
		tok, err := g.target.DeclareConstructor(p.Token, typeNames(params))
		if err != nil {
			return fmt.Errorf("codegen: declare constructor of %s: %w", p.Name(), err)
		}
		p.Ctors = append(p.Ctors, &member{Name: bytecode.CtorMethodName, Params: params, Token: tok, Ctor: c})
	}

	for _, m := range p.Decl.Methods() {
		if m.Forward && implementedIn(p.Decl, m) {
			continue
		}
		params := compiler.ParamTypes(m.Params)
		entry := &member{Name: m.Name, Params: params, Return: m.ReturnType, Method: m}
		if !p.addMethod(entry) {
			return contractf(p.Name(), m.Name, "declared twice with parameters (%s)", sigKey("", params))
		}
		declare := g.target.DeclareMethod
		if m.Forward {
			// Implemented by a subclass: only the dispatch slot exists here.
			declare = g.target.DeclareAbstractMethod
		}
		tok, err := declare(p.Token, m.Name, typeNames(params), returnName(m.ReturnType))
		if err != nil {
			return fmt.Errorf("codegen: declare %s.%s: %w", p.Name(), m.Name, err)
		}
		entry.Token = tok
	}
	return nil
}

// implementedIn reports whether class declares a body for the forward
// declaration fwd.
func implementedIn(class *compiler.ClassDecl, fwd *compiler.MethodDecl) bool {
	params := compiler.ParamTypes(fwd.Params)
	for _, m := range class.Methods() {
		if !m.Forward && m.Name == fwd.Name && compiler.SameTypes(compiler.ParamTypes(m.Params), params) {
			return true
		}
	}
	return false
}

func (g *Generator) declareFields(p *Pending) error {
	for _, f := range p.Fields {
		t := g.fieldType(p, f)
		typ := ""
		if !t.IsUnknown() {
			typ = t.String()
		}
		tok, err := g.target.DeclareField(p.Token, f.Decl.Name, typ)
		if err != nil {
			return fmt.Errorf("codegen: declare field %s.%s: %w", p.Name(), f.Decl.Name, err)
		}
		f.Token = tok
		g.tracer.Debugf("declared field %s.%s : %s", p.Name(), f.Decl.Name, t)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Phase 2: bodies
// ---------------------------------------------------------------------------

func (g *Generator) generateBodies() error {
	for _, p := range g.order {
		for _, c := range p.Ctors {
			if err := g.emitConstructor(p, c); err != nil {
				return err
			}
		}
		for _, m := range p.Decl.Methods() {
			if m.Forward {
				continue
			}
			entry, _ := p.Lookup(m.Name, compiler.ParamTypes(m.Params))
			if err := g.emitMethod(p, entry); err != nil {
				return err
			}
		}
		if err := g.advance(p, StateGenerated); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) advance(p *Pending, to State) error {
	if to != p.state+1 {
		return contractf(p.Name(), "", "cannot move from %s to %s", p.state, to)
	}
	p.state = to
	return nil
}

// ---------------------------------------------------------------------------
// Phase 3: finalize
// ---------------------------------------------------------------------------

func (g *Generator) finalize() (*Result, error) {
	res := &Result{}
	for _, p := range g.order {
		if p.Base != nil && g.handles[p.Base.Name()].State() != StateFinalized {
			return nil, contractf(p.Name(), "", "base %s is not finalized", p.Base.Name())
		}
		if p.state != StateGenerated {
			return nil, contractf(p.Name(), "", "finalized while %s", p.state)
		}
		typ, err := g.target.Finalize(p.Token)
		if err != nil {
			return nil, fmt.Errorf("codegen: finalize %s: %w", p.Name(), err)
		}
		if typ == nil || !typ.Finalized {
			g.tracer.Debugf("target deferred %s; resolving by name", p.Name())
			typ, err = g.target.ResolveType(p.Name())
			if err != nil {
				return nil, fmt.Errorf("codegen: resolve %s: %w", p.Name(), err)
			}
			if typ == nil || !typ.Finalized {
				return nil, contractf(p.Name(), "", "target did not produce a finalized type")
			}
		}
		if err := g.advance(p, StateFinalized); err != nil {
			return nil, err
		}
		f := &Finalized{Type: typ}
		g.handles[p.Name()] = f
		res.Types = append(res.Types, f)
		g.tracer.Debugf("finalized %s", p.Name())
	}
	return res, nil
}
