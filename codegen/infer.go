package codegen

import (
	"github.com/niotu/CompilerConstrction-sub000/compiler"
	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Body context and static typing
// ---------------------------------------------------------------------------

type local struct {
	slot int
	typ  compiler.TypeRef
}

// bodyCtx is the state of one constructor or method body, or of a field
// initializer being typed.
type bodyCtx struct {
	g      *Generator
	class  *Pending
	member string

	params     []compiler.Param
	hideParams bool
	ret        compiler.TypeRef // declared return type of a method body

	// fieldLimit hides the class's own fields from this one onwards while
	// its initializer is typed or emitted.
	fieldLimit *fieldEntry

	scopes  []map[string]local
	chunk   *bytecode.Chunk
	nlocals int
}

func (g *Generator) newBodyCtx(p *Pending, memberName string, params []compiler.Param) *bodyCtx {
	return &bodyCtx{
		g:      g,
		class:  p,
		member: memberName,
		params: params,
		scopes: []map[string]local{{}},
		chunk:  bytecode.NewChunk(),
	}
}

func (c *bodyCtx) enterScope() { c.scopes = append(c.scopes, map[string]local{}) }
func (c *bodyCtx) exitScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

// declareLocal binds name in the innermost scope to a fresh slot.
func (c *bodyCtx) declareLocal(name string, t compiler.TypeRef) int {
	slot := c.newTemp(name)
	c.scopes[len(c.scopes)-1][name] = local{slot: slot, typ: t}
	return slot
}

// newTemp allocates a slot no name refers to.
func (c *bodyCtx) newTemp(name string) int {
	slot := c.nlocals
	c.nlocals++
	c.chunk.VarNames = append(c.chunk.VarNames, name)
	return slot
}

func (c *bodyCtx) errorf(format string, args ...interface{}) error {
	return contractf(c.class.Name(), c.member, format, args...)
}

func (c *bodyCtx) thisType() compiler.TypeRef {
	return compiler.Named(c.class.Name())
}

// binding is what an identifier resolves to.
type binding struct {
	kind  compiler.SymbolKind
	slot  int // local or parameter slot
	field *fieldEntry
	typ   compiler.TypeRef
}

// lookup resolves name: locals innermost first, then parameters, then the
// fields of the class and its ancestors.
func (c *bodyCtx) lookup(name string) (binding, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if l, ok := c.scopes[i][name]; ok {
			return binding{kind: compiler.LocalSymbol, slot: l.slot, typ: l.typ}, true
		}
	}
	if !c.hideParams {
		for i := len(c.params) - 1; i >= 0; i-- {
			if c.params[i].Name == name {
				return binding{kind: compiler.ParamSymbol, slot: i, typ: c.params[i].Type}, true
			}
		}
	}
	for owner := c.class; owner != nil; owner = owner.Base {
		for _, f := range owner.Fields {
			if owner == c.class && f == c.fieldLimit {
				break
			}
			if f.Decl.Name == name {
				return binding{kind: compiler.FieldSymbol, field: f, typ: c.g.fieldType(owner, f)}, true
			}
		}
	}
	return binding{}, false
}

// fieldType infers the type of field f of owner from its initializer. A
// field whose initializer depends on itself is left unknown.
func (g *Generator) fieldType(owner *Pending, f *fieldEntry) compiler.TypeRef {
	if f.inferred {
		return f.Type
	}
	if f.inferring {
		return compiler.Unknown
	}
	f.inferring = true
	defer func() { f.inferring = false }()

	ctx := g.newBodyCtx(owner, f.Decl.Name, nil)
	ctx.fieldLimit = f
	f.Type = ctx.typeOf(f.Decl.Init)
	f.inferred = true
	return f.Type
}

// typeOf returns the static type of e, or Unknown.
func (c *bodyCtx) typeOf(e compiler.Expr) compiler.TypeRef {
	switch e := e.(type) {
	case *compiler.IntLiteral:
		return compiler.IntegerType
	case *compiler.RealLiteral:
		return compiler.RealType
	case *compiler.BoolLiteral:
		return compiler.BooleanType
	case *compiler.Identifier:
		if b, ok := c.lookup(e.Name); ok {
			return b.typ
		}
	case *compiler.This:
		return c.thisType()
	case *compiler.ConstructorCall:
		return c.constructedType(e)
	case *compiler.MemberAccess:
		if acc, err := c.resolveMember(e); err == nil {
			return acc.typ
		}
	case *compiler.Call:
		if plan, err := c.resolveCall(e); err == nil {
			return plan.ret
		}
	}
	return compiler.Unknown
}

func (c *bodyCtx) typesOf(args []compiler.Expr) []compiler.TypeRef {
	out := make([]compiler.TypeRef, len(args))
	for i, a := range args {
		out[i] = c.typeOf(a)
	}
	return out
}

// constructedType is the type a constructor call produces. A container
// written without a type argument takes its element type from the first
// argument of a List constructor.
func (c *bodyCtx) constructedType(cc *compiler.ConstructorCall) compiler.TypeRef {
	t := cc.Type
	if !c.g.reg.IsContainer(t.Name) || t.Arg != nil {
		return t
	}
	if t.Name == compiler.ListName && len(cc.Args) > 0 {
		return compiler.Generic(compiler.ListName, c.typeOf(cc.Args[0]))
	}
	return compiler.Generic(t.Name, compiler.Unknown)
}

func substituteFor(owner *Pending, receiver, t compiler.TypeRef) compiler.TypeRef {
	param := owner.Decl.GenericParam
	if param == "" || receiver.Arg == nil {
		return t
	}
	return t.Substitute(param, *receiver.Arg)
}

// typeArg is the concrete element type a container operation is
// instantiated with, or "" for the value types and open containers.
func (g *Generator) typeArg(t compiler.TypeRef) string {
	if !g.reg.IsContainer(t.Name) || t.Arg == nil || t.Arg.IsUnknown() {
		return ""
	}
	return t.Arg.String()
}

// ---------------------------------------------------------------------------
// Member access and call resolution
// ---------------------------------------------------------------------------

// access is a resolved target.member without arguments.
type access struct {
	field  *fieldEntry         // user class field
	native *compiler.Signature // zero-argument built-in method
	recv   compiler.TypeRef
	typ    compiler.TypeRef
}

func (c *bodyCtx) resolveMember(m *compiler.MemberAccess) (access, error) {
	tt := c.typeOf(m.Target)
	acc := access{recv: tt}
	switch {
	case tt.IsUnknown():
		return acc, c.errorf("member %s of a value of unknown type", m.Member)
	case c.g.reg.IsBuiltIn(tt.Name):
		for _, s := range c.g.reg.BuiltInMethods(tt.Name, m.Member) {
			if len(s.Params) == 0 {
				s := s
				acc.native = &s
				acc.typ = s.Instantiate(tt.Element()).Return
				return acc, nil
			}
		}
	default:
		if p := c.g.pending[tt.Name]; p != nil {
			if f, owner := p.field(m.Member); f != nil {
				acc.field = f
				acc.typ = substituteFor(owner, tt, c.g.fieldType(owner, f))
				return acc, nil
			}
		}
	}
	return acc, c.errorf("%s has no member %s", tt, m.Member)
}

type planKind int

const (
	planVirtual planKind = iota // user method, CALLVIRT
	planNew                     // user constructor, NEW_OBJ
	planNative                  // built-in operation, CALL_NATIVE
	planRepeat                  // List[T](x, n), lowered to a loop
)

// callPlan is a resolved call or constructor call.
type callPlan struct {
	kind planKind
	recv compiler.Expr // nil for self calls and constructors

	token    bytecode.MethodToken
	template string
	typeArg  string

	args   []compiler.Expr
	params []compiler.TypeRef
	ret    compiler.TypeRef
}

// candidate is one overload visible on a receiver.
type candidate struct {
	member *member
	params []compiler.TypeRef
	ret    compiler.TypeRef
}

// methodCandidates lists the methods named name visible on receiver type
// recv of class p: nearest class first, overridden signatures skipped.
func methodCandidates(p *Pending, name string, recv compiler.TypeRef) []candidate {
	var out []candidate
	for owner := p; owner != nil; owner = owner.Base {
		for _, m := range owner.byName[name] {
			shadowed := false
			for _, e := range out {
				if compiler.SameTypes(e.member.Params, m.Params) {
					shadowed = true
					break
				}
			}
			if shadowed {
				continue
			}
			params := make([]compiler.TypeRef, len(m.Params))
			for i, t := range m.Params {
				params[i] = substituteFor(owner, recv, t)
			}
			out = append(out, candidate{member: m, params: params, ret: substituteFor(owner, recv, m.Return)})
		}
	}
	return out
}

// selectIndex runs overload selection. An ambiguity is tolerated only when
// an argument type is unknown, in which case the first accepting candidate
// is used.
func (c *bodyCtx) selectIndex(what string, params [][]compiler.TypeRef, args []compiler.TypeRef) (int, error) {
	i, res := compiler.SelectOverload(c.g.reg, params, args)
	switch res {
	case compiler.Resolved:
		return i, nil
	case compiler.Ambiguous:
		for _, a := range args {
			if a.IsUnknown() {
				return i, nil
			}
		}
		return -1, c.errorf("ambiguous call to %s(%s)", what, joinTypes(args))
	case compiler.NoArity:
		return -1, c.errorf("no %s takes %d arguments", what, len(args))
	}
	return -1, c.errorf("no %s accepts (%s)", what, joinTypes(args))
}

func joinTypes(ts []compiler.TypeRef) string {
	s := sigKey("", ts)
	return s[1 : len(s)-1]
}

func (c *bodyCtx) resolveCall(call *compiler.Call) (*callPlan, error) {
	args := c.typesOf(call.Args)
	plan := &callPlan{args: call.Args}

	switch callee := call.Callee.(type) {
	case *compiler.Identifier:
		return c.userCall(plan, c.class, c.thisType(), callee.Name, args)

	case *compiler.MemberAccess:
		plan.recv = callee.Target
		tt := c.typeOf(callee.Target)
		switch {
		case tt.IsUnknown():
			return nil, c.errorf("call to %s on a value of unknown type", callee.Member)
		case c.g.reg.IsBuiltIn(tt.Name):
			sigs := c.g.reg.BuiltInMethods(tt.Name, callee.Member)
			inst := make([][]compiler.TypeRef, len(sigs))
			for i, s := range sigs {
				inst[i] = s.Instantiate(tt.Element()).Params
			}
			i, err := c.selectIndex(tt.Name+"."+callee.Member, inst, args)
			if err != nil {
				return nil, err
			}
			plan.kind = planNative
			plan.template = sigs[i].Key()
			plan.typeArg = c.g.typeArg(tt)
			plan.params = inst[i]
			plan.ret = sigs[i].Instantiate(tt.Element()).Return
			return plan, nil
		}
		p := c.g.pending[tt.Name]
		if p == nil {
			return nil, c.errorf("call to %s on unknown class %s", callee.Member, tt)
		}
		return c.userCall(plan, p, tt, callee.Member, args)
	}
	return nil, c.errorf("unsupported callee %T", call.Callee)
}

func (c *bodyCtx) userCall(plan *callPlan, p *Pending, recv compiler.TypeRef, name string, args []compiler.TypeRef) (*callPlan, error) {
	cands := methodCandidates(p, name, recv)
	params := make([][]compiler.TypeRef, len(cands))
	for i, cand := range cands {
		params[i] = cand.params
	}
	i, err := c.selectIndex(p.Name()+"."+name, params, args)
	if err != nil {
		return nil, err
	}
	plan.kind = planVirtual
	plan.token = cands[i].member.Token
	plan.params = cands[i].params
	plan.ret = cands[i].ret
	return plan, nil
}

func (c *bodyCtx) resolveConstructor(cc *compiler.ConstructorCall) (*callPlan, error) {
	t := c.constructedType(cc)
	args := c.typesOf(cc.Args)
	plan := &callPlan{args: cc.Args, ret: t}

	if p := c.g.pending[t.Name]; p != nil {
		params := make([][]compiler.TypeRef, len(p.Ctors))
		for i, ctor := range p.Ctors {
			params[i] = make([]compiler.TypeRef, len(ctor.Params))
			for j, pt := range ctor.Params {
				params[i][j] = substituteFor(p, t, pt)
			}
		}
		i, err := c.selectIndex(p.Name()+" constructor", params, args)
		if err != nil {
			return nil, err
		}
		plan.kind = planNew
		plan.token = p.Ctors[i].Token
		plan.params = params[i]
		return plan, nil
	}

	if !c.g.reg.IsBuiltIn(t.Name) {
		return nil, c.errorf("constructor of unknown class %s", t)
	}
	sigs := c.g.reg.BuiltInConstructors(t.Name)
	inst := make([][]compiler.TypeRef, len(sigs))
	for i, s := range sigs {
		inst[i] = s.Instantiate(t.Element()).Params
	}
	i, err := c.selectIndex(t.Name+" constructor", inst, args)
	if err != nil {
		return nil, err
	}
	plan.kind = planNative
	if t.Name == compiler.ListName && len(sigs[i].Params) == 2 {
		plan.kind = planRepeat
	}
	plan.template = sigs[i].Key()
	plan.typeArg = c.g.typeArg(t)
	plan.params = inst[i]
	return plan, nil
}
