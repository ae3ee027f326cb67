package codegen

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/niotu/CompilerConstrction-sub000/compiler"
	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
)

// Built-in operations the List[T](x, n) lowering calls.
const (
	listNewEmpty   = "List.new()"
	listAppend     = "List.append(T)"
	integerGreater = "Integer.Greater(Integer)"
	integerMinus   = "Integer.Minus(Integer)"
)

// ---------------------------------------------------------------------------
// Callables
// ---------------------------------------------------------------------------

// emitConstructor generates a constructor: the base class's no-argument
// constructor, then the class's own field initializers, then the body.
func (g *Generator) emitConstructor(p *Pending, ctor *member) error {
	var params []compiler.Param
	var body []compiler.Stmt
	if ctor.Ctor != nil {
		params = ctor.Ctor.Params
		body = ctor.Ctor.Body
	}
	c := g.newBodyCtx(p, bytecode.CtorMethodName, params)

	if p.Base != nil {
		base, ok := p.Base.Constructor(nil)
		if !ok {
			return c.errorf("base class %s has no constructor without parameters", p.Base.Name())
		}
		c.chunk.Emit(bytecode.OpLoadThis)
		if err := c.chunk.EmitCall(bytecode.OpCall, int(base.Token), 0); err != nil {
			return c.wrap(err)
		}
	}

	c.hideParams = true
	for _, f := range p.Fields {
		c.fieldLimit = f
		c.mark(f.Decl)
		c.chunk.Emit(bytecode.OpLoadThis)
		if _, err := c.emitExpr(f.Decl.Init); err != nil {
			return err
		}
		if err := c.chunk.EmitToken(bytecode.OpStoreField, int(f.Token)); err != nil {
			return c.wrap(err)
		}
	}
	c.hideParams = false
	c.fieldLimit = nil

	if err := c.emitStmts(body); err != nil {
		return err
	}
	c.chunk.Emit(bytecode.OpReturnVoid)
	return g.attach(c, ctor)
}

func (g *Generator) emitMethod(p *Pending, m *member) error {
	c := g.newBodyCtx(p, m.Name, m.Method.Params)
	c.ret = m.Return
	if err := c.emitStmts(m.Method.Body); err != nil {
		return err
	}
	if !endsInReturn(m.Method.Body) {
		c.chunk.Emit(bytecode.OpReturnVoid)
	}
	return g.attach(c, m)
}

// attach fills in the chunk's frame layout and hands it to the target.
func (g *Generator) attach(c *bodyCtx, m *member) error {
	params, err := safecast.Conv[uint8](len(c.params))
	if err != nil {
		return c.errorf("too many parameters")
	}
	locals, err := safecast.Conv[uint8](c.nlocals)
	if err != nil {
		return c.errorf("too many local variables")
	}
	c.chunk.ParamCount = params
	c.chunk.LocalCount = locals
	for _, p := range c.params {
		c.chunk.ParamNames = append(c.chunk.ParamNames, p.Name)
	}
	if err := g.target.EmitBody(m.Token, c.chunk); err != nil {
		return fmt.Errorf("codegen: %s.%s: %w", c.class.Name(), c.member, err)
	}
	g.tracer.Debugf("emitted %s.%s(%s): %d bytes", c.class.Name(), m.Name, joinTypes(m.Params), c.chunk.CodeLen())
	return nil
}

func endsInReturn(body []compiler.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*compiler.Return)
	return ok
}

func (c *bodyCtx) wrap(err error) error {
	return &ContractError{Class: c.class.Name(), Member: c.member, Msg: err.Error()}
}

// mark records the source position of the next instruction.
func (c *bodyCtx) mark(n compiler.Node) {
	pos := n.Span().Start
	line, err := safecast.Conv[uint32](pos.Line)
	if err != nil {
		return
	}
	col, err := safecast.Conv[uint16](pos.Column)
	if err != nil {
		return
	}
	off, err := safecast.Conv[uint32](c.chunk.CurrentOffset())
	if err != nil {
		return
	}
	c.chunk.AddSourceLocation(off, line, col)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *bodyCtx) emitStmts(stmts []compiler.Stmt) error {
	for _, s := range stmts {
		if err := c.emitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *bodyCtx) emitBlock(stmts []compiler.Stmt) error {
	c.enterScope()
	defer c.exitScope()
	return c.emitStmts(stmts)
}

func (c *bodyCtx) emitStmt(s compiler.Stmt) error {
	c.mark(s)
	switch s := s.(type) {
	case *compiler.VarDecl:
		t, err := c.emitExpr(s.Init)
		if err != nil {
			return err
		}
		slot := c.declareLocal(s.Name, t)
		return c.check(c.chunk.EmitSlot(bytecode.OpStoreLocal, slot))

	case *compiler.Assignment:
		return c.emitAssignment(s)

	case *compiler.ExprStmt:
		t, err := c.emitExpr(s.Expr)
		if err != nil {
			return err
		}
		if !t.IsVoid() {
			c.chunk.Emit(bytecode.OpPop)
		}
		return nil

	case *compiler.Return:
		if s.Value == nil {
			c.chunk.Emit(bytecode.OpReturnVoid)
			return nil
		}
		if err := c.emitConverted(s.Value, c.ret); err != nil {
			return err
		}
		c.chunk.Emit(bytecode.OpReturn)
		return nil

	case *compiler.If:
		if err := c.emitCondition(s.Cond); err != nil {
			return err
		}
		elseJump := c.chunk.EmitJump(bytecode.OpJumpFalse)
		if err := c.emitBlock(s.Then); err != nil {
			return err
		}
		if len(s.Else) == 0 {
			return c.check(c.chunk.PatchJump(elseJump))
		}
		endJump := c.chunk.EmitJump(bytecode.OpJump)
		if err := c.chunk.PatchJump(elseJump); err != nil {
			return c.wrap(err)
		}
		if err := c.emitBlock(s.Else); err != nil {
			return err
		}
		return c.check(c.chunk.PatchJump(endJump))

	case *compiler.While:
		start := c.chunk.CurrentOffset()
		if err := c.emitCondition(s.Cond); err != nil {
			return err
		}
		exit := c.chunk.EmitJump(bytecode.OpJumpFalse)
		if err := c.emitBlock(s.Body); err != nil {
			return err
		}
		if err := c.chunk.EmitLoop(start); err != nil {
			return c.wrap(err)
		}
		return c.check(c.chunk.PatchJump(exit))
	}
	return c.errorf("unsupported statement %T", s)
}

func (c *bodyCtx) check(err error) error {
	if err != nil {
		return c.wrap(err)
	}
	return nil
}

func (c *bodyCtx) emitCondition(cond compiler.Expr) error {
	t, err := c.emitExpr(cond)
	if err != nil {
		return err
	}
	if !t.IsUnknown() && !t.Equal(compiler.BooleanType) {
		return c.errorf("condition has type %s", t)
	}
	return nil
}

func (c *bodyCtx) emitAssignment(a *compiler.Assignment) error {
	switch target := a.Target.(type) {
	case *compiler.Identifier:
		b, ok := c.lookup(target.Name)
		if !ok {
			return c.errorf("assignment to undeclared %s", target.Name)
		}
		switch b.kind {
		case compiler.LocalSymbol:
			if err := c.emitConverted(a.Value, b.typ); err != nil {
				return err
			}
			return c.check(c.chunk.EmitSlot(bytecode.OpStoreLocal, b.slot))
		case compiler.ParamSymbol:
			if err := c.emitConverted(a.Value, b.typ); err != nil {
				return err
			}
			return c.check(c.chunk.EmitSlot(bytecode.OpStoreParam, b.slot))
		}
		c.chunk.Emit(bytecode.OpLoadThis)
		if err := c.emitConverted(a.Value, b.typ); err != nil {
			return err
		}
		return c.check(c.chunk.EmitToken(bytecode.OpStoreField, int(b.field.Token)))

	case *compiler.MemberAccess:
		acc, err := c.resolveMember(target)
		if err != nil {
			return err
		}
		if acc.field == nil {
			return c.errorf("cannot assign to %s", target.Member)
		}
		if _, err := c.emitExpr(target.Target); err != nil {
			return err
		}
		if err := c.emitConverted(a.Value, acc.typ); err != nil {
			return err
		}
		return c.check(c.chunk.EmitToken(bytecode.OpStoreField, int(acc.field.Token)))
	}
	return c.errorf("cannot assign to %T", a.Target)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// emitConverted emits e and widens an Integer to Real when want is Real.
func (c *bodyCtx) emitConverted(e compiler.Expr, want compiler.TypeRef) error {
	t, err := c.emitExpr(e)
	if err != nil {
		return err
	}
	if t.Equal(compiler.IntegerType) && want.Equal(compiler.RealType) {
		c.chunk.Emit(bytecode.OpConvReal)
	}
	return nil
}

// emitExpr emits e and returns its static type. A Void expression leaves
// nothing on the stack; every other expression leaves one value.
func (c *bodyCtx) emitExpr(e compiler.Expr) (compiler.TypeRef, error) {
	switch e := e.(type) {
	case *compiler.IntLiteral:
		return compiler.IntegerType, c.check(c.chunk.EmitInt(e.Value))

	case *compiler.RealLiteral:
		return compiler.RealType, c.check(c.chunk.EmitReal(e.Value))

	case *compiler.BoolLiteral:
		if e.Value {
			c.chunk.Emit(bytecode.OpConstTrue)
		} else {
			c.chunk.Emit(bytecode.OpConstFalse)
		}
		return compiler.BooleanType, nil

	case *compiler.This:
		c.chunk.Emit(bytecode.OpLoadThis)
		return c.thisType(), nil

	case *compiler.Identifier:
		b, ok := c.lookup(e.Name)
		if !ok {
			return compiler.Unknown, c.errorf("undeclared %s", e.Name)
		}
		switch b.kind {
		case compiler.LocalSymbol:
			return b.typ, c.check(c.chunk.EmitSlot(bytecode.OpLoadLocal, b.slot))
		case compiler.ParamSymbol:
			return b.typ, c.check(c.chunk.EmitSlot(bytecode.OpLoadParam, b.slot))
		}
		c.chunk.Emit(bytecode.OpLoadThis)
		return b.typ, c.check(c.chunk.EmitToken(bytecode.OpLoadField, int(b.field.Token)))

	case *compiler.MemberAccess:
		acc, err := c.resolveMember(e)
		if err != nil {
			return compiler.Unknown, err
		}
		if _, err := c.emitExpr(e.Target); err != nil {
			return compiler.Unknown, err
		}
		if acc.field != nil {
			return acc.typ, c.check(c.chunk.EmitToken(bytecode.OpLoadField, int(acc.field.Token)))
		}
		plan := &callPlan{kind: planNative, template: acc.native.Key(), typeArg: c.g.typeArg(acc.recv), ret: acc.typ}
		return acc.typ, c.emitNative(plan, 1)

	case *compiler.Call:
		plan, err := c.resolveCall(e)
		if err != nil {
			return compiler.Unknown, err
		}
		return plan.ret, c.emitCall(plan)

	case *compiler.ConstructorCall:
		plan, err := c.resolveConstructor(e)
		if err != nil {
			return compiler.Unknown, err
		}
		if plan.kind == planRepeat {
			return plan.ret, c.emitRepeat(plan)
		}
		return plan.ret, c.emitCall(plan)
	}
	return compiler.Unknown, c.errorf("unsupported expression %T", e)
}

func (c *bodyCtx) emitArgs(plan *callPlan) error {
	for i, a := range plan.args {
		if err := c.emitConverted(a, plan.params[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *bodyCtx) emitCall(plan *callPlan) error {
	argc := len(plan.args)
	switch plan.kind {
	case planNew:
		if err := c.emitArgs(plan); err != nil {
			return err
		}
		return c.check(c.chunk.EmitCall(bytecode.OpNewObj, int(plan.token), argc))

	case planVirtual:
		if plan.recv == nil {
			c.chunk.Emit(bytecode.OpLoadThis)
		} else if _, err := c.emitExpr(plan.recv); err != nil {
			return err
		}
		if err := c.emitArgs(plan); err != nil {
			return err
		}
		return c.check(c.chunk.EmitCall(bytecode.OpCallVirt, int(plan.token), argc))
	}

	if plan.recv != nil {
		if _, err := c.emitExpr(plan.recv); err != nil {
			return err
		}
		argc++
	}
	if err := c.emitArgs(plan); err != nil {
		return err
	}
	return c.emitNative(plan, argc)
}

// emitNative calls a built-in operation. CALL_NATIVE always pushes a value,
// so the one produced by a Void operation is dropped.
func (c *bodyCtx) emitNative(plan *callPlan, argc int) error {
	tok, err := c.g.native(plan.template, plan.typeArg)
	if err != nil {
		return err
	}
	if err := c.chunk.EmitCall(bytecode.OpCallNative, int(tok), argc); err != nil {
		return c.wrap(err)
	}
	if plan.ret.IsVoid() {
		c.chunk.Emit(bytecode.OpPop)
	}
	return nil
}

// native imports template instantiated at typeArg once per compilation.
func (g *Generator) native(template, typeArg string) (bytecode.NativeToken, error) {
	key := nativeKey{template: template, typeArg: typeArg}
	if tok, ok := g.natives[key]; ok {
		return tok, nil
	}
	tok, err := g.target.ImportNative(template, typeArg)
	if err != nil {
		return 0, fmt.Errorf("codegen: import %s: %w", template, err)
	}
	g.natives[key] = tok
	g.tracer.Debugf("imported %s[%s]", template, typeArg)
	return tok, nil
}

// emitRepeat lowers List[T](x, n) to a loop appending x n times to an empty
// list.
func (c *bodyCtx) emitRepeat(plan *callPlan) error {
	elem := c.newTemp("$elem")
	count := c.newTemp("$count")
	list := c.newTemp("$list")
	ch := c.chunk

	if err := c.emitConverted(plan.args[0], plan.params[0]); err != nil {
		return err
	}
	if err := ch.EmitSlot(bytecode.OpStoreLocal, elem); err != nil {
		return c.wrap(err)
	}
	if err := c.emitConverted(plan.args[1], compiler.IntegerType); err != nil {
		return err
	}
	if err := ch.EmitSlot(bytecode.OpStoreLocal, count); err != nil {
		return c.wrap(err)
	}

	newEmpty, err := c.g.native(listNewEmpty, plan.typeArg)
	if err != nil {
		return err
	}
	appendTok, err := c.g.native(listAppend, plan.typeArg)
	if err != nil {
		return err
	}
	greater, err := c.g.native(integerGreater, "")
	if err != nil {
		return err
	}
	minus, err := c.g.native(integerMinus, "")
	if err != nil {
		return err
	}

	var start, exit int
	steps := []func() error{
		func() error { return ch.EmitCall(bytecode.OpCallNative, int(newEmpty), 0) },
		func() error { return ch.EmitSlot(bytecode.OpStoreLocal, list) },
		func() error { start = ch.CurrentOffset(); return ch.EmitSlot(bytecode.OpLoadLocal, count) },
		func() error { return ch.EmitInt(0) },
		func() error { return ch.EmitCall(bytecode.OpCallNative, int(greater), 2) },
		func() error { exit = ch.EmitJump(bytecode.OpJumpFalse); return nil },
		func() error { return ch.EmitSlot(bytecode.OpLoadLocal, list) },
		func() error { return ch.EmitSlot(bytecode.OpLoadLocal, elem) },
		func() error { return ch.EmitCall(bytecode.OpCallNative, int(appendTok), 2) },
		func() error { ch.Emit(bytecode.OpPop); return nil },
		func() error { return ch.EmitSlot(bytecode.OpLoadLocal, count) },
		func() error { return ch.EmitInt(1) },
		func() error { return ch.EmitCall(bytecode.OpCallNative, int(minus), 2) },
		func() error { return ch.EmitSlot(bytecode.OpStoreLocal, count) },
		func() error { return ch.EmitLoop(start) },
		func() error { return ch.PatchJump(exit) },
		func() error { return ch.EmitSlot(bytecode.OpLoadLocal, list) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return c.wrap(err)
		}
	}
	return nil
}
