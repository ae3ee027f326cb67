package compiler

// ---------------------------------------------------------------------------
// Walker: visits every member body while maintaining the symbol table
// ---------------------------------------------------------------------------

// hooks are the callbacks of one check. Any of them may be nil.
type hooks struct {
	class  func(w *walker)
	member func(w *walker)
	stmt   func(w *walker, s Stmt)
	expr   func(w *walker, e Expr)
}

// walker carries the lexical context of the node being visited.
type walker struct {
	v      *Validator
	h      hooks
	class  *ClassDecl
	member Member // enclosing field, constructor or method
	syms   *SymbolTable
}

// walk visits every class of prog with h.
func (v *Validator) walk(prog *Program, h hooks) {
	for _, class := range prog.Classes {
		w := &walker{v: v, h: h, class: class}
		w.walkClass()
	}
}

// walkClass binds the inherited fields, then visits each field initializer
// (seeing only earlier fields), then each constructor and method body
// (seeing every field).
func (w *walker) walkClass() {
	w.syms = NewSymbolTable()
	w.syms.EnterScope()
	if w.h.class != nil {
		w.h.class(w)
	}
	w.bindInheritedFields()

	for _, f := range w.class.Fields() {
		w.member = f
		if w.h.member != nil {
			w.h.member(w)
		}
		w.walkExpr(f.Init)
		w.syms.AddSymbol(f.Name, w.v.fieldSymbol(w.class, f))
	}

	for _, m := range w.class.Members {
		switch m := m.(type) {
		case *ConstructorDecl:
			w.walkCallable(m, m.Params, m.Body)
		case *MethodDecl:
			w.walkCallable(m, m.Params, m.Body)
		}
	}
	w.member = nil
}

func (w *walker) walkCallable(m Member, params []Param, body []Stmt) {
	w.member = m
	if w.h.member != nil {
		w.h.member(w)
	}
	w.syms.EnterScope()
	for _, p := range params {
		w.syms.AddSymbol(p.Name, NewSymbol(p.Name, p.Type, ParamSymbol))
	}
	w.walkStmts(body)
	w.syms.ExitScope()
}

// bindInheritedFields binds the fields of every base class, farthest first,
// so nearer declarations win.
func (w *walker) bindInheritedFields() {
	var chain []*ClassDecl
	for _, decl := range w.v.reg.Ancestors(w.class.BaseName) {
		if decl == w.class {
			break
		}
		chain = append(chain, decl)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields() {
			w.syms.AddSymbol(f.Name, w.v.fieldSymbol(chain[i], f))
		}
	}
}

func (w *walker) walkStmts(stmts []Stmt) {
	for _, s := range stmts {
		w.walkStmt(s)
	}
}

func (w *walker) walkBlock(stmts []Stmt) {
	w.syms.EnterScope()
	w.walkStmts(stmts)
	w.syms.ExitScope()
}

func (w *walker) walkStmt(s Stmt) {
	if w.h.stmt != nil {
		w.h.stmt(w, s)
	}
	switch s := s.(type) {
	case *VarDecl:
		w.walkExpr(s.Init)
		sym := NewSymbol(s.Name, w.v.typeOf(w, s.Init), LocalSymbol)
		sym.Len = staticArrayLen(s.Init)
		w.syms.AddSymbol(s.Name, sym)

	case *Assignment:
		w.walkExpr(s.Target)
		w.walkExpr(s.Value)
		w.rebind(s)

	case *ExprStmt:
		w.walkExpr(s.Expr)

	case *Return:
		if s.Value != nil {
			w.walkExpr(s.Value)
		}

	case *If:
		w.walkExpr(s.Cond)
		w.walkBlock(s.Then)
		w.walkBlock(s.Else)

	case *While:
		w.walkExpr(s.Cond)
		w.walkBlock(s.Body)
	}
}

// rebind keeps a local's static array length in step with assignments. An
// assignment in a nested block may not run, so the length becomes unknown.
func (w *walker) rebind(a *Assignment) {
	id, ok := a.Target.(*Identifier)
	if !ok {
		return
	}
	sym, ok := w.syms.Lookup(id.Name)
	if !ok || sym.Len < 0 {
		return
	}
	if _, local := w.syms.LookupLocal(id.Name); local {
		sym.Len = staticArrayLen(a.Value)
	} else {
		sym.Len = -1
	}
	w.syms.Update(id.Name, sym)
}

// walkExpr visits e and its subexpressions, pre-order. The callee of a call
// is not visited as an expression: a method name is not a variable.
func (w *walker) walkExpr(e Expr) {
	if e == nil {
		return
	}
	if w.h.expr != nil {
		w.h.expr(w, e)
	}
	switch e := e.(type) {
	case *ConstructorCall:
		for _, arg := range e.Args {
			w.walkExpr(arg)
		}
	case *Call:
		if m, ok := e.Callee.(*MemberAccess); ok {
			w.walkExpr(m.Target)
		}
		for _, arg := range e.Args {
			w.walkExpr(arg)
		}
	case *MemberAccess:
		w.walkExpr(e.Target)
	}
}

// method returns the enclosing method, or nil.
func (w *walker) method() *MethodDecl {
	m, _ := w.member.(*MethodDecl)
	return m
}

// inBody reports whether the walker is inside a constructor or method.
func (w *walker) inBody() bool {
	switch w.member.(type) {
	case *ConstructorDecl, *MethodDecl:
		return true
	}
	return false
}

// staticArrayLen returns n for Array[T](n) with a literal n, or -1.
func staticArrayLen(e Expr) int64 {
	cc, ok := e.(*ConstructorCall)
	if !ok || cc.Type.Name != ArrayName || len(cc.Args) != 1 {
		return -1
	}
	lit, ok := cc.Args[0].(*IntLiteral)
	if !ok || lit.Value < 0 {
		return -1
	}
	return lit.Value
}
