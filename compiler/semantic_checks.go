package compiler

// ---------------------------------------------------------------------------
// The checks, in the order Validate runs them
// ---------------------------------------------------------------------------

// checkKeywordContext: return only inside constructor and method bodies,
// and every class named by extends, a signature or a constructor call must
// exist.
func (v *Validator) checkKeywordContext(prog *Program) {
	v.walk(prog, hooks{
		class: func(w *walker) {
			c := w.class
			if c.BaseName != "" && !v.reg.ClassExists(c.BaseName) {
				v.errorAt(UnknownClass, c, "class %s extends unknown class %s", c.Name, c.BaseName)
			}
		},
		member: func(w *walker) {
			switch m := w.member.(type) {
			case *ConstructorDecl:
				v.checkParamTypes(w.class, m.Params)
			case *MethodDecl:
				v.checkParamTypes(w.class, m.Params)
				if !m.ReturnType.IsVoid() {
					v.checkTypeExists(w.class, m, m.ReturnType)
				}
			}
		},
		stmt: func(w *walker, s Stmt) {
			if r, ok := s.(*Return); ok && !w.inBody() {
				v.errorAt(MissingOrInvalidReturn, r, "return outside of a method or constructor body")
			}
		},
		expr: func(w *walker, e Expr) {
			if cc, ok := e.(*ConstructorCall); ok {
				v.checkTypeExists(w.class, cc, cc.Type)
			}
		},
	})
}

func (v *Validator) checkParamTypes(class *ClassDecl, params []Param) {
	for i := range params {
		v.checkTypeExists(class, &params[i], params[i].Type)
	}
}

// checkTypeExists reports every class named by t that is neither declared
// nor the generic parameter of class.
func (v *Validator) checkTypeExists(class *ClassDecl, at Node, t TypeRef) {
	if t.IsUnknown() {
		return
	}
	if !v.reg.ClassExists(t.Name) && (class == nil || t.Name != class.GenericParam) {
		v.errorAt(UnknownClass, at, "unknown class %s", t.Name)
	}
	if t.Arg != nil {
		v.checkTypeExists(class, at, *t.Arg)
	}
}

// checkDeclarationBeforeUse: identifiers must be bound before use, called
// methods must exist in the class or a base, and accessed fields must exist.
func (v *Validator) checkDeclarationBeforeUse(prog *Program) {
	v.walk(prog, hooks{
		expr: func(w *walker, e Expr) {
			switch e := e.(type) {
			case *Identifier:
				if _, ok := w.syms.Lookup(e.Name); !ok && !v.reg.ClassExists(e.Name) && !v.namesMethod(w, e.Name) {
					v.errorAt(UndeclaredIdentifier, e, "%s is not declared", e.Name)
				}
			case *Call:
				id, ok := e.Callee.(*Identifier)
				if ok && w.class != nil && !v.reg.HasMethod(w.class.Name, id.Name) {
					v.errorAt(UndeclaredIdentifier, e, "method %s is not declared in class %s or its bases", id.Name, w.class.Name)
				}
			case *MemberAccess:
				if _, onThis := e.Target.(*This); onThis {
					return
				}
				tt := v.typeOf(w, e.Target)
				if v.reg.Class(tt.Name) == nil {
					return
				}
				if fd, _ := v.reg.LookupField(tt.Name, e.Member); fd == nil {
					v.errorAt(UndeclaredIdentifier, e, "class %s has no field %s", tt.Name, e.Member)
				}
			}
		},
	})
}

// namesMethod reports whether name is a method of the enclosing class or
// one of its bases.
func (v *Validator) namesMethod(w *walker, name string) bool {
	return w.class != nil && v.reg.HasMethod(w.class.Name, name)
}

// checkHierarchy: no inheritance cycles and no final or container bases.
// A cycle is reported once for every class on it.
func (v *Validator) checkHierarchy(prog *Program) {
	for _, c := range v.reg.Classes() {
		if v.onCycle(c) {
			v.errorAt(CyclicInheritance, c, "class %s inherits from itself", c.Name)
			continue
		}
		switch {
		case c.BaseName == "":
		case v.reg.IsFinal(c.BaseName):
			v.errorAt(InvalidBaseClass, c, "class %s cannot extend final class %s", c.Name, c.BaseName)
		case v.reg.IsContainer(c.BaseName):
			v.errorAt(InvalidBaseClass, c, "class %s cannot extend built-in container %s", c.Name, c.BaseName)
		}
	}
}

// onCycle reports whether walking c's base chain leads back to c.
func (v *Validator) onCycle(c *ClassDecl) bool {
	seen := make(map[string]bool)
	for cur := v.reg.BaseClass(c); cur != nil && !seen[cur.Name]; cur = v.reg.BaseClass(cur) {
		if cur == c {
			return true
		}
		seen[cur.Name] = true
	}
	return false
}

// checkOverrides: a method matching a base method by name and parameter
// types must return the same type.
func (v *Validator) checkOverrides(prog *Program) {
	for _, c := range v.reg.Classes() {
		for _, m := range c.Methods() {
			if m.Forward {
				continue
			}
			params := ParamTypes(m.Params)
			for _, base := range v.reg.Ancestors(c.BaseName) {
				if base == c {
					break
				}
				bm := findMethod(base, m.Name, params)
				if bm == nil {
					continue
				}
				if !bm.ReturnType.Equal(m.ReturnType) {
					v.errorAt(InvalidOverride, m, "%s.%s(%s) returns %s but overrides %s.%s returning %s",
						c.Name, m.Name, typeList(params), m.ReturnType, base.Name, bm.Name, bm.ReturnType)
				}
				break
			}
		}
	}
}

// findMethod returns decl's first method with the given name and parameter
// types, forward declarations included.
func findMethod(decl *ClassDecl, name string, params []TypeRef) *MethodDecl {
	for _, m := range decl.Methods() {
		if m.Name == name && SameTypes(ParamTypes(m.Params), params) {
			return m
		}
	}
	return nil
}

// checkTypes: assignments, conditions and method calls.
func (v *Validator) checkTypes(prog *Program) {
	v.walk(prog, hooks{
		stmt: func(w *walker, s Stmt) {
			switch s := s.(type) {
			case *VarDecl:
				if v.typeOf(w, s.Init).IsVoid() {
					v.errorAt(TypeMismatch, s, "initializer of %s has no value", s.Name)
				}
			case *Assignment:
				if _, ok := s.Target.(*This); ok {
					return
				}
				lt, rt := v.typeOf(w, s.Target), v.typeOf(w, s.Value)
				if rt.IsVoid() {
					v.errorAt(TypeMismatch, s, "assigned expression has no value")
				} else if !v.reg.Assignable(rt, lt) {
					v.errorAt(TypeMismatch, s, "cannot assign %s to %s", rt, lt)
				}
			case *If:
				v.checkCondition(w, s.Cond)
			case *While:
				v.checkCondition(w, s.Cond)
			}
		},
		expr: func(w *walker, e Expr) {
			switch e := e.(type) {
			case *Identifier:
				if _, ok := w.syms.Lookup(e.Name); !ok && !v.reg.ClassExists(e.Name) && v.namesMethod(w, e.Name) {
					v.errorAt(TypeMismatch, e, "method %s is not a value; call it as %s(...)", e.Name, e.Name)
				}
			case *Call:
				v.checkCall(w, e)
			case *MemberAccess:
				tt := v.typeOf(w, e.Target)
				if !v.reg.IsBuiltIn(tt.Name) {
					return
				}
				if _, ok := v.memberType(w, e); !ok {
					v.errorAt(ConstructorOrMethodNotFound, e, "%s has no member %s", tt, e.Member)
				}
			}
		},
	})
}

func (v *Validator) checkCondition(w *walker, cond Expr) {
	t := v.typeOf(w, cond)
	if !t.IsUnknown() && !t.Equal(BooleanType) {
		v.errorAt(TypeMismatch, cond, "condition must be Boolean, got %s", t)
	}
}

func (v *Validator) checkCall(w *walker, call *Call) {
	site := v.resolveCall(w, call)
	switch site.kind {
	case callUnresolved:
		return
	case callSelf:
		if len(site.params) == 0 {
			return // reported as undeclared
		}
	case callUser:
		m, _ := call.Callee.(*MemberAccess)
		if _, onThis := m.Target.(*This); onThis && len(site.params) == 0 {
			return // reported as invalid self reference
		}
	case callBuiltin:
		if isBadArrayIndex(site) {
			return // reported by the index check
		}
	}

	if len(site.params) == 0 {
		v.errorAt(ConstructorOrMethodNotFound, call, "%s has no method %s", site.receiver, site.name)
		return
	}
	v.reportResolution(call, site.res, site.receiver.String()+"."+site.name, site.args)
}

// reportResolution turns a failed overload selection into a diagnostic.
func (v *Validator) reportResolution(at Node, res Resolution, what string, args []TypeRef) {
	switch res {
	case NoArity:
		v.errorAt(ConstructorOrMethodNotFound, at, "no overload of %s takes %d arguments", what, len(args))
	case NoCompatible:
		v.errorAt(TypeMismatch, at, "no overload of %s accepts (%s)", what, typeList(args))
	case Ambiguous:
		if !hasUnknown(args) {
			v.errorAt(AmbiguousCall, at, "call %s(%s) matches several overloads", what, typeList(args))
		}
	}
}

func isBadArrayIndex(site callSite) bool {
	if site.receiver.Name != ArrayName || (site.name != "get" && site.name != "set") || len(site.args) == 0 {
		return false
	}
	idx := site.args[0]
	return !idx.IsUnknown() && !idx.Equal(IntegerType)
}

// checkConstructorCalls: every constructor call matches a constructor, and
// every base class offers the no-argument constructor that derived
// constructors invoke implicitly.
func (v *Validator) checkConstructorCalls(prog *Program) {
	for _, c := range v.reg.Classes() {
		base := v.reg.BaseClass(c)
		if base == nil || v.onCycle(c) {
			continue
		}
		hasDefault := false
		for _, params := range v.reg.ConstructorSignatures(base.Name) {
			if len(params) == 0 {
				hasDefault = true
			}
		}
		if !hasDefault {
			v.errorAt(ConstructorOrMethodNotFound, c, "class %s extends %s, which has no no-argument constructor", c.Name, base.Name)
		}
	}

	v.walk(prog, hooks{
		expr: func(w *walker, e Expr) {
			cc, ok := e.(*ConstructorCall)
			if !ok || !v.reg.ClassExists(cc.Type.Name) {
				return
			}
			args := make([]TypeRef, len(cc.Args))
			for i, arg := range cc.Args {
				args[i] = v.typeOf(w, arg)
			}

			var candidates [][]TypeRef
			if v.reg.IsBuiltIn(cc.Type.Name) {
				elem := v.constructedType(w, cc).Element()
				for _, s := range v.reg.BuiltInConstructors(cc.Type.Name) {
					candidates = append(candidates, s.Instantiate(elem).Params)
				}
			} else {
				decl := v.reg.Class(cc.Type.Name)
				for _, params := range v.reg.ConstructorSignatures(cc.Type.Name) {
					sub := make([]TypeRef, len(params))
					for i, p := range params {
						sub[i] = substituteFor(decl, cc.Type, p)
					}
					candidates = append(candidates, sub)
				}
			}

			_, res := SelectOverload(v.reg, candidates, args)
			v.reportResolution(cc, res, "constructor "+cc.Type.String(), args)
		},
	})
}

// checkForwardDeclarations: every forward declaration is implemented by
// exactly one method with the same name, parameter types and return type,
// declared in its class or in a class derived from it.
func (v *Validator) checkForwardDeclarations(prog *Program) {
	for _, c := range prog.Classes {
		for _, fwd := range c.Methods() {
			if !fwd.Forward {
				continue
			}
			params := ParamTypes(fwd.Params)
			impls := 0
			for _, other := range prog.Classes {
				if !v.reg.IsSubclassOf(other.Name, c.Name) {
					continue
				}
				for _, m := range other.Methods() {
					if !m.Forward && m.Name == fwd.Name && SameTypes(ParamTypes(m.Params), params) && m.ReturnType.Equal(fwd.ReturnType) {
						impls++
					}
				}
			}
			switch {
			case impls == 0:
				v.errorAt(UnimplementedForwardDeclaration, fwd, "forward declaration %s.%s(%s) is never implemented",
					c.Name, fwd.Name, typeList(params))
			case impls > 1:
				v.errorAt(UnimplementedForwardDeclaration, fwd, "forward declaration %s.%s(%s) has %d implementations, want exactly one",
					c.Name, fwd.Name, typeList(params), impls)
			}
		}
	}
}

// checkThisUsage: 'this' is never assigned, never used outside a class, and
// this.x names an existing member.
func (v *Validator) checkThisUsage(prog *Program) {
	v.walk(prog, hooks{
		stmt: func(w *walker, s Stmt) {
			if a, ok := s.(*Assignment); ok {
				if _, isThis := a.Target.(*This); isThis {
					v.errorAt(InvalidThisUsage, a, "cannot assign to this")
				}
			}
		},
		expr: func(w *walker, e Expr) {
			switch e := e.(type) {
			case *This:
				if w.class == nil {
					v.errorAt(InvalidThisUsage, e, "this used outside of a class")
				}
			case *MemberAccess:
				if _, onThis := e.Target.(*This); onThis && w.class != nil {
					if fd, _ := v.reg.LookupField(w.class.Name, e.Member); fd == nil {
						v.errorAt(InvalidThisUsage, e, "this.%s: class %s has no field %s", e.Member, w.class.Name, e.Member)
					}
				}
			case *Call:
				m, ok := e.Callee.(*MemberAccess)
				if !ok || w.class == nil {
					return
				}
				if _, onThis := m.Target.(*This); onThis && !v.reg.HasMethod(w.class.Name, m.Member) {
					v.errorAt(InvalidThisUsage, e, "this.%s: class %s has no method %s", m.Member, w.class.Name, m.Member)
				}
			}
		},
	})
}

// checkReturns: methods with a return type return a compatible value, and
// methods without one and constructors never return a value.
func (v *Validator) checkReturns(prog *Program) {
	v.walk(prog, hooks{
		member: func(w *walker) {
			m := w.method()
			if m == nil || m.Forward || m.ReturnType.IsVoid() {
				return
			}
			if !containsReturn(m.Body) {
				v.errorAt(MissingOrInvalidReturn, m, "method %s must return a value of type %s", m.Name, m.ReturnType)
			}
		},
		stmt: func(w *walker, s Stmt) {
			r, ok := s.(*Return)
			if !ok {
				return
			}
			m := w.method()
			if m == nil {
				if _, isCtor := w.member.(*ConstructorDecl); isCtor && r.Value != nil {
					v.errorAt(MissingOrInvalidReturn, r, "constructor cannot return a value")
				}
				return
			}
			switch {
			case m.ReturnType.IsVoid():
				if r.Value != nil {
					v.errorAt(MissingOrInvalidReturn, r, "method %s has no return type but returns a value", m.Name)
				}
			case r.Value == nil:
				v.errorAt(MissingOrInvalidReturn, r, "method %s must return a value of type %s", m.Name, m.ReturnType)
			default:
				rt := v.typeOf(w, r.Value)
				if rt.IsVoid() || !v.reg.Assignable(rt, m.ReturnType) {
					v.errorAt(MissingOrInvalidReturn, r, "method %s returns %s, declared %s", m.Name, rt, m.ReturnType)
				}
			}
		},
	})
}

// containsReturn reports whether any statement of stmts, at any depth, is a
// return.
func containsReturn(stmts []Stmt) bool {
	for _, s := range stmts {
		switch s := s.(type) {
		case *Return:
			return true
		case *If:
			if containsReturn(s.Then) || containsReturn(s.Else) {
				return true
			}
		case *While:
			if containsReturn(s.Body) {
				return true
			}
		}
	}
	return false
}

// checkIndexAndSize: array indices are Integer, literal indices are not
// negative nor past a statically known length, and literal array sizes are
// not negative. A literal zero size is only a warning.
func (v *Validator) checkIndexAndSize(prog *Program) {
	v.walk(prog, hooks{
		expr: func(w *walker, e Expr) {
			switch e := e.(type) {
			case *ConstructorCall:
				if e.Type.Name != ArrayName || len(e.Args) != 1 {
					return
				}
				if lit, ok := e.Args[0].(*IntLiteral); ok {
					if lit.Value < 0 {
						v.errorAt(InvalidArrayIndexOrSize, lit, "array size %d is negative", lit.Value)
					} else if lit.Value == 0 {
						v.warnAt(InvalidArrayIndexOrSize, lit, "array size is zero")
					}
				}
			case *Call:
				m, ok := e.Callee.(*MemberAccess)
				if !ok || (m.Member != "get" && m.Member != "set") || len(e.Args) == 0 {
					return
				}
				if v.typeOf(w, m.Target).Name != ArrayName {
					return
				}
				idx := e.Args[0]
				if t := v.typeOf(w, idx); !t.IsUnknown() && !t.Equal(IntegerType) {
					v.errorAt(InvalidArrayIndexOrSize, idx, "array index must be Integer, got %s", t)
					return
				}
				lit, ok := idx.(*IntLiteral)
				if !ok {
					return
				}
				if lit.Value < 0 {
					v.errorAt(InvalidArrayIndexOrSize, lit, "array index %d is negative", lit.Value)
				} else if n := v.staticLenOf(w, m.Target); n >= 0 && lit.Value >= n {
					v.errorAt(InvalidArrayIndexOrSize, lit, "array index %d is out of bounds for length %d", lit.Value, n)
				}
			}
		},
	})
}

// staticLenOf returns the statically known length of the array e denotes,
// or -1.
func (v *Validator) staticLenOf(w *walker, e Expr) int64 {
	switch e := e.(type) {
	case *Identifier:
		if sym, ok := w.syms.Lookup(e.Name); ok {
			return sym.Len
		}
	case *MemberAccess:
		if _, onThis := e.Target.(*This); onThis && w.class != nil {
			if fd, owner := v.reg.LookupField(w.class.Name, e.Member); fd != nil {
				return v.fieldSymbol(owner, fd).Len
			}
		}
	case *ConstructorCall:
		return staticArrayLen(e)
	}
	return -1
}

// checkUniqueness: class names are unique, and within a class so are field
// names, method signatures and constructor signatures. A forward declaration
// and its implementation are not duplicates.
func (v *Validator) checkUniqueness(prog *Program) {
	seen := make(map[string]bool)
	for _, c := range prog.Classes {
		if seen[c.Name] {
			v.errorAt(DuplicateMemberName, c, "class %s is declared more than once", c.Name)
		}
		seen[c.Name] = true
		v.checkClassMembers(c)
	}
}

func (v *Validator) checkClassMembers(c *ClassDecl) {
	fields := make(map[string]bool)
	for _, f := range c.Fields() {
		if fields[f.Name] {
			v.errorAt(DuplicateMemberName, f, "field %s is declared more than once in class %s", f.Name, c.Name)
		}
		fields[f.Name] = true
	}

	methods := c.Methods()
	for i, m := range methods {
		if fields[m.Name] {
			v.errorAt(DuplicateMemberName, m, "method %s has the same name as a field of class %s", m.Name, c.Name)
		}
		for _, earlier := range methods[:i] {
			if earlier.Name == m.Name && earlier.Forward == m.Forward &&
				SameTypes(ParamTypes(earlier.Params), ParamTypes(m.Params)) {
				v.errorAt(DuplicateMemberName, m, "method %s(%s) is declared more than once in class %s",
					m.Name, typeList(ParamTypes(m.Params)), c.Name)
				break
			}
		}
	}

	ctors := c.Constructors()
	for i, ctor := range ctors {
		for _, earlier := range ctors[:i] {
			if SameTypes(ParamTypes(earlier.Params), ParamTypes(ctor.Params)) {
				v.errorAt(DuplicateMemberName, ctor, "constructor this(%s) is declared more than once in class %s",
					typeList(ParamTypes(ctor.Params)), c.Name)
				break
			}
		}
	}
}
