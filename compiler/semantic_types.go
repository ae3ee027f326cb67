package compiler

// ---------------------------------------------------------------------------
// Expression typing for the Validator
// ---------------------------------------------------------------------------

// fieldSymbol returns the symbol of field f declared by owner. The type is
// inferred from the initializer, which sees the inherited fields and the
// fields declared before f.
func (v *Validator) fieldSymbol(owner *ClassDecl, f *FieldDecl) Symbol {
	if sym, ok := v.fields[f]; ok {
		return sym
	}
	if v.inferring[f] {
		return NewSymbol(f.Name, Unknown, FieldSymbol)
	}
	v.inferring[f] = true
	defer delete(v.inferring, f)

	w := &walker{v: v, class: owner, member: f, syms: NewSymbolTable()}
	w.bindInheritedFields()
	for _, earlier := range owner.Fields() {
		if earlier == f {
			break
		}
		w.syms.AddSymbol(earlier.Name, v.fieldSymbol(owner, earlier))
	}

	sym := NewSymbol(f.Name, v.typeOf(w, f.Init), FieldSymbol)
	sym.Len = staticArrayLen(f.Init)
	v.fields[f] = sym
	return sym
}

// typeOf returns the static type of e in the walker's context, or Unknown.
func (v *Validator) typeOf(w *walker, e Expr) TypeRef {
	switch e := e.(type) {
	case *IntLiteral:
		return IntegerType
	case *RealLiteral:
		return RealType
	case *BoolLiteral:
		return BooleanType
	case *Identifier:
		if sym, ok := w.syms.Lookup(e.Name); ok {
			return sym.Type
		}
		return Unknown
	case *This:
		if w.class == nil {
			return Unknown
		}
		return Named(w.class.Name)
	case *ConstructorCall:
		return v.constructedType(w, e)
	case *MemberAccess:
		t, _ := v.memberType(w, e)
		return t
	case *Call:
		return v.resolveCall(w, e).ret
	}
	return Unknown
}

// constructedType is the type a constructor call produces. A container
// written without a type argument gets its element type from the first
// argument of a List constructor, and is otherwise left open.
func (v *Validator) constructedType(w *walker, cc *ConstructorCall) TypeRef {
	t := cc.Type
	if !v.reg.IsContainer(t.Name) || t.Arg != nil {
		return t
	}
	if t.Name == ListName && len(cc.Args) > 0 {
		return Generic(ListName, v.typeOf(w, cc.Args[0]))
	}
	return Generic(t.Name, Unknown)
}

// memberType types target.member used without an argument list: a field of
// a user class, or a zero-argument built-in method such as Length. The
// second result is false when the receiver type is known and has no such
// member.
func (v *Validator) memberType(w *walker, m *MemberAccess) (TypeRef, bool) {
	tt := v.typeOf(w, m.Target)
	if tt.IsUnknown() {
		return Unknown, true
	}
	if v.reg.IsBuiltIn(tt.Name) {
		for _, s := range v.reg.BuiltInMethods(tt.Name, m.Member) {
			if len(s.Params) == 0 {
				return s.Instantiate(tt.Element()).Return, true
			}
		}
		return Unknown, false
	}
	if v.reg.Class(tt.Name) == nil {
		return Unknown, true
	}
	fd, owner := v.reg.LookupField(tt.Name, m.Member)
	if fd == nil {
		return Unknown, false
	}
	return substituteFor(owner, tt, v.fieldSymbol(owner, fd).Type), true
}

// substituteFor replaces owner's generic parameter by the type argument of
// the receiver type.
func substituteFor(owner *ClassDecl, receiver, t TypeRef) TypeRef {
	if owner == nil || owner.GenericParam == "" || receiver.Arg == nil {
		return t
	}
	return t.Substitute(owner.GenericParam, *receiver.Arg)
}

// callKind tells how the receiver of a call was resolved.
type callKind int

const (
	callUnresolved callKind = iota // receiver type unknown; nothing to check
	callSelf                       // method of the enclosing class
	callUser                       // method of a user class
	callBuiltin                    // built-in method
)

// callSite is the outcome of resolving one call expression.
type callSite struct {
	kind     callKind
	receiver TypeRef
	name     string
	args     []TypeRef
	params   [][]TypeRef
	returns  []TypeRef
	index    int
	res      Resolution
	ret      TypeRef
}

// resolveCall types the receiver and arguments of call and selects an
// overload with SelectOverload.
func (v *Validator) resolveCall(w *walker, call *Call) callSite {
	site := callSite{index: -1, ret: Unknown}
	site.args = make([]TypeRef, len(call.Args))
	for i, arg := range call.Args {
		site.args[i] = v.typeOf(w, arg)
	}

	switch callee := call.Callee.(type) {
	case *Identifier:
		site.name = callee.Name
		if w.class == nil {
			return site
		}
		site.kind = callSelf
		site.receiver = Named(w.class.Name)
		for _, e := range v.reg.MethodCandidates(w.class.Name, callee.Name) {
			site.params = append(site.params, ParamTypes(e.Method.Params))
			site.returns = append(site.returns, e.Method.ReturnType)
		}

	case *MemberAccess:
		site.name = callee.Member
		tt := v.typeOf(w, callee.Target)
		site.receiver = tt
		switch {
		case tt.IsUnknown():
			return site
		case v.reg.IsBuiltIn(tt.Name):
			site.kind = callBuiltin
			for _, s := range v.reg.BuiltInMethods(tt.Name, callee.Member) {
				s = s.Instantiate(tt.Element())
				site.params = append(site.params, s.Params)
				site.returns = append(site.returns, s.Return)
			}
		case v.reg.Class(tt.Name) != nil:
			site.kind = callUser
			for _, e := range v.reg.MethodCandidates(tt.Name, callee.Member) {
				params := ParamTypes(e.Method.Params)
				for i := range params {
					params[i] = substituteFor(e.Owner, tt, params[i])
				}
				site.params = append(site.params, params)
				site.returns = append(site.returns, substituteFor(e.Owner, tt, e.Method.ReturnType))
			}
		default:
			return site
		}

	default:
		return site
	}

	site.index, site.res = SelectOverload(v.reg, site.params, site.args)
	if site.index >= 0 {
		site.ret = site.returns[site.index]
	}
	return site
}

// hasUnknown reports whether any type of ts is unknown.
func hasUnknown(ts []TypeRef) bool {
	for _, t := range ts {
		if t.IsUnknown() {
			return true
		}
	}
	return false
}
