package compiler

// ---------------------------------------------------------------------------
// Registry: catalogue of user classes and built-in types
// ---------------------------------------------------------------------------

// Registry answers hierarchy and signature questions about every class of a
// compilation. Built-ins are seeded by NewRegistry; user classes are added by
// the Validator's first pass and read by the Validator and the code generator.
type Registry struct {
	classes map[string]*ClassDecl
	order   []*ClassDecl

	builtinCtors   map[string][]Signature
	builtinMethods map[string][]Signature
}

// NewRegistry creates a registry seeded with the built-in catalogue.
func NewRegistry() *Registry {
	ctors, methods := seedBuiltins()
	return &Registry{
		classes:        make(map[string]*ClassDecl),
		builtinCtors:   ctors,
		builtinMethods: methods,
	}
}

// AddClass registers a user class. It returns false if a class with the
// same name is already registered; the first declaration is kept.
func (r *Registry) AddClass(decl *ClassDecl) bool {
	if _, exists := r.classes[decl.Name]; exists {
		return false
	}
	r.classes[decl.Name] = decl
	r.order = append(r.order, decl)
	return true
}

// ResetClasses drops all user classes, keeping the built-ins.
func (r *Registry) ResetClasses() {
	r.classes = make(map[string]*ClassDecl)
	r.order = nil
}

// Classes returns the user classes in registration order.
func (r *Registry) Classes() []*ClassDecl {
	return r.order
}

// ClassExists reports whether name is a user class or a built-in type.
func (r *Registry) ClassExists(name string) bool {
	if r.IsBuiltIn(name) {
		return true
	}
	_, ok := r.classes[name]
	return ok
}

// Class returns the user class declaration, or nil.
func (r *Registry) Class(name string) *ClassDecl {
	return r.classes[name]
}

// BaseClass returns the declaration of decl's base class, or nil when decl
// has no base or the base is not a user class.
func (r *Registry) BaseClass(decl *ClassDecl) *ClassDecl {
	if decl == nil || decl.BaseName == "" {
		return nil
	}
	return r.classes[decl.BaseName]
}

// IsFinal reports whether name is one of the primitive value types, which
// can never be a base class.
func (r *Registry) IsFinal(name string) bool {
	switch name {
	case IntegerName, RealName, BooleanName:
		return true
	}
	return false
}

// IsBuiltIn reports whether name is a built-in type. Any type argument is
// ignored.
func (r *Registry) IsBuiltIn(name string) bool {
	_, ok := r.builtinCtors[baseName(name)]
	return ok
}

// IsContainer reports whether name is Array or List.
func (r *Registry) IsContainer(name string) bool {
	switch baseName(name) {
	case ArrayName, ListName:
		return true
	}
	return false
}

// IsSubclassOf reports whether derived is base or inherits from it. The walk
// stops at the first repeated class, so cyclic hierarchies terminate.
func (r *Registry) IsSubclassOf(derived, base string) bool {
	seen := make(map[string]bool)
	for current := derived; current != "" && !seen[current]; {
		if current == base {
			return true
		}
		seen[current] = true
		decl := r.classes[current]
		if decl == nil {
			return false
		}
		current = decl.BaseName
	}
	return false
}

// Ancestors returns name's declaration followed by its user base classes,
// nearest first. Cycles and missing bases end the chain.
func (r *Registry) Ancestors(name string) []*ClassDecl {
	var chain []*ClassDecl
	seen := make(map[string]bool)
	for decl := r.classes[name]; decl != nil && !seen[decl.Name]; decl = r.BaseClass(decl) {
		seen[decl.Name] = true
		chain = append(chain, decl)
	}
	return chain
}

// BuiltInMethods returns every overload of methodName on typeName. The
// lookup key strips the type argument: Array[Integer] and Array[Boolean]
// both resolve to Array.
func (r *Registry) BuiltInMethods(typeName, methodName string) []Signature {
	var out []Signature
	for _, s := range r.builtinMethods[baseName(typeName)] {
		if s.Name == methodName {
			out = append(out, s)
		}
	}
	return out
}

// BuiltInConstructors returns every constructor overload of typeName.
func (r *Registry) BuiltInConstructors(typeName string) []Signature {
	return r.builtinCtors[baseName(typeName)]
}

// IsValidBuiltInConstructor reports whether some constructor of typeName
// takes argCount arguments.
func (r *Registry) IsValidBuiltInConstructor(typeName string, argCount int) bool {
	for _, s := range r.BuiltInConstructors(typeName) {
		if len(s.Params) == argCount {
			return true
		}
	}
	return false
}

// LookupField finds a field by name in the class or its ancestors and
// returns it together with its declaring class.
func (r *Registry) LookupField(className, name string) (*FieldDecl, *ClassDecl) {
	for _, decl := range r.Ancestors(className) {
		for _, f := range decl.Fields() {
			if f.Name == name {
				return f, decl
			}
		}
	}
	return nil, nil
}

// MethodEntry is a method together with the class declaring it.
type MethodEntry struct {
	Owner  *ClassDecl
	Method *MethodDecl
}

// Signature returns the entry as a Signature.
func (e MethodEntry) Signature() Signature {
	return Signature{
		Owner:  e.Owner.Name,
		Name:   e.Method.Name,
		Params: ParamTypes(e.Method.Params),
		Return: e.Method.ReturnType,
	}
}

// MethodCandidates returns the methods named name visible on className:
// the class's own first, then each ancestor's, skipping signatures already
// provided by a nearer class (overrides) and forward declarations that
// their own class implements.
func (r *Registry) MethodCandidates(className, name string) []MethodEntry {
	var out []MethodEntry
	for _, decl := range r.Ancestors(className) {
		for _, m := range decl.Methods() {
			if m.Name != name {
				continue
			}
			shadowed := false
			for _, e := range out {
				if SameTypes(ParamTypes(e.Method.Params), ParamTypes(m.Params)) {
					shadowed = true
					break
				}
			}
			if !shadowed {
				out = append(out, MethodEntry{Owner: decl, Method: m})
			}
		}
	}
	// Prefer the body-bearing twin of a forward declaration.
	for i, e := range out {
		if !e.Method.Forward {
			continue
		}
		for _, m := range e.Owner.Methods() {
			if !m.Forward && m.Name == e.Method.Name && SameTypes(ParamTypes(m.Params), ParamTypes(e.Method.Params)) {
				out[i].Method = m
				break
			}
		}
	}
	return out
}

// HasMethod reports whether className or an ancestor declares a method
// named name.
func (r *Registry) HasMethod(className, name string) bool {
	return len(r.MethodCandidates(className, name)) > 0
}

// ConstructorSignatures returns the constructor parameter vectors of a user
// class; a class without explicit constructors has one default, empty one.
func (r *Registry) ConstructorSignatures(className string) [][]TypeRef {
	decl := r.classes[className]
	if decl == nil {
		return nil
	}
	ctors := decl.Constructors()
	if len(ctors) == 0 {
		return [][]TypeRef{{}}
	}
	out := make([][]TypeRef, len(ctors))
	for i, c := range ctors {
		out[i] = ParamTypes(c.Params)
	}
	return out
}

// Assignable reports whether a value of type src may be stored where dst is
// expected: equal types, Integer widened to Real, or a subclass to one of
// its bases. Unknown types and type parameters are accepted so that one
// error does not cascade into many.
func (r *Registry) Assignable(src, dst TypeRef) bool {
	if src.IsUnknown() || dst.IsUnknown() {
		return true
	}
	if src.Equal(dst) {
		return true
	}
	if src.Name == IntegerName && dst.Name == RealName {
		return true
	}
	if !r.ClassExists(src.Name) || !r.ClassExists(dst.Name) {
		return true
	}
	if r.IsBuiltIn(src.Name) || r.IsBuiltIn(dst.Name) {
		if src.Name != dst.Name || src.Arg == nil || dst.Arg == nil {
			return false
		}
		return src.Arg.Equal(*dst.Arg) || src.Arg.IsUnknown() || dst.Arg.IsUnknown()
	}
	if !r.IsSubclassOf(src.Name, dst.Name) {
		return false
	}
	if src.Arg == nil || dst.Arg == nil {
		return true
	}
	return src.Arg.Equal(*dst.Arg)
}

// baseName strips a type argument from a rendered type name.
func baseName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '[' {
			return name[:i]
		}
	}
	return name
}
