package compiler

// ---------------------------------------------------------------------------
// SymbolTable: lexical scopes for the Validator
// ---------------------------------------------------------------------------

// Symbol binds a name to what is known about its type.
type Symbol struct {
	Name string
	Type TypeRef // Unknown when nothing could be inferred

	// Len is the statically known length of an Array bound by
	// Array[T](<literal>), or -1.
	Len int64

	// Kind tells fields, parameters and locals apart.
	Kind SymbolKind
}

// SymbolKind classifies a symbol.
type SymbolKind int

const (
	LocalSymbol SymbolKind = iota
	ParamSymbol
	FieldSymbol
)

// NewSymbol returns a symbol with no static length.
func NewSymbol(name string, t TypeRef, kind SymbolKind) Symbol {
	return Symbol{Name: name, Type: t, Len: -1, Kind: kind}
}

// losesInformation reports whether replacing old with s would drop what is
// known about old.
func (s Symbol) losesInformation(old Symbol) bool {
	if s.Type.IsUnknown() && !old.Type.IsUnknown() {
		return true
	}
	if !s.Type.IsUnknown() && !old.Type.IsUnknown() && s.Type.Arg == nil && old.Type.Arg != nil && s.Type.Name == old.Type.Name {
		return true
	}
	return s.Len < 0 && old.Len >= 0 && s.Type.Equal(old.Type)
}

// SymbolTable is a stack of scopes. Lookup walks from the innermost scope
// outwards.
type SymbolTable struct {
	scopes []map[string]Symbol
}

// NewSymbolTable creates a table with one (outermost) scope.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{}
	st.EnterScope()
	return st
}

// EnterScope pushes a fresh, empty scope.
func (st *SymbolTable) EnterScope() {
	st.scopes = append(st.scopes, make(map[string]Symbol))
}

// ExitScope pops the innermost scope. The outermost scope is never popped.
func (st *SymbolTable) ExitScope() {
	if len(st.scopes) > 1 {
		st.scopes = st.scopes[:len(st.scopes)-1]
	}
}

// Depth returns the number of open scopes.
func (st *SymbolTable) Depth() int {
	return len(st.scopes)
}

// AddSymbol binds name in the innermost scope. Rebinding a name already in
// that scope only refines it: a known type is never replaced by the unknown
// type, and a known array length is never dropped. It returns false when
// the existing, more specific symbol was kept.
func (st *SymbolTable) AddSymbol(name string, sym Symbol) bool {
	scope := st.scopes[len(st.scopes)-1]
	if old, exists := scope[name]; exists && sym.losesInformation(old) {
		return false
	}
	sym.Name = name
	scope[name] = sym
	return true
}

// Lookup finds name in the innermost scope that binds it.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if sym, ok := st.scopes[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Update replaces the symbol in the innermost scope that binds name. It
// returns false when name is not bound.
func (st *SymbolTable) Update(name string, sym Symbol) bool {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if _, ok := st.scopes[i][name]; ok {
			sym.Name = name
			st.scopes[i][name] = sym
			return true
		}
	}
	return false
}

// LookupLocal finds name in the innermost scope only.
func (st *SymbolTable) LookupLocal(name string) (Symbol, bool) {
	sym, ok := st.scopes[len(st.scopes)-1][name]
	return sym, ok
}
