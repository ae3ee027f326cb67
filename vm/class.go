package vm

import "github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"

// Class is the runtime form of a finalized module type.
type Class struct {
	Name     string
	Token    bytecode.TypeToken
	Super    *Class
	NumSlots int
	VTable   *VTable
}

// IsSubclassOf reports whether c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == other {
			return true
		}
	}
	return false
}

// VTable holds the virtual methods of a class keyed by signature. Lookups
// that miss walk the parent chain, so overrides shadow inherited methods.
type VTable struct {
	methods map[string]bytecode.MethodToken
	parent  *VTable
}

// NewVTable creates an empty table inheriting from parent.
func NewVTable(parent *VTable) *VTable {
	return &VTable{methods: make(map[string]bytecode.MethodToken), parent: parent}
}

// Lookup finds a method by signature, walking the inheritance chain.
func (vt *VTable) Lookup(sig string) (bytecode.MethodToken, bool) {
	for v := vt; v != nil; v = v.parent {
		if m, ok := v.methods[sig]; ok {
			return m, true
		}
	}
	return -1, false
}

// AddMethod adds or replaces the method for sig.
func (vt *VTable) AddMethod(sig string, m bytecode.MethodToken) {
	vt.methods[sig] = m
}

// HasMethod returns true if this vtable (not parents) has a method for sig.
func (vt *VTable) HasMethod(sig string) bool {
	_, ok := vt.methods[sig]
	return ok
}

// Parent returns the parent vtable.
func (vt *VTable) Parent() *VTable {
	return vt.parent
}
