package compiler

import "testing"

func TestSymbolTableScopes(t *testing.T) {
	st := NewSymbolTable()
	st.AddSymbol("x", NewSymbol("x", IntegerType, FieldSymbol))

	st.EnterScope()
	st.AddSymbol("x", NewSymbol("x", RealType, LocalSymbol))
	if sym, _ := st.Lookup("x"); !sym.Type.Equal(RealType) {
		t.Errorf("inner x = %s, want Real", sym.Type)
	}
	if _, ok := st.LookupLocal("x"); !ok {
		t.Errorf("x should be bound in the innermost scope")
	}
	st.ExitScope()

	if sym, _ := st.Lookup("x"); !sym.Type.Equal(IntegerType) {
		t.Errorf("outer x = %s, want Integer", sym.Type)
	}
	if _, ok := st.Lookup("y"); ok {
		t.Errorf("y should not be bound")
	}
}

func TestSymbolTableNeverPopsOutermostScope(t *testing.T) {
	st := NewSymbolTable()
	st.AddSymbol("x", NewSymbol("x", IntegerType, LocalSymbol))
	st.ExitScope()
	st.ExitScope()
	if st.Depth() != 1 {
		t.Errorf("depth = %d, want 1", st.Depth())
	}
	if _, ok := st.Lookup("x"); !ok {
		t.Errorf("outermost binding was lost")
	}
}

func TestSymbolTableRefusesLessSpecificRedeclaration(t *testing.T) {
	arr := Generic(ArrayName, IntegerType)

	tests := []struct {
		name    string
		first   Symbol
		second  Symbol
		replace bool
		want    TypeRef
	}{
		{"unknown does not replace container", NewSymbol("a", arr, LocalSymbol), NewSymbol("a", Unknown, LocalSymbol), false, arr},
		{"bare name does not replace generic", NewSymbol("a", arr, LocalSymbol), NewSymbol("a", Named(ArrayName), LocalSymbol), false, arr},
		{"known replaces unknown", NewSymbol("a", Unknown, LocalSymbol), NewSymbol("a", arr, LocalSymbol), true, arr},
		{"different type replaces", NewSymbol("a", IntegerType, LocalSymbol), NewSymbol("a", RealType, LocalSymbol), true, RealType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := NewSymbolTable()
			st.AddSymbol("a", tc.first)
			if got := st.AddSymbol("a", tc.second); got != tc.replace {
				t.Errorf("AddSymbol = %v, want %v", got, tc.replace)
			}
			if sym, _ := st.Lookup("a"); !sym.Type.Equal(tc.want) {
				t.Errorf("a = %s, want %s", sym.Type, tc.want)
			}
		})
	}
}

func TestSymbolTableKeepsStaticLength(t *testing.T) {
	st := NewSymbolTable()
	sized := NewSymbol("a", Generic(ArrayName, IntegerType), LocalSymbol)
	sized.Len = 5
	st.AddSymbol("a", sized)
	st.AddSymbol("a", NewSymbol("a", Generic(ArrayName, IntegerType), LocalSymbol))
	if sym, _ := st.Lookup("a"); sym.Len != 5 {
		t.Errorf("len = %d, want 5", sym.Len)
	}
}

func TestSymbolTableUpdate(t *testing.T) {
	st := NewSymbolTable()
	st.AddSymbol("a", NewSymbol("a", IntegerType, LocalSymbol))
	st.EnterScope()
	if !st.Update("a", NewSymbol("a", RealType, LocalSymbol)) {
		t.Fatalf("Update of a bound name failed")
	}
	st.ExitScope()
	if sym, _ := st.Lookup("a"); !sym.Type.Equal(RealType) {
		t.Errorf("a = %s, want Real", sym.Type)
	}
	if st.Update("b", NewSymbol("b", RealType, LocalSymbol)) {
		t.Errorf("Update of an unbound name succeeded")
	}
}
