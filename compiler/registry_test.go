package compiler

import "testing"

func registryFor(t *testing.T, source string) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, c := range mustParse(t, source).Classes {
		reg.AddClass(c)
	}
	return reg
}

func TestRegistryBuiltIns(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"Integer", "Real", "Boolean", "Array", "List", "Array[Integer]"} {
		if !reg.IsBuiltIn(name) || !reg.ClassExists(name) {
			t.Errorf("%s should be a built-in", name)
		}
	}
	for _, name := range []string{"Integer", "Real", "Boolean"} {
		if !reg.IsFinal(name) {
			t.Errorf("%s should be final", name)
		}
	}
	if reg.IsFinal("Array") {
		t.Errorf("Array should not be final")
	}
}

func TestRegistryBuiltInMethodsStripTypeArgument(t *testing.T) {
	reg := NewRegistry()
	a := reg.BuiltInMethods("Array[Integer]", "get")
	b := reg.BuiltInMethods("Array[Boolean]", "get")
	if len(a) != 1 || len(b) != 1 || a[0].Key() != b[0].Key() {
		t.Errorf("get overloads differ: %v %v", a, b)
	}
	if got := len(reg.BuiltInMethods("Integer", "Plus")); got != 2 {
		t.Errorf("Integer.Plus overloads = %d, want 2", got)
	}
	if got := a[0].Instantiate(IntegerType).Return; !got.Equal(IntegerType) {
		t.Errorf("Array[Integer].get returns %s, want Integer", got)
	}
}

func TestRegistryBuiltInConstructors(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		typ   string
		arity int
		want  bool
	}{
		{"Integer", 0, true},
		{"Integer", 1, true},
		{"Integer", 2, false},
		{"Array", 1, true},
		{"Array", 0, false},
		{"List", 0, true},
		{"List", 1, true},
		{"List", 2, true},
		{"List", 3, false},
	}
	for _, tc := range tests {
		if got := reg.IsValidBuiltInConstructor(tc.typ, tc.arity); got != tc.want {
			t.Errorf("IsValidBuiltInConstructor(%s, %d) = %v, want %v", tc.typ, tc.arity, got, tc.want)
		}
	}
}

func TestRegistryHierarchy(t *testing.T) {
	reg := registryFor(t, `
class Animal is end
class Dog extends Animal is end
class Puppy extends Dog is end
class A extends B is end
class B extends A is end`)

	if !reg.IsSubclassOf("Puppy", "Animal") {
		t.Errorf("Puppy should be a subclass of Animal")
	}
	if reg.IsSubclassOf("Animal", "Dog") {
		t.Errorf("Animal should not be a subclass of Dog")
	}
	if reg.IsSubclassOf("A", "Animal") {
		t.Errorf("cyclic walk should terminate with false")
	}
	if got := reg.BaseClass(reg.Class("Dog")); got == nil || got.Name != "Animal" {
		t.Errorf("BaseClass(Dog) = %v, want Animal", got)
	}
	if got := len(reg.Ancestors("A")); got != 2 {
		t.Errorf("Ancestors(A) = %d classes, want 2", got)
	}
}

func TestRegistryAssignable(t *testing.T) {
	reg := registryFor(t, `
class Animal is end
class Dog extends Animal is end`)

	tests := []struct {
		src, dst string
		want     bool
	}{
		{"Integer", "Integer", true},
		{"Integer", "Real", true},
		{"Real", "Integer", false},
		{"Dog", "Animal", true},
		{"Animal", "Dog", false},
		{"Array[Integer]", "Array[Integer]", true},
		{"Array[Integer]", "Array[Real]", false},
		{"List[Integer]", "Array[Integer]", false},
		{"Boolean", "Integer", false},
		{"", "Integer", true},
	}
	for _, tc := range tests {
		if got := reg.Assignable(ParseTypeRef(tc.src), ParseTypeRef(tc.dst)); got != tc.want {
			t.Errorf("Assignable(%s, %s) = %v, want %v", tc.src, tc.dst, got, tc.want)
		}
	}
}

func TestRegistryMethodCandidates(t *testing.T) {
	reg := registryFor(t, `
class Animal is
  method speak() : Integer => 1
  method speak(times: Integer) : Integer => times
end
class Dog extends Animal is
  method speak() : Integer
  method speak() : Integer => 2
end`)

	cands := reg.MethodCandidates("Dog", "speak")
	if len(cands) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cands))
	}
	if cands[0].Owner.Name != "Dog" || cands[0].Method.Forward {
		t.Errorf("first candidate = %s (forward %v), want Dog's implementation", cands[0].Owner.Name, cands[0].Method.Forward)
	}
	if cands[1].Owner.Name != "Animal" || len(cands[1].Method.Params) != 1 {
		t.Errorf("second candidate should be Animal.speak(Integer)")
	}
	if !reg.HasMethod("Dog", "speak") || reg.HasMethod("Dog", "bark") {
		t.Errorf("HasMethod mismatch")
	}
}

func TestRegistryDefaultConstructor(t *testing.T) {
	reg := registryFor(t, `
class A is end
class B is this(x: Integer) is end end`)

	if sigs := reg.ConstructorSignatures("A"); len(sigs) != 1 || len(sigs[0]) != 0 {
		t.Errorf("A constructors = %v, want one default", sigs)
	}
	if sigs := reg.ConstructorSignatures("B"); len(sigs) != 1 || len(sigs[0]) != 1 {
		t.Errorf("B constructors = %v, want (Integer)", sigs)
	}
}

func TestRegistryDuplicateAndReset(t *testing.T) {
	reg := NewRegistry()
	if !reg.AddClass(&ClassDecl{Name: "A"}) || reg.AddClass(&ClassDecl{Name: "A"}) {
		t.Errorf("AddClass should accept the first A only")
	}
	reg.ResetClasses()
	if reg.ClassExists("A") || !reg.ClassExists("Integer") {
		t.Errorf("ResetClasses should drop user classes and keep built-ins")
	}
}

func TestSelectOverload(t *testing.T) {
	reg := registryFor(t, `
class Animal is end
class Dog extends Animal is end`)

	I, R := IntegerType, RealType
	animal, dog := Named("Animal"), Named("Dog")

	tests := []struct {
		name       string
		candidates [][]TypeRef
		args       []TypeRef
		index      int
		res        Resolution
	}{
		{"exact wins over widening", [][]TypeRef{{R}, {I}}, []TypeRef{I}, 1, Resolved},
		{"widening", [][]TypeRef{{R}}, []TypeRef{I}, 0, Resolved},
		{"no narrowing", [][]TypeRef{{I}}, []TypeRef{R}, -1, NoCompatible},
		{"arity", [][]TypeRef{{I}}, []TypeRef{I, I}, -1, NoArity},
		{"subtype", [][]TypeRef{{animal}}, []TypeRef{dog}, 0, Resolved},
		{"ambiguous", [][]TypeRef{{R, I}, {I, R}}, []TypeRef{I, I}, 0, Ambiguous},
		{"first exact in order", [][]TypeRef{{I}, {I}}, []TypeRef{I}, 0, Resolved},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			index, res := SelectOverload(reg, tc.candidates, tc.args)
			if index != tc.index || res != tc.res {
				t.Errorf("SelectOverload = (%d, %v), want (%d, %v)", index, res, tc.index, tc.res)
			}
		})
	}
}

func TestSignatureKey(t *testing.T) {
	s := Signature{Owner: "Integer", Name: "Plus", Params: []TypeRef{RealType}, Return: RealType}
	if got := s.Key(); got != "Integer.Plus(Real)" {
		t.Errorf("Key = %q", got)
	}
	s = Signature{Owner: "Array", Name: "set", Params: []TypeRef{IntegerType, Named(TypeParam)}}
	if got := s.Key(); got != "Array.set(Integer,T)" {
		t.Errorf("Key = %q", got)
	}
}
