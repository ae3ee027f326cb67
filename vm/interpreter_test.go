package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
)

// testModule assembles small modules by hand.
type testModule struct {
	t     *testing.T
	b     *bytecode.ModuleBuilder
	types []bytecode.TypeToken
}

func newTestModule(t *testing.T) *testModule {
	return &testModule{t: t, b: bytecode.NewModuleBuilder("test")}
}

func (m *testModule) typ(name string, base bytecode.TypeToken) bytecode.TypeToken {
	tok, err := m.b.DeclareType(name, base)
	if err != nil {
		m.t.Fatal(err)
	}
	m.types = append(m.types, tok)
	return tok
}

func (m *testModule) field(owner bytecode.TypeToken, name string) int {
	tok, err := m.b.DeclareField(owner, name, "Integer")
	if err != nil {
		m.t.Fatal(err)
	}
	return int(tok)
}

func (m *testModule) method(owner bytecode.TypeToken, name string, params []string, ret string, body func(c *bytecode.Chunk)) int {
	var tok bytecode.MethodToken
	var err error
	if name == bytecode.CtorMethodName {
		tok, err = m.b.DeclareConstructor(owner, params)
	} else {
		tok, err = m.b.DeclareMethod(owner, name, params, ret)
	}
	if err != nil {
		m.t.Fatal(err)
	}
	c := bytecode.NewChunk()
	c.ParamCount = uint8(len(params))
	body(c)
	if err := m.b.EmitBody(tok, c); err != nil {
		m.t.Fatal(err)
	}
	return int(tok)
}

func (m *testModule) native(template, typeArg string) int {
	tok, err := m.b.ImportNative(template, typeArg)
	if err != nil {
		m.t.Fatal(err)
	}
	return int(tok)
}

func (m *testModule) load(out *bytes.Buffer) *VM {
	m.t.Helper()
	for _, tok := range m.types {
		if _, err := m.b.Finalize(tok); err != nil {
			m.t.Fatal(err)
		}
	}
	mod, err := m.b.Module()
	if err != nil {
		m.t.Fatal(err)
	}
	vm, err := New(mod, WithOutput(out))
	if err != nil {
		m.t.Fatal(err)
	}
	return vm
}

func returnInt(n int64) func(c *bytecode.Chunk) {
	return func(c *bytecode.Chunk) {
		c.EmitInt(n)
		c.Emit(bytecode.OpReturn)
	}
}

func TestVirtualDispatch(t *testing.T) {
	m := newTestModule(t)
	animal := m.typ("Animal", bytecode.NoType)
	dog := m.typ("Dog", animal)
	main := m.typ("Main", bytecode.NoType)
	printInt := m.native("Integer.Print()", "")

	empty := func(c *bytecode.Chunk) { c.Emit(bytecode.OpReturnVoid) }
	m.method(animal, bytecode.CtorMethodName, nil, "", empty)
	speak := m.method(animal, "speak", nil, "Integer", returnInt(1))
	dogCtor := m.method(dog, bytecode.CtorMethodName, nil, "", empty)
	m.method(dog, "speak", nil, "Integer", returnInt(2))
	m.method(main, bytecode.CtorMethodName, nil, "", func(c *bytecode.Chunk) {
		c.EmitCall(bytecode.OpNewObj, dogCtor, 0)
		c.EmitCall(bytecode.OpCallVirt, speak, 0)
		c.EmitCall(bytecode.OpCallNative, printInt, 1)
		c.Emit(bytecode.OpPop)
		c.Emit(bytecode.OpReturnVoid)
	})

	var out bytes.Buffer
	vm := m.load(&out)
	if err := vm.Run("Main"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "2\n" {
		t.Errorf("output = %q, want %q", out.String(), "2\n")
	}
	if !vm.Class("Dog").IsSubclassOf(vm.Class("Animal")) {
		t.Error("Dog should be a subclass of Animal")
	}
}

func TestLoopWithLocals(t *testing.T) {
	m := newTestModule(t)
	counter := m.typ("Counter", bytecode.NoType)
	less := m.native("Integer.Less(Integer)", "")
	plus := m.native("Integer.Plus(Integer)", "")

	m.method(counter, bytecode.CtorMethodName, nil, "", func(c *bytecode.Chunk) { c.Emit(bytecode.OpReturnVoid) })
	// sum(n) : i := 0; s := 0; while i < n loop s := s + i; i := i + 1 end; return s
	m.method(counter, "sum", []string{"Integer"}, "Integer", func(c *bytecode.Chunk) {
		c.LocalCount = 2
		c.EmitInt(0)
		c.EmitSlot(bytecode.OpStoreLocal, 0)
		c.EmitInt(0)
		c.EmitSlot(bytecode.OpStoreLocal, 1)
		start := c.CurrentOffset()
		c.EmitSlot(bytecode.OpLoadLocal, 0)
		c.EmitSlot(bytecode.OpLoadParam, 0)
		c.EmitCall(bytecode.OpCallNative, less, 2)
		exit := c.EmitJump(bytecode.OpJumpFalse)
		c.EmitSlot(bytecode.OpLoadLocal, 1)
		c.EmitSlot(bytecode.OpLoadLocal, 0)
		c.EmitCall(bytecode.OpCallNative, plus, 2)
		c.EmitSlot(bytecode.OpStoreLocal, 1)
		c.EmitSlot(bytecode.OpLoadLocal, 0)
		c.EmitInt(1)
		c.EmitCall(bytecode.OpCallNative, plus, 2)
		c.EmitSlot(bytecode.OpStoreLocal, 0)
		c.EmitLoop(start)
		c.PatchJump(exit)
		c.EmitSlot(bytecode.OpLoadLocal, 1)
		c.Emit(bytecode.OpReturn)
	})

	vm := m.load(&bytes.Buffer{})
	obj, err := vm.Instantiate("Counter", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := vm.Invoke(obj, "sum(Integer)", FromInt(5))
	if err != nil {
		t.Fatal(err)
	}
	if got.Int() != 10 {
		t.Errorf("sum(5) = %s, want 10", got)
	}
}

func TestFields(t *testing.T) {
	m := newTestModule(t)
	base := m.typ("Base", bytecode.NoType)
	box := m.typ("Box", base)
	m.field(base, "tag")
	value := m.field(box, "value")

	m.method(base, bytecode.CtorMethodName, nil, "", func(c *bytecode.Chunk) { c.Emit(bytecode.OpReturnVoid) })
	m.method(box, bytecode.CtorMethodName, []string{"Integer"}, "", func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadThis)
		c.EmitSlot(bytecode.OpLoadParam, 0)
		c.EmitToken(bytecode.OpStoreField, value)
		c.Emit(bytecode.OpReturnVoid)
	})
	m.method(box, "get", nil, "Integer", func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadThis)
		c.EmitToken(bytecode.OpLoadField, value)
		c.Emit(bytecode.OpReturn)
	})

	vm := m.load(&bytes.Buffer{})
	obj, err := vm.Instantiate("Box", []string{"Integer"}, FromInt(42))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(obj.Object().Slots); n != 2 {
		t.Errorf("Box has %d slots, want 2", n)
	}
	got, err := vm.Invoke(obj, "get()")
	if err != nil || got.Int() != 42 {
		t.Errorf("get() = %s, %v", got, err)
	}
}

func TestRuntimeErrors(t *testing.T) {
	m := newTestModule(t)
	a := m.typ("A", bytecode.NoType)
	get := m.native("Array.get(Integer)", "Integer")
	newArray := m.native("Array.new(Integer)", "Integer")

	m.method(a, bytecode.CtorMethodName, nil, "", func(c *bytecode.Chunk) { c.Emit(bytecode.OpReturnVoid) })
	m.method(a, "noValue", nil, "Integer", func(c *bytecode.Chunk) { c.Emit(bytecode.OpReturnVoid) })
	var recurse int
	recurse = m.method(a, "loop", nil, "Integer", func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadThis)
		c.EmitCall(bytecode.OpCallVirt, 2, 0) // itself
		c.Emit(bytecode.OpReturn)
	})
	m.method(a, "bad", nil, "Integer", func(c *bytecode.Chunk) {
		c.EmitInt(2)
		c.EmitCall(bytecode.OpCallNative, newArray, 1)
		c.EmitInt(5)
		c.AddSourceLocation(uint32(c.CurrentOffset()), 7, 3)
		c.EmitCall(bytecode.OpCallNative, get, 2)
		c.Emit(bytecode.OpReturn)
	})
	if recurse != 2 {
		t.Fatalf("loop token = %d, want 2", recurse)
	}

	vm := m.load(&bytes.Buffer{})
	vm.MaxDepth = 50
	obj, _ := vm.Instantiate("A", nil)

	tests := []struct {
		sig  string
		want string
	}{
		{"noValue()", "ended without returning a value"},
		{"loop()", "call depth exceeds 50"},
		{"bad()", "A.bad() (line 7, column 3): index 5 out of range"},
	}
	for _, tt := range tests {
		_, err := vm.Invoke(obj, tt.sig)
		var rt *RuntimeError
		if !errors.As(err, &rt) {
			t.Errorf("%s: err = %v, want a RuntimeError", tt.sig, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %q, want %q", tt.sig, err, tt.want)
		}
	}
}

func TestNewRejectsUnknownNative(t *testing.T) {
	m := newTestModule(t)
	m.native("Integer.Frobnicate()", "")
	mod, err := m.b.Module()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(mod); err == nil || !strings.Contains(err.Error(), "Frobnicate") {
		t.Errorf("err = %v", err)
	}
}
