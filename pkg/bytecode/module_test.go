package bytecode

import (
	"bytes"
	"strings"
	"testing"
)

// buildAnimals builds Animal with one field and speak(), and Dog
// overriding speak().
func buildAnimals(t *testing.T) *ModuleBuilder {
	t.Helper()
	b := NewModuleBuilder("animals")

	animal, err := b.DeclareType("Animal", NoType)
	if err != nil {
		t.Fatal(err)
	}
	dog, err := b.DeclareType("Dog", animal)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.DeclareField(animal, "legs", "Integer"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.DeclareField(dog, "name", "Integer"); err != nil {
		t.Fatal(err)
	}

	for _, typ := range []TypeToken{animal, dog} {
		ctor, err := b.DeclareConstructor(typ, nil)
		if err != nil {
			t.Fatal(err)
		}
		speak, err := b.DeclareMethod(typ, "speak", nil, "Integer")
		if err != nil {
			t.Fatal(err)
		}
		body := NewChunk()
		body.Emit(OpReturnVoid)
		if err := b.EmitBody(ctor, body); err != nil {
			t.Fatal(err)
		}
		body = NewChunk()
		if err := body.EmitInt(int64(typ) + 1); err != nil {
			t.Fatal(err)
		}
		body.Emit(OpReturn)
		if err := b.EmitBody(speak, body); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.ImportNative("Integer.Print()", ""); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestModuleBuilderFinalizeOrder(t *testing.T) {
	b := buildAnimals(t)

	if _, err := b.Finalize(1); err == nil || !strings.Contains(err.Error(), "before its base") {
		t.Errorf("finalizing Dog first: err = %v", err)
	}
	if _, err := b.Module(); err == nil {
		t.Error("Module() should fail while types are pending")
	}

	for _, tok := range []TypeToken{0, 1} {
		typ, err := b.Finalize(tok)
		if err != nil {
			t.Fatal(err)
		}
		if !typ.Finalized {
			t.Errorf("%s not finalized", typ.Name)
		}
	}

	mod, err := b.Module()
	if err != nil {
		t.Fatal(err)
	}
	if mod.Fields[0].Slot != 0 || mod.Fields[1].Slot != 1 {
		t.Errorf("slots = %d %d, want 0 1", mod.Fields[0].Slot, mod.Fields[1].Slot)
	}
	if mod.SlotCount(1) != 2 {
		t.Errorf("Dog SlotCount = %d, want 2", mod.SlotCount(1))
	}
}

func TestModuleBuilderRejectsLateChanges(t *testing.T) {
	b := buildAnimals(t)
	if _, err := b.Finalize(0); err != nil {
		t.Fatal(err)
	}
	if _, err := b.DeclareMethod(0, "late", nil, ""); err == nil {
		t.Error("declaring on a finalized type should fail")
	}
	if err := b.EmitBody(0, NewChunk()); err == nil {
		t.Error("second body should fail")
	}
	if _, err := b.DeclareType("Animal", NoType); err == nil {
		t.Error("duplicate type should fail")
	}
	if _, err := b.DeclareType("Cat", 42); err == nil {
		t.Error("unknown base should fail")
	}
}

func TestModuleBuilderRequiresBodies(t *testing.T) {
	b := NewModuleBuilder("m")
	typ, _ := b.DeclareType("A", NoType)
	if _, err := b.DeclareMethod(typ, "f", []string{"Integer"}, ""); err != nil {
		t.Fatal(err)
	}
	_, err := b.Finalize(typ)
	if err == nil || !strings.Contains(err.Error(), "A.f(Integer) has no body") {
		t.Errorf("err = %v", err)
	}
}

func TestModuleBuilderAbstractMethods(t *testing.T) {
	b := NewModuleBuilder("m")
	typ, _ := b.DeclareType("Animal", NoType)
	tok, err := b.DeclareAbstractMethod(typ, "speak", nil, "Integer")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.EmitBody(tok, NewChunk()); err == nil || !strings.Contains(err.Error(), "is abstract") {
		t.Errorf("EmitBody on an abstract method: err = %v", err)
	}
	if _, err := b.Finalize(typ); err != nil {
		t.Fatalf("abstract methods need no body: %v", err)
	}
	mod, err := b.Module()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mod.Disassemble(), "speak() : Integer === <abstract>") {
		t.Errorf("listing:\n%s", mod.Disassemble())
	}
}

func TestModuleRoundTrip(t *testing.T) {
	b := buildAnimals(t)
	b.Finalize(0)
	b.Finalize(1)
	mod, err := b.Module()
	if err != nil {
		t.Fatal(err)
	}

	data, err := mod.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("OBC1")) {
		t.Errorf("missing magic: % X", data[:4])
	}

	back, err := ReadModule(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.MVID != mod.MVID || back.Name != "animals" {
		t.Errorf("header mismatch: %s %s", back.Name, back.MVID)
	}
	if len(back.Types) != 2 || back.Types[1].Base != 0 {
		t.Fatalf("types = %+v", back.Types)
	}
	speak := back.Method(back.Types[1].Methods[0])
	if speak.Sig() != "speak()" || speak.Return != "Integer" || !bytes.Equal(speak.Body.Code, mod.Method(3).Body.Code) {
		t.Errorf("Dog.speak = %+v", speak)
	}

	again, err := back.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("canonical encoding is not stable")
	}
}

func TestReadModuleRejectsBadInput(t *testing.T) {
	if _, err := ReadModule([]byte("XXXX")); err == nil {
		t.Error("expected magic error")
	}
	if _, err := ReadModule([]byte("OBC1\xff")); err == nil {
		t.Error("expected decode error")
	}
}
