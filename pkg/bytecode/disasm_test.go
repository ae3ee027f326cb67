package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleSimple(t *testing.T) {
	c := NewChunk()
	c.EmitInt(5)
	c.Emit(OpConvReal)
	c.EmitReal(2.5)
	c.Emit(OpReturn)

	output := c.Disassemble()

	for _, want := range []string{"CONST_INT 0 ; 5", "CONV_R", "CONST_REAL 0 ; 2.5", "RET", "int[  0] 5"} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in:\n%s", want, output)
		}
	}
}

func TestDisassembleWithNames(t *testing.T) {
	c := NewChunk()
	c.ParamCount = 2
	c.ParamNames = []string{"x", "y"}
	c.LocalCount = 1
	c.VarNames = []string{"sum"}

	c.EmitSlot(OpLoadParam, 1)
	c.EmitSlot(OpStoreLocal, 0)
	c.Emit(OpReturnVoid)

	output := c.DisassembleWithName("A.f(Integer,Integer)")

	for _, want := range []string{"=== A.f(Integer,Integer) ===", "Parameters (2): x, y", "LOAD_PARAM 1 ; y", "STORE_LOCAL 0 ; sum", "Locals: 1 slots"} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in:\n%s", want, output)
		}
	}
}

func TestDisassembleJumps(t *testing.T) {
	c := NewChunk()
	c.Emit(OpConstFalse)
	exit := c.EmitJump(OpJumpFalse)
	c.Emit(OpNop)
	c.PatchJump(exit)

	lines := c.DisassembleToLines()
	if len(lines) != 3 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.Contains(lines[1], "JUMP_FALSE +1 (-> 0005)") {
		t.Errorf("jump line = %q", lines[1])
	}
	if c.InstructionCount() != 3 {
		t.Errorf("InstructionCount() = %d, want 3", c.InstructionCount())
	}
}

func TestDisassembleTruncated(t *testing.T) {
	c := NewChunk()
	c.Code = []byte{byte(OpCall), 0x00}
	if got := c.DisassembleInstruction(0); !strings.Contains(got, "truncated") {
		t.Errorf("got %q", got)
	}
}

func TestModuleDisassemble(t *testing.T) {
	b := buildAnimals(t)
	main, _ := b.DeclareType("Main", NoType)
	ctor, _ := b.DeclareConstructor(main, nil)
	body := NewChunk()
	body.EmitCall(OpNewObj, 2, 0)
	body.EmitCall(OpCallVirt, 1, 0)
	body.EmitCall(OpCallNative, 0, 1)
	body.Emit(OpReturnVoid)
	b.EmitBody(ctor, body)
	for tok := TypeToken(0); tok < 3; tok++ {
		if _, err := b.Finalize(tok); err != nil {
			t.Fatal(err)
		}
	}
	mod, _ := b.Module()

	output := mod.Disassemble()
	for _, want := range []string{
		"type Dog extends Animal",
		"field legs : Integer (slot 0)",
		"field name : Integer (slot 1)",
		"=== Dog.speak() : Integer ===",
		"NEW_OBJ 2 (Dog.this()) argc=0",
		"CALLVIRT 1 (Animal.speak()) argc=0",
		"CALL_NATIVE 0 (Integer.Print()) argc=1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in:\n%s", want, output)
		}
	}
}
