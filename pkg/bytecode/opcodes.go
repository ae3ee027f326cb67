package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack
	OpDup Opcode = 0x02 // Duplicate top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConstInt   Opcode = 0x10 // Push integer from pool: OpConstInt <index:u16>
	OpConstReal  Opcode = 0x11 // Push real from pool: OpConstReal <index:u16>
	OpConstTrue  Opcode = 0x12 // Push true
	OpConstFalse Opcode = 0x13 // Push false

	// ========================================================================
	// Locals, parameters and the receiver (0x20-0x2F)
	// ========================================================================

	OpLoadLocal  Opcode = 0x20 // Push local variable: OpLoadLocal <slot:u8>
	OpStoreLocal Opcode = 0x21 // Pop and store to local: OpStoreLocal <slot:u8>
	OpLoadParam  Opcode = 0x22 // Push parameter: OpLoadParam <index:u8>
	OpStoreParam Opcode = 0x23 // Pop and store to parameter: OpStoreParam <index:u8>
	OpLoadThis   Opcode = 0x24 // Push the receiver

	// ========================================================================
	// Fields (0x40-0x4F)
	// ========================================================================

	OpLoadField  Opcode = 0x40 // Pop object, push field: OpLoadField <field:u16>
	OpStoreField Opcode = 0x41 // Pop value and object, store: OpStoreField <field:u16>

	// ========================================================================
	// Conversions (0x50-0x5F)
	// ========================================================================

	OpConvReal Opcode = 0x50 // Widen the Integer on top of stack to Real

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpJump      Opcode = 0x80 // Unconditional jump: OpJump <offset:i16>
	OpJumpFalse Opcode = 0x81 // Pop, jump if false: OpJumpFalse <offset:i16>

	// ========================================================================
	// Calls (0x90-0x9F)
	// ========================================================================

	OpCall       Opcode = 0x90 // Direct call: OpCall <method:u16> <argc:u8>
	OpCallVirt   Opcode = 0x91 // Virtual call: OpCallVirt <method:u16> <argc:u8>
	OpNewObj     Opcode = 0x92 // Allocate and construct: OpNewObj <ctor:u16> <argc:u8>
	OpCallNative Opcode = 0x93 // Runtime support call: OpCallNative <native:u16> <argc:u8>

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn     Opcode = 0xF0 // Return top of stack
	OpReturnVoid Opcode = 0xF1 // Return without a value
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack (-1 = variable)
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop: {"NOP", 0, 0, 0},
	OpPop: {"POP", 1, 0, 0},
	OpDup: {"DUP", 1, 2, 0},

	// Constants
	OpConstInt:   {"CONST_INT", 0, 1, 2},
	OpConstReal:  {"CONST_REAL", 0, 1, 2},
	OpConstTrue:  {"CONST_TRUE", 0, 1, 0},
	OpConstFalse: {"CONST_FALSE", 0, 1, 0},

	// Locals
	OpLoadLocal:  {"LOAD_LOCAL", 0, 1, 1},
	OpStoreLocal: {"STORE_LOCAL", 1, 0, 1},
	OpLoadParam:  {"LOAD_PARAM", 0, 1, 1},
	OpStoreParam: {"STORE_PARAM", 1, 0, 1},
	OpLoadThis:   {"LOAD_THIS", 0, 1, 0},

	// Fields
	OpLoadField:  {"LOAD_FIELD", 1, 1, 2},
	OpStoreField: {"STORE_FIELD", 2, 0, 2},

	// Conversions
	OpConvReal: {"CONV_R", 1, 1, 0},

	// Control flow
	OpJump:      {"JUMP", 0, 0, 2},
	OpJumpFalse: {"JUMP_FALSE", 1, 0, 2},

	// Calls
	OpCall:       {"CALL", -1, -1, 3},     // Pops receiver + argc args
	OpCallVirt:   {"CALLVIRT", -1, -1, 3}, // Pops receiver + argc args
	OpNewObj:     {"NEW_OBJ", -1, 1, 3},   // Pops argc args
	OpCallNative: {"CALL_NATIVE", -1, -1, 3},

	// Return
	OpReturn:     {"RET", 1, 0, 0},
	OpReturnVoid: {"RET_VOID", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpJumpFalse
}

// IsReturn returns true if this opcode terminates execution.
func (op Opcode) IsReturn() bool {
	return op >= OpReturn && op <= OpReturnVoid
}

// IsCall returns true if this opcode invokes a method, constructor or native.
func (op Opcode) IsCall() bool {
	return op >= OpCall && op <= OpCallNative
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
