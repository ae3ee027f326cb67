package bytecode

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	BytecodeOffset uint32 `cbor:"1,keyasint"`
	Line           uint32 `cbor:"2,keyasint"`
	Column         uint16 `cbor:"3,keyasint"`
}

// Chunk is the instruction body of one constructor or method.
type Chunk struct {
	// Code section
	Code []byte `cbor:"1,keyasint"`

	// Constant pools referenced by OpConstInt and OpConstReal
	Ints  []int64   `cbor:"2,keyasint,omitempty"`
	Reals []float64 `cbor:"3,keyasint,omitempty"`

	// Parameter and local slot information
	ParamCount uint8    `cbor:"4,keyasint"`
	LocalCount uint8    `cbor:"5,keyasint"`
	ParamNames []string `cbor:"6,keyasint,omitempty"`
	VarNames   []string `cbor:"7,keyasint,omitempty"` // local slot names for debugging

	SourceMap []SourceLocation `cbor:"8,keyasint,omitempty"`
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code: make([]byte, 0, 64),
	}
}

// AddInt adds an integer constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (c *Chunk) AddInt(v int64) (uint16, error) {
	for i, x := range c.Ints {
		if x == v {
			return safecast.Conv[uint16](i)
		}
	}
	idx, err := safecast.Conv[uint16](len(c.Ints))
	if err != nil {
		return 0, fmt.Errorf("integer constant pool overflow: %w", err)
	}
	c.Ints = append(c.Ints, v)
	return idx, nil
}

// AddReal adds a real constant to the pool and returns its index.
func (c *Chunk) AddReal(v float64) (uint16, error) {
	for i, x := range c.Reals {
		if x == v {
			return safecast.Conv[uint16](i)
		}
	}
	idx, err := safecast.Conv[uint16](len(c.Reals))
	if err != nil {
		return 0, fmt.Errorf("real constant pool overflow: %w", err)
	}
	c.Reals = append(c.Reals, v)
	return idx, nil
}

// Emit appends a single-byte opcode to the code section.
func (c *Chunk) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitWithOperand appends an opcode with operand bytes.
func (c *Chunk) EmitWithOperand(op Opcode, operands ...byte) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = append(c.Code, operands...)
	return offset
}

// EmitInt emits an OpConstInt instruction for v.
func (c *Chunk) EmitInt(v int64) error {
	idx, err := c.AddInt(v)
	if err != nil {
		return err
	}
	c.EmitWithOperand(OpConstInt, byte(idx>>8), byte(idx))
	return nil
}

// EmitReal emits an OpConstReal instruction for v.
func (c *Chunk) EmitReal(v float64) error {
	idx, err := c.AddReal(v)
	if err != nil {
		return err
	}
	c.EmitWithOperand(OpConstReal, byte(idx>>8), byte(idx))
	return nil
}

// EmitSlot emits an instruction with a one-byte slot operand.
func (c *Chunk) EmitSlot(op Opcode, slot int) error {
	s, err := safecast.Conv[uint8](slot)
	if err != nil {
		return fmt.Errorf("%s slot %d: %w", op, slot, err)
	}
	c.EmitWithOperand(op, s)
	return nil
}

// EmitToken emits an instruction with a two-byte token operand.
func (c *Chunk) EmitToken(op Opcode, token int) error {
	t, err := safecast.Conv[uint16](token)
	if err != nil {
		return fmt.Errorf("%s token %d: %w", op, token, err)
	}
	c.EmitWithOperand(op, byte(t>>8), byte(t))
	return nil
}

// EmitCall emits a call instruction: a two-byte token and a one-byte
// argument count.
func (c *Chunk) EmitCall(op Opcode, token, argc int) error {
	t, err := safecast.Conv[uint16](token)
	if err != nil {
		return fmt.Errorf("%s token %d: %w", op, token, err)
	}
	n, err := safecast.Conv[uint8](argc)
	if err != nil {
		return fmt.Errorf("%s argc %d: %w", op, argc, err)
	}
	c.EmitWithOperand(op, byte(t>>8), byte(t), n)
	return nil
}

// EmitJump emits a jump instruction with a placeholder offset.
// Returns the offset of the placeholder for later patching.
func (c *Chunk) EmitJump(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), 0xFF, 0xFF) // Placeholder
	return offset + 1                              // Return offset of the placeholder bytes
}

// PatchJump patches a jump instruction's offset to jump to the current position.
func (c *Chunk) PatchJump(placeholderOffset int) error {
	return c.PatchJumpTo(placeholderOffset, len(c.Code))
}

// PatchJumpTo patches a jump to go to a specific offset.
func (c *Chunk) PatchJumpTo(placeholderOffset int, target int) error {
	jumpFrom := placeholderOffset + 2 // After the 2-byte offset
	delta, err := safecast.Conv[int16](target - jumpFrom)
	if err != nil {
		return fmt.Errorf("jump from %04X to %04X: %w", jumpFrom, target, err)
	}
	c.Code[placeholderOffset] = byte(uint16(delta) >> 8)
	c.Code[placeholderOffset+1] = byte(uint16(delta))
	return nil
}

// EmitLoop emits a backward jump to the given loop start.
func (c *Chunk) EmitLoop(loopStart int) error {
	placeholder := c.EmitJump(OpJump)
	return c.PatchJumpTo(placeholder, loopStart)
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// AddSourceLocation adds a debug source location mapping.
func (c *Chunk) AddSourceLocation(bytecodeOffset uint32, line uint32, column uint16) {
	c.SourceMap = append(c.SourceMap, SourceLocation{
		BytecodeOffset: bytecodeOffset,
		Line:           line,
		Column:         column,
	})
}

// GetSourceLocation returns the source location for a bytecode offset.
// Returns line 0, column 0 if no mapping exists.
func (c *Chunk) GetSourceLocation(offset uint32) (line uint32, column uint16) {
	// Find the nearest mapping at or before the offset
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		if c.SourceMap[i].BytecodeOffset <= offset {
			return c.SourceMap[i].Line, c.SourceMap[i].Column
		}
	}
	return 0, 0
}

// ReadUint16 reads a big-endian operand at offset.
func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// ReadInt16 reads a signed big-endian jump operand at offset.
func (c *Chunk) ReadInt16(offset int) int16 {
	return int16(binary.BigEndian.Uint16(c.Code[offset:]))
}
