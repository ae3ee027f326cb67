package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.disassemble("", nil)
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	return c.disassemble(name, nil)
}

func (c *Chunk) disassemble(name string, mod *Module) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}

	// Parameters
	if c.ParamCount > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): %s\n", c.ParamCount, strings.Join(c.ParamNames, ", ")))
	}

	// Locals
	if c.LocalCount > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %d slots\n", c.LocalCount))
	}

	// Constants
	if len(c.Ints) > 0 || len(c.Reals) > 0 {
		sb.WriteString("; Constants:\n")
		for i, v := range c.Ints {
			sb.WriteString(fmt.Sprintf(";   int[%3d] %d\n", i, v))
		}
		for i, v := range c.Reals {
			sb.WriteString(fmt.Sprintf(";   real[%3d] %g\n", i, v))
		}
	}

	// Code section
	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset, mod)
		if srcLine, srcCol := c.GetSourceLocation(uint32(offset)); srcLine > 0 {
			sb.WriteString(fmt.Sprintf("%04X  %-40s ; line %d:%d\n", offset, line, srcLine, srcCol))
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}
		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length. Token operands
// are annotated with names when mod is not nil.
func (c *Chunk) disassembleInstruction(offset int, mod *Module) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)
	instrLen := op.InstructionLen()
	if offset+instrLen > len(c.Code) {
		return fmt.Sprintf("%s <truncated>", info.Name), len(c.Code) - offset
	}

	switch op {
	case OpConstInt:
		idx := c.ReadUint16(offset + 1)
		if int(idx) < len(c.Ints) {
			return fmt.Sprintf("CONST_INT %d ; %d", idx, c.Ints[idx]), instrLen
		}
		return fmt.Sprintf("CONST_INT %d", idx), instrLen

	case OpConstReal:
		idx := c.ReadUint16(offset + 1)
		if int(idx) < len(c.Reals) {
			return fmt.Sprintf("CONST_REAL %d ; %g", idx, c.Reals[idx]), instrLen
		}
		return fmt.Sprintf("CONST_REAL %d", idx), instrLen

	case OpLoadLocal, OpStoreLocal:
		slot := c.Code[offset+1]
		if int(slot) < len(c.VarNames) && c.VarNames[slot] != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, slot, c.VarNames[slot]), instrLen
		}
		return fmt.Sprintf("%s %d", info.Name, slot), instrLen

	case OpLoadParam, OpStoreParam:
		idx := c.Code[offset+1]
		if int(idx) < len(c.ParamNames) {
			return fmt.Sprintf("%s %d ; %s", info.Name, idx, c.ParamNames[idx]), instrLen
		}
		return fmt.Sprintf("%s %d", info.Name, idx), instrLen

	case OpLoadField, OpStoreField:
		tok := c.ReadUint16(offset + 1)
		if f := mod.fieldName(FieldToken(tok)); f != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, tok, f), instrLen
		}
		return fmt.Sprintf("%s %d", info.Name, tok), instrLen

	case OpJump, OpJumpFalse:
		delta := c.ReadInt16(offset + 1)
		target := offset + 3 + int(delta)
		return fmt.Sprintf("%s %+d (-> %04X)", info.Name, delta, target), instrLen

	case OpCall, OpCallVirt, OpNewObj, OpCallNative:
		tok := c.ReadUint16(offset + 1)
		argc := c.Code[offset+3]
		var target string
		if op == OpCallNative {
			target = mod.nativeName(NativeToken(tok))
		} else {
			target = mod.methodName(MethodToken(tok))
		}
		if target != "" {
			return fmt.Sprintf("%s %d (%s) argc=%d", info.Name, tok, target, argc), instrLen
		}
		return fmt.Sprintf("%s %d argc=%d", info.Name, tok, argc), instrLen

	default:
		if info.OperandLen == 0 {
			return info.Name, instrLen
		}

		// Format operands generically
		operands := make([]string, 0, info.OperandLen)
		for i := 0; i < info.OperandLen; i++ {
			operands = append(operands, fmt.Sprintf("0x%02X", c.Code[offset+1+i]))
		}
		return fmt.Sprintf("%s %s", info.Name, strings.Join(operands, " ")), instrLen
	}
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *Chunk) DisassembleInstruction(offset int) string {
	line, _ := c.disassembleInstruction(offset, nil)
	return line
}

// DisassembleToLines returns the disassembly as a slice of lines.
func (c *Chunk) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset, nil)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the chunk.
func (c *Chunk) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		offset += op.InstructionLen()
		count++
	}
	return count
}

// ---------------------------------------------------------------------------
// Module listing
// ---------------------------------------------------------------------------

// Disassemble lists every type of the module with its fields and the code
// of its constructors and methods.
func (m *Module) Disassemble() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; module %s v%d mvid=%s\n", m.Name, m.Version, m.MVID))
	if len(m.Natives) > 0 {
		sb.WriteString("; Natives:\n")
		for i, n := range m.Natives {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, n))
		}
	}
	for _, t := range m.Types {
		sb.WriteString("\n")
		if base := m.Type(t.Base); base != nil {
			sb.WriteString(fmt.Sprintf("type %s extends %s\n", t.Name, base.Name))
		} else {
			sb.WriteString(fmt.Sprintf("type %s\n", t.Name))
		}
		for _, tok := range t.Fields {
			f := m.Fields[tok]
			sb.WriteString(fmt.Sprintf("  field %s : %s (slot %d)\n", f.Name, f.Type, f.Slot))
		}
		for _, tok := range append(append([]MethodToken{}, t.Ctors...), t.Methods...) {
			method := m.Methods[tok]
			header := m.methodName(tok)
			if method.Return != "" {
				header += " : " + method.Return
			}
			sb.WriteString("\n")
			if method.Abstract {
				sb.WriteString(fmt.Sprintf("; === %s === <abstract>\n", header))
				continue
			}
			if method.Body == nil {
				sb.WriteString(fmt.Sprintf("; === %s === <no body>\n", header))
				continue
			}
			sb.WriteString(method.Body.disassemble(header, m))
		}
	}
	return sb.String()
}

func (m *Module) methodName(tok MethodToken) string {
	if m == nil {
		return ""
	}
	method := m.Method(tok)
	if method == nil {
		return ""
	}
	owner := ""
	if t := m.Type(method.Owner); t != nil {
		owner = t.Name
	}
	return owner + "." + method.Sig()
}

func (m *Module) fieldName(tok FieldToken) string {
	if m == nil {
		return ""
	}
	f := m.Field(tok)
	if f == nil {
		return ""
	}
	if t := m.Type(f.Owner); t != nil {
		return t.Name + "." + f.Name
	}
	return f.Name
}

func (m *Module) nativeName(tok NativeToken) string {
	if m == nil || tok < 0 || int(tok) >= len(m.Natives) {
		return ""
	}
	return m.Natives[tok].String()
}
