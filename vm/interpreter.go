package vm

import (
	"fmt"

	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// CallFrame: Execution state for a method invocation
// ---------------------------------------------------------------------------

// CallFrame represents the execution state of a single method invocation.
type CallFrame struct {
	Method *bytecode.Method
	Name   string // Owner.sig, for errors
	This   Value
	Params []Value
	Locals []Value
	IP     int // instruction pointer (offset into the body)

	stack []Value // operand stack
}

func (f *CallFrame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *CallFrame) pop() (Value, error) {
	if len(f.stack) == 0 {
		return Nil, runtimeErrorf("operand stack underflow")
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *CallFrame) top() (Value, error) {
	if len(f.stack) == 0 {
		return Nil, runtimeErrorf("operand stack underflow")
	}
	return f.stack[len(f.stack)-1], nil
}

// popN pops n values and returns them in push order.
func (f *CallFrame) popN(n int) ([]Value, error) {
	if n > len(f.stack) {
		return nil, runtimeErrorf("operand stack underflow")
	}
	out := make([]Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out, nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func (vm *VM) methodName(m *bytecode.Method) string {
	if t := vm.Module.Type(m.Owner); t != nil {
		return t.Name + "." + m.Sig()
	}
	return m.Sig()
}

// construct allocates an instance of the constructor's type and runs the
// constructor on it.
func (vm *VM) construct(ctor bytecode.MethodToken, args []Value, depth int) (Value, error) {
	m := vm.Module.Method(ctor)
	if m == nil || !m.IsCtor {
		return Nil, fmt.Errorf("vm: token %d is not a constructor", ctor)
	}
	obj := FromObject(NewObject(vm.classes[m.Owner]))
	if _, err := vm.execute(ctor, obj, args, depth); err != nil {
		return Nil, err
	}
	return obj, nil
}

// execute runs method tok with receiver this.
func (vm *VM) execute(tok bytecode.MethodToken, this Value, args []Value, depth int) (Value, error) {
	m := vm.Module.Method(tok)
	if m != nil && m.Abstract {
		return Nil, runtimeErrorf("%s is abstract", vm.methodName(m))
	}
	if m == nil || m.Body == nil {
		return Nil, fmt.Errorf("vm: method token %d has no body", tok)
	}
	if depth >= vm.MaxDepth {
		return Nil, runtimeErrorf("call depth exceeds %d", vm.MaxDepth)
	}
	if len(args) != len(m.Params) {
		return Nil, runtimeErrorf("%s called with %d arguments", vm.methodName(m), len(args))
	}

	frame := &CallFrame{
		Method: m,
		Name:   vm.methodName(m),
		This:   this,
		Params: args,
		Locals: make([]Value, m.Body.LocalCount),
	}
	vm.log.Debugf("enter %s (depth %d)", frame.Name, depth)

	result, err := vm.run(frame, depth)
	if err != nil {
		var line uint32
		var col uint16
		if frame.IP > 0 {
			line, col = m.Body.GetSourceLocation(uint32(frame.IP - 1))
		}
		return Nil, locate(err, frame.Name, line, col)
	}
	return result, nil
}

func (vm *VM) run(f *CallFrame, depth int) (Value, error) {
	body := f.Method.Body
	code := body.Code
	for {
		if f.IP >= len(code) {
			return vm.returnVoid(f)
		}
		start := f.IP
		op := bytecode.Opcode(code[start])
		if start+op.InstructionLen() > len(code) {
			return Nil, runtimeErrorf("truncated %s at %04X", op, start)
		}
		f.IP += op.InstructionLen()

		switch op {
		// --- Stack operations ---
		case bytecode.OpNop:
			// Do nothing

		case bytecode.OpPop:
			if _, err := f.pop(); err != nil {
				return Nil, err
			}

		case bytecode.OpDup:
			v, err := f.top()
			if err != nil {
				return Nil, err
			}
			f.push(v)

		// --- Constants ---
		case bytecode.OpConstInt:
			idx := int(body.ReadUint16(start + 1))
			if idx >= len(body.Ints) {
				return Nil, runtimeErrorf("integer constant %d out of range", idx)
			}
			f.push(FromInt(body.Ints[idx]))

		case bytecode.OpConstReal:
			idx := int(body.ReadUint16(start + 1))
			if idx >= len(body.Reals) {
				return Nil, runtimeErrorf("real constant %d out of range", idx)
			}
			f.push(FromReal(body.Reals[idx]))

		case bytecode.OpConstTrue:
			f.push(True)

		case bytecode.OpConstFalse:
			f.push(False)

		// --- Variables ---
		case bytecode.OpLoadLocal, bytecode.OpStoreLocal:
			slot := int(code[start+1])
			if slot >= len(f.Locals) {
				return Nil, runtimeErrorf("local slot %d out of range", slot)
			}
			if op == bytecode.OpLoadLocal {
				f.push(f.Locals[slot])
				continue
			}
			v, err := f.pop()
			if err != nil {
				return Nil, err
			}
			f.Locals[slot] = v

		case bytecode.OpLoadParam, bytecode.OpStoreParam:
			idx := int(code[start+1])
			if idx >= len(f.Params) {
				return Nil, runtimeErrorf("parameter %d out of range", idx)
			}
			if op == bytecode.OpLoadParam {
				f.push(f.Params[idx])
				continue
			}
			v, err := f.pop()
			if err != nil {
				return Nil, err
			}
			f.Params[idx] = v

		case bytecode.OpLoadThis:
			f.push(f.This)

		// --- Fields ---
		case bytecode.OpLoadField:
			field, err := vm.field(body.ReadUint16(start + 1))
			if err != nil {
				return Nil, err
			}
			target, err := f.pop()
			if err != nil {
				return Nil, err
			}
			obj := target.Object()
			if obj == nil {
				return Nil, runtimeErrorf("read of field %s on %s", field.Name, target.Kind())
			}
			v, err := obj.GetSlot(field.Slot)
			if err != nil {
				return Nil, err
			}
			f.push(v)

		case bytecode.OpStoreField:
			field, err := vm.field(body.ReadUint16(start + 1))
			if err != nil {
				return Nil, err
			}
			vals, err := f.popN(2)
			if err != nil {
				return Nil, err
			}
			obj := vals[0].Object()
			if obj == nil {
				return Nil, runtimeErrorf("write of field %s on %s", field.Name, vals[0].Kind())
			}
			if err := obj.SetSlot(field.Slot, vals[1]); err != nil {
				return Nil, err
			}

		// --- Conversions ---
		case bytecode.OpConvReal:
			v, err := f.pop()
			if err != nil {
				return Nil, err
			}
			f.push(FromReal(v.Real()))

		// --- Control flow ---
		case bytecode.OpJump:
			f.IP += int(body.ReadInt16(start + 1))

		case bytecode.OpJumpFalse:
			cond, err := f.pop()
			if err != nil {
				return Nil, err
			}
			if cond.Kind() != KindBool {
				return Nil, runtimeErrorf("condition is %s, not Boolean", cond.Kind())
			}
			if !cond.Bool() {
				f.IP += int(body.ReadInt16(start + 1))
			}

		// --- Calls ---
		case bytecode.OpCall, bytecode.OpCallVirt, bytecode.OpNewObj, bytecode.OpCallNative:
			tok := int(body.ReadUint16(start + 1))
			argc := int(code[start+3])
			if err := vm.call(f, op, tok, argc, depth); err != nil {
				return Nil, err
			}

		// --- Return ---
		case bytecode.OpReturn:
			return f.pop()

		case bytecode.OpReturnVoid:
			return vm.returnVoid(f)

		default:
			return Nil, runtimeErrorf("unknown opcode %s at %04X", op, start)
		}

		if f.IP < 0 || f.IP > len(code) {
			return Nil, runtimeErrorf("jump out of range from %04X", start)
		}
	}
}

func (vm *VM) returnVoid(f *CallFrame) (Value, error) {
	if f.Method.Return != "" && !f.Method.IsCtor {
		return Nil, runtimeErrorf("%s ended without returning a value", f.Name)
	}
	return Nil, nil
}

func (vm *VM) field(tok uint16) (*bytecode.Field, error) {
	field := vm.Module.Field(bytecode.FieldToken(tok))
	if field == nil {
		return nil, runtimeErrorf("unknown field token %d", tok)
	}
	return field, nil
}

// call performs one of the four call instructions. CALL and CALLVIRT push
// a result only for methods with a return type; NEW_OBJ pushes the new
// instance; CALL_NATIVE always pushes one value.
func (vm *VM) call(f *CallFrame, op bytecode.Opcode, tok, argc, depth int) error {
	args, err := f.popN(argc)
	if err != nil {
		return err
	}

	switch op {
	case bytecode.OpCallNative:
		if tok >= len(vm.natives) {
			return runtimeErrorf("unknown native token %d", tok)
		}
		n := vm.natives[tok]
		result, err := n.fn(vm, n.ref.TypeArg, args)
		if err != nil {
			return err
		}
		f.push(result)
		return nil

	case bytecode.OpNewObj:
		obj, err := vm.construct(bytecode.MethodToken(tok), args, depth+1)
		if err != nil {
			return err
		}
		f.push(obj)
		return nil
	}

	recv, err := f.pop()
	if err != nil {
		return err
	}
	target := bytecode.MethodToken(tok)
	static := vm.Module.Method(target)
	if static == nil {
		return runtimeErrorf("unknown method token %d", tok)
	}
	if op == bytecode.OpCallVirt {
		obj := recv.Object()
		if obj == nil {
			return runtimeErrorf("call of %s on %s", static.Sig(), recv.Kind())
		}
		impl, ok := obj.Class.VTable.Lookup(static.Sig())
		if !ok {
			return runtimeErrorf("%s does not understand %s", obj.Class.Name, static.Sig())
		}
		target = impl
	}

	result, err := vm.execute(target, recv, args, depth+1)
	if err != nil {
		return err
	}
	if static.Return != "" && !static.IsCtor {
		f.push(result)
	}
	return nil
}
