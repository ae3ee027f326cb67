package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
	"github.com/tliron/commonlog"
)

// DefaultMaxDepth bounds the call depth of one execution.
const DefaultMaxDepth = 1024

// VM executes a compiled module.
type VM struct {
	Module *bytecode.Module

	// Out receives everything Print writes.
	Out io.Writer

	// MaxDepth bounds recursion; exceeding it is a runtime error.
	MaxDepth int

	classes []*Class
	natives []boundNative
	log     commonlog.Logger
}

type boundNative struct {
	ref bytecode.NativeRef
	fn  NativeFunc
}

// Option configures a VM.
type Option func(*VM)

// WithOutput sends Print output to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.Out = w
	}
}

// WithLogger traces loading and calls to log.
func WithLogger(log commonlog.Logger) Option {
	return func(vm *VM) {
		if log != nil {
			vm.log = log
		}
	}
}

// New loads mod: it builds a class and vtable per type and binds every
// imported native to the runtime support table.
func New(mod *bytecode.Module, opts ...Option) (*VM, error) {
	vm := &VM{
		Module:   mod,
		Out:      os.Stdout,
		MaxDepth: DefaultMaxDepth,
		log:      commonlog.MockLogger{},
	}
	for _, opt := range opts {
		opt(vm)
	}

	vm.classes = make([]*Class, len(mod.Types))
	for _, t := range mod.Types {
		if _, err := vm.loadClass(t.Token, map[bytecode.TypeToken]bool{}); err != nil {
			return nil, err
		}
	}

	for _, ref := range mod.Natives {
		fn, ok := LookupNative(ref.Template)
		if !ok {
			return nil, fmt.Errorf("vm: no runtime support for %s", ref)
		}
		vm.natives = append(vm.natives, boundNative{ref: ref, fn: fn})
	}
	vm.log.Debugf("loaded module %s: %d classes, %d natives", mod.Name, len(vm.classes), len(vm.natives))
	return vm, nil
}

func (vm *VM) loadClass(tok bytecode.TypeToken, loading map[bytecode.TypeToken]bool) (*Class, error) {
	if c := vm.classes[tok]; c != nil {
		return c, nil
	}
	t := vm.Module.Type(tok)
	if !t.Finalized {
		return nil, fmt.Errorf("vm: type %s is not finalized", t.Name)
	}
	if loading[tok] {
		return nil, fmt.Errorf("vm: type %s inherits from itself", t.Name)
	}
	loading[tok] = true

	c := &Class{Name: t.Name, Token: tok}
	var parent *VTable
	if t.Base != bytecode.NoType {
		if vm.Module.Type(t.Base) == nil {
			return nil, fmt.Errorf("vm: type %s has an unknown base", t.Name)
		}
		super, err := vm.loadClass(t.Base, loading)
		if err != nil {
			return nil, err
		}
		c.Super = super
		parent = super.VTable
	}
	c.NumSlots = vm.Module.SlotCount(tok)
	c.VTable = NewVTable(parent)
	for _, m := range t.Methods {
		c.VTable.AddMethod(vm.Module.Methods[m].Sig(), m)
	}
	vm.classes[tok] = c
	return c, nil
}

// Class returns the runtime class named name, or nil.
func (vm *VM) Class(name string) *Class {
	for _, c := range vm.classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Instantiate creates an instance of the named class with the constructor
// whose parameter types are paramTypes.
func (vm *VM) Instantiate(className string, paramTypes []string, args ...Value) (Value, error) {
	c := vm.Class(className)
	if c == nil {
		return Nil, fmt.Errorf("vm: no class named %s", className)
	}
	want := (&bytecode.Method{Name: bytecode.CtorMethodName, Params: paramTypes}).Sig()
	for _, tok := range vm.Module.Types[c.Token].Ctors {
		if vm.Module.Methods[tok].Sig() == want {
			return vm.construct(tok, args, 0)
		}
	}
	return Nil, fmt.Errorf("vm: %s has no constructor %s", className, want)
}

// Run executes a program: it instantiates the entry class with its
// no-argument constructor.
func (vm *VM) Run(entry string) error {
	_, err := vm.Instantiate(entry, nil)
	return err
}

// Invoke calls the method with signature sig, e.g. "speak()", on recv
// with virtual dispatch.
func (vm *VM) Invoke(recv Value, sig string, args ...Value) (Value, error) {
	obj := recv.Object()
	if obj == nil {
		return Nil, runtimeErrorf("call of %s on %s", sig, recv.Kind())
	}
	tok, ok := obj.Class.VTable.Lookup(sig)
	if !ok {
		return Nil, fmt.Errorf("vm: %s does not understand %s", obj.Class.Name, sig)
	}
	return vm.execute(tok, recv, args, 0)
}
