package bytecode

import (
	"fmt"

	"github.com/google/uuid"
)

// Target is the set of declare, emit and finalize primitives a code
// generator writes an executable unit through. Types are declared first,
// members are declared against pending types, bodies are attached later
// and Finalize turns a type into its directly usable form.
type Target interface {
	DeclareType(name string, base TypeToken) (TypeToken, error)
	DeclareField(t TypeToken, name, typ string) (FieldToken, error)
	DeclareConstructor(t TypeToken, params []string) (MethodToken, error)
	DeclareMethod(t TypeToken, name string, params []string, ret string) (MethodToken, error)
	DeclareAbstractMethod(t TypeToken, name string, params []string, ret string) (MethodToken, error)
	ImportNative(template, typeArg string) (NativeToken, error)
	EmitBody(m MethodToken, body *Chunk) error

	// Finalize completes t. Some targets hand back an intermediate value
	// (Finalized unset); callers then look the type up with ResolveType.
	Finalize(t TypeToken) (*Type, error)
	ResolveType(name string) (*Type, error)
}

// ModuleBuilder is the Target that assembles a Module in memory.
type ModuleBuilder struct {
	mod *Module
}

var _ Target = (*ModuleBuilder)(nil)

// NewModuleBuilder creates a builder for a module with a fresh version id.
func NewModuleBuilder(name string) *ModuleBuilder {
	return &ModuleBuilder{
		mod: &Module{
			Name:    name,
			MVID:    uuid.New(),
			Version: FormatVersion,
		},
	}
}

func (b *ModuleBuilder) pendingType(t TypeToken) (*Type, error) {
	typ := b.mod.Type(t)
	if typ == nil {
		return nil, fmt.Errorf("bytecode: unknown type token %d", t)
	}
	if typ.Finalized {
		return nil, fmt.Errorf("bytecode: type %s is already finalized", typ.Name)
	}
	return typ, nil
}

// DeclareType adds a pending type deriving from base, or from nothing when
// base is NoType.
func (b *ModuleBuilder) DeclareType(name string, base TypeToken) (TypeToken, error) {
	if base != NoType && b.mod.Type(base) == nil {
		return NoType, fmt.Errorf("bytecode: type %s: unknown base token %d", name, base)
	}
	if b.mod.TypeByName(name) != nil {
		return NoType, fmt.Errorf("bytecode: type %s declared twice", name)
	}
	tok := TypeToken(len(b.mod.Types))
	b.mod.Types = append(b.mod.Types, &Type{Token: tok, Name: name, Base: base})
	return tok, nil
}

// DeclareField adds a field to a pending type. Slots are assigned when the
// type is finalized.
func (b *ModuleBuilder) DeclareField(t TypeToken, name, typ string) (FieldToken, error) {
	owner, err := b.pendingType(t)
	if err != nil {
		return -1, err
	}
	tok := FieldToken(len(b.mod.Fields))
	b.mod.Fields = append(b.mod.Fields, &Field{Owner: t, Name: name, Type: typ, Slot: -1})
	owner.Fields = append(owner.Fields, tok)
	return tok, nil
}

// DeclareConstructor adds a constructor signature to a pending type.
func (b *ModuleBuilder) DeclareConstructor(t TypeToken, params []string) (MethodToken, error) {
	owner, err := b.pendingType(t)
	if err != nil {
		return -1, err
	}
	tok := MethodToken(len(b.mod.Methods))
	b.mod.Methods = append(b.mod.Methods, &Method{Owner: t, Name: CtorMethodName, Params: params, IsCtor: true})
	owner.Ctors = append(owner.Ctors, tok)
	return tok, nil
}

// DeclareMethod adds a method signature to a pending type. ret is "" for
// procedures.
func (b *ModuleBuilder) DeclareMethod(t TypeToken, name string, params []string, ret string) (MethodToken, error) {
	owner, err := b.pendingType(t)
	if err != nil {
		return -1, err
	}
	tok := MethodToken(len(b.mod.Methods))
	b.mod.Methods = append(b.mod.Methods, &Method{Owner: t, Name: name, Params: params, Return: ret})
	owner.Methods = append(owner.Methods, tok)
	return tok, nil
}

// DeclareAbstractMethod adds a bodiless method signature to a pending type.
// It occupies a dispatch slot that subclasses override.
func (b *ModuleBuilder) DeclareAbstractMethod(t TypeToken, name string, params []string, ret string) (MethodToken, error) {
	tok, err := b.DeclareMethod(t, name, params, ret)
	if err != nil {
		return -1, err
	}
	b.mod.Methods[tok].Abstract = true
	return tok, nil
}

// ImportNative adds a reference to a runtime support operation.
func (b *ModuleBuilder) ImportNative(template, typeArg string) (NativeToken, error) {
	if template == "" {
		return -1, fmt.Errorf("bytecode: empty native template")
	}
	tok := NativeToken(len(b.mod.Natives))
	b.mod.Natives = append(b.mod.Natives, NativeRef{Template: template, TypeArg: typeArg})
	return tok, nil
}

// EmitBody attaches the instructions of a declared constructor or method.
func (b *ModuleBuilder) EmitBody(m MethodToken, body *Chunk) error {
	method := b.mod.Method(m)
	if method == nil {
		return fmt.Errorf("bytecode: unknown method token %d", m)
	}
	if _, err := b.pendingType(method.Owner); err != nil {
		return err
	}
	if method.Abstract {
		return fmt.Errorf("bytecode: %s.%s is abstract", b.mod.Types[method.Owner].Name, method.Sig())
	}
	if method.Body != nil {
		return fmt.Errorf("bytecode: %s.%s already has a body", b.mod.Types[method.Owner].Name, method.Sig())
	}
	if body == nil {
		return fmt.Errorf("bytecode: nil body for %s", method.Sig())
	}
	method.Body = body
	return nil
}

// Finalize completes t. Its base must be finalized first and every member
// that is not abstract must have a body.
func (b *ModuleBuilder) Finalize(t TypeToken) (*Type, error) {
	typ, err := b.pendingType(t)
	if err != nil {
		return nil, err
	}
	slot := 0
	if typ.Base != NoType {
		base := b.mod.Type(typ.Base)
		if !base.Finalized {
			return nil, fmt.Errorf("bytecode: type %s finalized before its base %s", typ.Name, base.Name)
		}
		slot = b.mod.SlotCount(typ.Base)
	}
	for _, tok := range append(append([]MethodToken{}, typ.Ctors...), typ.Methods...) {
		if m := b.mod.Methods[tok]; m.Body == nil && !m.Abstract {
			return nil, fmt.Errorf("bytecode: %s.%s has no body", typ.Name, m.Sig())
		}
	}
	for _, tok := range typ.Fields {
		b.mod.Fields[tok].Slot = slot
		slot++
	}
	typ.Finalized = true
	return typ, nil
}

// ResolveType looks a type up by name.
func (b *ModuleBuilder) ResolveType(name string) (*Type, error) {
	typ := b.mod.TypeByName(name)
	if typ == nil {
		return nil, fmt.Errorf("bytecode: no type named %s", name)
	}
	return typ, nil
}

// Module returns the assembled module. Every type must be finalized.
func (b *ModuleBuilder) Module() (*Module, error) {
	for _, t := range b.mod.Types {
		if !t.Finalized {
			return nil, fmt.Errorf("bytecode: type %s is not finalized", t.Name)
		}
	}
	return b.mod, nil
}
