package bytecode

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Tokens index the metadata tables of a Module. Instructions refer to
// types, fields, methods and natives only through tokens.
type (
	TypeToken   int
	FieldToken  int
	MethodToken int
	NativeToken int
)

// NoType marks a type without a base.
const NoType TypeToken = -1

// Module is the executable unit produced by the code generator.
type Module struct {
	Name    string      `cbor:"1,keyasint"`
	MVID    uuid.UUID   `cbor:"2,keyasint"` // module version id, fresh per build
	Version uint16      `cbor:"3,keyasint"`
	Types   []*Type     `cbor:"4,keyasint,omitempty"`
	Fields  []*Field    `cbor:"5,keyasint,omitempty"`
	Methods []*Method   `cbor:"6,keyasint,omitempty"`
	Natives []NativeRef `cbor:"7,keyasint,omitempty"`
}

// FormatVersion is the current Module layout version.
const FormatVersion uint16 = 1

// Type is one class of the unit.
type Type struct {
	Token     TypeToken     `cbor:"1,keyasint"`
	Name      string        `cbor:"2,keyasint"`
	Base      TypeToken     `cbor:"3,keyasint"`
	Fields    []FieldToken  `cbor:"4,keyasint,omitempty"` // own fields, declaration order
	Ctors     []MethodToken `cbor:"5,keyasint,omitempty"`
	Methods   []MethodToken `cbor:"6,keyasint,omitempty"`
	Finalized bool          `cbor:"7,keyasint"`
}

// Field describes a field slot.
type Field struct {
	Owner TypeToken `cbor:"1,keyasint"`
	Name  string    `cbor:"2,keyasint"`
	Type  string    `cbor:"3,keyasint"`
	Slot  int       `cbor:"4,keyasint"` // index in the instance, inherited fields first
}

// Method describes a constructor or method and its body.
type Method struct {
	Owner  TypeToken `cbor:"1,keyasint"`
	Name   string    `cbor:"2,keyasint"`
	Params []string  `cbor:"3,keyasint,omitempty"`
	Return string    `cbor:"4,keyasint,omitempty"` // "" for procedures and constructors
	IsCtor bool      `cbor:"5,keyasint"`
	Body   *Chunk    `cbor:"6,keyasint,omitempty"`

	// Abstract methods have no body; a subclass supplies the override.
	Abstract bool `cbor:"7,keyasint,omitempty"`
}

// CtorMethodName is the name recorded for constructors.
const CtorMethodName = "this"

// Sig is the dispatch key of the method: name and parameter types.
// Overrides share their base method's Sig.
func (m *Method) Sig() string {
	return m.Name + "(" + strings.Join(m.Params, ",") + ")"
}

// NativeRef is an imported runtime support operation, instantiated for a
// concrete type argument. Template is a catalogue key such as
// "Array.get(Integer)".
type NativeRef struct {
	Template string `cbor:"1,keyasint"`
	TypeArg  string `cbor:"2,keyasint,omitempty"`
}

func (n NativeRef) String() string {
	if n.TypeArg == "" {
		return n.Template
	}
	return n.Template + "[" + n.TypeArg + "]"
}

// Type returns the type for token t, or nil.
func (m *Module) Type(t TypeToken) *Type {
	if t < 0 || int(t) >= len(m.Types) {
		return nil
	}
	return m.Types[t]
}

// TypeByName returns the type named name, or nil.
func (m *Module) TypeByName(name string) *Type {
	for _, t := range m.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Method returns the method for token t, or nil.
func (m *Module) Method(t MethodToken) *Method {
	if t < 0 || int(t) >= len(m.Methods) {
		return nil
	}
	return m.Methods[t]
}

// Field returns the field for token t, or nil.
func (m *Module) Field(t FieldToken) *Field {
	if t < 0 || int(t) >= len(m.Fields) {
		return nil
	}
	return m.Fields[t]
}

// SlotCount returns the number of field slots of an instance of t,
// inherited fields included.
func (m *Module) SlotCount(t TypeToken) int {
	n := 0
	seen := make(map[TypeToken]bool)
	for typ := m.Type(t); typ != nil && !seen[typ.Token]; typ = m.Type(typ.Base) {
		seen[typ.Token] = true
		n += len(typ.Fields)
	}
	return n
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Magic bytes for serialized modules.
var moduleMagic = []byte("OBC1")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalBinary serializes the module: the magic bytes followed by the
// canonical CBOR encoding.
func (m *Module) MarshalBinary() ([]byte, error) {
	body, err := cborEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal module: %w", err)
	}
	out := make([]byte, 0, len(moduleMagic)+len(body))
	out = append(out, moduleMagic...)
	return append(out, body...), nil
}

// UnmarshalBinary deserializes a module written by MarshalBinary.
func (m *Module) UnmarshalBinary(data []byte) error {
	if !bytes.HasPrefix(data, moduleMagic) {
		return fmt.Errorf("bytecode: invalid magic bytes")
	}
	if err := cbor.Unmarshal(data[len(moduleMagic):], m); err != nil {
		return fmt.Errorf("bytecode: unmarshal module: %w", err)
	}
	if m.Version != FormatVersion {
		return fmt.Errorf("bytecode: unsupported module version %d", m.Version)
	}
	return nil
}

// ReadModule deserializes a module.
func ReadModule(data []byte) (*Module, error) {
	var m Module
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &m, nil
}
