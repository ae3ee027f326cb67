package vm

import (
	"fmt"
	"strconv"
)

// Kind tags the representation held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindReal
	KindBool
	KindObject
	KindArray
	KindList
)

var kindNames = [...]string{"nil", "Integer", "Real", "Boolean", "object", "Array", "List"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a tagged O runtime value. Integers and booleans live in bits,
// reals in real, and heap objects in ref.
type Value struct {
	kind Kind
	bits int64
	real float64
	ref  any
}

// Nil is the value of an unset slot.
var Nil = Value{}

// Pre-defined boolean values
var (
	True  = Value{kind: KindBool, bits: 1}
	False = Value{kind: KindBool}
)

// FromInt creates an Integer value.
func FromInt(n int64) Value {
	return Value{kind: KindInt, bits: n}
}

// FromReal creates a Real value.
func FromReal(f float64) Value {
	return Value{kind: KindReal, real: f}
}

// FromBool creates a Boolean value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromObject wraps an instance of a user class.
func FromObject(o *Object) Value {
	return Value{kind: KindObject, ref: o}
}

// FromArray wraps a fixed-size array.
func FromArray(a *Array) Value {
	return Value{kind: KindArray, ref: a}
}

// FromList wraps a list.
func FromList(l *List) Value {
	return Value{kind: KindList, ref: l}
}

// Kind returns the representation tag.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v holds nothing.
func (v Value) IsNil() bool { return v.kind == KindNil }

// Int returns the Integer payload.
func (v Value) Int() int64 { return v.bits }

// Real returns the Real payload, widening an Integer.
func (v Value) Real() float64 {
	if v.kind == KindInt {
		return float64(v.bits)
	}
	return v.real
}

// Bool returns the Boolean payload.
func (v Value) Bool() bool { return v.bits != 0 }

// Object returns the instance, or nil.
func (v Value) Object() *Object {
	o, _ := v.ref.(*Object)
	return o
}

// Array returns the array, or nil.
func (v Value) Array() *Array {
	a, _ := v.ref.(*Array)
	return a
}

// List returns the list, or nil.
func (v Value) List() *List {
	l, _ := v.ref.(*List)
	return l
}

// Equal compares primitive values by payload and heap values by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindReal:
		return v.real == o.real
	case KindInt, KindBool:
		return v.bits == o.bits
	case KindNil:
		return true
	}
	return v.ref == o.ref
}

// String renders the value the way Print writes it.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.bits, 10)
	case KindReal:
		return strconv.FormatFloat(v.real, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindObject:
		if o := v.Object(); o != nil {
			return "a " + o.Class.Name
		}
	case KindArray:
		if a := v.Array(); a != nil {
			return fmt.Sprintf("Array[%s](%d)", a.Elem, len(a.Items))
		}
	case KindList:
		if l := v.List(); l != nil {
			return fmt.Sprintf("List[%s](%d)", l.Elem, len(l.Items))
		}
	}
	return "nil"
}

// ZeroValue returns the initial value of a slot of the named type.
func ZeroValue(typeName string) Value {
	switch typeName {
	case "Integer":
		return FromInt(0)
	case "Real":
		return FromReal(0)
	case "Boolean":
		return False
	}
	return Nil
}
