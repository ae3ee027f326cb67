package vm

// Object is an instance of a user class. Slots hold the fields, inherited
// fields first.
type Object struct {
	Class *Class
	Slots []Value
}

// NewObject allocates an instance of c with every slot nil.
func NewObject(c *Class) *Object {
	return &Object{Class: c, Slots: make([]Value, c.NumSlots)}
}

// GetSlot returns the value of slot i.
func (o *Object) GetSlot(i int) (Value, error) {
	if i < 0 || i >= len(o.Slots) {
		return Nil, runtimeErrorf("slot %d out of range for %s", i, o.Class.Name)
	}
	return o.Slots[i], nil
}

// SetSlot stores v in slot i.
func (o *Object) SetSlot(i int, v Value) error {
	if i < 0 || i >= len(o.Slots) {
		return runtimeErrorf("slot %d out of range for %s", i, o.Class.Name)
	}
	o.Slots[i] = v
	return nil
}

// Array is a fixed-size container.
type Array struct {
	Elem  string
	Items []Value
}

// NewArray allocates n elements initialised to the zero value of elem.
func NewArray(elem string, n int) *Array {
	a := &Array{Elem: elem, Items: make([]Value, n)}
	zero := ZeroValue(elem)
	for i := range a.Items {
		a.Items[i] = zero
	}
	return a
}

// List is a resizable sequence. append mutates and returns the same list.
type List struct {
	Elem  string
	Items []Value
}

// NewList creates an empty list.
func NewList(elem string) *List {
	return &List{Elem: elem}
}
