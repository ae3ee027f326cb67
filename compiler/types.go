package compiler

import "strings"

// Built-in type names.
const (
	IntegerName = "Integer"
	RealName    = "Real"
	BooleanName = "Boolean"
	ArrayName   = "Array"
	ListName    = "List"
	VoidName    = "void"
)

// Well-known types.
var (
	Unknown     = TypeRef{}
	Void        = TypeRef{Name: VoidName}
	IntegerType = TypeRef{Name: IntegerName}
	RealType    = TypeRef{Name: RealName}
	BooleanType = TypeRef{Name: BooleanName}
)

// Named returns a TypeRef with no argument.
func Named(name string) TypeRef {
	return TypeRef{Name: name}
}

// Generic returns name[arg].
func Generic(name string, arg TypeRef) TypeRef {
	a := arg
	return TypeRef{Name: name, Arg: &a}
}

// IsUnknown reports whether t carries no type information.
func (t TypeRef) IsUnknown() bool {
	return t.Name == ""
}

// IsVoid reports whether t is the absent return type.
func (t TypeRef) IsVoid() bool {
	return t.Name == VoidName
}

// Element returns the type argument, or Unknown.
func (t TypeRef) Element() TypeRef {
	if t.Arg == nil {
		return Unknown
	}
	return *t.Arg
}

// Equal reports structural equality.
func (t TypeRef) Equal(o TypeRef) bool {
	if t.Name != o.Name {
		return false
	}
	if t.Arg == nil || o.Arg == nil {
		return t.Arg == nil && o.Arg == nil
	}
	return t.Arg.Equal(*o.Arg)
}

// String renders the type the way it is written in source.
func (t TypeRef) String() string {
	if t.IsUnknown() {
		return "<unknown>"
	}
	if t.Arg == nil {
		return t.Name
	}
	return t.Name + "[" + t.Arg.String() + "]"
}

// Substitute replaces every occurrence of the type parameter param with arg.
func (t TypeRef) Substitute(param string, arg TypeRef) TypeRef {
	if param == "" || t.IsUnknown() {
		return t
	}
	if t.Name == param && t.Arg == nil {
		return arg
	}
	if t.Arg == nil {
		return t
	}
	return Generic(t.Name, t.Arg.Substitute(param, arg))
}

// ParseTypeRef parses the String form back into a TypeRef.
func ParseTypeRef(s string) TypeRef {
	s = strings.TrimSpace(s)
	if s == "" || s == "<unknown>" {
		return Unknown
	}
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return Named(s)
	}
	return Generic(s[:open], ParseTypeRef(s[open+1:len(s)-1]))
}

// typeList renders a parameter type vector.
func typeList(types []TypeRef) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// ParamTypes returns the type vector of a parameter list.
func ParamTypes(params []Param) []TypeRef {
	out := make([]TypeRef, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// SameTypes reports whether two type vectors are equal position by position.
func SameTypes(a, b []TypeRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
