package compiler

import "strings"

// ---------------------------------------------------------------------------
// Built-in catalogue: constructors and methods of the value types and the
// generic containers. Seeded once per Registry, read-only afterwards.
// ---------------------------------------------------------------------------

// TypeParam is the name used for the element type of the built-in containers.
const TypeParam = "T"

// CtorName is the method name recorded for constructor signatures.
const CtorName = "new"

// Signature describes one overload of a constructor or method.
type Signature struct {
	Owner  string // type name without type argument
	Name   string // method name, or CtorName
	Params []TypeRef
	Return TypeRef // Void for procedures; the constructed type for constructors
}

// Key is the stable identifier of the overload, e.g. "Integer.Plus(Real)".
// The runtime support table is keyed by it.
func (s Signature) Key() string {
	var b strings.Builder
	b.WriteString(s.Owner)
	b.WriteByte('.')
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Instantiate substitutes the container element type into the signature.
func (s Signature) Instantiate(elem TypeRef) Signature {
	if elem.IsUnknown() {
		return s
	}
	out := Signature{Owner: s.Owner, Name: s.Name, Return: s.Return.Substitute(TypeParam, elem)}
	out.Params = make([]TypeRef, len(s.Params))
	for i, p := range s.Params {
		out.Params[i] = p.Substitute(TypeParam, elem)
	}
	return out
}

var (
	tParam = Named(TypeParam)
	arrayT = Generic(ArrayName, tParam)
	listT  = Generic(ListName, tParam)
)

func sig(owner, name string, ret TypeRef, params ...TypeRef) Signature {
	return Signature{Owner: owner, Name: name, Params: params, Return: ret}
}

// numericOps adds the arithmetic and comparison overloads shared by Integer
// and Real. Mixed operands always produce Real.
func numericOps(owner string, self TypeRef) []Signature {
	var out []Signature
	for _, op := range []string{"Plus", "Minus", "Mult", "Div"} {
		out = append(out,
			sig(owner, op, self, self),
			sig(owner, op, RealType, otherNumeric(self)))
	}
	for _, op := range []string{"Less", "LessEqual", "Greater", "GreaterEqual", "Equal"} {
		out = append(out,
			sig(owner, op, BooleanType, self),
			sig(owner, op, BooleanType, otherNumeric(self)))
	}
	out = append(out,
		sig(owner, "Rem", self, IntegerType),
		sig(owner, "UnaryMinus", self),
		sig(owner, "Print", Void))
	return out
}

func otherNumeric(t TypeRef) TypeRef {
	if t.Name == IntegerName {
		return RealType
	}
	return IntegerType
}

// seedBuiltins returns the built-in constructor and method catalogue.
func seedBuiltins() (ctors map[string][]Signature, methods map[string][]Signature) {
	ctors = map[string][]Signature{
		IntegerName: {
			sig(IntegerName, CtorName, IntegerType),
			sig(IntegerName, CtorName, IntegerType, IntegerType),
			sig(IntegerName, CtorName, IntegerType, RealType),
		},
		RealName: {
			sig(RealName, CtorName, RealType),
			sig(RealName, CtorName, RealType, RealType),
			sig(RealName, CtorName, RealType, IntegerType),
		},
		BooleanName: {
			sig(BooleanName, CtorName, BooleanType),
			sig(BooleanName, CtorName, BooleanType, BooleanType),
		},
		ArrayName: {
			sig(ArrayName, CtorName, arrayT, IntegerType),
		},
		ListName: {
			sig(ListName, CtorName, listT),
			sig(ListName, CtorName, listT, tParam),
			sig(ListName, CtorName, listT, tParam, IntegerType),
		},
	}

	methods = map[string][]Signature{}
	methods[IntegerName] = append(numericOps(IntegerName, IntegerType),
		sig(IntegerName, "toReal", RealType),
		sig(IntegerName, "toBoolean", BooleanType))
	methods[RealName] = append(numericOps(RealName, RealType),
		sig(RealName, "toInteger", IntegerType))
	methods[BooleanName] = []Signature{
		sig(BooleanName, "And", BooleanType, BooleanType),
		sig(BooleanName, "Or", BooleanType, BooleanType),
		sig(BooleanName, "Xor", BooleanType, BooleanType),
		sig(BooleanName, "Not", BooleanType),
		sig(BooleanName, "toInteger", IntegerType),
		sig(BooleanName, "Print", Void),
	}
	methods[ArrayName] = []Signature{
		sig(ArrayName, "get", tParam, IntegerType),
		sig(ArrayName, "set", Void, IntegerType, tParam),
		sig(ArrayName, "Length", IntegerType),
		sig(ArrayName, "toList", listT),
	}
	methods[ListName] = []Signature{
		sig(ListName, "append", listT, tParam),
		sig(ListName, "head", tParam),
		sig(ListName, "tail", listT),
		sig(ListName, "isEmpty", BooleanType),
		sig(ListName, "Length", IntegerType),
	}
	return ctors, methods
}
