package compiler

// Resolution is the outcome of overload selection.
type Resolution int

const (
	// Resolved means exactly one candidate was chosen.
	Resolved Resolution = iota
	// NoArity means no candidate takes the given number of arguments.
	NoArity
	// NoCompatible means candidates with the right arity exist but none
	// accepts the argument types.
	NoCompatible
	// Ambiguous means several candidates accept the arguments and none
	// matches them exactly.
	Ambiguous
)

// SelectOverload picks a parameter vector for args. An exact per-position
// match wins, the first in candidate order; otherwise the single candidate
// whose parameters accept the arguments wins. The Validator and the code
// generator both resolve calls through this function so they always agree.
func SelectOverload(reg *Registry, candidates [][]TypeRef, args []TypeRef) (int, Resolution) {
	arity := false
	for i, params := range candidates {
		if len(params) != len(args) {
			continue
		}
		arity = true
		if SameTypes(params, args) {
			return i, Resolved
		}
	}
	if !arity {
		return -1, NoArity
	}

	found := -1
	for i, params := range candidates {
		if len(params) != len(args) || !allAssignable(reg, args, params) {
			continue
		}
		if found >= 0 {
			return found, Ambiguous
		}
		found = i
	}
	if found < 0 {
		return -1, NoCompatible
	}
	return found, Resolved
}

func allAssignable(reg *Registry, args, params []TypeRef) bool {
	for i := range args {
		if !reg.Assignable(args[i], params[i]) {
			return false
		}
	}
	return true
}

// SignatureParams extracts the parameter vectors of a signature list.
func SignatureParams(sigs []Signature) [][]TypeRef {
	out := make([][]TypeRef, len(sigs))
	for i, s := range sigs {
		out[i] = s.Params
	}
	return out
}
