// Package vm executes modules produced by the O compiler.
//
// This package contains:
//   - Tagged value representation
//   - Object, Array and List layout
//   - VTable-based virtual dispatch keyed by method signature
//   - Bytecode interpreter
//   - Built-in runtime support: the native Integer, Real, Boolean, Array
//     and List operations, keyed by their catalogue signature
package vm
