// Package bytecode defines the executable unit produced by the O compiler
// and the Target interface the code generator writes it through.
//
// # Architecture Overview
//
//   - Opcodes: a small stack-based instruction set covering constants,
//     locals and parameters, fields, Integer to Real widening, jumps and
//     four kinds of call (direct, virtual, constructor, native).
//
//   - Chunk: the body of one constructor or method. It holds the code,
//     integer and real constant pools, slot counts and a source map.
//
//   - Module: the unit itself. Types, fields and methods live in flat
//     tables and instructions refer to them by token. Built-in runtime
//     operations are imported as NativeRef entries keyed by their catalogue
//     signature and concrete type argument.
//
//   - Target / ModuleBuilder: declare, emit and finalize primitives.
//     Types start pending, receive member signatures, then bodies, and are
//     finalized base first.
//
// # Serialization
//
// A Module serializes as the magic bytes "OBC1" followed by its canonical
// CBOR encoding, so equal modules encode to equal bytes.
//
// # Calling Convention
//
// CALL and CALLVIRT pop argc arguments and then the receiver. NEW_OBJ pops
// argc arguments, allocates the instance, runs the constructor and pushes
// the instance. CALL and CALLVIRT push a result only when the method has a
// return type. CALL_NATIVE pops argc values, the receiver of a method
// operation included, and always pushes one value. Jump offsets are
// relative to the end of the jump instruction.
package bytecode
