// Package codegen lowers a validated O program onto a bytecode.Target.
//
// Generation runs in three phases. Declare creates a pending type for every
// class, base classes first, and registers its constructors, methods and
// fields (field types are inferred from their initializers). Generate emits
// every body; calls are resolved by structural lookup in the per-class
// signature tables, so a body may call a method whose own body does not
// exist yet. Finalize completes the types base first, replacing each
// Pending handle with a Finalized one.
//
// Calls to built-in operations are imported once per distinct (operation,
// type argument) pair and emitted as CALL_NATIVE.
package codegen
