// Package decl models function declarations that cross the guest/host
// boundary and turns them into the signature records the stub generators
// consume.
//
// Only declarations whose parameters can travel as machine scalars are
// accepted: every parameter must be named, passed by value, and typed with a
// Go numeric or bool type, or a named type whose underlying type is one
// ("transparent" types). The single return type is unrestricted here; it is
// carried across as encoded bytes.
package decl
