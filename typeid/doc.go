// Package typeid assigns stable numeric identifiers to Go types.
//
// Both endpoints of a queue must agree on the identifier of every type
// sent with a type tag. By default the identifier is derived from the
// type's qualified name with BLAKE3, so two builds of the same code agree
// without coordination. Register pins an explicit identifier when a type
// is renamed or when the peer was built from different code.
package typeid
