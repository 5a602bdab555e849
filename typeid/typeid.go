package typeid

import (
	"encoding/binary"
	"reflect"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/wippyai/pcq/errors"
)

// ID is a type identifier as it appears on the wire.
type ID uint32

var (
	mu        sync.RWMutex
	overrides = map[reflect.Type]ID{}
	cache     sync.Map // reflect.Type -> ID
)

// Of returns the identifier of T.
func Of[T any]() ID {
	return OfType(reflect.TypeFor[T]())
}

// OfType returns the identifier of t.
func OfType(t reflect.Type) ID {
	mu.RLock()
	id, ok := overrides[t]
	mu.RUnlock()
	if ok {
		return id
	}
	if v, ok := cache.Load(t); ok {
		return v.(ID)
	}
	id = Derive(Name(t))
	cache.Store(t, id)
	return id
}

// Register pins the identifier of T. Registering the same type twice with
// different identifiers is an error.
func Register[T any](id ID) error {
	t := reflect.TypeFor[T]()
	mu.Lock()
	defer mu.Unlock()
	if prev, ok := overrides[t]; ok && prev != id {
		return errors.New(errors.PhaseTypeID, errors.KindInvalidInput).
			GoType(t.String()).
			Value(uint32(id)).
			Detail("already registered as %#x", uint32(prev)).
			Build()
	}
	overrides[t] = id
	return nil
}

// Derive returns the identifier for a qualified type name: the first four
// bytes of its BLAKE3 digest, little endian.
func Derive(name string) ID {
	sum := blake3.Sum256([]byte(name))
	return ID(binary.LittleEndian.Uint32(sum[:4]))
}

// Name returns the qualified name identifiers are derived from. Named
// types use their import path; other types use their Go syntax.
func Name(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
