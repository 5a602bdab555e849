package region

import (
	"context"
	"strings"

	"github.com/wippyai/pcq/errors"
)

// Kind names a region implementation.
type Kind string

const (
	KindHeap Kind = "heap"
	KindMmap Kind = "mmap"
	KindWasm Kind = "wasm"
)

// ParseKind parses a region kind name, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindHeap, KindMmap, KindWasm:
		return k, nil
	default:
		return "", errors.New(errors.PhaseRegion, errors.KindInvalidInput).
			Value(s).
			Detail("unknown region kind %q", s).
			Build()
	}
}

// Region is a fixed-size byte region.
type Region interface {
	// Bytes returns the region. Its length never changes.
	Bytes() []byte
	Kind() Kind
	Close() error
}

// New creates a region of kind with size bytes.
func New(ctx context.Context, kind Kind, size int) (Region, error) {
	if size <= 0 {
		return nil, errors.New(errors.PhaseRegion, errors.KindInvalidInput).
			Value(size).
			Detail("region size must be positive").
			Build()
	}
	switch kind {
	case KindHeap:
		return Heap(size), nil
	case KindMmap:
		return Mmap(size)
	case KindWasm:
		return Wasm(ctx, size)
	default:
		return nil, errors.Unsupported(errors.PhaseRegion, "region kind "+string(kind))
	}
}

type heap struct {
	buf []byte
}

// Heap returns a region backed by a Go byte slice.
func Heap(size int) Region {
	// uint64 backing keeps the region 8-byte aligned
	words := make([]uint64, (size+7)/8)
	return &heap{buf: rawWords(words)[:size]}
}

func (h *heap) Bytes() []byte { return h.buf }

func (h *heap) Kind() Kind { return KindHeap }

func (h *heap) Close() error {
	h.buf = nil
	return nil
}
