package region

import (
	"bytes"
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/pcq/errors"
)

// PageSize is the WebAssembly page size.
const PageSize = 65536

// MaxWasmPages bounds a wasm region to what a 32-bit guest can address.
const MaxWasmPages = 65536

const (
	sectionMemory = 5
	sectionExport = 7
	externMemory  = 0x02
	limitsMinMax  = 0x01
)

// MemoryExport is the export name of the ring memory.
const MemoryExport = "memory"

type wasmRegion struct {
	runtime wazero.Runtime
	mod     api.Module
	buf     []byte
}

// Wasm returns a region backed by the linear memory of a WebAssembly
// module instantiated in a fresh wazero runtime. The memory's minimum and
// maximum page counts are equal, so it never grows and Bytes stays valid
// until Close.
func Wasm(ctx context.Context, size int) (Region, error) {
	pages := (size + PageSize - 1) / PageSize
	if pages > MaxWasmPages {
		return nil, errors.New(errors.PhaseRegion, errors.KindInvalidInput).
			Value(size).
			Detail("wasm region of %d pages exceeds %d", pages, MaxWasmPages).
			Build()
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithMemoryLimitPages(uint32(pages)))
	mod, err := rt.Instantiate(ctx, memoryModule(uint32(pages)))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRegion, errors.KindAllocation, err, "instantiate memory module")
	}
	mem := mod.ExportedMemory(MemoryExport)
	if mem == nil {
		rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseRegion, "memory export", MemoryExport)
	}
	buf, ok := mem.Read(0, uint32(size))
	if !ok {
		rt.Close(ctx)
		return nil, errors.OutOfBounds(errors.PhaseRegion, []string{MemoryExport}, size, int(mem.Size()))
	}
	Logger().Debug("wasm region created",
		zap.Int("size", size),
		zap.Int("pages", pages))
	return &wasmRegion{runtime: rt, mod: mod, buf: buf}, nil
}

func (w *wasmRegion) Bytes() []byte { return w.buf }

func (w *wasmRegion) Kind() Kind { return KindWasm }

// Module returns the module exporting the ring memory.
func (w *wasmRegion) Module() api.Module { return w.mod }

func (w *wasmRegion) Close() error {
	if w.runtime == nil {
		return nil
	}
	err := w.runtime.Close(context.Background())
	w.runtime, w.mod, w.buf = nil, nil, nil
	if err != nil {
		return errors.Wrap(errors.PhaseRegion, errors.KindFatal, err, "close wasm runtime")
	}
	return nil
}

// memoryModule encodes a module that only declares and exports one memory
// of exactly pages pages.
func memoryModule(pages uint32) []byte {
	var mem bytes.Buffer
	mem.WriteByte(1) // one memory
	mem.WriteByte(limitsMinMax)
	writeLEB128u(&mem, pages)
	writeLEB128u(&mem, pages)

	var exp bytes.Buffer
	exp.WriteByte(1) // one export
	writeLEB128u(&exp, uint32(len(MemoryExport)))
	exp.WriteString(MemoryExport)
	exp.WriteByte(externMemory)
	writeLEB128u(&exp, 0)

	var bin bytes.Buffer
	bin.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})
	writeSection(&bin, sectionMemory, mem.Bytes())
	writeSection(&bin, sectionExport, exp.Bytes())
	return bin.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, body []byte) {
	w.WriteByte(id)
	writeLEB128u(w, uint32(len(body)))
	w.Write(body)
}
