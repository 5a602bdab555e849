// Package region provides the byte regions a queue lays its ring out in.
//
// Three kinds are available:
//
//	Heap  - a Go byte slice, for endpoints in one process
//	Mmap  - an anonymous MAP_SHARED mapping, inherited across fork
//	Wasm  - the exported linear memory of a WebAssembly module, so a guest
//	        running in the same wazero runtime can address the ring
//
// Every region is at least 8-byte aligned, which the queue relies on for
// its atomic cursors.
package region
