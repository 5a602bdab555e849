// Package pcq moves typed values through a fixed-capacity ring buffer
// shared by one producer and one consumer.
//
// A value travels as a sequence of raw byte runs produced by its Traits.
// Each message is written inside a ProducerView and read inside a
// ConsumerView. The view tracks a sticky Status: the first failure is
// recorded and every later operation on the view returns it without
// touching the ring, so encoders chain calls and check the status once.
// Cursors only become visible to the other side when the surrounding queue
// publishes them, which it does only when the status is Success.
//
// # Architecture Overview
//
//	pcq/                 Views, Status, Traits and every built-in specialization
//	├── internal/ring/   Ring arithmetic and wraparound copies
//	├── typeid/          Stable type identifiers for type-tagged values
//	├── shm/             Shared memory segments for oversized payloads
//	├── region/          Ring storage: Go heap, shared mmap, wasm linear memory
//	├── queue/           The SPSC queue: cursor publication and pre-flight sizing
//	├── config/          TOML configuration
//	├── errors/          Structured error types
//	└── cmd/pcqdemo/     Producer/consumer demo with an optional TUI
//
// # Quick Start
//
//	q, err := queue.New(region.Heap(queue.RegionSize(4096)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	name, count := "frame", uint32(7)
//	st := q.Producer().TryInsert(pcq.Arg(&name), pcq.Arg(&count))
//
//	var gotName string
//	var gotCount uint32
//	st = q.Consumer().TryRemove(pcq.Arg(&gotName), pcq.Arg(&gotCount))
//
// # Traits
//
// Types made only of booleans and numbers are serialized by a raw copy of
// their memory without registration. Strings, byte slices and Shmem
// handles are registered by this package. Everything else is described by
// composing constructors:
//
//   - String, NullableString, WideString
//   - Slice, Array
//   - Option (Maybe), PairOf (Pair), Owned
//   - Union with one Case per alternative
//   - TaggedTraits, which prefixes a value with its typeid
//   - CBOR, an opaque encoding for values with no fixed layout
//
// # Failure Statuses
//
// NotReady means the ring lacked room or data and the operation can be
// retried verbatim. TooSmall means the message can never fit. TypeError
// means a type tag did not match. FatalError and OOMError are
// unrecoverable for the transaction.
//
// # Logging
//
// The package logs through a zap logger that discards everything until
// SetLogger installs one.
package pcq
