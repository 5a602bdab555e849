// Package errors provides structured error types for the pcq library.
//
// Hot-path queue operations report a closed status code rather than an
// error. Everything that speaks Go error (blocking queue calls, shared
// memory, region setup, configuration) uses the Error type defined here.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the argument path, the Go type name, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRead, errors.KindTypeMismatch).
//		Path("arg", "2").
//		GoType("uint32").
//		Detail("type id %#x, want %#x", got, want).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TooSmall(errors.PhaseWrite, 4096, 1023)
//	err := errors.OutOfBounds(errors.PhaseQueue, []string{"write"}, 99, 16)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
