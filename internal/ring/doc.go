// Package ring provides the circular buffer arithmetic and raw copy
// primitives shared by the producer and consumer views.
//
// A ring of capacity C stores at most C-1 bytes. The one spare byte keeps
// "empty" (read == write) distinguishable from "full":
//
//	read <= write:  used = write - read
//	read >  write:  used = (C - read) + write
//	free = (C - 1) - used
//
// Copies that straddle the end of the backing array are split in two and
// continue at offset zero. Cursors are always reduced modulo C.
package ring
