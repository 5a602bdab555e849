package ring

// UsedBytes returns the number of readable bytes between read and write.
func UsedBytes(capacity, read, write int) int {
	if read <= write {
		return write - read
	}
	return (capacity - read) + write
}

// FreeBytes returns the number of writable bytes. One byte of the ring
// is never handed out.
func FreeBytes(capacity, read, write int) int {
	return (capacity - 1) - UsedBytes(capacity, read, write)
}

// Usable is the largest run a ring of the given capacity can ever hold.
func Usable(capacity int) int {
	if capacity < 1 {
		return 0
	}
	return capacity - 1
}
