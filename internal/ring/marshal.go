package ring

// WriteObject copies src into buf at *write, wrapping past the end of buf.
// It refuses (returns false, cursor untouched) when fewer than len(src)
// bytes are free. The capacity is len(buf).
func WriteObject(buf []byte, read int, write *int, src []byte) bool {
	capacity := len(buf)
	n := len(src)
	if FreeBytes(capacity, read, *write) < n {
		return false
	}

	w := *write
	if w+n <= capacity {
		copy(buf[w:], src)
	} else {
		first := capacity - w
		copy(buf[w:], src[:first])
		copy(buf, src[first:])
	}
	*write = (w + n) % capacity
	return true
}

// ReadObject copies n bytes out of buf starting at *read into dst. A nil
// dst consumes the bytes without copying them. It refuses (returns false,
// cursor untouched) when fewer than n bytes are readable.
func ReadObject(buf []byte, read *int, write int, dst []byte, n int) bool {
	capacity := len(buf)
	if UsedBytes(capacity, *read, write) < n {
		return false
	}

	r := *read
	if dst != nil {
		dst = dst[:n]
		if r+n <= capacity {
			copy(dst, buf[r:r+n])
		} else {
			first := capacity - r
			copy(dst, buf[r:])
			copy(dst[first:], buf[:n-first])
		}
	}
	*read = (r + n) % capacity
	return true
}
