// Package conv holds allocation-free integer formatting for MCU builds
// where fmt is too heavy.
package conv

// AppendInt appends the base-10 representation of n to dst.
// Negative numbers are supported; no fmt/strconv dependency.
func AppendInt(dst []byte, n int64) []byte {
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	if u == 0 {
		i--
		buf[i] = '0'
	}
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		dst = append(dst, '-')
	}
	return append(dst, buf[i:]...)
}

// AppendPad2 appends n (0..99) as exactly two digits.
func AppendPad2(dst []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	n %= 100
	return append(dst, byte('0'+n/10), byte('0'+n%10))
}
