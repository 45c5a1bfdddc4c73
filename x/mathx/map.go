package mathx

// MapU16 maps x in [inMin,inMax] to [outMin,outMax] with 32-bit intermediates.
// Clamps to the out range if input is outside.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax <= inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	num := uint32(x-inMin) * uint32(outMax-outMin)
	den := uint32(inMax - inMin)
	return uint16(uint32(outMin) + num/den)
}

// MulDiv returns a*b/c with a 64-bit intermediate. c==0 yields 0.
// Truncates toward zero like Go integer division.
func MulDiv(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}
	return a * b / c
}
