package chargelog

import (
	"encoding/binary"
	"hash/crc32"
)

// Sample is one battery reading.
type Sample struct {
	Time     int64 // Unix seconds
	Percent  uint8 // 0..100
	Charging bool
}

// RecordSize is the on-store size of one Sample.
//
//	0..8   Time, little-endian int64
//	8      Percent
//	9      flags, bit0 = Charging
//	10..12 reserved, zero
//	12..16 CRC-32 (IEEE) of bytes 0..12
const RecordSize = 16

const flagCharging = 1 << 0

// encode writes s into b, which must be RecordSize long.
func encode(b []byte, s Sample) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(s.Time))
	b[8] = s.Percent
	b[9] = 0
	if s.Charging {
		b[9] |= flagCharging
	}
	b[10], b[11] = 0, 0
	binary.LittleEndian.PutUint32(b[12:16], crc32.ChecksumIEEE(b[:12]))
}

// decode parses a stored record. ok is false for a short or garbled record.
func decode(b []byte) (s Sample, ok bool) {
	if len(b) != RecordSize {
		return Sample{}, false
	}
	if crc32.ChecksumIEEE(b[:12]) != binary.LittleEndian.Uint32(b[12:16]) {
		return Sample{}, false
	}
	s = Sample{
		Time:     int64(binary.LittleEndian.Uint64(b[0:8])),
		Percent:  b[8],
		Charging: b[9]&flagCharging != 0,
	}
	if s.Percent > 100 {
		return Sample{}, false
	}
	return s, true
}
