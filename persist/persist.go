// Package persist defines the durable key-value contract the charge log is
// built on. Keys are small integers, values are int32 or short byte records,
// mirroring the persistent storage API of wearable platforms.
package persist

import "errors"

// Key addresses one value in the store.
type Key uint32

// MaxValueSize bounds a single byte record.
const MaxValueSize = 256

var (
	ErrNotFound    = errors.New("not_found")
	ErrShortRecord = errors.New("short_record")
	ErrTooLarge    = errors.New("value_too_large")
)

// Store is a synchronous durable key-value store.
//
// ReadInt and ReadBytes return ErrNotFound for keys never written.
// ReadBytes copies at most len(buf) bytes and returns the stored length
// truncated to len(buf); callers detect short records by comparing n.
// A nil error from a write means the value survives power loss.
type Store interface {
	Exists(key Key) bool
	ReadInt(key Key) (int32, error)
	WriteInt(key Key, v int32) error
	ReadBytes(key Key, buf []byte) (int, error)
	WriteBytes(key Key, data []byte) error
}

// IntPair is one int value of an atomic multi-key commit.
type IntPair struct {
	Key Key
	Val int32
}

// Batcher is implemented by stores that can commit several keys as one
// atomic unit: after a power cut either every value is visible or none is.
type Batcher interface {
	WriteInts(pairs ...IntPair) error
	// WriteRecord stores data at key together with pairs.
	WriteRecord(key Key, data []byte, pairs ...IntPair) error
}
