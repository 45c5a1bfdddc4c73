// Package memkv is a RAM-backed persist.Store for simulators and tests.
package memkv

import (
	"encoding/binary"
	"sync"

	"chargelog-go/persist"
)

// Store keeps values in a map. Zero value is not usable; call New.
type Store struct {
	mu   sync.Mutex
	vals map[persist.Key][]byte

	// remaining injected write failures
	failWrites int
	writes     int
}

// ErrInjected is returned by writes while failure injection is armed.
var ErrInjected = injected{}

type injected struct{}

func (injected) Error() string { return "injected_write_failure" }

func New() *Store { return &Store{vals: make(map[persist.Key][]byte)} }

// FailNextWrites arms failure injection for the next n writes.
func (s *Store) FailNextWrites(n int) {
	s.mu.Lock()
	s.failWrites = n
	s.mu.Unlock()
}

// Writes reports the number of successful writes.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Corrupt overwrites the raw bytes at key, bypassing the int/bytes split.
func (s *Store) Corrupt(key persist.Key, raw []byte) {
	s.mu.Lock()
	s.vals[key] = append([]byte(nil), raw...)
	s.mu.Unlock()
}

// Delete removes key.
func (s *Store) Delete(key persist.Key) {
	s.mu.Lock()
	delete(s.vals, key)
	s.mu.Unlock()
}

func (s *Store) Exists(key persist.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vals[key]
	return ok
}

func (s *Store) ReadInt(key persist.Key) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	if !ok {
		return 0, persist.ErrNotFound
	}
	if len(v) != 4 {
		return 0, persist.ErrShortRecord
	}
	return int32(binary.LittleEndian.Uint32(v)), nil
}

func (s *Store) WriteInt(key persist.Key, v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return s.put(key, b[:])
}

func (s *Store) ReadBytes(key persist.Key, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	if !ok {
		return 0, persist.ErrNotFound
	}
	return copy(buf, v), nil
}

func (s *Store) WriteBytes(key persist.Key, data []byte) error {
	if len(data) > persist.MaxValueSize {
		return persist.ErrTooLarge
	}
	return s.put(key, data)
}

// WriteInts commits all pairs or none.
func (s *Store) WriteInts(pairs ...persist.IntPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return ErrInjected
	}
	s.putInts(pairs)
	s.writes++
	return nil
}

// WriteRecord commits data and pairs or none; one write for Writes.
func (s *Store) WriteRecord(key persist.Key, data []byte, pairs ...persist.IntPair) error {
	if len(data) > persist.MaxValueSize {
		return persist.ErrTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return ErrInjected
	}
	s.vals[key] = append([]byte(nil), data...)
	s.putInts(pairs)
	s.writes++
	return nil
}

func (s *Store) putInts(pairs []persist.IntPair) {
	for _, p := range pairs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(p.Val))
		s.vals[p.Key] = b[:]
	}
}

func (s *Store) put(key persist.Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return ErrInjected
	}
	s.vals[key] = append([]byte(nil), data...)
	s.writes++
	return nil
}
