// Package flashkv implements persist.Store on raw NOR flash.
//
// Two erase blocks hold alternating images of a small record table. Every
// write builds the next image in RAM, erases the inactive block and programs
// it with a higher sequence number. The image header sits in the last write
// block and is programmed last, so a power cut mid-write leaves the new block
// without a valid header and the previous image is selected at the next Open.
package flashkv

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sync"

	"chargelog-go/persist"
)

// BlockDevice is the subset of machine.BlockDevice used here.
type BlockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Size() int64
	WriteBlockSize() int64
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

const (
	imageMagic = 0x564b4c43 // "CLKV"
	headerSize = 16
	recordSize = 32
	recHdrSize = 8

	// MaxValueSize is the largest byte record one entry can hold.
	MaxValueSize = recordSize - recHdrSize

	freeKey = 0xffffffff
)

var (
	ErrFull      = errors.New("flash_full")
	ErrGeometry  = errors.New("bad_geometry")
	ErrBadOffset = errors.New("bad_offset")
)

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	dev   BlockDevice
	base  int64 // byte offset of block A
	block int64 // erase block size == image size
	img   []byte
	cur   int // active block index, 0 or 1
	seq   uint32
}

// Open loads the newest valid image from the two erase blocks starting at
// offset. A device with no valid image opens as an empty store.
func Open(dev BlockDevice, offset int64) (*Store, error) {
	eb := dev.EraseBlockSize()
	wb := dev.WriteBlockSize()
	if eb < headerSize+recordSize || wb <= 0 || eb%wb != 0 {
		return nil, ErrGeometry
	}
	if offset < 0 || offset%eb != 0 || offset+2*eb > dev.Size() {
		return nil, ErrBadOffset
	}
	s := &Store{dev: dev, base: offset, block: eb, cur: 1}
	s.img = make([]byte, eb)

	buf := make([]byte, eb)
	found := false
	for i := 0; i < 2; i++ {
		if _, err := dev.ReadAt(buf, offset+int64(i)*eb); err != nil {
			return nil, err
		}
		seq, ok := validImage(buf)
		if !ok {
			continue
		}
		if !found || int32(seq-s.seq) > 0 {
			found = true
			s.seq = seq
			s.cur = i
			copy(s.img, buf)
		}
	}
	if !found {
		s.resetImage()
		println("[flashkv] no valid image, starting empty")
	}
	return s, nil
}

// Image layout: records from offset 0, header in the final headerSize bytes
// (magic, seq, crc32 of the record area, reserved).
func validImage(b []byte) (uint32, bool) {
	h := b[len(b)-headerSize:]
	if binary.LittleEndian.Uint32(h[0:4]) != imageMagic {
		return 0, false
	}
	if crc32.ChecksumIEEE(b[:len(b)-headerSize]) != binary.LittleEndian.Uint32(h[8:12]) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(h[4:8]), true
}

func (s *Store) resetImage() {
	for i := range s.img {
		s.img[i] = 0xff
	}
	s.seq = 0
}

func (s *Store) records() int { return (len(s.img) - headerSize) / recordSize }

func (s *Store) rec(i int) []byte {
	off := i * recordSize
	return s.img[off : off+recordSize]
}

// find returns the record index for key, or -1.
func (s *Store) find(key persist.Key) int {
	for i := 0; i < s.records(); i++ {
		if binary.LittleEndian.Uint32(s.rec(i)[0:4]) == uint32(key) {
			return i
		}
	}
	return -1
}

func (s *Store) findOrFree(key persist.Key) int {
	free := -1
	for i := 0; i < s.records(); i++ {
		k := binary.LittleEndian.Uint32(s.rec(i)[0:4])
		if k == uint32(key) {
			return i
		}
		if k == freeKey && free < 0 {
			free = i
		}
	}
	return free
}

// Capacity reports how many distinct keys fit.
func (s *Store) Capacity() int { return s.records() }

func (s *Store) Exists(key persist.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(key) >= 0
}

func (s *Store) ReadBytes(key persist.Key, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(key)
	if i < 0 {
		return 0, persist.ErrNotFound
	}
	r := s.rec(i)
	n := int(r[4])
	if n > MaxValueSize {
		n = MaxValueSize
	}
	return copy(buf, r[recHdrSize:recHdrSize+n]), nil
}

func (s *Store) ReadInt(key persist.Key) (int32, error) {
	var b [4]byte
	s.mu.Lock()
	i := s.find(key)
	var n int
	if i >= 0 {
		r := s.rec(i)
		n = int(r[4])
		copy(b[:], r[recHdrSize:])
	}
	s.mu.Unlock()
	if i < 0 {
		return 0, persist.ErrNotFound
	}
	if n != 4 {
		return 0, persist.ErrShortRecord
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func (s *Store) WriteInt(key persist.Key, v int32) error {
	return s.WriteInts(persist.IntPair{Key: key, Val: v})
}

func (s *Store) WriteBytes(key persist.Key, data []byte) error {
	if len(data) > MaxValueSize {
		return persist.ErrTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot()
	if err := s.put(key, data); err != nil {
		return err
	}
	return s.commit(prev)
}

// WriteInts stages all pairs into one image, so they land atomically.
func (s *Store) WriteInts(pairs ...persist.IntPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot()
	var b [4]byte
	for _, p := range pairs {
		binary.LittleEndian.PutUint32(b[:], uint32(p.Val))
		if err := s.put(p.Key, b[:]); err != nil {
			copy(s.img, prev)
			return err
		}
	}
	return s.commit(prev)
}

// WriteRecord stages data and pairs into one image.
func (s *Store) WriteRecord(key persist.Key, data []byte, pairs ...persist.IntPair) error {
	if len(data) > MaxValueSize {
		return persist.ErrTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot()
	err := s.put(key, data)
	var b [4]byte
	for i := 0; err == nil && i < len(pairs); i++ {
		binary.LittleEndian.PutUint32(b[:], uint32(pairs[i].Val))
		err = s.put(pairs[i].Key, b[:])
	}
	if err != nil {
		copy(s.img, prev)
		return err
	}
	return s.commit(prev)
}

func (s *Store) snapshot() []byte { return append([]byte(nil), s.img...) }

func (s *Store) put(key persist.Key, data []byte) error {
	if uint32(key) == freeKey {
		return ErrBadOffset
	}
	i := s.findOrFree(key)
	if i < 0 {
		return ErrFull
	}
	r := s.rec(i)
	for j := range r {
		r[j] = 0xff
	}
	binary.LittleEndian.PutUint32(r[0:4], uint32(key))
	r[4] = byte(len(data))
	r[5], r[6], r[7] = 0, 0, 0
	copy(r[recHdrSize:], data)
	return nil
}

// commit programs the staged image into the inactive block. On failure the
// RAM image is rolled back to prev so it keeps matching flash.
func (s *Store) commit(prev []byte) error {
	next := 1 - s.cur
	seq := s.seq + 1
	hdr := len(s.img) - headerSize
	h := s.img[hdr:]
	binary.LittleEndian.PutUint32(h[0:4], imageMagic)
	binary.LittleEndian.PutUint32(h[4:8], seq)
	binary.LittleEndian.PutUint32(h[8:12], crc32.ChecksumIEEE(s.img[:hdr]))
	binary.LittleEndian.PutUint32(h[12:16], 0)

	off := s.base + int64(next)*s.block
	tail := s.block - s.dev.WriteBlockSize()
	err := s.dev.EraseBlocks(off/s.block, 1)
	if err == nil && tail > 0 {
		_, err = s.dev.WriteAt(s.img[:tail], off)
	}
	if err == nil {
		_, err = s.dev.WriteAt(s.img[tail:], off+tail)
	}
	if err != nil {
		copy(s.img, prev)
		return err
	}
	s.cur = next
	s.seq = seq
	return nil
}
