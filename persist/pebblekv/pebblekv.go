// Package pebblekv backs persist.Store with a pebble LSM on the host
// filesystem. Every write is synced so a committed value survives power loss.
package pebblekv

import (
	"encoding/binary"
	"errors"

	"chargelog-go/errcode"
	"chargelog-go/persist"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const keyPrefix = "cl/"

// Store wraps an open pebble database.
type Store struct {
	db *pebble.DB
}

// Options configures Open. A nil FS means the OS filesystem.
type Options struct {
	Dir string
	FS  vfs.FS
}

// Open opens (creating if needed) the database in opts.Dir.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "pebblekv.open", Msg: "empty dir"}
	}
	po := &pebble.Options{}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	db, err := pebble.Open(opts.Dir, po)
	if err != nil {
		return nil, errcode.Wrap(errcode.Error, "pebblekv.open", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error { return s.db.Close() }

func encodeKey(k persist.Key) []byte {
	b := make([]byte, len(keyPrefix)+4)
	copy(b, keyPrefix)
	binary.BigEndian.PutUint32(b[len(keyPrefix):], uint32(k))
	return b
}

func encodeInt(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

// get copies the value out so the pebble buffer can be released.
func (s *Store) get(k persist.Key, dst []byte) (n, full int, err error) {
	v, closer, err := s.db.Get(encodeKey(k))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, 0, persist.ErrNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	defer closer.Close()
	return copy(dst, v), len(v), nil
}

func (s *Store) Exists(key persist.Key) bool {
	_, _, err := s.get(key, nil)
	return err == nil
}

func (s *Store) ReadInt(key persist.Key) (int32, error) {
	var b [4]byte
	_, full, err := s.get(key, b[:])
	if err != nil {
		return 0, err
	}
	if full != 4 {
		return 0, persist.ErrShortRecord
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func (s *Store) WriteInt(key persist.Key, v int32) error {
	return s.db.Set(encodeKey(key), encodeInt(v), pebble.Sync)
}

func (s *Store) ReadBytes(key persist.Key, buf []byte) (int, error) {
	n, _, err := s.get(key, buf)
	return n, err
}

func (s *Store) WriteBytes(key persist.Key, data []byte) error {
	if len(data) > persist.MaxValueSize {
		return persist.ErrTooLarge
	}
	return s.db.Set(encodeKey(key), data, pebble.Sync)
}

// WriteInts commits all pairs in one synced batch.
func (s *Store) WriteInts(pairs ...persist.IntPair) error {
	b := s.db.NewBatch()
	defer b.Close()
	if err := setInts(b, pairs); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// WriteRecord commits data and pairs in one synced batch.
func (s *Store) WriteRecord(key persist.Key, data []byte, pairs ...persist.IntPair) error {
	if len(data) > persist.MaxValueSize {
		return persist.ErrTooLarge
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(encodeKey(key), data, nil); err != nil {
		return err
	}
	if err := setInts(b, pairs); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func setInts(b *pebble.Batch, pairs []persist.IntPair) error {
	for _, p := range pairs {
		if err := b.Set(encodeKey(p.Key), encodeInt(p.Val), nil); err != nil {
			return err
		}
	}
	return nil
}
