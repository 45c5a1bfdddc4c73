// Package chargelog is a capacity-bounded, durable log of battery samples
// kept as a circular buffer inside a persist.Store.
//
// Metadata (count, head) is the single source of truth for which slots are
// valid. On a persist.Batcher the slot and metadata land in one atomic
// commit. Other stores get the slot write strictly before the metadata
// write, so a power cut between the two below capacity leaves the previous
// log intact.
package chargelog

import (
	"errors"
	"iter"
	"sync"

	"chargelog-go/errcode"
	"chargelog-go/persist"
	"chargelog-go/x/mathx"
)

// Defaults match the wearable's original persistent layout.
const (
	DefaultCapacity = 100

	DefaultCountKey persist.Key = 0x00000000
	DefaultHeadKey  persist.Key = 0x00000001
	DefaultSlotBase persist.Key = 0x00010000
)

// Keys partitions the store's key space.
type Keys struct {
	Count    persist.Key
	Head     persist.Key
	SlotBase persist.Key // slot key = SlotBase + physical index
}

// DefaultKeys returns the standard layout.
func DefaultKeys() Keys {
	return Keys{Count: DefaultCountKey, Head: DefaultHeadKey, SlotBase: DefaultSlotBase}
}

type Options struct {
	Capacity int   // 0 => DefaultCapacity
	Keys     *Keys // nil => DefaultKeys()
}

// Log is safe for concurrent use; every operation holds one mutex so no
// caller observes count and head out of step.
type Log struct {
	mu   sync.Mutex
	kv   persist.Store
	cap  int
	keys Keys
}

// New binds a Log to kv. Nothing is written until the first Append.
func New(kv persist.Store, opts Options) (*Log, error) {
	if kv == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "chargelog.new", Msg: "nil store"}
	}
	c := opts.Capacity
	if c == 0 {
		c = DefaultCapacity
	}
	if c < 1 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "chargelog.new", Msg: "capacity < 1"}
	}
	k := DefaultKeys()
	if opts.Keys != nil {
		k = *opts.Keys
	}
	if k.Count == k.Head || (k.SlotBase <= k.Count && k.Count < k.SlotBase+persist.Key(c)) ||
		(k.SlotBase <= k.Head && k.Head < k.SlotBase+persist.Key(c)) {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "chargelog.new", Msg: "overlapping keys"}
	}
	return &Log{kv: kv, cap: c, keys: k}, nil
}

// Capacity is the maximum number of retained samples.
func (l *Log) Capacity() int { return l.cap }

// meta is the persisted (count, head) pair. An absent store reads as the
// zero value. haveCount/haveHead record whether the keys hold trusted values.
type meta struct {
	count, head         int
	haveCount, haveHead bool
}

// slot maps logical position i to a physical index.
func (m meta) slot(i, capacity int) int { return mathx.Mod(m.head+i, capacity) }

func (l *Log) slotKey(phys int) persist.Key { return l.keys.SlotBase + persist.Key(phys) }

// loadMeta never fails: unreadable or out-of-range metadata reads as empty
// with both keys marked untrusted so the next commit rewrites them.
func (l *Log) loadMeta() meta {
	var m meta
	c, err := l.kv.ReadInt(l.keys.Count)
	switch {
	case err == nil:
		m.count, m.haveCount = int(c), true
	case !errors.Is(err, persist.ErrNotFound):
		println("[chargelog] count unreadable:", err.Error())
		return meta{}
	}
	h, err := l.kv.ReadInt(l.keys.Head)
	switch {
	case err == nil:
		m.head, m.haveHead = int(h), true
	case !errors.Is(err, persist.ErrNotFound):
		println("[chargelog] head unreadable:", err.Error())
		return meta{}
	}
	if m.count < 0 || m.count > l.cap || m.head < 0 || m.head >= l.cap {
		println("[chargelog] metadata out of range, count:", m.count, "head:", m.head)
		return meta{}
	}
	return m
}

// commitMeta persists next on a store without batches. Only keys whose
// value changed are written: steady-state appends touch exactly one key
// (count below capacity, head at capacity), so each commit is a single
// atomic int write.
func (l *Log) commitMeta(prev, next meta) error {
	// Head before count: with count absent or unchanged, a lone head
	// write is invisible to readers of an empty or full log.
	if !prev.haveHead || prev.head != next.head {
		if err := l.kv.WriteInt(l.keys.Head, int32(next.head)); err != nil {
			return err
		}
	}
	if !prev.haveCount || prev.count != next.count {
		if err := l.kv.WriteInt(l.keys.Count, int32(next.count)); err != nil {
			return err
		}
	}
	return nil
}

// readSlot returns the sample at a physical index; ok=false for absent or
// corrupt records.
func (l *Log) readSlot(phys int) (Sample, bool) {
	var buf [RecordSize + 1]byte // one spare byte exposes oversized records
	n, err := l.kv.ReadBytes(l.slotKey(phys), buf[:])
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			println("[chargelog] slot read failed:", phys, err.Error())
		}
		return Sample{}, false
	}
	s, ok := decode(buf[:n])
	if !ok {
		println("[chargelog] corrupt record in slot", phys)
	}
	return s, ok
}

// Len reports the number of retained samples.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadMeta().count
}

// Latest returns the most recently appended sample. ok is false when the
// log is empty or the newest record is unreadable.
func (l *Log) Latest() (Sample, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest()
}

func (l *Log) latest() (Sample, bool) {
	m := l.loadMeta()
	if m.count == 0 {
		return Sample{}, false
	}
	return l.readSlot(m.slot(m.count-1, l.cap))
}

// Append persists s as the newest entry, evicting the oldest when full.
func (l *Log) Append(s Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(s)
}

func (l *Log) append(s Sample) error {
	if s.Percent > 100 {
		return &errcode.E{C: errcode.InvalidParams, Op: "chargelog.append", Msg: "percent > 100"}
	}
	prev := l.loadMeta()
	next := prev

	var phys int
	if prev.count < l.cap {
		phys = prev.slot(prev.count, l.cap)
		next.count++
	} else {
		// Overwrite the oldest slot and advance head past it.
		phys = prev.head
		next.head = (prev.head + 1) % l.cap
	}

	var rec [RecordSize]byte
	encode(rec[:], s)
	if b, ok := l.kv.(persist.Batcher); ok {
		err := b.WriteRecord(l.slotKey(phys), rec[:],
			persist.IntPair{Key: l.keys.Head, Val: int32(next.head)},
			persist.IntPair{Key: l.keys.Count, Val: int32(next.count)},
		)
		if err != nil {
			return errcode.Wrap(errcode.WriteFailed, "chargelog.append", err)
		}
		return nil
	}
	if err := l.kv.WriteBytes(l.slotKey(phys), rec[:]); err != nil {
		return errcode.Wrap(errcode.WriteFailed, "chargelog.append", err)
	}
	if err := l.commitMeta(prev, next); err != nil {
		return errcode.Wrap(errcode.WriteFailed, "chargelog.append", err)
	}
	return nil
}

// RecordIfChanged appends reading when the log is empty or its percentage
// differs from the latest stored sample. It reports whether a record was
// written.
func (l *Log) RecordIfChanged(reading Sample) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.latest(); ok && last.Percent == reading.Percent {
		return false, nil
	}
	if err := l.append(reading); err != nil {
		return false, err
	}
	return true, nil
}

// All yields retained samples oldest first. Each pass takes one Snapshot,
// so an Append made while ranging is not seen until the next pass and
// never reorders the current one. Corrupt records are skipped.
func (l *Log) All() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		for _, s := range l.Snapshot() {
			if !yield(s) {
				return
			}
		}
	}
}

// Snapshot reads metadata and every retained slot under one lock.
func (l *Log) Snapshot() []Sample {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.loadMeta()
	out := make([]Sample, 0, m.count)
	for i := 0; i < m.count; i++ {
		if s, ok := l.readSlot(m.slot(i, l.cap)); ok {
			out = append(out, s)
		}
	}
	return out
}
