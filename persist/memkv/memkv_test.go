package memkv

import (
	"errors"
	"testing"

	"chargelog-go/persist"
)

func TestIntRoundTrip(t *testing.T) {
	s := New()
	if s.Exists(1) {
		t.Fatal("fresh store reports key present")
	}
	if _, err := s.ReadInt(1); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("ReadInt on missing key: %v", err)
	}
	if err := s.WriteInt(1, -7); err != nil {
		t.Fatal(err)
	}
	v, err := s.ReadInt(1)
	if err != nil || v != -7 {
		t.Fatalf("ReadInt = %d, %v", v, err)
	}
}

func TestReadBytesTruncatesToBuffer(t *testing.T) {
	s := New()
	if err := s.WriteBytes(9, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 2)
	n, err := s.ReadBytes(9, buf)
	if err != nil || n != 2 || buf[0] != 1 || buf[1] != 2 {
		t.Fatalf("ReadBytes = %d %v %v", n, buf, err)
	}
	big := make([]byte, 8)
	if n, _ := s.ReadBytes(9, big); n != 4 {
		t.Fatalf("short record length = %d, want 4", n)
	}
}

func TestWriteBytesTooLarge(t *testing.T) {
	s := New()
	if err := s.WriteBytes(1, make([]byte, persist.MaxValueSize+1)); !errors.Is(err, persist.ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}

func TestFailureInjection(t *testing.T) {
	s := New()
	s.FailNextWrites(1)
	if err := s.WriteInt(1, 1); !errors.Is(err, ErrInjected) {
		t.Fatalf("want injected failure, got %v", err)
	}
	if s.Exists(1) {
		t.Fatal("failed write left a value behind")
	}
	if err := s.WriteInt(1, 1); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if s.Writes() != 1 {
		t.Fatalf("Writes = %d, want 1", s.Writes())
	}
}

func TestWriteIntsAtomic(t *testing.T) {
	s := New()
	s.FailNextWrites(1)
	if err := s.WriteInts(persist.IntPair{Key: 0, Val: 1}, persist.IntPair{Key: 1, Val: 2}); err == nil {
		t.Fatal("expected failure")
	}
	if s.Exists(0) || s.Exists(1) {
		t.Fatal("partial batch visible")
	}
	if err := s.WriteInts(persist.IntPair{Key: 0, Val: 1}, persist.IntPair{Key: 1, Val: 2}); err != nil {
		t.Fatal(err)
	}
	a, _ := s.ReadInt(0)
	b, _ := s.ReadInt(1)
	if a != 1 || b != 2 {
		t.Fatalf("batch values %d %d", a, b)
	}
}

func TestWriteRecordAtomic(t *testing.T) {
	s := New()
	s.FailNextWrites(1)
	if err := s.WriteRecord(0x10000, []byte{1, 2}, persist.IntPair{Key: 1, Val: 5}); err == nil {
		t.Fatal("expected failure")
	}
	if s.Exists(0x10000) || s.Exists(1) {
		t.Fatal("partial record commit visible")
	}
	if err := s.WriteRecord(0x10000, []byte{1, 2}, persist.IntPair{Key: 1, Val: 5}); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	n, _ := s.ReadBytes(0x10000, buf)
	v, _ := s.ReadInt(1)
	if n != 2 || v != 5 || s.Writes() != 1 {
		t.Fatalf("record n=%d head=%d writes=%d", n, v, s.Writes())
	}
}
