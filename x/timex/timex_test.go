package timex

import "testing"

func TestManual(t *testing.T) {
	m := NewManual(100)
	c := m.Clock()
	if c() != 100 {
		t.Fatalf("start = %d", c())
	}
	m.Advance(3600)
	if c() != 3700 {
		t.Fatalf("after advance = %d", c())
	}
	if Fixed(7)() != 7 {
		t.Fatal("Fixed")
	}
}
