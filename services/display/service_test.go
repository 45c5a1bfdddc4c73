package display

import (
	"context"
	"testing"
	"time"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/persist/memkv"
	"chargelog-go/render"
	"chargelog-go/types"
	"chargelog-go/x/termdisp"
	"chargelog-go/x/timex"
)

func TestLayout(t *testing.T) {
	g, st := Layout(144, 168, 10, 34)
	if g != (Rect{10, 10, 124, 114}) {
		t.Fatalf("graph = %+v", g)
	}
	if st != (Rect{0, 134, 144, 34}) {
		t.Fatalf("status = %+v", st)
	}
	if g, _ = Layout(10, 10, 10, 34); g.W != 0 || g.H != 0 {
		t.Fatalf("tiny screen graph = %+v", g)
	}
}

func lit(d *termdisp.Display, r Rect) int {
	n := 0
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			if d.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

func newLog(t *testing.T) *chargelog.Log {
	t.Helper()
	l, err := chargelog.New(memkv.New(), chargelog.Options{Capacity: 10})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestRedrawEmptyLog(t *testing.T) {
	d := termdisp.New(144, 168, nil)
	s := New(d, newLog(t), timex.Fixed(1000))
	cmds, err := s.Redraw()
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 || cmds[0].Kind != render.Outline {
		t.Fatalf("cmds = %+v", cmds)
	}
	if !d.Pixel(10, 10) || !d.Pixel(134, 124) {
		t.Fatal("outline corners not drawn")
	}
	if n := lit(d, Rect{0, 134, 144, 34}); n != 0 {
		t.Fatalf("status band has %d pixels on empty log", n)
	}
}

func TestRedrawPlotsAndWritesStatus(t *testing.T) {
	l := newLog(t)
	now := int64(1709622540)
	_ = l.Append(chargelog.Sample{Time: now - 5*24*3600, Percent: 40})
	_ = l.Append(chargelog.Sample{Time: now, Percent: 100})

	d := termdisp.New(144, 168, nil)
	s := New(d, l, timex.Fixed(now))
	cmds, err := s.Redraw()
	if err != nil {
		t.Fatal(err)
	}
	if render.Count(cmds, render.Marker) != 2 {
		t.Fatalf("cmds = %+v", cmds)
	}
	// Newest sample sits on the outline corner (134,10); check inside it.
	if !d.Pixel(133, 11) {
		t.Fatal("newest marker missing")
	}
	if lit(d, Rect{0, 134, 144, 34}) == 0 {
		t.Fatal("status line not drawn")
	}

	// Redraw clears the previous frame.
	s.ApplyDisplay(types.DisplayConfig{Inset: 20, StatusBand: 34})
	if _, err := s.Redraw(); err != nil {
		t.Fatal(err)
	}
	if d.Pixel(10, 10) {
		t.Fatal("stale outline after relayout")
	}
}

func TestApplyChargeLogConfig(t *testing.T) {
	l := newLog(t)
	now := int64(100000)
	_ = l.Append(chargelog.Sample{Time: now - 7200, Percent: 50})

	s := New(termdisp.New(144, 168, nil), l, timex.Fixed(now))
	s.ApplyChargeLog(types.ChargeLogConfig{WindowSec: 3600, MarkerRadius: 4})
	cmds, _ := s.Redraw()
	if render.Count(cmds, render.Marker) != 0 {
		t.Fatal("sample outside shortened window plotted")
	}
	s.ApplyChargeLog(types.ChargeLogConfig{WindowSec: 4 * 3600})
	cmds, _ = s.Redraw()
	for _, c := range cmds {
		if c.Kind == render.Marker && c.R != 4 {
			t.Fatalf("marker radius = %d", c.R)
		}
	}
	if render.Count(cmds, render.Marker) != 1 {
		t.Fatalf("cmds = %+v", cmds)
	}
}

func TestServiceRedrawsOnEvent(t *testing.T) {
	l := newLog(t)
	d := termdisp.New(60, 60, nil)
	s := New(d, l, timex.Fixed(500))
	s.ApplyDisplay(types.DisplayConfig{Inset: 2, StatusBand: 8})

	b := bus.NewBus(8)
	conn := b.NewConnection("display")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx, conn)

	_ = l.Append(chargelog.Sample{Time: 500, Percent: 100})

	// Newest marker fills in just inside the graph's top-right corner.
	// Events before the loop subscribes are lost, so keep asking.
	g, _ := Layout(60, 60, 2, 8)
	deadline := time.Now().Add(500 * time.Millisecond)
	for !d.Pixel(g.X+g.W-1, g.Y+1) {
		if time.Now().After(deadline) {
			t.Fatal("no redraw after ui/redraw")
		}
		conn.Publish(conn.NewMessage(topicRedraw, types.Redraw{Reason: "sample"}, false))
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStatusFollowsPlottedSamples(t *testing.T) {
	kv := memkv.New()
	l, err := chargelog.New(kv, chargelog.Options{Capacity: 10})
	if err != nil {
		t.Fatal(err)
	}
	now := int64(1709622540)
	_ = l.Append(chargelog.Sample{Time: now - 3600, Percent: 60})
	_ = l.Append(chargelog.Sample{Time: now, Percent: 50})
	kv.Corrupt(chargelog.DefaultSlotBase+1, []byte{0}) // newest unreadable

	d := termdisp.New(144, 168, nil)
	cmds, err := New(d, l, timex.Fixed(now)).Redraw()
	if err != nil {
		t.Fatal(err)
	}
	if render.Count(cmds, render.Marker) != 1 {
		t.Fatalf("cmds = %+v", cmds)
	}
	// The status line describes the last plotted sample.
	if lit(d, Rect{0, 134, 144, 34}) == 0 {
		t.Fatal("status line missing for the last plotted sample")
	}
}
