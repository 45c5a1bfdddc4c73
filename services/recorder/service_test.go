package recorder

import (
	"context"
	"testing"
	"time"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/errcode"
	"chargelog-go/persist/memkv"
	"chargelog-go/types"
	"chargelog-go/x/timex"
)

func newService(t *testing.T, kv *memkv.Store, capacity int, clk *timex.Manual) *Service {
	t.Helper()
	l, err := chargelog.New(kv, chargelog.Options{Capacity: capacity})
	if err != nil {
		t.Fatal(err)
	}
	return New(l, clk.Clock())
}

func recv(t *testing.T, sub *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func expectNone(t *testing.T, sub *bus.Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected message on %v: %#v", m.Topic, m.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecordDeduplicatesAndSignals(t *testing.T) {
	clk := timex.NewManual(1709622540)
	s := newService(t, memkv.New(), 3, clk)
	b := bus.NewBus(8)
	conn := b.NewConnection("recorder")
	redraw := conn.Subscribe(TopicRedraw)
	latest := conn.Subscribe(TopicLatest)

	var got []bool
	for _, p := range []uint8{80, 80, 60, 40} {
		wrote, err := s.Record(conn, types.BatteryState{Percent: p}, true)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, wrote)
		clk.Advance(60)
	}
	want := []bool{true, false, true, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Record results = %v, want %v", got, want)
		}
	}
	for i := 0; i < 3; i++ {
		recv(t, redraw)
	}
	expectNone(t, redraw)

	var last types.LatestSample
	for i := 0; i < 3; i++ {
		last = recv(t, latest).Payload.(types.LatestSample)
	}
	if last.Percent != 40 || last.Status != "3/5 07:12 40%" {
		t.Fatalf("latest = %#v", last)
	}

	d := s.Dump()
	if d.Count != 3 || d.Capacity != 3 || d.Entries[0].Percent != 80 || d.Entries[2].Percent != 40 {
		t.Fatalf("dump = %#v", d)
	}
	if d.Entries[0].AgeSec != 240 || d.Entries[2].AgeSec != 60 || d.Entries[2].Index != 2 {
		t.Fatalf("dump ages = %#v", d.Entries)
	}
}

func TestRecordOnceSkipsRedraw(t *testing.T) {
	clk := timex.NewManual(1000)
	s := newService(t, memkv.New(), 5, clk)
	b := bus.NewBus(8)
	conn := b.NewConnection("recorder")
	redraw := conn.Subscribe(TopicRedraw)

	conn.Publish(conn.NewMessage(topicBatteryState, types.BatteryState{Percent: 55, Charging: true}, true))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	wrote, err := s.RecordOnce(ctx, conn)
	if err != nil || !wrote {
		t.Fatalf("RecordOnce = %v, %v", wrote, err)
	}
	expectNone(t, redraw)
	if l, ok := s.log.Latest(); !ok || l.Percent != 55 || !l.Charging || l.Time != 1000 {
		t.Fatalf("latest = %+v %v", l, ok)
	}
}

func TestRecordOnceTimesOutWithoutState(t *testing.T) {
	s := newService(t, memkv.New(), 5, timex.NewManual(0))
	conn := bus.NewBus(4).NewConnection("recorder")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := s.RecordOnce(ctx, conn); errcode.Of(err) != errcode.Timeout {
		t.Fatalf("want timeout, got %v", err)
	}
}

func TestWriteFailureDegradesThenRecovers(t *testing.T) {
	kv := memkv.New()
	s := newService(t, kv, 5, timex.NewManual(10))
	conn := bus.NewBus(8).NewConnection("recorder")
	status := conn.Subscribe(TopicStatus)

	kv.FailNextWrites(1)
	if _, err := s.Record(conn, types.BatteryState{Percent: 70}, true); errcode.Of(err) != errcode.WriteFailed {
		t.Fatalf("want write_failed, got %v", err)
	}
	if st := recv(t, status).Payload.(types.ServiceState); st.Level != "degraded" || st.Status != "write_failed" {
		t.Fatalf("status = %#v", st)
	}

	if wrote, err := s.Record(conn, types.BatteryState{Percent: 70}, true); err != nil || !wrote {
		t.Fatalf("retry = %v, %v", wrote, err)
	}
	if st := recv(t, status).Payload.(types.ServiceState); st.Level != "ready" {
		t.Fatalf("status after retry = %#v", st)
	}
}

func TestRecordRequestWithoutReading(t *testing.T) {
	s := newService(t, memkv.New(), 5, timex.NewManual(0))
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx, b.NewConnection("recorder"))
	// Ready is published once the loop has subscribed.
	recv(t, conn.Subscribe(TopicStatus))

	rctx, rcancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer rcancel()
	reply, err := conn.RequestWait(rctx, conn.NewMessage(TopicRecord, nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := reply.Payload.(types.ErrorReply); !ok || e.Error != "not_found" {
		t.Fatalf("reply = %#v", reply.Payload)
	}
}

func TestServiceLoop(t *testing.T) {
	kv := memkv.New()
	clk := timex.NewManual(5000)
	s := newService(t, kv, 10, clk)
	b := bus.NewBus(16)
	svcConn := b.NewConnection("recorder")
	conn := b.NewConnection("test")
	redraw := conn.Subscribe(TopicRedraw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, svcConn); err != nil {
		t.Fatal(err)
	}
	conn.Publish(conn.NewMessage(topicConfigChargeLog, types.ChargeLogConfig{IntervalSec: 3600}, true))

	conn.Publish(conn.NewMessage(topicBatteryState, types.BatteryState{Percent: 90}, true))
	if r := recv(t, redraw).Payload.(types.Redraw); r.Reason != "sample" {
		t.Fatalf("redraw = %#v", r)
	}
	clk.Advance(30)
	conn.Publish(conn.NewMessage(topicBatteryState, types.BatteryState{Percent: 90}, true))
	expectNone(t, redraw)
	conn.Publish(conn.NewMessage(topicBatteryState, types.BatteryState{Percent: 89}, true))
	recv(t, redraw)

	rctx, rcancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer rcancel()
	reply, err := conn.RequestWait(rctx, conn.NewMessage(TopicDump, nil, false))
	if err != nil {
		t.Fatal(err)
	}
	d, ok := reply.Payload.(types.LogDump)
	if !ok || d.Count != 2 || d.Entries[1].Percent != 89 || d.Entries[0].AgeSec != 30 {
		t.Fatalf("dump = %#v", reply.Payload)
	}

	// Manual sample request: unchanged percentage, still acknowledged.
	reply, err = conn.RequestWait(rctx, conn.NewMessage(TopicRecord, nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := reply.Payload.(types.OKReply); !ok.OK {
		t.Fatalf("record reply = %#v", reply.Payload)
	}

	// A new subscriber sees the retained latest sample.
	l := recv(t, conn.Subscribe(TopicLatest)).Payload.(types.LatestSample)
	if l.Percent != 89 {
		t.Fatalf("retained latest = %#v", l)
	}
}
