// Package recorder feeds battery readings into a chargelog.Log.
//
// Topics:
//
//	in   power/battery/state   types.BatteryState (retained)
//	in   config/chargelog      types.ChargeLogConfig (retained)
//	in   chargelog/dump        request, replies types.LogDump
//	in   chargelog/record      request, samples now; replies types.OKReply or types.ErrorReply
//	out  chargelog/latest      types.LatestSample (retained)
//	out  chargelog/status      types.ServiceState (retained)
//	out  ui/redraw             types.Redraw
package recorder

import (
	"context"
	"time"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/errcode"
	"chargelog-go/render"
	"chargelog-go/types"
	"chargelog-go/x/timex"
)

var (
	topicBatteryState    = bus.T("power", "battery", "state")
	topicConfigChargeLog = bus.T("config", "chargelog")

	TopicDump   = bus.T("chargelog", "dump")
	TopicRecord = bus.T("chargelog", "record")
	TopicLatest = bus.T("chargelog", "latest")
	TopicStatus = bus.T("chargelog", "status")
	TopicRedraw = bus.T("ui", "redraw")
)

const DefaultInterval = time.Hour

type Service struct {
	log       *chargelog.Log
	clock     timex.Clock
	utcOffset int32

	reading types.BatteryState
	have    bool
	failing bool
}

func New(l *chargelog.Log, clock timex.Clock) *Service {
	if clock == nil {
		clock = timex.Wall
	}
	return &Service{log: l, clock: clock}
}

// SetUTCOffset sets the offset used for the status text on chargelog/latest.
func (s *Service) SetUTCOffset(sec int32) { s.utcOffset = sec }

// Record stamps reading with the current time and stores it if its
// percentage changed. With redraw set a ui/redraw event follows a write.
func (s *Service) Record(conn *bus.Connection, reading types.BatteryState, redraw bool) (bool, error) {
	smp := chargelog.Sample{Time: s.clock(), Percent: reading.Percent, Charging: reading.Charging}
	wrote, err := s.log.RecordIfChanged(smp)
	if err != nil {
		println("[recorder] record failed:", err.Error())
		s.failing = true
		conn.Publish(conn.NewMessage(TopicStatus, types.ServiceState{
			Level: "degraded", Status: string(errcode.Of(err)), TS: smp.Time,
		}, true))
		return false, err
	}
	if s.failing {
		s.failing = false
		s.publishReady(conn)
	}
	if !wrote {
		return false, nil
	}
	s.publishLatest(conn)
	if redraw {
		conn.Publish(conn.NewMessage(TopicRedraw, types.Redraw{Reason: "sample"}, false))
	}
	return true, nil
}

// RecordOnce is the wakeup-launch path: take the retained battery state,
// record it, and return without requesting a redraw.
func (s *Service) RecordOnce(ctx context.Context, conn *bus.Connection) (bool, error) {
	sub := conn.Subscribe(topicBatteryState)
	defer conn.Unsubscribe(sub)
	select {
	case <-ctx.Done():
		return false, errcode.Timeout
	case msg := <-sub.Channel():
		st, ok := msg.Payload.(types.BatteryState)
		if !ok {
			return false, errcode.InvalidPayload
		}
		return s.Record(conn, st, false)
	}
}

func (s *Service) publishLatest(conn *bus.Connection) {
	last, ok := s.log.Latest()
	if !ok {
		return
	}
	conn.Publish(conn.NewMessage(TopicLatest, types.LatestSample{
		Time: last.Time, Percent: last.Percent, Charging: last.Charging,
		Status: render.Status(last, s.utcOffset),
	}, true))
}

func (s *Service) publishReady(conn *bus.Connection) {
	conn.Publish(conn.NewMessage(TopicStatus, types.ServiceState{Level: "ready", Status: "ok", TS: s.clock()}, true))
}

// Dump lists the log oldest first with ages relative to now.
func (s *Service) Dump() types.LogDump {
	now := s.clock()
	d := types.LogDump{Capacity: s.log.Capacity()}
	i := 0
	for smp := range s.log.All() {
		d.Entries = append(d.Entries, types.LogEntry{
			Index: i, Time: smp.Time, AgeSec: now - smp.Time,
			Percent: smp.Percent, Charging: smp.Charging,
		})
		i++
	}
	d.Count = len(d.Entries)
	return d
}

func (s *Service) applyConfig(c types.ChargeLogConfig, tick *time.Ticker) {
	if c.IntervalSec > 0 {
		tick.Reset(time.Duration(c.IntervalSec) * time.Second)
		println("[recorder] interval", c.IntervalSec, "s")
	}
	if c.Capacity > 0 && c.Capacity != s.log.Capacity() {
		println("[recorder] capacity", c.Capacity, "takes effect on restart; running with", s.log.Capacity())
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	batSub := conn.Subscribe(topicBatteryState)
	defer conn.Unsubscribe(batSub)
	cfgSub := conn.Subscribe(topicConfigChargeLog)
	defer conn.Unsubscribe(cfgSub)
	dumpSub := conn.Subscribe(TopicDump)
	defer conn.Unsubscribe(dumpSub)
	recSub := conn.Subscribe(TopicRecord)
	defer conn.Unsubscribe(recSub)

	s.publishReady(conn)
	s.publishLatest(conn)

	tick := time.NewTicker(DefaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("[recorder] stopping")
			return
		case <-tick.C:
			if s.have {
				_, _ = s.Record(conn, s.reading, true)
			}
		case msg := <-batSub.Channel():
			st, ok := msg.Payload.(types.BatteryState)
			if !ok {
				println("[recorder] bad battery payload")
				continue
			}
			s.reading, s.have = st, true
			_, _ = s.Record(conn, st, true)
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(types.ChargeLogConfig); ok {
				s.applyConfig(c, tick)
			}
		case msg := <-dumpSub.Channel():
			if msg.CanReply() {
				conn.Reply(msg, s.Dump(), false)
			}
		case msg := <-recSub.Channel():
			s.handleRecord(conn, msg)
		}
	}
}

// handleRecord samples the last known battery state on request. The
// reply carries the write outcome; an unchanged percentage is still OK.
func (s *Service) handleRecord(conn *bus.Connection, msg *bus.Message) {
	var err error
	if !s.have {
		err = errcode.NotFound
	} else {
		_, err = s.Record(conn, s.reading, true)
	}
	if !msg.CanReply() {
		return
	}
	if err != nil {
		conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
		return
	}
	conn.Reply(msg, types.OKReply{OK: true}, false)
}

// Start the recorder service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
