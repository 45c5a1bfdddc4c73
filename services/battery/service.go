// Package battery polls a Gauge and publishes the battery state retained
// on power/battery/state whenever it changes.
package battery

import (
	"context"
	"time"

	"chargelog-go/bus"
	"chargelog-go/errcode"
	"chargelog-go/types"
	"chargelog-go/x/timex"
)

var (
	TopicState         = bus.T("power", "battery", "state")
	TopicInfo          = bus.T("power", "battery", "info")
	TopicStatus        = bus.T("power", "battery", "status")
	topicConfigBattery = bus.T("config", "battery")
)

const defaultPoll = 60 * time.Second

type Service struct {
	gauge Gauge
	info  types.BatteryInfo
	clock timex.Clock

	last    types.BatteryState
	haveAny bool
	faulted bool
}

func New(g Gauge, info types.BatteryInfo, clock timex.Clock) *Service {
	if clock == nil {
		clock = timex.Wall
	}
	return &Service{gauge: g, info: info, clock: clock}
}

// Poll reads the gauge once and publishes on change.
func (s *Service) Poll(conn *bus.Connection) {
	pct, chg, err := s.gauge.Read()
	if err != nil {
		if !s.faulted {
			println("[battery] read failed:", err.Error())
			conn.Publish(conn.NewMessage(TopicStatus, types.ServiceState{
				Level: "degraded", Status: string(errcode.Of(err)), TS: s.clock(),
			}, true))
		}
		s.faulted = true
		return
	}
	if s.faulted {
		s.faulted = false
		conn.Publish(conn.NewMessage(TopicStatus, types.ServiceState{Level: "ready", Status: "ok", TS: s.clock()}, true))
	}
	if pct > 100 {
		pct = 100
	}
	if s.haveAny && s.last.Percent == pct && s.last.Charging == chg {
		return
	}
	s.last = types.BatteryState{Percent: pct, Charging: chg, TS: s.clock()}
	s.haveAny = true
	conn.Publish(conn.NewMessage(TopicState, s.last, true))
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigBattery)
	defer conn.Unsubscribe(cfgSub)

	conn.Publish(conn.NewMessage(TopicInfo, s.info, true))
	conn.Publish(conn.NewMessage(TopicStatus, types.ServiceState{Level: "ready", Status: "ok", TS: s.clock()}, true))
	s.Poll(conn)

	tick := time.NewTicker(defaultPoll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("[battery] stopping")
			return
		case <-tick.C:
			s.Poll(conn)
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(types.BatteryConfig); ok && c.PollSec > 0 {
				tick.Reset(time.Duration(c.PollSec) * time.Second)
				println("[battery] poll interval", c.PollSec, "s")
			}
		}
	}
}

// Start the battery service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
