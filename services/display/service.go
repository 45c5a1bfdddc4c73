// Package display redraws the charge graph and status line on ui/redraw.
package display

import (
	"context"
	"image/color"
	"slices"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/render"
	"chargelog-go/types"
	"chargelog-go/x/timex"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

var (
	topicRedraw          = bus.T("ui", "redraw")
	topicConfigChargeLog = bus.T("config", "chargelog")
	topicConfigDisplay   = bus.T("config", "display")
)

const (
	DefaultInset      int16 = 10
	DefaultStatusBand int16 = 34
)

var (
	fg = color.RGBA{255, 255, 255, 255}
	bg = color.RGBA{0, 0, 0, 255}
)

// Rect is a screen region.
type Rect struct{ X, Y, W, H int16 }

// Layout splits a w x h screen into the graph area (the top part minus the
// status band, inset on every side) and the status band along the bottom.
func Layout(w, h, inset, band int16) (graph, status Rect) {
	if band > h {
		band = h
	}
	top := h - band
	graph = Rect{X: inset, Y: inset, W: w - 2*inset, H: top - 2*inset}
	if graph.W < 0 {
		graph.W = 0
	}
	if graph.H < 0 {
		graph.H = 0
	}
	return graph, Rect{X: 0, Y: top, W: w, H: band}
}

type Service struct {
	disp  drivers.Displayer
	log   *chargelog.Log
	clock timex.Clock
	font  tinyfont.Fonter

	plot      render.Options
	inset     int16
	band      int16
	utcOffset int32
}

func New(d drivers.Displayer, l *chargelog.Log, clock timex.Clock) *Service {
	if clock == nil {
		clock = timex.Wall
	}
	return &Service{
		disp: d, log: l, clock: clock, font: &tinyfont.TomThumb,
		inset: DefaultInset, band: DefaultStatusBand,
	}
}

func (s *Service) ApplyChargeLog(c types.ChargeLogConfig) {
	if c.WindowSec > 0 {
		s.plot.Window = c.WindowSec
	}
	if c.MarkerRadius > 0 {
		s.plot.MarkerRadius = c.MarkerRadius
	}
}

func (s *Service) ApplyDisplay(c types.DisplayConfig) {
	if c.Inset >= 0 {
		s.inset = c.Inset
	}
	if c.StatusBand > 0 {
		s.band = c.StatusBand
	}
	s.utcOffset = c.UTCOffset
}

func (s *Service) clear() {
	if c, ok := s.disp.(interface{ ClearBuffer() }); ok {
		c.ClearBuffer()
		return
	}
	w, h := s.disp.Size()
	for y := int16(0); y < h; y++ {
		for x := int16(0); x < w; x++ {
			s.disp.SetPixel(x, y, bg)
		}
	}
}

// Redraw paints one full frame and returns the drawn commands.
func (s *Service) Redraw() ([]render.Command, error) {
	s.clear()
	w, h := s.disp.Size()
	graph, band := Layout(w, h, s.inset, s.band)

	// Graph and status line come from the same read of the log.
	snap := s.log.Snapshot()
	cmds := render.Plot(slices.Values(snap), s.clock(), graph.W, graph.H, s.plot)
	render.Draw(s.disp, graph.X, graph.Y, cmds, fg)

	if len(snap) > 0 {
		txt := render.Status(snap[len(snap)-1], s.utcOffset)
		_, tw := tinyfont.LineWidth(s.font, txt)
		x := band.X + (band.W-int16(tw))/2
		if x < 0 {
			x = 0
		}
		// TomThumb: 5 px ascent above the baseline.
		y := band.Y + band.H/2 + 3
		tinyfont.WriteLine(s.disp, s.font, x, y, txt, fg)
	}
	return cmds, s.disp.Display()
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	redrawSub := conn.Subscribe(topicRedraw)
	defer conn.Unsubscribe(redrawSub)
	logCfg := conn.Subscribe(topicConfigChargeLog)
	defer conn.Unsubscribe(logCfg)
	dispCfg := conn.Subscribe(topicConfigDisplay)
	defer conn.Unsubscribe(dispCfg)

	s.redraw("start")
	for {
		select {
		case <-ctx.Done():
			println("[display] stopping")
			return
		case msg := <-redrawSub.Channel():
			reason := ""
			if r, ok := msg.Payload.(types.Redraw); ok {
				reason = r.Reason
			}
			s.redraw(reason)
		case msg := <-logCfg.Channel():
			if c, ok := msg.Payload.(types.ChargeLogConfig); ok {
				s.ApplyChargeLog(c)
				s.redraw("config")
			}
		case msg := <-dispCfg.Channel():
			if c, ok := msg.Payload.(types.DisplayConfig); ok {
				s.ApplyDisplay(c)
				s.redraw("config")
			}
		}
	}
}

func (s *Service) redraw(reason string) {
	cmds, err := s.Redraw()
	if err != nil {
		println("[display] flush failed:", err.Error())
		return
	}
	println("[display] redraw", reason, "markers:", render.Count(cmds, render.Marker))
}

// Start the display service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
