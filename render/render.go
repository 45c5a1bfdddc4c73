// Package render turns a chronological sample sequence into draw commands
// for a time-vs-charge graph, and rasterises them onto a drivers.Displayer.
package render

import (
	"image/color"
	"iter"
	"time"

	"chargelog-go/chargelog"
	"chargelog-go/x/conv"
	"chargelog-go/x/mathx"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
)

const (
	DefaultWindow       int64 = 10 * 24 * 3600
	DefaultMarkerRadius int16 = 2
)

type Options struct {
	Window       int64 // seconds; 0 => DefaultWindow
	MarkerRadius int16 // 0 => DefaultMarkerRadius
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.MarkerRadius <= 0 {
		o.MarkerRadius = DefaultMarkerRadius
	}
	return o
}

type Kind uint8

const (
	Outline Kind = iota // X0,Y0 = 0,0; X1,Y1 = W,H
	Marker              // filled circle at X0,Y0 with radius R
	Line                // segment X0,Y0 to X1,Y1
)

// Command is one draw primitive in graph-local coordinates.
type Command struct {
	Kind           Kind
	X0, Y0, X1, Y1 int16
	R              int16
}

// Plot maps samples (oldest first) into commands for a w x h graph ending
// at now. Samples older than the window get no marker and break the step
// line; the newest level is carried to the right edge.
func Plot(samples iter.Seq[chargelog.Sample], now int64, w, h int16, opts Options) []Command {
	opts = opts.withDefaults()
	cmds := []Command{{Kind: Outline, X1: w, Y1: h}}

	var (
		seen         bool
		prevValid    bool
		prevX, prevY int16
		lastValid    bool
		lastX, lastY int16
	)
	for s := range samples {
		seen = true
		age := now - s.Time
		if age < 0 {
			age = 0
		}
		y := h - int16(mathx.MulDiv(int64(h), int64(s.Percent), 100))
		lastY, lastValid = y, age <= opts.Window
		if !lastValid {
			prevValid = false
			continue
		}
		x := w - int16(mathx.MulDiv(int64(w), age, opts.Window))
		cmds = append(cmds, Command{Kind: Marker, X0: x, Y0: y, R: opts.MarkerRadius})
		if prevValid {
			cmds = append(cmds,
				Command{Kind: Line, X0: prevX, Y0: prevY, X1: x, Y1: prevY},
				Command{Kind: Line, X0: x, Y0: prevY, X1: x, Y1: y},
			)
		}
		prevX, prevY, prevValid = x, y, true
		lastX = x
	}
	if !seen {
		return cmds
	}
	// Off-window last sample: its level held across the whole window.
	if !lastValid {
		lastX = 0
	}
	cmds = append(cmds, Command{Kind: Line, X0: lastX, Y0: lastY, X1: w, Y1: lastY})
	return cmds
}

// Count tallies commands of kind k.
func Count(cmds []Command, k Kind) int {
	n := 0
	for _, c := range cmds {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// Draw rasterises cmds with their origin at (ox, oy). The outline spans
// W+1 x H+1 pixels so that x==W and y==H stay on the frame.
func Draw(d drivers.Displayer, ox, oy int16, cmds []Command, c color.RGBA) {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case Outline:
			tinydraw.Rectangle(d, ox+cmd.X0, oy+cmd.Y0, cmd.X1-cmd.X0+1, cmd.Y1-cmd.Y0+1, c)
		case Marker:
			tinydraw.FilledCircle(d, ox+cmd.X0, oy+cmd.Y0, cmd.R, c)
		case Line:
			tinydraw.Line(d, ox+cmd.X0, oy+cmd.Y0, ox+cmd.X1, oy+cmd.Y1, c)
		}
	}
}

// Status formats s as "M/D HH:MM P%" in local time given as a UTC offset
// in seconds.
func Status(s chargelog.Sample, utcOffset int32) string {
	t := time.Unix(s.Time+int64(utcOffset), 0).UTC()
	b := make([]byte, 0, 16)
	b = conv.AppendInt(b, int64(t.Month()))
	b = append(b, '/')
	b = conv.AppendInt(b, int64(t.Day()))
	b = append(b, ' ')
	b = conv.AppendPad2(b, t.Hour())
	b = append(b, ':')
	b = conv.AppendPad2(b, t.Minute())
	b = append(b, ' ')
	b = conv.AppendInt(b, int64(s.Percent))
	b = append(b, '%')
	return string(b)
}
