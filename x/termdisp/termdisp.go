// Package termdisp is a monochrome drivers.Displayer held in memory and
// rendered to a terminal with half-block characters.
package termdisp

import (
	"image/color"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type Display struct {
	mu   sync.Mutex
	w, h int16
	px   []bool
	out  io.Writer

	Style lipgloss.Style
}

// New returns a blank w x h display. When out is non-nil, Display writes
// the rendered frame to it.
func New(w, h int16, out io.Writer) *Display {
	return &Display{
		w:   w,
		h:   h,
		px:  make([]bool, int(w)*int(h)),
		out: out,
		Style: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Foreground(lipgloss.Color("42")),
	}
}

func (d *Display) Size() (int16, int16) { return d.w, d.h }

// SetPixel lights pixels with non-zero alpha and any channel set; black
// clears. Out-of-range coordinates are ignored.
func (d *Display) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= d.w || y >= d.h {
		return
	}
	d.mu.Lock()
	d.px[int(y)*int(d.w)+int(x)] = c.A != 0 && (c.R|c.G|c.B) != 0
	d.mu.Unlock()
}

func (d *Display) Pixel(x, y int16) bool {
	if x < 0 || y < 0 || x >= d.w || y >= d.h {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.px[int(y)*int(d.w)+int(x)]
}

func (d *Display) ClearBuffer() {
	d.mu.Lock()
	clear(d.px)
	d.mu.Unlock()
}

func (d *Display) Display() error {
	if d.out == nil {
		return nil
	}
	_, err := io.WriteString(d.out, d.Render()+"\n")
	return err
}

// Frame returns the raw half-block art, two pixel rows per text line.
func (d *Display) Frame() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sb strings.Builder
	for y := int16(0); y < d.h; y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := int16(0); x < d.w; x++ {
			top := d.px[int(y)*int(d.w)+int(x)]
			bot := y+1 < d.h && d.px[int(y+1)*int(d.w)+int(x)]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String()
}

// Render is Frame inside Style.
func (d *Display) Render() string { return d.Style.Render(d.Frame()) }
