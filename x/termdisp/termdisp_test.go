package termdisp

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"tinygo.org/x/drivers"
)

var _ drivers.Displayer = (*Display)(nil)

var on = color.RGBA{255, 255, 255, 255}

func TestHalfBlocks(t *testing.T) {
	d := New(4, 3, nil)
	d.SetPixel(0, 0, on)
	d.SetPixel(1, 1, on)
	d.SetPixel(2, 0, on)
	d.SetPixel(2, 1, on)
	d.SetPixel(3, 2, on)
	d.SetPixel(9, 9, on) // ignored

	want := "▀▄█ \n   ▀"
	if got := d.Frame(); got != want {
		t.Fatalf("Frame =\n%q\nwant\n%q", got, want)
	}
}

func TestBlackClears(t *testing.T) {
	d := New(2, 2, nil)
	d.SetPixel(1, 1, on)
	d.SetPixel(1, 1, color.RGBA{0, 0, 0, 255})
	if d.Pixel(1, 1) {
		t.Fatal("black did not clear pixel")
	}
	d.SetPixel(0, 0, on)
	d.ClearBuffer()
	if d.Pixel(0, 0) {
		t.Fatal("ClearBuffer left pixel set")
	}
}

func TestDisplayWritesBorderedFrame(t *testing.T) {
	var buf bytes.Buffer
	d := New(3, 2, &buf)
	d.SetPixel(1, 0, on)
	if err := d.Display(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "▀") || !strings.Contains(out, "╭") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
