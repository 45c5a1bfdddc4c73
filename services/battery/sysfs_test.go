//go:build !(rp2040 || rp2350)

package battery

import (
	"testing"
	"testing/fstest"

	"chargelog-go/errcode"
)

func TestSysfsGauge(t *testing.T) {
	fsys := fstest.MapFS{
		"capacity": {Data: []byte("87\n")},
		"status":   {Data: []byte("Charging\n")},
	}
	pct, chg, err := NewSysfsGauge(fsys).Read()
	if err != nil || pct != 87 || !chg {
		t.Fatalf("Read = %d %v %v", pct, chg, err)
	}

	fsys["capacity"] = &fstest.MapFile{Data: []byte("104")}
	fsys["status"] = &fstest.MapFile{Data: []byte("Discharging")}
	if pct, chg, _ = NewSysfsGauge(fsys).Read(); pct != 100 || chg {
		t.Fatalf("clamped Read = %d %v", pct, chg)
	}
}

func TestSysfsGaugeErrors(t *testing.T) {
	if _, _, err := NewSysfsGauge(fstest.MapFS{}).Read(); errcode.Of(err) != errcode.NoBattery {
		t.Fatalf("missing node: %v", err)
	}
	bad := fstest.MapFS{"capacity": {Data: []byte("full")}}
	if _, _, err := NewSysfsGauge(bad).Read(); errcode.Of(err) != errcode.InvalidPayload {
		t.Fatalf("garbled capacity: %v", err)
	}
}
