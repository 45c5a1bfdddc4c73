//go:build !(rp2040 || rp2350)

package battery

import (
	"io/fs"
	"strconv"
	"strings"

	"chargelog-go/errcode"
	"chargelog-go/x/mathx"
)

// DefaultSysfsDir is the usual Linux power-supply node for the first battery.
const DefaultSysfsDir = "/sys/class/power_supply/BAT0"

// SysfsGauge reads "capacity" and "status" from a Linux power_supply node.
type SysfsGauge struct{ fsys fs.FS }

func NewSysfsGauge(fsys fs.FS) *SysfsGauge { return &SysfsGauge{fsys: fsys} }

func (g *SysfsGauge) Read() (uint8, bool, error) {
	raw, err := fs.ReadFile(g.fsys, "capacity")
	if err != nil {
		return 0, false, errcode.Wrap(errcode.NoBattery, "battery.sysfs", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, false, errcode.Wrap(errcode.InvalidPayload, "battery.sysfs", err)
	}
	charging := false
	if st, err := fs.ReadFile(g.fsys, "status"); err == nil {
		charging = strings.TrimSpace(string(st)) == "Charging"
	}
	return uint8(mathx.Clamp(n, 0, 100)), charging, nil
}
