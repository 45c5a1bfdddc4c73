package battery

import (
	"errors"
	"sync"

	"chargelog-go/drivers/ltc4015"
	"chargelog-go/errcode"
	"chargelog-go/types"
	"chargelog-go/x/mathx"
)

// Gauge yields the charge percentage (0..100) and charging flag.
type Gauge interface {
	Read() (percent uint8, charging bool, err error)
}

// ---------------------------------------------------------------------------
// LTC4015: percentage from per-cell voltage, charging from CHARGER_STATE
// ---------------------------------------------------------------------------

type Telemetry interface {
	Telemetry() (types.BatteryTelemetry, error)
}

type LTCGauge struct {
	dev         Telemetry
	emptyMilliV uint16
	fullMilliV  uint16
}

// NewLTCGauge maps per-cell voltage linearly from empty to full. Zero
// bounds fall back to single-cell Li-ion values.
func NewLTCGauge(dev Telemetry, emptyMilliV, fullMilliV uint16) *LTCGauge {
	if emptyMilliV == 0 {
		emptyMilliV = 3300
	}
	if fullMilliV <= emptyMilliV {
		fullMilliV = 4150
	}
	return &LTCGauge{dev: dev, emptyMilliV: emptyMilliV, fullMilliV: fullMilliV}
}

var _ Telemetry = (*ltc4015.Device)(nil)

func (g *LTCGauge) Read() (uint8, bool, error) {
	t, err := g.dev.Telemetry()
	if errors.Is(err, ltc4015.ErrNoBattery) {
		return 0, false, errcode.Wrap(errcode.NoBattery, "battery.read", err)
	}
	if err != nil {
		return 0, false, err
	}
	mv := uint16(mathx.Clamp(t.PerCellMilliV, 0, 0xFFFF))
	pct := mathx.MapU16(mv, g.emptyMilliV, g.fullMilliV, 0, 100)
	return uint8(pct), types.ChargerStateBits(t.State).Charging(), nil
}

// ---------------------------------------------------------------------------
// Simulated gauge
// ---------------------------------------------------------------------------

// SimGauge discharges by Step percent per Read until it hits Low, then
// charges back to 100 and repeats. Set pins the value for tests and the
// interactive simulator.
type SimGauge struct {
	mu       sync.Mutex
	pct      int
	charging bool
	Step     int
	Low      int
}

func NewSimGauge(start uint8) *SimGauge {
	return &SimGauge{pct: int(start), Step: 1, Low: 20}
}

func (g *SimGauge) Read() (uint8, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, c := uint8(g.pct), g.charging
	if g.Step == 0 {
		return p, c, nil
	}
	if g.charging {
		g.pct += 2 * g.Step
		if g.pct >= 100 {
			g.pct, g.charging = 100, false
		}
	} else {
		g.pct -= g.Step
		if g.pct <= g.Low {
			g.pct, g.charging = mathx.Max(g.pct, 0), true
		}
	}
	return p, c, nil
}

// Peek returns the next reading without advancing.
func (g *SimGauge) Peek() (uint8, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return uint8(g.pct), g.charging
}

// Set pins the next reading.
func (g *SimGauge) Set(percent uint8, charging bool) {
	g.mu.Lock()
	g.pct = mathx.Clamp(int(percent), 0, 100)
	g.charging = charging
	g.mu.Unlock()
}
