package ltc4015

import (
	"errors"

	"chargelog-go/types"

	"tinygo.org/x/drivers"
)

type Chemistry uint8

const (
	ChemUnknown  Chemistry = iota
	ChemLithium            // VBAT LSB: 192.264 µV/cell
	ChemLeadAcid           // VBAT LSB: 128.176 µV/cell
)

var (
	ErrNoBattery  = errors.New("no_battery")
	ErrRSNSBUnset = errors.New("rsnsb_unset")
)

// Driver configuration. Integer-only.
type Config struct {
	Address    uint16
	RSNSB_uOhm uint32 // battery path sense resistor in µΩ
	Cells      uint8  // optional; read from pins if 0
}

type Device struct {
	i2c   drivers.I2C
	addr  uint16
	cells uint8
	chem  Chemistry
	rsnsB uint32

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr, cells: cfg.Cells, rsnsB: cfg.RSNSB_uOhm}
}

// Configure detects chemistry and cell count from the strap pins and
// forces the measurement system on so VBAT/IBAT update without VIN.
func (d *Device) Configure() error {
	v, err := d.readWord(regChemCells)
	if err != nil {
		return err
	}
	if d.cells == 0 {
		d.cells = uint8(v & 0x000F)
	}
	switch (v >> 8) & 0x000F {
	case 0x7, 0x8:
		d.chem = ChemLeadAcid
	case 0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6:
		d.chem = ChemLithium
	default:
		d.chem = ChemUnknown
	}
	cfg, err := d.readWord(regConfigBits)
	if err != nil {
		return err
	}
	return d.writeWord(regConfigBits, cfg|cfgForceMeasSysOn)
}

func (d *Device) Chem() Chemistry { return d.chem }
func (d *Device) Cells() uint8    { return d.cells }

func (d *Device) Battery_mVPerCell() (int32, error) {
	raw, err := d.readWord(regVBAT)
	if err != nil {
		return 0, err
	}
	nV := int64(192264)
	if d.chem == ChemLeadAcid {
		nV = 128176
	}
	return int32(int64(raw) * nV / 1_000_000), nil
}

func (d *Device) Ibat_mA() (int32, error) {
	if d.rsnsB == 0 {
		return 0, ErrRSNSBUnset
	}
	raw, err := d.readS16(regIBAT)
	if err != nil {
		return 0, err
	}
	uA := (int64(raw) * 1464870) / int64(d.rsnsB)
	return int32(uA / 1000), nil
}

func (d *Device) ChargerState() (types.ChargerStateBits, error) {
	v, err := d.readWord(regChargerState)
	return types.ChargerStateBits(v), err
}

func (d *Device) SystemStatus() (SystemStatus, error) {
	v, err := d.readWord(regSystemStatus)
	return SystemStatus(v), err
}

func (d *Device) MeasSystemValid() (bool, error) {
	v, err := d.readWord(regMeasSysValid)
	if err != nil {
		return false, err
	}
	return v&0x0001 != 0, nil
}

// Telemetry reads the values a gauge needs in one pass. ErrNoBattery is
// returned when the charger reports a missing or shorted battery.
func (d *Device) Telemetry() (types.BatteryTelemetry, error) {
	var t types.BatteryTelemetry
	st, err := d.ChargerState()
	if err != nil {
		return t, err
	}
	t.State = uint16(st)
	if st.Faulted() {
		return t, ErrNoBattery
	}
	if t.PerCellMilliV, err = d.Battery_mVPerCell(); err != nil {
		return t, err
	}
	if d.rsnsB != 0 {
		if t.IBatMilliA, err = d.Ibat_mA(); err != nil {
			return t, err
		}
	}
	return t, nil
}
