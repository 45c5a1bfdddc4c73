package types

// ------------------------
// Battery state (retained)
// ------------------------

// Retained value: power/battery/state
type BatteryState struct {
	Percent  uint8 `json:"percent"` // 0..100, clamped by the source
	Charging bool  `json:"charging"`
	TS       int64 `json:"ts"` // Unix seconds of the reading
}

// Retained value: power/battery/info
type BatteryInfo struct {
	Source string `json:"source"` // "ltc4015" | "sim"
	Cells  uint8  `json:"cells,omitempty"`
	Chem   string `json:"chem,omitempty"`
}

// BatteryTelemetry is the raw reading a gauge derives its percentage from.
type BatteryTelemetry struct {
	PerCellMilliV int32  `json:"per_cell_mV"`
	IBatMilliA    int32  `json:"ibat_mA"`
	State         uint16 `json:"state"` // raw CHARGER_STATE bits
}

// CHARGER_STATE (0x34)
type ChargerStateBits uint16

const (
	EqualizeCharge     ChargerStateBits = 1 << 10
	AbsorbCharge       ChargerStateBits = 1 << 9
	ChargerSuspended   ChargerStateBits = 1 << 8
	Precharge          ChargerStateBits = 1 << 7
	CCCVCharge         ChargerStateBits = 1 << 6
	NTCPause           ChargerStateBits = 1 << 5
	TimerTerm          ChargerStateBits = 1 << 4
	COverXTerm         ChargerStateBits = 1 << 3
	MaxChargeTimeFault ChargerStateBits = 1 << 2
	BatMissingFault    ChargerStateBits = 1 << 1
	BatShortFault      ChargerStateBits = 1 << 0
)

const chargingPhases = Precharge | CCCVCharge | AbsorbCharge | EqualizeCharge

// Charging reports whether any active charge phase bit is set.
func (s ChargerStateBits) Charging() bool { return s&chargingPhases != 0 }

// Faulted reports battery missing/short.
func (s ChargerStateBits) Faulted() bool { return s&(BatMissingFault|BatShortFault) != 0 }

// Generic pairing of a bit value with a printable name.
type BitName[T ~uint16] struct {
	Bit  T
	Name string
}

// FirstSet returns the name of the first table entry set in v, or "".
func FirstSet[T ~uint16](v T, table []BitName[T]) string {
	for _, e := range table {
		if v&e.Bit != 0 {
			return e.Name
		}
	}
	return ""
}

// ChargerStateTable, most significant condition first.
var ChargerStateTable = [...]BitName[ChargerStateBits]{
	{BatShortFault, "bat_short"},
	{BatMissingFault, "bat_missing"},
	{MaxChargeTimeFault, "max_charge_time_fault"},
	{ChargerSuspended, "suspended"},
	{NTCPause, "ntc_pause"},
	{Precharge, "precharge"},
	{CCCVCharge, "cccv"},
	{AbsorbCharge, "absorb"},
	{EqualizeCharge, "equalize"},
	{COverXTerm, "c_over_x_term"},
	{TimerTerm, "timer_term"},
}
