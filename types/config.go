package types

// ChargeLogConfig is supplied RETAINED on "config/chargelog".
// Zero fields mean "keep default".
type ChargeLogConfig struct {
	Capacity     int   `yaml:"capacity" json:"capacity"`           // ring slots
	WindowSec    int64 `yaml:"window_sec" json:"window_sec"`       // graph lookback
	IntervalSec  int64 `yaml:"interval_sec" json:"interval_sec"`   // wakeup period
	MarkerRadius int16 `yaml:"marker_radius" json:"marker_radius"` // px
}

// DisplayConfig is supplied RETAINED on "config/display".
type DisplayConfig struct {
	Inset      int16 `yaml:"inset" json:"inset"`             // graph margin, px
	StatusBand int16 `yaml:"status_band" json:"status_band"` // bottom text band, px
	UTCOffset  int32 `yaml:"utc_offset" json:"utc_offset"`   // seconds, for the status line
}

// BatteryConfig is supplied RETAINED on "config/battery".
type BatteryConfig struct {
	Source      string `yaml:"source" json:"source"` // "ltc4015" | "sysfs" | "sim"
	Cells       uint8  `yaml:"cells" json:"cells"`
	EmptyMilliV uint16 `yaml:"empty_mv" json:"empty_mv"` // per cell, maps to 0 %
	FullMilliV  uint16 `yaml:"full_mv" json:"full_mv"`   // per cell, maps to 100 %
	PollSec     int64  `yaml:"poll_sec" json:"poll_sec"`
	RSNSB_uOhm  uint32 `yaml:"rsnsb_uohm" json:"rsnsb_uohm"` // battery sense resistor
}
