package types

// LogEntry is one sample as seen on the bus.
type LogEntry struct {
	Index    int   `json:"i"`   // logical position, 0 = oldest
	Time     int64 `json:"t"`   // Unix seconds
	AgeSec   int64 `json:"age"` // relative to the reply time
	Percent  uint8 `json:"pct"`
	Charging bool  `json:"chg"`
}

// Retained value: chargelog/latest
type LatestSample struct {
	Time     int64  `json:"t"`
	Percent  uint8  `json:"pct"`
	Charging bool   `json:"chg"`
	Status   string `json:"status"` // "M/D HH:MM P%"
}

// Reply to chargelog/dump.
type LogDump struct {
	Count    int        `json:"count"`
	Capacity int        `json:"capacity"`
	Entries  []LogEntry `json:"entries"`
}

// Event on ui/redraw.
type Redraw struct {
	Reason string `json:"reason"`
}
