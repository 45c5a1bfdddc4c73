package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw YAML for that device
// -----------------------------------------------------------------------------

const cfgPico = `
chargelog:
  capacity: 100
  window_sec: 864000
  interval_sec: 3600
  marker_radius: 2
display:
  inset: 4
  status_band: 10
  utc_offset: 0
battery:
  source: ltc4015
  cells: 1
  empty_mv: 3300
  full_mv: 4150
  poll_sec: 60
  rsnsb_uohm: 10000
`

const cfgHost = `
chargelog:
  capacity: 100
  window_sec: 864000
  interval_sec: 3600
  marker_radius: 2
display:
  inset: 10
  status_band: 34
battery:
  source: sysfs
  poll_sec: 60
`

// The simulator compresses time: one-minute wakeups, one-day window.
const cfgSim = `
chargelog:
  capacity: 20
  window_sec: 86400
  interval_sec: 60
  marker_radius: 1
display:
  inset: 2
  status_band: 8
battery:
  source: sim
  poll_sec: 1
`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
	"sim":  []byte(cfgSim),
}
