// Package ltc4015 reads battery telemetry from an LTC4015 charger over I2C.
package ltc4015

const (
	// 7-bit I2C address (1101_000b).
	AddressDefault = 0x68

	// CONFIG_BITS (0x14)
	cfgForceMeasSysOn = 1 << 4

	// Register sub-addresses (16-bit word registers).
	regConfigBits   = 0x14 // R/W
	regChargerState = 0x34 // R
	regSystemStatus = 0x39 // R
	regVBAT         = 0x3A // R
	regIBAT         = 0x3D // R
	regChemCells    = 0x43 // R
	regMeasSysValid = 0x4A // R, bit0
)

// SYSTEM_STATUS (0x39), subset.
type SystemStatus uint16

const (
	IntvccGT2p8V SystemStatus = 1 << 13
	VinGtVbat    SystemStatus = 1 << 8
	ChargerEn    SystemStatus = 1 << 0
)

func (s SystemStatus) Has(f SystemStatus) bool { return s&f != 0 }
