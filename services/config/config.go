package config

import (
	"bytes"
	"context"

	"chargelog-go/bus"
	"chargelog-go/errcode"
	"chargelog-go/types"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey is the context key carrying the device ID.
const CtxDeviceKey ctxKey = "device"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Device is the full per-device configuration. Each field is published
// retained on config/<yaml key>.
type Device struct {
	ChargeLog types.ChargeLogConfig `yaml:"chargelog"`
	Display   types.DisplayConfig   `yaml:"display"`
	Battery   types.BatteryConfig   `yaml:"battery"`
}

// Parse decodes raw YAML, rejecting unknown keys.
func Parse(raw []byte) (Device, error) {
	var d Device
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Device{}, errcode.Wrap(errcode.InvalidPayload, "config.parse", err)
	}
	return d, nil
}

// Load resolves and parses the config for device.
func Load(device string) (Device, error) {
	if device == "" {
		return Device{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: "missing device ID"}
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Device{}, &errcode.E{C: errcode.NotFound, Op: "config.load", Msg: "no embedded config for device: " + device}
	}
	return Parse(raw)
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig loads the device config and publishes it as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	d, err := Load(device)
	if err != nil {
		return err
	}
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "chargelog"), d.ChargeLog, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "display"), d.Display, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "battery"), d.Battery, true))
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config] publish failed:", err.Error())
		}
	}()
}
