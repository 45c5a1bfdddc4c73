// config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"chargelog-go/bus"
	"chargelog-go/errcode"
	"chargelog-go/types"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	// Override lookup for this test.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "pico" {
			return nil, false
		}
		return []byte(`
chargelog:
  capacity: 20
  window_sec: 3600
display:
  inset: 4
battery:
  source: sim
`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	svc.Start(ctx, conn)

	// Subscribe; retained messages should arrive immediately.
	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})

	wantCount := 3 // chargelog, display, battery
	got := map[string]any{}

	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < wantCount && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if m.Topic.Len() != 2 {
				t.Fatalf("unexpected topic length: %#v", m.Topic)
			}
			key, ok := m.Topic.At(1).(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic.At(1))
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != wantCount {
		t.Fatalf("expected %d retained messages, got %d (%v)", wantCount, len(got), got)
	}

	if c, ok := got["chargelog"].(types.ChargeLogConfig); !ok || c.Capacity != 20 || c.WindowSec != 3600 {
		t.Fatalf("chargelog payload = %#v", got["chargelog"])
	}
	if d, ok := got["display"].(types.DisplayConfig); !ok || d.Inset != 4 {
		t.Fatalf("display payload = %#v", got["display"])
	}
	if bc, ok := got["battery"].(types.BatteryConfig); !ok || bc.Source != "sim" {
		t.Fatalf("battery payload = %#v", got["battery"])
	}
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	svc := NewConfigService()

	err := svc.publishConfig(context.Background(), conn)
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("expected invalid_params for missing device ID, got %v", err)
	}
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(4)
	conn := b.NewConnection("test-no-config")
	svc := NewConfigService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "unknown-device")
	if err := svc.publishConfig(ctx, conn); errcode.Of(err) != errcode.NotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("chargelog:\n  capasity: 3\n"))
	if errcode.Of(err) != errcode.InvalidPayload {
		t.Fatalf("expected invalid_payload, got %v", err)
	}
}

func TestEmbeddedConfigsParse(t *testing.T) {
	for dev := range embeddedConfigs {
		d, err := Load(dev)
		if err != nil {
			t.Fatalf("%s: %v", dev, err)
		}
		if d.ChargeLog.Capacity <= 0 || d.ChargeLog.WindowSec <= 0 || d.ChargeLog.IntervalSec <= 0 {
			t.Fatalf("%s: incomplete chargelog config %+v", dev, d.ChargeLog)
		}
		if d.Battery.Source == "" {
			t.Fatalf("%s: battery source missing", dev)
		}
	}
}
