//go:build rp2040 || rp2350

// Command chargelog-pico is the firmware build: LTC4015 gauge on i2c0,
// SSD1306 panel on the same bus, log in the on-chip flash data region and
// a console on uart0 ("d" dump, "r" redraw, "s" sample now).
package main

import (
	"context"
	"machine"
	"time"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/drivers/ltc4015"
	"chargelog-go/persist/flashkv"
	"chargelog-go/services/battery"
	"chargelog-go/services/config"
	"chargelog-go/services/display"
	"chargelog-go/services/recorder"
	"chargelog-go/types"
	"chargelog-go/x/conv"
	"chargelog-go/x/timex"

	"github.com/jangala-dev/tinygo-uartx"
	"tinygo.org/x/drivers/ssd1306"
)

const device = "pico"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	ctx := context.Background()
	cfg, err := config.Load(device)
	if err != nil {
		println("[main] config:", err.Error())
		return
	}

	i2c := machine.I2C0
	_ = i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})

	kv, err := flashkv.Open(machine.Flash, 0)
	if err != nil {
		println("[main] flash:", err.Error())
		return
	}
	l, err := chargelog.New(kv, chargelog.Options{Capacity: cfg.ChargeLog.Capacity})
	if err != nil {
		println("[main] log:", err.Error())
		return
	}
	println("[main] log", l.Len(), "/", l.Capacity(), "flash slots", kv.Capacity())

	chg := ltc4015.New(i2c, ltc4015.Config{RSNSB_uOhm: cfg.Battery.RSNSB_uOhm, Cells: cfg.Battery.Cells})
	if err := chg.Configure(); err != nil {
		println("[main] ltc4015:", err.Error())
	} else if st, err := chg.ChargerState(); err == nil {
		valid, _ := chg.MeasSystemValid()
		println("[main] charger:", types.FirstSet(st, types.ChargerStateTable[:]), "meas valid:", valid)
	}

	panel := ssd1306.NewI2C(i2c)
	// 0x3C: the usual strap on 128x64 modules too.
	panel.Configure(ssd1306.Config{Width: 128, Height: 64, Address: ssd1306.Address_128_32})
	panel.ClearDisplay()

	b := bus.NewBus(4)
	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, device)
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	gauge := battery.NewLTCGauge(chg, cfg.Battery.EmptyMilliV, cfg.Battery.FullMilliV)
	info := types.BatteryInfo{Source: "ltc4015", Cells: chg.Cells(), Chem: chemName(chg.Chem())}
	_ = battery.New(gauge, info, timex.Wall).Start(ctx, b.NewConnection("battery"))

	rec := recorder.New(l, timex.Wall)
	rec.SetUTCOffset(cfg.Display.UTCOffset)
	_ = rec.Start(ctx, b.NewConnection("recorder"))
	_ = display.New(&panel, l, timex.Wall).Start(ctx, b.NewConnection("display"))

	console(ctx, b.NewConnection("console"))
}

func chemName(c ltc4015.Chemistry) string {
	switch c {
	case ltc4015.ChemLithium:
		return "lithium"
	case ltc4015.ChemLeadAcid:
		return "lead_acid"
	}
	return ""
}

func console(ctx context.Context, conn *bus.Connection) {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	write := func(b []byte) { _, _ = u.Write(b) }
	write([]byte("chargelog ready\r\n"))

	var in [16]byte
	var line []byte
	for {
		n, err := u.RecvSomeContext(ctx, in[:])
		if err != nil {
			println("[console] rx:", err.Error())
			return
		}
		for _, c := range in[:n] {
			switch c {
			case 'd':
				rctx, cancel := context.WithTimeout(ctx, time.Second)
				reply, err := conn.RequestWait(rctx, conn.NewMessage(recorder.TopicDump, nil, false))
				cancel()
				if err != nil {
					write([]byte("dump: " + err.Error() + "\r\n"))
					continue
				}
				d, _ := reply.Payload.(types.LogDump)
				for _, e := range d.Entries {
					line = conv.AppendInt(line[:0], int64(e.Index))
					line = append(line, ' ')
					line = conv.AppendInt(line, e.AgeSec)
					line = append(line, ' ')
					line = conv.AppendInt(line, int64(e.Percent))
					line = append(line, '%', '\r', '\n')
					write(line)
				}
			case 'r':
				conn.Publish(conn.NewMessage(recorder.TopicRedraw, types.Redraw{Reason: "console"}, false))
			case 's':
				rctx, cancel := context.WithTimeout(ctx, time.Second)
				reply, err := conn.RequestWait(rctx, conn.NewMessage(recorder.TopicRecord, nil, false))
				cancel()
				switch {
				case err != nil:
					write([]byte("sample: " + err.Error() + "\r\n"))
				default:
					if e, ok := reply.Payload.(types.ErrorReply); ok {
						write([]byte("sample: " + e.Error + "\r\n"))
					} else {
						write([]byte("ok\r\n"))
					}
				}
			}
		}
	}
}
