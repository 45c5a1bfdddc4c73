// Command chargelog-sim drives the recorder from a simulated gauge on a
// compressed clock and shows the graph in an interactive terminal UI. Each
// frame advances time by one wakeup interval.
package main

import (
	"context"
	"fmt"
	"os"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/persist/memkv"
	"chargelog-go/services/battery"
	"chargelog-go/services/config"
	"chargelog-go/services/display"
	"chargelog-go/services/recorder"
	"chargelog-go/types"
	"chargelog-go/x/termdisp"
	"chargelog-go/x/timex"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := config.Load("sim")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	l, err := chargelog.New(memkv.New(), chargelog.Options{Capacity: cfg.ChargeLog.Capacity})
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
		os.Exit(1)
	}

	clk := timex.NewManual(timex.Wall())
	gauge := battery.NewSimGauge(100)
	gauge.Step, gauge.Low = 3, 15

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	disp := termdisp.New(96, 64, nil)
	dsvc := display.New(disp, l, clk.Clock())
	dsvc.ApplyChargeLog(cfg.ChargeLog)
	dsvc.ApplyDisplay(cfg.Display)

	rec := recorder.New(l, clk.Clock())
	_ = rec.Start(ctx, b.NewConnection("recorder"))

	bat := battery.New(gauge, types.BatteryInfo{Source: "sim"}, clk.Clock())

	m := newModel(modelDeps{
		conn:     b.NewConnection("sim"),
		log:      l,
		clock:    clk,
		gauge:    gauge,
		battery:  bat,
		disp:     disp,
		screen:   dsvc,
		interval: cfg.ChargeLog.IntervalSec,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
