// Command chargelog-host records the host's battery charge into a pebble
// store and renders the history graph in the terminal.
//
//	chargelog-host run      services on a bus, frame printed on every redraw
//	chargelog-host record   one sample and exit (for a cron or systemd timer)
//	chargelog-host dump     list retained samples
//	chargelog-host show     print one frame
//
// Environment: CHARGELOG_DIR, CHARGELOG_DEVICE, CHARGELOG_CONFIG, LOG_LEVEL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/persist/pebblekv"
	"chargelog-go/services/battery"
	"chargelog-go/services/config"
	"chargelog-go/services/display"
	"chargelog-go/services/recorder"
	"chargelog-go/types"
	"chargelog-go/x/termdisp"
	"chargelog-go/x/timex"
)

func main() {
	log := initLogger()

	width := flag.Int("w", 144, "display width in pixels")
	height := flag.Int("h", 168, "display height in pixels")
	sysfs := flag.String("sysfs", battery.DefaultSysfsDir, "power_supply node for the sysfs gauge")
	flag.Parse()
	mode := flag.Arg(0)
	if mode == "" {
		mode = "run"
	}

	device := envOr("CHARGELOG_DEVICE", "host")
	if path := os.Getenv("CHARGELOG_CONFIG"); path != "" {
		config.EmbeddedConfigLookup = func(string) ([]byte, bool) {
			b, err := os.ReadFile(path)
			if err != nil {
				log.Error("config file unreadable", "path", path, "err", err)
				return nil, false
			}
			return b, true
		}
	}
	cfg, err := config.Load(device)
	if err != nil {
		log.Error("config", "device", device, "err", err)
		os.Exit(1)
	}

	dir := envOr("CHARGELOG_DIR", defaultDir())
	kv, err := pebblekv.Open(pebblekv.Options{Dir: dir})
	if err != nil {
		log.Error("open store", "dir", dir, "err", err)
		os.Exit(1)
	}
	defer kv.Close()

	l, err := chargelog.New(kv, chargelog.Options{Capacity: cfg.ChargeLog.Capacity})
	if err != nil {
		log.Error("open log", "err", err)
		os.Exit(1)
	}
	log.Debug("log opened", "dir", dir, "capacity", l.Capacity(), "count", l.Len())

	a := &app{
		log:    log,
		cfg:    cfg,
		device: device,
		clog:   l,
		gauge:  pickGauge(log, cfg.Battery, *sysfs),
		disp:   termdisp.New(int16(*width), int16(*height), os.Stdout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "run":
		err = a.run(ctx)
	case "record":
		err = a.record(ctx)
	case "dump":
		a.dump()
	case "show":
		_, err = a.newDisplay().Redraw()
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (run, record, dump, show)\n", mode)
		os.Exit(2)
	}
	if err != nil {
		log.Error(mode, "err", err)
		os.Exit(1)
	}
}

type app struct {
	log    *slog.Logger
	cfg    config.Device
	device string
	clog   *chargelog.Log
	gauge  battery.Gauge
	disp   *termdisp.Display
}

func (a *app) newDisplay() *display.Service {
	d := display.New(a.disp, a.clog, timex.Wall)
	d.ApplyChargeLog(a.cfg.ChargeLog)
	d.ApplyDisplay(a.cfg.Display)
	return d
}

func (a *app) run(ctx context.Context) error {
	b := bus.NewBus(8)
	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, a.device)
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	rec := recorder.New(a.clog, timex.Wall)
	rec.SetUTCOffset(a.cfg.Display.UTCOffset)
	_ = battery.New(a.gauge, types.BatteryInfo{Source: a.cfg.Battery.Source}, timex.Wall).Start(ctx, b.NewConnection("battery"))
	_ = rec.Start(ctx, b.NewConnection("recorder"))
	_ = a.newDisplay().Start(ctx, b.NewConnection("display"))

	mon := b.NewConnection("main")
	latest := mon.Subscribe(recorder.TopicLatest)
	defer mon.Unsubscribe(latest)
	recStatus := mon.Subscribe(recorder.TopicStatus)
	defer mon.Unsubscribe(recStatus)
	batStatus := mon.Subscribe(battery.TopicStatus)
	defer mon.Unsubscribe(batStatus)

	a.log.Info("running", "device", a.device, "samples", a.clog.Len())
	for {
		select {
		case <-ctx.Done():
			a.log.Info("stopping")
			return nil
		case m := <-latest.Channel():
			if s, ok := m.Payload.(types.LatestSample); ok {
				a.log.Info("sample", "percent", s.Percent, "charging", s.Charging, "status", s.Status)
			}
		case m := <-recStatus.Channel():
			a.logState("recorder", m)
		case m := <-batStatus.Channel():
			a.logState("battery", m)
		}
	}
}

func (a *app) logState(svc string, m *bus.Message) {
	s, ok := m.Payload.(types.ServiceState)
	if !ok {
		return
	}
	if s.Level != "ready" {
		a.log.Warn("service degraded", "service", svc, "status", s.Status)
		return
	}
	a.log.Debug("service ready", "service", svc)
}

// record is the wakeup path: one reading, no redraw.
func (a *app) record(ctx context.Context) error {
	b := bus.NewBus(4)
	conn := b.NewConnection("record")
	battery.New(a.gauge, types.BatteryInfo{Source: a.cfg.Battery.Source}, timex.Wall).Poll(conn)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	wrote, err := recorder.New(a.clog, timex.Wall).RecordOnce(ctx, conn)
	if err != nil {
		return err
	}
	a.log.Info("record", "written", wrote, "count", a.clog.Len())
	return nil
}

func (a *app) dump() {
	d := recorder.New(a.clog, timex.Wall).Dump()
	fmt.Printf("%d/%d samples\n", d.Count, d.Capacity)
	for _, e := range d.Entries {
		fmt.Printf("%d %d %d%%\n", e.Index, e.AgeSec, e.Percent)
	}
}

func pickGauge(log *slog.Logger, c types.BatteryConfig, sysfs string) battery.Gauge {
	if c.Source == "sysfs" {
		if _, err := os.Stat(filepath.Join(sysfs, "capacity")); err == nil {
			return battery.NewSysfsGauge(os.DirFS(sysfs))
		}
		log.Warn("no sysfs battery, using simulated gauge", "dir", sysfs)
	}
	return battery.NewSimGauge(100)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultDir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "chargelog")
	}
	return "chargelog-data"
}
