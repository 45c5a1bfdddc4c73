package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"chargelog-go/bus"
	"chargelog-go/chargelog"
	"chargelog-go/services/battery"
	"chargelog-go/services/display"
	"chargelog-go/services/recorder"
	"chargelog-go/types"
	"chargelog-go/x/mathx"
	"chargelog-go/x/termdisp"
	"chargelog-go/x/timex"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	styleHelp  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleDump  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

const frameEvery = 150 * time.Millisecond

type tickMsg time.Time

type modelDeps struct {
	conn     *bus.Connection
	log      *chargelog.Log
	clock    *timex.Manual
	gauge    *battery.SimGauge
	battery  *battery.Service
	disp     *termdisp.Display
	screen   *display.Service
	interval int64
}

type model struct {
	modelDeps
	paused   bool
	dump     *types.LogDump
	latest   string
	latestCh *bus.Subscription
	redrawCh *bus.Subscription
}

func newModel(d modelDeps) model {
	if d.interval <= 0 {
		d.interval = int64(recorder.DefaultInterval / time.Second)
	}
	_, _ = d.screen.Redraw()
	return model{
		modelDeps: d,
		latestCh:  d.conn.Subscribe(recorder.TopicLatest),
		redrawCh:  d.conn.Subscribe(recorder.TopicRedraw),
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

// step advances simulated time by one wakeup interval and samples.
func (m *model) step() {
	m.clock.Advance(m.interval)
	m.battery.Poll(m.conn)
}

// drain picks up bus traffic since the last frame. The display service
// loop is not used here: its per-frame logging would tear the alt screen.
func (m *model) drain() {
	dirty := false
	for {
		select {
		case msg := <-m.latestCh.Channel():
			if s, ok := msg.Payload.(types.LatestSample); ok {
				m.latest = s.Status
			}
		case <-m.redrawCh.Channel():
			dirty = true
		default:
			if dirty {
				_, _ = m.screen.Redraw()
			}
			return
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if !m.paused {
			m.step()
		}
		m.drain()
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "n":
			m.step()
		case "c":
			p, chg := m.gauge.Peek()
			m.gauge.Set(p, !chg)
		case "+", "=":
			p, chg := m.gauge.Peek()
			m.gauge.Set(mathx.Min(p+10, 100), chg)
		case "-":
			p, chg := m.gauge.Peek()
			m.gauge.Set(mathx.Max(p, 10)-10, chg)
		case "d":
			if m.dump != nil {
				m.dump = nil
				break
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			reply, err := m.conn.RequestWait(ctx, m.conn.NewMessage(recorder.TopicDump, nil, false))
			cancel()
			if err == nil {
				if d, ok := reply.Payload.(types.LogDump); ok {
					m.dump = &d
				}
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	state := "running"
	if m.paused {
		state = "paused"
	}
	header := styleTitle.Render("chargelog-sim") + "  " + styleInfo.Render(
		time.Unix(m.clock.Now(), 0).Format("Jan 2 15:04")+"  "+
			strconv.Itoa(m.log.Len())+"/"+strconv.Itoa(m.log.Capacity())+" samples  "+state)

	body := m.disp.Render()
	if m.dump != nil {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", styleDump.Render(renderDump(*m.dump)))
	}
	footer := styleHelp.Render("space pause · n step · c charger · +/- level · d dump · q quit")
	if m.latest != "" {
		footer = styleInfo.Render("latest "+m.latest) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func renderDump(d types.LogDump) string {
	var sb strings.Builder
	sb.WriteString("#  age(s)  pct\n")
	for _, e := range d.Entries {
		sb.WriteString(strconv.Itoa(e.Index))
		sb.WriteString("  ")
		sb.WriteString(strconv.FormatInt(e.AgeSec, 10))
		sb.WriteString("  ")
		sb.WriteString(strconv.Itoa(int(e.Percent)))
		sb.WriteString("%")
		if e.Charging {
			sb.WriteString(" +")
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
