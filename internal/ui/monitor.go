package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/olivier-w/micscope/internal/channels"
	"github.com/olivier-w/micscope/internal/rate"
	"github.com/olivier-w/micscope/internal/util"
	"github.com/olivier-w/micscope/internal/visualizer"
)

const (
	defaultRenderInterval = 200 * time.Millisecond
	// lines taken by everything except the visualizer
	chromeHeight = 12
)

// Options configures a Monitor.
type Options struct {
	Title          string
	RenderInterval time.Duration
	Window         time.Duration
	Rate           *rate.Tracker // optional
	Done           <-chan error  // receives once when acquisition stops; optional
	Modes          []visualizer.Visualizer
}

// Monitor is the Bubbletea model that redraws channel windows on every
// render tick.
type Monitor struct {
	set   *channels.ChannelSet
	opts  Options
	modes []visualizer.Visualizer
	mode  int

	windows [][]float64
	lens    []int
	sps     float64

	paused   bool
	waiting  bool // nothing acquired since start or the last clear
	ended    bool
	endErr   error
	quitting bool

	width  int
	height int

	spinner  spinner.Model
	progress progress.Model
}

// NewMonitor creates a Monitor reading from set.
func NewMonitor(set *channels.ChannelSet, opts Options) Monitor {
	if opts.RenderInterval <= 0 {
		opts.RenderInterval = defaultRenderInterval
	}
	modes := opts.Modes
	if len(modes) == 0 {
		modes = visualizer.Modes(1)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	p := progress.New(
		progress.WithScaledGradient("#3CE074", "#F26056"),
		progress.WithoutPercentage(),
	)
	p.Width = 40

	return Monitor{
		set:      set,
		opts:     opts,
		modes:    modes,
		lens:     make([]int, set.Channels()),
		waiting:  true,
		spinner:  s,
		progress: p,
	}
}

func (m Monitor) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.opts.RenderInterval),
		m.spinner.Tick,
		tea.SetWindowTitle(windowTitle(m.opts.Title, false)),
	}
	if m.opts.Done != nil {
		cmds = append(cmds, waitDone(m.opts.Done))
	}
	return tea.Batch(cmds...)
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Monitor) handleMsg(msg tea.Msg) (Monitor, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.quitting = true
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		switch msg.String() {
		case " ":
			m.paused = !m.paused
			if !m.paused {
				m.refresh()
			}
			return m, tea.SetWindowTitle(windowTitle(m.opts.Title, m.paused))
		case "v":
			m.mode = (m.mode + 1) % len(m.modes)
			m.render()
		case "c":
			m.set.Reset()
			for _, v := range m.modes {
				v.Reset()
			}
			m.windows = nil
			m.lens = make([]int, m.set.Channels())
			m.waiting = true
			return m, m.spinner.Tick
		}
		return m, nil

	case tickMsg:
		if !m.paused {
			m.refresh()
		}
		return m, tickCmd(m.opts.RenderInterval)

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case acquisitionEndedMsg:
		m.ended = true
		m.endErr = msg.err
		if !m.paused {
			m.refresh()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-30, 20), 60)
		m.render()
		return m, nil
	}

	return m, nil
}

// refresh takes a new snapshot of every channel and redraws.
func (m *Monitor) refresh() {
	m.windows = m.set.Snapshot()
	m.lens = m.set.Lens()
	if m.opts.Rate != nil {
		m.sps = m.opts.Rate.SamplesPerSecond()
	}
	m.waiting = true
	for _, n := range m.lens {
		if n > 0 {
			m.waiting = false
			break
		}
	}
	m.render()
}

func (m *Monitor) render() {
	if m.windows == nil {
		return
	}
	w, h := m.visSize()
	m.modes[m.mode].Update(m.windows, w, h)
}

func (m Monitor) visSize() (width, height int) {
	width = m.width - 4
	if width < 30 {
		width = 60
	}
	height = m.height - chromeHeight
	if m.height == 0 {
		height = 12
	}
	if height < 4 {
		height = 4
	}
	return width, height
}

// AcquisitionErr returns the error the acquisition ended with, if any.
func (m Monitor) AcquisitionErr() error { return m.endErr }

func (m Monitor) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + headerStyle.Render("micscope") + helpStyle.Render("  "+m.modes[m.mode].Name()) + "\n")
	if m.opts.Title != "" {
		b.WriteString("  " + titleStyle.Render(m.opts.Title) + "\n")
	}
	b.WriteString("  " + renderLegend(m.set.Channels()) + "\n")
	b.WriteString("\n")

	if m.waiting {
		b.WriteString("  " + m.spinner.View() + " " + statusStyle.Render("Waiting for samples...") + "\n")
	} else {
		b.WriteString(indent(m.modes[m.mode].View()) + "\n")
	}
	b.WriteString("\n")

	ratio := fillRatio(m.lens, m.set.Capacity())
	fill := fmt.Sprintf("%3.0f%% of %s", ratio*100, util.FormatDuration(m.opts.Window))
	b.WriteString("  " + m.progress.ViewAs(ratio) + " " + timeStyle.Render(fill) + "\n")
	b.WriteString("\n")
	b.WriteString("  " + m.statusLine() + "\n")
	b.WriteString("\n")
	b.WriteString("  " + helpStyle.Render(helpText(len(m.modes))) + "\n")

	view := b.String()
	if pad := m.height - lipgloss.Height(view); pad > 0 {
		view += strings.Repeat("\n", pad)
	}
	return view
}

func (m Monitor) statusLine() string {
	icon, text := "▶", "live"
	switch {
	case m.ended && m.endErr != nil:
		return errorStyle.Render(fmt.Sprintf("■  source failed: %v", m.endErr))
	case m.ended:
		icon, text = "■", "source ended"
	case m.paused:
		icon, text = "❚❚", "paused"
	}
	left := fmt.Sprintf("%s  %s", icon, text)
	right := fmt.Sprintf("%s  %d ch", util.FormatRate(m.sps), m.set.Channels())
	if m.ended {
		right = fmt.Sprintf("%d ch", m.set.Channels())
	}

	w := m.width
	if w < 30 {
		w = 50
	}
	gap := max(w-lipgloss.Width(left)-lipgloss.Width(right)-4, 2)
	return statusStyle.Render(left) + spaces(gap) + statusStyle.Render(right)
}

func windowTitle(title string, paused bool) string {
	if title == "" {
		title = "micscope"
	} else {
		title += " · micscope"
	}
	if paused {
		return "⏸ " + title
	}
	return "▶ " + title
}
