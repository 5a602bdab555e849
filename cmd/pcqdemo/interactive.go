package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/pcq/queue"
	"github.com/wippyai/pcq/shm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const refreshInterval = 100 * time.Millisecond

type tickMsg time.Time

type doneMsg struct {
	err     error
	elapsed time.Duration
}

type interactiveModel struct {
	demo      *demo
	err       error
	occupancy progress.Model
	sent      progress.Model
	stats     queue.Stats
	segments  shm.Stats
	elapsed   time.Duration
	done      bool
}

func newInteractiveModel(d *demo) *interactiveModel {
	return &interactiveModel{
		demo:      d,
		occupancy: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		sent:      progress.New(progress.WithSolidFill("#7D56F4"), progress.WithWidth(40)),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *interactiveModel) Init() tea.Cmd {
	return tick()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "p":
			if !m.done {
				m.demo.paused.Store(!m.demo.paused.Load())
			}
		}

	case tickMsg:
		m.refresh()
		if m.done {
			return m, nil
		}
		return m, tick()

	case doneMsg:
		m.done = true
		m.err = msg.err
		m.elapsed = msg.elapsed
		m.refresh()
	}
	return m, nil
}

func (m *interactiveModel) refresh() {
	m.stats = m.demo.queue.Stats()
	if m.demo.manager != nil {
		m.segments = m.demo.manager.Stats()
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("pcq demo"))
	b.WriteString(" ")
	b.WriteString(string(m.demo.region.Kind()))
	if m.demo.paused.Load() {
		b.WriteString(" ")
		b.WriteString(pausedStyle.Render("paused"))
	}
	b.WriteString("\n\n")

	st := m.stats
	b.WriteString(labelStyle.Render("ring"))
	b.WriteString(m.occupancy.ViewAs(ratio(st.Used, st.Capacity)))
	fmt.Fprintf(&b, " %d/%d B\n", st.Used, st.Capacity)

	received := m.demo.received.Load()
	b.WriteString(labelStyle.Render("received"))
	b.WriteString(m.sent.ViewAs(ratio(int(received), m.demo.messages)))
	fmt.Fprintf(&b, " %d/%d\n\n", received, m.demo.messages)

	row(&b, "inserted", fmt.Sprint(st.Inserted))
	row(&b, "removed", fmt.Sprint(st.Removed))
	row(&b, "retries", fmt.Sprint(st.NotReady))
	row(&b, "failed", fmt.Sprint(st.Failed+st.TooSmall))
	row(&b, "latency", time.Duration(m.demo.latency.Load()).String())
	if m.demo.manager != nil {
		row(&b, "segments", fmt.Sprintf("%d live, %d allocated, %d destroyed",
			m.segments.Live, m.segments.Allocated, m.segments.Destroyed))
		row(&b, "events", fmt.Sprintf("%d transferred, %d borrowed, %d released",
			m.demo.segments.get(shm.EventTransferred),
			m.demo.segments.get(shm.EventBorrowed),
			m.demo.segments.get(shm.EventReleased)))
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
	case m.done:
		b.WriteString(resultStyle.Render(fmt.Sprintf("Done in %s", m.elapsed.Round(time.Millisecond))))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
	default:
		b.WriteString(helpStyle.Render("space pause • q quit"))
	}
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// runInteractive runs the demo under a live view. Quitting the view stops
// the demo and waits for both endpoints to return.
func runInteractive(ctx context.Context, d *demo) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newInteractiveModel(d), tea.WithAltScreen())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		start := time.Now()
		err := d.Run(ctx)
		p.Send(doneMsg{err: err, elapsed: time.Since(start)})
	}()

	_, err := p.Run()
	cancel()
	<-finished
	return err
}
