package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/grr-tools/grrctl/internal/loading"
)

const defaultRefresh = 100 * time.Millisecond

// Options configure the loading indicator.
type Options struct {
	Registry *loading.Registry
	Theme    string
	Label    string
	Output   io.Writer // stderr when nil
	Input    io.Reader // terminal input when nil
	Refresh  time.Duration
}

// Run executes work while a spinner shows how many requests are in flight.
// Pressing ctrl+c cancels the context handed to work; Run still waits for
// work to return and returns its error.
func Run(ctx context.Context, opts Options, work func(ctx context.Context) error) error {
	if opts.Registry == nil {
		return fmt.Errorf("ui requires a loading registry")
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(opts, cancel)
	progOpts := []tea.ProgramOption{tea.WithOutput(out)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	p := tea.NewProgram(m, progOpts...)

	result := make(chan error, 1)
	go func() {
		err := work(ctx)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("run loading indicator: %w", err)
	}
	return <-result
}

type model struct {
	spinner  spinner.Model
	styles   Styles
	keys     keyMap
	label    string
	registry *loading.Registry
	refresh  time.Duration
	cancel   context.CancelFunc

	snapshot loading.Snapshot
	aborting bool
	done     bool
	err      error
}

func newModel(opts Options, cancel context.CancelFunc) model {
	styles := GetTheme(opts.Theme).Styles()
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	label := opts.Label
	if label == "" {
		label = "Working"
	}
	return model{
		spinner:  s,
		styles:   styles,
		keys:     DefaultKeyMap(),
		label:    label,
		registry: opts.Registry,
		refresh:  refresh,
		cancel:   cancel,
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg loading.Snapshot

type doneMsg struct {
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(registry *loading.Registry) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(registry.Snapshot())
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchSnapshotCmd(m.registry), tickCmd(m.refresh))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && !m.aborting {
			m.aborting = true
			m.cancel()
		}
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tea.Batch(fetchSnapshotCmd(m.registry), tickCmd(m.refresh))
	case snapshotMsg:
		m.snapshot = loading.Snapshot(msg)
		return m, nil
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		if m.err != nil {
			return m.styles.DangerText.Render("✗ "+m.label+" failed") + "\n"
		}
		return m.styles.SuccessText.Render("✓ "+m.label) + "\n"
	}
	label := m.styles.Label.Render(m.label)
	if m.aborting {
		label = m.styles.WarningText.Render(m.label + " (aborting)")
	}
	return fmt.Sprintf("%s %s %s\n", m.spinner.View(), label, m.styles.MutedText.Render(m.status()))
}

func (m model) status() string {
	snap := m.snapshot
	if !snap.Busy() {
		return "idle"
	}
	noun := "requests"
	if snap.Active == 1 {
		noun = "request"
	}
	return fmt.Sprintf("%d %s in flight, %s", snap.Active, noun, time.Since(snap.BusySince).Truncate(100*time.Millisecond))
}
