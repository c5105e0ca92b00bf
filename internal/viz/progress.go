package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/jjsim/internal/sim"
)

const barWidth = 40

type TickMsg time.Time

type progressMsg sim.Progress

type doneMsg struct {
	result *sim.Result
	err    error
}

// ProgressModel shows a running transient. It reads reports from a
// progress sink channel and quits once the run delivers its result.
type ProgressModel struct {
	title    string
	reports  <-chan sim.Progress
	done     <-chan doneMsg
	cancel   context.CancelFunc
	last     sim.Progress
	frame    int
	finished bool
	canceled bool
	result   *sim.Result
	err      error
}

func newProgressModel(title string, reports <-chan sim.Progress, done <-chan doneMsg, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{title: title, reports: reports, done: done, cancel: cancel}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/15, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func waitReport(ch <-chan sim.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(p)
	}
}

func waitDone(ch <-chan doneMsg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(waitReport(m.reports), waitDone(m.done), tick())
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.last = sim.Progress(msg)
		return m, waitReport(m.reports)
	case doneMsg:
		m.finished = true
		m.result, m.err = msg.result, msg.err
		return m, tea.Quit
	case TickMsg:
		if m.finished {
			return m, nil
		}
		m.frame++
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.canceled && m.cancel != nil {
				m.canceled = true
				m.cancel()
			}
		}
	}
	return m, nil
}

func (m ProgressModel) fraction() float64 {
	if m.last.Total == 0 {
		return 0
	}
	return float64(m.last.Step) / float64(m.last.Total)
}

func (m ProgressModel) View() string {
	var b strings.Builder
	frac := m.fraction()
	if m.finished && m.err == nil {
		frac = 1
	}

	status := StatusRunning.Render(Spinner(m.frame) + " running")
	switch {
	case m.finished && m.err != nil:
		status = StatusFailed.Render("✗ " + m.err.Error())
	case m.finished:
		status = StatusRunning.Render("✓ done")
	case m.canceled:
		status = StatusWarn.Render("canceling")
	}

	fmt.Fprintf(&b, "%s  %s\n", Title.Render(m.title), status)
	fmt.Fprintf(&b, "%s %5.1f%%\n", ProgressBar(frac, barWidth), 100*frac)
	fmt.Fprintf(&b, "%s\n", Subtle.Render(fmt.Sprintf("step %d/%d  t=%.4g s", m.last.Step, m.last.Total, m.last.Time)))
	if !m.finished {
		b.WriteString(KeyHint.Render("q to cancel"))
		b.WriteByte('\n')
	}
	return b.String()
}

// Result returns what the run delivered once the model has finished.
func (m ProgressModel) Result() (*sim.Result, error) { return m.result, m.err }

// RunFunc performs a simulation reporting to obs.
type RunFunc func(ctx context.Context, obs sim.Observer) (*sim.Result, error)

// RunWithProgress executes run in the background and displays its
// progress until it completes.
func RunWithProgress(ctx context.Context, title string, run RunFunc, opts ...tea.ProgramOption) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := sim.NewProgressSink(64)
	done := make(chan doneMsg, 1)
	go func() {
		res, err := run(ctx, sink)
		sink.Close()
		done <- doneMsg{result: res, err: err}
	}()

	final, err := tea.NewProgram(newProgressModel(title, sink.C(), done, cancel), opts...).Run()
	if err != nil {
		cancel()
		d := <-done
		return d.result, err
	}
	pm, ok := final.(ProgressModel)
	if !ok || !pm.finished {
		cancel()
		d := <-done
		return d.result, d.err
	}
	return pm.Result()
}
