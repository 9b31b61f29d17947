// Package ui renders pipeline progress in the terminal.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/storyreel/internal/pipeline"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAE54D"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"})
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8D8D8D", Dark: "#626262"})
	urlStyle     = lipgloss.NewStyle().Underline(true)
)

var stageLabels = map[string]string{
	pipeline.StageNarrate:   "Narrating",
	pipeline.StageTitleCard: "Rendering title card",
	pipeline.StageCompose:   "Composing video",
	pipeline.StagePublish:   "Publishing",
}

var stageOrder = []string{
	pipeline.StageNarrate,
	pipeline.StageTitleCard,
	pipeline.StageCompose,
	pipeline.StagePublish,
}

type eventMsg pipeline.Event

type finishedMsg struct {
	result *pipeline.Result
	err    error
}

type progressModel struct {
	title   string
	spinner spinner.Model
	status  map[string]string
	detail  map[string]string
	started time.Time

	result   *pipeline.Result
	err      error
	finished bool
	quit     bool
}

func newProgressModel(title string) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle
	return progressModel{
		title:   title,
		spinner: sp,
		status:  make(map[string]string),
		detail:  make(map[string]string),
		started: time.Now(),
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quit = true
			return m, tea.Quit
		}

	case eventMsg:
		if _, ok := stageLabels[msg.Stage]; !ok {
			return m, nil
		}
		switch msg.Status {
		case pipeline.StatusProgress:
			m.detail[msg.Stage] = msg.Message
		case pipeline.StatusFailed:
			m.status[msg.Stage] = msg.Status
			m.detail[msg.Stage] = msg.Message
		default:
			m.status[msg.Stage] = msg.Status
			if msg.Status == pipeline.StatusCompleted {
				m.detail[msg.Stage] = msg.Message
			}
		}
		return m, nil

	case finishedMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder

	title := m.title
	if title == "" {
		title = "Untitled story"
	}
	fmt.Fprintf(&b, "\n  %s\n\n", titleStyle.Render(title))

	for _, stage := range stageOrder {
		label := stageLabels[stage]
		var icon string
		switch m.status[stage] {
		case pipeline.StatusCompleted:
			icon = doneStyle.Render("✓")
		case pipeline.StatusFailed:
			icon = failStyle.Render("✗")
		case pipeline.StatusStarted:
			icon = m.spinner.View()
		default:
			icon = pendingStyle.Render("·")
			label = pendingStyle.Render(label)
		}
		fmt.Fprintf(&b, "  %s %s", icon, label)
		if d := m.detail[stage]; d != "" {
			fmt.Fprintf(&b, " %s", detailStyle.Render(d))
		}
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		fmt.Fprintf(&b, "\n  %s %v\n", failStyle.Render("Failed:"), m.err)
	case m.result != nil && m.result.Object != nil:
		fmt.Fprintf(&b, "\n  %s %s\n", doneStyle.Render("Published"), urlStyle.Render(m.result.Object.URL))
	case !m.finished:
		fmt.Fprintf(&b, "\n  %s\n", detailStyle.Render(fmt.Sprintf("%s elapsed · q to cancel", time.Since(m.started).Round(time.Second))))
	}
	return b.String()
}

// RunFunc runs a pipeline, reporting to the given observer.
type RunFunc func(ctx context.Context, obs pipeline.Observer) (*pipeline.Result, error)

// RunProgress shows a progress view while run executes. Quitting the view
// cancels the run; RunProgress returns once the run has cleaned up.
func RunProgress(ctx context.Context, title string, run RunFunc) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(title), tea.WithContext(ctx))

	finished := make(chan finishedMsg, 1)
	go func() {
		res, err := run(ctx, pipeline.ObserverFunc(func(e pipeline.Event) {
			p.Send(eventMsg(e))
		}))
		msg := finishedMsg{result: res, err: err}
		finished <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-finished
		return nil, fmt.Errorf("unable to run progress view: %w", err)
	}

	cancel()
	msg := <-finished
	return msg.result, msg.err
}
