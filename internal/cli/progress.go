package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// uploadDoneMsg carries the outcome of one file.
type uploadDoneMsg struct {
	outcome uploadOutcome
}

// progressModel is the bubbletea model for a batch of uploads.
type progressModel struct {
	ctx      context.Context
	files    []string
	outcomes []uploadOutcome
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
}

// newProgressModel creates a new progress model.
func newProgressModel(ctx context.Context, files []string) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		ctx:      ctx,
		files:    files,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init starts the first upload.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.uploadNext(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case uploadDoneMsg:
		m.outcomes = append(m.outcomes, msg.outcome)
		if len(m.outcomes) == len(m.files) {
			m.done = true
			return m, tea.Quit
		}
		return m, m.uploadNext()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	pct := float64(len(m.outcomes)) / float64(len(m.files))
	current := filepath.Base(m.files[len(m.outcomes)])

	status := m.theme.statusStyle().Render(fmt.Sprintf("[uploading %s]", current))
	counts := fmt.Sprintf("%d/%d files", len(m.outcomes), len(m.files))
	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop after the current file")

	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
}

// finalView renders one line per finished file.
func (m progressModel) finalView() string {
	var b strings.Builder
	for _, o := range m.outcomes {
		if o.err != nil {
			b.WriteString(m.theme.errorStyle().Render("✗ "+filepath.Base(o.path)) + fmt.Sprintf(": %v\n", o.err))
			continue
		}
		var line strings.Builder
		printOutcome(&line, o)
		b.WriteString(m.theme.completedStyle().Render(strings.TrimSuffix(line.String(), "\n")) + "\n")
	}
	if m.quitting {
		skipped := len(m.files) - len(m.outcomes)
		b.WriteString(m.theme.hintStyle().Render(fmt.Sprintf("Stopped: %d file(s) not uploaded.", skipped)) + "\n")
	}
	return b.String()
}

// uploadNext uploads the next pending file.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) uploadNext() tea.Cmd {
	path := m.files[len(m.outcomes)]
	ctx := m.ctx
	return func() tea.Msg {
		return uploadDoneMsg{outcome: uploadOne(ctx, path)}
	}
}

// runUploadProgress uploads files one by one behind a progress bar.
// Returns the outcome of every file that was attempted.
func runUploadProgress(ctx context.Context, files []string) ([]uploadOutcome, error) {
	model := newProgressModel(ctx, files)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(progressModel)
	if !ok {
		return nil, nil
	}
	return m.outcomes, nil
}
