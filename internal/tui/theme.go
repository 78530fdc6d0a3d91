package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the color scheme of the interface.
type Theme struct {
	Accent    lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
	Border    lipgloss.Color
}

var defaultTheme = Theme{
	Accent:    lipgloss.Color("#5FAFD7"), // light blue
	User:      lipgloss.Color("#AF87FF"), // violet
	Assistant: lipgloss.Color("#5FD7AF"), // teal
	Success:   lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
	Border:    lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) badgeStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
}

func (t Theme) selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant).Bold(true)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) dimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint)
}

func (t Theme) paneStyle() lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Border).PaddingLeft(1)
}
