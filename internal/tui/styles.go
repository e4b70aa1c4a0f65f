package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title    lipgloss.Style
	Cart     lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
	Price    lipgloss.Style
	Error    lipgloss.Style
	Status   lipgloss.Style
	Help     lipgloss.Style
	Spinner  lipgloss.Style
}

func DefaultStyles() Styles {
	accent := lipgloss.AdaptiveColor{Light: "#5A2CA0", Dark: "#B48EF7"}
	muted := lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"}

	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Cart:     lipgloss.NewStyle().Bold(true),
		Item:     lipgloss.NewStyle().PaddingLeft(2),
		Selected: lipgloss.NewStyle().PaddingLeft(0).Foreground(accent).Bold(true),
		Price:    lipgloss.NewStyle().Foreground(muted),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Status:   lipgloss.NewStyle().Foreground(muted).Italic(true),
		Help:     lipgloss.NewStyle().Foreground(muted),
		Spinner:  lipgloss.NewStyle().Foreground(accent),
	}
}
