package screen

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	banner    lipgloss.Style
	question  lipgloss.Style
	option    lipgloss.Style
	marker    lipgloss.Style
	confirmed lipgloss.Style
	warning   lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	sender    lipgloss.Style
	mine      lipgloss.Style
	text      lipgloss.Style
	timestamp lipgloss.Style
	hint      lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		question:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		option:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		marker:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		confirmed: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		sender:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		mine:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		text:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		hint:      lipgloss.NewStyle().Faint(true),
	}
}
