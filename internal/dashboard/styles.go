package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("205")
	subtleColor  = lipgloss.Color("240")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("220")
	errorColor   = lipgloss.Color("196")
	infoColor    = lipgloss.Color("39")
)

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	muted   lipgloss.Style
	bar     lipgloss.Style
	rising  lipgloss.Style
	falling lipgloss.Style
	warn    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(primaryColor),
		label:   r.NewStyle().Foreground(subtleColor),
		value:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(subtleColor),
		bar:     r.NewStyle().Foreground(infoColor),
		rising:  r.NewStyle().Foreground(errorColor),
		falling: r.NewStyle().Foreground(successColor),
		warn:    r.NewStyle().Foreground(warningColor),
	}
}
