package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#4F46E5", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Status renders a status line in the style matching its level.
func (p *Palette) Status(s status) string {
	switch s.level {
	case statusOK:
		return p.ok.Render(s.text)
	case statusError:
		return p.err.Render(s.text)
	case statusWarn:
		return p.warn.Render(s.text)
	default:
		return p.help.Render(s.text)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
