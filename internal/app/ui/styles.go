package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Primary = lipgloss.Color("#7D56F4")
	Muted   = lipgloss.Color("#6B7280")

	Status2xx = lipgloss.Color("#00D26A")
	Status3xx = lipgloss.Color("#4D96FF")
	Status4xx = lipgloss.Color("#FFD93D")
	Status5xx = lipgloss.Color("#FF3838")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(14)

	URLStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D4AA")).
			Underline(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Status2xx).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Status5xx).
			Bold(true)
)

// StatusCodeStyle colours an HTTP status by class.
func StatusCodeStyle(code int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case code >= 200 && code < 300:
		return base.Foreground(Status2xx)
	case code >= 300 && code < 400:
		return base.Foreground(Status3xx)
	case code >= 400 && code < 500:
		return base.Foreground(Status4xx)
	case code >= 500:
		return base.Foreground(Status5xx)
	default:
		return base.Foreground(Muted)
	}
}

// Status renders code, or ERR for a transport failure.
func Status(code int) string {
	if code == 0 {
		return FailStyle.Render("ERR")
	}
	return StatusCodeStyle(code).Render(strconv.Itoa(code))
}

func SeverityStyle(sev string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch sev {
	case "HIGH":
		return base.Foreground(lipgloss.Color("#FF6B6B"))
	case "MEDIUM":
		return base.Foreground(lipgloss.Color("#FFD93D"))
	case "LOW":
		return base.Foreground(lipgloss.Color("#6BCB77"))
	case "INFO":
		return base.Foreground(lipgloss.Color("#4D96FF"))
	default:
		return base.Foreground(Muted)
	}
}

// PadRight pads s to width visible cells, ignoring ANSI sequences.
func PadRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// Truncate shortens s to max bytes with a trailing ellipsis.
func Truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
