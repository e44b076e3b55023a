package ui

import (
	"fmt"
	"strings"
)

const AsciiArt = `
 _                     _
| |__  _ __  _ __ ___ | |__   ___
| '_ \| '_ \| '__/ _ \| '_ \ / _ \
| | | | |_) | | | (_) | |_) |  __/
|_| |_| .__/|_|  \___/|_.__/ \___|
      |_|
`

const (
	ColorReset  = "\033[0m"
	ColorGray   = "\033[90m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[91m"
	ColorGreen  = "\033[92m"
	ColorYellow = "\033[93m"

	ColorInfo   = "\033[37m"
	ColorLow    = "\033[34m"
	ColorMedium = "\033[33m"
	ColorHigh   = "\033[31m"
)

// PrintGradientAsciiArt prints the banner with a yellow to blue gradient.
func PrintGradientAsciiArt() {
	lines := strings.Split(strings.Trim(AsciiArt, "\n"), "\n")
	for i, line := range lines {
		ratio := float64(i) / float64(len(lines)-1)

		var r, g, b int
		if ratio < 0.5 {
			local := ratio * 2
			r = int(255 * (1 - local))
			g = 255
			b = int(255 * local)
		} else {
			local := (ratio - 0.5) * 2
			g = int(255 * (1 - local))
			b = 255
		}

		fmt.Printf("\033[38;2;%d;%d;%dm%s\033[0m\n", r, g, b, line)
	}
}

// SeverityColor maps a severity label to its ANSI colour.
func SeverityColor(sev string) string {
	switch sev {
	case "HIGH":
		return ColorHigh
	case "MEDIUM":
		return ColorMedium
	case "LOW":
		return ColorLow
	case "INFO":
		return ColorInfo
	default:
		return ColorWhite
	}
}
