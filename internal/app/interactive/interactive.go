package interactive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MOYARU/hprobe/internal/app/session"
	"github.com/MOYARU/hprobe/internal/app/ui"
	msges "github.com/MOYARU/hprobe/internal/messages"
)

// Shell dispatches command lines to a session.
type Shell struct {
	sess *session.Session
	out  io.Writer
}

func NewShell(sess *session.Session, out io.Writer) *Shell {
	if out == nil {
		out = os.Stdout
	}
	return &Shell{sess: sess, out: out}
}

// RunInteractiveMode reads commands in raw mode until exit or Ctrl+C. The
// terminal is restored while a command runs so Ctrl+C cancels the command
// instead of the shell.
func RunInteractiveMode(cmdObj *cobra.Command, sess *session.Session) {
	ui.PrintGradientAsciiArt()

	helpText := strings.Replace(cmdObj.Long, ui.AsciiArt, "", 1)
	fmt.Println(helpText)
	fmt.Println()
	fmt.Printf("%s%s%s\n", ui.ColorGray, msges.GetUIMessage("InteractiveWelcome"), ui.ColorReset)

	sh := NewShell(sess, os.Stdout)
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Println("Failed to enter raw mode:", err)
		return
	}
	defer func() { term.Restore(fd, oldState) }()

	var cmdBuffer []rune
	var cursorPos int
	history := []string{}
	historyIndex := 0
	readBuf := make([]byte, 1024)

Loop:
	for {
		moveBack := runewidth.StringWidth(string(cmdBuffer[cursorPos:]))
		fmt.Print("\r\033[K" + prompt() + string(cmdBuffer))
		if moveBack > 0 {
			fmt.Printf("\033[%dD", moveBack)
		}

		n, err := os.Stdin.Read(readBuf)
		if err != nil {
			break
		}

		// ESC [ A..D
		if n >= 3 && readBuf[0] == 27 && readBuf[1] == 91 {
			switch readBuf[2] {
			case 65: // up
				if historyIndex > 0 {
					historyIndex--
					cmdBuffer = []rune(history[historyIndex])
					cursorPos = len(cmdBuffer)
				}
			case 66: // down
				if historyIndex < len(history)-1 {
					historyIndex++
					cmdBuffer = []rune(history[historyIndex])
					cursorPos = len(cmdBuffer)
				} else {
					historyIndex = len(history)
					cmdBuffer = []rune{}
					cursorPos = 0
				}
			case 68: // left
				if cursorPos > 0 {
					cursorPos--
				}
			case 67: // right
				if cursorPos < len(cmdBuffer) {
					cursorPos++
				}
			}
			continue
		}

		for _, char := range []rune(string(readBuf[:n])) {
			switch char {
			case 3: // Ctrl+C
				term.Restore(fd, oldState)
				fmt.Println()
				return
			case 13, 10:
				term.Restore(fd, oldState)
				fmt.Println()
				line := strings.TrimSpace(string(cmdBuffer))
				if line != "" {
					history = append(history, line)
					historyIndex = len(history)
				}
				cmdBuffer = []rune{}
				cursorPos = 0

				ctx, cancel := ui.WaitForCancel(context.Background())
				exit := sh.processCommand(ctx, line)
				cancel()
				if exit {
					return
				}
				oldState, _ = term.MakeRaw(fd)
				continue Loop
			case 127, 8: // backspace
				if cursorPos > 0 {
					cmdBuffer = append(cmdBuffer[:cursorPos-1], cmdBuffer[cursorPos:]...)
					cursorPos--
				}
			default:
				if char >= 32 {
					cmdBuffer = append(cmdBuffer, 0)
					copy(cmdBuffer[cursorPos+1:], cmdBuffer[cursorPos:])
					cmdBuffer[cursorPos] = char
					cursorPos++
				}
			}
		}
	}
}

func prompt() string {
	return fmt.Sprintf("%shprobe > %s", ui.ColorGray, ui.ColorReset)
}
