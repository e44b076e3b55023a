package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MOYARU/hprobe/internal/app/ui"
	"github.com/MOYARU/hprobe/internal/brute"
	"github.com/MOYARU/hprobe/internal/classify"
	"github.com/MOYARU/hprobe/internal/inject"
	msges "github.com/MOYARU/hprobe/internal/messages"
	"github.com/MOYARU/hprobe/internal/probe"
	"github.com/MOYARU/hprobe/internal/report"
)

const bodyPreviewBytes = 2048

var progressMu sync.Mutex

// PrintProgress redraws a progress bar on the current line.
func PrintProgress(w io.Writer, current, total int, label, target string) {
	progressMu.Lock()
	defer progressMu.Unlock()

	if total <= 0 {
		fmt.Fprintf(w, "\r [------------------------------] 0%% | %s [0/0]: %s\033[K", label, target)
		return
	}

	percentage := float64(current) / float64(total) * 100
	target = ui.Truncate(target, 50)
	width := 30
	filled := min(int(float64(width)*(float64(current)/float64(total))), width)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	fmt.Fprintf(w, "\r [%s] %.0f%% | %s [%d/%d]: %s\033[K", bar, percentage, label, current, total, target)
}

// PrintResponse shows one exchange: status line, headers, body preview and
// classifier findings.
func PrintResponse(w io.Writer, res probe.ProbeResult, showBody bool) {
	fmt.Fprintf(w, "%s %s\n", res.Request.Method, ui.URLStyle.Render(res.Request.URL))
	if res.Failed() {
		fmt.Fprintf(w, "%s%s%s\n", ui.ColorRed, msges.GetUIMessage("ConsoleRequestFailed", res.Error), ui.ColorReset)
		return
	}
	fmt.Fprintf(w, "%s %s  %s %.1fms  %s %d\n",
		ui.LabelStyle.Render("Status"), ui.Status(res.StatusCode),
		ui.MutedStyle.Render("time"), res.ElapsedMS(),
		ui.MutedStyle.Render("bytes"), res.BodyLength)

	fmt.Fprintf(w, "\n%s\n", msges.GetUIMessage("ConsoleHeadersTitle"))
	names := make([]string, 0, len(res.Header))
	for k := range res.Header {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		for _, v := range res.Header[k] {
			fmt.Fprintf(w, "%s%s:%s %s\n", ui.ColorGray, k, ui.ColorReset, v)
		}
	}

	if showBody && res.BodyLength > 0 {
		fmt.Fprintf(w, "\n%s\n%s\n", msges.GetUIMessage("ConsoleBodyTitle", res.BodyLength), res.Excerpt(bodyPreviewBytes))
	}

	PrintFindings(w, classify.Classify(res))
}

// PrintFindings lists findings, highest severity first, keeping the
// classifier order within a severity.
func PrintFindings(w io.Writer, findings []probe.Finding) {
	if len(findings) == 0 {
		fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("ConsoleNoIssues"), ui.ColorReset)
		return
	}

	sorted := slices.Clone(findings)
	slices.SortStableFunc(sorted, func(a, b probe.Finding) int {
		return report.Weight(report.FindingSeverity(b.ID)) - report.Weight(report.FindingSeverity(a.ID))
	})

	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("ConsoleFindingsTitle"), ui.ColorReset)
	for _, f := range sorted {
		sev := report.FindingSeverity(f.ID)
		msg := msges.GetMessage(string(f.ID))
		text := msg.Message
		if strings.Contains(text, "%s") {
			text = fmt.Sprintf(text, f.Value)
		}
		fmt.Fprintf(w, "%s[%s] %s%s\n", ui.SeverityColor(string(sev)), sev, msg.Title, ui.ColorReset)
		fmt.Fprintf(w, "%s - %s%s\n", ui.ColorGray, text, ui.ColorReset)
		if msg.Fix != "" {
			fmt.Fprintf(w, "%s - %s: %s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleFixLabel"), msg.Fix, ui.ColorReset)
		}
	}
}

// PrintInjection renders one row per outcome in submission order followed
// by the run summary.
func PrintInjection(w io.Writer, outcomes []inject.Outcome) {
	cols := []struct {
		title string
		width int
	}{{"#", 5}, {"CATEGORY", 18}, {"STATUS", 7}, {"TIME", 10}, {"LEN", 8}, {"NOTE", 28}, {"PAYLOAD", 0}}

	var head strings.Builder
	for _, c := range cols {
		head.WriteString(ui.PadRight(c.title, c.width))
	}
	fmt.Fprintln(w, ui.HeaderStyle.Render(strings.TrimRight(head.String(), " ")))

	for _, o := range outcomes {
		note := o.Note
		if o.Result.Failed() {
			note = ui.Truncate(o.Result.Error, 26)
		}
		noteCell := note
		if sev := report.NoteSeverity(o.Note); sev != "" {
			noteCell = ui.SeverityStyle(string(sev)).Render(note)
		}
		row := []string{
			fmt.Sprintf("%d", o.Index+1),
			string(o.Payload.Category),
			ui.Status(o.Result.StatusCode),
			fmt.Sprintf("%.0fms", o.Result.ElapsedMS()),
			fmt.Sprintf("%d", o.Result.BodyLength),
			noteCell,
			ui.Truncate(strings.ReplaceAll(o.Payload.Value, "\n", `\n`), 60),
		}
		var line strings.Builder
		for i, cell := range row {
			line.WriteString(ui.PadRight(cell, cols[i].width))
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}

	s := inject.Summarize(outcomes)
	fmt.Fprintf(w, "\n%s\n", ui.MutedStyle.Render(msges.GetUIMessage("InjectionSummary",
		s.Total, s.Completed, s.Failed, s.Noted,
		s.AverageElapsed.Round(time.Millisecond), s.MaxElapsed.Round(time.Millisecond))))
}

func PrintBrute(w io.Writer, rep brute.Report) {
	if rep.Found() {
		fmt.Fprintln(w, ui.SuccessStyle.Render(msges.GetUIMessage("BruteFound", rep.Username, rep.Password, rep.Attempts)))
		if rep.Final != nil {
			fmt.Fprintf(w, "%s %s  %s %d bytes\n",
				ui.LabelStyle.Render("Final"), ui.Status(rep.Final.StatusCode),
				ui.MutedStyle.Render("body"), rep.Final.BodyLength)
		}
	} else {
		fmt.Fprintln(w, ui.FailStyle.Render(msges.GetUIMessage("BruteNotFound", rep.Attempts, rep.State)))
	}
	if rep.Err != nil {
		fmt.Fprintf(w, "%s%v%s\n", ui.ColorGray, rep.Err, ui.ColorReset)
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(w, "%s - %s%s\n", ui.ColorGray, e.Error(), ui.ColorReset)
	}
	fmt.Fprintf(w, "%s\n", ui.MutedStyle.Render(fmt.Sprintf("elapsed %s", rep.Elapsed.Round(time.Millisecond))))
}

// SaveJSONReport writes run into dir and returns the file path.
func SaveJSONReport(dir string, run report.Run) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	sanitizedTarget := strings.NewReplacer("://", "_", "/", "_", ":", "_", "?", "_", "&", "_", "=", "_").Replace(run.Target)
	sanitizedTarget = ui.Truncate(sanitizedTarget, 60)
	timestamp := run.StartTime.Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("hprobe_%s_%s_%s.json", run.Kind, sanitizedTarget, timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(run); err != nil {
		return "", err
	}
	return filename, nil
}
