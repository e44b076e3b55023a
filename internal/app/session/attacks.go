package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/MOYARU/hprobe/internal/app/output"
	"github.com/MOYARU/hprobe/internal/app/ui"
	"github.com/MOYARU/hprobe/internal/brute"
	"github.com/MOYARU/hprobe/internal/engine"
	"github.com/MOYARU/hprobe/internal/inject"
	"github.com/MOYARU/hprobe/internal/logbook"
	msges "github.com/MOYARU/hprobe/internal/messages"
	"github.com/MOYARU/hprobe/internal/probe"
	"github.com/MOYARU/hprobe/internal/report"
)

type InjectSpec struct {
	// Template ends at the injection point, e.g. "https://t/search?q=".
	Template    string
	Categories  []string
	Concurrency int
	SaveReport  bool
}

// Inject runs the stored payloads of the selected categories against the
// template and renders the ordered report.
func (s *Session) Inject(ctx context.Context, spec InjectSpec) ([]inject.Outcome, error) {
	u, err := engine.NormalizeTarget(spec.Template)
	if err != nil {
		return nil, err
	}
	template := u.String()
	cfg := s.Config()

	var only []probe.Category
	for _, name := range spec.Categories {
		c, err := s.catalog.Validate(name)
		if err != nil {
			return nil, err
		}
		only = append(only, c)
	}

	concurrency := spec.Concurrency
	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}
	if concurrency <= 0 {
		return nil, inject.ErrInvalidConcurrency
	}

	set, err := s.store.LoadPayloads(s.catalog)
	if err != nil {
		s.book.AppendError("load payloads", err)
		s.printf(ui.ColorYellow, "%v", err)
	}
	payloads := set.Flatten(s.catalog.Categories(), only...)
	if len(payloads) == 0 {
		s.printf(ui.ColorYellow, "%s", msges.GetUIMessage("InjectionNoPayloads"))
		return nil, ErrNoPayloads
	}

	if err := s.confirmActive(template); err != nil {
		return nil, err
	}
	s.remember(template)

	var doer probe.Doer = s.client
	if !cfg.InjectCookies {
		doer = s.client.WithoutCookies()
	}
	progressLabel := ui.Truncate(template, 50)
	eng := inject.New(doer, inject.WithProgress(func(done, total int, o inject.Outcome) {
		output.PrintProgress(s.out, done, total, string(o.Payload.Category), progressLabel)
	}))

	s.printf(ui.ColorWhite, "%s", msges.GetUIMessage("InjectionStart", len(payloads), template, concurrency))
	start := time.Now()
	outcomes, err := eng.Run(ctx, template, payloads, concurrency)
	end := time.Now()
	if err != nil {
		return nil, err
	}
	fmt.Fprint(s.out, "\n\n")
	output.PrintInjection(s.out, outcomes)
	if ctx.Err() != nil {
		s.printf(ui.ColorYellow, "%s", msges.GetUIMessage("InteractiveCancelled"))
	}

	for _, o := range outcomes {
		fields := []any{
			"index", o.Index,
			"category", string(o.Payload.Category),
			"payload", o.Payload.Value,
			"elapsed_ms", o.Result.ElapsedMS(),
		}
		if o.Result.Failed() {
			fields = append(fields, "error", report.SanitizeText(o.Result.Error))
		} else {
			fields = append(fields, "status", o.Result.StatusCode, "length", o.Result.BodyLength, "note", o.Note)
		}
		s.book.Append(logbook.InjectionTest, report.SanitizeURL(o.Result.Request.URL), fields...)
	}
	sum := inject.Summarize(outcomes)
	s.book.Append(logbook.InjectionTest, "run complete",
		"template", report.SanitizeURL(template),
		"total", sum.Total, "failed", sum.Failed, "noted", sum.Noted)

	if s.wantReport(spec.SaveReport) {
		s.saveReport(report.FromInjection(template, outcomes, start, end))
	}
	return outcomes, nil
}

type BruteSpec struct {
	LoginURL         string
	Username         string
	Wordlist         string
	UsernameField    string
	PasswordField    string
	CSRFField        string
	SuccessIndicator string
	FailureIndicator string
	SaveReport       bool
}

// Brute runs the credential loop. A missing or unreadable wordlist fails
// before any request is sent.
func (s *Session) Brute(ctx context.Context, spec BruteSpec) (brute.Report, error) {
	u, err := engine.NormalizeTarget(spec.LoginURL)
	if err != nil {
		return brute.Report{}, err
	}
	loginURL := u.String()

	wl, err := brute.OpenWordlist(spec.Wordlist)
	if err != nil {
		return brute.Report{}, err
	}
	defer wl.Close()

	if spec.UsernameField == "" {
		spec.UsernameField = "username"
	}
	if spec.PasswordField == "" {
		spec.PasswordField = "password"
	}
	cfg := brute.Config{
		LoginURL:         loginURL,
		UsernameField:    spec.UsernameField,
		PasswordField:    spec.PasswordField,
		CSRFField:        spec.CSRFField,
		Username:         spec.Username,
		SuccessIndicator: spec.SuccessIndicator,
		FailureIndicator: spec.FailureIndicator,
		Delay:            s.Config().BruteDelay(),
	}

	if err := s.confirmActive(loginURL); err != nil {
		return brute.Report{}, err
	}
	s.remember(loginURL)

	eng := brute.New(s.client,
		brute.WithAttemptHook(func(a brute.Attempt) {
			fields := []any{"attempt", a.Number, "success", a.Success, "elapsed_ms", a.Result.ElapsedMS()}
			if a.Result.Failed() {
				fields = append(fields, "error", report.SanitizeText(a.Result.Error))
			} else {
				fields = append(fields, "status", a.Result.StatusCode, "length", a.Result.BodyLength)
			}
			s.book.Append(logbook.BruteForce, report.SanitizeURL(loginURL), fields...)
			fmt.Fprintf(s.out, "\r %s #%d %s\033[K", ui.MutedStyle.Render("attempt"), a.Number, ui.Status(a.Result.StatusCode))
		}),
		brute.WithStateHook(func(st brute.State) {
			s.book.Append(logbook.BruteForce, "state "+st.String(), "url", report.SanitizeURL(loginURL))
		}),
	)

	s.printf(ui.ColorWhite, "%s", msges.GetUIMessage("BruteStart", loginURL, spec.Username))
	start := time.Now()
	rep, err := eng.RunWordlist(ctx, cfg, wl)
	end := time.Now()
	if err != nil {
		return rep, err
	}
	fmt.Fprint(s.out, "\r\033[K")

	if spec.CSRFField != "" {
		found := "not found"
		if rep.CSRFFound {
			found = "found"
		}
		s.printf(ui.ColorGray, "%s", msges.GetUIMessage("BruteCSRF", spec.CSRFField, found))
	}
	output.PrintBrute(s.out, rep)

	fields := []any{"url", report.SanitizeURL(loginURL), "username", spec.Username, "attempts", rep.Attempts, "errors", len(rep.Errors)}
	if rep.Found() {
		fields = append(fields, "password", rep.Password)
	}
	if rep.Err != nil {
		fields = append(fields, "error", rep.Err.Error())
	}
	s.book.Append(logbook.BruteForce, "run "+rep.State.String(), fields...)
	for _, e := range rep.Errors {
		s.book.AppendError("brute force attempt", e)
	}

	if s.wantReport(spec.SaveReport) {
		s.saveReport(report.FromBrute(loginURL, rep, start, end))
	}
	return rep, nil
}

func (s *Session) saveReport(run report.Run) {
	path, err := output.SaveJSONReport(filepath.Join(s.Config().DataDir, "reports"), run)
	if err != nil {
		s.book.AppendError("save report", err)
		s.printf(ui.ColorRed, "%s", msges.GetUIMessage("JSONReportFailed", err))
		return
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("JSONReportSaved", path))
}
