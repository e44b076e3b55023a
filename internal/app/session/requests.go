package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/MOYARU/hprobe/internal/app/input"
	"github.com/MOYARU/hprobe/internal/app/output"
	"github.com/MOYARU/hprobe/internal/app/ui"
	"github.com/MOYARU/hprobe/internal/engine"
	"github.com/MOYARU/hprobe/internal/forms"
	"github.com/MOYARU/hprobe/internal/logbook"
	msges "github.com/MOYARU/hprobe/internal/messages"
	"github.com/MOYARU/hprobe/internal/probe"
	"github.com/MOYARU/hprobe/internal/report"
	"github.com/MOYARU/hprobe/internal/store"
	appver "github.com/MOYARU/hprobe/internal/version"
)

// Intercept sends a GET with the session headers and cookies and shows the
// response with its classifier findings.
func (s *Session) Intercept(ctx context.Context, rawURL string, showBody bool) (probe.ProbeResult, error) {
	u, err := engine.NormalizeTarget(rawURL)
	if err != nil {
		return probe.ProbeResult{}, err
	}
	s.remember(u.String())

	res := s.client.Do(ctx, probe.NewRequest(http.MethodGet, u.String(), nil, nil))
	output.PrintResponse(s.out, res, showBody)
	s.logExchange(logbook.Intercept, res)
	return res, nil
}

// RequestSpec is a hand-built request. Headers use the "Name: value" form.
type RequestSpec struct {
	Method  string
	URL     string
	Headers []string
	Body    string
	JSON    bool
}

// Request validates spec and sends it. Validation errors are returned
// before anything goes on the wire.
func (s *Session) Request(ctx context.Context, spec RequestSpec, showBody bool) (probe.ProbeResult, error) {
	method, err := input.Method(spec.Method)
	if err != nil {
		return probe.ProbeResult{}, err
	}
	u, err := engine.NormalizeTarget(spec.URL)
	if err != nil {
		return probe.ProbeResult{}, err
	}
	headers := map[string]string{}
	for _, raw := range spec.Headers {
		name, value, err := input.Header(raw)
		if err != nil {
			return probe.ProbeResult{}, err
		}
		headers[name] = value
	}
	if _, ok := headers["User-Agent"]; !ok && s.Config().UserAgent == "" {
		headers["User-Agent"] = appver.RequestUserAgent()
	}

	body := []byte(spec.Body)
	contentType := ""
	switch {
	case spec.JSON:
		if body, err = input.JSONBody(spec.Body); err != nil {
			return probe.ProbeResult{}, err
		}
		contentType = probe.ContentTypeJSON
	case spec.Body != "":
		contentType = probe.ContentTypeForm
	}
	if _, ok := headers["Content-Type"]; ok {
		contentType = ""
	}

	req := probe.NewRequest(method, u.String(), headers, body)
	req.ContentType = contentType
	s.remember(u.String())

	res := s.client.Do(ctx, req)
	output.PrintResponse(s.out, res, showBody)
	s.logExchange(logbook.CustomRequest, res)
	return res, nil
}

// Login posts fields as a form and stores the resulting cookies in the
// session document.
func (s *Session) Login(ctx context.Context, rawURL string, fields map[string]string) (probe.ProbeResult, error) {
	u, err := engine.NormalizeTarget(rawURL)
	if err != nil {
		return probe.ProbeResult{}, err
	}
	if len(fields) == 0 {
		return probe.ProbeResult{}, errors.New("login needs at least one field=value")
	}
	target := u.String()
	s.remember(target)

	res := s.client.Do(ctx, probe.NewFormRequest(http.MethodPost, target, nil, fields))
	names := slices.Sorted(maps.Keys(fields))
	if res.Failed() {
		output.PrintResponse(s.out, res, false)
		s.book.Append(logbook.Login, "login failed",
			"url", report.SanitizeURL(target), "fields", strings.Join(names, ","), "error", report.SanitizeText(res.Error))
		s.book.AppendError("login "+report.SanitizeURL(target), probe.NewAttemptError(res, strings.Join(names, ",")))
		return res, nil
	}

	cookies, err := s.client.Cookies(target)
	if err != nil {
		return res, err
	}
	s.printf(ui.ColorWhite, "%s", msges.GetUIMessage("LoginResult", target, res.StatusCode, len(cookies), u.Host))
	s.book.Append(logbook.Login, "login",
		"url", report.SanitizeURL(target),
		"fields", strings.Join(names, ","),
		"status", res.StatusCode,
		"cookies", len(cookies),
		"elapsed_ms", res.ElapsedMS(),
		"response_headers", report.SanitizeHeaders(res.Header))

	if err := s.store.SaveSession(store.NewSession(target, s.client.Headers(), cookies)); err != nil {
		s.book.AppendError("save session after login", err)
		return res, err
	}
	return res, nil
}

// Forms lists the forms of a page and suggests the fields a brute-force
// run should use.
func (s *Session) Forms(ctx context.Context, rawURL string) ([]forms.Form, error) {
	u, err := engine.NormalizeTarget(rawURL)
	if err != nil {
		return nil, err
	}
	s.remember(u.String())

	found, res, err := forms.Discover(ctx, s.client, u.String(), nil)
	if err != nil {
		if res.Failed() {
			s.book.AppendError("forms "+report.SanitizeURL(u.String()), err)
		}
		return nil, err
	}
	if len(found) == 0 {
		s.printf(ui.ColorGray, "%s", msges.GetUIMessage("FormsNone", u.String()))
		return nil, nil
	}

	for i, f := range found {
		fmt.Fprintf(s.out, "%s %s %s\n", ui.HeaderStyle.Render(fmt.Sprintf("form %d", i+1)), f.Method, ui.URLStyle.Render(f.Action))
		for _, in := range f.Inputs {
			fmt.Fprintf(s.out, "  %s %s %s\n",
				ui.PadRight(in.Type, 10), ui.PadRight(in.Name, 24), ui.MutedStyle.Render(ui.Truncate(in.Value, 40)))
		}
	}
	if sug, ok := forms.LoginForm(found); ok {
		csrf := ""
		if sug.CSRFField != "" {
			csrf = " --csrf-field " + sug.CSRFField
		}
		fmt.Fprintln(s.out)
		s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("FormsSuggestion", sug.LoginURL, sug.UsernameField, sug.PasswordField, csrf))
	}
	return found, nil
}

func (s *Session) logExchange(ch logbook.Channel, res probe.ProbeResult) {
	target := report.SanitizeURL(res.Request.URL)
	if res.Failed() {
		s.book.Append(ch, res.Request.Method+" "+target+" failed",
			"error", report.SanitizeText(res.Error),
			"elapsed_ms", res.ElapsedMS())
		s.book.AppendError(res.Request.Method+" "+target, errors.New(res.Error))
		return
	}
	sent := s.client.Headers()
	maps.Copy(sent, res.Request.Headers)
	s.book.Append(ch, fmt.Sprintf("%s %s -> %d", res.Request.Method, target, res.StatusCode),
		"status", res.StatusCode,
		"length", res.BodyLength,
		"elapsed_ms", res.ElapsedMS(),
		"request_headers", report.SanitizeHeaderMap(sent),
		"response_headers", report.SanitizeHeaders(res.Header))
}
