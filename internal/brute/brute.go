// Package brute runs a sequential credential guessing loop against a login
// form, optionally echoing a CSRF token scraped from the login page.
package brute

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/MOYARU/hprobe/internal/probe"
)

type State int

const (
	StateInit State = iota
	StateCSRFFetch
	StateIterating
	StateSuccess
	StateExhausted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCSRFFetch:
		return "CSRF_FETCH"
	case StateIterating:
		return "ITERATING"
	case StateSuccess:
		return "SUCCESS"
	case StateExhausted:
		return "EXHAUSTED"
	case StateAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Config struct {
	LoginURL         string
	UsernameField    string
	PasswordField    string
	CSRFField        string
	Username         string
	SuccessIndicator string
	FailureIndicator string
	Headers          map[string]string
	// Delay paces attempts; the first attempt is never delayed.
	Delay time.Duration
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.LoginURL) == "" {
		missing = append(missing, "login URL")
	}
	if strings.TrimSpace(c.UsernameField) == "" {
		missing = append(missing, "username field")
	}
	if strings.TrimSpace(c.PasswordField) == "" {
		missing = append(missing, "password field")
	}
	if len(missing) > 0 {
		return fmt.Errorf("brute force config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Attempt is one POST against the login form.
type Attempt struct {
	Number   int
	Password string
	Result   probe.ProbeResult
	Success  bool
}

type Report struct {
	State     State
	Username  string
	Password  string
	Final     *probe.ProbeResult
	Attempts  int
	CSRFToken string
	CSRFFound bool
	Errors    []probe.AttemptError
	Err       error
	Elapsed   time.Duration
}

// Found reports whether a credential pair was accepted.
func (r Report) Found() bool {
	return r.State == StateSuccess
}

type Engine struct {
	client    probe.Doer
	onAttempt func(Attempt)
	onState   func(State)
}

type Option func(*Engine)

func WithAttemptHook(fn func(Attempt)) Option {
	return func(e *Engine) { e.onAttempt = fn }
}

func WithStateHook(fn func(State)) Option {
	return func(e *Engine) { e.onState = fn }
}

func New(client probe.Doer, opts ...Option) *Engine {
	e := &Engine{client: client}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run walks passwords in order, one request at a time, and stops at the
// first attempt classified as a success. An invalid config is returned as
// an error before any request is sent.
func (e *Engine) Run(ctx context.Context, cfg Config, passwords iter.Seq[string]) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	rep := Report{State: StateInit, Username: cfg.Username}
	e.enter(&rep, StateInit)

	if cfg.CSRFField != "" {
		e.enter(&rep, StateCSRFFetch)
		rep.CSRFToken, rep.CSRFFound = e.fetchToken(ctx, cfg)
	}

	e.enter(&rep, StateIterating)
	for password := range passwords {
		if err := ctx.Err(); err != nil {
			rep.Err = err
			break
		}
		if rep.Attempts > 0 && cfg.Delay > 0 {
			if err := sleep(ctx, cfg.Delay); err != nil {
				rep.Err = err
				break
			}
		}

		rep.Attempts++
		res := e.client.Do(ctx, loginRequest(cfg, password, rep.CSRFToken, rep.CSRFFound))
		at := Attempt{Number: rep.Attempts, Password: password, Result: res}

		if res.Failed() {
			rep.Errors = append(rep.Errors, probe.NewAttemptError(res, cfg.Username+":"+password))
		} else {
			at.Success = IsSuccess(cfg, res)
		}
		if e.onAttempt != nil {
			e.onAttempt(at)
		}

		if at.Success {
			rep.Password = password
			rep.Final = &res
			e.enter(&rep, StateSuccess)
			rep.Elapsed = time.Since(start)
			return rep, nil
		}
	}

	if rep.Err != nil {
		e.enter(&rep, StateAborted)
	} else {
		e.enter(&rep, StateExhausted)
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// RunWordlist runs the engine over a file wordlist and turns a read error
// part way through into an aborted run.
func (e *Engine) RunWordlist(ctx context.Context, cfg Config, wl *Wordlist) (Report, error) {
	defer wl.Close()
	rep, err := e.Run(ctx, cfg, wl.All())
	if err != nil {
		return rep, err
	}
	if werr := wl.Err(); werr != nil && rep.State == StateExhausted {
		rep.Err = werr
		e.enter(&rep, StateAborted)
	}
	return rep, nil
}

func (e *Engine) enter(rep *Report, s State) {
	rep.State = s
	if e.onState != nil {
		e.onState(s)
	}
}

func (e *Engine) fetchToken(ctx context.Context, cfg Config) (string, bool) {
	res := e.client.Do(ctx, probe.NewRequest(http.MethodGet, cfg.LoginURL, cfg.Headers, nil))
	if res.Failed() {
		return "", false
	}
	return ExtractCSRFToken(string(res.Body), cfg.CSRFField)
}

func loginRequest(cfg Config, password, token string, haveToken bool) probe.ProbeRequest {
	form := map[string]string{
		cfg.UsernameField: cfg.Username,
		cfg.PasswordField: password,
	}
	if cfg.CSRFField != "" && haveToken {
		form[cfg.CSRFField] = token
	}
	return probe.NewFormRequest(http.MethodPost, cfg.LoginURL, cfg.Headers, form)
}

// IsSuccess applies the per-attempt rule. A configured success indicator
// found in the body wins even when the failure indicator is also present.
func IsSuccess(cfg Config, res probe.ProbeResult) bool {
	if res.Failed() {
		return false
	}
	body := strings.ToLower(string(res.Body))
	if cfg.SuccessIndicator != "" && strings.Contains(body, strings.ToLower(cfg.SuccessIndicator)) {
		return true
	}
	if cfg.FailureIndicator != "" && !strings.Contains(body, strings.ToLower(cfg.FailureIndicator)) {
		return true
	}
	return cfg.SuccessIndicator == "" && cfg.FailureIndicator == "" && res.StatusCode == http.StatusOK
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
