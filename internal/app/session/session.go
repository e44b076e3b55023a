// Package session owns the process-wide state behind the shell and the CLI:
// one HTTP client, the document store, the log book and the payload
// catalog. Every user-facing action runs through a Session.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MOYARU/hprobe/internal/app/ui"
	"github.com/MOYARU/hprobe/internal/config"
	"github.com/MOYARU/hprobe/internal/engine"
	"github.com/MOYARU/hprobe/internal/logbook"
	msges "github.com/MOYARU/hprobe/internal/messages"
	"github.com/MOYARU/hprobe/internal/probe"
	"github.com/MOYARU/hprobe/internal/store"
)

var (
	ErrAborted    = errors.New("aborted by user")
	ErrNoPayloads = errors.New("no payloads selected")
	ErrNoTarget   = errors.New("no target yet; pass a URL or run get first")
)

type Options struct {
	Out    io.Writer
	Logger *zerolog.Logger
	// Confirm asks before attack runs. Nil skips the prompt.
	Confirm func(prompt string) (bool, error)
	// AskReport offers a JSON report after attack runs that did not
	// request one. Needs Confirm.
	AskReport bool
}

type Session struct {
	cfg     config.Config
	client  *engine.Client
	store   *store.Store
	book    *logbook.Book
	catalog *probe.Catalog
	out     io.Writer
	confirm func(string) (bool, error)
	askRep  bool

	mu     sync.Mutex
	target string
}

func New(cfg config.Config, opts Options) (*Session, error) {
	client, err := engine.NewClient(engine.Options{
		Timeout:       cfg.Timeout(),
		UserAgent:     cfg.UserAgent,
		Delay:         cfg.Delay(),
		RateLimit:     cfg.RateLimit,
		RequestBudget: cfg.RequestBudget,
		ScopeDomain:   cfg.ScopeDomain,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	catalog := probe.NewCatalog()
	book := logbook.Open(cfg.LogDir)
	for _, name := range cfg.PayloadCategories {
		if err := catalog.Register(name); err != nil {
			book.AppendError("register payload category", err)
		}
	}

	return &Session{
		cfg:     cfg,
		client:  client,
		store:   store.New(cfg.DataDir),
		book:    book,
		catalog: catalog,
		out:     out,
		confirm: opts.Confirm,
		askRep:  opts.AskReport,
	}, nil
}

func (s *Session) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Session) Client() *engine.Client {
	return s.client
}

// Target is the last URL an action was pointed at.
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *Session) remember(target string) {
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
}

func (s *Session) targetOr(raw string) (string, error) {
	if raw == "" {
		raw = s.Target()
	}
	if raw == "" {
		return "", ErrNoTarget
	}
	u, err := engine.NormalizeTarget(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *Session) Close() error {
	return s.book.Close()
}

// confirmActive shows the authorisation warning and asks before an attack
// run against target.
func (s *Session) confirmActive(target string) error {
	if s.confirm == nil {
		return nil
	}
	fmt.Fprintf(s.out, "\n%s%s%s\n", ui.ColorRed, msges.GetUIMessage("ActiveWarning", target), ui.ColorReset)
	fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorYellow, msges.GetUIMessage("ActivePermission"), ui.ColorReset)

	ok, err := s.confirm(ui.ColorYellow + msges.GetUIMessage("ActivePrompt") + ui.ColorReset)
	if err != nil || !ok {
		fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorYellow, msges.GetUIMessage("ActiveAborted"), ui.ColorReset)
		return ErrAborted
	}
	return nil
}

func (s *Session) wantReport(requested bool) bool {
	if requested {
		return true
	}
	if !s.askRep || s.confirm == nil {
		return false
	}
	ok, err := s.confirm(msges.GetUIMessage("AskSaveJSON"))
	return err == nil && ok
}

func (s *Session) printf(color, format string, args ...any) {
	fmt.Fprintf(s.out, "%s%s%s\n", color, fmt.Sprintf(format, args...), ui.ColorReset)
}
