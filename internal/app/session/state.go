package session

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MOYARU/hprobe/internal/app/input"
	"github.com/MOYARU/hprobe/internal/app/ui"
	"github.com/MOYARU/hprobe/internal/config"
	"github.com/MOYARU/hprobe/internal/logbook"
	msges "github.com/MOYARU/hprobe/internal/messages"
	"github.com/MOYARU/hprobe/internal/store"
)

// SetHeader parses "Name: value" and adds it to the session headers.
func (s *Session) SetHeader(raw string) error {
	name, value, err := input.Header(raw)
	if err != nil {
		return err
	}
	s.client.SetHeader(name, value)
	return nil
}

func (s *Session) DeleteHeader(name string) error {
	if !s.client.DeleteHeader(name) {
		return fmt.Errorf("header %q is not set", name)
	}
	return nil
}

func (s *Session) PrintHeaders() {
	h := s.client.Headers()
	if len(h) == 0 {
		s.printf(ui.ColorGray, "no session headers")
		return
	}
	for _, k := range slices.Sorted(maps.Keys(h)) {
		fmt.Fprintf(s.out, "%s%s:%s %s\n", ui.ColorGray, k, ui.ColorReset, h[k])
	}
}

func (s *Session) SaveHeaders() error {
	h := s.client.Headers()
	if err := s.store.SaveHeaders(h); err != nil {
		return err
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("HeadersSaved", len(h)))
	return nil
}

// LoadHeaders replaces the session headers with the saved set.
func (s *Session) LoadHeaders() error {
	h, err := s.store.LoadHeaders()
	if err != nil {
		return err
	}
	s.client.ReplaceHeaders(h)
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("HeadersLoaded", len(h)))
	return nil
}

// PrintCookies lists the jar cookies that would be sent to rawURL, or to the
// last target when rawURL is empty.
func (s *Session) PrintCookies(rawURL string) error {
	target, err := s.targetOr(rawURL)
	if err != nil {
		return err
	}
	cookies, err := s.client.Cookies(target)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		s.printf(ui.ColorGray, "no cookies for %s", target)
		return nil
	}
	for _, c := range cookies {
		fmt.Fprintf(s.out, "%s%s%s=%s\n", ui.ColorGray, c.Name, ui.ColorReset, c.Value)
	}
	return nil
}

func (s *Session) ClearCookies() error {
	if err := s.client.ClearCookies(); err != nil {
		return err
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("CookiesCleared"))
	return nil
}

// SaveSession writes the session headers and the jar cookies for the
// target to the session document.
func (s *Session) SaveSession(rawURL string) error {
	target, err := s.targetOr(rawURL)
	if err != nil {
		return err
	}
	cookies, err := s.client.Cookies(target)
	if err != nil {
		return err
	}
	doc := store.NewSession(target, s.client.Headers(), cookies)
	if err := s.store.SaveSession(doc); err != nil {
		return err
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("SessionSaved", len(doc.Headers), len(doc.Cookies)))
	return nil
}

// LoadSession restores headers and cookies from the session document.
func (s *Session) LoadSession() error {
	doc, err := s.store.LoadSession()
	if err != nil {
		return err
	}
	s.client.ReplaceHeaders(doc.Headers)
	if doc.Target != "" {
		if err := s.client.SetCookies(doc.Target, doc.HTTPCookies()); err != nil {
			return err
		}
		s.remember(doc.Target)
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("SessionLoaded", len(doc.Headers), len(doc.Cookies)))
	return nil
}

// PrintPayloads lists the payload sets, optionally limited to categories.
func (s *Session) PrintPayloads(categories ...string) error {
	set, err := s.store.LoadPayloads(s.catalog)
	if err != nil {
		s.printf(ui.ColorYellow, "%v", err)
	}
	cats := s.catalog.Categories()
	if len(categories) > 0 {
		cats = cats[:0]
		for _, name := range categories {
			c, err := s.catalog.Validate(name)
			if err != nil {
				return err
			}
			cats = append(cats, c)
		}
	}
	for _, c := range cats {
		fmt.Fprintf(s.out, "%s (%d)\n", ui.HeaderStyle.Render(string(c)), len(set[c]))
		for i, v := range set[c] {
			fmt.Fprintf(s.out, "  %s%3d%s %s\n", ui.ColorGray, i+1, ui.ColorReset, v)
		}
	}
	return nil
}

func (s *Session) AddPayload(category, value string) error {
	c, err := s.catalog.Validate(category)
	if err != nil {
		return err
	}
	if value == "" {
		return errors.New("empty payload")
	}
	set, err := s.store.LoadPayloads(s.catalog)
	if err != nil {
		s.book.AppendError("load payloads", err)
	}
	set[c] = append(set[c], value)
	if err := s.store.SavePayloads(set); err != nil {
		return err
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("PayloadAdded", c, len(set[c])))
	return nil
}

func (s *Session) ResetPayloads() error {
	if err := s.store.ResetPayloads(); err != nil {
		return err
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("PayloadsReset"))
	return nil
}

// PrintLogs shows the last n entries of one channel, or of every channel
// when name is empty.
func (s *Session) PrintLogs(name string, n int) error {
	channels := logbook.Channels()
	if name != "" {
		ch, err := logbook.ParseChannel(name)
		if err != nil {
			return err
		}
		channels = []logbook.Channel{ch}
	}
	for _, ch := range channels {
		entries, err := s.book.Tail(ch, n)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			if name != "" {
				s.printf(ui.ColorGray, "%s", msges.GetUIMessage("LogsEmpty", ch))
			}
			continue
		}
		fmt.Fprintln(s.out, ui.HeaderStyle.Render(string(ch)))
		for _, e := range entries {
			fmt.Fprintf(s.out, "  %s\n", e)
		}
	}
	return nil
}

func (s *Session) PrintStats() {
	st := s.client.Stats()
	fmt.Fprintf(s.out, "%s %d\n", ui.LabelStyle.Render("requests"), st.Requests)
	fmt.Fprintf(s.out, "%s %d\n", ui.LabelStyle.Render("failures"), st.Failures)
	fmt.Fprintf(s.out, "%s %s\n", ui.LabelStyle.Render("avg latency"), st.Average())
	fmt.Fprintf(s.out, "%s %s\n", ui.LabelStyle.Render("total time"), st.Total)
	if left := s.client.RemainingBudget(); left >= 0 {
		fmt.Fprintf(s.out, "%s %d\n", ui.LabelStyle.Render("budget left"), left)
	}
}

func (s *Session) PrintConfig() error {
	raw, err := yaml.Marshal(s.Config())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprint(s.out, string(raw))
	return nil
}

// SetConfig updates one key and writes the config file. Transport settings
// take effect on the next start; run settings apply immediately.
func (s *Session) SetConfig(key, value string) error {
	s.mu.Lock()
	next := s.cfg
	s.mu.Unlock()

	key = strings.ToLower(strings.TrimSpace(key))
	if err := next.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(config.FileName, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = next
	s.mu.Unlock()
	if key == "payload_categories" {
		for _, name := range next.PayloadCategories {
			if err := s.catalog.Register(name); err != nil {
				return err
			}
		}
	}
	s.printf(ui.ColorGreen, "%s", msges.GetUIMessage("ConfigSaved", config.FileName))
	return nil
}
