// Package store persists the shell's JSON documents under the data
// directory: the session, the payload sets and saved custom headers.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MOYARU/hprobe/internal/probe"
)

type Key string

const (
	KeySession  Key = "session"
	KeyPayloads Key = "payloads"
	KeyHeaders  Key = "headers"
)

var ErrUnknownKey = errors.New("unknown document key")

type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key Key) (string, error) {
	switch key {
	case KeySession, KeyPayloads, KeyHeaders:
		return filepath.Join(s.dir, string(key)+".json"), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Load decodes the document for key into doc. A missing document leaves doc
// untouched and reports false, so callers pass a pre-filled default.
func (s *Store) Load(key Key, doc any) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save writes doc through a temp file and a rename.
func (s *Store) Save(key Key, doc any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Cookie is the stored form of a jar cookie.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

type Session struct {
	Target  string            `json:"target,omitempty"`
	Headers map[string]string `json:"headers"`
	Cookies []Cookie          `json:"cookies"`
	SavedAt time.Time         `json:"saved_at,omitzero"`
}

func NewSession(target string, headers map[string]string, cookies []*http.Cookie) Session {
	s := Session{
		Target:  target,
		Headers: maps.Clone(headers),
		Cookies: make([]Cookie, 0, len(cookies)),
		SavedAt: time.Now().UTC(),
	}
	if s.Headers == nil {
		s.Headers = map[string]string{}
	}
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return s
}

// HTTPCookies converts the stored cookies back for a jar.
func (s Session) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return out
}

func (s *Store) LoadSession() (Session, error) {
	doc := Session{Headers: map[string]string{}}
	_, err := s.Load(KeySession, &doc)
	if doc.Headers == nil {
		doc.Headers = map[string]string{}
	}
	return doc, err
}

func (s *Store) SaveSession(doc Session) error {
	return s.Save(KeySession, doc)
}

// LoadHeaders returns the saved custom headers, or an empty map.
func (s *Store) LoadHeaders() (map[string]string, error) {
	doc := map[string]string{}
	_, err := s.Load(KeyHeaders, &doc)
	if doc == nil {
		doc = map[string]string{}
	}
	return doc, err
}

func (s *Store) SaveHeaders(h map[string]string) error {
	return s.Save(KeyHeaders, h)
}

// LoadPayloads returns the saved payload sets, or the defaults when none
// were saved. Categories the catalog does not accept are dropped and
// reported in the joined error alongside the usable set.
func (s *Store) LoadPayloads(cat *probe.Catalog) (probe.PayloadSet, error) {
	var raw map[string][]string
	found, err := s.Load(KeyPayloads, &raw)
	if err != nil {
		return probe.DefaultPayloads(), err
	}
	if !found {
		return probe.DefaultPayloads(), nil
	}

	set := probe.PayloadSet{}
	var errs []error
	for name, values := range raw {
		c, err := cat.Validate(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set[c] = append(set[c], values...)
	}
	return set, errors.Join(errs...)
}

func (s *Store) SavePayloads(set probe.PayloadSet) error {
	raw := make(map[string][]string, len(set))
	for c, values := range set {
		raw[string(c)] = values
	}
	return s.Save(KeyPayloads, raw)
}

// ResetPayloads removes the saved payload document.
func (s *Store) ResetPayloads() error {
	path, _ := s.path(KeyPayloads)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reset payloads: %w", err)
	}
	return nil
}
