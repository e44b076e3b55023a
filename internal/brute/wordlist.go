package brute

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"slices"
	"strings"
)

// Wordlist streams candidate passwords from a file, front to back, once.
type Wordlist struct {
	path string
	f    *os.File
	err  error
	used bool
}

// OpenWordlist opens path eagerly so a missing or unreadable file fails
// before any request is sent.
func OpenWordlist(path string) (*Wordlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wordlist: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat wordlist %s: %w", path, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open wordlist: %s is a directory", path)
	}
	return &Wordlist{path: path, f: f}, nil
}

// All yields every non-empty line as is, minus a trailing \r. A second call
// yields nothing.
func (w *Wordlist) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		if w.used {
			return
		}
		w.used = true
		defer w.f.Close()

		sc := bufio.NewScanner(w.f)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			line := strings.TrimRight(sc.Text(), "\r")
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			w.err = fmt.Errorf("read wordlist %s: %w", w.path, err)
		}
	}
}

// Err reports a read error hit while iterating.
func (w *Wordlist) Err() error {
	return w.err
}

func (w *Wordlist) Close() error {
	if w.used {
		return nil
	}
	w.used = true
	return w.f.Close()
}

// Passwords adapts an in-memory list to the stream the engine consumes.
func Passwords(list ...string) iter.Seq[string] {
	return slices.Values(list)
}
