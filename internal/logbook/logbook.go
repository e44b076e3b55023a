// Package logbook keeps one append-only JSON line log per activity channel.
package logbook

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Channel string

const (
	Intercept     Channel = "intercept"
	Error         Channel = "error"
	CustomRequest Channel = "custom_request"
	InjectionTest Channel = "injection_test"
	BruteForce    Channel = "brute_force"
	Login         Channel = "login"
)

func Channels() []Channel {
	return []Channel{Intercept, Error, CustomRequest, InjectionTest, BruteForce, Login}
}

func ParseChannel(name string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Channels(), ch) {
		return ch, nil
	}
	return "", fmt.Errorf("unknown log channel %q", name)
}

type Book struct {
	dir     string
	mu      sync.Mutex
	loggers map[Channel]zerolog.Logger
	files   []*os.File
}

// Open returns a book writing under dir. Files are opened on first use.
func Open(dir string) *Book {
	return &Book{dir: dir, loggers: map[Channel]zerolog.Logger{}}
}

func (b *Book) Path(ch Channel) string {
	return filepath.Join(b.dir, string(ch)+".log")
}

func (b *Book) logger(ch Channel) zerolog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.loggers[ch]; ok {
		return l
	}
	l := zerolog.Nop()
	if err := os.MkdirAll(b.dir, 0o700); err == nil {
		f, err := os.OpenFile(b.Path(ch), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err == nil {
			b.files = append(b.files, f)
			l = zerolog.New(zerolog.SyncWriter(f)).With().Timestamp().Str("channel", string(ch)).Logger()
		}
	}
	b.loggers[ch] = l
	return l
}

// Append records text with optional key/value fields. It never fails; an
// unknown channel is redirected to the error channel.
func (b *Book) Append(ch Channel, text string, fields ...any) {
	if b == nil {
		return
	}
	if !slices.Contains(Channels(), ch) {
		fields = append(fields, "requested_channel", string(ch))
		ch = Error
	}
	l := b.logger(ch)
	ev := l.Info()
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(text)
}

// AppendError records err on the error channel.
func (b *Book) AppendError(what string, err error) {
	if err == nil {
		return
	}
	b.Append(Error, what, "error", err.Error())
}

type Entry struct {
	Time    time.Time
	Message string
	Fields  map[string]any
}

func (e Entry) String() string {
	var sb strings.Builder
	if !e.Time.IsZero() {
		sb.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	sb.WriteString(e.Message)
	keys := slices.Sorted(maps.Keys(e.Fields))
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Fields[k])
	}
	return sb.String()
}

// Tail returns the last n entries of ch, oldest first. A channel that was
// never written yields no entries.
func (b *Book) Tail(ch Channel, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(b.Path(ch))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s log: %w", ch, err)
	}
	defer f.Close()
	return tail(f, n)
}

func tail(r io.Reader, n int) ([]Entry, error) {
	ring := make([]string, 0, n)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	out := make([]Entry, 0, len(ring))
	for _, line := range ring {
		out = append(out, parse(line))
	}
	return out, nil
}

func parse(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Message: line}
	}
	e := Entry{Fields: map[string]any{}}
	for k, v := range raw {
		switch k {
		case zerolog.TimestampFieldName:
			if s, ok := v.(string); ok {
				e.Time, _ = time.Parse(time.RFC3339, s)
			}
		case zerolog.MessageFieldName:
			e.Message, _ = v.(string)
		case zerolog.LevelFieldName, "channel":
		default:
			e.Fields[k] = v
		}
	}
	return e
}

func (b *Book) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, f := range b.files {
		errs = append(errs, f.Close())
	}
	b.files = nil
	clear(b.loggers)
	return errors.Join(errs...)
}

// Console builds the human readable stderr logger used for diagnostics.
// Only warnings and errors are shown unless verbose is set.
func Console(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
	}).Level(level).With().Timestamp().Logger()
}
