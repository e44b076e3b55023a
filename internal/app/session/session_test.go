package session

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOYARU/hprobe/internal/brute"
	"github.com/MOYARU/hprobe/internal/config"
	"github.com/MOYARU/hprobe/internal/logbook"
	"github.com/MOYARU/hprobe/internal/probe"
)

type target struct {
	*httptest.Server
	hits        atomic.Int64
	posts       atomic.Int64
	contentType atomic.Value
}

func newTarget(t *testing.T) *target {
	t.Helper()
	tg := &target{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx/1.25")
		w.Write([]byte("<html>Index of /files</html>"))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("q"), "'") {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("You have an error in your SQL syntax"))
			return
		}
		w.Write([]byte("no results"))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		tg.contentType.Store(r.Header.Get("Content-Type"))
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`<form action="/login" method="post">
<input type="hidden" name="csrf_token" value="abc123">
<input type="text" name="username">
<input type="password" name="password">
</form>`))
			return
		}
		tg.posts.Add(1)
		r.ParseForm()
		if r.PostForm.Get("username") == "admin" && r.PostForm.Get("password") == "letmein" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s3cr3t", Path: "/"})
			w.Write([]byte("Welcome back, admin"))
			return
		}
		w.Write([]byte("Invalid credentials"))
	})
	tg.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tg.hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(tg.Close)
	return tg
}

func newSession(t *testing.T, confirm func(string) (bool, error)) (*Session, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.TimeoutSeconds = 5
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.LogDir = filepath.Join(dir, "logs")

	var out bytes.Buffer
	s, err := New(cfg, Options{Out: &out, Confirm: confirm})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, &out
}

func writeWordlist(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestInterceptPrintsAndLogs(t *testing.T) {
	tg := newTarget(t)
	s, out := newSession(t, nil)

	res, err := s.Intercept(context.Background(), tg.URL+"/", false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, tg.URL+"/", s.Target())
	assert.Contains(t, out.String(), "Directory Listing Enabled")
	assert.Contains(t, out.String(), "nginx/1.25")

	entries, err := s.book.Tail(logbook.Intercept, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "-> 200")
}

func TestRequestRejectsBadInputBeforeSending(t *testing.T) {
	tg := newTarget(t)
	s, _ := newSession(t, nil)
	ctx := context.Background()

	_, err := s.Request(ctx, RequestSpec{Method: "TRACE", URL: tg.URL}, false)
	assert.Error(t, err)
	_, err = s.Request(ctx, RequestSpec{Method: "POST", URL: tg.URL, Headers: []string{"Bad Header"}}, false)
	assert.Error(t, err)
	_, err = s.Request(ctx, RequestSpec{Method: "POST", URL: tg.URL, Body: "{", JSON: true}, false)
	assert.Error(t, err)

	assert.Zero(t, tg.hits.Load())
}

func TestRequestSetsContentType(t *testing.T) {
	tg := newTarget(t)
	s, _ := newSession(t, nil)
	ctx := context.Background()

	res, err := s.Request(ctx, RequestSpec{Method: "post", URL: tg.URL + "/echo", Body: `{"a":1}`, JSON: true}, true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, probe.ContentTypeJSON, tg.contentType.Load())

	_, err = s.Request(ctx, RequestSpec{Method: "PUT", URL: tg.URL + "/echo", Body: "a=1"}, false)
	require.NoError(t, err)
	assert.Equal(t, probe.ContentTypeForm, tg.contentType.Load())

	_, err = s.Request(ctx, RequestSpec{Method: "PUT", URL: tg.URL + "/echo", Body: "<a/>", Headers: []string{"Content-Type: text/xml"}}, false)
	require.NoError(t, err)
	assert.Equal(t, "text/xml", tg.contentType.Load())
}

func TestLoginStoresSessionCookies(t *testing.T) {
	tg := newTarget(t)
	s, out := newSession(t, nil)

	res, err := s.Login(context.Background(), tg.URL+"/login", map[string]string{"username": "admin", "password": "letmein"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, out.String(), "1 cookies now stored")

	doc, err := s.store.LoadSession()
	require.NoError(t, err)
	require.Len(t, doc.Cookies, 1)
	assert.Equal(t, "sid", doc.Cookies[0].Name)

	entries, err := s.book.Tail(logbook.Login, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "password,username", entries[0].Fields["fields"])
}

func TestInjectRunsStoredPayloads(t *testing.T) {
	tg := newTarget(t)
	s, out := newSession(t, nil)
	require.NoError(t, s.AddPayload("xss", "<b>x</b>"))

	outcomes, err := s.Inject(context.Background(), InjectSpec{
		Template:    tg.URL + "/search?q=",
		Categories:  []string{"sql"},
		Concurrency: 3,
		SaveReport:  true,
	})
	require.NoError(t, err)
	want := probe.DefaultPayloads()[probe.CategorySQL]
	require.Len(t, outcomes, len(want))
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, want[i], o.Payload.Value)
	}
	assert.Contains(t, out.String(), "JSON Report saved")

	reports, err := filepath.Glob(filepath.Join(s.Config().DataDir, "reports", "hprobe_injection_*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	entries, err := s.book.Tail(logbook.InjectionTest, 100)
	require.NoError(t, err)
	assert.Len(t, entries, len(want)+1)
}

func TestInjectValidation(t *testing.T) {
	tg := newTarget(t)
	s, _ := newSession(t, nil)
	ctx := context.Background()

	_, err := s.Inject(ctx, InjectSpec{Template: tg.URL + "/search?q=", Categories: []string{"ldap"}})
	assert.ErrorIs(t, err, probe.ErrUnknownCategory)

	_, err = s.Inject(ctx, InjectSpec{Template: tg.URL + "/search?q=", Concurrency: -1})
	assert.Error(t, err)

	assert.Zero(t, tg.hits.Load())
}

func TestDeclinedConsentSendsNothing(t *testing.T) {
	tg := newTarget(t)
	s, out := newSession(t, func(string) (bool, error) { return false, nil })
	ctx := context.Background()

	_, err := s.Inject(ctx, InjectSpec{Template: tg.URL + "/search?q="})
	assert.ErrorIs(t, err, ErrAborted)

	_, err = s.Brute(ctx, BruteSpec{LoginURL: tg.URL + "/login", Username: "admin", Wordlist: writeWordlist(t, "a")})
	assert.ErrorIs(t, err, ErrAborted)

	assert.Zero(t, tg.hits.Load())
	assert.Contains(t, out.String(), "authorised")
}

func TestBruteFindsPassword(t *testing.T) {
	tg := newTarget(t)
	s, out := newSession(t, func(string) (bool, error) { return true, nil })

	rep, err := s.Brute(context.Background(), BruteSpec{
		LoginURL:         tg.URL + "/login",
		Username:         "admin",
		Wordlist:         writeWordlist(t, "# common", "password", "", "123456", "letmein", "qwerty"),
		CSRFField:        "csrf_token",
		SuccessIndicator: "Welcome",
		FailureIndicator: "Invalid",
	})
	require.NoError(t, err)
	assert.Equal(t, brute.StateSuccess, rep.State)
	assert.Equal(t, "letmein", rep.Password)
	assert.Equal(t, 3, rep.Attempts)
	assert.Equal(t, int64(3), tg.posts.Load())
	assert.Equal(t, int64(4), tg.hits.Load())
	assert.Contains(t, out.String(), "admin:letmein")

	entries, err := s.book.Tail(logbook.BruteForce, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run SUCCESS", entries[0].Message)
}

func TestBruteMissingWordlist(t *testing.T) {
	tg := newTarget(t)
	s, _ := newSession(t, nil)

	_, err := s.Brute(context.Background(), BruteSpec{
		LoginURL: tg.URL + "/login",
		Username: "admin",
		Wordlist: filepath.Join(t.TempDir(), "missing.txt"),
	})
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Zero(t, tg.hits.Load())
}

func TestFormsSuggestsBruteFields(t *testing.T) {
	tg := newTarget(t)
	s, out := newSession(t, nil)

	found, err := s.Forms(context.Background(), tg.URL+"/login")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, out.String(), "--user-field username --pass-field password --csrf-field csrf_token")
}

func TestHeadersAndSessionRoundTrip(t *testing.T) {
	tg := newTarget(t)
	s, _ := newSession(t, nil)
	ctx := context.Background()

	require.Error(t, s.SetHeader("no colon"))
	require.NoError(t, s.SetHeader("X-Api-Key: k1"))
	require.NoError(t, s.SaveHeaders())
	require.NoError(t, s.DeleteHeader("x-api-key"))
	assert.Error(t, s.DeleteHeader("x-api-key"))
	require.NoError(t, s.LoadHeaders())
	assert.Equal(t, "k1", s.Client().Headers()["X-Api-Key"])

	assert.ErrorIs(t, s.SaveSession(""), ErrNoTarget)
	_, err := s.Login(ctx, tg.URL+"/login", map[string]string{"username": "admin", "password": "letmein"})
	require.NoError(t, err)
	require.NoError(t, s.SaveSession(""))

	require.NoError(t, s.ClearCookies())
	cookies, err := s.Client().Cookies(tg.URL + "/login")
	require.NoError(t, err)
	assert.Empty(t, cookies)

	require.NoError(t, s.LoadSession())
	cookies, err = s.Client().Cookies(tg.URL + "/login")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "s3cr3t", cookies[0].Value)
}

func TestPayloadCommands(t *testing.T) {
	s, out := newSession(t, nil)

	assert.ErrorIs(t, s.AddPayload("ldap", "*"), probe.ErrUnknownCategory)
	require.NoError(t, s.AddPayload("sql", "1;--"))
	require.NoError(t, s.PrintPayloads("sql"))
	assert.Contains(t, out.String(), "1;--")

	require.NoError(t, s.ResetPayloads())
	set, err := s.store.LoadPayloads(s.catalog)
	require.NoError(t, err)
	assert.Equal(t, probe.DefaultPayloads(), set)
}

func TestSetConfigWritesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	s, _ := newSession(t, nil)

	require.Error(t, s.SetConfig("concurrency", "0"))
	require.Error(t, s.SetConfig("nope", "1"))
	require.NoError(t, s.SetConfig("concurrency", "4"))
	assert.Equal(t, 4, s.Config().Concurrency)

	cfg, err := config.LoadFile(config.FileName)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Concurrency)

	require.NoError(t, s.SetConfig("payload_categories", "ldap"))
	require.NoError(t, s.AddPayload("ldap", "*)(uid=*"))
}

func TestPrintLogsUnknownChannel(t *testing.T) {
	s, out := newSession(t, nil)
	assert.Error(t, s.PrintLogs("nope", 5))
	require.NoError(t, s.PrintLogs("login", 5))
	assert.Contains(t, out.String(), "No entries in login")

	s.book.AppendError("boom", errors.New("kaput"))
	require.NoError(t, s.PrintLogs("", 5))
	assert.Contains(t, out.String(), "kaput")
}

func TestAskReportAfterBrute(t *testing.T) {
	tg := newTarget(t)
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.LogDir = filepath.Join(dir, "logs")

	var prompts []string
	var out bytes.Buffer
	s, err := New(cfg, Options{
		Out:       &out,
		AskReport: true,
		Confirm: func(p string) (bool, error) {
			prompts = append(prompts, p)
			return true, nil
		},
	})
	require.NoError(t, err)
	defer s.Close()

	rep, err := s.Brute(context.Background(), BruteSpec{
		LoginURL:         tg.URL + "/login",
		Username:         "admin",
		Wordlist:         writeWordlist(t, "nope", "wrong"),
		FailureIndicator: "Invalid",
	})
	require.NoError(t, err)
	assert.Equal(t, brute.StateExhausted, rep.State)
	assert.Equal(t, int64(2), tg.posts.Load())
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "JSON report")

	reports, err := filepath.Glob(filepath.Join(cfg.DataDir, "reports", "hprobe_brute_force_*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}
