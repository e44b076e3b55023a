package engine

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MOYARU/hprobe/internal/probe"
)

func TestClientDoFormAndHeaders(t *testing.T) {
	var gotForm, gotHeader, gotUA, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotForm = r.PostForm.Get("user")
		gotHeader = r.Header.Get("X-Session")
		gotUA = r.Header.Get("User-Agent")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("X-Powered-By", "test")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "created")
	}))
	defer srv.Close()

	c, err := NewClient(Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	c.SetHeader("x-session", "abc")

	req := probe.NewFormRequest(http.MethodPost, srv.URL+"/login", nil, map[string]string{"user": "admin"})
	res := c.Do(context.Background(), req)
	if res.Failed() {
		t.Fatalf("unexpected transport error: %s", res.Error)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	if string(res.Body) != "created" || res.BodyLength != len("created") {
		t.Fatalf("unexpected body: %q (%d)", res.Body, res.BodyLength)
	}
	if res.Header.Get("X-Powered-By") != "test" {
		t.Fatalf("response headers not captured: %v", res.Header)
	}
	if gotForm != "admin" || gotHeader != "abc" {
		t.Fatalf("server saw form=%q header=%q", gotForm, gotHeader)
	}
	if !strings.HasPrefix(gotUA, "hprobe/") {
		t.Fatalf("unexpected User-Agent: %q", gotUA)
	}
	if !strings.HasPrefix(gotType, probe.ContentTypeForm) {
		t.Fatalf("unexpected Content-Type: %q", gotType)
	}
}

func TestClientTransportErrorIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	c, err := NewClient(Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	res := c.Do(context.Background(), probe.NewRequest(http.MethodGet, target, nil, nil))
	if !res.Failed() {
		t.Fatalf("expected transport failure, got status %d", res.StatusCode)
	}
	if res.StatusCode != 0 {
		t.Fatalf("failed result must not carry a status, got %d", res.StatusCode)
	}
	if st := c.Stats(); st.Requests != 1 || st.Failures != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestClientDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		_, _ = io.WriteString(w, "next")
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	res := c.Do(context.Background(), probe.NewRequest(http.MethodGet, srv.URL+"/", nil, nil))
	if res.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d (%s)", res.StatusCode, res.Error)
	}
}

func TestClientCookieJarSharedAcrossGoroutines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s1", Path: "/"})
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Do(context.Background(), probe.NewRequest(http.MethodGet, srv.URL, nil, nil))
		}()
	}
	wg.Wait()

	cookies, err := c.Cookies(srv.URL)
	if err != nil {
		t.Fatalf("Cookies() error: %v", err)
	}
	if len(cookies) != 1 || cookies[0].Value != "s1" {
		t.Fatalf("unexpected cookies: %v", cookies)
	}

	noJar := c.WithoutCookies()
	if got, _ := noJar.Cookies(srv.URL); len(got) != 0 {
		t.Fatalf("cookie-less client must not expose cookies, got %v", got)
	}

	if err := c.ClearCookies(); err != nil {
		t.Fatalf("ClearCookies() error: %v", err)
	}
	if got, _ := c.Cookies(srv.URL); len(got) != 0 {
		t.Fatalf("expected empty jar after clear, got %v", got)
	}
}

func TestRequestBudgetTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, err := NewClient(Options{RequestBudget: 2})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if res := c.Do(context.Background(), probe.NewRequest(http.MethodGet, srv.URL, nil, nil)); res.Failed() {
			t.Fatalf("request %d failed: %s", i, res.Error)
		}
	}
	res := c.Do(context.Background(), probe.NewRequest(http.MethodGet, srv.URL, nil, nil))
	if !res.Failed() || !strings.Contains(res.Error, ErrRequestBudgetExceeded.Error()) {
		t.Fatalf("expected budget error, got %+v", res)
	}
	if c.RemainingBudget() != 0 {
		t.Fatalf("unexpected remaining budget: %d", c.RemainingBudget())
	}
}

func TestScopeTransport(t *testing.T) {
	tr := &ScopeTransport{AllowedDomain: "example.com"}
	tests := []struct {
		host string
		ok   bool
	}{
		{"example.com", true},
		{"api.example.com", true},
		{"example.org", false},
		{"evilexample.com", false},
		{"", false},
	}
	for _, tt := range tests {
		err := tr.check(tt.host)
		if (err == nil) != tt.ok {
			t.Fatalf("check(%q) err=%v, want ok=%v", tt.host, err, tt.ok)
		}
	}
}

func TestPacerHonoursContext(t *testing.T) {
	p := NewPacer(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if NewPacer(0, 0) != nil {
		t.Fatal("expected nil pacer without delay or rate")
	}
	var none *Pacer
	if err := none.Wait(ctx); err != nil {
		t.Fatalf("nil pacer must not wait: %v", err)
	}
}

func TestClientPacingIsNotElapsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c, err := NewClient(Options{RateLimit: 1, Delay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	start := time.Now()
	results := make([]probe.ProbeResult, 3)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Do(context.Background(), probe.NewRequest(http.MethodGet, srv.URL, nil, nil))
		}()
	}
	wg.Wait()

	if time.Since(start) < 1500*time.Millisecond {
		t.Fatalf("rate limit not applied, run took %s", time.Since(start))
	}
	for i, res := range results {
		if res.Failed() {
			t.Fatalf("request %d failed: %s", i, res.Error)
		}
		if res.Elapsed >= 500*time.Millisecond {
			t.Fatalf("request %d: pacing counted as elapsed (%s)", i, res.Elapsed)
		}
	}
}

func TestClientBodyIsCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := strings.Repeat("a", 1<<20)
		for range 5 {
			_, _ = io.WriteString(w, chunk)
		}
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	res := c.Do(context.Background(), probe.NewRequest(http.MethodGet, srv.URL, nil, nil))
	if res.Failed() {
		t.Fatalf("unexpected transport error: %s", res.Error)
	}
	if len(res.Body) != maxBodyBytes {
		t.Fatalf("expected body capped at %d, got %d", maxBodyBytes, len(res.Body))
	}
}

func TestClientDecodesGzipBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = io.WriteString(zw, "compressed hello")
		_ = zw.Close()
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	c.SetHeader("Accept-Encoding", "gzip")
	res := c.Do(context.Background(), probe.NewRequest(http.MethodGet, srv.URL, nil, nil))
	if res.Failed() {
		t.Fatalf("unexpected transport error: %s", res.Error)
	}
	if string(res.Body) != "compressed hello" {
		t.Fatalf("unexpected body: %q", res.Body)
	}
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"example.com/login", "https://example.com/login", true},
		{"http://127.0.0.1:8080/a?b=1", "http://127.0.0.1:8080/a?b=1", true},
		{"localhost:3000", "https://localhost:3000", true},
		{"ftp://example.com", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		u, err := NormalizeTarget(tt.raw)
		if (err == nil) != tt.ok {
			t.Fatalf("NormalizeTarget(%q) err=%v want ok=%v", tt.raw, err, tt.ok)
		}
		if err == nil && u.String() != tt.want {
			t.Fatalf("NormalizeTarget(%q) = %q want %q", tt.raw, u.String(), tt.want)
		}
	}
}
