package forms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/MOYARU/hprobe/internal/engine"
)

const loginPage = `<html><body>
<form action="/search"><input name="q"></form>
<form action="/session" method="post">
  <input type="hidden" name="authenticity_token" value="tok">
  <input type="text" name="nickname">
  <input type="email" name="user_email">
  <input type="password" name="pw">
  <select name="lang"><option>en</option></select>
  <textarea name="note"></textarea>
  <input type="submit" value="Go">
</form>
</body></html>`

func TestParse(t *testing.T) {
	base, _ := url.Parse("https://example.com/account/login")
	forms, err := Parse([]byte(loginPage), base)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
	if forms[0].Method != http.MethodGet || forms[0].Action != "https://example.com/search" {
		t.Fatalf("unexpected first form: %+v", forms[0])
	}
	login := forms[1]
	if login.Method != http.MethodPost || login.Action != "https://example.com/session" {
		t.Fatalf("unexpected login form: %+v", login)
	}
	wantNames := []string{"authenticity_token", "nickname", "user_email", "pw", "lang", "note"}
	if len(login.Inputs) != len(wantNames) {
		t.Fatalf("unexpected inputs: %+v", login.Inputs)
	}
	for i, n := range wantNames {
		if login.Inputs[i].Name != n {
			t.Fatalf("input %d: got %q want %q", i, login.Inputs[i].Name, n)
		}
	}
	if login.Inputs[0].Value != "tok" || login.Inputs[4].Type != "select" {
		t.Fatalf("unexpected input details: %+v", login.Inputs)
	}
}

func TestParseEmptyActionPostsBack(t *testing.T) {
	base, _ := url.Parse("http://t.test/login?next=/")
	forms, err := Parse([]byte(`<form method="POST"><input type="password" name="p"></form>`), base)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(forms) != 1 || forms[0].Action != "http://t.test/login?next=/" {
		t.Fatalf("unexpected forms: %+v", forms)
	}
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name string
		form Form
		want Suggestion
		ok   bool
	}{
		{
			name: "hinted username and csrf",
			form: Form{Action: "/s", Method: "POST", Inputs: []Input{
				{Name: "authenticity_token", Type: "hidden"},
				{Name: "nickname", Type: "text"},
				{Name: "user_email", Type: "email"},
				{Name: "pw", Type: "password"},
			}},
			want: Suggestion{LoginURL: "/s", Method: "POST", UsernameField: "nickname", PasswordField: "pw", CSRFField: "authenticity_token"},
			ok:   true,
		},
		{
			name: "falls back to first text input",
			form: Form{Inputs: []Input{
				{Name: "who", Type: "text"},
				{Name: "secret", Type: "password"},
				{Name: "page", Type: "hidden"},
			}},
			want: Suggestion{UsernameField: "who", PasswordField: "secret"},
			ok:   true,
		},
		{
			name: "no password field",
			form: Form{Inputs: []Input{{Name: "q", Type: "text"}}},
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Suggest(tt.form)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("Suggest() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, loginPage)
	}))
	defer srv.Close()

	client, err := engine.NewClient(engine.Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	forms, res, err := Discover(context.Background(), client, srv.URL+"/login", nil)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	s, ok := LoginForm(forms)
	if !ok {
		t.Fatalf("expected a login form")
	}
	if s.LoginURL != srv.URL+"/session" || s.PasswordField != "pw" || s.CSRFField != "authenticity_token" {
		t.Fatalf("unexpected suggestion: %+v", s)
	}
}
