// Package forms lists the HTML forms of a page and guesses which fields a
// login form uses.
package forms

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/MOYARU/hprobe/internal/probe"
)

type Form struct {
	Action string
	Method string
	Inputs []Input
}

type Input struct {
	Name  string
	Type  string
	Value string
}

// Suggestion names the fields a brute-force run should target.
type Suggestion struct {
	LoginURL      string
	Method        string
	UsernameField string
	PasswordField string
	CSRFField     string
}

// Parse extracts every form in body. Relative actions are resolved against
// base; a missing action posts back to base.
func Parse(body []byte, base *url.URL) ([]Form, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	forms := extractForms(doc)
	for i := range forms {
		forms[i].Action = resolve(base, forms[i].Action)
	}
	return forms, nil
}

// Discover fetches target and parses its forms.
func Discover(ctx context.Context, client probe.Doer, target string, headers map[string]string) ([]Form, probe.ProbeResult, error) {
	res := client.Do(ctx, probe.NewRequest(http.MethodGet, target, headers, nil))
	if res.Failed() {
		return nil, res, fmt.Errorf("fetch %s: %s", target, res.Error)
	}
	base, err := url.Parse(target)
	if err != nil {
		return nil, res, fmt.Errorf("parse url %q: %w", target, err)
	}
	forms, err := Parse(res.Body, base)
	return forms, res, err
}

func resolve(base *url.URL, action string) string {
	action = strings.TrimSpace(action)
	if base == nil {
		return action
	}
	if action == "" {
		return base.String()
	}
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return base.ResolveReference(ref).String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func extractForms(n *html.Node) []Form {
	var forms []Form
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "form" {
			form := Form{Method: http.MethodGet}
			if v, ok := attr(n, "action"); ok {
				form.Action = v
			}
			if v, ok := attr(n, "method"); ok && strings.TrimSpace(v) != "" {
				form.Method = strings.ToUpper(strings.TrimSpace(v))
			}
			form.Inputs = extractInputs(n)
			forms = append(forms, form)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return forms
}

func extractInputs(n *html.Node) []Input {
	var inputs []Input
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			name, _ := attr(n, "name")
			switch n.Data {
			case "input":
				in := Input{Name: name, Type: "text"}
				if v, ok := attr(n, "type"); ok && v != "" {
					in.Type = strings.ToLower(v)
				}
				in.Value, _ = attr(n, "value")
				if in.Name != "" {
					inputs = append(inputs, in)
				}
			case "textarea", "select":
				if name != "" {
					inputs = append(inputs, Input{Name: name, Type: n.Data})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return inputs
}

var (
	userHints = []string{"user", "login", "email", "mail", "account", "name", "id"}
	csrfHints = []string{"csrf", "xsrf", "token", "nonce", "authenticity"}
)

// Suggest picks the username, password and CSRF fields of f. It reports
// false when f has no password input.
func Suggest(f Form) (Suggestion, bool) {
	s := Suggestion{LoginURL: f.Action, Method: f.Method}
	var firstText string
	for _, in := range f.Inputs {
		lname := strings.ToLower(in.Name)
		switch in.Type {
		case "password":
			if s.PasswordField == "" {
				s.PasswordField = in.Name
			}
		case "text", "email":
			if firstText == "" {
				firstText = in.Name
			}
			if s.UsernameField == "" && containsAny(lname, userHints) {
				s.UsernameField = in.Name
			}
		case "hidden":
			if s.CSRFField == "" && containsAny(lname, csrfHints) {
				s.CSRFField = in.Name
			}
		}
	}
	if s.PasswordField == "" {
		return Suggestion{}, false
	}
	if s.UsernameField == "" {
		s.UsernameField = firstText
	}
	return s, true
}

// LoginForm returns the suggestion for the first form with a password input.
func LoginForm(forms []Form) (Suggestion, bool) {
	for _, f := range forms {
		if s, ok := Suggest(f); ok {
			return s, true
		}
	}
	return Suggestion{}, false
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
