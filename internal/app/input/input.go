// Package input validates user supplied request parts before they reach
// the engines.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/mattn/go-shellwords"
	"golang.org/x/net/http/httpguts"
)

var Methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
	http.MethodHead, http.MethodPatch, http.MethodOptions,
}

func Method(raw string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(raw))
	if !slices.Contains(Methods, m) {
		return "", fmt.Errorf("unsupported method %q (use one of %s)", raw, strings.Join(Methods, ", "))
	}
	return m, nil
}

// Header parses "Name: value" and checks both parts against the HTTP
// token and field value grammar.
func Header(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, ":")
	if !ok {
		return "", "", fmt.Errorf("header %q must look like 'Name: value'", raw)
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", fmt.Errorf("invalid header name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("invalid value for header %s", name)
	}
	return http.CanonicalHeaderKey(name), value, nil
}

// JSONBody rejects bodies that are not a single valid JSON document.
func JSONBody(raw string) ([]byte, error) {
	b := []byte(strings.TrimSpace(raw))
	if len(b) == 0 {
		return nil, errors.New("JSON body is empty")
	}
	if !json.Valid(b) {
		var v any
		err := json.Unmarshal(b, &v)
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return b, nil
}

// KeyValues parses key=value arguments. Keys keep their case.
func KeyValues(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		out[k] = v
	}
	return out, nil
}

// Split breaks a command line into words with shell quoting rules. Shell
// operators outside quotes are rejected rather than cutting the line short.
func Split(line string) ([]string, error) {
	p := shellwords.NewParser()
	words, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("unterminated quote or escape: %w", err)
	}
	if p.Position >= 0 {
		op := []rune(line)[p.Position]
		return nil, fmt.Errorf("unquoted %q at column %d; quote arguments containing ; & | < >", op, p.Position+1)
	}
	return words, nil
}
