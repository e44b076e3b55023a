package engine

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ScopeTransport refuses requests whose host falls outside the allowed
// registrable domain, so a mistyped template cannot leave the engagement.
type ScopeTransport struct {
	Base          http.RoundTripper
	AllowedDomain string
}

func (t *ScopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.check(req.URL.Hostname()); err != nil {
		return nil, err
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func (t *ScopeTransport) check(rawHost string) error {
	host := strings.ToLower(rawHost)
	if host == "" {
		return fmt.Errorf("blocked request: empty host")
	}
	allowed := strings.ToLower(strings.TrimSpace(t.AllowedDomain))
	if allowed == "" {
		return nil
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		root = host
	}
	if root != allowed && host != allowed && !strings.HasSuffix(host, "."+allowed) {
		return fmt.Errorf("blocked out-of-scope request: %s (scope: %s)", host, allowed)
	}
	return nil
}
