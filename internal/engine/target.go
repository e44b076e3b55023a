package engine

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeTarget parses a user supplied URL, defaulting to https when the
// scheme is omitted.
func NormalizeTarget(target string) (*url.URL, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("empty target URL")
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", target, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in %s", parsed.Scheme, target)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid target URL: %s", target)
	}

	return parsed, nil
}
