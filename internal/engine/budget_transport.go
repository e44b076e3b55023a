package engine

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
)

var ErrRequestBudgetExceeded = errors.New("request budget exceeded")

// RequestBudgetTransport caps the total number of requests a client may
// send over its lifetime. A zero Max disables the cap.
type RequestBudgetTransport struct {
	Base      http.RoundTripper
	Max       int64
	requested atomic.Int64
}

func (t *RequestBudgetTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.requested.Add(1)
	if t.Max > 0 && next > t.Max {
		return nil, fmt.Errorf("%w (%d) for %s %s", ErrRequestBudgetExceeded, t.Max, req.Method, req.URL.Redacted())
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Remaining returns the number of requests left, or -1 when unlimited.
func (t *RequestBudgetTransport) Remaining() int64 {
	if t.Max <= 0 {
		return -1
	}
	left := t.Max - t.requested.Load()
	if left < 0 {
		return 0
	}
	return left
}
