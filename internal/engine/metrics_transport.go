package engine

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time view of a MetricsTransport.
type Stats struct {
	Requests int64
	Failures int64
	Total    time.Duration
}

func (s Stats) Average() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Requests)
}

// MetricsTransport counts round trips, transport failures and cumulative
// network time.
type MetricsTransport struct {
	Base      http.RoundTripper
	requests  atomic.Int64
	failures  atomic.Int64
	durationN atomic.Int64
}

func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	t.requests.Add(1)
	if err != nil {
		t.failures.Add(1)
	}
	t.durationN.Add(time.Since(start).Nanoseconds())
	return resp, err
}

func (t *MetricsTransport) Snapshot() Stats {
	return Stats{
		Requests: t.requests.Load(),
		Failures: t.failures.Load(),
		Total:    time.Duration(t.durationN.Load()),
	}
}
