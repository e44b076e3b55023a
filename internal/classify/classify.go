package classify

import (
	"bytes"
	"strings"
	"time"

	"github.com/MOYARU/hprobe/internal/probe"
)

// DefaultDelayThreshold marks a response as time-delayed.
const DefaultDelayThreshold = time.Second

var securityHeaders = []struct {
	Name string
	ID   probe.FindingID
}{
	{"X-XSS-Protection", probe.MissingXSSProtection},
	{"Content-Security-Policy", probe.MissingCSP},
	{"X-Frame-Options", probe.MissingFrameOptions},
	{"Strict-Transport-Security", probe.MissingHSTS},
}

var disclosedServers = []string{"apache", "nginx", "iis"}

// Classify maps a completed response to heuristic findings. Every check
// runs on the same response and the findings keep the check order.
func Classify(res probe.ProbeResult) []probe.Finding {
	if res.Failed() {
		return nil
	}

	var findings []probe.Finding
	for _, h := range securityHeaders {
		if len(res.Header.Values(h.Name)) == 0 {
			findings = append(findings, probe.Finding{ID: h.ID})
		}
	}

	if server := res.Header.Get("Server"); server != "" {
		lower := strings.ToLower(server)
		for _, s := range disclosedServers {
			if strings.Contains(lower, s) {
				findings = append(findings, probe.Finding{ID: probe.ServerDisclosure, Value: server})
				break
			}
		}
	}

	if poweredBy := res.Header.Get("X-Powered-By"); poweredBy != "" {
		findings = append(findings, probe.Finding{ID: probe.FrameworkDisclosure, Value: poweredBy})
	}

	if bytes.Contains(res.Body, []byte("Index of /")) {
		findings = append(findings, probe.Finding{ID: probe.DirectoryListingEnabled})
	}

	return findings
}

const (
	NoteErrorMessage = "Error message detected"
	NoteServerError  = "Server error"
	NoteSQLSyntax    = "Possible SQL syntax"
	NoteTimeDelay    = "Time-based delay detected"
)

// Annotate returns the single injection note for a result, first match wins.
// Transport failures never carry a note.
func Annotate(res probe.ProbeResult, delayThreshold time.Duration) string {
	if res.Failed() {
		return ""
	}
	if delayThreshold <= 0 {
		delayThreshold = DefaultDelayThreshold
	}
	body := bytes.ToLower(res.Body)
	switch {
	case bytes.Contains(body, []byte("error")):
		return NoteErrorMessage
	case res.StatusCode >= 500:
		return NoteServerError
	case bytes.Contains(body, []byte("syntax")):
		return NoteSQLSyntax
	case res.Elapsed >= delayThreshold:
		return NoteTimeDelay
	}
	return ""
}
