package probe

import "fmt"

// AttemptError records a transport failure together with enough context to
// replay the call.
type AttemptError struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Input  string `json:"input"`
	Err    string `json:"error"`
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s %s (input %q): %s", e.Method, e.URL, e.Input, e.Err)
}

func NewAttemptError(res ProbeResult, input string) AttemptError {
	return AttemptError{
		Method: res.Request.Method,
		URL:    res.Request.URL,
		Input:  input,
		Err:    res.Error,
	}
}
