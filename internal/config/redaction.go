package config

import "regexp"

// RedactionRegexes compiles the redaction_patterns of the current config,
// skipping entries that are not valid regular expressions.
func RedactionRegexes() []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range Load().RedactionPatterns {
		re, err := regexp.Compile(p)
		if err == nil {
			out = append(out, re)
		}
	}
	return out
}
