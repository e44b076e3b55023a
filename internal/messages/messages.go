package messages

import (
	"fmt"
)

type MessageDetail struct {
	Title   string
	Message string
	Fix     string
}

var findingMessages = map[string]MessageDetail{
	"missing-xss-protection": {
		Title:   "X-XSS-Protection Header Missing",
		Message: "The response does not set X-XSS-Protection.",
		Fix:     "Send 'X-XSS-Protection: 0' and rely on a Content-Security-Policy, or '1; mode=block' for legacy browsers.",
	},
	"missing-csp": {
		Title:   "Content-Security-Policy Header Missing",
		Message: "No Content-Security-Policy is set, so injected scripts run with the page's privileges.",
		Fix:     "Define a Content-Security-Policy that restricts script sources, starting from default-src 'self'.",
	},
	"missing-frame-options": {
		Title:   "X-Frame-Options Header Missing",
		Message: "The page may be framed by other origins, enabling clickjacking.",
		Fix:     "Send 'X-Frame-Options: DENY' or a frame-ancestors CSP directive.",
	},
	"missing-hsts": {
		Title:   "Strict-Transport-Security Header Missing",
		Message: "Browsers are not told to insist on HTTPS for this host.",
		Fix:     "Send 'Strict-Transport-Security: max-age=31536000; includeSubDomains' over HTTPS.",
	},
	"server-disclosure": {
		Title:   "Server Software Disclosed",
		Message: "The Server header names the web server software: %s",
		Fix:     "Remove or genericise the Server header in the web server configuration.",
	},
	"framework-disclosure": {
		Title:   "Framework Disclosed",
		Message: "X-Powered-By reveals the application stack: %s",
		Fix:     "Disable the X-Powered-By header in the framework or reverse proxy.",
	},
	"directory-listing-enabled": {
		Title:   "Directory Listing Enabled",
		Message: "The response is an auto-generated directory index.",
		Fix:     "Disable autoindex or directory browsing and serve an index document instead.",
	},
}

var uiMessages = map[string]string{
	"InteractiveWelcome":      "Welcome to hprobe interactive mode. Type 'help' for commands.",
	"InteractiveExit":         "Exiting program.",
	"InteractiveHelp":         "Available commands:",
	"InteractiveErrorUnknown": "Unknown command: %s",
	"InteractiveUsage":        "Usage: %s",
	"InteractiveCancelled":    "Cancelled.",

	"ActiveWarning":    "[!] WARNING: this sends attack payloads to %s.",
	"ActivePermission": "By continuing you confirm that you are authorised to test the target system.",
	"ActivePrompt":     "Do you want to continue?",
	"ActiveAborted":    "Aborted by user.",

	"ConsoleFindingsTitle": "--- Findings ---",
	"ConsoleNoIssues":      "[OK] No issues found",
	"ConsoleFixLabel":      "Fix",
	"ConsoleHeadersTitle":  "--- Response Headers ---",
	"ConsoleBodyTitle":     "--- Body (%d bytes) ---",
	"ConsoleRequestFailed": "Request failed: %s",

	"InjectionStart":      "Injecting %d payloads into %s (concurrency %d)",
	"InjectionSummary":    "%d sent, %d completed, %d failed, %d noted, avg %s, max %s",
	"InjectionNoPayloads": "No payloads selected.",
	"BruteStart":          "Brute forcing %s as %q",
	"BruteFound":          "[+] Valid credentials: %s:%s (attempt %d)",
	"BruteNotFound":       "[-] No valid password found after %d attempts (%s)",
	"BruteCSRF":           "CSRF token %s: %s",
	"LoginResult":         "Login %s returned %d; %d cookies now stored for %s",
	"FormsNone":           "No forms found on %s",
	"FormsSuggestion":     "Suggested: brute %s <user> <wordlist> --user-field %s --pass-field %s%s",

	"JSONReportSaved":  "JSON Report saved: %s",
	"JSONReportFailed": "Failed to save JSON report: %v",
	"AskSaveJSON":      "Do you want to save a JSON report?",

	"SessionSaved":   "Session saved (%d headers, %d cookies).",
	"SessionLoaded":  "Session loaded (%d headers, %d cookies).",
	"HeadersSaved":   "Saved %d headers.",
	"HeadersLoaded":  "Loaded %d headers.",
	"CookiesCleared": "Cookie jar cleared.",
	"PayloadAdded":   "Added payload to %s (%d total).",
	"PayloadsReset":  "Payloads reset to defaults.",
	"ConfigSaved":    "Config saved to %s. Restart the shell to apply transport settings.",
	"LogsEmpty":      "No entries in %s.",
}

// GetMessage returns the display text for a finding ID.
func GetMessage(id string) MessageDetail {
	if msg, ok := findingMessages[id]; ok {
		return msg
	}
	return MessageDetail{
		Title:   id,
		Message: fmt.Sprintf("Message details for ID '%s' not found.", id),
	}
}

func GetUIMessage(id string, args ...interface{}) string {
	format, ok := uiMessages[id]
	if !ok || format == "" {
		return id
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
