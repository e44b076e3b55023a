/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MOYARU/hprobe/internal/app/input"
	"github.com/MOYARU/hprobe/internal/app/interactive"
	"github.com/MOYARU/hprobe/internal/app/session"
	"github.com/MOYARU/hprobe/internal/app/ui"
	"github.com/MOYARU/hprobe/internal/config"
	"github.com/MOYARU/hprobe/internal/logbook"
	appver "github.com/MOYARU/hprobe/internal/version"
)

var (
	version = appver.Value

	verbose     bool
	assumeYes   bool
	showBody    bool
	saveJSON    bool
	concurrency int

	reqHeaders []string
	reqBody    string
	reqJSON    bool

	userField   string
	passField   string
	csrfField   string
	successText string
	failureText string
)

var rootCmd = &cobra.Command{
	Use:   "hprobe [url]",
	Short: "hprobe is an HTTP probing toolkit with an injection tester and a login brute forcer.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			sess, err := newSession(true)
			if err != nil {
				fail(err)
			}
			defer sess.Close()
			interactive.RunInteractiveMode(cmd, sess)
			return
		}
		run(func(ctx context.Context, s *session.Session) error {
			_, err := s.Intercept(ctx, args[0], showBody)
			return err
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Send a GET with the saved session and classify the response",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, s *session.Session) error {
			_, err := s.Intercept(ctx, args[0], showBody)
			return err
		})
	},
}

var requestCmd = &cobra.Command{
	Use:   "request <METHOD> <url>",
	Short: "Send a hand-built request",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, s *session.Session) error {
			_, err := s.Request(ctx, session.RequestSpec{
				Method:  args[0],
				URL:     args[1],
				Headers: reqHeaders,
				Body:    reqBody,
				JSON:    reqJSON,
			}, showBody)
			return err
		})
	},
}

var injectCmd = &cobra.Command{
	Use:   "inject <url_template> [category...]",
	Short: "Inject stored payloads at the end of a URL template",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, s *session.Session) error {
			spec := session.InjectSpec{
				Template:    args[0],
				Categories:  args[1:],
				Concurrency: concurrency,
				SaveReport:  saveJSON,
			}
			if cmd.Flags().Changed("concurrency") && concurrency == 0 {
				spec.Concurrency = -1
			}
			_, err := s.Inject(ctx, spec)
			return err
		})
	},
}

var bruteCmd = &cobra.Command{
	Use:   "brute <login_url> <user> <wordlist>",
	Short: "Try each wordlist password against a login form",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, s *session.Session) error {
			_, err := s.Brute(ctx, session.BruteSpec{
				LoginURL:         args[0],
				Username:         args[1],
				Wordlist:         args[2],
				UsernameField:    userField,
				PasswordField:    passField,
				CSRFField:        csrfField,
				SuccessIndicator: successText,
				FailureIndicator: failureText,
				SaveReport:       saveJSON,
			})
			return err
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <url> field=value...",
	Short: "Submit a login form once and keep the session cookies",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, s *session.Session) error {
			fields, err := input.KeyValues(args[1:])
			if err != nil {
				return err
			}
			_, err = s.Login(ctx, args[0], fields)
			return err
		})
	},
}

var formsCmd = &cobra.Command{
	Use:   "forms <url>",
	Short: "List the forms of a page and suggest brute force fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, s *session.Session) error {
			_, err := s.Forms(ctx, args[0])
			return err
		})
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newSession(shell bool) (*session.Session, error) {
	opts := session.Options{Out: os.Stdout, AskReport: shell}
	logger := logbook.Console(os.Stderr, verbose)
	opts.Logger = &logger
	if !assumeYes {
		opts.Confirm = ui.Confirm
	}
	return session.New(config.Load(), opts)
}

// run executes one action with Ctrl+C wired to cancellation and exits
// non-zero on error.
func run(fn func(context.Context, *session.Session) error) {
	sess, err := newSession(false)
	if err != nil {
		fail(err)
	}
	ctx, cancel := ui.WaitForCancel(context.Background())
	err = fn(ctx, sess)
	cancel()
	sess.Close()
	if err != nil {
		if errors.Is(err, session.ErrAborted) {
			os.Exit(1)
		}
		fail(err)
	}
}

func fail(err error) {
	fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
	os.Exit(1)
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print client diagnostics to stderr")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the authorisation prompt before attack runs")
	rootCmd.PersistentFlags().BoolVar(&showBody, "body", false, "Print the response body")

	requestCmd.Flags().StringArrayVarP(&reqHeaders, "header", "H", nil, "Request header 'Name: value' (repeatable)")
	requestCmd.Flags().StringVarP(&reqBody, "data", "d", "", "Request body")
	requestCmd.Flags().BoolVar(&reqJSON, "json", false, "Validate the body as JSON and send it as application/json")

	injectCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Requests in flight (default from config)")
	injectCmd.Flags().BoolVar(&saveJSON, "json", false, "Save a JSON report under the data directory")

	bruteCmd.Flags().StringVar(&userField, "user-field", "username", "Username form field")
	bruteCmd.Flags().StringVar(&passField, "pass-field", "password", "Password form field")
	bruteCmd.Flags().StringVar(&csrfField, "csrf-field", "", "Hidden CSRF field to carry over from the login page")
	bruteCmd.Flags().StringVar(&successText, "success", "", "Body text that marks a successful login")
	bruteCmd.Flags().StringVar(&failureText, "failure", "", "Body text that marks a failed login")
	bruteCmd.Flags().BoolVar(&saveJSON, "json", false, "Save a JSON report under the data directory")

	rootCmd.AddCommand(getCmd, requestCmd, injectCmd, bruteCmd, loginCmd, formsCmd)

	rootCmd.Long = ui.AsciiArt + `
hprobe sends HTTP requests, flags missing security headers and disclosures,
fuzzes a query parameter with payload sets and brute forces login forms.

Usage:
   hprobe                      start the interactive shell
   hprobe [url]                same as 'hprobe get <url>'
   hprobe <command> [flags]

Example:
  hprobe get https://example.com
  hprobe request POST https://example.com/api -H "X-Api-Key: k" -d '{"a":1}' --json
  hprobe inject "https://example.com/search?q=" sql xss
  hprobe forms https://example.com/login
  hprobe brute https://example.com/login admin words.txt --csrf-field csrf_token --failure Invalid
  hprobe login https://example.com/login username=admin password=secret

Settings are read from .hprobe.yaml in the working directory.

This tool is intended for security testing on assets you own or have explicit permission to test.
`
}
