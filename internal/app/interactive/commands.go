package interactive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/MOYARU/hprobe/internal/app/input"
	"github.com/MOYARU/hprobe/internal/app/session"
	"github.com/MOYARU/hprobe/internal/app/ui"
	msges "github.com/MOYARU/hprobe/internal/messages"
)

var helpLines = []string{
	"get <url> [--body]",
	"request <METHOD> <url> [-H 'Name: value'] [-d body] [--json] [--body]",
	"inject <url_template> [category...] [--concurrency N] [--json]",
	"brute <login_url> <user> <wordlist> [--user-field F] [--pass-field F] [--csrf-field F] [--success S] [--failure S] [--json]",
	"login <url> field=value ...",
	"forms <url>",
	"header set 'Name: value' | del <name> | list | save | load",
	"cookie list [url] | clear",
	"session save [url] | load",
	"payloads list [category...] | add <category> <value> | reset",
	"logs [channel] [n]",
	"stats",
	"config show | set <key> <value>",
	"help",
	"clear / cls",
	"exit / quit",
}

// processCommand runs one line and reports whether the shell should exit.
func (sh *Shell) processCommand(ctx context.Context, line string) bool {
	switch line {
	case "exit", "quit":
		sh.println(ui.ColorGray, msges.GetUIMessage("InteractiveExit"))
		return true
	case "clear", "cls":
		fmt.Fprint(sh.out, "\033[H\033[2J")
		return false
	case "help":
		sh.println(ui.ColorWhite, msges.GetUIMessage("InteractiveHelp"))
		for _, l := range helpLines {
			sh.println(ui.ColorGray, "  "+l)
		}
		return false
	}

	parts, err := input.Split(line)
	if err != nil {
		sh.println(ui.ColorRed, err.Error())
		return false
	}
	if len(parts) == 0 {
		return false
	}

	command, args := parts[0], parts[1:]
	handlers := map[string]func(context.Context, []string) error{
		"get":      sh.handleGet,
		"request":  sh.handleRequest,
		"inject":   sh.handleInject,
		"brute":    sh.handleBrute,
		"login":    sh.handleLogin,
		"forms":    sh.handleForms,
		"header":   sh.handleHeader,
		"cookie":   sh.handleCookie,
		"session":  sh.handleSession,
		"payloads": sh.handlePayloads,
		"logs":     sh.handleLogs,
		"stats":    sh.handleStats,
		"config":   sh.handleConfig,
	}
	h, ok := handlers[command]
	if !ok {
		sh.println(ui.ColorRed, msges.GetUIMessage("InteractiveErrorUnknown", command))
		return false
	}
	if err := h(ctx, args); err != nil {
		var u usageError
		switch {
		case errors.As(err, &u):
			sh.println(ui.ColorRed, msges.GetUIMessage("InteractiveUsage", string(u)))
		case errors.Is(err, session.ErrAborted):
		case errors.Is(err, context.Canceled):
			sh.println(ui.ColorYellow, msges.GetUIMessage("InteractiveCancelled"))
		default:
			sh.println(ui.ColorRed, err.Error())
		}
	}
	return false
}

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func (sh *Shell) println(color, text string) {
	fmt.Fprintf(sh.out, "%s%s%s\n", color, text, ui.ColorReset)
}

// shortFlags maps short flag names to the long name options are stored under.
var shortFlags = map[string]string{
	"H": "header",
	"d": "data",
	"c": "concurrency",
}

// flags splits args into positionals and options. Switches take no value;
// names in valued consume the next argument. Short forms are stored under
// their long name. Anything else starting with a dash is rejected.
func flags(args []string, switches []string, valued ...string) ([]string, map[string][]string, error) {
	var pos []string
	opts := map[string][]string{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || a == "-" {
			pos = append(pos, a)
			continue
		}
		name := strings.TrimLeft(a, "-")
		if long, ok := shortFlags[name]; ok {
			name = long
		}
		switch {
		case slices.Contains(switches, name):
			opts[name] = append(opts[name], "")
		case slices.Contains(valued, name):
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("flag %s needs a value", a)
			}
			opts[name] = append(opts[name], args[i+1])
			i++
		default:
			return nil, nil, fmt.Errorf("unknown flag %s", a)
		}
	}
	return pos, opts, nil
}

func last(opts map[string][]string, name string) string {
	v := opts[name]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

func has(opts map[string][]string, name string) bool {
	_, ok := opts[name]
	return ok
}

func (sh *Shell) handleGet(ctx context.Context, args []string) error {
	pos, opts, err := flags(args, []string{"body"})
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageError("get <url> [--body]")
	}
	_, err = sh.sess.Intercept(ctx, pos[0], has(opts, "body"))
	return err
}

func (sh *Shell) handleRequest(ctx context.Context, args []string) error {
	pos, opts, err := flags(args, []string{"json", "body"}, "header", "data")
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return usageError("request <METHOD> <url> [-H 'Name: value'] [-d body] [--json] [--body]")
	}
	spec := session.RequestSpec{
		Method:  pos[0],
		URL:     pos[1],
		Headers: opts["header"],
		Body:    last(opts, "data"),
		JSON:    has(opts, "json"),
	}
	_, err = sh.sess.Request(ctx, spec, has(opts, "body"))
	return err
}

func (sh *Shell) handleInject(ctx context.Context, args []string) error {
	pos, opts, err := flags(args, []string{"json"}, "concurrency")
	if err != nil {
		return err
	}
	if len(pos) < 1 {
		return usageError("inject <url_template> [category...] [--concurrency N] [--json]")
	}
	spec := session.InjectSpec{
		Template:   pos[0],
		Categories: pos[1:],
		SaveReport: has(opts, "json"),
	}
	if raw := last(opts, "concurrency"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid concurrency %q", raw)
		}
		spec.Concurrency = n
		if n == 0 {
			spec.Concurrency = -1
		}
	}
	_, err = sh.sess.Inject(ctx, spec)
	return err
}

func (sh *Shell) handleBrute(ctx context.Context, args []string) error {
	pos, opts, err := flags(args, []string{"json"}, "user-field", "pass-field", "csrf-field", "success", "failure")
	if err != nil {
		return err
	}
	if len(pos) != 3 {
		return usageError("brute <login_url> <user> <wordlist> [--user-field F] [--pass-field F] [--csrf-field F] [--success S] [--failure S] [--json]")
	}
	_, err = sh.sess.Brute(ctx, session.BruteSpec{
		LoginURL:         pos[0],
		Username:         pos[1],
		Wordlist:         pos[2],
		UsernameField:    last(opts, "user-field"),
		PasswordField:    last(opts, "pass-field"),
		CSRFField:        last(opts, "csrf-field"),
		SuccessIndicator: last(opts, "success"),
		FailureIndicator: last(opts, "failure"),
		SaveReport:       has(opts, "json"),
	})
	return err
}

func (sh *Shell) handleLogin(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("login <url> field=value ...")
	}
	fields, err := input.KeyValues(args[1:])
	if err != nil {
		return err
	}
	_, err = sh.sess.Login(ctx, args[0], fields)
	return err
}

func (sh *Shell) handleForms(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("forms <url>")
	}
	_, err := sh.sess.Forms(ctx, args[0])
	return err
}

func (sh *Shell) handleHeader(_ context.Context, args []string) error {
	const usage = usageError("header set 'Name: value' | del <name> | list | save | load")
	if len(args) == 0 {
		return usage
	}
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return usage
		}
		return sh.sess.SetHeader(strings.Join(args[1:], " "))
	case "del":
		if len(args) != 2 {
			return usage
		}
		return sh.sess.DeleteHeader(args[1])
	case "list":
		sh.sess.PrintHeaders()
		return nil
	case "save":
		return sh.sess.SaveHeaders()
	case "load":
		return sh.sess.LoadHeaders()
	}
	return usage
}

func (sh *Shell) handleCookie(_ context.Context, args []string) error {
	const usage = usageError("cookie list [url] | clear")
	switch {
	case len(args) >= 1 && args[0] == "list" && len(args) <= 2:
		target := ""
		if len(args) == 2 {
			target = args[1]
		}
		return sh.sess.PrintCookies(target)
	case len(args) == 1 && args[0] == "clear":
		return sh.sess.ClearCookies()
	}
	return usage
}

func (sh *Shell) handleSession(_ context.Context, args []string) error {
	const usage = usageError("session save [url] | load")
	switch {
	case len(args) >= 1 && args[0] == "save" && len(args) <= 2:
		target := ""
		if len(args) == 2 {
			target = args[1]
		}
		return sh.sess.SaveSession(target)
	case len(args) == 1 && args[0] == "load":
		return sh.sess.LoadSession()
	}
	return usage
}

func (sh *Shell) handlePayloads(_ context.Context, args []string) error {
	const usage = usageError("payloads list [category...] | add <category> <value> | reset")
	if len(args) == 0 {
		return usage
	}
	switch args[0] {
	case "list":
		return sh.sess.PrintPayloads(args[1:]...)
	case "add":
		if len(args) < 3 {
			return usage
		}
		return sh.sess.AddPayload(args[1], strings.Join(args[2:], " "))
	case "reset":
		return sh.sess.ResetPayloads()
	}
	return usage
}

func (sh *Shell) handleLogs(_ context.Context, args []string) error {
	channel, n := "", 20
	switch len(args) {
	case 0:
	case 1:
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		} else {
			channel = args[0]
		}
	case 2:
		v, err := strconv.Atoi(args[1])
		if err != nil || v <= 0 {
			return usageError("logs [channel] [n]")
		}
		channel, n = args[0], v
	default:
		return usageError("logs [channel] [n]")
	}
	return sh.sess.PrintLogs(channel, n)
}

func (sh *Shell) handleStats(_ context.Context, args []string) error {
	if len(args) != 0 {
		return usageError("stats")
	}
	sh.sess.PrintStats()
	return nil
}

func (sh *Shell) handleConfig(_ context.Context, args []string) error {
	const usage = usageError("config show | set <key> <value>")
	switch {
	case len(args) == 1 && args[0] == "show":
		return sh.sess.PrintConfig()
	case len(args) >= 3 && args[0] == "set":
		return sh.sess.SetConfig(args[1], strings.Join(args[2:], " "))
	}
	return usage
}
