package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/config"
	"github.com/example/daylink/internal/identity"
	"github.com/example/daylink/internal/logging"
	"github.com/example/daylink/internal/notify"
	"github.com/example/daylink/internal/persistence/sessionfile"
	"github.com/example/daylink/internal/persistence/sqlite"
	"github.com/example/daylink/internal/vault"
)

// EnvPhrase supplies the phrase when --phrase is not given.
const EnvPhrase = "DAYLINK_PHRASE"

var errUsage = errors.New("usage")

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type command struct {
	usage   string
	// offline commands run without opening storage.
	offline bool
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"phrase":         {usage: "phrase", offline: true, run: runPhrase},
	"register":       {usage: "register [--username NAME] [--phrase PHRASE]", run: runRegister},
	"login":          {usage: "login [PHRASE]", run: runLogin},
	"logout":         {usage: "logout", run: runLogout},
	"whoami":         {usage: "whoami", run: runWhoami},
	"delete-account": {usage: "delete-account --yes", run: runDeleteAccount},
	"today":          {usage: "today", run: runToday},
	"next":           {usage: "next", run: runNext},
	"on":             {usage: "on YYYY-MM-DD", run: runOn},
	"ls":             {usage: "ls", run: runList},
	"add":            {usage: "add --title T --link URL --time HH:MM [--type P] [--repeat KIND] [--days D,D] [--dates YYYY-MM-DD,...] [--template ID]", run: runAdd},
	"rm":             {usage: "rm ID", run: runRemove},
	"export":         {usage: "export [--out FILE]", run: runExport},
	"import":         {usage: "import FILE [--phrase PHRASE]", run: runImport},
	"ics":            {usage: "ics export [--out FILE] | ics import FILE", run: runICS},
	"theme":          {usage: "theme [dark|light|system]", run: runTheme},
	"serve":          {usage: "serve [--listen ADDR]", run: runServe},
}

// app holds the services one invocation works with.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	io       streams
	getenv   func(string) string
	now      func() time.Time
	phrase   string
	store    *sqlite.Store
	sessions *sessionfile.Store
	vault    *vault.Vault

	profiles  *application.ProfileService
	meetings  *application.MeetingService
	reminders *notify.Scheduler
	notifier  notify.Notifier
	prompter  notify.Prompter
}

func run(ctx context.Context, args []string, std streams, getenv func(string) string) int {
	global := flag.NewFlagSet("daylink", flag.ContinueOnError)
	global.SetOutput(std.err)
	configPath := global.String("config", "", "config file path")
	phrase := global.String("phrase", "", "profile phrase (defaults to $"+EnvPhrase+" or the current session)")
	verbose := global.Bool("verbose", false, "log service activity to stderr")
	global.Usage = func() { printUsage(std.err) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(std.err)
		return 2
	}
	name := rest[0]
	if name == "help" {
		printUsage(std.out)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(std.err, "daylink: unknown command %q\n", name)
		printUsage(std.err)
		return 2
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath(getenv)
	}
	cfg, err := config.LoadFromEnv(path, getenv)
	if err != nil {
		fmt.Fprintf(std.err, "daylink: %v\n", err)
		return 1
	}

	a := &app{cfg: cfg, io: std, getenv: getenv, now: time.Now, phrase: *phrase}
	if a.phrase == "" {
		a.phrase = strings.TrimSpace(getenv(EnvPhrase))
	}
	a.logger = cliLogger(cfg, name, *verbose, std)

	if !cmd.offline {
		if err := a.open(ctx); err != nil {
			fmt.Fprintf(std.err, "daylink: %v\n", err)
			return 1
		}
		defer a.close()
	}

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(std.err, "usage: daylink %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintf(std.err, "daylink: %s\n", describeError(err))
		return 1
	}
	return 0
}

// cliLogger sends service logs to stderr. Commands stay quiet below warn
// unless --verbose is set; serve follows the configured level and format.
func cliLogger(cfg config.Config, name string, verbose bool, std streams) *slog.Logger {
	if name == "serve" {
		return logging.New(cfg.Log.Level, cfg.Log.Format, std.out)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logging.New(level, "text", std.err)
}

// open wires storage and the services over it.
func (a *app) open(ctx context.Context) error {
	store, err := sqlite.Open(ctx, sqlite.DefaultConfig(a.cfg.DatabasePath()))
	if err != nil {
		return err
	}
	a.store = store
	a.sessions = sessionfile.New(sessionfile.DefaultPath(a.getenv))
	a.vault = vault.New(store, store, identity.NewCipher(a.cfg.CipherParams()), a.now)

	a.notifier, a.prompter, err = buildNotifier(a.cfg.Notify, a.logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	permission, err := notify.ParsePermission(a.cfg.Notify.Permission)
	if err != nil {
		_ = store.Close()
		return err
	}
	a.reminders = notify.NewScheduler(a.notifier,
		notify.WithClock(a.now),
		notify.WithLogger(a.logger),
		notify.WithPermission(permission),
	)

	a.profiles = application.NewProfileServiceWithLogger(a.vault, a.sessions, a.now, a.logger)
	a.meetings = application.NewMeetingServiceWithLogger(a.profiles, a.reminders, identity.GenerateID, a.now, a.logger)
	return nil
}

func (a *app) close() {
	if a.reminders != nil {
		a.reminders.CancelAll()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", "error", err)
		}
		a.store = nil
	}
}

// unlock logs in with the explicit phrase or restores the saved session.
func (a *app) unlock(ctx context.Context) (application.Profile, error) {
	if a.phrase != "" {
		return a.profiles.Login(ctx, a.phrase)
	}
	restored, err := a.profiles.Restore(ctx)
	if err != nil {
		return application.Profile{}, fmt.Errorf("%w: %v", application.ErrPersistFailed, err)
	}
	if !restored {
		return application.Profile{}, application.ErrNotLoggedIn
	}
	profile, _ := a.profiles.Profile()
	return profile, nil
}

// buildNotifier always logs reminders and, when a command is configured,
// runs it as well. The prompter checks that the command is installed.
func buildNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, notify.Prompter, error) {
	logged := notify.LogNotifier{Logger: logger.With("component", "reminders")}
	if strings.TrimSpace(cfg.Command) == "" {
		grant := notify.PrompterFunc(func(context.Context) (notify.Permission, error) {
			return notify.PermissionGranted, nil
		})
		return logged, grant, nil
	}
	cmd, err := notify.ParseCommand(cfg.Command)
	if err != nil {
		return nil, nil, err
	}
	return notify.MultiNotifier{logged, cmd}, notify.CommandPrompter{Notifier: cmd}, nil
}

// describeError turns service errors into messages for the terminal.
func describeError(err error) string {
	switch {
	case errors.Is(err, application.ErrInvalidPhrase):
		return "phrase must look like ABCDE-12345"
	case errors.Is(err, application.ErrProfileNotFound):
		return "no profile opens with that phrase"
	case errors.Is(err, application.ErrPhraseInUse):
		return "a profile already exists for that phrase; use login"
	case errors.Is(err, application.ErrNotLoggedIn):
		return "not logged in; run `daylink login` or pass --phrase"
	case errors.Is(err, application.ErrInvalidBackup):
		return "the backup file is not valid"
	}
	var verr *application.ValidationError
	if errors.As(err, &verr) && verr.HasErrors() {
		fields := make([]string, 0, len(verr.FieldErrors))
		for field, msg := range verr.FieldErrors {
			fields = append(fields, field+": "+msg)
		}
		sort.Strings(fields)
		return "invalid input: " + strings.Join(fields, "; ")
	}
	return err.Error()
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: daylink [--config FILE] [--phrase PHRASE] [--verbose] <command> [args]")
	fmt.Fprintln(w, "\ncommands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}
