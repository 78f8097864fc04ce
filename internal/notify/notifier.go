package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Notification is a single reminder ready for delivery.
type Notification struct {
	MeetingID          string
	Kind               Kind
	Title              string
	Body               string
	Tag                string
	Link               string
	RequireInteraction bool
}

// Notifier delivers reminders to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes reminders to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at info level.
func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, n.Title,
		"body", n.Body,
		"tag", n.Tag,
		"meeting_id", n.MeetingID,
		"require_interaction", n.RequireInteraction,
	)
	return nil
}

// CommandNotifier runs a desktop notification command such as notify-send.
// The title and body are appended as the final two arguments.
type CommandNotifier struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(line string) (CommandNotifier, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandNotifier{}, errors.New("notify: empty notification command")
	}
	return CommandNotifier{Command: fields[0], Args: fields[1:], Timeout: 10 * time.Second}, nil
}

// Notify runs the command and waits for it to exit.
func (c CommandNotifier) Notify(ctx context.Context, n Notification) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	args := append(append([]string(nil), c.Args...), n.Title, n.Body)
	out, err := exec.CommandContext(ctx, c.Command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify: run %s: %w: %s", c.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Available reports whether the command can be found on PATH.
func (c CommandNotifier) Available() bool {
	_, err := exec.LookPath(c.Command)
	return err == nil
}

// MultiNotifier fans a reminder out to every notifier and joins their errors.
type MultiNotifier []Notifier

// Notify delivers n to each notifier in order.
func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
