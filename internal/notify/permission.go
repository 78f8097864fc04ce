package notify

import (
	"context"
	"fmt"
)

// Permission mirrors the three states of a desktop notification grant.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission accepts the three permission names.
func ParsePermission(value string) (Permission, error) {
	switch p := Permission(value); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	}
	return "", fmt.Errorf("notify: unknown permission %q", value)
}

// Prompter asks the user whether reminders may be shown.
type Prompter interface {
	Prompt(ctx context.Context) (Permission, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (Permission, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context) (Permission, error) {
	return f(ctx)
}

// CommandPrompter grants permission when the notification command is
// installed and denies it otherwise.
type CommandPrompter struct {
	Notifier CommandNotifier
}

// Prompt checks for the command on PATH.
func (c CommandPrompter) Prompt(context.Context) (Permission, error) {
	if c.Notifier.Available() {
		return PermissionGranted, nil
	}
	return PermissionDenied, nil
}
