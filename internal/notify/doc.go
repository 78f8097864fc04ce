// Package notify arms one-shot reminders for today's meetings and delivers
// them through a Notifier once the user has granted permission.
package notify
