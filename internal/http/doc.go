// Package http provides the local JSON API served by `daylink serve`.
//
// The router exposes the following endpoints:
//   - GET /health: liveness probe.
//   - POST /phrases: generates a fresh AAAAA-BBBBB phrase.
//   - GET /session, POST /session, DELETE /session: session status, login
//     with {"phrase"}, logout. POST /session/register creates a profile from
//     {"phrase","username"}.
//   - DELETE /account: erases the active profile and logs out.
//   - GET /profile, PATCH /profile: the profile without its phrase; PATCH
//     merges username and preference fields.
//   - GET /meetings, POST /meetings, GET|PUT|DELETE /meetings/{id},
//     PUT /meetings/order: meeting list editing. POST accepts a templateId.
//   - GET /templates, POST /templates, DELETE /templates/{id}.
//   - GET /agenda/today, /agenda/next, /agenda/date?date=,
//     /agenda/range?from=&to=: agenda queries with overlap warnings.
//   - GET /backup, POST /backup: backup export and import ({backup, phrase}).
//   - GET /calendar.ics, POST /calendar.ics: iCalendar export and import.
//   - GET /notifications, POST /notifications/permission.
//   - GET /theme, PUT /theme.
//
// Everything except health, phrases, session, register and backup import
// requires an unlocked profile and answers 401 otherwise. Errors are JSON
// {"error_code","message","errors"}.
package http
