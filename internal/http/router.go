package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers into the API. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Session       *SessionHandler
	Profile       *ProfileHandler
	Meetings      *MeetingHandler
	Agenda        *AgendaHandler
	Calendar      *CalendarHandler
	Notifications *NotificationHandler
	// Auth guards every route that needs an unlocked profile.
	Auth       func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the API handler.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(fn http.HandlerFunc) http.Handler {
		if cfg.Auth == nil {
			return fn
		}
		return cfg.Auth(fn)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	if cfg.Session != nil {
		mux.HandleFunc("/phrases", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Session.GeneratePhrase(w, r)
		})
		mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Session.Status(w, r)
			case http.MethodPost:
				cfg.Session.Login(w, r)
			case http.MethodDelete:
				cfg.Session.Logout(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
			}
		})
		mux.HandleFunc("/session/register", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Session.Register(w, r)
		})
		account := protect(cfg.Session.DeleteAccount)
		mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			account.ServeHTTP(w, r)
		})
	}

	if cfg.Profile != nil {
		get, patch := protect(cfg.Profile.Get), protect(cfg.Profile.Patch)
		mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				get.ServeHTTP(w, r)
			case http.MethodPatch:
				patch.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPatch)
			}
		})
		export := protect(cfg.Profile.Export)
		mux.HandleFunc("/backup", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				export.ServeHTTP(w, r)
			case http.MethodPost:
				cfg.Profile.Import(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		getTheme, putTheme := protect(cfg.Profile.GetTheme), protect(cfg.Profile.PutTheme)
		mux.HandleFunc("/theme", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				getTheme.ServeHTTP(w, r)
			case http.MethodPut:
				putTheme.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		})
	}

	if cfg.Meetings != nil {
		list, create := protect(cfg.Meetings.List), protect(cfg.Meetings.Create)
		mux.HandleFunc("/meetings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				list.ServeHTTP(w, r)
			case http.MethodPost:
				create.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		reorder := protect(cfg.Meetings.Reorder)
		get, update, remove := protect(cfg.Meetings.Get), protect(cfg.Meetings.Update), protect(cfg.Meetings.Delete)
		mux.HandleFunc("/meetings/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/meetings/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if id == "order" {
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				reorder.ServeHTTP(w, r)
				return
			}
			r = r.WithContext(ContextWithMeetingID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				get.ServeHTTP(w, r)
			case http.MethodPut:
				update.ServeHTTP(w, r)
			case http.MethodDelete:
				remove.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})

		listTemplates, createTemplate := protect(cfg.Meetings.ListTemplates), protect(cfg.Meetings.CreateTemplate)
		mux.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				listTemplates.ServeHTTP(w, r)
			case http.MethodPost:
				createTemplate.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		deleteTemplate := protect(cfg.Meetings.DeleteTemplate)
		mux.HandleFunc("/templates/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/templates/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			deleteTemplate.ServeHTTP(w, r.WithContext(ContextWithTemplateID(r.Context(), id)))
		})
	}

	if cfg.Agenda != nil {
		routes := map[string]http.Handler{
			"/agenda/today": protect(cfg.Agenda.Today),
			"/agenda/next":  protect(cfg.Agenda.Next),
			"/agenda/date":  protect(cfg.Agenda.Date),
			"/agenda/range": protect(cfg.Agenda.Range),
		}
		for path, handler := range routes {
			handler := handler
			mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				handler.ServeHTTP(w, r)
			})
		}
	}

	if cfg.Calendar != nil {
		export, importer := protect(cfg.Calendar.Export), protect(cfg.Calendar.Import)
		mux.HandleFunc("/calendar.ics", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				export.ServeHTTP(w, r)
			case http.MethodPost:
				importer.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	if cfg.Notifications != nil {
		status, request := protect(cfg.Notifications.Status), protect(cfg.Notifications.RequestPermission)
		mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			status.ServeHTTP(w, r)
		})
		mux.HandleFunc("/notifications/permission", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			request.ServeHTTP(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
