package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// AutomationService is the automation query and command surface.
type AutomationService interface {
	Status() automation.Status
	Logs(days, limit int) automation.LogsPage
	ListRules() []automation.Rule
	AddRule(ctx context.Context, label, reason string) (automation.Rule, error)
	DeleteRule(ctx context.Context, id string) (bool, error)
	DeleteRules(ctx context.Context, ids []string) (map[string]bool, error)
	SetEnabled(ctx context.Context, enabled bool) (automation.Status, error)
	RunNow(ctx context.Context) automation.Status
	RefreshSnapshot(ctx context.Context, r automation.Refresher) (int, error)
}

// Snapshot is the local copy of recent mail.
type Snapshot interface {
	Recent(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error)
	Get(ctx context.Context, id string) (*mailbox.Message, error)
}

// Summarizer condenses an email and proposes calendar events.
type Summarizer interface {
	Summarize(ctx context.Context, msg mailbox.Message) (*mailbox.Summary, error)
}

// CalendarService reads and edits calendar events.
type CalendarService interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, query string) ([]calendar.EventSummary, error)
	CreateEventFromProposal(ctx context.Context, proposal mailbox.EventProposal) (*calendar.EventSummary, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.EventSummary, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, update calendar.EventUpdate) (*calendar.EventSummary, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// MailActions sends mail and changes the state of existing messages.
type MailActions interface {
	SendEmail(ctx context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error)
	ReplyToEmail(ctx context.Context, messageID, body string) (*mailbox.SentMessage, error)
	DraftReply(ctx context.Context, messageID, body, subject string) (*mailbox.SentMessage, error)
	ComposeDraft(ctx context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error)
	DeleteMessage(ctx context.Context, id string) error
	MarkRead(ctx context.Context, id string, read bool) error
	Archive(ctx context.Context, id string) error
}

// Deps are the collaborators behind the API. Snapshot, Mail, Actions,
// Refresher and Calendar may be nil; their endpoints then answer 503.
type Deps struct {
	Automation AutomationService
	Snapshot   Snapshot
	Mail       automation.MailSource
	Actions    MailActions
	Refresher  automation.Refresher
	Summarizer Summarizer
	Calendar   CalendarService
	Health     *HealthChecker
	Metrics    *instrumentation.Metrics
	Logger     logging.Logger

	// Tracing wraps the router with otelhttp server spans.
	Tracing bool

	// ReadOnly rejects requests that send, delete or change mail and
	// that change or delete existing calendar events.
	ReadOnly bool
}

type api struct {
	Deps
}

// NewRouter builds the REST API handler.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logging.DefaultLogger()
	}
	if deps.Health == nil {
		deps.Health = NewHealthChecker()
	}
	a := &api{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.recordRequests)

	deps.Health.Register(r)

	r.Route("/api", func(r chi.Router) {
		r.Route("/automation", func(r chi.Router) {
			r.Get("/status", a.handleStatus)
			r.Get("/logs", a.handleLogs)
			r.Get("/rules", a.handleListRules)
			r.Post("/rules", a.handleAddRule)
			r.Delete("/rules/{id}", a.handleDeleteRule)
			r.Post("/enabled", a.handleSetEnabled)
			r.Post("/run", a.handleRun)
		})
		r.Route("/emails", func(r chi.Router) {
			r.Get("/", a.handleListEmails)
			r.Post("/refresh", a.handleRefresh)
			r.Get("/{id}/summary", a.handleSummary)
			r.Group(func(r chi.Router) {
				r.Use(a.requireWrite)
				r.Post("/send", a.handleSendEmail)
				r.Post("/{id}/reply", a.handleReply)
				r.Post("/{id}/read", a.handleMarkRead)
				r.Post("/{id}/archive", a.handleArchive)
				r.Delete("/{id}", a.handleDeleteEmail)
			})
		})
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/events", a.handleListEvents)
			r.Post("/events", a.handleCreateEvent)
			r.Get("/events/{id}", a.handleGetEvent)
			r.Group(func(r chi.Router) {
				r.Use(a.requireWrite)
				r.Put("/events/{id}", a.handleUpdateEvent)
				r.Delete("/events/{id}", a.handleDeleteEvent)
			})
		})
	})

	if deps.Tracing {
		return otelhttp.NewHandler(r, "inboxpilot.api")
	}
	return r
}

// recordRequests records request count and latency per route pattern so
// ids in the path do not inflate metric cardinality.
func (a *api) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.Metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, status, time.Since(start))
	})
}

func (a *api) requireWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.ReadOnly {
			writeError(w, http.StatusForbidden, "write operations are disabled; start the server with --yolo")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// queryInt parses an integer query parameter, returning def when it is
// absent. ok is false when the value is present but not a number.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
