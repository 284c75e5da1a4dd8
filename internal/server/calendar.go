package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

const (
	defaultEventDays = 7
	maxEventDays     = 90
)

func (a *api) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if a.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}
	days, ok := queryInt(r, "days", defaultEventDays)
	if !ok || days < 1 {
		writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}
	if days > maxEventDays {
		days = maxEventDays
	}

	now := time.Now().UTC()
	events, err := a.Calendar.ListEvents(r.Context(), calendar.PrimaryCalendar, now, now.AddDate(0, 0, days), r.URL.Query().Get("q"))
	if err != nil {
		a.Logger.Error("list events failed", logging.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if events == nil {
		events = []calendar.EventSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *api) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if a.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}
	var proposal mailbox.EventProposal
	if err := decodeJSON(w, r, &proposal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := a.Calendar.CreateEventFromProposal(r.Context(), proposal)
	switch {
	case errors.Is(err, calendar.ErrInvalidProposal):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		a.Logger.Error("create event failed", logging.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusCreated, event)
	}
}

func (a *api) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	if a.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	event, err := a.Calendar.GetEvent(r.Context(), calendar.PrimaryCalendar, id)
	if err != nil {
		a.writeEventError(w, id, "get event failed", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *api) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	if a.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	var update calendar.EventUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := a.Calendar.UpdateEvent(r.Context(), calendar.PrimaryCalendar, id, update)
	if err != nil {
		a.writeEventError(w, id, "update event failed", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *api) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if a.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Calendar.DeleteEvent(r.Context(), calendar.PrimaryCalendar, id); err != nil {
		a.writeEventError(w, id, "delete event failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (a *api) writeEventError(w http.ResponseWriter, id, msg string, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidProposal):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "event not found")
	default:
		a.Logger.Error(msg, "event_id", id, logging.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
