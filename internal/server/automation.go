package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/logging"
)

const (
	defaultLogDays  = 7
	defaultLogLimit = 100
)

type addRuleRequest struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (a *api) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Automation.Status())
}

func (a *api) handleLogs(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", defaultLogDays)
	if !ok {
		writeError(w, http.StatusBadRequest, "days must be an integer")
		return
	}
	limit, ok := queryInt(r, "limit", defaultLogLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	writeJSON(w, http.StatusOK, a.Automation.Logs(days, limit))
}

func (a *api) handleListRules(w http.ResponseWriter, _ *http.Request) {
	rules := a.Automation.ListRules()
	if rules == nil {
		rules = []automation.Rule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (a *api) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var req addRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := a.Automation.AddRule(r.Context(), req.Label, req.Reason)
	switch {
	case errors.Is(err, automation.ErrInvalidRule):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		a.Logger.Error("add rule failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, rule)
	}
}

func (a *api) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := a.Automation.DeleteRule(r.Context(), id)
	switch {
	case err != nil:
		a.Logger.Error("delete rule failed", logging.Rule(id), logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	case !removed:
		writeError(w, http.StatusNotFound, "rule not found")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
	}
}

func (a *api) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled must be a boolean")
		return
	}

	status, err := a.Automation.SetEnabled(r.Context(), *req.Enabled)
	if err != nil {
		a.Logger.Error("set automation enabled failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *api) handleRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Automation.RunNow(r.Context()))
}
