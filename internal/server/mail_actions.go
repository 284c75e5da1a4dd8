package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

type replyRequest struct {
	Body    string `json:"body"`
	Subject string `json:"subject,omitempty"`
	Draft   bool   `json:"draft,omitempty"`
}

type actionResponse struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

func (a *api) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	if !a.actionsConfigured(w) {
		return
	}
	var msg mailbox.OutgoingMessage
	if err := decodeJSON(w, r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sent, err := a.Actions.SendEmail(r.Context(), msg)
	if err != nil {
		a.writeActionError(w, "", "send email failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

// handleReply sends a reply to the sender, or saves it as a draft when
// the request asks for one. Subject only applies to drafts.
func (a *api) handleReply(w http.ResponseWriter, r *http.Request) {
	if !a.actionsConfigured(w) {
		return
	}
	id := chi.URLParam(r, "id")
	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		sent *mailbox.SentMessage
		err  error
	)
	if req.Draft {
		sent, err = a.Actions.DraftReply(r.Context(), id, req.Body, req.Subject)
	} else {
		sent, err = a.Actions.ReplyToEmail(r.Context(), id, req.Body)
	}
	if err != nil {
		a.writeActionError(w, id, "reply failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (a *api) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if !a.actionsConfigured(w) {
		return
	}
	id := chi.URLParam(r, "id")
	read := true
	if raw := r.URL.Query().Get("read"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read must be true or false")
			return
		}
		read = v
	}

	if err := a.Actions.MarkRead(r.Context(), id, read); err != nil {
		a.writeActionError(w, id, "mark read failed", err)
		return
	}
	action := "marked_read"
	if !read {
		action = "marked_unread"
	}
	writeJSON(w, http.StatusOK, actionResponse{ID: id, Action: action})
}

func (a *api) handleArchive(w http.ResponseWriter, r *http.Request) {
	if !a.actionsConfigured(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Actions.Archive(r.Context(), id); err != nil {
		a.writeActionError(w, id, "archive failed", err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{ID: id, Action: "archived"})
}

func (a *api) handleDeleteEmail(w http.ResponseWriter, r *http.Request) {
	if !a.actionsConfigured(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Actions.DeleteMessage(r.Context(), id); err != nil {
		a.writeActionError(w, id, "delete email failed", err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{ID: id, Action: "deleted"})
}

func (a *api) actionsConfigured(w http.ResponseWriter) bool {
	if a.Actions == nil {
		writeError(w, http.StatusServiceUnavailable, "mailbox is not configured")
		return false
	}
	return true
}

func (a *api) writeActionError(w http.ResponseWriter, id, msg string, err error) {
	switch {
	case errors.Is(err, mailbox.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "email not found")
	default:
		a.Logger.Error(msg, logging.MessageID(id), logging.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
