package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/mailcache"
)

const (
	defaultEmailDays  = 7
	defaultEmailLimit = 20
	maxEmailLimit     = 100

	// SummaryBodyLimit caps the body handed to the summarizer.
	SummaryBodyLimit = 4000

	sourceSnapshot = "snapshot"
	sourceLive     = "live"
)

type emailsResponse struct {
	Emails []mailbox.Message `json:"emails"`
	Source string            `json:"source"`
}

type summaryResponse struct {
	Email   mailbox.Message `json:"email"`
	Summary mailbox.Summary `json:"summary"`
}

type refreshResponse struct {
	Stored int               `json:"stored"`
	Status automation.Status `json:"status"`
}

func (a *api) handleListEmails(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", defaultEmailDays)
	if !ok || days < 1 {
		writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}
	limit, ok := queryInt(r, "limit", defaultEmailLimit)
	if !ok || limit < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxEmailLimit {
		limit = maxEmailLimit
	}

	if a.Snapshot != nil {
		msgs, err := a.Snapshot.Recent(r.Context(), days, limit)
		if err != nil {
			a.Logger.Warn("snapshot read failed, using live mailbox", logging.Err(err))
		} else if len(msgs) > 0 {
			writeJSON(w, http.StatusOK, emailsResponse{Emails: msgs, Source: sourceSnapshot})
			return
		}
	}

	if a.Mail == nil {
		writeError(w, http.StatusServiceUnavailable, "mailbox is not configured")
		return
	}
	msgs, err := a.Mail.FetchCandidates(r.Context(), days, limit)
	if err != nil {
		a.Logger.Error("list emails failed", logging.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if msgs == nil {
		msgs = []mailbox.Message{}
	}
	writeJSON(w, http.StatusOK, emailsResponse{Emails: msgs, Source: sourceLive})
}

func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := a.Automation.RefreshSnapshot(r.Context(), a.Refresher)
	var cfgErr *automation.ConfigurationError
	switch {
	case errors.Is(err, automation.ErrNoRefresher), errors.As(err, &cfgErr):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		a.Logger.Error("snapshot refresh failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, refreshResponse{Stored: n, Status: a.Automation.Status()})
	}
}

func (a *api) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, status, err := a.loadMessage(r, id)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	input := *msg
	input.Body = mailbox.Truncate(input.Body, SummaryBodyLimit)
	summary, err := a.Summarizer.Summarize(r.Context(), input)
	if err != nil {
		a.Logger.Error("summarize failed", logging.MessageID(id), logging.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Email: *msg, Summary: *summary})
}

// loadMessage reads a message from the snapshot, falling back to the live
// mailbox. The returned status is the HTTP code to use when err is set.
func (a *api) loadMessage(r *http.Request, id string) (*mailbox.Message, int, error) {
	if a.Snapshot != nil {
		msg, err := a.Snapshot.Get(r.Context(), id)
		if err == nil {
			return msg, http.StatusOK, nil
		}
		if !errors.Is(err, mailcache.ErrNotFound) {
			a.Logger.Warn("snapshot read failed, using live mailbox", logging.MessageID(id), logging.Err(err))
		}
	}

	if a.Mail == nil {
		return nil, http.StatusServiceUnavailable, errors.New("mailbox is not configured")
	}
	msg, err := a.Mail.FetchDetail(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			return nil, http.StatusNotFound, errors.New("email not found")
		}
		a.Logger.Error("fetch email failed", logging.MessageID(id), logging.Err(err))
		return nil, http.StatusBadGateway, err
	}
	return msg, http.StatusOK, nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
