package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventSummary is a simplified calendar event.
type EventSummary struct {
	ID          string         `json:"id"`
	Summary     string         `json:"summary"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	AllDay      bool           `json:"all_day,omitempty"`
	Organizer   string         `json:"organizer,omitempty"`
	Status      string         `json:"status,omitempty"`
	HTMLLink    string         `json:"html_link,omitempty"`
	Attendees   []AttendeeInfo `json:"attendees,omitempty"`
}

// AttendeeInfo describes one event attendee.
type AttendeeInfo struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"` // "needsAction", "declined", "tentative", "accepted"
}

// toEventSummary converts a Google Calendar event to an EventSummary.
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}
	summary.Start, summary.AllDay = parseEventTime(event.Start)
	summary.End, _ = parseEventTime(event.End)

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}
	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
		})
	}
	return summary
}

// parseEventTime reads either a timed or an all-day event boundary.
func parseEventTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t, false
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse(time.DateOnly, dt.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
