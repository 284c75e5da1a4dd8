package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/inboxpilot/internal/instrumentation"
)

// EventUpdate lists the fields to change on an existing event. Empty
// fields and a nil Attendees slice keep the current value.
type EventUpdate struct {
	Title     string   `json:"title,omitempty"`
	Start     string   `json:"start,omitempty"`
	End       string   `json:"end,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
	Location  string   `json:"location,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u EventUpdate) IsEmpty() bool {
	return strings.TrimSpace(u.Title) == "" &&
		strings.TrimSpace(u.Start) == "" &&
		strings.TrimSpace(u.End) == "" &&
		u.Attendees == nil &&
		u.Location == "" &&
		u.Notes == ""
}

// GetEvent returns one event.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*EventSummary, error) {
	event, err := c.getEvent(ctx, calendarID, eventID)
	if err != nil {
		return nil, err
	}
	summary := toEventSummary(event)
	return &summary, nil
}

// UpdateEvent merges update into an existing event without notifying
// attendees.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, update EventUpdate) (*EventSummary, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidProposal)
	}
	if err := validateUpdateTimes(update); err != nil {
		return nil, err
	}

	event, err := c.getEvent(ctx, calendarID, eventID)
	if err != nil {
		return nil, err
	}
	c.applyUpdate(event, update)

	var updated *calendar.Event
	err = c.call(ctx, instrumentation.OperationUpdate, func(ctx context.Context) error {
		var err error
		updated, err = c.svc.Events.Update(calendarOrPrimary(calendarID), eventID, event).SendUpdates("none").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", eventID, err)
	}

	c.logger.Info("updated calendar event", "event_id", eventID)
	summary := toEventSummary(updated)
	return &summary, nil
}

// DeleteEvent removes an event without notifying attendees.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	err := c.call(ctx, instrumentation.OperationDelete, func(ctx context.Context) error {
		return c.svc.Events.Delete(calendarOrPrimary(calendarID), eventID).SendUpdates("none").Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	c.logger.Info("deleted calendar event", "event_id", eventID)
	return nil
}

func (c *Client) getEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	if eventID == "" {
		return nil, errors.New("event id is required")
	}
	var event *calendar.Event
	err := c.call(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		event, err = c.svc.Events.Get(calendarOrPrimary(calendarID), eventID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return event, nil
}

func validateUpdateTimes(u EventUpdate) error {
	var start, end time.Time
	var err error
	if strings.TrimSpace(u.Start) != "" {
		if start, err = parseProposalTime(u.Start); err != nil {
			return fmt.Errorf("%w: start: %v", ErrInvalidProposal, err)
		}
	}
	if strings.TrimSpace(u.End) != "" {
		if end, err = parseProposalTime(u.End); err != nil {
			return fmt.Errorf("%w: end: %v", ErrInvalidProposal, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidProposal)
	}
	return nil
}

func (c *Client) applyUpdate(event *calendar.Event, u EventUpdate) {
	if title := strings.TrimSpace(u.Title); title != "" {
		event.Summary = title
	}
	if u.Notes != "" {
		event.Description = u.Notes
	}
	if u.Location != "" {
		event.Location = u.Location
	}
	if start := strings.TrimSpace(u.Start); start != "" {
		event.Start = &calendar.EventDateTime{DateTime: start, TimeZone: c.timeZone}
	}
	if end := strings.TrimSpace(u.End); end != "" {
		event.End = &calendar.EventDateTime{DateTime: end, TimeZone: c.timeZone}
	}
	if u.Attendees != nil {
		event.Attendees = nil
		for _, email := range u.Attendees {
			if email = strings.TrimSpace(email); email != "" {
				event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
			}
		}
	}
}

func calendarOrPrimary(id string) string {
	if id == "" {
		return PrimaryCalendar
	}
	return id
}
