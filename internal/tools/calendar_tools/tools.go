package calendar_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

const (
	defaultDays = 7
	maxDays     = 90
)

var errNoCalendar = errors.New("google calendar is not configured; authorize an account first")

// RegisterCalendarTools registers the calendar tools. Tools that create,
// change or delete events are only registered when svc is not read-only.
func RegisterCalendarTools(s *mcpserver.MCPServer, svc *common.Services) error {
	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List calendar events within a time range"),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (default: 'primary')"),
		),
		mcp.WithString("timeMin",
			mcp.Description("Start of the range (RFC3339, default: now)"),
		),
		mcp.WithString("timeMax",
			mcp.Description("End of the range (RFC3339, default: timeMin plus 'days')"),
		),
		mcp.WithNumber("days",
			mcp.Description("Range length in days when timeMax is not set (default: 7, max: 90)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional free text filter"),
		),
	)
	s.AddTool(listEventsTool, common.InstrumentedToolHandler("calendar_list_events", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, svc, time.Now())
		}))

	getEventTool := mcp.NewTool("calendar_get_event",
		mcp.WithDescription("Get one calendar event by ID"),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The event ID"),
		),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (default: 'primary')"),
		),
	)
	s.AddTool(getEventTool, common.InstrumentedToolHandler("calendar_get_event", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEvent(ctx, request, svc)
		}))

	if svc.ReadOnly {
		return nil
	}

	createEventTool := mcp.NewTool("calendar_create_event",
		mcp.WithDescription("Create an event on the primary calendar, typically from a proposal returned by email_summarize. Attendees are not notified."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time (RFC3339 or local '2006-01-02T15:04:05')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time (RFC3339 or local '2006-01-02T15:04:05')"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithString("notes",
			mcp.Description("Event description"),
		),
	)
	s.AddTool(createEventTool, common.InstrumentedToolHandler("calendar_create_event", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, svc)
		}))

	updateEventTool := mcp.NewTool("calendar_update_event",
		mcp.WithDescription("Change an existing event. Only the given fields change. Attendees are not notified."),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The event ID"),
		),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (default: 'primary')"),
		),
		mcp.WithString("title",
			mcp.Description("New event title"),
		),
		mcp.WithString("start",
			mcp.Description("New start time (RFC3339 or local '2006-01-02T15:04:05')"),
		),
		mcp.WithString("end",
			mcp.Description("New end time (RFC3339 or local '2006-01-02T15:04:05')"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated attendee addresses, replacing the current list"),
		),
		mcp.WithString("location",
			mcp.Description("New location"),
		),
		mcp.WithString("notes",
			mcp.Description("New description"),
		),
	)
	s.AddTool(updateEventTool, common.InstrumentedToolHandler("calendar_update_event", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateEvent(ctx, request, svc)
		}))

	deleteEventTool := mcp.NewTool("calendar_delete_event",
		mcp.WithDescription("Delete an event. Attendees are not notified."),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The event ID"),
		),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (default: 'primary')"),
		),
	)
	s.AddTool(deleteEventTool, common.InstrumentedToolHandler("calendar_delete_event", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, request, svc)
		}))

	return nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, svc *common.Services, now time.Time) (*mcp.CallToolResult, error) {
	if svc.Calendar == nil {
		return mcp.NewToolResultError(errNoCalendar.Error()), nil
	}
	args := request.GetArguments()

	calendarID := common.StringArg(args, "calendarId")
	if calendarID == "" {
		calendarID = calendar.PrimaryCalendar
	}

	timeMin := now.UTC()
	if raw := common.StringArg(args, "timeMin"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid timeMin: %v", err)), nil
		}
		timeMin = t
	}

	days := common.ClampInt(common.IntArg(args, "days", defaultDays), 1, maxDays)
	timeMax := timeMin.AddDate(0, 0, days)
	if raw := common.StringArg(args, "timeMax"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid timeMax: %v", err)), nil
		}
		timeMax = t
	}
	if !timeMax.After(timeMin) {
		return mcp.NewToolResultError("timeMax must be after timeMin"), nil
	}

	events, err := svc.Calendar.ListEvents(ctx, calendarID, timeMin, timeMax, common.StringArg(args, "query"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list events: %v", err)), nil
	}
	if events == nil {
		events = []calendar.EventSummary{}
	}
	return common.JSONResult(map[string]any{
		"calendarId": calendarID,
		"count":      len(events),
		"events":     events,
	})
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Calendar == nil {
		return mcp.NewToolResultError(errNoCalendar.Error()), nil
	}
	args := request.GetArguments()

	proposal := mailbox.EventProposal{
		Title:     common.StringArg(args, "title"),
		Start:     common.StringArg(args, "start"),
		End:       common.StringArg(args, "end"),
		Attendees: mailbox.SplitAddresses(common.StringArg(args, "attendees")),
		Location:  common.StringArg(args, "location"),
		Notes:     common.StringArg(args, "notes"),
	}

	event, err := svc.Calendar.CreateEventFromProposal(ctx, proposal)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create event: %v", err)), nil
	}
	return common.JSONResult(event)
}

// eventArgs returns the calendar and event ids of a request.
func eventArgs(args map[string]interface{}) (calendarID, eventID string) {
	calendarID = common.StringArg(args, "calendarId")
	if calendarID == "" {
		calendarID = calendar.PrimaryCalendar
	}
	return calendarID, common.StringArg(args, "eventId")
}

func handleGetEvent(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Calendar == nil {
		return mcp.NewToolResultError(errNoCalendar.Error()), nil
	}
	calendarID, eventID := eventArgs(request.GetArguments())
	if eventID == "" {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	event, err := svc.Calendar.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get event: %v", err)), nil
	}
	return common.JSONResult(event)
}

func handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Calendar == nil {
		return mcp.NewToolResultError(errNoCalendar.Error()), nil
	}
	args := request.GetArguments()
	calendarID, eventID := eventArgs(args)
	if eventID == "" {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	update := calendar.EventUpdate{
		Title:    common.StringArg(args, "title"),
		Start:    common.StringArg(args, "start"),
		End:      common.StringArg(args, "end"),
		Location: common.StringArg(args, "location"),
		Notes:    common.StringArg(args, "notes"),
	}
	if _, ok := args["attendees"]; ok {
		update.Attendees = mailbox.SplitAddresses(common.StringArg(args, "attendees"))
		if update.Attendees == nil {
			update.Attendees = []string{}
		}
	}

	event, err := svc.Calendar.UpdateEvent(ctx, calendarID, eventID, update)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update event: %v", err)), nil
	}
	return common.JSONResult(event)
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Calendar == nil {
		return mcp.NewToolResultError(errNoCalendar.Error()), nil
	}
	calendarID, eventID := eventArgs(request.GetArguments())
	if eventID == "" {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	if err := svc.Calendar.DeleteEvent(ctx, calendarID, eventID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete event: %v", err)), nil
	}
	return common.JSONResult(map[string]any{
		"calendarId": calendarID,
		"eventId":    eventID,
		"deleted":    true,
	})
}
