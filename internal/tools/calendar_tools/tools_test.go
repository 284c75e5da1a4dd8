package calendar_tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

type fakeCalendar struct {
	calendarID string
	timeMin    time.Time
	timeMax    time.Time
	created    []mailbox.EventProposal
	updates    map[string]calendar.EventUpdate
	deleted    []string
}

func (f *fakeCalendar) GetEvent(_ context.Context, calendarID, eventID string) (*calendar.EventSummary, error) {
	f.calendarID = calendarID
	if eventID != "e1" {
		return nil, errors.New("404 not found")
	}
	return &calendar.EventSummary{ID: "e1", Summary: "Standup"}, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, calendarID, eventID string, update calendar.EventUpdate) (*calendar.EventSummary, error) {
	if update.IsEmpty() {
		return nil, calendar.ErrInvalidProposal
	}
	if f.updates == nil {
		f.updates = map[string]calendar.EventUpdate{}
	}
	f.calendarID = calendarID
	f.updates[eventID] = update
	return &calendar.EventSummary{ID: eventID, Summary: update.Title}, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	f.calendarID = calendarID
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) ListEvents(_ context.Context, calendarID string, timeMin, timeMax time.Time, _ string) ([]calendar.EventSummary, error) {
	f.calendarID, f.timeMin, f.timeMax = calendarID, timeMin, timeMax
	return []calendar.EventSummary{{ID: "e1", Summary: "Standup"}}, nil
}

func (f *fakeCalendar) CreateEventFromProposal(_ context.Context, p mailbox.EventProposal) (*calendar.EventSummary, error) {
	if p.Title == "" {
		return nil, calendar.ErrInvalidProposal
	}
	f.created = append(f.created, p)
	return &calendar.EventSummary{ID: "new", Summary: p.Title}, nil
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func TestRegisterCalendarTools(t *testing.T) {
	tests := []struct {
		name      string
		readOnly  bool
		wantWrite bool
	}{
		{name: "read-only", readOnly: true, wantWrite: false},
		{name: "write mode", readOnly: false, wantWrite: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
			require.NoError(t, RegisterCalendarTools(s, &common.Services{ReadOnly: tt.readOnly}))

			tools := s.ListTools()
			assert.Contains(t, tools, "calendar_list_events")
			assert.Contains(t, tools, "calendar_get_event")
			for _, name := range []string{"calendar_create_event", "calendar_update_event", "calendar_delete_event"} {
				_, ok := tools[name]
				assert.Equal(t, tt.wantWrite, ok, name)
			}
		})
	}
}

func TestHandleListEvents(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr bool
		wantMin time.Time
		wantMax time.Time
	}{
		{
			name:    "defaults",
			args:    map[string]interface{}{},
			wantMin: now,
			wantMax: now.AddDate(0, 0, 7),
		},
		{
			name:    "days clamped",
			args:    map[string]interface{}{"days": float64(365)},
			wantMin: now,
			wantMax: now.AddDate(0, 0, 90),
		},
		{
			name: "explicit range",
			args: map[string]interface{}{
				"timeMin": "2026-11-01T00:00:00Z",
				"timeMax": "2026-11-02T00:00:00Z",
			},
			wantMin: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
			wantMax: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "bad timeMin",
			args:    map[string]interface{}{"timeMin": "tomorrow"},
			wantErr: true,
		},
		{
			name: "inverted range",
			args: map[string]interface{}{
				"timeMin": "2026-11-02T00:00:00Z",
				"timeMax": "2026-11-01T00:00:00Z",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := &fakeCalendar{}
			svc := &common.Services{Calendar: cal, Logger: logging.Discard()}

			result, err := handleListEvents(context.Background(), request(tt.args), svc, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, result.IsError)
			if tt.wantErr {
				return
			}
			assert.Equal(t, calendar.PrimaryCalendar, cal.calendarID)
			assert.True(t, tt.wantMin.Equal(cal.timeMin), "timeMin %v", cal.timeMin)
			assert.True(t, tt.wantMax.Equal(cal.timeMax), "timeMax %v", cal.timeMax)
		})
	}
}

func TestHandleCreateEvent(t *testing.T) {
	cal := &fakeCalendar{}
	svc := &common.Services{Calendar: cal}

	result, err := handleCreateEvent(context.Background(), request(map[string]interface{}{
		"title":     "Lunch",
		"start":     "2026-10-20T12:00:00Z",
		"end":       "2026-10-20T13:00:00Z",
		"attendees": "a@example.com, ,b@example.com",
	}), svc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, cal.created, 1)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cal.created[0].Attendees)

	result, err = handleCreateEvent(context.Background(), request(map[string]interface{}{"start": "x"}), svc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetEvent(t *testing.T) {
	cal := &fakeCalendar{}
	svc := &common.Services{Calendar: cal}

	result, err := handleGetEvent(context.Background(), request(map[string]interface{}{"eventId": "e1", "calendarId": "work"}), svc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "work", cal.calendarID)

	result, err = handleGetEvent(context.Background(), request(map[string]interface{}{"eventId": "nope"}), svc)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handleGetEvent(context.Background(), request(map[string]interface{}{}), svc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleUpdateEvent(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr bool
		want    calendar.EventUpdate
	}{
		{
			name: "title only keeps attendees",
			args: map[string]interface{}{"eventId": "e1", "title": "Retro"},
			want: calendar.EventUpdate{Title: "Retro"},
		},
		{
			name: "attendees replaced",
			args: map[string]interface{}{"eventId": "e1", "attendees": "a@example.com, b@example.com"},
			want: calendar.EventUpdate{Attendees: []string{"a@example.com", "b@example.com"}},
		},
		{
			name: "attendees cleared",
			args: map[string]interface{}{"eventId": "e1", "attendees": ""},
			want: calendar.EventUpdate{Attendees: []string{}},
		},
		{name: "nothing to update", args: map[string]interface{}{"eventId": "e1"}, wantErr: true},
		{name: "missing id", args: map[string]interface{}{"title": "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := &fakeCalendar{}
			svc := &common.Services{Calendar: cal}

			result, err := handleUpdateEvent(context.Background(), request(tt.args), svc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, result.IsError)
			if tt.wantErr {
				return
			}
			assert.Equal(t, calendar.PrimaryCalendar, cal.calendarID)
			assert.Equal(t, tt.want, cal.updates["e1"])
		})
	}
}

func TestHandleDeleteEvent(t *testing.T) {
	cal := &fakeCalendar{}
	svc := &common.Services{Calendar: cal}

	result, err := handleDeleteEvent(context.Background(), request(map[string]interface{}{"eventId": "e1"}), svc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"e1"}, cal.deleted)

	result, err = handleDeleteEvent(context.Background(), request(map[string]interface{}{}), svc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandlers_NoCalendar(t *testing.T) {
	svc := &common.Services{}

	result, err := handleListEvents(context.Background(), request(nil), svc, time.Now())
	require.NoError(t, err)
	assert.True(t, result.IsError)

	for _, handler := range []func(context.Context, mcp.CallToolRequest, *common.Services) (*mcp.CallToolResult, error){
		handleCreateEvent, handleGetEvent, handleUpdateEvent, handleDeleteEvent,
	} {
		result, err = handler(context.Background(), request(nil), svc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}
}
