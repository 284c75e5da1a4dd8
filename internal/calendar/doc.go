// Package calendar provides a client for the Google Calendar API.
//
// It lists events in a time range and turns event proposals extracted from
// emails into events on the primary calendar. Created events never send
// invitations to attendees.
//
// Example usage:
//
//	client, err := calendar.NewClientForAccount(ctx, provider, "default")
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListEvents(ctx, calendar.PrimaryCalendar, time.Now(), time.Now().AddDate(0, 0, 7), "")
package calendar
