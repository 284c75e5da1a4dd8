package google

// Scopes are the OAuth scopes the assistant needs: reading, sending and
// organizing mail, and managing calendar events.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.labels",
	"https://www.googleapis.com/auth/calendar",
}
