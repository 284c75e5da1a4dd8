package mailbox

// EventProposal is a calendar event suggested from an email.
// Start and End are ISO-8601 timestamps.
type EventProposal struct {
	Title     string   `json:"title"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees"`
	Location  string   `json:"location"`
	Notes     string   `json:"notes"`
}

// Summary is a short description of an email plus any events it proposes.
type Summary struct {
	Text      string          `json:"text"`
	Proposals []EventProposal `json:"proposals"`
}
