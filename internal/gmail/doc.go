// Package gmail adapts the Gmail API to the mailbox model used by the rest
// of inboxpilot.
//
// The Client lists recent messages, loads message details, searches, and
// creates and applies labels. Message bodies are extracted by walking the
// MIME tree for text/plain and text/html parts; when a message only has an
// HTML part, a plain-text rendition is derived from it.
//
// Every API call waits on a rate limiter and is recorded as a Google API
// operation (counter, duration histogram and client span).
//
// Example usage:
//
//	provider := google.NewFileTokenProvider("")
//	client, err := gmail.NewClientForAccount(ctx, provider, "default")
//	if err != nil {
//	    return err
//	}
//	msgs, err := client.FetchCandidates(ctx, 7, 20)
package gmail
