// Package llm talks to an OpenAI-compatible chat completion endpoint to
// evaluate auto-label rules and summarize emails.
//
// The client is only "ready" when an API key, a model and an API base URL
// are all configured. When it is not, rule evaluation falls back to an
// offline keyword heuristic and summaries are produced locally, so the rest
// of the system keeps working without network access.
package llm
