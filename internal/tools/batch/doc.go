// Package batch lets a tool accept one id or a list of ids and report a
// per-id outcome, so a single bad id does not fail the whole call.
package batch
