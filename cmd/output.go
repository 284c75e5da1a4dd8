package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/teemow/inboxpilot/internal/automation"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(timeLayout)
}

func printStatus(w io.Writer, st automation.Status) error {
	enabled := "disabled"
	if st.AutomationEnabled {
		enabled = "enabled"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Automation:\t%s\n", enabled)
	fmt.Fprintf(tw, "Rules:\t%d\n", st.RuleCount)
	fmt.Fprintf(tw, "Last run:\t%s\n", formatTime(st.LastRunAt))
	fmt.Fprintf(tw, "Last labeled:\t%d\n", st.LastLabeled)
	fmt.Fprintf(tw, "Last refresh:\t%s\n", formatTime(st.LastRefreshAt))
	if st.LastError != nil {
		fmt.Fprintf(tw, "Last error:\t%s\n", *st.LastError)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(st.Logs) > 0 {
		fmt.Fprintln(w)
		return printLogEntries(w, st.Logs)
	}
	return nil
}

func printRules(w io.Writer, rules []automation.Rule) error {
	if len(rules) == 0 {
		_, err := fmt.Fprintln(w, "No rules configured")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tREASON")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Label, r.Reason)
	}
	return tw.Flush()
}

func printLogEntries(w io.Writer, entries []automation.LogEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Local().Format(timeLayout), e.Level, e.Message)
	}
	return tw.Flush()
}
