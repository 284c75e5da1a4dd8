package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

const (
	evaluateMaxTokens    = 512
	heuristicConfidence  = 0.55
	heuristicExplanation = "Matched via offline keyword heuristic when LLM unavailable."
	minHeuristicToken    = 4
)

const evaluateSystemPrompt = `You are an email triage assistant that evaluates emails against user-defined labeling rules.
Decide which rules match the email based on each rule's reason. Consider the subject, the sender and the body.

MATCHING GUIDELINES:
- Only match a rule when the email clearly satisfies the condition described in its reason.
- The label field is only the tag name; the reason field describes when to apply it.
- When uncertain, do not match. False positives are worse than false negatives.

CONFIDENCE SCORING:
- 0.9-1.0: the email explicitly satisfies the rule.
- 0.7-0.9: strong match.
- 0.5-0.7: likely match with some ambiguity.
- below 0.5: do not include.

Respond with JSON only.`

// EvaluateRules returns the rules that apply to msg. Without a configured
// model it falls back to keyword matching.
func (c *Client) EvaluateRules(ctx context.Context, msg mailbox.Message, rules []automation.Rule) ([]automation.Match, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	if !c.Ready() {
		c.metrics.RecordEvaluation(ctx, instrumentation.EvaluationHeuristic)
		return heuristicMatches(msg, rules), nil
	}

	messages := []chatMessage{
		{Role: "system", Content: evaluateSystemPrompt},
		{Role: "user", Content: evaluatePrompt(msg, rules)},
	}
	text, err := c.complete(ctx, instrumentation.LLMOperationEvaluate, messages, 0, evaluateMaxTokens)
	if err != nil {
		return nil, err
	}

	matches, err := parseMatches(text)
	if err != nil {
		c.logger.Error("rule evaluation reply was unusable", logging.MessageID(msg.ID), "reply", mailbox.Truncate(text, maxErrorBody), logging.Err(err))
		return nil, err
	}
	return matches, nil
}

// heuristicMatches matches a rule when its label, or any reason word longer
// than three characters, occurs in the subject, sender or body.
func heuristicMatches(msg mailbox.Message, rules []automation.Rule) []automation.Match {
	parts := make([]string, 0, 3)
	for _, p := range []string{msg.Subject, msg.From, msg.Text()} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	corpus := strings.ToLower(strings.Join(parts, "\n"))

	var matches []automation.Match
	for _, rule := range rules {
		label := strings.TrimSpace(rule.Label)
		reason := strings.TrimSpace(rule.Reason)
		if rule.ID == "" || (label == "" && reason == "") {
			continue
		}

		var tokens []string
		if label != "" {
			tokens = append(tokens, strings.ToLower(label))
		}
		for _, word := range strings.Fields(reason) {
			if utf8.RuneCountInString(word) >= minHeuristicToken {
				tokens = append(tokens, strings.ToLower(word))
			}
		}

		for _, token := range tokens {
			if strings.Contains(corpus, token) {
				matches = append(matches, automation.Match{
					RuleID:      rule.ID,
					Confidence:  heuristicConfidence,
					Explanation: heuristicExplanation,
				})
				break
			}
		}
	}
	return matches
}

func evaluatePrompt(msg mailbox.Message, rules []automation.Rule) string {
	var b strings.Builder
	b.WriteString("EMAIL TO EVALUATE:\n")
	fmt.Fprintf(&b, "Subject: %s\n", orDefault(msg.Subject, "(no subject)"))
	fmt.Fprintf(&b, "From: %s\n", orDefault(msg.From, "(unknown sender)"))
	fmt.Fprintf(&b, "Body:\n%s\n\n", orDefault(msg.Text(), "(empty body)"))

	b.WriteString("RULES TO CHECK:\n")
	for _, rule := range rules {
		if rule.ID == "" {
			continue
		}
		fmt.Fprintf(&b, "  - Rule ID: %s, Label: %q, Reason: %q\n", rule.ID, rule.Label, rule.Reason)
	}

	b.WriteString("\nEvaluate each rule against this email and include rules that match with confidence >= 0.5.\n")
	b.WriteString("Produce a JSON object with this exact structure:\n")
	b.WriteString(`{"matches": [{"rule_id": "<id>", "confidence": <0.5-1.0>, "explanation": "<brief reason>"}]}`)
	b.WriteString("\nIf no rules match, return {\"matches\": []}. Return JSON only.")
	return b.String()
}

// parseMatches reads the matches list from a reply. Entries that are not
// objects or carry no rule_id are dropped; confidence may be a number or a
// numeric string.
func parseMatches(text string) ([]automation.Match, error) {
	var reply map[string]json.RawMessage
	if err := extractJSON(text, &reply); err != nil {
		return nil, fmt.Errorf("reply is not JSON: %w", err)
	}
	raw, ok := reply["matches"]
	if !ok {
		return nil, errMissingMatches
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, errMissingMatches
	}

	matches := make([]automation.Match, 0, len(entries))
	for _, entry := range entries {
		var m struct {
			RuleID      any    `json:"rule_id"`
			Confidence  any    `json:"confidence"`
			Explanation string `json:"explanation"`
		}
		if err := json.Unmarshal(entry, &m); err != nil {
			continue
		}
		id := stringValue(m.RuleID)
		if id == "" {
			continue
		}
		matches = append(matches, automation.Match{
			RuleID:      id,
			Confidence:  floatValue(m.Confidence),
			Explanation: m.Explanation,
		})
	}
	return matches, nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	default:
		return ""
	}
}

func floatValue(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%g", &f); err == nil {
			return f
		}
	}
	return 0
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
