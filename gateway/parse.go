package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/modepilot/internal/util"
)

// decisionSchema is the (non-strict) schema decision replies are validated
// against after decoding. Strict variants of the same shapes are exposed via
// DecisionSchema / DraftSchema for providers with structured output support.
var decisionSchema = util.CreateSchema(Decision{})

// DecisionSchema returns the strict JSON schema for decision replies.
func DecisionSchema() map[string]any {
	return util.CreateStrictSchema(Decision{})
}

// DraftSchema returns the strict JSON schema for summarization replies.
func DraftSchema() map[string]any {
	return util.CreateStrictSchema(draftEnvelope{})
}

// ExtractJSONObject strips markdown fences and surrounding prose from a model
// reply and returns the outermost JSON object.
func ExtractJSONObject(response string) (string, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}

	return response[start : end+1], nil
}

// ParseDecision extracts the decision from a model reply. The mode label is
// trimmed but otherwise returned verbatim; catalogue validation is the
// engine's job.
func ParseDecision(response string) (*Decision, error) {
	doc, err := ExtractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(doc), &params); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}

	if err := util.ValidateParameters(params, decisionSchema); err != nil {
		return nil, err
	}

	mode, _ := params["mode"].(string)
	rationale, _ := params["rationale"].(string)

	return &Decision{
		Mode:      strings.TrimSpace(mode),
		Rationale: strings.TrimSpace(rationale),
	}, nil
}

// ParseRuleDrafts extracts rule drafts from a model reply. Replies carry a
// {"rules": [...]} envelope; entries may be objects with a rule_text field or
// bare strings. Blank entries are dropped. An empty (but well-formed) rules
// array yields an empty slice, not an error.
func ParseRuleDrafts(response string) ([]RuleDraft, error) {
	doc, err := ExtractJSONObject(response)
	if err != nil {
		return nil, err
	}

	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("JSON parse error: malformed document")
	}

	rules := gjson.Get(doc, "rules")
	if !rules.Exists() || !rules.IsArray() {
		return nil, fmt.Errorf("no rules array found in response")
	}

	items := rules.Array()
	drafts := make([]RuleDraft, 0, len(items))
	for _, item := range items {
		var text string
		switch {
		case item.IsObject():
			text = item.Get("rule_text").String()
		case item.Type == gjson.String:
			text = item.String()
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		drafts = append(drafts, RuleDraft{Text: text})
	}

	return drafts, nil
}
