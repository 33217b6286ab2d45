package classify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeBlockRe strips markdown code fences from model output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractObject finds the first well-formed JSON object in raw model text.
// It handles common model quirks: markdown code fences, prose before or
// after the object.
func extractObject(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}

// modelOutput is the wire shape of the classification response. Items stay
// raw until the category tells us which schema to decode them with.
type modelOutput struct {
	Category   string `json:"category"`
	Summary    string `json:"summary"`
	Structured *struct {
		Title  string            `json:"title"`
		Items  json.RawMessage   `json:"items"`
		Totals map[string]string `json:"totals"`
	} `json:"structured"`
}

// parseModelOutput turns raw model text into a classification Result.
// A missing or malformed object is an error; the caller degrades to
// CategoryUnknown. A malformed structured section inside an otherwise valid
// object only drops the payload; the category and summary survive.
func parseModelOutput(raw string) (*Result, error) {
	objStr, err := extractObject(raw)
	if err != nil {
		return nil, err
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(objStr), &out); err != nil {
		return nil, fmt.Errorf("decoding classification object: %w", err)
	}

	res := &Result{
		Category: ParseCategory(out.Category),
		Text:     strings.TrimSpace(out.Summary),
	}
	if res.Text == "" {
		res.Text = strings.TrimSpace(raw)
	}

	if out.Structured != nil && res.Category != CategoryUnknown {
		res.Structured = decodePayload(res.Category, out)
	}
	return res, nil
}

func decodePayload(cat Category, out modelOutput) *Payload {
	p := &Payload{
		Title:  out.Structured.Title,
		Totals: out.Structured.Totals,
	}

	items := out.Structured.Items
	if len(items) == 0 {
		return nil
	}

	var err error
	switch cat {
	case CategorySchedule:
		err = json.Unmarshal(items, &p.Schedule)
	case CategoryInvoice:
		err = json.Unmarshal(items, &p.Invoice)
	case CategoryHealthcare:
		err = json.Unmarshal(items, &p.Healthcare)
	}
	if err != nil || p.ItemCount() == 0 {
		return nil
	}
	return p
}
