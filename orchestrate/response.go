package orchestrate

import (
	"regexp"
	"strings"
)

// MarkupDelimiter is the fixed token a generation response uses to separate
// the user-facing message from replacement markup. Its absence makes the
// turn question-only; the model mutates state solely by emitting it.
const MarkupDelimiter = "---HTML---"

// ResponseKind tags the two possible outcomes of a generation response.
type ResponseKind int

const (
	// ResponseAnswer carries only a conversational message.
	ResponseAnswer ResponseKind = iota
	// ResponseUpdate carries a message and replacement markup.
	ResponseUpdate
)

// ParsedResponse is the tagged result of parsing raw model output.
type ParsedResponse struct {
	Kind    ResponseKind
	Message string
	Markup  string // set only for ResponseUpdate
}

// fenceRe matches a whole markdown code fence so surrounding ``` markers can
// be stripped from markup sections.
var fenceRe = regexp.MustCompile("(?s)\\A```[a-zA-Z]*\\s*\\n?(.*?)\\n?```\\s*\\z")

// ParseResponse splits raw model output on the delimiter token. The model is
// untrusted text: duplicate delimiters collapse into the first split, and a
// delimiter followed by nothing usable degrades to an answer-only result so
// an empty update can never wipe existing markup.
func ParseResponse(raw string) ParsedResponse {
	idx := strings.Index(raw, MarkupDelimiter)
	if idx < 0 {
		return ParsedResponse{Kind: ResponseAnswer, Message: strings.TrimSpace(raw)}
	}

	message := strings.TrimSpace(raw[:idx])
	markup := raw[idx+len(MarkupDelimiter):]

	// A duplicated delimiter inside the markup section is model noise.
	markup = strings.ReplaceAll(markup, MarkupDelimiter, "")
	markup = strings.TrimSpace(markup)
	markup = stripFence(markup)

	if markup == "" {
		return ParsedResponse{Kind: ResponseAnswer, Message: message}
	}

	return ParsedResponse{
		Kind:    ResponseUpdate,
		Message: message,
		Markup:  markup,
	}
}

// stripFence removes one surrounding markdown code fence, if present.
func stripFence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}
