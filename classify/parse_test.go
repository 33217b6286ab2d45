package classify

import "testing"

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"category":"invoice"}`,
			want:  `{"category":"invoice"}`,
		},
		{
			name:  "fenced object",
			input: "```json\n{\"category\":\"invoice\"}\n```",
			want:  `{"category":"invoice"}`,
		},
		{
			name:  "prose around object",
			input: "Here is the result:\n{\"category\":\"schedule\"}\nHope that helps!",
			want:  `{"category":"schedule"}`,
		},
		{
			name:  "fence without language tag",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:    "no object",
			input:   "I could not process this document.",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractObject(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("extractObject(%q): expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractObject(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("extractObject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseModelOutputInvoice(t *testing.T) {
	raw := "```json\n" + `{
		"category": "invoice",
		"summary": "Invoice from Acme Corp for March services.",
		"structured": {
			"title": "Acme Corp Invoice",
			"items": [
				{"date": "2024-03-01", "description": "Consulting", "amount": "$1,200.00"},
				{"date": "2024-03-15", "description": "Support", "amount": "$300.00"}
			],
			"totals": {"total": "$1,500.00"}
		}
	}` + "\n```"

	res, err := parseModelOutput(raw)
	if err != nil {
		t.Fatalf("parseModelOutput: %v", err)
	}
	if res.Category != CategoryInvoice {
		t.Errorf("category = %q, want invoice", res.Category)
	}
	if res.Structured == nil {
		t.Fatal("expected structured payload")
	}
	if len(res.Structured.Invoice) != 2 {
		t.Fatalf("invoice items = %d, want 2", len(res.Structured.Invoice))
	}
	if res.Structured.Invoice[0].Amount != "$1,200.00" {
		t.Errorf("amount = %q, want $1,200.00", res.Structured.Invoice[0].Amount)
	}
	if res.Structured.Totals["total"] != "$1,500.00" {
		t.Errorf("total = %q, want $1,500.00", res.Structured.Totals["total"])
	}
}

func TestParseModelOutputUnknownCategory(t *testing.T) {
	res, err := parseModelOutput(`{"category": "recipe", "summary": "A cake recipe."}`)
	if err != nil {
		t.Fatalf("parseModelOutput: %v", err)
	}
	if res.Category != CategoryUnknown {
		t.Errorf("category = %q, want unknown", res.Category)
	}
	if res.Structured != nil {
		t.Error("unknown category must not carry a structured payload")
	}
	if res.Text != "A cake recipe." {
		t.Errorf("text = %q", res.Text)
	}
}

func TestParseModelOutputMalformedItems(t *testing.T) {
	// Items that do not decode into the schedule schema drop the payload but
	// keep category and summary.
	raw := `{
		"category": "schedule",
		"summary": "Fall term schedule.",
		"structured": {"title": "Fall 2024", "items": [42, 43]}
	}`

	res, err := parseModelOutput(raw)
	if err != nil {
		t.Fatalf("parseModelOutput: %v", err)
	}
	if res.Category != CategorySchedule {
		t.Errorf("category = %q, want schedule", res.Category)
	}
	if res.Structured != nil {
		t.Error("malformed items should drop the structured payload")
	}
}

func TestParseModelOutputNoObject(t *testing.T) {
	if _, err := parseModelOutput("Sorry, I can't help with that."); err == nil {
		t.Fatal("expected error for output without a JSON object")
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"schedule", CategorySchedule},
		{"invoice", CategoryInvoice},
		{"healthcare", CategoryHealthcare},
		{"unknown", CategoryUnknown},
		{"", CategoryUnknown},
		{"INVOICE", CategoryUnknown},
		{"receipt", CategoryUnknown},
	}
	for _, tt := range tests {
		if got := ParseCategory(tt.in); got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
