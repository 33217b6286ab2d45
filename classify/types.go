package classify

// Category is the closed classification tag for a document's domain.
type Category string

const (
	CategorySchedule   Category = "schedule"
	CategoryInvoice    Category = "invoice"
	CategoryHealthcare Category = "healthcare"
	CategoryUnknown    Category = "unknown"
)

// ParseCategory maps model output to a known category, defaulting to unknown.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategorySchedule, CategoryInvoice, CategoryHealthcare:
		return Category(s)
	default:
		return CategoryUnknown
	}
}

// Result is what classification produces from an uploaded file.
type Result struct {
	Category   Category `json:"category"`
	Text       string   `json:"text"`
	Structured *Payload `json:"structured,omitempty"`
}

// Payload is the typed extracted representation of a classified document.
// Exactly one of the item slices is populated, matching Category.
type Payload struct {
	Title      string            `json:"title,omitempty"`
	Schedule   []ScheduleItem    `json:"schedule_items,omitempty"`
	Invoice    []InvoiceItem     `json:"invoice_items,omitempty"`
	Healthcare []HealthcareItem  `json:"healthcare_items,omitempty"`
	Totals     map[string]string `json:"totals,omitempty"`
}

// ItemCount returns the number of extracted line items, whatever the category.
func (p *Payload) ItemCount() int {
	if p == nil {
		return 0
	}
	return len(p.Schedule) + len(p.Invoice) + len(p.Healthcare)
}

// ScheduleItem is one entry of a class or work schedule.
type ScheduleItem struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Days     string `json:"days"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// HealthcareItem is one service line of a medical bill or EOB.
type HealthcareItem struct {
	Service string `json:"service"`
	Billed  string `json:"billed"`
	Allowed string `json:"allowed"`
	Paid    string `json:"paid"`
	Owed    string `json:"owed"`
}
