// Package model defines the lead records exchanged between the Close
// client, the enrichment stage and the sheet formatter.
package model

// Lead is one Close CRM record. The Close client builds it from the lead
// listing payload; the enricher attaches Notes and Tasks in place. After
// enrichment a lead is read-only and lives only for the duration of one
// export run.
type Lead struct {
	ID            string         `json:"id"`
	DisplayName   string         `json:"display_name"`
	CreatedByName string         `json:"created_by_name"`
	StatusLabel   string         `json:"status_label"`
	DateCreated   string         `json:"date_created"`
	DateUpdated   string         `json:"date_updated"`
	HTMLURL       string         `json:"html_url"`
	Opportunities []Opportunity  `json:"opportunities"`
	Contacts      []Contact      `json:"contacts"`
	Custom        map[string]any `json:"custom"`

	// Attached by enrichment; not part of the lead listing payload.
	Notes []Note `json:"-"`
	Tasks []Task `json:"-"`
}

// Opportunity is a sales-pipeline entry nested under a lead, carried
// verbatim from the lead payload. Timestamps stay as received so
// unparsable values can pass through to the sheet unchanged.
type Opportunity struct {
	ID             string  `json:"id"`
	PipelineName   string  `json:"pipeline_name"`
	StatusLabel    string  `json:"status_label"`
	StatusType     string  `json:"status_type"`
	Value          float64 `json:"value"`
	ValueFormatted string  `json:"value_formatted"`
	ValueCurrency  string  `json:"value_currency"`
	Confidence     *int    `json:"confidence"`
	ContactName    string  `json:"contact_name"`
	CreatedByName  string  `json:"created_by_name"`
	DateCreated    string  `json:"date_created"`
	DateUpdated    string  `json:"date_updated"`
	DateWon        string  `json:"date_won"`
	DateLost       string  `json:"date_lost"`
	Note           string  `json:"note"`
}

// Contact is a person attached to a lead. Only the first contact and its
// first email/phone reach the sheet.
type Contact struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Emails      []Email `json:"emails"`
	Phones      []Phone `json:"phones"`
}

// Email is one contact email entry.
type Email struct {
	Email string `json:"email"`
}

// Phone is one contact phone entry.
type Phone struct {
	Phone string `json:"phone"`
}

// Note is an activity note normalized by the Close client: Body already
// carries the rich-text fallback and Author the "Unknown" default.
type Note struct {
	ID          string
	Body        string
	DateCreated string
	Author      string
}

// Task is an action item normalized by the Close client.
type Task struct {
	ID          string
	Text        string
	DateCreated string
	DueDate     string
	IsComplete  bool
	Assignee    string
}
