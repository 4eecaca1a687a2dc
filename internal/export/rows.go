package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fundingbay/leadsync/internal/model"
)

// leadHeaders is the fixed prefix of the Leads sheet; custom-field
// columns are appended per run.
var leadHeaders = []string{
	"Display Name",
	"Lead Owner",
	"Status",
	"Date Created",
	"Date Updated",
	"Pipeline Name",
	"Opportunities",
	"Opportunity Notes",
	"Latest Notes",
	"Tasks",
	"Confidence",
	"Contact Name",
	"Contact Email",
	"Contact Phone",
	"URL",
}

// opportunityHeaders is the fixed schema of the Opportunities sheet.
var opportunityHeaders = []string{
	"Lead Name",
	"Opportunity ID",
	"Pipeline Name",
	"Status Label",
	"Status Type",
	"Value",
	"Value Formatted",
	"Contact Name",
	"Created By",
	"Date Created",
	"Date Updated",
	"Date Won",
	"Date Lost",
	"Confidence",
	"Notes",
}

// CustomFieldKeys returns the union of custom-field keys across leads,
// de-duplicated case-insensitively with the first-seen casing winning.
// Keys within one lead are visited alphabetically so the derived schema
// is stable from run to run.
func CustomFieldKeys(leads []model.Lead) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, lead := range leads {
		names := make([]string, 0, len(lead.Custom))
		for k := range lead.Custom {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			lower := strings.ToLower(k)
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// BuildLeadGrid renders the Leads sheet: one header row (fixed columns
// plus the run's custom-field columns) followed by one row per lead.
// Every row has exactly as many cells as the header.
func BuildLeadGrid(leads []model.Lead) [][]string {
	customKeys := CustomFieldKeys(leads)

	header := make([]string, 0, len(leadHeaders)+len(customKeys))
	header = append(header, leadHeaders...)
	header = append(header, customKeys...)

	grid := make([][]string, 0, len(leads)+1)
	grid = append(grid, header)
	for _, lead := range leads {
		grid = append(grid, buildLeadRow(lead, customKeys))
	}
	return grid
}

func buildLeadRow(lead model.Lead, customKeys []string) []string {
	name, email, phone := primaryContact(lead.Contacts)
	pipeline, confidence := pipelineSummary(lead.Opportunities)

	row := make([]string, 0, len(leadHeaders)+len(customKeys))
	row = append(row,
		lead.DisplayName,
		lead.CreatedByName,
		lead.StatusLabel,
		formatDate(lead.DateCreated),
		formatDate(lead.DateUpdated),
		pipeline,
		formatOpportunityDetails(lead.Opportunities),
		formatOpportunityNotes(lead.Opportunities),
		formatNotes(lead.Notes),
		formatTasks(lead.Tasks),
		confidence,
		name,
		email,
		phone,
		lead.HTMLURL,
	)
	for _, key := range customKeys {
		row = append(row, formatCustomValue(lead.Custom, key))
	}
	return row
}

// BuildOpportunityGrid renders the Opportunities sheet: one row per
// (lead, opportunity) pair under the fixed header.
func BuildOpportunityGrid(leads []model.Lead) [][]string {
	grid := [][]string{append([]string(nil), opportunityHeaders...)}
	for _, lead := range leads {
		for _, opp := range lead.Opportunities {
			grid = append(grid, []string{
				lead.DisplayName,
				opp.ID,
				opp.PipelineName,
				opp.StatusLabel,
				opp.StatusType,
				formatValue(opp.Value),
				opp.ValueFormatted,
				opp.ContactName,
				opp.CreatedByName,
				formatDate(opp.DateCreated),
				formatDate(opp.DateUpdated),
				formatDate(opp.DateWon),
				formatDate(opp.DateLost),
				formatConfidenceZero(opp.Confidence),
				opp.Note,
			})
		}
	}
	return grid
}

// formatDate renders an ISO-8601 timestamp as "YYYY-MM-DD HH:MM",
// keeping the wall time as encoded and truncating to the minute.
// Empty input stays empty; unparsable input passes through unchanged.
func formatDate(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format("2006-01-02 15:04")
}

// pipelineSummary picks the pipeline name and confidence shown on the
// lead row. Both come from the most recently updated opportunity, but
// any "broker" pipeline wins the name slot regardless of recency.
func pipelineSummary(opps []model.Opportunity) (pipeline, confidence string) {
	if len(opps) == 0 {
		return "NA", "NA"
	}

	sorted := make([]model.Opportunity, len(opps))
	copy(sorted, opps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return updatedAt(sorted[i]).After(updatedAt(sorted[j]))
	})
	recent := sorted[0]

	pipeline = recent.PipelineName
	if pipeline == "" {
		pipeline = "NA"
	}
	confidence = "NA"
	if recent.Confidence != nil {
		confidence = fmt.Sprintf("%d%%", *recent.Confidence)
	}

	for _, opp := range opps {
		if opp.PipelineName != "" && strings.Contains(strings.ToLower(opp.PipelineName), "broker") {
			pipeline = opp.PipelineName
			break
		}
	}
	return pipeline, confidence
}

func updatedAt(opp model.Opportunity) time.Time {
	t, err := time.Parse(time.RFC3339, opp.DateUpdated)
	if err != nil {
		return time.Time{}
	}
	return t
}

// formatOpportunityDetails renders one-line summaries joined by
// semicolons, or "NA" when the lead has no opportunities.
func formatOpportunityDetails(opps []model.Opportunity) string {
	if len(opps) == 0 {
		return "NA"
	}
	parts := make([]string, len(opps))
	for i, opp := range opps {
		pipeline := ""
		if opp.PipelineName != "" {
			pipeline = opp.PipelineName + ": "
		}
		status := opp.StatusLabel
		if status == "" {
			status = "Unknown"
		}
		value := opp.ValueFormatted
		if value == "" {
			if opp.Value != 0 {
				value = strings.TrimSpace(formatValue(opp.Value) + " " + opp.ValueCurrency)
			} else {
				value = "N/A"
			}
		}
		confidence := "N/A"
		if opp.Confidence != nil {
			confidence = fmt.Sprintf("%d%%", *opp.Confidence)
		}
		date := "N/A"
		if opp.DateCreated != "" {
			date = strings.SplitN(formatDate(opp.DateCreated), " ", 2)[0]
		}
		parts[i] = fmt.Sprintf("%s%s (%s) - %s - %s", pipeline, status, value, confidence, date)
	}
	return strings.Join(parts, "; ")
}

// formatOpportunityNotes renders "pipeline: status: note" entries joined
// by blank lines, or "NA" when the lead has no opportunities.
func formatOpportunityNotes(opps []model.Opportunity) string {
	if len(opps) == 0 {
		return "NA"
	}
	parts := make([]string, len(opps))
	for i, opp := range opps {
		pipeline := ""
		if opp.PipelineName != "" {
			pipeline = opp.PipelineName + ": "
		}
		status := opp.StatusLabel
		if status == "" {
			status = "Unknown"
		}
		note := opp.Note
		if note == "" {
			note = "No notes"
		}
		parts[i] = fmt.Sprintf("%s%s: %s", pipeline, status, note)
	}
	return strings.Join(parts, "\n\n")
}

// formatNotes renders "[date] author: text" entries joined by blank
// lines, or the empty-state sentinel.
func formatNotes(notes []model.Note) string {
	if len(notes) == 0 {
		return "No notes available"
	}
	parts := make([]string, len(notes))
	for i, n := range notes {
		date := "Unknown date"
		if n.DateCreated != "" {
			date = formatDate(n.DateCreated)
		}
		author := n.Author
		if author == "" {
			author = "Unknown"
		}
		body := n.Body
		if body == "" {
			body = "No content"
		}
		parts[i] = fmt.Sprintf("[%s] %s: %s", date, author, body)
	}
	return strings.Join(parts, "\n\n")
}

// formatTasks renders "status [Due: date] assignee: text" entries joined
// by blank lines, or the empty-state sentinel.
func formatTasks(tasks []model.Task) string {
	if len(tasks) == 0 {
		return "No tasks available"
	}
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		status := "□ OPEN"
		if t.IsComplete {
			status = "✓ COMPLETE"
		}
		due := "No due date"
		if t.DueDate != "" {
			due = formatDate(t.DueDate)
		}
		assignee := t.Assignee
		if assignee == "" {
			assignee = "Unassigned"
		}
		text := t.Text
		if text == "" {
			text = "No description"
		}
		parts[i] = fmt.Sprintf("%s [Due: %s] %s: %s", status, due, assignee, text)
	}
	return strings.Join(parts, "\n\n")
}

// primaryContact extracts the first contact's name and first
// email/phone, degrading to "NA" at any missing level.
func primaryContact(contacts []model.Contact) (name, email, phone string) {
	name, email, phone = "NA", "NA", "NA"
	if len(contacts) == 0 {
		return
	}
	c := contacts[0]
	if c.Name != "" {
		name = c.Name
	} else if c.DisplayName != "" {
		name = c.DisplayName
	}
	if len(c.Emails) > 0 && c.Emails[0].Email != "" {
		email = c.Emails[0].Email
	}
	if len(c.Phones) > 0 && c.Phones[0].Phone != "" {
		phone = c.Phones[0].Phone
	}
	return
}

// formatCustomValue renders one custom-field cell. Lookup is exact: a
// lead whose key casing differs from the header casing shows "NA".
func formatCustomValue(custom map[string]any, key string) string {
	value, ok := custom[key]
	if !ok || value == nil {
		return "NA"
	}
	switch v := value.(type) {
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatValue renders a raw monetary value, defaulting to "0" when unset.
func formatValue(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatConfidenceZero(c *int) string {
	if c == nil {
		return "0"
	}
	return strconv.Itoa(*c)
}
