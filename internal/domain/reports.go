package domain

import "time"

// DiscrepancyTable holds the original rows of orders that could not be
// confirmed in an external system.
type DiscrepancyTable struct {
	Name   string   `json:"name"`
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// CategoryStatus is how far processing of a category got.
type CategoryStatus string

const (
	CategoryCompleted CategoryStatus = "completed"
	CategorySkipped   CategoryStatus = "skipped"
	CategoryCancelled CategoryStatus = "cancelled"
	CategoryAborted   CategoryStatus = "aborted"
)

// CategorySummary provides statistics for one configured category.
type CategorySummary struct {
	Name     string         `json:"name"`
	Report   string         `json:"report"`
	Status   CategoryStatus `json:"status"`
	Checked  int            `json:"checked"`
	Found    int            `json:"found"`
	NotFound int            `json:"not_found"`
	Unknown  int            `json:"unknown"`
	Failed   int            `json:"failed"`
	Error    string         `json:"error,omitempty"`
}

// Discrepancies is the number of rows the category contributed to the output.
func (s CategorySummary) Discrepancies() int {
	return s.NotFound + s.Unknown + s.Failed
}

// RunResult is the top-level outcome of a reconciliation run.
type RunResult struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	DateRange   DateRange          `json:"date_range"`
	Categories  []CategorySummary  `json:"categories"`
	Tables      []DiscrepancyTable `json:"tables"`
	Cancelled   bool               `json:"cancelled"`
	OutputPath  string             `json:"output_path,omitempty"`
	OutputError string             `json:"output_error,omitempty"`
}

// Reconciled is true when no category produced a discrepancy.
func (r *RunResult) Reconciled() bool {
	for _, t := range r.Tables {
		if len(t.Rows) > 0 {
			return false
		}
	}
	return true
}
