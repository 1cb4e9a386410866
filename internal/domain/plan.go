package domain

// LookupTarget is the external system a category is reconciled against.
type LookupTarget string

const (
	TargetDelivery LookupTarget = "delivery"
	TargetLegacy   LookupTarget = "legacy"
)

// CategoryPlan is one configured reconciliation workflow: which export to pull,
// how to narrow it and where to look its orders up.
type CategoryPlan struct {
	Name     string         `json:"name" yaml:"name"`
	Category ReportCategory `json:"category" yaml:"category"`
	Filters  []FilterRule   `json:"filters" yaml:"filters"`
	Target   LookupTarget   `json:"target" yaml:"target"`
}
