package domain

// FilterMethod selects how a FilterRule narrows a report.
type FilterMethod string

const (
	FilterContains  FilterMethod = "contains"
	FilterExists    FilterMethod = "exists"
	FilterNotExists FilterMethod = "notExists"
)

// Known reports whether the filter engine understands the method. Unknown
// methods are kept as-is so that newer configuration still loads.
func (m FilterMethod) Known() bool {
	switch m {
	case FilterContains, FilterExists, FilterNotExists:
		return true
	}
	return false
}

// FilterRule narrows a report on one column.
type FilterRule struct {
	Column string       `json:"column" yaml:"column"`
	Method FilterMethod `json:"method" yaml:"method"`
	Values []string     `json:"values" yaml:"values"`
}
