package domain

import "fmt"

// PlanType is the subscription plan a report is exported for.
type PlanType string

const (
	PlanTypePrepaid  PlanType = "PREPAID"
	PlanTypePostpaid PlanType = "POSTPAID"
)

// Known rate plans for postpaid exports.
const (
	RatePlanHotlinkPostpaid = "hotlink postpaid"
	RatePlanMaxisPostpaid   = "maxis postpaid"
)

// ParsePlanType validates a plan type name.
func ParsePlanType(s string) (PlanType, error) {
	switch PlanType(s) {
	case PlanTypePrepaid, PlanTypePostpaid:
		return PlanType(s), nil
	}
	return "", fmt.Errorf("%w: unknown plan type %q", ErrConfiguration, s)
}

// ReportCategory identifies one export. Two categories name the same report
// exactly when their plan type and rate plan concatenate to the same string.
type ReportCategory struct {
	PlanType PlanType `json:"plan_type" yaml:"plan_type"`
	RatePlan string   `json:"rate_plan,omitempty" yaml:"rate_plan"`
}

// NewReportCategory builds a category and rejects combinations the export
// endpoint does not know about.
func NewReportCategory(planType PlanType, ratePlan string) (ReportCategory, error) {
	c := ReportCategory{PlanType: planType, RatePlan: ratePlan}
	if err := c.Validate(); err != nil {
		return ReportCategory{}, err
	}
	return c, nil
}

// Validate reports a configuration error for unknown plan types or rate plans.
func (c ReportCategory) Validate() error {
	switch c.PlanType {
	case PlanTypePrepaid:
		if c.RatePlan != "" {
			return fmt.Errorf("%w: unknown rate plan %q for %s", ErrConfiguration, c.RatePlan, c.PlanType)
		}
		return nil
	case PlanTypePostpaid:
		switch c.RatePlan {
		case RatePlanHotlinkPostpaid, RatePlanMaxisPostpaid:
			return nil
		}
		return fmt.Errorf("%w: unknown rate plan %q for %s", ErrConfiguration, c.RatePlan, c.PlanType)
	}
	return fmt.Errorf("%w: unknown plan type %q", ErrConfiguration, c.PlanType)
}

// Key is the cache identity of the category.
func (c ReportCategory) Key() string {
	return string(c.PlanType) + c.RatePlan
}

// Equal compares categories by value.
func (c ReportCategory) Equal(other ReportCategory) bool {
	return c.Key() == other.Key()
}

// DisplayName is the human readable report title, also used as the
// discrepancy sheet name.
func (c ReportCategory) DisplayName() string {
	switch c.PlanType {
	case PlanTypePrepaid:
		return "Hotlink Prepaid Report"
	case PlanTypePostpaid:
		switch c.RatePlan {
		case RatePlanHotlinkPostpaid:
			return "Hotlink Postpaid Report"
		case RatePlanMaxisPostpaid:
			return "Maxis Postpaid Report"
		}
	}
	return fmt.Sprintf("%s %s Report", c.PlanType, c.RatePlan)
}

// FileStem is the prefix used when persisting the raw export to disk.
func (c ReportCategory) FileStem() string {
	switch c.PlanType {
	case PlanTypePrepaid:
		return "prepaid_report"
	case PlanTypePostpaid:
		switch c.RatePlan {
		case RatePlanHotlinkPostpaid:
			return "hotlink_postpaid_report"
		case RatePlanMaxisPostpaid:
			return "maxis_postpaid_report"
		}
	}
	return fmt.Sprintf("%s-%s", c.PlanType, c.RatePlan)
}

func (c ReportCategory) String() string {
	if c.RatePlan == "" {
		return string(c.PlanType)
	}
	return string(c.PlanType) + "/" + c.RatePlan
}
