package usecase

import (
	"strings"

	"order-reconciliation/internal/domain"
)

const (
	postpaidOrderPrefix = "MOS"
	prepaidOrderPrefix  = "HOS"
)

// MapOrderID derives the delivery-portal id for an export order id. Ids that
// already carry the MOS prefix are used unchanged; otherwise everything from
// the first 'A' on is dropped and the plan's prefix is prepended.
func MapOrderID(rawID string, planType domain.PlanType) domain.OrderKey {
	key := domain.OrderKey{ExternalID: rawID, OriginalID: rawID}
	if strings.HasPrefix(rawID, postpaidOrderPrefix) {
		return key
	}

	base, _, _ := strings.Cut(rawID, "A")
	switch planType {
	case domain.PlanTypePrepaid:
		key.ExternalID = prepaidOrderPrefix + base
	case domain.PlanTypePostpaid:
		key.ExternalID = postpaidOrderPrefix + base
	}
	return key
}
