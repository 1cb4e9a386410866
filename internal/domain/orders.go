package domain

// OrderKey pairs the id used against external systems with the id from the export.
type OrderKey struct {
	ExternalID string `json:"external_id"`
	OriginalID string `json:"original_id"`
}

// LookupStatus classifies a delivery-portal lookup.
type LookupStatus string

const (
	LookupFound    LookupStatus = "FOUND"
	LookupNotFound LookupStatus = "NOT_FOUND"
	// LookupUnknown means every retry failed; the order is reported for investigation.
	LookupUnknown LookupStatus = "UNKNOWN"
)

// LookupResult is the outcome of one delivery-portal query.
type LookupResult struct {
	Status  LookupStatus `json:"status"`
	Count   int          `json:"count"`
	Payload []byte       `json:"-"`
}

// Resolved is true only for Found; NotFound and Unknown are discrepancies.
func (r LookupResult) Resolved() bool {
	return r.Status == LookupFound
}

// LegacyFailSentinel is the interface log id the legacy portal shows for failed orders.
const LegacyFailSentinel = "FAIL"

// LegacyOrder is the last status row the legacy portal shows for an order.
type LegacyOrder struct {
	OrderID        string `json:"order_id"`
	InterfaceID    string `json:"interface_id"`
	InterfaceLogID string `json:"interface_log_id"`
	EventMessage   string `json:"event_message"`
}

// Failed reports whether the legacy portal marked the order as failed.
func (o LegacyOrder) Failed() bool {
	return o.InterfaceLogID == LegacyFailSentinel
}
