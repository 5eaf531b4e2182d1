package shipper

import (
	"strings"
)

// NormalizeStatus converts a free-text provider status message into a
// ShipmentStatus. Unknown messages map to StatusPending.
func NormalizeStatus(message string) ShipmentStatus {
	m := strings.ToLower(strings.TrimSpace(message))
	switch {
	case m == "":
		return StatusPending
	case strings.Contains(m, "cancel"):
		return StatusCancelled
	case strings.Contains(m, "not delivered"),
		strings.Contains(m, "unable to deliver"),
		strings.Contains(m, "undeliverable"),
		strings.Contains(m, "failed"),
		strings.Contains(m, "error"),
		strings.Contains(m, "exception"),
		strings.Contains(m, "returned"),
		strings.Contains(m, "delayed"):
		return StatusException
	case strings.Contains(m, "delivered"),
		strings.Contains(m, "collected by customer"):
		return StatusDelivered
	case strings.Contains(m, "out for delivery"),
		strings.Contains(m, "driver en route"),
		strings.Contains(m, "awaiting customer pickup"):
		return StatusOutForDelivery
	case strings.Contains(m, "picked up"),
		strings.Contains(m, "pickup"):
		return StatusPickedUp
	case strings.Contains(m, "en route"),
		strings.Contains(m, "in transit"),
		strings.Contains(m, "sorting"),
		strings.Contains(m, "sorted"):
		return StatusInTransit
	case strings.Contains(m, "announced"),
		strings.Contains(m, "ready to send"):
		return StatusConfirmed
	default:
		return StatusPending
	}
}
