package sendcloud

import (
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
)

// statusByID maps well-known Sendcloud parcel status ids.
var statusByID = map[int64]shipper.ShipmentStatus{
	1:    shipper.StatusConfirmed,      // Announced
	3:    shipper.StatusInTransit,      // En route to sorting center
	4:    shipper.StatusException,      // Delivery delayed
	5:    shipper.StatusInTransit,      // Sorted
	7:    shipper.StatusInTransit,      // Being sorted
	8:    shipper.StatusException,      // Delivery attempt failed
	11:   shipper.StatusDelivered,      // Delivered
	12:   shipper.StatusOutForDelivery, // Awaiting customer pickup
	22:   shipper.StatusPickedUp,       // Shipment picked up by driver
	62:   shipper.StatusException,      // Unable to deliver
	80:   shipper.StatusException,      // Unable to deliver
	91:   shipper.StatusInTransit,      // Parcel en route
	92:   shipper.StatusOutForDelivery, // Driver en route
	93:   shipper.StatusDelivered,      // Shipment collected by customer
	1000: shipper.StatusConfirmed,      // Ready to send
	1001: shipper.StatusPending,        // Being announced
	1002: shipper.StatusException,      // Announcement failed
	1999: shipper.StatusCancelled,      // Cancellation requested
	2000: shipper.StatusCancelled,      // Cancelled
	2001: shipper.StatusCancelled,      // Submitting cancellation request
}

// MapStatus converts a Sendcloud status into a ShipmentStatus, using the id
// when it is known and the message text otherwise.
func MapStatus(id int64, message string) shipper.ShipmentStatus {
	if status, ok := statusByID[id]; ok {
		return status
	}
	return shipper.NormalizeStatus(message)
}
