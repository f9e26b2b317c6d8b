package ride

import "github.com/example/rota-parceira/internal/models"

// AllowedTransitions encodes the ride status flow as data. Terminal states
// have no outgoing edges.
var AllowedTransitions = map[models.RideStatus][]models.RideStatus{
	models.RideAccepted: {
		models.RideDriverArriving,
		models.RideInProgress,
		models.RideCancelledByPassenger,
		models.RideCancelledByDriver,
	},
	models.RideDriverArriving: {
		models.RideInProgress,
		models.RideCancelledByPassenger,
		models.RideCancelledByDriver,
	},
	models.RideInProgress: {
		models.RideCompleted,
		models.RideCancelledByPassenger,
		models.RideCancelledByDriver,
	},
}

func CanTransition(from, to models.RideStatus) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s models.RideStatus) bool {
	return len(AllowedTransitions[s]) == 0
}

func IsCancelled(s models.RideStatus) bool {
	return s == models.RideCancelledByPassenger || s == models.RideCancelledByDriver
}

// CancelStatusFor maps the cancelling party's role onto the terminal status.
func CancelStatusFor(role models.UserRole) models.RideStatus {
	if role == models.RoleDriver {
		return models.RideCancelledByDriver
	}
	return models.RideCancelledByPassenger
}
