package session

import "github.com/example/rota-parceira/internal/models"

// Route derives the screen from session state instead of storing it: no
// identity means login, an active ride wins over everything, otherwise the
// user's role picks the home screen. Because the screen is computed per
// snapshot, stale combinations (a ride screen with no ride) cannot exist.
func Route(user *models.User, activeRide *models.Ride) models.Screen {
	if user == nil {
		return models.ScreenLogin
	}
	if activeRide != nil {
		return models.ScreenRideInProgress
	}
	switch user.Role {
	case models.RoleAdmin:
		return models.ScreenAdminPanel
	case models.RoleDriver:
		return models.ScreenDriverHome
	default:
		return models.ScreenPassengerHome
	}
}
