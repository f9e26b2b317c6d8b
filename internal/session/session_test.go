package session

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/rota-parceira/internal/models"
	"github.com/example/rota-parceira/internal/offers"
	"github.com/example/rota-parceira/internal/roster"
)

const (
	passengerPhone = "11987654321"
	driverPhone    = "11912345678"
	anyCode        = "1234"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig pins the random ranges so fares are exact: trip 4km + pickup
// 1km = 5km, car rate 2/km with min fare 8 gives 10.00.
func testConfig(stagger time.Duration) offers.Config {
	return offers.Config{
		StaggerBase:     stagger,
		TripKmMin:       4,
		TripKmMax:       4,
		PickupKmMin:     1,
		PickupKmMax:     1,
		EtaMinutesPerKm: 2.5,
	}
}

func newTestController(t *testing.T, stagger time.Duration) *Controller {
	t.Helper()
	gen := offers.NewGenerator(testConfig(stagger), testLogger())
	return New(roster.Seeded(), gen, nil, 20*time.Millisecond, testLogger())
}

func loginPassenger(t *testing.T, c *Controller) {
	t.Helper()
	if _, err := c.Login(passengerPhone, anyCode); err != nil {
		t.Fatalf("passenger login: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// searchWithOffers logs in the seeded passenger, opens a car search and waits
// for both seeded car drivers to respond.
func searchWithOffers(t *testing.T, c *Controller) models.Snapshot {
	t.Helper()
	loginPassenger(t, c)
	if _, err := c.CreateRideRequest("Aeroporto", models.VehicleCar); err != nil {
		t.Fatalf("create request: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(c.Snapshot().Offers) == 2 })
	return c.Snapshot()
}

func TestLoginRoutesByRole(t *testing.T) {
	c := newTestController(t, time.Millisecond)

	snap, err := c.Login(passengerPhone, anyCode)
	if err != nil || snap.Screen != models.ScreenPassengerHome {
		t.Fatalf("passenger: err=%v screen=%s", err, snap.Screen)
	}
	snap, err = c.Login(driverPhone, anyCode)
	if err != nil || snap.Screen != models.ScreenDriverHome {
		t.Fatalf("driver: err=%v screen=%s", err, snap.Screen)
	}
	snap, err = c.Login(roster.AdminPhone, anyCode)
	if err != nil || snap.Screen != models.ScreenAdminPanel {
		t.Fatalf("admin: err=%v screen=%s", err, snap.Screen)
	}
	if snap = c.Logout(); snap.Screen != models.ScreenLogin || snap.User != nil {
		t.Fatalf("logout: screen=%s user=%v", snap.Screen, snap.User)
	}
}

func TestLoginMintsUnknownPassenger(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	snap, err := c.Login("11900002222", anyCode)
	if err != nil {
		t.Fatalf("mint login: %v", err)
	}
	if snap.User == nil || snap.User.Role != models.RolePassenger {
		t.Fatalf("minted user = %+v", snap.User)
	}
	if len(snap.Passengers) != 2 {
		t.Fatalf("roster should hold seeded + minted passenger, got %d", len(snap.Passengers))
	}
}

func TestCreateRideRequestValidation(t *testing.T) {
	c := newTestController(t, time.Millisecond)

	if _, err := c.CreateRideRequest("Centro", models.VehicleCar); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("logged out: got %v", err)
	}
	loginPassenger(t, c)
	if _, err := c.CreateRideRequest("   ", models.VehicleCar); !errors.Is(err, ErrMissingDestination) {
		t.Fatalf("blank destination: got %v", err)
	}
	if snap := c.Snapshot(); snap.Request != nil {
		t.Fatal("failed validation must not create a request")
	}

	if _, err := c.Login(driverPhone, anyCode); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateRideRequest("Centro", models.VehicleCar); !errors.Is(err, ErrNotPassenger) {
		t.Fatalf("driver role: got %v", err)
	}
}

func TestOffersArriveForEligibleDrivers(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	snap := searchWithOffers(t, c)

	if snap.Request == nil || snap.Request.Status != models.RequestOffersReceived {
		t.Fatalf("request = %+v", snap.Request)
	}
	seen := map[string]bool{}
	for _, o := range snap.Offers {
		seen[o.Driver.ID] = true
		if o.Fare != 10.0 {
			t.Errorf("offer fare = %v, want 10.0", o.Fare)
		}
		if o.RideRequestID != snap.Request.ID {
			t.Errorf("offer for foreign request %s", o.RideRequestID)
		}
	}
	if !seen["driver1"] || !seen["driver3"] {
		t.Fatalf("expected the two car drivers, got %v", seen)
	}
}

func TestNewSearchSupersedesOldOne(t *testing.T) {
	c := newTestController(t, 30*time.Millisecond)
	loginPassenger(t, c)

	if _, err := c.CreateRideRequest("Centro", models.VehicleCar); err != nil {
		t.Fatal(err)
	}
	snap, err := c.CreateRideRequest("Aeroporto", models.VehicleCar)
	if err != nil {
		t.Fatal(err)
	}
	current := snap.Request.ID

	waitFor(t, 2*time.Second, func() bool { return len(c.Snapshot().Offers) == 2 })
	time.Sleep(80 * time.Millisecond)
	for _, o := range c.Snapshot().Offers {
		if o.RideRequestID != current {
			t.Fatalf("offer for superseded request survived: %+v", o)
		}
	}
}

func TestCancelSearchSuppressesOffers(t *testing.T) {
	c := newTestController(t, 30*time.Millisecond)
	loginPassenger(t, c)
	if _, err := c.CreateRideRequest("Centro", models.VehicleCar); err != nil {
		t.Fatal(err)
	}

	snap := c.CancelSearch()
	if snap.Request != nil || len(snap.Offers) != 0 {
		t.Fatalf("cancel left state behind: %+v", snap)
	}
	time.Sleep(100 * time.Millisecond)
	if snap = c.Snapshot(); snap.Request != nil || len(snap.Offers) != 0 {
		t.Fatalf("late offers leaked in: %+v", snap.Offers)
	}
	// cancelling again is a harmless no-op
	if snap = c.CancelSearch(); snap.Screen != models.ScreenPassengerHome {
		t.Fatalf("screen = %s", snap.Screen)
	}
}

func TestAcceptOffer(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	snap := searchWithOffers(t, c)
	offer := snap.Offers[0]

	snap, err := c.AcceptOffer(offer.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if snap.Ride == nil || snap.Ride.Status != models.RideAccepted {
		t.Fatalf("ride = %+v", snap.Ride)
	}
	if snap.Ride.Fare != offer.Fare {
		t.Fatalf("fare changed at acceptance: %v != %v", snap.Ride.Fare, offer.Fare)
	}
	if snap.Ride.Driver.ID != offer.Driver.ID {
		t.Fatalf("driver = %s", snap.Ride.Driver.ID)
	}
	if snap.Request != nil || len(snap.Offers) != 0 {
		t.Fatal("request and offers must clear atomically with acceptance")
	}
	if snap.Screen != models.ScreenRideInProgress {
		t.Fatalf("screen = %s", snap.Screen)
	}

	if _, err := c.AcceptOffer(offer.ID); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("second accept: got %v", err)
	}
}

func TestAcceptUnknownOfferExpired(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	searchWithOffers(t, c)
	if _, err := c.AcceptOffer("offer_driver9_req9"); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("got %v", err)
	}
}

func TestRideLifecycle(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	snap := searchWithOffers(t, c)
	if _, err := c.AcceptOffer(snap.Offers[0].ID); err != nil {
		t.Fatal(err)
	}

	snap = c.UpdateRideStatus(models.RideDriverArriving)
	if snap.Ride.Status != models.RideDriverArriving {
		t.Fatalf("status = %s", snap.Ride.Status)
	}
	snap = c.UpdateRideStatus(models.RideInProgress)
	if snap.Ride.Status != models.RideInProgress || snap.Ride.StartTime == nil {
		t.Fatalf("in progress: %+v", snap.Ride)
	}

	// backwards transition is ignored, not an error
	snap = c.UpdateRideStatus(models.RideAccepted)
	if snap.Ride.Status != models.RideInProgress {
		t.Fatalf("backwards transition applied: %s", snap.Ride.Status)
	}

	snap = c.UpdateRideStatus(models.RideCompleted)
	if snap.Ride.Status != models.RideCompleted || snap.Ride.EndTime == nil {
		t.Fatalf("completed: %+v", snap.Ride)
	}
	// the completed ride stays visible briefly, then the session goes home
	waitFor(t, time.Second, func() bool { return c.Snapshot().Ride == nil })
	if snap = c.Snapshot(); snap.Screen != models.ScreenPassengerHome {
		t.Fatalf("screen after grace = %s", snap.Screen)
	}
}

func TestCancelRideByPassenger(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	snap := searchWithOffers(t, c)
	if _, err := c.AcceptOffer(snap.Offers[0].ID); err != nil {
		t.Fatal(err)
	}
	snap = c.CancelRide()
	if snap.Ride != nil || snap.Screen != models.ScreenPassengerHome {
		t.Fatalf("cancel ride: %+v", snap)
	}
	// no ride left, so a second cancel changes nothing
	if snap = c.CancelRide(); snap.Screen != models.ScreenPassengerHome {
		t.Fatalf("screen = %s", snap.Screen)
	}
}

func TestUpdateRideStatusWithoutRideIsNoOp(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	loginPassenger(t, c)
	snap := c.UpdateRideStatus(models.RideInProgress)
	if snap.Ride != nil || snap.Screen != models.ScreenPassengerHome {
		t.Fatalf("no-op mutated state: %+v", snap)
	}
}

func TestToggleDriverOnline(t *testing.T) {
	c := newTestController(t, time.Millisecond)

	loginPassenger(t, c)
	if _, err := c.ToggleDriverOnline(false); !errors.Is(err, ErrNotDriver) {
		t.Fatalf("passenger toggle: got %v", err)
	}

	if _, err := c.Login(driverPhone, anyCode); err != nil {
		t.Fatal(err)
	}
	snap, err := c.ToggleDriverOnline(false)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range snap.Drivers {
		if d.ID == "driver1" && d.IsOnline {
			t.Fatal("driver1 still online")
		}
	}
}

func TestOfflineDriverGetsNoRequests(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	if _, err := c.Login(driverPhone, anyCode); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ToggleDriverOnline(false); err != nil {
		t.Fatal(err)
	}

	loginPassenger(t, c)
	if _, err := c.CreateRideRequest("Centro", models.VehicleCar); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(c.Snapshot().Offers) == 1 })
	time.Sleep(20 * time.Millisecond)
	got := c.Snapshot().Offers
	if len(got) != 1 || got[0].Driver.ID != "driver3" {
		t.Fatalf("expected only driver3 to respond, got %+v", got)
	}
}

func TestSavePricingConfig(t *testing.T) {
	c := newTestController(t, time.Millisecond)

	loginPassenger(t, c)
	if _, err := c.SavePricingConfig(c.Snapshot().Pricing); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("passenger save: got %v", err)
	}

	if _, err := c.Login(roster.AdminPhone, anyCode); err != nil {
		t.Fatal(err)
	}
	cfg := c.Snapshot().Pricing
	cfg.CarMinKmRate = 3.5
	snap, err := c.SavePricingConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Pricing.CarMinKmRate != 3.5 {
		t.Fatalf("pricing not applied: %+v", snap.Pricing)
	}

	bad := cfg
	bad.MotoMinFare = -1
	if _, err := c.SavePricingConfig(bad); err == nil {
		t.Fatal("negative rate accepted")
	}
	if c.Snapshot().Pricing.MotoMinFare < 0 {
		t.Fatal("rejected config leaked into state")
	}
}

func TestProposeOffer(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	loginPassenger(t, c)

	if _, err := c.ProposeOffer("driver1", 30); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("no active request: got %v", err)
	}

	if _, err := c.CreateRideRequest("Centro", models.VehicleCar); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ProposeOffer("driver1", 0); !errors.Is(err, ErrInvalidFare) {
		t.Fatalf("zero fare: got %v", err)
	}
	if _, err := c.ProposeOffer("driver2", 30); !errors.Is(err, ErrDriverNotEligible) {
		t.Fatalf("moto driver on car request: got %v", err)
	}

	snap, err := c.ProposeOffer("driver1", 30)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, o := range snap.Offers {
		if o.Driver.ID == "driver1" && o.Fare == 30 {
			found = true
		}
	}
	if !found {
		t.Fatalf("counter-offer missing: %+v", snap.Offers)
	}
	if snap.Request.Status != models.RequestOffersReceived {
		t.Fatalf("request status = %s", snap.Request.Status)
	}
}

func TestCounterOfferReplacesGeneratedOne(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	searchWithOffers(t, c)

	snap, err := c.ProposeOffer("driver1", 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Offers) != 2 {
		t.Fatalf("offer count = %d, want 2 (replacement, not append)", len(snap.Offers))
	}
	for _, o := range snap.Offers {
		if o.Driver.ID == "driver1" && o.Fare != 99 {
			t.Fatalf("driver1 offer fare = %v, want 99", o.Fare)
		}
	}
}

func TestLogoutClearsSearchState(t *testing.T) {
	c := newTestController(t, 30*time.Millisecond)
	loginPassenger(t, c)
	if _, err := c.CreateRideRequest("Centro", models.VehicleCar); err != nil {
		t.Fatal(err)
	}

	snap := c.Logout()
	if snap.User != nil || snap.Request != nil || len(snap.Offers) != 0 {
		t.Fatalf("logout left state: %+v", snap)
	}
	time.Sleep(100 * time.Millisecond)
	loginPassenger(t, c)
	if snap = c.Snapshot(); snap.Request != nil || len(snap.Offers) != 0 || snap.Ride != nil {
		t.Fatalf("state leaked across sessions: %+v", snap)
	}
}

func TestNotifyFiresOnMutation(t *testing.T) {
	c := newTestController(t, time.Millisecond)
	got := make(chan models.Snapshot, 16)
	c.SetNotify(func(s models.Snapshot) { got <- s })

	loginPassenger(t, c)
	select {
	case snap := <-got:
		if snap.Screen != models.ScreenPassengerHome {
			t.Fatalf("notified screen = %s", snap.Screen)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification after login")
	}
}
