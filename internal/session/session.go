package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/rota-parceira/internal/auth"
	"github.com/example/rota-parceira/internal/journal"
	"github.com/example/rota-parceira/internal/models"
	"github.com/example/rota-parceira/internal/observability"
	"github.com/example/rota-parceira/internal/offers"
	"github.com/example/rota-parceira/internal/pricing"
	"github.com/example/rota-parceira/internal/ride"
	"github.com/example/rota-parceira/internal/roster"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrNotPassenger       = errors.New("only passengers can request rides")
	ErrNotDriver          = errors.New("only drivers can perform this action")
	ErrNotAdmin           = errors.New("only the administrator can change pricing")
	ErrMissingDestination = errors.New("destination is required")
	ErrInvalidFare        = errors.New("proposed fare must be positive")
	ErrOfferExpired       = errors.New("offer expired")
	ErrDriverNotEligible  = errors.New("driver is not eligible for this request")
)

// PickupAddress is the fixed origin label the simulation uses; the passenger
// is assumed to be at their current location.
const PickupAddress = "Minha Localização Atual"

// Controller owns all mutable session state (identity, pricing, the active
// request, its offers, the active ride) and is the only component allowed to
// change it. Every mutation happens under one mutex and ends by emitting a
// fresh snapshot, so deferred offer deliveries and grace-period expiry
// serialize with user intents.
type Controller struct {
	log     *slog.Logger
	roster  roster.Roster
	gen     *offers.Generator
	journal *journal.Publisher
	grace   time.Duration

	mu         sync.Mutex
	user       *models.User
	pricing    models.PricingConfig
	request    *models.RideRequest
	offers     []models.RideOffer
	ride       *models.Ride
	graceTimer *time.Timer

	notify func(models.Snapshot)
}

func New(r roster.Roster, gen *offers.Generator, jr *journal.Publisher, grace time.Duration, log *slog.Logger) *Controller {
	return &Controller{
		log:     log,
		roster:  r,
		gen:     gen,
		journal: jr,
		grace:   grace,
		pricing: pricing.Default(),
	}
}

// SetNotify registers the hook invoked with the snapshot after every
// mutation, including timer-driven ones. Called once at wiring time.
func (c *Controller) SetNotify(fn func(models.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// Snapshot returns the current session view without mutating anything.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Login(phone, code string) (models.Snapshot, error) {
	user, minted, err := auth.Verify(c.roster, phone, code)
	if err != nil {
		return c.Snapshot(), err
	}
	if minted != nil {
		c.roster.AddPassenger(*minted)
	}

	c.mu.Lock()
	c.clearSessionLocked()
	c.user = &user
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("login", "user_id", user.ID, "role", string(user.Role))
	_ = c.journal.Publish(journal.Event{Type: journal.EventLogin, UserID: user.ID})
	c.emit(snap)
	return snap, nil
}

func (c *Controller) Logout() models.Snapshot {
	c.mu.Lock()
	var userID string
	if c.user != nil {
		userID = c.user.ID
	}
	c.clearSessionLocked()
	c.user = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if userID != "" {
		c.log.Info("logout", "user_id", userID)
		_ = c.journal.Publish(journal.Event{Type: journal.EventLogout, UserID: userID})
	}
	c.emit(snap)
	return snap
}

// CreateRideRequest opens a new search. Any previous request is superseded:
// its scheduled offer deliveries are cancelled and its offers discarded.
func (c *Controller) CreateRideRequest(destination string, vt models.VehicleType) (models.Snapshot, error) {
	if strings.TrimSpace(destination) == "" {
		return c.Snapshot(), ErrMissingDestination
	}

	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotLoggedIn
	}
	if c.user.Role != models.RolePassenger {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotPassenger
	}
	passenger, ok := c.roster.PassengerByID(c.user.ID)
	if !ok {
		passenger = models.Passenger{User: *c.user, Location: roster.DefaultPassengerLocation}
	}

	if c.request != nil {
		c.gen.Cancel(c.request.ID)
	}
	req := models.RideRequest{
		ID:        "req_" + newID(),
		Passenger: passenger,
		From: models.RideLocation{
			Address: PickupAddress,
			Lat:     passenger.Location.Lat,
			Lng:     passenger.Location.Lng,
		},
		To: models.RideLocation{
			Address: destination,
			// The simulation has no geocoder; destinations land a fixed
			// offset away from the pickup.
			Lat: passenger.Location.Lat + 0.05,
			Lng: passenger.Location.Lng + 0.05,
		},
		VehicleType: vt,
		Status:      models.RequestSearching,
		CreatedAt:   time.Now(),
	}
	c.request = &req
	c.offers = nil
	c.gen.Start(req, c.roster.Drivers(), c.pricing, c.deliverOffer)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	observability.RequestsCreated.Inc()
	c.log.Info("ride_request_created", "request_id", req.ID, "vehicle_type", string(vt))
	_ = c.journal.Publish(journal.Event{Type: journal.EventRequestCreated, UserID: passenger.ID, RequestID: req.ID})
	c.emit(snap)
	return snap, nil
}

// CancelSearch abandons the active request and suppresses its pending offers.
// Without an active request it is a no-op.
func (c *Controller) CancelSearch() models.Snapshot {
	c.mu.Lock()
	if c.request == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	reqID := c.request.ID
	c.request.Status = models.RequestCancelled
	c.gen.Cancel(reqID)
	c.request = nil
	c.offers = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("search_cancelled", "request_id", reqID)
	_ = c.journal.Publish(journal.Event{Type: journal.EventSearchCancelled, RequestID: reqID})
	c.emit(snap)
	return snap
}

// AcceptOffer turns an offer into the active ride. The request and offer set
// clear in the same critical section, so no snapshot ever shows both a ride
// and offers.
func (c *Controller) AcceptOffer(offerID string) (models.Snapshot, error) {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotLoggedIn
	}
	if c.request == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrOfferExpired
	}
	var offer *models.RideOffer
	for i := range c.offers {
		if c.offers[i].ID == offerID {
			offer = &c.offers[i]
			break
		}
	}
	if offer == nil || offer.RideRequestID != c.request.ID {
		c.mu.Unlock()
		return c.Snapshot(), ErrOfferExpired
	}

	r := models.Ride{
		ID:        "ride_" + newID(),
		Passenger: c.request.Passenger,
		Driver:    offer.Driver,
		From:      c.request.From,
		To:        c.request.To,
		Fare:      offer.Fare,
		Status:    models.RideAccepted,
	}
	reqID := c.request.ID
	c.gen.Cancel(reqID)
	c.ride = &r
	c.request = nil
	c.offers = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	observability.OffersAccepted.Inc()
	c.log.Info("offer_accepted", "offer_id", offerID, "ride_id", r.ID, "driver_id", r.Driver.ID, "fare", r.Fare)
	_ = c.journal.Publish(journal.Event{Type: journal.EventOfferAccepted, RequestID: reqID, OfferID: offerID, RideID: r.ID, DriverID: r.Driver.ID, Fare: r.Fare})
	c.emit(snap)
	return snap, nil
}

// ProposeOffer counters the active request with a manual fare on behalf of a
// simulated driver. It lands through the same path as generated offers, so
// the stale-request and eligibility rules apply unchanged.
func (c *Controller) ProposeOffer(driverID string, fare float64) (models.Snapshot, error) {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotLoggedIn
	}
	if fare <= 0 {
		c.mu.Unlock()
		return c.Snapshot(), ErrInvalidFare
	}
	if c.request == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrOfferExpired
	}
	driver, ok := c.roster.DriverByID(driverID)
	if !ok || !driver.IsOnline || driver.Vehicle.Type != c.request.VehicleType {
		c.mu.Unlock()
		return c.Snapshot(), ErrDriverNotEligible
	}
	offer := c.gen.Manual(driver, *c.request, fare)
	c.appendOfferLocked(offer)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	observability.OffersGenerated.Inc()
	c.log.Info("offer_proposed", "offer_id", offer.ID, "driver_id", driver.ID, "fare", fare)
	_ = c.journal.Publish(journal.Event{Type: journal.EventOfferMade, RequestID: offer.RideRequestID, OfferID: offer.ID, DriverID: driver.ID, Fare: fare})
	c.emit(snap)
	return snap, nil
}

// UpdateRideStatus advances the active ride. Calls without an active ride or
// with an invalid transition are defensively ignored.
func (c *Controller) UpdateRideStatus(status models.RideStatus) models.Snapshot {
	c.mu.Lock()
	if c.ride == nil || !ride.CanTransition(c.ride.Status, status) {
		if c.ride != nil {
			c.log.Warn("ride_status_ignored", "ride_id", c.ride.ID, "from", string(c.ride.Status), "to", string(status))
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	now := time.Now()
	from := c.ride.Status
	c.ride.Status = status
	rideID := c.ride.ID

	switch {
	case status == models.RideInProgress && c.ride.StartTime == nil:
		c.ride.StartTime = &now
	case status == models.RideCompleted:
		c.ride.EndTime = &now
		c.scheduleRideClearLocked(rideID)
	case ride.IsCancelled(status):
		c.ride = nil
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("ride_status_changed", "ride_id", rideID, "from", string(from), "to", string(status))
	_ = c.journal.Publish(journal.Event{Type: journal.EventRideStatusChange, RideID: rideID, Status: string(status)})
	switch {
	case status == models.RideCompleted:
		observability.RidesCompleted.Inc()
		_ = c.journal.Publish(journal.Event{Type: journal.EventRideCompleted, RideID: rideID})
	case ride.IsCancelled(status):
		observability.RidesCancelled.Inc()
		_ = c.journal.Publish(journal.Event{Type: journal.EventRideCancelled, RideID: rideID, Status: string(status)})
	}
	c.emit(snap)
	return snap
}

// CancelRide cancels the active ride on behalf of the current user's role.
// Terminal rides (completed, already cancelled) and absent rides are no-ops.
func (c *Controller) CancelRide() models.Snapshot {
	c.mu.Lock()
	if c.user == nil || c.ride == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	status := ride.CancelStatusFor(c.user.Role)
	if !ride.CanTransition(c.ride.Status, status) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	rideID := c.ride.ID
	c.ride = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	observability.RidesCancelled.Inc()
	c.log.Info("ride_cancelled", "ride_id", rideID, "status", string(status))
	_ = c.journal.Publish(journal.Event{Type: journal.EventRideCancelled, RideID: rideID, Status: string(status)})
	c.emit(snap)
	return snap
}

// ToggleDriverOnline flips the logged-in driver's availability.
func (c *Controller) ToggleDriverOnline(online bool) (models.Snapshot, error) {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotLoggedIn
	}
	if c.user.Role != models.RoleDriver {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotDriver
	}
	driverID := c.user.ID
	if err := c.roster.SetDriverOnline(driverID, online); err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.refreshDriversOnlineLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("driver_online_toggled", "driver_id", driverID, "online", online)
	c.emit(snap)
	return snap, nil
}

// SavePricingConfig replaces the pricing configuration; admin only.
func (c *Controller) SavePricingConfig(cfg models.PricingConfig) (models.Snapshot, error) {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotLoggedIn
	}
	if c.user.Role != models.RoleAdmin {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotAdmin
	}
	if err := pricing.Validate(cfg); err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.pricing = cfg
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("pricing_updated")
	_ = c.journal.Publish(journal.Event{Type: journal.EventPricingUpdated})
	c.emit(snap)
	return snap, nil
}

// deliverOffer is the generator's callback. It re-checks the active request
// under the lock so offers for superseded or cancelled requests are never
// presentable, regardless of timer races.
func (c *Controller) deliverOffer(o models.RideOffer) {
	c.mu.Lock()
	if c.request == nil || c.request.ID != o.RideRequestID || c.request.Status == models.RequestCancelled {
		c.mu.Unlock()
		observability.OffersSuppressed.Inc()
		c.log.Debug("offer_suppressed", "offer_id", o.ID, "request_id", o.RideRequestID)
		_ = c.journal.Publish(journal.Event{Type: journal.EventOfferSuppressed, OfferID: o.ID, RequestID: o.RideRequestID, DriverID: o.Driver.ID})
		return
	}
	c.appendOfferLocked(o)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	observability.OffersGenerated.Inc()
	c.log.Info("offer_delivered", "offer_id", o.ID, "driver_id", o.Driver.ID, "fare", o.Fare, "eta_minutes", o.DriverETA)
	_ = c.journal.Publish(journal.Event{Type: journal.EventOfferMade, OfferID: o.ID, RequestID: o.RideRequestID, DriverID: o.Driver.ID, Fare: o.Fare})
	c.emit(snap)
}

// appendOfferLocked adds or replaces an offer (offers are keyed by
// driver+request, so a driver's counter-offer supersedes their generated one)
// and marks the request as having offers.
func (c *Controller) appendOfferLocked(o models.RideOffer) {
	for i := range c.offers {
		if c.offers[i].ID == o.ID {
			c.offers[i] = o
			return
		}
	}
	c.offers = append(c.offers, o)
	c.request.Status = models.RequestOffersReceived
}

// scheduleRideClearLocked keeps a completed ride visible for the grace period
// and then returns the session to the role home screen. The timer re-checks
// ride identity so logout or a fresh ride invalidates it.
func (c *Controller) scheduleRideClearLocked(rideID string) {
	if c.graceTimer != nil {
		c.graceTimer.Stop()
	}
	c.graceTimer = time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		if c.ride == nil || c.ride.ID != rideID || c.ride.Status != models.RideCompleted {
			c.mu.Unlock()
			return
		}
		c.ride = nil
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Info("ride_cleared", "ride_id", rideID)
		c.emit(snap)
	})
}

// clearSessionLocked drops request, offers, ride, and all in-flight deferred
// work. Identity is left for the caller to set or clear.
func (c *Controller) clearSessionLocked() {
	c.gen.CancelAll()
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
	c.request = nil
	c.offers = nil
	c.ride = nil
}

func (c *Controller) refreshDriversOnlineLocked() {
	online := 0
	for _, d := range c.roster.Drivers() {
		if d.IsOnline {
			online++
		}
	}
	observability.DriversOnline.Set(float64(online))
}

func (c *Controller) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Screen:     Route(c.user, c.ride),
		Pricing:    c.pricing,
		Drivers:    c.roster.Drivers(),
		Passengers: c.roster.Passengers(),
	}
	if c.user != nil {
		u := *c.user
		snap.User = &u
	}
	if c.request != nil {
		r := *c.request
		snap.Request = &r
	}
	if len(c.offers) > 0 {
		snap.Offers = make([]models.RideOffer, len(c.offers))
		copy(snap.Offers, c.offers)
	}
	if c.ride != nil {
		r := *c.ride
		snap.Ride = &r
	}
	return snap
}

// emit runs outside the state lock so the hook can call back into Snapshot.
func (c *Controller) emit(snap models.Snapshot) {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
