package offers

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/example/rota-parceira/internal/models"
	"github.com/example/rota-parceira/internal/pricing"
)

// Config tunes the offer simulation. The defaults reproduce the original
// product behavior; tests shrink the delays and pin the random ranges.
type Config struct {
	StaggerBase       time.Duration // driver i delivers after (i+1) * StaggerBase
	MarkupProbability float64       // chance a driver proposes a higher fare
	TripKmMin         float64
	TripKmMax         float64
	PickupKmMin       float64
	PickupKmMax       float64
	EtaMinutesPerKm   float64
}

func DefaultConfig() Config {
	return Config{
		StaggerBase:       2 * time.Second,
		MarkupProbability: 0.3,
		TripKmMin:         2,
		TripKmMax:         17,
		PickupKmMin:       1,
		PickupKmMax:       4,
		EtaMinutesPerKm:   2.5,
	}
}

// Generator simulates eligible drivers responding to a ride request with
// staggered fare offers. Scheduled deliveries are tracked per request ID so a
// superseded or cancelled request can drop its in-flight work.
type Generator struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	timers map[string][]*time.Timer
}

func NewGenerator(cfg Config, log *slog.Logger) *Generator {
	return &Generator{cfg: cfg, log: log, timers: make(map[string][]*time.Timer)}
}

// Eligible filters the roster down to drivers allowed to offer on a request:
// online and matching the requested vehicle type.
func Eligible(drivers []models.Driver, vt models.VehicleType) []models.Driver {
	out := make([]models.Driver, 0, len(drivers))
	for _, d := range drivers {
		if d.IsOnline && d.Vehicle.Type == vt {
			out = append(out, d)
		}
	}
	return out
}

// Start schedules one offer per eligible driver. deliver runs on the timer
// goroutine once the driver's delay elapses; the caller is responsible for
// rejecting offers whose request is no longer active. Any previously
// scheduled work for other requests is untouched; cancel explicitly.
func (g *Generator) Start(req models.RideRequest, drivers []models.Driver, cfg models.PricingConfig, deliver func(models.RideOffer)) {
	eligible := Eligible(drivers, req.VehicleType)
	g.log.Info("offer_generation_started",
		"request_id", req.ID,
		"vehicle_type", string(req.VehicleType),
		"eligible_drivers", len(eligible),
	)
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, d := range eligible {
		driver := d
		delay := time.Duration(i+1) * g.cfg.StaggerBase
		t := time.AfterFunc(delay, func() {
			deliver(g.build(driver, req, cfg))
		})
		g.timers[req.ID] = append(g.timers[req.ID], t)
	}
}

// Cancel stops all pending deliveries for a request. Deliveries already in
// flight are caught by the caller's active-request check.
func (g *Generator) Cancel(requestID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.timers[requestID] {
		t.Stop()
	}
	delete(g.timers, requestID)
}

// CancelAll drops every scheduled delivery; used on logout.
func (g *Generator) CancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, ts := range g.timers {
		for _, t := range ts {
			t.Stop()
		}
		delete(g.timers, id)
	}
}

// Pending reports how many deliveries are still scheduled for a request.
func (g *Generator) Pending(requestID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers[requestID])
}

func (g *Generator) build(d models.Driver, req models.RideRequest, cfg models.PricingConfig) models.RideOffer {
	trip := uniform(g.cfg.TripKmMin, g.cfg.TripKmMax)
	pickup := uniform(g.cfg.PickupKmMin, g.cfg.PickupKmMax)
	fare := pricing.ComputeFare(trip+pickup, req.VehicleType, cfg)
	if rand.Float64() < g.cfg.MarkupProbability {
		fare = pricing.ApplyMarkup(fare)
	}
	return models.RideOffer{
		ID:            OfferID(d.ID, req.ID),
		Driver:        d,
		RideRequestID: req.ID,
		Fare:          fare,
		DriverETA:     g.etaMinutes(pickup),
	}
}

// Manual builds a driver's counter-offer at a fare the driver chose. The ETA
// still comes from a simulated pickup distance.
func (g *Generator) Manual(d models.Driver, req models.RideRequest, fare float64) models.RideOffer {
	pickup := uniform(g.cfg.PickupKmMin, g.cfg.PickupKmMax)
	return models.RideOffer{
		ID:            OfferID(d.ID, req.ID),
		Driver:        d,
		RideRequestID: req.ID,
		Fare:          fare,
		DriverETA:     g.etaMinutes(pickup),
	}
}

func OfferID(driverID, requestID string) string {
	return "offer_" + driverID + "_" + requestID
}

// etaMinutes derives a whole-minute pickup ETA, never below 1.
func (g *Generator) etaMinutes(pickupKm float64) int {
	eta := int(math.Floor(pickupKm*g.cfg.EtaMinutesPerKm)) + 1
	if eta < 1 {
		eta = 1
	}
	return eta
}

func uniform(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rand.Float64()*(max-min)
}
