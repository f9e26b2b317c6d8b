package offers

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/rota-parceira/internal/models"
	"github.com/example/rota-parceira/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedConfig pins the random ranges to a point so fares are deterministic:
// trip 4km + pickup 1km = 5km total.
func fixedConfig(stagger time.Duration, markupProb float64) Config {
	return Config{
		StaggerBase:       stagger,
		MarkupProbability: markupProb,
		TripKmMin:         4,
		TripKmMax:         4,
		PickupKmMin:       1,
		PickupKmMax:       1,
		EtaMinutesPerKm:   2.5,
	}
}

func carRequest(id string) models.RideRequest {
	return models.RideRequest{
		ID:          id,
		VehicleType: models.VehicleCar,
		Status:      models.RequestSearching,
		CreatedAt:   time.Now(),
	}
}

func carDriver(id string, online bool) models.Driver {
	return models.Driver{
		User:     models.User{ID: id, Role: models.RoleDriver},
		IsOnline: online,
		Vehicle:  models.Vehicle{Type: models.VehicleCar},
	}
}

func motoDriver(id string, online bool) models.Driver {
	d := carDriver(id, online)
	d.Vehicle.Type = models.VehicleMoto
	return d
}

type collector struct {
	mu     sync.Mutex
	offers []models.RideOffer
}

func (c *collector) deliver(o models.RideOffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers = append(c.offers, o)
}

func (c *collector) snapshot() []models.RideOffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RideOffer, len(c.offers))
	copy(out, c.offers)
	return out
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

func TestEligible(t *testing.T) {
	drivers := []models.Driver{
		carDriver("d1", true),
		carDriver("d2", false),
		motoDriver("d3", true),
	}
	got := Eligible(drivers, models.VehicleCar)
	if len(got) != 1 || got[0].ID != "d1" {
		t.Fatalf("expected only online car driver d1, got %+v", got)
	}
	if moto := Eligible(drivers, models.VehicleMoto); len(moto) != 1 || moto[0].ID != "d3" {
		t.Fatalf("expected only moto driver d3, got %+v", moto)
	}
}

func TestNoEligibleDriversYieldsNoOffers(t *testing.T) {
	g := NewGenerator(fixedConfig(time.Millisecond, 0), testLogger())
	var c collector
	req := carRequest("req1")
	req.VehicleType = models.VehicleMoto

	g.Start(req, []models.Driver{carDriver("d1", true), carDriver("d2", true)}, pricing.Default(), c.deliver)

	if n := g.Pending("req1"); n != 0 {
		t.Fatalf("expected 0 scheduled deliveries, got %d", n)
	}
	time.Sleep(20 * time.Millisecond)
	if got := c.snapshot(); len(got) != 0 {
		t.Fatalf("expected no offers, got %d", len(got))
	}
}

func TestOffersDeliveredPerEligibleDriver(t *testing.T) {
	g := NewGenerator(fixedConfig(time.Millisecond, 0), testLogger())
	var c collector
	req := carRequest("req1")
	drivers := []models.Driver{carDriver("d1", true), carDriver("d2", true), motoDriver("d3", true)}

	g.Start(req, drivers, pricing.Default(), c.deliver)
	waitFor(t, time.Second, func() bool { return len(c.snapshot()) == 2 })

	for _, o := range c.snapshot() {
		if o.RideRequestID != "req1" {
			t.Errorf("offer references request %s", o.RideRequestID)
		}
		// total distance fixed at 5km, car rate 2/km, min fare 8 -> 10.00
		if o.Fare != 10.0 {
			t.Errorf("offer fare = %v, want 10.0", o.Fare)
		}
		// pickup fixed at 1km -> floor(2.5)+1 = 3 minutes
		if o.DriverETA != 3 {
			t.Errorf("offer ETA = %d, want 3", o.DriverETA)
		}
	}
}

func TestMarkupAppliedExactly(t *testing.T) {
	g := NewGenerator(fixedConfig(time.Millisecond, 1), testLogger())
	var c collector
	g.Start(carRequest("req1"), []models.Driver{carDriver("d1", true)}, pricing.Default(), c.deliver)
	waitFor(t, time.Second, func() bool { return len(c.snapshot()) == 1 })

	if fare := c.snapshot()[0].Fare; fare != 11.5 {
		t.Fatalf("marked-up fare = %v, want 11.5 (10.0 * 1.15)", fare)
	}
}

func TestCancelSuppressesPendingDeliveries(t *testing.T) {
	g := NewGenerator(fixedConfig(50*time.Millisecond, 0), testLogger())
	var c collector
	drivers := []models.Driver{carDriver("d1", true), carDriver("d2", true)}

	g.Start(carRequest("reqA"), drivers, pricing.Default(), c.deliver)
	g.Cancel("reqA")
	g.Start(carRequest("reqB"), drivers, pricing.Default(), c.deliver)

	waitFor(t, 2*time.Second, func() bool { return len(c.snapshot()) == 2 })
	time.Sleep(120 * time.Millisecond)
	for _, o := range c.snapshot() {
		if o.RideRequestID == "reqA" {
			t.Fatalf("offer for superseded request delivered: %+v", o)
		}
	}
}

func TestCancelAll(t *testing.T) {
	g := NewGenerator(fixedConfig(50*time.Millisecond, 0), testLogger())
	var c collector
	g.Start(carRequest("reqA"), []models.Driver{carDriver("d1", true)}, pricing.Default(), c.deliver)
	g.CancelAll()
	if n := g.Pending("reqA"); n != 0 {
		t.Fatalf("expected no pending deliveries, got %d", n)
	}
	time.Sleep(120 * time.Millisecond)
	if len(c.snapshot()) != 0 {
		t.Fatal("offers delivered after CancelAll")
	}
}

func TestEtaFloor(t *testing.T) {
	cfg := fixedConfig(time.Millisecond, 0)
	cfg.PickupKmMin, cfg.PickupKmMax = 0, 0
	g := NewGenerator(cfg, testLogger())
	if eta := g.etaMinutes(0); eta != 1 {
		t.Fatalf("eta for 0km = %d, want 1", eta)
	}
	if eta := g.etaMinutes(3.9); eta != 10 {
		t.Fatalf("eta for 3.9km = %d, want floor(9.75)+1 = 10", eta)
	}
}

func TestManualOfferUsesGivenFare(t *testing.T) {
	g := NewGenerator(fixedConfig(time.Millisecond, 0), testLogger())
	req := carRequest("req1")
	o := g.Manual(carDriver("d9", true), req, 42.5)
	if o.Fare != 42.5 {
		t.Fatalf("manual fare = %v, want 42.5", o.Fare)
	}
	if o.ID != OfferID("d9", "req1") {
		t.Fatalf("manual offer id = %s", o.ID)
	}
	if o.DriverETA < 1 {
		t.Fatalf("manual ETA below 1: %d", o.DriverETA)
	}
}
