package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/rota-parceira/internal/models"
)

// MarkupRate is the driver negotiation markup applied on top of a base fare.
const MarkupRate = 0.15

// Default returns the pricing configuration the simulation boots with.
func Default() models.PricingConfig {
	return models.PricingConfig{
		CarMinKmRate:      2,
		CarMinFare:        8,
		CarMinHourlyRate:  40,
		MotoMinKmRate:     1.5,
		MotoMinFare:       5,
		MotoMinHourlyRate: 25,
	}
}

// ComputeFare maps a trip distance and vehicle type onto a fare:
// max(distanceKm * perKmRate, minFare). Negative or NaN distances clamp to 0,
// so the result is never below the configured minimum fare.
func ComputeFare(distanceKm float64, vt models.VehicleType, cfg models.PricingConfig) float64 {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	rate, minFare := ratesFor(vt, cfg)
	return math.Max(distanceKm*rate, minFare)
}

// ApplyMarkup raises a fare by exactly MarkupRate.
func ApplyMarkup(fare float64) float64 {
	return fare * (1 + MarkupRate)
}

func ratesFor(vt models.VehicleType, cfg models.PricingConfig) (perKm, minFare float64) {
	if vt == models.VehicleCar {
		return cfg.CarMinKmRate, cfg.CarMinFare
	}
	return cfg.MotoMinKmRate, cfg.MotoMinFare
}

// Validate rejects configurations that would produce negative fares.
func Validate(cfg models.PricingConfig) error {
	var errs []error
	check := func(name string, v float64) {
		if v < 0 || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("%s must be >= 0", name))
		}
	}
	check("car_min_km_rate", cfg.CarMinKmRate)
	check("car_min_fare", cfg.CarMinFare)
	check("car_min_hourly_rate", cfg.CarMinHourlyRate)
	check("moto_min_km_rate", cfg.MotoMinKmRate)
	check("moto_min_fare", cfg.MotoMinFare)
	check("moto_min_hourly_rate", cfg.MotoMinHourlyRate)
	return errors.Join(errs...)
}
