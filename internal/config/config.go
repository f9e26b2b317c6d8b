package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	// Offer simulation knobs. The defaults reproduce the product behavior;
	// tests and demos shrink them.
	OfferStaggerBase  time.Duration
	MarkupProbability float64
	TripKmMin         float64
	TripKmMax         float64
	PickupKmMin       float64
	PickupKmMax       float64
	EtaMinutesPerKm   float64

	// How long a completed ride stays on screen before the session
	// returns home.
	CompletionGrace time.Duration

	LogLevel string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:          ":8080",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		KafkaTopic:        "session-events",
		OfferStaggerBase:  2 * time.Second,
		MarkupProbability: 0.3,
		TripKmMin:         2,
		TripKmMax:         17,
		PickupKmMin:       1,
		PickupKmMax:       4,
		EtaMinutesPerKm:   2.5,
		CompletionGrace:   3 * time.Second,
		LogLevel:          "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setDurationFromEnv(&cfg.OfferStaggerBase, "OFFER_STAGGER_BASE", &errs)
	setFloatFromEnv(&cfg.MarkupProbability, "OFFER_MARKUP_PROBABILITY", &errs)
	setFloatFromEnv(&cfg.TripKmMin, "OFFER_TRIP_KM_MIN", &errs)
	setFloatFromEnv(&cfg.TripKmMax, "OFFER_TRIP_KM_MAX", &errs)
	setFloatFromEnv(&cfg.PickupKmMin, "OFFER_PICKUP_KM_MIN", &errs)
	setFloatFromEnv(&cfg.PickupKmMax, "OFFER_PICKUP_KM_MAX", &errs)
	setFloatFromEnv(&cfg.EtaMinutesPerKm, "OFFER_ETA_MINUTES_PER_KM", &errs)
	setDurationFromEnv(&cfg.CompletionGrace, "RIDE_COMPLETION_GRACE", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.OfferStaggerBase <= 0 {
		errs = append(errs, fmt.Errorf("OFFER_STAGGER_BASE must be > 0"))
	}
	if cfg.MarkupProbability < 0 || cfg.MarkupProbability > 1 {
		errs = append(errs, fmt.Errorf("OFFER_MARKUP_PROBABILITY must be in [0, 1]"))
	}
	if cfg.TripKmMax < cfg.TripKmMin || cfg.PickupKmMax < cfg.PickupKmMin {
		errs = append(errs, fmt.Errorf("distance ranges must have max >= min"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
