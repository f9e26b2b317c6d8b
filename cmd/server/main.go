package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/rota-parceira/internal/config"
	httpapi "github.com/example/rota-parceira/internal/http"
	"github.com/example/rota-parceira/internal/journal"
	"github.com/example/rota-parceira/internal/logging"
	"github.com/example/rota-parceira/internal/offers"
	"github.com/example/rota-parceira/internal/roster"
	"github.com/example/rota-parceira/internal/session"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.LogLevel)

	// roster backend: in-memory seed by default, Redis when configured
	var r roster.Roster
	if cfg.RedisAddr != "" {
		rr := roster.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err := rr.Seed(); err != nil {
			log.Error("redis roster seed failed", "error", err)
			os.Exit(1)
		}
		r = rr
		log.Info("using redis roster", "addr", cfg.RedisAddr)
	} else {
		r = roster.Seeded()
		log.Info("using in-memory roster")
	}

	// event journal: only when brokers are configured; nil drops everything
	var jr *journal.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		jr = journal.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer jr.Close()
		log.Info("journaling session events", "topic", cfg.KafkaTopic)
	}

	gen := offers.NewGenerator(offers.Config{
		StaggerBase:       cfg.OfferStaggerBase,
		MarkupProbability: cfg.MarkupProbability,
		TripKmMin:         cfg.TripKmMin,
		TripKmMax:         cfg.TripKmMax,
		PickupKmMin:       cfg.PickupKmMin,
		PickupKmMax:       cfg.PickupKmMax,
		EtaMinutesPerKm:   cfg.EtaMinutesPerKm,
	}, log)

	ctrl := session.New(r, gen, jr, cfg.CompletionGrace, log)
	api := httpapi.NewServer(ctrl, log)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("rota-parceira listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
