package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/warsim/internal/config"
	"github.com/invisible-tech/warsim/internal/engine"
	"github.com/invisible-tech/warsim/internal/eventbus"
	"github.com/invisible-tech/warsim/internal/eventlog"
	"github.com/invisible-tech/warsim/internal/probe"
	"github.com/invisible-tech/warsim/internal/runner"
	"github.com/invisible-tech/warsim/internal/scripts"
	"github.com/invisible-tech/warsim/internal/server"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	events := eventlog.New(cfg.EventRetention)

	bus, err := eventbus.Connect(cfg.NATSURL, cfg.NATSSubject, log)
	if err != nil {
		log.WithError(err).Warn("Event bus unavailable, continuing without fan-out")
	}
	if bus != nil {
		events.SetSink(bus.Publish)
		defer bus.Close()
	}

	store, err := scripts.NewWithFile(cfg.ScriptsFile, log)
	if err != nil {
		log.WithError(err).Fatal("Script store init failed")
	}

	session := engine.New(engine.Config{
		PatchDelay:       cfg.PatchDelay,
		OpponentCooldown: cfg.OpponentCooldown,
		OpponentTick:     cfg.OpponentTick,
	}, events, store, log)

	prober := probe.New(events, log, cfg.ProbeTimeout, cfg.ProbeCacheTTL)
	run := runner.New(session, store, prober, events, log, cfg.CommandDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session.Start(ctx)
	if err := store.Watch(ctx); err != nil {
		log.WithError(err).Warn("Scripts watcher unavailable")
	}

	srv := server.New(cfg, session, store, prober, run, events, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Simulation server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down simulation server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
