package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/simracekit/pitwall/internal/store"
	"github.com/simracekit/pitwall/internal/telemetry"
	"github.com/simracekit/pitwall/internal/web"
)

var (
	configPath string
	debug      bool
)

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	config, err := readConfig(configPath)

	if err != nil {
		logger.WithError(err).Fatal("Could not read config")
	}

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else if config.LogLevel != "" {
		level, err := logrus.ParseLevel(config.LogLevel)

		if err != nil {
			logger.WithError(err).Fatalf("Unknown log level: %s", config.LogLevel)
		}

		logger.SetLevel(level)
	}

	logger.Infof("Starting pitwall telemetry daemon")

	buffer, err := telemetry.NewTelemetryBuffer(config.Buffer.BufferConfig(), logger)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise telemetry buffer")
	}

	receiver := telemetry.NewReceiver(config.Receiver.ReceiverConfig(), buffer, logger)

	var (
		sessions *store.SessionStore
		bestLaps *store.BestLapStore
	)

	if !config.Store.Disabled {
		sessions, err = store.NewSessionStore(config.Store.Path, logger)

		if err != nil {
			logger.WithError(err).Fatal("Could not open session store")
		}

		defer sessions.Close()

		bestLaps, err = store.NewBestLapStore(config.Store.BestLapPath)

		if err != nil {
			logger.WithError(err).Fatal("Could not open best lap store")
		}

		defer bestLaps.Close()
	}

	httpServer := web.NewHTTP(config.Web, receiver, buffer, sessions, bestLaps, logger)
	receiver.AddObserver(httpServer.Hub().BroadcastSample)

	if err := receiver.Start(); err != nil {
		logger.WithError(err).Fatal("Could not start telemetry receiver")
	}

	if err := httpServer.Listen(); err != nil {
		logger.WithError(err).Fatal("Could not start HTTP server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if sessions != nil {
		archiver := store.NewLapArchiver(buffer, sessions, bestLaps, config.Store.Profile, config.Store.FlushInterval(), logger)

		g.Go(func() error {
			return archiver.Run(ctx)
		})
	}

	// The listener gives up after too many consecutive transport errors;
	// surface that as daemon shutdown rather than idling deaf.
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if ctx.Err() == nil && receiver.State() == telemetry.StateStopped {
					return errors.New("telemetry receiver stopped unexpectedly")
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := receiver.Stop(); err != nil {
			logger.WithError(err).Error("Could not stop telemetry receiver cleanly")
		}

		return httpServer.Close()
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Daemon exited with error")
	}

	logger.Infof("Daemon stopped. Exiting")
}
