package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"roadsim/backend/config"
	"roadsim/backend/driver"
	"roadsim/backend/server"
	"roadsim/backend/sim"
)

func main() {
	configPath := flag.String("config", "data/config_sample.json", "simulation config JSON")
	addr := flag.String("addr", ":8080", "listen address for streaming mode")
	steps := flag.Int("steps", 0, "if > 0, run this many ticks headless and print a report")
	seed := flag.Int64("seed", 0, "generator RNG seed")
	reportPath := flag.String("report", "", "if set, write a CSV report to this file or directory (timestamp appended)")
	snapshotEvery := flag.Int("snapshot_every", 3, "ticks between streamed snapshots")
	timeScale := flag.Float64("time_scale", 1.0, "default real-time speed multiplier for streams")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	build := func() (*sim.Simulation, map[string]any, error) {
		simu, ui, err := config.Load(*configPath)
		if err != nil {
			return nil, nil, err
		}
		simu.Seed = *seed
		return simu, ui, nil
	}

	if *steps > 0 {
		simu, _, err := build()
		if err != nil {
			log.Fatal().Err(err).Msg("build simulation")
		}
		if _, err := driver.Run(simu, driver.Options{Steps: *steps, ReportPath: *reportPath}); err != nil {
			log.Fatal().Err(err).Msg("batch run")
		}
		return
	}

	srv, err := server.New(build, server.Options{
		Addr:          *addr,
		SnapshotEvery: *snapshotEvery,
		DefaultSpeed:  *timeScale,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build server")
	}
	if err := srv.Serve(); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}
