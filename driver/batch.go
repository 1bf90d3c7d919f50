// Package driver runs headless, fast-forward simulations (no sleeps, no
// streaming) and produces summary reports.
package driver

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"roadsim/backend/sim"
)

// Options configures a batch run.
type Options struct {
	Steps      int
	ReportPath string // optional CSV destination (file or directory)
}

// Run advances the simulation by the configured number of ticks and
// reports the outcome. Results are identical to a streamed run of the
// same configuration; only wall-clock time differs.
func Run(simu *sim.Simulation, opt Options) (sim.ReportSummary, error) {
	if opt.Steps <= 0 {
		return sim.ReportSummary{}, fmt.Errorf("batch driver requires steps > 0")
	}
	simu.Run(opt.Steps)

	sum := sim.Summarize(simu)
	if opt.ReportPath != "" {
		path, err := sim.WriteCSVReport(opt.ReportPath, simu, sum)
		if err != nil {
			return sum, fmt.Errorf("write report: %w", err)
		}
		log.Info().Msgf("CSV report written to %s", path)
	}
	sim.PrintConsoleReport(simu, sum)
	return sum, nil
}
