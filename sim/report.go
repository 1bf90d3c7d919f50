package sim

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"roadsim/backend/model"
)

// ReportSummary carries end-of-run metrics needed for reporting.
type ReportSummary struct {
	Ticks           uint64
	SimTime         float64
	VehiclesTotal   int
	VehiclesEnRoute int
	TotalDistanceM  float64
	MeanSpeed       float64
}

// Summarize aggregates the current simulation state into a summary.
func Summarize(s *Simulation) ReportSummary {
	vehicles := lo.Values(s.Vehicles)
	enRoute := 0
	for _, seg := range s.Segments {
		enRoute += seg.NumVehicles()
	}
	sum := ReportSummary{
		Ticks:           s.FrameCount,
		SimTime:         s.T,
		VehiclesTotal:   len(vehicles),
		VehiclesEnRoute: enRoute,
		TotalDistanceM:  lo.SumBy(vehicles, func(v *model.Vehicle) float64 { return v.Odometer }),
	}
	if len(vehicles) > 0 {
		sum.MeanSpeed = lo.SumBy(vehicles, func(v *model.Vehicle) float64 { return v.V }) / float64(len(vehicles))
	}
	return sum
}

// WriteCSVReport writes a CSV report to the given path or directory.
// If reportPath is a directory, a timestamped file is created inside;
// otherwise a timestamp is suffixed before the extension.
func WriteCSVReport(reportPath string, s *Simulation, sum ReportSummary) (string, error) {
	if reportPath == "" {
		return "", nil
	}
	ts := time.Now().Format("20060102-150405")
	outPath := reportPath
	if fi, err := os.Stat(outPath); err == nil && fi.IsDir() {
		outPath = filepath.Join(outPath, fmt.Sprintf("report-%s.csv", ts))
	} else {
		ext := filepath.Ext(outPath)
		base := outPath[:len(outPath)-len(ext)]
		outPath = fmt.Sprintf("%s-%s%s", base, ts, ext)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	round2 := func(x float64) float64 { return math.Round(x*100) / 100 }
	fmt.Fprintln(f, "section,vehicle_id,class,x,v,odometer_m,ticks,sim_time_s,vehicles,en_route,total_distance_m,mean_speed,timestamp")
	for i := range s.Segments {
		for _, id := range s.Segments[i].VehicleIDs() {
			v := s.Vehicles[id]
			fmt.Fprintf(f, "vehicle,%s,%s,%.2f,%.2f,%.2f,,,,,,,%s\n", v.ID, v.Class, round2(v.X), round2(v.V), round2(v.Odometer), ts)
		}
	}
	fmt.Fprintf(f, "summary,,,,,,%d,%.2f,%d,%d,%.2f,%.2f,%s\n",
		sum.Ticks, sum.SimTime, sum.VehiclesTotal, sum.VehiclesEnRoute,
		round2(sum.TotalDistanceM), round2(sum.MeanSpeed), ts)
	return outPath, nil
}

// PrintConsoleReport prints a human-readable report to stdout.
func PrintConsoleReport(s *Simulation, sum ReportSummary) {
	fmt.Println("=== Simulation Report ===")
	fmt.Printf("Ticks: %d (%.1f s simulated)\n", sum.Ticks, sum.SimTime)
	fmt.Printf("Vehicles registered: %d (en route: %d)\n", sum.VehiclesTotal, sum.VehiclesEnRoute)
	fmt.Printf("Total distance driven: %.1f m\n", sum.TotalDistanceM)
	fmt.Printf("Mean speed: %.2f m/s\n", sum.MeanSpeed)
	for _, ev := range s.Events {
		state := "inactive"
		if ev.Active {
			state = "active"
		}
		fmt.Printf("Event %s on %s: %s\n", ev.ID, ev.SegmentID, state)
	}
}
