// Command check_connectivity loads a simulation config and reports which
// segment endpoints connect at the default routing tolerance, which only
// connect at the relaxed retry tolerance, and which dangle entirely.
package main

import (
	"fmt"
	"os"

	"roadsim/backend/config"
	"roadsim/backend/routing"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: check_connectivity <config.json>")
		os.Exit(1)
	}
	simu, _, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "load: %v\n", err)
		os.Exit(1)
	}

	strict := routing.Build(simu.Segments, routing.DefaultTol)
	relaxed := routing.Build(simu.Segments, routing.DefaultTol*routing.RetryTolFactor)

	strictEdges := make(map[[2]int]bool)
	for _, e := range strict.Edges() {
		strictEdges[e] = true
	}

	fmt.Printf("segments: %d\n", len(simu.Segments))
	fmt.Printf("edges at tol %.2g: %d\n", routing.DefaultTol, len(strict.Edges()))

	loose := 0
	for _, e := range relaxed.Edges() {
		if strictEdges[e] {
			continue
		}
		loose++
		from, to := simu.Segments[e[0]], simu.Segments[e[1]]
		fmt.Printf("loose join %s -> %s: end (%.3f, %.3f) vs start (%.3f, %.3f)\n",
			name(from.Meta.ID, e[0]), name(to.Meta.ID, e[1]),
			from.EndPoint().X, from.EndPoint().Y,
			to.StartPoint().X, to.StartPoint().Y)
	}
	if loose == 0 {
		fmt.Println("no loose joins: every connection holds at the default tolerance")
	}

	// Dangling exits: segments whose end reaches no other segment at all.
	outDegree := make(map[int]int)
	for _, e := range relaxed.Edges() {
		outDegree[e[0]]++
	}
	for i, seg := range simu.Segments {
		if outDegree[i] == 0 {
			fmt.Printf("dead end %s at (%.3f, %.3f)\n",
				name(seg.Meta.ID, i), seg.EndPoint().X, seg.EndPoint().Y)
		}
	}
}

func name(id string, idx int) string {
	if id != "" {
		return fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf("#%d", idx)
}
