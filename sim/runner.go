package sim

import (
	"sync"
	"time"
)

// Control exposes per-connection tunables read live by the runner.
type Control interface {
	// Speed is the real-time multiplier (1 = wall clock).
	Speed() float64
	// Paused suspends stepping without tearing the stream down.
	Paused() bool
}

// StaticControl implements Control with fixed values.
type StaticControl struct {
	SpeedMult float64
	Pause     bool
}

func (s StaticControl) Speed() float64 {
	if s.SpeedMult <= 0 {
		return 1
	}
	if s.SpeedMult > 10 {
		return 10
	}
	return s.SpeedMult
}

func (s StaticControl) Paused() bool { return s.Pause }

// pausePoll is how often a paused runner re-checks its control.
const pausePoll = 100 * time.Millisecond

// StartRunner steps the simulation in wall-clock time and emits a snapshot
// every snapshotEvery ticks on the returned channel. It returns a stop
// function to cancel and a wait function that blocks until the goroutine
// exits. Snapshots are idempotent; when the consumer lags, intervening
// ones are dropped rather than blocking the tick loop.
func StartRunner(s *Simulation, ctrl Control, snapshotEvery int) (snapshots <-chan Snapshot, stop func(), wait func()) {
	if snapshotEvery < 1 {
		snapshotEvery = 1
	}
	ch := make(chan Snapshot, 8)
	stopCh := make(chan struct{})
	var stopOnce sync.Once
	stop = func() { stopOnce.Do(func() { close(stopCh) }) }

	var wg sync.WaitGroup
	wg.Add(1)
	wait = func() { wg.Wait() }

	go func() {
		defer wg.Done()
		defer close(ch)
		for {
			select {
			case <-stopCh:
				return
			default:
			}
			if ctrl.Paused() {
				select {
				case <-stopCh:
					return
				case <-time.After(pausePoll):
				}
				continue
			}
			speed := ctrl.Speed()
			if speed <= 0 {
				speed = 1
			}
			realStep := time.Duration(float64(time.Second) * s.Dt / speed)
			select {
			case <-stopCh:
				return
			case <-time.After(realStep):
			}
			s.Update()
			if s.FrameCount%uint64(snapshotEvery) == 0 {
				select {
				case ch <- s.Snapshot():
				default: // consumer lags; the next snapshot supersedes this one
				}
			}
		}
	}()

	return ch, stop, wait
}
